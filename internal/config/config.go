package config

import (
	"log"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// DefaultAPIURL is the hosted optimization service used when ECOROUTE_API_URL is unset
const DefaultAPIURL = "https://route-optimization-c2mx.onrender.com"

// Config holds process-wide settings read from the environment
type Config struct {
	Port           string
	APIURL         string
	IntroDuration  time.Duration
	SessionIdleTTL time.Duration
	HTTPTimeout    time.Duration
}

// Load reads .env (if present) and then the process environment
func Load() Config {
	log.Println("📂 Loading environment variables...")
	if err := godotenv.Load(); err != nil {
		log.Println("⚠️  Warning: .env file not found, using environment variables from system")
	} else {
		log.Println("✅ .env file loaded successfully")
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function, applying literal defaults
func FromEnv(getenv func(string) string) Config {
	cfg := Config{
		Port:           getenv("PORT"),
		APIURL:         getenv("ECOROUTE_API_URL"),
		IntroDuration:  time.Duration(intOr(getenv, "ECOROUTE_INTRO_MS", 7000)) * time.Millisecond,
		SessionIdleTTL: time.Duration(intOr(getenv, "ECOROUTE_SESSION_IDLE_MINUTES", 30)) * time.Minute,
		HTTPTimeout:    time.Duration(intOr(getenv, "ECOROUTE_HTTP_TIMEOUT_SECONDS", 60)) * time.Second,
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
		log.Printf("⚠️  PORT not set, using default: %s", cfg.Port)
	}
	if cfg.APIURL == "" {
		cfg.APIURL = DefaultAPIURL
		log.Printf("⚠️  ECOROUTE_API_URL not set, using default: %s", cfg.APIURL)
	}
	return cfg
}

func intOr(getenv func(string) string, key string, fallback int) int {
	raw := getenv(key)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		log.Printf("⚠️  Invalid %s=%q, using default %d", key, raw, fallback)
		return fallback
	}
	return v
}
