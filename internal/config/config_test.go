package config

import (
	"testing"
	"time"
)

func env(values map[string]string) func(string) string {
	return func(key string) string { return values[key] }
}

func TestFromEnvDefaults(t *testing.T) {
	cfg := FromEnv(env(nil))
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %s", cfg.Port)
	}
	if cfg.APIURL != DefaultAPIURL {
		t.Fatalf("expected fallback API URL, got %s", cfg.APIURL)
	}
	if cfg.IntroDuration != 7*time.Second {
		t.Fatalf("expected 7s intro, got %v", cfg.IntroDuration)
	}
	if cfg.SessionIdleTTL != 30*time.Minute {
		t.Fatalf("expected 30m idle ttl, got %v", cfg.SessionIdleTTL)
	}
	if cfg.HTTPTimeout != 60*time.Second {
		t.Fatalf("expected 60s timeout, got %v", cfg.HTTPTimeout)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	cfg := FromEnv(env(map[string]string{
		"PORT":              "9090",
		"ECOROUTE_API_URL":  "http://localhost:8000",
		"ECOROUTE_INTRO_MS": "250",
	}))
	if cfg.Port != "9090" || cfg.APIURL != "http://localhost:8000" {
		t.Fatalf("overrides not applied: %+v", cfg)
	}
	if cfg.IntroDuration != 250*time.Millisecond {
		t.Fatalf("expected 250ms intro, got %v", cfg.IntroDuration)
	}
}

func TestFromEnvRejectsBadNumbers(t *testing.T) {
	cfg := FromEnv(env(map[string]string{
		"ECOROUTE_INTRO_MS":             "soon",
		"ECOROUTE_SESSION_IDLE_MINUTES": "-4",
	}))
	if cfg.IntroDuration != 7*time.Second || cfg.SessionIdleTTL != 30*time.Minute {
		t.Fatalf("bad values should fall back to defaults: %+v", cfg)
	}
}
