package handlers

import (
	"context"
	"encoding/json"
	"log"
	"net/http"
	"time"

	"ecoroute-dashboard/pkg/utils"
)

// DiagnosticLog represents a diagnostic log from the dashboard client
type DiagnosticLog struct {
	Timestamp string                 `json:"timestamp"`
	SessionID string                 `json:"session_id"`
	Context   string                 `json:"context"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Data      map[string]interface{} `json:"data"`
	UserAgent string                 `json:"user_agent"`
}

// ReceiveDiagnosticLog prints client-side diagnostics (map errors, dropped sockets)
// POST /api/logs/diagnostic
func ReceiveDiagnosticLog() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var logEntry DiagnosticLog
		if err := json.NewDecoder(r.Body).Decode(&logEntry); err != nil {
			utils.RespondError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		prefix := "🖥️"
		switch logEntry.Level {
		case "ERROR":
			prefix = "🔴"
		case "WARNING":
			prefix = "🟡"
		case "INFO":
			prefix = "🔵"
		}

		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Printf("%s DASHBOARD DIAGNOSTIC [%s]", prefix, logEntry.Level)
		log.Printf("   Session:   %s", logEntry.SessionID)
		log.Printf("   Context:   %s", logEntry.Context)
		log.Printf("   Timestamp: %s", logEntry.Timestamp)
		log.Printf("   Message:   %s", logEntry.Message)
		if len(logEntry.Data) > 0 {
			log.Println("   Data:")
			dataJSON, err := json.MarshalIndent(logEntry.Data, "      ", "  ")
			if err == nil {
				log.Printf("      %s", string(dataJSON))
			}
		}
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		utils.Success(w, map[string]string{"status": "received"})
	}
}

// Pinger is anything that can check the optimization service is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// UpstreamHealth reports whether the optimization service answers
// GET /health/upstream
func UpstreamHealth(upstream Pinger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
		defer cancel()

		start := time.Now()
		if err := upstream.Ping(ctx); err != nil {
			log.Printf("⚠️  Upstream health check failed: %v", err)
			utils.JSON(w, http.StatusBadGateway, map[string]interface{}{
				"status": "unreachable",
				"error":  err.Error(),
			})
			return
		}
		utils.Success(w, map[string]interface{}{
			"status":     "ok",
			"latency_ms": time.Since(start).Milliseconds(),
		})
	}
}
