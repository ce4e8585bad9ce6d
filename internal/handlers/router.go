package handlers

import (
	"net/http"

	"ecoroute-dashboard/internal/dashboard"
	"ecoroute-dashboard/internal/websocket"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter wires every HTTP and WebSocket route of the dashboard service
func NewRouter(registry *dashboard.Registry, hub *websocket.Hub, upstream Pinger) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(chimiddleware.Logger)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)

	// CORS (dashboard client is served from its own origin)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health checks
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Get("/health/upstream", UpstreamHealth(upstream))

	// Live session events
	r.Get("/ws", websocket.HandleWebSocket(hub, registry))

	r.Route("/api", func(r chi.Router) {
		r.Post("/sessions", CreateSession(registry))

		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", GetSession(registry))
			r.Delete("/", DeleteSession(registry, hub))

			// View orchestration
			r.Post("/confirm", ConfirmSession(registry))

			// Control surface
			r.Patch("/controls", UpdateControls(registry))
			r.Post("/trigger", TriggerOptimization(registry))
			r.Get("/metrics", GetMetrics(registry))

			// Map
			r.Post("/bins/refresh", RefreshBins(registry))
			r.Get("/scene", GetScene(registry))
			r.Get("/scene.geojson", GetSceneFeatures(registry))
		})

		// Client-side diagnostics
		r.Post("/logs/diagnostic", ReceiveDiagnosticLog())
	})

	return r
}
