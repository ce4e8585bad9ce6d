package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"ecoroute-dashboard/internal/config"
	"ecoroute-dashboard/internal/dashboard"
	"ecoroute-dashboard/internal/handlers"
	"ecoroute-dashboard/internal/services/fleetapi"
	"ecoroute-dashboard/internal/websocket"

	"golang.org/x/sync/errgroup"
)

func main() {
	log.Println("═══════════════════════════════════════════════════════════════════")
	log.Println("🚀 ECOROUTE DASHBOARD SERVER STARTING")
	log.Println("═══════════════════════════════════════════════════════════════════")

	cfg := config.Load()
	log.Printf("✅ Optimization service: %s", cfg.APIURL)
	log.Printf("✅ Intro duration: %v, idle session TTL: %v", cfg.IntroDuration, cfg.SessionIdleTTL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client := fleetapi.NewClient(cfg.APIURL, cfg.HTTPTimeout)

	// Initialize WebSocket hub
	wsHub := websocket.NewHub()

	registry := dashboard.NewRegistry(client, dashboard.Options{
		IntroDuration: cfg.IntroDuration,
		Publish:       wsHub.Publish,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handlers.NewRouter(registry, wsHub, client),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Println("✅ WebSocket hub started")
		return wsHub.Run(gctx)
	})

	g.Go(func() error {
		return sweepIdleSessions(gctx, registry, wsHub, cfg.SessionIdleTTL)
	})

	g.Go(func() error {
		log.Println("═══════════════════════════════════════════════════════════════════")
		log.Println("✅ ALL INITIALIZATION COMPLETE")
		log.Printf("🚀 Server starting on http://localhost:%s", cfg.Port)
		log.Println("🔌 Ready to accept requests!")
		log.Println("═══════════════════════════════════════════════════════════════════")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		log.Println("🛑 Shutting down...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		err := srv.Shutdown(shutdownCtx)
		registry.CloseAll()
		return err
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Println("❌ FATAL ERROR: Server stopped")
		log.Printf("   Error: %v", err)
		log.Printf("   Port: %s", cfg.Port)
		log.Println("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
		log.Fatal(err)
	}
	log.Println("👋 Server stopped")
}

// sweepIdleSessions closes sessions nobody has touched for ttl
func sweepIdleSessions(ctx context.Context, registry *dashboard.Registry, hub *websocket.Hub, ttl time.Duration) error {
	interval := ttl / 4
	if interval < time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			for _, id := range registry.Sweep(ttl) {
				hub.CloseSession(id)
			}
		}
	}
}
