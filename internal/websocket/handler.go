package websocket

import (
	"log"
	"net/http"

	"ecoroute-dashboard/internal/dashboard"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// Dashboard is served from a different origin than the API
		return true
	},
}

// HandleWebSocket upgrades GET /ws?session={id} and streams that session's events
func HandleWebSocket(hub *Hub, registry *dashboard.Registry) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sessionID := r.URL.Query().Get("session")
		if sessionID == "" {
			http.Error(w, "session query parameter is required", http.StatusBadRequest)
			return
		}

		session, ok := registry.Get(sessionID)
		if !ok {
			log.Printf("❌ WebSocket requested for unknown session: %s", sessionID)
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("❌ WebSocket upgrade failed: %v", err)
			return
		}

		client := NewClient(session, conn, hub)
		if !hub.Register(client) {
			log.Printf("⚠️ Hub stopped, refusing WebSocket for session %s", sessionID)
			conn.Close()
			return
		}

		go client.WritePump()
		go client.ReadPump()

		// Bring the new client up to date
		hub.SendTo(client, dashboard.Event{Type: dashboard.EventState, Data: session.Snapshot()})
		if session.View() == dashboard.ViewOperational {
			hub.SendTo(client, dashboard.Event{Type: dashboard.EventScene, Data: session.Scene()})
		}

		log.Printf("✅ WebSocket connection established for session: %s (%s)", sessionID, client.ID)
	}
}
