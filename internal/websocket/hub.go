package websocket

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"ecoroute-dashboard/internal/dashboard"
)

// Hub fans session events out to the WebSocket clients watching each session
type Hub struct {
	// Connected clients grouped by session ID
	sessions map[string]map[*Client]bool

	// Outbound events for a session
	broadcast chan *Message

	// Register requests from clients
	register chan *Client

	// Unregister requests from clients
	unregister chan *Client

	// Disconnect every client of a session
	closeSession chan string

	// Closed when Run returns
	done chan struct{}

	// Mutex for thread-safe session map access
	mu sync.RWMutex
}

// Message is one event addressed to a session, or to a single client of it
type Message struct {
	SessionID string
	Client    *Client
	Data      interface{}
}

// NewHub creates a new Hub instance
func NewHub() *Hub {
	return &Hub{
		sessions:     make(map[string]map[*Client]bool),
		broadcast:    make(chan *Message, 256),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		closeSession: make(chan string, 16),
		done:         make(chan struct{}),
	}
}

// Run is the hub's main loop. It returns when ctx is done, closing all clients.
func (h *Hub) Run(ctx context.Context) error {
	defer close(h.done)
	for {
		select {
		case <-ctx.Done():
			h.mu.Lock()
			for id, clients := range h.sessions {
				for client := range clients {
					close(client.send)
				}
				delete(h.sessions, id)
			}
			h.mu.Unlock()
			log.Println("🔴 [WEBSOCKET] Hub stopped")
			return nil

		case client := <-h.register:
			h.mu.Lock()
			if h.sessions[client.SessionID] == nil {
				h.sessions[client.SessionID] = make(map[*Client]bool)
			}
			h.sessions[client.SessionID][client] = true
			total := len(h.sessions[client.SessionID])
			h.mu.Unlock()
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")
			log.Printf("✅ [WEBSOCKET] Client CONNECTED")
			log.Printf("   Client ID: %s", client.ID)
			log.Printf("   Session ID: %s", client.SessionID)
			log.Printf("   Clients on session: %d", total)
			log.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━")

		case client := <-h.unregister:
			h.mu.Lock()
			if h.removeLocked(client) {
				log.Printf("🔴 [WEBSOCKET] Client DISCONNECTED: %s (session %s)", client.ID, client.SessionID)
			}
			h.mu.Unlock()

		case sessionID := <-h.closeSession:
			h.mu.Lock()
			for client := range h.sessions[sessionID] {
				h.removeLocked(client)
			}
			h.mu.Unlock()

		case message := <-h.broadcast:
			data, err := json.Marshal(message.Data)
			if err != nil {
				log.Printf("❌ Failed to marshal message: %v", err)
				continue
			}

			h.mu.Lock()
			for client := range h.sessions[message.SessionID] {
				if message.Client != nil && message.Client != client {
					continue
				}
				select {
				case client.send <- data:
				default:
					// Client buffer full, disconnect
					h.removeLocked(client)
					log.Printf("⚠️ Client buffer full, disconnecting: %s", client.ID)
				}
			}
			h.mu.Unlock()
		}
	}
}

func (h *Hub) removeLocked(client *Client) bool {
	clients, ok := h.sessions[client.SessionID]
	if !ok || !clients[client] {
		return false
	}
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.sessions, client.SessionID)
	}
	return true
}

// Register adds a client. It reports false once the hub has stopped.
func (h *Hub) Register(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client, if the hub is still running
func (h *Hub) Unregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

// Publish queues an event for every client of the session. It never blocks:
// when the queue is full the event is dropped, since the next state push supersedes it.
func (h *Hub) Publish(sessionID string, event dashboard.Event) {
	select {
	case h.broadcast <- &Message{SessionID: sessionID, Data: event}:
	default:
		log.Printf("⚠️ Broadcast queue full, dropping %s event for session %s", event.Type, sessionID)
	}
}

// SendTo queues an event for one client only
func (h *Hub) SendTo(client *Client, event interface{}) {
	select {
	case h.broadcast <- &Message{SessionID: client.SessionID, Client: client, Data: event}:
	default:
		log.Printf("⚠️ Broadcast queue full, dropping reply to %s", client.ID)
	}
}

// CloseSession disconnects every client watching the session. It blocks while
// the close queue is full, and returns at once if the hub has stopped.
func (h *Hub) CloseSession(sessionID string) {
	select {
	case h.closeSession <- sessionID:
	case <-h.done:
	}
}

// GetClientCount returns the number of clients watching a session
func (h *Hub) GetClientCount(sessionID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions[sessionID])
}
