package websocket

import (
	"encoding/json"
	"log"
	"time"

	"ecoroute-dashboard/internal/dashboard"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 1024
)

// Client is one WebSocket connection watching a session
type Client struct {
	ID        string
	SessionID string
	session   *dashboard.Session
	conn      *websocket.Conn
	hub       *Hub
	send      chan []byte
}

// IncomingMessage is an operator action sent by the client
type IncomingMessage struct {
	Type      string          `json:"type"`
	Timestamp string          `json:"timestamp"`
	Data      json.RawMessage `json:"data"`
}

// ActionError is pushed back when an operator action is refused
type ActionError struct {
	Action string `json:"action"`
	Error  string `json:"error"`
}

// NewClient creates a new WebSocket client bound to a session
func NewClient(session *dashboard.Session, conn *websocket.Conn, hub *Hub) *Client {
	return &Client{
		ID:        uuid.NewString(),
		SessionID: session.ID,
		session:   session,
		conn:      conn,
		hub:       hub,
		send:      make(chan []byte, 256),
	}
}

// ReadPump reads operator actions until the connection closes
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		// A live socket keeps its session from being swept
		c.session.Touch()
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WebSocket error: %v", err)
			}
			break
		}

		var msg IncomingMessage
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Printf("Invalid message format: %v", err)
			continue
		}
		c.handle(msg)
	}
}

func (c *Client) handle(msg IncomingMessage) {
	var err error
	c.session.Touch()

	switch msg.Type {
	case "ping":
		c.hub.SendTo(c, map[string]interface{}{
			"type":      "pong",
			"timestamp": time.Now().Format(time.RFC3339),
		})
		return

	case "confirm":
		err = c.session.Confirm()

	case "set_controls":
		var update dashboard.ControlsUpdate
		if err = json.Unmarshal(msg.Data, &update); err == nil {
			_, err = c.session.SetControls(update)
		}

	case "trigger":
		err = c.session.Trigger()

	case "refresh_bins":
		err = c.session.RefreshBins()

	default:
		log.Printf("⚠️ Unknown message type from %s: %q", c.ID, msg.Type)
		return
	}

	if err != nil {
		log.Printf("⚠️ [SESSION %s] %s refused: %v", c.SessionID, msg.Type, err)
		c.hub.SendTo(c, dashboard.Event{Type: "error", Data: ActionError{Action: msg.Type, Error: err.Error()}})
	}
}

// WritePump pumps messages from the hub to the WebSocket connection
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// Hub closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			// One event per frame so clients can decode each with a single JSON parse
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
