package websocket

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"ecoroute-dashboard/internal/dashboard"
	"ecoroute-dashboard/internal/models"
	"ecoroute-dashboard/internal/scheduler"

	"github.com/gorilla/websocket"
)

type stubFleet struct{}

func (stubFleet) FetchBins(ctx context.Context) ([]byte, error) {
	return []byte(`[{"bin_id":"B1","latitude":31.25,"longitude":75.7,"fill_level":85,"type":"Hostel"}]`), nil
}

func (stubFleet) Optimize(ctx context.Context, req models.OptimizeRequest) (models.RouteSet, error) {
	return models.RouteSet{{{Lat: 31.26, Lon: 75.70}, {Lat: 31.25, Lon: 75.70}}}, nil
}

type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

func setup(t *testing.T) (*Hub, *dashboard.Registry, *scheduler.Manual, *httptest.Server) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	hub := NewHub()
	go hub.Run(ctx)

	clock := scheduler.NewManual()
	registry := dashboard.NewRegistry(stubFleet{}, dashboard.Options{
		Scheduler: clock,
		Publish:   hub.Publish,
	})
	srv := httptest.NewServer(HandleWebSocket(hub, registry))

	t.Cleanup(func() {
		srv.Close()
		registry.CloseAll()
		cancel()
	})
	return hub, registry, clock, srv
}

func dial(t *testing.T, srv *httptest.Server, sessionID string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws?session=" + sessionID
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial failed: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

// waitFor reads events until one of the wanted type satisfies match
func waitFor(t *testing.T, conn *websocket.Conn, eventType string, match func(json.RawMessage) bool) json.RawMessage {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		var ev wireEvent
		if err := conn.ReadJSON(&ev); err != nil {
			t.Fatalf("waiting for %s: %v", eventType, err)
		}
		if ev.Type == eventType && (match == nil || match(ev.Data)) {
			return ev.Data
		}
	}
}

func TestUnknownSessionIsRejected(t *testing.T) {
	_, _, _, srv := setup(t)

	resp, err := http.Get(srv.URL + "/ws?session=missing")
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestClientReceivesStateAndDrivesSession(t *testing.T) {
	_, registry, clock, srv := setup(t)
	session := registry.Create()
	conn := dial(t, srv, session.ID)

	waitFor(t, conn, dashboard.EventState, func(raw json.RawMessage) bool {
		return strings.Contains(string(raw), `"view":"welcome"`)
	})

	conn.WriteJSON(map[string]string{"type": "ping"})
	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	var pong map[string]interface{}
	if err := conn.ReadJSON(&pong); err != nil || pong["type"] != "pong" {
		t.Fatalf("expected pong, got %v %v", pong, err)
	}

	conn.WriteJSON(map[string]string{"type": "confirm"})
	waitFor(t, conn, dashboard.EventState, func(raw json.RawMessage) bool {
		return strings.Contains(string(raw), `"view":"intro"`)
	})

	clock.Advance(7 * time.Second)
	session.Wait()
	raw := waitFor(t, conn, dashboard.EventScene, func(raw json.RawMessage) bool {
		return strings.Contains(string(raw), `"bin_id":"B1"`)
	})
	if !strings.Contains(string(raw), `"tier":"critical"`) {
		t.Fatalf("scene missing classified bin: %s", raw)
	}

	conn.WriteJSON(map[string]interface{}{"type": "set_controls", "data": map[string]int{"truck_count": 9}})
	waitFor(t, conn, "error", func(raw json.RawMessage) bool {
		return strings.Contains(string(raw), `"action":"set_controls"`)
	})
}

func TestClientsOnlySeeTheirSession(t *testing.T) {
	hub, registry, _, srv := setup(t)
	a := registry.Create()
	b := registry.Create()
	connA := dial(t, srv, a.ID)
	dial(t, srv, b.ID)

	waitFor(t, connA, dashboard.EventState, nil)
	deadline := time.Now().Add(2 * time.Second)
	for hub.GetClientCount(b.ID) == 0 && time.Now().Before(deadline) {
		time.Sleep(10 * time.Millisecond)
	}

	if err := b.Confirm(); err != nil {
		t.Fatalf("confirm failed: %v", err)
	}
	hub.Publish(a.ID, dashboard.Event{Type: "marker", Data: "a-only"})

	raw := waitFor(t, connA, "marker", nil)
	if string(raw) != `"a-only"` {
		t.Fatalf("unexpected marker payload %s", raw)
	}
	// Session B's intro state must not have reached A before A's own marker
	connA.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	var ev wireEvent
	if err := connA.ReadJSON(&ev); err == nil && strings.Contains(string(ev.Data), b.ID) {
		t.Fatalf("client of A received B's event: %s", ev.Data)
	}
}

func TestCloseSessionDisconnectsClients(t *testing.T) {
	hub, registry, _, srv := setup(t)
	s := registry.Create()
	conn := dial(t, srv, s.ID)
	waitFor(t, conn, dashboard.EventState, nil)

	registry.Close(s.ID)
	hub.CloseSession(s.ID)

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) &&
				!strings.Contains(err.Error(), "close") && !strings.Contains(err.Error(), "EOF") {
				t.Fatalf("expected the server to close the socket, got %v", err)
			}
			return
		}
	}
}

func TestCloseSessionIsNotDroppedUnderLoad(t *testing.T) {
	hub, registry, _, srv := setup(t)
	s := registry.Create()
	conn := dial(t, srv, s.ID)
	waitFor(t, conn, dashboard.EventState, nil)

	// More close requests than the queue holds, all ahead of the one that matters
	for i := 0; i < 64; i++ {
		hub.CloseSession("gone-" + strings.Repeat("x", i%3))
	}
	registry.Close(s.ID)
	hub.CloseSession(s.ID)

	conn.SetReadDeadline(time.Now().Add(3 * time.Second))
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			if ne, ok := err.(interface{ Timeout() bool }); ok && ne.Timeout() {
				t.Fatalf("socket of a closed session stayed open")
			}
			return
		}
	}
}

func TestCloseSessionAfterHubStopped(t *testing.T) {
	hub := NewHub()
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(stopped)
	}()
	cancel()
	<-stopped

	returned := make(chan struct{})
	go func() {
		for i := 0; i < 64; i++ {
			hub.CloseSession("any")
		}
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(2 * time.Second):
		t.Fatalf("CloseSession blocked on a stopped hub")
	}
}
