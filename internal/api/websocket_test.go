package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/resinportal/gateway/internal/controller"
	"github.com/resinportal/gateway/internal/poller"
)

func dialHub(t *testing.T, h *Hub) *websocket.Conn {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("GET /ws", h.ServeWS)
	ws := httptest.NewServer(mux)
	t.Cleanup(ws.Close)

	url := "ws" + strings.TrimPrefix(ws.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	// Wait for the hub to register the client
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		n := len(h.clients)
		h.mu.Unlock()
		if n > 0 {
			return conn
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("client never registered")
	return nil
}

func TestHubBroadcastsSnapshots(t *testing.T) {
	h := NewHub()
	t.Cleanup(h.Stop)

	snapshots := make(chan poller.Snapshot, 1)
	h.Run(snapshots)

	conn := dialHub(t, h)

	snapshots <- poller.Snapshot{
		Reachable: true,
		Status: controller.Status{
			Connected: true,
			Print:     controller.PrintProgress{State: controller.StatePrinting, ProgressPercent: 33},
		},
	}

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}

	var frame statusFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if frame.Type != "status" {
		t.Errorf("type = %q", frame.Type)
	}
	if frame.Snapshot.Status.Print.State != controller.StatePrinting {
		t.Errorf("state = %q", frame.Snapshot.Status.Print.State)
	}
}

func TestHubDropsClosedClient(t *testing.T) {
	h := NewHub()
	t.Cleanup(h.Stop)

	snapshots := make(chan poller.Snapshot, 4)
	h.Run(snapshots)

	conn := dialHub(t, h)
	conn.Close()

	// Broadcasts after the close must not wedge the hub
	for i := 0; i < 20; i++ {
		snapshots <- poller.Snapshot{Reachable: true}
		time.Sleep(5 * time.Millisecond)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		h.mu.Lock()
		n := len(h.clients)
		h.mu.Unlock()
		if n == 0 {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Error("closed client never dropped")
}
