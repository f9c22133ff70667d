package controller

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestClient(t *testing.T, handler http.Handler) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL, 2*time.Second, "relay_controller")
}

func TestStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"connected": true,
			"firmware_version": "V4.13",
			"print_status": {
				"state": "PRINTING",
				"progress_percent": 42.5,
				"current_layer": 120,
				"total_layers": 300,
				"current_byte": 425,
				"total_bytes": 1000
			},
			"selected_file": "benchy.ctb",
			"z_position": 12.35
		}`))
	})

	c := newTestClient(t, mux)
	st, err := c.Status(context.Background())
	if err != nil {
		t.Fatalf("Status: %v", err)
	}

	if !st.Connected {
		t.Error("expected connected")
	}
	if st.Print.State != StatePrinting {
		t.Errorf("state = %q, want PRINTING", st.Print.State)
	}
	if st.Print.ProgressPercent != 42.5 {
		t.Errorf("progress = %v, want 42.5", st.Print.ProgressPercent)
	}
	if st.SelectedFile != "benchy.ctb" {
		t.Errorf("selected file = %q", st.SelectedFile)
	}
	if st.ZPosition != 12.35 {
		t.Errorf("z = %v, want 12.35", st.ZPosition)
	}
}

func TestCommandSuccess(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/pause", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": true, "message": "Print paused"}`))
	})

	c := newTestClient(t, mux)
	msg, err := c.Pause(context.Background())
	if err != nil {
		t.Fatalf("Pause: %v", err)
	}
	if msg != "Print paused" {
		t.Errorf("message = %q, want %q", msg, "Print paused")
	}
}

func TestCommandFailureIsAPIError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/stop", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success": false, "error": "Failed to stop print"}`))
	})

	c := newTestClient(t, mux)
	_, err := c.Stop(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error type = %T, want *APIError", err)
	}
	// The controller's message passes through verbatim
	if apiErr.Message != "Failed to stop print" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestTransportFailureIsNotAPIError(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	srv.Close() // connection refused from here on

	c := New(srv.URL, time.Second, "relay_controller")
	_, err := c.Connect(context.Background())
	if err == nil {
		t.Fatal("expected transport error")
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		t.Errorf("transport failure classified as APIError: %v", err)
	}
}

func TestMoveZSendsDistance(t *testing.T) {
	var got struct {
		Distance float64 `json:"distance"`
	}
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/move_z", func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.Write([]byte(`{"success": true, "message": "Moved Z by -0.5mm"}`))
	})

	c := newTestClient(t, mux)
	if _, err := c.MoveZ(context.Background(), -0.5); err != nil {
		t.Fatalf("MoveZ: %v", err)
	}
	if got.Distance != -0.5 {
		t.Errorf("distance = %v, want -0.5", got.Distance)
	}
}

func TestToggleRelayTwiceRestoresState(t *testing.T) {
	states := map[string]bool{"relay_1": false}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/plugins/relay_controller/toggle_relay/{id}", func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		states[id] = !states[id]
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"success":  true,
			"relay_id": id,
			"state":    states[id],
			"message":  "toggled",
		})
	})

	c := newTestClient(t, mux)

	original := states["relay_1"]
	first, err := c.ToggleRelay(context.Background(), "relay_1")
	if err != nil {
		t.Fatalf("first toggle: %v", err)
	}
	if first.State == original {
		t.Error("first toggle did not change state")
	}

	second, err := c.ToggleRelay(context.Background(), "relay_1")
	if err != nil {
		t.Fatalf("second toggle: %v", err)
	}
	if second.State != original {
		t.Errorf("after two toggles state = %v, want original %v", second.State, original)
	}
}

func TestToggleRelayFailure500WithBody(t *testing.T) {
	// The relay routes answer 500 with a success:false JSON body;
	// the message must still surface as an APIError.
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/plugins/relay_controller/toggle_relay/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{"success": false, "relay_id": "relay_9", "state": false, "message": "Failed to toggle relay_9"}`))
	})

	c := newTestClient(t, mux)
	_, err := c.ToggleRelay(context.Background(), "relay_9")

	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("error = %v, want *APIError", err)
	}
	if apiErr.Message != "Failed to toggle relay_9" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestSetRelayPath(t *testing.T) {
	var gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/plugins/relay_controller/set_relay/{id}/{state}", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		json.NewEncoder(w).Encode(map[string]any{
			"success": true, "relay_id": r.PathValue("id"),
			"state": r.PathValue("state") == "on", "message": "set",
		})
	})

	c := newTestClient(t, mux)
	res, err := c.SetRelay(context.Background(), "relay_2", true)
	if err != nil {
		t.Fatalf("SetRelay: %v", err)
	}
	if gotPath != "/api/plugins/relay_controller/set_relay/relay_2/on" {
		t.Errorf("path = %q", gotPath)
	}
	if !res.State {
		t.Error("expected state true")
	}
}

func TestRelayStates(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/plugins/relay_controller/get_status", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"relay_1": {"name": "UV Light", "state": true, "actual_state": true, "gpio": 22},
			"relay_2": {"name": "Exhaust Fan", "state": false, "actual_state": false, "gpio": 23}
		}`))
	})

	c := newTestClient(t, mux)
	states, err := c.RelayStates(context.Background())
	if err != nil {
		t.Fatalf("RelayStates: %v", err)
	}
	if len(states) != 2 {
		t.Fatalf("got %d relays, want 2", len(states))
	}
	if !states["relay_1"].State || states["relay_1"].Name != "UV Light" {
		t.Errorf("relay_1 = %+v", states["relay_1"])
	}
	if states["relay_2"].State {
		t.Error("relay_2 should be off")
	}
}

func TestPrinterStateActive(t *testing.T) {
	tests := []struct {
		state  PrinterState
		active bool
	}{
		{StateIdle, false},
		{StatePrinting, true},
		{StatePaused, true},
		{StateFinished, false},
		{StateError, false},
		{StateUnknown, false},
	}
	for _, tt := range tests {
		if got := tt.state.Active(); got != tt.active {
			t.Errorf("%s.Active() = %v, want %v", tt.state, got, tt.active)
		}
	}
}
