package controller

import (
	"context"
	"net/http"
	"testing"
)

func TestEditBatchSetAndOrder(t *testing.T) {
	b := NewEditBatch()
	b.Set("interface", "theme", "dark")
	b.Set("printer", "baudrate", 115200)
	b.Set("interface", "theme", "light") // replaces in place

	edits := b.Edits()
	if len(edits) != 2 {
		t.Fatalf("len = %d, want 2", len(edits))
	}
	if edits[0].Section != "interface" || edits[0].Value != "light" {
		t.Errorf("edits[0] = %+v, want interface.theme=light first", edits[0])
	}
	if edits[1].Key != "baudrate" {
		t.Errorf("edits[1] = %+v", edits[1])
	}
}

func TestEditBatchDiscard(t *testing.T) {
	b := NewEditBatch()
	b.Set("interface", "theme", "dark")
	b.Set("usb", "auto_start", false)
	if b.Len() != 2 {
		t.Fatalf("len = %d, want 2", b.Len())
	}

	b.Discard()
	if b.Len() != 0 {
		t.Errorf("len after discard = %d, want 0", b.Len())
	}

	// A discarded batch is reusable
	b.Set("interface", "theme", "light")
	if b.Len() != 1 {
		t.Errorf("len after reuse = %d, want 1", b.Len())
	}
}

func TestEditBatchFlushSuccessEmpties(t *testing.T) {
	var received []ConfigEdit
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/config/app/bulk", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Configs []ConfigEdit `json:"configs"`
		}
		json.NewDecoder(r.Body).Decode(&req)
		received = req.Configs

		results := make([]BulkResult, 0, len(req.Configs))
		for _, e := range req.Configs {
			results = append(results, BulkResult{Section: e.Section, Key: e.Key, Success: true})
		}
		json.NewEncoder(w).Encode(map[string]any{"success": true, "results": results})
	})

	c := newTestClient(t, mux)
	b := NewEditBatch()
	b.Set("interface", "theme", "dark")
	b.Set("interface", "update_interval", 5000)

	if err := b.Flush(context.Background(), c); err != nil {
		t.Fatalf("Flush: %v", err)
	}
	if len(received) != 2 {
		t.Errorf("controller received %d edits, want 2", len(received))
	}
	if b.Len() != 0 {
		t.Errorf("batch len after flush = %d, want 0", b.Len())
	}
}

func TestEditBatchFlushPartialFailureKeepsBatch(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/config/app/bulk", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"results": []BulkResult{
				{Section: "interface", Key: "theme", Success: true},
				{Section: "printer", Key: "baudrate", Success: false},
			},
		})
	})

	c := newTestClient(t, mux)
	b := NewEditBatch()
	b.Set("interface", "theme", "dark")
	b.Set("printer", "baudrate", 9600)

	err := b.Flush(context.Background(), c)
	if err == nil {
		t.Fatal("expected error for rejected edit")
	}
	if b.Len() != 2 {
		t.Errorf("batch len after failed flush = %d, want 2 (kept for retry)", b.Len())
	}
}

func TestEditBatchFlushEmptyIsNoop(t *testing.T) {
	// No server at all: an empty flush must not touch the network
	c := New("http://127.0.0.1:0", 0, "relay_controller")
	b := NewEditBatch()
	if err := b.Flush(context.Background(), c); err != nil {
		t.Fatalf("empty flush: %v", err)
	}
}

func TestAppConfig(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config/app", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("section") != "interface" {
			t.Errorf("section = %q, want interface", r.URL.Query().Get("section"))
		}
		w.Write([]byte(`{"success": true, "config": {"theme": "dark", "update_interval": 3000}}`))
	})

	c := newTestClient(t, mux)
	cfg, err := c.AppConfig(context.Background(), "interface")
	if err != nil {
		t.Fatalf("AppConfig: %v", err)
	}
	if cfg["theme"] != "dark" {
		t.Errorf("theme = %v", cfg["theme"])
	}
}

func TestPlugins(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/config/plugins/list", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success": true, "plugins": [
			{"name": "relay_controller", "version": "1.2.0", "enabled": true, "loaded": true},
			{"name": "hello_world", "version": "0.1.0", "enabled": false, "loaded": false}
		]}`))
	})

	c := newTestClient(t, mux)
	plugins, err := c.Plugins(context.Background())
	if err != nil {
		t.Fatalf("Plugins: %v", err)
	}
	if len(plugins) != 2 {
		t.Fatalf("got %d plugins, want 2", len(plugins))
	}
	if plugins[0].Name != "relay_controller" || !plugins[0].Enabled {
		t.Errorf("plugins[0] = %+v", plugins[0])
	}
}
