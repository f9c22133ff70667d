package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Port != 8090 {
		t.Errorf("default port = %d, want 8090", cfg.Server.Port)
	}
	if cfg.Controller.Endpoint != "http://127.0.0.1:5000" {
		t.Errorf("default endpoint = %q", cfg.Controller.Endpoint)
	}
	if cfg.Controller.PollInterval != 3*time.Second {
		t.Errorf("default poll interval = %v, want 3s", cfg.Controller.PollInterval)
	}
	if cfg.Relays.Plugin != "relay_controller" {
		t.Errorf("default relay plugin = %q", cfg.Relays.Plugin)
	}
	if cfg.UI.LogLines != 500 || cfg.UI.CommandHistory != 50 {
		t.Errorf("default UI buffers = %d/%d", cfg.UI.LogLines, cfg.UI.CommandHistory)
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
server:
  port: 9999
controller:
  endpoint: http://printer.local:5000
  poll_interval: 10s
`)
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("port = %d, want 9999", cfg.Server.Port)
	}
	if cfg.Controller.Endpoint != "http://printer.local:5000" {
		t.Errorf("endpoint = %q", cfg.Controller.Endpoint)
	}
	if cfg.Controller.PollInterval != 10*time.Second {
		t.Errorf("poll interval = %v, want 10s", cfg.Controller.PollInterval)
	}
	// Untouched sections keep their defaults
	if cfg.Relays.Plugin != "relay_controller" {
		t.Errorf("relay plugin = %q, want default", cfg.Relays.Plugin)
	}
	if cfg.ConfigPath != path {
		t.Errorf("ConfigPath = %q, want %q", cfg.ConfigPath, path)
	}
}

func TestSaveRoundtrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")

	cfg := Default()
	cfg.Server.Port = 8123
	cfg.Controller.Timeout = 7 * time.Second
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if loaded.Server.Port != 8123 {
		t.Errorf("port = %d, want 8123", loaded.Server.Port)
	}
	if loaded.Controller.Timeout != 7*time.Second {
		t.Errorf("timeout = %v, want 7s", loaded.Controller.Timeout)
	}
}
