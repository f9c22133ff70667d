package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/resinportal/gateway/internal/api"
	"github.com/resinportal/gateway/internal/config"
	"github.com/resinportal/gateway/internal/controller"
	"github.com/resinportal/gateway/internal/poller"
)

func main() {
	fmt.Println("Resin Portal Dashboard Gateway")
	fmt.Println("==============================")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Printf("Warning: Could not load config file: %v", err)
		log.Println("Using default configuration")
		cfg = config.Default()
		cfg.ConfigPath = "config.yaml"
	}

	// Capture the standard log into the dashboard's activity log
	logs := api.NewActivityLog(cfg.UI.LogLines)
	api.InstallLogCapture(logs)

	fmt.Printf("Server Port: %d\n", cfg.Server.Port)
	fmt.Printf("Controller Endpoint: %s\n", cfg.Controller.Endpoint)

	client := controller.New(cfg.Controller.Endpoint, cfg.Controller.Timeout, cfg.Relays.Plugin)

	p := poller.New(client, cfg.Controller.PollInterval)
	p.Start()

	server := api.NewServer(cfg, client, p, logs)
	logs.Append("info", "Gateway starting...")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\nDashboard on http://localhost:%d\n", cfg.Server.Port)
	fmt.Println("Press Ctrl+C to stop")

	select {
	case <-ctx.Done():
		log.Println("Shutting down...")
	case err := <-errCh:
		if err != nil {
			log.Fatalf("Server error: %v", err)
		}
		return
	}

	p.Stop()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
