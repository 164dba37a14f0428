package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/ghalamif/AegisWatch"
)

func main() {
	// Synthetic sensor and camera, payloads logged instead of published.
	cfg, err := aegiswatch.LoadConfig("../../config.example.yaml", map[string]any{
		"simulate": true,
		"dry_run":  true,
	})
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	agent, err := aegiswatch.NewAgent(cfg)
	if err != nil {
		log.Fatalf("build agent: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := agent.Run(ctx); err != nil && err != context.Canceled {
		log.Fatalf("agent exited: %v", err)
	}
}
