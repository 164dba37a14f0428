package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/AegisWatch/pkg/aegiswatch"
)

func main() {
	flow, err := aegiswatch.Conf("../../config.example.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	flow.Config().Simulate = true
	flow.Config().Camera.FrameRate = 1

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	callback := func(_ context.Context, p *aegiswatch.Payload) error {
		fmt.Printf("%s topic=%s qos=%d retained=%t bytes=%d\n",
			time.Now().Format(time.RFC3339Nano),
			p.Topic,
			p.QoS,
			p.Retained,
			p.Size(),
		)
		return nil
	}

	if err := flow.Run(ctx, aegiswatch.StreamOutCallback("stdout", callback)); err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}
