package main

import (
	"context"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/ghalamif/AegisWatch"
)

func main() {
	flow, err := aegiswatch.Conf("../../config.example.yaml")
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	flow.Config().Simulate = true

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	tr, payloads, closePayloads := aegiswatch.NewChannelTransport("fanout", 32)
	defer closePayloads()

	go fanoutWorker("alerts", payloads)

	err = flow.Run(ctx, aegiswatch.StreamOutTransport(func(string, *aegiswatch.Payload) aegiswatch.Transport {
		return tr
	}))
	if err != nil && err != context.Canceled {
		log.Fatalf("runtime error: %v", err)
	}
}

func fanoutWorker(name string, payloads <-chan *aegiswatch.Payload) {
	for p := range payloads {
		fmt.Printf("[%s] %s %d bytes at %s\n", name, p.Topic, p.Size(), time.Now().Format(time.RFC3339))
	}
}
