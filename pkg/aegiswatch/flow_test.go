package aegiswatch

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/AegisWatch/internal/adapters/sim"
)

func TestConfFromConfigAndStreamBuilder(t *testing.T) {
	cfg := testConfig(t, nil)

	flow, err := ConfFromConfig(cfg)
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}
	if flow.Config() != cfg {
		t.Fatalf("expected Config to be returned verbatim")
	}

	agent, err := flow.
		StreamIN(
			StreamInAlerts(sim.NewDigital("GPIO21", 0)),
			StreamInHostProbe(staticProbe{}),
		).
		Options(quietLogger()).
		StreamOUT(StreamOutCallback("cb", func(context.Context, *Payload) error { return nil }))
	if err != nil {
		t.Fatalf("StreamOUT returned error: %v", err)
	}
	if got := agent.Streams(); len(got) != 1 || got[0] != StreamAlerts {
		t.Fatalf("streams = %v", got)
	}
}

func TestFlowRunDeliversToCallback(t *testing.T) {
	cfg := testConfig(t, nil)
	src := sim.NewDigital("GPIO21", 0)

	var (
		mu     sync.Mutex
		topics []string
	)
	got := make(chan struct{}, 1)
	handler := func(_ context.Context, p *Payload) error {
		mu.Lock()
		topics = append(topics, p.Topic)
		mu.Unlock()
		select {
		case got <- struct{}{}:
		default:
		}
		return nil
	}

	flow, err := ConfFromConfig(cfg, WithFlowOptions(quietLogger()))
	if err != nil {
		t.Fatalf("ConfFromConfig returned error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- flow.StreamIN(StreamInAlerts(src)).Run(ctx, StreamOutCallback("cb", handler))
	}()

	src.Trigger()
	select {
	case <-got:
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for callback")
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run returned unexpected error: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(topics) != 1 || topics[0] != "alerts/critical" {
		t.Fatalf("topics = %v", topics)
	}
}

func TestConfFromConfigNil(t *testing.T) {
	if _, err := ConfFromConfig(nil); err == nil {
		t.Fatalf("expected error for nil config")
	}
}
