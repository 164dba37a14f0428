package aegiswatch

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/ghalamif/AegisWatch/internal/adapters/sim"
)

func testConfig(t *testing.T, overrides map[string]any) *Config {
	t.Helper()
	base := map[string]any{
		"dry_run":            true,
		"device.id":          "pi-test",
		"camera.enabled":     false,
		"metrics.addr":       "",
		"heartbeat.interval": 0,
		"log.level":          "error",
	}
	for k, v := range overrides {
		base[k] = v
	}
	cfg, err := LoadConfig("", base)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	return cfg
}

func quietLogger() AgentOption {
	return WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

type staticProbe struct{}

func (staticProbe) Collect(context.Context) (HostStats, error) {
	return HostStats{CPUPercent: 12.5, MemUsedMB: 100, MemTotalMB: 1000}, nil
}

type brokenSource struct{}

func (brokenSource) Name() string { return "broken" }
func (brokenSource) Open(context.Context) error {
	return errors.New("device busy")
}
func (brokenSource) Poll(context.Context, time.Duration) (*Sample, error) { return nil, nil }
func (brokenSource) Close() error                                         { return nil }

func receive(t *testing.T, ch <-chan *Payload, topic string) *Payload {
	t.Helper()
	deadline := time.After(3 * time.Second)
	for {
		select {
		case p := <-ch:
			if p.Topic == topic {
				return p
			}
		case <-deadline:
			t.Fatalf("no payload on %s", topic)
			return nil
		}
	}
}

func TestAgentPublishesAlertAndHeartbeat(t *testing.T) {
	cfg := testConfig(t, map[string]any{"heartbeat.interval": "1h"})
	src := sim.NewDigital("GPIO21", 0)
	tr, ch, closeCh := NewChannelTransport("test", 32)
	defer closeCh()

	agent, err := NewAgent(cfg,
		WithAlertSource(src),
		WithTransport(func(string, *Payload) Transport { return tr }),
		WithHostProbe(staticProbe{}),
		quietLogger(),
	)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	if got := agent.Streams(); len(got) != 1 || got[0] != StreamAlerts {
		t.Fatalf("streams = %v", got)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	status := receive(t, ch, "devices/pi-test/status")
	if !status.Retained {
		t.Fatalf("status should be retained")
	}
	var rec map[string]any
	if err := json.Unmarshal(status.Body, &rec); err != nil {
		t.Fatalf("status body: %v", err)
	}
	if rec["status"] != "online" || rec["device"] != "pi-test" {
		t.Fatalf("unexpected status %v", rec)
	}

	src.Trigger()
	alert := receive(t, ch, "alerts/critical")
	var got map[string]string
	if err := json.Unmarshal(alert.Body, &got); err != nil {
		t.Fatalf("alert body: %v", err)
	}
	if got["type"] != "critical" || got["source"] != "raspberry-pi" {
		t.Fatalf("unexpected alert %v", got)
	}
	if alert.QoS != 1 {
		t.Fatalf("alert qos = %d", alert.QoS)
	}

	cancel()
	offline := receive(t, ch, "devices/pi-test/status")
	if err := json.Unmarshal(offline.Body, &rec); err != nil {
		t.Fatalf("offline body: %v", err)
	}
	if rec["status"] != "offline" {
		t.Fatalf("expected offline status, got %v", rec["status"])
	}
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestAgentSharedSessionCarriesBothStreams(t *testing.T) {
	cfg := testConfig(t, map[string]any{
		"simulate":          true,
		"session.shared":    true,
		"camera.enabled":    true,
		"camera.width":      32,
		"camera.height":     24,
		"camera.frame_rate": 20,
	})
	src := sim.NewDigital("GPIO21", 0)
	tr, ch, closeCh := NewChannelTransport("test", 64)
	defer closeCh()

	var (
		mu    sync.Mutex
		names []string
	)
	agent, err := NewAgent(cfg,
		WithAlertSource(src),
		WithTransport(func(name string, _ *Payload) Transport {
			mu.Lock()
			names = append(names, name)
			mu.Unlock()
			return tr
		}),
		quietLogger(),
	)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	mu.Lock()
	if len(names) != 1 || names[0] != "shared" {
		t.Fatalf("sessions built = %v", names)
	}
	mu.Unlock()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	frame := receive(t, ch, "camera/stream")
	var rec struct {
		Timestamp string `json:"timestamp"`
		Image     string `json:"image"`
	}
	if err := json.Unmarshal(frame.Body, &rec); err != nil {
		t.Fatalf("frame body: %v", err)
	}
	if rec.Image == "" || rec.Timestamp == "" {
		t.Fatalf("frame record incomplete")
	}

	src.Trigger()
	receive(t, ch, "alerts/critical")

	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestAgentRunFailsWhenEveryStreamFails(t *testing.T) {
	cfg := testConfig(t, nil)
	agent, err := NewAgent(cfg,
		WithAlertSource(brokenSource{}),
		WithTransport(func(string, *Payload) Transport {
			return NewCallbackTransport("noop", func(context.Context, *Payload) error { return nil })
		}),
		quietLogger(),
	)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = agent.Run(ctx)
	if !errors.Is(err, ErrHardwareFault) {
		t.Fatalf("expected hardware fault, got %v", err)
	}
	if ctx.Err() != nil {
		t.Fatalf("run should return before the deadline")
	}
}

func TestAgentKeepsFramesFlowingWhenAlertSourceFails(t *testing.T) {
	cfg := testConfig(t, map[string]any{
		"simulate":          true,
		"camera.enabled":    true,
		"camera.width":      32,
		"camera.height":     24,
		"camera.frame_rate": 20,
	})
	tr, ch, closeCh := NewChannelTransport("test", 64)
	defer closeCh()

	agent, err := NewAgent(cfg,
		WithAlertSource(brokenSource{}),
		WithTransport(func(string, *Payload) Transport { return tr }),
		quietLogger(),
	)
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() { done <- agent.Run(ctx) }()

	// Frames must keep arriving well after the alert stream has given up.
	for i := 0; i < 10; i++ {
		receive(t, ch, "camera/stream")
	}
	select {
	case err := <-done:
		t.Fatalf("run returned while the frame stream was healthy: %v", err)
	default:
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop after cancel")
	}
}

func TestNewAgentRequiresCameraSource(t *testing.T) {
	cfg := testConfig(t, map[string]any{"camera.enabled": true})
	_, err := NewAgent(cfg, quietLogger())
	if !errors.Is(err, ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestNewAgentNilConfig(t *testing.T) {
	if _, err := NewAgent(nil); !errors.Is(err, ErrConfig) {
		t.Fatalf("expected config error, got %v", err)
	}
}

func TestAgentShutdownIsIdempotent(t *testing.T) {
	cfg := testConfig(t, map[string]any{"simulate": true})
	agent, err := NewAgent(cfg, quietLogger())
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	ctx := context.Background()
	if err := agent.Shutdown(ctx); err != nil {
		t.Fatalf("first shutdown: %v", err)
	}
	if err := agent.Shutdown(ctx); err != nil {
		t.Fatalf("second shutdown: %v", err)
	}
}

func TestAgentRunAfterShutdownReturnsImmediately(t *testing.T) {
	cfg := testConfig(t, map[string]any{"simulate": true, "metrics.addr": "127.0.0.1:0"})
	agent, err := NewAgent(cfg, quietLogger())
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}
	if err := agent.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- agent.Run(context.Background()) }()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run after shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("run kept going after shutdown")
	}
}

func TestAgentShutdownFromAnotherGoroutine(t *testing.T) {
	cfg := testConfig(t, map[string]any{"simulate": true, "metrics.addr": "127.0.0.1:0"})
	agent, err := NewAgent(cfg, quietLogger())
	if err != nil {
		t.Fatalf("new agent: %v", err)
	}

	done := make(chan error, 1)
	go func() { done <- agent.Run(context.Background()) }()
	time.Sleep(50 * time.Millisecond)

	if err := agent.Shutdown(context.Background()); err != nil {
		t.Fatalf("shutdown: %v", err)
	}
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatalf("run did not stop after shutdown")
	}
}
