// Package gpio reads a binary sensor through periph.io and reports rising
// transitions to the asserted level as digital samples.
package gpio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/host/v3"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

const (
	DefaultPollInterval = 100 * time.Millisecond
	// edgeSlice bounds a single WaitForEdge call so Poll stays responsive to
	// cancellation.
	edgeSlice = 250 * time.Millisecond
)

type Config struct {
	Pin          string
	Pull         string // "down", "up", "float"
	ActiveLow    bool
	Debounce     time.Duration
	PollInterval time.Duration
	// DisableEdges forces level polling even when the driver supports edge
	// interrupts.
	DisableEdges bool
}

// PinName turns "21" into "GPIO21" and leaves other names alone.
func PinName(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	if s[0] >= '0' && s[0] <= '9' {
		return "GPIO" + s
	}
	return strings.ToUpper(s)
}

func parsePull(s string) (gpio.Pull, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "down", "pulldown":
		return gpio.PullDown, nil
	case "up", "pullup":
		return gpio.PullUp, nil
	case "float", "none":
		return gpio.Float, nil
	default:
		return gpio.PullNoChange, fmt.Errorf("unknown pull %q", s)
	}
}

type Source struct {
	cfg    Config
	name   string
	init   func() error
	lookup func(string) gpio.PinIO
	now    func() time.Time

	mu         sync.Mutex
	pin        gpio.PinIO
	edges      bool
	asserted   bool
	lastChange time.Time
	closed     bool
}

func NewSource(cfg Config) *Source {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	return &Source{
		cfg:  cfg,
		name: PinName(cfg.Pin),
		init: func() error {
			_, err := host.Init()
			return err
		},
		lookup: gpioreg.ByName,
		now:    time.Now,
	}
}

func (s *Source) Name() string { return "gpio:" + s.name }

func (s *Source) Open(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pin != nil {
		return nil
	}
	pull, err := parsePull(s.cfg.Pull)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrHardwareFault, err)
	}
	if err := s.init(); err != nil {
		return fmt.Errorf("%w: periph init: %v", domain.ErrHardwareFault, err)
	}
	pin := s.lookup(s.name)
	if pin == nil {
		return fmt.Errorf("%w: pin %s not found", domain.ErrHardwareFault, s.name)
	}

	edges := !s.cfg.DisableEdges
	if edges {
		if err := pin.In(pull, gpio.BothEdges); err != nil {
			edges = false
		}
	}
	if !edges {
		if err := pin.In(pull, gpio.NoEdge); err != nil {
			return fmt.Errorf("%w: configure %s: %v", domain.ErrHardwareFault, s.name, err)
		}
	}

	s.pin = pin
	s.edges = edges
	s.asserted = s.isAsserted(pin.Read())
	s.lastChange = s.now()
	s.closed = false
	return nil
}

// EdgeDriven reports whether the pin delivers edge interrupts.
func (s *Source) EdgeDriven() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.edges
}

func (s *Source) isAsserted(l gpio.Level) bool {
	return bool(l) != s.cfg.ActiveLow
}

// Poll waits up to timeout for the input to become asserted. It returns a
// nil sample when nothing changed.
func (s *Source) Poll(ctx context.Context, timeout time.Duration) (*domain.Sample, error) {
	s.mu.Lock()
	pin, edges := s.pin, s.edges
	s.mu.Unlock()
	if pin == nil {
		return nil, fmt.Errorf("%w: %s not open", domain.ErrHardwareFault, s.name)
	}

	deadline := s.now().Add(timeout)
	for {
		if ev, ok := s.sample(pin); ok {
			return domain.NewDigitalSample(ev), nil
		}
		remaining := deadline.Sub(s.now())
		if remaining <= 0 || ctx.Err() != nil {
			return nil, nil
		}
		if edges {
			pin.WaitForEdge(min(remaining, edgeSlice))
			continue
		}
		timer := time.NewTimer(min(remaining, s.cfg.PollInterval))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, nil
		case <-timer.C:
		}
	}
}

func (s *Source) sample(pin gpio.PinIO) (domain.DigitalEvent, bool) {
	asserted := s.isAsserted(pin.Read())

	s.mu.Lock()
	defer s.mu.Unlock()
	if asserted == s.asserted {
		return domain.DigitalEvent{}, false
	}
	now := s.now()
	if s.cfg.Debounce > 0 && now.Sub(s.lastChange) < s.cfg.Debounce {
		return domain.DigitalEvent{}, false
	}
	s.asserted = asserted
	s.lastChange = now
	if !asserted {
		return domain.DigitalEvent{}, false
	}
	return domain.DigitalEvent{Level: true, ObservedAt: now, Pin: s.name}, true
}

func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed || s.pin == nil {
		s.closed = true
		return nil
	}
	s.closed = true
	err := s.pin.Halt()
	s.pin = nil
	if err != nil {
		return fmt.Errorf("halt %s: %w", s.name, err)
	}
	return nil
}
