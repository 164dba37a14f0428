// Package sim provides synthetic sources so the agent runs without a
// sensor or camera attached.
package sim

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

// Digital emits an asserted edge every Period and whenever Trigger is
// called. A zero Period means manual triggers only.
type Digital struct {
	pin    string
	period time.Duration
	now    func() time.Time

	triggers chan time.Time

	mu     sync.Mutex
	open   bool
	next   time.Time
	closed bool
}

func NewDigital(pin string, period time.Duration) *Digital {
	return &Digital{
		pin:      pin,
		period:   period,
		now:      time.Now,
		triggers: make(chan time.Time, 16),
	}
}

func (d *Digital) Name() string { return "sim-gpio:" + d.pin }

func (d *Digital) Open(ctx context.Context) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return fmt.Errorf("%w: %s closed", domain.ErrHardwareFault, d.Name())
	}
	d.open = true
	if d.period > 0 {
		d.next = d.now().Add(d.period)
	}
	return nil
}

// Trigger queues a rising edge. It never blocks; excess triggers are lost.
func (d *Digital) Trigger() {
	select {
	case d.triggers <- d.now():
	default:
	}
}

func (d *Digital) Poll(ctx context.Context, timeout time.Duration) (*domain.Sample, error) {
	d.mu.Lock()
	open, next := d.open, d.next
	d.mu.Unlock()
	if !open {
		return nil, fmt.Errorf("%w: %s not open", domain.ErrHardwareFault, d.Name())
	}

	wait := timeout
	periodic := !next.IsZero()
	if periodic {
		if until := next.Sub(d.now()); until < wait {
			wait = max(until, 0)
		}
	}
	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return nil, nil
	case at := <-d.triggers:
		return d.event(at), nil
	case <-timer.C:
		if !periodic {
			return nil, nil
		}
		now := d.now()
		if now.Before(next) {
			return nil, nil
		}
		d.mu.Lock()
		d.next = now.Add(d.period)
		d.mu.Unlock()
		return d.event(now), nil
	}
}

func (d *Digital) event(at time.Time) *domain.Sample {
	return domain.NewDigitalSample(domain.DigitalEvent{Level: true, ObservedAt: at, Pin: d.pin})
}

func (d *Digital) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.open = false
	d.closed = true
	return nil
}
