// Package governor bounds how often a stream may publish.
//
// Cooldown drops samples that arrive too soon after the last admitted one;
// Pacer throttles the producer so capture never runs faster than the
// configured rate.
package governor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Cooldown admits at most one sample per interval and drops the rest.
type Cooldown struct {
	mu           sync.Mutex
	interval     time.Duration
	limiter      *rate.Limiter
	lastAdmitted time.Time
}

// NewCooldown returns a governor with burst 1 that refills every interval.
// A non-positive interval admits everything.
func NewCooldown(interval time.Duration) *Cooldown {
	limit := rate.Inf
	if interval > 0 {
		limit = rate.Every(interval)
	}
	return &Cooldown{interval: interval, limiter: rate.NewLimiter(limit, 1)}
}

// Admit reports whether a sample observed at now may be published.
func (c *Cooldown) Admit(now time.Time) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	// The bucket rejects instants older than its last reservation, so guard
	// against samples delivered out of order.
	if !c.lastAdmitted.IsZero() && now.Before(c.lastAdmitted) {
		return false
	}
	if !c.limiter.AllowN(now, 1) {
		return false
	}
	c.lastAdmitted = now
	return true
}

// Wait never blocks; the cooldown acts on admission only.
func (c *Cooldown) Wait(ctx context.Context) error {
	return ctx.Err()
}

// LastAdmitted returns the observation time of the last admitted sample.
func (c *Cooldown) LastAdmitted() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastAdmitted
}

func (c *Cooldown) Interval() time.Duration { return c.interval }
