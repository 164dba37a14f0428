package session

import (
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Backoff configures the delay between connect attempts.
type Backoff struct {
	Initial    time.Duration
	Max        time.Duration
	Multiplier float64
	Jitter     float64
}

func DefaultBackoff() Backoff {
	return Backoff{
		Initial:    time.Second,
		Max:        30 * time.Second,
		Multiplier: 2,
		Jitter:     0.2,
	}
}

func (b Backoff) withDefaults() Backoff {
	d := DefaultBackoff()
	if b.Initial <= 0 {
		b.Initial = d.Initial
	}
	if b.Max <= 0 {
		b.Max = d.Max
	}
	if b.Max < b.Initial {
		b.Max = b.Initial
	}
	if b.Multiplier < 1 {
		b.Multiplier = d.Multiplier
	}
	if b.Jitter < 0 || b.Jitter >= 1 {
		b.Jitter = d.Jitter
	}
	return b
}

// newPolicy returns an unbounded exponential policy whose delays never
// exceed Max, jitter included.
func (b Backoff) newPolicy() backoff.BackOff {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = b.Initial
	exp.MaxInterval = b.Max
	exp.Multiplier = b.Multiplier
	exp.RandomizationFactor = b.Jitter
	exp.MaxElapsedTime = 0
	exp.Reset()
	return &capped{BackOff: exp, max: b.Max}
}

type capped struct {
	backoff.BackOff
	max time.Duration
}

func (c *capped) NextBackOff() time.Duration {
	d := c.BackOff.NextBackOff()
	if d != backoff.Stop && d > c.max {
		return c.max
	}
	return d
}
