package ports

import (
	"context"
	"time"
)

// Governor decides whether a sample may proceed (Admit) and, for paced
// producers, delays the next capture attempt (Wait).
type Governor interface {
	Admit(now time.Time) bool
	Wait(ctx context.Context) error
	// Interval is the minimum spacing between admitted samples.
	Interval() time.Duration
	// LastAdmitted is zero until the first sample is admitted.
	LastAdmitted() time.Time
}
