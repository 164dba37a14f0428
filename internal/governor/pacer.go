package governor

import (
	"context"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/ghalamif/AegisWatch/internal/ports"
)

// Pacer spaces capture attempts so the stream runs at no more than fps.
// Missed slots are not made up: the bucket holds a single token.
type Pacer struct {
	mu           sync.Mutex
	interval     time.Duration
	limiter      *rate.Limiter
	lastAdmitted time.Time
}

// NewPacer returns a pacer for fps frames per second. fps <= 0 disables pacing.
func NewPacer(fps float64) *Pacer {
	if fps <= 0 {
		return &Pacer{limiter: rate.NewLimiter(rate.Inf, 1)}
	}
	return &Pacer{
		interval: time.Duration(float64(time.Second) / fps),
		limiter:  rate.NewLimiter(rate.Limit(fps), 1),
	}
}

// Wait blocks until the next capture slot or until ctx is done.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.limiter.Wait(ctx)
}

// Admit records the sample; the pacer has already spent the token in Wait.
func (p *Pacer) Admit(now time.Time) bool {
	p.mu.Lock()
	p.lastAdmitted = now
	p.mu.Unlock()
	return true
}

func (p *Pacer) LastAdmitted() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.lastAdmitted
}

func (p *Pacer) Interval() time.Duration { return p.interval }

var (
	_ ports.Governor = (*Cooldown)(nil)
	_ ports.Governor = (*Pacer)(nil)
)
