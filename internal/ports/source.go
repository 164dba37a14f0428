package ports

import (
	"context"
	"time"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

// Source wraps one physical input. Open acquires the hardware, Poll blocks for
// at most timeout and returns a nil sample when nothing was observed.
type Source interface {
	Open(ctx context.Context) error
	Poll(ctx context.Context, timeout time.Duration) (*domain.Sample, error)
	Close() error
	Name() string
}
