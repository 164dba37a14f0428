package ports

import (
	"context"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

// HostProbe reads device health. Partial readings may come with an error.
type HostProbe interface {
	Collect(ctx context.Context) (domain.HostStats, error)
}
