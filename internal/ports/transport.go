package ports

import (
	"context"
	"time"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

// Transport is a single broker connection. onLost is invoked at most once per
// successful Connect when the link drops outside of Disconnect.
type Transport interface {
	Connect(ctx context.Context, onLost func(error)) error
	Publish(ctx context.Context, p *domain.Payload) error
	Disconnect(grace time.Duration) error
}

// Publisher is the narrow view of a session used by the agent loops.
type Publisher interface {
	Publish(ctx context.Context, p *domain.Payload) error
	Connected() bool
}
