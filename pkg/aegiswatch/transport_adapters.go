package aegiswatch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

// ErrTransportClosed is returned when a channel transport is written to after
// being closed.
var ErrTransportClosed = errors.New("aegiswatch: channel transport closed")

// PayloadHandler receives every payload a callback transport publishes.
type PayloadHandler func(ctx context.Context, p *Payload) error

// NewCallbackTransport adapts a function into a Transport so payloads can be
// consumed in-process without a broker.
func NewCallbackTransport(name string, fn PayloadHandler) Transport {
	if name == "" {
		name = "callback"
	}
	return &callbackTransport{name: name, fn: fn}
}

// NewChannelTransport exposes published payloads on a channel. It returns the
// transport, the read side and a close function that the caller should invoke
// during shutdown.
func NewChannelTransport(name string, buffer int) (Transport, <-chan *Payload, func()) {
	if name == "" {
		name = "channel"
	}
	if buffer < 0 {
		buffer = 0
	}
	ch := make(chan *Payload, buffer)
	t := &channelTransport{
		name:   name,
		ch:     ch,
		closed: make(chan struct{}),
	}
	return t, ch, func() { t.close() }
}

type callbackTransport struct {
	name string
	fn   PayloadHandler
}

func (t *callbackTransport) Connect(ctx context.Context, _ func(error)) error {
	if t.fn == nil {
		return fmt.Errorf("callback transport %q: nil handler", t.name)
	}
	return ctx.Err()
}

func (t *callbackTransport) Publish(ctx context.Context, p *domain.Payload) error {
	if t.fn == nil {
		return fmt.Errorf("callback transport %q: nil handler", t.name)
	}
	return t.fn(ctx, p)
}

func (t *callbackTransport) Disconnect(time.Duration) error { return nil }

type channelTransport struct {
	name   string
	ch     chan *Payload
	closed chan struct{}
	once   sync.Once
	// mu keeps close from closing ch under an in-flight send.
	mu sync.RWMutex
}

func (t *channelTransport) Connect(ctx context.Context, _ func(error)) error {
	select {
	case <-t.closed:
		return ErrTransportClosed
	default:
	}
	return ctx.Err()
}

func (t *channelTransport) Publish(ctx context.Context, p *domain.Payload) error {
	t.mu.RLock()
	defer t.mu.RUnlock()

	select {
	case <-t.closed:
		return ErrTransportClosed
	default:
	}

	select {
	case <-t.closed:
		return ErrTransportClosed
	case <-ctx.Done():
		return ctx.Err()
	case t.ch <- p:
		return nil
	}
}

func (t *channelTransport) Disconnect(time.Duration) error { return nil }

func (t *channelTransport) close() {
	t.once.Do(func() {
		close(t.closed)
		t.mu.Lock()
		close(t.ch)
		t.mu.Unlock()
	})
}
