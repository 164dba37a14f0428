// Package session keeps one long-lived broker connection per stream.
//
// A Session owns reconnection: publishes fail fast while the link is down
// and Maintain re-establishes it with capped exponential backoff.
package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/ghalamif/AegisWatch/internal/domain"
	"github.com/ghalamif/AegisWatch/internal/ports"
)

type Config struct {
	Name    string
	Backoff Backoff
	// ConnectTimeout bounds a single transport connect attempt. The agent
	// sets it to the broker keep-alive interval.
	ConnectTimeout  time.Duration
	DisconnectGrace time.Duration
}

type Session struct {
	cfg Config
	tr  ports.Transport
	obs ports.Observability

	// mu guards state, closed, attempts and link.
	mu       sync.Mutex
	state    State
	closed   bool
	attempts int
	// link numbers connect attempts; loss reports for an older link are
	// ignored.
	link uint64

	connMu sync.Mutex
	pubMu  sync.Mutex

	lost chan error

	closeCtx    context.Context
	closeCancel context.CancelFunc
}

func New(cfg Config, tr ports.Transport, obs ports.Observability) *Session {
	cfg.Backoff = cfg.Backoff.withDefaults()
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = 60 * time.Second
	}
	if cfg.DisconnectGrace <= 0 {
		cfg.DisconnectGrace = 250 * time.Millisecond
	}
	if cfg.Name == "" {
		cfg.Name = "default"
	}
	closeCtx, closeCancel := context.WithCancel(context.Background())
	s := &Session{
		cfg:         cfg,
		tr:          tr,
		obs:         obs,
		lost:        make(chan error, 1),
		closeCtx:    closeCtx,
		closeCancel: closeCancel,
	}
	obs.SetGauge(ports.MetricSessionState, cfg.Name, float64(StateDisconnected))
	return s
}

func (s *Session) Name() string { return s.cfg.Name }

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Connected() bool { return s.State() == StateConnected }

// ReconnectAttempts counts failed connect attempts over the session lifetime.
func (s *Session) ReconnectAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts
}

func (s *Session) setStateLocked(next State) {
	if s.state == next {
		return
	}
	prev := s.state
	s.state = next
	s.obs.SetGauge(ports.MetricSessionState, s.cfg.Name, float64(next))
	s.obs.LogInfo("session_state",
		ports.Field{Key: "session", Value: s.cfg.Name},
		ports.Field{Key: "from", Value: prev.String()},
		ports.Field{Key: "state", Value: next.String()},
	)
}

func (s *Session) setState(next State) {
	s.mu.Lock()
	s.setStateLocked(next)
	s.mu.Unlock()
}

// Connect establishes the link, retrying until it succeeds, ctx is done or
// the session is closed. It returns nil immediately when already connected.
func (s *Session) Connect(ctx context.Context) error {
	s.connMu.Lock()
	defer s.connMu.Unlock()

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return domain.ErrSessionClosed
	}
	if s.state == StateConnected {
		s.mu.Unlock()
		return nil
	}
	s.setStateLocked(StateConnecting)
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.closeCtx, cancel)
	defer stop()

	op := func() error {
		actx, acancel := context.WithTimeout(ctx, s.cfg.ConnectTimeout)
		defer acancel()
		s.mu.Lock()
		s.link++
		link := s.link
		s.mu.Unlock()
		err := s.tr.Connect(actx, func(err error) { s.markLost(link, err) })
		if err == nil {
			return nil
		}
		s.mu.Lock()
		s.attempts++
		s.mu.Unlock()
		s.obs.IncCounter(ports.MetricSessionReconnects, s.cfg.Name, 1)
		if ctx.Err() != nil {
			return backoff.Permanent(fmt.Errorf("%w: %v", domain.ErrConnect, err))
		}
		return fmt.Errorf("%w: %v", domain.ErrConnect, err)
	}
	notify := func(err error, delay time.Duration) {
		s.obs.LogWarn("connect_retry", err,
			ports.Field{Key: "session", Value: s.cfg.Name},
			ports.Field{Key: "attempt", Value: s.ReconnectAttempts()},
			ports.Field{Key: "delay", Value: delay},
		)
	}

	err := backoff.RetryNotify(op, backoff.WithContext(s.cfg.Backoff.newPolicy(), ctx), notify)
	if err != nil {
		s.setState(StateDisconnected)
		if s.isClosed() {
			return domain.ErrSessionClosed
		}
		if !errors.Is(err, domain.ErrConnect) {
			err = fmt.Errorf("%w: %w", domain.ErrConnect, err)
		}
		return err
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		_ = s.tr.Disconnect(s.cfg.DisconnectGrace)
		return domain.ErrSessionClosed
	}
	// Drop loss signals left over from the previous link.
	select {
	case <-s.lost:
	default:
	}
	s.setStateLocked(StateConnected)
	s.mu.Unlock()
	return nil
}

// Publish sends p on the live link. It never waits for a reconnect.
func (s *Session) Publish(ctx context.Context, p *domain.Payload) error {
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	closed, state, link := s.closed, s.state, s.link
	s.mu.Unlock()
	if closed {
		return domain.ErrSessionClosed
	}
	if state != StateConnected {
		return fmt.Errorf("%w: %s is %s", domain.ErrNotConnected, s.cfg.Name, state)
	}

	err := s.tr.Publish(ctx, p)
	if err != nil {
		if ctx.Err() == nil {
			s.markLost(link, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrPublish, err)
	}
	return nil
}

func (s *Session) markLost(link uint64, err error) {
	s.mu.Lock()
	stale := link != s.link
	if s.closed || s.state != StateConnected || stale {
		s.mu.Unlock()
		if stale {
			s.obs.LogDebug("stale_connection_lost", ports.Field{Key: "session", Value: s.cfg.Name})
		}
		return
	}
	s.setStateLocked(StateDisconnected)
	s.mu.Unlock()

	s.obs.LogWarn("connection_lost", err, ports.Field{Key: "session", Value: s.cfg.Name})
	select {
	case s.lost <- err:
	default:
	}
}

// Maintain performs the initial connect and reconnects after every loss
// until ctx is done or the session is closed.
func (s *Session) Maintain(ctx context.Context) error {
	for {
		if err := s.Connect(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, domain.ErrSessionClosed) {
				return nil
			}
			return err
		}
		select {
		case <-ctx.Done():
			return nil
		case <-s.closeCtx.Done():
			return nil
		case <-s.lost:
			s.obs.LogInfo("reconnecting", ports.Field{Key: "session", Value: s.cfg.Name})
		}
	}
}

// Disconnect closes the session. Only the first call reaches the transport.
func (s *Session) Disconnect() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	s.closeCancel()

	// Let an in-flight publish finish first.
	s.pubMu.Lock()
	defer s.pubMu.Unlock()

	s.mu.Lock()
	prev := s.state
	if prev == StateConnected {
		s.setStateLocked(StateDisconnecting)
	}
	s.mu.Unlock()

	var err error
	if prev == StateConnected {
		err = s.tr.Disconnect(s.cfg.DisconnectGrace)
	}
	s.setState(StateDisconnected)
	return err
}

func (s *Session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
