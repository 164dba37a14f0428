// Package mqtt implements the broker transport on top of the Eclipse Paho
// client. Reconnection is left to the session; paho's own auto-reconnect is
// switched off.
package mqtt

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

const (
	DefaultKeepAlive      = 60 * time.Second
	DefaultPublishTimeout = 5 * time.Second
)

type Options struct {
	Host     string
	Port     int
	Username string
	Password string
	ClientID string

	KeepAlive      time.Duration
	PublishTimeout time.Duration
	TLS            TLSOptions

	// Will is registered as the MQTT last will when non-nil.
	Will *domain.Payload
}

// BrokerURL renders host and port with ssl:// when TLS is on.
func (o Options) BrokerURL() string {
	scheme := "tcp"
	if o.TLS.Enabled {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, o.Host, o.Port)
}

// ClientFactory builds a paho client. Tests swap it for a fake.
type ClientFactory func(*paho.ClientOptions) paho.Client

// NewClientID returns <device>-<stream>-<8 hex chars>.
func NewClientID(device, stream string) string {
	return fmt.Sprintf("%s-%s-%s", device, stream, uuid.NewString()[:8])
}

type Transport struct {
	opts    Options
	factory ClientFactory

	mu     sync.Mutex
	client paho.Client
}

func NewTransport(opts Options, factory ClientFactory) *Transport {
	if opts.KeepAlive <= 0 {
		opts.KeepAlive = DefaultKeepAlive
	}
	if opts.PublishTimeout <= 0 {
		opts.PublishTimeout = DefaultPublishTimeout
	}
	if opts.ClientID == "" {
		opts.ClientID = NewClientID("aegis", "watch")
	}
	if factory == nil {
		factory = paho.NewClient
	}
	return &Transport{opts: opts, factory: factory}
}

func (t *Transport) clientOptions(onLost func(error)) (*paho.ClientOptions, error) {
	tlsCfg, err := BuildTLSConfig(t.opts.TLS)
	if err != nil {
		return nil, err
	}
	if tlsCfg != nil && tlsCfg.ServerName == "" {
		tlsCfg.ServerName = t.opts.Host
	}

	o := paho.NewClientOptions()
	o.AddBroker(t.opts.BrokerURL())
	o.SetClientID(t.opts.ClientID)
	o.SetUsername(t.opts.Username)
	o.SetPassword(t.opts.Password)
	o.SetKeepAlive(t.opts.KeepAlive)
	o.SetConnectTimeout(t.opts.KeepAlive)
	o.SetCleanSession(true)
	o.SetAutoReconnect(false)
	o.SetConnectRetry(false)
	if tlsCfg != nil {
		o.SetTLSConfig(tlsCfg)
	}
	if w := t.opts.Will; w != nil {
		o.SetBinaryWill(w.Topic, w.Body, w.QoS, w.Retained)
	}
	o.SetConnectionLostHandler(func(_ paho.Client, err error) {
		if onLost != nil {
			onLost(err)
		}
	})
	return o, nil
}

func (t *Transport) Connect(ctx context.Context, onLost func(error)) error {
	o, err := t.clientOptions(onLost)
	if err != nil {
		return err
	}
	c := t.factory(o)
	if err := wait(ctx, c.Connect(), t.opts.KeepAlive); err != nil {
		c.Disconnect(0)
		return fmt.Errorf("mqtt connect %s: %w", t.opts.BrokerURL(), err)
	}

	t.mu.Lock()
	old := t.client
	t.client = c
	t.mu.Unlock()
	if old != nil && old.IsConnected() {
		old.Disconnect(0)
	}
	return nil
}

func (t *Transport) Publish(ctx context.Context, p *domain.Payload) error {
	t.mu.Lock()
	c := t.client
	t.mu.Unlock()
	if c == nil || !c.IsConnected() {
		return domain.ErrNotConnected
	}
	return wait(ctx, c.Publish(p.Topic, p.QoS, p.Retained, p.Body), t.opts.PublishTimeout)
}

func (t *Transport) Disconnect(grace time.Duration) error {
	t.mu.Lock()
	c := t.client
	t.client = nil
	t.mu.Unlock()
	if c == nil {
		return nil
	}
	c.Disconnect(uint(grace.Milliseconds()))
	return nil
}

var errTimeout = errors.New("timed out")

func wait(ctx context.Context, tok paho.Token, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-tok.Done():
		return tok.Error()
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return errTimeout
	}
}
