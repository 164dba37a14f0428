package aegiswatch

import (
	"context"
	"fmt"
)

// Flow is a convenience builder for Conf, StreamIN and StreamOUT so callers
// can assemble an Agent without touching the internal wiring.
type Flow struct {
	cfg  *Config
	opts []AgentOption
}

// FlowOption mutates the Flow after configuration is loaded.
type FlowOption func(*Flow)

// StreamInOption configures the sensing side: sources and host probe.
type StreamInOption func(*Flow)

// StreamOutOption configures the publishing side: transports and observability.
type StreamOutOption func(*Flow)

// Conf loads configuration from path (may be empty) and the environment.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	cfg, err := LoadConfig(path, nil)
	if err != nil {
		return nil, err
	}
	return ConfFromConfig(cfg, opts...)
}

// ConfFromConfig bootstraps a Flow from an in-memory Config.
func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", ErrConfig)
	}
	f := &Flow{cfg: cfg}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f, nil
}

// Config returns the underlying configuration so callers can tweak it before
// building the agent.
func (f *Flow) Config() *Config {
	if f == nil {
		return nil
	}
	return f.cfg
}

// Options appends raw AgentOption values.
func (f *Flow) Options(opts ...AgentOption) *Flow {
	if f == nil {
		return nil
	}
	f.opts = append(f.opts, opts...)
	return f
}

func (f *Flow) StreamIN(opts ...StreamInOption) *Flow {
	if f == nil {
		return nil
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return f
}

// StreamOUT applies the publishing overrides and builds the Agent.
func (f *Flow) StreamOUT(opts ...StreamOutOption) (*Agent, error) {
	if f == nil {
		return nil, fmt.Errorf("flow is nil")
	}
	for _, opt := range opts {
		if opt != nil {
			opt(f)
		}
	}
	return NewAgent(f.cfg, f.opts...)
}

// Run is a shortcut for StreamOUT followed by Agent.Run.
func (f *Flow) Run(ctx context.Context, opts ...StreamOutOption) error {
	agent, err := f.StreamOUT(opts...)
	if err != nil {
		return err
	}
	return agent.Run(ctx)
}

func WithFlowOptions(opts ...AgentOption) FlowOption {
	return func(f *Flow) { f.opts = append(f.opts, opts...) }
}

// StreamInAlerts feeds the alert stream from src instead of the GPIO pin.
func StreamInAlerts(src Source) StreamInOption {
	return func(f *Flow) {
		if src != nil {
			f.opts = append(f.opts, WithAlertSource(src))
		}
	}
}

// StreamInCamera feeds the frame stream from src.
func StreamInCamera(src Source) StreamInOption {
	return func(f *Flow) {
		if src != nil {
			f.opts = append(f.opts, WithCameraSource(src))
		}
	}
}

func StreamInHostProbe(p HostProbe) StreamInOption {
	return func(f *Flow) {
		if p != nil {
			f.opts = append(f.opts, WithHostProbe(p))
		}
	}
}

// StreamOutTransport routes every session through transports built by fn.
func StreamOutTransport(fn TransportFactory) StreamOutOption {
	return func(f *Flow) {
		if fn != nil {
			f.opts = append(f.opts, WithTransport(fn))
		}
	}
}

// StreamOutCallback delivers every payload to fn in-process.
func StreamOutCallback(name string, fn PayloadHandler) StreamOutOption {
	return func(f *Flow) {
		f.opts = append(f.opts, WithTransport(func(session string, _ *Payload) Transport {
			return NewCallbackTransport(name+"-"+session, fn)
		}))
	}
}

// StreamOutObservability replaces the default Prometheus and slog backend.
func StreamOutObservability(obs Observability) StreamOutOption {
	return func(f *Flow) {
		if obs != nil {
			f.opts = append(f.opts, WithObservability(obs))
		}
	}
}
