package aegiswatch

import (
	"context"

	base "github.com/ghalamif/AegisWatch/pkg/aegiswatch"
)

// Re-exported errors for convenience.
var (
	ErrHardwareFault   = base.ErrHardwareFault
	ErrCaptureFailed   = base.ErrCaptureFailed
	ErrUnsupported     = base.ErrUnsupported
	ErrTooLarge        = base.ErrTooLarge
	ErrConnect         = base.ErrConnect
	ErrPublish         = base.ErrPublish
	ErrNotConnected    = base.ErrNotConnected
	ErrSessionClosed   = base.ErrSessionClosed
	ErrConfig          = base.ErrConfig
	ErrTransportClosed = base.ErrTransportClosed
)

// Type aliases so consumers can import github.com/ghalamif/AegisWatch directly.
type (
	Config           = base.Config
	Policy           = base.Policy
	MQTTConfig       = base.MQTTConfig
	AlertsConfig     = base.AlertsConfig
	CameraConfig     = base.CameraConfig
	HeartbeatConfig  = base.HeartbeatConfig
	Flow             = base.Flow
	FlowOption       = base.FlowOption
	StreamInOption   = base.StreamInOption
	StreamOutOption  = base.StreamOutOption
	Agent            = base.Agent
	AgentOption      = base.AgentOption
	TransportFactory = base.TransportFactory
	PayloadHandler   = base.PayloadHandler
	Sample           = base.Sample
	DigitalEvent     = base.DigitalEvent
	Frame            = base.Frame
	Payload          = base.Payload
	Source           = base.Source
	Transport        = base.Transport
	HostProbe        = base.HostProbe
	HostStats        = base.HostStats
	Observability    = base.Observability
	Field            = base.Field
)

const (
	StreamAlerts = base.StreamAlerts
	StreamFrames = base.StreamFrames
)

// Config helpers.
func LoadConfig(path string, overrides map[string]any) (*Config, error) {
	return base.LoadConfig(path, overrides)
}

// Flow builder helpers.
func Conf(path string, opts ...FlowOption) (*Flow, error) {
	return base.Conf(path, opts...)
}

func ConfFromConfig(cfg *Config, opts ...FlowOption) (*Flow, error) {
	return base.ConfFromConfig(cfg, opts...)
}

func WithFlowOptions(opts ...AgentOption) FlowOption {
	return base.WithFlowOptions(opts...)
}

func StreamInAlerts(src Source) StreamInOption {
	return base.StreamInAlerts(src)
}

func StreamInCamera(src Source) StreamInOption {
	return base.StreamInCamera(src)
}

func StreamInHostProbe(p HostProbe) StreamInOption {
	return base.StreamInHostProbe(p)
}

func StreamOutTransport(fn TransportFactory) StreamOutOption {
	return base.StreamOutTransport(fn)
}

func StreamOutCallback(name string, fn PayloadHandler) StreamOutOption {
	return base.StreamOutCallback(name, fn)
}

func StreamOutObservability(obs Observability) StreamOutOption {
	return base.StreamOutObservability(obs)
}

// Agent and options.
func NewAgent(cfg *Config, opts ...AgentOption) (*Agent, error) {
	return base.NewAgent(cfg, opts...)
}

// Run loads path, builds the agent and runs it until ctx is done.
func Run(ctx context.Context, path string, opts ...AgentOption) error {
	cfg, err := base.LoadConfig(path, nil)
	if err != nil {
		return err
	}
	agent, err := base.NewAgent(cfg, opts...)
	if err != nil {
		return err
	}
	return agent.Run(ctx)
}

func WithAlertSource(src Source) AgentOption {
	return base.WithAlertSource(src)
}

func WithCameraSource(src Source) AgentOption {
	return base.WithCameraSource(src)
}

func WithTransport(fn TransportFactory) AgentOption {
	return base.WithTransport(fn)
}

func WithObservability(obs Observability) AgentOption {
	return base.WithObservability(obs)
}

func WithHostProbe(p HostProbe) AgentOption {
	return base.WithHostProbe(p)
}

// Transport adapters.
func NewCallbackTransport(name string, fn PayloadHandler) Transport {
	return base.NewCallbackTransport(name, fn)
}

func NewChannelTransport(name string, buffer int) (Transport, <-chan *Payload, func()) {
	return base.NewChannelTransport(name, buffer)
}
