package aegiswatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ghalamif/AegisWatch/internal/adapters/gpio"
	"github.com/ghalamif/AegisWatch/internal/adapters/hoststats"
	"github.com/ghalamif/AegisWatch/internal/adapters/mqtt"
	"github.com/ghalamif/AegisWatch/internal/adapters/observability"
	"github.com/ghalamif/AegisWatch/internal/adapters/queue"
	"github.com/ghalamif/AegisWatch/internal/adapters/sim"
	"github.com/ghalamif/AegisWatch/internal/app/pipeline"
	"github.com/ghalamif/AegisWatch/internal/encoder"
	"github.com/ghalamif/AegisWatch/internal/governor"
	"github.com/ghalamif/AegisWatch/internal/logging"
	"github.com/ghalamif/AegisWatch/internal/ports"
	"github.com/ghalamif/AegisWatch/internal/session"
)

const (
	StreamAlerts = "alerts"
	StreamFrames = "frames"
	sharedName   = "shared"
)

// TransportFactory builds the transport for one session. will is the last
// will to register, nil when the session does not carry the heartbeat.
type TransportFactory func(sessionName string, will *Payload) Transport

// AgentOption customizes the dependencies used by Agent.
type AgentOption func(*agentOverrides)

type agentOverrides struct {
	alertSource  Source
	cameraSource Source
	transports   TransportFactory
	obs          Observability
	registry     *prometheus.Registry
	probe        HostProbe
	logger       *slog.Logger
}

// WithAlertSource replaces the GPIO sound sensor.
func WithAlertSource(src Source) AgentOption {
	return func(o *agentOverrides) { o.alertSource = src }
}

// WithCameraSource supplies the frame source. The GStreamer camera lives in
// its own package so that embedding AegisWatch does not require cgo.
func WithCameraSource(src Source) AgentOption {
	return func(o *agentOverrides) { o.cameraSource = src }
}

// WithTransport replaces the MQTT transport, for example with an in-process
// callback or channel transport.
func WithTransport(f TransportFactory) AgentOption {
	return func(o *agentOverrides) { o.transports = f }
}

// WithObservability plugs in a custom logging and metrics backend.
func WithObservability(obs Observability) AgentOption {
	return func(o *agentOverrides) { o.obs = obs }
}

// WithRegistry registers the default Prometheus metrics on reg instead of a
// private registry.
func WithRegistry(reg *prometheus.Registry) AgentOption {
	return func(o *agentOverrides) { o.registry = reg }
}

// WithHostProbe replaces the gopsutil host statistics used by the heartbeat.
func WithHostProbe(p HostProbe) AgentOption {
	return func(o *agentOverrides) { o.probe = p }
}

// WithLogger sets the slog logger used by the default observability backend.
func WithLogger(l *slog.Logger) AgentOption {
	return func(o *agentOverrides) { o.logger = l }
}

// Agent runs the alert and frame streams against their publish sessions and
// exposes the lifecycle hooks for embedding AegisWatch in another program.
type Agent struct {
	cfg       *Config
	obs       ports.Observability
	registry  *prometheus.Registry
	streams   []pipeline.Stream
	sessions  []*session.Session
	heartbeat *pipeline.Heartbeat

	// mu guards metricsSrv, cancel and stopped.
	mu           sync.Mutex
	metricsSrv   *http.Server
	cancel       context.CancelFunc
	stopped      bool
	shutdownOnce sync.Once
	shutdownErr  error
}

// NewAgent builds every stream described by cfg. Sources are not opened until
// Run; a source that fails to open takes down only its own stream.
func NewAgent(cfg *Config, opts ...AgentOption) (*Agent, error) {
	if cfg == nil {
		return nil, fmt.Errorf("%w: config is required", ErrConfig)
	}

	var o agentOverrides
	for _, opt := range opts {
		if opt != nil {
			opt(&o)
		}
	}

	logger := o.logger
	if logger == nil {
		logger = logging.New(cfg.Log.Level, cfg.Log.Format, os.Stdout).With(logging.Service("aegis-watch"))
	}
	reg := o.registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	obs := o.obs
	if obs == nil {
		obs = observability.NewPromObs(reg, logger)
	}

	a := &Agent{cfg: cfg, obs: obs, registry: reg}

	transports := o.transports
	if transports == nil {
		transports = a.defaultTransports(logger)
	}

	heartbeatOn := cfg.Heartbeat.Interval > 0
	var will *Payload
	if heartbeatOn {
		will = encoder.OfflineWill(cfg.Heartbeat.Topic, cfg.Device.ID)
	}

	newSession := func(name string, w *Payload) *session.Session {
		s := session.New(session.Config{
			Name: name,
			Backoff: session.Backoff{
				Initial:    cfg.Session.Backoff.Initial,
				Max:        cfg.Session.Backoff.Max,
				Multiplier: cfg.Session.Backoff.Multiplier,
				Jitter:     cfg.Session.Backoff.Jitter,
			},
			ConnectTimeout: cfg.MQTT.KeepAlive,
		}, transports(name, w), obs)
		a.sessions = append(a.sessions, s)
		return s
	}

	var shared *session.Session
	if cfg.Session.Shared {
		shared = newSession(sharedName, will)
	}
	pick := func(name string, w *Payload) *session.Session {
		if shared != nil {
			return shared
		}
		return newSession(name, w)
	}

	if cfg.Alerts.Enabled {
		src := o.alertSource
		if src == nil {
			if cfg.Simulate {
				src = sim.NewDigital(gpio.PinName(cfg.Alerts.Pin), cfg.Alerts.SimulatePeriod)
			} else {
				src = gpio.NewSource(gpio.Config{
					Pin:          cfg.Alerts.Pin,
					Pull:         cfg.Alerts.Pull,
					ActiveLow:    cfg.Alerts.ActiveLow,
					Debounce:     cfg.Alerts.Debounce,
					PollInterval: cfg.Alerts.PollInterval,
				})
			}
		}
		// The alert session carries the heartbeat and last will.
		sess := pick(StreamAlerts, will)
		will = nil

		pol := cfg.AlertPolicy()
		var backlog ports.PayloadQueue
		if pol.BacklogLen > 0 {
			backlog = queue.NewMemQueue(pol.BacklogLen)
		}
		a.streams = append(a.streams, pipeline.Stream{
			Name:     StreamAlerts,
			Source:   src,
			Governor: governor.NewCooldown(cfg.Alerts.Cooldown),
			Encoder: encoder.NewAlert(encoder.AlertConfig{
				Topic:   cfg.Alerts.Topic,
				Message: cfg.Alerts.Message,
				Source:  cfg.Alerts.Source,
				QoS:     byte(cfg.Alerts.QoS),
			}),
			Publisher: sess,
			Backlog:   backlog,
			Policy:    pol,
			Obs:       obs,
		})
	}

	if cfg.Camera.Enabled {
		src := o.cameraSource
		if src == nil {
			if !cfg.Simulate {
				return nil, fmt.Errorf("%w: camera enabled but no camera source supplied", ErrConfig)
			}
			src = sim.NewFrames(cfg.Camera.Width, cfg.Camera.Height)
		}
		sess := pick(StreamFrames, will)
		will = nil

		pol := cfg.CameraPolicy()
		var backlog ports.PayloadQueue
		if pol.BacklogLen > 0 {
			backlog = queue.NewMemQueue(pol.BacklogLen)
		}
		a.streams = append(a.streams, pipeline.Stream{
			Name:     StreamFrames,
			Source:   src,
			Governor: governor.NewPacer(cfg.Camera.FrameRate),
			Encoder: encoder.NewFrame(encoder.FrameConfig{
				Topic:           cfg.Camera.Topic,
				Quality:         cfg.Camera.JPEGQuality,
				QoS:             byte(cfg.Camera.QoS),
				MaxFrameBytes:   cfg.Camera.MaxFrameBytes,
				MaxPayloadBytes: cfg.Camera.MaxPayloadBytes,
			}),
			Publisher: sess,
			Backlog:   backlog,
			Policy:    pol,
			Obs:       obs,
		})
	}

	if len(a.streams) == 0 {
		return nil, fmt.Errorf("%w: no stream enabled", ErrConfig)
	}

	if heartbeatOn {
		probe := o.probe
		if probe == nil {
			probe = hoststats.NewCollector(cfg.Heartbeat.DiskPath)
		}
		a.heartbeat = &pipeline.Heartbeat{
			Device:    cfg.Device.ID,
			Topic:     cfg.Heartbeat.Topic,
			QoS:       1,
			Interval:  cfg.Heartbeat.Interval,
			Publisher: a.sessions[0],
			Probe:     probe,
			Sessions:  a.sessionStates,
			Obs:       obs,
		}
	}
	return a, nil
}

func (a *Agent) defaultTransports(logger *slog.Logger) TransportFactory {
	cfg := a.cfg
	if cfg.DryRun {
		return func(name string, _ *Payload) Transport {
			return NewCallbackTransport("dry-run-"+name, func(_ context.Context, p *Payload) error {
				logger.Info("dry_run_publish",
					logging.Session(name), logging.Topic(p.Topic), slog.Int(logging.FieldBytes, p.Size()))
				return nil
			})
		}
	}
	return func(name string, will *Payload) Transport {
		return mqtt.NewTransport(mqtt.Options{
			Host:           cfg.MQTT.Host,
			Port:           cfg.MQTT.Port,
			Username:       cfg.MQTT.Username,
			Password:       cfg.MQTT.Password,
			ClientID:       mqtt.NewClientID(cfg.Device.ID, name),
			KeepAlive:      cfg.MQTT.KeepAlive,
			PublishTimeout: cfg.MQTT.PublishTimeout,
			TLS: mqtt.TLSOptions{
				Enabled:            cfg.MQTT.TLS,
				CAFile:             cfg.MQTT.CAFile,
				CertFile:           cfg.MQTT.CertFile,
				KeyFile:            cfg.MQTT.KeyFile,
				ServerName:         cfg.MQTT.ServerName,
				InsecureSkipVerify: cfg.MQTT.InsecureSkipVerify,
			},
			Will: will,
		}, nil)
	}
}

func (a *Agent) sessionStates() map[string]string {
	out := make(map[string]string, len(a.sessions))
	for _, s := range a.sessions {
		out[s.Name()] = s.State().String()
	}
	return out
}

// Streams returns the names of the configured streams in start order.
func (a *Agent) Streams() []string {
	names := make([]string, len(a.streams))
	for i, st := range a.streams {
		names[i] = st.Name
	}
	return names
}

// Registry exposes the Prometheus registry backing /metrics.
func (a *Agent) Registry() *prometheus.Registry { return a.registry }

// Run starts every stream and blocks until ctx is cancelled or every stream
// has failed. Sessions are disconnected before it returns. The error wraps
// ErrHardwareFault only when no stream could keep running.
func (a *Agent) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		cancel()
		return nil
	}
	a.cancel = cancel
	a.mu.Unlock()
	defer cancel()

	a.startMetrics()

	var sessWG sync.WaitGroup
	for _, s := range a.sessions {
		sessWG.Add(1)
		go func(s *session.Session) {
			defer sessWG.Done()
			if err := s.Maintain(ctx); err != nil {
				a.obs.LogError("session_stopped", err, ports.Field{Key: "session", Value: s.Name()})
			}
		}(s)
	}

	var hbWG sync.WaitGroup
	if a.heartbeat != nil {
		hbWG.Add(1)
		go func() {
			defer hbWG.Done()
			_ = pipeline.RunHeartbeat(ctx, *a.heartbeat)
		}()
	}

	results := make(chan error, len(a.streams))
	for _, st := range a.streams {
		go func(st pipeline.Stream) {
			results <- pipeline.RunStream(ctx, st)
		}(st)
	}

	var errs []error
	for range a.streams {
		if err := <-results; err != nil {
			errs = append(errs, err)
			a.obs.LogError("stream_failed", err)
			if len(errs) == len(a.streams) {
				cancel()
			}
		}
	}
	cancel()
	hbWG.Wait()

	shutdownCtx, stop := context.WithTimeout(context.Background(), a.cfg.Session.ShutdownTimeout)
	defer stop()
	shutdownErr := a.Shutdown(shutdownCtx)
	sessWG.Wait()

	if len(errs) == len(a.streams) {
		return fmt.Errorf("all streams failed: %w", errors.Join(errs...))
	}
	return shutdownErr
}

// Shutdown cancels the streams, disconnects every session and stops the
// metrics server. It is safe to call from any goroutine. Only the first call
// does any work; later calls return the first call's result, and Run returns
// immediately once Shutdown has been called.
func (a *Agent) Shutdown(ctx context.Context) error {
	a.shutdownOnce.Do(func() {
		a.mu.Lock()
		a.stopped = true
		if a.cancel != nil {
			a.cancel()
		}
		srv := a.metricsSrv
		a.mu.Unlock()

		var errs []error
		done := make(chan error, 1)
		go func() {
			var derrs []error
			for _, s := range a.sessions {
				if err := s.Disconnect(); err != nil {
					derrs = append(derrs, fmt.Errorf("session %s: %w", s.Name(), err))
				}
			}
			done <- errors.Join(derrs...)
		}()
		select {
		case err := <-done:
			if err != nil {
				errs = append(errs, err)
			}
		case <-ctx.Done():
			errs = append(errs, fmt.Errorf("disconnect sessions: %w", ctx.Err()))
		}

		if srv != nil {
			if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				errs = append(errs, err)
			}
		}
		a.shutdownErr = errors.Join(errs...)
		a.obs.LogInfo("agent_stopped")
	})
	return a.shutdownErr
}

func (a *Agent) startMetrics() {
	if a.cfg.Metrics.Addr == "" {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(a.registry, promhttp.HandlerOpts{}))
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{
		Addr:              a.cfg.Metrics.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}
	a.mu.Lock()
	if a.stopped {
		a.mu.Unlock()
		return
	}
	a.metricsSrv = srv
	a.mu.Unlock()

	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.obs.LogError("metrics_server_exited", err)
		}
	}()
}
