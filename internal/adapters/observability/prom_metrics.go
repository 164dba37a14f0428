package observability

import (
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ghalamif/AegisWatch/internal/logging"
	"github.com/ghalamif/AegisWatch/internal/ports"
)

type PromObs struct {
	logger   *slog.Logger
	counters map[string]*prometheus.CounterVec
	gauges   map[string]*prometheus.GaugeVec
	histos   map[string]*prometheus.HistogramVec
}

// NewPromObs registers the agent metrics on reg and logs through logger.
func NewPromObs(reg prometheus.Registerer, logger *slog.Logger) *PromObs {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	if logger == nil {
		logger = slog.Default()
	}

	counter := func(name, help string, labels ...string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{Name: name, Help: help}, labels)
	}

	counters := map[string]*prometheus.CounterVec{
		ports.MetricSamplesPolled:       counter(ports.MetricSamplesPolled, "Samples returned by a source.", "stream"),
		ports.MetricSamplesAdmitted:     counter(ports.MetricSamplesAdmitted, "Samples admitted by the rate governor.", "stream"),
		ports.MetricSamplesDropped:      counter(ports.MetricSamplesDropped, "Samples dropped inside the cooldown window.", "stream"),
		ports.MetricCaptureFailed:       counter(ports.MetricCaptureFailed, "Transient source read failures.", "stream"),
		ports.MetricEncodeFailed:        counter(ports.MetricEncodeFailed, "Samples that could not be encoded.", "stream"),
		ports.MetricPayloadsPublished:   counter(ports.MetricPayloadsPublished, "Payloads accepted by the broker.", "stream"),
		ports.MetricPublishFailed:       counter(ports.MetricPublishFailed, "Publish attempts that failed or found no connection.", "stream"),
		ports.MetricBacklogDropped:      counter(ports.MetricBacklogDropped, "Payloads lost due to backlog policy.", "stream"),
		ports.MetricSessionReconnects:   counter(ports.MetricSessionReconnects, "Failed connect attempts per session.", "stream"),
		ports.MetricHeartbeatsPublished: counter(ports.MetricHeartbeatsPublished, "Device status messages published.", "stream"),
	}
	gauges := map[string]*prometheus.GaugeVec{
		ports.MetricSessionState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: ports.MetricSessionState,
			Help: "Connection state per session (0 disconnected, 1 connecting, 2 connected, 3 disconnecting).",
		}, []string{"session"}),
		ports.MetricBacklogLength: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: ports.MetricBacklogLength,
			Help: "Payloads waiting in the in-memory backlog.",
		}, []string{"stream"}),
	}
	histos := map[string]*prometheus.HistogramVec{
		ports.MetricPublishLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    ports.MetricPublishLatency,
			Help:    "Time spent in a single publish call.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12),
		}, []string{"stream"}),
		ports.MetricPayloadBytes: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    ports.MetricPayloadBytes,
			Help:    "Encoded payload size.",
			Buckets: prometheus.ExponentialBuckets(64, 4, 8),
		}, []string{"stream"}),
	}

	for _, c := range counters {
		reg.MustRegister(c)
	}
	for _, g := range gauges {
		reg.MustRegister(g)
	}
	for _, h := range histos {
		reg.MustRegister(h)
	}

	return &PromObs{
		logger:   logger,
		counters: counters,
		gauges:   gauges,
		histos:   histos,
	}
}

func (p *PromObs) LogDebug(msg string, fields ...ports.Field) {
	p.logger.Debug(msg, toArgs(fields)...)
}

func (p *PromObs) LogInfo(msg string, fields ...ports.Field) {
	p.logger.Info(msg, toArgs(fields)...)
}

func (p *PromObs) LogWarn(msg string, err error, fields ...ports.Field) {
	args := toArgs(fields)
	if err != nil {
		args = append(args, logging.Error(err))
	}
	p.logger.Warn(msg, args...)
}

func (p *PromObs) LogError(msg string, err error, fields ...ports.Field) {
	args := toArgs(fields)
	if err != nil {
		args = append(args, logging.Error(err))
	}
	p.logger.Error(msg, args...)
}

func (p *PromObs) IncCounter(name, stream string, v float64) {
	if c, ok := p.counters[name]; ok {
		c.WithLabelValues(stream).Add(v)
	}
}

func (p *PromObs) ObserveLatency(name, stream string, seconds float64) {
	p.Observe(name, stream, seconds)
}

func (p *PromObs) Observe(name, stream string, v float64) {
	if h, ok := p.histos[name]; ok {
		h.WithLabelValues(stream).Observe(v)
	}
}

func (p *PromObs) SetGauge(name, label string, v float64) {
	if g, ok := p.gauges[name]; ok {
		g.WithLabelValues(label).Set(v)
	}
}

func toArgs(fields []ports.Field) []any {
	if len(fields) == 0 {
		return nil
	}
	args := make([]any, 0, len(fields)+1)
	for _, f := range fields {
		args = append(args, slog.Any(f.Key, f.Value))
	}
	return args
}

var _ ports.Observability = (*PromObs)(nil)
