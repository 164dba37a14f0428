package ports

// Metric names emitted by the agent. Backends ignore names they do not know.
const (
	MetricSamplesPolled       = "aegis_samples_polled_total"
	MetricSamplesAdmitted     = "aegis_samples_admitted_total"
	MetricSamplesDropped      = "aegis_samples_dropped_total"
	MetricCaptureFailed       = "aegis_capture_failed_total"
	MetricEncodeFailed        = "aegis_encode_failed_total"
	MetricPayloadsPublished   = "aegis_payloads_published_total"
	MetricPublishFailed       = "aegis_publish_failed_total"
	MetricBacklogDropped      = "aegis_backlog_dropped_total"
	MetricSessionReconnects   = "aegis_session_reconnects_total"
	MetricSessionState        = "aegis_session_state"
	MetricBacklogLength       = "aegis_backlog_length"
	MetricPublishLatency      = "aegis_publish_latency_seconds"
	MetricPayloadBytes        = "aegis_payload_bytes"
	MetricHeartbeatsPublished = "aegis_heartbeats_published_total"
)

type Observability interface {
	LogDebug(msg string, fields ...Field)
	LogInfo(msg string, fields ...Field)
	LogWarn(msg string, err error, fields ...Field)
	LogError(msg string, err error, fields ...Field)

	IncCounter(name, stream string, v float64)
	ObserveLatency(name, stream string, seconds float64)
	Observe(name, stream string, v float64)

	SetGauge(name, label string, v float64)
}

type Field struct {
	Key   string
	Value any
}
