package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ghalamif/AegisWatch/internal/domain"
	"github.com/ghalamif/AegisWatch/internal/ports"
)

// Stream wires one sense, encode and publish loop.
type Stream struct {
	Name      string
	Source    ports.Source
	Governor  ports.Governor
	Encoder   ports.Encoder
	Publisher ports.Publisher
	// Backlog holds payloads that failed to publish. Nil disables it.
	Backlog ports.PayloadQueue
	Policy  ports.Policy
	Obs     ports.Observability
}

// RunStream drives st until ctx is done. It returns an error wrapping
// domain.ErrHardwareFault when the source cannot be opened or fails for good;
// every other failure is logged and the loop carries on.
func RunStream(ctx context.Context, st Stream) error {
	obs := st.Obs
	name := ports.Field{Key: "stream", Value: st.Name}

	if err := st.Source.Open(ctx); err != nil {
		if !errors.Is(err, domain.ErrHardwareFault) {
			err = fmt.Errorf("%w: %v", domain.ErrHardwareFault, err)
		}
		obs.LogError("source_open_failed", err, name, ports.Field{Key: "source", Value: st.Source.Name()})
		return fmt.Errorf("stream %s: %w", st.Name, err)
	}
	defer func() {
		if err := st.Source.Close(); err != nil {
			obs.LogWarn("source_close_failed", err, name)
		}
		obs.LogInfo("stream_stopped", name)
	}()
	obs.LogInfo("stream_started", name, ports.Field{Key: "source", Value: st.Source.Name()})

	pollTimeout := st.Policy.PollTimeout
	if pollTimeout <= 0 {
		pollTimeout = time.Second
	}

	for ctx.Err() == nil {
		if err := st.Governor.Wait(ctx); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			obs.LogWarn("governor_wait_failed", err, name)
			continue
		}

		sample, err := st.Source.Poll(ctx, pollTimeout)
		if err != nil {
			if errors.Is(err, domain.ErrHardwareFault) {
				obs.LogError("source_failed", err, name)
				return fmt.Errorf("stream %s: %w", st.Name, err)
			}
			if ctx.Err() != nil {
				return nil
			}
			obs.IncCounter(ports.MetricCaptureFailed, st.Name, 1)
			obs.LogWarn("capture_failed", err, name)
			continue
		}

		flushBacklog(ctx, st)

		if sample == nil {
			continue
		}
		obs.IncCounter(ports.MetricSamplesPolled, st.Name, 1)

		at := sample.ObservedAt()
		if !st.Governor.Admit(at) {
			obs.IncCounter(ports.MetricSamplesDropped, st.Name, 1)
			obs.LogDebug("sample_dropped", name,
				ports.Field{Key: "min_interval", Value: st.Governor.Interval()},
				ports.Field{Key: "since_admitted", Value: at.Sub(st.Governor.LastAdmitted())},
			)
			continue
		}
		obs.IncCounter(ports.MetricSamplesAdmitted, st.Name, 1)
		obs.LogDebug("sample_admitted", name, ports.Field{Key: "kind", Value: sample.Kind.String()})

		payload, err := st.Encoder.Encode(sample)
		if err != nil {
			obs.IncCounter(ports.MetricEncodeFailed, st.Name, 1)
			obs.LogWarn("encode_failed", err, name)
			continue
		}

		if err := publish(ctx, st, payload); err != nil {
			obs.LogWarn("publish_failed", err, name, ports.Field{Key: "topic", Value: payload.Topic})
			if ctx.Err() == nil && !enqueueWithPolicy(st.Backlog, payload, st.Policy, obs, st.Name) && st.Policy.BacklogLen > 0 {
				obs.IncCounter(ports.MetricBacklogDropped, st.Name, 1)
			}
			setBacklogGauge(st)
		}
	}
	return nil
}

func publish(ctx context.Context, st Stream, p *domain.Payload) error {
	start := time.Now()
	err := st.Publisher.Publish(ctx, p)
	st.Obs.ObserveLatency(ports.MetricPublishLatency, st.Name, time.Since(start).Seconds())
	if err != nil {
		st.Obs.IncCounter(ports.MetricPublishFailed, st.Name, 1)
		return err
	}
	st.Obs.IncCounter(ports.MetricPayloadsPublished, st.Name, 1)
	st.Obs.Observe(ports.MetricPayloadBytes, st.Name, float64(p.Size()))
	st.Obs.LogInfo("payload_published",
		ports.Field{Key: "stream", Value: st.Name},
		ports.Field{Key: "topic", Value: p.Topic},
		ports.Field{Key: "bytes", Value: p.Size()},
	)
	return nil
}

// flushBacklog republishes queued payloads oldest first while the link is up.
func flushBacklog(ctx context.Context, st Stream) {
	if st.Backlog == nil || st.Backlog.Len() == 0 || !st.Publisher.Connected() {
		return
	}
	defer setBacklogGauge(st)

	for ctx.Err() == nil {
		p := st.Backlog.Peek()
		if p == nil {
			return
		}
		if err := publish(ctx, st, p); err != nil {
			st.Obs.LogWarn("backlog_flush_failed", err, ports.Field{Key: "stream", Value: st.Name})
			return
		}
		st.Backlog.Dequeue()
	}
}

func enqueueWithPolicy(q ports.PayloadQueue, p *domain.Payload, pol ports.Policy, obs ports.Observability, stream string) bool {
	if q == nil || pol.BacklogLen <= 0 {
		return false
	}
	if q.Enqueue(p) {
		return true
	}

	switch pol.OnBacklogFull {
	case "drop_oldest", "":
		q.DropOldest()
		obs.IncCounter(ports.MetricBacklogDropped, stream, 1)
		obs.LogWarn("backlog_full_drop_oldest", fmt.Errorf("backlog capacity %d", pol.BacklogLen),
			ports.Field{Key: "stream", Value: stream})
		return q.Enqueue(p)
	case "reject":
		obs.LogWarn("backlog_full_reject", fmt.Errorf("backlog capacity %d", pol.BacklogLen),
			ports.Field{Key: "stream", Value: stream})
		return false
	default:
		obs.LogError("backlog_policy_invalid", fmt.Errorf("policy=%s", pol.OnBacklogFull),
			ports.Field{Key: "stream", Value: stream})
		return false
	}
}

func setBacklogGauge(st Stream) {
	if st.Backlog != nil {
		st.Obs.SetGauge(ports.MetricBacklogLength, st.Name, float64(st.Backlog.Len()))
	}
}
