package pipeline

import (
	"context"
	"time"

	"github.com/ghalamif/AegisWatch/internal/encoder"
	"github.com/ghalamif/AegisWatch/internal/ports"
)

const heartbeatStream = "heartbeat"

// Heartbeat publishes a retained device status on Topic.
type Heartbeat struct {
	Device    string
	Topic     string
	QoS       byte
	Interval  time.Duration
	Publisher ports.Publisher
	Probe     ports.HostProbe
	// Sessions reports session name to state; may be nil.
	Sessions func() map[string]string
	Obs      ports.Observability
}

// RunHeartbeat sends "online" as soon as the publisher is connected and
// again every Interval, resending right after a reconnect. On shutdown it
// publishes "offline" if the link is still up.
func RunHeartbeat(ctx context.Context, hb Heartbeat) error {
	if hb.Interval <= 0 {
		return nil
	}
	check := min(hb.Interval, time.Second)
	ticker := time.NewTicker(check)
	defer ticker.Stop()

	var (
		due    time.Time
		online bool
	)
	for {
		now := time.Now()
		if !hb.Publisher.Connected() {
			online = false
		} else if !online || !now.Before(due) {
			if err := sendStatus(ctx, hb, encoder.StatusOnline, now); err == nil {
				online = true
				due = now.Add(hb.Interval)
			}
		}

		select {
		case <-ctx.Done():
			if hb.Publisher.Connected() {
				sctx, cancel := context.WithTimeout(context.Background(), time.Second)
				_ = sendStatus(sctx, hb, encoder.StatusOffline, time.Now())
				cancel()
			}
			return nil
		case <-ticker.C:
		}
	}
}

func sendStatus(ctx context.Context, hb Heartbeat, status string, at time.Time) error {
	rec := encoder.StatusRecord{Device: hb.Device, Status: status}
	if hb.Probe != nil {
		st, err := hb.Probe.Collect(ctx)
		if err != nil {
			hb.Obs.LogDebug("host_stats_partial", ports.Field{Key: "error", Value: err.Error()})
		}
		rec.HostStats = st
	}
	if hb.Sessions != nil {
		rec.Sessions = hb.Sessions()
	}
	p, err := encoder.Status(hb.Topic, hb.QoS, rec, at)
	if err != nil {
		hb.Obs.LogWarn("status_encode_failed", err)
		return err
	}
	if err := hb.Publisher.Publish(ctx, p); err != nil {
		hb.Obs.LogWarn("status_publish_failed", err, ports.Field{Key: "topic", Value: hb.Topic})
		return err
	}
	hb.Obs.IncCounter(ports.MetricHeartbeatsPublished, heartbeatStream, 1)
	hb.Obs.LogDebug("status_published", ports.Field{Key: "status", Value: status})
	return nil
}
