package config

import (
	"errors"
	"fmt"

	"github.com/ghalamif/AegisWatch/internal/domain"
	"github.com/ghalamif/AegisWatch/internal/logging"
)

// Validate reports every problem at once, joined under domain.ErrConfig.
func (c *Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf(format, args...))
	}

	if !c.Alerts.Enabled && !c.Camera.Enabled {
		bad("at least one of alerts.enabled or camera.enabled must be true")
	}

	if !c.DryRun {
		if c.MQTT.Host == "" {
			bad("mqtt.host is required (or MQTT_BROKER)")
		}
		if c.MQTT.Port <= 0 || c.MQTT.Port > 65535 {
			bad("mqtt.port %d out of range", c.MQTT.Port)
		}
		if c.MQTT.Username != "" && c.MQTT.Password == "" {
			bad("mqtt.password is required when mqtt.username is set")
		}
		if (c.MQTT.CertFile == "") != (c.MQTT.KeyFile == "") {
			bad("mqtt.cert_file and mqtt.key_file must be set together")
		}
	}
	if c.MQTT.KeepAlive <= 0 {
		bad("mqtt.keep_alive must be positive")
	}
	if c.MQTT.PublishTimeout <= 0 {
		bad("mqtt.publish_timeout must be positive")
	}

	b := c.Session.Backoff
	if b.Initial <= 0 || b.Max < b.Initial {
		bad("session.backoff requires 0 < initial <= max")
	}
	if b.Multiplier < 1 {
		bad("session.backoff.multiplier must be >= 1")
	}
	if b.Jitter < 0 || b.Jitter >= 1 {
		bad("session.backoff.jitter must be in [0, 1)")
	}
	if c.Session.ShutdownTimeout <= 0 {
		bad("session.shutdown_timeout must be positive")
	}

	if c.Alerts.Enabled {
		if c.Alerts.Topic == "" {
			bad("alerts.topic is required")
		}
		if c.Alerts.Pin == "" && !c.Simulate {
			bad("alerts.pin is required (or GPIO_PIN)")
		}
		if c.Alerts.Cooldown < 0 || c.Alerts.Debounce < 0 {
			bad("alerts.cooldown and alerts.debounce must not be negative")
		}
		if c.Alerts.PollTimeout <= 0 || c.Alerts.PollInterval <= 0 {
			bad("alerts.poll_timeout and alerts.poll_interval must be positive")
		}
		validateQoS("alerts.qos", c.Alerts.QoS, bad)
		validateBacklog("alerts", c.Alerts.Backlog, c.Alerts.OnBacklogFull, bad)
	}

	if c.Camera.Enabled {
		if c.Camera.Topic == "" {
			bad("camera.topic is required")
		}
		if c.Camera.Width <= 0 || c.Camera.Height <= 0 {
			bad("camera.width and camera.height must be positive")
		}
		if c.Camera.FrameRate <= 0 {
			bad("camera.frame_rate must be positive")
		}
		if c.Camera.JPEGQuality < 1 || c.Camera.JPEGQuality > 100 {
			bad("camera.jpeg_quality %d not in 1..100", c.Camera.JPEGQuality)
		}
		if _, ok := domain.ParsePixelFormat(c.Camera.Format); !ok {
			bad("camera.format %q is not supported", c.Camera.Format)
		}
		if c.Camera.PollTimeout <= 0 {
			bad("camera.poll_timeout must be positive")
		}
		if c.Camera.MaxPayloadBytes <= 0 {
			bad("camera.max_payload_bytes must be positive")
		}
		validateQoS("camera.qos", c.Camera.QoS, bad)
		validateBacklog("camera", c.Camera.Backlog, c.Camera.OnBacklogFull, bad)
	}

	if c.Heartbeat.Interval < 0 {
		bad("heartbeat.interval must not be negative")
	}
	if !logging.ValidLevel(c.Log.Level) {
		bad("log.level %q must be debug, info, warn or error", c.Log.Level)
	}
	if c.Log.Format != "json" && c.Log.Format != "text" {
		bad("log.format %q must be json or text", c.Log.Format)
	}

	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", domain.ErrConfig, errors.Join(errs...))
}

func validateQoS(key string, qos int, bad func(string, ...any)) {
	if qos < 0 || qos > 2 {
		bad("%s %d not in 0..2", key, qos)
	}
}

func validateBacklog(stream string, n int, policy string, bad func(string, ...any)) {
	if n < 0 {
		bad("%s.backlog must not be negative", stream)
	}
	if policy != BacklogDropOldest && policy != BacklogReject {
		bad("%s.on_backlog_full %q must be %s or %s", stream, policy, BacklogDropOldest, BacklogReject)
	}
}
