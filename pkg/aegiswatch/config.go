package aegiswatch

import (
	"github.com/ghalamif/AegisWatch/internal/app/config"
)

// Config re-exports the root configuration struct so downstream projects can
// construct or modify it programmatically.
type Config = config.Config

type (
	DeviceConfig    = config.DeviceConfig
	MQTTConfig      = config.MQTTConfig
	SessionConfig   = config.SessionConfig
	BackoffConfig   = config.BackoffConfig
	AlertsConfig    = config.AlertsConfig
	CameraConfig    = config.CameraConfig
	HeartbeatConfig = config.HeartbeatConfig
	MetricsConfig   = config.MetricsConfig
	LogConfig       = config.LogConfig
)

// LoadConfig reads defaults, the optional YAML file at path and the
// environment. overrides are applied last using dotted keys ("dry_run",
// "mqtt.host", ...).
func LoadConfig(path string, overrides map[string]any) (*Config, error) {
	return config.Load(path, overrides)
}
