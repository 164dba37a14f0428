// Package config loads the agent configuration from defaults, an optional
// YAML file and the environment.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/ghalamif/AegisWatch/internal/domain"
	"github.com/ghalamif/AegisWatch/internal/ports"
)

const (
	EnvPrefix = "AEGIS"

	BacklogDropOldest = "drop_oldest"
	BacklogReject     = "reject"
)

type Config struct {
	Device    DeviceConfig    `mapstructure:"device" yaml:"device"`
	MQTT      MQTTConfig      `mapstructure:"mqtt" yaml:"mqtt"`
	Session   SessionConfig   `mapstructure:"session" yaml:"session"`
	Alerts    AlertsConfig    `mapstructure:"alerts" yaml:"alerts"`
	Camera    CameraConfig    `mapstructure:"camera" yaml:"camera"`
	Heartbeat HeartbeatConfig `mapstructure:"heartbeat" yaml:"heartbeat"`
	Metrics   MetricsConfig   `mapstructure:"metrics" yaml:"metrics"`
	Log       LogConfig       `mapstructure:"log" yaml:"log"`

	// Simulate swaps hardware sources for synthetic ones.
	Simulate bool `mapstructure:"simulate" yaml:"simulate"`
	// DryRun publishes to the log instead of a broker.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`
}

type DeviceConfig struct {
	ID string `mapstructure:"id" yaml:"id"`
}

type MQTTConfig struct {
	Host               string        `mapstructure:"host" yaml:"host"`
	Port               int           `mapstructure:"port" yaml:"port"`
	Username           string        `mapstructure:"username" yaml:"username"`
	Password           string        `mapstructure:"password" yaml:"password"`
	TLS                bool          `mapstructure:"tls" yaml:"tls"`
	CAFile             string        `mapstructure:"ca_file" yaml:"ca_file"`
	CertFile           string        `mapstructure:"cert_file" yaml:"cert_file"`
	KeyFile            string        `mapstructure:"key_file" yaml:"key_file"`
	ServerName         string        `mapstructure:"server_name" yaml:"server_name"`
	InsecureSkipVerify bool          `mapstructure:"insecure_skip_verify" yaml:"insecure_skip_verify"`
	KeepAlive          time.Duration `mapstructure:"keep_alive" yaml:"keep_alive"`
	PublishTimeout     time.Duration `mapstructure:"publish_timeout" yaml:"publish_timeout"`
}

type BackoffConfig struct {
	Initial    time.Duration `mapstructure:"initial" yaml:"initial"`
	Max        time.Duration `mapstructure:"max" yaml:"max"`
	Multiplier float64       `mapstructure:"multiplier" yaml:"multiplier"`
	Jitter     float64       `mapstructure:"jitter" yaml:"jitter"`
}

type SessionConfig struct {
	// Shared publishes both streams over one connection.
	Shared          bool          `mapstructure:"shared" yaml:"shared"`
	Backoff         BackoffConfig `mapstructure:"backoff" yaml:"backoff"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
}

type AlertsConfig struct {
	Enabled       bool          `mapstructure:"enabled" yaml:"enabled"`
	Topic         string        `mapstructure:"topic" yaml:"topic"`
	QoS           int           `mapstructure:"qos" yaml:"qos"`
	Pin           string        `mapstructure:"pin" yaml:"pin"`
	Pull          string        `mapstructure:"pull" yaml:"pull"`
	ActiveLow     bool          `mapstructure:"active_low" yaml:"active_low"`
	Debounce      time.Duration `mapstructure:"debounce" yaml:"debounce"`
	Cooldown      time.Duration `mapstructure:"cooldown" yaml:"cooldown"`
	PollInterval  time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PollTimeout   time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	Message       string        `mapstructure:"message" yaml:"message"`
	Source        string        `mapstructure:"source" yaml:"source"`
	Backlog       int           `mapstructure:"backlog" yaml:"backlog"`
	OnBacklogFull string        `mapstructure:"on_backlog_full" yaml:"on_backlog_full"`
	// SimulatePeriod is the synthetic trigger period in simulate mode.
	SimulatePeriod time.Duration `mapstructure:"simulate_period" yaml:"simulate_period"`
}

type CameraConfig struct {
	Enabled         bool          `mapstructure:"enabled" yaml:"enabled"`
	Topic           string        `mapstructure:"topic" yaml:"topic"`
	QoS             int           `mapstructure:"qos" yaml:"qos"`
	Width           int           `mapstructure:"width" yaml:"width"`
	Height          int           `mapstructure:"height" yaml:"height"`
	FrameRate       float64       `mapstructure:"frame_rate" yaml:"frame_rate"`
	JPEGQuality     int           `mapstructure:"jpeg_quality" yaml:"jpeg_quality"`
	Format          string        `mapstructure:"format" yaml:"format"`
	Pipeline        string        `mapstructure:"pipeline" yaml:"pipeline"`
	PollTimeout     time.Duration `mapstructure:"poll_timeout" yaml:"poll_timeout"`
	MaxFrameBytes   int           `mapstructure:"max_frame_bytes" yaml:"max_frame_bytes"`
	MaxPayloadBytes int           `mapstructure:"max_payload_bytes" yaml:"max_payload_bytes"`
	Backlog         int           `mapstructure:"backlog" yaml:"backlog"`
	OnBacklogFull   string        `mapstructure:"on_backlog_full" yaml:"on_backlog_full"`
}

type HeartbeatConfig struct {
	// Interval of zero disables the heartbeat.
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
	Topic    string        `mapstructure:"topic" yaml:"topic"`
	DiskPath string        `mapstructure:"disk_path" yaml:"disk_path"`
}

type MetricsConfig struct {
	Addr string `mapstructure:"addr" yaml:"addr"`
}

type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// legacyEnv maps keys to the variable names used by the original device
// scripts. AEGIS_* names always take precedence.
var legacyEnv = map[string]string{
	"mqtt.host":           "MQTT_BROKER",
	"mqtt.port":           "MQTT_PORT",
	"mqtt.username":       "MQTT_USERNAME",
	"mqtt.password":       "MQTT_PASSWORD",
	"camera.topic":        "MQTT_TOPIC",
	"alerts.topic":        "ALERT_TOPIC",
	"alerts.pin":          "GPIO_PIN",
	"alerts.cooldown":     "ALERT_COOLDOWN",
	"camera.width":        "FRAME_WIDTH",
	"camera.height":       "FRAME_HEIGHT",
	"camera.frame_rate":   "FRAME_RATE",
	"camera.jpeg_quality": "JPEG_QUALITY",
}

// Load reads defaults, then path (if non-empty), then the environment, then
// overrides. The result is validated; failures wrap domain.ErrConfig.
func Load(path string, overrides map[string]any) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("%w: read %s: %v", domain.ErrConfig, path, err)
		}
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, legacy := range legacyEnv {
		modern := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, modern, legacy); err != nil {
			return nil, fmt.Errorf("%w: bind %s: %v", domain.ErrConfig, key, err)
		}
	}

	for k, val := range overrides {
		v.Set(k, val)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, viper.DecodeHook(decodeHook())); err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrConfig, err)
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("device.id", "")

	v.SetDefault("mqtt.host", "")
	v.SetDefault("mqtt.port", 8883)
	v.SetDefault("mqtt.username", "")
	v.SetDefault("mqtt.password", "")
	v.SetDefault("mqtt.tls", true)
	v.SetDefault("mqtt.ca_file", "")
	v.SetDefault("mqtt.cert_file", "")
	v.SetDefault("mqtt.key_file", "")
	v.SetDefault("mqtt.server_name", "")
	v.SetDefault("mqtt.insecure_skip_verify", false)
	v.SetDefault("mqtt.keep_alive", 60*time.Second)
	v.SetDefault("mqtt.publish_timeout", 5*time.Second)

	v.SetDefault("session.shared", false)
	v.SetDefault("session.backoff.initial", time.Second)
	v.SetDefault("session.backoff.max", 30*time.Second)
	v.SetDefault("session.backoff.multiplier", 2.0)
	v.SetDefault("session.backoff.jitter", 0.2)
	v.SetDefault("session.shutdown_timeout", 5*time.Second)

	v.SetDefault("alerts.enabled", true)
	v.SetDefault("alerts.topic", "alerts/critical")
	v.SetDefault("alerts.qos", 1)
	v.SetDefault("alerts.pin", "21")
	v.SetDefault("alerts.pull", "down")
	v.SetDefault("alerts.active_low", false)
	v.SetDefault("alerts.debounce", time.Duration(0))
	v.SetDefault("alerts.cooldown", time.Second)
	v.SetDefault("alerts.poll_interval", 100*time.Millisecond)
	v.SetDefault("alerts.poll_timeout", 500*time.Millisecond)
	v.SetDefault("alerts.message", "Sound detected by Raspberry Pi!")
	v.SetDefault("alerts.source", "raspberry-pi")
	v.SetDefault("alerts.backlog", 16)
	v.SetDefault("alerts.on_backlog_full", BacklogDropOldest)
	v.SetDefault("alerts.simulate_period", 5*time.Second)

	v.SetDefault("camera.enabled", true)
	v.SetDefault("camera.topic", "camera/stream")
	v.SetDefault("camera.qos", 0)
	v.SetDefault("camera.width", 640)
	v.SetDefault("camera.height", 480)
	v.SetDefault("camera.frame_rate", 10.0)
	v.SetDefault("camera.jpeg_quality", 80)
	v.SetDefault("camera.format", string(domain.PixelRGB24))
	v.SetDefault("camera.pipeline", "")
	v.SetDefault("camera.poll_timeout", 2*time.Second)
	v.SetDefault("camera.max_frame_bytes", 0)
	v.SetDefault("camera.max_payload_bytes", 512*1024)
	v.SetDefault("camera.backlog", 0)
	v.SetDefault("camera.on_backlog_full", BacklogDropOldest)

	v.SetDefault("heartbeat.interval", 60*time.Second)
	v.SetDefault("heartbeat.topic", "")
	v.SetDefault("heartbeat.disk_path", "/")

	v.SetDefault("metrics.addr", ":9100")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")

	v.SetDefault("simulate", false)
	v.SetDefault("dry_run", false)
}

func (c *Config) applyDefaults() {
	if c.Device.ID == "" {
		if h, err := os.Hostname(); err == nil && h != "" {
			c.Device.ID = h
		} else {
			c.Device.ID = "raspberry-pi"
		}
	}
	if c.Heartbeat.Topic == "" {
		c.Heartbeat.Topic = "devices/" + c.Device.ID + "/status"
	}
	if c.MQTT.ServerName == "" {
		c.MQTT.ServerName = c.MQTT.Host
	}
	if c.Camera.MaxFrameBytes == 0 {
		if f, ok := domain.ParsePixelFormat(c.Camera.Format); ok {
			c.Camera.MaxFrameBytes, _ = f.FrameSize(c.Camera.Width, c.Camera.Height)
		}
	}
}

// AlertPolicy returns the loop policy for the alert stream.
func (c *Config) AlertPolicy() ports.Policy {
	return ports.Policy{
		PollTimeout:   c.Alerts.PollTimeout,
		BacklogLen:    c.Alerts.Backlog,
		OnBacklogFull: c.Alerts.OnBacklogFull,
	}
}

// CameraPolicy returns the loop policy for the camera stream.
func (c *Config) CameraPolicy() ports.Policy {
	return ports.Policy{
		PollTimeout:   c.Camera.PollTimeout,
		BacklogLen:    c.Camera.Backlog,
		OnBacklogFull: c.Camera.OnBacklogFull,
	}
}

// PixelFormat returns the parsed camera format. Validate guarantees it is known.
func (c *Config) PixelFormat() domain.PixelFormat {
	f, _ := domain.ParsePixelFormat(c.Camera.Format)
	return f
}
