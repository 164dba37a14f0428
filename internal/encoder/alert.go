// Package encoder turns samples into transport payloads.
package encoder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

const (
	// AlertTimeLayout is the local wall-clock layout used in alert records.
	AlertTimeLayout = "2006-01-02T15:04:05"
	alertType       = "critical"

	DefaultAlertMessage = "Sound detected by Raspberry Pi!"
	DefaultAlertSource  = "raspberry-pi"
)

// AlertRecord is the wire shape of a critical alert.
type AlertRecord struct {
	Type      string `json:"type"`
	Message   string `json:"message"`
	Source    string `json:"source"`
	Timestamp string `json:"timestamp"`
}

type AlertConfig struct {
	Topic    string
	Message  string
	Source   string
	QoS      byte
	Retained bool
	// Location for the timestamp; nil means time.Local.
	Location *time.Location
	MaxBytes int
}

// Alert encodes digital events as critical alert records.
type Alert struct {
	cfg AlertConfig
}

func NewAlert(cfg AlertConfig) *Alert {
	if cfg.Message == "" {
		cfg.Message = DefaultAlertMessage
	}
	if cfg.Source == "" {
		cfg.Source = DefaultAlertSource
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.MaxBytes <= 0 {
		cfg.MaxBytes = DefaultMaxPayloadBytes
	}
	return &Alert{cfg: cfg}
}

func (a *Alert) Encode(s *domain.Sample) (*domain.Payload, error) {
	if s == nil || s.Kind != domain.KindDigital || s.Digital == nil {
		return nil, fmt.Errorf("alert encoder: %w: want digital sample", domain.ErrUnsupported)
	}
	at := s.Digital.ObservedAt
	if at.IsZero() {
		at = time.Now()
	}
	body, err := json.Marshal(AlertRecord{
		Type:      alertType,
		Message:   a.cfg.Message,
		Source:    a.cfg.Source,
		Timestamp: at.In(a.cfg.Location).Format(AlertTimeLayout),
	})
	if err != nil {
		return nil, fmt.Errorf("alert encoder: marshal: %w", err)
	}
	if len(body) > a.cfg.MaxBytes {
		return nil, fmt.Errorf("alert encoder: %w: %d bytes", domain.ErrTooLarge, len(body))
	}
	return &domain.Payload{
		Topic:     a.cfg.Topic,
		Body:      body,
		QoS:       a.cfg.QoS,
		Retained:  a.cfg.Retained,
		CreatedAt: at,
	}, nil
}
