package encoder

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// StatusRecord is the retained device status message.
type StatusRecord struct {
	Device    string `json:"device"`
	Status    string `json:"status"`
	Timestamp string `json:"timestamp"`
	domain.HostStats
	Sessions map[string]string `json:"sessions,omitempty"`
}

// Status builds a retained status payload for topic.
func Status(topic string, qos byte, rec StatusRecord, at time.Time) (*domain.Payload, error) {
	rec.Timestamp = at.UTC().Format(time.RFC3339)
	body, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("status encoder: marshal: %w", err)
	}
	return &domain.Payload{Topic: topic, Body: body, QoS: qos, Retained: true, CreatedAt: at}, nil
}

// OfflineWill is registered with the broker as the last will.
func OfflineWill(topic, device string) *domain.Payload {
	body, _ := json.Marshal(struct {
		Device string `json:"device"`
		Status string `json:"status"`
	}{device, StatusOffline})
	return &domain.Payload{Topic: topic, Body: body, QoS: 1, Retained: true}
}
