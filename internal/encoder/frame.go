package encoder

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"image/jpeg"
	"time"

	"github.com/ghalamif/AegisWatch/internal/domain"
)

const (
	// FrameTimeLayout is ISO-8601 UTC with microsecond precision.
	FrameTimeLayout = "2006-01-02T15:04:05.000000Z"

	DefaultMaxPayloadBytes = 512 * 1024
	DefaultJPEGQuality     = 80
)

// FrameRecord is the wire shape of a camera frame.
type FrameRecord struct {
	Timestamp string `json:"timestamp"`
	Image     string `json:"image"`
}

type FrameConfig struct {
	Topic    string
	Quality  int
	QoS      byte
	Retained bool
	// MaxFrameBytes caps the raw pixel buffer; zero derives it from
	// MaxPayloadBytes assuming RGB24 at the worst compression ratio.
	MaxFrameBytes   int
	MaxPayloadBytes int
}

// Frame JPEG-encodes raw frames and wraps them in a base64 JSON record.
type Frame struct {
	cfg FrameConfig
}

func NewFrame(cfg FrameConfig) *Frame {
	if cfg.Quality <= 0 || cfg.Quality > 100 {
		cfg.Quality = DefaultJPEGQuality
	}
	if cfg.MaxPayloadBytes <= 0 {
		cfg.MaxPayloadBytes = DefaultMaxPayloadBytes
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = 4096 * 3072 * 3
	}
	return &Frame{cfg: cfg}
}

func (f *Frame) Encode(s *domain.Sample) (*domain.Payload, error) {
	if s == nil || s.Kind != domain.KindFrame || s.Frame == nil {
		return nil, fmt.Errorf("frame encoder: %w: want frame sample", domain.ErrUnsupported)
	}
	fr := s.Frame
	if len(fr.Pixels) > f.cfg.MaxFrameBytes {
		return nil, fmt.Errorf("frame encoder: %w: raw frame %d bytes exceeds %d",
			domain.ErrTooLarge, len(fr.Pixels), f.cfg.MaxFrameBytes)
	}

	img, err := ToImage(fr)
	if err != nil {
		return nil, err
	}

	var jpg bytes.Buffer
	if err := jpeg.Encode(&jpg, img, &jpeg.Options{Quality: f.cfg.Quality}); err != nil {
		return nil, fmt.Errorf("frame encoder: jpeg: %w", err)
	}

	// Bail out before base64 inflates the buffer by a third.
	if base64.StdEncoding.EncodedLen(jpg.Len()) > f.cfg.MaxPayloadBytes {
		return nil, fmt.Errorf("frame encoder: %w: jpeg %d bytes", domain.ErrTooLarge, jpg.Len())
	}

	at := fr.CapturedAt
	if at.IsZero() {
		at = time.Now()
	}
	body, err := json.Marshal(FrameRecord{
		Timestamp: at.UTC().Format(FrameTimeLayout),
		Image:     base64.StdEncoding.EncodeToString(jpg.Bytes()),
	})
	if err != nil {
		return nil, fmt.Errorf("frame encoder: marshal: %w", err)
	}
	if len(body) > f.cfg.MaxPayloadBytes {
		return nil, fmt.Errorf("frame encoder: %w: body %d bytes", domain.ErrTooLarge, len(body))
	}
	return &domain.Payload{
		Topic:     f.cfg.Topic,
		Body:      body,
		QoS:       f.cfg.QoS,
		Retained:  f.cfg.Retained,
		CreatedAt: at,
	}, nil
}
