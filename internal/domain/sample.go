package domain

import "time"

// SampleKind tags which variant a Sample carries.
type SampleKind uint8

const (
	KindDigital SampleKind = iota + 1
	KindFrame
)

func (k SampleKind) String() string {
	switch k {
	case KindDigital:
		return "digital"
	case KindFrame:
		return "frame"
	default:
		return "unknown"
	}
}

// DigitalEvent is an edge observed on a binary input.
type DigitalEvent struct {
	Level      bool
	ObservedAt time.Time
	Pin        string
}

// Frame is one raw capture from the image sensor. Pixels is owned by the
// pipeline stage currently holding the sample.
type Frame struct {
	Pixels     []byte
	Width      int
	Height     int
	Format     PixelFormat
	CapturedAt time.Time
	Seq        uint64
}

// Sample is the canonical unit of observation in AegisWatch. Exactly one of
// Digital or Frame is set, matching Kind.
type Sample struct {
	Kind    SampleKind
	Digital *DigitalEvent
	Frame   *Frame
}

func NewDigitalSample(ev DigitalEvent) *Sample {
	return &Sample{Kind: KindDigital, Digital: &ev}
}

func NewFrameSample(f Frame) *Sample {
	return &Sample{Kind: KindFrame, Frame: &f}
}

// ObservedAt returns the instant the underlying input was observed.
func (s *Sample) ObservedAt() time.Time {
	if s == nil {
		return time.Time{}
	}
	switch s.Kind {
	case KindDigital:
		if s.Digital != nil {
			return s.Digital.ObservedAt
		}
	case KindFrame:
		if s.Frame != nil {
			return s.Frame.CapturedAt
		}
	}
	return time.Time{}
}
