package aegiswatch

import (
	"github.com/ghalamif/AegisWatch/internal/domain"
	"github.com/ghalamif/AegisWatch/internal/ports"
)

// Sample is one observation from a source: a digital edge or a raw frame.
type Sample = domain.Sample

// DigitalEvent is the payload of a digital sample.
type DigitalEvent = domain.DigitalEvent

// Frame is the payload of a frame sample.
type Frame = domain.Frame

// PixelFormat names the memory layout of Frame.Pixels.
type PixelFormat = domain.PixelFormat

// Payload is an encoded message bound for a topic.
type Payload = domain.Payload

// Source produces samples from a sensor. Implement it to feed the agent from
// hardware AegisWatch does not ship a driver for.
type Source = ports.Source

// Encoder turns samples into payloads.
type Encoder = ports.Encoder

// Governor decides how often a stream may publish.
type Governor = ports.Governor

// Transport is a single broker connection owned by a session.
type Transport = ports.Transport

// Publisher is what a stream publishes through.
type Publisher = ports.Publisher

// PayloadQueue buffers payloads that could not be published.
type PayloadQueue = ports.PayloadQueue

// HostProbe reads device health for the status heartbeat.
type HostProbe = ports.HostProbe

// HostStats is a single host health reading.
type HostStats = domain.HostStats

// Observability emits logs and metrics about every stream.
type Observability = ports.Observability

// Field is a structured log field used by Observability implementations.
type Field = ports.Field

// Policy tunes one stream's loop.
type Policy = ports.Policy

// Sentinel errors. Match with errors.Is.
var (
	ErrHardwareFault = domain.ErrHardwareFault
	ErrCaptureFailed = domain.ErrCaptureFailed
	ErrUnsupported   = domain.ErrUnsupported
	ErrTooLarge      = domain.ErrTooLarge
	ErrConnect       = domain.ErrConnect
	ErrPublish       = domain.ErrPublish
	ErrNotConnected  = domain.ErrNotConnected
	ErrSessionClosed = domain.ErrSessionClosed
	ErrConfig        = domain.ErrConfig
)
