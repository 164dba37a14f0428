package domain

import "errors"

var (
	// ErrHardwareFault is fatal to the stream that owns the failing source.
	ErrHardwareFault = errors.New("aegiswatch: hardware fault")
	// ErrCaptureFailed is a transient read failure; the next cycle retries.
	ErrCaptureFailed = errors.New("aegiswatch: capture failed")

	ErrUnsupported = errors.New("aegiswatch: unsupported sample")
	ErrTooLarge    = errors.New("aegiswatch: payload too large")

	ErrConnect       = errors.New("aegiswatch: connect failed")
	ErrPublish       = errors.New("aegiswatch: publish failed")
	ErrNotConnected  = errors.New("aegiswatch: session not connected")
	ErrSessionClosed = errors.New("aegiswatch: session closed")

	ErrConfig = errors.New("aegiswatch: invalid configuration")
)
