package logging

import "log/slog"

// Common field names for consistent logging across the agent.
const (
	FieldService = "service"
	FieldStream  = "stream"
	FieldSession = "session"
	FieldTopic   = "topic"
	FieldState   = "state"
	FieldAttempt = "attempt"
	FieldDelay   = "delay"
	FieldBytes   = "bytes"
	FieldError   = "error"
)

func Service(name string) slog.Attr {
	return slog.String(FieldService, name)
}

func Stream(name string) slog.Attr {
	return slog.String(FieldStream, name)
}

func Session(name string) slog.Attr {
	return slog.String(FieldSession, name)
}

func Topic(topic string) slog.Attr {
	return slog.String(FieldTopic, topic)
}

// Error returns a slog attribute for an error; nil errors render as "".
func Error(err error) slog.Attr {
	if err == nil {
		return slog.String(FieldError, "")
	}
	return slog.String(FieldError, err.Error())
}
