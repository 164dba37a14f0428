package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestNewJSONHandlerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "json", &buf)

	logger.Info("hidden")
	logger.Warn("shown", Stream("alerts"))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected exactly one log line, got %d: %q", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if rec["msg"] != "shown" {
		t.Fatalf("expected msg shown, got %v", rec["msg"])
	}
	if rec[FieldStream] != "alerts" {
		t.Fatalf("expected stream attr, got %v", rec[FieldStream])
	}
}

func TestNewTextHandler(t *testing.T) {
	var buf bytes.Buffer
	New("debug", "text", &buf).Debug("hello", Topic("alerts/critical"))
	if !strings.Contains(buf.String(), "topic=alerts/critical") {
		t.Fatalf("expected text output with topic, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"WARNING": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"bogus":   slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestError(t *testing.T) {
	attr := Error(errors.New("boom"))
	if attr.Key != FieldError || attr.Value.String() != "boom" {
		t.Errorf("unexpected attr %v", attr)
	}
	if Error(nil).Value.String() != "" {
		t.Errorf("nil error should render empty")
	}
}
