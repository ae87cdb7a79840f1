package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal log line %q: %v", buf.String(), err)
	}
	return m
}

func TestZerologAdapter_Fields(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf))

	l.Info("bound",
		Port(9877),
		PID(42),
		Command("ping"),
		Bool("explicit", false),
		Duration("poll", 500*time.Millisecond),
		Err(errors.New("boom")),
	)

	m := decodeLine(t, &buf)
	if m["message"] != "bound" {
		t.Errorf("message = %v, want bound", m["message"])
	}
	if m["level"] != "info" {
		t.Errorf("level = %v, want info", m["level"])
	}
	if m["port"] != float64(9877) {
		t.Errorf("port = %v, want 9877", m["port"])
	}
	if m["pid"] != float64(42) {
		t.Errorf("pid = %v, want 42", m["pid"])
	}
	if m["command"] != "ping" {
		t.Errorf("command = %v, want ping", m["command"])
	}
	if m["error"] != "boom" {
		t.Errorf("error = %v, want boom", m["error"])
	}
}

func TestZerologAdapter_With(t *testing.T) {
	var buf bytes.Buffer
	base := NewZerologAdapterWithLogger(zerolog.New(&buf))

	scoped := base.With(String("conn", "abc"), Err(errors.New("ctx err")))
	scoped.Warn("dropped")

	m := decodeLine(t, &buf)
	if m["conn"] != "abc" {
		t.Errorf("conn = %v, want abc", m["conn"])
	}
	if m["error"] != "ctx err" {
		t.Errorf("error = %v, want ctx err", m["error"])
	}
	if m["level"] != "warn" {
		t.Errorf("level = %v, want warn", m["level"])
	}
}

func TestZerologAdapter_LevelFilter(t *testing.T) {
	var buf bytes.Buffer
	l := NewZerologAdapterWithLogger(zerolog.New(&buf).Level(zerolog.WarnLevel))

	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(NoopLogger); !ok {
		t.Error("OrNoop(nil) should return NoopLogger")
	}
	z := NewZerologAdapter()
	if OrNoop(z) != Logger(z) {
		t.Error("OrNoop should return the given logger")
	}
	// Noop must accept everything without panicking.
	n := NewNoopLogger().With(Port(1))
	n.Error("x", Err(nil))
}
