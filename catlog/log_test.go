package catlog

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"
)

func newTestLogger(buf *bytes.Buffer, level slog.Level) *Logger {
	h := slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: level})
	return NewWithHandler(h)
}

func TestLoggerModule(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelDebug)
	child := l.Module("hierarchy")

	child.Info("dispatching")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v (raw: %s)", err, buf.String())
	}
	if entry["module"] != "hierarchy" {
		t.Fatalf("module = %v, want %q", entry["module"], "hierarchy")
	}
	if entry["msg"] != "dispatching" {
		t.Fatalf("msg = %v, want %q", entry["msg"], "dispatching")
	}
}

func TestLoggerModuleChain(t *testing.T) {
	var buf bytes.Buffer
	l := newTestLogger(&buf, slog.LevelDebug)
	child := l.Module("tracedriver").With("core", 2)

	child.Info("sim boundary reached")

	var entry map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("unmarshal: %v (raw: %s)", err, buf.String())
	}
	if entry["module"] != "tracedriver" {
		t.Fatalf("module = %v, want %q", entry["module"], "tracedriver")
	}
	if entry["core"] != float64(2) {
		t.Fatalf("core = %v, want 2", entry["core"])
	}
}

func TestDefaultLoggerSettable(t *testing.T) {
	var buf bytes.Buffer
	orig := Default()
	defer SetDefault(orig)

	SetDefault(newTestLogger(&buf, slog.LevelDebug))
	Info("hello")

	if buf.Len() == 0 {
		t.Fatal("expected package-level Info to write through the new default logger")
	}
}
