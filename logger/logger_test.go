package logger

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func jsonLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: FormatJSON}, "svc", buf)
}

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]interface{} {
	t.Helper()
	var m map[string]interface{}
	line := strings.TrimSpace(buf.String())
	if err := json.Unmarshal([]byte(line), &m); err != nil {
		t.Fatalf("invalid json log line %q: %v", line, err)
	}
	return m
}

func TestLogger_JSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "debug").WithComponent("query")

	l.Info("cache hit", Fields("key", `["users","list"]`, "attempt", 1))

	m := decodeLine(t, &buf)
	if m["message"] != "cache hit" {
		t.Errorf("unexpected message %v", m["message"])
	}
	if m[FieldComponent] != "query" || m[FieldService] != "svc" {
		t.Errorf("missing tags: %v", m)
	}
	if m["key"] != `["users","list"]` {
		t.Errorf("missing field: %v", m)
	}
}

func TestLogger_LevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "warn")

	l.Debug("hidden")
	l.Info("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}
	l.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Error("expected warn output")
	}
	if l.Enabled(zerolog.DebugLevel) {
		t.Error("debug should be disabled at warn")
	}
}

func TestLogger_InvalidLevelFallsBackToInfo(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "loud")
	l.Debug("hidden")
	l.Info("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Errorf("unexpected output %q", buf.String())
	}
}

func TestLogger_WithError(t *testing.T) {
	var buf bytes.Buffer
	jsonLogger(&buf, "info").WithError(errors.New("boom")).Error("failed")
	if m := decodeLine(t, &buf); m["error"] != "boom" {
		t.Errorf("expected error field, got %v", m)
	}
}

func TestLogger_Nop(t *testing.T) {
	Nop().Error("nothing", Fields("a", 1))
}

func TestOrGlobal(t *testing.T) {
	var buf bytes.Buffer
	l := jsonLogger(&buf, "info")
	SetGlobal(l)
	defer SetGlobal(nil)

	if OrGlobal(nil) != l {
		t.Error("expected the global logger")
	}
	other := Nop()
	if OrGlobal(other) != other {
		t.Error("expected the explicit logger")
	}
}

func TestConfig_DefaultsAndValidate(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()
	if cfg.Level != "info" || cfg.Format != FormatConsole || cfg.Output != "stderr" {
		t.Errorf("unexpected defaults %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}

	cfg.Format = "xml"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid format error")
	}
	cfg.Format = FormatJSON
	cfg.Level = "verbose"
	if err := cfg.Validate(); err == nil {
		t.Error("expected invalid level error")
	}
}

func TestFieldHelpers(t *testing.T) {
	f := Fields("a", 1, "b")
	if len(f) != 1 || f["a"] != 1 {
		t.Errorf("odd trailing key should be dropped: %v", f)
	}
	if ErrorFields("op", errors.New("x"))[FieldError] != "x" {
		t.Error("ErrorFields missing error")
	}
	if DurationFields("op", 2*time.Second)[FieldDuration] != int64(2000) {
		t.Error("DurationFields should be milliseconds")
	}
}
