package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"
)

func newJSONLogger(buf *bytes.Buffer, level string) *Logger {
	return NewWithWriter(&Config{Level: level, Format: "json"}, buf, "desktopeye")
}

func decodeLines(t *testing.T, buf *bytes.Buffer) []map[string]interface{} {
	t.Helper()
	var out []map[string]interface{}
	for _, line := range strings.Split(strings.TrimSpace(buf.String()), "\n") {
		if line == "" {
			continue
		}
		m := map[string]interface{}{}
		if err := json.Unmarshal([]byte(line), &m); err != nil {
			t.Fatalf("decode log line %q failed: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func TestNewDefault(t *testing.T) {
	l := NewDefault("test-svc")
	if l == nil {
		t.Fatal("expected non-nil logger")
	}
	if l.service != "test-svc" {
		t.Errorf("expected service 'test-svc', got %q", l.service)
	}
}

func TestNewInvalidLevel(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "invalid-level")
	l.Info("still logs")
	if !strings.Contains(buf.String(), "still logs") {
		t.Errorf("expected info fallback level, got %q", buf.String())
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "warn")
	l.Debug("hidden")
	l.Info("hidden")
	l.Warn("shown")
	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	if lines[0]["message"] != "shown" {
		t.Errorf("unexpected message %v", lines[0]["message"])
	}
}

func TestFieldsAndComponent(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "debug").WithComponent("orchestrator")
	l.Info("switched", Fields(FieldCapability, "ocr", FieldKind, "tesseract"))

	lines := decodeLines(t, &buf)
	if len(lines) != 1 {
		t.Fatalf("expected 1 line, got %d", len(lines))
	}
	got := lines[0]
	for key, want := range map[string]string{
		FieldComponent:  "orchestrator",
		FieldCapability: "ocr",
		FieldKind:       "tesseract",
		FieldService:    "desktopeye",
	} {
		if got[key] != want {
			t.Errorf("%s: expected %q, got %v", key, want, got[key])
		}
	}
}

func TestErrorValuesAreStrings(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "debug")
	l.Error("load failed", map[string]interface{}{FieldError: fmt.Errorf("model missing")})
	lines := decodeLines(t, &buf)
	if lines[0][FieldError] != "model missing" {
		t.Errorf("expected error string, got %v", lines[0][FieldError])
	}
}

func TestWithContext(t *testing.T) {
	var buf bytes.Buffer
	l := newJSONLogger(&buf, "debug")
	ctx := ContextWithRequestID(context.Background(), "req-1")
	ctx = ContextWithCaller(ctx, "translate.script")
	l.WithContext(ctx).Info("call")

	lines := decodeLines(t, &buf)
	if lines[0][FieldRequestID] != "req-1" {
		t.Errorf("expected request id, got %v", lines[0][FieldRequestID])
	}
	if lines[0][FieldCaller] != "translate.script" {
		t.Errorf("expected caller, got %v", lines[0][FieldCaller])
	}
}

func TestNilLoggerIsSafe(t *testing.T) {
	var l *Logger
	l.Debug("x")
	l.Info("x", Fields("a", 1))
	l.Warn("x")
	l.Error("x")
	if l.WithComponent("c") != nil {
		t.Error("expected nil from nil receiver")
	}
	if l.WithFields(Fields("a", 1)) != nil {
		t.Error("expected nil from nil receiver")
	}
	if l.WithError(fmt.Errorf("e")) != nil {
		t.Error("expected nil from nil receiver")
	}
	if l.WithContext(context.Background()) != nil {
		t.Error("expected nil from nil receiver")
	}
}

func TestNop(t *testing.T) {
	l := Nop()
	l.Info("discarded", Fields("k", "v"))
	l.WithComponent("x").Error("discarded")
}

func TestFields_OddCount(t *testing.T) {
	m := Fields("a", 1, "b")
	if len(m) != 1 || m["a"] != 1 {
		t.Errorf("unexpected map %v", m)
	}
	m = Fields(42, "v", "k", "w")
	if len(m) != 1 || m["k"] != "w" {
		t.Errorf("non-string keys should be skipped, got %v", m)
	}
}

func TestMergeWithError(t *testing.T) {
	m := MergeWithError(nil, fmt.Errorf("boom"))
	if m[FieldError] != "boom" {
		t.Errorf("unexpected map %v", m)
	}
}

func TestConfigValidate(t *testing.T) {
	cfg := Config{}
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	cfg.Level = "loud"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for bad level")
	}
}
