package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/google/uuid"
)

func TestLoggerWritesLogfmtFields(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Debug).With(F("component", "client"))
	logger.Info("request done", F("status", 200), F("path", "notifications/v1"))

	out := buf.String()
	for _, want := range []string{"level=info", `msg="request done"`, "component=client", "status=200", "path=notifications/v1"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in output, got %q", want, out)
		}
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Warn)
	logger.Info("hidden")
	logger.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	if logger.Enabled(Info) {
		t.Fatalf("expected info disabled at warn level")
	}
	logger.Warn("shown")
	if !strings.Contains(buf.String(), "shown") {
		t.Fatalf("expected warn line, got %q", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"debug":   Debug,
		" WARN ":  Warn,
		"warning": Warn,
		"error":   Error,
		"":        Info,
		"bogus":   Info,
	}
	for raw, want := range cases {
		if got := ParseLevel(raw); got != want {
			t.Fatalf("ParseLevel(%q) = %v, want %v", raw, got, want)
		}
	}
}

func TestNewRequestIDIsUUID(t *testing.T) {
	id := NewRequestID()
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("expected uuid request id, got %q: %v", id, err)
	}
	if id == NewRequestID() {
		t.Fatalf("expected distinct request ids")
	}
}
