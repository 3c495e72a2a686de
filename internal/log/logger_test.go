package log

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		" WARN ":  slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"info":    slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range cases {
		if got := ParseLevel(in); got != want {
			t.Errorf("ParseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestLoggerStampsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentWorker, Output: &buf})

	l.Info("flushed", "months", 2)
	l.WithComponent(ComponentSheets).Debug("tab created")

	out := buf.String()
	if !strings.Contains(out, "component=worker") || !strings.Contains(out, "months=2") {
		t.Fatalf("missing worker fields in %q", out)
	}
	if !strings.Contains(out, "component=sheets") {
		t.Fatalf("missing sheets component in %q", out)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestStructuredLogger(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	ctx := context.Background()

	req := httptest.NewRequest(http.MethodPost, "/api/entries?x=1", nil)
	sl.LogHTTPEnd(ctx, req, http.StatusUnprocessableEntity, 12, "10.0.0.1")
	sl.LogEntryChanged(ctx, OpCreate, "alice", "e1", "expense", "12.5", "food", "2026-01-05")
	sl.LogError(ctx, "Store failed", errors.New("disk full"), ErrorTypeDatabase, ComponentStorage, OpCreate, nil)

	out := buf.String()
	for _, want := range []string{
		"level=WARN", "status_code=422", "success=false",
		"Entry created", "entry_id=e1", "owner=alice",
		"level=ERROR", "error_type=database_error",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected %q in output:\n%s", want, out)
		}
	}
}

func TestContextLogger(t *testing.T) {
	var buf bytes.Buffer
	base := New(Config{Output: &buf, Component: ComponentHTTP})

	var got *Logger
	h := Middleware(base)(RequestIDMiddleware(func(*http.Request) string { return "req-1" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if got == nil {
		t.Fatalf("expected a logger in context")
	}
	got.Info("hello")
	if !strings.Contains(buf.String(), "request_id=req-1") {
		t.Fatalf("expected request id in %q", buf.String())
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Fatalf("expected fallback logger")
	}
}
