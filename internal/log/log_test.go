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
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"INFO", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"", slog.LevelInfo},
		{"verbose", slog.LevelInfo},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			if got := ParseLevel(tt.in); got != tt.want {
				t.Errorf("ParseLevel(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestLoggerAddsComponent(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelDebug, Component: ComponentWorker, Output: &buf})

	l.Info("exported", FieldMonth, "2025-03")
	l.WithComponent(ComponentSheets).Debug("tab written")

	out := buf.String()
	for _, want := range []string{"component=worker", "month=2025-03", "component=sheets", "tab written"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q is missing %q", out, want)
		}
	}
}

func TestLevelFiltering(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Level: slog.LevelWarn, Output: &buf})
	l.Info("hidden")
	l.Warn("shown")
	if strings.Contains(buf.String(), "hidden") || !strings.Contains(buf.String(), "shown") {
		t.Fatalf("unexpected output %q", buf.String())
	}
}

func TestFields(t *testing.T) {
	f := NewFields().
		WithRecord("revenue", "id-1", "2025-03", "1200").
		WithError(nil).
		WithOperation(OpCreate)
	if _, ok := f[FieldError]; ok {
		t.Errorf("nil error should not add a field")
	}
	if f[FieldRecordID] != "id-1" || f[FieldAmount] != "1200" || f[FieldCollection] != "revenue" {
		t.Errorf("unexpected fields %v", f)
	}
	if len(f.ToSlice()) != 2*len(f) {
		t.Errorf("ToSlice length mismatch")
	}

	f = NewFields().WithRecord("staff", "s1", "", "").WithError(errors.New("boom"))
	if _, ok := f[FieldMonth]; ok {
		t.Errorf("empty month should be left out")
	}
	if f[FieldError] != "boom" {
		t.Errorf("error field = %v", f[FieldError])
	}
}

func TestMiddlewareStoresLogger(t *testing.T) {
	var buf bytes.Buffer
	l := New(Config{Component: ComponentHTTP, Output: &buf})

	var got *Logger
	h := Middleware(l)(RequestIDMiddleware(func(*http.Request) string { return "req-42" })(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got = FromContext(r.Context())
			got.Info("inside handler")
		})))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/statement", nil))

	if got == nil || got.Component() != ComponentHTTP {
		t.Fatalf("logger not found in context")
	}
	if !strings.Contains(buf.String(), "request_id=req-42") {
		t.Errorf("request id not attached: %q", buf.String())
	}

	if FromContext(context.Background()).Component() != "unknown" {
		t.Errorf("expected fallback logger")
	}
}

func TestStructuredLoggerLevels(t *testing.T) {
	var buf bytes.Buffer
	sl := NewStructuredLogger(New(Config{Output: &buf}))
	r := httptest.NewRequest(http.MethodPost, "/api/revenue", nil)

	sl.LogHTTPEnd(context.Background(), r, 422, 3, "10.0.0.1")
	sl.LogHTTPEnd(context.Background(), r, 500, 3, "10.0.0.1")
	sl.LogRecordChange(context.Background(), OpCreate, "revenue", "id-1", "2025-03", "1200")

	out := buf.String()
	for _, want := range []string{"level=WARN", "level=ERROR", "status_code=422", "record_id=id-1", "amount=1200"} {
		if !strings.Contains(out, want) {
			t.Errorf("output %q is missing %q", out, want)
		}
	}
}
