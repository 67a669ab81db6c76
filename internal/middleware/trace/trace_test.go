package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	applog "labcash/internal/log"
)

func TestMiddleware(t *testing.T) {
	var buf bytes.Buffer
	m := NewMiddleware(func(*http.Request) string { return "10.0.0.7" }, applog.New(applog.Config{Output: &buf}))

	var seenID string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seenID = GetRequestID(r.Context())
		applog.FromContext(r.Context()).Info("inside")
		w.WriteHeader(http.StatusUnprocessableEntity)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/revenue", nil))

	if !strings.HasPrefix(seenID, "req_") {
		t.Fatalf("request id = %q", seenID)
	}
	if rec.Header().Get(RequestIDHeader) != seenID {
		t.Errorf("response header %q, want %q", rec.Header().Get(RequestIDHeader), seenID)
	}
	out := buf.String()
	for _, want := range []string{"request_id=" + seenID, "status_code=422", "client_ip=10.0.0.7", "level=WARN"} {
		if !strings.Contains(out, want) {
			t.Errorf("log %q is missing %q", out, want)
		}
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d, want 1", got)
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	m := NewMiddleware(nil, applog.New(applog.Config{Output: &bytes.Buffer{}}))
	h := m.Middleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))

	tests := []struct {
		name     string
		incoming string
		keep     bool
	}{
		{"valid", "abc-123", true},
		{"header injection", "bad id\r\nx", false},
		{"too long", strings.Repeat("a", 65), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
			req.Header.Set(RequestIDHeader, tt.incoming)
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if got := rec.Header().Get(RequestIDHeader); (got == tt.incoming) != tt.keep {
				t.Errorf("response id = %q, incoming %q, keep %v", got, tt.incoming, tt.keep)
			}
		})
	}
}
