package trace

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	applog "financeiro/internal/log"
)

func TestMiddlewareAssignsRequestID(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Component: "test", Output: &buf})
	m := NewMiddleware(logger, func(*http.Request) string { return "10.0.0.1" })

	var seen string
	var ctxLogger *applog.Logger
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
		ctxLogger = applog.FromContext(r.Context())
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/transactions", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Fatalf("request id = %q", seen)
	}
	if _, err := uuid.Parse(strings.TrimPrefix(seen, "req_")); err != nil {
		t.Errorf("request id %q is not a uuid: %v", seen, err)
	}
	if rec.Header().Get(HeaderRequestID) != seen {
		t.Errorf("response header = %q, want %q", rec.Header().Get(HeaderRequestID), seen)
	}
	if ctxLogger == nil || ctxLogger.Component() != "test" {
		t.Error("handler should see the request logger")
	}
	if !strings.Contains(buf.String(), `"status_code":418`) {
		t.Errorf("completion log missing status: %s", buf.String())
	}
	if got := m.GetMetrics().TotalRequests; got != 1 {
		t.Errorf("TotalRequests = %d", got)
	}
}

func TestMiddlewareKeepsIncomingRequestID(t *testing.T) {
	logger := applog.New(applog.Config{Output: &bytes.Buffer{}})
	m := NewMiddleware(logger, nil)

	var seen string
	h := m.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(HeaderRequestID, "upstream-1")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "upstream-1" {
		t.Errorf("request id = %q, want upstream-1", seen)
	}
}
