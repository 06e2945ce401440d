package http

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"financeiro/internal/core"
	applog "financeiro/internal/log"
	"financeiro/internal/recurrence"
	"financeiro/internal/services"
	"financeiro/internal/storage"
)

func TestJSONResponseBuilder(t *testing.T) {
	w := httptest.NewRecorder()

	NewJSONResponse().
		Status(http.StatusCreated).
		Header("Location", "/api/suppliers/1").
		Body(map[string]int{"id": 1}).
		Write(w)

	if w.Code != http.StatusCreated {
		t.Errorf("status = %d", w.Code)
	}
	if w.Header().Get("Content-Type") != "application/json" {
		t.Errorf("content type = %q", w.Header().Get("Content-Type"))
	}
	if w.Header().Get("Location") != "/api/suppliers/1" {
		t.Errorf("Location = %q", w.Header().Get("Location"))
	}
	if strings.TrimSpace(w.Body.String()) != `{"id":1}` {
		t.Errorf("body = %q", w.Body.String())
	}
}

func TestJSONResponseBuilder_NoBody(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
	if w.Code != http.StatusNoContent || w.Body.Len() != 0 {
		t.Errorf("status=%d body=%q", w.Code, w.Body.String())
	}
}

func TestJSONResponseBuilder_EncodeFailure(t *testing.T) {
	w := httptest.NewRecorder()
	NewJSONResponse().Body(map[string]any{"ch": make(chan int)}).Write(w)
	if w.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", w.Code)
	}
}

func TestErrorResponses(t *testing.T) {
	w := httptest.NewRecorder()
	ErrorResponse(http.StatusNotFound, "transaction not found").Write(w)
	if w.Code != http.StatusNotFound || !strings.Contains(w.Body.String(), `"error":"transaction not found"`) {
		t.Errorf("status=%d body=%s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	ErrorResponse(http.StatusBadRequest, "nope").Write(w)
	if w.Code != http.StatusBadRequest {
		t.Errorf("status = %d", w.Code)
	}
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{badRequest("x"), http.StatusBadRequest},
		{fmt.Errorf("get: %w", storage.ErrNotFound), http.StatusNotFound},
		{core.ErrRegisterNotOpen, http.StatusNotFound},
		{fmt.Errorf("insert: %w", storage.ErrConflict), http.StatusConflict},
		{fmt.Errorf("%w: paid -> paid", services.ErrInvalidTransition), http.StatusConflict},
		{core.ErrRegisterClosed, http.StatusConflict},
		{core.ErrInvalidAmount, http.StatusUnprocessableEntity},
		{core.ErrAutoRecurringWithCount, http.StatusUnprocessableEntity},
		{core.ErrRecurrenceCountTooLarge, http.StatusUnprocessableEntity},
		{recurrence.ErrNotRecurring, http.StatusUnprocessableEntity},
		{errors.New("disk full"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := statusFor(tt.err); got != tt.want {
			t.Errorf("statusFor(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestWriteErrorHidesInternalErrors(t *testing.T) {
	w := httptest.NewRecorder()
	r := httptest.NewRequest(http.MethodGet, "/api/transactions", nil)
	writeError(w, r, errors.New("sqlite: database is locked"))
	if strings.Contains(w.Body.String(), "locked") {
		t.Errorf("internal error leaked: %s", w.Body.String())
	}
}

func TestWriteErrorHidesInternalDetails(t *testing.T) {
	var buf bytes.Buffer
	logger := applog.New(applog.Config{Format: "json", Output: &buf}).With(applog.FieldRequestID, "req_1")
	r := httptest.NewRequest(http.MethodDelete, "/api/transactions/4", nil)
	r = r.WithContext(context.WithValue(r.Context(), applog.LoggerContextKey, logger))

	w := httptest.NewRecorder()
	writeError(w, r, errors.New("disk I/O error"))

	if w.Code != http.StatusInternalServerError || strings.Contains(w.Body.String(), "disk") {
		t.Errorf("status=%d body=%s", w.Code, w.Body.String())
	}
	for _, want := range []string{`"operation":"delete"`, `"error":"disk I/O error"`, `"request_id":"req_1"`, `"component":"http"`} {
		if !strings.Contains(buf.String(), want) {
			t.Errorf("log line missing %s: %s", want, buf.String())
		}
	}
}
