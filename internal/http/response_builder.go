// Package http provides the JSON API server and its handlers.
//
// This file implements the Builder Pattern for JSON responses and the
// mapping from domain errors to HTTP status codes.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"financeiro/internal/core"
	applog "financeiro/internal/log"
	"financeiro/internal/recurrence"
	"financeiro/internal/services"
	"financeiro/internal/storage"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the built response. A nil body writes no content.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	if b.body == nil {
		w.WriteHeader(b.statusCode)
		return
	}

	data, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode response", "error", err)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"internal error"}`))
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(data)
	_, _ = w.Write([]byte("\n"))
}

type errorBody struct {
	Error string `json:"error"`
}

// ErrorResponse creates a standard {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

// validationErrors are input problems reported as 422.
var validationErrors = []error{
	core.ErrInvalidAmount,
	core.ErrEmptyDescription,
	core.ErrDescriptionTooLong,
	core.ErrInvalidType,
	core.ErrInvalidStatus,
	core.ErrInvalidPaymentMethod,
	core.ErrInvalidRecurrence,
	core.ErrInvalidRecurrenceCount,
	core.ErrRecurrenceCountTooLarge,
	core.ErrEndBeforeDue,
	core.ErrAutoRecurringWithCount,
	core.ErrMissingDueDate,
	core.ErrEmptySupplierName,
	core.ErrInvalidDate,
	core.ErrNegativeBalance,
	recurrence.ErrNotRecurring,
}

// statusFor maps a service error to its HTTP status.
func statusFor(err error) int {
	switch {
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, storage.ErrNotFound), errors.Is(err, core.ErrRegisterNotOpen):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrConflict),
		errors.Is(err, services.ErrInvalidTransition),
		errors.Is(err, core.ErrRegisterClosed):
		return http.StatusConflict
	}
	for _, target := range validationErrors {
		if errors.Is(err, target) {
			return http.StatusUnprocessableEntity
		}
	}
	return http.StatusInternalServerError
}

// writeError logs err and writes its mapped status. Internal errors are not echoed.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		ctx := r.Context()
		applog.NewStructuredLogger(applog.FromContext(ctx)).LogError(ctx, "Request failed", err,
			applog.ComponentHTTP, applog.OperationFor(r.Method),
			applog.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, ""))
		msg = "internal error"
	}
	ErrorResponse(status, msg).Write(w)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	NewJSONResponse().Status(status).Body(v).Write(w)
}
