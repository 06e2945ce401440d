// Package http provides the JSON API server and its handlers.
//
// This file implements utilities for parsing and validating HTTP request data:
// path ids, query filters and JSON bodies.

package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"financeiro/internal/core"
	"financeiro/internal/storage"
)

// maxBodyBytes bounds request bodies
const maxBodyBytes = 1 << 20

// errBadRequest marks malformed requests, reported as 400.
var errBadRequest = errors.New("bad request")

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from query parameters, using now as default.
// Unlike form input, explicit values must be valid.
func ParseMonthParams(query url.Values, now time.Time) (MonthParams, error) {
	params := MonthParams{
		Year:  now.Year(),
		Month: int(now.Month()),
	}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return params, badRequest("invalid year %q", v)
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return params, badRequest("invalid month %q", v)
		}
		params.Month = m
	}

	return params, nil
}

// parseID reads the {id} path segment.
func parseID(r *http.Request) (int64, error) {
	raw := r.PathValue("id")
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, badRequest("invalid id %q", raw)
	}
	return id, nil
}

// parseDateValue parses an optional YYYY-MM-DD value; empty gives the zero date.
func parseDateValue(name, raw string) (core.Date, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(raw)
	if err != nil {
		return core.Date{}, badRequest("invalid %s %q", name, raw)
	}
	return d, nil
}

func parseIntValue(name, raw string, min int) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < min {
		return 0, badRequest("invalid %s %q", name, raw)
	}
	return n, nil
}

func parseOptionalID(name, raw string) (*int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return nil, badRequest("invalid %s %q", name, raw)
	}
	return &id, nil
}

// ParseTransactionFilter builds a list filter from query parameters:
// type, status, from, to, supplier_id, series_id, limit, offset.
func ParseTransactionFilter(query url.Values) (storage.TransactionFilter, error) {
	var (
		f   storage.TransactionFilter
		err error
	)

	if v := strings.TrimSpace(query.Get("type")); v != "" {
		f.Type = core.TransactionType(v)
		if !f.Type.Valid() {
			return f, badRequest("invalid type %q", v)
		}
	}
	if v := strings.TrimSpace(query.Get("status")); v != "" {
		f.Status = core.Status(v)
		if !f.Status.Valid() {
			return f, badRequest("invalid status %q", v)
		}
	}
	if f.DueFrom, err = parseDateValue("from", query.Get("from")); err != nil {
		return f, err
	}
	if f.DueTo, err = parseDateValue("to", query.Get("to")); err != nil {
		return f, err
	}
	if !f.DueFrom.IsZero() && !f.DueTo.IsZero() && f.DueTo.Before(f.DueFrom) {
		return f, badRequest("to before from")
	}
	if f.SupplierID, err = parseOptionalID("supplier_id", query.Get("supplier_id")); err != nil {
		return f, err
	}
	if f.SeriesID, err = parseOptionalID("series_id", query.Get("series_id")); err != nil {
		return f, err
	}
	if f.Limit, err = parseIntValue("limit", query.Get("limit"), 1); err != nil {
		return f, err
	}
	if f.Offset, err = parseIntValue("offset", query.Get("offset"), 0); err != nil {
		return f, err
	}
	return f, nil
}

// decodeJSON reads a JSON body into dst. Unknown fields are rejected; an
// empty body is accepted only when optional is set.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			if optional {
				return nil
			}
			return badRequest("request body required")
		}
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			return badRequest("request body too large")
		}
		// domain decoders (Date, Money) report their own sentinel
		if errors.Is(err, core.ErrInvalidDate) || errors.Is(err, core.ErrInvalidAmount) {
			return err
		}
		return badRequest("malformed JSON: %v", err)
	}
	if dec.More() {
		return badRequest("unexpected data after JSON body")
	}
	return nil
}
