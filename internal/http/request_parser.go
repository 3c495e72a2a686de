// Package http exposes the ledger as a JSON API.
//
// This file holds the request parsing shared by the handlers: month and
// date query parameters and bounded JSON bodies.
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

	"ledger/internal/core"
)

// maxBodyBytes bounds JSON request bodies. Entries and notes are small.
const maxBodyBytes = 64 << 10

var errBadRequest = errors.New("malformed request")

// MonthParams holds parsed year/month values from request parameters.
type MonthParams struct {
	Year  int
	Month int
}

// ParseMonthParams extracts year and month from the query. Both default to
// the current month when absent; a present but malformed value is an error.
func ParseMonthParams(query url.Values) (MonthParams, error) {
	now := time.Now()
	params := MonthParams{Year: now.Year(), Month: int(now.Month())}

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil || y < 1 || y > 9999 {
			return MonthParams{}, &core.ValidationError{Field: "year", Err: fmt.Errorf("%w: year %q", core.ErrInvalidDate, v)}
		}
		params.Year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil || m < 1 || m > 12 {
			return MonthParams{}, &core.ValidationError{Field: "month", Err: fmt.Errorf("%w: %q", core.ErrInvalidMonth, v)}
		}
		params.Month = m
	}
	return params, nil
}

// listScope says which range GET /api/entries covers.
type listScope int

const (
	scopeMonth listScope = iota
	scopeDay
	scopeYear
)

// ListParams is the parsed query of GET /api/entries.
type ListParams struct {
	Scope listScope
	Day   core.Date
	MonthParams
}

// ParseListParams picks the listing range: ?date wins, then ?year with
// ?month, then ?year alone for the whole year.
func ParseListParams(query url.Values) (ListParams, error) {
	if v := strings.TrimSpace(query.Get("date")); v != "" {
		d, err := core.ParseDate(v)
		if err != nil {
			return ListParams{}, &core.ValidationError{Field: "date", Err: err}
		}
		return ListParams{Scope: scopeDay, Day: d}, nil
	}

	mp, err := ParseMonthParams(query)
	if err != nil {
		return ListParams{}, err
	}
	if query.Get("year") != "" && query.Get("month") == "" {
		return ListParams{Scope: scopeYear, MonthParams: mp}, nil
	}
	return ListParams{Scope: scopeMonth, MonthParams: mp}, nil
}

// decodeJSON reads a single JSON object into dst, rejecting unknown fields
// and oversized bodies.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, core.ErrInvalidDate) {
			return &core.ValidationError{Field: "occurred_on", Err: err}
		}
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := dec.Decode(&struct{}{}); !errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: trailing data after JSON object", errBadRequest)
	}
	return nil
}

// sanitizeInput removes control characters (except tab and newlines) and
// trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, s)
}

// sanitizeEntryInput cleans the free-text fields of an entry form.
func sanitizeEntryInput(in core.EntryInput) core.EntryInput {
	in.Description = sanitizeInput(in.Description)
	in.SplitWith = sanitizeInput(in.SplitWith)
	return in
}
