package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"ledger/internal/core"
	applog "ledger/internal/log"
	"ledger/internal/ports"
)

// errorResponse is the body of every non-2xx API response.
type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

// summaryResponse is the month report: totals, money in and category split.
type summaryResponse struct {
	Year       int                   `json:"year"`
	Month      int                   `json:"month"`
	Summary    core.Summary          `json:"summary"`
	MoneyIn    decimal.Decimal       `json:"money_in"`
	Categories []core.CategoryAmount `json:"categories"`
}

type calendarResponse struct {
	Year  int         `json:"year"`
	Month int         `json:"month"`
	Days  []core.Date `json:"days"`
}

type listResponse struct {
	Entries []core.Entry `json:"entries"`
	Count   int          `json:"count"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "component", applog.ComponentHTTP, "error", err)
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case core.IsDataIntegrity(err):
		return http.StatusInternalServerError
	case errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	case core.IsValidation(err):
		return http.StatusUnprocessableEntity
	case errors.Is(err, ports.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusServiceUnavailable
	}
}

// writeError maps err to a status and a JSON body. Server-side failures are
// logged with the request logger and their detail is not sent to the client.
func writeError(w http.ResponseWriter, r *http.Request, operation string, err error) {
	status := statusFor(err)
	body := errorResponse{Error: err.Error()}

	var ve *core.ValidationError
	if status == http.StatusUnprocessableEntity && errors.As(err, &ve) {
		body.Field = ve.Field
	}

	logger := applog.NewStructuredLogger(applog.FromContext(r.Context()))
	switch status {
	case http.StatusInternalServerError:
		logger.LogError(r.Context(), "Malformed entry in store", err, applog.ErrorTypeIntegrity, applog.ComponentLedger, operation, nil)
		body = errorResponse{Error: "stored data is inconsistent"}
	case http.StatusServiceUnavailable:
		logger.LogError(r.Context(), "Store operation failed", err, applog.ErrorTypeDatabase, applog.ComponentStorage, operation, nil)
		body = errorResponse{Error: "storage unavailable"}
		w.Header().Set("Retry-After", strconv.Itoa(5))
	case http.StatusNotFound:
		body = errorResponse{Error: "not found"}
	}

	writeJSON(w, status, body)
}
