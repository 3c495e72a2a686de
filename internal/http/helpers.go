package http

import (
	"net/http"

	"ledger/internal/auth"
	"ledger/internal/core"
	applog "ledger/internal/log"
)

// ownerOf returns the authenticated owner. The auth middleware guarantees
// one on every /api route.
func ownerOf(r *http.Request) string {
	owner, _ := auth.OwnerFrom(r.Context())
	return owner
}

// logEntryChanged records a successful write with the request logger.
func logEntryChanged(r *http.Request, op string, e core.Entry) {
	applog.NewStructuredLogger(applog.FromContext(r.Context())).LogEntryChanged(r.Context(), op,
		e.OwnerID, e.ID, string(e.Kind), e.Amount.String(), string(e.Category), e.OccurredOn.String())
}
