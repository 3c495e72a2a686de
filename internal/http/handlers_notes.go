package http

import (
	"errors"
	"net/http"
	"unicode/utf8"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

const maxNoteRunes = 10000

type noteRequest struct {
	Content string `json:"content"`
}

func (s *Server) handleGetNote(w http.ResponseWriter, r *http.Request) {
	n, err := s.notes.Load(r.Context(), ownerOf(r))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, n)
}

// handlePutNote schedules a debounced save and answers 202 right away.
func (s *Server) handlePutNote(w http.ResponseWriter, r *http.Request) {
	var req noteRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	if utf8.RuneCountInString(req.Content) > maxNoteRunes {
		writeError(w, r, applog.OpUpdate, &core.ValidationError{Field: "content", Err: errors.New("note too long")})
		return
	}

	owner := ownerOf(r)
	if err := s.notes.Schedule(owner, req.Content); err != nil {
		applog.FromContext(r.Context()).WarnContext(r.Context(), "Note rejected during shutdown",
			applog.FieldOwner, owner, applog.FieldError, err)
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: "shutting down"})
		return
	}
	writeJSON(w, http.StatusAccepted, core.Note{OwnerID: owner, Content: req.Content})
}
