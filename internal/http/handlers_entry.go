package http

import (
	"net/http"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string][]core.Category{"categories": core.ExpenseCategories})
}

func (s *Server) handleListEntries(w http.ResponseWriter, r *http.Request) {
	params, err := ParseListParams(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}

	owner := ownerOf(r)
	var entries []core.Entry
	switch params.Scope {
	case scopeDay:
		entries, err = s.ledger.EntriesForDay(r.Context(), owner, params.Day)
	case scopeYear:
		entries, err = s.ledger.EntriesForYear(r.Context(), owner, params.Year)
	default:
		entries, err = s.ledger.EntriesForMonth(r.Context(), owner, params.Year, params.Month)
	}
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	if entries == nil {
		entries = []core.Entry{}
	}
	writeJSON(w, http.StatusOK, listResponse{Entries: entries, Count: len(entries)})
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var in core.EntryInput
	if err := decodeJSON(w, r, &in); err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}

	e, err := s.ledger.CreateEntry(r.Context(), ownerOf(r), sanitizeEntryInput(in))
	if err != nil {
		writeError(w, r, applog.OpCreate, err)
		return
	}
	logEntryChanged(r, applog.OpCreate, e)

	w.Header().Set("Location", "/api/entries/"+e.ID)
	writeJSON(w, http.StatusCreated, e)
}

func (s *Server) handleGetEntry(w http.ResponseWriter, r *http.Request) {
	e, err := s.ledger.GetEntry(r.Context(), ownerOf(r), r.PathValue("id"))
	if err != nil {
		writeError(w, r, applog.OpRead, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateEntry(w http.ResponseWriter, r *http.Request) {
	var patch core.EntryPatch
	if err := decodeJSON(w, r, &patch); err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	if patch.Description != nil {
		d := sanitizeInput(*patch.Description)
		patch.Description = &d
	}
	if patch.Split != nil {
		patch.Split.With = sanitizeInput(patch.Split.With)
	}

	e, err := s.ledger.UpdateEntry(r.Context(), ownerOf(r), r.PathValue("id"), patch)
	if err != nil {
		writeError(w, r, applog.OpUpdate, err)
		return
	}
	logEntryChanged(r, applog.OpUpdate, e)
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.ledger.DeleteEntry(r.Context(), ownerOf(r), id); err != nil {
		writeError(w, r, applog.OpDelete, err)
		return
	}
	applog.FromContext(r.Context()).InfoContext(r.Context(), "Entry deleted",
		applog.FieldEntryID, id,
		applog.FieldOwner, ownerOf(r))
	w.WriteHeader(http.StatusNoContent)
}
