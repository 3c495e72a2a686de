package http

import (
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"ledger/internal/core"
	applog "ledger/internal/log"
)

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	mp, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	owner := ownerOf(r)

	var (
		sum  core.Summary
		cats []core.CategoryAmount
	)
	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		var err error
		sum, err = s.ledger.MonthSummary(ctx, owner, mp.Year, mp.Month)
		return err
	})
	g.Go(func() error {
		var err error
		cats, err = s.ledger.MonthCategories(ctx, owner, mp.Year, mp.Month)
		return err
	})
	if err := g.Wait(); err != nil {
		writeError(w, r, applog.OpSummary, err)
		return
	}
	if cats == nil {
		cats = []core.CategoryAmount{}
	}

	writeJSON(w, http.StatusOK, summaryResponse{
		Year:       mp.Year,
		Month:      mp.Month,
		Summary:    sum,
		MoneyIn:    sum.MoneyIn(),
		Categories: cats,
	})
}

func (s *Server) handleCalendar(w http.ResponseWriter, r *http.Request) {
	mp, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	days, err := s.ledger.MonthCalendar(r.Context(), ownerOf(r), mp.Year, mp.Month)
	if err != nil {
		writeError(w, r, applog.OpList, err)
		return
	}
	if days == nil {
		days = []core.Date{}
	}
	writeJSON(w, http.StatusOK, calendarResponse{Year: mp.Year, Month: mp.Month, Days: days})
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	mp, err := ParseMonthParams(r.URL.Query())
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))

	art, err := s.ledger.ExportMonth(r.Context(), ownerOf(r), mp.Year, mp.Month, format)
	if err != nil {
		writeError(w, r, applog.OpExport, err)
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+art.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(art.Data)
}
