package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"golang.org/x/sync/singleflight"

	"ledger/internal/amqp"
	"ledger/internal/cache"
	"ledger/internal/core"
	"ledger/internal/export"
	"ledger/internal/ports"
)

const summaryCachePrefix = "summary"

// EventPublisher announces entry changes. *amqp.Client satisfies it.
type EventPublisher interface {
	PublishEntryEvent(ctx context.Context, ev *amqp.EntryEvent) error
}

// Artifact is a rendered export ready to be downloaded or written to disk.
type Artifact struct {
	Filename    string
	ContentType string
	Data        []byte
}

// LedgerService orchestrates entry operations across the store, the summary
// cache and the event bus.
type LedgerService struct {
	store     ports.Store
	summaries cache.Cache[core.Summary]
	events    EventPublisher
	group     singleflight.Group

	// gens counts invalidations per summary key so a query that raced a
	// write does not cache what it read.
	genMu sync.Mutex
	gens  map[string]uint64
}

// NewLedgerService wires the service. summaries and events are optional.
func NewLedgerService(store ports.Store, summaries cache.Cache[core.Summary], events EventPublisher) *LedgerService {
	return &LedgerService{
		store:     store,
		summaries: summaries,
		events:    events,
		gens:      make(map[string]uint64),
	}
}

// CreateEntry validates the input, stores it and returns the stored entry.
func (s *LedgerService) CreateEntry(ctx context.Context, ownerID string, in core.EntryInput) (core.Entry, error) {
	fields, err := core.ParseEntryInput(in)
	if err != nil {
		return core.Entry{}, err
	}

	id, err := s.store.Create(ctx, ownerID, fields)
	if err != nil {
		return core.Entry{}, fmt.Errorf("create entry: %w", err)
	}

	s.invalidate(ctx, ownerID, fields.OccurredOn)
	s.publish(ctx, amqp.NewEntryEvent(amqp.OpCreated, id, ownerID, fields.OccurredOn.String()))

	created, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("load created entry: %w", err)
	}
	return created, nil
}

// GetEntry returns one of the owner's entries.
func (s *LedgerService) GetEntry(ctx context.Context, ownerID, id string) (core.Entry, error) {
	if id == "" {
		return core.Entry{}, &core.ValidationError{Field: "id", Err: core.ErrMissingEntryID}
	}
	e, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry: %w", err)
	}
	if e.OwnerID != ownerID {
		return core.Entry{}, fmt.Errorf("get entry: %w", ports.ErrNotFound)
	}
	return e, nil
}

// UpdateEntry merges the patch into an existing entry. The merged entry must
// pass the same validation as a new one.
func (s *LedgerService) UpdateEntry(ctx context.Context, ownerID, id string, patch core.EntryPatch) (core.Entry, error) {
	current, err := s.GetEntry(ctx, ownerID, id)
	if err != nil {
		return core.Entry{}, err
	}
	if patch.IsEmpty() {
		return current, nil
	}

	merged := patch.Apply(current.EntryFields)
	if err := merged.Validate(); err != nil {
		return core.Entry{}, err
	}

	if err := s.store.Update(ctx, id, patch); err != nil {
		return core.Entry{}, fmt.Errorf("update entry: %w", err)
	}

	s.invalidate(ctx, ownerID, current.OccurredOn, merged.OccurredOn)
	ev := amqp.NewEntryEvent(amqp.OpUpdated, id, ownerID, merged.OccurredOn.String())
	if current.OccurredOn.String() != merged.OccurredOn.String() {
		ev.PreviousOn = current.OccurredOn.String()
	}
	s.publish(ctx, ev)

	updated, err := s.store.Get(ctx, id)
	if err != nil {
		return core.Entry{}, fmt.Errorf("load updated entry: %w", err)
	}
	return updated, nil
}

// DeleteEntry removes one of the owner's entries.
func (s *LedgerService) DeleteEntry(ctx context.Context, ownerID, id string) error {
	current, err := s.GetEntry(ctx, ownerID, id)
	if err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}

	s.invalidate(ctx, ownerID, current.OccurredOn)
	s.publish(ctx, amqp.NewEntryEvent(amqp.OpDeleted, id, ownerID, current.OccurredOn.String()))
	return nil
}

func (s *LedgerService) query(ctx context.Context, ownerID string, from, to core.Date) ([]core.Entry, error) {
	entries, err := s.store.Query(ctx, ownerID, from, to)
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return entries, nil
}

// EntriesForMonth returns the owner's entries of a month in date order.
func (s *LedgerService) EntriesForMonth(ctx context.Context, ownerID string, year, month int) ([]core.Entry, error) {
	from, to, err := core.MonthRange(year, month)
	if err != nil {
		return nil, &core.ValidationError{Field: "month", Err: err}
	}
	entries, err := s.query(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return export.Sorted(entries), nil
}

// EntriesForDay returns the owner's entries on a single day.
func (s *LedgerService) EntriesForDay(ctx context.Context, ownerID string, day core.Date) ([]core.Entry, error) {
	if err := day.Validate(); err != nil {
		return nil, &core.ValidationError{Field: "date", Err: err}
	}
	from, to := core.DayRange(day)
	entries, err := s.query(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return export.Sorted(entries), nil
}

// EntriesForYear returns the owner's entries of a calendar year in date order.
func (s *LedgerService) EntriesForYear(ctx context.Context, ownerID string, year int) ([]core.Entry, error) {
	from, to := core.YearRange(year)
	entries, err := s.query(ctx, ownerID, from, to)
	if err != nil {
		return nil, err
	}
	return export.Sorted(entries), nil
}

// MonthSummary returns the month totals, served from cache when possible.
// Concurrent misses for the same month share one store query.
func (s *LedgerService) MonthSummary(ctx context.Context, ownerID string, year, month int) (core.Summary, error) {
	from, to, err := core.MonthRange(year, month)
	if err != nil {
		return core.Summary{}, &core.ValidationError{Field: "month", Err: err}
	}
	key := cache.MonthKey(summaryCachePrefix, ownerID, year, month)

	if s.summaries != nil {
		if sum, ok := s.summaries.Get(ctx, key); ok {
			return sum, nil
		}
	}

	v, err, _ := s.group.Do(key, func() (interface{}, error) {
		gen := s.generation(key)
		entries, err := s.query(ctx, ownerID, from, to)
		if err != nil {
			return core.Summary{}, err
		}
		sum, err := core.Summarize(entries)
		if err != nil {
			return core.Summary{}, err
		}
		s.storeSummary(ctx, key, gen, sum)
		return sum, nil
	})
	if err != nil {
		return core.Summary{}, err
	}
	return v.(core.Summary), nil
}

// MonthCategories returns expense totals per category for a month.
func (s *LedgerService) MonthCategories(ctx context.Context, ownerID string, year, month int) ([]core.CategoryAmount, error) {
	entries, err := s.EntriesForMonth(ctx, ownerID, year, month)
	if err != nil {
		return nil, err
	}
	return core.SummarizeByCategory(entries)
}

// MonthCalendar returns the days of a month that carry at least one entry.
func (s *LedgerService) MonthCalendar(ctx context.Context, ownerID string, year, month int) ([]core.Date, error) {
	entries, err := s.EntriesForMonth(ctx, ownerID, year, month)
	if err != nil {
		return nil, err
	}
	return core.DaysWithEntries(entries), nil
}

// ExportMonth renders the month in the requested format ("csv" or "xlsx").
func (s *LedgerService) ExportMonth(ctx context.Context, ownerID string, year, month int, format string) (Artifact, error) {
	if format == "" {
		format = export.FormatCSV
	}
	if format != export.FormatCSV && format != export.FormatXLSX {
		return Artifact{}, &core.ValidationError{Field: "format", Err: errors.New("unsupported export format " + format)}
	}

	entries, err := s.EntriesForMonth(ctx, ownerID, year, month)
	if err != nil {
		return Artifact{}, err
	}

	var buf bytes.Buffer
	if format == export.FormatXLSX {
		err = export.WriteXLSX(&buf, entries)
	} else {
		err = export.WriteCSV(&buf, entries)
	}
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{
		Filename:    export.Filename(year, month, format),
		ContentType: export.ContentType(format),
		Data:        buf.Bytes(),
	}, nil
}

// MonthRows returns the export table for a month, header first.
func (s *LedgerService) MonthRows(ctx context.Context, ownerID string, year, month int) ([][]string, error) {
	entries, err := s.EntriesForMonth(ctx, ownerID, year, month)
	if err != nil {
		return nil, err
	}
	return export.Rows(entries)
}

func (s *LedgerService) invalidate(ctx context.Context, ownerID string, dates ...core.Date) {
	if s.summaries == nil {
		return
	}
	for _, d := range dates {
		key := cache.MonthKey(summaryCachePrefix, ownerID, d.Year(), d.Month())
		s.genMu.Lock()
		s.gens[key]++
		s.genMu.Unlock()
		s.group.Forget(key)
		s.summaries.Delete(ctx, key)
	}
}

func (s *LedgerService) generation(key string) uint64 {
	s.genMu.Lock()
	defer s.genMu.Unlock()
	return s.gens[key]
}

// storeSummary caches sum unless key was invalidated after gen was read.
// The second check catches an invalidation that lands between the first
// check and the Set.
func (s *LedgerService) storeSummary(ctx context.Context, key string, gen uint64, sum core.Summary) {
	if s.summaries == nil || s.generation(key) != gen {
		return
	}
	s.summaries.Set(ctx, key, sum)
	if s.generation(key) != gen {
		s.summaries.Delete(ctx, key)
	}
}

func (s *LedgerService) publish(ctx context.Context, ev *amqp.EntryEvent) {
	if s.events == nil {
		slog.DebugContext(ctx, "Event publisher not configured, skipping entry event",
			"component", "ledger", "op", ev.Op, "id", ev.ID)
		return
	}
	if err := s.events.PublishEntryEvent(ctx, ev); err != nil {
		// the write already succeeded; the worker catches up on the next change
		slog.ErrorContext(ctx, "Failed to publish entry event",
			"component", "ledger",
			"op", ev.Op,
			"id", ev.ID,
			"error", err)
	}
}
