package worker

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"ledger/internal/amqp"
	"ledger/internal/core"
	"ledger/internal/sheets"
)

// MonthSource renders the export table of one owner's month.
// *services.LedgerService satisfies it.
type MonthSource interface {
	MonthRows(ctx context.Context, ownerID string, year, month int) ([][]string, error)
}

// Config holds configuration for the export worker
type Config struct {
	// FlushInterval is how often dirty months are republished (default: 30s)
	FlushInterval time.Duration

	// BatchSize is the max number of months published per flush (default: 10)
	BatchSize int

	// Concurrency bounds parallel publishes within a batch (default: 4)
	Concurrency int
}

func DefaultConfig() Config {
	return Config{
		FlushInterval: 30 * time.Second,
		BatchSize:     10,
		Concurrency:   4,
	}
}

// MonthRef identifies one owner's month.
type MonthRef struct {
	OwnerID string
	Year    int
	Month   int
}

func (m MonthRef) String() string {
	return fmt.Sprintf("%s/%04d-%02d", m.OwnerID, m.Year, m.Month)
}

// ExportWorker keeps the spreadsheet mirror in step with the ledger. Entry
// events mark months dirty; dirty months are republished in batches.
type ExportWorker struct {
	source    MonthSource
	publisher sheets.MonthPublisher
	config    Config

	mu    sync.Mutex
	dirty map[MonthRef]struct{}

	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewExportWorker(source MonthSource, publisher sheets.MonthPublisher, config Config) *ExportWorker {
	def := DefaultConfig()
	if config.FlushInterval <= 0 {
		config.FlushInterval = def.FlushInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.Concurrency <= 0 {
		config.Concurrency = def.Concurrency
	}
	return &ExportWorker{
		source:    source,
		publisher: publisher,
		config:    config,
		dirty:     make(map[MonthRef]struct{}),
	}
}

// HandleEvent marks the months touched by an entry event. It is the AMQP
// consumer callback; a malformed date is rejected so the message is not
// requeued forever.
func (w *ExportWorker) HandleEvent(ctx context.Context, ev *amqp.EntryEvent) error {
	d, err := core.ParseDate(ev.OccurredOn)
	if err != nil {
		return fmt.Errorf("event %s: %w", ev.ID, err)
	}
	w.MarkDirty(MonthRef{OwnerID: ev.OwnerID, Year: d.Year(), Month: d.Month()})

	if ev.PreviousOn != "" {
		prev, err := core.ParseDate(ev.PreviousOn)
		if err != nil {
			slog.WarnContext(ctx, "Ignoring malformed previous date",
				"component", "worker", "id", ev.ID, "previous_on", ev.PreviousOn)
		} else {
			w.MarkDirty(MonthRef{OwnerID: ev.OwnerID, Year: prev.Year(), Month: prev.Month()})
		}
	}

	slog.DebugContext(ctx, "Entry event received",
		"component", "worker",
		"op", ev.Op,
		"id", ev.ID,
		"owner", ev.OwnerID)
	return nil
}

func (w *ExportWorker) MarkDirty(m MonthRef) {
	w.mu.Lock()
	w.dirty[m] = struct{}{}
	w.mu.Unlock()
}

// Pending returns the number of dirty months.
func (w *ExportWorker) Pending() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.dirty)
}

// take removes up to n dirty months, oldest year/month first.
func (w *ExportWorker) take(n int) []MonthRef {
	w.mu.Lock()
	defer w.mu.Unlock()

	batch := make([]MonthRef, 0, len(w.dirty))
	for m := range w.dirty {
		batch = append(batch, m)
	}
	sort.Slice(batch, func(i, j int) bool { return batch[i].String() < batch[j].String() })
	if len(batch) > n {
		batch = batch[:n]
	}
	for _, m := range batch {
		delete(w.dirty, m)
	}
	return batch
}

// Flush publishes one batch of dirty months. Months that fail are marked
// dirty again and the first error is returned.
func (w *ExportWorker) Flush(ctx context.Context) error {
	batch := w.take(w.config.BatchSize)
	if len(batch) == 0 {
		return nil
	}

	var g errgroup.Group
	g.SetLimit(w.config.Concurrency)

	var (
		failedMu sync.Mutex
		failed   []MonthRef
	)
	for _, m := range batch {
		g.Go(func() error {
			if err := w.publish(ctx, m); err != nil {
				failedMu.Lock()
				failed = append(failed, m)
				failedMu.Unlock()
				return fmt.Errorf("publish %s: %w", m, err)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		for _, m := range failed {
			w.MarkDirty(m)
		}
		slog.WarnContext(ctx, "Export flush failed, months requeued",
			"component", "worker",
			"batch", len(batch),
			"failed", len(failed),
			"error", err)
		return err
	}

	slog.InfoContext(ctx, "Export flush completed",
		"component", "worker",
		"months", len(batch))
	return nil
}

func (w *ExportWorker) publish(ctx context.Context, m MonthRef) error {
	rows, err := w.source.MonthRows(ctx, m.OwnerID, m.Year, m.Month)
	if err != nil {
		return fmt.Errorf("render month: %w", err)
	}
	return w.publisher.PublishMonth(ctx, m.OwnerID, m.Year, m.Month, rows)
}

// Start begins the flush loop. Returns an error if already running.
func (w *ExportWorker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("export worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	slog.InfoContext(ctx, "Export worker started",
		"component", "worker",
		"flush_interval", w.config.FlushInterval,
		"batch_size", w.config.BatchSize)
	return nil
}

// Stop stops the loop and waits for it, then makes a last flush attempt.
func (w *ExportWorker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
	case <-ctx.Done():
		slog.WarnContext(ctx, "Export worker stop timed out", "component", "worker")
		return ctx.Err()
	}

	w.mu.Lock()
	w.running = false
	w.mu.Unlock()

	for w.Pending() > 0 {
		if err := w.Flush(ctx); err != nil {
			return err
		}
	}
	slog.InfoContext(ctx, "Export worker stopped", "component", "worker")
	return nil
}

func (w *ExportWorker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *ExportWorker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	ticker := time.NewTicker(w.config.FlushInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			for w.Pending() > 0 {
				if err := w.Flush(ctx); err != nil {
					break
				}
			}
		}
	}
}
