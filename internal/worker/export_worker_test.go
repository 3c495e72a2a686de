package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"ledger/internal/amqp"
	sheetsmem "ledger/internal/sheets/memory"
)

type fakeSource struct {
	mu    sync.Mutex
	calls []MonthRef
	fail  map[MonthRef]bool
}

func (f *fakeSource) MonthRows(_ context.Context, ownerID string, year, month int) ([][]string, error) {
	m := MonthRef{OwnerID: ownerID, Year: year, Month: month}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, m)
	if f.fail[m] {
		return nil, errors.New("store unavailable")
	}
	return [][]string{{"Date"}, {m.String()}}, nil
}

func TestHandleEvent_MarksMonths(t *testing.T) {
	w := NewExportWorker(&fakeSource{}, sheetsmem.New(), Config{})
	ctx := context.Background()

	ev := amqp.NewEntryEvent(amqp.OpCreated, "1", "alice", "2026-01-05")
	if err := w.HandleEvent(ctx, ev); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// same month again is not a second dirty entry
	if err := w.HandleEvent(ctx, amqp.NewEntryEvent(amqp.OpDeleted, "2", "alice", "2026-01-20")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Pending() != 1 {
		t.Fatalf("expected 1 dirty month, got %d", w.Pending())
	}

	moved := amqp.NewEntryEvent(amqp.OpUpdated, "1", "alice", "2026-03-01")
	moved.PreviousOn = "2026-02-10"
	if err := w.HandleEvent(ctx, moved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Pending() != 3 {
		t.Fatalf("expected 3 dirty months, got %d", w.Pending())
	}
}

func TestHandleEvent_RejectsBadDate(t *testing.T) {
	w := NewExportWorker(&fakeSource{}, sheetsmem.New(), Config{})
	err := w.HandleEvent(context.Background(), amqp.NewEntryEvent(amqp.OpCreated, "1", "alice", "05/01/2026"))
	if err == nil {
		t.Fatalf("expected error for malformed date")
	}
	if w.Pending() != 0 {
		t.Fatalf("nothing should be dirty")
	}
}

func TestFlush_PublishesInBatches(t *testing.T) {
	src := &fakeSource{}
	pub := sheetsmem.New()
	w := NewExportWorker(src, pub, Config{BatchSize: 2, Concurrency: 2})

	for m := 1; m <= 3; m++ {
		w.MarkDirty(MonthRef{OwnerID: "alice", Year: 2026, Month: m})
	}

	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.Published() != 2 || w.Pending() != 1 {
		t.Fatalf("expected 2 published and 1 pending, got %d and %d", pub.Published(), w.Pending())
	}
	if _, ok := pub.Rows("alice", 2026, 1); !ok {
		t.Fatalf("expected the oldest month first")
	}

	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pub.Published() != 3 || w.Pending() != 0 {
		t.Fatalf("expected everything flushed, got %d published, %d pending", pub.Published(), w.Pending())
	}
}

func TestFlush_RequeuesFailedMonths(t *testing.T) {
	bad := MonthRef{OwnerID: "alice", Year: 2026, Month: 2}
	src := &fakeSource{fail: map[MonthRef]bool{bad: true}}
	pub := sheetsmem.New()
	w := NewExportWorker(src, pub, Config{BatchSize: 10})

	w.MarkDirty(MonthRef{OwnerID: "alice", Year: 2026, Month: 1})
	w.MarkDirty(bad)

	if err := w.Flush(context.Background()); err == nil {
		t.Fatalf("expected flush error")
	}
	if w.Pending() != 1 {
		t.Fatalf("expected only the failed month requeued, got %d", w.Pending())
	}
	if pub.Published() != 1 {
		t.Fatalf("the healthy month should still be published, got %d", pub.Published())
	}

	src.mu.Lock()
	src.fail = nil
	src.mu.Unlock()
	if err := w.Flush(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok := pub.Rows("alice", 2026, 2); !ok {
		t.Fatalf("expected retried month to be published")
	}
}

func TestExportWorker_StartStop(t *testing.T) {
	pub := sheetsmem.New()
	w := NewExportWorker(&fakeSource{}, pub, Config{FlushInterval: 10 * time.Millisecond})
	ctx := context.Background()

	if w.IsRunning() {
		t.Fatalf("worker should not be running initially")
	}
	if err := w.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := w.Start(ctx); err == nil {
		t.Fatalf("expected error on second start")
	}

	w.MarkDirty(MonthRef{OwnerID: "alice", Year: 2026, Month: 1})
	deadline := time.Now().Add(2 * time.Second)
	for pub.Published() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if pub.Published() == 0 {
		t.Fatalf("expected the loop to flush the dirty month")
	}

	w.MarkDirty(MonthRef{OwnerID: "alice", Year: 2026, Month: 2})
	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	if err := w.Stop(stopCtx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if w.IsRunning() || w.Pending() != 0 {
		t.Fatalf("expected stopped worker with nothing pending")
	}
}
