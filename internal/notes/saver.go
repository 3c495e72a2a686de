// Package notes keeps each owner's quick note. Edits arrive keystroke by
// keystroke, so saves are debounced per owner.
package notes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"ledger/internal/core"
	"ledger/internal/ports"
)

const DefaultDebounce = time.Second

type pending struct {
	content string
	timer   *time.Timer
}

// Saver debounces note saves. Each Schedule for an owner restarts that
// owner's timer; only the latest content is written.
type Saver struct {
	store    ports.NoteStore
	debounce time.Duration
	now      func() time.Time

	mu      sync.Mutex
	pending map[string]*pending
	wg      sync.WaitGroup
	closed  bool
}

func NewSaver(store ports.NoteStore, debounce time.Duration) *Saver {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	return &Saver{
		store:    store,
		debounce: debounce,
		now:      time.Now,
		pending:  make(map[string]*pending),
	}
}

// Load returns the owner's note, preferring content that is scheduled but
// not yet written.
func (s *Saver) Load(ctx context.Context, ownerID string) (core.Note, error) {
	s.mu.Lock()
	p, ok := s.pending[ownerID]
	var content string
	if ok {
		content = p.content
	}
	s.mu.Unlock()

	if ok {
		return core.Note{OwnerID: ownerID, Content: content, UpdatedAt: s.now()}, nil
	}
	n, err := s.store.LoadNote(ctx, ownerID)
	if err != nil {
		return core.Note{}, fmt.Errorf("load note: %w", err)
	}
	return n, nil
}

// Schedule records new content for the owner and (re)starts the timer.
func (s *Saver) Schedule(ownerID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errors.New("note saver is closed")
	}

	if p, ok := s.pending[ownerID]; ok && p.timer.Stop() {
		p.content = content
		p.timer.Reset(s.debounce)
		return nil
	}
	// a timer that already fired sees it was replaced and skips its save

	p := &pending{content: content}
	p.timer = time.AfterFunc(s.debounce, func() { s.fire(ownerID, p) })
	s.pending[ownerID] = p
	s.wg.Add(1)
	return nil
}

func (s *Saver) fire(ownerID string, p *pending) {
	defer s.wg.Done()

	s.mu.Lock()
	if s.pending[ownerID] != p {
		s.mu.Unlock()
		return
	}
	delete(s.pending, ownerID)
	content := p.content
	s.mu.Unlock()

	s.save(context.Background(), ownerID, content)
}

func (s *Saver) save(ctx context.Context, ownerID, content string) {
	n := core.Note{OwnerID: ownerID, Content: content, UpdatedAt: s.now()}
	if err := s.store.SaveNote(ctx, n); err != nil {
		slog.ErrorContext(ctx, "Failed to save note",
			"component", "notes",
			"owner", ownerID,
			"error", err)
		return
	}
	slog.DebugContext(ctx, "Note saved", "component", "notes", "owner", ownerID, "bytes", len(content))
}

// Flush writes every pending note now and stops further scheduling. It is
// meant for shutdown.
func (s *Saver) Flush(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	var stopped []struct{ owner, content string }
	for owner, p := range s.pending {
		if p.timer.Stop() {
			stopped = append(stopped, struct{ owner, content string }{owner, p.content})
			delete(s.pending, owner)
			s.wg.Done()
		}
	}
	s.mu.Unlock()

	var errs []error
	for _, p := range stopped {
		n := core.Note{OwnerID: p.owner, Content: p.content, UpdatedAt: s.now()}
		if err := s.store.SaveNote(ctx, n); err != nil {
			errs = append(errs, fmt.Errorf("save note for %s: %w", p.owner, err))
		}
	}

	// timers that already fired finish on their own
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		errs = append(errs, ctx.Err())
	}
	return errors.Join(errs...)
}
