// Package memory is an in-process Store for local runs and tests. It can be
// seeded from a YAML file.
package memory

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"ledger/internal/core"
	"ledger/internal/ports"
)

type Store struct {
	mu      sync.Mutex
	entries map[string]core.Entry
	notes   map[string]core.Note
	now     func() time.Time
}

func New() *Store {
	return &Store{
		entries: make(map[string]core.Entry),
		notes:   make(map[string]core.Note),
		now:     time.Now,
	}
}

type seedFile struct {
	Entries []seedEntry `yaml:"entries"`
	Notes   []core.Note `yaml:"notes"`
}

type seedEntry struct {
	OwnerID string `yaml:"owner_id"`

	core.EntryFields `yaml:",inline"`
}

// NewFromFile returns a store seeded from a YAML file. A missing file gives
// an empty store; an invalid seed entry is an error.
func NewFromFile(path string) (*Store, error) {
	s := New()
	if path == "" {
		return s, nil
	}
	b, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return s, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read seed file: %w", err)
	}

	var seed seedFile
	if err := yaml.Unmarshal(b, &seed); err != nil {
		return nil, fmt.Errorf("parse seed file: %w", err)
	}
	for i, se := range seed.Entries {
		f := se.EntryFields.Normalize()
		if err := f.Validate(); err != nil {
			return nil, fmt.Errorf("seed entry %d: %w", i+1, err)
		}
		if _, err := s.Create(context.Background(), se.OwnerID, f); err != nil {
			return nil, err
		}
	}
	for _, n := range seed.Notes {
		if err := s.SaveNote(context.Background(), n); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func clone(e core.Entry) core.Entry {
	if e.Split != nil {
		sp := *e.Split
		e.Split = &sp
	}
	return e
}

// Query implements ports.EntryReader
func (s *Store) Query(_ context.Context, ownerID string, from, to core.Date) ([]core.Entry, error) {
	lo, hi := from.String(), to.String()
	s.mu.Lock()
	var out []core.Entry
	for _, e := range s.entries {
		on := e.OccurredOn.String()
		if e.OwnerID == ownerID && on >= lo && on < hi {
			out = append(out, clone(e))
		}
	}
	s.mu.Unlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].OccurredOn.String() != out[j].OccurredOn.String() {
			return out[i].OccurredOn.String() < out[j].OccurredOn.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

// Get implements ports.EntryReader
func (s *Store) Get(_ context.Context, id string) (core.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, ports.ErrNotFound)
	}
	return clone(e), nil
}

// Create implements ports.EntryWriter
func (s *Store) Create(_ context.Context, ownerID string, f core.EntryFields) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC().Truncate(time.Millisecond)
	e := clone(core.Entry{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		EntryFields: f,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	s.entries[e.ID] = e
	return e.ID, nil
}

// Update implements ports.EntryWriter
func (s *Store) Update(_ context.Context, id string, p core.EntryPatch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok {
		return fmt.Errorf("entry %s: %w", id, ports.ErrNotFound)
	}
	e.EntryFields = p.Apply(e.EntryFields)
	e.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
	s.entries[id] = e
	return nil
}

// Delete implements ports.EntryWriter
func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.entries[id]; !ok {
		return fmt.Errorf("entry %s: %w", id, ports.ErrNotFound)
	}
	delete(s.entries, id)
	return nil
}

// LoadNote implements ports.NoteStore
func (s *Store) LoadNote(_ context.Context, ownerID string) (core.Note, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n, ok := s.notes[ownerID]; ok {
		return n, nil
	}
	return core.Note{OwnerID: ownerID}, nil
}

// SaveNote implements ports.NoteStore
func (s *Store) SaveNote(_ context.Context, n core.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = s.now().UTC()
	}
	s.notes[n.OwnerID] = n
	return nil
}

// Len returns the number of stored entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) Close() error { return nil }
