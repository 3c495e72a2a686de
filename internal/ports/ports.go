// Package ports declares the persistence contracts the ledger depends on.
// Backends live under internal/storage.
package ports

import (
	"context"
	"errors"

	"ledger/internal/core"
)

// ErrNotFound is returned when an entry or note does not exist.
var ErrNotFound = errors.New("not found")

// Ports for outbound adapters.
type (
	// EntryReader returns entries for one owner.
	EntryReader interface {
		// Query returns the owner's entries with occurredOn in [from, to), in
		// no particular order.
		Query(ctx context.Context, ownerID string, from, to core.Date) ([]core.Entry, error)
		Get(ctx context.Context, id string) (core.Entry, error)
	}

	EntryWriter interface {
		// Create assigns the id and both record timestamps.
		Create(ctx context.Context, ownerID string, f core.EntryFields) (id string, err error)
		// Update merges the patch into the stored entry and refreshes
		// updatedAt. Concurrent updates are last write wins.
		Update(ctx context.Context, id string, p core.EntryPatch) error
		Delete(ctx context.Context, id string) error
	}

	Store interface {
		EntryReader
		EntryWriter
	}

	// NoteStore keeps one free-text note per owner.
	NoteStore interface {
		LoadNote(ctx context.Context, ownerID string) (core.Note, error)
		SaveNote(ctx context.Context, n core.Note) error
	}

	// Backend is what every storage implementation provides.
	Backend interface {
		Store
		NoteStore
		Close() error
	}
)
