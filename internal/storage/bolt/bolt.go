// Package bolt stores entries and notes in a single bbolt file.
//
// Entries are JSON values in the entries bucket keyed by id. The by_owner
// bucket indexes them as owner\x00date\x00id so a month is one cursor scan.
package bolt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	bbolt "go.etcd.io/bbolt"

	"ledger/internal/core"
	"ledger/internal/ports"
)

// Bucket names.
const (
	BucketEntries = "entries"
	BucketByOwner = "by_owner"
	BucketNotes   = "notes"
)

type Store struct {
	db  *bbolt.DB
	now func() time.Time
}

// New opens (or creates) the database file and initializes buckets.
func New(dbPath string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, bucket := range []string{BucketEntries, BucketByOwner, BucketNotes} {
			if _, err := tx.CreateBucketIfNotExists([]byte(bucket)); err != nil {
				return fmt.Errorf("create bucket %s: %w", bucket, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Store{db: db, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func indexKey(ownerID, date, id string) []byte {
	return []byte(ownerID + "\x00" + date + "\x00" + id)
}

func indexPrefix(ownerID, date string) []byte {
	return []byte(ownerID + "\x00" + date)
}

func getEntry(tx *bbolt.Tx, id string) (core.Entry, error) {
	data := tx.Bucket([]byte(BucketEntries)).Get([]byte(id))
	if data == nil {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, ports.ErrNotFound)
	}
	var e core.Entry
	if err := json.Unmarshal(data, &e); err != nil {
		return core.Entry{}, &core.DataIntegrityError{EntryID: id, Err: err}
	}
	return e, nil
}

func putEntry(tx *bbolt.Tx, e core.Entry) error {
	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("marshal entry: %w", err)
	}
	if err := tx.Bucket([]byte(BucketEntries)).Put([]byte(e.ID), data); err != nil {
		return err
	}
	return tx.Bucket([]byte(BucketByOwner)).Put(indexKey(e.OwnerID, e.OccurredOn.String(), e.ID), []byte(e.ID))
}

// Query implements ports.EntryReader
func (s *Store) Query(ctx context.Context, ownerID string, from, to core.Date) ([]core.Entry, error) {
	var out []core.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		c := tx.Bucket([]byte(BucketByOwner)).Cursor()
		lo, hi := indexPrefix(ownerID, from.String()), indexPrefix(ownerID, to.String())
		owner := []byte(ownerID + "\x00")
		for k, v := c.Seek(lo); k != nil && bytes.HasPrefix(k, owner) && bytes.Compare(k, hi) < 0; k, v = c.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			e, err := getEntry(tx, string(v))
			if err != nil {
				return err
			}
			out = append(out, e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return out, nil
}

// Get implements ports.EntryReader
func (s *Store) Get(_ context.Context, id string) (core.Entry, error) {
	var e core.Entry
	err := s.db.View(func(tx *bbolt.Tx) error {
		var err error
		e, err = getEntry(tx, id)
		return err
	})
	return e, err
}

// Create implements ports.EntryWriter
func (s *Store) Create(_ context.Context, ownerID string, f core.EntryFields) (string, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	e := core.Entry{
		ID:          uuid.NewString(),
		OwnerID:     ownerID,
		EntryFields: f,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.db.Update(func(tx *bbolt.Tx) error { return putEntry(tx, e) }); err != nil {
		return "", fmt.Errorf("create entry: %w", err)
	}
	return e.ID, nil
}

// Update implements ports.EntryWriter
func (s *Store) Update(_ context.Context, id string, p core.EntryPatch) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		e, err := getEntry(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Bucket([]byte(BucketByOwner)).Delete(indexKey(e.OwnerID, e.OccurredOn.String(), e.ID)); err != nil {
			return err
		}
		e.EntryFields = p.Apply(e.EntryFields)
		e.UpdatedAt = s.now().UTC().Truncate(time.Millisecond)
		return putEntry(tx, e)
	})
}

// Delete implements ports.EntryWriter
func (s *Store) Delete(_ context.Context, id string) error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		e, err := getEntry(tx, id)
		if err != nil {
			return err
		}
		if err := tx.Bucket([]byte(BucketByOwner)).Delete(indexKey(e.OwnerID, e.OccurredOn.String(), e.ID)); err != nil {
			return err
		}
		return tx.Bucket([]byte(BucketEntries)).Delete([]byte(id))
	})
}

// LoadNote implements ports.NoteStore
func (s *Store) LoadNote(_ context.Context, ownerID string) (core.Note, error) {
	n := core.Note{OwnerID: ownerID}
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket([]byte(BucketNotes)).Get([]byte(ownerID))
		if data == nil {
			return nil
		}
		return json.Unmarshal(data, &n)
	})
	if err != nil {
		return core.Note{}, fmt.Errorf("load note: %w", err)
	}
	return n, nil
}

// SaveNote implements ports.NoteStore
func (s *Store) SaveNote(_ context.Context, n core.Note) error {
	if n.UpdatedAt.IsZero() {
		n.UpdatedAt = s.now().UTC()
	}
	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal note: %w", err)
	}
	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket([]byte(BucketNotes)).Put([]byte(n.OwnerID), data)
	})
}
