package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"ledger/internal/core"
	"ledger/internal/ports"

	_ "modernc.org/sqlite"
)

// Dialect selects the SQL flavour and migration set.
type Dialect string

const (
	DialectSQLite   Dialect = "sqlite"
	DialectPostgres Dialect = "postgres"
)

const entryColumns = `id, owner_id, kind, amount, description, category, occurred_on,
	split_with, split_amount, split_status, created_at, updated_at`

// SQLRepository stores entries and notes in SQLite or PostgreSQL. Queries are
// written with ? placeholders and rebound for PostgreSQL.
type SQLRepository struct {
	db      *sql.DB
	dialect Dialect
	now     func() time.Time
	newID   func() string
}

func NewSQLiteRepository(dbPath string) (*SQLRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// a single writer avoids SQLITE_BUSY under concurrent requests
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectSQLite, dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newSQLRepository(db, DialectSQLite), nil
}

func NewPostgresRepository(ctx context.Context, databaseURL string) (*SQLRepository, error) {
	db, err := openPostgres(databaseURL)
	if err != nil {
		return nil, err
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(DialectPostgres, databaseURL); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newSQLRepository(db, DialectPostgres), nil
}

func newSQLRepository(db *sql.DB, dialect Dialect) *SQLRepository {
	return &SQLRepository{
		db:      db,
		dialect: dialect,
		now:     time.Now,
		newID:   uuid.NewString,
	}
}

func openPostgres(databaseURL string) (*sql.DB, error) {
	config, err := pgx.ParseConfig(databaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse database URL: %w", err)
	}
	return stdlib.OpenDB(*config), nil
}

func (r *SQLRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// Ping reports whether the database is reachable.
func (r *SQLRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLRepository) rebind(query string) string {
	if r.dialect != DialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, c := range query {
		if c == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(c)
	}
	return b.String()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(s rowScanner) (core.Entry, error) {
	var (
		e                     core.Entry
		occurredOn            string
		splitWith, splitState sql.NullString
		splitAmount           decimal.NullDecimal
		createdAt, updatedAt  int64
	)
	err := s.Scan(&e.ID, &e.OwnerID, &e.Kind, &e.Amount, &e.Description, &e.Category, &occurredOn,
		&splitWith, &splitAmount, &splitState, &createdAt, &updatedAt)
	if err != nil {
		return core.Entry{}, err
	}
	d, err := core.ParseDate(occurredOn)
	if err != nil {
		return core.Entry{}, &core.DataIntegrityError{EntryID: e.ID, Err: err}
	}
	e.OccurredOn = d
	if splitWith.Valid || splitAmount.Valid || splitState.Valid {
		e.Split = &core.Split{
			With:   splitWith.String,
			Amount: splitAmount.Decimal,
			Status: core.SplitStatus(splitState.String),
		}
	}
	e.CreatedAt = time.UnixMilli(createdAt).UTC()
	e.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return e, nil
}

func splitColumns(s *core.Split) (any, any, any) {
	if s == nil {
		return nil, nil, nil
	}
	return s.With, s.Amount.String(), string(s.Status)
}

// Query implements ports.EntryReader
func (r *SQLRepository) Query(ctx context.Context, ownerID string, from, to core.Date) ([]core.Entry, error) {
	rows, err := r.db.QueryContext(ctx, r.rebind(`SELECT `+entryColumns+` FROM entries
		WHERE owner_id = ? AND occurred_on >= ? AND occurred_on < ?
		ORDER BY occurred_on, created_at`), ownerID, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	defer rows.Close()

	var entries []core.Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan entry: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate entries: %w", err)
	}
	return entries, nil
}

// Get implements ports.EntryReader
func (r *SQLRepository) Get(ctx context.Context, id string) (core.Entry, error) {
	return r.get(ctx, r.db, id)
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *SQLRepository) get(ctx context.Context, q queryer, id string) (core.Entry, error) {
	row := q.QueryRowContext(ctx, r.rebind(`SELECT `+entryColumns+` FROM entries WHERE id = ?`), id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Entry{}, fmt.Errorf("entry %s: %w", id, ports.ErrNotFound)
	}
	if err != nil {
		return core.Entry{}, fmt.Errorf("get entry %s: %w", id, err)
	}
	return e, nil
}

// Create implements ports.EntryWriter
func (r *SQLRepository) Create(ctx context.Context, ownerID string, f core.EntryFields) (string, error) {
	id := r.newID()
	now := r.now().UnixMilli()
	splitWith, splitAmount, splitStatus := splitColumns(f.Split)

	_, err := r.db.ExecContext(ctx, r.rebind(`INSERT INTO entries (`+entryColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`),
		id, ownerID, string(f.Kind), f.Amount.String(), f.Description, string(f.Category), f.OccurredOn.String(),
		splitWith, splitAmount, splitStatus, now, now)
	if err != nil {
		return "", fmt.Errorf("create entry: %w", err)
	}

	slog.InfoContext(ctx, "Entry saved",
		"id", id,
		"dialect", r.dialect,
		"kind", f.Kind,
		"occurred_on", f.OccurredOn.String())

	return id, nil
}

// Update implements ports.EntryWriter. The read and the write share a
// transaction, but there is no version check: the last writer wins.
func (r *SQLRepository) Update(ctx context.Context, id string, p core.EntryPatch) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin update: %w", err)
	}
	defer tx.Rollback()

	current, err := r.get(ctx, tx, id)
	if err != nil {
		return err
	}
	f := p.Apply(current.EntryFields)
	splitWith, splitAmount, splitStatus := splitColumns(f.Split)

	_, err = tx.ExecContext(ctx, r.rebind(`UPDATE entries SET
		kind = ?, amount = ?, description = ?, category = ?, occurred_on = ?,
		split_with = ?, split_amount = ?, split_status = ?, updated_at = ?
		WHERE id = ?`),
		string(f.Kind), f.Amount.String(), f.Description, string(f.Category), f.OccurredOn.String(),
		splitWith, splitAmount, splitStatus, r.now().UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("update entry %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit update: %w", err)
	}
	return nil
}

// Delete implements ports.EntryWriter
func (r *SQLRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, r.rebind(`DELETE FROM entries WHERE id = ?`), id)
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete entry %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("entry %s: %w", id, ports.ErrNotFound)
	}
	return nil
}

// LoadNote implements ports.NoteStore
func (r *SQLRepository) LoadNote(ctx context.Context, ownerID string) (core.Note, error) {
	n := core.Note{OwnerID: ownerID}
	var updatedAt int64
	err := r.db.QueryRowContext(ctx, r.rebind(`SELECT content, updated_at FROM notes WHERE owner_id = ?`), ownerID).
		Scan(&n.Content, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return n, nil
	}
	if err != nil {
		return core.Note{}, fmt.Errorf("load note: %w", err)
	}
	n.UpdatedAt = time.UnixMilli(updatedAt).UTC()
	return n, nil
}

// SaveNote implements ports.NoteStore
func (r *SQLRepository) SaveNote(ctx context.Context, n core.Note) error {
	updatedAt := n.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = r.now()
	}
	_, err := r.db.ExecContext(ctx, r.rebind(`INSERT INTO notes (owner_id, content, updated_at) VALUES (?, ?, ?)
		ON CONFLICT (owner_id) DO UPDATE SET content = excluded.content, updated_at = excluded.updated_at`),
		n.OwnerID, n.Content, updatedAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("save note: %w", err)
	}
	return nil
}
