// Package memory is a MonthPublisher that keeps the last published rows in
// process. It backs the worker when no spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"sync"

	"ledger/internal/sheets"
)

var _ sheets.MonthPublisher = (*Publisher)(nil)

type Publisher struct {
	mu        sync.Mutex
	tabs      map[string][][]string
	published int
}

func New() *Publisher {
	return &Publisher{tabs: make(map[string][][]string)}
}

func key(ownerID string, year, month int) string {
	return fmt.Sprintf("%s/%04d-%02d", ownerID, year, month)
}

// PublishMonth stores a copy of rows.
func (p *Publisher) PublishMonth(ctx context.Context, ownerID string, year, month int, rows [][]string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	cp := make([][]string, len(rows))
	for i, r := range rows {
		cp[i] = append([]string(nil), r...)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.tabs[key(ownerID, year, month)] = cp
	p.published++
	return nil
}

// Rows returns what was last published for the month.
func (p *Publisher) Rows(ownerID string, year, month int) ([][]string, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	rows, ok := p.tabs[key(ownerID, year, month)]
	return rows, ok
}

// Published counts PublishMonth calls.
func (p *Publisher) Published() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.published
}
