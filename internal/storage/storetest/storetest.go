// Package storetest is a conformance suite run against every ports.Backend.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledger/internal/core"
	"ledger/internal/ports"
)

func fields(on core.Date, amount string) core.EntryFields {
	return core.EntryFields{
		Kind:        core.KindExpense,
		Amount:      decimal.RequireFromString(amount),
		Description: "entry on " + on.String(),
		Category:    core.CategoryFood,
		OccurredOn:  on,
	}
}

// Run exercises a fresh backend returned by newBackend for each subtest.
func Run(t *testing.T, newBackend func(t *testing.T) ports.Backend) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		b := newBackend(t)
		f := fields(core.NewDate(2026, 1, 5), "12.5")
		f.Split = &core.Split{With: "Ana", Amount: decimal.RequireFromString("2.25"), Status: core.SplitPending}

		id, err := b.Create(ctx, "u1", f)
		require.NoError(t, err)
		require.NotEmpty(t, id)

		got, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, id, got.ID)
		assert.Equal(t, "u1", got.OwnerID)
		assert.Equal(t, core.KindExpense, got.Kind)
		assert.True(t, got.Amount.Equal(f.Amount), "amount %s", got.Amount)
		assert.Equal(t, "2026-01-05", got.OccurredOn.String())
		require.NotNil(t, got.Split)
		assert.Equal(t, "Ana", got.Split.With)
		assert.True(t, got.Split.Amount.Equal(decimal.RequireFromString("2.25")))
		assert.Equal(t, core.SplitPending, got.Split.Status)
		assert.False(t, got.CreatedAt.IsZero())
		assert.Equal(t, got.CreatedAt, got.UpdatedAt)
	})

	t.Run("amounts keep their full precision", func(t *testing.T) {
		b := newBackend(t)
		f := fields(core.NewDate(2026, 1, 5), "1.23456")
		f.Split = &core.Split{With: "Ana", Amount: decimal.RequireFromString("0.00001"), Status: core.SplitReceived}
		id, err := b.Create(ctx, "u1", f)
		require.NoError(t, err)

		big := fields(core.NewDate(2026, 1, 6), "123456789012345.678901")
		bigID, err := b.Create(ctx, "u1", big)
		require.NoError(t, err)

		got, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(f.Amount), "amount %s", got.Amount)
		require.NotNil(t, got.Split)
		assert.True(t, got.Split.Amount.Equal(f.Split.Amount), "split amount %s", got.Split.Amount)

		got, err = b.Get(ctx, bigID)
		require.NoError(t, err)
		assert.True(t, got.Amount.Equal(big.Amount), "amount %s", got.Amount)
	})

	t.Run("query is half open and owner scoped", func(t *testing.T) {
		b := newBackend(t)
		for _, c := range []struct {
			owner string
			on    core.Date
		}{
			{"u1", core.NewDate(2025, 12, 31)},
			{"u1", core.NewDate(2026, 1, 1)},
			{"u1", core.NewDate(2026, 1, 31)},
			{"u1", core.NewDate(2026, 2, 1)},
			{"u2", core.NewDate(2026, 1, 15)},
		} {
			_, err := b.Create(ctx, c.owner, fields(c.on, "1"))
			require.NoError(t, err)
		}

		from, to, err := core.MonthRange(2026, 1)
		require.NoError(t, err)
		got, err := b.Query(ctx, "u1", from, to)
		require.NoError(t, err)
		require.Len(t, got, 2)
		days := map[string]bool{}
		for _, e := range got {
			assert.Equal(t, "u1", e.OwnerID)
			days[e.OccurredOn.String()] = true
		}
		assert.True(t, days["2026-01-01"])
		assert.True(t, days["2026-01-31"])

		none, err := b.Query(ctx, "nobody", from, to)
		require.NoError(t, err)
		assert.Empty(t, none)
	})

	t.Run("update merges and refreshes", func(t *testing.T) {
		b := newBackend(t)
		id, err := b.Create(ctx, "u1", fields(core.NewDate(2026, 1, 5), "10"))
		require.NoError(t, err)
		before, err := b.Get(ctx, id)
		require.NoError(t, err)

		moved := core.NewDate(2026, 2, 3)
		desc := "moved"
		require.NoError(t, b.Update(ctx, id, core.EntryPatch{OccurredOn: &moved, Description: &desc}))

		got, err := b.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, "moved", got.Description)
		assert.Equal(t, "2026-02-03", got.OccurredOn.String())
		assert.True(t, got.Amount.Equal(decimal.RequireFromString("10")))
		assert.Equal(t, before.CreatedAt, got.CreatedAt)
		assert.False(t, got.UpdatedAt.Before(before.UpdatedAt))

		jan, janEnd, _ := core.MonthRange(2026, 1)
		inJan, err := b.Query(ctx, "u1", jan, janEnd)
		require.NoError(t, err)
		assert.Empty(t, inJan)
		feb, febEnd, _ := core.MonthRange(2026, 2)
		inFeb, err := b.Query(ctx, "u1", feb, febEnd)
		require.NoError(t, err)
		assert.Len(t, inFeb, 1)

		require.NoError(t, b.Update(ctx, id, core.EntryPatch{Split: &core.Split{With: "Bo", Amount: decimal.RequireFromString("4"), Status: core.SplitReceived}}))
		got, err = b.Get(ctx, id)
		require.NoError(t, err)
		require.NotNil(t, got.Split)
		assert.Equal(t, core.SplitReceived, got.Split.Status)

		require.NoError(t, b.Update(ctx, id, core.EntryPatch{RemoveSplit: true}))
		got, err = b.Get(ctx, id)
		require.NoError(t, err)
		assert.Nil(t, got.Split)
	})

	t.Run("delete and missing ids", func(t *testing.T) {
		b := newBackend(t)
		id, err := b.Create(ctx, "u1", fields(core.NewDate(2026, 1, 5), "10"))
		require.NoError(t, err)
		require.NoError(t, b.Delete(ctx, id))

		_, err = b.Get(ctx, id)
		assert.True(t, errors.Is(err, ports.ErrNotFound), "get: %v", err)
		assert.True(t, errors.Is(b.Delete(ctx, id), ports.ErrNotFound))
		desc := "x"
		assert.True(t, errors.Is(b.Update(ctx, id, core.EntryPatch{Description: &desc}), ports.ErrNotFound))

		from, to, _ := core.MonthRange(2026, 1)
		got, err := b.Query(ctx, "u1", from, to)
		require.NoError(t, err)
		assert.Empty(t, got)
	})

	t.Run("notes", func(t *testing.T) {
		b := newBackend(t)
		n, err := b.LoadNote(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "u1", n.OwnerID)
		assert.Empty(t, n.Content)

		require.NoError(t, b.SaveNote(ctx, core.Note{OwnerID: "u1", Content: "first"}))
		require.NoError(t, b.SaveNote(ctx, core.Note{OwnerID: "u1", Content: "second"}))
		n, err = b.LoadNote(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, "second", n.Content)
		assert.False(t, n.UpdatedAt.IsZero())

		other, err := b.LoadNote(ctx, "u2")
		require.NoError(t, err)
		assert.Empty(t, other.Content)
	})
}
