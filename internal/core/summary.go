package core

import (
	"sort"

	"github.com/shopspring/decimal"
)

// Summary holds month-to-date totals derived from a set of entries. It is
// recomputed on demand and never stored.
type Summary struct {
	TotalExpense       decimal.Decimal `json:"total_expense"`
	TotalIncome        decimal.Decimal `json:"total_income"`
	TotalSplitPending  decimal.Decimal `json:"total_split_pending"`
	TotalSplitReceived decimal.Decimal `json:"total_split_received"`
	NetExpense         decimal.Decimal `json:"net_expense"`
}

// MoneyIn is what actually came back to the owner: income plus received
// split reimbursements.
func (s Summary) MoneyIn() decimal.Decimal {
	return s.TotalIncome.Add(s.TotalSplitReceived)
}

// CategoryAmount represents an amount aggregated by category name.
type CategoryAmount struct {
	Category Category        `json:"category"`
	Amount   decimal.Decimal `json:"amount"`
}

// CheckIntegrity wraps any invariant violation of a stored entry in a
// *DataIntegrityError.
func CheckIntegrity(e Entry) error {
	if err := e.EntryFields.Validate(); err != nil {
		return &DataIntegrityError{EntryID: e.ID, Err: err}
	}
	return nil
}

// Summarize totals entries in a single pass. Expense amounts are counted in
// full; a received split offsets them in NetExpense while a pending split is
// only reported. Input order does not matter and entries are not modified.
func Summarize(entries []Entry) (Summary, error) {
	s := Summary{
		TotalExpense:       decimal.Zero,
		TotalIncome:        decimal.Zero,
		TotalSplitPending:  decimal.Zero,
		TotalSplitReceived: decimal.Zero,
	}
	for _, e := range entries {
		if err := CheckIntegrity(e); err != nil {
			return Summary{}, err
		}
		switch e.Kind {
		case KindIncome:
			s.TotalIncome = s.TotalIncome.Add(e.Amount)
		case KindExpense:
			s.TotalExpense = s.TotalExpense.Add(e.Amount)
			if e.Split == nil {
				continue
			}
			switch e.Split.Status {
			case SplitPending:
				s.TotalSplitPending = s.TotalSplitPending.Add(e.Split.Amount)
			case SplitReceived:
				s.TotalSplitReceived = s.TotalSplitReceived.Add(e.Split.Amount)
			}
		}
	}
	s.NetExpense = s.TotalExpense.Sub(s.TotalIncome).Sub(s.TotalSplitReceived)
	return s, nil
}

// SummarizeByCategory totals expense amounts per category, in
// ExpenseCategories order. Categories with no expenses are omitted.
func SummarizeByCategory(entries []Entry) ([]CategoryAmount, error) {
	totals := make(map[Category]decimal.Decimal)
	for _, e := range entries {
		if err := CheckIntegrity(e); err != nil {
			return nil, err
		}
		if e.Kind != KindExpense {
			continue
		}
		totals[e.Category] = totals[e.Category].Add(e.Amount)
	}
	out := make([]CategoryAmount, 0, len(totals))
	for _, c := range ExpenseCategories {
		if amount, ok := totals[c]; ok {
			out = append(out, CategoryAmount{Category: c, Amount: amount})
		}
	}
	return out, nil
}

// DaysWithEntries returns the distinct dates that carry at least one entry,
// in ascending order.
func DaysWithEntries(entries []Entry) []Date {
	seen := make(map[string]Date)
	for _, e := range entries {
		if e.OccurredOn.IsZero() {
			continue
		}
		seen[e.OccurredOn.String()] = e.OccurredOn
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	days := make([]Date, len(keys))
	for i, k := range keys {
		days[i] = seen[k]
	}
	return days
}

// OnDate returns the entries that occurred on d, preserving input order.
func OnDate(entries []Entry, d Date) []Entry {
	var out []Entry
	key := d.String()
	for _, e := range entries {
		if e.OccurredOn.String() == key {
			out = append(out, e)
		}
	}
	return out
}
