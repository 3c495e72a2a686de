package core

import (
	"errors"
	"math/rand"
	"testing"
)

func expense(id, amount string, cat Category, on Date, split *Split) Entry {
	return Entry{
		ID:      id,
		OwnerID: "u1",
		EntryFields: EntryFields{
			Kind:        KindExpense,
			Amount:      dec(amount),
			Description: "e " + id,
			Category:    cat,
			OccurredOn:  on,
			Split:       split,
		},
	}
}

func income(id, amount string, on Date) Entry {
	return Entry{
		ID:      id,
		OwnerID: "u1",
		EntryFields: EntryFields{
			Kind:        KindIncome,
			Amount:      dec(amount),
			Description: "i " + id,
			Category:    CategoryIncome,
			OccurredOn:  on,
		},
	}
}

func assertSummary(t *testing.T, got Summary, expense, inc, pending, received, net string) {
	t.Helper()
	checks := []struct {
		name string
		got  string
		want string
	}{
		{"total expense", got.TotalExpense.String(), dec(expense).String()},
		{"total income", got.TotalIncome.String(), dec(inc).String()},
		{"split pending", got.TotalSplitPending.String(), dec(pending).String()},
		{"split received", got.TotalSplitReceived.String(), dec(received).String()},
		{"net expense", got.NetExpense.String(), dec(net).String()},
	}
	for _, c := range checks {
		if c.got != c.want {
			t.Fatalf("%s = %s, want %s", c.name, c.got, c.want)
		}
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s, err := Summarize(nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertSummary(t, s, "0", "0", "0", "0", "0")
}

func TestSummarizeScenarios(t *testing.T) {
	day := NewDate(2026, 1, 5)
	cases := []struct {
		name    string
		entries []Entry
		want    [5]string
	}{
		{
			name:    "single expense",
			entries: []Entry{expense("a", "500", CategoryFood, day, nil)},
			want:    [5]string{"500", "0", "0", "0", "500"},
		},
		{
			name: "received split",
			entries: []Entry{expense("a", "1000", CategoryFood, day,
				&Split{With: "Ana", Amount: dec("400"), Status: SplitReceived})},
			want: [5]string{"1000", "0", "0", "400", "600"},
		},
		{
			name:    "income only",
			entries: []Entry{income("a", "2000", day)},
			want:    [5]string{"0", "2000", "0", "0", "-2000"},
		},
		{
			name: "mixed with pending split",
			entries: []Entry{
				expense("a", "500", CategoryFood, day, nil),
				income("b", "2000", day),
				expense("c", "1000", CategoryBills, day,
					&Split{With: "Ana", Amount: dec("400"), Status: SplitPending}),
			},
			want: [5]string{"1500", "2000", "400", "0", "-500"},
		},
		{
			name: "fractional amounts stay exact",
			entries: []Entry{
				expense("a", "0.1", CategoryFood, day, nil),
				expense("b", "0.2", CategoryFood, day, nil),
			},
			want: [5]string{"0.3", "0", "0", "0", "0.3"},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s, err := Summarize(tc.entries)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			assertSummary(t, s, tc.want[0], tc.want[1], tc.want[2], tc.want[3], tc.want[4])
		})
	}
}

func TestSummarizeIsOrderIndependentAndPure(t *testing.T) {
	day := NewDate(2026, 2, 1)
	entries := []Entry{
		expense("a", "12.30", CategoryFood, day, nil),
		income("b", "800", day.AddDays(1)),
		expense("c", "99.99", CategoryHealth, day.AddDays(2), &Split{With: "Bo", Amount: dec("20"), Status: SplitPending}),
		expense("d", "45", CategoryTransport, day.AddDays(3), &Split{With: "Cy", Amount: dec("45"), Status: SplitReceived}),
		income("e", "0.01", day.AddDays(4)),
	}
	want, err := Summarize(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !want.NetExpense.Equal(want.TotalExpense.Sub(want.TotalIncome).Sub(want.TotalSplitReceived)) {
		t.Fatalf("net expense identity broken: %+v", want)
	}

	r := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]Entry(nil), entries...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, err := Summarize(shuffled)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !got.NetExpense.Equal(want.NetExpense) || !got.TotalExpense.Equal(want.TotalExpense) ||
			!got.TotalIncome.Equal(want.TotalIncome) || !got.TotalSplitPending.Equal(want.TotalSplitPending) ||
			!got.TotalSplitReceived.Equal(want.TotalSplitReceived) {
			t.Fatalf("shuffle %d changed summary: %+v vs %+v", i, got, want)
		}
	}
	if entries[0].ID != "a" || entries[2].Split.Amount.String() != "20" {
		t.Fatalf("input was mutated")
	}
}

func TestSummarizeRejectsMalformedEntries(t *testing.T) {
	day := NewDate(2026, 1, 5)
	bad := []Entry{
		expense("ok", "10", CategoryFood, day, nil),
		income("broken", "0", day),
	}
	_, err := Summarize(bad)
	var de *DataIntegrityError
	if !errors.As(err, &de) || de.EntryID != "broken" {
		t.Fatalf("expected DataIntegrityError for entry broken, got %v", err)
	}
	if !errors.Is(err, ErrInvalidAmount) {
		t.Fatalf("expected cause ErrInvalidAmount, got %v", err)
	}
	if IsValidation(err) {
		t.Fatalf("malformed stored entry reported as rejected input: %v", err)
	}
	if !IsValidation(invalid("amount", ErrInvalidAmount)) {
		t.Fatalf("plain ValidationError not recognised")
	}

	splitIncome := income("si", "10", day)
	splitIncome.Split = &Split{With: "Ana", Amount: dec("1"), Status: SplitPending}
	if _, err := Summarize([]Entry{splitIncome}); !IsDataIntegrity(err) {
		t.Fatalf("expected DataIntegrityError for split income, got %v", err)
	}
}

func TestSummarizeByCategory(t *testing.T) {
	day := NewDate(2026, 1, 5)
	entries := []Entry{
		expense("a", "10", CategoryTransport, day, nil),
		expense("b", "5", CategoryFood, day, nil),
		expense("c", "2.5", CategoryFood, day, nil),
		income("d", "1000", day),
	}
	got, err := SummarizeByCategory(entries)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 categories, got %d", len(got))
	}
	if got[0].Category != CategoryFood || got[0].Amount.String() != "7.5" {
		t.Fatalf("unexpected first category %+v", got[0])
	}
	if got[1].Category != CategoryTransport || got[1].Amount.String() != "10" {
		t.Fatalf("unexpected second category %+v", got[1])
	}
}

func TestDaysWithEntriesAndOnDate(t *testing.T) {
	d1, d2 := NewDate(2026, 1, 3), NewDate(2026, 1, 10)
	entries := []Entry{
		expense("a", "1", CategoryFood, d2, nil),
		expense("b", "1", CategoryFood, d1, nil),
		income("c", "1", d2),
	}
	days := DaysWithEntries(entries)
	if len(days) != 2 || days[0].String() != "2026-01-03" || days[1].String() != "2026-01-10" {
		t.Fatalf("unexpected days %v", days)
	}
	on := OnDate(entries, d2)
	if len(on) != 2 || on[0].ID != "a" || on[1].ID != "c" {
		t.Fatalf("unexpected entries on %s: %+v", d2, on)
	}
	if len(OnDate(entries, NewDate(2026, 1, 4))) != 0 {
		t.Fatalf("expected no entries")
	}
}

func TestMoneyIn(t *testing.T) {
	s := Summary{TotalIncome: dec("100"), TotalSplitReceived: dec("25.5")}
	if s.MoneyIn().String() != "125.5" {
		t.Fatalf("unexpected money in %s", s.MoneyIn())
	}
}
