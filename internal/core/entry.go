package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

const (
	KindExpense Kind = "expense"
	KindIncome  Kind = "income"

	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryShopping      Category = "shopping"
	CategoryBills         Category = "bills"
	CategoryEntertainment Category = "entertainment"
	CategoryHealth        Category = "health"
	CategoryEducation     Category = "education"
	CategoryOther         Category = "other"
	// CategoryIncome is implied for every income entry and is not user-selectable.
	CategoryIncome Category = "income"

	SplitPending  SplitStatus = "pending"
	SplitReceived SplitStatus = "received"

	maxDescriptionLen = 200
)

type (
	Kind        string
	Category    string
	SplitStatus string

	// Split is the other party's share of an expense. It only exists on
	// expense entries.
	Split struct {
		With   string          `json:"with" yaml:"with"`
		Amount decimal.Decimal `json:"amount" yaml:"amount"`
		Status SplitStatus     `json:"status" yaml:"status"`
	}

	// EntryFields are the user-editable parts of an entry.
	EntryFields struct {
		Kind        Kind            `json:"kind" yaml:"kind"`
		Amount      decimal.Decimal `json:"amount" yaml:"amount"`
		Description string          `json:"description" yaml:"description"`
		Category    Category        `json:"category" yaml:"category"`
		OccurredOn  Date            `json:"occurred_on" yaml:"occurred_on"`
		Split       *Split          `json:"split,omitempty" yaml:"split,omitempty"`
	}

	// Entry is a recorded income or expense. ID, OwnerID and CreatedAt never
	// change after creation.
	Entry struct {
		ID      string `json:"id" yaml:"id"`
		OwnerID string `json:"owner_id" yaml:"owner_id"`

		EntryFields `yaml:",inline"`

		CreatedAt time.Time `json:"created_at" yaml:"created_at"`
		UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`
	}
)

// ExpenseCategories lists the selectable expense categories in display order.
var ExpenseCategories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryBills,
	CategoryEntertainment,
	CategoryHealth,
	CategoryEducation,
	CategoryOther,
}

func (k Kind) Valid() bool {
	return k == KindExpense || k == KindIncome
}

// IsExpenseCategory reports whether c is one of ExpenseCategories.
func (c Category) IsExpenseCategory() bool {
	for _, ec := range ExpenseCategories {
		if c == ec {
			return true
		}
	}
	return false
}

func (s SplitStatus) Valid() bool {
	return s == SplitPending || s == SplitReceived
}

// Normalize trims free text and applies the income rules: income always
// carries CategoryIncome and never a split.
func (f EntryFields) Normalize() EntryFields {
	f.Description = strings.TrimSpace(f.Description)
	if f.Kind == KindIncome {
		f.Category = CategoryIncome
	}
	if f.Split != nil {
		s := *f.Split
		s.With = strings.TrimSpace(s.With)
		f.Split = &s
	}
	return f
}

// Validate checks every entry invariant and returns a *ValidationError for
// the first field that fails.
func (f EntryFields) Validate() error {
	if !f.Kind.Valid() {
		return invalid("kind", ErrInvalidKind)
	}
	if !f.Amount.IsPositive() {
		return invalid("amount", ErrInvalidAmount)
	}
	desc := strings.TrimSpace(f.Description)
	if desc == "" {
		return invalid("description", ErrEmptyDescription)
	}
	if utf8.RuneCountInString(desc) > maxDescriptionLen {
		return invalid("description", ErrDescriptionTooLong)
	}
	if err := f.OccurredOn.Validate(); err != nil {
		return invalid("occurred_on", err)
	}

	switch f.Kind {
	case KindIncome:
		if f.Category != CategoryIncome {
			return invalid("category", ErrInvalidCategory)
		}
		if f.Split != nil {
			return invalid("split", ErrSplitOnIncome)
		}
	case KindExpense:
		if !f.Category.IsExpenseCategory() {
			return invalid("category", ErrInvalidCategory)
		}
		if f.Split != nil {
			return f.Split.validate(f.Amount)
		}
	}
	return nil
}

func (s Split) validate(amount decimal.Decimal) error {
	if strings.TrimSpace(s.With) == "" {
		return invalid("split_with", ErrEmptySplitParty)
	}
	if s.Amount.IsNegative() {
		return invalid("split_amount", ErrInvalidSplitAmount)
	}
	// a larger share would make the net amount negative
	if s.Amount.GreaterThan(amount) {
		return invalid("split_amount", ErrSplitExceedsAmount)
	}
	if !s.Status.Valid() {
		return invalid("split_status", ErrInvalidSplitStatus)
	}
	return nil
}

// Net is the out-of-pocket amount: the full amount, less the other party's
// share once it has been received. It is unsigned.
func (f EntryFields) Net() decimal.Decimal {
	if f.Kind == KindExpense && f.Split != nil && f.Split.Status == SplitReceived {
		return f.Amount.Sub(f.Split.Amount)
	}
	return f.Amount
}

// Signed returns v negated for expenses and unchanged for income.
func (f EntryFields) Signed(v decimal.Decimal) decimal.Decimal {
	if f.Kind == KindExpense {
		return v.Neg()
	}
	return v
}

// EntryPatch is a partial update. Nil fields are left untouched; RemoveSplit
// clears an existing split and wins over Split.
type EntryPatch struct {
	Kind        *Kind            `json:"kind,omitempty"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *Category        `json:"category,omitempty"`
	OccurredOn  *Date            `json:"occurred_on,omitempty"`
	Split       *Split           `json:"split,omitempty"`
	RemoveSplit bool             `json:"remove_split,omitempty"`
}

// IsEmpty reports whether the patch would change nothing.
func (p EntryPatch) IsEmpty() bool {
	return p.Kind == nil && p.Amount == nil && p.Description == nil && p.Category == nil &&
		p.OccurredOn == nil && p.Split == nil && !p.RemoveSplit
}

// Apply merges the patch over f and normalizes the result. Switching an
// expense to income drops its split.
func (p EntryPatch) Apply(f EntryFields) EntryFields {
	if p.Kind != nil {
		f.Kind = *p.Kind
	}
	if p.Amount != nil {
		f.Amount = *p.Amount
	}
	if p.Description != nil {
		f.Description = *p.Description
	}
	if p.Category != nil {
		f.Category = *p.Category
	}
	if p.OccurredOn != nil {
		f.OccurredOn = *p.OccurredOn
	}
	if p.Split != nil {
		s := *p.Split
		f.Split = &s
	}
	if p.RemoveSplit {
		f.Split = nil
	}
	if f.Kind == KindIncome {
		f.Split = nil
	}
	return f.Normalize()
}

// EntryInput is an entry as typed into a form: every value is text and an
// empty string means the value is missing.
type EntryInput struct {
	Kind        string `json:"kind"`
	Amount      string `json:"amount"`
	Description string `json:"description"`
	Category    string `json:"category"`
	OccurredOn  string `json:"occurred_on"`
	IsSplit     bool   `json:"is_split"`
	SplitWith   string `json:"split_with"`
	SplitAmount string `json:"split_amount"`
	SplitStatus string `json:"split_status"`
}

// ParseEntryInput converts form input into validated entry fields. Missing
// values are errors, never zero. Split values on income input are ignored,
// as the income form has no split section.
func ParseEntryInput(in EntryInput) (EntryFields, error) {
	var f EntryFields

	f.Kind = Kind(strings.TrimSpace(in.Kind))
	if !f.Kind.Valid() {
		return EntryFields{}, invalid("kind", ErrInvalidKind)
	}

	amount, err := ParseAmount(in.Amount)
	if err != nil {
		return EntryFields{}, invalid("amount", err)
	}
	f.Amount = amount

	f.Description = in.Description
	f.Category = Category(strings.TrimSpace(in.Category))

	date, err := ParseDate(strings.TrimSpace(in.OccurredOn))
	if err != nil {
		return EntryFields{}, invalid("occurred_on", err)
	}
	f.OccurredOn = date

	if f.Kind == KindExpense && in.IsSplit {
		splitAmount, err := ParseSplitAmount(in.SplitAmount)
		if err != nil {
			return EntryFields{}, invalid("split_amount", err)
		}
		status := SplitStatus(strings.TrimSpace(in.SplitStatus))
		if status == "" {
			status = SplitPending
		}
		f.Split = &Split{With: in.SplitWith, Amount: splitAmount, Status: status}
	}

	f = f.Normalize()
	if err := f.Validate(); err != nil {
		return EntryFields{}, err
	}
	return f, nil
}
