package core

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidMonth       = errors.New("invalid month")
	ErrInvalidDate        = errors.New("invalid date")
	ErrInvalidAmount      = errors.New("invalid amount")
	ErrInvalidKind        = errors.New("invalid kind")
	ErrEmptyDescription   = errors.New("empty description")
	ErrDescriptionTooLong = errors.New("description too long (max 200 characters)")
	ErrInvalidCategory    = errors.New("invalid category")
	ErrSplitOnIncome      = errors.New("split is only allowed on expenses")
	ErrEmptySplitParty    = errors.New("empty split party")
	ErrInvalidSplitAmount = errors.New("invalid split amount")
	ErrSplitExceedsAmount = errors.New("split amount exceeds entry amount")
	ErrInvalidSplitStatus = errors.New("invalid split status")
	ErrMissingEntryID     = errors.New("missing entry id")
)

// ValidationError reports which input field violated an entry invariant.
// Callers match the cause with errors.Is against the sentinels above.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error { return e.Err }

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// DataIntegrityError is returned by the aggregation and export paths when a
// stored entry breaks an invariant that validation should have enforced.
type DataIntegrityError struct {
	EntryID string
	Err     error
}

func (e *DataIntegrityError) Error() string {
	return fmt.Sprintf("entry %s is malformed: %v", e.EntryID, e.Err)
}

func (e *DataIntegrityError) Unwrap() error { return e.Err }

// IsValidation reports whether err is a rejected input. A ValidationError
// wrapped in a DataIntegrityError describes stored data, not input, and does
// not count.
func IsValidation(err error) bool {
	if IsDataIntegrity(err) {
		return false
	}
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsDataIntegrity reports whether err carries a DataIntegrityError.
func IsDataIntegrity(err error) bool {
	var de *DataIntegrityError
	return errors.As(err, &de)
}
