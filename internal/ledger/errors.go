package ledger

import (
	"errors"
	"fmt"
)

var (
	// ErrUnbalanced indicates total debit != total credit beyond tolerance.
	ErrUnbalanced = errors.New("ledger: entry lines must balance")
	// ErrTooFewLines indicates fewer than two qualifying lines.
	ErrTooFewLines = errors.New("ledger: entry requires at least two lines")
	// ErrZeroAmount indicates an entry that moves no value.
	ErrZeroAmount = errors.New("ledger: entry amount must be greater than zero")
	// ErrMixedLine indicates a line carrying both a debit and a credit.
	ErrMixedLine = errors.New("ledger: line cannot carry both a debit and a credit")
	// ErrEmptyLine indicates a line carrying neither a debit nor a credit.
	ErrEmptyLine = errors.New("ledger: line must carry a debit or a credit")
	// ErrNegativeAmount indicates a negative debit or credit.
	ErrNegativeAmount = errors.New("ledger: line amount cannot be negative")
	// ErrLineAccountRequired indicates a line without an account reference.
	ErrLineAccountRequired = errors.New("ledger: line missing account")
	// ErrEntryNotFound indicates a missing journal entry.
	ErrEntryNotFound = errors.New("ledger: journal entry not found")
	// ErrSourceAlreadyLinked indicates idempotency conflict.
	ErrSourceAlreadyLinked = errors.New("ledger: source already linked")
	// ErrSourceConflict indicates the source link already exists.
	ErrSourceConflict = errors.New("ledger: source link conflict")
	// ErrScopeRequired indicates a posting without a tenant scope.
	ErrScopeRequired = errors.New("ledger: company scope required")
)

// NumberingError wraps a failure to allocate an entry number from the
// per-company sequence. The posting path falls back to a timestamp-derived
// number rather than blocking on numbering alone.
type NumberingError struct {
	Err error
}

func (e *NumberingError) Error() string {
	return fmt.Sprintf("ledger: entry number allocation failed: %s", e.Err)
}

func (e *NumberingError) Unwrap() error {
	return e.Err
}

// LineError annotates a validation error with the offending line so the
// caller can surface an actionable message.
type LineError struct {
	Line int
	Err  error
}

func (e *LineError) Error() string {
	return fmt.Sprintf("line %d: %s", e.Line, e.Err)
}

func (e *LineError) Unwrap() error {
	return e.Err
}

func lineErr(idx int, err error) error {
	return &LineError{Line: idx + 1, Err: err}
}
