package accounts

import (
	"errors"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

var (
	// ErrNotFound indicates a missing account.
	ErrNotFound = errors.New("accounts: account not found")
	// ErrDuplicateCode indicates a per-company code collision.
	ErrDuplicateCode = errors.New("accounts: code already exists")
	// ErrValidation indicates a malformed account payload.
	ErrValidation = errors.New("accounts: invalid account")
	// ErrParentNotFound indicates the referenced parent does not exist.
	ErrParentNotFound = errors.New("accounts: parent account not found")
	// ErrParentCycle indicates the parent assignment would create a cycle.
	ErrParentCycle = errors.New("accounts: parent assignment creates a cycle")
	// ErrInUse indicates the account is referenced by journal lines.
	ErrInUse = errors.New("accounts: account referenced by journal lines")
)

// Account models a chart of accounts node.
type Account struct {
	ID        int64
	CompanyID int64
	Code      string
	Name      string
	Type      ledger.AccountType
	ParentID  *int64
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	CompanyID int64
	Code      string
	Name      string
	Type      ledger.AccountType
	ParentID  *int64
}

// UpdateInput carries mutable account fields.
type UpdateInput struct {
	CompanyID int64
	ID        int64
	Name      string
	ParentID  *int64
}

// ListFilter narrows account listings.
type ListFilter struct {
	Type       ledger.AccountType
	ActiveOnly bool
}
