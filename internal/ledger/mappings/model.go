package mappings

import (
	"errors"
	"time"
)

// ErrNotFound indicates no account mapping exists for the key. Entry
// generators surface this loudly instead of skipping the posting.
var ErrNotFound = errors.New("mappings: account mapping not found")

// ErrInvalidTarget indicates the mapped account is missing or inactive.
var ErrInvalidTarget = errors.New("mappings: target account missing or inactive")

// AccountMapping links an integration key (module + key, e.g. EXPENSE +
// category code) to a ledger account. Replaces name-string matching with an
// explicit table validated at configuration time.
type AccountMapping struct {
	CompanyID int64
	Module    string
	Key       string
	AccountID int64
	CreatedAt time.Time
	UpdatedAt time.Time
}
