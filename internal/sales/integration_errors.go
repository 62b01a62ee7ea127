package sales

import (
	"errors"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/ledger/mappings"
)

// LedgerPostError indicates the sale was settled but journal posting failed.
// The sale itself stands; the posting must be repaired by the operator.
type LedgerPostError struct {
	Err       error
	Retryable bool
	Message   string
}

func (e *LedgerPostError) Error() string {
	return e.Message
}

func (e *LedgerPostError) Unwrap() error {
	return e.Err
}

func wrapLedgerPostError(err error) *LedgerPostError {
	if err == nil {
		return nil
	}
	switch {
	case errors.Is(err, mappings.ErrNotFound):
		return &LedgerPostError{
			Err:       err,
			Retryable: true,
			Message:   "Account mapping missing for sale; sale settled but journal posting pending",
		}
	default:
		return &LedgerPostError{
			Err:       err,
			Retryable: false,
			Message:   fmt.Sprintf("Failed to post sale to ledger; sale settled but journal posting pending (%s)", err.Error()),
		}
	}
}
