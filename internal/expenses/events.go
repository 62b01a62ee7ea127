package expenses

import (
	"context"
	"time"
)

// ExpenseRecordedEvent captures the details required to post an expense to
// the ledger. The category code resolves to an account through the mapping
// table, never by name matching.
type ExpenseRecordedEvent struct {
	ID           int64
	Number       string
	CompanyID    int64
	ActivityID   *int64
	CategoryCode string
	Amount       float64
	SpentAt      time.Time
	ActorID      int64
}

// IntegrationHandler receives expense domain events for ledger integration.
type IntegrationHandler interface {
	HandleExpenseRecorded(ctx context.Context, evt ExpenseRecordedEvent) error
}
