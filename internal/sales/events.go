package sales

import (
	"context"
	"time"
)

// SaleSettledEvent captures the details required to post a settled sale to
// the ledger.
type SaleSettledEvent struct {
	ID         int64
	Number     string
	CompanyID  int64
	ActivityID *int64
	Total      float64
	CostTotal  float64
	OnCredit   bool
	SettledAt  time.Time
	ActorID    int64
}

// IntegrationHandler receives sales domain events for ledger integration.
type IntegrationHandler interface {
	HandleSaleSettled(ctx context.Context, evt SaleSettledEvent) error
}
