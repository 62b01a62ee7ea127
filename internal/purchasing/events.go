package purchasing

import (
	"context"
	"time"
)

// PurchaseReceivedEvent captures the details required to post a received
// purchase to the ledger.
type PurchaseReceivedEvent struct {
	ID         int64
	Number     string
	CompanyID  int64
	ActivityID *int64
	Total      float64
	OnCredit   bool
	ReceivedAt time.Time
	ActorID    int64
}

// IntegrationHandler receives purchasing domain events for ledger integration.
type IntegrationHandler interface {
	HandlePurchaseReceived(ctx context.Context, evt PurchaseReceivedEvent) error
}
