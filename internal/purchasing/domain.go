package purchasing

import (
	"errors"
	"time"
)

// PurchaseStatus enumerates purchase lifecycle values.
type PurchaseStatus string

const (
	PurchaseStatusDraft    PurchaseStatus = "DRAFT"
	PurchaseStatusReceived PurchaseStatus = "RECEIVED"
)

var (
	// ErrNotFound indicates a missing purchase.
	ErrNotFound = errors.New("purchasing: purchase not found")
	// ErrInvalidStatus indicates the transition cannot proceed.
	ErrInvalidStatus = errors.New("purchasing: invalid status for operation")
	// ErrInvalidTotal indicates a non-positive purchase total.
	ErrInvalidTotal = errors.New("purchasing: total must be greater than zero")
)

// Purchase is a supplier purchase. Receiving it triggers the ledger posting.
type Purchase struct {
	ID           int64
	CompanyID    int64
	ActivityID   *int64
	Number       string
	SupplierName string
	Description  string
	Status       PurchaseStatus
	// OnCredit purchases credit payables instead of cash when received.
	OnCredit   bool
	Total      float64
	CreatedBy  int64
	ReceivedAt *time.Time
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// CreatePurchaseInput carries the fields for a new draft purchase.
type CreatePurchaseInput struct {
	CompanyID    int64
	ActivityID   *int64
	SupplierName string
	Description  string
	OnCredit     bool
	Total        float64
	CreatedBy    int64
}

// ListFilter narrows purchase listings.
type ListFilter struct {
	Status  PurchaseStatus
	Page    int
	PerPage int
}
