package sales

import (
	"errors"
	"time"
)

// SaleStatus enumerates sale lifecycle values.
type SaleStatus string

const (
	SaleStatusDraft   SaleStatus = "DRAFT"
	SaleStatusSettled SaleStatus = "SETTLED"
)

var (
	// ErrNotFound indicates a missing sale.
	ErrNotFound = errors.New("sales: sale not found")
	// ErrInvalidStatus indicates the transition cannot proceed.
	ErrInvalidStatus = errors.New("sales: invalid status for operation")
	// ErrNoItems indicates a sale without items.
	ErrNoItems = errors.New("sales: at least one item is required")
)

// Sale is a customer sale. Settling it triggers the ledger posting.
type Sale struct {
	ID           int64
	CompanyID    int64
	ActivityID   *int64
	Number       string
	CustomerName string
	Status       SaleStatus
	// OnCredit sales debit receivables instead of cash when settled.
	OnCredit  bool
	Total     float64
	CostTotal float64
	CreatedBy int64
	SettledAt *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	Items     []SaleItem
}

// SaleItem is a single product line on a sale. UnitCost feeds the cost of
// goods sold posting.
type SaleItem struct {
	ID          int64
	SaleID      int64
	ProductName string
	Qty         float64
	UnitPrice   float64
	UnitCost    float64
}

// CreateSaleInput carries the fields for a new draft sale.
type CreateSaleInput struct {
	CompanyID    int64
	ActivityID   *int64
	CustomerName string
	OnCredit     bool
	CreatedBy    int64
	Items        []SaleItemInput
}

// SaleItemInput is one requested item row.
type SaleItemInput struct {
	ProductName string
	Qty         float64
	UnitPrice   float64
	UnitCost    float64
}

// ListFilter narrows sale listings.
type ListFilter struct {
	Status  SaleStatus
	Page    int
	PerPage int
}
