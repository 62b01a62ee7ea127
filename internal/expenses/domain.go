package expenses

import (
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a missing expense.
	ErrNotFound = errors.New("expenses: expense not found")
	// ErrInvalidAmount indicates a non-positive expense amount.
	ErrInvalidAmount = errors.New("expenses: amount must be greater than zero")
	// ErrCategoryRequired indicates an expense without a category code.
	ErrCategoryRequired = errors.New("expenses: category code required")
)

// Expense is a recorded business expense. Recording it immediately posts to
// the ledger through the category mapping.
type Expense struct {
	ID           int64
	CompanyID    int64
	ActivityID   *int64
	Number       string
	CategoryCode string
	Description  string
	Amount       float64
	SpentAt      time.Time
	CreatedBy    int64
	CreatedAt    time.Time
}

// RecordExpenseInput carries the fields for a new expense.
type RecordExpenseInput struct {
	CompanyID    int64
	ActivityID   *int64
	CategoryCode string
	Description  string
	Amount       float64
	SpentAt      time.Time
	CreatedBy    int64
}

// ListFilter narrows expense listings.
type ListFilter struct {
	CategoryCode string
	Page         int
	PerPage      int
}
