package expenses

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/ledger/mappings"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort records expense events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against duplicate submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
}

// LedgerPostError indicates the expense was recorded but journal posting
// failed. The expense row stands; the posting must be repaired.
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
			Message:   "Expense category has no account mapping; expense recorded but journal posting pending",
		}
	default:
		return &LedgerPostError{
			Err:       err,
			Retryable: false,
			Message:   fmt.Sprintf("Failed to post expense to ledger; expense recorded but journal posting pending (%s)", err.Error()),
		}
	}
}

// Service owns expense recording. Unlike sales and purchases there is no
// draft state: recording and posting happen in one call.
type Service struct {
	repo        Repository
	audit       AuditPort
	idempotency IdempotencyPort
	integration IntegrationHandler
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the expenses service.
func NewService(repo Repository, audit AuditPort, idempotency IdempotencyPort, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, idempotency: idempotency, logger: logger, now: time.Now}
}

// SetIntegrationHandler injects the ledger integration hooks.
func (s *Service) SetIntegrationHandler(handler IntegrationHandler) {
	s.integration = handler
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Record persists the expense and posts it to the ledger. The posting is
// best effort: on failure the expense remains and the error comes back as
// *LedgerPostError alongside the expense.
func (s *Service) Record(ctx context.Context, in RecordExpenseInput, idempotencyKey string) (Expense, error) {
	if in.Amount <= 0 {
		return Expense{}, ErrInvalidAmount
	}
	in.CategoryCode = strings.ToUpper(strings.TrimSpace(in.CategoryCode))
	if in.CategoryCode == "" {
		return Expense{}, ErrCategoryRequired
	}
	if in.SpentAt.IsZero() {
		in.SpentAt = s.now()
	}
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "EXPENSE"); err != nil {
			return Expense{}, err
		}
	}

	var expense Expense
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		inserted, err := tx.Insert(ctx, in, number)
		if err != nil {
			return err
		}
		expense = inserted
		return nil
	})
	if err != nil {
		return Expense{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: expense.CompanyID,
			ActorID:   expense.CreatedBy,
			Action:    "expense.record",
			Entity:    "expense",
			EntityID:  fmt.Sprintf("%d", expense.ID),
			Meta:      map[string]any{"number": expense.Number, "category": expense.CategoryCode, "amount": expense.Amount},
			At:        s.now(),
		})
	}

	if s.integration != nil {
		evt := ExpenseRecordedEvent{
			ID:           expense.ID,
			Number:       expense.Number,
			CompanyID:    expense.CompanyID,
			ActivityID:   expense.ActivityID,
			CategoryCode: expense.CategoryCode,
			Amount:       expense.Amount,
			SpentAt:      expense.SpentAt,
			ActorID:      expense.CreatedBy,
		}
		if err := s.integration.HandleExpenseRecorded(ctx, evt); err != nil {
			wrapped := wrapLedgerPostError(err)
			s.logger.Error("expense ledger posting failed",
				slog.Int64("expense_id", expense.ID),
				slog.Bool("retryable", wrapped.Retryable),
				slog.Any("error", err))
			return expense, wrapped
		}
	}
	return expense, nil
}

// Get loads one expense.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Expense, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns expenses newest first.
func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Expense, int, error) {
	return s.repo.List(ctx, companyID, filter)
}
