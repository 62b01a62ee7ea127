package purchasing

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

// LedgerPostError indicates the purchase was received but journal posting
// failed. The purchase itself stands.
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
	if errors.Is(err, mappings.ErrNotFound) {
		return &LedgerPostError{
			Err:       err,
			Retryable: true,
			Message:   "Account mapping missing for purchase; purchase received but journal posting pending",
		}
	}
	return &LedgerPostError{
		Err:       err,
		Retryable: false,
		Message:   fmt.Sprintf("Failed to post purchase to ledger; purchase received but journal posting pending (%s)", err.Error()),
	}
}

// AuditPort records purchase events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against duplicate submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
}

// Service owns the purchase lifecycle.
type Service struct {
	repo        Repository
	audit       AuditPort
	idempotency IdempotencyPort
	integration IntegrationHandler
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the purchasing service.
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

// CreatePurchase records a draft purchase.
func (s *Service) CreatePurchase(ctx context.Context, in CreatePurchaseInput, idempotencyKey string) (Purchase, error) {
	if strings.TrimSpace(in.SupplierName) == "" {
		return Purchase{}, fmt.Errorf("purchasing: supplier name required")
	}
	if in.Total <= 0 {
		return Purchase{}, ErrInvalidTotal
	}
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "PURCHASING"); err != nil {
			return Purchase{}, err
		}
	}
	var purchase Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		inserted, err := tx.Insert(ctx, in, number)
		if err != nil {
			return err
		}
		purchase = inserted
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}
	return purchase, nil
}

// Receive marks the purchase as received and posts the accounting entry.
// The posting is best effort: a failure is returned as *LedgerPostError
// alongside the already-received purchase.
func (s *Service) Receive(ctx context.Context, companyID, purchaseID, actorID int64) (Purchase, error) {
	var purchase Purchase
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, companyID, purchaseID)
		if err != nil {
			return err
		}
		if current.Status != PurchaseStatusDraft {
			return ErrInvalidStatus
		}
		receivedAt := s.now()
		if err := tx.MarkReceived(ctx, current.ID, receivedAt); err != nil {
			return err
		}
		current.Status = PurchaseStatusReceived
		current.ReceivedAt = &receivedAt
		purchase = current
		return nil
	})
	if err != nil {
		return Purchase{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: companyID,
			ActorID:   actorID,
			Action:    "purchase.receive",
			Entity:    "purchase",
			EntityID:  fmt.Sprintf("%d", purchase.ID),
			Meta:      map[string]any{"number": purchase.Number, "total": purchase.Total},
			At:        s.now(),
		})
	}

	if s.integration != nil {
		evt := PurchaseReceivedEvent{
			ID:         purchase.ID,
			Number:     purchase.Number,
			CompanyID:  purchase.CompanyID,
			ActivityID: purchase.ActivityID,
			Total:      purchase.Total,
			OnCredit:   purchase.OnCredit,
			ReceivedAt: *purchase.ReceivedAt,
			ActorID:    actorID,
		}
		if err := s.integration.HandlePurchaseReceived(ctx, evt); err != nil {
			wrapped := wrapLedgerPostError(err)
			s.logger.Error("purchase ledger posting failed",
				slog.Int64("purchase_id", purchase.ID),
				slog.Bool("retryable", wrapped.Retryable),
				slog.Any("error", err))
			return purchase, wrapped
		}
	}
	return purchase, nil
}

// Get loads one purchase.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Purchase, error) {
	return s.repo.Get(ctx, companyID, id)
}

// List returns purchases newest first.
func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Purchase, int, error) {
	return s.repo.List(ctx, companyID, filter)
}
