package sales

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort records sale events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// IdempotencyPort guards against duplicate submissions.
type IdempotencyPort interface {
	CheckAndInsert(ctx context.Context, key, module string) error
}

// Service owns the sale lifecycle.
type Service struct {
	repo        Repository
	audit       AuditPort
	idempotency IdempotencyPort
	integration IntegrationHandler
	logger      *slog.Logger
	now         func() time.Time
}

// NewService constructs the sales service.
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

// CreateSale records a draft sale with its items. Totals are computed from
// the items, never taken from the caller.
func (s *Service) CreateSale(ctx context.Context, in CreateSaleInput, idempotencyKey string) (Sale, error) {
	if strings.TrimSpace(in.CustomerName) == "" {
		return Sale{}, fmt.Errorf("sales: customer name required")
	}
	if len(in.Items) == 0 {
		return Sale{}, ErrNoItems
	}
	for _, item := range in.Items {
		if item.Qty <= 0 || item.UnitPrice < 0 || item.UnitCost < 0 {
			return Sale{}, fmt.Errorf("sales: item %q has invalid quantity or price", item.ProductName)
		}
	}
	if idempotencyKey != "" && s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, idempotencyKey, "SALES"); err != nil {
			return Sale{}, err
		}
	}
	var total, costTotal float64
	for _, item := range in.Items {
		total += item.Qty * item.UnitPrice
		costTotal += item.Qty * item.UnitCost
	}
	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		number, err := tx.NextNumber(ctx, in.CompanyID)
		if err != nil {
			return err
		}
		inserted, err := tx.Insert(ctx, in, number, total, costTotal)
		if err != nil {
			return err
		}
		for _, item := range in.Items {
			if err := tx.InsertItem(ctx, inserted.ID, item); err != nil {
				return err
			}
		}
		sale = inserted
		return nil
	})
	if err != nil {
		return Sale{}, err
	}
	return sale, nil
}

// Settle marks the sale as settled and posts the accounting entry. The
// posting is best effort: when it fails the sale stays settled and the error
// is returned as *LedgerPostError alongside the sale.
func (s *Service) Settle(ctx context.Context, companyID, saleID, actorID int64) (Sale, error) {
	var sale Sale
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		current, err := tx.GetForUpdate(ctx, companyID, saleID)
		if err != nil {
			return err
		}
		if current.Status != SaleStatusDraft {
			return ErrInvalidStatus
		}
		settledAt := s.now()
		if err := tx.MarkSettled(ctx, current.ID, settledAt); err != nil {
			return err
		}
		current.Status = SaleStatusSettled
		current.SettledAt = &settledAt
		sale = current
		return nil
	})
	if err != nil {
		return Sale{}, err
	}

	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: companyID,
			ActorID:   actorID,
			Action:    "sale.settle",
			Entity:    "sale",
			EntityID:  fmt.Sprintf("%d", sale.ID),
			Meta:      map[string]any{"number": sale.Number, "total": sale.Total},
			At:        s.now(),
		})
	}

	if s.integration != nil {
		evt := SaleSettledEvent{
			ID:         sale.ID,
			Number:     sale.Number,
			CompanyID:  sale.CompanyID,
			ActivityID: sale.ActivityID,
			Total:      sale.Total,
			CostTotal:  sale.CostTotal,
			OnCredit:   sale.OnCredit,
			SettledAt:  *sale.SettledAt,
			ActorID:    actorID,
		}
		if err := s.integration.HandleSaleSettled(ctx, evt); err != nil {
			wrapped := wrapLedgerPostError(err)
			s.logger.Error("sale ledger posting failed",
				slog.Int64("sale_id", sale.ID),
				slog.Bool("retryable", wrapped.Retryable),
				slog.Any("error", err))
			return sale, wrapped
		}
	}
	return sale, nil
}

// Get loads one sale with items.
func (s *Service) Get(ctx context.Context, companyID, id int64) (Sale, error) {
	return s.repo.GetWithItems(ctx, companyID, id)
}

// List returns sales newest first.
func (s *Service) List(ctx context.Context, companyID int64, filter ListFilter) ([]Sale, int, error) {
	return s.repo.List(ctx, companyID, filter)
}
