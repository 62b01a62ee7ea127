package sales

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger/mappings"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type mockRepository struct {
	sales   map[int64]*Sale
	items   map[int64][]SaleItem
	nextID  int64
	counter map[int64]int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		sales:   make(map[int64]*Sale),
		items:   make(map[int64][]SaleItem),
		counter: make(map[int64]int64),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return fn(ctx, &mockTx{repo: m})
}

func (m *mockRepository) Get(ctx context.Context, companyID, id int64) (Sale, error) {
	sale, ok := m.sales[id]
	if !ok || sale.CompanyID != companyID {
		return Sale{}, ErrNotFound
	}
	return *sale, nil
}

func (m *mockRepository) GetWithItems(ctx context.Context, companyID, id int64) (Sale, error) {
	sale, err := m.Get(ctx, companyID, id)
	if err != nil {
		return Sale{}, err
	}
	sale.Items = m.items[id]
	return sale, nil
}

func (m *mockRepository) List(ctx context.Context, companyID int64, filter ListFilter) ([]Sale, int, error) {
	var out []Sale
	for _, sale := range m.sales {
		if sale.CompanyID != companyID {
			continue
		}
		if filter.Status != "" && sale.Status != filter.Status {
			continue
		}
		out = append(out, *sale)
	}
	return out, len(out), nil
}

type mockTx struct {
	repo *mockRepository
}

func (t *mockTx) NextNumber(ctx context.Context, companyID int64) (string, error) {
	t.repo.counter[companyID]++
	return fmt.Sprintf("SO-%06d", t.repo.counter[companyID]), nil
}

func (t *mockTx) Insert(ctx context.Context, in CreateSaleInput, number string, total, costTotal float64) (Sale, error) {
	t.repo.nextID++
	sale := &Sale{
		ID:           t.repo.nextID,
		CompanyID:    in.CompanyID,
		ActivityID:   in.ActivityID,
		Number:       number,
		CustomerName: in.CustomerName,
		Status:       SaleStatusDraft,
		OnCredit:     in.OnCredit,
		Total:        total,
		CostTotal:    costTotal,
		CreatedBy:    in.CreatedBy,
	}
	t.repo.sales[sale.ID] = sale
	return *sale, nil
}

func (t *mockTx) InsertItem(ctx context.Context, saleID int64, item SaleItemInput) error {
	t.repo.items[saleID] = append(t.repo.items[saleID], SaleItem{
		SaleID:      saleID,
		ProductName: item.ProductName,
		Qty:         item.Qty,
		UnitPrice:   item.UnitPrice,
		UnitCost:    item.UnitCost,
	})
	return nil
}

func (t *mockTx) GetForUpdate(ctx context.Context, companyID, id int64) (Sale, error) {
	return t.repo.Get(ctx, companyID, id)
}

func (t *mockTx) MarkSettled(ctx context.Context, id int64, at time.Time) error {
	sale, ok := t.repo.sales[id]
	if !ok {
		return ErrNotFound
	}
	sale.Status = SaleStatusSettled
	sale.SettledAt = &at
	return nil
}

type mockAudit struct {
	logs []shared.AuditLog
}

func (a *mockAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type mockIdempotency struct {
	seen map[string]bool
}

func (m *mockIdempotency) CheckAndInsert(ctx context.Context, key, module string) error {
	if m.seen == nil {
		m.seen = make(map[string]bool)
	}
	full := module + ":" + key
	if m.seen[full] {
		return shared.ErrIdempotencyConflict
	}
	m.seen[full] = true
	return nil
}

type mockIntegration struct {
	events []SaleSettledEvent
	err    error
}

func (m *mockIntegration) HandleSaleSettled(ctx context.Context, evt SaleSettledEvent) error {
	if m.err != nil {
		return m.err
	}
	m.events = append(m.events, evt)
	return nil
}

func newTestService() (*Service, *mockRepository, *mockAudit, *mockIntegration) {
	repo := newMockRepository()
	audit := &mockAudit{}
	integration := &mockIntegration{}
	svc := NewService(repo, audit, &mockIdempotency{}, nil)
	svc.SetIntegrationHandler(integration)
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) })
	return svc, repo, audit, integration
}

func saleInput() CreateSaleInput {
	return CreateSaleInput{
		CompanyID:    1,
		CustomerName: "Acme",
		CreatedBy:    7,
		Items: []SaleItemInput{
			{ProductName: "Widget", Qty: 2, UnitPrice: 100, UnitCost: 60},
			{ProductName: "Gadget", Qty: 1, UnitPrice: 50, UnitCost: 20},
		},
	}
}

func TestCreateSaleComputesTotals(t *testing.T) {
	svc, repo, _, _ := newTestService()

	sale, err := svc.CreateSale(context.Background(), saleInput(), "")
	require.NoError(t, err)

	assert.Equal(t, "SO-000001", sale.Number)
	assert.Equal(t, SaleStatusDraft, sale.Status)
	assert.Equal(t, 250.0, sale.Total)
	assert.Equal(t, 140.0, sale.CostTotal)
	assert.Len(t, repo.items[sale.ID], 2)
}

func TestCreateSaleRejectsEmptyItems(t *testing.T) {
	svc, _, _, _ := newTestService()

	in := saleInput()
	in.Items = nil
	_, err := svc.CreateSale(context.Background(), in, "")
	assert.ErrorIs(t, err, ErrNoItems)
}

func TestCreateSaleIdempotencyKey(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.CreateSale(context.Background(), saleInput(), "req-1")
	require.NoError(t, err)

	_, err = svc.CreateSale(context.Background(), saleInput(), "req-1")
	assert.ErrorIs(t, err, shared.ErrIdempotencyConflict)
}

func TestSettlePublishesEvent(t *testing.T) {
	svc, _, audit, integration := newTestService()

	created, err := svc.CreateSale(context.Background(), saleInput(), "")
	require.NoError(t, err)

	settled, err := svc.Settle(context.Background(), 1, created.ID, 7)
	require.NoError(t, err)
	assert.Equal(t, SaleStatusSettled, settled.Status)
	require.NotNil(t, settled.SettledAt)

	require.Len(t, integration.events, 1)
	evt := integration.events[0]
	assert.Equal(t, created.ID, evt.ID)
	assert.Equal(t, 250.0, evt.Total)
	assert.Equal(t, 140.0, evt.CostTotal)

	require.Len(t, audit.logs, 1)
	assert.Equal(t, "sale.settle", audit.logs[0].Action)
}

func TestSettleTwiceRejected(t *testing.T) {
	svc, _, _, _ := newTestService()

	created, err := svc.CreateSale(context.Background(), saleInput(), "")
	require.NoError(t, err)

	_, err = svc.Settle(context.Background(), 1, created.ID, 7)
	require.NoError(t, err)

	_, err = svc.Settle(context.Background(), 1, created.ID, 7)
	assert.ErrorIs(t, err, ErrInvalidStatus)
}

func TestSettleLedgerFailureIsBestEffort(t *testing.T) {
	svc, repo, _, integration := newTestService()
	integration.err = mappings.ErrNotFound

	created, err := svc.CreateSale(context.Background(), saleInput(), "")
	require.NoError(t, err)

	sale, err := svc.Settle(context.Background(), 1, created.ID, 7)

	// The sale stays settled; the error reports the pending posting.
	var postErr *LedgerPostError
	require.True(t, errors.As(err, &postErr))
	assert.True(t, postErr.Retryable)
	assert.Equal(t, SaleStatusSettled, sale.Status)
	assert.Equal(t, SaleStatusSettled, repo.sales[created.ID].Status)
}

func TestSettleNonRetryableLedgerFailure(t *testing.T) {
	svc, _, _, integration := newTestService()
	integration.err = errors.New("ledger offline")

	created, err := svc.CreateSale(context.Background(), saleInput(), "")
	require.NoError(t, err)

	_, err = svc.Settle(context.Background(), 1, created.ID, 7)
	var postErr *LedgerPostError
	require.True(t, errors.As(err, &postErr))
	assert.False(t, postErr.Retryable)
}

func TestSettleUnknownSale(t *testing.T) {
	svc, _, _, _ := newTestService()
	_, err := svc.Settle(context.Background(), 1, 42, 7)
	assert.ErrorIs(t, err, ErrNotFound)
}
