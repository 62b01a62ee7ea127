package integration

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/expenses"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ledger/mappings"
	"github.com/meridian-erp/meridian-erp/internal/purchasing"
	"github.com/meridian-erp/meridian-erp/internal/sales"
)

// Ledger exposes journal posting operations required by integrations.
type Ledger interface {
	PostEntry(ctx context.Context, input ledger.PostingInput) (ledger.JournalEntry, error)
}

// AccountMappingRepository provides mapping lookups.
type AccountMappingRepository interface {
	Get(ctx context.Context, companyID int64, module, key string) (mappings.AccountMapping, error)
}

// Hooks wires domain events from operational modules into the general
// ledger. Account resolution always goes through the mapping table; no
// posting ever picks an account by name.
type Hooks struct {
	ledger      Ledger
	mappingRepo AccountMappingRepository
}

// NewHooks constructs integration hooks.
func NewHooks(ledger Ledger, mappingRepo AccountMappingRepository) *Hooks {
	return &Hooks{ledger: ledger, mappingRepo: mappingRepo}
}

func (h *Hooks) resolveAccount(ctx context.Context, companyID int64, module, key string) (int64, error) {
	mapping, err := h.mappingRepo.Get(ctx, companyID, module, key)
	if err != nil {
		return 0, err
	}
	return mapping.AccountID, nil
}

func (h *Hooks) post(ctx context.Context, input ledger.PostingInput) error {
	if input.SourceID == uuid.Nil {
		return errors.New("integration: source id required")
	}
	_, err := h.ledger.PostEntry(ctx, input)
	if err != nil {
		if errors.Is(err, ledger.ErrSourceAlreadyLinked) {
			return nil
		}
	}
	return err
}

// HandleSaleSettled posts the revenue entry for a settled sale, plus a
// companion cost-of-goods entry when the sale carries item costs.
func (h *Hooks) HandleSaleSettled(ctx context.Context, evt sales.SaleSettledEvent) error {
	if h == nil || h.ledger == nil || h.mappingRepo == nil {
		return nil
	}
	if evt.SettledAt.IsZero() {
		return errors.New("integration: sale settle date required")
	}
	if evt.Total <= 0 {
		return nil
	}
	var debitKey string
	if evt.OnCredit {
		debitKey = "sale.receivable"
	} else {
		debitKey = "sale.cash"
	}
	debitAccount, err := h.resolveAccount(ctx, evt.CompanyID, "SALES", debitKey)
	if err != nil {
		return err
	}
	revenueAccount, err := h.resolveAccount(ctx, evt.CompanyID, "SALES", "sale.revenue")
	if err != nil {
		return err
	}
	amount := round2(evt.Total)
	sourceID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("SALE:%d", evt.ID)))
	input := ledger.PostingInput{
		CompanyID:    evt.CompanyID,
		ActivityID:   evt.ActivityID,
		Date:         evt.SettledAt,
		SourceModule: "SALES",
		SourceID:     sourceID,
		Memo:         fmt.Sprintf("Sale %s", evt.Number),
		Reference:    evt.Number,
		PostedBy:     evt.ActorID,
		Lines: []ledger.PostingLineInput{
			{AccountID: debitAccount, Debit: amount},
			{AccountID: revenueAccount, Credit: amount},
		},
	}
	if err := h.post(ctx, input); err != nil {
		return err
	}

	cost := round2(evt.CostTotal)
	if cost <= 0 {
		return nil
	}
	cogsAccount, err := h.resolveAccount(ctx, evt.CompanyID, "SALES", "sale.cogs")
	if err != nil {
		return err
	}
	inventoryAccount, err := h.resolveAccount(ctx, evt.CompanyID, "SALES", "sale.inventory")
	if err != nil {
		return err
	}
	cogsSourceID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("SALE:COGS:%d", evt.ID)))
	cogsInput := ledger.PostingInput{
		CompanyID:    evt.CompanyID,
		ActivityID:   evt.ActivityID,
		Date:         evt.SettledAt,
		SourceModule: "SALES.COGS",
		SourceID:     cogsSourceID,
		Memo:         fmt.Sprintf("COGS for sale %s", evt.Number),
		Reference:    evt.Number,
		PostedBy:     evt.ActorID,
		Lines: []ledger.PostingLineInput{
			{AccountID: cogsAccount, Debit: cost},
			{AccountID: inventoryAccount, Credit: cost},
		},
	}
	return h.post(ctx, cogsInput)
}

// HandlePurchaseReceived posts the accounting entry for a received purchase.
func (h *Hooks) HandlePurchaseReceived(ctx context.Context, evt purchasing.PurchaseReceivedEvent) error {
	if h == nil || h.ledger == nil || h.mappingRepo == nil {
		return nil
	}
	if evt.ReceivedAt.IsZero() {
		return errors.New("integration: purchase receive date required")
	}
	if evt.Total <= 0 {
		return nil
	}
	inventoryAccount, err := h.resolveAccount(ctx, evt.CompanyID, "PURCHASING", "purchase.inventory")
	if err != nil {
		return err
	}
	var creditKey string
	if evt.OnCredit {
		creditKey = "purchase.payable"
	} else {
		creditKey = "purchase.cash"
	}
	creditAccount, err := h.resolveAccount(ctx, evt.CompanyID, "PURCHASING", creditKey)
	if err != nil {
		return err
	}
	amount := round2(evt.Total)
	sourceID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("PURCHASE:%d", evt.ID)))
	input := ledger.PostingInput{
		CompanyID:    evt.CompanyID,
		ActivityID:   evt.ActivityID,
		Date:         evt.ReceivedAt,
		SourceModule: "PURCHASING",
		SourceID:     sourceID,
		Memo:         fmt.Sprintf("Purchase %s", evt.Number),
		Reference:    evt.Number,
		PostedBy:     evt.ActorID,
		Lines: []ledger.PostingLineInput{
			{AccountID: inventoryAccount, Debit: amount},
			{AccountID: creditAccount, Credit: amount},
		},
	}
	return h.post(ctx, input)
}

// HandleExpenseRecorded posts the accounting entry for an expense. The
// category code is the mapping key, so each category can route to its own
// expense account.
func (h *Hooks) HandleExpenseRecorded(ctx context.Context, evt expenses.ExpenseRecordedEvent) error {
	if h == nil || h.ledger == nil || h.mappingRepo == nil {
		return nil
	}
	if evt.SpentAt.IsZero() {
		return errors.New("integration: expense date required")
	}
	if evt.Amount <= 0 {
		return nil
	}
	expenseAccount, err := h.resolveAccount(ctx, evt.CompanyID, "EXPENSE", evt.CategoryCode)
	if err != nil {
		return err
	}
	treasuryAccount, err := h.resolveAccount(ctx, evt.CompanyID, "EXPENSE", "expense.treasury")
	if err != nil {
		return err
	}
	amount := round2(evt.Amount)
	sourceID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("EXPENSE:%d", evt.ID)))
	input := ledger.PostingInput{
		CompanyID:    evt.CompanyID,
		ActivityID:   evt.ActivityID,
		Date:         evt.SpentAt,
		SourceModule: "EXPENSE",
		SourceID:     sourceID,
		Memo:         fmt.Sprintf("Expense %s", evt.Number),
		Reference:    evt.Number,
		PostedBy:     evt.ActorID,
		Lines: []ledger.PostingLineInput{
			{AccountID: expenseAccount, Debit: amount},
			{AccountID: treasuryAccount, Credit: amount},
		},
	}
	return h.post(ctx, input)
}

var _ sales.IntegrationHandler = (*Hooks)(nil)
var _ purchasing.IntegrationHandler = (*Hooks)(nil)
var _ expenses.IntegrationHandler = (*Hooks)(nil)
