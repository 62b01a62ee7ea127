package reports

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/ledger/balances"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// BalanceSource supplies the aggregated account movement a report is built
// from. Reports never read journal rows directly.
type BalanceSource interface {
	ListBalances(ctx context.Context, companyID int64, asOf *time.Time) ([]balances.AccountBalance, error)
}

// Handler exposes financial report endpoints, JSON and CSV.
type Handler struct {
	logger   *slog.Logger
	balances BalanceSource
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, source BalanceSource) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, balances: source}
}

// MountRoutes registers report routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/balance-sheet", h.handleBalanceSheet)
	r.Get("/balance-sheet.csv", h.handleBalanceSheetCSV)
	r.Get("/profit-and-loss", h.handleProfitAndLoss)
	r.Get("/profit-and-loss.csv", h.handleProfitAndLossCSV)
}

func (h *Handler) load(w http.ResponseWriter, r *http.Request) ([]balances.AccountBalance, bool) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return nil, false
	}
	var asOf *time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "as_of must be YYYY-MM-DD")
			return nil, false
		}
		asOf = &parsed
	}
	rows, err := h.balances.ListBalances(r.Context(), scope.CompanyID, asOf)
	if err != nil {
		h.logger.Error("report balance load failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return nil, false
	}
	return rows, true
}

func (h *Handler) handleBalanceSheet(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, BuildBalanceSheet(rows))
}

func (h *Handler) handleBalanceSheetCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.load(w, r)
	if !ok {
		return
	}
	report := BuildBalanceSheet(rows)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="balance-sheet.csv"`)
	if err := WriteBalanceSheetCSV(w, report); err != nil {
		h.logger.Error("balance sheet csv write failed", slog.Any("error", err))
	}
}

func (h *Handler) handleProfitAndLoss(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.load(w, r)
	if !ok {
		return
	}
	httpx.JSON(w, http.StatusOK, BuildProfitAndLoss(rows))
}

func (h *Handler) handleProfitAndLossCSV(w http.ResponseWriter, r *http.Request) {
	rows, ok := h.load(w, r)
	if !ok {
		return
	}
	report := BuildProfitAndLoss(rows)
	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition", `attachment; filename="profit-and-loss.csv"`)
	if err := WriteProfitAndLossCSV(w, report); err != nil {
		h.logger.Error("profit and loss csv write failed", slog.Any("error", err))
	}
}
