package expenses

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes expense endpoints.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers expense routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Post("/", h.handleRecord)
	r.Get("/", h.handleList)
	r.Get("/{expenseID}", h.handleGet)
}

type recordRequest struct {
	CategoryCode string  `json:"category_code" validate:"required,max=40"`
	Description  string  `json:"description" validate:"max=500"`
	Amount       float64 `json:"amount" validate:"required,gt=0"`
	SpentAt      string  `json:"spent_at"`
}

func (h *Handler) handleRecord(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req recordRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	input := RecordExpenseInput{
		CompanyID:    scope.CompanyID,
		ActivityID:   scope.ActivityID,
		CategoryCode: req.CategoryCode,
		Description:  req.Description,
		Amount:       req.Amount,
		CreatedBy:    scope.UserID,
	}
	if req.SpentAt != "" {
		parsed, err := time.Parse("2006-01-02", req.SpentAt)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "spent_at must be YYYY-MM-DD")
			return
		}
		input.SpentAt = parsed
	}
	expense, err := h.service.Record(r.Context(), input, r.Header.Get("Idempotency-Key"))
	if err != nil {
		var postErr *LedgerPostError
		if errors.As(err, &postErr) {
			// The expense is recorded; only the ledger posting is pending.
			httpx.JSON(w, http.StatusAccepted, map[string]any{
				"expense": expense,
				"warning": postErr.Message,
			})
			return
		}
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, expense)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	filter := ListFilter{CategoryCode: r.URL.Query().Get("category")}
	filter.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	filter.PerPage, _ = strconv.Atoi(r.URL.Query().Get("per_page"))
	expenses, total, err := h.service.List(r.Context(), scope.CompanyID, filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"expenses": expenses, "total": total})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	expenseID, err := strconv.ParseInt(chi.URLParam(r, "expenseID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "expense id must be numeric")
		return
	}
	expense, err := h.service.Get(r.Context(), scope.CompanyID, expenseID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, expense)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrCategoryRequired):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Expense", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	default:
		h.logger.Error("expenses request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
