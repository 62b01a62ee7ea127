package mappings

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes account mapping configuration endpoints.
type Handler struct {
	logger   *slog.Logger
	repo     Repository
	validate *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, repo Repository) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, repo: repo, validate: validator.New()}
}

// MountRoutes registers mapping routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/", h.handlePut)
	r.Get("/", h.handleList)
}

type putRequest struct {
	Module    string `json:"module" validate:"required,max=40"`
	Key       string `json:"key" validate:"required,max=80"`
	AccountID int64  `json:"account_id" validate:"required,gt=0"`
}

func (h *Handler) handlePut(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	var req putRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Invalid Body", "request body must be valid JSON")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	mapping := AccountMapping{
		CompanyID: scope.CompanyID,
		Module:    strings.ToUpper(strings.TrimSpace(req.Module)),
		Key:       strings.TrimSpace(req.Key),
		AccountID: req.AccountID,
	}
	if err := h.repo.Put(r.Context(), mapping); err != nil {
		switch {
		case errors.Is(err, ErrInvalidTarget):
			httpx.Problem(w, http.StatusUnprocessableEntity, "Invalid Target", err.Error())
		default:
			h.logger.Error("mapping upsert failed", slog.Any("error", err))
			httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		}
		return
	}
	httpx.JSON(w, http.StatusOK, mapping)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return
	}
	module := strings.ToUpper(strings.TrimSpace(r.URL.Query().Get("module")))
	mappings, err := h.repo.List(r.Context(), scope.CompanyID, module)
	if err != nil {
		h.logger.Error("mapping list failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"mappings": mappings})
}
