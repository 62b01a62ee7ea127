package audit

import (
	"encoding/csv"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler exposes the audit timeline as JSON and CSV.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers audit routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.handleTimeline)
	r.Get("/export.csv", h.handleExportCSV)
}

func (h *Handler) parse(w http.ResponseWriter, r *http.Request) (shared.Scope, TimelineFilters, bool) {
	scope, ok := shared.ScopeFromContext(r.Context())
	if !ok {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "authentication required")
		return shared.Scope{}, TimelineFilters{}, false
	}
	q := r.URL.Query()
	filters := TimelineFilters{
		Action: q.Get("action"),
		Entity: q.Get("entity"),
	}
	for name, dst := range map[string]*time.Time{"from": &filters.From, "to": &filters.To} {
		if raw := q.Get(name); raw != "" {
			parsed, err := time.Parse("2006-01-02", raw)
			if err != nil {
				httpx.Problem(w, http.StatusBadRequest, "Validation Failed", name+" must be YYYY-MM-DD")
				return shared.Scope{}, TimelineFilters{}, false
			}
			*dst = parsed
		}
	}
	filters.Page, _ = strconv.Atoi(q.Get("page"))
	filters.PageSize, _ = strconv.Atoi(q.Get("per_page"))
	return scope, filters, true
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	scope, filters, ok := h.parse(w, r)
	if !ok {
		return
	}
	result, err := h.service.Timeline(r.Context(), scope.CompanyID, filters)
	if err != nil {
		h.logger.Error("audit timeline failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	scope, filters, ok := h.parse(w, r)
	if !ok {
		return
	}
	rows, err := h.service.Export(r.Context(), scope.CompanyID, filters)
	if err != nil {
		h.logger.Error("audit export failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="audit-timeline.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{"At", "Actor", "Action", "Entity", "EntityID", "Meta"})
	for _, row := range rows {
		meta := ""
		if len(row.Meta) > 0 {
			if encoded, err := json.Marshal(row.Meta); err == nil {
				meta = string(encoded)
			}
		}
		_ = writer.Write([]string{
			row.At.Format(time.RFC3339),
			strconv.FormatInt(row.ActorID, 10),
			row.Action,
			row.Entity,
			row.EntityID,
			meta,
		})
	}
	writer.Flush()
}
