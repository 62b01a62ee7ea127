package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository reads audit records scoped to a company.
type Repository interface {
	Timeline(ctx context.Context, companyID int64, filters TimelineFilters, limit, offset int) ([]TimelineRow, error)
	TimelineAll(ctx context.Context, companyID int64, filters TimelineFilters) ([]TimelineRow, error)
}

type pgRepository struct {
	pool *pgxpool.Pool
}

// NewRepository returns a Postgres-backed audit repository.
func NewRepository(pool *pgxpool.Pool) Repository {
	return &pgRepository{pool: pool}
}

func (r *pgRepository) Timeline(ctx context.Context, companyID int64, filters TimelineFilters, limit, offset int) ([]TimelineRow, error) {
	query, args := buildTimelineQuery(companyID, filters)
	query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)+1, len(args)+2)
	args = append(args, limit, offset)
	return r.query(ctx, query, args)
}

func (r *pgRepository) TimelineAll(ctx context.Context, companyID int64, filters TimelineFilters) ([]TimelineRow, error) {
	query, args := buildTimelineQuery(companyID, filters)
	return r.query(ctx, query, args)
}

func buildTimelineQuery(companyID int64, filters TimelineFilters) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT occurred_at, actor_id, action, entity, entity_id, meta FROM audit_logs WHERE company_id = $1`)
	args := []any{companyID}
	addClause := func(clause string, value any) {
		args = append(args, value)
		fmt.Fprintf(&sb, " AND "+clause, len(args))
	}
	if !filters.From.IsZero() {
		addClause("occurred_at >= $%d", filters.From)
	}
	if !filters.To.IsZero() {
		addClause("occurred_at < $%d", filters.To)
	}
	if action := strings.TrimSpace(filters.Action); action != "" {
		addClause("action = $%d", action)
	}
	if entity := strings.TrimSpace(filters.Entity); entity != "" {
		addClause("entity = $%d", entity)
	}
	sb.WriteString(" ORDER BY occurred_at DESC, id DESC")
	return sb.String(), args
}

func (r *pgRepository) query(ctx context.Context, query string, args []any) ([]TimelineRow, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("audit: timeline query: %w", err)
	}
	defer rows.Close()

	var result []TimelineRow
	for rows.Next() {
		var (
			row      TimelineRow
			at       time.Time
			metaJSON []byte
		)
		if err := rows.Scan(&at, &row.ActorID, &row.Action, &row.Entity, &row.EntityID, &metaJSON); err != nil {
			return nil, fmt.Errorf("audit: scan timeline row: %w", err)
		}
		row.At = at
		if len(metaJSON) > 0 {
			if err := json.Unmarshal(metaJSON, &row.Meta); err != nil {
				row.Meta = nil
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}
