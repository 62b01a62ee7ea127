package jobs

import (
	"context"
	"encoding/json"
	"log/slog"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

// BalanceRefresher recomputes the snapshot table for one company.
type BalanceRefresher interface {
	RefreshSnapshots(ctx context.Context, companyID int64) error
}

// BalanceSnapshotJob processes balance snapshot tasks.
type BalanceSnapshotJob struct {
	refresher BalanceRefresher
	pool      *pgxpool.Pool
	logger    *slog.Logger
	metrics   *Metrics
}

// NewBalanceSnapshotJob constructs the job.
func NewBalanceSnapshotJob(refresher BalanceRefresher, pool *pgxpool.Pool, logger *slog.Logger, metrics *Metrics) *BalanceSnapshotJob {
	if logger == nil {
		logger = slog.Default()
	}
	return &BalanceSnapshotJob{refresher: refresher, pool: pool, logger: logger, metrics: metrics}
}

// HandleSnapshot refreshes balances for the company in the payload.
func (j *BalanceSnapshotJob) HandleSnapshot(ctx context.Context, t *asynq.Task) error {
	tracker := j.metrics.Track("balances:snapshot")
	var payload BalanceSnapshotPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		_ = tracker.End(err)
		return asynq.SkipRetry
	}
	if err := j.refresher.RefreshSnapshots(ctx, payload.CompanyID); err != nil {
		j.logger.Error("balance snapshot refresh failed",
			slog.Int64("company_id", payload.CompanyID),
			slog.Any("error", err))
		return tracker.End(err)
	}
	j.metrics.AddSnapshotRefresh(payload.CompanyID)
	j.logger.Info("balance snapshot refreshed", slog.Int64("company_id", payload.CompanyID))
	return tracker.End(nil)
}

// HandleSnapshotAll walks every company and refreshes its balances. Used by
// the cron schedule as a safety net behind the per-posting refreshes.
func (j *BalanceSnapshotJob) HandleSnapshotAll(ctx context.Context, t *asynq.Task) error {
	if j.pool == nil {
		return nil
	}
	tracker := j.metrics.Track("balances:snapshot:all")
	rows, err := j.pool.Query(ctx, `SELECT id FROM companies ORDER BY id`)
	if err != nil {
		return tracker.End(err)
	}
	defer rows.Close()
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return tracker.End(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return tracker.End(err)
	}
	for _, id := range ids {
		if err := j.refresher.RefreshSnapshots(ctx, id); err != nil {
			j.logger.Error("balance snapshot sweep failed",
				slog.Int64("company_id", id),
				slog.Any("error", err))
			continue
		}
		j.metrics.AddSnapshotRefresh(id)
	}
	j.logger.Info("balance snapshot sweep complete", slog.Int("companies", len(ids)))
	return tracker.End(nil)
}
