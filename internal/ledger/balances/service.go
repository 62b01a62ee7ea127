package balances

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/singleflight"
)

// SnapshotScheduler enqueues an asynchronous snapshot refresh for a company.
type SnapshotScheduler interface {
	ScheduleRefresh(ctx context.Context, companyID int64) error
}

// Service serves account balances from the ledger, with a short-lived cache
// in front of the full-chart aggregation.
type Service struct {
	repo      Repository
	cache     *redis.Client
	ttl       time.Duration
	scheduler SnapshotScheduler
	logger    *slog.Logger
	group     singleflight.Group
	now       func() time.Time
}

// NewService constructs the balance service. cache and scheduler may be nil;
// the service then always computes from the ledger synchronously.
func NewService(repo Repository, cache *redis.Client, ttl time.Duration, scheduler SnapshotScheduler, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, cache: cache, ttl: ttl, scheduler: scheduler, logger: logger, now: time.Now}
}

// ComputeBalance returns the running balance for one account up to the
// optional cutoff, signed by account type convention.
func (s *Service) ComputeBalance(ctx context.Context, companyID, accountID int64, asOf *time.Time) (float64, error) {
	row, err := s.repo.QueryAccountBalance(ctx, companyID, accountID, asOf)
	if err != nil {
		return 0, err
	}
	return row.Balance(), nil
}

// ListBalances returns the movement of every account in the chart. Current
// (no cutoff) listings are cached; historical cutoffs always hit the ledger.
func (s *Service) ListBalances(ctx context.Context, companyID int64, asOf *time.Time) ([]AccountBalance, error) {
	if asOf != nil || s.cache == nil {
		return s.repo.QueryBalances(ctx, companyID, asOf)
	}
	key := s.cacheKey(companyID)
	if raw, err := s.cache.Get(ctx, key).Bytes(); err == nil {
		var cached []AccountBalance
		if err := json.Unmarshal(raw, &cached); err == nil {
			return cached, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		s.logger.Warn("balance cache read failed", slog.Any("error", err))
	}
	result, err, _ := s.group.Do(key, func() (any, error) {
		rows, err := s.repo.QueryBalances(ctx, companyID, nil)
		if err != nil {
			return nil, err
		}
		if raw, err := json.Marshal(rows); err == nil {
			if err := s.cache.Set(ctx, key, raw, s.ttl).Err(); err != nil {
				s.logger.Warn("balance cache write failed", slog.Any("error", err))
			}
		}
		return rows, nil
	})
	if err != nil {
		return nil, err
	}
	return result.([]AccountBalance), nil
}

// EntryPosted implements the ledger notification hook: drop the cached chart
// and schedule a snapshot refresh. Both are best effort.
func (s *Service) EntryPosted(ctx context.Context, companyID int64) {
	if s.cache != nil {
		if err := s.cache.Del(ctx, s.cacheKey(companyID)).Err(); err != nil {
			s.logger.Warn("balance cache invalidation failed", slog.Any("error", err))
		}
	}
	if s.scheduler != nil {
		if err := s.scheduler.ScheduleRefresh(ctx, companyID); err != nil {
			s.logger.Warn("snapshot refresh enqueue failed",
				slog.Int64("company_id", companyID), slog.Any("error", err))
		}
	}
}

// RefreshSnapshots recomputes the materialised snapshot table from the
// ledger. Invoked from the background worker.
func (s *Service) RefreshSnapshots(ctx context.Context, companyID int64) error {
	rows, err := s.repo.QueryBalances(ctx, companyID, nil)
	if err != nil {
		return err
	}
	return s.repo.UpsertSnapshots(ctx, companyID, rows, s.now())
}

func (s *Service) cacheKey(companyID int64) string {
	return fmt.Sprintf("meridian:balances:%d", companyID)
}
