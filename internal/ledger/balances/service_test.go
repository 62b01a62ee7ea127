package balances

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

type fakeBalanceRepo struct {
	rows       []AccountBalance
	queryCalls int
	snapshots  [][]AccountBalance
}

func (f *fakeBalanceRepo) QueryBalances(ctx context.Context, companyID int64, asOf *time.Time) ([]AccountBalance, error) {
	f.queryCalls++
	return f.rows, nil
}

func (f *fakeBalanceRepo) QueryAccountBalance(ctx context.Context, companyID, accountID int64, asOf *time.Time) (AccountBalance, error) {
	for _, row := range f.rows {
		if row.AccountID == accountID {
			return row, nil
		}
	}
	return AccountBalance{}, ErrAccountNotFound
}

func (f *fakeBalanceRepo) UpsertSnapshots(ctx context.Context, companyID int64, rows []AccountBalance, at time.Time) error {
	f.snapshots = append(f.snapshots, rows)
	return nil
}

type fakeScheduler struct {
	companies []int64
}

func (f *fakeScheduler) ScheduleRefresh(ctx context.Context, companyID int64) error {
	f.companies = append(f.companies, companyID)
	return nil
}

func testRows() []AccountBalance {
	return []AccountBalance{
		{AccountID: 1, Code: "1000", Name: "Cash", Type: ledger.AccountTypeAsset, Debit: 500, Credit: 200},
		{AccountID: 2, Code: "4000", Name: "Revenue", Type: ledger.AccountTypeRevenue, Debit: 0, Credit: 300},
	}
}

func newCachedService(t *testing.T) (*Service, *fakeBalanceRepo, *fakeScheduler) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	repo := &fakeBalanceRepo{rows: testRows()}
	scheduler := &fakeScheduler{}
	svc := NewService(repo, client, time.Minute, scheduler, nil)
	return svc, repo, scheduler
}

func TestBalanceSignConvention(t *testing.T) {
	cash := AccountBalance{Type: ledger.AccountTypeAsset, Debit: 500, Credit: 200}
	assert.Equal(t, 300.0, cash.Balance())

	revenue := AccountBalance{Type: ledger.AccountTypeRevenue, Debit: 0, Credit: 300}
	assert.Equal(t, 300.0, revenue.Balance())

	payable := AccountBalance{Type: ledger.AccountTypeLiability, Debit: 50, Credit: 200}
	assert.Equal(t, 150.0, payable.Balance())
}

func TestListBalancesCachesCurrentChart(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	ctx := context.Background()

	first, err := svc.ListBalances(ctx, 1, nil)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.Equal(t, 1, repo.queryCalls)

	// Second read is served from the cache.
	second, err := svc.ListBalances(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.queryCalls)
}

func TestListBalancesHistoricalCutoffBypassesCache(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	ctx := context.Background()

	asOf := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	_, err := svc.ListBalances(ctx, 1, &asOf)
	require.NoError(t, err)
	_, err = svc.ListBalances(ctx, 1, &asOf)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.queryCalls)
}

func TestEntryPostedInvalidatesCacheAndSchedules(t *testing.T) {
	svc, repo, scheduler := newCachedService(t)
	ctx := context.Background()

	_, err := svc.ListBalances(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, repo.queryCalls)

	svc.EntryPosted(ctx, 1)

	_, err = svc.ListBalances(ctx, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, repo.queryCalls)
	assert.Equal(t, []int64{1}, scheduler.companies)
}

// datedBalanceRepo aggregates dated line movement the way the SQL layer
// does, honouring the cutoff contract: only lines dated on or before asOf
// count.
type datedMovement struct {
	accountID int64
	date      time.Time
	debit     float64
	credit    float64
}

type datedBalanceRepo struct {
	movements []datedMovement
}

func (f *datedBalanceRepo) aggregate(accountID int64, asOf *time.Time) AccountBalance {
	balance := AccountBalance{AccountID: accountID, Type: ledger.AccountTypeAsset}
	for _, m := range f.movements {
		if m.accountID != accountID {
			continue
		}
		if asOf != nil && m.date.After(*asOf) {
			continue
		}
		balance.Debit += m.debit
		balance.Credit += m.credit
	}
	return balance
}

func (f *datedBalanceRepo) QueryBalances(ctx context.Context, companyID int64, asOf *time.Time) ([]AccountBalance, error) {
	seen := map[int64]bool{}
	var out []AccountBalance
	for _, m := range f.movements {
		if seen[m.accountID] {
			continue
		}
		seen[m.accountID] = true
		out = append(out, f.aggregate(m.accountID, asOf))
	}
	return out, nil
}

func (f *datedBalanceRepo) QueryAccountBalance(ctx context.Context, companyID, accountID int64, asOf *time.Time) (AccountBalance, error) {
	return f.aggregate(accountID, asOf), nil
}

func (f *datedBalanceRepo) UpsertSnapshots(ctx context.Context, companyID int64, rows []AccountBalance, at time.Time) error {
	return nil
}

func TestComputeBalanceHonoursCutoff(t *testing.T) {
	repo := &datedBalanceRepo{movements: []datedMovement{
		{accountID: 1, date: time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC), debit: 100},
		{accountID: 1, date: time.Date(2026, 2, 10, 0, 0, 0, 0, time.UTC), debit: 50},
	}}
	svc := NewService(repo, nil, 0, nil, nil)
	ctx := context.Background()

	asOf := time.Date(2026, 1, 31, 0, 0, 0, 0, time.UTC)
	balance, err := svc.ComputeBalance(ctx, 1, 1, &asOf)
	require.NoError(t, err)
	assert.Equal(t, 100.0, balance)

	current, err := svc.ComputeBalance(ctx, 1, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 150.0, current)

	rows, err := svc.ListBalances(ctx, 1, &asOf)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 100.0, rows[0].Debit)
}

func TestComputeBalanceUnknownAccount(t *testing.T) {
	svc, _, _ := newCachedService(t)
	_, err := svc.ComputeBalance(context.Background(), 1, 99, nil)
	assert.ErrorIs(t, err, ErrAccountNotFound)
}

func TestRefreshSnapshots(t *testing.T) {
	svc, repo, _ := newCachedService(t)
	require.NoError(t, svc.RefreshSnapshots(context.Background(), 1))
	require.Len(t, repo.snapshots, 1)
	assert.Len(t, repo.snapshots[0], 2)
}

func TestNoCacheServiceComputesDirectly(t *testing.T) {
	repo := &fakeBalanceRepo{rows: testRows()}
	svc := NewService(repo, nil, 0, nil, nil)

	rows, err := svc.ListBalances(context.Background(), 1, nil)
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	balance, err := svc.ComputeBalance(context.Background(), 1, 1, nil)
	require.NoError(t, err)
	assert.Equal(t, 300.0, balance)
}
