package balances

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrAccountNotFound indicates the account does not exist for the company.
var ErrAccountNotFound = errors.New("balances: account not found")

// Repository runs the aggregation queries behind the balance projection.
type Repository interface {
	QueryBalances(ctx context.Context, companyID int64, asOf *time.Time) ([]AccountBalance, error)
	QueryAccountBalance(ctx context.Context, companyID, accountID int64, asOf *time.Time) (AccountBalance, error)
	UpsertSnapshots(ctx context.Context, companyID int64, rows []AccountBalance, at time.Time) error
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// lineSource returns the line set a balance aggregates over. With a cutoff
// the set itself is restricted to lines whose entry date falls on or before
// it; putting the predicate on an outer join would leave every line visible.
func lineSource(asOfParam int) string {
	if asOfParam == 0 {
		return `journal_lines`
	}
	return fmt.Sprintf(`(SELECT jl.account_id, jl.debit, jl.credit
FROM journal_lines jl
JOIN journal_entries je ON je.id = jl.entry_id
WHERE je.date <= $%d)`, asOfParam)
}

func buildBalancesQuery(asOfParam int) string {
	return `SELECT a.id, a.code, a.name, a.type,
COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM accounts a
LEFT JOIN ` + lineSource(asOfParam) + ` l ON l.account_id = a.id
WHERE a.company_id = $1
GROUP BY a.id, a.code, a.name, a.type
ORDER BY a.code`
}

func buildAccountBalanceQuery(asOfParam int) string {
	return `SELECT a.id, a.code, a.name, a.type,
COALESCE(SUM(l.debit), 0), COALESCE(SUM(l.credit), 0)
FROM accounts a
LEFT JOIN ` + lineSource(asOfParam) + ` l ON l.account_id = a.id
WHERE a.company_id = $1 AND a.id = $2
GROUP BY a.id, a.code, a.name, a.type`
}

// QueryBalances joins every account with its line movement. Accounts with no
// lines still appear with zero sums so reports can render a complete chart.
func (r *repository) QueryBalances(ctx context.Context, companyID int64, asOf *time.Time) ([]AccountBalance, error) {
	asOfParam := 0
	args := []any{companyID}
	if asOf != nil {
		asOfParam = 2
		args = append(args, *asOf)
	}
	rows, err := r.db.Query(ctx, buildBalancesQuery(asOfParam), args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountBalance
	for rows.Next() {
		var b AccountBalance
		if err := rows.Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.Debit, &b.Credit); err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (r *repository) QueryAccountBalance(ctx context.Context, companyID, accountID int64, asOf *time.Time) (AccountBalance, error) {
	asOfParam := 0
	args := []any{companyID, accountID}
	if asOf != nil {
		asOfParam = 3
		args = append(args, *asOf)
	}
	var b AccountBalance
	err := r.db.QueryRow(ctx, buildAccountBalanceQuery(asOfParam), args...).Scan(&b.AccountID, &b.Code, &b.Name, &b.Type, &b.Debit, &b.Credit)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountBalance{}, ErrAccountNotFound
		}
		return AccountBalance{}, err
	}
	return b, nil
}

// UpsertSnapshots materialises the current balances. Snapshots speed up
// dashboards; they are never authoritative and readers fall back to the live
// aggregation.
func (r *repository) UpsertSnapshots(ctx context.Context, companyID int64, rows []AccountBalance, at time.Time) error {
	for _, row := range rows {
		if _, err := r.db.Exec(ctx, `INSERT INTO account_balance_snapshots (company_id, account_id, debit, credit, refreshed_at)
VALUES ($1,$2,$3,$4,$5)
ON CONFLICT (company_id, account_id) DO UPDATE SET debit=EXCLUDED.debit, credit=EXCLUDED.credit, refreshed_at=EXCLUDED.refreshed_at`,
			companyID, row.AccountID, row.Debit, row.Credit, at); err != nil {
			return err
		}
	}
	return nil
}
