package expenses

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository persists expenses.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, companyID, id int64) (Expense, error)
	List(ctx context.Context, companyID int64, filter ListFilter) ([]Expense, int, error)
}

// TxRepository exposes operations available within a transaction.
type TxRepository interface {
	NextNumber(ctx context.Context, companyID int64) (string, error)
	Insert(ctx context.Context, in RecordExpenseInput, number string) (Expense, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	return db.WithTx(ctx, r.db, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

const expenseColumns = `id, company_id, activity_id, number, category_code, description, amount, spent_at, created_by, created_at`

func (r *repository) Get(ctx context.Context, companyID, id int64) (Expense, error) {
	var e Expense
	err := r.db.QueryRow(ctx, `SELECT `+expenseColumns+` FROM expenses WHERE company_id=$1 AND id=$2`, companyID, id).
		Scan(&e.ID, &e.CompanyID, &e.ActivityID, &e.Number, &e.CategoryCode, &e.Description, &e.Amount, &e.SpentAt, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, ErrNotFound
		}
		return Expense{}, err
	}
	return e, nil
}

func (r *repository) List(ctx context.Context, companyID int64, filter ListFilter) ([]Expense, int, error) {
	where := `WHERE company_id=$1`
	args := []any{companyID}
	if filter.CategoryCode != "" {
		args = append(args, filter.CategoryCode)
		where += ` AND category_code=$2`
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM expenses `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	perPage := filter.PerPage
	if perPage <= 0 {
		perPage = 20
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	args = append(args, perPage, (page-1)*perPage)
	query := fmt.Sprintf(`SELECT %s FROM expenses %s ORDER BY spent_at DESC, id DESC LIMIT $%d OFFSET $%d`, expenseColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Expense
	for rows.Next() {
		var e Expense
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.ActivityID, &e.Number, &e.CategoryCode, &e.Description, &e.Amount, &e.SpentAt, &e.CreatedBy, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextNumber(ctx context.Context, companyID int64) (string, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `INSERT INTO doc_sequences (company_id, module, last_number) VALUES ($1, 'EXPENSE', 1)
ON CONFLICT (company_id, module) DO UPDATE SET last_number = doc_sequences.last_number + 1
RETURNING last_number`, companyID).Scan(&n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("EXP-%06d", n), nil
}

func (r *txRepository) Insert(ctx context.Context, in RecordExpenseInput, number string) (Expense, error) {
	var e Expense
	err := r.tx.QueryRow(ctx, `INSERT INTO expenses (company_id, activity_id, number, category_code, description, amount, spent_at, created_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8) RETURNING `+expenseColumns,
		in.CompanyID, in.ActivityID, number, in.CategoryCode, in.Description, in.Amount, in.SpentAt, in.CreatedBy).
		Scan(&e.ID, &e.CompanyID, &e.ActivityID, &e.Number, &e.CategoryCode, &e.Description, &e.Amount, &e.SpentAt, &e.CreatedBy, &e.CreatedAt)
	if err != nil {
		return Expense{}, err
	}
	return e, nil
}
