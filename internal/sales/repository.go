package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository persists sales.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, companyID, id int64) (Sale, error)
	GetWithItems(ctx context.Context, companyID, id int64) (Sale, error)
	List(ctx context.Context, companyID int64, filter ListFilter) ([]Sale, int, error)
}

// TxRepository exposes operations available within a transaction.
type TxRepository interface {
	NextNumber(ctx context.Context, companyID int64) (string, error)
	Insert(ctx context.Context, in CreateSaleInput, number string, total, costTotal float64) (Sale, error)
	InsertItem(ctx context.Context, saleID int64, item SaleItemInput) error
	GetForUpdate(ctx context.Context, companyID, id int64) (Sale, error)
	MarkSettled(ctx context.Context, id int64, at time.Time) error
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

const saleColumns = `id, company_id, activity_id, number, customer_name, status, on_credit, total, cost_total, created_by, settled_at, created_at, updated_at`

func scanSale(row pgx.Row) (Sale, error) {
	var s Sale
	err := row.Scan(&s.ID, &s.CompanyID, &s.ActivityID, &s.Number, &s.CustomerName, &s.Status, &s.OnCredit,
		&s.Total, &s.CostTotal, &s.CreatedBy, &s.SettledAt, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Sale, error) {
	sale, err := scanSale(r.db.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE company_id=$1 AND id=$2`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, err
	}
	return sale, nil
}

func (r *repository) GetWithItems(ctx context.Context, companyID, id int64) (Sale, error) {
	sale, err := r.Get(ctx, companyID, id)
	if err != nil {
		return Sale{}, err
	}
	rows, err := r.db.Query(ctx, `SELECT id, sale_id, product_name, qty, unit_price, unit_cost FROM sale_items WHERE sale_id=$1 ORDER BY id`, id)
	if err != nil {
		return Sale{}, err
	}
	defer rows.Close()
	for rows.Next() {
		var item SaleItem
		if err := rows.Scan(&item.ID, &item.SaleID, &item.ProductName, &item.Qty, &item.UnitPrice, &item.UnitCost); err != nil {
			return Sale{}, err
		}
		sale.Items = append(sale.Items, item)
	}
	return sale, rows.Err()
}

func (r *repository) List(ctx context.Context, companyID int64, filter ListFilter) ([]Sale, int, error) {
	where := `WHERE company_id=$1`
	args := []any{companyID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += ` AND status=$2`
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM sales `+where, args...).Scan(&total); err != nil {
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
	query := fmt.Sprintf(`SELECT %s FROM sales %s ORDER BY id DESC LIMIT $%d OFFSET $%d`, saleColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Sale
	for rows.Next() {
		var s Sale
		if err := rows.Scan(&s.ID, &s.CompanyID, &s.ActivityID, &s.Number, &s.CustomerName, &s.Status, &s.OnCredit,
			&s.Total, &s.CostTotal, &s.CreatedBy, &s.SettledAt, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, s)
	}
	return out, total, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextNumber(ctx context.Context, companyID int64) (string, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `INSERT INTO doc_sequences (company_id, module, last_number) VALUES ($1, 'SALES', 1)
ON CONFLICT (company_id, module) DO UPDATE SET last_number = doc_sequences.last_number + 1
RETURNING last_number`, companyID).Scan(&n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("SO-%06d", n), nil
}

func (r *txRepository) Insert(ctx context.Context, in CreateSaleInput, number string, total, costTotal float64) (Sale, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO sales (company_id, activity_id, number, customer_name, status, on_credit, total, cost_total, created_by)
VALUES ($1,$2,$3,$4,'DRAFT',$5,$6,$7,$8) RETURNING `+saleColumns,
		in.CompanyID, in.ActivityID, number, in.CustomerName, in.OnCredit, total, costTotal, in.CreatedBy)
	return scanSale(row)
}

func (r *txRepository) InsertItem(ctx context.Context, saleID int64, item SaleItemInput) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO sale_items (sale_id, product_name, qty, unit_price, unit_cost)
VALUES ($1,$2,$3,$4,$5)`, saleID, item.ProductName, item.Qty, item.UnitPrice, item.UnitCost)
	return err
}

func (r *txRepository) GetForUpdate(ctx context.Context, companyID, id int64) (Sale, error) {
	sale, err := scanSale(r.tx.QueryRow(ctx, `SELECT `+saleColumns+` FROM sales WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, ErrNotFound
		}
		return Sale{}, err
	}
	return sale, nil
}

func (r *txRepository) MarkSettled(ctx context.Context, id int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE sales SET status='SETTLED', settled_at=$2, updated_at=NOW() WHERE id=$1`, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
