package purchasing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository persists purchases.
type Repository interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	Get(ctx context.Context, companyID, id int64) (Purchase, error)
	List(ctx context.Context, companyID int64, filter ListFilter) ([]Purchase, int, error)
}

// TxRepository exposes operations available within a transaction.
type TxRepository interface {
	NextNumber(ctx context.Context, companyID int64) (string, error)
	Insert(ctx context.Context, in CreatePurchaseInput, number string) (Purchase, error)
	GetForUpdate(ctx context.Context, companyID, id int64) (Purchase, error)
	MarkReceived(ctx context.Context, id int64, at time.Time) error
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

const purchaseColumns = `id, company_id, activity_id, number, supplier_name, description, status, on_credit, total, created_by, received_at, created_at, updated_at`

func scanPurchase(row pgx.Row) (Purchase, error) {
	var p Purchase
	err := row.Scan(&p.ID, &p.CompanyID, &p.ActivityID, &p.Number, &p.SupplierName, &p.Description, &p.Status,
		&p.OnCredit, &p.Total, &p.CreatedBy, &p.ReceivedAt, &p.CreatedAt, &p.UpdatedAt)
	return p, err
}

func (r *repository) Get(ctx context.Context, companyID, id int64) (Purchase, error) {
	purchase, err := scanPurchase(r.db.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE company_id=$1 AND id=$2`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrNotFound
		}
		return Purchase{}, err
	}
	return purchase, nil
}

func (r *repository) List(ctx context.Context, companyID int64, filter ListFilter) ([]Purchase, int, error) {
	where := `WHERE company_id=$1`
	args := []any{companyID}
	if filter.Status != "" {
		args = append(args, filter.Status)
		where += ` AND status=$2`
	}
	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM purchases `+where, args...).Scan(&total); err != nil {
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
	query := fmt.Sprintf(`SELECT %s FROM purchases %s ORDER BY id DESC LIMIT $%d OFFSET $%d`, purchaseColumns, where, len(args)-1, len(args))
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var out []Purchase
	for rows.Next() {
		var p Purchase
		if err := rows.Scan(&p.ID, &p.CompanyID, &p.ActivityID, &p.Number, &p.SupplierName, &p.Description, &p.Status,
			&p.OnCredit, &p.Total, &p.CreatedBy, &p.ReceivedAt, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, p)
	}
	return out, total, rows.Err()
}

type txRepository struct {
	tx pgx.Tx
}

func (r *txRepository) NextNumber(ctx context.Context, companyID int64) (string, error) {
	var n int64
	err := r.tx.QueryRow(ctx, `INSERT INTO doc_sequences (company_id, module, last_number) VALUES ($1, 'PURCHASING', 1)
ON CONFLICT (company_id, module) DO UPDATE SET last_number = doc_sequences.last_number + 1
RETURNING last_number`, companyID).Scan(&n)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("PO-%06d", n), nil
}

func (r *txRepository) Insert(ctx context.Context, in CreatePurchaseInput, number string) (Purchase, error) {
	row := r.tx.QueryRow(ctx, `INSERT INTO purchases (company_id, activity_id, number, supplier_name, description, status, on_credit, total, created_by)
VALUES ($1,$2,$3,$4,$5,'DRAFT',$6,$7,$8) RETURNING `+purchaseColumns,
		in.CompanyID, in.ActivityID, number, in.SupplierName, in.Description, in.OnCredit, in.Total, in.CreatedBy)
	return scanPurchase(row)
}

func (r *txRepository) GetForUpdate(ctx context.Context, companyID, id int64) (Purchase, error) {
	purchase, err := scanPurchase(r.tx.QueryRow(ctx, `SELECT `+purchaseColumns+` FROM purchases WHERE company_id=$1 AND id=$2 FOR UPDATE`, companyID, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Purchase{}, ErrNotFound
		}
		return Purchase{}, err
	}
	return purchase, nil
}

func (r *txRepository) MarkReceived(ctx context.Context, id int64, at time.Time) error {
	cmd, err := r.tx.Exec(ctx, `UPDATE purchases SET status='RECEIVED', received_at=$2, updated_at=NOW() WHERE id=$1`, id, at)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
