package mappings

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository resolves and maintains account mappings.
type Repository interface {
	Get(ctx context.Context, companyID int64, module, key string) (AccountMapping, error)
	Put(ctx context.Context, mapping AccountMapping) error
	List(ctx context.Context, companyID int64, module string) ([]AccountMapping, error)
}

type repository struct {
	db *pgxpool.Pool
}

// NewRepository constructs the pgx-backed repository.
func NewRepository(db *pgxpool.Pool) Repository {
	return &repository{db: db}
}

// Get resolves an account mapping for the specified key.
func (r *repository) Get(ctx context.Context, companyID int64, module, key string) (AccountMapping, error) {
	if module == "" || key == "" {
		return AccountMapping{}, errors.New("mappings: module and key required")
	}
	normalized := strings.ToUpper(module)
	var mapping AccountMapping
	err := r.db.QueryRow(ctx, `SELECT company_id, module, key, account_id, created_at, updated_at
FROM account_mappings WHERE company_id=$1 AND module=$2 AND key=$3`, companyID, normalized, key).
		Scan(&mapping.CompanyID, &mapping.Module, &mapping.Key, &mapping.AccountID, &mapping.CreatedAt, &mapping.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return AccountMapping{}, ErrNotFound
		}
		return AccountMapping{}, err
	}
	return mapping, nil
}

// Put upserts a mapping after confirming the target account exists and is
// active for the company. Failing here, at configuration time, is what keeps
// posting-time resolution from ever matching a dead account.
func (r *repository) Put(ctx context.Context, mapping AccountMapping) error {
	if mapping.Module == "" || mapping.Key == "" {
		return errors.New("mappings: module and key required")
	}
	var active bool
	err := r.db.QueryRow(ctx, `SELECT is_active FROM accounts WHERE company_id=$1 AND id=$2`,
		mapping.CompanyID, mapping.AccountID).Scan(&active)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrInvalidTarget
		}
		return err
	}
	if !active {
		return ErrInvalidTarget
	}
	_, err = r.db.Exec(ctx, `INSERT INTO account_mappings (company_id, module, key, account_id)
VALUES ($1,$2,$3,$4)
ON CONFLICT (company_id, module, key) DO UPDATE SET account_id=EXCLUDED.account_id, updated_at=NOW()`,
		mapping.CompanyID, strings.ToUpper(mapping.Module), mapping.Key, mapping.AccountID)
	return err
}

// List returns the mappings for a module.
func (r *repository) List(ctx context.Context, companyID int64, module string) ([]AccountMapping, error) {
	rows, err := r.db.Query(ctx, `SELECT company_id, module, key, account_id, created_at, updated_at
FROM account_mappings WHERE company_id=$1 AND module=$2 ORDER BY key`, companyID, strings.ToUpper(module))
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []AccountMapping
	for rows.Next() {
		var m AccountMapping
		if err := rows.Scan(&m.CompanyID, &m.Module, &m.Key, &m.AccountID, &m.CreatedAt, &m.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}
