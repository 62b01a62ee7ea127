package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/meridian-erp/meridian-erp/internal/platform/db"
)

// Repository persists journal entries.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs Repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// TxRepository exposes operations available within a posting transaction.
type TxRepository interface {
	NextEntryNumber(ctx context.Context, companyID int64) (int64, error)
	InsertJournalEntry(ctx context.Context, in PostingInput, number int64, fallback bool) (JournalEntry, error)
	InsertJournalLines(ctx context.Context, entryID int64, lines []PostingLineInput) error
	LinkSource(ctx context.Context, companyID int64, module string, ref uuid.UUID, entryID int64) error
	GetEntryWithLines(ctx context.Context, companyID, entryID int64) (JournalEntry, []JournalLine, error)
}

type txRepository struct {
	tx pgx.Tx
}

// WithTx executes fn within a repeatable-read transaction. The posting write
// path is all-or-nothing: header and lines commit together or not at all.
func (r *Repository) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	if r == nil {
		return errors.New("ledger repository not initialised")
	}
	return db.WithTx(ctx, r.pool, func(tx pgx.Tx) error {
		return fn(ctx, &txRepository{tx: tx})
	})
}

// NextEntryNumber allocates the next per-company entry number. The upsert is
// a single atomic statement, so concurrent postings never observe the same
// value.
func (r *txRepository) NextEntryNumber(ctx context.Context, companyID int64) (int64, error) {
	var number int64
	err := r.tx.QueryRow(ctx, `INSERT INTO journal_sequences (company_id, last_number) VALUES ($1, 1)
ON CONFLICT (company_id) DO UPDATE SET last_number = journal_sequences.last_number + 1
RETURNING last_number`, companyID).Scan(&number)
	if err != nil {
		return 0, &NumberingError{Err: err}
	}
	return number, nil
}

func (r *txRepository) InsertJournalEntry(ctx context.Context, in PostingInput, number int64, fallback bool) (JournalEntry, error) {
	debit, credit := in.Totals()
	row := r.tx.QueryRow(ctx, `INSERT INTO journal_entries
(company_id, activity_id, number, number_fallback, date, source_module, source_id, memo, reference, total_debit, total_credit, posted_by)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
RETURNING id, posted_at, created_at`,
		in.CompanyID, nullIntPtr(in.ActivityID), number, fallback, in.Date, in.SourceModule, in.SourceID,
		in.Memo, in.Reference, toNumeric(debit), toNumeric(credit), nullInt(in.PostedBy))
	entry := JournalEntry{
		CompanyID:      in.CompanyID,
		ActivityID:     in.ActivityID,
		Number:         number,
		NumberFallback: fallback,
		Date:           in.Date,
		SourceModule:   in.SourceModule,
		SourceID:       in.SourceID,
		Memo:           in.Memo,
		Reference:      in.Reference,
		TotalDebit:     debit,
		TotalCredit:    credit,
		PostedBy:       in.PostedBy,
	}
	if err := row.Scan(&entry.ID, &entry.PostedAt, &entry.CreatedAt); err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

func (r *txRepository) InsertJournalLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		if _, err := r.tx.Exec(ctx, `INSERT INTO journal_lines (entry_id, account_id, debit, credit, memo)
VALUES ($1,$2,$3,$4,$5)`, entryID, line.AccountID, toNumeric(line.Debit), toNumeric(line.Credit), line.Memo); err != nil {
			return err
		}
	}
	return nil
}

func (r *txRepository) LinkSource(ctx context.Context, companyID int64, module string, ref uuid.UUID, entryID int64) error {
	_, err := r.tx.Exec(ctx, `INSERT INTO source_links (company_id, module, ref_id, entry_id) VALUES ($1,$2,$3,$4)`,
		companyID, module, ref, entryID)
	if err != nil {
		if pgErr, ok := err.(*pgconn.PgError); ok && pgErr.ConstraintName == "uq_source_links" {
			return ErrSourceConflict
		}
		return err
	}
	return nil
}

func (r *txRepository) GetEntryWithLines(ctx context.Context, companyID, entryID int64) (JournalEntry, []JournalLine, error) {
	return getEntryWithLines(ctx, r.tx, companyID, entryID)
}

// GetEntryWithLines loads a single entry outside a transaction.
func (r *Repository) GetEntryWithLines(ctx context.Context, companyID, entryID int64) (JournalEntry, []JournalLine, error) {
	return getEntryWithLines(ctx, r.pool, companyID, entryID)
}

type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func getEntryWithLines(ctx context.Context, q querier, companyID, entryID int64) (JournalEntry, []JournalLine, error) {
	var entry JournalEntry
	err := q.QueryRow(ctx, `SELECT id, company_id, activity_id, number, number_fallback, date, source_module, source_id, memo, reference, total_debit, total_credit, posted_by, posted_at, created_at
FROM journal_entries WHERE company_id=$1 AND id=$2`, companyID, entryID).
		Scan(&entry.ID, &entry.CompanyID, &entry.ActivityID, &entry.Number, &entry.NumberFallback, &entry.Date,
			&entry.SourceModule, &entry.SourceID, &entry.Memo, &entry.Reference, &entry.TotalDebit, &entry.TotalCredit,
			&entry.PostedBy, &entry.PostedAt, &entry.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return JournalEntry{}, nil, ErrEntryNotFound
		}
		return JournalEntry{}, nil, err
	}
	rows, err := q.Query(ctx, `SELECT id, entry_id, account_id, debit, credit, memo, created_at
FROM journal_lines WHERE entry_id=$1 ORDER BY id ASC`, entryID)
	if err != nil {
		return JournalEntry{}, nil, err
	}
	defer rows.Close()
	var lines []JournalLine
	for rows.Next() {
		var line JournalLine
		if err := rows.Scan(&line.ID, &line.EntryID, &line.AccountID, &line.Debit, &line.Credit, &line.Memo, &line.CreatedAt); err != nil {
			return JournalEntry{}, nil, err
		}
		lines = append(lines, line)
	}
	return entry, lines, rows.Err()
}

// ListEntries returns company entries newest first with optional date bounds.
func (r *Repository) ListEntries(ctx context.Context, companyID int64, filter EntryFilter) ([]JournalEntry, int, error) {
	where := `WHERE company_id=$1`
	args := []any{companyID}
	if filter.From != nil {
		args = append(args, *filter.From)
		where += fmt.Sprintf(" AND date >= $%d", len(args))
	}
	if filter.To != nil {
		args = append(args, *filter.To)
		where += fmt.Sprintf(" AND date <= $%d", len(args))
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM journal_entries `+where, args...).Scan(&total); err != nil {
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
	query := fmt.Sprintf(`SELECT id, company_id, activity_id, number, number_fallback, date, source_module, source_id, memo, reference, total_debit, total_credit, posted_by, posted_at, created_at
FROM journal_entries %s ORDER BY number DESC LIMIT $%d OFFSET $%d`, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	var entries []JournalEntry
	for rows.Next() {
		var e JournalEntry
		if err := rows.Scan(&e.ID, &e.CompanyID, &e.ActivityID, &e.Number, &e.NumberFallback, &e.Date,
			&e.SourceModule, &e.SourceID, &e.Memo, &e.Reference, &e.TotalDebit, &e.TotalCredit,
			&e.PostedBy, &e.PostedAt, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

func nullInt(val int64) any {
	if val == 0 {
		return nil
	}
	return val
}

func nullIntPtr(val *int64) any {
	if val == nil {
		return nil
	}
	if *val == 0 {
		return nil
	}
	return *val
}

func toNumeric(v float64) any {
	return fmt.Sprintf("%.2f", v)
}
