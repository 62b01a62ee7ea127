package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// RepositoryPort abstracts transactional repository behaviour.
type RepositoryPort interface {
	WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error
	GetEntryWithLines(ctx context.Context, companyID, entryID int64) (JournalEntry, []JournalLine, error)
	ListEntries(ctx context.Context, companyID int64, filter EntryFilter) ([]JournalEntry, int, error)
}

// AuditPort records ledger events for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// BalanceNotifier is informed after a successful posting so derived balances
// can be invalidated or re-materialised. Failures are logged, never fatal.
type BalanceNotifier interface {
	EntryPosted(ctx context.Context, companyID int64)
}

// Service coordinates posting and reversing journal entries.
type Service struct {
	repo     RepositoryPort
	audit    AuditPort
	balances BalanceNotifier
	logger   *slog.Logger
	now      func() time.Time
}

// NewService constructs the ledger service.
func NewService(repo RepositoryPort, audit AuditPort, balances BalanceNotifier, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{repo: repo, audit: audit, balances: balances, logger: logger, now: time.Now}
}

// WithNow overrides the clock for testing.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// PostEntry validates and persists a new journal entry. Header and lines are
// written in one transaction; a rejected posting leaves no rows behind. When
// sequence allocation fails the entry is retried once with a timestamp-derived
// number and the returned entry carries NumberFallback=true.
func (s *Service) PostEntry(ctx context.Context, input PostingInput) (JournalEntry, error) {
	if err := input.Validate(); err != nil {
		return JournalEntry{}, err
	}
	if input.Date.IsZero() {
		input.Date = s.now()
	}
	entry, err := s.postOnce(ctx, input, 0, false)
	var numErr *NumberingError
	if errors.As(err, &numErr) {
		fallback := s.now().UnixNano()
		s.logger.Warn("entry number sequence unavailable, using timestamp fallback",
			slog.Int64("company_id", input.CompanyID),
			slog.Int64("fallback_number", fallback),
			slog.Any("error", numErr.Err))
		entry, err = s.postOnce(ctx, input, fallback, true)
	}
	if err != nil {
		return JournalEntry{}, err
	}
	if s.balances != nil {
		s.balances.EntryPosted(ctx, entry.CompanyID)
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: entry.CompanyID,
			ActorID:   input.PostedBy,
			Action:    "journal.post",
			Entity:    "journal_entry",
			EntityID:  fmt.Sprintf("%d", entry.ID),
			Meta: map[string]any{
				"number":          entry.Number,
				"number_fallback": entry.NumberFallback,
				"source_module":   input.SourceModule,
				"source_id":       input.SourceID.String(),
			},
			At: s.now(),
		})
	}
	return entry, nil
}

func (s *Service) postOnce(ctx context.Context, input PostingInput, number int64, fallback bool) (JournalEntry, error) {
	lines := input.QualifyingLines()
	var entry JournalEntry
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx TxRepository) error {
		n := number
		if !fallback {
			allocated, err := tx.NextEntryNumber(ctx, input.CompanyID)
			if err != nil {
				return err
			}
			n = allocated
		}
		inserted, err := tx.InsertJournalEntry(ctx, input, n, fallback)
		if err != nil {
			return err
		}
		if err := tx.InsertJournalLines(ctx, inserted.ID, lines); err != nil {
			return err
		}
		if input.SourceID != uuid.Nil {
			if err := tx.LinkSource(ctx, input.CompanyID, input.SourceModule, input.SourceID, inserted.ID); err != nil {
				if errors.Is(err, ErrSourceConflict) {
					return ErrSourceAlreadyLinked
				}
				return err
			}
		}
		inserted.Lines = toJournalLines(inserted.ID, lines, s.now())
		entry = inserted
		return nil
	})
	if err != nil {
		return JournalEntry{}, err
	}
	return entry, nil
}

// ReverseEntry creates a new entry with the debits and credits of the
// original swapped. Corrections always happen through reversal; posted
// entries are never edited in place.
func (s *Service) ReverseEntry(ctx context.Context, input ReverseInput) (JournalEntry, error) {
	if input.EntryID == 0 {
		return JournalEntry{}, ErrEntryNotFound
	}
	if input.CompanyID == 0 {
		return JournalEntry{}, ErrScopeRequired
	}
	original, lines, err := s.repo.GetEntryWithLines(ctx, input.CompanyID, input.EntryID)
	if err != nil {
		return JournalEntry{}, err
	}
	date := original.Date
	if input.TargetDate != nil {
		date = *input.TargetDate
	}
	// Deterministic source id: reversing the same entry twice conflicts on
	// the source link instead of double-posting.
	sourceID := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("REVERSAL:%d:%d", input.CompanyID, original.ID)))
	posting := PostingInput{
		CompanyID:    input.CompanyID,
		ActivityID:   original.ActivityID,
		Date:         date,
		SourceModule: original.SourceModule + ":REVERSAL",
		SourceID:     sourceID,
		Memo:         defaultReversalMemo(input.Memo, original.Number),
		Reference:    fmt.Sprintf("JE-%d", original.Number),
		PostedBy:     input.ActorID,
		Lines:        reverseLines(lines),
	}
	reversal, err := s.PostEntry(ctx, posting)
	if err != nil {
		return JournalEntry{}, err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			CompanyID: input.CompanyID,
			ActorID:   input.ActorID,
			Action:    "journal.reverse",
			Entity:    "journal_entry",
			EntityID:  fmt.Sprintf("%d", input.EntryID),
			Meta: map[string]any{
				"reversal_id":     reversal.ID,
				"reversal_number": reversal.Number,
			},
			At: s.now(),
		})
	}
	return reversal, nil
}

// GetEntry loads one entry with its lines.
func (s *Service) GetEntry(ctx context.Context, companyID, entryID int64) (JournalEntry, error) {
	entry, lines, err := s.repo.GetEntryWithLines(ctx, companyID, entryID)
	if err != nil {
		return JournalEntry{}, err
	}
	entry.Lines = lines
	return entry, nil
}

// ListEntries returns company entries newest first.
func (s *Service) ListEntries(ctx context.Context, companyID int64, filter EntryFilter) ([]JournalEntry, int, error) {
	return s.repo.ListEntries(ctx, companyID, filter)
}

func reverseLines(lines []JournalLine) []PostingLineInput {
	out := make([]PostingLineInput, 0, len(lines))
	for _, line := range lines {
		out = append(out, PostingLineInput{
			AccountID: line.AccountID,
			Debit:     line.Credit,
			Credit:    line.Debit,
			Memo:      line.Memo,
		})
	}
	return out
}

func toJournalLines(entryID int64, lines []PostingLineInput, ts time.Time) []JournalLine {
	out := make([]JournalLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, JournalLine{
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Memo:      line.Memo,
			CreatedAt: ts,
		})
	}
	return out
}

func defaultReversalMemo(memo string, number int64) string {
	if memo != "" {
		return memo
	}
	return fmt.Sprintf("Reversal of JE %d", number)
}
