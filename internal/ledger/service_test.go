package ledger

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
	_ "github.com/meridian-erp/meridian-erp/testing"
)

type fakeRepo struct {
	entries   map[int64]JournalEntry
	lines     map[int64][]JournalLine
	links     map[string]int64
	sequences map[int64]int64
	nextID    int64

	seqError    error
	insertError error
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		entries:   make(map[int64]JournalEntry),
		lines:     make(map[int64][]JournalLine),
		links:     make(map[string]int64),
		sequences: make(map[int64]int64),
	}
}

type fakeTx struct {
	repo *fakeRepo

	// staged writes, applied on commit
	entries map[int64]JournalEntry
	lines   map[int64][]JournalLine
	links   map[string]int64
}

func (r *fakeRepo) WithTx(ctx context.Context, fn func(context.Context, TxRepository) error) error {
	tx := &fakeTx{
		repo:    r,
		entries: make(map[int64]JournalEntry),
		lines:   make(map[int64][]JournalLine),
		links:   make(map[string]int64),
	}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	for id, e := range tx.entries {
		r.entries[id] = e
	}
	for id, l := range tx.lines {
		r.lines[id] = l
	}
	for k, v := range tx.links {
		r.links[k] = v
	}
	return nil
}

func (r *fakeRepo) GetEntryWithLines(ctx context.Context, companyID, entryID int64) (JournalEntry, []JournalLine, error) {
	entry, ok := r.entries[entryID]
	if !ok || entry.CompanyID != companyID {
		return JournalEntry{}, nil, ErrEntryNotFound
	}
	return entry, r.lines[entryID], nil
}

func (r *fakeRepo) ListEntries(ctx context.Context, companyID int64, filter EntryFilter) ([]JournalEntry, int, error) {
	var out []JournalEntry
	for _, e := range r.entries {
		if e.CompanyID == companyID {
			out = append(out, e)
		}
	}
	return out, len(out), nil
}

func (tx *fakeTx) NextEntryNumber(ctx context.Context, companyID int64) (int64, error) {
	if tx.repo.seqError != nil {
		return 0, &NumberingError{Err: tx.repo.seqError}
	}
	tx.repo.sequences[companyID]++
	return tx.repo.sequences[companyID], nil
}

func (tx *fakeTx) InsertJournalEntry(ctx context.Context, in PostingInput, number int64, fallback bool) (JournalEntry, error) {
	if tx.repo.insertError != nil {
		return JournalEntry{}, tx.repo.insertError
	}
	tx.repo.nextID++
	debit, credit := in.Totals()
	entry := JournalEntry{
		ID:             tx.repo.nextID,
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
	tx.entries[entry.ID] = entry
	return entry, nil
}

func (tx *fakeTx) InsertJournalLines(ctx context.Context, entryID int64, lines []PostingLineInput) error {
	for _, line := range lines {
		tx.lines[entryID] = append(tx.lines[entryID], JournalLine{
			EntryID:   entryID,
			AccountID: line.AccountID,
			Debit:     line.Debit,
			Credit:    line.Credit,
			Memo:      line.Memo,
		})
	}
	return nil
}

func (tx *fakeTx) LinkSource(ctx context.Context, companyID int64, module string, ref uuid.UUID, entryID int64) error {
	key := fmt.Sprintf("%d:%s:%s", companyID, module, ref)
	if _, exists := tx.repo.links[key]; exists {
		return ErrSourceConflict
	}
	tx.links[key] = entryID
	return nil
}

func (tx *fakeTx) GetEntryWithLines(ctx context.Context, companyID, entryID int64) (JournalEntry, []JournalLine, error) {
	return tx.repo.GetEntryWithLines(ctx, companyID, entryID)
}

type fakeAudit struct {
	logs []shared.AuditLog
}

func (a *fakeAudit) Record(ctx context.Context, log shared.AuditLog) error {
	a.logs = append(a.logs, log)
	return nil
}

type fakeNotifier struct {
	companies []int64
}

func (n *fakeNotifier) EntryPosted(ctx context.Context, companyID int64) {
	n.companies = append(n.companies, companyID)
}

func newTestService(repo *fakeRepo) (*Service, *fakeAudit, *fakeNotifier) {
	audit := &fakeAudit{}
	notifier := &fakeNotifier{}
	svc := NewService(repo, audit, notifier, nil)
	svc.WithNow(func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) })
	return svc, audit, notifier
}

func TestPostEntryAssignsSequentialNumbers(t *testing.T) {
	repo := newFakeRepo()
	svc, audit, notifier := newTestService(repo)

	first, err := svc.PostEntry(context.Background(), validInput())
	require.NoError(t, err)
	second, err := svc.PostEntry(context.Background(), validInput())
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.Number)
	assert.Equal(t, int64(2), second.Number)
	assert.False(t, first.NumberFallback)
	assert.Len(t, first.Lines, 2)
	assert.Equal(t, []int64{1, 1}, notifier.companies)
	require.Len(t, audit.logs, 2)
	assert.Equal(t, "journal.post", audit.logs[0].Action)
}

func TestPostEntryRejectsInvalidInputWithoutWriting(t *testing.T) {
	repo := newFakeRepo()
	svc, _, notifier := newTestService(repo)

	in := validInput()
	in.Lines[1].Credit = 50

	_, err := svc.PostEntry(context.Background(), in)
	assert.ErrorIs(t, err, ErrUnbalanced)
	assert.Empty(t, repo.entries)
	assert.Empty(t, notifier.companies)
}

func TestPostEntryAtomicOnInsertFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.insertError = errors.New("disk full")
	svc, _, _ := newTestService(repo)

	_, err := svc.PostEntry(context.Background(), validInput())
	require.Error(t, err)
	assert.Empty(t, repo.entries)
	assert.Empty(t, repo.lines)
}

func TestPostEntryNumberingFallback(t *testing.T) {
	repo := newFakeRepo()
	repo.seqError = errors.New("sequence table locked")
	svc, _, _ := newTestService(repo)

	entry, err := svc.PostEntry(context.Background(), validInput())
	require.NoError(t, err)
	assert.True(t, entry.NumberFallback)
	assert.NotZero(t, entry.Number)
	assert.Len(t, repo.entries, 1)
}

func TestPostEntrySourceLinkIdempotent(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)

	in := validInput()
	in.SourceModule = "SALES"
	in.SourceID = uuid.NewSHA1(uuid.Nil, []byte("SALE:7"))

	_, err := svc.PostEntry(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.PostEntry(context.Background(), in)
	assert.ErrorIs(t, err, ErrSourceAlreadyLinked)
	assert.Len(t, repo.entries, 1)
}

func TestReverseEntrySwapsSides(t *testing.T) {
	repo := newFakeRepo()
	svc, audit, _ := newTestService(repo)

	original, err := svc.PostEntry(context.Background(), PostingInput{
		CompanyID:    1,
		SourceModule: "MANUAL",
		Memo:         "rent accrual",
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: 250},
			{AccountID: 20, Credit: 250},
		},
	})
	require.NoError(t, err)

	reversal, err := svc.ReverseEntry(context.Background(), ReverseInput{
		EntryID:   original.ID,
		CompanyID: 1,
		ActorID:   9,
	})
	require.NoError(t, err)

	require.Len(t, reversal.Lines, 2)
	assert.Equal(t, int64(10), reversal.Lines[0].AccountID)
	assert.Equal(t, 250.0, reversal.Lines[0].Credit)
	assert.Equal(t, 250.0, reversal.Lines[1].Debit)
	assert.Contains(t, reversal.Memo, fmt.Sprintf("%d", original.Number))
	assert.Equal(t, "MANUAL:REVERSAL", reversal.SourceModule)

	var reverseAudits int
	for _, log := range audit.logs {
		if log.Action == "journal.reverse" {
			reverseAudits++
		}
	}
	assert.Equal(t, 1, reverseAudits)
}

func TestReverseEntryTwiceConflicts(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)

	original, err := svc.PostEntry(context.Background(), validInput())
	require.NoError(t, err)

	in := ReverseInput{EntryID: original.ID, CompanyID: 1, ActorID: 9}
	_, err = svc.ReverseEntry(context.Background(), in)
	require.NoError(t, err)

	_, err = svc.ReverseEntry(context.Background(), in)
	assert.ErrorIs(t, err, ErrSourceAlreadyLinked)
}

func TestReverseEntryMissing(t *testing.T) {
	repo := newFakeRepo()
	svc, _, _ := newTestService(repo)

	_, err := svc.ReverseEntry(context.Background(), ReverseInput{EntryID: 42, CompanyID: 1})
	assert.ErrorIs(t, err, ErrEntryNotFound)
}
