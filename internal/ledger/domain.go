package ledger

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// AccountType enumerates chart of accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether the account type is a known category.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitPositive reports whether the account type increases on debit.
func (t AccountType) DebitPositive() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// balanceTolerance absorbs floating point rounding when comparing the two
// sides of an entry. Monetary amounts are held to two decimal places.
const balanceTolerance = 0.01

// JournalEntry captures posting metadata for a balanced entry.
type JournalEntry struct {
	ID           int64
	CompanyID    int64
	ActivityID   *int64
	Number       int64
	// NumberFallback marks entries numbered via the timestamp fallback after
	// a sequence allocation failure. Uniqueness is not guaranteed on this path.
	NumberFallback bool
	Date           time.Time
	SourceModule   string
	SourceID       uuid.UUID
	Memo           string
	Reference      string
	TotalDebit     float64
	TotalCredit    float64
	PostedBy       int64
	PostedAt       time.Time
	CreatedAt      time.Time
	Lines          []JournalLine
}

// JournalLine stores a debit or credit amount against one account. Exactly
// one side is non-zero on every persisted line.
type JournalLine struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Debit     float64
	Credit    float64
	Memo      string
	CreatedAt time.Time
}

// PostingLineInput describes a journal line for a posting request.
type PostingLineInput struct {
	AccountID int64
	Debit     float64
	Credit    float64
	Memo      string
}

// PostingInput groups the fields required to create a journal entry.
type PostingInput struct {
	CompanyID    int64
	ActivityID   *int64
	Date         time.Time
	SourceModule string
	SourceID     uuid.UUID
	Memo         string
	Reference    string
	PostedBy     int64
	Lines        []PostingLineInput
}

// blank reports whether a line is an untouched form row: no account and no
// amounts. Blank rows are dropped before validation, not rejected.
func (l PostingLineInput) blank() bool {
	return l.AccountID == 0 && l.Debit == 0 && l.Credit == 0
}

// QualifyingLines returns the input lines with blank rows removed.
func (in PostingInput) QualifyingLines() []PostingLineInput {
	out := make([]PostingLineInput, 0, len(in.Lines))
	for _, line := range in.Lines {
		if line.blank() {
			continue
		}
		out = append(out, line)
	}
	return out
}

// Validate checks the posting against the balanced entry rules. It inspects
// the input only; nothing is written when it fails.
func (in PostingInput) Validate() error {
	if in.CompanyID == 0 {
		return ErrScopeRequired
	}
	lines := in.QualifyingLines()
	var debit, credit float64
	for idx, line := range lines {
		if line.AccountID == 0 {
			return lineErr(idx, ErrLineAccountRequired)
		}
		if line.Debit < 0 || line.Credit < 0 {
			return lineErr(idx, ErrNegativeAmount)
		}
		if line.Debit > 0 && line.Credit > 0 {
			return lineErr(idx, ErrMixedLine)
		}
		if line.Debit == 0 && line.Credit == 0 {
			return lineErr(idx, ErrEmptyLine)
		}
		debit += line.Debit
		credit += line.Credit
	}
	if len(lines) < 2 {
		return ErrTooFewLines
	}
	if math.Abs(debit-credit) > balanceTolerance {
		return ErrUnbalanced
	}
	if debit < balanceTolerance {
		return ErrZeroAmount
	}
	return nil
}

// Totals sums the qualifying lines. Call after Validate.
func (in PostingInput) Totals() (debit, credit float64) {
	for _, line := range in.QualifyingLines() {
		debit += line.Debit
		credit += line.Credit
	}
	return round2(debit), round2(credit)
}

// ReverseInput wraps parameters for creating a reversing entry.
type ReverseInput struct {
	EntryID    int64
	CompanyID  int64
	ActorID    int64
	Memo       string
	TargetDate *time.Time
}

// EntryFilter narrows entry listings.
type EntryFilter struct {
	From    *time.Time
	To      *time.Time
	Page    int
	PerPage int
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
