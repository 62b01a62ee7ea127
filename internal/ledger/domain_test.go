package ledger

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validInput() PostingInput {
	return PostingInput{
		CompanyID: 1,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: 100},
			{AccountID: 20, Credit: 100},
		},
	}
}

func TestValidateBalancedEntry(t *testing.T) {
	require.NoError(t, validInput().Validate())
}

func TestValidateRequiresScope(t *testing.T) {
	in := validInput()
	in.CompanyID = 0
	assert.ErrorIs(t, in.Validate(), ErrScopeRequired)
}

func TestValidateUnbalanced(t *testing.T) {
	in := PostingInput{
		CompanyID: 1,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: 100},
			{AccountID: 20, Credit: 99},
		},
	}
	assert.ErrorIs(t, in.Validate(), ErrUnbalanced)
}

func TestValidateToleratesRoundingNoise(t *testing.T) {
	in := PostingInput{
		CompanyID: 1,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: 33.33},
			{AccountID: 11, Debit: 33.33},
			{AccountID: 12, Debit: 33.34},
			{AccountID: 20, Credit: 99.999},
		},
	}
	require.NoError(t, in.Validate())
}

func TestValidateTooFewLines(t *testing.T) {
	in := PostingInput{
		CompanyID: 1,
		Lines:     []PostingLineInput{{AccountID: 10, Debit: 100}},
	}
	assert.ErrorIs(t, in.Validate(), ErrTooFewLines)
}

func TestValidateBlankLinesDropped(t *testing.T) {
	in := validInput()
	in.Lines = append(in.Lines, PostingLineInput{})
	require.NoError(t, in.Validate())
	assert.Len(t, in.QualifyingLines(), 2)
}

func TestValidateMixedLine(t *testing.T) {
	in := PostingInput{
		CompanyID: 1,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: 50, Credit: 50},
			{AccountID: 20, Credit: 0},
		},
	}
	err := in.Validate()
	assert.ErrorIs(t, err, ErrMixedLine)

	var le *LineError
	require.True(t, errors.As(err, &le))
	assert.Equal(t, 1, le.Line)
}

func TestValidateEmptyLineWithAccount(t *testing.T) {
	in := PostingInput{
		CompanyID: 1,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: 100},
			{AccountID: 20, Credit: 100},
			{AccountID: 30},
		},
	}
	assert.ErrorIs(t, in.Validate(), ErrEmptyLine)
}

func TestValidateNegativeAmount(t *testing.T) {
	in := PostingInput{
		CompanyID: 1,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: -100},
			{AccountID: 20, Credit: -100},
		},
	}
	assert.ErrorIs(t, in.Validate(), ErrNegativeAmount)
}

func TestValidateMissingAccount(t *testing.T) {
	in := PostingInput{
		CompanyID: 1,
		Lines: []PostingLineInput{
			{Debit: 100},
			{AccountID: 20, Credit: 100},
		},
	}
	assert.ErrorIs(t, in.Validate(), ErrLineAccountRequired)
}

func TestValidateZeroValueEntry(t *testing.T) {
	in := PostingInput{
		CompanyID: 1,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: 0.001},
			{AccountID: 20, Credit: 0.001},
		},
	}
	assert.ErrorIs(t, in.Validate(), ErrZeroAmount)
}

func TestValidateAcceptsOneCentEntry(t *testing.T) {
	// One cent is the smallest real posting; only true zero-value entries
	// are rejected.
	in := PostingInput{
		CompanyID: 1,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: 0.01},
			{AccountID: 20, Credit: 0.01},
		},
	}
	assert.NoError(t, in.Validate())
}

func TestTotalsRounding(t *testing.T) {
	in := PostingInput{
		CompanyID: 1,
		Lines: []PostingLineInput{
			{AccountID: 10, Debit: 0.1},
			{AccountID: 11, Debit: 0.2},
			{AccountID: 20, Credit: 0.3},
		},
	}
	debit, credit := in.Totals()
	assert.Equal(t, 0.3, debit)
	assert.Equal(t, 0.3, credit)
}

func TestAccountTypeConventions(t *testing.T) {
	assert.True(t, AccountTypeAsset.DebitPositive())
	assert.True(t, AccountTypeExpense.DebitPositive())
	assert.False(t, AccountTypeLiability.DebitPositive())
	assert.False(t, AccountTypeEquity.DebitPositive())
	assert.False(t, AccountTypeRevenue.DebitPositive())

	assert.True(t, AccountTypeAsset.Valid())
	assert.False(t, AccountType("CONTRA").Valid())
}
