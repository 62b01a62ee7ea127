package balances

import "github.com/meridian-erp/meridian-erp/internal/ledger"

// AccountBalance aggregates debit and credit movement for one account.
type AccountBalance struct {
	AccountID int64
	Code      string
	Name      string
	Type      ledger.AccountType
	Debit     float64
	Credit    float64
}

// Balance returns the running balance with the sign normalised by account
// type: asset and expense accounts increase on debit, liability, equity and
// revenue accounts increase on credit.
func (b AccountBalance) Balance() float64 {
	if b.Type.DebitPositive() {
		return b.Debit - b.Credit
	}
	return b.Credit - b.Debit
}
