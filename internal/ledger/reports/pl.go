package reports

import (
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ledger/balances"
)

// ProfitAndLossAccount represents a revenue or expense account summary.
type ProfitAndLossAccount struct {
	Code   string  `json:"code"`
	Name   string  `json:"name"`
	Amount float64 `json:"amount"`
}

// ProfitAndLossSection groups accounts by nature.
type ProfitAndLossSection struct {
	Label    string                 `json:"label"`
	Accounts []ProfitAndLossAccount `json:"accounts"`
	Total    float64                `json:"total"`
}

// ProfitAndLoss contains the structured output for the report.
type ProfitAndLoss struct {
	Revenue ProfitAndLossSection `json:"revenue"`
	Expense ProfitAndLossSection `json:"expense"`
	Net     float64              `json:"net"`
}

// BuildProfitAndLoss groups balances into revenue and expense sections with
// net = revenue - expense. Tolerates an empty chart of accounts.
func BuildProfitAndLoss(rows []balances.AccountBalance) ProfitAndLoss {
	revenue := ProfitAndLossSection{Label: "Revenue"}
	expense := ProfitAndLossSection{Label: "Expense"}

	for _, acc := range rows {
		row := ProfitAndLossAccount{Code: acc.Code, Name: acc.Name, Amount: acc.Balance()}
		switch acc.Type {
		case ledger.AccountTypeRevenue:
			revenue.Accounts = append(revenue.Accounts, row)
			revenue.Total += row.Amount
		case ledger.AccountTypeExpense:
			expense.Accounts = append(expense.Accounts, row)
			expense.Total += row.Amount
		}
	}

	sortByCode(revenue.Accounts, func(a ProfitAndLossAccount) string { return a.Code })
	sortByCode(expense.Accounts, func(a ProfitAndLossAccount) string { return a.Code })

	return ProfitAndLoss{
		Revenue: revenue,
		Expense: expense,
		Net:     revenue.Total - expense.Total,
	}
}
