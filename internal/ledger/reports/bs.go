package reports

import (
	"sort"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/ledger/balances"
)

// BalanceSheetAccount summarises an account for assets, liabilities, or equity.
type BalanceSheetAccount struct {
	Code    string  `json:"code"`
	Name    string  `json:"name"`
	Balance float64 `json:"balance"`
}

// BalanceSheetSection contains the accounts and totals for a classification.
type BalanceSheetSection struct {
	Label    string                `json:"label"`
	Accounts []BalanceSheetAccount `json:"accounts"`
	Total    float64               `json:"total"`
}

// BalanceSheet is the structured response for the balance sheet report.
type BalanceSheet struct {
	Assets                    BalanceSheetSection `json:"assets"`
	Liabilities               BalanceSheetSection `json:"liabilities"`
	Equity                    BalanceSheetSection `json:"equity"`
	TotalLiabilitiesAndEquity float64             `json:"total_liabilities_and_equity"`
}

// BuildBalanceSheet groups balances into assets, liabilities, and equity
// sections. An empty chart of accounts yields zero-valued sections.
func BuildBalanceSheet(rows []balances.AccountBalance) BalanceSheet {
	assets := BalanceSheetSection{Label: "Assets"}
	liabilities := BalanceSheetSection{Label: "Liabilities"}
	equity := BalanceSheetSection{Label: "Equity"}

	for _, acc := range rows {
		row := BalanceSheetAccount{Code: acc.Code, Name: acc.Name, Balance: acc.Balance()}
		switch acc.Type {
		case ledger.AccountTypeAsset:
			assets.Accounts = append(assets.Accounts, row)
			assets.Total += row.Balance
		case ledger.AccountTypeLiability:
			liabilities.Accounts = append(liabilities.Accounts, row)
			liabilities.Total += row.Balance
		case ledger.AccountTypeEquity:
			equity.Accounts = append(equity.Accounts, row)
			equity.Total += row.Balance
		}
	}

	sortByCode(assets.Accounts, func(a BalanceSheetAccount) string { return a.Code })
	sortByCode(liabilities.Accounts, func(a BalanceSheetAccount) string { return a.Code })
	sortByCode(equity.Accounts, func(a BalanceSheetAccount) string { return a.Code })

	return BalanceSheet{
		Assets:                    assets,
		Liabilities:               liabilities,
		Equity:                    equity,
		TotalLiabilitiesAndEquity: liabilities.Total + equity.Total,
	}
}

func sortByCode[T any](rows []T, code func(T) string) {
	sort.Slice(rows, func(i, j int) bool { return code(rows[i]) < code(rows[j]) })
}
