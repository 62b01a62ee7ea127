package reports

import (
	"encoding/csv"
	"io"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var amountPrinter = message.NewPrinter(language.English)

func formatAmount(v float64) string {
	return amountPrinter.Sprintf("%.2f", v)
}

// WriteProfitAndLossCSV serialises the P&L report to CSV.
func WriteProfitAndLossCSV(w io.Writer, report ProfitAndLoss) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Section", "Code", "Name", "Amount"}); err != nil {
		return err
	}
	for _, row := range report.Revenue.Accounts {
		if err := writer.Write([]string{"Revenue", row.Code, row.Name, formatAmount(row.Amount)}); err != nil {
			return err
		}
	}
	for _, row := range report.Expense.Accounts {
		if err := writer.Write([]string{"Expense", row.Code, row.Name, formatAmount(row.Amount)}); err != nil {
			return err
		}
	}
	records := [][]string{
		{"Total", "", "Revenue", formatAmount(report.Revenue.Total)},
		{"Total", "", "Expense", formatAmount(report.Expense.Total)},
		{"Total", "", "Net", formatAmount(report.Net)},
	}
	for _, record := range records {
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteBalanceSheetCSV serialises the balance sheet report to CSV.
func WriteBalanceSheetCSV(w io.Writer, report BalanceSheet) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Section", "Code", "Name", "Balance"}); err != nil {
		return err
	}
	sections := []BalanceSheetSection{report.Assets, report.Liabilities, report.Equity}
	for _, section := range sections {
		for _, row := range section.Accounts {
			if err := writer.Write([]string{section.Label, row.Code, row.Name, formatAmount(row.Balance)}); err != nil {
				return err
			}
		}
		if err := writer.Write([]string{"Total", "", section.Label, formatAmount(section.Total)}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"Total", "", "Liabilities + Equity", formatAmount(report.TotalLiabilitiesAndEquity)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}
