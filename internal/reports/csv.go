package reports

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// cell renders an exact amount for a data row.
func cell(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// grouped renders a total with thousands separators for the summary rows.
func grouped(d decimal.Decimal) string {
	f, _ := d.Float64()
	return printer.Sprintf("%.2f", f)
}

// WriteTrialBalanceCSV serialises a trial balance to CSV.
func WriteTrialBalanceCSV(w io.Writer, tb TrialBalance) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Number", "Account", "Type", "Debit", "Credit"}); err != nil {
		return err
	}
	for _, row := range tb.Rows {
		if err := writer.Write([]string{
			row.Number,
			row.Name,
			string(row.Type),
			cell(row.Debit),
			cell(row.Credit),
		}); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"", "Total", "", grouped(tb.TotalDebit), grouped(tb.TotalCredit)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

func writeSectionCSV(writer *csv.Writer, section Section) error {
	if err := writer.Write([]string{section.Title, "", ""}); err != nil {
		return err
	}
	for _, row := range section.Rows {
		if err := writer.Write([]string{row.Number, row.Name, cell(row.Amount)}); err != nil {
			return err
		}
	}
	return writer.Write([]string{"", "Total " + section.Title, grouped(section.Total)})
}

// WriteBalanceSheetCSV serialises a balance sheet to CSV.
func WriteBalanceSheetCSV(w io.Writer, bs BalanceSheet) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Number", "Account", "Amount"}); err != nil {
		return err
	}
	for _, section := range []Section{bs.Assets, bs.Liabilities, bs.Equity} {
		if err := writeSectionCSV(writer, section); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

// WriteProfitAndLossCSV serialises a P&L to CSV.
func WriteProfitAndLossCSV(w io.Writer, pl ProfitAndLoss) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Number", "Account", "Amount"}); err != nil {
		return err
	}
	for _, section := range []Section{pl.Revenue, pl.Expenses} {
		if err := writeSectionCSV(writer, section); err != nil {
			return err
		}
	}
	if err := writer.Write([]string{"", "Net income", grouped(pl.NetIncome)}); err != nil {
		return err
	}
	writer.Flush()
	return writer.Error()
}

// WriteGeneralLedgerCSV serialises a general ledger report to CSV, one block
// per account framed by beginning and ending balances.
func WriteGeneralLedgerCSV(w io.Writer, gl GeneralLedger) error {
	writer := csv.NewWriter(w)
	defer writer.Flush()

	if err := writer.Write([]string{"Account", "Date", "Entry", "Memo", "Debit", "Credit", "Balance"}); err != nil {
		return err
	}
	for _, account := range gl.Accounts {
		label := account.Number + " " + account.Name
		if err := writer.Write([]string{label, "", "", "Beginning balance", "", "", cell(account.Beginning)}); err != nil {
			return err
		}
		for _, line := range account.Lines {
			if err := writer.Write([]string{
				label,
				line.Date.Format("2006-01-02"),
				strconv.FormatInt(line.EntryNumber, 10),
				line.Memo,
				cell(line.Debit),
				cell(line.Credit),
				cell(line.Running),
			}); err != nil {
				return err
			}
		}
		if err := writer.Write([]string{label, "", "", "Ending balance", "", "", cell(account.Ending)}); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}
