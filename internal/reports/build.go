package reports

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/balance"
	"github.com/meridian-re/meridian/internal/coa"
	"github.com/meridian-re/meridian/internal/shared"
)

// ErrTrialBalanceMismatch flags unequal debit and credit totals. The ledger
// guarantees balanced postings, so a mismatch is a defect and is never
// corrected in the report.
var ErrTrialBalanceMismatch = shared.Integrity("reports: trial balance out of balance")

// BuildTrialBalance folds signed account balances into debit and credit
// columns. Pure function of its inputs.
func BuildTrialBalance(entityID int64, asOf time.Time, balances []balance.AccountBalance) (TrialBalance, error) {
	tb := TrialBalance{
		EntityID:    entityID,
		AsOf:        asOf,
		TotalDebit:  decimal.Zero,
		TotalCredit: decimal.Zero,
	}
	for _, ab := range balances {
		if ab.Balance.IsZero() {
			continue
		}
		row := TBRow{
			AccountID: ab.Account.ID,
			Number:    ab.Account.Number,
			Name:      ab.Account.Name,
			Type:      ab.Account.Type,
		}
		debitSide := ab.Account.Type.DebitNormal()
		amount := ab.Balance
		if amount.Sign() < 0 {
			debitSide = !debitSide
			amount = amount.Neg()
		}
		if debitSide {
			row.Debit = amount
			tb.TotalDebit = tb.TotalDebit.Add(amount)
		} else {
			row.Credit = amount
			tb.TotalCredit = tb.TotalCredit.Add(amount)
		}
		tb.Rows = append(tb.Rows, row)
	}
	if !tb.TotalDebit.Equal(tb.TotalCredit) {
		return TrialBalance{}, fmt.Errorf("%w: debits %s vs credits %s for entity %d as of %s",
			ErrTrialBalanceMismatch, tb.TotalDebit, tb.TotalCredit, entityID, asOf.Format("2006-01-02"))
	}
	return tb, nil
}

func buildSection(title string, t coa.AccountType, balances []balance.AccountBalance) Section {
	section := Section{Title: title, Total: decimal.Zero}
	for _, ab := range balances {
		if ab.Account.Type != t || ab.Balance.IsZero() {
			continue
		}
		section.Rows = append(section.Rows, SectionRow{
			AccountID: ab.Account.ID,
			Number:    ab.Account.Number,
			Name:      ab.Account.Name,
			Amount:    ab.Balance,
		})
		section.Total = section.Total.Add(ab.Balance)
	}
	return section
}

// BuildBalanceSheet assembles assets, liabilities, and equity from signed
// balances, folding life-to-date net income into equity so the statement
// balances.
func BuildBalanceSheet(entityID int64, asOf time.Time, balances []balance.AccountBalance) BalanceSheet {
	bs := BalanceSheet{
		EntityID:    entityID,
		AsOf:        asOf,
		Assets:      buildSection("Assets", coa.AccountTypeAsset, balances),
		Liabilities: buildSection("Liabilities", coa.AccountTypeLiability, balances),
		Equity:      buildSection("Equity", coa.AccountTypeEquity, balances),
	}
	revenue := buildSection("Revenue", coa.AccountTypeRevenue, balances)
	expenses := buildSection("Expenses", coa.AccountTypeExpense, balances)
	bs.NetIncome = revenue.Total.Sub(expenses.Total)
	if !bs.NetIncome.IsZero() {
		bs.Equity.Rows = append(bs.Equity.Rows, SectionRow{Name: "Net income", Amount: bs.NetIncome})
		bs.Equity.Total = bs.Equity.Total.Add(bs.NetIncome)
	}
	return bs
}

// BuildProfitAndLoss derives each revenue and expense account's movement
// over the range as closing minus opening. Callers pass the opening snapshot
// taken the day before from, so activity dated on from itself is counted.
func BuildProfitAndLoss(entityID int64, from, to time.Time, opening, closing []balance.AccountBalance) ProfitAndLoss {
	openingByID := make(map[int64]decimal.Decimal, len(opening))
	for _, ab := range opening {
		openingByID[ab.Account.ID] = ab.Balance
	}
	movement := make([]balance.AccountBalance, 0, len(closing))
	for _, ab := range closing {
		ab.Balance = ab.Balance.Sub(openingByID[ab.Account.ID])
		movement = append(movement, ab)
	}
	pl := ProfitAndLoss{
		EntityID: entityID,
		From:     from,
		To:       to,
		Revenue:  buildSection("Revenue", coa.AccountTypeRevenue, movement),
		Expenses: buildSection("Expenses", coa.AccountTypeExpense, movement),
	}
	pl.NetIncome = pl.Revenue.Total.Sub(pl.Expenses.Total)
	return pl
}
