package reports

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/balance"
	"github.com/meridian-re/meridian/internal/coa"
	"github.com/meridian-re/meridian/internal/shared"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func june30() time.Time { return time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC) }

func ab(id int64, number, name string, t coa.AccountType, bal string) balance.AccountBalance {
	return balance.AccountBalance{
		Account: coa.Account{ID: id, EntityID: 1, Number: number, Name: name, Type: t},
		Balance: dec(bal),
	}
}

func TestBuildTrialBalanceColumns(t *testing.T) {
	balances := []balance.AccountBalance{
		ab(10, "1000", "Cash", coa.AccountTypeAsset, "800.00"),
		ab(20, "2000", "Notes payable", coa.AccountTypeLiability, "0"),
		ab(30, "3000", "Member capital", coa.AccountTypeEquity, "0"),
		ab(40, "4000", "Rental revenue", coa.AccountTypeRevenue, "1000.00"),
		ab(50, "5000", "Repairs", coa.AccountTypeExpense, "200.00"),
	}
	tb, err := BuildTrialBalance(1, june30(), balances)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// Zero-balance accounts drop out.
	if len(tb.Rows) != 3 {
		t.Fatalf("rows = %d, want 3", len(tb.Rows))
	}
	if !tb.Rows[0].Debit.Equal(dec("800.00")) || !tb.Rows[0].Credit.IsZero() {
		t.Fatalf("cash row = %+v, want debit 800.00", tb.Rows[0])
	}
	if !tb.Rows[1].Credit.Equal(dec("1000.00")) {
		t.Fatalf("revenue row = %+v, want credit 1000.00", tb.Rows[1])
	}
	if !tb.TotalDebit.Equal(tb.TotalCredit) {
		t.Fatalf("totals differ: %s vs %s", tb.TotalDebit, tb.TotalCredit)
	}
	if !tb.TotalDebit.Equal(dec("1000.00")) {
		t.Fatalf("total = %s, want 1000.00", tb.TotalDebit)
	}
}

func TestBuildTrialBalanceNegativeBalanceFlipsColumn(t *testing.T) {
	balances := []balance.AccountBalance{
		ab(10, "1000", "Cash", coa.AccountTypeAsset, "-50.00"),
		ab(40, "4000", "Revenue", coa.AccountTypeRevenue, "-50.00"),
	}
	tb, err := BuildTrialBalance(1, june30(), balances)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	// Overdrawn cash shows as a credit; contra revenue as a debit.
	if !tb.Rows[0].Credit.Equal(dec("50.00")) {
		t.Fatalf("cash row = %+v, want credit 50.00", tb.Rows[0])
	}
	if !tb.Rows[1].Debit.Equal(dec("50.00")) {
		t.Fatalf("revenue row = %+v, want debit 50.00", tb.Rows[1])
	}
}

func TestBuildTrialBalanceMismatchIsIntegrityFault(t *testing.T) {
	balances := []balance.AccountBalance{
		ab(10, "1000", "Cash", coa.AccountTypeAsset, "100.00"),
	}
	_, err := BuildTrialBalance(1, june30(), balances)
	if !errors.Is(err, ErrTrialBalanceMismatch) {
		t.Fatalf("err = %v, want ErrTrialBalanceMismatch", err)
	}
	if !shared.IsIntegrity(err) {
		t.Fatalf("mismatch must be an integrity fault, got kind %d", shared.KindOf(err))
	}
}

func TestBuildBalanceSheetFoldsNetIncomeIntoEquity(t *testing.T) {
	balances := []balance.AccountBalance{
		ab(10, "1000", "Cash", coa.AccountTypeAsset, "1300.00"),
		ab(20, "2000", "Notes payable", coa.AccountTypeLiability, "200.00"),
		ab(30, "3000", "Member capital", coa.AccountTypeEquity, "300.00"),
		ab(40, "4000", "Revenue", coa.AccountTypeRevenue, "1000.00"),
		ab(50, "5000", "Repairs", coa.AccountTypeExpense, "200.00"),
	}
	bs := BuildBalanceSheet(1, june30(), balances)
	if !bs.NetIncome.Equal(dec("800.00")) {
		t.Fatalf("net income = %s, want 800.00", bs.NetIncome)
	}
	if !bs.Equity.Total.Equal(dec("1100.00")) {
		t.Fatalf("equity total = %s, want 1100.00", bs.Equity.Total)
	}
	// Assets = Liabilities + Equity once earnings are folded in.
	if !bs.Assets.Total.Equal(bs.Liabilities.Total.Add(bs.Equity.Total)) {
		t.Fatalf("identity broken: %s vs %s", bs.Assets.Total, bs.Liabilities.Total.Add(bs.Equity.Total))
	}
}

func TestBuildProfitAndLossMovement(t *testing.T) {
	opening := []balance.AccountBalance{
		ab(40, "4000", "Revenue", coa.AccountTypeRevenue, "600.00"),
		ab(50, "5000", "Repairs", coa.AccountTypeExpense, "100.00"),
	}
	closing := []balance.AccountBalance{
		ab(40, "4000", "Revenue", coa.AccountTypeRevenue, "1000.00"),
		ab(50, "5000", "Repairs", coa.AccountTypeExpense, "250.00"),
	}
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	pl := BuildProfitAndLoss(1, from, june30(), opening, closing)
	if !pl.Revenue.Total.Equal(dec("400.00")) {
		t.Fatalf("revenue movement = %s, want 400.00", pl.Revenue.Total)
	}
	if !pl.Expenses.Total.Equal(dec("150.00")) {
		t.Fatalf("expense movement = %s, want 150.00", pl.Expenses.Total)
	}
	if !pl.NetIncome.Equal(dec("250.00")) {
		t.Fatalf("net income = %s, want 250.00", pl.NetIncome)
	}
}
