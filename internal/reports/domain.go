package reports

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/balance"
	"github.com/meridian-re/meridian/internal/coa"
)

// TBRow is one trial balance line. A debit-normal account with a positive
// balance lands in the debit column; a negative balance flips to the other
// column so both totals stay positive.
type TBRow struct {
	AccountID int64           `json:"account_id"`
	Number    string          `json:"number"`
	Name      string          `json:"name"`
	Type      coa.AccountType `json:"type"`
	Debit     decimal.Decimal `json:"debit"`
	Credit    decimal.Decimal `json:"credit"`
}

// TrialBalance lists every nonzero account as of a date.
type TrialBalance struct {
	EntityID    int64           `json:"entity_id"`
	AsOf        time.Time       `json:"as_of"`
	Rows        []TBRow         `json:"rows"`
	TotalDebit  decimal.Decimal `json:"total_debit"`
	TotalCredit decimal.Decimal `json:"total_credit"`
}

// SectionRow is one account line inside a report section.
type SectionRow struct {
	AccountID int64           `json:"account_id"`
	Number    string          `json:"number"`
	Name      string          `json:"name"`
	Amount    decimal.Decimal `json:"amount"`
}

// Section groups rows under a heading with a subtotal.
type Section struct {
	Title string          `json:"title"`
	Rows  []SectionRow    `json:"rows"`
	Total decimal.Decimal `json:"total"`
}

// BalanceSheet presents assets against liabilities and equity as of a date.
// Net income to date is folded into the equity section.
type BalanceSheet struct {
	EntityID    int64           `json:"entity_id"`
	AsOf        time.Time       `json:"as_of"`
	Assets      Section         `json:"assets"`
	Liabilities Section         `json:"liabilities"`
	Equity      Section         `json:"equity"`
	NetIncome   decimal.Decimal `json:"net_income"`
}

// ProfitAndLoss presents revenue against expenses over a date range.
type ProfitAndLoss struct {
	EntityID  int64           `json:"entity_id"`
	From      time.Time       `json:"from"`
	To        time.Time       `json:"to"`
	Revenue   Section         `json:"revenue"`
	Expenses  Section         `json:"expenses"`
	NetIncome decimal.Decimal `json:"net_income"`
}

// GLAccount is one account's slice of the general ledger report: the balance
// at from as the beginning balance, the lines, then the balance at to.
type GLAccount struct {
	AccountID int64                  `json:"account_id"`
	Number    string                 `json:"number"`
	Name      string                 `json:"name"`
	Beginning decimal.Decimal        `json:"beginning_balance"`
	Lines     []balance.ActivityLine `json:"lines"`
	Ending    decimal.Decimal        `json:"ending_balance"`
}

// GeneralLedger groups per-account activity over a date range.
type GeneralLedger struct {
	EntityID int64       `json:"entity_id"`
	From     time.Time   `json:"from"`
	To       time.Time   `json:"to"`
	Accounts []GLAccount `json:"accounts"`
}
