package balance

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/coa"
)

// Net holds raw debit and credit totals before the normal-balance sign is
// applied.
type Net struct {
	Debit  decimal.Decimal
	Credit decimal.Decimal
}

// Add accumulates another total into n.
func (n Net) Add(other Net) Net {
	return Net{Debit: n.Debit.Add(other.Debit), Credit: n.Credit.Add(other.Credit)}
}

// Signed converts raw totals into the account's natural sign: asset and
// expense balances grow with debits, the rest with credits.
func (n Net) Signed(t coa.AccountType) decimal.Decimal {
	if t.DebitNormal() {
		return n.Debit.Sub(n.Credit)
	}
	return n.Credit.Sub(n.Debit)
}

// AccountBalance pairs an account with its balance as of a date.
type AccountBalance struct {
	Account coa.Account
	Balance decimal.Decimal
}

// ActivityLine is one general ledger row with a running balance carried in
// the account's natural sign.
type ActivityLine struct {
	EntryID     int64
	EntryNumber int64
	LineID      int64
	Date        time.Time
	Memo        string
	Reference   string
	Debit       decimal.Decimal
	Credit      decimal.Decimal
	Running     decimal.Decimal
}

// Activity is a date-bounded ledger view for one account.
type Activity struct {
	AccountID int64
	From      time.Time
	To        time.Time
	Opening   decimal.Decimal
	Closing   decimal.Decimal
	Lines     []ActivityLine
}
