package consol

import (
	"time"

	"github.com/shopspring/decimal"
)

// Method records how a subsidiary entered the consolidated statement.
type Method string

const (
	// MethodFull folds 100% of the subsidiary's balances in and carves out
	// a minority-interest equity line for the remainder.
	MethodFull Method = "FULL"
	// MethodEquity books the stake as a single investment line instead of
	// combining balances.
	MethodEquity Method = "EQUITY"
)

// SubsidiaryLine explains one entity's contribution to the consolidation.
type SubsidiaryLine struct {
	EntityID     int64           `json:"entity_id"`
	EntityName   string          `json:"entity_name"`
	Effective    decimal.Decimal `json:"effective_ownership"`
	Method       Method          `json:"method"`
	Assets       decimal.Decimal `json:"assets"`
	Liabilities  decimal.Decimal `json:"liabilities"`
	Equity       decimal.Decimal `json:"equity"`
	MinorityInt  decimal.Decimal `json:"minority_interest"`
	EquityPickup decimal.Decimal `json:"equity_pickup"`
}

// Statement is a consolidated balance sheet for a root entity. Assets always
// include the equity-method investment lines, so the accounting identity
// Assets = Liabilities + Equity + MinorityInterest holds.
type Statement struct {
	RootID           int64            `json:"root_id"`
	AsOf             time.Time        `json:"as_of"`
	Assets           decimal.Decimal  `json:"assets"`
	Liabilities      decimal.Decimal  `json:"liabilities"`
	Equity           decimal.Decimal  `json:"equity"`
	MinorityInterest decimal.Decimal  `json:"minority_interest"`
	Subsidiaries     []SubsidiaryLine `json:"subsidiaries"`
}
