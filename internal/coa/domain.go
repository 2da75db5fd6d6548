package coa

import (
	"strconv"
	"strings"
	"time"

	"github.com/meridian-re/meridian/internal/shared"
)

// AccountType enumerates chart-of-accounts categories.
type AccountType string

const (
	AccountTypeAsset     AccountType = "ASSET"
	AccountTypeLiability AccountType = "LIABILITY"
	AccountTypeEquity    AccountType = "EQUITY"
	AccountTypeRevenue   AccountType = "REVENUE"
	AccountTypeExpense   AccountType = "EXPENSE"
)

// Valid reports whether t is a known account type.
func (t AccountType) Valid() bool {
	switch t {
	case AccountTypeAsset, AccountTypeLiability, AccountTypeEquity, AccountTypeRevenue, AccountTypeExpense:
		return true
	}
	return false
}

// DebitNormal reports the normal-balance side: asset and expense accounts
// carry debit-positive balances, the rest credit-positive.
func (t AccountType) DebitNormal() bool {
	return t == AccountTypeAsset || t == AccountTypeExpense
}

// Account models a chart of accounts node scoped to one entity.
type Account struct {
	ID        int64
	EntityID  int64
	Number    string
	Name      string
	Type      AccountType
	ParentID  *int64
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	// ErrAccountNotFound indicates an unknown account id or number.
	ErrAccountNotFound = shared.Validation("coa: account not found")
	// ErrDuplicateNumber indicates the account number is already taken within the entity.
	ErrDuplicateNumber = shared.Validation("coa: duplicate account number")
	// ErrInvalidParentType indicates parent and child do not share a top-level type.
	ErrInvalidParentType = shared.Validation("coa: parent type mismatch")
	// ErrCyclicParent indicates the parent chain would loop.
	ErrCyclicParent = shared.Validation("coa: cyclic parent")
	// ErrHasChildren blocks deleting an account that still has children.
	ErrHasChildren = shared.Structural("coa: account has child accounts")
	// ErrNonzeroBalance blocks deleting an account with a nonzero balance.
	ErrNonzeroBalance = shared.Structural("coa: account balance is not zero")
)

// CreateInput groups fields required to create an account.
type CreateInput struct {
	EntityID int64
	Number   string
	Name     string
	Type     AccountType
	ParentID *int64
}

// Validate ensures create input meets minimum criteria.
func (in CreateInput) Validate() error {
	if in.EntityID == 0 {
		return shared.Validation("coa: entity required")
	}
	if strings.TrimSpace(in.Number) == "" {
		return shared.Validation("coa: account number required")
	}
	if strings.TrimSpace(in.Name) == "" {
		return shared.Validation("coa: account name required")
	}
	if !in.Type.Valid() {
		return shared.Validation("coa: unknown account type")
	}
	return nil
}

// numberLess orders account numbers numerically when both parse, falling
// back to a string compare, so traversal order is stable across runs.
func numberLess(a, b string) bool {
	na, errA := strconv.ParseInt(a, 10, 64)
	nb, errB := strconv.ParseInt(b, 10, 64)
	if errA == nil && errB == nil {
		if na != nb {
			return na < nb
		}
		return a < b
	}
	return a < b
}
