package capital

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/shared"
)

// TxType enumerates capital account transaction kinds.
type TxType string

const (
	TxContribution       TxType = "CONTRIBUTION"
	TxDistribution       TxType = "DISTRIBUTION"
	TxEarningsAllocation TxType = "EARNINGS_ALLOCATION"
	// TxInterEntityTransfer records capital arriving from another entity. It
	// is booked on the receiving side; the sending entity posts a
	// distribution for its half of the movement.
	TxInterEntityTransfer TxType = "INTER_ENTITY_TRANSFER"
)

// Valid reports whether t is a known transaction type.
func (t TxType) Valid() bool {
	switch t {
	case TxContribution, TxDistribution, TxEarningsAllocation, TxInterEntityTransfer:
		return true
	}
	return false
}

// TxStatus tracks a capital transaction's lifecycle.
type TxStatus string

const (
	TxPosted TxStatus = "POSTED"
	TxVoid   TxStatus = "VOID"
)

// Member is a participant in an entity's capital structure. The capital
// account balance is derived from transactions, never stored.
type Member struct {
	ID                  int64
	EntityID            int64
	Name                string
	OwnershipPct        decimal.Decimal
	InitialContribution decimal.Decimal
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Transaction is one posted capital movement for a single member. A fan-out
// allocation produces one row per member sharing a batch reference.
type Transaction struct {
	ID        int64
	EntityID  int64
	MemberID  int64
	Type      TxType
	Status    TxStatus
	Amount    decimal.Decimal
	Date      time.Time
	BatchRef  uuid.UUID
	Memo      string
	CreatedAt time.Time
}

var (
	// ErrMemberNotFound indicates an unknown member id.
	ErrMemberNotFound = shared.Validation("capital: member not found")
	// ErrOwnershipExceeds100 indicates entity ownership would pass 100%.
	ErrOwnershipExceeds100 = shared.Validation("capital: ownership exceeds 100%")
	// ErrNoMembers indicates a fan-out allocation with nobody to allocate to.
	ErrNoMembers = shared.Validation("capital: entity has no members")
	// ErrMemberRequired indicates the transaction type needs a single member target.
	ErrMemberRequired = shared.Validation("capital: member required")
	// ErrEquityMismatch flags capital totals diverging from the equity rollup.
	// It signals a posting defect and is never reconciled automatically.
	ErrEquityMismatch = shared.Integrity("capital: member balances diverge from equity rollup")
)

// PostInput describes a capital transaction request. A nil MemberID targets
// every member of the entity, which is only meaningful for earnings
// allocations.
type PostInput struct {
	EntityID int64
	MemberID *int64
	Type     TxType
	Amount   decimal.Decimal
	Date     time.Time
	Memo     string
}

// Validate checks input form before any lookup.
func (in PostInput) Validate() error {
	if in.EntityID == 0 {
		return shared.Validation("capital: entity required")
	}
	if !in.Type.Valid() {
		return shared.Validation("capital: unknown transaction type")
	}
	if in.Date.IsZero() {
		return shared.Validation("capital: date required")
	}
	if in.Amount.Sign() <= 0 {
		return shared.Validation("capital: amount must be positive")
	}
	if !in.Amount.Equal(in.Amount.Truncate(2)) {
		return shared.Validation("capital: amount below smallest currency unit")
	}
	if in.MemberID == nil && in.Type != TxEarningsAllocation {
		return ErrMemberRequired
	}
	return nil
}
