package journal

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/shared"
)

// Status enumerates journal lifecycle values.
type Status string

const (
	StatusDraft  Status = "DRAFT"
	StatusPosted Status = "POSTED"
	StatusVoid   Status = "VOID"
)

// Entry captures a transaction header. Posted entries are immutable; a void
// flips the status and posts an equal-and-opposite reversing entry instead
// of touching the lines.
type Entry struct {
	ID        int64
	EntityID  int64
	Number    int64
	Date      time.Time
	Memo      string
	Reference string
	ClientRef uuid.UUID
	Status    Status
	VoidOfID  *int64
	PostedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
	Lines     []Line
}

// Line stores a debit or credit amount against one account. Exactly one of
// the two is nonzero.
type Line struct {
	ID        int64
	EntryID   int64
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
	CreatedAt time.Time
}

var (
	// ErrUnbalanced indicates debit and credit totals differ.
	ErrUnbalanced = shared.Validation("journal: debits must equal credits")
	// ErrEmptyEntry indicates fewer than two lines.
	ErrEmptyEntry = shared.Validation("journal: entry requires at least two lines")
	// ErrUnknownAccount indicates a line references an account missing from the entity.
	ErrUnknownAccount = shared.Validation("journal: unknown account for entity")
	// ErrUnknownEntity indicates the posting entity does not exist.
	ErrUnknownEntity = shared.Validation("journal: unknown entity")
	// ErrEntryNotFound indicates a missing entry.
	ErrEntryNotFound = shared.Validation("journal: entry not found")
	// ErrAlreadyVoided indicates the entry was voided before.
	ErrAlreadyVoided = shared.Validation("journal: entry already voided")
	// ErrNotPosted indicates the action requires a posted entry.
	ErrNotPosted = shared.Validation("journal: entry is not posted")
	// ErrDuplicateReference indicates the client reference was already posted.
	ErrDuplicateReference = shared.Validation("journal: duplicate client reference")
)

// LineInput describes one journal line in a posting request.
type LineInput struct {
	AccountID int64
	Debit     decimal.Decimal
	Credit    decimal.Decimal
}

// PostingInput groups fields required to create a journal entry.
type PostingInput struct {
	EntityID  int64
	Date      time.Time
	Memo      string
	Reference string
	ClientRef uuid.UUID
	Lines     []LineInput
}

// ValidateShape checks per-line form: an account on every line, non-negative
// amounts quantised to the smallest currency unit, and exactly one side set.
// Balance and line-count rules run later in the posting order.
func (in PostingInput) ValidateShape() error {
	if in.EntityID == 0 {
		return shared.Validation("journal: entity required")
	}
	if in.Date.IsZero() {
		return shared.Validation("journal: date required")
	}
	for idx, line := range in.Lines {
		if line.AccountID == 0 {
			return shared.Validation(fmt.Sprintf("journal: line %d missing account", idx))
		}
		if line.Debit.Sign() < 0 || line.Credit.Sign() < 0 {
			return shared.Validation(fmt.Sprintf("journal: line %d negative amount", idx))
		}
		if line.Debit.Sign() > 0 && line.Credit.Sign() > 0 {
			return shared.Validation(fmt.Sprintf("journal: line %d cannot be both debit and credit", idx))
		}
		if line.Debit.Sign() == 0 && line.Credit.Sign() == 0 {
			return shared.Validation(fmt.Sprintf("journal: line %d has no amount", idx))
		}
		if !line.Debit.Equal(line.Debit.Truncate(2)) || !line.Credit.Equal(line.Credit.Truncate(2)) {
			return shared.Validation(fmt.Sprintf("journal: line %d amount below smallest currency unit", idx))
		}
	}
	return nil
}

// Balanced reports whether debit and credit totals match exactly.
func (in PostingInput) Balanced() bool {
	debit, credit := decimal.Zero, decimal.Zero
	for _, line := range in.Lines {
		debit = debit.Add(line.Debit)
		credit = credit.Add(line.Credit)
	}
	return debit.Equal(credit)
}
