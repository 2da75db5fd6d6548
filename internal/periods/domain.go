package periods

import (
	"strings"
	"time"

	"github.com/meridian-re/meridian/internal/shared"
)

// Status enumerates valid period states.
type Status string

const (
	StatusOpen   Status = "OPEN"
	StatusClosed Status = "CLOSED"
)

// Period represents a fiscal period window scoped to one entity.
type Period struct {
	ID        int64
	EntityID  int64
	Code      string
	StartDate time.Time
	EndDate   time.Time
	Status    Status
	ClosedAt  *time.Time
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Contains reports whether date falls inside the period window.
func (p Period) Contains(date time.Time) bool {
	return !date.Before(p.StartDate) && !date.After(p.EndDate)
}

var (
	// ErrPeriodNotFound indicates no period covers the requested date or code.
	ErrPeriodNotFound = shared.Validation("periods: period not found")
	// ErrPeriodClosed indicates a posting landed in a closed period.
	ErrPeriodClosed = shared.Validation("periods: period is closed")
	// ErrPeriodOverlap indicates the requested window conflicts with an existing period.
	ErrPeriodOverlap = shared.Validation("periods: window overlaps existing period")
	// ErrInvalidTransition indicates a state change outside Open -> Closed -> Open.
	ErrInvalidTransition = shared.Validation("periods: invalid status transition")
	// ErrHasDraftEntries blocks closing while draft entries are dated inside the period.
	ErrHasDraftEntries = shared.Structural("periods: draft entries dated inside period")
)

// OpenInput captures fields required to open a period.
type OpenInput struct {
	EntityID  int64
	Code      string
	StartDate time.Time
	EndDate   time.Time
}

// Validate ensures the open input is coherent.
func (in OpenInput) Validate() error {
	if in.EntityID == 0 {
		return shared.Validation("periods: entity required")
	}
	if strings.TrimSpace(in.Code) == "" {
		return shared.Validation("periods: code required")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return shared.Validation("periods: start and end date required")
	}
	if in.StartDate.After(in.EndDate) {
		return shared.Validation("periods: start date after end date")
	}
	return nil
}
