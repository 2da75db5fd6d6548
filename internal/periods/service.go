package periods

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/meridian-re/meridian/internal/shared"
)

// AuditPort records period lifecycle events; reopening especially must leave
// a trace.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service tracks open and closed fiscal periods per entity and gates
// journal posting.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the period manager.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Open creates a new open period after checking for window overlap.
func (s *Service) Open(ctx context.Context, in OpenInput) (Period, error) {
	if err := in.Validate(); err != nil {
		return Period{}, err
	}
	conflict, err := s.repo.RangeConflict(ctx, in.EntityID, in.StartDate, in.EndDate)
	if err != nil {
		return Period{}, err
	}
	if conflict {
		return Period{}, ErrPeriodOverlap
	}
	return s.repo.Insert(ctx, in)
}

// Close transitions a period to Closed. Every entry dated inside the window
// must be Posted or Voided first; Drafts block the close.
func (s *Service) Close(ctx context.Context, entityID int64, code string, actorID int64) (Period, error) {
	period, err := s.repo.GetByCode(ctx, entityID, code)
	if err != nil {
		return Period{}, err
	}
	if period.Status != StatusOpen {
		return Period{}, ErrInvalidTransition
	}
	drafts, err := s.repo.CountDraftsInRange(ctx, entityID, period.StartDate, period.EndDate)
	if err != nil {
		return Period{}, err
	}
	if drafts > 0 {
		return Period{}, ErrHasDraftEntries
	}
	closedAt := s.now()
	if err := s.repo.UpdateStatus(ctx, period.ID, StatusClosed, &closedAt); err != nil {
		return Period{}, err
	}
	period.Status = StatusClosed
	period.ClosedAt = &closedAt
	s.record(ctx, actorID, "period.close", period)
	return period, nil
}

// Reopen transitions a Closed period back to Open. The transition is always
// audited.
func (s *Service) Reopen(ctx context.Context, entityID int64, code string, actorID int64) (Period, error) {
	period, err := s.repo.GetByCode(ctx, entityID, code)
	if err != nil {
		return Period{}, err
	}
	if period.Status != StatusClosed {
		return Period{}, ErrInvalidTransition
	}
	if err := s.repo.UpdateStatus(ctx, period.ID, StatusOpen, nil); err != nil {
		return Period{}, err
	}
	period.Status = StatusOpen
	period.ClosedAt = nil
	s.record(ctx, actorID, "period.reopen", period)
	return period, nil
}

// IsOpen reports whether an open period covers the date for the entity.
func (s *Service) IsOpen(ctx context.Context, entityID int64, date time.Time) (bool, error) {
	period, err := s.repo.FindByDate(ctx, entityID, date)
	if err != nil {
		if errors.Is(err, ErrPeriodNotFound) {
			return false, nil
		}
		return false, err
	}
	return period.Status == StatusOpen, nil
}

// List returns every period of an entity ordered by start date.
func (s *Service) List(ctx context.Context, entityID int64) ([]Period, error) {
	return s.repo.List(ctx, entityID)
}

func (s *Service) record(ctx context.Context, actorID int64, action string, period Period) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "period",
		EntityID: fmt.Sprintf("%d", period.ID),
		Meta: map[string]any{
			"entity_id": period.EntityID,
			"code":      period.Code,
		},
		At: s.now(),
	})
}
