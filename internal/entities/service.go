package entities

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/shared"
)

// AuditPort records configuration changes for compliance.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns the entity registry and the ownership graph.
type Service struct {
	repo  Repository
	audit AuditPort
	now   func() time.Time
}

// NewService constructs the entity service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// Create registers a new legal entity.
func (s *Service) Create(ctx context.Context, in CreateInput) (Entity, error) {
	if err := in.Validate(); err != nil {
		return Entity{}, err
	}
	return s.repo.Insert(ctx, in)
}

// Get fetches an entity by id.
func (s *Service) Get(ctx context.Context, id int64) (Entity, error) {
	return s.repo.Get(ctx, id)
}

// List returns every registered entity.
func (s *Service) List(ctx context.Context) ([]Entity, error) {
	return s.repo.List(ctx)
}

// Exists reports whether the entity is registered.
func (s *Service) Exists(ctx context.Context, id int64) error {
	_, err := s.repo.Get(ctx, id)
	return err
}

// SetOwnership records owner's direct stake in owned. The sum of direct
// stakes into one entity may not exceed 100% (the remainder is untracked
// external ownership), and the resulting graph must stay acyclic.
func (s *Service) SetOwnership(ctx context.Context, owner, owned int64, percent decimal.Decimal, actorID int64) error {
	if owner == owned {
		return ErrOwnershipCycle
	}
	if percent.Sign() <= 0 || percent.Cmp(hundred) > 0 {
		return ErrInvalidPercent
	}
	if _, err := s.repo.Get(ctx, owner); err != nil {
		return err
	}
	if _, err := s.repo.Get(ctx, owned); err != nil {
		return err
	}

	existing, err := s.repo.OwnersOf(ctx, owned)
	if err != nil {
		return err
	}
	total := percent
	for _, o := range existing {
		if o.OwnerID == owner {
			continue // replaced by the new stake
		}
		total = total.Add(o.Percent)
	}
	if total.Cmp(hundred) > 0 {
		return ErrOwnershipExceeds100
	}

	all, err := s.repo.ListOwnership(ctx)
	if err != nil {
		return err
	}
	if NewGraph(all).Reaches(owned, owner) {
		return ErrOwnershipCycle
	}

	if err := s.repo.UpsertOwnership(ctx, owner, owned, percent); err != nil {
		return err
	}
	if s.audit != nil {
		_ = s.audit.Record(ctx, shared.AuditLog{
			ActorID:  actorID,
			Action:   "entity.ownership.set",
			Entity:   "entity",
			EntityID: fmt.Sprintf("%d", owned),
			Meta: map[string]any{
				"owner_id": owner,
				"percent":  percent.String(),
			},
			At: s.now(),
		})
	}
	return nil
}

// Graph loads an ownership graph snapshot.
func (s *Service) Graph(ctx context.Context) (*Graph, error) {
	rows, err := s.repo.ListOwnership(ctx)
	if err != nil {
		return nil, err
	}
	return NewGraph(rows), nil
}
