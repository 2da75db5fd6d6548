package capital

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/shared"
)

// EntityPort resolves entity existence without importing the registry.
type EntityPort interface {
	Exists(ctx context.Context, entityID int64) error
}

// EquityPort answers the equity-type rollup used to verify the capital
// ledger. Wired to the balance aggregator in main.
type EquityPort interface {
	EquityTotal(ctx context.Context, entityID int64, asOf time.Time) (decimal.Decimal, error)
}

// AuditPort records capital events.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service owns member records and capital account postings.
type Service struct {
	repo     Repository
	entities EntityPort
	equity   EquityPort
	audit    AuditPort
	now      func() time.Time
}

// NewService constructs the capital ledger service.
func NewService(repo Repository, entities EntityPort, equity EquityPort, audit AuditPort) *Service {
	return &Service{repo: repo, entities: entities, equity: equity, audit: audit, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// AddMember registers a participant. The entity's combined ownership may
// never pass 100%.
func (s *Service) AddMember(ctx context.Context, m Member) (Member, error) {
	if strings.TrimSpace(m.Name) == "" {
		return Member{}, shared.Validation("capital: member name required")
	}
	if m.OwnershipPct.Sign() <= 0 || m.OwnershipPct.GreaterThan(oneHundred) {
		return Member{}, shared.Validation("capital: ownership must be in (0, 100]")
	}
	if m.InitialContribution.Sign() < 0 {
		return Member{}, shared.Validation("capital: initial contribution cannot be negative")
	}
	if s.entities != nil {
		if err := s.entities.Exists(ctx, m.EntityID); err != nil {
			return Member{}, err
		}
	}
	if err := s.checkOwnership(ctx, m.EntityID, 0, m.OwnershipPct); err != nil {
		return Member{}, err
	}
	return s.repo.InsertMember(ctx, m)
}

// SetOwnership changes a member's percentage under the same 100% cap,
// excluding the member's current stake from the sum.
func (s *Service) SetOwnership(ctx context.Context, memberID int64, pct decimal.Decimal) (Member, error) {
	if pct.Sign() <= 0 || pct.GreaterThan(oneHundred) {
		return Member{}, shared.Validation("capital: ownership must be in (0, 100]")
	}
	current, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return Member{}, err
	}
	if err := s.checkOwnership(ctx, current.EntityID, memberID, pct); err != nil {
		return Member{}, err
	}
	return s.repo.UpdateOwnership(ctx, memberID, pct)
}

func (s *Service) checkOwnership(ctx context.Context, entityID, excludeMemberID int64, pct decimal.Decimal) error {
	members, err := s.repo.ListMembers(ctx, entityID)
	if err != nil {
		return err
	}
	total := pct
	for _, m := range members {
		if m.ID == excludeMemberID {
			continue
		}
		total = total.Add(m.OwnershipPct)
	}
	if total.GreaterThan(oneHundred) {
		return ErrOwnershipExceeds100
	}
	return nil
}

// Members lists an entity's members in id order.
func (s *Service) Members(ctx context.Context, entityID int64) ([]Member, error) {
	return s.repo.ListMembers(ctx, entityID)
}

// PostTransaction records a capital movement. An earnings allocation with no
// member target fans out across every member pro rata; the splits always sum
// exactly to the posted amount.
func (s *Service) PostTransaction(ctx context.Context, in PostInput) ([]Transaction, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	batch := uuid.New()
	var txs []Transaction
	if in.MemberID == nil {
		members, err := s.repo.ListMembers(ctx, in.EntityID)
		if err != nil {
			return nil, err
		}
		if len(members) == 0 {
			return nil, ErrNoMembers
		}
		for _, share := range SplitProRata(in.Amount, members) {
			if share.Amount.IsZero() {
				continue
			}
			txs = append(txs, Transaction{
				EntityID: in.EntityID,
				MemberID: share.MemberID,
				Type:     in.Type,
				Status:   TxPosted,
				Amount:   share.Amount,
				Date:     in.Date,
				BatchRef: batch,
				Memo:     in.Memo,
			})
		}
	} else {
		member, err := s.repo.GetMember(ctx, *in.MemberID)
		if err != nil {
			return nil, err
		}
		if member.EntityID != in.EntityID {
			return nil, ErrMemberNotFound
		}
		txs = append(txs, Transaction{
			EntityID: in.EntityID,
			MemberID: member.ID,
			Type:     in.Type,
			Status:   TxPosted,
			Amount:   in.Amount,
			Date:     in.Date,
			BatchRef: batch,
			Memo:     in.Memo,
		})
	}
	inserted, err := s.repo.InsertBatch(ctx, txs)
	if err != nil {
		return nil, err
	}
	s.record(ctx, "capital.post", in.EntityID, map[string]any{
		"type":      string(in.Type),
		"amount":    in.Amount.String(),
		"batch_ref": batch.String(),
		"fan_out":   in.MemberID == nil,
	})
	return inserted, nil
}

// Balance computes one member's capital account: initial contribution plus
// contributions, allocated earnings, and inter-entity transfers in, minus
// distributions, each posted at or before asOf.
func (s *Service) Balance(ctx context.Context, memberID int64, asOf time.Time) (decimal.Decimal, error) {
	member, err := s.repo.GetMember(ctx, memberID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	sums, err := s.repo.SumByType(ctx, memberID, asOf)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return member.InitialContribution.
		Add(sums[TxContribution]).
		Sub(sums[TxDistribution]).
		Add(sums[TxEarningsAllocation]).
		Add(sums[TxInterEntityTransfer]), nil
}

// EntityCapital sums every member's capital balance for an entity.
func (s *Service) EntityCapital(ctx context.Context, entityID int64, asOf time.Time) (decimal.Decimal, error) {
	members, err := s.repo.ListMembers(ctx, entityID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	total := decimal.Zero
	for _, m := range members {
		bal, err := s.Balance(ctx, m.ID, asOf)
		if err != nil {
			return decimal.Decimal{}, err
		}
		total = total.Add(bal)
	}
	return total, nil
}

// VerifyAgainstEquity compares member capital totals with the entity's
// equity rollup. A divergence is a posting defect: it is reported as an
// integrity fault, never reconciled.
func (s *Service) VerifyAgainstEquity(ctx context.Context, entityID int64, asOf time.Time) error {
	if s.equity == nil {
		return nil
	}
	capitalTotal, err := s.EntityCapital(ctx, entityID, asOf)
	if err != nil {
		return err
	}
	equityTotal, err := s.equity.EquityTotal(ctx, entityID, asOf)
	if err != nil {
		return err
	}
	if !capitalTotal.Equal(equityTotal) {
		return fmt.Errorf("%w: capital %s vs equity %s for entity %d",
			ErrEquityMismatch, capitalTotal, equityTotal, entityID)
	}
	return nil
}

func (s *Service) record(ctx context.Context, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		Action:   action,
		Entity:   "capital",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	})
}
