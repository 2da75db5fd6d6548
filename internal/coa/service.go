package coa

import (
	"context"
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// EntityPort resolves entity existence without importing the registry.
type EntityPort interface {
	Exists(ctx context.Context, entityID int64) error
}

// BalancePort answers balance queries for delete preconditions. Wired to the
// balance aggregator in main; faked in tests.
type BalancePort interface {
	Balance(ctx context.Context, accountID int64, asOf time.Time) (decimal.Decimal, error)
}

// Service owns the per-entity account tree.
type Service struct {
	repo     Repository
	entities EntityPort
	balances BalancePort
	now      func() time.Time
}

// NewService constructs the chart-of-accounts service.
func NewService(repo Repository, entities EntityPort, balances BalancePort) *Service {
	return &Service{repo: repo, entities: entities, balances: balances, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) {
	if now != nil {
		s.now = now
	}
}

// SetBalances wires the balance port after construction. The balance
// aggregator itself depends on this service, so the cycle is broken here.
func (s *Service) SetBalances(balances BalancePort) {
	s.balances = balances
}

// Create validates and inserts a new account. A parent must belong to the
// same entity, share the top-level type, and its chain must stay acyclic.
func (s *Service) Create(ctx context.Context, in CreateInput) (Account, error) {
	if err := in.Validate(); err != nil {
		return Account{}, err
	}
	if s.entities != nil {
		if err := s.entities.Exists(ctx, in.EntityID); err != nil {
			return Account{}, err
		}
	}
	if in.ParentID != nil {
		parent, err := s.repo.Get(ctx, *in.ParentID)
		if err != nil {
			return Account{}, err
		}
		if parent.EntityID != in.EntityID {
			return Account{}, ErrAccountNotFound
		}
		if parent.Type != in.Type {
			return Account{}, ErrInvalidParentType
		}
		if err := s.checkParentChain(ctx, parent); err != nil {
			return Account{}, err
		}
	}
	return s.repo.Insert(ctx, in)
}

// checkParentChain walks up from parent and rejects a loop. A fresh account
// cannot introduce one, but a corrupted chain must not hang traversal.
func (s *Service) checkParentChain(ctx context.Context, parent Account) error {
	seen := map[int64]bool{parent.ID: true}
	cur := parent
	for cur.ParentID != nil {
		next, err := s.repo.Get(ctx, *cur.ParentID)
		if err != nil {
			return err
		}
		if seen[next.ID] {
			return ErrCyclicParent
		}
		seen[next.ID] = true
		cur = next
	}
	return nil
}

// Get fetches an account by id.
func (s *Service) Get(ctx context.Context, id int64) (Account, error) {
	return s.repo.Get(ctx, id)
}

// GetByNumber fetches an account by its per-entity number.
func (s *Service) GetByNumber(ctx context.Context, entityID int64, number string) (Account, error) {
	return s.repo.GetByNumber(ctx, entityID, number)
}

// List returns every account of an entity ordered by number.
func (s *Service) List(ctx context.Context, entityID int64) ([]Account, error) {
	accounts, err := s.repo.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	sort.Slice(accounts, func(i, j int) bool { return numberLess(accounts[i].Number, accounts[j].Number) })
	return accounts, nil
}

// Delete removes an account after checking it has no children and a zero
// balance.
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return err
	}
	hasChildren, err := s.repo.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if hasChildren {
		return ErrHasChildren
	}
	if s.balances != nil {
		bal, err := s.balances.Balance(ctx, id, s.now())
		if err != nil {
			return err
		}
		if !bal.IsZero() {
			return ErrNonzeroBalance
		}
	}
	return s.repo.Delete(ctx, id)
}

// Subtree returns the account and its descendants depth-first, children
// visited in ascending number order, so report layouts are reproducible.
func (s *Service) Subtree(ctx context.Context, accountID int64) ([]Account, error) {
	root, err := s.repo.Get(ctx, accountID)
	if err != nil {
		return nil, err
	}
	all, err := s.repo.ListByEntity(ctx, root.EntityID)
	if err != nil {
		return nil, err
	}
	children := make(map[int64][]Account)
	for _, a := range all {
		if a.ParentID != nil {
			children[*a.ParentID] = append(children[*a.ParentID], a)
		}
	}
	for id := range children {
		kids := children[id]
		sort.Slice(kids, func(i, j int) bool { return numberLess(kids[i].Number, kids[j].Number) })
		children[id] = kids
	}

	out := make([]Account, 0, len(all))
	stack := []Account{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		out = append(out, cur)
		kids := children[cur.ID]
		for i := len(kids) - 1; i >= 0; i-- {
			stack = append(stack, kids[i])
		}
	}
	return out, nil
}

// ChildrenOf exposes the sorted direct children map for one entity; the
// balance aggregator uses it for rollups.
func (s *Service) ChildrenOf(ctx context.Context, entityID int64) (map[int64][]Account, error) {
	all, err := s.repo.ListByEntity(ctx, entityID)
	if err != nil {
		return nil, err
	}
	children := make(map[int64][]Account)
	for _, a := range all {
		if a.ParentID != nil {
			children[*a.ParentID] = append(children[*a.ParentID], a)
		}
	}
	for id := range children {
		kids := children[id]
		sort.Slice(kids, func(i, j int) bool { return numberLess(kids[i].Number, kids[j].Number) })
		children[id] = kids
	}
	return children, nil
}
