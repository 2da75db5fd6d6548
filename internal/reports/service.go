package reports

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/meridian-re/meridian/internal/balance"
	"github.com/meridian-re/meridian/internal/coa"
)

// BalancePort is the slice of the balance aggregator the generators read.
type BalancePort interface {
	EntityBalances(ctx context.Context, entityID int64, asOf time.Time) ([]balance.AccountBalance, error)
	RangeActivity(ctx context.Context, accountID int64, from, to time.Time) (balance.Activity, error)
}

// AccountPort lists an entity's chart of accounts.
type AccountPort interface {
	List(ctx context.Context, entityID int64) ([]coa.Account, error)
}

// Service generates reports. Every report is a pure function of committed
// state at its date arguments; the cache only short-circuits recomputation
// and is version-bumped on each posting. Identical in-flight requests are
// coalesced so a cold cache is rebuilt once, not per caller.
type Service struct {
	balances BalancePort
	accounts AccountPort
	cache    *Cache
	flight   singleflight.Group
}

// NewService constructs the report generator.
func NewService(balances BalancePort, accounts AccountPort, cache *Cache) *Service {
	return &Service{balances: balances, accounts: accounts, cache: cache}
}

// Invalidate bumps the cache version after a posting.
func (s *Service) Invalidate(ctx context.Context) error {
	return s.cache.Bump(ctx)
}

func (s *Service) coalesce(ctx context.Context, key string, fn func(context.Context) (interface{}, error)) (interface{}, error) {
	resultChan := s.flight.DoChan(key, func() (interface{}, error) {
		return fn(ctx)
	})
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-resultChan:
		return res.Val, res.Err
	}
}

// TrialBalance lists every nonzero account with equal debit and credit
// totals. A mismatch is reported as an integrity fault and never cached.
func (s *Service) TrialBalance(ctx context.Context, entityID int64, asOf time.Time) (TrialBalance, error) {
	key, err := s.cache.BuildKey(ctx, keyTrialBalance(entityID, asOf))
	if err != nil {
		return TrialBalance{}, err
	}
	value, err := s.coalesce(ctx, key, func(ctx context.Context) (interface{}, error) {
		var tb TrialBalance
		err := s.cache.FetchJSON(ctx, key, &tb, func(ctx context.Context) (interface{}, error) {
			balances, err := s.balances.EntityBalances(ctx, entityID, asOf)
			if err != nil {
				return nil, err
			}
			built, err := BuildTrialBalance(entityID, asOf, balances)
			if err != nil {
				return nil, err
			}
			return built, nil
		})
		return tb, err
	})
	if err != nil {
		return TrialBalance{}, err
	}
	return value.(TrialBalance), nil
}

// BalanceSheet presents assets against liabilities and equity as of a date.
func (s *Service) BalanceSheet(ctx context.Context, entityID int64, asOf time.Time) (BalanceSheet, error) {
	key, err := s.cache.BuildKey(ctx, keyBalanceSheet(entityID, asOf))
	if err != nil {
		return BalanceSheet{}, err
	}
	value, err := s.coalesce(ctx, key, func(ctx context.Context) (interface{}, error) {
		var bs BalanceSheet
		err := s.cache.FetchJSON(ctx, key, &bs, func(ctx context.Context) (interface{}, error) {
			balances, err := s.balances.EntityBalances(ctx, entityID, asOf)
			if err != nil {
				return nil, err
			}
			return BuildBalanceSheet(entityID, asOf, balances), nil
		})
		return bs, err
	})
	if err != nil {
		return BalanceSheet{}, err
	}
	return value.(BalanceSheet), nil
}

// ProfitAndLoss reports revenue and expense movement over [from, to].
func (s *Service) ProfitAndLoss(ctx context.Context, entityID int64, from, to time.Time) (ProfitAndLoss, error) {
	key, err := s.cache.BuildKey(ctx, keyProfitAndLoss(entityID, from, to))
	if err != nil {
		return ProfitAndLoss{}, err
	}
	value, err := s.coalesce(ctx, key, func(ctx context.Context) (interface{}, error) {
		var pl ProfitAndLoss
		err := s.cache.FetchJSON(ctx, key, &pl, func(ctx context.Context) (interface{}, error) {
			opening, err := s.balances.EntityBalances(ctx, entityID, from.AddDate(0, 0, -1))
			if err != nil {
				return nil, err
			}
			closing, err := s.balances.EntityBalances(ctx, entityID, to)
			if err != nil {
				return nil, err
			}
			return BuildProfitAndLoss(entityID, from, to, opening, closing), nil
		})
		return pl, err
	})
	if err != nil {
		return ProfitAndLoss{}, err
	}
	return value.(ProfitAndLoss), nil
}

// GeneralLedger groups per-account activity over a range. An empty account
// filter means every account of the entity. Account sections run in
// parallel; the output keeps chart order. Never cached: the filter set makes
// key cardinality unbounded and the underlying reads are cheap.
func (s *Service) GeneralLedger(ctx context.Context, entityID int64, accountIDs []int64, from, to time.Time) (GeneralLedger, error) {
	accounts, err := s.accounts.List(ctx, entityID)
	if err != nil {
		return GeneralLedger{}, err
	}
	if len(accountIDs) > 0 {
		wanted := make(map[int64]bool, len(accountIDs))
		for _, id := range accountIDs {
			wanted[id] = true
		}
		filtered := make([]coa.Account, 0, len(accountIDs))
		for _, a := range accounts {
			if wanted[a.ID] {
				filtered = append(filtered, a)
			}
		}
		accounts = filtered
	}

	sections := make([]GLAccount, len(accounts))
	g, ctx := errgroup.WithContext(ctx)
	for i, account := range accounts {
		i, account := i, account
		g.Go(func() error {
			activity, err := s.balances.RangeActivity(ctx, account.ID, from, to)
			if err != nil {
				return err
			}
			sections[i] = GLAccount{
				AccountID: account.ID,
				Number:    account.Number,
				Name:      account.Name,
				Beginning: activity.Opening,
				Lines:     activity.Lines,
				Ending:    activity.Closing,
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return GeneralLedger{}, err
	}
	return GeneralLedger{EntityID: entityID, From: from, To: to, Accounts: sections}, nil
}
