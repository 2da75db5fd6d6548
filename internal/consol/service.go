package consol

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/meridian-re/meridian/internal/coa"
	"github.com/meridian-re/meridian/internal/entities"
)

// GraphPort supplies ownership snapshots and entity records.
type GraphPort interface {
	Graph(ctx context.Context) (*entities.Graph, error)
	Get(ctx context.Context, id int64) (entities.Entity, error)
}

// BalanceSource answers per-type balance totals for one entity.
type BalanceSource interface {
	TypeTotals(ctx context.Context, entityID int64, asOf time.Time) (map[coa.AccountType]decimal.Decimal, error)
}

// Service builds consolidated balance sheets over the ownership graph.
type Service struct {
	graph    GraphPort
	balances BalanceSource
}

// NewService constructs the consolidation engine.
func NewService(graph GraphPort, balances BalanceSource) *Service {
	return &Service{graph: graph, balances: balances}
}

var (
	one  = decimal.NewFromInt(1)
	half = decimal.New(5, -1)
)

type entitySnapshot struct {
	name        string
	assets      decimal.Decimal
	liabilities decimal.Decimal
	equity      decimal.Decimal
}

// BalanceSheet combines the root's balances with every reachable subsidiary.
// A subsidiary held above 50% effective ownership is fully consolidated with
// a minority-interest carve-out of equity × (1 − effective); at or below 50%
// it contributes a single equity-method investment line of equity ×
// effective instead.
func (s *Service) BalanceSheet(ctx context.Context, rootID int64, asOf time.Time) (Statement, error) {
	graph, err := s.graph.Graph(ctx)
	if err != nil {
		return Statement{}, err
	}
	if _, err := s.graph.Get(ctx, rootID); err != nil {
		return Statement{}, err
	}
	ids := graph.Subgraph(rootID)

	snapshots, err := s.fetch(ctx, ids, asOf)
	if err != nil {
		return Statement{}, err
	}

	root := snapshots[rootID]
	stmt := Statement{
		RootID:      rootID,
		AsOf:        asOf,
		Assets:      root.assets,
		Liabilities: root.liabilities,
		Equity:      root.equity,
	}
	stmt.MinorityInterest = decimal.Zero
	for _, id := range ids {
		if id == rootID {
			continue
		}
		eff := graph.EffectiveOwnership(rootID, id)
		if eff.IsZero() {
			continue
		}
		sub := snapshots[id]
		line := SubsidiaryLine{
			EntityID:    id,
			EntityName:  sub.name,
			Effective:   eff,
			Assets:      sub.assets,
			Liabilities: sub.liabilities,
			Equity:      sub.equity,
		}
		if eff.GreaterThan(half) {
			line.Method = MethodFull
			line.MinorityInt = sub.equity.Mul(one.Sub(eff))
			stmt.Assets = stmt.Assets.Add(sub.assets)
			stmt.Liabilities = stmt.Liabilities.Add(sub.liabilities)
			stmt.Equity = stmt.Equity.Add(sub.equity.Mul(eff))
			stmt.MinorityInterest = stmt.MinorityInterest.Add(line.MinorityInt)
		} else {
			line.Method = MethodEquity
			line.EquityPickup = sub.equity.Mul(eff)
			stmt.Assets = stmt.Assets.Add(line.EquityPickup)
			stmt.Equity = stmt.Equity.Add(line.EquityPickup)
		}
		stmt.Subsidiaries = append(stmt.Subsidiaries, line)
	}
	return stmt, nil
}

// fetch loads every entity's name and type totals in parallel. Reads hit
// committed state only, so the fan-out needs no ordering.
func (s *Service) fetch(ctx context.Context, ids []int64, asOf time.Time) (map[int64]entitySnapshot, error) {
	g, ctx := errgroup.WithContext(ctx)
	var mu sync.Mutex
	out := make(map[int64]entitySnapshot, len(ids))
	for _, id := range ids {
		id := id
		g.Go(func() error {
			entity, err := s.graph.Get(ctx, id)
			if err != nil {
				return err
			}
			totals, err := s.balances.TypeTotals(ctx, id, asOf)
			if err != nil {
				return err
			}
			snap := entitySnapshot{
				name:        entity.Name,
				assets:      totals[coa.AccountTypeAsset],
				liabilities: totals[coa.AccountTypeLiability],
				// Earnings close into equity, so current revenue and
				// expense belong to the equity total.
				equity: totals[coa.AccountTypeEquity].
					Add(totals[coa.AccountTypeRevenue]).
					Sub(totals[coa.AccountTypeExpense]),
			}
			mu.Lock()
			out[id] = snap
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
