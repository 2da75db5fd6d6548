package entities

import (
	"sort"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/shared"
)

// Entity is a legal entity (LLC, corporation, trust) carrying its own chart
// of accounts, periods, and capital structure.
type Entity struct {
	ID            int64
	Name          string
	FiscalYearEnd time.Month
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// Ownership records a direct stake of one entity in another. Percent is
// expressed on a 0-100 scale.
type Ownership struct {
	OwnerID   int64
	OwnedID   int64
	Percent   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

var (
	// ErrEntityNotFound indicates an unknown entity id.
	ErrEntityNotFound = shared.Validation("entities: entity not found")
	// ErrOwnershipExceeds100 indicates direct stakes into one entity would sum past 100%.
	ErrOwnershipExceeds100 = shared.Validation("entities: direct ownership exceeds 100%")
	// ErrOwnershipCycle indicates the ownership graph would stop being acyclic.
	ErrOwnershipCycle = shared.Validation("entities: ownership cycle")
	// ErrInvalidPercent indicates a stake outside (0, 100].
	ErrInvalidPercent = shared.Validation("entities: ownership percent must be in (0, 100]")
)

var hundred = decimal.NewFromInt(100)

// CreateInput captures fields required to register an entity.
type CreateInput struct {
	Name          string
	FiscalYearEnd time.Month
}

// Validate ensures the create input is coherent.
func (in CreateInput) Validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return shared.Validation("entities: name required")
	}
	if in.FiscalYearEnd < time.January || in.FiscalYearEnd > time.December {
		return shared.Validation("entities: fiscal year end month out of range")
	}
	return nil
}

// Graph is an immutable snapshot of the ownership graph used by the
// consolidation engine.
type Graph struct {
	holdings map[int64][]Ownership
}

// NewGraph builds a snapshot from ownership rows.
func NewGraph(rows []Ownership) *Graph {
	holdings := make(map[int64][]Ownership)
	for _, row := range rows {
		holdings[row.OwnerID] = append(holdings[row.OwnerID], row)
	}
	return &Graph{holdings: holdings}
}

// DirectHoldings returns the direct stakes held by owner.
func (g *Graph) DirectHoldings(owner int64) []Ownership {
	return g.holdings[owner]
}

// Reaches reports whether to is reachable from from along ownership edges.
func (g *Graph) Reaches(from, to int64) bool {
	if from == to {
		return true
	}
	seen := map[int64]bool{from: true}
	stack := []int64{from}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, h := range g.holdings[cur] {
			if h.OwnedID == to {
				return true
			}
			if !seen[h.OwnedID] {
				seen[h.OwnedID] = true
				stack = append(stack, h.OwnedID)
			}
		}
	}
	return false
}

// EffectiveOwnership returns the transitive stake of owner in target on a
// 0-1 scale, summing the product of percentages along every ownership path.
// The graph is validated acyclic at write time, so the walk terminates.
func (g *Graph) EffectiveOwnership(owner, target int64) decimal.Decimal {
	if owner == target {
		return decimal.NewFromInt(1)
	}
	memo := make(map[int64]decimal.Decimal)
	var walk func(from int64) decimal.Decimal
	walk = func(from int64) decimal.Decimal {
		if from == target {
			return decimal.NewFromInt(1)
		}
		if v, ok := memo[from]; ok {
			return v
		}
		total := decimal.Zero
		for _, h := range g.holdings[from] {
			below := walk(h.OwnedID)
			if below.IsZero() {
				continue
			}
			total = total.Add(h.Percent.Div(hundred).Mul(below))
		}
		memo[from] = total
		return total
	}
	return walk(owner)
}

// Subgraph returns every entity id reachable from root, root included, in
// ascending id order for deterministic consolidation output.
func (g *Graph) Subgraph(root int64) []int64 {
	seen := map[int64]bool{root: true}
	stack := []int64{root}
	out := []int64{root}
	for len(stack) > 0 {
		cur := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		for _, h := range g.holdings[cur] {
			if !seen[h.OwnedID] {
				seen[h.OwnedID] = true
				out = append(out, h.OwnedID)
				stack = append(stack, h.OwnedID)
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
