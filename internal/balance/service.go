package balance

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/meridian-re/meridian/internal/coa"
)

// AccountPort is the slice of the chart-of-accounts service the aggregator
// needs.
type AccountPort interface {
	Get(ctx context.Context, id int64) (coa.Account, error)
	List(ctx context.Context, entityID int64) ([]coa.Account, error)
	ChildrenOf(ctx context.Context, entityID int64) (map[int64][]coa.Account, error)
}

// Service computes account balances, rollups, and ledger activity.
type Service struct {
	repo     Repository
	accounts AccountPort
}

// NewService constructs the balance aggregator.
func NewService(repo Repository, accounts AccountPort) *Service {
	return &Service{repo: repo, accounts: accounts}
}

// Balance returns one account's own balance as of a date in its natural
// sign. Child balances are not included; see Rollup.
func (s *Service) Balance(ctx context.Context, accountID int64, asOf time.Time) (decimal.Decimal, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	net, err := s.repo.AccountNet(ctx, accountID, asOf)
	if err != nil {
		return decimal.Decimal{}, err
	}
	return net.Signed(account.Type), nil
}

// Rollup returns an account's balance including every descendant, walking
// the subtree with an explicit stack. Parent and children share a type, so
// one sign convention applies throughout.
func (s *Service) Rollup(ctx context.Context, accountID int64, asOf time.Time) (decimal.Decimal, error) {
	root, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	children, err := s.accounts.ChildrenOf(ctx, root.EntityID)
	if err != nil {
		return decimal.Decimal{}, err
	}
	nets, err := s.repo.EntityNets(ctx, root.EntityID, asOf)
	if err != nil {
		return decimal.Decimal{}, err
	}
	total := Net{}
	stack := []int64{root.ID}
	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		total = total.Add(nets[id])
		for _, child := range children[id] {
			stack = append(stack, child.ID)
		}
	}
	return total.Signed(root.Type), nil
}

// EntityBalances returns every account of an entity with its own balance,
// ordered by account number.
func (s *Service) EntityBalances(ctx context.Context, entityID int64, asOf time.Time) ([]AccountBalance, error) {
	accounts, err := s.accounts.List(ctx, entityID)
	if err != nil {
		return nil, err
	}
	nets, err := s.repo.EntityNets(ctx, entityID, asOf)
	if err != nil {
		return nil, err
	}
	out := make([]AccountBalance, 0, len(accounts))
	for _, account := range accounts {
		out = append(out, AccountBalance{Account: account, Balance: nets[account.ID].Signed(account.Type)})
	}
	return out, nil
}

// TypeTotals sums own balances per account type. Summing own balances over
// every account equals summing rollups over roots, since each posting line
// is counted exactly once.
func (s *Service) TypeTotals(ctx context.Context, entityID int64, asOf time.Time) (map[coa.AccountType]decimal.Decimal, error) {
	balances, err := s.EntityBalances(ctx, entityID, asOf)
	if err != nil {
		return nil, err
	}
	out := map[coa.AccountType]decimal.Decimal{
		coa.AccountTypeAsset:     decimal.Zero,
		coa.AccountTypeLiability: decimal.Zero,
		coa.AccountTypeEquity:    decimal.Zero,
		coa.AccountTypeRevenue:   decimal.Zero,
		coa.AccountTypeExpense:   decimal.Zero,
	}
	for _, ab := range balances {
		out[ab.Account.Type] = out[ab.Account.Type].Add(ab.Balance)
	}
	return out, nil
}

// RangeActivity builds the general ledger view for one account: the opening
// balance seeds from everything strictly before the window, each line then
// moves the running balance in the account's natural sign.
func (s *Service) RangeActivity(ctx context.Context, accountID int64, from, to time.Time) (Activity, error) {
	account, err := s.accounts.Get(ctx, accountID)
	if err != nil {
		return Activity{}, err
	}
	openingNet, err := s.repo.AccountNetBefore(ctx, accountID, from)
	if err != nil {
		return Activity{}, err
	}
	lines, err := s.repo.Lines(ctx, accountID, from, to)
	if err != nil {
		return Activity{}, err
	}
	opening := openingNet.Signed(account.Type)
	running := opening
	for i := range lines {
		delta := lines[i].Debit.Sub(lines[i].Credit)
		if !account.Type.DebitNormal() {
			delta = delta.Neg()
		}
		running = running.Add(delta)
		lines[i].Running = running
	}
	return Activity{
		AccountID: accountID,
		From:      from,
		To:        to,
		Opening:   opening,
		Closing:   running,
		Lines:     lines,
	}, nil
}
