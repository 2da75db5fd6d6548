package reports

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"github.com/meridian-re/meridian/internal/balance"
	"github.com/meridian-re/meridian/internal/coa"
)

type stubBalances struct {
	balances   []balance.AccountBalance
	activities map[int64]balance.Activity
	loadCalls  int
	asOfSeen   []time.Time
}

func (s *stubBalances) EntityBalances(_ context.Context, _ int64, asOf time.Time) ([]balance.AccountBalance, error) {
	s.loadCalls++
	s.asOfSeen = append(s.asOfSeen, asOf)
	return s.balances, nil
}

func (s *stubBalances) RangeActivity(_ context.Context, accountID int64, _, _ time.Time) (balance.Activity, error) {
	return s.activities[accountID], nil
}

type stubAccounts struct {
	accounts []coa.Account
}

func (s *stubAccounts) List(context.Context, int64) ([]coa.Account, error) {
	return s.accounts, nil
}

func cacheFixture(t *testing.T) *Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCache(client, time.Minute)
}

func balancedSet() []balance.AccountBalance {
	return []balance.AccountBalance{
		ab(10, "1000", "Cash", coa.AccountTypeAsset, "1000.00"),
		ab(40, "4000", "Revenue", coa.AccountTypeRevenue, "1000.00"),
	}
}

func TestTrialBalanceCachedUntilInvalidated(t *testing.T) {
	balances := &stubBalances{balances: balancedSet()}
	svc := NewService(balances, &stubAccounts{}, cacheFixture(t))
	ctx := context.Background()

	first, err := svc.TrialBalance(ctx, 1, june30())
	if err != nil {
		t.Fatalf("first: %v", err)
	}
	if balances.loadCalls != 1 {
		t.Fatalf("loads = %d, want 1", balances.loadCalls)
	}

	second, err := svc.TrialBalance(ctx, 1, june30())
	if err != nil {
		t.Fatalf("second: %v", err)
	}
	if balances.loadCalls != 1 {
		t.Fatalf("loads after cached read = %d, want 1", balances.loadCalls)
	}
	if !second.TotalDebit.Equal(first.TotalDebit) {
		t.Fatalf("cached totals differ: %s vs %s", second.TotalDebit, first.TotalDebit)
	}

	if err := svc.Invalidate(ctx); err != nil {
		t.Fatalf("invalidate: %v", err)
	}
	if _, err := svc.TrialBalance(ctx, 1, june30()); err != nil {
		t.Fatalf("after bump: %v", err)
	}
	if balances.loadCalls != 2 {
		t.Fatalf("loads after bump = %d, want 2", balances.loadCalls)
	}
}

func TestTrialBalanceMismatchNotCached(t *testing.T) {
	balances := &stubBalances{balances: []balance.AccountBalance{
		ab(10, "1000", "Cash", coa.AccountTypeAsset, "100.00"),
	}}
	svc := NewService(balances, &stubAccounts{}, cacheFixture(t))
	ctx := context.Background()

	if _, err := svc.TrialBalance(ctx, 1, june30()); err == nil {
		t.Fatalf("expected mismatch error")
	}
	if _, err := svc.TrialBalance(ctx, 1, june30()); err == nil {
		t.Fatalf("expected mismatch error on retry")
	}
	// Both calls recompute: a defective report never lands in the cache.
	if balances.loadCalls != 2 {
		t.Fatalf("loads = %d, want 2", balances.loadCalls)
	}
}

func TestProfitAndLossOpensDayBeforeFrom(t *testing.T) {
	balances := &stubBalances{balances: balancedSet()}
	svc := NewService(balances, &stubAccounts{}, cacheFixture(t))

	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	if _, err := svc.ProfitAndLoss(context.Background(), 1, from, june30()); err != nil {
		t.Fatalf("profit and loss: %v", err)
	}
	if len(balances.asOfSeen) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(balances.asOfSeen))
	}
	wantOpening := time.Date(2024, 5, 31, 0, 0, 0, 0, time.UTC)
	if !balances.asOfSeen[0].Equal(wantOpening) {
		t.Fatalf("opening as-of = %s, want %s", balances.asOfSeen[0], wantOpening)
	}
	if !balances.asOfSeen[1].Equal(june30()) {
		t.Fatalf("closing as-of = %s, want %s", balances.asOfSeen[1], june30())
	}
}

func TestGeneralLedgerFramesAndFilter(t *testing.T) {
	accounts := &stubAccounts{accounts: []coa.Account{
		{ID: 10, EntityID: 1, Number: "1000", Name: "Cash", Type: coa.AccountTypeAsset},
		{ID: 40, EntityID: 1, Number: "4000", Name: "Revenue", Type: coa.AccountTypeRevenue},
	}}
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	balances := &stubBalances{activities: map[int64]balance.Activity{
		10: {
			AccountID: 10, From: from, To: june30(),
			Opening: dec("300.00"), Closing: dec("1300.00"),
			Lines: []balance.ActivityLine{{EntryNumber: 2, Date: from, Debit: dec("1000.00"), Running: dec("1300.00")}},
		},
		40: {AccountID: 40, From: from, To: june30(), Opening: dec("0"), Closing: dec("1000.00")},
	}}
	svc := NewService(balances, accounts, cacheFixture(t))
	ctx := context.Background()

	gl, err := svc.GeneralLedger(ctx, 1, nil, from, june30())
	if err != nil {
		t.Fatalf("general ledger: %v", err)
	}
	if len(gl.Accounts) != 2 {
		t.Fatalf("accounts = %d, want 2", len(gl.Accounts))
	}
	if gl.Accounts[0].Number != "1000" || gl.Accounts[1].Number != "4000" {
		t.Fatalf("chart order lost: %s, %s", gl.Accounts[0].Number, gl.Accounts[1].Number)
	}
	if !gl.Accounts[0].Beginning.Equal(dec("300.00")) || !gl.Accounts[0].Ending.Equal(dec("1300.00")) {
		t.Fatalf("cash frame = %s..%s, want 300.00..1300.00", gl.Accounts[0].Beginning, gl.Accounts[0].Ending)
	}

	filtered, err := svc.GeneralLedger(ctx, 1, []int64{40}, from, june30())
	if err != nil {
		t.Fatalf("filtered: %v", err)
	}
	if len(filtered.Accounts) != 1 || filtered.Accounts[0].AccountID != 40 {
		t.Fatalf("filter failed: %+v", filtered.Accounts)
	}
}
