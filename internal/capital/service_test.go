package capital

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

type memCapitalRepo struct {
	members map[int64]Member
	txs     []Transaction
	nextID  int64
}

func newMemCapitalRepo() *memCapitalRepo {
	return &memCapitalRepo{members: map[int64]Member{}}
}

func (m *memCapitalRepo) InsertMember(_ context.Context, member Member) (Member, error) {
	m.nextID++
	member.ID = m.nextID
	m.members[member.ID] = member
	return member, nil
}

func (m *memCapitalRepo) GetMember(_ context.Context, id int64) (Member, error) {
	member, ok := m.members[id]
	if !ok {
		return Member{}, ErrMemberNotFound
	}
	return member, nil
}

func (m *memCapitalRepo) ListMembers(_ context.Context, entityID int64) ([]Member, error) {
	var out []Member
	for id := int64(1); id <= m.nextID; id++ {
		if member, ok := m.members[id]; ok && member.EntityID == entityID {
			out = append(out, member)
		}
	}
	return out, nil
}

func (m *memCapitalRepo) UpdateOwnership(_ context.Context, id int64, pctVal decimal.Decimal) (Member, error) {
	member, ok := m.members[id]
	if !ok {
		return Member{}, ErrMemberNotFound
	}
	member.OwnershipPct = pctVal
	m.members[id] = member
	return member, nil
}

func (m *memCapitalRepo) InsertBatch(_ context.Context, txs []Transaction) ([]Transaction, error) {
	out := make([]Transaction, 0, len(txs))
	for _, t := range txs {
		m.nextID++
		t.ID = m.nextID
		m.txs = append(m.txs, t)
		out = append(out, t)
	}
	return out, nil
}

func (m *memCapitalRepo) SumByType(_ context.Context, memberID int64, asOf time.Time) (map[TxType]decimal.Decimal, error) {
	out := map[TxType]decimal.Decimal{}
	for _, t := range m.txs {
		if t.MemberID == memberID && t.Status == TxPosted && !t.Date.After(asOf) {
			out[t.Type] = out[t.Type].Add(t.Amount)
		}
	}
	return out, nil
}

func (m *memCapitalRepo) ListTransactions(_ context.Context, entityID int64, asOf time.Time) ([]Transaction, error) {
	var out []Transaction
	for _, t := range m.txs {
		if t.EntityID == entityID && !t.Date.After(asOf) {
			out = append(out, t)
		}
	}
	return out, nil
}

type fixedEquity struct {
	total decimal.Decimal
}

func (f fixedEquity) EquityTotal(context.Context, int64, time.Time) (decimal.Decimal, error) {
	return f.total, nil
}

func member(t *testing.T, svc *Service, entityID int64, name, ownership, initial string) Member {
	t.Helper()
	m, err := svc.AddMember(context.Background(), Member{
		EntityID:            entityID,
		Name:                name,
		OwnershipPct:        pct(ownership),
		InitialContribution: pct(initial),
	})
	if err != nil {
		t.Fatalf("add member %s: %v", name, err)
	}
	return m
}

func TestAddMemberOwnershipCap(t *testing.T) {
	svc := NewService(newMemCapitalRepo(), nil, nil, nil)
	member(t, svc, 1, "Alpha Trust", "60", "0")
	member(t, svc, 1, "Beta LP", "40", "0")

	_, err := svc.AddMember(context.Background(), Member{EntityID: 1, Name: "Gamma", OwnershipPct: pct("1")})
	if !errors.Is(err, ErrOwnershipExceeds100) {
		t.Fatalf("err = %v, want ErrOwnershipExceeds100", err)
	}
}

func TestSetOwnershipExcludesOwnStake(t *testing.T) {
	svc := NewService(newMemCapitalRepo(), nil, nil, nil)
	a := member(t, svc, 1, "Alpha", "60", "0")
	member(t, svc, 1, "Beta", "40", "0")

	// Moving Alpha from 60 to 55 is fine: 55 + 40 <= 100.
	updated, err := svc.SetOwnership(context.Background(), a.ID, pct("55"))
	if err != nil {
		t.Fatalf("set ownership: %v", err)
	}
	if !updated.OwnershipPct.Equal(pct("55")) {
		t.Fatalf("pct = %s, want 55", updated.OwnershipPct)
	}
	// 65 + 40 breaks the cap.
	if _, err := svc.SetOwnership(context.Background(), a.ID, pct("65")); !errors.Is(err, ErrOwnershipExceeds100) {
		t.Fatalf("err = %v, want ErrOwnershipExceeds100", err)
	}
}

func TestEarningsAllocationFanOut(t *testing.T) {
	svc := NewService(newMemCapitalRepo(), nil, nil, nil)
	ctx := context.Background()
	a := member(t, svc, 1, "Alpha", "60", "0")
	b := member(t, svc, 1, "Beta", "40", "0")

	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)
	before, err := svc.Balance(ctx, a.ID, asOf)
	if err != nil {
		t.Fatalf("balance before: %v", err)
	}

	txs, err := svc.PostTransaction(ctx, PostInput{
		EntityID: 1,
		Type:     TxEarningsAllocation,
		Amount:   pct("100.00"),
		Date:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if err != nil {
		t.Fatalf("post allocation: %v", err)
	}
	if len(txs) != 2 {
		t.Fatalf("transactions = %d, want 2", len(txs))
	}
	if txs[0].BatchRef != txs[1].BatchRef {
		t.Fatalf("fan-out rows should share a batch ref")
	}

	balA, err := svc.Balance(ctx, a.ID, asOf)
	if err != nil {
		t.Fatalf("balance A: %v", err)
	}
	balB, err := svc.Balance(ctx, b.ID, asOf)
	if err != nil {
		t.Fatalf("balance B: %v", err)
	}
	if !balA.Sub(before).Equal(pct("60.00")) {
		t.Fatalf("A increase = %s, want 60.00", balA.Sub(before))
	}
	if !balB.Equal(pct("40.00")) {
		t.Fatalf("B = %s, want 40.00", balB)
	}
	if !balA.Add(balB).Equal(pct("100.00")) {
		t.Fatalf("sum = %s, want exactly 100.00", balA.Add(balB))
	}
}

func TestAllocationRequiresMembers(t *testing.T) {
	svc := NewService(newMemCapitalRepo(), nil, nil, nil)
	_, err := svc.PostTransaction(context.Background(), PostInput{
		EntityID: 1,
		Type:     TxEarningsAllocation,
		Amount:   pct("50.00"),
		Date:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrNoMembers) {
		t.Fatalf("err = %v, want ErrNoMembers", err)
	}
}

func TestContributionRequiresMemberTarget(t *testing.T) {
	svc := NewService(newMemCapitalRepo(), nil, nil, nil)
	_, err := svc.PostTransaction(context.Background(), PostInput{
		EntityID: 1,
		Type:     TxContribution,
		Amount:   pct("50.00"),
		Date:     time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC),
	})
	if !errors.Is(err, ErrMemberRequired) {
		t.Fatalf("err = %v, want ErrMemberRequired", err)
	}
}

func TestBalanceTermsAndAsOf(t *testing.T) {
	svc := NewService(newMemCapitalRepo(), nil, nil, nil)
	ctx := context.Background()
	a := member(t, svc, 1, "Alpha", "100", "500.00")

	post := func(txType TxType, amount string, day int) {
		t.Helper()
		_, err := svc.PostTransaction(ctx, PostInput{
			EntityID: 1,
			MemberID: &a.ID,
			Type:     txType,
			Amount:   pct(amount),
			Date:     time.Date(2024, 6, day, 0, 0, 0, 0, time.UTC),
		})
		if err != nil {
			t.Fatalf("post %s: %v", txType, err)
		}
	}
	post(TxContribution, "250.00", 5)
	post(TxDistribution, "100.00", 10)
	post(TxEarningsAllocation, "80.00", 20)

	bal, err := svc.Balance(ctx, a.ID, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.Equal(pct("730.00")) {
		t.Fatalf("balance = %s, want 730.00", bal)
	}

	// As of the 12th, the allocation on the 20th is not yet counted.
	mid, err := svc.Balance(ctx, a.ID, time.Date(2024, 6, 12, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("mid balance: %v", err)
	}
	if !mid.Equal(pct("650.00")) {
		t.Fatalf("mid balance = %s, want 650.00", mid)
	}
}

func TestInterEntityTransferBooksOnReceivingMember(t *testing.T) {
	svc := NewService(newMemCapitalRepo(), nil, nil, nil)
	ctx := context.Background()
	a := member(t, svc, 2, "Harborview LP", "100", "1000.00")

	txs, err := svc.PostTransaction(ctx, PostInput{
		EntityID: 2,
		MemberID: &a.ID,
		Type:     TxInterEntityTransfer,
		Amount:   pct("300.00"),
		Date:     time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
		Memo:     "transfer from Lakeview LLC",
	})
	if err != nil {
		t.Fatalf("post transfer: %v", err)
	}
	if len(txs) != 1 || txs[0].Status != TxPosted {
		t.Fatalf("txs = %+v, want one posted row", txs)
	}

	bal, err := svc.Balance(ctx, a.ID, time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !bal.Equal(pct("1300.00")) {
		t.Fatalf("balance = %s, want 1300.00", bal)
	}

	// Transfers need an explicit receiving member, fan-out is allocation only.
	if _, err := svc.PostTransaction(ctx, PostInput{
		EntityID: 2,
		Type:     TxInterEntityTransfer,
		Amount:   pct("50.00"),
		Date:     time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC),
	}); !errors.Is(err, ErrMemberRequired) {
		t.Fatalf("err = %v, want ErrMemberRequired", err)
	}
}

func TestVerifyAgainstEquity(t *testing.T) {
	repo := newMemCapitalRepo()
	ctx := context.Background()
	asOf := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	matched := NewService(repo, nil, fixedEquity{total: pct("500.00")}, nil)
	member(t, matched, 1, "Alpha", "100", "500.00")
	if err := matched.VerifyAgainstEquity(ctx, 1, asOf); err != nil {
		t.Fatalf("verify matched: %v", err)
	}

	diverged := NewService(repo, nil, fixedEquity{total: pct("400.00")}, nil)
	err := diverged.VerifyAgainstEquity(ctx, 1, asOf)
	if !errors.Is(err, ErrEquityMismatch) {
		t.Fatalf("err = %v, want ErrEquityMismatch", err)
	}
}

func TestPostInputValidation(t *testing.T) {
	svc := NewService(newMemCapitalRepo(), nil, nil, nil)
	ctx := context.Background()
	id := int64(1)

	cases := []PostInput{
		{EntityID: 1, MemberID: &id, Type: TxContribution, Amount: pct("-5.00"), Date: time.Now()},
		{EntityID: 1, MemberID: &id, Type: TxContribution, Amount: pct("0.005"), Date: time.Now()},
		{EntityID: 1, MemberID: &id, Type: "SPLIT", Amount: pct("5.00"), Date: time.Now()},
		{EntityID: 0, MemberID: &id, Type: TxContribution, Amount: pct("5.00"), Date: time.Now()},
	}
	for i, in := range cases {
		if _, err := svc.PostTransaction(ctx, in); err == nil {
			t.Fatalf("case %d: expected validation error", i)
		}
	}
}
