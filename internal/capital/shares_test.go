package capital

import (
	"testing"

	"github.com/shopspring/decimal"
)

func pct(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func sumShares(shares []Share) decimal.Decimal {
	total := decimal.Zero
	for _, s := range shares {
		total = total.Add(s.Amount)
	}
	return total
}

func TestSplitProRataEven(t *testing.T) {
	members := []Member{
		{ID: 1, OwnershipPct: pct("60")},
		{ID: 2, OwnershipPct: pct("40")},
	}
	shares := SplitProRata(pct("100.00"), members)
	if !shares[0].Amount.Equal(pct("60.00")) {
		t.Fatalf("share A = %s, want 60.00", shares[0].Amount)
	}
	if !shares[1].Amount.Equal(pct("40.00")) {
		t.Fatalf("share B = %s, want 40.00", shares[1].Amount)
	}
	if !sumShares(shares).Equal(pct("100.00")) {
		t.Fatalf("sum = %s, want 100.00", sumShares(shares))
	}
}

func TestSplitProRataRemainderToLargest(t *testing.T) {
	members := []Member{
		{ID: 1, OwnershipPct: pct("33.33")},
		{ID: 2, OwnershipPct: pct("33.33")},
		{ID: 3, OwnershipPct: pct("33.34")},
	}
	shares := SplitProRata(pct("100.00"), members)
	if !sumShares(shares).Equal(pct("100.00")) {
		t.Fatalf("sum = %s, want exactly 100.00", sumShares(shares))
	}
	// Raw cuts are 33.33, 33.33, 33.34 leaving 0.00 only if they already
	// sum; with 0.01 left over it lands on member 3, the largest stake.
	if shares[2].Amount.LessThan(shares[0].Amount) {
		t.Fatalf("largest stake got the smallest share: %s < %s", shares[2].Amount, shares[0].Amount)
	}
}

func TestSplitProRataRemainderTieBreaksLowestID(t *testing.T) {
	members := []Member{
		{ID: 7, OwnershipPct: pct("50")},
		{ID: 3, OwnershipPct: pct("50")},
	}
	shares := SplitProRata(pct("0.03"), members)
	if !sumShares(shares).Equal(pct("0.03")) {
		t.Fatalf("sum = %s, want 0.03", sumShares(shares))
	}
	// Each raw cut truncates to 0.01; the extra cent goes to id 3.
	for _, s := range shares {
		if s.MemberID == 3 && !s.Amount.Equal(pct("0.02")) {
			t.Fatalf("member 3 share = %s, want 0.02", s.Amount)
		}
		if s.MemberID == 7 && !s.Amount.Equal(pct("0.01")) {
			t.Fatalf("member 7 share = %s, want 0.01", s.Amount)
		}
	}
}

func TestSplitProRataNormalizesPartialOwnership(t *testing.T) {
	// Outside investors hold the other 50%; the recorded members still split
	// the whole allocation 60/40 between themselves.
	members := []Member{
		{ID: 1, OwnershipPct: pct("30")},
		{ID: 2, OwnershipPct: pct("20")},
	}
	shares := SplitProRata(pct("100.00"), members)
	if !shares[0].Amount.Equal(pct("60.00")) {
		t.Fatalf("member 1 share = %s, want 60.00", shares[0].Amount)
	}
	if !shares[1].Amount.Equal(pct("40.00")) {
		t.Fatalf("member 2 share = %s, want 40.00", shares[1].Amount)
	}
	if !sumShares(shares).Equal(pct("100.00")) {
		t.Fatalf("sum = %s, want 100.00", sumShares(shares))
	}
}

func TestSplitProRataSumsExactlyAcrossAwkwardTotals(t *testing.T) {
	members := []Member{
		{ID: 1, OwnershipPct: pct("17.5")},
		{ID: 2, OwnershipPct: pct("22.5")},
		{ID: 3, OwnershipPct: pct("60")},
	}
	for _, total := range []string{"0.01", "0.05", "1.00", "99.99", "12345.67"} {
		shares := SplitProRata(pct(total), members)
		if !sumShares(shares).Equal(pct(total)) {
			t.Fatalf("total %s: shares sum to %s", total, sumShares(shares))
		}
	}
}

func TestSplitProRataEmpty(t *testing.T) {
	if shares := SplitProRata(pct("100.00"), nil); len(shares) != 0 {
		t.Fatalf("expected no shares, got %d", len(shares))
	}
}
