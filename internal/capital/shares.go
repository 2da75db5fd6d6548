package capital

import "github.com/shopspring/decimal"

// Share is one member's cut of a fan-out allocation.
type Share struct {
	MemberID int64
	Pct      decimal.Decimal
	Amount   decimal.Decimal
}

var oneHundred = decimal.NewFromInt(100)

// SplitProRata divides total across members in proportion to their recorded
// ownership. Percentages are normalized over their own sum, so members
// holding 30% and 20% of an entity still split 60/40 between themselves.
// Each raw share is truncated to cents and the leftover cents go to the
// member with the largest percentage, ties broken by lowest member id, so
// the shares always sum exactly to total. Pure function; callers validate
// the member set first.
func SplitProRata(total decimal.Decimal, members []Member) []Share {
	totalPct := decimal.Zero
	for _, m := range members {
		totalPct = totalPct.Add(m.OwnershipPct)
	}
	if totalPct.Sign() <= 0 {
		return nil
	}
	shares := make([]Share, 0, len(members))
	allocated := decimal.Zero
	largest := -1
	for i, m := range members {
		amount := total.Mul(m.OwnershipPct).Div(totalPct).Truncate(2)
		shares = append(shares, Share{MemberID: m.ID, Pct: m.OwnershipPct, Amount: amount})
		allocated = allocated.Add(amount)
		if largest < 0 ||
			m.OwnershipPct.GreaterThan(members[largest].OwnershipPct) ||
			(m.OwnershipPct.Equal(members[largest].OwnershipPct) && m.ID < members[largest].ID) {
			largest = i
		}
	}
	if largest >= 0 {
		remainder := total.Sub(allocated)
		if !remainder.IsZero() {
			shares[largest].Amount = shares[largest].Amount.Add(remainder)
		}
	}
	return shares
}
