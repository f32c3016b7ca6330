package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-showroom/internal/catalog"
)

// Gift is a reward included in the quote.
type Gift struct {
	RuleID     string          `json:"ruleId"`
	Name       string          `json:"name"`
	Value      decimal.Decimal `json:"value"`
	PointBased bool            `json:"pointBased"`
}

// MembershipBonus is the informational gift value granted by a tier.
type MembershipBonus struct {
	TierID string          `json:"tierId,omitempty"`
	Label  string          `json:"label,omitempty"`
	Value  decimal.Decimal `json:"value"`
}

// ResolveGifts returns the active gifts for a model. Gifts with a per-model
// value map are point based and only exist for the mapped models.
func ResolveGifts(snap catalog.Snapshot, modelID string) []Gift {
	out := []Gift{}
	for _, g := range snap.Gifts {
		if !g.Active {
			continue
		}
		if len(g.PerModelValue) > 0 {
			v, ok := g.PerModelValue[modelID]
			if !ok {
				continue
			}
			out = append(out, Gift{RuleID: g.ID, Name: g.Name, Value: v, PointBased: true})
			continue
		}
		out = append(out, Gift{RuleID: g.ID, Name: g.Name, Value: g.Value})
	}
	return out
}

func membershipBonus(listPrice decimal.Decimal, tier catalog.MembershipTier) MembershipBonus {
	return MembershipBonus{
		TierID: tier.ID,
		Label:  fmt.Sprintf("Membership %s gift (%s%%)", tier.Name, tier.GiftRatioPercent.String()),
		Value:  percentOf(listPrice, tier.GiftRatioPercent),
	}
}
