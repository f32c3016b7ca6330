package pricing

import (
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-showroom/internal/catalog"
)

const (
	manualDiscountLabel   = "Additional discount"
	registrationFreeLabel = "Registration fees waived (100%)"
)

// ResolveApplicablePromotions returns the active promotions whose scope covers
// the model/version pair, ordered by priority. Version restrictions are
// ignored while versionID is empty.
func ResolveApplicablePromotions(snap catalog.Snapshot, modelID, versionID string) []catalog.PromotionRule {
	out := []catalog.PromotionRule{}
	for _, p := range snap.Promotions {
		if !p.Active || !p.Matches(modelID, versionID) {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority < out[j].Priority })
	return out
}

// ApplicablePromotionIDs returns the ids of ResolveApplicablePromotions.
func ApplicablePromotionIDs(snap catalog.Snapshot, modelID, versionID string) []string {
	promos := ResolveApplicablePromotions(snap, modelID, versionID)
	ids := make([]string, 0, len(promos))
	for _, p := range promos {
		ids = append(ids, p.ID)
	}
	return ids
}

// promotionAmount is always taken from the list price; discounts never compound.
func promotionAmount(listPrice decimal.Decimal, p catalog.PromotionRule) decimal.Decimal {
	if p.ValueType == catalog.ValuePercent {
		return percentOf(listPrice, p.Value)
	}
	return p.Value
}

// invoiceSide subtracts applied invoice promotions, the membership discount and
// an invoice-targeted manual discount from the list price. The returned price
// may be negative; callers clamp.
func invoiceSide(listPrice decimal.Decimal, promos []catalog.PromotionRule, sel Selections, tier catalog.MembershipTier, hasTier bool) ([]Line, decimal.Decimal) {
	lines := []Line{}
	current := listPrice
	for _, p := range promos {
		if p.TargetType.Normalize() != catalog.TargetInvoice || !sel.IsApplied(p.ID) {
			continue
		}
		amount := promotionAmount(listPrice, p)
		current = current.Sub(amount)
		lines = append(lines, Line{Name: p.Name, Amount: amount, RuleID: p.ID})
	}
	if hasTier {
		amount := percentOf(listPrice, tier.DiscountPercent)
		current = current.Sub(amount)
		lines = append(lines, Line{
			Name:   fmt.Sprintf("Membership %s (-%s%%)", tier.Name, tier.DiscountPercent.String()),
			Amount: amount,
			RuleID: tier.ID,
		})
	}
	if sel.ManualDiscount.Target.Normalize() == catalog.TargetInvoice && sel.ManualDiscount.Amount.IsPositive() {
		current = current.Sub(sel.ManualDiscount.Amount)
		lines = append(lines, Line{Name: manualDiscountLabel, Amount: sel.ManualDiscount.Amount})
	}
	return lines, current
}

// rollingSide sums applied rolling promotions, a rolling-targeted manual
// discount and, when registration is free, the waived fees.
func rollingSide(listPrice decimal.Decimal, promos []catalog.PromotionRule, sel Selections, totalFees decimal.Decimal) ([]Line, decimal.Decimal) {
	lines := []Line{}
	total := decimal.Zero
	for _, p := range promos {
		if p.TargetType.Normalize() != catalog.TargetRolling || !sel.IsApplied(p.ID) {
			continue
		}
		amount := promotionAmount(listPrice, p)
		total = total.Add(amount)
		lines = append(lines, Line{Name: p.Name, Amount: amount, RuleID: p.ID})
	}
	if sel.ManualDiscount.Target.Normalize() == catalog.TargetRolling && sel.ManualDiscount.Amount.IsPositive() {
		total = total.Add(sel.ManualDiscount.Amount)
		lines = append(lines, Line{Name: manualDiscountLabel, Amount: sel.ManualDiscount.Amount})
	}
	if sel.FreeRegistration && totalFees.IsPositive() {
		total = total.Add(totalFees)
		lines = append(lines, Line{Name: registrationFreeLabel, Amount: totalFees})
	}
	return lines, total
}
