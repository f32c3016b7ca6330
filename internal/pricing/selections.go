package pricing

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-showroom/internal/catalog"
)

// PrepaymentKind tells which representation a Prepayment holds.
type PrepaymentKind string

const (
	// PrepayPercent is a down payment expressed as a share of the invoice price.
	PrepayPercent PrepaymentKind = "percent"
	// PrepayAmount is a down payment expressed as an absolute amount.
	PrepayAmount PrepaymentKind = "amount"
)

// Prepayment is either a percentage or an amount, never both.
type Prepayment struct {
	kind  PrepaymentKind
	value decimal.Decimal
}

// PercentPrepayment returns a prepayment of p percent of the invoice price.
func PercentPrepayment(p decimal.Decimal) Prepayment {
	return Prepayment{kind: PrepayPercent, value: p}
}

// AmountPrepayment returns a prepayment of a fixed amount.
func AmountPrepayment(a decimal.Decimal) Prepayment {
	return Prepayment{kind: PrepayAmount, value: a}
}

// Kind reports the representation. The zero Prepayment is a 0% prepayment.
func (p Prepayment) Kind() PrepaymentKind {
	if p.kind == "" {
		return PrepayPercent
	}
	return p.kind
}

// Percent returns the percentage when the prepayment is percent based.
func (p Prepayment) Percent() (decimal.Decimal, bool) {
	if p.Kind() != PrepayPercent {
		return decimal.Zero, false
	}
	return p.value, true
}

// Amount returns the amount when the prepayment is amount based.
func (p Prepayment) Amount() (decimal.Decimal, bool) {
	if p.Kind() != PrepayAmount {
		return decimal.Zero, false
	}
	return p.value, true
}

type prepaymentJSON struct {
	Kind  PrepaymentKind  `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// MarshalJSON encodes the prepayment as {"kind":..,"value":..}.
func (p Prepayment) MarshalJSON() ([]byte, error) {
	return json.Marshal(prepaymentJSON{Kind: p.Kind(), Value: p.value})
}

// UnmarshalJSON decodes {"kind":"percent"|"amount","value":..}.
func (p *Prepayment) UnmarshalJSON(data []byte) error {
	var raw prepaymentJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Kind {
	case PrepayPercent, "":
		*p = PercentPrepayment(raw.Value)
	case PrepayAmount:
		*p = AmountPrepayment(raw.Value)
	default:
		return fmt.Errorf("pricing: unknown prepayment kind %q", raw.Kind)
	}
	return nil
}

// ManualDiscount is a salesperson discount applied to one of the two prices.
type ManualDiscount struct {
	Amount decimal.Decimal    `json:"amount"`
	Target catalog.TargetType `json:"target"`
}

// Selections are the user choices a quote is computed from.
type Selections struct {
	ModelID           string                     `json:"modelId"`
	VersionID         string                     `json:"versionId"`
	AppliedPromotions []string                   `json:"appliedPromotions"`
	MembershipID      string                     `json:"membershipId"`
	BankID            string                     `json:"bankId"`
	PackageIndex      int                        `json:"packageIndex"`
	FeeOptions        map[string]int             `json:"feeOptions"`
	FeeOverrides      map[string]decimal.Decimal `json:"feeOverrides"`
	ManualDiscount    ManualDiscount             `json:"manualDiscount"`
	Prepayment        Prepayment                 `json:"prepayment"`
	ServiceFee        decimal.Decimal            `json:"serviceFee"`
	IncludeInsurance  bool                       `json:"includeInsurance"`
	InsuranceRate     decimal.Decimal            `json:"insuranceRate"`
	PremiumColor      bool                       `json:"premiumColor"`
	FreeRegistration  bool                       `json:"freeRegistration"`
}

// Clone returns a deep copy so callers can mutate freely.
func (s Selections) Clone() Selections {
	out := s
	out.AppliedPromotions = append([]string(nil), s.AppliedPromotions...)
	out.FeeOptions = make(map[string]int, len(s.FeeOptions))
	for k, v := range s.FeeOptions {
		out.FeeOptions[k] = v
	}
	out.FeeOverrides = make(map[string]decimal.Decimal, len(s.FeeOverrides))
	for k, v := range s.FeeOverrides {
		out.FeeOverrides[k] = v
	}
	return out
}

// IsApplied reports whether the promotion id is in the applied set.
func (s Selections) IsApplied(id string) bool {
	for _, p := range s.AppliedPromotions {
		if p == id {
			return true
		}
	}
	return false
}

// SetApplied replaces the applied set with ids, deduplicated and sorted.
func (s *Selections) SetApplied(ids []string) {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	sort.Strings(out)
	s.AppliedPromotions = out
}
