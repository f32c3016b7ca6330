package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-showroom/internal/catalog"
)

const (
	insuranceLineID  = "hull_insurance"
	serviceFeeLineID = "manual_service"
)

// EffectiveFeeValue resolves the value used for a fee rule: a manual override
// for rules without options, else the selected option, else the base value.
// Overrides on rules with options are ignored. The second return value is the
// label of the option in use, if any.
func EffectiveFeeValue(f catalog.FeeRule, sel Selections) (decimal.Decimal, string) {
	if f.HasOptions() {
		opt := f.Options[selectedOptionIndex(f, sel)]
		return opt.Value, opt.Label
	}
	if v, ok := sel.FeeOverrides[f.ID]; ok {
		return v, ""
	}
	return f.Value, ""
}

func selectedOptionIndex(f catalog.FeeRule, sel Selections) int {
	idx, ok := sel.FeeOptions[f.ID]
	if !ok || idx < 0 || idx >= len(f.Options) {
		return 0
	}
	return idx
}

// resolveFees builds the fee breakdown in catalog order followed by insurance
// and the manual service fee.
func resolveFees(fees []catalog.FeeRule, listPrice, finalInvoice decimal.Decimal, sel Selections) ([]Line, decimal.Decimal) {
	lines := []Line{}
	total := decimal.Zero
	for _, f := range fees {
		if !f.Active {
			continue
		}
		value, optionLabel := EffectiveFeeValue(f, sel)
		amount := value
		if f.ValueType == catalog.ValuePercent {
			amount = percentOf(listPrice, value)
		}
		name := f.Name
		if optionLabel != "" {
			name = fmt.Sprintf("%s (%s)", f.Name, optionLabel)
		}
		total = total.Add(amount)
		lines = append(lines, Line{Name: name, Amount: amount, RuleID: f.ID})
	}
	if sel.IncludeInsurance {
		// Insurance is priced on the discounted invoice price, unlike percent fees.
		amount := percentOf(finalInvoice, sel.InsuranceRate)
		total = total.Add(amount)
		lines = append(lines, Line{
			Name:   fmt.Sprintf("Hull insurance (%s%%)", sel.InsuranceRate.String()),
			Amount: amount,
			RuleID: insuranceLineID,
		})
	}
	if sel.ServiceFee.IsPositive() {
		total = total.Add(sel.ServiceFee)
		lines = append(lines, Line{Name: "Registration service (other)", Amount: sel.ServiceFee, RuleID: serviceFeeLineID})
	}
	return lines, total
}
