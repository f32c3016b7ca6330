package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-showroom/internal/catalog"
)

const monthsPerYear = 12

// BankTerms names the bank and package a loan estimate was priced with.
type BankTerms struct {
	BankID            string          `json:"bankId"`
	BankName          string          `json:"bankName"`
	PackageName       string          `json:"packageName"`
	AnnualRatePercent decimal.Decimal `json:"annualRatePercent"`
}

// MonthlyPayment is the first-month repayment for one loan term. Interest is
// flat on the full principal.
type MonthlyPayment struct {
	TermYears         int             `json:"termYears"`
	Months            int             `json:"months"`
	Principal         decimal.Decimal `json:"principal"`
	Interest          decimal.Decimal `json:"interest"`
	FirstMonthPayment decimal.Decimal `json:"firstMonthPayment"`
}

type loanEstimate struct {
	amount   decimal.Decimal
	upfront  decimal.Decimal
	bank     *BankTerms
	payments []MonthlyPayment
}

// LoanAmount derives the financed amount from the prepayment.
func LoanAmount(finalInvoice decimal.Decimal, p Prepayment) decimal.Decimal {
	if a, ok := p.Amount(); ok {
		return clampZero(finalInvoice.Sub(a))
	}
	pct, _ := p.Percent()
	if pct.IsNegative() {
		pct = decimal.Zero
	}
	if pct.GreaterThan(hundred) {
		pct = hundred
	}
	return percentOf(finalInvoice, hundred.Sub(pct))
}

func estimateLoan(snap catalog.Snapshot, sel Selections, finalInvoice, finalRolling decimal.Decimal, terms []int) loanEstimate {
	est := loanEstimate{payments: []MonthlyPayment{}}
	est.amount = LoanAmount(finalInvoice, sel.Prepayment)
	est.upfront = clampZero(finalRolling.Sub(est.amount))

	bank, ok := snap.Bank(sel.BankID)
	if !ok {
		return est
	}
	pkg, ok := bank.Package(sel.PackageIndex)
	if !ok {
		return est
	}
	est.bank = &BankTerms{
		BankID:            bank.ID,
		BankName:          bank.Name,
		PackageName:       pkg.Name,
		AnnualRatePercent: pkg.AnnualRatePercent,
	}
	if !est.amount.IsPositive() {
		return est
	}
	interest := est.amount.Mul(pkg.AnnualRatePercent).Div(hundred).Div(decimal.NewFromInt(monthsPerYear)).Round(2)
	for _, years := range terms {
		if years <= 0 {
			continue
		}
		months := years * monthsPerYear
		principal := est.amount.Div(decimal.NewFromInt(int64(months))).Round(2)
		est.payments = append(est.payments, MonthlyPayment{
			TermYears:         years,
			Months:            months,
			Principal:         principal,
			Interest:          interest,
			FirstMonthPayment: principal.Add(interest),
		})
	}
	return est
}
