// Package pricing computes vehicle quotes from a catalog snapshot and the
// buyer's selections. Everything here is pure: the same inputs always produce
// the same Result and nothing is mutated.
package pricing

import (
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-showroom/internal/catalog"
)

// DefaultLoanTerms are the loan lengths, in years, quoted when none are configured.
var DefaultLoanTerms = []int{3, 4, 5, 6, 7, 8}

// Line is one named amount of a breakdown.
type Line struct {
	Name   string          `json:"name"`
	Amount decimal.Decimal `json:"amount"`
	RuleID string          `json:"ruleId,omitempty"`
}

// Result is a computed quote. A fresh Result is built on every computation.
type Result struct {
	ModelID              string           `json:"modelId"`
	VersionID            string           `json:"versionId"`
	ListPrice            decimal.Decimal  `json:"listPrice"`
	InvoiceBreakdown     []Line           `json:"invoiceBreakdown"`
	FinalInvoicePrice    decimal.Decimal  `json:"finalInvoicePrice"`
	FeeBreakdown         []Line           `json:"feeBreakdown"`
	TotalFees            decimal.Decimal  `json:"totalFees"`
	RollingBreakdown     []Line           `json:"rollingBreakdown"`
	TotalRollingDiscount decimal.Decimal  `json:"totalRollingDiscount"`
	FinalRollingPrice    decimal.Decimal  `json:"finalRollingPrice"`
	ActiveGifts          []Gift           `json:"activeGifts"`
	MembershipBonus      MembershipBonus  `json:"membershipBonus"`
	LoanAmount           decimal.Decimal  `json:"loanAmount"`
	UpfrontPayment       decimal.Decimal  `json:"upfrontPayment"`
	Bank                 *BankTerms       `json:"bank,omitempty"`
	MonthlyPayments      []MonthlyPayment `json:"monthlyPayments"`
	Region               Region           `json:"region"`
	Warranty             string           `json:"warranty"`
}

// EmptyResult is the quote for an unusable selection or an unloaded catalog.
func EmptyResult() Result {
	return Result{
		ListPrice:            decimal.Zero,
		InvoiceBreakdown:     []Line{},
		FinalInvoicePrice:    decimal.Zero,
		FeeBreakdown:         []Line{},
		TotalFees:            decimal.Zero,
		RollingBreakdown:     []Line{},
		TotalRollingDiscount: decimal.Zero,
		FinalRollingPrice:    decimal.Zero,
		ActiveGifts:          []Gift{},
		MembershipBonus:      MembershipBonus{Value: decimal.Zero},
		LoanAmount:           decimal.Zero,
		UpfrontPayment:       decimal.Zero,
		MonthlyPayments:      []MonthlyPayment{},
		Region:               RegionProvince,
	}
}

// Engine computes quotes for a fixed set of loan terms.
type Engine struct {
	LoanTerms []int
}

// ComputeQuote computes a quote with the default loan terms.
func ComputeQuote(snap catalog.Snapshot, sel Selections) Result {
	return Engine{}.Compute(snap, sel)
}

// Compute derives the full quote. Without a version that belongs to the
// selected model the result is EmptyResult.
func (e Engine) Compute(snap catalog.Snapshot, sel Selections) Result {
	version, ok := snap.Version(sel.VersionID)
	if !ok || version.ModelID != sel.ModelID {
		return EmptyResult()
	}
	res := EmptyResult()
	res.ModelID = sel.ModelID
	res.VersionID = sel.VersionID
	res.ListPrice = listPrice(version, sel.PremiumColor)

	promos := ResolveApplicablePromotions(snap, sel.ModelID, sel.VersionID)
	membership, hasMembership := snap.Membership(sel.MembershipID)

	var invoice decimal.Decimal
	res.InvoiceBreakdown, invoice = invoiceSide(res.ListPrice, promos, sel, membership, hasMembership)
	res.FinalInvoicePrice = clampZero(invoice)

	res.FeeBreakdown, res.TotalFees = resolveFees(snap.Fees, res.ListPrice, res.FinalInvoicePrice, sel)

	res.RollingBreakdown, res.TotalRollingDiscount = rollingSide(res.ListPrice, promos, sel, res.TotalFees)
	res.FinalRollingPrice = clampZero(res.FinalInvoicePrice.Add(res.TotalFees).Sub(res.TotalRollingDiscount))

	res.ActiveGifts = ResolveGifts(snap, sel.ModelID)
	if hasMembership {
		res.MembershipBonus = membershipBonus(res.ListPrice, membership)
	}

	loan := estimateLoan(snap, sel, res.FinalInvoicePrice, res.FinalRollingPrice, e.terms())
	res.LoanAmount = loan.amount
	res.UpfrontPayment = loan.upfront
	res.Bank = loan.bank
	res.MonthlyPayments = loan.payments

	res.Region = DetectRegion(snap, sel)
	res.Warranty = WarrantyFor(snap, sel.ModelID)
	return res
}

func (e Engine) terms() []int {
	if len(e.LoanTerms) == 0 {
		return DefaultLoanTerms
	}
	return e.LoanTerms
}

func listPrice(v catalog.VehicleVersion, premiumColor bool) decimal.Decimal {
	price := clampZero(v.BasePrice)
	if premiumColor {
		price = price.Add(clampZero(v.PremiumColorSurcharge))
	}
	return price
}
