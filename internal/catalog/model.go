package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

// ValueType tells whether a rule value is a percentage of the list price or a fixed amount.
type ValueType string

const (
	// ValuePercent marks a value expressed as a percentage of the list price.
	ValuePercent ValueType = "percent"
	// ValueFixed marks a value expressed as an absolute amount.
	ValueFixed ValueType = "fixed"
)

// TargetType identifies the price a promotion reduces.
type TargetType string

const (
	// TargetInvoice reduces the invoice price.
	TargetInvoice TargetType = "invoice"
	// TargetRolling reduces the on-road (rolling) price only.
	TargetRolling TargetType = "rolling"
)

// Normalize maps unknown or empty targets to TargetInvoice.
func (t TargetType) Normalize() TargetType {
	if t == TargetRolling {
		return TargetRolling
	}
	return TargetInvoice
}

// VehicleModel is a car line such as "VF 8".
type VehicleModel struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// VehicleVersion is a trim of a model with its list price.
type VehicleVersion struct {
	ID                    string          `json:"id"`
	ModelID               string          `json:"modelId"`
	Name                  string          `json:"name"`
	BasePrice             decimal.Decimal `json:"basePrice"`
	PremiumColorSurcharge decimal.Decimal `json:"premiumColorSurcharge"`
}

// Scope restricts a rule to models and versions. Empty lists match everything.
type Scope struct {
	ModelIDs   []string `json:"modelIds,omitempty"`
	VersionIDs []string `json:"versionIds,omitempty"`
}

// Matches reports whether the scope covers the model/version pair. Version
// restrictions are ignored while no version is selected.
func (s Scope) Matches(modelID, versionID string) bool {
	if len(s.ModelIDs) > 0 && !contains(s.ModelIDs, modelID) {
		return false
	}
	if versionID != "" && len(s.VersionIDs) > 0 && !contains(s.VersionIDs, versionID) {
		return false
	}
	return true
}

// PromotionRule is a discount that targets either the invoice or the rolling price.
type PromotionRule struct {
	ID         string          `json:"id"`
	Name       string          `json:"name"`
	Value      decimal.Decimal `json:"value"`
	ValueType  ValueType       `json:"valueType"`
	Priority   int             `json:"priority"`
	TargetType TargetType      `json:"targetType"`
	Active     bool            `json:"active"`
	Scope
}

// FeeOption is one alternative of a fee, e.g. a regional plate fee.
type FeeOption struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

// FeeRule is a registration or on-road fee.
type FeeRule struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Value     decimal.Decimal `json:"value"`
	ValueType ValueType       `json:"valueType"`
	Options   []FeeOption     `json:"options,omitempty"`
	Priority  int             `json:"priority"`
	Active    bool            `json:"active"`
}

// HasOptions reports whether the fee is chosen from a list of alternatives.
func (f FeeRule) HasOptions() bool { return len(f.Options) > 0 }

// DefaultValue is the value a fresh selection starts with: the first option or the base value.
func (f FeeRule) DefaultValue() decimal.Decimal {
	if f.HasOptions() {
		return f.Options[0].Value
	}
	return f.Value
}

// GiftRule is a reward handed to the buyer. When PerModelValue is set the
// gift only exists for the mapped models.
type GiftRule struct {
	ID            string                     `json:"id"`
	Name          string                     `json:"name"`
	Value         decimal.Decimal            `json:"value"`
	PerModelValue map[string]decimal.Decimal `json:"perModelValue,omitempty"`
	Priority      int                        `json:"priority"`
	Active        bool                       `json:"active"`
}

// MembershipTier grants a list-price discount and a bonus gift ratio.
type MembershipTier struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	DiscountPercent  decimal.Decimal `json:"discountPercent"`
	GiftRatioPercent decimal.Decimal `json:"giftRatioPercent"`
	Priority         int             `json:"priority"`
	Active           bool            `json:"active"`
}

// BankPackage is one interest offer of a bank.
type BankPackage struct {
	Name              string          `json:"name"`
	AnnualRatePercent decimal.Decimal `json:"annualRatePercent"`
}

// BankConfig describes a lender and its packages.
type BankConfig struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	MaxLoanRatio decimal.Decimal `json:"maxLoanRatio"`
	Packages     []BankPackage   `json:"packages"`
}

// Package returns the package at index, if any.
func (b BankConfig) Package(index int) (BankPackage, bool) {
	if index < 0 || index >= len(b.Packages) {
		return BankPackage{}, false
	}
	return b.Packages[index], true
}

// WarrantyRule is the warranty statement shown for the scoped models.
type WarrantyRule struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	ModelIDs  []string  `json:"modelIds"`
	CreatedAt time.Time `json:"createdAt"`
}

// RegistrationService is a flat-priced registration service offered by region.
type RegistrationService struct {
	Label string          `json:"label"`
	Value decimal.Decimal `json:"value"`
}

func contains(values []string, target string) bool {
	for _, v := range values {
		if v == target {
			return true
		}
	}
	return false
}
