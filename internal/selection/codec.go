package selection

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-showroom/internal/catalog"
	"github.com/noah-isme/backend-showroom/internal/pricing"
)

// ErrCorruptState is returned when a persisted session cannot be decoded.
var ErrCorruptState = errors.New("selection: corrupt session state")

const (
	fieldModelID           = "model_id"
	fieldVersionID         = "version_id"
	fieldAppliedPromotions = "applied_promotions"
	fieldMembershipID      = "membership_id"
	fieldBankID            = "bank_id"
	fieldPackageIndex      = "package_index"
	fieldFeeOptions        = "fee_options"
	fieldFeeOverrides      = "fee_overrides"
	fieldManualDiscount    = "manual_discount"
	fieldManualTarget      = "manual_discount_target"
	fieldPrepayKind        = "prepay_kind"
	fieldPrepayValue       = "prepay_value"
	fieldPrepaidPercent    = "prepaid_percent"
	fieldServiceFee        = "service_fee"
	fieldIncludeInsurance  = "include_insurance"
	fieldInsuranceRate     = "insurance_rate"
	fieldPremiumColor      = "premium_color"
	fieldFreeRegistration  = "free_registration"
	fieldFeesInitialized   = "fees_initialized"
	fieldCatalogGeneration = "catalog_generation"
	fieldSeenPromotions    = "seen_promotions"
)

// Encode flattens st into string fields suitable for a Redis hash.
func Encode(st State) (map[string]string, error) {
	sel := st.Selections
	feeOptions, err := json.Marshal(nonNilOptions(sel.FeeOptions))
	if err != nil {
		return nil, err
	}
	feeOverrides, err := json.Marshal(nonNilOverrides(sel.FeeOverrides))
	if err != nil {
		return nil, err
	}
	prepayValue, _ := sel.Prepayment.Percent()
	if a, ok := sel.Prepayment.Amount(); ok {
		prepayValue = a
	}
	return map[string]string{
		fieldModelID:           sel.ModelID,
		fieldVersionID:         sel.VersionID,
		fieldAppliedPromotions: strings.Join(sel.AppliedPromotions, ","),
		fieldMembershipID:      sel.MembershipID,
		fieldBankID:            sel.BankID,
		fieldPackageIndex:      strconv.Itoa(sel.PackageIndex),
		fieldFeeOptions:        string(feeOptions),
		fieldFeeOverrides:      string(feeOverrides),
		fieldManualDiscount:    sel.ManualDiscount.Amount.String(),
		fieldManualTarget:      string(sel.ManualDiscount.Target.Normalize()),
		fieldPrepayKind:        string(sel.Prepayment.Kind()),
		fieldPrepayValue:       prepayValue.String(),
		fieldPrepaidPercent:    st.PrepaidPercent.String(),
		fieldServiceFee:        sel.ServiceFee.String(),
		fieldIncludeInsurance:  strconv.FormatBool(sel.IncludeInsurance),
		fieldInsuranceRate:     sel.InsuranceRate.String(),
		fieldPremiumColor:      strconv.FormatBool(sel.PremiumColor),
		fieldFreeRegistration:  strconv.FormatBool(sel.FreeRegistration),
		fieldFeesInitialized:   strconv.FormatBool(st.FeesInitialized),
		fieldCatalogGeneration: strconv.FormatInt(st.CatalogGeneration, 10),
		fieldSeenPromotions:    strings.Join(st.SeenPromotions, ","),
	}, nil
}

// Decode rebuilds a State from Encode output. Missing fields keep their zero
// value; malformed ones fail with ErrCorruptState.
func Decode(fields map[string]string) (State, error) {
	d := decoder{fields: fields}
	var st State
	sel := &st.Selections

	sel.ModelID = fields[fieldModelID]
	sel.VersionID = fields[fieldVersionID]
	sel.SetApplied(strings.Split(fields[fieldAppliedPromotions], ","))
	sel.MembershipID = fields[fieldMembershipID]
	sel.BankID = fields[fieldBankID]
	sel.PackageIndex = d.atoi(fieldPackageIndex)
	sel.FeeOptions = map[string]int{}
	d.unmarshal(fieldFeeOptions, &sel.FeeOptions)
	sel.FeeOverrides = map[string]decimal.Decimal{}
	d.unmarshal(fieldFeeOverrides, &sel.FeeOverrides)
	sel.ManualDiscount = pricing.ManualDiscount{
		Amount: d.parseDecimal(fieldManualDiscount),
		Target: catalog.TargetType(fields[fieldManualTarget]).Normalize(),
	}
	switch value := d.parseDecimal(fieldPrepayValue); pricing.PrepaymentKind(fields[fieldPrepayKind]) {
	case pricing.PrepayAmount:
		sel.Prepayment = pricing.AmountPrepayment(value)
	case pricing.PrepayPercent, "":
		sel.Prepayment = pricing.PercentPrepayment(value)
	default:
		d.fail(fieldPrepayKind)
	}
	st.PrepaidPercent = d.parseDecimal(fieldPrepaidPercent)
	sel.ServiceFee = d.parseDecimal(fieldServiceFee)
	sel.IncludeInsurance = d.parseBool(fieldIncludeInsurance)
	sel.InsuranceRate = d.parseDecimal(fieldInsuranceRate)
	sel.PremiumColor = d.parseBool(fieldPremiumColor)
	sel.FreeRegistration = d.parseBool(fieldFreeRegistration)
	st.FeesInitialized = d.parseBool(fieldFeesInitialized)
	st.CatalogGeneration = d.parseInt64(fieldCatalogGeneration)
	var seen pricing.Selections
	seen.SetApplied(strings.Split(fields[fieldSeenPromotions], ","))
	st.SeenPromotions = seen.AppliedPromotions

	if d.err != nil {
		return State{}, d.err
	}
	return st, nil
}

type decoder struct {
	fields map[string]string
	err    error
}

func (d *decoder) fail(field string) {
	if d.err == nil {
		d.err = fmt.Errorf("%w: field %s", ErrCorruptState, field)
	}
}

func (d *decoder) atoi(field string) int {
	raw, ok := d.fields[field]
	if !ok || raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		d.fail(field)
	}
	return v
}

func (d *decoder) parseInt64(field string) int64 {
	raw, ok := d.fields[field]
	if !ok || raw == "" {
		return 0
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		d.fail(field)
	}
	return v
}

func (d *decoder) parseBool(field string) bool {
	raw, ok := d.fields[field]
	if !ok || raw == "" {
		return false
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		d.fail(field)
	}
	return v
}

func (d *decoder) parseDecimal(field string) decimal.Decimal {
	raw, ok := d.fields[field]
	if !ok || raw == "" {
		return decimal.Zero
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		d.fail(field)
		return decimal.Zero
	}
	return v
}

func (d *decoder) unmarshal(field string, dst any) {
	raw, ok := d.fields[field]
	if !ok || raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		d.fail(field)
	}
}

func nonNilOptions(m map[string]int) map[string]int {
	if m == nil {
		return map[string]int{}
	}
	return m
}

func nonNilOverrides(m map[string]decimal.Decimal) map[string]decimal.Decimal {
	if m == nil {
		return map[string]decimal.Decimal{}
	}
	return m
}
