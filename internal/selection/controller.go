// Package selection owns the buyer's quote selections and the reset rules
// that keep them consistent as the vehicle, bank or catalog changes.
package selection

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-showroom/internal/catalog"
	"github.com/noah-isme/backend-showroom/internal/pricing"
)

var (
	// ErrUnknownEvent is returned for event types without a transition.
	ErrUnknownEvent = errors.New("selection: unknown event")
	// ErrMissingSnapshot is returned for a CatalogLoaded event without a snapshot.
	ErrMissingSnapshot = errors.New("selection: catalog event without snapshot")
)

// Defaults seed a fresh controller.
type Defaults struct {
	PrepaidPercent decimal.Decimal
	ServiceFee     decimal.Decimal
	InsuranceRate  decimal.Decimal
	LoanTerms      []int
}

// DefaultSettings returns the showroom defaults: 20% prepaid, a 3,000,000
// service fee and a 1.2% insurance rate.
func DefaultSettings() Defaults {
	return Defaults{
		PrepaidPercent: decimal.NewFromInt(20),
		ServiceFee:     decimal.NewFromInt(3_000_000),
		InsuranceRate:  decimal.RequireFromString("1.2"),
	}
}

// State is everything a session needs to resume.
type State struct {
	Selections pricing.Selections `json:"selections"`

	// PrepaidPercent is the percent shown to the user; it follows amount
	// prepayments without switching the prepayment kind.
	PrepaidPercent    decimal.Decimal `json:"prepaidPercent"`
	FeesInitialized   bool            `json:"feesInitialized"`
	CatalogGeneration int64           `json:"catalogGeneration"`
	// SeenPromotions are the promotion ids the selected vehicle could see
	// when the applied set was last chosen automatically, sorted.
	SeenPromotions []string `json:"seenPromotions"`
}

// NewState returns the initial state for d.
func NewState(d Defaults) State {
	return State{
		Selections: pricing.Selections{
			AppliedPromotions: []string{},
			FeeOptions:        map[string]int{},
			FeeOverrides:      map[string]decimal.Decimal{},
			ManualDiscount:    pricing.ManualDiscount{Amount: decimal.Zero, Target: catalog.TargetInvoice},
			Prepayment:        pricing.PercentPrepayment(d.PrepaidPercent),
			ServiceFee:        d.ServiceFee,
			InsuranceRate:     d.InsuranceRate,
		},
		PrepaidPercent: d.PrepaidPercent,
	}
}

type transition func(c *Controller, ev Event) error

var transitions = map[EventType]transition{
	ModelChanged:                (*Controller).onModelChanged,
	VersionChanged:              (*Controller).onVersionChanged,
	CatalogLoaded:               (*Controller).onCatalogLoaded,
	BankChanged:                 (*Controller).onBankChanged,
	PackageChanged:              (*Controller).onPackageChanged,
	PrepaidPercentChanged:       (*Controller).onPrepaidPercentChanged,
	PrepaidAmountChanged:        (*Controller).onPrepaidAmountChanged,
	PromotionToggled:            (*Controller).onPromotionToggled,
	MembershipChanged:           (*Controller).onMembershipChanged,
	FeeOptionChanged:            (*Controller).onFeeOptionChanged,
	FeeOverrideChanged:          (*Controller).onFeeOverrideChanged,
	ManualDiscountChanged:       (*Controller).onManualDiscountChanged,
	ManualDiscountTargetChanged: (*Controller).onManualDiscountTargetChanged,
	ServiceFeeChanged:           (*Controller).onServiceFeeChanged,
	InsuranceToggled:            (*Controller).onInsuranceToggled,
	InsuranceRateChanged:        (*Controller).onInsuranceRateChanged,
	PremiumColorToggled:         (*Controller).onPremiumColorToggled,
	FreeRegistrationToggled:     (*Controller).onFreeRegistrationToggled,
}

// Known reports whether t has a transition.
func Known(t EventType) bool {
	_, ok := transitions[t]
	return ok
}

// Controller applies events to a State. It is not safe for concurrent use;
// callers serialise access per session.
type Controller struct {
	state  State
	snap   catalog.Snapshot
	loaded bool
	engine pricing.Engine
}

// New returns a controller in its initial state.
func New(d Defaults) *Controller {
	return &Controller{
		state:  NewState(d),
		snap:   catalog.Snapshot{}.Normalize(),
		engine: pricing.Engine{LoanTerms: d.LoanTerms},
	}
}

// Restore replaces the state without firing any transition.
func (c *Controller) Restore(st State) {
	st.Selections = st.Selections.Clone()
	st.SeenPromotions = append([]string{}, st.SeenPromotions...)
	c.state = st
}

// State returns a copy of the current state.
func (c *Controller) State() State {
	st := c.state
	st.Selections = c.state.Selections.Clone()
	st.SeenPromotions = append([]string{}, c.state.SeenPromotions...)
	return st
}

// Selections returns a copy of the current selections.
func (c *Controller) Selections() pricing.Selections {
	return c.state.Selections.Clone()
}

// Snapshot returns the catalog the controller currently prices against.
func (c *Controller) Snapshot() catalog.Snapshot { return c.snap }

// Loaded reports whether a catalog snapshot has been accepted.
func (c *Controller) Loaded() bool { return c.loaded }

// Quote computes the quote for the current state.
func (c *Controller) Quote() pricing.Result {
	if !c.loaded {
		return pricing.EmptyResult()
	}
	return c.engine.Compute(c.snap, c.state.Selections)
}

// Apply runs the transition for ev.
func (c *Controller) Apply(ev Event) error {
	fn, ok := transitions[ev.Type]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownEvent, ev.Type)
	}
	return fn(c, ev)
}

// ApplyAll applies events in order and stops at the first error.
func (c *Controller) ApplyAll(events []Event) error {
	for i, ev := range events {
		if err := c.Apply(ev); err != nil {
			return fmt.Errorf("event %d: %w", i, err)
		}
	}
	return nil
}

func (c *Controller) autoApply() {
	sel := &c.state.Selections
	if !c.loaded || sel.ModelID == "" {
		c.state.SeenPromotions = nil
		return
	}
	sel.SetApplied(pricing.ApplicablePromotionIDs(c.snap, sel.ModelID, sel.VersionID))
	c.state.SeenPromotions = append([]string{}, sel.AppliedPromotions...)
}

// visiblePromotionsChanged reports whether the promotions the selected
// vehicle can see differ from the ones last auto-applied.
func (c *Controller) visiblePromotionsChanged() bool {
	sel := c.state.Selections
	var visible pricing.Selections
	visible.SetApplied(pricing.ApplicablePromotionIDs(c.snap, sel.ModelID, sel.VersionID))
	return !slices.Equal(visible.AppliedPromotions, c.state.SeenPromotions)
}

func (c *Controller) onModelChanged(ev Event) error {
	sel := &c.state.Selections
	if ev.ModelID == sel.ModelID {
		return nil
	}
	sel.ModelID = ev.ModelID
	sel.VersionID = ""
	sel.AppliedPromotions = []string{}
	sel.ManualDiscount.Amount = decimal.Zero
	c.autoApply()
	return nil
}

func (c *Controller) onVersionChanged(ev Event) error {
	c.state.Selections.VersionID = ev.VersionID
	c.autoApply()
	return nil
}

func (c *Controller) onCatalogLoaded(ev Event) error {
	if ev.Snapshot == nil {
		return ErrMissingSnapshot
	}
	snap := ev.Snapshot.Normalize()
	// an empty snapshot is the fallback served while the catalog is down
	if snap.IsEmpty() || snap.Generation < c.state.CatalogGeneration {
		return nil
	}
	c.snap = snap
	c.loaded = true
	c.state.CatalogGeneration = snap.Generation

	sel := &c.state.Selections
	if !c.state.FeesInitialized {
		if sel.FeeOptions == nil {
			sel.FeeOptions = map[string]int{}
		}
		for _, f := range snap.Fees {
			if !f.HasOptions() {
				continue
			}
			if _, ok := sel.FeeOptions[f.ID]; !ok {
				sel.FeeOptions[f.ID] = 0
			}
		}
		c.state.FeesInitialized = true
	}
	if sel.ModelID != "" && c.visiblePromotionsChanged() {
		c.autoApply()
	}
	if sel.BankID == "" && len(snap.Banks) > 0 {
		sel.BankID = snap.Banks[0].ID
		sel.PackageIndex = 0
	}
	return nil
}

func (c *Controller) onBankChanged(ev Event) error {
	c.state.Selections.BankID = ev.BankID
	c.state.Selections.PackageIndex = 0
	return nil
}

func (c *Controller) onPackageChanged(ev Event) error {
	if ev.Index < 0 {
		return nil
	}
	c.state.Selections.PackageIndex = ev.Index
	return nil
}

var hundred = decimal.NewFromInt(100)

func (c *Controller) onPrepaidPercentChanged(ev Event) error {
	p := pricing.ParseRate(ev.Value, c.state.PrepaidPercent)
	if p.GreaterThan(hundred) {
		p = hundred
	}
	c.state.Selections.Prepayment = pricing.PercentPrepayment(p)
	c.state.PrepaidPercent = p
	return nil
}

func (c *Controller) onPrepaidAmountChanged(ev Event) error {
	last, _ := c.state.Selections.Prepayment.Amount()
	a := pricing.ParseAmount(ev.Value, last)
	c.state.Selections.Prepayment = pricing.AmountPrepayment(a)

	// without an invoice price the previous display percent stays
	if invoice := c.Quote().FinalInvoicePrice; invoice.IsPositive() {
		c.state.PrepaidPercent = a.Div(invoice).Mul(hundred).Round(0)
	}
	return nil
}

func (c *Controller) onPromotionToggled(ev Event) error {
	sel := &c.state.Selections
	if ev.PromotionID == "" {
		return nil
	}
	ids := make([]string, 0, len(sel.AppliedPromotions)+1)
	for _, id := range sel.AppliedPromotions {
		if id != ev.PromotionID {
			ids = append(ids, id)
		}
	}
	if ev.Enabled {
		ids = append(ids, ev.PromotionID)
	}
	sel.SetApplied(ids)
	return nil
}

func (c *Controller) onMembershipChanged(ev Event) error {
	c.state.Selections.MembershipID = ev.MembershipID
	return nil
}

func (c *Controller) onFeeOptionChanged(ev Event) error {
	if ev.FeeID == "" || ev.Index < 0 {
		return nil
	}
	if c.state.Selections.FeeOptions == nil {
		c.state.Selections.FeeOptions = map[string]int{}
	}
	c.state.Selections.FeeOptions[ev.FeeID] = ev.Index
	return nil
}

// onFeeOverrideChanged removes the override when the input is cleared so the
// fee falls back to its catalog value.
func (c *Controller) onFeeOverrideChanged(ev Event) error {
	sel := &c.state.Selections
	if ev.FeeID == "" {
		return nil
	}
	if sel.FeeOverrides == nil {
		sel.FeeOverrides = map[string]decimal.Decimal{}
	}
	if strings.TrimSpace(ev.Value) == "" {
		delete(sel.FeeOverrides, ev.FeeID)
		return nil
	}
	last, ok := sel.FeeOverrides[ev.FeeID]
	if !ok {
		if f, found := c.snap.Fee(ev.FeeID); found {
			last = f.Value
		}
	}
	sel.FeeOverrides[ev.FeeID] = pricing.ParseAmount(ev.Value, last)
	return nil
}

func (c *Controller) onManualDiscountChanged(ev Event) error {
	md := &c.state.Selections.ManualDiscount
	md.Amount = pricing.ParseAmount(ev.Value, md.Amount)
	return nil
}

func (c *Controller) onManualDiscountTargetChanged(ev Event) error {
	c.state.Selections.ManualDiscount.Target = ev.Target.Normalize()
	return nil
}

func (c *Controller) onServiceFeeChanged(ev Event) error {
	sel := &c.state.Selections
	sel.ServiceFee = pricing.ParseAmount(ev.Value, sel.ServiceFee)
	return nil
}

func (c *Controller) onInsuranceToggled(ev Event) error {
	c.state.Selections.IncludeInsurance = ev.Enabled
	return nil
}

func (c *Controller) onInsuranceRateChanged(ev Event) error {
	sel := &c.state.Selections
	sel.InsuranceRate = pricing.ParseRate(ev.Value, sel.InsuranceRate)
	return nil
}

func (c *Controller) onPremiumColorToggled(ev Event) error {
	c.state.Selections.PremiumColor = ev.Enabled
	return nil
}

func (c *Controller) onFreeRegistrationToggled(ev Event) error {
	c.state.Selections.FreeRegistration = ev.Enabled
	return nil
}
