package selection

import (
	"github.com/noah-isme/backend-showroom/internal/catalog"
)

// EventType names a selection change.
type EventType string

const (
	ModelChanged                EventType = "model_changed"
	VersionChanged              EventType = "version_changed"
	CatalogLoaded               EventType = "catalog_loaded"
	BankChanged                 EventType = "bank_changed"
	PackageChanged              EventType = "package_changed"
	PrepaidPercentChanged       EventType = "prepaid_percent_changed"
	PrepaidAmountChanged        EventType = "prepaid_amount_changed"
	PromotionToggled            EventType = "promotion_toggled"
	MembershipChanged           EventType = "membership_changed"
	FeeOptionChanged            EventType = "fee_option_changed"
	FeeOverrideChanged          EventType = "fee_override_changed"
	ManualDiscountChanged       EventType = "manual_discount_changed"
	ManualDiscountTargetChanged EventType = "manual_discount_target_changed"
	ServiceFeeChanged           EventType = "service_fee_changed"
	InsuranceToggled            EventType = "insurance_toggled"
	InsuranceRateChanged        EventType = "insurance_rate_changed"
	PremiumColorToggled         EventType = "premium_color_toggled"
	FreeRegistrationToggled     EventType = "free_registration_toggled"
)

// Event is one discrete user or system change. Only the fields relevant to
// Type are read. Value carries raw user input for amount and rate events and
// is coerced leniently.
type Event struct {
	Type         EventType          `json:"type" validate:"required"`
	ModelID      string             `json:"modelId,omitempty"`
	VersionID    string             `json:"versionId,omitempty"`
	PromotionID  string             `json:"promotionId,omitempty"`
	MembershipID string             `json:"membershipId,omitempty"`
	BankID       string             `json:"bankId,omitempty"`
	FeeID        string             `json:"feeId,omitempty"`
	Index        int                `json:"index,omitempty" validate:"gte=0"`
	Value        string             `json:"value,omitempty" validate:"max=64"`
	Target       catalog.TargetType `json:"target,omitempty"`
	Enabled      bool               `json:"enabled,omitempty"`

	// Snapshot is set by the server for CatalogLoaded; clients cannot send it.
	Snapshot *catalog.Snapshot `json:"-"`
}

// Loaded builds the CatalogLoaded event for snap.
func Loaded(snap catalog.Snapshot) Event {
	return Event{Type: CatalogLoaded, Snapshot: &snap}
}
