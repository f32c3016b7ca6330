package catalog

import (
	"sort"
	"strings"
	"time"
)

// Snapshot is an immutable read of the quote reference data.
type Snapshot struct {
	Models               []VehicleModel        `json:"models"`
	Versions             []VehicleVersion      `json:"versions"`
	Promotions           []PromotionRule       `json:"promotions"`
	Fees                 []FeeRule             `json:"fees"`
	Gifts                []GiftRule            `json:"gifts"`
	Memberships          []MembershipTier      `json:"memberships"`
	Banks                []BankConfig          `json:"banks"`
	Warranties           []WarrantyRule        `json:"warranties"`
	RegistrationServices []RegistrationService `json:"registrationServices"`

	// Generation orders snapshots; a higher generation always wins.
	Generation int64     `json:"generation"`
	FetchedAt  time.Time `json:"fetchedAt"`
}

// Normalize replaces nil collections with empty ones and orders prioritised
// rules ascending. Ties keep their fetch order.
func (s Snapshot) Normalize() Snapshot {
	out := s
	if out.Models == nil {
		out.Models = []VehicleModel{}
	}
	if out.Versions == nil {
		out.Versions = []VehicleVersion{}
	}
	out.Promotions = append([]PromotionRule{}, s.Promotions...)
	sort.SliceStable(out.Promotions, func(i, j int) bool { return out.Promotions[i].Priority < out.Promotions[j].Priority })
	out.Fees = append([]FeeRule{}, s.Fees...)
	sort.SliceStable(out.Fees, func(i, j int) bool { return out.Fees[i].Priority < out.Fees[j].Priority })
	out.Gifts = append([]GiftRule{}, s.Gifts...)
	sort.SliceStable(out.Gifts, func(i, j int) bool { return out.Gifts[i].Priority < out.Gifts[j].Priority })
	out.Memberships = append([]MembershipTier{}, s.Memberships...)
	sort.SliceStable(out.Memberships, func(i, j int) bool { return out.Memberships[i].Priority < out.Memberships[j].Priority })
	if out.Banks == nil {
		out.Banks = []BankConfig{}
	}
	out.Warranties = append([]WarrantyRule{}, s.Warranties...)
	sort.SliceStable(out.Warranties, func(i, j int) bool { return out.Warranties[i].CreatedAt.After(out.Warranties[j].CreatedAt) })
	if out.RegistrationServices == nil {
		out.RegistrationServices = []RegistrationService{}
	}
	return out
}

// IsEmpty reports whether the snapshot carries no reference data at all.
func (s Snapshot) IsEmpty() bool {
	return len(s.Models) == 0 && len(s.Versions) == 0 && len(s.Promotions) == 0 &&
		len(s.Fees) == 0 && len(s.Gifts) == 0 && len(s.Memberships) == 0 && len(s.Banks) == 0
}

// Model looks up a vehicle model by id.
func (s Snapshot) Model(id string) (VehicleModel, bool) {
	if id == "" {
		return VehicleModel{}, false
	}
	for _, m := range s.Models {
		if m.ID == id {
			return m, true
		}
	}
	return VehicleModel{}, false
}

// Version looks up a vehicle version by id.
func (s Snapshot) Version(id string) (VehicleVersion, bool) {
	if id == "" {
		return VehicleVersion{}, false
	}
	for _, v := range s.Versions {
		if v.ID == id {
			return v, true
		}
	}
	return VehicleVersion{}, false
}

// VersionsOf lists the versions belonging to a model.
func (s Snapshot) VersionsOf(modelID string) []VehicleVersion {
	out := []VehicleVersion{}
	for _, v := range s.Versions {
		if v.ModelID == modelID {
			out = append(out, v)
		}
	}
	return out
}

// Membership looks up an active membership tier by id.
func (s Snapshot) Membership(id string) (MembershipTier, bool) {
	if id == "" {
		return MembershipTier{}, false
	}
	for _, m := range s.Memberships {
		if m.ID == id && m.Active {
			return m, true
		}
	}
	return MembershipTier{}, false
}

// Bank looks up a bank by id.
func (s Snapshot) Bank(id string) (BankConfig, bool) {
	if id == "" {
		return BankConfig{}, false
	}
	for _, b := range s.Banks {
		if b.ID == id {
			return b, true
		}
	}
	return BankConfig{}, false
}

// Fee looks up a fee rule by id.
func (s Snapshot) Fee(id string) (FeeRule, bool) {
	for _, f := range s.Fees {
		if f.ID == id {
			return f, true
		}
	}
	return FeeRule{}, false
}

// SearchRegistrationServices returns services whose label contains query,
// ignoring case. An empty query matches nothing.
func SearchRegistrationServices(s Snapshot, query string) []RegistrationService {
	needle := strings.ToLower(strings.TrimSpace(query))
	out := []RegistrationService{}
	if needle == "" {
		return out
	}
	for _, svc := range s.RegistrationServices {
		if strings.Contains(strings.ToLower(svc.Label), needle) {
			out = append(out, svc)
		}
	}
	return out
}
