package pricing

import (
	"strings"

	"github.com/noah-isme/backend-showroom/internal/catalog"
)

// Region is the registration region implied by the selected plate fee option.
type Region string

const (
	RegionHCM      Region = "HCM"
	RegionHN       Region = "HN"
	RegionProvince Region = "PROVINCE"
)

// DefaultWarranty is shown when no warranty rule covers the model.
const DefaultWarranty = "Theo chính sách VinFast"

var (
	hcmMarkers = []string{"hcm", "hồ chí minh", "sài gòn"}
	hnMarkers  = []string{"hà nội", "hn", "ha noi"}
)

// DetectRegion inspects the selected option of the first fee rule with options.
func DetectRegion(snap catalog.Snapshot, sel Selections) Region {
	for _, f := range snap.Fees {
		if !f.HasOptions() {
			continue
		}
		label := strings.ToLower(f.Options[selectedOptionIndex(f, sel)].Label)
		switch {
		case containsAny(label, hcmMarkers):
			return RegionHCM
		case containsAny(label, hnMarkers):
			return RegionHN
		}
		return RegionProvince
	}
	return RegionProvince
}

// WarrantyFor returns the newest warranty scoped to the model.
func WarrantyFor(snap catalog.Snapshot, modelID string) string {
	if modelID == "" {
		return DefaultWarranty
	}
	for _, w := range snap.Warranties {
		for _, id := range w.ModelIDs {
			if id == modelID {
				return w.Name
			}
		}
	}
	return DefaultWarranty
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
