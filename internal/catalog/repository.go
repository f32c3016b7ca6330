package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Fetcher loads a full catalog snapshot from its source of truth.
type Fetcher interface {
	FetchCatalog(ctx context.Context) (Snapshot, error)
}

type queryProvider interface {
	ListModels(ctx context.Context) ([]ModelRow, error)
	ListVersions(ctx context.Context) ([]VersionRow, error)
	ListActiveQuoteConfigs(ctx context.Context) ([]QuoteConfigRow, error)
	ListBanks(ctx context.Context) ([]BankRow, error)
	ListRegistrationServices(ctx context.Context) ([]RegistrationServiceRow, error)
}

// Repository assembles snapshots from the catalog tables.
type Repository struct {
	queries queryProvider
}

// NewRepository constructs a Repository.
func NewRepository(queries queryProvider) (*Repository, error) {
	if queries == nil {
		return nil, errors.New("catalog: queries provider is required")
	}
	return &Repository{queries: queries}, nil
}

// FetchCatalog reads every catalog table and returns a normalised snapshot.
// Malformed rule rows are skipped rather than failing the whole read.
func (r *Repository) FetchCatalog(ctx context.Context) (Snapshot, error) {
	models, err := r.queries.ListModels(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list models: %w", err)
	}
	versions, err := r.queries.ListVersions(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list versions: %w", err)
	}
	configs, err := r.queries.ListActiveQuoteConfigs(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list quote configs: %w", err)
	}
	banks, err := r.queries.ListBanks(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list banks: %w", err)
	}
	services, err := r.queries.ListRegistrationServices(ctx)
	if err != nil {
		return Snapshot{}, fmt.Errorf("list registration services: %w", err)
	}

	snap := Snapshot{}
	for _, m := range models {
		snap.Models = append(snap.Models, VehicleModel{ID: m.ID, Name: m.Name})
	}
	for _, v := range versions {
		snap.Versions = append(snap.Versions, VehicleVersion{
			ID:                    v.ID,
			ModelID:               v.ModelID,
			Name:                  v.Name,
			BasePrice:             parseDecimal(v.BasePrice),
			PremiumColorSurcharge: parseDecimal(v.PremiumColorSurcharge),
		})
	}
	for _, row := range configs {
		appendConfig(&snap, row)
	}
	for _, b := range banks {
		bank := BankConfig{ID: b.ID, Name: b.Name, MaxLoanRatio: parseDecimal(b.MaxLoanRatio)}
		if len(b.Packages) > 0 {
			if err := json.Unmarshal(b.Packages, &bank.Packages); err != nil {
				bank.Packages = nil
			}
		}
		snap.Banks = append(snap.Banks, bank)
	}
	for _, s := range services {
		snap.RegistrationServices = append(snap.RegistrationServices, RegistrationService{Label: s.Label, Value: parseDecimal(s.Value)})
	}
	return snap.Normalize(), nil
}

func appendConfig(snap *Snapshot, row QuoteConfigRow) {
	switch strings.ToLower(strings.TrimSpace(row.Type)) {
	case "promotion":
		snap.Promotions = append(snap.Promotions, PromotionRule{
			ID:         row.ID,
			Name:       row.Name,
			Value:      parseDecimal(row.Value),
			ValueType:  parseValueType(row.ValueType),
			Priority:   int(row.Priority),
			TargetType: TargetType(strings.ToLower(row.TargetType)).Normalize(),
			Active:     row.IsActive,
			Scope:      Scope{ModelIDs: row.ModelIDs, VersionIDs: row.VersionIDs},
		})
	case "fee":
		fee := FeeRule{
			ID:        row.ID,
			Name:      row.Name,
			Value:     parseDecimal(row.Value),
			ValueType: parseValueType(row.ValueType),
			Priority:  int(row.Priority),
			Active:    row.IsActive,
		}
		if len(row.Options) > 0 {
			var opts []FeeOption
			if err := json.Unmarshal(row.Options, &opts); err == nil && len(opts) > 0 {
				fee.Options = opts
			}
		}
		snap.Fees = append(snap.Fees, fee)
	case "gift":
		gift := GiftRule{
			ID:       row.ID,
			Name:     row.Name,
			Value:    parseDecimal(row.Value),
			Priority: int(row.Priority),
			Active:   row.IsActive,
		}
		if len(row.ModelValues) > 0 {
			mapped := map[string]decimal.Decimal{}
			if err := json.Unmarshal(row.ModelValues, &mapped); err == nil && len(mapped) > 0 {
				gift.PerModelValue = mapped
			}
		}
		snap.Gifts = append(snap.Gifts, gift)
	case "membership":
		snap.Memberships = append(snap.Memberships, MembershipTier{
			ID:               row.ID,
			Name:             row.Name,
			DiscountPercent:  parseDecimal(row.Value),
			GiftRatioPercent: parseDecimal(row.GiftRatio),
			Priority:         int(row.Priority),
			Active:           row.IsActive,
		})
	case "warranty":
		snap.Warranties = append(snap.Warranties, WarrantyRule{
			ID:        row.ID,
			Name:      row.Name,
			ModelIDs:  row.ModelIDs,
			CreatedAt: row.CreatedAt,
		})
	}
}

func parseValueType(v string) ValueType {
	if strings.EqualFold(strings.TrimSpace(v), string(ValuePercent)) {
		return ValuePercent
	}
	return ValueFixed
}

func parseDecimal(v string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.TrimSpace(v))
	if err != nil {
		return decimal.Zero
	}
	return d
}
