package main

import (
	"database/sql"
	"fmt"
	"log"
	"os"

	"github.com/joho/godotenv"
	"github.com/lib/pq"
)

type modelSeed struct {
	ID   string
	Name string
}

type versionSeed struct {
	ID        string
	ModelID   string
	Name      string
	BasePrice int64
	Surcharge int64
}

type configSeed struct {
	ID          string
	Type        string
	Name        string
	Value       string
	ValueType   string
	TargetType  string
	Priority    int
	ModelIDs    []string
	Options     string
	ModelValues string
	GiftRatio   string
}

type bankSeed struct {
	ID           string
	Name         string
	MaxLoanRatio string
	Packages     string
}

type registrationSeed struct {
	Label string
	Value int64
}

var models = []modelSeed{
	{"vf3", "VinFast VF 3"},
	{"vf5", "VinFast VF 5"},
	{"vf6", "VinFast VF 6"},
	{"vf8", "VinFast VF 8"},
}

var versions = []versionSeed{
	{"vf3-base", "vf3", "VF 3 Base", 299_000_000, 0},
	{"vf5-plus", "vf5", "VF 5 Plus", 529_000_000, 8_000_000},
	{"vf6-eco", "vf6", "VF 6 Eco", 689_000_000, 10_000_000},
	{"vf6-plus", "vf6", "VF 6 Plus", 749_000_000, 10_000_000},
	{"vf8-eco", "vf8", "VF 8 Eco", 1_019_000_000, 12_000_000},
	{"vf8-plus", "vf8", "VF 8 Plus", 1_199_000_000, 12_000_000},
}

var configs = []configSeed{
	{ID: "promo-cash", Type: "promotion", Name: "Ưu đãi thanh toán", Value: "4", ValueType: "percent", TargetType: "invoice", Priority: 1},
	{ID: "promo-vf8-loyal", Type: "promotion", Name: "Khách hàng thân thiết VF 8", Value: "30000000", ValueType: "fixed", TargetType: "invoice", Priority: 2, ModelIDs: []string{"vf8"}},
	{ID: "promo-reg-support", Type: "promotion", Name: "Hỗ trợ lệ phí trước bạ", Value: "10000000", ValueType: "fixed", TargetType: "rolling", Priority: 3},
	{ID: "fee-plate", Type: "fee", Name: "Phí biển số", Value: "20000000", ValueType: "fixed", Priority: 1,
		Options: `[{"label":"Hà Nội / HCM","value":"20000000"},{"label":"Tỉnh khác","value":"1000000"}]`},
	{ID: "fee-inspection", Type: "fee", Name: "Phí đăng kiểm", Value: "340000", ValueType: "fixed", Priority: 2},
	{ID: "fee-road", Type: "fee", Name: "Phí bảo trì đường bộ", Value: "1560000", ValueType: "fixed", Priority: 3},
	{ID: "fee-civil-insurance", Type: "fee", Name: "Bảo hiểm TNDS", Value: "530700", ValueType: "fixed", Priority: 4},
	{ID: "gift-charger", Type: "gift", Name: "Bộ sạc tại nhà", Value: "10000000", Priority: 1,
		ModelValues: `{"vf3":"5000000","vf8":"15000000"}`},
	{ID: "member-gold", Type: "membership", Name: "Gold", Value: "1", Priority: 1, GiftRatio: "50"},
	{ID: "member-platinum", Type: "membership", Name: "Platinum", Value: "2", Priority: 2, GiftRatio: "100"},
	{ID: "warranty-battery", Type: "warranty", Name: "Bảo hành pin 10 năm", ModelIDs: []string{"vf6", "vf8"}},
}

var banks = []bankSeed{
	{"vcb", "Vietcombank", "80", `[{"name":"Cố định 12 tháng","annualRatePercent":"6.8"},{"name":"Cố định 24 tháng","annualRatePercent":"7.5"}]`},
	{"tcb", "Techcombank", "75", `[{"name":"Ưu đãi 6 tháng","annualRatePercent":"5.9"}]`},
	{"bidv", "BIDV", "70", `[]`},
}

var registrationServices = []registrationSeed{
	{"[Hà Nội] VNEID TOÀN TRÌNH", 3_000_000},
	{"[Hà Nội] VNEID - TRUYỀN THỐNG", 3_000_000},
	{"[Hà Nội] PHÍ CÀ VẸT NHANH", 1_500_000},
	{"[HCM] VNEID TOÀN TRÌNH - KHÔNG XE", 3_000_000},
	{"[HCM] VNEID - TRUYỀN THỐNG (KHÔNG XE)", 3_000_000},
	{"[HCM] PHÍ CÀ VẸT NHANH", 1_500_000},
	{"[Bình Dương] VNEID - TOÀN TRÌNH (KHÔNG XE)", 3_000_000},
	{"[Bình Dương] VNEID - TRUYỀN THỐNG (CÓ XE)", 3_100_000},
	{"[Đồng Nai] VNEID - TOÀN TRÌNH (KHÔNG XE)", 3_200_000},
	{"[Đồng Nai] VNEID - TRUYỀN THỐNG (CÓ XE)", 3_400_000},
	{"[Cần Thơ] VNEID - TOÀN TRÌNH (KHÔNG XE)", 4_500_000},
	{"[Cần Thơ] VNEID - TRUYỀN THỐNG (CÓ XE)", 4_800_000},
}

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	db, err := sql.Open("postgres", dbURL)
	if err != nil {
		log.Fatalf("Failed to open DB: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping DB: %v", err)
	}

	if err := seed(db); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Println("Seeding completed successfully!")
}

// seed upserts the demo catalog in one transaction so a partial run never
// leaves a half-populated catalog behind.
func seed(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	steps := []struct {
		name string
		fn   func(*sql.Tx) error
	}{
		{"models", seedModels},
		{"versions", seedVersions},
		{"quote configs", seedConfigs},
		{"banks", seedBanks},
		{"registration services", seedRegistrationServices},
	}
	for _, step := range steps {
		fmt.Printf("Seeding %s...\n", step.name)
		if err := step.fn(tx); err != nil {
			return fmt.Errorf("seed %s: %w", step.name, err)
		}
	}
	return tx.Commit()
}

func seedModels(tx *sql.Tx) error {
	for i, m := range models {
		if _, err := tx.Exec(`
			INSERT INTO car_models (id, name, sort_order)
			VALUES ($1, $2, $3)
			ON CONFLICT (id) DO UPDATE SET name = EXCLUDED.name, sort_order = EXCLUDED.sort_order;
		`, m.ID, m.Name, i); err != nil {
			return fmt.Errorf("model %s: %w", m.ID, err)
		}
	}
	return nil
}

func seedVersions(tx *sql.Tx) error {
	for i, v := range versions {
		if _, err := tx.Exec(`
			INSERT INTO car_versions (id, model_id, name, base_price, premium_color_surcharge, sort_order)
			VALUES ($1, $2, $3, $4, $5, $6)
			ON CONFLICT (id) DO UPDATE SET
				model_id = EXCLUDED.model_id,
				name = EXCLUDED.name,
				base_price = EXCLUDED.base_price,
				premium_color_surcharge = EXCLUDED.premium_color_surcharge,
				sort_order = EXCLUDED.sort_order;
		`, v.ID, v.ModelID, v.Name, v.BasePrice, v.Surcharge, i); err != nil {
			return fmt.Errorf("version %s: %w", v.ID, err)
		}
	}
	return nil
}

func seedConfigs(tx *sql.Tx) error {
	for _, c := range configs {
		if _, err := tx.Exec(`
			INSERT INTO quote_configs (id, type, name, value, value_type, target_type, priority,
				apply_to_model_ids, options, model_values, gift_ratio)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::jsonb, $10::jsonb, $11)
			ON CONFLICT (id) DO UPDATE SET
				type = EXCLUDED.type,
				name = EXCLUDED.name,
				value = EXCLUDED.value,
				value_type = EXCLUDED.value_type,
				target_type = EXCLUDED.target_type,
				priority = EXCLUDED.priority,
				apply_to_model_ids = EXCLUDED.apply_to_model_ids,
				options = EXCLUDED.options,
				model_values = EXCLUDED.model_values,
				gift_ratio = EXCLUDED.gift_ratio,
				is_active = TRUE;
		`, c.ID, c.Type, c.Name, orDefault(c.Value, "0"), orDefault(c.ValueType, "fixed"), orDefault(c.TargetType, "invoice"),
			c.Priority, pq.Array(nonNil(c.ModelIDs)), orDefault(c.Options, "[]"), orDefault(c.ModelValues, "{}"), orDefault(c.GiftRatio, "0")); err != nil {
			return fmt.Errorf("config %s: %w", c.ID, err)
		}
	}
	return nil
}

func seedBanks(tx *sql.Tx) error {
	for i, b := range banks {
		if _, err := tx.Exec(`
			INSERT INTO banks (id, name, max_loan_ratio, packages, sort_order)
			VALUES ($1, $2, $3, $4::jsonb, $5)
			ON CONFLICT (id) DO UPDATE SET
				name = EXCLUDED.name,
				max_loan_ratio = EXCLUDED.max_loan_ratio,
				packages = EXCLUDED.packages,
				sort_order = EXCLUDED.sort_order;
		`, b.ID, b.Name, b.MaxLoanRatio, b.Packages, i); err != nil {
			return fmt.Errorf("bank %s: %w", b.ID, err)
		}
	}
	return nil
}

func seedRegistrationServices(tx *sql.Tx) error {
	for i, s := range registrationServices {
		if _, err := tx.Exec(`
			INSERT INTO registration_services (label, value, sort_order)
			VALUES ($1, $2, $3)
			ON CONFLICT (label) DO UPDATE SET value = EXCLUDED.value, sort_order = EXCLUDED.sort_order;
		`, s.Label, s.Value, i); err != nil {
			return fmt.Errorf("registration service %q: %w", s.Label, err)
		}
	}
	return nil
}

func orDefault(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
