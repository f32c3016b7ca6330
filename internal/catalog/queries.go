package catalog

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX is the subset of pgx used by Queries. *pgxpool.Pool and pgx.Tx satisfy it.
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Queries reads catalog tables. Numeric columns are selected as text so they
// can be parsed losslessly into decimals.
type Queries struct {
	db DBTX
}

// NewQueries constructs Queries over a pgx connection or pool.
func NewQueries(db DBTX) *Queries {
	return &Queries{db: db}
}

// ModelRow is a car_models record.
type ModelRow struct {
	ID        string
	Name      string
	SortOrder int32
}

// VersionRow is a car_versions record.
type VersionRow struct {
	ID                    string
	ModelID               string
	Name                  string
	BasePrice             string
	PremiumColorSurcharge string
}

// QuoteConfigRow is a quote_configs record of any type.
type QuoteConfigRow struct {
	ID          string
	Type        string
	Name        string
	Value       string
	ValueType   string
	TargetType  string
	Priority    int32
	ModelIDs    []string
	VersionIDs  []string
	Options     []byte
	ModelValues []byte
	GiftRatio   string
	IsActive    bool
	CreatedAt   time.Time
}

// BankRow is a banks record.
type BankRow struct {
	ID           string
	Name         string
	MaxLoanRatio string
	Packages     []byte
}

// RegistrationServiceRow is a registration_services record.
type RegistrationServiceRow struct {
	Label string
	Value string
}

const listModels = `SELECT id, name, sort_order FROM car_models ORDER BY sort_order, name`

// ListModels returns all vehicle models.
func (q *Queries) ListModels(ctx context.Context) ([]ModelRow, error) {
	rows, err := q.db.Query(ctx, listModels)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []ModelRow
	for rows.Next() {
		var i ModelRow
		if err := rows.Scan(&i.ID, &i.Name, &i.SortOrder); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listVersions = `SELECT id, model_id, name, base_price::text, premium_color_surcharge::text
FROM car_versions ORDER BY model_id, sort_order, name`

// ListVersions returns all vehicle versions.
func (q *Queries) ListVersions(ctx context.Context) ([]VersionRow, error) {
	rows, err := q.db.Query(ctx, listVersions)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []VersionRow
	for rows.Next() {
		var i VersionRow
		if err := rows.Scan(&i.ID, &i.ModelID, &i.Name, &i.BasePrice, &i.PremiumColorSurcharge); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listQuoteConfigs = `SELECT id, type, name, value::text, value_type, target_type, priority,
       apply_to_model_ids, apply_to_version_ids, options, model_values, gift_ratio::text,
       is_active, created_at
FROM quote_configs
WHERE is_active
ORDER BY type, priority, created_at`

// ListActiveQuoteConfigs returns active promotions, fees, gifts, memberships and warranties.
func (q *Queries) ListActiveQuoteConfigs(ctx context.Context) ([]QuoteConfigRow, error) {
	rows, err := q.db.Query(ctx, listQuoteConfigs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []QuoteConfigRow
	for rows.Next() {
		var i QuoteConfigRow
		if err := rows.Scan(
			&i.ID, &i.Type, &i.Name, &i.Value, &i.ValueType, &i.TargetType, &i.Priority,
			&i.ModelIDs, &i.VersionIDs, &i.Options, &i.ModelValues, &i.GiftRatio,
			&i.IsActive, &i.CreatedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listBanks = `SELECT id, name, max_loan_ratio::text, packages FROM banks ORDER BY sort_order, name`

// ListBanks returns all lenders.
func (q *Queries) ListBanks(ctx context.Context) ([]BankRow, error) {
	rows, err := q.db.Query(ctx, listBanks)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []BankRow
	for rows.Next() {
		var i BankRow
		if err := rows.Scan(&i.ID, &i.Name, &i.MaxLoanRatio, &i.Packages); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const listRegistrationServices = `SELECT label, value::text FROM registration_services ORDER BY sort_order, id`

// ListRegistrationServices returns the flat registration service price table.
func (q *Queries) ListRegistrationServices(ctx context.Context) ([]RegistrationServiceRow, error) {
	rows, err := q.db.Query(ctx, listRegistrationServices)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []RegistrationServiceRow
	for rows.Next() {
		var i RegistrationServiceRow
		if err := rows.Scan(&i.Label, &i.Value); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("scan registration services: %w", err)
	}
	return items, nil
}
