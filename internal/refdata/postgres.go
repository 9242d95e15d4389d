package refdata

import (
	"context"
	"encoding/json"

	"solar-quote/internal/model"
	"solar-quote/internal/sizing"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

// Connect opens a pool and checks the database is reachable.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "failed to reach database")
	}
	return pool, nil
}

// PostgresSource reads reference data from the tables created by Migrate.
// Money columns are selected as text and parsed into decimals, so no value
// passes through a float.
type PostgresSource struct {
	pool *pgxpool.Pool
}

func NewPostgresSource(pool *pgxpool.Pool) *PostgresSource { return &PostgresSource{pool: pool} }

func (s *PostgresSource) Load(ctx context.Context) (*RawData, error) {
	// One read-only repeatable-read transaction gives every table the same
	// point in time.
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, errors.Wrap(err, "failed to begin snapshot transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	var raw RawData
	steps := []struct {
		name string
		fn   func(context.Context, pgx.Tx, *RawData) error
	}{
		{"zone_ratings", loadZones},
		{"rebate_configs", loadRebates},
		{"products", loadProducts},
		{"suppliers", loadSuppliers},
		{"supplier_products", loadSupplierProducts},
		{"package_templates", loadPackages},
		{"complexity_factors", loadFactors},
		{"labor_rates", loadLaborRates},
		{"subcontractors", loadSubcontractors},
		{"addons", loadAddons},
		{"quote_settings", loadQuoteSettings},
		{"solar_yields", loadYields},
		{"consumption_assumptions", loadConsumption},
	}
	for _, st := range steps {
		if err := st.fn(ctx, tx, &raw); err != nil {
			return nil, errors.Wrapf(err, "failed to load %s", st.name)
		}
	}
	return &raw, nil
}

func money(s string) (model.Money, error) {
	return decimal.NewFromString(s)
}

func optMoney(s *string) (*model.Money, error) {
	if s == nil {
		return nil, nil
	}
	m, err := money(*s)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func loadZones(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `
		SELECT postcode_start, postcode_end, zone, zone_rating, state
		FROM zone_ratings
		ORDER BY postcode_start, id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var z model.ZoneRating
		if err := rows.Scan(&z.PostcodeStart, &z.PostcodeEnd, &z.Zone, &z.Rating, &z.State); err != nil {
			return err
		}
		raw.Zones = append(raw.Zones, z)
	}
	return rows.Err()
}

func loadRebates(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `
		SELECT id, type, region, active, variables, formula
		FROM rebate_configs
		ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			c    model.RebateConfig
			vars []byte
		)
		if err := rows.Scan(&c.ID, &c.Type, &c.Region, &c.Active, &vars, &c.Formula); err != nil {
			return err
		}
		if err := json.Unmarshal(vars, &c.Variables); err != nil {
			return errors.Wrapf(err, "rebate config %q: variables", c.ID)
		}
		raw.Rebates = append(raw.Rebates, c)
	}
	return rows.Err()
}

func loadProducts(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `
		SELECT id, product_type, brand_id, manufacturer, name, wattage_w, capacity_kwh, capacity_kw
		FROM products
		ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.Product
		sp := &p.Specifications
		if err := rows.Scan(&p.ID, &p.Type, &p.BrandID, &p.Manufacturer, &p.Name, &sp.WattageW, &sp.CapacityKwh, &sp.CapacityKw); err != nil {
			return err
		}
		raw.Products = append(raw.Products, p)
	}
	return rows.Err()
}

func loadSuppliers(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `SELECT id, name, active FROM suppliers ORDER BY id`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var s model.Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.Active); err != nil {
			return err
		}
		raw.Suppliers = append(raw.Suppliers, s)
	}
	return rows.Err()
}

// A NULL retail price is read as 0 so catalog integrity rejects it by id.
func loadSupplierProducts(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `
		SELECT id, supplier_id, product_id, unit_cost::text, COALESCE(retail_price, 0)::text,
		       markup_percent, active, is_primary
		FROM supplier_products
		ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			sp           model.SupplierProduct
			cost, retail string
		)
		if err := rows.Scan(&sp.ID, &sp.SupplierID, &sp.ProductID, &cost, &retail, &sp.MarkupPercent, &sp.Active, &sp.Primary); err != nil {
			return err
		}
		if sp.UnitCost, err = money(cost); err != nil {
			return errors.Wrapf(err, "supplier product %q: unit_cost", sp.ID)
		}
		if sp.RetailPrice, err = money(retail); err != nil {
			return errors.Wrapf(err, "supplier product %q: retail_price", sp.ID)
		}
		raw.SupplierProducts = append(raw.SupplierProducts, sp)
	}
	return rows.Err()
}

func loadPackages(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `
		SELECT id, tier, name, solar_sizing_strategy, solar_coverage_percent, solar_fixed_kw,
		       battery_sizing_strategy, battery_coverage_hours, battery_fixed_kwh, price_multiplier,
		       panel_brand, inverter_brand, battery_brand, active, sort_order
		FROM package_templates
		ORDER BY sort_order, id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var p model.PackageTemplate
		if err := rows.Scan(&p.ID, &p.Tier, &p.Name, &p.SolarSizingStrategy, &p.SolarCoveragePercent, &p.SolarFixedKw,
			&p.BatterySizingStrategy, &p.BatteryCoverageHours, &p.BatteryFixedKwh, &p.PriceMultiplier,
			&p.PanelBrand, &p.InverterBrand, &p.BatteryBrand, &p.Active, &p.SortOrder); err != nil {
			return err
		}
		raw.Packages = append(raw.Packages, p)
	}
	return rows.Err()
}

func loadFactors(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `SELECT kind, value, multiplier FROM complexity_factors ORDER BY kind, value`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var f model.ComplexityFactor
		if err := rows.Scan(&f.Kind, &f.Value, &f.Multiplier); err != nil {
			return err
		}
		raw.Installation.Factors = append(raw.Installation.Factors, f)
	}
	return rows.Err()
}

func loadLaborRates(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `
		SELECT region, hourly_rate::text, base_hours, hours_per_kw, battery_hours, hours_per_day,
		       materials_per_kw::text, battery_materials::text, scaffolding_cost::text, asbestos_cost::text
		FROM labor_rates
		ORDER BY region
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			r     model.LaborRate
			texts [5]string
		)
		if err := rows.Scan(&r.Region, &texts[0], &r.BaseHours, &r.HoursPerKw, &r.BatteryHours, &r.HoursPerDay,
			&texts[1], &texts[2], &texts[3], &texts[4]); err != nil {
			return err
		}
		dst := []*model.Money{&r.HourlyRate, &r.MaterialsPerKw, &r.BatteryMaterials, &r.ScaffoldingCost, &r.AsbestosCost}
		for i, t := range texts {
			if *dst[i], err = money(t); err != nil {
				return errors.Wrapf(err, "labor rate %q", r.Region)
			}
		}
		raw.Installation.LaborRates = append(raw.Installation.LaborRates, r)
	}
	return rows.Err()
}

func loadSubcontractors(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `
		SELECT id, name, region, active, day_rate::text, hourly_rate::text, cost_per_job::text
		FROM subcontractors
		ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			s                 model.Subcontractor
			day, hourly, jobs *string
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.Region, &s.Active, &day, &hourly, &jobs); err != nil {
			return err
		}
		if s.DayRate, err = optMoney(day); err != nil {
			return errors.Wrapf(err, "subcontractor %q: day_rate", s.ID)
		}
		if s.HourlyRate, err = optMoney(hourly); err != nil {
			return errors.Wrapf(err, "subcontractor %q: hourly_rate", s.ID)
		}
		if s.CostPerJob, err = optMoney(jobs); err != nil {
			return errors.Wrapf(err, "subcontractor %q: cost_per_job", s.ID)
		}
		raw.Installation.Subcontractors = append(raw.Installation.Subcontractors, s)
	}
	return rows.Err()
}

func loadAddons(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `
		SELECT id, name, category, cost::text, install_cost::text, active
		FROM addons
		ORDER BY id
	`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			a             model.Addon
			cost, install string
		)
		if err := rows.Scan(&a.ID, &a.Name, &a.Category, &cost, &install, &a.Active); err != nil {
			return err
		}
		if a.Cost, err = money(cost); err != nil {
			return errors.Wrapf(err, "addon %q: cost", a.ID)
		}
		if a.InstallCost, err = money(install); err != nil {
			return errors.Wrapf(err, "addon %q: install_cost", a.ID)
		}
		raw.Addons = append(raw.Addons, a)
	}
	return rows.Err()
}

func loadQuoteSettings(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `SELECT region, minimum_profit::text, validity_days FROM quote_settings ORDER BY region`)
	if err != nil {
		return err
	}
	defer rows.Close()
	for rows.Next() {
		var (
			qs        model.QuoteSettings
			minProfit string
		)
		if err := rows.Scan(&qs.Region, &minProfit, &qs.ValidityDays); err != nil {
			return err
		}
		if qs.MinimumProfit, err = money(minProfit); err != nil {
			return errors.Wrapf(err, "quote settings %q: minimum_profit", qs.Region)
		}
		raw.QuoteSettings = append(raw.QuoteSettings, qs)
	}
	return rows.Err()
}

func loadYields(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	rows, err := tx.Query(ctx, `SELECT state, kwh_per_kw_day FROM solar_yields`)
	if err != nil {
		return err
	}
	defer rows.Close()
	raw.SolarYieldByState = map[string]float64{}
	for rows.Next() {
		var (
			state string
			y     float64
		)
		if err := rows.Scan(&state, &y); err != nil {
			return err
		}
		raw.SolarYieldByState[state] = y
	}
	return rows.Err()
}

func loadConsumption(ctx context.Context, tx pgx.Tx, raw *RawData) error {
	var data []byte
	err := tx.QueryRow(ctx, `SELECT data FROM consumption_assumptions WHERE id = 1`).Scan(&data)
	if err == pgx.ErrNoRows {
		return nil
	}
	if err != nil {
		return err
	}
	var a sizing.Assumptions
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	raw.Consumption = &a
	return nil
}
