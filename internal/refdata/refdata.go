// Package refdata loads the reference tables a quote is computed from and
// serves them as immutable snapshots.
package refdata

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"time"

	"solar-quote/internal/apperr"
	"solar-quote/internal/catalog"
	"solar-quote/internal/formula"
	"solar-quote/internal/installation"
	"solar-quote/internal/model"
	"solar-quote/internal/rebate"
	"solar-quote/internal/sizing"
	"solar-quote/internal/zone"

	"gopkg.in/yaml.v3"
)

// RawData is the reference data as stored, before validation.
type RawData struct {
	Zones             []model.ZoneRating      `yaml:"zones"`
	Rebates           []model.RebateConfig    `yaml:"rebates"`
	Products          []model.Product         `yaml:"products"`
	Suppliers         []model.Supplier        `yaml:"suppliers"`
	SupplierProducts  []model.SupplierProduct `yaml:"supplier_products"`
	Packages          []model.PackageTemplate `yaml:"packages"`
	Installation      installation.Tables     `yaml:"installation"`
	Addons            []model.Addon           `yaml:"addons"`
	QuoteSettings     []model.QuoteSettings   `yaml:"quote_settings"`
	SolarYieldByState map[string]float64      `yaml:"solar_yield_by_state"`
	// Consumption is optional; without it every profile must carry a
	// measured daily consumption.
	Consumption *sizing.Assumptions `yaml:"consumption,omitempty"`
}

// Source fetches the current reference data.
type Source interface {
	Load(ctx context.Context) (*RawData, error)
}

// SourceFunc adapts a function to Source.
type SourceFunc func(ctx context.Context) (*RawData, error)

func (f SourceFunc) Load(ctx context.Context) (*RawData, error) { return f(ctx) }

// Snapshot is one consistent, validated view of the reference data. Nothing
// in it is modified after Build returns, so it can be shared freely.
type Snapshot struct {
	Version  string
	LoadedAt time.Time

	Zones        *zone.Resolver
	Rebates      *rebate.Calculator
	Catalog      *catalog.Catalog
	Installation *installation.Estimator
	Assumptions  *sizing.Assumptions

	tables   installation.Tables
	packages []model.PackageTemplate
	addons   map[string]model.Addon
	settings map[string]model.QuoteSettings
	yields   map[string]float64
}

// Build validates raw and assembles a snapshot. Any inconsistency rejects
// the whole snapshot.
func Build(raw *RawData) (*Snapshot, error) {
	if raw == nil {
		return nil, apperr.Missing("reference data", "")
	}
	s := &Snapshot{
		LoadedAt: time.Now().UTC(),
		tables:   raw.Installation,
		addons:   make(map[string]model.Addon, len(raw.Addons)),
		settings: make(map[string]model.QuoteSettings, len(raw.QuoteSettings)),
		yields:   make(map[string]float64, len(raw.SolarYieldByState)),
	}

	var err error
	if s.Zones, err = zone.NewResolver(raw.Zones); err != nil {
		return nil, fmt.Errorf("zones: %w", err)
	}
	if err := checkRebates(raw.Rebates); err != nil {
		return nil, fmt.Errorf("rebates: %w", err)
	}
	if s.Rebates, err = rebate.NewCalculator(s.Zones, raw.Rebates); err != nil {
		return nil, fmt.Errorf("rebates: %w", err)
	}
	if s.Catalog, err = catalog.New(raw.Products, raw.Suppliers, raw.SupplierProducts); err != nil {
		return nil, fmt.Errorf("catalog: %w", err)
	}
	if s.packages, err = checkPackages(raw.Packages); err != nil {
		return nil, fmt.Errorf("packages: %w", err)
	}
	if s.Installation, err = installation.NewEstimator(raw.Installation); err != nil {
		return nil, fmt.Errorf("installation: %w", err)
	}

	for _, a := range raw.Addons {
		if err := a.Validate(); err != nil {
			return nil, &apperr.ConfigError{What: "addon", Key: a.ID, Msg: err.Error()}
		}
		if _, dup := s.addons[a.ID]; dup {
			return nil, &apperr.ConfigError{What: "addon", Key: a.ID, Msg: "duplicate id"}
		}
		s.addons[a.ID] = a
	}
	for _, qs := range raw.QuoteSettings {
		if err := qs.Validate(); err != nil {
			return nil, &apperr.ConfigError{What: "quote settings", Key: qs.Region, Msg: err.Error()}
		}
		key := strings.ToUpper(qs.Region)
		if _, dup := s.settings[key]; dup {
			return nil, &apperr.ConfigError{What: "quote settings", Key: qs.Region, Msg: "duplicate region"}
		}
		s.settings[key] = qs
	}
	for state, y := range raw.SolarYieldByState {
		if y <= 0 {
			return nil, &apperr.ConfigError{What: "solar yield", Key: state, Msg: "must be > 0"}
		}
		s.yields[strings.ToUpper(state)] = y
	}
	if raw.Consumption != nil {
		if err := raw.Consumption.Validate(); err != nil {
			return nil, err
		}
		s.Assumptions = raw.Consumption
	}

	if s.Version, err = version(raw); err != nil {
		return nil, err
	}
	return s, nil
}

// checkRebates rejects duplicate IDs and battery formulas that do not
// compile, so a bad operator edit fails the reseed rather than a quote.
func checkRebates(configs []model.RebateConfig) error {
	seen := map[string]bool{}
	for _, c := range configs {
		if seen[c.ID] {
			return &apperr.ConfigError{What: "rebate config", Key: c.ID, Msg: "duplicate id"}
		}
		seen[c.ID] = true
		if c.IsBattery() && c.Active {
			if _, err := formula.Compile(c.Formula); err != nil {
				return &rebate.Error{ConfigID: c.ID, Type: c.Type, Region: c.Region, Formula: c.Formula, Err: err}
			}
		}
	}
	return nil
}

func checkPackages(in []model.PackageTemplate) ([]model.PackageTemplate, error) {
	active := map[model.Tier]string{}
	out := make([]model.PackageTemplate, 0, len(in))
	for _, p := range in {
		if err := p.Validate(); err != nil {
			return nil, &apperr.ConfigError{What: "package template", Key: p.ID, Msg: err.Error()}
		}
		if p.Active {
			if other, dup := active[p.Tier]; dup {
				return nil, &apperr.ConfigError{What: "package template", Key: string(p.Tier),
					Msg: fmt.Sprintf("both %q and %q are active", other, p.ID)}
			}
			active[p.Tier] = p.ID
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].SortOrder != out[j].SortOrder {
			return out[i].SortOrder < out[j].SortOrder
		}
		return out[i].Tier < out[j].Tier
	})
	return out, nil
}

// version is a content hash, so two loads of identical data share a version.
func version(raw *RawData) (string, error) {
	b, err := yaml.Marshal(raw)
	if err != nil {
		return "", fmt.Errorf("hash reference data: %w", err)
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])[:12], nil
}

// Package returns the active template for tier.
func (s *Snapshot) Package(tier model.Tier) (model.PackageTemplate, error) {
	for _, p := range s.packages {
		if p.Active && p.Tier == tier {
			return p, nil
		}
	}
	return model.PackageTemplate{}, apperr.Missing("package template", string(tier))
}

// Packages lists the active templates in display order.
func (s *Snapshot) Packages() []model.PackageTemplate {
	var out []model.PackageTemplate
	for _, p := range s.packages {
		if p.Active {
			out = append(out, p)
		}
	}
	return out
}

func (s *Snapshot) Addon(id string) (model.Addon, bool) {
	a, ok := s.addons[id]
	return a, ok
}

// Settings returns the commercial settings for region.
func (s *Snapshot) Settings(region string) (model.QuoteSettings, error) {
	qs, ok := s.settings[strings.ToUpper(region)]
	if !ok {
		return model.QuoteSettings{}, apperr.Missing("quote settings", region)
	}
	return qs, nil
}

// Yield is the expected kWh per installed kW per day for a state.
func (s *Snapshot) Yield(state string) (float64, error) {
	y, ok := s.yields[strings.ToUpper(state)]
	if !ok {
		return 0, apperr.Missing("solar yield", state)
	}
	return y, nil
}

// InstallationTables exposes the raw installation tables, e.g. for listing
// subcontractors.
func (s *Snapshot) InstallationTables() installation.Tables { return s.tables }

// Counts summarises the snapshot for logs and the health endpoint.
func (s *Snapshot) Counts() map[string]int {
	_, suppliers, listings, sellable := s.Catalog.Stats()
	return map[string]int{
		"zones":          s.Zones.Len(),
		"rebate_configs": len(s.Rebates.Configs()),
		"suppliers":      suppliers,
		"listings":       listings,
		"sellable":       sellable,
		"packages":       len(s.packages),
		"addons":         len(s.addons),
		"regions":        len(s.settings),
	}
}
