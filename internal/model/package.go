package model

import (
	"errors"
	"fmt"
)

type Tier string

const (
	TierBudget  Tier = "budget"
	TierMid     Tier = "mid"
	TierPremium Tier = "premium"
)

type SolarStrategy string

const (
	SolarCoveragePercentage SolarStrategy = "coverage_percentage"
	SolarFixedKw            SolarStrategy = "fixed_kw"
	SolarMaxRoof            SolarStrategy = "max_roof"
)

type BatteryStrategy string

const (
	BatteryNone              BatteryStrategy = "none"
	BatteryCoverageHours     BatteryStrategy = "coverage_hours"
	BatteryFixedKwh          BatteryStrategy = "fixed_kwh"
	BatteryFullOvernight     BatteryStrategy = "full_overnight"
	BatteryDynamicMultiplier BatteryStrategy = "dynamic_multiplier"
)

// Upper bounds on template sizing figures.
const (
	MaxTemplateKw    = 1000
	MaxTemplateKwh   = 1000
	MaxCoveragePct   = 1000
	MaxCoverageHours = 24
)

// PackageTemplate is a pricing/sizing tier. Brand fields are optional
// constraints passed to supplier selection.
type PackageTemplate struct {
	ID                    string          `yaml:"id" json:"id"`
	Tier                  Tier            `yaml:"tier" json:"tier"`
	Name                  string          `yaml:"name" json:"name"`
	SolarSizingStrategy   SolarStrategy   `yaml:"solar_sizing_strategy" json:"solarSizingStrategy"`
	SolarCoveragePercent  float64         `yaml:"solar_coverage_percent" json:"solarCoveragePercent"`
	SolarFixedKw          float64         `yaml:"solar_fixed_kw" json:"solarFixedKw,omitempty"`
	BatterySizingStrategy BatteryStrategy `yaml:"battery_sizing_strategy" json:"batterySizingStrategy"`
	BatteryCoverageHours  float64         `yaml:"battery_coverage_hours" json:"batteryCoverageHours"`
	BatteryFixedKwh       float64         `yaml:"battery_fixed_kwh" json:"batteryFixedKwh,omitempty"`
	PriceMultiplier       float64         `yaml:"price_multiplier" json:"priceMultiplier"`
	PanelBrand            string          `yaml:"panel_brand" json:"panelBrand,omitempty"`
	InverterBrand         string          `yaml:"inverter_brand" json:"inverterBrand,omitempty"`
	BatteryBrand          string          `yaml:"battery_brand" json:"batteryBrand,omitempty"`
	Active                bool            `yaml:"active" json:"active"`
	SortOrder             int             `yaml:"sort_order" json:"sortOrder"`
}

// HasBattery reports whether the tier sizes a battery at all.
func (t PackageTemplate) HasBattery() bool {
	return t.BatterySizingStrategy != "" && t.BatterySizingStrategy != BatteryNone
}

func (t PackageTemplate) Validate() error {
	if t.Tier == "" {
		return errors.New("tier is required")
	}
	if t.PriceMultiplier <= 0 {
		return fmt.Errorf("tier %s: price_multiplier must be > 0", t.Tier)
	}
	switch t.SolarSizingStrategy {
	case SolarCoveragePercentage:
		if t.SolarCoveragePercent <= 0 || t.SolarCoveragePercent > MaxCoveragePct {
			return fmt.Errorf("tier %s: solar_coverage_percent must be in (0, %d]", t.Tier, MaxCoveragePct)
		}
	case SolarFixedKw:
		if t.SolarFixedKw <= 0 || t.SolarFixedKw > MaxTemplateKw {
			return fmt.Errorf("tier %s: solar_fixed_kw must be in (0, %d]", t.Tier, MaxTemplateKw)
		}
	case SolarMaxRoof:
	default:
		return fmt.Errorf("tier %s: unknown solar sizing strategy %q", t.Tier, t.SolarSizingStrategy)
	}
	switch t.BatterySizingStrategy {
	case "", BatteryNone, BatteryFullOvernight:
	case BatteryCoverageHours:
		if t.BatteryCoverageHours <= 0 || t.BatteryCoverageHours > MaxCoverageHours {
			return fmt.Errorf("tier %s: battery_coverage_hours must be in (0, %d]", t.Tier, MaxCoverageHours)
		}
	case BatteryFixedKwh:
		if t.BatteryFixedKwh <= 0 || t.BatteryFixedKwh > MaxTemplateKwh {
			return fmt.Errorf("tier %s: battery_fixed_kwh must be in (0, %d]", t.Tier, MaxTemplateKwh)
		}
	case BatteryDynamicMultiplier:
		switch t.Tier {
		case TierBudget, TierMid, TierPremium:
		default:
			return fmt.Errorf("tier %s: %s needs a budget, mid or premium tier", t.Tier, BatteryDynamicMultiplier)
		}
	default:
		return fmt.Errorf("tier %s: unknown battery sizing strategy %q", t.Tier, t.BatterySizingStrategy)
	}
	return nil
}
