package model

import (
	"errors"
	"strings"
)

// Complexity factor kinds. Value is matched case-insensitively against the
// corresponding job spec field ("true" for boolean kinds).
const (
	FactorRoofType    = "roof_type"
	FactorStories     = "stories"
	FactorPhases      = "phases"
	FactorScaffolding = "scaffolding"
	FactorAccess      = "difficult_access"
	FactorAsbestos    = "asbestos"
)

type ComplexityFactor struct {
	Kind       string  `yaml:"kind" json:"kind"`
	Value      string  `yaml:"value" json:"value"`
	Multiplier float64 `yaml:"multiplier" json:"multiplier"`
}

func (f ComplexityFactor) Matches(kind, value string) bool {
	return f.Kind == kind && strings.EqualFold(f.Value, value)
}

// LaborRate is the in-house crew cost model for a region.
// Hours are labor hours; HoursPerDay converts them to crew-days for
// subcontractors charging a day rate.
type LaborRate struct {
	Region           string  `yaml:"region" json:"region"`
	HourlyRate       Money   `yaml:"hourly_rate" json:"hourlyRate"`
	BaseHours        float64 `yaml:"base_hours" json:"baseHours"`
	HoursPerKw       float64 `yaml:"hours_per_kw" json:"hoursPerKw"`
	BatteryHours     float64 `yaml:"battery_hours" json:"batteryHours"`
	HoursPerDay      float64 `yaml:"hours_per_day" json:"hoursPerDay"`
	MaterialsPerKw   Money   `yaml:"materials_per_kw" json:"materialsPerKw"`
	BatteryMaterials Money   `yaml:"battery_materials" json:"batteryMaterials"`
	ScaffoldingCost  Money   `yaml:"scaffolding_cost" json:"scaffoldingCost"`
	AsbestosCost     Money   `yaml:"asbestos_cost" json:"asbestosCost"`
}

func (r LaborRate) Validate() error {
	if r.Region == "" {
		return errors.New("region is required")
	}
	if !r.HourlyRate.IsPositive() {
		return errors.New("hourly_rate must be > 0")
	}
	if r.BaseHours < 0 || r.HoursPerKw < 0 || r.BatteryHours < 0 {
		return errors.New("labor hours must be >= 0")
	}
	if r.HoursPerDay <= 0 {
		return errors.New("hours_per_day must be > 0")
	}
	if r.MaterialsPerKw.IsNegative() || r.BatteryMaterials.IsNegative() ||
		r.ScaffoldingCost.IsNegative() || r.AsbestosCost.IsNegative() {
		return errors.New("material costs must be >= 0")
	}
	return nil
}

// Subcontractor rates are nullable: nil means "not offered", never $0.
// Precedence when several are set: DayRate, HourlyRate, CostPerJob.
type Subcontractor struct {
	ID         string `yaml:"id" json:"id"`
	Name       string `yaml:"name" json:"name"`
	Region     string `yaml:"region" json:"region"`
	Active     bool   `yaml:"active" json:"active"`
	DayRate    *Money `yaml:"day_rate" json:"dayRate,omitempty"`
	HourlyRate *Money `yaml:"hourly_rate" json:"hourlyRate,omitempty"`
	CostPerJob *Money `yaml:"cost_per_job" json:"costPerJob,omitempty"`
}

func (s Subcontractor) Validate() error {
	if s.ID == "" {
		return errors.New("id is required")
	}
	for _, r := range []*Money{s.DayRate, s.HourlyRate, s.CostPerJob} {
		if r != nil && !r.IsPositive() {
			return errors.New("subcontractor " + s.ID + ": configured rates must be > 0")
		}
	}
	return nil
}
