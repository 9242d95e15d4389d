// Package installation estimates installation cost for an in-house crew and
// for the region's subcontractors.
package installation

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"solar-quote/internal/apperr"
	"solar-quote/internal/model"
	"solar-quote/internal/validate"

	"github.com/shopspring/decimal"
)

type Option string

const (
	OptionInternal      Option = "internal"
	OptionSubcontractor Option = "subcontractor"
)

// Rate bases, in precedence order.
const (
	BasisDayRate    = "day_rate"
	BasisHourlyRate = "hourly_rate"
	BasisCostPerJob = "cost_per_job"
)

type JobSpecs struct {
	Region              string      `json:"region" validate:"required"`
	SystemSizeKw        float64     `json:"systemSizeKw" validate:"gt=0"`
	PanelCount          int         `json:"panelCount" validate:"gte=0"`
	HasBattery          bool        `json:"hasBattery"`
	BatteryKwh          float64     `json:"batteryKwh" validate:"gte=0"`
	RoofType            string      `json:"roofType,omitempty"`
	Stories             int         `json:"stories,omitempty" validate:"gte=0,lte=5"`
	Phases              int         `json:"phases,omitempty" validate:"omitempty,oneof=1 3"`
	RequiresScaffolding bool        `json:"requiresScaffolding"`
	DifficultAccess     bool        `json:"difficultAccess"`
	HasAsbestos         bool        `json:"hasAsbestos"`
	AddonInstallCost    model.Money `json:"addonInstallCost"`
}

// Tables is the installation reference data.
type Tables struct {
	Factors        []model.ComplexityFactor `yaml:"complexity_factors" json:"complexityFactors"`
	LaborRates     []model.LaborRate        `yaml:"labor_rates" json:"laborRates"`
	Subcontractors []model.Subcontractor    `yaml:"subcontractors" json:"subcontractors"`
}

// SubcontractorQuote is the priced option for one subcontractor.
// Units is days, hours or 1 depending on Basis.
type SubcontractorQuote struct {
	ID    string      `json:"id"`
	Name  string      `json:"name"`
	Basis string      `json:"basis"`
	Rate  model.Money `json:"rate"`
	Units float64     `json:"units"`
	Labor model.Money `json:"labor"`
	Total model.Money `json:"total"`
}

type Estimate struct {
	Region               string                   `json:"region"`
	BaseLaborHours       float64                  `json:"baseLaborHours"`
	ComplexityMultiplier float64                  `json:"complexityMultiplier"`
	JobHours             float64                  `json:"jobHours"`
	AppliedFactors       []model.ComplexityFactor `json:"appliedFactors"`
	MaterialsCost        model.Money              `json:"materialsCost"`

	InternalCost      model.Money         `json:"internalCost"`
	SubcontractorCost *model.Money        `json:"subcontractorCost"`
	Subcontractor     *SubcontractorQuote `json:"subcontractor,omitempty"`

	Recommended     Option      `json:"recommended"`
	RecommendedCost model.Money `json:"recommendedCost"`
}

// Comparison lays both options side by side. Delta is subcontractor minus
// internal; PercentDifference is Delta relative to internal.
type Comparison struct {
	Estimate          Estimate    `json:"estimate"`
	InternalCost      model.Money `json:"internalCost"`
	SubcontractorCost model.Money `json:"subcontractorCost"`
	Delta             model.Money `json:"delta"`
	PercentDifference float64     `json:"percentDifference"`
}

type Estimator struct {
	t Tables
}

func NewEstimator(t Tables) (*Estimator, error) {
	for _, f := range t.Factors {
		if f.Kind == "" || f.Multiplier <= 0 {
			return nil, &apperr.ConfigError{What: "complexity factor", Key: f.Kind + "=" + f.Value, Msg: "kind and a multiplier > 0 are required"}
		}
	}
	for _, r := range t.LaborRates {
		if err := r.Validate(); err != nil {
			return nil, &apperr.ConfigError{What: "labor rate", Key: r.Region, Msg: err.Error()}
		}
	}
	for _, s := range t.Subcontractors {
		if err := s.Validate(); err != nil {
			return nil, &apperr.ConfigError{What: "subcontractor", Key: s.ID, Msg: err.Error()}
		}
	}
	return &Estimator{t: t}, nil
}

func (e *Estimator) laborRate(region string) (model.LaborRate, error) {
	for _, r := range e.t.LaborRates {
		if strings.EqualFold(r.Region, region) {
			return r, nil
		}
	}
	return model.LaborRate{}, apperr.Missing("labor rate", region)
}

func (e *Estimator) complexity(spec JobSpecs) (float64, []model.ComplexityFactor) {
	keys := [][2]string{
		{model.FactorRoofType, spec.RoofType},
		{model.FactorStories, strconv.Itoa(spec.Stories)},
		{model.FactorPhases, strconv.Itoa(spec.Phases)},
		{model.FactorScaffolding, strconv.FormatBool(spec.RequiresScaffolding)},
		{model.FactorAccess, strconv.FormatBool(spec.DifficultAccess)},
		{model.FactorAsbestos, strconv.FormatBool(spec.HasAsbestos)},
	}
	m := 1.0
	var applied []model.ComplexityFactor
	for _, k := range keys {
		if k[1] == "" {
			continue
		}
		for _, f := range e.t.Factors {
			if f.Matches(k[0], k[1]) {
				m *= f.Multiplier
				applied = append(applied, f)
			}
		}
	}
	return m, applied
}

// base computes everything the two options share.
func (e *Estimator) base(spec JobSpecs) (Estimate, model.LaborRate, error) {
	if err := validate.Struct(spec); err != nil {
		return Estimate{}, model.LaborRate{}, err
	}
	if spec.AddonInstallCost.IsNegative() {
		return Estimate{}, model.LaborRate{}, apperr.Invalid("addonInstallCost", "must be >= 0")
	}
	rate, err := e.laborRate(spec.Region)
	if err != nil {
		return Estimate{}, model.LaborRate{}, err
	}

	est := Estimate{Region: spec.Region}
	est.BaseLaborHours = rate.BaseHours + float64(rate.HoursPerKw*spec.SystemSizeKw)
	if spec.HasBattery {
		est.BaseLaborHours += rate.BatteryHours
	}
	est.ComplexityMultiplier, est.AppliedFactors = e.complexity(spec)
	est.JobHours = est.BaseLaborHours * est.ComplexityMultiplier

	materials := rate.MaterialsPerKw.Mul(decimal.NewFromFloat(spec.SystemSizeKw))
	if spec.HasBattery {
		materials = materials.Add(rate.BatteryMaterials)
	}
	if spec.RequiresScaffolding {
		materials = materials.Add(rate.ScaffoldingCost)
	}
	if spec.HasAsbestos {
		materials = materials.Add(rate.AsbestosCost)
	}
	est.MaterialsCost = model.RoundCents(materials.Add(spec.AddonInstallCost))

	labor := rate.HourlyRate.Mul(decimal.NewFromFloat(est.JobHours))
	est.InternalCost = model.RoundCents(labor.Add(est.MaterialsCost))
	return est, rate, nil
}

// subcontract prices the cheapest active subcontractor for the region, or
// returns nil when none is configured. Day rates bill whole days.
func (e *Estimator) subcontract(est Estimate, rate model.LaborRate) *SubcontractorQuote {
	var best *SubcontractorQuote
	for _, s := range e.t.Subcontractors {
		if !s.Active || (s.Region != "" && !strings.EqualFold(s.Region, est.Region)) {
			continue
		}
		q := SubcontractorQuote{ID: s.ID, Name: s.Name}
		switch {
		case s.DayRate != nil:
			q.Basis, q.Rate = BasisDayRate, *s.DayRate
			q.Units = math.Ceil(est.JobHours / rate.HoursPerDay)
		case s.HourlyRate != nil:
			q.Basis, q.Rate = BasisHourlyRate, *s.HourlyRate
			q.Units = est.JobHours
		case s.CostPerJob != nil:
			q.Basis, q.Rate = BasisCostPerJob, *s.CostPerJob
			q.Units = 1
		default:
			continue
		}
		q.Labor = model.RoundCents(q.Rate.Mul(decimal.NewFromFloat(q.Units)))
		q.Total = q.Labor.Add(est.MaterialsCost)
		if best == nil || q.Total.LessThan(best.Total) || (q.Total.Equal(best.Total) && q.ID < best.ID) {
			qq := q
			best = &qq
		}
	}
	return best
}

// Estimate prices both options and recommends the cheaper. With no
// subcontractor configured, SubcontractorCost stays nil and the internal
// cost is recommended. An exact tie goes to the in-house crew.
func (e *Estimator) Estimate(spec JobSpecs) (Estimate, error) {
	est, rate, err := e.base(spec)
	if err != nil {
		return Estimate{}, err
	}
	est.Recommended, est.RecommendedCost = OptionInternal, est.InternalCost
	if sub := e.subcontract(est, rate); sub != nil {
		cost := sub.Total
		est.Subcontractor = sub
		est.SubcontractorCost = &cost
		if cost.LessThan(est.InternalCost) {
			est.Recommended, est.RecommendedCost = OptionSubcontractor, cost
		}
	}
	return est, nil
}

// Compare returns both costs for review without choosing between them.
// It needs a subcontractor for the region.
func (e *Estimator) Compare(spec JobSpecs) (Comparison, error) {
	est, rate, err := e.base(spec)
	if err != nil {
		return Comparison{}, err
	}
	sub := e.subcontract(est, rate)
	if sub == nil {
		return Comparison{}, &apperr.ConfigError{What: "subcontractor", Key: spec.Region, Msg: "no active subcontractor to compare against"}
	}
	cost := sub.Total
	est.Subcontractor = sub
	est.SubcontractorCost = &cost

	c := Comparison{
		Estimate:          est,
		InternalCost:      est.InternalCost,
		SubcontractorCost: cost,
		Delta:             cost.Sub(est.InternalCost),
	}
	if est.InternalCost.IsPositive() {
		pct := c.Delta.Div(est.InternalCost).Mul(decimal.NewFromInt(100)).Round(2)
		c.PercentDifference = pct.InexactFloat64()
	}
	return c, nil
}

func (s SubcontractorQuote) String() string {
	return fmt.Sprintf("%s %s × %g = %s", s.ID, s.Basis, s.Units, s.Total.StringFixed(2))
}
