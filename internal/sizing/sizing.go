// Package sizing derives array size, panel count and battery capacity from
// a household's consumption and a package tier.
package sizing

import (
	"errors"
	"math"

	"solar-quote/internal/apperr"
	"solar-quote/internal/catalog"
	"solar-quote/internal/model"
)

// Params are the engine-wide sizing settings.
// EveningShare and NightShare split daily usage when the profile has no
// measured figures; NighttimeHours spreads that energy into an average load.
type Params struct {
	EveningShare   float64
	NightShare     float64
	NighttimeHours float64
	BatteryBuffer  float64
}

func (p Params) Validate() error {
	if p.EveningShare < 0 || p.NightShare < 0 || p.EveningShare+p.NightShare > 1 {
		return &apperr.ConfigError{What: "sizing params", Msg: "evening_share and night_share must be >= 0 and sum to <= 1"}
	}
	if p.NighttimeHours <= 0 || p.NighttimeHours > 24 {
		return &apperr.ConfigError{What: "sizing params", Key: "nighttime_hours", Msg: "must be in (0, 24]"}
	}
	if p.BatteryBuffer < 1 {
		return &apperr.ConfigError{What: "sizing params", Key: "battery_buffer", Msg: "must be >= 1"}
	}
	return nil
}

// Count limits. Targets needing more are rejected as input errors rather
// than converted to int.
const (
	MaxPanels       = 10000
	MaxBatteryUnits = 1000
)

// ErrNoBatteryCapacity is returned by SnapBattery when the catalog offers no
// battery capacity at all.
var ErrNoBatteryCapacity = errors.New("no battery capacity available")

// Roof is the site's physical limit. MaxPanels 0 means unknown: the array is
// not capped and the max_roof strategy cannot be used.
type Roof struct {
	MaxPanels int
}

// Catalog is the slice of the product catalog sizing depends on.
type Catalog struct {
	PanelWattageW float64
	// BatteryCapacitiesKwh must be ascending. BatteryBrand is reported when
	// no capacity is available.
	BatteryCapacitiesKwh []float64
	BatteryBrand         string
}

// Demand is the usage a system is sized against.
type Demand struct {
	DailyKwh      float64   `json:"dailyKwh"`
	EveningKwh    float64   `json:"eveningKwh"`
	NightKwh      float64   `json:"nightKwh"`
	EveningLoadKw float64   `json:"eveningLoadKw"`
	Estimate      *Estimate `json:"estimate,omitempty"`
}

type Result struct {
	Demand          Demand `json:"demand"`
	SolarStrategy   string `json:"solarStrategy"`
	BatteryStrategy string `json:"batteryStrategy"`

	TargetDailyProductionKwh float64 `json:"targetDailyProductionKwh"`
	TargetSystemKw           float64 `json:"targetSystemKw"`
	MaxRoofKw                float64 `json:"maxRoofKw,omitempty"`
	RoofLimited              bool    `json:"roofLimited,omitempty"`
	PanelWattageW            float64 `json:"panelWattageW"`
	PanelCount               int     `json:"panelCount"`
	SystemSizeKw             float64 `json:"systemSizeKw"`

	TargetBatteryKwh float64 `json:"targetBatteryKwh"`
	BatteryUnitKwh   float64 `json:"batteryUnitKwh"`
	BatteryUnits     int     `json:"batteryUnits"`
	BatteryKwh       float64 `json:"batteryKwh"`
}

type Engine struct {
	assumptions *Assumptions
	params      Params
}

// NewEngine builds an engine. assumptions may be nil, in which case every
// profile must carry a measured DailyConsumptionKwh.
func NewEngine(assumptions *Assumptions, params Params) (*Engine, error) {
	if err := params.Validate(); err != nil {
		return nil, err
	}
	if assumptions != nil {
		if err := assumptions.Validate(); err != nil {
			return nil, err
		}
	}
	return &Engine{assumptions: assumptions, params: params}, nil
}

// Demand resolves the usage figures for a profile, estimating daily
// consumption from the assumptions when it is not given.
func (e *Engine) Demand(p model.ConsumptionProfile) (Demand, error) {
	var d Demand
	switch {
	case p.DailyConsumptionKwh < 0 || math.IsNaN(p.DailyConsumptionKwh) || math.IsInf(p.DailyConsumptionKwh, 0):
		return Demand{}, apperr.Invalid("dailyConsumptionKwh", "must be a finite number >= 0")
	case p.DailyConsumptionKwh > 0:
		d.DailyKwh = p.DailyConsumptionKwh
	case e.assumptions == nil:
		return Demand{}, apperr.Missing("consumption assumptions", "")
	default:
		est, err := e.assumptions.DailyConsumption(p)
		if err != nil {
			return Demand{}, err
		}
		d.DailyKwh = est.TotalKwh
		d.Estimate = &est
	}

	d.EveningKwh = p.EveningUsageKwh
	if d.EveningKwh <= 0 {
		d.EveningKwh = d.DailyKwh * e.params.EveningShare
	}
	d.NightKwh = p.NightUsageKwh
	if d.NightKwh <= 0 {
		d.NightKwh = d.DailyKwh * e.params.NightShare
	}
	d.EveningLoadKw = (d.EveningKwh + d.NightKwh) / e.params.NighttimeHours
	return d, nil
}

// Size runs the template's solar and battery strategies. The array is the
// smallest whole number of panels reaching the target; the battery is the
// smallest catalog capacity at or above its target, or several units of the
// largest capacity when no single unit is big enough. A known roof caps every
// solar strategy at roof.MaxPanels.
func (e *Engine) Size(p model.ConsumptionProfile, t model.PackageTemplate, yieldFactor float64, cat Catalog, roof Roof) (Result, error) {
	if yieldFactor <= 0 || math.IsNaN(yieldFactor) || math.IsInf(yieldFactor, 0) {
		return Result{}, &apperr.ConfigError{What: "solar yield factor", Msg: "must be > 0"}
	}
	if cat.PanelWattageW <= 0 {
		return Result{}, &apperr.ConfigError{What: "panel wattage", Msg: "must be > 0"}
	}
	solar, err := solarStrategy(t.SolarSizingStrategy)
	if err != nil {
		return Result{}, err
	}
	battery, err := batteryStrategy(t.BatterySizingStrategy)
	if err != nil {
		return Result{}, err
	}
	if roof.MaxPanels < 0 || roof.MaxPanels > MaxPanels {
		return Result{}, apperr.Invalid("site.maxPanels", "must be between 0 and %d", MaxPanels)
	}
	if roof.MaxPanels == 0 && t.SolarSizingStrategy == model.SolarMaxRoof {
		return Result{}, apperr.Invalid("site.maxPanels", "is required for the %s strategy", model.SolarMaxRoof)
	}
	d, err := e.Demand(p)
	if err != nil {
		return Result{}, err
	}

	maxRoofKw := arrayKw(roof.MaxPanels, cat.PanelWattageW)
	ctx := Context{Demand: d, Template: t, YieldFactor: yieldFactor, Buffer: e.params.BatteryBuffer, MaxRoofKw: maxRoofKw}
	r := Result{
		Demand:          d,
		SolarStrategy:   solar.Name(),
		BatteryStrategy: battery.Name(),
		PanelWattageW:   cat.PanelWattageW,
	}

	r.TargetSystemKw = solar.TargetKw(ctx)
	if roof.MaxPanels > 0 {
		r.MaxRoofKw = maxRoofKw
		if r.TargetSystemKw > maxRoofKw {
			r.TargetSystemKw, r.RoofLimited = maxRoofKw, true
		}
	}
	r.TargetDailyProductionKwh = r.TargetSystemKw * yieldFactor
	if r.PanelCount, err = PanelCount(r.TargetSystemKw, cat.PanelWattageW); err != nil {
		return Result{}, err
	}
	if roof.MaxPanels > 0 && r.PanelCount > roof.MaxPanels {
		r.PanelCount = roof.MaxPanels
	}
	r.SystemSizeKw = arrayKw(r.PanelCount, cat.PanelWattageW)

	r.TargetBatteryKwh = battery.TargetKwh(ctx)
	if r.TargetBatteryKwh > 0 {
		unit, units, err := SnapBattery(r.TargetBatteryKwh, cat.BatteryCapacitiesKwh)
		if errors.Is(err, ErrNoBatteryCapacity) {
			return Result{}, &catalog.UnavailableProductError{Category: model.ProductBattery, BrandID: cat.BatteryBrand}
		}
		if err != nil {
			return Result{}, err
		}
		r.BatteryUnitKwh = unit
		r.BatteryUnits = units
		r.BatteryKwh = unit * float64(units)
	}
	return r, nil
}

func arrayKw(n int, wattageW float64) float64 {
	return float64(n) * wattageW / 1000
}

// PanelCount is the smallest n >= 0 with n × wattageW / 1000 >= targetKw.
// A target needing more than MaxPanels panels is an input error.
func PanelCount(targetKw, wattageW float64) (int, error) {
	if targetKw <= 0 || wattageW <= 0 {
		return 0, nil
	}
	ratio := math.Ceil(targetKw * 1000 / wattageW)
	if !(ratio <= MaxPanels) {
		return 0, apperr.Invalid("systemSizeKw", "target %g kW needs more than %d panels", targetKw, MaxPanels)
	}
	n := int(ratio)
	// Correct for rounding in the division so the predicate, evaluated the
	// same way arrayKw evaluates it, holds at n and fails at n-1.
	for n > 0 && arrayKw(n-1, wattageW) >= targetKw {
		n--
	}
	for arrayKw(n, wattageW) < targetKw {
		n++
	}
	return n, nil
}

// SnapBattery picks the unit capacity and count for targetKwh from the
// ascending capacities. It returns ErrNoBatteryCapacity when there are no
// capacities, and an input error when more than MaxBatteryUnits units would
// be needed.
func SnapBattery(targetKwh float64, capacities []float64) (unit float64, units int, err error) {
	if len(capacities) == 0 {
		return 0, 0, ErrNoBatteryCapacity
	}
	for _, c := range capacities {
		if c >= targetKwh {
			return c, 1, nil
		}
	}
	largest := capacities[len(capacities)-1]
	count := math.Ceil(targetKwh / largest)
	if !(count <= MaxBatteryUnits) {
		return 0, 0, apperr.Invalid("batteryKwh", "target %g kWh needs more than %d units of %g kWh", targetKwh, MaxBatteryUnits, largest)
	}
	return largest, int(count), nil
}
