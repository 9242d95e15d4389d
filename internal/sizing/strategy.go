package sizing

import (
	"solar-quote/internal/apperr"
	"solar-quote/internal/model"
)

// Context is what a sizing strategy sees.
type Context struct {
	Demand      Demand
	Template    model.PackageTemplate
	YieldFactor float64 // kWh per kW per day
	Buffer      float64 // battery oversizing factor, 1 = none
	MaxRoofKw   float64 // 0 when the roof is unknown
}

// SolarStrategy returns the target array size in kW.
type SolarStrategy interface {
	Name() string
	TargetKw(ctx Context) float64
}

// BatteryStrategy returns the target storage in kWh before snapping to a
// catalog capacity.
type BatteryStrategy interface {
	Name() string
	TargetKwh(ctx Context) float64
}

// CoveragePercentage covers a share of daily consumption:
// daily × percent / 100 / yield.
type CoveragePercentage struct{}

func (CoveragePercentage) Name() string { return string(model.SolarCoveragePercentage) }

func (CoveragePercentage) TargetKw(ctx Context) float64 {
	production := ctx.Demand.DailyKwh * ctx.Template.SolarCoveragePercent / 100
	return production / ctx.YieldFactor
}

type FixedKw struct{}

func (FixedKw) Name() string { return string(model.SolarFixedKw) }

func (FixedKw) TargetKw(ctx Context) float64 { return ctx.Template.SolarFixedKw }

// MaxRoof fills the roof.
type MaxRoof struct{}

func (MaxRoof) Name() string { return string(model.SolarMaxRoof) }

func (MaxRoof) TargetKw(ctx Context) float64 { return ctx.MaxRoofKw }

type NoBattery struct{}

func (NoBattery) Name() string { return string(model.BatteryNone) }

func (NoBattery) TargetKwh(Context) float64 { return 0 }

// CoverageHours stores enough to run the average evening load for the
// template's coverage hours.
type CoverageHours struct{}

func (CoverageHours) Name() string { return string(model.BatteryCoverageHours) }

func (CoverageHours) TargetKwh(ctx Context) float64 {
	return ctx.Demand.EveningLoadKw * ctx.Template.BatteryCoverageHours * ctx.Buffer
}

type FixedKwh struct{}

func (FixedKwh) Name() string { return string(model.BatteryFixedKwh) }

func (FixedKwh) TargetKwh(ctx Context) float64 { return ctx.Template.BatteryFixedKwh }

// FullOvernight stores the whole evening and night usage.
type FullOvernight struct{}

func (FullOvernight) Name() string { return string(model.BatteryFullOvernight) }

func (FullOvernight) TargetKwh(ctx Context) float64 {
	return (ctx.Demand.EveningKwh + ctx.Demand.NightKwh) * ctx.Buffer
}

// Tier factors for DynamicMultiplier.
const (
	budgetEveningShare = 0.6
	midNightShare      = 0.5
	premiumBuffer      = 1.1
)

// DynamicMultiplier scales storage with the tier: budget covers part of the
// evening peak, mid the evening plus half the night, premium the whole
// evening and night with a 10% loss allowance. The engine buffer does not
// apply.
type DynamicMultiplier struct{}

func (DynamicMultiplier) Name() string { return string(model.BatteryDynamicMultiplier) }

func (DynamicMultiplier) TargetKwh(ctx Context) float64 {
	d := ctx.Demand
	switch ctx.Template.Tier {
	case model.TierBudget:
		return d.EveningKwh * budgetEveningShare
	case model.TierMid:
		return d.EveningKwh + d.NightKwh*midNightShare
	case model.TierPremium:
		return (d.EveningKwh + d.NightKwh) * premiumBuffer
	}
	return 0
}

func solarStrategy(name model.SolarStrategy) (SolarStrategy, error) {
	switch name {
	case model.SolarCoveragePercentage:
		return CoveragePercentage{}, nil
	case model.SolarFixedKw:
		return FixedKw{}, nil
	case model.SolarMaxRoof:
		return MaxRoof{}, nil
	}
	return nil, &apperr.ConfigError{What: "solar sizing strategy", Key: string(name), Msg: "unknown strategy"}
}

func batteryStrategy(name model.BatteryStrategy) (BatteryStrategy, error) {
	switch name {
	case "", model.BatteryNone:
		return NoBattery{}, nil
	case model.BatteryCoverageHours:
		return CoverageHours{}, nil
	case model.BatteryFixedKwh:
		return FixedKwh{}, nil
	case model.BatteryFullOvernight:
		return FullOvernight{}, nil
	case model.BatteryDynamicMultiplier:
		return DynamicMultiplier{}, nil
	}
	return nil, &apperr.ConfigError{What: "battery sizing strategy", Key: string(name), Msg: "unknown strategy"}
}
