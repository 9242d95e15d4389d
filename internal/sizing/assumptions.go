package sizing

import (
	"fmt"
	"strconv"
	"strings"

	"solar-quote/internal/apperr"
	"solar-quote/internal/model"
)

// MaxHouseholdBand is the largest household size with its own baseline;
// bigger households use this band.
const MaxHouseholdBand = 7

// Assumptions are the per-household daily usage figures (kWh/day) used to
// estimate consumption when the customer has no measured figure.
type Assumptions struct {
	BaselineByHousehold map[int]float64           `yaml:"baseline_by_household" json:"baselineByHousehold"`
	ACByTier            map[model.ACUsage]float64 `yaml:"ac_by_tier" json:"acByTier"`
	HotWaterByHousehold map[int]float64           `yaml:"hot_water_by_household" json:"hotWaterByHousehold"`
	// EVChargingPowerKw is keyed by charging method (granny, wallbox...).
	EVChargingPowerKw map[string]float64 `yaml:"ev_charging_power_kw" json:"evChargingPowerKw"`
	EVPerVehicleKwh   float64            `yaml:"ev_per_vehicle_kwh" json:"evPerVehicleKwh"`
	// PoolKwh is keyed by "heated" / "unheated".
	PoolKwh       map[string]float64 `yaml:"pool_kwh" json:"poolKwh"`
	HomeOfficeKwh float64            `yaml:"home_office_kwh" json:"homeOfficeKwh"`
}

func (a *Assumptions) Validate() error {
	if len(a.BaselineByHousehold) == 0 {
		return &apperr.ConfigError{What: "consumption assumptions", Key: "baseline_by_household", Msg: "is empty"}
	}
	for k, v := range a.BaselineByHousehold {
		if k < 1 || v < 0 {
			return &apperr.ConfigError{What: "consumption assumptions", Key: "baseline_by_household", Msg: fmt.Sprintf("bad entry %d=%g", k, v)}
		}
	}
	for _, m := range []map[string]float64{a.EVChargingPowerKw, a.PoolKwh} {
		for k, v := range m {
			if v < 0 {
				return &apperr.ConfigError{What: "consumption assumptions", Key: k, Msg: "must be >= 0"}
			}
		}
	}
	if a.EVPerVehicleKwh < 0 || a.HomeOfficeKwh < 0 {
		return &apperr.ConfigError{What: "consumption assumptions", Msg: "per-vehicle and home office figures must be >= 0"}
	}
	return nil
}

// Estimate is a derived daily consumption with its parts (kWh/day).
type Estimate struct {
	BaselineKwh   float64 `json:"baselineKwh"`
	ACKwh         float64 `json:"acKwh"`
	HotWaterKwh   float64 `json:"hotWaterKwh"`
	EVKwh         float64 `json:"evKwh"`
	PoolKwh       float64 `json:"poolKwh"`
	HomeOfficeKwh float64 `json:"homeOfficeKwh"`
	TotalKwh      float64 `json:"totalKwh"`
}

func missing(key string) error {
	return apperr.Missing("consumption assumption", key)
}

// DailyConsumption estimates kWh/day for a profile. Every figure the profile
// needs must be present in the table; a gap is a configuration error rather
// than a guessed default.
func (a *Assumptions) DailyConsumption(p model.ConsumptionProfile) (Estimate, error) {
	if p.HouseholdSize < 1 {
		return Estimate{}, apperr.Invalid("householdSize", "must be >= 1 to estimate consumption")
	}
	band := p.HouseholdSize
	if band > MaxHouseholdBand {
		band = MaxHouseholdBand
	}

	var e Estimate
	var ok bool
	if e.BaselineKwh, ok = a.BaselineByHousehold[band]; !ok {
		return Estimate{}, missing("baseline_by_household." + strconv.Itoa(band))
	}

	ac := p.ACUsage
	if ac == "" {
		ac = model.ACModerate
	}
	if ac != model.ACNone {
		if e.ACKwh, ok = a.ACByTier[ac]; !ok {
			return Estimate{}, missing("ac_by_tier." + string(ac))
		}
	}

	if p.HotWater == model.HotWaterElectric {
		if e.HotWaterKwh, ok = a.HotWaterByHousehold[band]; !ok {
			return Estimate{}, missing("hot_water_by_household." + strconv.Itoa(band))
		}
	}

	if evs := p.EVs(); evs > 0 {
		method := strings.ToLower(strings.TrimSpace(p.EVChargingMethod))
		if method != "" && p.EVChargingHours > 0 {
			kw, ok := a.EVChargingPowerKw[method]
			if !ok {
				return Estimate{}, missing("ev_charging_power_kw." + method)
			}
			e.EVKwh = kw * p.EVChargingHours * float64(evs)
		} else {
			if a.EVPerVehicleKwh <= 0 {
				return Estimate{}, missing("ev_per_vehicle_kwh")
			}
			e.EVKwh = a.EVPerVehicleKwh * float64(evs)
		}
	}

	if p.HasPool {
		key := "unheated"
		if p.PoolHeated {
			key = "heated"
		}
		if e.PoolKwh, ok = a.PoolKwh[key]; !ok {
			return Estimate{}, missing("pool_kwh." + key)
		}
	}

	if p.HomeOfficeCount > 0 {
		if a.HomeOfficeKwh <= 0 {
			return Estimate{}, missing("home_office_kwh")
		}
		e.HomeOfficeKwh = a.HomeOfficeKwh * float64(p.HomeOfficeCount)
	}

	e.TotalKwh = e.BaselineKwh + e.ACKwh + e.HotWaterKwh + e.EVKwh + e.PoolKwh + e.HomeOfficeKwh
	return e, nil
}
