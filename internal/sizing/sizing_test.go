package sizing

import (
	"errors"
	"math"
	"testing"
	"time"

	"solar-quote/internal/apperr"
	"solar-quote/internal/catalog"
	"solar-quote/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testAssumptions() *Assumptions {
	return &Assumptions{
		BaselineByHousehold: map[int]float64{1: 4, 2: 6, 3: 8, 4: 10, 5: 12, 6: 14, 7: 16},
		ACByTier:            map[model.ACUsage]float64{model.ACMinimal: 3, model.ACModerate: 8, model.ACHeavy: 15},
		HotWaterByHousehold: map[int]float64{1: 3, 2: 4, 3: 5, 4: 6, 5: 7, 6: 8, 7: 9},
		EVChargingPowerKw:   map[string]float64{"granny": 2.4, "wallbox": 7},
		EVPerVehicleKwh:     9,
		PoolKwh:             map[string]float64{"heated": 12, "unheated": 4},
		HomeOfficeKwh:       1.5,
	}
}

func testParams() Params {
	return Params{EveningShare: 0.4, NightShare: 0.3, NighttimeHours: 12, BatteryBuffer: 1.1}
}

func testEngine(t *testing.T) *Engine {
	t.Helper()
	e, err := NewEngine(testAssumptions(), testParams())
	require.NoError(t, err)
	return e
}

func midTier() model.PackageTemplate {
	return model.PackageTemplate{
		Tier:                  model.TierMid,
		SolarSizingStrategy:   model.SolarCoveragePercentage,
		SolarCoveragePercent:  100,
		BatterySizingStrategy: model.BatteryCoverageHours,
		BatteryCoverageHours:  4,
		PriceMultiplier:       1,
		Active:                true,
	}
}

var testCatalog = Catalog{PanelWattageW: 440, BatteryCapacitiesKwh: []float64{5, 10, 13.5}}

func TestDailyConsumptionEstimate(t *testing.T) {
	a := testAssumptions()
	est, err := a.DailyConsumption(model.ConsumptionProfile{
		HouseholdSize:    4,
		ACUsage:          model.ACModerate,
		HotWater:         model.HotWaterElectric,
		HasEV:            true,
		EVCount:          1,
		EVChargingMethod: "Wallbox",
		EVChargingHours:  2,
		HasPool:          true,
		HomeOfficeCount:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, 10.0, est.BaselineKwh)
	assert.Equal(t, 8.0, est.ACKwh)
	assert.Equal(t, 6.0, est.HotWaterKwh)
	assert.Equal(t, 14.0, est.EVKwh)
	assert.Equal(t, 4.0, est.PoolKwh)
	assert.Equal(t, 1.5, est.HomeOfficeKwh)
	assert.Equal(t, 43.5, est.TotalKwh)
}

func TestDailyConsumptionRules(t *testing.T) {
	a := testAssumptions()
	cases := []struct {
		name    string
		profile model.ConsumptionProfile
		want    float64
	}{
		{"household capped at 7", model.ConsumptionProfile{HouseholdSize: 11, ACUsage: model.ACNone}, 16},
		{"ac defaults to moderate", model.ConsumptionProfile{HouseholdSize: 2}, 14},
		{"gas hot water adds nothing", model.ConsumptionProfile{HouseholdSize: 2, ACUsage: model.ACNone, HotWater: model.HotWaterGas}, 6},
		{"planned ev per vehicle", model.ConsumptionProfile{HouseholdSize: 1, ACUsage: model.ACNone, PlanningEV: true, EVCount: 2}, 22},
		{"ev without count counts one", model.ConsumptionProfile{HouseholdSize: 1, ACUsage: model.ACNone, HasEV: true}, 13},
		{"ev count ignored without ev", model.ConsumptionProfile{HouseholdSize: 1, ACUsage: model.ACNone, EVCount: 3}, 4},
		{"heated pool", model.ConsumptionProfile{HouseholdSize: 1, ACUsage: model.ACNone, HasPool: true, PoolHeated: true}, 16},
		{"offices", model.ConsumptionProfile{HouseholdSize: 1, ACUsage: model.ACNone, HomeOfficeCount: 2}, 7},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			est, err := a.DailyConsumption(tc.profile)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, est.TotalKwh, 1e-9)
		})
	}
}

func TestDailyConsumptionMissingAssumption(t *testing.T) {
	cases := map[string]func(a *Assumptions){
		"baseline":    func(a *Assumptions) { delete(a.BaselineByHousehold, 3) },
		"ac tier":     func(a *Assumptions) { delete(a.ACByTier, model.ACHeavy) },
		"hot water":   func(a *Assumptions) { delete(a.HotWaterByHousehold, 3) },
		"ev method":   func(a *Assumptions) { delete(a.EVChargingPowerKw, "wallbox") },
		"pool":        func(a *Assumptions) { delete(a.PoolKwh, "heated") },
		"home office": func(a *Assumptions) { a.HomeOfficeKwh = 0 },
	}
	profile := model.ConsumptionProfile{
		HouseholdSize: 3, ACUsage: model.ACHeavy, HotWater: model.HotWaterElectric,
		HasEV: true, EVCount: 1, EVChargingMethod: "wallbox", EVChargingHours: 3,
		HasPool: true, PoolHeated: true, HomeOfficeCount: 1,
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			a := testAssumptions()
			mutate(a)
			_, err := a.DailyConsumption(profile)
			require.Error(t, err)
			assert.True(t, errors.Is(err, apperr.ErrConfiguration))
		})
	}

	_, err := testAssumptions().DailyConsumption(model.ConsumptionProfile{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestSizeCoverageHours(t *testing.T) {
	r, err := testEngine(t).Size(model.ConsumptionProfile{DailyConsumptionKwh: 30}, midTier(), 4.4, testCatalog, Roof{})
	require.NoError(t, err)

	assert.InDelta(t, 30/4.4, r.TargetSystemKw, 1e-12)
	assert.Equal(t, 16, r.PanelCount)
	assert.InDelta(t, 7.04, r.SystemSizeKw, 1e-12)
	assert.Equal(t, 12.0, r.Demand.EveningKwh)
	assert.InDelta(t, 9.0, r.Demand.NightKwh, 1e-12)
	assert.InDelta(t, 1.75, r.Demand.EveningLoadKw, 1e-12)
	assert.InDelta(t, 7.7, r.TargetBatteryKwh, 1e-9)
	assert.Equal(t, 10.0, r.BatteryKwh)
	assert.Equal(t, 1, r.BatteryUnits)
	assert.Equal(t, "coverage_percentage", r.SolarStrategy)
	assert.Equal(t, "coverage_hours", r.BatteryStrategy)
	assert.Nil(t, r.Demand.Estimate)
}

func TestSizeStrategies(t *testing.T) {
	e := testEngine(t)
	profile := model.ConsumptionProfile{DailyConsumptionKwh: 30, EveningUsageKwh: 10, NightUsageKwh: 5}

	t.Run("fixed kw rounds up to whole panels", func(t *testing.T) {
		tier := midTier()
		tier.SolarSizingStrategy, tier.SolarFixedKw = model.SolarFixedKw, 6.6
		r, err := e.Size(profile, tier, 4.4, testCatalog, Roof{})
		require.NoError(t, err)
		assert.Equal(t, 15, r.PanelCount)
		assert.InDelta(t, 6.6, r.SystemSizeKw, 1e-12)
	})

	t.Run("full overnight uses several units", func(t *testing.T) {
		tier := midTier()
		tier.BatterySizingStrategy = model.BatteryFullOvernight
		r, err := e.Size(profile, tier, 4.4, testCatalog, Roof{})
		require.NoError(t, err)
		assert.InDelta(t, 16.5, r.TargetBatteryKwh, 1e-9)
		assert.Equal(t, 13.5, r.BatteryUnitKwh)
		assert.Equal(t, 2, r.BatteryUnits)
		assert.Equal(t, 27.0, r.BatteryKwh)
	})

	t.Run("fixed kwh", func(t *testing.T) {
		tier := midTier()
		tier.BatterySizingStrategy, tier.BatteryFixedKwh = model.BatteryFixedKwh, 10
		r, err := e.Size(profile, tier, 4.4, testCatalog, Roof{})
		require.NoError(t, err)
		assert.Equal(t, 10.0, r.BatteryKwh)
	})

	t.Run("no battery", func(t *testing.T) {
		tier := midTier()
		tier.BatterySizingStrategy = model.BatteryNone
		r, err := e.Size(profile, tier, 4.4, Catalog{PanelWattageW: 440}, Roof{})
		require.NoError(t, err)
		assert.Zero(t, r.BatteryKwh)
		assert.Zero(t, r.BatteryUnits)
	})

	t.Run("unknown strategy", func(t *testing.T) {
		tier := midTier()
		tier.SolarSizingStrategy = "vibes"
		_, err := e.Size(profile, tier, 4.4, testCatalog, Roof{})
		assert.True(t, errors.Is(err, apperr.ErrConfiguration))
	})
}

func TestSizeDerivesDailyConsumption(t *testing.T) {
	r, err := testEngine(t).Size(model.ConsumptionProfile{HouseholdSize: 4, ACUsage: model.ACNone}, midTier(), 4.4, testCatalog, Roof{})
	require.NoError(t, err)
	require.NotNil(t, r.Demand.Estimate)
	assert.Equal(t, 10.0, r.Demand.DailyKwh)
	assert.Equal(t, 6, r.PanelCount)
}

func TestSizeBatteryUnavailable(t *testing.T) {
	_, err := testEngine(t).Size(model.ConsumptionProfile{DailyConsumptionKwh: 30}, midTier(), 4.4, Catalog{PanelWattageW: 440, BatteryBrand: "tesla"}, Roof{})
	var un *catalog.UnavailableProductError
	require.True(t, errors.As(err, &un))
	assert.Equal(t, model.ProductBattery, un.Category)
	assert.Equal(t, "tesla", un.BrandID)
}

func TestSizeRejectsBadInputs(t *testing.T) {
	e := testEngine(t)
	_, err := e.Size(model.ConsumptionProfile{DailyConsumptionKwh: 30}, midTier(), 0, testCatalog, Roof{})
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
	_, err = e.Size(model.ConsumptionProfile{DailyConsumptionKwh: 30}, midTier(), 4.4, Catalog{}, Roof{})
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
	_, err = e.Size(model.ConsumptionProfile{DailyConsumptionKwh: -1}, midTier(), 4.4, testCatalog, Roof{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))

	noTable, err := NewEngine(nil, testParams())
	require.NoError(t, err)
	_, err = noTable.Size(model.ConsumptionProfile{HouseholdSize: 3}, midTier(), 4.4, testCatalog, Roof{})
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func TestSizeMonotonicInConsumption(t *testing.T) {
	e := testEngine(t)
	for _, w := range []float64{300, 415, 440, 475} {
		cat := Catalog{PanelWattageW: w, BatteryCapacitiesKwh: testCatalog.BatteryCapacitiesKwh}
		prevKw, prevPanels := -1.0, -1
		for daily := 0.5; daily <= 120; daily += 0.37 {
			r, err := e.Size(model.ConsumptionProfile{DailyConsumptionKwh: daily}, midTier(), 4.4, cat, Roof{})
			require.NoError(t, err)
			require.GreaterOrEqual(t, r.TargetSystemKw, prevKw, "daily=%v", daily)
			require.GreaterOrEqual(t, r.PanelCount, prevPanels, "daily=%v", daily)
			require.GreaterOrEqual(t, r.SystemSizeKw, r.TargetSystemKw)
			prevKw, prevPanels = r.TargetSystemKw, r.PanelCount
		}
	}
}

func TestSizeMonotonicInCoverage(t *testing.T) {
	e := testEngine(t)
	tier := midTier()
	prevKw, prevPanels := -1.0, -1
	for pct := 10.0; pct <= 200; pct += 2.5 {
		tier.SolarCoveragePercent = pct
		r, err := e.Size(model.ConsumptionProfile{DailyConsumptionKwh: 27.3}, tier, 4.1, testCatalog, Roof{})
		require.NoError(t, err)
		require.GreaterOrEqual(t, r.TargetSystemKw, prevKw)
		require.GreaterOrEqual(t, r.PanelCount, prevPanels)
		prevKw, prevPanels = r.TargetSystemKw, r.PanelCount
	}
}

func TestPanelCountIsMinimal(t *testing.T) {
	for _, w := range []float64{250, 330, 400, 415, 440} {
		for target := 0.01; target < 25; target += 0.173 {
			n, err := PanelCount(target, w)
			require.NoError(t, err)
			require.GreaterOrEqual(t, float64(n)*w/1000, target)
			if n > 0 {
				require.Less(t, float64(n-1)*w/1000, target)
			}
		}
	}
	n, err := PanelCount(0, 440)
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	// exact multiple must not add a panel
	n, err = PanelCount(6.6, 440)
	require.NoError(t, err)
	assert.Equal(t, 15, n)
}

func TestPanelCountRejectsHugeTargets(t *testing.T) {
	n, err := PanelCount(float64(MaxPanels)*0.4, 400)
	require.NoError(t, err)
	assert.Equal(t, MaxPanels, n)

	for _, target := range []float64{float64(MaxPanels)*0.4 + 0.4, 1e20, math.Inf(1), math.NaN()} {
		done := make(chan error, 1)
		go func() {
			_, err := PanelCount(target, 400)
			done <- err
		}()
		select {
		case err := <-done:
			assert.True(t, errors.Is(err, apperr.ErrInvalidInput), "target %v", target)
		case <-time.After(5 * time.Second):
			t.Fatalf("PanelCount(%v) did not return", target)
		}
	}
}

func TestSnapBattery(t *testing.T) {
	caps := []float64{5, 10, 13.5}
	cases := []struct {
		target float64
		unit   float64
		units  int
	}{
		{0.1, 5, 1},
		{5, 5, 1},
		{5.01, 10, 1},
		{13.5, 13.5, 1},
		{13.6, 13.5, 2},
		{40.6, 13.5, 4},
	}
	for _, tc := range cases {
		unit, units, err := SnapBattery(tc.target, caps)
		require.NoError(t, err)
		assert.Equal(t, tc.unit, unit, "target %v", tc.target)
		assert.Equal(t, tc.units, units, "target %v", tc.target)
	}
	_, _, err := SnapBattery(3, nil)
	assert.ErrorIs(t, err, ErrNoBatteryCapacity)
}

func TestSnapBatteryRejectsHugeTargets(t *testing.T) {
	_, units, err := SnapBattery(13.5*MaxBatteryUnits, []float64{13.5})
	require.NoError(t, err)
	assert.Equal(t, MaxBatteryUnits, units)

	for _, target := range []float64{13.5*MaxBatteryUnits + 1, 1e30, math.Inf(1)} {
		_, units, err := SnapBattery(target, []float64{13.5})
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput), "target %v", target)
		assert.Zero(t, units)
	}
}

func TestSizeRejectsHugeConsumption(t *testing.T) {
	_, err := testEngine(t).Size(model.ConsumptionProfile{DailyConsumptionKwh: 1e21}, midTier(), 4.4, testCatalog, Roof{})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestSizeRoofCap(t *testing.T) {
	e := testEngine(t)
	profile := model.ConsumptionProfile{DailyConsumptionKwh: 30}

	t.Run("caps coverage strategy", func(t *testing.T) {
		r, err := e.Size(profile, midTier(), 4.4, testCatalog, Roof{MaxPanels: 10})
		require.NoError(t, err)
		assert.True(t, r.RoofLimited)
		assert.InDelta(t, 4.4, r.MaxRoofKw, 1e-12)
		assert.InDelta(t, 4.4, r.TargetSystemKw, 1e-12)
		assert.Equal(t, 10, r.PanelCount)
		assert.InDelta(t, 4.4, r.SystemSizeKw, 1e-12)
	})

	t.Run("roof larger than target", func(t *testing.T) {
		r, err := e.Size(profile, midTier(), 4.4, testCatalog, Roof{MaxPanels: 40})
		require.NoError(t, err)
		assert.False(t, r.RoofLimited)
		assert.Equal(t, 16, r.PanelCount)
	})

	t.Run("max roof fills the roof", func(t *testing.T) {
		tier := midTier()
		tier.SolarSizingStrategy = model.SolarMaxRoof
		r, err := e.Size(profile, tier, 4.4, testCatalog, Roof{MaxPanels: 24})
		require.NoError(t, err)
		assert.Equal(t, "max_roof", r.SolarStrategy)
		assert.Equal(t, 24, r.PanelCount)
		assert.InDelta(t, 10.56, r.SystemSizeKw, 1e-12)
		assert.False(t, r.RoofLimited)
	})

	t.Run("max roof needs a roof", func(t *testing.T) {
		tier := midTier()
		tier.SolarSizingStrategy = model.SolarMaxRoof
		_, err := e.Size(profile, tier, 4.4, testCatalog, Roof{})
		var in *apperr.InputError
		require.True(t, errors.As(err, &in))
		assert.Equal(t, "site.maxPanels", in.Field)
	})

	t.Run("negative roof", func(t *testing.T) {
		_, err := e.Size(profile, midTier(), 4.4, testCatalog, Roof{MaxPanels: -1})
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	})
}

func TestSizeDynamicMultiplier(t *testing.T) {
	e := testEngine(t)
	profile := model.ConsumptionProfile{DailyConsumptionKwh: 30, EveningUsageKwh: 10, NightUsageKwh: 6}
	caps := Catalog{PanelWattageW: 440, BatteryCapacitiesKwh: []float64{5, 9.6, 13.5, 20}}

	cases := []struct {
		tier   model.Tier
		target float64
		kwh    float64
	}{
		{model.TierBudget, 6, 9.6},
		{model.TierMid, 13, 13.5},
		{model.TierPremium, 17.6, 20},
	}
	for _, tc := range cases {
		t.Run(string(tc.tier), func(t *testing.T) {
			tier := midTier()
			tier.Tier = tc.tier
			tier.BatterySizingStrategy = model.BatteryDynamicMultiplier
			r, err := e.Size(profile, tier, 4.4, caps, Roof{})
			require.NoError(t, err)
			assert.Equal(t, "dynamic_multiplier", r.BatteryStrategy)
			assert.InDelta(t, tc.target, r.TargetBatteryKwh, 1e-9)
			assert.Equal(t, tc.kwh, r.BatteryKwh)
		})
	}
}

func TestParamsValidate(t *testing.T) {
	bad := []Params{
		{EveningShare: 0.7, NightShare: 0.4, NighttimeHours: 12, BatteryBuffer: 1},
		{EveningShare: 0.4, NightShare: 0.3, NighttimeHours: 0, BatteryBuffer: 1},
		{EveningShare: 0.4, NightShare: 0.3, NighttimeHours: 12, BatteryBuffer: 0.9},
	}
	for _, p := range bad {
		_, err := NewEngine(nil, p)
		assert.True(t, errors.Is(err, apperr.ErrConfiguration), "%+v", p)
	}
}
