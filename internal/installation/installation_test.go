package installation

import (
	"errors"
	"testing"

	"solar-quote/internal/apperr"
	"solar-quote/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func m(v string) *model.Money {
	d := decimal.RequireFromString(v)
	return &d
}

func tables(subs ...model.Subcontractor) Tables {
	return Tables{
		Factors: []model.ComplexityFactor{
			{Kind: model.FactorRoofType, Value: "tile", Multiplier: 1.25},
			{Kind: model.FactorRoofType, Value: "metal", Multiplier: 1},
			{Kind: model.FactorStories, Value: "2", Multiplier: 1.2},
			{Kind: model.FactorAccess, Value: "true", Multiplier: 1.5},
		},
		LaborRates: []model.LaborRate{{
			Region:           "WA",
			HourlyRate:       decimal.NewFromInt(85),
			BaseHours:        6,
			HoursPerKw:       1.5,
			BatteryHours:     4,
			HoursPerDay:      8,
			MaterialsPerKw:   decimal.NewFromInt(150),
			BatteryMaterials: decimal.NewFromInt(400),
			ScaffoldingCost:  decimal.NewFromInt(800),
			AsbestosCost:     decimal.NewFromInt(1500),
		}},
		Subcontractors: subs,
	}
}

func job() JobSpecs {
	return JobSpecs{Region: "WA", SystemSizeKw: 6, PanelCount: 14, RoofType: "Tile", Stories: 2}
}

func estimator(t *testing.T, subs ...model.Subcontractor) *Estimator {
	t.Helper()
	e, err := NewEstimator(tables(subs...))
	require.NoError(t, err)
	return e
}

func TestEstimateInternal(t *testing.T) {
	est, err := estimator(t).Estimate(job())
	require.NoError(t, err)

	assert.Equal(t, 15.0, est.BaseLaborHours)
	assert.Equal(t, 1.5, est.ComplexityMultiplier)
	assert.Equal(t, 22.5, est.JobHours)
	assert.Len(t, est.AppliedFactors, 2)
	assert.Equal(t, "900", est.MaterialsCost.String())
	assert.Equal(t, "2812.5", est.InternalCost.String())
}

func TestEstimateNoSubcontractor(t *testing.T) {
	other := model.Subcontractor{ID: "nsw-crew", Region: "NSW", Active: true, DayRate: m("100")}
	inactive := model.Subcontractor{ID: "wa-old", Region: "WA", Active: false, DayRate: m("100")}
	est, err := estimator(t, other, inactive).Estimate(job())
	require.NoError(t, err)

	assert.Nil(t, est.SubcontractorCost)
	assert.Nil(t, est.Subcontractor)
	assert.Equal(t, OptionInternal, est.Recommended)
	assert.True(t, est.RecommendedCost.Equal(est.InternalCost))
	assert.True(t, est.InternalCost.IsPositive())
}

func TestEstimateSubcontractorRates(t *testing.T) {
	cases := []struct {
		name  string
		sub   model.Subcontractor
		basis string
		units float64
		total string
		rec   Option
	}{
		{"day rate bills whole days", model.Subcontractor{ID: "a", Region: "WA", Active: true, DayRate: m("600")}, BasisDayRate, 3, "2700", OptionSubcontractor},
		{"hourly scales by job hours", model.Subcontractor{ID: "b", Region: "WA", Active: true, HourlyRate: m("70")}, BasisHourlyRate, 22.5, "2475", OptionSubcontractor},
		{"per job", model.Subcontractor{ID: "c", Region: "wa", Active: true, CostPerJob: m("2000")}, BasisCostPerJob, 1, "2900", OptionInternal},
		{"day rate wins precedence", model.Subcontractor{ID: "d", Active: true, DayRate: m("600"), HourlyRate: m("1"), CostPerJob: m("1")}, BasisDayRate, 3, "2700", OptionSubcontractor},
		{"tie goes in-house", model.Subcontractor{ID: "e", Region: "WA", Active: true, CostPerJob: m("1912.50")}, BasisCostPerJob, 1, "2812.5", OptionInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			est, err := estimator(t, tc.sub).Estimate(job())
			require.NoError(t, err)
			require.NotNil(t, est.SubcontractorCost)
			assert.Equal(t, tc.total, est.SubcontractorCost.String())
			assert.Equal(t, tc.basis, est.Subcontractor.Basis)
			assert.Equal(t, tc.units, est.Subcontractor.Units)
			assert.Equal(t, tc.rec, est.Recommended)
		})
	}
}

func TestEstimatePicksCheapestSubcontractor(t *testing.T) {
	est, err := estimator(t,
		model.Subcontractor{ID: "z", Region: "WA", Active: true, HourlyRate: m("70")},
		model.Subcontractor{ID: "y", Region: "WA", Active: true, DayRate: m("600")},
		model.Subcontractor{ID: "x", Region: "WA", Active: true, HourlyRate: m("70")},
	).Estimate(job())
	require.NoError(t, err)
	assert.Equal(t, "x", est.Subcontractor.ID)
	assert.Equal(t, "2475", est.RecommendedCost.String())
}

func TestEstimateExtras(t *testing.T) {
	spec := JobSpecs{
		Region: "WA", SystemSizeKw: 6, HasBattery: true, BatteryKwh: 10,
		RoofType: "metal", RequiresScaffolding: true, HasAsbestos: true,
		AddonInstallCost: decimal.NewFromInt(250),
	}
	est, err := estimator(t).Estimate(spec)
	require.NoError(t, err)
	assert.Equal(t, 19.0, est.JobHours)
	assert.Equal(t, "3850", est.MaterialsCost.String())
	assert.Equal(t, "5465", est.InternalCost.String())
}

func TestEstimateErrors(t *testing.T) {
	e := estimator(t)

	_, err := e.Estimate(JobSpecs{Region: "TAS", SystemSizeKw: 6})
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))

	for _, spec := range []JobSpecs{
		{SystemSizeKw: 6},
		{Region: "WA"},
		{Region: "WA", SystemSizeKw: 6, Phases: 2},
		{Region: "WA", SystemSizeKw: 6, AddonInstallCost: decimal.NewFromInt(-1)},
	} {
		_, err := e.Estimate(spec)
		assert.True(t, errors.Is(err, apperr.ErrInvalidInput), "%+v", spec)
	}
}

func TestCompare(t *testing.T) {
	c, err := estimator(t, model.Subcontractor{ID: "a", Region: "WA", Active: true, DayRate: m("600")}).Compare(job())
	require.NoError(t, err)
	assert.Equal(t, "2812.5", c.InternalCost.String())
	assert.Equal(t, "2700", c.SubcontractorCost.String())
	assert.Equal(t, "-112.5", c.Delta.String())
	assert.Equal(t, -4.0, c.PercentDifference)
	assert.Empty(t, c.Estimate.Recommended)

	_, err = estimator(t).Compare(job())
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}

func TestNewEstimatorRejectsZeroRates(t *testing.T) {
	_, err := NewEstimator(tables(model.Subcontractor{ID: "free", Region: "WA", Active: true, DayRate: m("0")}))
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))

	bad := tables()
	bad.Factors = append(bad.Factors, model.ComplexityFactor{Kind: model.FactorPhases, Value: "3", Multiplier: 0})
	_, err = NewEstimator(bad)
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
}
