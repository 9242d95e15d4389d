package refdata

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"solar-quote/internal/apperr"
	"solar-quote/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func loadTestdata(t *testing.T) *RawData {
	t.Helper()
	raw, err := NewYAMLSource("testdata").Load(context.Background())
	require.NoError(t, err)
	return raw
}

func TestYAMLSourceLoadsEveryTable(t *testing.T) {
	raw := loadTestdata(t)

	assert.Len(t, raw.Zones, 5)
	assert.Len(t, raw.Rebates, 3)
	assert.Len(t, raw.Products, 7)
	assert.Len(t, raw.Suppliers, 3)
	assert.Len(t, raw.SupplierProducts, 10)
	assert.Len(t, raw.Packages, 3)
	assert.Len(t, raw.Installation.LaborRates, 1)
	assert.Len(t, raw.Installation.Subcontractors, 2)
	assert.Len(t, raw.Addons, 3)
	assert.Equal(t, 4.4, raw.SolarYieldByState["WA"])
	require.NotNil(t, raw.Consumption)
	assert.Equal(t, 19.0, raw.Consumption.BaselineByHousehold[4])

	sub := raw.Installation.Subcontractors[0]
	require.NotNil(t, sub.DayRate)
	assert.Equal(t, "1100", sub.DayRate.String())
	assert.Nil(t, sub.HourlyRate)
	assert.Equal(t, 38.9, raw.Rebates[0].Variables["stcValue"])
}

func TestYAMLSourceErrors(t *testing.T) {
	t.Run("missing required file", func(t *testing.T) {
		dir := t.TempDir()
		_, err := NewYAMLSource(dir).Load(context.Background())
		require.Error(t, err)
		assert.True(t, errors.Is(err, os.ErrNotExist))
	})

	t.Run("unknown key", func(t *testing.T) {
		dir := copyTestdata(t)
		require.NoError(t, os.WriteFile(filepath.Join(dir, ZonesFile),
			[]byte("zones:\n  - {postcode_start: 6000, postcode_end: 6100, zone: '3', rating: 1.382, state: WA}\n"), 0o644))
		_, err := NewYAMLSource(dir).Load(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), ZonesFile)
	})

	t.Run("consumption is optional", func(t *testing.T) {
		dir := copyTestdata(t)
		require.NoError(t, os.Remove(filepath.Join(dir, ConsumptionFile)))
		raw, err := NewYAMLSource(dir).Load(context.Background())
		require.NoError(t, err)
		assert.Nil(t, raw.Consumption)
	})
}

func copyTestdata(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	entries, err := os.ReadDir("testdata")
	require.NoError(t, err)
	for _, e := range entries {
		b, err := os.ReadFile(filepath.Join("testdata", e.Name()))
		require.NoError(t, err)
		require.NoError(t, os.WriteFile(filepath.Join(dir, e.Name()), b, 0o644))
	}
	return dir
}

func TestBuildSnapshot(t *testing.T) {
	snap, err := Build(loadTestdata(t))
	require.NoError(t, err)

	z, err := snap.Zones.Resolve(6000)
	require.NoError(t, err)
	assert.Equal(t, 1.382, z.Rating)

	mid, err := snap.Package(model.TierMid)
	require.NoError(t, err)
	assert.Equal(t, "pkg-mid", mid.ID)

	tiers := []model.Tier{}
	for _, p := range snap.Packages() {
		tiers = append(tiers, p.Tier)
	}
	assert.Equal(t, []model.Tier{model.TierBudget, model.TierMid, model.TierPremium}, tiers)

	qs, err := snap.Settings("wa")
	require.NoError(t, err)
	assert.Equal(t, "1500", qs.MinimumProfit.String())

	y, err := snap.Yield("WA")
	require.NoError(t, err)
	assert.Equal(t, 4.4, y)

	_, err = snap.Yield("TAS")
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))
	_, err = snap.Settings("NSW")
	assert.True(t, errors.Is(err, apperr.ErrConfiguration))

	_, ok := snap.Addon("bird-proofing")
	assert.True(t, ok)
	assert.Equal(t, []float64{9.6, 13.5}, snap.Catalog.BatteryCapacities(""))
	assert.Equal(t, 8, snap.Counts()["sellable"])
	assert.Len(t, snap.Version, 12)
}

func TestBuildVersionIsContentHash(t *testing.T) {
	a, err := Build(loadTestdata(t))
	require.NoError(t, err)
	b, err := Build(loadTestdata(t))
	require.NoError(t, err)
	assert.Equal(t, a.Version, b.Version)

	raw := loadTestdata(t)
	raw.Addons[0].Cost = model.Dollars(499)
	c, err := Build(raw)
	require.NoError(t, err)
	assert.NotEqual(t, a.Version, c.Version)
}

func TestBuildRejectsInconsistentData(t *testing.T) {
	cases := []struct {
		name  string
		edit  func(*RawData)
		class error
	}{
		{"overlapping zones", func(r *RawData) {
			r.Zones = append(r.Zones, model.ZoneRating{PostcodeStart: 6150, PostcodeEnd: 6160, Zone: "2", Rating: 1.5, State: "WA"})
		}, apperr.ErrConfiguration},
		{"battery formula does not compile", func(r *RawData) {
			r.Rebates[1].Formula = "min(batterySizeKwh * perKwh; cap)"
		}, apperr.ErrFormula},
		{"duplicate rebate id", func(r *RawData) {
			r.Rebates = append(r.Rebates, r.Rebates[0])
		}, apperr.ErrConfiguration},
		{"active offering without retail price", func(r *RawData) {
			r.SupplierProducts[0].RetailPrice = model.Dollars(0)
		}, apperr.ErrConfiguration},
		{"two active templates for one tier", func(r *RawData) {
			dup := r.Packages[0]
			dup.ID = "pkg-budget-2"
			r.Packages = append(r.Packages, dup)
		}, apperr.ErrConfiguration},
		{"unknown sizing strategy", func(r *RawData) {
			r.Packages[1].BatterySizingStrategy = "whole_house"
		}, apperr.ErrConfiguration},
		{"non-positive yield", func(r *RawData) {
			r.SolarYieldByState["WA"] = 0
		}, apperr.ErrConfiguration},
		{"labor rate without hourly rate", func(r *RawData) {
			r.Installation.LaborRates[0].HourlyRate = model.Dollars(0)
		}, apperr.ErrConfiguration},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			raw := loadTestdata(t)
			tc.edit(raw)
			_, err := Build(raw)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tc.class), "got %v", err)
		})
	}
}

func TestStoreReseed(t *testing.T) {
	good := loadTestdata(t)
	fail := false
	src := SourceFunc(func(ctx context.Context) (*RawData, error) {
		if fail {
			return nil, errors.New("database unavailable")
		}
		return good, nil
	})
	store := NewStore(src, nil, nil)

	_, err := store.Snapshot(context.Background())
	assert.ErrorIs(t, err, ErrNotLoaded)
	assert.Nil(t, store.Current())

	first, err := store.Reseed(context.Background())
	require.NoError(t, err)
	got, err := store.Snapshot(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, got)

	fail = true
	_, err = store.Reseed(context.Background())
	require.Error(t, err)
	assert.Same(t, first, store.Current(), "failed reseed must keep the previous snapshot")
}

func TestStoreReseedRejectsInvalidData(t *testing.T) {
	bad := loadTestdata(t)
	bad.Zones = nil
	bad.Zones = append(bad.Zones, model.ZoneRating{PostcodeStart: 10, PostcodeEnd: 1, Zone: "1", Rating: 1, State: "WA"})
	store := NewStore(SourceFunc(func(context.Context) (*RawData, error) { return bad, nil }), nil, nil)

	_, err := store.Reseed(context.Background())
	require.Error(t, err)
	assert.Nil(t, store.Current())
}

func TestStoreReadersSeeWholeSnapshots(t *testing.T) {
	a := loadTestdata(t)
	b := loadTestdata(t)
	b.QuoteSettings[0].MinimumProfit = model.Dollars(2500)
	sb, err := Build(b)
	require.NoError(t, err)
	versionB := sb.Version

	var mu sync.Mutex
	next := a
	store := NewStore(SourceFunc(func(context.Context) (*RawData, error) {
		mu.Lock()
		defer mu.Unlock()
		return next, nil
	}), nil, nil)
	_, err = store.Reseed(context.Background())
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				snap, err := store.Snapshot(context.Background())
				if !assert.NoError(t, err) {
					return
				}
				qs, err := snap.Settings("WA")
				if !assert.NoError(t, err) {
					return
				}
				want := "1500"
				if snap.Version == versionB {
					want = "2500"
				}
				assert.Equal(t, want, qs.MinimumProfit.String())
			}
		}()
	}
	for i := 0; i < 20; i++ {
		mu.Lock()
		if i%2 == 0 {
			next = b
		} else {
			next = a
		}
		mu.Unlock()
		_, err := store.Reseed(context.Background())
		require.NoError(t, err)
	}
	wg.Wait()
}

func TestSchedulerSpec(t *testing.T) {
	store := NewStore(SourceFunc(func(context.Context) (*RawData, error) { return nil, errors.New("unused") }), nil, nil)

	_, err := NewScheduler(store, "not a cron spec", "Australia/Perth", nil)
	assert.Error(t, err)

	s, err := NewScheduler(store, "0 3 * * *", "Nowhere/Invalid", nil)
	require.NoError(t, err)
	s.Start()
	defer s.Stop()
	assert.False(t, s.Next().IsZero())
}
