package catalog

import (
	"context"
	"errors"
	"testing"

	"solar-quote/internal/apperr"
	"solar-quote/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(v string) model.Money { return decimal.RequireFromString(v) }

func listing(id, supplier, product, cost, retail string, primary bool) model.SupplierProduct {
	return model.SupplierProduct{
		ID: id, SupplierID: supplier, ProductID: product,
		UnitCost: d(cost), RetailPrice: d(retail), Active: true, Primary: primary,
	}
}

func fixture() ([]model.Product, []model.Supplier, []model.SupplierProduct) {
	products := []model.Product{
		{ID: "p-440", Type: model.ProductPanel, BrandID: "jinko", Name: "Tiger Neo 440", Specifications: model.Specifications{WattageW: 440}},
		{ID: "p-415", Type: model.ProductPanel, BrandID: "trina", Name: "Vertex S 415", Specifications: model.Specifications{WattageW: 415}},
		{ID: "b-10", Type: model.ProductBattery, BrandID: "byd", Name: "HVM 11.0", Specifications: model.Specifications{CapacityKwh: 10}},
		{ID: "b-13", Type: model.ProductBattery, BrandID: "tesla", Name: "Powerwall 2", Specifications: model.Specifications{CapacityKwh: 13.5}},
		{ID: "i-5", Type: model.ProductInverter, BrandID: "fronius", Name: "Primo 5.0", Specifications: model.Specifications{CapacityKw: 5}},
		{ID: "i-8", Type: model.ProductInverter, BrandID: "fronius", Name: "Primo 8.2", Specifications: model.Specifications{CapacityKw: 8.2}},
	}
	suppliers := []model.Supplier{
		{ID: "sup-a", Name: "Alpha", Active: true},
		{ID: "sup-b", Name: "Bravo", Active: true},
		{ID: "sup-z", Name: "Zulu", Active: false},
	}
	listings := []model.SupplierProduct{
		listing("l1", "sup-a", "p-440", "120", "210", false),
		listing("l2", "sup-b", "p-440", "120", "205", true),
		listing("l3", "sup-b", "p-415", "98", "180", false),
		listing("l4", "sup-a", "b-10", "6500", "9000", false),
		listing("l5", "sup-b", "b-13", "8900", "12500", true),
		listing("l6", "sup-a", "i-5", "900", "1500", true),
		listing("l7", "sup-a", "i-8", "1300", "2100", true),
		// cheaper but from an inactive supplier
		listing("l8", "sup-z", "b-13", "100", "200", true),
	}
	inactive := listing("l9", "sup-a", "b-13", "1", "0", false)
	inactive.Active = false
	listings = append(listings, inactive)
	return products, suppliers, listings
}

func newSelector(t *testing.T) *Selector {
	t.Helper()
	c, err := New(fixture())
	require.NoError(t, err)
	return NewSelector(c, 2)
}

func TestSelectOrdering(t *testing.T) {
	s := newSelector(t)

	cases := []struct {
		name string
		req  Requirement
		want string
	}{
		{"lowest cost wins", Requirement{Category: model.ProductPanel}, "l3"},
		{"primary breaks cost tie", Requirement{Category: model.ProductPanel, BrandID: "JINKO"}, "l2"},
		{"product pin", Requirement{Category: model.ProductPanel, ProductID: "p-440"}, "l2"},
		{"inactive supplier skipped", Requirement{Category: model.ProductBattery, BrandID: "tesla"}, "l5"},
		{"capacity window", Requirement{Category: model.ProductInverter, MinCapacity: 6.9, MaxCapacity: 8.97}, "l7"},
		{"min capacity only", Requirement{Category: model.ProductBattery, MinCapacity: 10}, "l4"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			o, err := s.Select(tc.req)
			require.NoError(t, err)
			assert.Equal(t, tc.want, o.SupplierProduct.ID)
			assert.True(t, o.SupplierProduct.RetailPrice.IsPositive())
		})
	}
}

func TestSelectTieBreaks(t *testing.T) {
	products := []model.Product{{ID: "p", Type: model.ProductPanel, Specifications: model.Specifications{WattageW: 400}}}
	suppliers := []model.Supplier{{ID: "s1", Active: true}, {ID: "s2", Active: true}, {ID: "s3", Active: true}}

	t.Run("retail after primary", func(t *testing.T) {
		c, err := New(products, suppliers, []model.SupplierProduct{
			listing("a", "s1", "p", "100", "200", false),
			listing("b", "s2", "p", "100", "190", false),
		})
		require.NoError(t, err)
		o, err := NewSelector(c, 1).Select(Requirement{Category: model.ProductPanel})
		require.NoError(t, err)
		assert.Equal(t, "b", o.SupplierProduct.ID)
	})

	t.Run("supplier id last", func(t *testing.T) {
		c, err := New(products, suppliers, []model.SupplierProduct{
			listing("c", "s3", "p", "100", "200", true),
			listing("a", "s2", "p", "100", "200", true),
		})
		require.NoError(t, err)
		o, err := NewSelector(c, 1).Select(Requirement{Category: model.ProductPanel})
		require.NoError(t, err)
		assert.Equal(t, "s2", o.SupplierProduct.SupplierID)
	})

	t.Run("primary beats listing order", func(t *testing.T) {
		for _, order := range [][]model.SupplierProduct{
			{listing("x", "s1", "p", "100", "200", false), listing("y", "s2", "p", "100.00", "250", true)},
			{listing("y", "s2", "p", "100.00", "250", true), listing("x", "s1", "p", "100", "200", false)},
		} {
			c, err := New(products, suppliers, order)
			require.NoError(t, err)
			o, err := NewSelector(c, 1).Select(Requirement{Category: model.ProductPanel})
			require.NoError(t, err)
			assert.Equal(t, "y", o.SupplierProduct.ID)
		}
	})
}

func TestSelectDeterministic(t *testing.T) {
	s := newSelector(t)
	req := Requirement{Category: model.ProductPanel, BrandID: "jinko"}
	first, err := s.Select(req)
	require.NoError(t, err)
	for i := 0; i < 50; i++ {
		again, err := s.Select(req)
		require.NoError(t, err)
		assert.Equal(t, first.SupplierProduct.ID, again.SupplierProduct.ID)
	}
}

func TestSelectUnavailable(t *testing.T) {
	products, suppliers, listings := fixture()
	var kept []model.SupplierProduct
	for _, l := range listings {
		if l.ProductID != "b-10" && l.ProductID != "b-13" {
			kept = append(kept, l)
		}
	}
	c, err := New(products, suppliers, kept)
	require.NoError(t, err)

	_, err = NewSelector(c, 1).Select(Requirement{Category: model.ProductBattery})
	var un *UnavailableProductError
	require.True(t, errors.As(err, &un))
	assert.Equal(t, model.ProductBattery, un.Category)
	assert.True(t, errors.Is(err, apperr.ErrUnavailableProduct))
	assert.Empty(t, c.BatteryCapacities(""))
}

func TestSelectInvalidRequirement(t *testing.T) {
	s := newSelector(t)
	_, err := s.Select(Requirement{Category: "SOLAR"})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
	_, err = s.Select(Requirement{Category: model.ProductBattery, MinCapacity: 10, MaxCapacity: 5})
	assert.True(t, errors.Is(err, apperr.ErrInvalidInput))
}

func TestNewRejectsIntegrityProblems(t *testing.T) {
	cases := map[string]func(l []model.SupplierProduct) []model.SupplierProduct{
		"zero retail": func(l []model.SupplierProduct) []model.SupplierProduct {
			l[0].RetailPrice = decimal.Zero
			return l
		},
		"negative cost": func(l []model.SupplierProduct) []model.SupplierProduct {
			l[0].UnitCost = d("-1")
			return l
		},
		"unknown product": func(l []model.SupplierProduct) []model.SupplierProduct {
			l[0].ProductID = "nope"
			return l
		},
		"unknown supplier": func(l []model.SupplierProduct) []model.SupplierProduct {
			l[0].SupplierID = "nope"
			return l
		},
		"duplicate id": func(l []model.SupplierProduct) []model.SupplierProduct {
			l[1].ID = l[0].ID
			return l
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			products, suppliers, listings := fixture()
			_, err := New(products, suppliers, mutate(listings))
			var ie *IntegrityError
			require.True(t, errors.As(err, &ie), "got %v", err)
			assert.True(t, errors.Is(err, apperr.ErrConfiguration))
		})
	}
}

func TestBatteryCapacities(t *testing.T) {
	s := newSelector(t)
	assert.Equal(t, []float64{10, 13.5}, s.Catalog().BatteryCapacities(""))
	assert.Equal(t, []float64{13.5}, s.Catalog().BatteryCapacities("Tesla"))
	assert.Empty(t, s.Catalog().BatteryCapacities("sonnen"))
}

func TestSelectAllReportsPerRequirement(t *testing.T) {
	s := newSelector(t)
	reqs := []Requirement{
		{Category: model.ProductPanel},
		{Category: model.ProductBattery, BrandID: "sonnen"},
		{Category: model.ProductInverter, MinCapacity: 5},
		{Category: model.ProductAddon},
	}
	sels, err := s.SelectAll(context.Background(), reqs)
	require.Error(t, err)
	require.Len(t, sels, 4)

	var be *BatchError
	require.True(t, errors.As(err, &be))
	require.Len(t, be.Failures, 2)
	assert.Equal(t, 1, be.Failures[0].Index)
	assert.Equal(t, 3, be.Failures[1].Index)
	assert.True(t, errors.Is(err, apperr.ErrUnavailableProduct))

	assert.Equal(t, "l3", sels[0].Offering.SupplierProduct.ID)
	assert.Nil(t, sels[1].Offering)
	assert.Equal(t, "l6", sels[2].Offering.SupplierProduct.ID)
	assert.Equal(t, reqs[3], sels[3].Requirement)
}

func TestSelectAllMatchesSequential(t *testing.T) {
	s := newSelector(t)
	var reqs []Requirement
	for i := 0; i < 40; i++ {
		switch i % 3 {
		case 0:
			reqs = append(reqs, Requirement{Category: model.ProductPanel})
		case 1:
			reqs = append(reqs, Requirement{Category: model.ProductBattery, MinCapacity: 11})
		default:
			reqs = append(reqs, Requirement{Category: model.ProductInverter, MinCapacity: 6})
		}
	}
	sels, err := s.SelectAll(context.Background(), reqs)
	require.NoError(t, err)
	for i, req := range reqs {
		want, err := s.Select(req)
		require.NoError(t, err)
		assert.Equal(t, want.SupplierProduct.ID, sels[i].Offering.SupplierProduct.ID)
	}
}

func TestSelectAllCancelled(t *testing.T) {
	s := newSelector(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.SelectAll(ctx, []Requirement{{Category: model.ProductPanel}})
	assert.ErrorIs(t, err, context.Canceled)
}
