// Package catalog holds the product/supplier catalog and picks the offering
// to quote for each required component.
package catalog

import (
	"fmt"
	"sort"
	"strings"

	"solar-quote/internal/apperr"
	"solar-quote/internal/model"
)

// Offering is a sellable supplier listing joined with its product and
// supplier.
type Offering struct {
	Product         model.Product         `json:"product"`
	Supplier        model.Supplier        `json:"supplier"`
	SupplierProduct model.SupplierProduct `json:"supplierProduct"`
}

// Catalog is immutable after New.
type Catalog struct {
	products  map[string]model.Product
	suppliers map[string]model.Supplier
	// sellable offerings only: active listing from an active supplier
	offerings []Offering
	listings  int
}

// New joins the three tables and checks integrity. Every listing must
// reference a known product and supplier; an active listing must carry a
// positive retail price and a non-negative unit cost.
func New(products []model.Product, suppliers []model.Supplier, listings []model.SupplierProduct) (*Catalog, error) {
	c := &Catalog{
		products:  make(map[string]model.Product, len(products)),
		suppliers: make(map[string]model.Supplier, len(suppliers)),
		listings:  len(listings),
	}
	for _, p := range products {
		if err := p.Validate(); err != nil {
			return nil, &apperr.ConfigError{What: "product", Key: p.ID, Msg: err.Error()}
		}
		if _, dup := c.products[p.ID]; dup {
			return nil, &apperr.ConfigError{What: "product", Key: p.ID, Msg: "duplicate id"}
		}
		c.products[p.ID] = p
	}
	for _, s := range suppliers {
		if s.ID == "" {
			return nil, &apperr.ConfigError{What: "supplier", Msg: "id is required"}
		}
		if _, dup := c.suppliers[s.ID]; dup {
			return nil, &apperr.ConfigError{What: "supplier", Key: s.ID, Msg: "duplicate id"}
		}
		c.suppliers[s.ID] = s
	}

	seen := make(map[string]bool, len(listings))
	for _, sp := range listings {
		if sp.ID == "" || seen[sp.ID] {
			return nil, &IntegrityError{SupplierProductID: sp.ID, Msg: "missing or duplicate id"}
		}
		seen[sp.ID] = true
		p, ok := c.products[sp.ProductID]
		if !ok {
			return nil, &IntegrityError{SupplierProductID: sp.ID, Msg: fmt.Sprintf("unknown product %q", sp.ProductID)}
		}
		s, ok := c.suppliers[sp.SupplierID]
		if !ok {
			return nil, &IntegrityError{SupplierProductID: sp.ID, Msg: fmt.Sprintf("unknown supplier %q", sp.SupplierID)}
		}
		if !sp.Active {
			continue
		}
		if !sp.RetailPrice.IsPositive() {
			return nil, &IntegrityError{SupplierProductID: sp.ID, Msg: "active offering has no retail price"}
		}
		if sp.UnitCost.IsNegative() {
			return nil, &IntegrityError{SupplierProductID: sp.ID, Msg: "unit cost is negative"}
		}
		if !s.Active {
			continue
		}
		c.offerings = append(c.offerings, Offering{Product: p, Supplier: s, SupplierProduct: sp})
	}
	sort.SliceStable(c.offerings, func(i, j int) bool { return better(c.offerings[i], c.offerings[j]) })
	return c, nil
}

// better is the selection order: lowest unit cost, then primary supplier,
// then lowest retail price, then supplier ID, then listing ID.
func better(a, b Offering) bool {
	as, bs := a.SupplierProduct, b.SupplierProduct
	if c := as.UnitCost.Cmp(bs.UnitCost); c != 0 {
		return c < 0
	}
	if as.Primary != bs.Primary {
		return as.Primary
	}
	if c := as.RetailPrice.Cmp(bs.RetailPrice); c != 0 {
		return c < 0
	}
	if as.SupplierID != bs.SupplierID {
		return as.SupplierID < bs.SupplierID
	}
	return as.ID < bs.ID
}

func (c *Catalog) Product(id string) (model.Product, bool) {
	p, ok := c.products[id]
	return p, ok
}

// Stats returns table sizes, for logging.
func (c *Catalog) Stats() (products, suppliers, listings, sellable int) {
	return len(c.products), len(c.suppliers), c.listings, len(c.offerings)
}

// Candidates returns every sellable offering matching req, best first.
func (c *Catalog) Candidates(req Requirement) []Offering {
	var out []Offering
	for _, o := range c.offerings {
		if req.matches(o) {
			out = append(out, o)
		}
	}
	return out
}

// BatteryCapacities lists the distinct battery capacities (kWh) that have at
// least one sellable offering, ascending. brandID "" means any brand.
func (c *Catalog) BatteryCapacities(brandID string) []float64 {
	seen := map[float64]bool{}
	var out []float64
	for _, o := range c.offerings {
		if o.Product.Type != model.ProductBattery {
			continue
		}
		if brandID != "" && !strings.EqualFold(o.Product.BrandID, brandID) {
			continue
		}
		kwh := o.Product.Specifications.CapacityKwh
		if !seen[kwh] {
			seen[kwh] = true
			out = append(out, kwh)
		}
	}
	sort.Float64s(out)
	return out
}
