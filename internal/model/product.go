package model

import (
	"errors"
	"fmt"
	"strings"
)

// ProductType is the catalog category. Values are stable; they appear in
// API errors and exports.
type ProductType string

const (
	ProductPanel    ProductType = "PANEL"
	ProductBattery  ProductType = "BATTERY"
	ProductInverter ProductType = "INVERTER"
	ProductAddon    ProductType = "ADDON"
	ProductOther    ProductType = "OTHER"
)

func ParseProductType(s string) (ProductType, error) {
	t := ProductType(strings.ToUpper(strings.TrimSpace(s)))
	switch t {
	case ProductPanel, ProductBattery, ProductInverter, ProductAddon, ProductOther:
		return t, nil
	}
	return "", fmt.Errorf("unknown product type %q", s)
}

// Specifications holds the sizing-relevant figures of a product.
// Units:
// - WattageW: W per panel
// - CapacityKwh: usable kWh per battery unit
// - CapacityKw: AC kW per inverter
type Specifications struct {
	WattageW    float64 `yaml:"wattage_w" json:"wattageW,omitempty"`
	CapacityKwh float64 `yaml:"capacity_kwh" json:"capacityKwh,omitempty"`
	CapacityKw  float64 `yaml:"capacity_kw" json:"capacityKw,omitempty"`
}

type Product struct {
	ID             string         `yaml:"id" json:"id"`
	Type           ProductType    `yaml:"type" json:"type"`
	BrandID        string         `yaml:"brand_id" json:"brandId"`
	Manufacturer   string         `yaml:"manufacturer" json:"manufacturer"`
	Name           string         `yaml:"name" json:"name"`
	Specifications Specifications `yaml:"specifications" json:"specifications"`
}

// Capacity is the figure requirements filter on: kWh for batteries, kW for
// inverters, W for panels, 0 otherwise.
func (p Product) Capacity() float64 {
	switch p.Type {
	case ProductBattery:
		return p.Specifications.CapacityKwh
	case ProductInverter:
		return p.Specifications.CapacityKw
	case ProductPanel:
		return p.Specifications.WattageW
	}
	return 0
}

func (p Product) Validate() error {
	if p.ID == "" {
		return errors.New("id is required")
	}
	if _, err := ParseProductType(string(p.Type)); err != nil {
		return err
	}
	switch p.Type {
	case ProductPanel, ProductBattery, ProductInverter:
		if p.Capacity() <= 0 {
			return fmt.Errorf("%s %s: capacity specification must be > 0", p.Type, p.ID)
		}
	}
	return nil
}

type Supplier struct {
	ID     string `yaml:"id" json:"id"`
	Name   string `yaml:"name" json:"name"`
	Active bool   `yaml:"active" json:"active"`
}

// SupplierProduct is one supplier's priced listing of a product.
// UnitCost is what we pay; RetailPrice is the list price before the package
// multiplier.
type SupplierProduct struct {
	ID            string  `yaml:"id" json:"id"`
	SupplierID    string  `yaml:"supplier_id" json:"supplierId"`
	ProductID     string  `yaml:"product_id" json:"productId"`
	UnitCost      Money   `yaml:"unit_cost" json:"unitCost"`
	RetailPrice   Money   `yaml:"retail_price" json:"retailPrice"`
	MarkupPercent float64 `yaml:"markup_percent" json:"markupPercent"`
	Active        bool    `yaml:"active" json:"isActive"`
	Primary       bool    `yaml:"primary" json:"isPrimary"`
}
