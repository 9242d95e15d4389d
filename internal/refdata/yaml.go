package refdata

import (
	"bytes"
	"context"
	"os"
	"path/filepath"

	"solar-quote/internal/installation"
	"solar-quote/internal/model"
	"solar-quote/internal/sizing"

	"github.com/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Reference data file names inside a YAML source directory.
const (
	ZonesFile       = "zones.yaml"
	RebatesFile     = "rebates.yaml"
	CatalogFile     = "catalog.yaml"
	PackagesFile    = "packages.yaml"
	LaborFile       = "labor.yaml"
	AddonsFile      = "addons.yaml"
	SettingsFile    = "settings.yaml"
	ConsumptionFile = "consumption.yaml"
)

// YAMLSource reads reference data from a directory of YAML files. Every file
// except consumption.yaml is required.
type YAMLSource struct {
	Dir string
}

func NewYAMLSource(dir string) *YAMLSource { return &YAMLSource{Dir: dir} }

type zonesFile struct {
	Zones []model.ZoneRating `yaml:"zones"`
}

type rebatesFile struct {
	Rebates []model.RebateConfig `yaml:"rebates"`
}

type catalogFile struct {
	Products         []model.Product         `yaml:"products"`
	Suppliers        []model.Supplier        `yaml:"suppliers"`
	SupplierProducts []model.SupplierProduct `yaml:"supplier_products"`
}

type packagesFile struct {
	Packages []model.PackageTemplate `yaml:"packages"`
}

type addonsFile struct {
	Addons []model.Addon `yaml:"addons"`
}

type settingsFile struct {
	QuoteSettings     []model.QuoteSettings `yaml:"quote_settings"`
	SolarYieldByState map[string]float64    `yaml:"solar_yield_by_state"`
}

func (s *YAMLSource) Load(ctx context.Context) (*RawData, error) {
	var (
		raw      RawData
		zones    zonesFile
		rebates  rebatesFile
		cat      catalogFile
		packages packagesFile
		labor    installation.Tables
		addons   addonsFile
		settings settingsFile
	)
	files := []struct {
		name string
		into any
	}{
		{ZonesFile, &zones},
		{RebatesFile, &rebates},
		{CatalogFile, &cat},
		{PackagesFile, &packages},
		{LaborFile, &labor},
		{AddonsFile, &addons},
		{SettingsFile, &settings},
	}
	for _, f := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := s.decode(f.name, f.into); err != nil {
			return nil, err
		}
	}

	consumption := &sizing.Assumptions{}
	switch err := s.decode(ConsumptionFile, consumption); {
	case err == nil:
		raw.Consumption = consumption
	case errors.Is(err, os.ErrNotExist):
	default:
		return nil, err
	}

	raw.Zones = zones.Zones
	raw.Rebates = rebates.Rebates
	raw.Products = cat.Products
	raw.Suppliers = cat.Suppliers
	raw.SupplierProducts = cat.SupplierProducts
	raw.Packages = packages.Packages
	raw.Installation = labor
	raw.Addons = addons.Addons
	raw.QuoteSettings = settings.QuoteSettings
	raw.SolarYieldByState = settings.SolarYieldByState
	return &raw, nil
}

// decode reads one file strictly: unknown keys are an error, since a typo in
// an operator-edited file would otherwise silently zero a field.
func (s *YAMLSource) decode(name string, into any) error {
	path := filepath.Join(s.Dir, name)
	b, err := os.ReadFile(path)
	if err != nil {
		return errors.Wrapf(err, "failed to read %s", path)
	}
	dec := yaml.NewDecoder(bytes.NewReader(b))
	dec.KnownFields(true)
	if err := dec.Decode(into); err != nil {
		return errors.Wrapf(err, "failed to parse %s", path)
	}
	return nil
}
