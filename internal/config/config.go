package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"solar-quote/internal/sizing"

	"gopkg.in/yaml.v3"
)

// Config is the engine configuration shape (YAML). Every field is optional;
// a loaded file is merged onto Defaults() with MergeEngine.
type Config struct {
	// Optional: load tariff figures from a separate YAML (e.g. tariffs/synergy-a1.yaml).
	// If both TariffFile and Tariff are provided, Tariff overrides TariffFile.
	TariffFile          string        `yaml:"tariff_file"`
	Tariff              TariffConfig  `yaml:"tariff"`
	Sizing              SizingConfig  `yaml:"sizing"`
	Savings             SavingsConfig `yaml:"savings"`
	SupplierParallelism int           `yaml:"supplier_parallelism"`
}

type TariffConfig struct {
	Name               string  `yaml:"name"`
	RetailRatePerKwh   float64 `yaml:"retail_rate_per_kwh"`
	FeedInTariffPerKwh float64 `yaml:"feed_in_tariff_per_kwh"`
}

type SizingConfig struct {
	EveningShare   float64 `yaml:"evening_share"`
	NightShare     float64 `yaml:"night_share"`
	NighttimeHours float64 `yaml:"nighttime_hours"`
	// BatteryBuffer scales coverage-hours and overnight battery targets; 1.0 = none.
	BatteryBuffer float64 `yaml:"battery_buffer"`
}

// SelfConsumptionTier applies when battery kWh / daily production is at
// least MinBatteryRatio.
type SelfConsumptionTier struct {
	MinBatteryRatio float64 `yaml:"min_battery_ratio"`
	Rate            float64 `yaml:"rate"`
}

type SavingsConfig struct {
	Escalation10y            float64               `yaml:"savings_escalation_10y"`
	Escalation25y            float64               `yaml:"savings_escalation_25y"`
	MonthlyProductionFactors []float64             `yaml:"monthly_production_factors"`
	NoBatterySelfConsumption float64               `yaml:"no_battery_self_consumption"`
	SelfConsumptionTiers     []SelfConsumptionTier `yaml:"self_consumption_tiers"`
}

// Defaults are the Perth figures the quote tool has always used.
func Defaults() Config {
	return Config{
		Tariff: TariffConfig{
			Name:               "default",
			RetailRatePerKwh:   0.28,
			FeedInTariffPerKwh: 0.03,
		},
		Sizing: SizingConfig{
			EveningShare:   0.4,
			NightShare:     0.3,
			NighttimeHours: 12,
			BatteryBuffer:  1.1,
		},
		Savings: SavingsConfig{
			Escalation10y: 1.03,
			Escalation25y: 1.025,
			MonthlyProductionFactors: []float64{
				0.095, 0.090, 0.088, 0.080, 0.070, 0.065,
				0.068, 0.075, 0.082, 0.090, 0.095, 0.102,
			},
			NoBatterySelfConsumption: 0.35,
			SelfConsumptionTiers: []SelfConsumptionTier{
				{MinBatteryRatio: 0.5, Rate: 0.80},
				{MinBatteryRatio: 0.3, Rate: 0.75},
				{MinBatteryRatio: 0, Rate: 0.65},
			},
		},
		SupplierParallelism: 4,
	}
}

// Load reads path, merges it onto Defaults and validates the result.
// An empty path yields the defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		c := Defaults()
		return &c, nil
	}
	loaded, err := LoadUnchecked(path)
	if err != nil {
		return nil, err
	}
	c := MergeEngine(Defaults(), *loaded)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

// LoadUnchecked loads and merges the tariff file, but does not validate or
// apply defaults. Useful for printing what a file actually sets.
func LoadUnchecked(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Config
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if c.TariffFile != "" {
		tariffPath := c.TariffFile
		if !filepath.IsAbs(tariffPath) {
			// Relative to the config file first, then to the cwd.
			cand := filepath.Join(filepath.Dir(path), tariffPath)
			if _, err := os.Stat(cand); err == nil {
				tariffPath = cand
			}
		}
		loaded, err := loadTariffFile(tariffPath)
		if err != nil {
			return nil, err
		}
		c.Tariff = MergeTariff(loaded, c.Tariff)
	}
	return &c, nil
}

func (c *Config) Validate() error {
	if c == nil {
		return errors.New("config is nil")
	}
	if c.Tariff.RetailRatePerKwh <= 0 {
		return errors.New("tariff.retail_rate_per_kwh must be > 0")
	}
	if c.Tariff.FeedInTariffPerKwh < 0 {
		return errors.New("tariff.feed_in_tariff_per_kwh must be >= 0")
	}
	if err := c.Sizing.ToParams().Validate(); err != nil {
		return fmt.Errorf("sizing config invalid: %w", err)
	}
	s := c.Savings
	if s.Escalation10y <= 0 || s.Escalation25y <= 0 {
		return errors.New("savings escalators must be > 0")
	}
	if len(s.MonthlyProductionFactors) != 12 {
		return fmt.Errorf("savings.monthly_production_factors: want 12 values, got %d", len(s.MonthlyProductionFactors))
	}
	for i, f := range s.MonthlyProductionFactors {
		if f < 0 {
			return fmt.Errorf("savings.monthly_production_factors[%d] must be >= 0", i)
		}
	}
	if len(s.SelfConsumptionTiers) == 0 {
		return errors.New("savings.self_consumption_tiers is empty")
	}
	prev := -1.0
	for i, t := range s.SelfConsumptionTiers {
		if t.Rate < 0 || t.Rate > 1 {
			return fmt.Errorf("savings.self_consumption_tiers[%d].rate must be in [0, 1]", i)
		}
		if prev >= 0 && t.MinBatteryRatio >= prev {
			return fmt.Errorf("savings.self_consumption_tiers must be ordered by descending min_battery_ratio")
		}
		prev = t.MinBatteryRatio
	}
	if s.NoBatterySelfConsumption < 0 || s.NoBatterySelfConsumption > 1 {
		return errors.New("savings.no_battery_self_consumption must be in [0, 1]")
	}
	if c.SupplierParallelism < 0 {
		return errors.New("supplier_parallelism must be >= 0")
	}
	return nil
}

func (s SizingConfig) ToParams() sizing.Params {
	return sizing.Params{
		EveningShare:   s.EveningShare,
		NightShare:     s.NightShare,
		NighttimeHours: s.NighttimeHours,
		BatteryBuffer:  s.BatteryBuffer,
	}
}

// SelfConsumptionRate picks the share of production used on site for a
// battery-to-daily-production ratio.
func (s SavingsConfig) SelfConsumptionRate(batteryRatio float64) float64 {
	if batteryRatio > 0 {
		for _, t := range s.SelfConsumptionTiers {
			if batteryRatio >= t.MinBatteryRatio {
				return t.Rate
			}
		}
	}
	return s.NoBatterySelfConsumption
}

type tariffFileWrapper struct {
	Tariff TariffConfig `yaml:"tariff"`
}

func loadTariffFile(path string) (TariffConfig, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return TariffConfig{}, err
	}
	var w tariffFileWrapper
	if err := yaml.Unmarshal(raw, &w); err != nil {
		return TariffConfig{}, fmt.Errorf("parse %s: %w", path, err)
	}
	return w.Tariff, nil
}

// MergeTariff overlays non-zero fields from override onto base.
func MergeTariff(base, override TariffConfig) TariffConfig {
	out := base
	if override.Name != "" {
		out.Name = override.Name
	}
	if override.RetailRatePerKwh != 0 {
		out.RetailRatePerKwh = override.RetailRatePerKwh
	}
	// A zero feed-in tariff cannot be expressed as an override; use 0.0001.
	if override.FeedInTariffPerKwh != 0 {
		out.FeedInTariffPerKwh = override.FeedInTariffPerKwh
	}
	return out
}

// MergeEngine overlays non-zero fields from override onto base.
func MergeEngine(base, override Config) Config {
	out := base
	out.TariffFile = override.TariffFile
	out.Tariff = MergeTariff(base.Tariff, override.Tariff)

	if override.Sizing.EveningShare != 0 {
		out.Sizing.EveningShare = override.Sizing.EveningShare
	}
	if override.Sizing.NightShare != 0 {
		out.Sizing.NightShare = override.Sizing.NightShare
	}
	if override.Sizing.NighttimeHours != 0 {
		out.Sizing.NighttimeHours = override.Sizing.NighttimeHours
	}
	if override.Sizing.BatteryBuffer != 0 {
		out.Sizing.BatteryBuffer = override.Sizing.BatteryBuffer
	}

	if override.Savings.Escalation10y != 0 {
		out.Savings.Escalation10y = override.Savings.Escalation10y
	}
	if override.Savings.Escalation25y != 0 {
		out.Savings.Escalation25y = override.Savings.Escalation25y
	}
	if len(override.Savings.MonthlyProductionFactors) > 0 {
		out.Savings.MonthlyProductionFactors = append([]float64(nil), override.Savings.MonthlyProductionFactors...)
	}
	if override.Savings.NoBatterySelfConsumption != 0 {
		out.Savings.NoBatterySelfConsumption = override.Savings.NoBatterySelfConsumption
	}
	if len(override.Savings.SelfConsumptionTiers) > 0 {
		out.Savings.SelfConsumptionTiers = append([]SelfConsumptionTier(nil), override.Savings.SelfConsumptionTiers...)
	}

	if override.SupplierParallelism != 0 {
		out.SupplierParallelism = override.SupplierParallelism
	}
	return out
}
