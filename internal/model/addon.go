package model

import "errors"

// Addon is an optional extra (bird proofing, EV charger, monitoring...).
// Cost is the sell price; InstallCost is added to the installation materials.
type Addon struct {
	ID          string `yaml:"id" json:"id"`
	Name        string `yaml:"name" json:"name"`
	Category    string `yaml:"category" json:"category"`
	Cost        Money  `yaml:"cost" json:"cost"`
	InstallCost Money  `yaml:"install_cost" json:"installCost"`
	Active      bool   `yaml:"active" json:"active"`
}

func (a Addon) Validate() error {
	if a.ID == "" {
		return errors.New("id is required")
	}
	if a.Cost.IsNegative() || a.InstallCost.IsNegative() {
		return errors.New("addon " + a.ID + ": costs must be >= 0")
	}
	return nil
}

// QuoteSettings are the commercial settings for a region.
type QuoteSettings struct {
	Region        string `yaml:"region" json:"region"`
	MinimumProfit Money  `yaml:"minimum_profit" json:"minimumProfit"`
	ValidityDays  int    `yaml:"validity_days" json:"validityDays"`
}

func (s QuoteSettings) Validate() error {
	if s.Region == "" {
		return errors.New("region is required")
	}
	if s.MinimumProfit.IsNegative() {
		return errors.New("minimum_profit must be >= 0")
	}
	if s.ValidityDays < 0 {
		return errors.New("validity_days must be >= 0")
	}
	return nil
}
