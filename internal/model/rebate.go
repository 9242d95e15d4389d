package model

import (
	"errors"
	"strings"
)

type RebateType string

const (
	// RebateFederalSRES is the small-scale renewable energy scheme (STCs on
	// the PV array). Its amount follows the fixed STC formula; only the
	// deemingPeriod and stcValue variables come from config.
	RebateFederalSRES RebateType = "federal_sres"
	// RebateFederalBattery and RebateStateBattery are formula driven and
	// clamped to the battery cost.
	RebateFederalBattery RebateType = "federal_battery"
	RebateStateBattery   RebateType = "state_battery"
)

// RebateConfig is one operator-maintained rebate rule.
// Region "" applies everywhere.
type RebateConfig struct {
	ID        string             `yaml:"id" json:"id"`
	Type      RebateType         `yaml:"type" json:"type"`
	Region    string             `yaml:"region" json:"region"`
	Active    bool               `yaml:"active" json:"active"`
	Variables map[string]float64 `yaml:"variables" json:"variables"`
	Formula   string             `yaml:"formula" json:"formula"`
}

// AppliesTo reports whether the config is active and covers region.
func (c RebateConfig) AppliesTo(region string) bool {
	if !c.Active {
		return false
	}
	return c.Region == "" || strings.EqualFold(c.Region, region)
}

func (c RebateConfig) IsBattery() bool {
	return c.Type == RebateFederalBattery || c.Type == RebateStateBattery
}

func (c RebateConfig) Validate() error {
	switch c.Type {
	case RebateFederalSRES, RebateFederalBattery, RebateStateBattery:
	case "":
		return errors.New("type is required")
	default:
		return errors.New("unknown rebate type " + string(c.Type))
	}
	if c.ID == "" {
		return errors.New("id is required")
	}
	if c.IsBattery() && strings.TrimSpace(c.Formula) == "" {
		return errors.New("battery rebate requires a formula")
	}
	return nil
}
