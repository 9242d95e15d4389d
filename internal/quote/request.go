package quote

import (
	"solar-quote/internal/apperr"
	"solar-quote/internal/model"
	"solar-quote/internal/validate"
)

// Site carries the installation details that drive labor complexity.
// MaxPanels is the roof's panel capacity, 0 when not surveyed.
type Site struct {
	RoofType            string `json:"roofType,omitempty"`
	Stories             int    `json:"stories,omitempty" validate:"gte=0,lte=5"`
	Phases              int    `json:"phases,omitempty" validate:"omitempty,oneof=1 3"`
	RequiresScaffolding bool   `json:"requiresScaffolding"`
	DifficultAccess     bool   `json:"difficultAccess"`
	HasAsbestos         bool   `json:"hasAsbestos"`
	MaxPanels           int    `json:"maxPanels,omitempty" validate:"gte=0,lte=10000"`
}

// Request is one quote calculation. Region defaults to the state of the
// postcode's zone. Tier is required by Compute and ignored by
// ComputePackages.
type Request struct {
	Postcode int                      `json:"postcode" validate:"required,gte=1,lte=9999"`
	Region   string                   `json:"region,omitempty"`
	Tier     model.Tier               `json:"tier,omitempty" validate:"omitempty,oneof=budget mid premium"`
	Profile  model.ConsumptionProfile `json:"profile"`
	Site     Site                     `json:"site"`
	Addons   []string                 `json:"addons,omitempty" validate:"unique,dive,required"`
}

func (r Request) validate() error {
	if err := validate.Struct(r); err != nil {
		return err
	}
	if b := r.Profile.AnnualBill; b != nil && b.IsNegative() {
		return apperr.Invalid("profile.annualBill", "must be >= 0")
	}
	return nil
}
