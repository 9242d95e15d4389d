package models

import (
	"solar-quote/internal/catalog"
	"solar-quote/internal/model"
)

// RebateRequest is the body of POST /api/v1/rebates.
type RebateRequest struct {
	Postcode       int          `json:"postcode" binding:"required"`
	Region         string       `json:"region,omitempty"`
	SystemSizeKw   float64      `json:"systemSizeKw" binding:"gte=0"`
	BatterySizeKwh float64      `json:"batterySizeKwh" binding:"gte=0"`
	BatteryCost    *model.Money `json:"batteryCost,omitempty"`
}

// SelectRequest is the body of POST /api/v1/suppliers/select.
type SelectRequest struct {
	Requirements []catalog.Requirement `json:"requirements" binding:"required,min=1,dive"`
}

// FormulaRequest is the body of POST /api/v1/formula/evaluate. It is a dry
// run of an operator formula against sample variables.
type FormulaRequest struct {
	Formula   string             `json:"formula" binding:"required"`
	Variables map[string]float64 `json:"variables,omitempty"`
}
