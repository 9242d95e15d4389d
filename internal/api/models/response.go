package models

import (
	"time"

	"solar-quote/internal/catalog"
	"solar-quote/internal/model"
)

// PackagesResponse lists one quote per active tier.
type PackagesResponse struct {
	SnapshotVersion string         `json:"snapshotVersion"`
	Packages        []PackageQuote `json:"packages"`
}

// PackageQuote is one tier of a packages response. Exactly one of Quote and
// Error is set.
type PackageQuote struct {
	Tier  model.Tier   `json:"tier"`
	Name  string       `json:"name"`
	Quote *model.Quote `json:"quote,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

type ZoneResponse struct {
	Postcode int              `json:"postcode"`
	Zone     model.ZoneRating `json:"zone"`
}

// SelectResponse mirrors the requirement order of the request.
type SelectResponse struct {
	Selections []SelectionResult `json:"selections"`
}

type SelectionResult struct {
	Requirement catalog.Requirement `json:"requirement"`
	Offering    *catalog.Offering   `json:"offering,omitempty"`
	Error       *ErrorDetail        `json:"error,omitempty"`
}

type FormulaResponse struct {
	Formula   string   `json:"formula"`
	Variables []string `json:"variables"`
	Result    float64  `json:"result"`
}

// PackageInfo describes an active package template.
type PackageInfo struct {
	Tier        model.Tier `json:"tier"`
	Name        string     `json:"name"`
	SolarSizing string     `json:"solarSizing"`
	Battery     string     `json:"batterySizing"`
	Multiplier  float64    `json:"priceMultiplier"`
}

type ReseedResponse struct {
	Version  string         `json:"version"`
	LoadedAt time.Time      `json:"loadedAt"`
	Counts   map[string]int `json:"counts"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}
