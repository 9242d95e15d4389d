package model

import (
	"time"

	"github.com/google/uuid"
)

// LineItem is one priced row of a quote.
// UnitPrice is the sell price after the package multiplier; Wholesale is
// UnitCost × Quantity.
type LineItem struct {
	Category          ProductType `json:"category"`
	ProductID         string      `json:"productId,omitempty"`
	SupplierID        string      `json:"supplierId,omitempty"`
	SupplierProductID string      `json:"supplierProductId,omitempty"`
	Name              string      `json:"name"`
	Quantity          int         `json:"quantity"`

	UnitCost  Money `json:"unitCost"`
	UnitPrice Money `json:"unitPrice"`
	Total     Money `json:"total"`
	Wholesale Money `json:"wholesale"`
}

type RebateSummary struct {
	NumSTCs        int   `json:"numStcs"`
	Federal        Money `json:"federal"`
	FederalBattery Money `json:"federalBattery"`
	StateBattery   Money `json:"stateBattery"`
	Total          Money `json:"total"`
}

// InstallationSummary records both installation options and the one used.
// SubcontractorCost is nil when no subcontractor is configured.
type InstallationSummary struct {
	Recommended       string  `json:"recommended"`
	InternalCost      Money   `json:"internalCost"`
	SubcontractorCost *Money  `json:"subcontractorCost"`
	SubcontractorID   string  `json:"subcontractorId,omitempty"`
	LaborHours        float64 `json:"laborHours"`
}

type ProfitAnalysis struct {
	Wholesale     Money   `json:"wholesale"`
	GrossProfit   Money   `json:"grossProfit"`
	MarginPercent float64 `json:"marginPercent"`
}

// Savings projections. PaybackYears is nil when there are no annual savings.
type Savings struct {
	AnnualProductionKwh   float64     `json:"annualProductionKwh"`
	MonthlyProductionKwh  [12]float64 `json:"monthlyProductionKwh"`
	SelfConsumptionRate   float64     `json:"selfConsumptionRate"`
	AnnualSavings         Money       `json:"annualSavings"`
	TenYearSavings        Money       `json:"tenYearSavings"`
	TwentyFiveYearSavings Money       `json:"twentyFiveYearSavings"`
	PaybackYears          *Money      `json:"paybackYears"`
}

// PaybackLabel renders PaybackYears for display: one decimal place, or
// "undefined" when savings never pay the system off.
func (s Savings) PaybackLabel() string {
	if s.PaybackYears == nil {
		return "undefined"
	}
	return s.PaybackYears.StringFixed(1)
}

// Quote is the immutable result of one calculation. A change in inputs
// produces a new Quote; nothing mutates one after Compute returns.
type Quote struct {
	ID              uuid.UUID `json:"id"`
	CreatedAt       time.Time `json:"createdAt"`
	ExpiresAt       time.Time `json:"expiresAt"`
	SnapshotVersion string    `json:"snapshotVersion"`

	Postcode int     `json:"postcode"`
	Zone     string  `json:"zone"`
	State    string  `json:"state"`
	Region   string  `json:"region"`
	Tier     Tier    `json:"tier"`
	Yield    float64 `json:"solarYieldFactor"`

	SystemSizeKw        float64 `json:"systemSizeKw"`
	TargetSystemKw      float64 `json:"targetSystemKw"`
	RoofLimited         bool    `json:"roofLimited,omitempty"`
	PanelCount          int     `json:"panelCount"`
	PanelWattageW       float64 `json:"panelWattageW"`
	BatteryKwh          float64 `json:"batteryKwh"`
	BatteryUnits        int     `json:"batteryUnits"`
	DailyConsumptionKwh float64 `json:"dailyConsumptionKwh"`

	Components []LineItem `json:"components"`
	Addons     []LineItem `json:"addons"`

	ComponentsCost   Money `json:"componentsCost"`
	AddonsCost       Money `json:"addonsCost"`
	InstallationCost Money `json:"installationCost"`
	Subtotal         Money `json:"subtotal"`

	Installation InstallationSummary `json:"installation"`
	Rebates      RebateSummary       `json:"rebates"`

	MinimumProfit  Money `json:"minimumProfit"`
	FloorApplied   bool  `json:"floorApplied"`
	FloorShortfall Money `json:"floorShortfall"`
	FinalPrice     Money `json:"finalPrice"`

	Profit  ProfitAnalysis `json:"profit"`
	Savings Savings        `json:"savings"`
}
