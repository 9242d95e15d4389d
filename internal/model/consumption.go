package model

type ACUsage string

const (
	ACNone     ACUsage = "none"
	ACMinimal  ACUsage = "minimal"
	ACModerate ACUsage = "moderate"
	ACHeavy    ACUsage = "heavy"
)

type HotWater string

const (
	HotWaterElectric HotWater = "electric"
	HotWaterGas      HotWater = "gas"
	HotWaterSolar    HotWater = "solar"
	HotWaterHeatPump HotWater = "heat_pump"
)

// ConsumptionProfile describes a household's usage.
// When DailyConsumptionKwh is 0 it is derived from the consumption
// assumptions. EveningUsageKwh/NightUsageKwh are optional measured figures.
type ConsumptionProfile struct {
	HouseholdSize       int      `json:"householdSize" validate:"gte=0,lte=20"`
	HasEV               bool     `json:"hasEv"`
	PlanningEV          bool     `json:"planningEv"`
	EVCount             int      `json:"evCount" validate:"gte=0,lte=10"`
	EVChargingMethod    string   `json:"evChargingMethod,omitempty"`
	EVChargingHours     float64  `json:"evChargingHours,omitempty" validate:"gte=0,lte=24"`
	HasPool             bool     `json:"hasPool"`
	PoolHeated          bool     `json:"poolHeated"`
	HomeOfficeCount     int      `json:"homeOfficeCount" validate:"gte=0,lte=10"`
	ACUsage             ACUsage  `json:"acUsage,omitempty" validate:"omitempty,oneof=none minimal moderate heavy"`
	HotWater            HotWater `json:"hotWater,omitempty" validate:"omitempty,oneof=electric gas solar heat_pump"`
	DailyConsumptionKwh float64  `json:"dailyConsumptionKwh" validate:"gte=0,lte=1000"`
	EveningUsageKwh     float64  `json:"eveningUsageKwh,omitempty" validate:"gte=0,lte=1000"`
	NightUsageKwh       float64  `json:"nightUsageKwh,omitempty" validate:"gte=0,lte=1000"`
	// AnnualBill is the customer's historical yearly electricity spend, if known.
	AnnualBill *Money `json:"annualBill,omitempty"`
}

// EVs is the number of vehicles to plan for.
func (p ConsumptionProfile) EVs() int {
	if !p.HasEV && !p.PlanningEV {
		return 0
	}
	if p.EVCount < 1 {
		return 1
	}
	return p.EVCount
}
