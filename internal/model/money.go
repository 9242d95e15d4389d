package model

import "github.com/shopspring/decimal"

// Money is a currency amount in dollars. All prices, costs and rebates use
// decimal arithmetic; float64 is reserved for physical quantities (kW, kWh).
type Money = decimal.Decimal

// Dollars builds a Money from a whole-cent-safe float literal. Intended for
// fixtures and constants, not for parsing user input.
func Dollars(v float64) Money { return decimal.NewFromFloat(v) }

// RoundCents rounds to two decimal places, half away from zero.
func RoundCents(m Money) Money { return m.Round(2) }
