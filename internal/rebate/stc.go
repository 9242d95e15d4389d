package rebate

import (
	"solar-quote/internal/model"

	"github.com/shopspring/decimal"
)

// NumSTCs is floor(systemSizeKw × zoneRating × deemingPeriod). The floor is
// applied once, to the exact decimal product, so binary float error cannot
// move the count across an integer boundary.
func NumSTCs(systemSizeKw, zoneRating, deemingPeriod float64) int {
	p := decimal.NewFromFloat(systemSizeKw).
		Mul(decimal.NewFromFloat(zoneRating)).
		Mul(decimal.NewFromFloat(deemingPeriod)).
		Floor()
	if p.IsNegative() {
		return 0
	}
	return int(p.IntPart())
}

// STCAmount is round(numSTCs × stcValue) to whole dollars, half-up.
func STCAmount(numSTCs int, stcValue model.Money) model.Money {
	return decimal.NewFromInt(int64(numSTCs)).Mul(stcValue).Round(0)
}
