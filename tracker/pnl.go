package tracker

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/marketwatch/market"
)

// PnLPct returns the realized percent return of a trade, rounded to four
// places. A zero entry yields zero.
func PnLPct(dir market.Direction, entry, exit float64) float64 {
	e := decimal.NewFromFloat(entry)
	if e.IsZero() {
		return 0
	}
	x := decimal.NewFromFloat(exit)

	diff := x.Sub(e)
	if dir == market.Short {
		diff = e.Sub(x)
	}
	pct, _ := diff.Div(e).Mul(decimal.NewFromInt(100)).Round(4).Float64()
	return pct
}
