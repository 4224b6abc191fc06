package breadth

import (
	"math"

	"github.com/rustyeddy/marketwatch/market"
)

// TrendTag marks three straight daily candles of one colour.
type TrendTag string

const (
	NoTrend   TrendTag = ""
	Uptrend   TrendTag = "UPTREND"
	Downtrend TrendTag = "DOWNTREND"
)

// TrendDays is how many consecutive daily candles make a trend.
const TrendDays = 3

// Trend inspects the last TrendDays daily candles.
func Trend(daily []market.Candle) TrendTag {
	if len(daily) < TrendDays {
		return NoTrend
	}
	last := daily[len(daily)-TrendDays:]

	up, down := true, true
	for _, c := range last {
		up = up && c.Bullish()
		down = down && c.Bearish()
	}
	switch {
	case up:
		return Uptrend
	case down:
		return Downtrend
	}
	return NoTrend
}

// Mover is a symbol flagged for an outsized move.
type Mover struct {
	Symbol    market.Symbol `json:"symbol"`
	Reference float64       `json:"reference"`
	Price     float64       `json:"price"`
	Pct       float64       `json:"pct"`
}

// Gap compares today's open with the previous close. The last candle is
// today's session.
func Gap(sym market.Symbol, daily []market.Candle, thresholdPct float64) (Mover, bool) {
	if len(daily) < 2 {
		return Mover{}, false
	}
	prev, today := daily[len(daily)-2], daily[len(daily)-1]

	pct, ok := market.PercentChange(prev.Close, today.Open)
	if !ok || math.Abs(pct) < thresholdPct {
		return Mover{}, false
	}
	return Mover{Symbol: sym, Reference: prev.Close, Price: today.Open, Pct: pct}, true
}

// OpeningRange compares the latest price with today's open.
func OpeningRange(sym market.Symbol, daily []market.Candle, last, thresholdPct float64) (Mover, bool) {
	if len(daily) == 0 || last <= 0 {
		return Mover{}, false
	}
	today := daily[len(daily)-1]

	pct, ok := market.PercentChange(today.Open, last)
	if !ok || math.Abs(pct) < thresholdPct {
		return Mover{}, false
	}
	return Mover{Symbol: sym, Reference: today.Open, Price: last, Pct: pct}, true
}
