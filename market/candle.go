package market

import "time"

// Candle represents OHLC (Open, High, Low, Close) candlestick data for one
// sampling interval. Series are ordered oldest to newest.
type Candle struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Bullish reports a strictly green candle.
func (c Candle) Bullish() bool { return c.Close > c.Open }

// Bearish reports a strictly red candle.
func (c Candle) Bearish() bool { return c.Close < c.Open }

// Closes extracts the close prices of a series.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}

// Last returns the newest candle and false for an empty series.
func Last(candles []Candle) (Candle, bool) {
	if len(candles) == 0 {
		return Candle{}, false
	}
	return candles[len(candles)-1], true
}
