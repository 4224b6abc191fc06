package indicators

import "github.com/rustyeddy/marketwatch/market"

const (
	DefaultWindow = 20
	DefaultWidth  = 2.0
)

// Series is a smoothed candle series with its aligned envelope.
type Series struct {
	HA    []HACandle
	Bands []Band
}

// Len returns the number of aligned points.
func (s Series) Len() int { return len(s.HA) }

// Empty reports a series too short to use.
func (s Series) Empty() bool { return len(s.HA) == 0 }

// MinCandles is the shortest input Transform accepts: a full window plus
// the two completed candles of the pattern and the forming candle.
func MinCandles(window int) int {
	return window + 3
}

// Transform smooths candles and computes the envelope over the smoothed
// closes. Inputs shorter than MinCandles(window) yield an empty Series.
func Transform(candles []market.Candle, window int, width float64) Series {
	if window <= 0 || len(candles) < MinCandles(window) {
		return Series{}
	}

	ha := HeikinAshi(candles)
	closes := make([]float64, len(ha))
	for i, c := range ha {
		closes[i] = c.Close
	}

	return Series{
		HA:    ha,
		Bands: Envelope(closes, window, width),
	}
}
