package indicators

import (
	"math"
	"time"

	"github.com/rustyeddy/marketwatch/market"
)

// HACandle is a Heikin-Ashi smoothed candle.
type HACandle struct {
	Time  time.Time `json:"time"`
	Open  float64   `json:"open"`
	High  float64   `json:"high"`
	Low   float64   `json:"low"`
	Close float64   `json:"close"`

	// RawLow and RawHigh keep the source candle's extremes.
	RawHigh float64 `json:"rawHigh"`
	RawLow  float64 `json:"rawLow"`
}

func (c HACandle) Bullish() bool { return c.Close > c.Open }
func (c HACandle) Bearish() bool { return c.Close < c.Open }

// HeikinAshi smooths a candle series.
//
//	close[i] = (o+h+l+c)/4
//	open[0]  = raw open[0]
//	open[i]  = (open[i-1] + close[i-1]) / 2
//	high[i]  = max(raw high, open, close)
//	low[i]   = min(raw low, open, close)
func HeikinAshi(candles []market.Candle) []HACandle {
	out := make([]HACandle, len(candles))
	s := NewSmoother()
	for i, c := range candles {
		s.Update(c)
		out[i] = s.Value()
	}
	return out
}

// Smoother is the streaming form of HeikinAshi.
type Smoother struct {
	prev  HACandle
	count int
}

func NewSmoother() *Smoother { return &Smoother{} }

func (s *Smoother) Name() string { return "HA" }

func (s *Smoother) Warmup() int { return 1 }

func (s *Smoother) Reset() {
	s.prev = HACandle{}
	s.count = 0
}

func (s *Smoother) Update(c market.Candle) {
	haClose := (c.Open + c.High + c.Low + c.Close) / 4
	haOpen := c.Open
	if s.count > 0 {
		haOpen = (s.prev.Open + s.prev.Close) / 2
	}

	s.prev = HACandle{
		Time:    c.Time,
		Open:    haOpen,
		High:    math.Max(c.High, math.Max(haOpen, haClose)),
		Low:     math.Min(c.Low, math.Min(haOpen, haClose)),
		Close:   haClose,
		RawHigh: c.High,
		RawLow:  c.Low,
	}
	s.count++
}

func (s *Smoother) Ready() bool { return s.count > 0 }

// Value returns the latest smoothed candle, or the zero candle before the
// first update.
func (s *Smoother) Value() HACandle {
	return s.prev
}
