package strategies

import (
	"fmt"

	"github.com/rustyeddy/marketwatch/indicators"
	"github.com/rustyeddy/marketwatch/market"
)

const DefaultRiskMultiple = 3.0

// BandReversal looks for a smoothed candle that pokes through the
// volatility band followed by a candle that turns back inside it.
//
// The newest candle is still forming and is ignored. alert is the most
// recently completed candle and prev the one before it.
//
//	SHORT: prev.High >= prev.Upper, alert red, alert.High < alert.Upper
//	LONG:  prev.Low  <= prev.Lower, alert green, alert.Low > alert.Lower
type BandReversal struct {
	Window       int
	Width        float64
	RiskMultiple float64
	Buffer       BufferPolicy
}

func NewBandReversal(p Params) *BandReversal {
	br := &BandReversal{
		Window:       p.Window,
		Width:        p.Width,
		RiskMultiple: p.RiskMultiple,
		Buffer:       p.Buffer,
	}
	if br.Window <= 0 {
		br.Window = indicators.DefaultWindow
	}
	if br.Width <= 0 {
		br.Width = indicators.DefaultWidth
	}
	if br.RiskMultiple <= 0 {
		br.RiskMultiple = DefaultRiskMultiple
	}
	if br.Buffer == nil {
		br.Buffer = FixedBuffer(0)
	}
	return br
}

func (b *BandReversal) Name() string {
	return fmt.Sprintf("BAND_REVERSAL(%d,%g)", b.Window, b.Width)
}

func (b *BandReversal) MinCandles() int {
	return indicators.MinCandles(b.Window)
}

func (b *BandReversal) Detect(sym market.Symbol, candles []market.Candle) (Signal, bool) {
	return b.DetectSeries(sym, indicators.Transform(candles, b.Window, b.Width))
}

// DetectSeries runs the pattern check on an already transformed series.
func (b *BandReversal) DetectSeries(sym market.Symbol, s indicators.Series) (Signal, bool) {
	n := s.Len()
	if n < 3 {
		return Signal{}, false
	}

	prev, alert := s.HA[n-3], s.HA[n-2]
	prevBand, alertBand := s.Bands[n-3], s.Bands[n-2]
	if !prevBand.Ready || !alertBand.Ready {
		return Signal{}, false
	}

	buf := b.Buffer.Buffer(alert.Close)
	sig := Signal{Symbol: sym, DetectedAt: alert.Time}

	switch {
	case prev.High >= prevBand.Upper && alert.Bearish() && alert.High < alertBand.Upper:
		sig.Direction = market.Short
		sig.Entry = alert.Low - buf
		sig.Stop = alert.High + buf
		sig.Target = alertBand.Lower

	case prev.Low <= prevBand.Lower && alert.Bullish() && alert.Low > alertBand.Lower:
		sig.Direction = market.Long
		sig.Entry = alert.High + buf
		sig.Stop = alert.Low - buf
		sig.Target = alertBand.Upper

	default:
		return Signal{}, false
	}

	risk := sig.Risk()
	if risk == 0 {
		return Signal{}, false
	}
	sig.SecondaryTarget = sig.Entry + sig.Direction.Sign()*b.RiskMultiple*risk
	return sig, true
}
