package strategies

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/marketwatch/market"
)

// Detector inspects one symbol's candles and reports at most one signal.
type Detector interface {
	Name() string

	// MinCandles is the shortest series Detect can work with.
	MinCandles() int

	Detect(sym market.Symbol, candles []market.Candle) (Signal, bool)
}

// Params configures the detectors built by ByName.
type Params struct {
	Window       int
	Width        float64
	RiskMultiple float64
	Buffer       BufferPolicy
}

// ByName builds a detector from its configured name.
func ByName(name string, p Params) (Detector, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "band-reversal", "ha-band", "bb-reversal":
		return NewBandReversal(p), nil
	case "noop", "none":
		return NoopDetector{}, nil
	default:
		return nil, fmt.Errorf("unknown strategy %q (supported: band-reversal, noop)", name)
	}
}
