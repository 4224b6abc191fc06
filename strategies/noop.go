package strategies

import "github.com/rustyeddy/marketwatch/market"

// NoopDetector never signals. Useful to run the dashboard as a pure
// watcher.
type NoopDetector struct{}

func (NoopDetector) Name() string    { return "noop" }
func (NoopDetector) MinCandles() int { return 0 }

func (NoopDetector) Detect(market.Symbol, []market.Candle) (Signal, bool) {
	return Signal{}, false
}
