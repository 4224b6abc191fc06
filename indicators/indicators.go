// Package indicators turns raw candles into the smoothed candles and
// volatility envelope the band-reversal detector works on.
package indicators

import "github.com/rustyeddy/marketwatch/market"

// Indicator computes a value from a stream of candles.
// It is deterministic, so the same input always yields the same state.
type Indicator interface {
	// Name returns a stable identifier like "HA" or "BANDS(20,2)".
	Name() string

	// Warmup returns how many updates are needed before Ready() can be true.
	Warmup() int

	// Reset clears all internal state.
	Reset()

	// Update consumes the next candle and updates internal state.
	Update(c market.Candle)

	// Ready reports whether the current value is meaningful.
	Ready() bool
}
