// Package feeds fetches quotes and candles from upstream market data
// providers. Callers go through a Gateway, which adds timeouts, caching
// and uniform FetchError reporting on top of a provider Source.
package feeds

import (
	"context"
	"errors"

	"github.com/rustyeddy/marketwatch/market"
)

// ErrUnsupported is returned by a Source that does not offer an operation.
var ErrUnsupported = errors.New("feeds: operation not supported by source")

// Source is one upstream provider.
type Source interface {
	Name() string
	Quote(ctx context.Context, sym market.Symbol) (market.Quote, error)
	Candles(ctx context.Context, sym market.Symbol, iv market.Interval, limit int) ([]market.Candle, error)
}

// Feed is what the rest of the application consumes. Failures come back
// as a zero Quote or empty candles together with a *FetchError.
type Feed interface {
	Quote(ctx context.Context, sym market.Symbol) (market.Quote, error)
	Candles(ctx context.Context, sym market.Symbol, iv market.Interval, limit int) ([]market.Candle, error)
	Invalidate(ctx context.Context) error
}
