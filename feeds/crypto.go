package feeds

import (
	"context"

	"github.com/rustyeddy/marketwatch/market"
)

// CryptoSource takes quotes from a primary ticker, falls back to a second
// provider when the primary has no usable row, and takes candles from a
// third.
type CryptoSource struct {
	Primary  Source
	Fallback Source
	Klines   Source
}

func (s *CryptoSource) Name() string { return "crypto" }

func (s *CryptoSource) Quote(ctx context.Context, sym market.Symbol) (market.Quote, error) {
	q, err := s.Primary.Quote(ctx, sym)
	if err == nil && q.Valid() {
		return q, nil
	}
	if s.Fallback == nil || ReasonOf(err) == ReasonTimeout {
		return q, err
	}
	if fq, ferr := s.Fallback.Quote(ctx, sym); ferr == nil && fq.Valid() {
		return fq, nil
	}
	return q, err
}

func (s *CryptoSource) Candles(ctx context.Context, sym market.Symbol, iv market.Interval, limit int) ([]market.Candle, error) {
	if s.Klines == nil {
		return nil, Fail(s.Name(), sym, "candles", ReasonConfig, ErrUnsupported)
	}
	return s.Klines.Candles(ctx, sym, iv, limit)
}

// Invalidate forwards to every provider that caches on its own.
func (s *CryptoSource) Invalidate() {
	for _, src := range []Source{s.Primary, s.Fallback, s.Klines} {
		if inv, ok := src.(Invalidator); ok {
			inv.Invalidate()
		}
	}
}
