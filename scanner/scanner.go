// Package scanner fans per-symbol work out over a bounded worker pool.
package scanner

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/rustyeddy/marketwatch/feeds"
	"github.com/rustyeddy/marketwatch/market"
	"github.com/rustyeddy/marketwatch/strategies"
)

const DefaultWorkers = 16

// Map runs fn for every symbol with at most workers calls in flight.
// Results keep the input order; symbols whose fn reports ok=false or panics
// are left out. Panics are logged to log, or slog.Default when nil.
func Map[T any](ctx context.Context, log *slog.Logger, symbols []market.Symbol, workers int, fn func(context.Context, market.Symbol) (T, bool)) []T {
	if workers <= 0 {
		workers = DefaultWorkers
	}
	if log == nil {
		log = slog.Default()
	}

	type slot struct {
		v  T
		ok bool
	}
	slots := make([]slot, len(symbols))

	sem := make(chan struct{}, workers)
	var wg sync.WaitGroup

	for i, sym := range symbols {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}

		go func(i int, sym market.Symbol) {
			defer wg.Done()
			defer func() { <-sem }()
			defer func() {
				if r := recover(); r != nil {
					log.Error("scan worker panic", "symbol", sym, "panic", fmt.Sprint(r))
				}
			}()

			v, ok := fn(ctx, sym)
			slots[i] = slot{v: v, ok: ok}
		}(i, sym)
	}
	wg.Wait()

	out := make([]T, 0, len(symbols))
	for _, s := range slots {
		if s.ok {
			out = append(out, s.v)
		}
	}
	return out
}

// Scanner runs a detector over a watchlist.
type Scanner struct {
	Feed     feeds.Feed
	Detector strategies.Detector
	Interval market.Interval
	Lookback int
	Workers  int
	Log      *slog.Logger
}

// Scan fetches candles for every symbol and collects the signals found.
// A symbol that fails to fetch or is too short is skipped.
func (s *Scanner) Scan(ctx context.Context, symbols []market.Symbol) []strategies.Signal {
	log := s.Log
	if log == nil {
		log = slog.Default()
	}
	lookback := max(s.Lookback, s.Detector.MinCandles())

	return Map(ctx, log, symbols, s.Workers, func(ctx context.Context, sym market.Symbol) (strategies.Signal, bool) {
		candles, err := s.Feed.Candles(ctx, sym, s.Interval, lookback)
		if err != nil {
			log.Debug("scan skipped", "symbol", sym, "reason", feeds.ReasonOf(err), "error", err)
			return strategies.Signal{}, false
		}
		if len(candles) < s.Detector.MinCandles() {
			log.Debug("scan skipped", "symbol", sym, "candles", len(candles), "need", s.Detector.MinCandles())
			return strategies.Signal{}, false
		}
		return s.Detector.Detect(sym, candles)
	})
}
