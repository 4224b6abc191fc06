package feeds

import (
	"context"
	"errors"
	"fmt"

	"github.com/rustyeddy/marketwatch/market"
)

// Mux routes each symbol to the feed of its market mode, so open positions
// can be priced whatever mode the dashboard is showing.
type Mux struct {
	feeds map[market.Mode]Feed
}

func NewMux() *Mux {
	return &Mux{feeds: make(map[market.Mode]Feed)}
}

// Handle registers the feed for a mode.
func (m *Mux) Handle(mode market.Mode, f Feed) *Mux {
	m.feeds[mode] = f
	return m
}

// For returns the feed serving a mode.
func (m *Mux) For(mode market.Mode) (Feed, bool) {
	f, ok := m.feeds[mode]
	return f, ok
}

func (m *Mux) route(sym market.Symbol, op string) (Feed, error) {
	mode := market.Classify(sym)
	if f, ok := m.feeds[mode]; ok {
		return f, nil
	}
	return nil, Fail("mux", sym, op, ReasonConfig, fmt.Errorf("no feed for %s symbols", mode))
}

func (m *Mux) Quote(ctx context.Context, sym market.Symbol) (market.Quote, error) {
	f, err := m.route(sym, "quote")
	if err != nil {
		return market.NoQuote(sym), err
	}
	return f.Quote(ctx, sym)
}

func (m *Mux) Candles(ctx context.Context, sym market.Symbol, iv market.Interval, limit int) ([]market.Candle, error) {
	f, err := m.route(sym, "candles")
	if err != nil {
		return nil, err
	}
	return f.Candles(ctx, sym, iv, limit)
}

func (m *Mux) Invalidate(ctx context.Context) error {
	var errs []error
	for _, f := range m.feeds {
		if err := f.Invalidate(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
