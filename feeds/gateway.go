package feeds

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/rustyeddy/marketwatch/cache"
	"github.com/rustyeddy/marketwatch/market"
)

const (
	DefaultTimeout   = 5 * time.Second
	DefaultQuoteTTL  = 5 * time.Second
	DefaultCandleTTL = 30 * time.Second
)

// Gateway wraps a Source with a per-call timeout and a TTL cache. It never
// returns partial data: on failure callers get a zero Quote or nil candles
// and a *FetchError.
type Gateway struct {
	src       Source
	cache     cache.Cache
	timeout   time.Duration
	quoteTTL  time.Duration
	candleTTL time.Duration
	log       *slog.Logger
}

type GatewayOption func(*Gateway)

func WithTimeout(d time.Duration) GatewayOption {
	return func(g *Gateway) {
		if d > 0 {
			g.timeout = d
		}
	}
}

func WithTTL(quote, candles time.Duration) GatewayOption {
	return func(g *Gateway) {
		g.quoteTTL = quote
		g.candleTTL = candles
	}
}

func WithLogger(l *slog.Logger) GatewayOption {
	return func(g *Gateway) {
		if l != nil {
			g.log = l
		}
	}
}

func NewGateway(src Source, c cache.Cache, opts ...GatewayOption) *Gateway {
	if c == nil {
		c = cache.NewMemory()
	}
	g := &Gateway{
		src:       src,
		cache:     c,
		timeout:   DefaultTimeout,
		quoteTTL:  DefaultQuoteTTL,
		candleTTL: DefaultCandleTTL,
		log:       slog.Default(),
	}
	for _, o := range opts {
		o(g)
	}
	return g
}

func (g *Gateway) Name() string { return g.src.Name() }

func (g *Gateway) Quote(ctx context.Context, sym market.Symbol) (market.Quote, error) {
	key := fmt.Sprintf("quote:%s:%s", g.src.Name(), sym)

	var q market.Quote
	if g.lookup(ctx, key, &q) {
		return q, nil
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	q, err := g.src.Quote(cctx, sym)
	if err == nil && !q.Valid() {
		err = Fail(g.src.Name(), sym, "quote", ReasonMalformed, errors.New("non-positive last price"))
	}
	if err != nil {
		err = Wrap(g.src.Name(), sym, "quote", err)
		g.log.Debug("quote unavailable", "source", g.src.Name(), "symbol", sym, "reason", ReasonOf(err), "error", err)
		return market.NoQuote(sym), err
	}

	if q.Symbol == "" {
		q.Symbol = sym
	}
	g.store(ctx, key, q, g.quoteTTL)
	return q, nil
}

func (g *Gateway) Candles(ctx context.Context, sym market.Symbol, iv market.Interval, limit int) ([]market.Candle, error) {
	key := fmt.Sprintf("candles:%s:%s:%s:%d", g.src.Name(), sym, iv, limit)

	var candles []market.Candle
	if g.lookup(ctx, key, &candles) {
		return candles, nil
	}

	cctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	candles, err := g.src.Candles(cctx, sym, iv, limit)
	if err != nil {
		err = Wrap(g.src.Name(), sym, "candles", err)
		g.log.Debug("candles unavailable", "source", g.src.Name(), "symbol", sym, "interval", iv, "reason", ReasonOf(err), "error", err)
		return nil, err
	}
	if len(candles) > limit && limit > 0 {
		candles = candles[len(candles)-limit:]
	}

	g.store(ctx, key, candles, g.candleTTL)
	return candles, nil
}

// Invalidator is implemented by sources that hold their own copy of
// upstream data.
type Invalidator interface {
	Invalidate()
}

// Invalidate drops every cached response, including any the source keeps.
func (g *Gateway) Invalidate(ctx context.Context) error {
	if inv, ok := g.src.(Invalidator); ok {
		inv.Invalidate()
	}
	return g.cache.InvalidateAll(ctx)
}

func (g *Gateway) lookup(ctx context.Context, key string, dest any) bool {
	found, err := g.cache.Get(ctx, key, dest)
	if err != nil {
		g.log.Warn("cache read failed", "key", key, "error", err)
		return false
	}
	return found
}

func (g *Gateway) store(ctx context.Context, key string, v any, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := g.cache.Set(ctx, key, v, ttl); err != nil {
		g.log.Warn("cache write failed", "key", key, "error", err)
	}
}
