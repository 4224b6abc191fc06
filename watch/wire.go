package watch

import (
	"context"
	"log/slog"
	"time"

	"github.com/rustyeddy/marketwatch/cache"
	"github.com/rustyeddy/marketwatch/config"
	"github.com/rustyeddy/marketwatch/feeds"
	"github.com/rustyeddy/marketwatch/feeds/binance"
	"github.com/rustyeddy/marketwatch/feeds/coindcx"
	"github.com/rustyeddy/marketwatch/feeds/polygon"
	"github.com/rustyeddy/marketwatch/market"
)

// NewCache builds the configured cache. An unreachable Redis falls back to
// the in-memory cache so the dashboard still runs.
func NewCache(ctx context.Context, cfg *config.Config, secrets config.Secrets, log *slog.Logger) (cache.Cache, error) {
	c, err := cache.New(cfg.CacheOptions(secrets))
	if err != nil {
		return nil, err
	}

	r, ok := c.(*cache.Redis)
	if !ok {
		return c, nil
	}
	pingCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	if err := r.Ping(pingCtx); err != nil {
		log.Warn("redis unreachable, using in-memory cache", "addr", cfg.Cache.RedisAddr, "error", err)
		_ = r.Close()
		return cache.NewMemory(), nil
	}
	log.Info("using redis cache", "addr", cfg.Cache.RedisAddr, "db", cfg.Cache.RedisDB)
	return r, nil
}

// NewFeed wires the provider clients into one Feed routing crypto pairs to
// CoinDCX/Binance and equities to Polygon.
func NewFeed(cfg *config.Config, secrets config.Secrets, c cache.Cache, log *slog.Logger) *feeds.Mux {
	fc := cfg.Feeds
	opts := []feeds.GatewayOption{
		feeds.WithTimeout(fc.Timeout.D()),
		feeds.WithTTL(fc.QuoteTTL.D(), fc.CandleTTL.D()),
		feeds.WithLogger(log),
	}

	bn := binance.NewClient(fc.BinanceURL)
	crypto := &feeds.CryptoSource{
		Primary:  coindcx.NewClient(fc.CoinDCXURL, fc.QuoteTTL.D()),
		Fallback: bn,
		Klines:   bn,
	}

	poly := polygon.NewClient(secrets.PolygonAPIKey, nil)
	if !poly.Enabled() {
		log.Warn("POLYGON_API_KEY not set, equity data disabled")
	}

	return feeds.NewMux().
		Handle(market.Crypto, feeds.NewGateway(crypto, c, opts...)).
		Handle(market.Equity, feeds.NewGateway(poly, c, opts...))
}
