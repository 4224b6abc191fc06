// Package coindcx reads the CoinDCX public ticker.
package coindcx

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/rustyeddy/marketwatch/feeds"
	"github.com/rustyeddy/marketwatch/market"
)

const (
	BaseURL = "https://public.coindcx.com"

	tickerPath = "/market_data/ticker"
	name       = "coindcx"
)

// Ticker is one row of the ticker table.
type Ticker struct {
	Market    string       `json:"market"`
	LastPrice feeds.Number `json:"last_price"`
	Change24h feeds.Number `json:"change_24h"`
	Timestamp int64        `json:"timestamp"`
}

// Client fetches the whole ticker table and answers quote lookups from it
// until the table is older than its TTL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	ttl        time.Duration
	now        func() time.Time

	mu        sync.Mutex
	table     map[string]Ticker
	fetchedAt time.Time
}

func NewClient(baseURL string, ttl time.Duration) *Client {
	if baseURL == "" {
		baseURL = BaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		ttl:        ttl,
		now:        time.Now,
	}
}

func (c *Client) Name() string { return name }

// Tickers downloads the full ticker table.
func (c *Client) Tickers(ctx context.Context) ([]Ticker, error) {
	var rows []Ticker
	if err := feeds.GetJSON(ctx, c.httpClient, c.baseURL+tickerPath, &rows); err != nil {
		return nil, feeds.Wrap(name, "", "ticker", err)
	}
	return rows, nil
}

func (c *Client) Quote(ctx context.Context, sym market.Symbol) (market.Quote, error) {
	table, err := c.snapshot(ctx)
	if err != nil {
		return market.NoQuote(sym), feeds.Wrap(name, sym, "quote", err)
	}

	t, ok := table[string(sym)]
	if !ok {
		return market.NoQuote(sym), feeds.Fail(name, sym, "quote", feeds.ReasonUnknownSymbol, fmt.Errorf("market %s not in ticker", sym))
	}

	last := t.LastPrice.Float()
	pct := t.Change24h.Float()
	q := market.Quote{
		Symbol:    sym,
		Last:      last,
		ChangePct: pct,
		Time:      c.now(),
	}
	if pct != -100 {
		q.Change = last * pct / (100 + pct)
	}
	switch {
	case t.Timestamp > 1e12:
		q.Time = time.UnixMilli(t.Timestamp)
	case t.Timestamp > 0:
		q.Time = time.Unix(t.Timestamp, 0)
	}
	return q, nil
}

// Candles is not offered by the ticker endpoint.
func (c *Client) Candles(_ context.Context, sym market.Symbol, _ market.Interval, _ int) ([]market.Candle, error) {
	return nil, feeds.Fail(name, sym, "candles", feeds.ReasonConfig, feeds.ErrUnsupported)
}

// Invalidate forgets the ticker table so the next quote refetches it.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.table = nil
	c.mu.Unlock()
}

func (c *Client) snapshot(ctx context.Context) (map[string]Ticker, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.table != nil && c.now().Sub(c.fetchedAt) < c.ttl {
		return c.table, nil
	}

	rows, err := c.Tickers(ctx)
	if err != nil {
		return nil, err
	}

	table := make(map[string]Ticker, len(rows))
	for _, r := range rows {
		table[r.Market] = r
	}
	c.table = table
	c.fetchedAt = c.now()
	return table, nil
}
