// Package binance reads spot klines and 24h tickers from Binance.
package binance

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rustyeddy/marketwatch/feeds"
	"github.com/rustyeddy/marketwatch/market"
)

const (
	SpotBaseURL = "https://api.binance.com"

	// MaxLimit is the largest kline page Binance serves.
	MaxLimit = 1000

	name = "binance"
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = SpotBaseURL
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) Name() string { return name }

// Ticker24h is the subset of /api/v3/ticker/24hr we use.
type Ticker24h struct {
	Symbol             string       `json:"symbol"`
	LastPrice          feeds.Number `json:"lastPrice"`
	PriceChange        feeds.Number `json:"priceChange"`
	PriceChangePercent feeds.Number `json:"priceChangePercent"`
	CloseTime          int64        `json:"closeTime"`
}

func (c *Client) Quote(ctx context.Context, sym market.Symbol) (market.Quote, error) {
	params := url.Values{}
	params.Set("symbol", string(sym))

	var t Ticker24h
	if err := feeds.GetJSON(ctx, c.httpClient, c.baseURL+"/api/v3/ticker/24hr?"+params.Encode(), &t); err != nil {
		var fe *feeds.FetchError
		// Binance answers 400 for an unknown symbol.
		if errors.As(err, &fe) && fe.Status == http.StatusBadRequest {
			fe.Reason = feeds.ReasonUnknownSymbol
		}
		return market.NoQuote(sym), feeds.Wrap(name, sym, "quote", err)
	}

	q := market.Quote{
		Symbol:    sym,
		Last:      t.LastPrice.Float(),
		Change:    t.PriceChange.Float(),
		ChangePct: t.PriceChangePercent.Float(),
		Time:      time.Now(),
	}
	if t.CloseTime > 0 {
		q.Time = time.UnixMilli(t.CloseTime)
	}
	return q, nil
}

// Candles returns up to limit klines, oldest first. The last kline is the
// one still forming.
func (c *Client) Candles(ctx context.Context, sym market.Symbol, iv market.Interval, limit int) ([]market.Candle, error) {
	if err := iv.Validate(); err != nil {
		return nil, feeds.Fail(name, sym, "candles", feeds.ReasonConfig, err)
	}
	if limit <= 0 || limit > MaxLimit {
		limit = MaxLimit
	}

	params := url.Values{}
	params.Set("symbol", string(sym))
	params.Set("interval", string(iv))
	params.Set("limit", strconv.Itoa(limit))

	var rows [][]json.RawMessage
	if err := feeds.GetJSON(ctx, c.httpClient, c.baseURL+"/api/v3/klines?"+params.Encode(), &rows); err != nil {
		var fe *feeds.FetchError
		if errors.As(err, &fe) && fe.Status == http.StatusBadRequest {
			fe.Reason = feeds.ReasonUnknownSymbol
		}
		return nil, feeds.Wrap(name, sym, "candles", err)
	}

	candles := make([]market.Candle, 0, len(rows))
	for i, row := range rows {
		c, err := parseKline(row)
		if err != nil {
			return nil, feeds.Fail(name, sym, "candles", feeds.ReasonMalformed, fmt.Errorf("kline %d: %w", i, err))
		}
		candles = append(candles, c)
	}
	return candles, nil
}

// parseKline decodes [openTime, open, high, low, close, volume, ...].
func parseKline(row []json.RawMessage) (market.Candle, error) {
	if len(row) < 6 {
		return market.Candle{}, fmt.Errorf("expected at least 6 fields, got %d", len(row))
	}

	var openTime int64
	if err := json.Unmarshal(row[0], &openTime); err != nil {
		return market.Candle{}, fmt.Errorf("open time: %w", err)
	}

	var f [5]feeds.Number
	for i := range f {
		if err := json.Unmarshal(row[i+1], &f[i]); err != nil {
			return market.Candle{}, fmt.Errorf("field %d: %w", i+1, err)
		}
	}

	return market.Candle{
		Time:   time.UnixMilli(openTime).UTC(),
		Open:   f[0].Float(),
		High:   f[1].Float(),
		Low:    f[2].Float(),
		Close:  f[3].Float(),
		Volume: f[4].Float(),
	}, nil
}
