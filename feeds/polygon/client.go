// Package polygon serves equity candles and quotes from Polygon.io
// aggregates.
package polygon

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"time"

	polygonrest "github.com/polygon-io/client-go/rest"
	rmodels "github.com/polygon-io/client-go/rest/models"

	"github.com/rustyeddy/marketwatch/feeds"
	"github.com/rustyeddy/marketwatch/market"
)

const name = "polygon"

// ErrNoAPIKey is reported on every call when POLYGON_API_KEY is unset.
var ErrNoAPIKey = errors.New("polygon: POLYGON_API_KEY is not set")

type Client struct {
	rest *polygonrest.Client
	now  func() time.Time
}

// NewClient returns a client for apiKey. An empty key yields a client whose
// every call fails with a config FetchError.
func NewClient(apiKey string, httpClient *http.Client) *Client {
	c := &Client{now: time.Now}
	if apiKey == "" {
		return c
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	c.rest = polygonrest.NewWithClient(apiKey, httpClient)
	// Failed calls wait for the next refresh cycle.
	c.rest.HTTP.SetRetryCount(0)
	return c
}

func (c *Client) Name() string { return name }

// Enabled reports whether an API key was supplied.
func (c *Client) Enabled() bool { return c.rest != nil }

// span maps an interval onto Polygon's multiplier and timespan.
func span(iv market.Interval) (int, rmodels.Timespan, error) {
	switch iv {
	case market.M1:
		return 1, rmodels.Minute, nil
	case market.M5:
		return 5, rmodels.Minute, nil
	case market.M15:
		return 15, rmodels.Minute, nil
	case market.H1:
		return 1, rmodels.Hour, nil
	case market.H4:
		return 4, rmodels.Hour, nil
	case market.D1:
		return 1, rmodels.Day, nil
	}
	return 0, "", fmt.Errorf("unsupported interval %q", iv)
}

// lookback widens the request window so nights, weekends and holidays
// still leave limit bars in range.
func lookback(iv market.Interval, limit int) time.Duration {
	d := time.Duration(limit) * iv.Duration()
	if iv == market.D1 {
		return d*2 + 7*24*time.Hour
	}
	return max(d*4, 5*24*time.Hour)
}

func (c *Client) Candles(ctx context.Context, sym market.Symbol, iv market.Interval, limit int) ([]market.Candle, error) {
	if c.rest == nil {
		return nil, feeds.Fail(name, sym, "candles", feeds.ReasonConfig, ErrNoAPIKey)
	}
	mult, ts, err := span(iv)
	if err != nil {
		return nil, feeds.Fail(name, sym, "candles", feeds.ReasonConfig, err)
	}
	if limit <= 0 {
		limit = 100
	}

	to := c.now()
	from := to.Add(-lookback(iv, limit))
	params := &rmodels.ListAggsParams{
		Ticker:     string(sym),
		Timespan:   ts,
		Multiplier: mult,
		From:       rmodels.Millis(from),
		To:         rmodels.Millis(to),
	}
	lim := 50000
	asc := rmodels.Asc
	adj := true
	params.Limit = &lim
	params.Order = &asc
	params.Adjusted = &adj

	var candles []market.Candle
	iter := c.rest.ListAggs(ctx, params)
	for iter.Next() {
		a := iter.Item()
		candles = append(candles, market.Candle{
			Time:   time.Time(a.Timestamp).UTC(),
			Open:   a.Open,
			High:   a.High,
			Low:    a.Low,
			Close:  a.Close,
			Volume: a.Volume,
		})
	}
	if err := iter.Err(); err != nil {
		var er *rmodels.ErrorResponse
		if errors.As(err, &er) && er.StatusCode != 0 {
			fe := feeds.Fail(name, sym, "candles", feeds.ReasonStatus, err)
			fe.Status = er.StatusCode
			return nil, fe
		}
		return nil, feeds.Wrap(name, sym, "candles", err)
	}
	if len(candles) == 0 {
		return nil, feeds.Fail(name, sym, "candles", feeds.ReasonUnknownSymbol, errors.New("no aggregates returned"))
	}

	sort.SliceStable(candles, func(i, j int) bool { return candles[i].Time.Before(candles[j].Time) })
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

// Quote derives the last price and day change from the two most recent
// daily aggregates.
func (c *Client) Quote(ctx context.Context, sym market.Symbol) (market.Quote, error) {
	daily, err := c.Candles(ctx, sym, market.D1, 2)
	if err != nil {
		return market.NoQuote(sym), feeds.Wrap(name, sym, "quote", err)
	}

	last := daily[len(daily)-1]
	q := market.Quote{Symbol: sym, Last: last.Close, Time: last.Time}
	if len(daily) > 1 {
		prev := daily[len(daily)-2].Close
		q.Change = last.Close - prev
		if pct, ok := market.PercentChange(prev, last.Close); ok {
			q.ChangePct = pct
		}
	}
	return q, nil
}
