package scanner

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/marketwatch/market"
	"github.com/rustyeddy/marketwatch/strategies"
)

func syms(names ...string) []market.Symbol {
	out := make([]market.Symbol, len(names))
	for i, n := range names {
		out[i] = market.Symbol(n)
	}
	return out
}

func TestMap_BoundedConcurrency(t *testing.T) {
	var inFlight, peak int32
	symbols := make([]market.Symbol, 40)
	for i := range symbols {
		symbols[i] = market.Symbol(string(rune('A'+i%26)) + "X")
	}

	out := Map(context.Background(), nil, symbols, 4, func(ctx context.Context, sym market.Symbol) (int, bool) {
		n := atomic.AddInt32(&inFlight, 1)
		for {
			p := atomic.LoadInt32(&peak)
			if n <= p || atomic.CompareAndSwapInt32(&peak, p, n) {
				break
			}
		}
		time.Sleep(2 * time.Millisecond)
		atomic.AddInt32(&inFlight, -1)
		return 1, true
	})

	assert.Len(t, out, 40)
	assert.LessOrEqual(t, atomic.LoadInt32(&peak), int32(4))
	assert.Greater(t, atomic.LoadInt32(&peak), int32(0))
}

func TestMap_OrderAndIsolation(t *testing.T) {
	var logs bytes.Buffer
	log := slog.New(slog.NewTextHandler(&logs, nil))

	out := Map(context.Background(), log, syms("A", "B", "C", "D", "E"), 3, func(ctx context.Context, sym market.Symbol) (string, bool) {
		switch sym {
		case "B":
			return "", false
		case "D":
			panic("bad data")
		}
		return string(sym), true
	})
	assert.Equal(t, []string{"A", "C", "E"}, out)
	assert.Contains(t, logs.String(), "scan worker panic")
	assert.Contains(t, logs.String(), "symbol=D")
}

func TestMap_Empty(t *testing.T) {
	out := Map(context.Background(), nil, nil, 0, func(context.Context, market.Symbol) (int, bool) { return 0, true })
	assert.Empty(t, out)
}

type fakeFeed struct {
	candles map[market.Symbol][]market.Candle
	calls   int32
}

func (f *fakeFeed) Quote(ctx context.Context, sym market.Symbol) (market.Quote, error) {
	return market.NoQuote(sym), errors.New("unused")
}

func (f *fakeFeed) Candles(ctx context.Context, sym market.Symbol, iv market.Interval, limit int) ([]market.Candle, error) {
	atomic.AddInt32(&f.calls, 1)
	c, ok := f.candles[sym]
	if !ok {
		return nil, errors.New("unavailable")
	}
	return c, nil
}

func (f *fakeFeed) Invalidate(context.Context) error { return nil }

// fixedDetector signals LONG for every symbol it sees enough candles for.
type fixedDetector struct{ min int }

func (d fixedDetector) Name() string    { return "fixed" }
func (d fixedDetector) MinCandles() int { return d.min }

func (d fixedDetector) Detect(sym market.Symbol, candles []market.Candle) (strategies.Signal, bool) {
	last := candles[len(candles)-1]
	return strategies.Signal{Symbol: sym, Direction: market.Long, Entry: last.Close + 1, Stop: last.Close - 1}, true
}

func TestScanner_SkipsFailuresAndShortSeries(t *testing.T) {
	long := make([]market.Candle, 30)
	for i := range long {
		long[i] = market.Candle{Open: 10, High: 11, Low: 9, Close: 10}
	}
	feed := &fakeFeed{candles: map[market.Symbol][]market.Candle{
		"GOOD":  long,
		"SHORT": long[:5],
		"ALSO":  long,
	}}

	s := &Scanner{Feed: feed, Detector: fixedDetector{min: 23}, Interval: market.M5, Lookback: 100, Workers: 2}
	signals := s.Scan(context.Background(), syms("GOOD", "BROKEN", "SHORT", "ALSO"))

	require.Len(t, signals, 2)
	assert.Equal(t, market.Symbol("GOOD"), signals[0].Symbol)
	assert.Equal(t, market.Symbol("ALSO"), signals[1].Symbol)
	assert.Equal(t, int32(4), atomic.LoadInt32(&feed.calls))
}
