package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/marketwatch/cache"
	"github.com/rustyeddy/marketwatch/market"
)

// fakeSource counts calls and answers from fixed tables.
type fakeSource struct {
	name    string
	mu      sync.Mutex
	quotes  map[market.Symbol]market.Quote
	candles map[market.Symbol][]market.Candle
	err     error
	block   bool
	calls   int
}

func (f *fakeSource) Name() string { return f.name }

func (f *fakeSource) Quote(ctx context.Context, sym market.Symbol) (market.Quote, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.block {
		<-ctx.Done()
		return market.Quote{}, ctx.Err()
	}
	if f.err != nil {
		return market.Quote{}, f.err
	}
	q, ok := f.quotes[sym]
	if !ok {
		return market.Quote{}, Fail(f.name, sym, "quote", ReasonUnknownSymbol, nil)
	}
	return q, nil
}

func (f *fakeSource) Candles(ctx context.Context, sym market.Symbol, iv market.Interval, limit int) ([]market.Candle, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()

	if f.err != nil {
		return nil, f.err
	}
	return f.candles[sym], nil
}

func (f *fakeSource) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func TestGateway_CachesQuotes(t *testing.T) {
	src := &fakeSource{name: "fake", quotes: map[market.Symbol]market.Quote{
		"BTCUSDT": {Symbol: "BTCUSDT", Last: 64000, ChangePct: 1.5},
	}}
	g := NewGateway(src, cache.NewMemory())
	ctx := context.Background()

	q1, err := g.Quote(ctx, "BTCUSDT")
	require.NoError(t, err)
	q2, err := g.Quote(ctx, "BTCUSDT")
	require.NoError(t, err)

	assert.Equal(t, q1.Last, q2.Last)
	assert.Equal(t, q1.ChangePct, q2.ChangePct)
	assert.Equal(t, 1, src.count())

	require.NoError(t, g.Invalidate(ctx))
	_, err = g.Quote(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 2, src.count())
}

func TestGateway_FailuresAreNotCached(t *testing.T) {
	src := &fakeSource{name: "fake", err: errors.New("connection refused")}
	g := NewGateway(src, cache.NewMemory())
	ctx := context.Background()

	q, err := g.Quote(ctx, "BTCUSDT")
	require.Error(t, err)
	assert.Equal(t, market.NoQuote("BTCUSDT"), q)
	assert.False(t, q.Valid())
	assert.Equal(t, ReasonNetwork, ReasonOf(err))

	_, _ = g.Quote(ctx, "BTCUSDT")
	assert.Equal(t, 2, src.count())
}

func TestGateway_RejectsNonPositivePrice(t *testing.T) {
	src := &fakeSource{name: "fake", quotes: map[market.Symbol]market.Quote{
		"SOLUSDT": {Symbol: "SOLUSDT", Last: 0},
	}}
	q, err := NewGateway(src, nil).Quote(context.Background(), "SOLUSDT")
	assert.Equal(t, ReasonMalformed, ReasonOf(err))
	assert.Zero(t, q.Last)
}

func TestGateway_Timeout(t *testing.T) {
	src := &fakeSource{name: "slow", block: true}
	g := NewGateway(src, nil, WithTimeout(20*time.Millisecond))

	start := time.Now()
	q, err := g.Quote(context.Background(), "BTCUSDT")
	assert.Less(t, time.Since(start), time.Second)
	assert.Zero(t, q.Last)
	assert.Equal(t, ReasonTimeout, ReasonOf(err))

	var fe *FetchError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "slow", fe.Source)
	assert.Equal(t, market.Symbol("BTCUSDT"), fe.Symbol)
	assert.Equal(t, "quote", fe.Op)
}

func TestGateway_Candles(t *testing.T) {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	var cs []market.Candle
	for i := 0; i < 10; i++ {
		cs = append(cs, market.Candle{Time: base.Add(time.Duration(i) * time.Minute), Open: 1, High: 2, Low: 0.5, Close: 1.5})
	}
	src := &fakeSource{name: "fake", candles: map[market.Symbol][]market.Candle{"ETHUSDT": cs}}
	g := NewGateway(src, cache.NewMemory())
	ctx := context.Background()

	got, err := g.Candles(ctx, "ETHUSDT", market.M5, 4)
	require.NoError(t, err)
	require.Len(t, got, 4)
	assert.True(t, got[3].Time.Equal(cs[9].Time))

	again, err := g.Candles(ctx, "ETHUSDT", market.M5, 4)
	require.NoError(t, err)
	assert.Len(t, again, 4)
	assert.Equal(t, 1, src.count())

	src.err = errors.New("down")
	got, err = g.Candles(ctx, "ETHUSDT", market.M15, 4)
	assert.Error(t, err)
	assert.Empty(t, got)
}

func TestGateway_HTTP500GivesZeroQuote(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	src := &httpSource{url: srv.URL}
	q, err := NewGateway(src, nil).Quote(context.Background(), "INFY")
	require.Error(t, err)
	assert.Equal(t, market.NoQuote("INFY"), q)
	assert.Equal(t, ReasonStatus, ReasonOf(err))
}

type httpSource struct{ url string }

func (s *httpSource) Name() string { return "http" }

func (s *httpSource) Quote(ctx context.Context, sym market.Symbol) (market.Quote, error) {
	var body struct {
		Last Number `json:"last"`
	}
	if err := GetJSON(ctx, http.DefaultClient, s.url, &body); err != nil {
		return market.Quote{}, err
	}
	return market.Quote{Symbol: sym, Last: body.Last.Float()}, nil
}

func (s *httpSource) Candles(context.Context, market.Symbol, market.Interval, int) ([]market.Candle, error) {
	return nil, ErrUnsupported
}

func TestMux_RoutesByMode(t *testing.T) {
	crypto := &fakeSource{name: "crypto", quotes: map[market.Symbol]market.Quote{"BTCUSDT": {Last: 1}}}
	equity := &fakeSource{name: "equity", quotes: map[market.Symbol]market.Quote{"INFY": {Last: 2}}}

	m := NewMux().
		Handle(market.Crypto, NewGateway(crypto, nil)).
		Handle(market.Equity, NewGateway(equity, nil))
	ctx := context.Background()

	q, err := m.Quote(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 1.0, q.Last)
	assert.Equal(t, market.Symbol("BTCUSDT"), q.Symbol)

	q, err = m.Quote(ctx, "INFY")
	require.NoError(t, err)
	assert.Equal(t, 2.0, q.Last)

	assert.Equal(t, 1, crypto.count())
	assert.Equal(t, 1, equity.count())
	require.NoError(t, m.Invalidate(ctx))
}

func TestMux_MissingMode(t *testing.T) {
	m := NewMux()
	q, err := m.Quote(context.Background(), "INFY")
	assert.Zero(t, q.Last)
	assert.Equal(t, ReasonConfig, ReasonOf(err))
}

func TestCryptoSource_Fallback(t *testing.T) {
	primary := &fakeSource{name: "primary", quotes: map[market.Symbol]market.Quote{"BTCUSDT": {Last: 100}}}
	fallback := &fakeSource{name: "fallback", quotes: map[market.Symbol]market.Quote{"PEPEUSDT": {Last: 0.00001}}}
	s := &CryptoSource{Primary: primary, Fallback: fallback}
	ctx := context.Background()

	q, err := s.Quote(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 100.0, q.Last)
	assert.Equal(t, 0, fallback.count())

	q, err = s.Quote(ctx, "PEPEUSDT")
	require.NoError(t, err)
	assert.Equal(t, 0.00001, q.Last)

	_, err = s.Quote(ctx, "NOPEUSDT")
	assert.Equal(t, ReasonUnknownSymbol, ReasonOf(err))

	_, err = s.Candles(ctx, "BTCUSDT", market.M5, 10)
	assert.ErrorIs(t, err, ErrUnsupported)
}

// tableSource keeps its own copy of the upstream price until invalidated.
type tableSource struct {
	fakeSource
	upstream float64
	held     float64
}

func (s *tableSource) Quote(ctx context.Context, sym market.Symbol) (market.Quote, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.held == 0 {
		s.held = s.upstream
		s.calls++
	}
	return market.Quote{Symbol: sym, Last: s.held}, nil
}

func (s *tableSource) Invalidate() {
	s.mu.Lock()
	s.held = 0
	s.mu.Unlock()
}

func TestGateway_InvalidateReachesSource(t *testing.T) {
	primary := &tableSource{fakeSource: fakeSource{name: "table"}, upstream: 100}
	g := NewGateway(&CryptoSource{Primary: primary}, cache.NewMemory(), WithTTL(time.Minute, time.Minute))
	ctx := context.Background()

	q, err := g.Quote(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 100.0, q.Last)

	primary.mu.Lock()
	primary.upstream = 200
	primary.mu.Unlock()

	q, err = g.Quote(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 100.0, q.Last, "served from cache before invalidation")

	require.NoError(t, g.Invalidate(ctx))
	q, err = g.Quote(ctx, "BTCUSDT")
	require.NoError(t, err)
	assert.Equal(t, 200.0, q.Last)
	assert.Equal(t, 2, primary.count())
}

func TestReasonOf(t *testing.T) {
	assert.Equal(t, Reason(""), ReasonOf(nil))
	assert.Equal(t, ReasonTimeout, ReasonOf(context.DeadlineExceeded))
	assert.Equal(t, ReasonConfig, ReasonOf(ErrUnsupported))
	assert.Equal(t, ReasonNetwork, ReasonOf(errors.New("reset by peer")))

	wrapped := Wrap("x", "BTCUSDT", "quote", Fail("", "", "", ReasonStatus, nil))
	var fe *FetchError
	require.ErrorAs(t, wrapped, &fe)
	assert.Equal(t, "x", fe.Source)
	assert.Equal(t, ReasonStatus, fe.Reason)
	assert.Contains(t, fe.Error(), "BTCUSDT")
}

func TestNumber(t *testing.T) {
	var v struct {
		A Number `json:"a"`
		B Number `json:"b"`
		C Number `json:"c"`
	}
	require.NoError(t, jsonUnmarshal(`{"a":"1.25","b":2.5,"c":null}`, &v))
	assert.Equal(t, 1.25, v.A.Float())
	assert.Equal(t, 2.5, v.B.Float())
	assert.Zero(t, v.C.Float())

	assert.Error(t, jsonUnmarshal(`{"a":"abc"}`, &v))
}

func jsonUnmarshal(s string, v any) error {
	return json.Unmarshal([]byte(s), v)
}
