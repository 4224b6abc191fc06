package tracker

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/marketwatch/journal"
	"github.com/rustyeddy/marketwatch/market"
	"github.com/rustyeddy/marketwatch/strategies"
)

type fakePrices struct {
	mu     sync.Mutex
	prices map[market.Symbol]float64
	calls  int
}

func newFakePrices() *fakePrices {
	return &fakePrices{prices: make(map[market.Symbol]float64)}
}

func (f *fakePrices) set(sym market.Symbol, p float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[sym] = p
}

func (f *fakePrices) Quote(_ context.Context, sym market.Symbol) (market.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	p, ok := f.prices[sym]
	if !ok {
		return market.NoQuote(sym), errors.New("no data")
	}
	return market.Quote{Symbol: sym, Last: p}, nil
}

var fixedNow = time.Date(2024, 4, 1, 9, 30, 0, 0, time.UTC)

func newTracker(t *testing.T) (*Tracker, *fakePrices, *journal.MemoryStore) {
	t.Helper()
	prices := newFakePrices()
	store := journal.NewMemoryStore()
	tr := New(store, prices, WithClock(func() time.Time { return fixedNow }))
	require.NoError(t, tr.Load())
	return tr, prices, store
}

func longSignal(sym market.Symbol) strategies.Signal {
	return strategies.Signal{Symbol: sym, Direction: market.Long, Entry: 100, Stop: 95, Target: 110}
}

func TestPnLPct(t *testing.T) {
	tests := []struct {
		name        string
		dir         market.Direction
		entry, exit float64
		want        float64
	}{
		{"long win", market.Long, 100, 110, 10},
		{"short win", market.Short, 100, 90, 10},
		{"long loss", market.Long, 100, 90, -10},
		{"short loss", market.Short, 100, 105, -5},
		{"rounded", market.Long, 3, 4, 33.3333},
		{"zero entry", market.Long, 0, 10, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, PnLPct(tt.dir, tt.entry, tt.exit))
		})
	}
}

func TestIngest_OpensWhenTriggered(t *testing.T) {
	tr, prices, store := newTracker(t)
	ctx := context.Background()

	prices.set("AAA", 100.5) // LONG crossed
	prices.set("BBB", 99)    // LONG not yet crossed
	prices.set("CCC", 10.3)  // SHORT crossed

	signals := []strategies.Signal{
		longSignal("AAA"),
		longSignal("BBB"),
		{Symbol: "CCC", Direction: market.Short, Entry: 10.4, Stop: 11.6, Target: 9},
		longSignal("DDD"), // no price
	}

	opened, err := tr.Ingest(ctx, signals)
	require.NoError(t, err)
	require.Len(t, opened, 2)
	assert.Equal(t, market.Symbol("AAA"), opened[0].Symbol)
	assert.Equal(t, market.Symbol("CCC"), opened[1].Symbol)
	assert.Equal(t, journal.Running, opened[0].Status)
	assert.Equal(t, fixedNow, opened[0].Date)
	assert.NotEmpty(t, opened[0].ID)

	saved, _ := store.LoadPositions()
	assert.Len(t, saved, 2)
}

func TestIngest_Idempotent(t *testing.T) {
	tr, prices, _ := newTracker(t)
	ctx := context.Background()
	prices.set("AAA", 101)

	signals := []strategies.Signal{longSignal("AAA"), longSignal("AAA")}

	_, err := tr.Ingest(ctx, signals)
	require.NoError(t, err)
	opened, err := tr.Ingest(ctx, signals)
	require.NoError(t, err)

	assert.Empty(t, opened)
	assert.Len(t, tr.Positions(), 1)
}

func TestTick_StopBeforeTarget(t *testing.T) {
	tr, prices, store := newTracker(t)
	ctx := context.Background()

	prices.set("AAA", 101)
	_, err := tr.Ingest(ctx, []strategies.Signal{longSignal("AAA")})
	require.NoError(t, err)

	// First tick only clears the opened-this-cycle marker.
	closed, err := tr.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, closed)

	prices.set("AAA", 96)
	closed, err = tr.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, closed)
	require.Len(t, tr.Positions(), 1)

	// Gap through the stop: exit is booked at the stop, not the live price.
	prices.set("AAA", 94)
	closed, err = tr.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)

	ct := closed[0]
	assert.Equal(t, journal.StopHit, ct.Status)
	assert.Equal(t, 95.0, ct.Exit)
	assert.Equal(t, -5.0, ct.PnLPct)
	assert.Empty(t, tr.Positions())
	assert.Equal(t, []ClosedTrade{ct}, tr.History())

	savedP, _ := store.LoadPositions()
	savedH, _ := store.LoadHistory()
	assert.Empty(t, savedP)
	assert.Len(t, savedH, 1)
}

func TestTick_TargetAndShort(t *testing.T) {
	tr, prices, _ := newTracker(t)
	ctx := context.Background()

	prices.set("LNG", 100)
	prices.set("SHT", 10.4)
	_, err := tr.Ingest(ctx, []strategies.Signal{
		longSignal("LNG"),
		{Symbol: "SHT", Direction: market.Short, Entry: 10.4, Stop: 11.6, Target: 9},
	})
	require.NoError(t, err)
	_, _ = tr.Tick(ctx)

	prices.set("LNG", 111)
	prices.set("SHT", 8.5)
	closed, err := tr.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 2)

	for _, ct := range closed {
		assert.Equal(t, journal.TargetHit, ct.Status)
		assert.Greater(t, ct.PnLPct, 0.0)
	}
	assert.Equal(t, 110.0, closed[0].Exit)
	assert.Equal(t, 9.0, closed[1].Exit)
}

func TestTick_NotInSameCycle(t *testing.T) {
	tr, prices, _ := newTracker(t)
	ctx := context.Background()

	// Entry equals target: would close at once if checked this cycle.
	prices.set("EDGE", 110)
	_, err := tr.Ingest(ctx, []strategies.Signal{{Symbol: "EDGE", Direction: market.Long, Entry: 110, Stop: 100, Target: 110}})
	require.NoError(t, err)

	closed, err := tr.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, closed)
	assert.Len(t, tr.Positions(), 1)

	closed, err = tr.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, journal.TargetHit, closed[0].Status)
}

func TestTick_SkipsMissingPrice(t *testing.T) {
	tr, prices, _ := newTracker(t)
	ctx := context.Background()

	prices.set("AAA", 101)
	_, _ = tr.Ingest(ctx, []strategies.Signal{longSignal("AAA")})
	_, _ = tr.Tick(ctx)

	prices.set("AAA", 0)
	closed, err := tr.Tick(ctx)
	require.NoError(t, err)
	assert.Empty(t, closed)
	assert.Len(t, tr.Positions(), 1)
}

func TestRecordManual(t *testing.T) {
	tr, _, store := newTracker(t)

	ct, err := tr.RecordManual(ManualEntry{Symbol: " sbin ", Direction: "short", Entry: 100, Exit: 90})
	require.NoError(t, err)
	assert.Equal(t, market.Symbol("SBIN"), ct.Symbol)
	assert.Equal(t, journal.ManualEntry, ct.Status)
	assert.Equal(t, 10.0, ct.PnLPct)
	assert.Equal(t, fixedNow, ct.Date)

	h, _ := store.LoadHistory()
	assert.Len(t, h, 1)

	_, err = tr.RecordManual(ManualEntry{Symbol: "X", Direction: "up", Entry: 1, Exit: 2})
	assert.ErrorIs(t, err, ErrInvalidEntry)
	_, err = tr.RecordManual(ManualEntry{Symbol: "X", Direction: "LONG", Entry: 0, Exit: 2})
	assert.ErrorIs(t, err, ErrInvalidEntry)
	_, err = tr.RecordManual(ManualEntry{Direction: "LONG", Entry: 1, Exit: 2})
	assert.ErrorIs(t, err, ErrInvalidEntry)
}

func TestClosePosition(t *testing.T) {
	tr, prices, _ := newTracker(t)
	ctx := context.Background()

	prices.set("AAA", 102)
	_, _ = tr.Ingest(ctx, []strategies.Signal{longSignal("AAA")})

	ct, err := tr.ClosePosition(ctx, "aaa", 0)
	require.NoError(t, err)
	assert.Equal(t, 102.0, ct.Exit)
	assert.Equal(t, 2.0, ct.PnLPct)
	assert.Equal(t, journal.ManualEntry, ct.Status)
	assert.Empty(t, tr.Positions())

	_, err = tr.ClosePosition(ctx, "AAA", 100)
	assert.ErrorIs(t, err, ErrNoPosition)
}

func TestClearAndStats(t *testing.T) {
	tr, prices, store := newTracker(t)
	ctx := context.Background()

	prices.set("AAA", 101)
	_, _ = tr.Ingest(ctx, []strategies.Signal{longSignal("AAA")})
	_, _ = tr.RecordManual(ManualEntry{Symbol: "B", Direction: "LONG", Entry: 100, Exit: 104})
	_, _ = tr.RecordManual(ManualEntry{Symbol: "C", Direction: "LONG", Entry: 100, Exit: 98})

	st := tr.Stats()
	assert.Equal(t, 2, st.Trades)
	assert.Equal(t, 1, st.Wins)
	assert.InDelta(t, 2.0, st.TotalPnLPct, 1e-9)

	require.NoError(t, tr.Clear())
	assert.Empty(t, tr.Positions())
	assert.Empty(t, tr.History())
	p, _ := store.LoadPositions()
	h, _ := store.LoadHistory()
	assert.Empty(t, p)
	assert.Empty(t, h)
}

func TestPersistFailureKeepsState(t *testing.T) {
	tr, prices, store := newTracker(t)
	ctx := context.Background()
	store.Err = errors.New("disk full")

	prices.set("AAA", 101)
	opened, err := tr.Ingest(ctx, []strategies.Signal{longSignal("AAA")})
	require.Error(t, err)
	assert.Len(t, opened, 1)
	assert.Len(t, tr.Positions(), 1)

	store.Err = nil
	require.NoError(t, tr.Save())
	saved, _ := store.LoadPositions()
	assert.Len(t, saved, 1)
}

func TestLoadFromCSV(t *testing.T) {
	dir := t.TempDir()
	store := journal.NewCSVStore(filepath.Join(dir, "p.csv"), filepath.Join(dir, "h.csv"))
	prices := newFakePrices()
	ctx := context.Background()

	tr := New(store, prices)
	require.NoError(t, tr.Load())
	prices.set("AAA", 101)
	_, err := tr.Ingest(ctx, []strategies.Signal{longSignal("AAA")})
	require.NoError(t, err)

	again := New(store, prices)
	require.NoError(t, again.Load())
	require.Len(t, again.Positions(), 1)

	// A reloaded position is eligible on the first tick.
	prices.set("AAA", 120)
	closed, err := again.Tick(ctx)
	require.NoError(t, err)
	require.Len(t, closed, 1)
	assert.Equal(t, 10.0, closed[0].PnLPct)
}
