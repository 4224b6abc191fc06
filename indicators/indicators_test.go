package indicators

import (
	"math/rand"
	"testing"
	"time"

	"github.com/rustyeddy/marketwatch/market"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randomCandles(seed int64, n int) []market.Candle {
	r := rand.New(rand.NewSource(seed))
	base := time.Date(2024, 1, 1, 9, 15, 0, 0, time.UTC)
	price := 100.0
	out := make([]market.Candle, n)
	for i := range out {
		open := price
		closeV := open + (r.Float64()-0.5)*4
		high := max(open, closeV) + r.Float64()*2
		low := min(open, closeV) - r.Float64()*2
		out[i] = market.Candle{
			Time:   base.Add(time.Duration(i) * 5 * time.Minute),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closeV,
			Volume: 1000 + r.Float64()*100,
		}
		price = closeV
	}
	return out
}

func TestHeikinAshiFormula(t *testing.T) {
	candles := []market.Candle{
		{Open: 10, High: 12, Low: 9, Close: 11},
		{Open: 11, High: 13, Low: 10, Close: 12},
	}

	ha := HeikinAshi(candles)
	require.Len(t, ha, 2)

	assert.InDelta(t, 10.0, ha[0].Open, 1e-9)
	assert.InDelta(t, 10.5, ha[0].Close, 1e-9)
	assert.InDelta(t, 12.0, ha[0].High, 1e-9)
	assert.InDelta(t, 9.0, ha[0].Low, 1e-9)

	// open[1] = (10 + 10.5) / 2, close[1] = (11+13+10+12)/4
	assert.InDelta(t, 10.25, ha[1].Open, 1e-9)
	assert.InDelta(t, 11.5, ha[1].Close, 1e-9)
	assert.InDelta(t, 13.0, ha[1].High, 1e-9)
	assert.InDelta(t, 10.0, ha[1].Low, 1e-9)
}

func TestHeikinAshiBoundsInvariant(t *testing.T) {
	for seed := int64(1); seed <= 25; seed++ {
		for i, c := range HeikinAshi(randomCandles(seed, 200)) {
			assert.GreaterOrEqual(t, c.High, c.Open, "seed %d idx %d", seed, i)
			assert.GreaterOrEqual(t, c.High, c.Close, "seed %d idx %d", seed, i)
			assert.LessOrEqual(t, c.Low, c.Open, "seed %d idx %d", seed, i)
			assert.LessOrEqual(t, c.Low, c.Close, "seed %d idx %d", seed, i)
		}
	}
}

func TestSmootherStreaming(t *testing.T) {
	s := NewSmoother()
	assert.Equal(t, "HA", s.Name())
	assert.Equal(t, 1, s.Warmup())
	assert.False(t, s.Ready())

	candles := randomCandles(7, 30)
	batch := HeikinAshi(candles)
	for i, c := range candles {
		s.Update(c)
		assert.Equal(t, batch[i], s.Value())
	}
	assert.True(t, s.Ready())

	s.Reset()
	assert.False(t, s.Ready())
}

func TestEnvelopeWarmup(t *testing.T) {
	values := make([]float64, 25)
	for i := range values {
		values[i] = float64(i + 1)
	}

	bands := Envelope(values, 20, 2)
	require.Len(t, bands, 25)
	for i := 0; i < 19; i++ {
		assert.False(t, bands[i].Ready, "idx %d", i)
	}
	for i := 19; i < 25; i++ {
		assert.True(t, bands[i].Ready, "idx %d", i)
	}

	// window 1..20: mean 10.5, population variance (20^2-1)/12
	assert.InDelta(t, 10.5, bands[19].Middle, 1e-9)
	assert.InDelta(t, 10.5+2*5.766281297335398, bands[19].Upper, 1e-9)
	assert.InDelta(t, 10.5-2*5.766281297335398, bands[19].Lower, 1e-9)
}

func TestEnvelopeFlatSeriesCollapses(t *testing.T) {
	values := []float64{5, 5, 5, 5}
	bands := Envelope(values, 3, 2)
	assert.Equal(t, Band{Middle: 5, Upper: 5, Lower: 5, Ready: true}, bands[3])
}

func TestEnvelopeStableUnderGrowth(t *testing.T) {
	values := market.Closes(randomCandles(3, 120))

	full := Envelope(values, 20, 2)
	for _, k := range []int{25, 60, 119} {
		prefix := Envelope(values[:k], 20, 2)
		for i := range prefix {
			assert.Equal(t, full[i], prefix[i], "k=%d idx=%d", k, i)
		}
	}

	again := Envelope(values, 20, 2)
	assert.Equal(t, full, again)
}

func TestTransform(t *testing.T) {
	t.Run("too short", func(t *testing.T) {
		s := Transform(randomCandles(1, MinCandles(20)-1), 20, 2)
		assert.True(t, s.Empty())
	})

	t.Run("aligned output", func(t *testing.T) {
		candles := randomCandles(1, MinCandles(20))
		s := Transform(candles, 20, 2)
		require.False(t, s.Empty())
		assert.Equal(t, len(candles), s.Len())
		assert.Len(t, s.Bands, len(candles))
		assert.False(t, s.Bands[18].Ready)
		assert.True(t, s.Bands[19].Ready)
		assert.Equal(t, candles[5].Time, s.HA[5].Time)
	})
}
