// Package breadth summarizes a universe of quotes and daily candles into
// market breadth and mover lists.
package breadth

import (
	"math"
	"sort"

	"github.com/rustyeddy/marketwatch/market"
)

const (
	DefaultTopN                     = 5
	DefaultGapThresholdPct          = 1.0
	DefaultOpeningRangeThresholdPct = 1.5
)

// Breadth is an advance/decline tally. Symbols without data count in
// neither column and are not part of Total.
type Breadth struct {
	Advances  int `json:"advances"`
	Declines  int `json:"declines"`
	Unchanged int `json:"unchanged"`
	Total     int `json:"total"`
}

// AdvancePct is the share of advancing symbols among those that moved.
func (b Breadth) AdvancePct() float64 {
	moved := b.Advances + b.Declines
	if moved == 0 {
		return 0
	}
	return float64(b.Advances) / float64(moved) * 100
}

func AdvanceDecline(quotes []market.Quote) Breadth {
	var b Breadth
	for _, q := range quotes {
		if !q.Valid() {
			continue
		}
		b.Total++
		switch {
		case q.Change > 0:
			b.Advances++
		case q.Change < 0:
			b.Declines++
		default:
			b.Unchanged++
		}
	}
	return b
}

// GainersLosers returns up to n gainers by percent change, largest first,
// and up to n losers, most negative first.
func GainersLosers(quotes []market.Quote, n int) (gainers, losers []market.Quote) {
	for _, q := range quotes {
		if !q.Valid() || math.IsNaN(q.ChangePct) {
			continue
		}
		switch {
		case q.ChangePct > 0:
			gainers = append(gainers, q)
		case q.ChangePct < 0:
			losers = append(losers, q)
		}
	}

	sort.SliceStable(gainers, func(i, j int) bool { return gainers[i].ChangePct > gainers[j].ChangePct })
	sort.SliceStable(losers, func(i, j int) bool { return losers[i].ChangePct < losers[j].ChangePct })

	if n >= 0 && len(gainers) > n {
		gainers = gainers[:n]
	}
	if n >= 0 && len(losers) > n {
		losers = losers[:n]
	}
	return gainers, losers
}
