package breadth

import (
	"math"
	"sort"

	"github.com/rustyeddy/marketwatch/market"
)

type Thresholds struct {
	TopN            int
	GapPct          float64
	OpeningRangePct float64
}

func DefaultThresholds() Thresholds {
	return Thresholds{
		TopN:            DefaultTopN,
		GapPct:          DefaultGapThresholdPct,
		OpeningRangePct: DefaultOpeningRangeThresholdPct,
	}
}

// Report is everything the dashboard shows about the universe.
type Report struct {
	Breadth      Breadth                    `json:"breadth"`
	Gainers      []market.Quote             `json:"gainers"`
	Losers       []market.Quote             `json:"losers"`
	Trends       map[market.Symbol]TrendTag `json:"trends"`
	Gaps         []Mover                    `json:"gaps"`
	OpeningRange []Mover                    `json:"openingRange"`
}

// Summarize builds a Report. daily maps each symbol to its daily candles,
// oldest first; symbols missing from it get no trend or mover entries.
func Summarize(quotes []market.Quote, daily map[market.Symbol][]market.Candle, th Thresholds) Report {
	r := Report{
		Breadth: AdvanceDecline(quotes),
		Trends:  make(map[market.Symbol]TrendTag),
	}
	r.Gainers, r.Losers = GainersLosers(quotes, th.TopN)

	for _, q := range quotes {
		candles := daily[q.Symbol]
		if len(candles) == 0 {
			continue
		}
		if tag := Trend(candles); tag != NoTrend {
			r.Trends[q.Symbol] = tag
		}
		if m, ok := Gap(q.Symbol, candles, th.GapPct); ok {
			r.Gaps = append(r.Gaps, m)
		}
		if q.Valid() {
			if m, ok := OpeningRange(q.Symbol, candles, q.Last, th.OpeningRangePct); ok {
				r.OpeningRange = append(r.OpeningRange, m)
			}
		}
	}

	byMagnitude(r.Gaps)
	byMagnitude(r.OpeningRange)
	return r
}

func byMagnitude(ms []Mover) {
	sort.SliceStable(ms, func(i, j int) bool { return math.Abs(ms[i].Pct) > math.Abs(ms[j].Pct) })
}
