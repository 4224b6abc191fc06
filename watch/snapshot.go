package watch

import (
	"time"

	"github.com/rustyeddy/marketwatch/breadth"
	"github.com/rustyeddy/marketwatch/journal"
	"github.com/rustyeddy/marketwatch/market"
	"github.com/rustyeddy/marketwatch/strategies"
)

// Settings are the user's dashboard selections.
type Settings struct {
	Mode      market.Mode          `json:"mode"`
	Watchlist string               `json:"watchlist"`
	Sentiment strategies.Sentiment `json:"sentiment"`
}

// Snapshot is the state published after each cycle.
type Snapshot struct {
	Time            time.Time             `json:"time"`
	Cycle           int                   `json:"cycle"`
	Settings        Settings              `json:"settings"`
	Watchlists      []string              `json:"watchlists"`
	Symbols         []market.Symbol       `json:"symbols"`
	Index           []market.Quote        `json:"index"`
	Quotes          []market.Quote        `json:"quotes"`
	Report          breadth.Report        `json:"report"`
	Signals         []strategies.Signal   `json:"signals"`
	Positions       []journal.Position    `json:"positions"`
	History         []journal.ClosedTrade `json:"history"`
	Stats           journal.Stats         `json:"stats"`
	Unavailable     []market.Symbol       `json:"unavailable"`
	Warnings        []string              `json:"warnings"`
	Took            time.Duration         `json:"took"`
	RefreshInterval time.Duration         `json:"refreshInterval"`
}

// Ready reports whether at least one cycle has completed.
func (s Snapshot) Ready() bool { return s.Cycle > 0 }

// Quote returns the snapshot's quote for sym.
func (s Snapshot) Quote(sym market.Symbol) (market.Quote, bool) {
	for _, q := range s.Quotes {
		if q.Symbol == sym {
			return q, q.Valid()
		}
	}
	for _, q := range s.Index {
		if q.Symbol == sym {
			return q, q.Valid()
		}
	}
	return market.NoQuote(sym), false
}
