package market

import "time"

// Quote is the latest traded price of a symbol with its period change.
// A zero Last is the "no data" sentinel.
type Quote struct {
	Symbol    Symbol    `json:"symbol"`
	Last      float64   `json:"last"`
	Change    float64   `json:"change"`
	ChangePct float64   `json:"changePct"`
	Time      time.Time `json:"time"`
}

// Valid reports whether the quote carries a usable price.
func (q Quote) Valid() bool {
	return q.Last > 0
}

// NoQuote returns the sentinel quote used when a symbol has no data.
func NoQuote(sym Symbol) Quote {
	return Quote{Symbol: sym}
}

// PercentChange returns (to-from)/from*100 and false when from is zero.
func PercentChange(from, to float64) (float64, bool) {
	if from == 0 {
		return 0, false
	}
	return (to - from) / from * 100, true
}
