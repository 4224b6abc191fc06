package strategies

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/marketwatch/market"
)

// Sentiment is the user's directional bias used to filter signals.
type Sentiment string

const (
	Both    Sentiment = "BOTH"
	Bullish Sentiment = "BULLISH"
	Bearish Sentiment = "BEARISH"
)

func ParseSentiment(s string) (Sentiment, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "BOTH", "ALL":
		return Both, nil
	case "BULLISH", "LONG":
		return Bullish, nil
	case "BEARISH", "SHORT":
		return Bearish, nil
	}
	return "", fmt.Errorf("unknown sentiment %q (supported: BOTH, BULLISH, BEARISH)", s)
}

// Allows reports whether a signal direction passes the filter.
func (s Sentiment) Allows(d market.Direction) bool {
	switch s {
	case Bullish:
		return d == market.Long
	case Bearish:
		return d == market.Short
	}
	return true
}

// FilterSentiment drops SHORT signals under BULLISH and LONG signals under
// BEARISH. The input slice is not modified.
func FilterSentiment(signals []Signal, s Sentiment) []Signal {
	out := make([]Signal, 0, len(signals))
	for _, sig := range signals {
		if s.Allows(sig.Direction) {
			out = append(out, sig)
		}
	}
	return out
}
