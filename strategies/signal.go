package strategies

import (
	"time"

	"github.com/rustyeddy/marketwatch/market"
)

// Signal is a detected trade setup. It lives for one scan cycle unless the
// tracker promotes it into a position.
type Signal struct {
	Symbol          market.Symbol    `json:"symbol"`
	Direction       market.Direction `json:"direction"`
	Entry           float64          `json:"entry"`
	Stop            float64          `json:"stop"`
	Target          float64          `json:"target"`
	SecondaryTarget float64          `json:"secondaryTarget"`
	DetectedAt      time.Time        `json:"detectedAt"`
}

// Risk is the absolute distance between entry and stop.
func (s Signal) Risk() float64 {
	d := s.Entry - s.Stop
	if d < 0 {
		return -d
	}
	return d
}

// RR is the reward-to-risk ratio of the primary target.
func (s Signal) RR() float64 {
	risk := s.Risk()
	if risk == 0 {
		return 0
	}
	reward := s.Target - s.Entry
	if reward < 0 {
		reward = -reward
	}
	return reward / risk
}
