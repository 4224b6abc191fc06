package market

import (
	"fmt"
	"strings"
)

// Direction is the side of a signal or position.
type Direction string

const (
	Long  Direction = "LONG"
	Short Direction = "SHORT"
)

// Sign is +1 for LONG and -1 for SHORT.
func (d Direction) Sign() float64 {
	if d == Short {
		return -1
	}
	return 1
}

func ParseDirection(s string) (Direction, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "LONG", "BUY", "BULLISH":
		return Long, nil
	case "SHORT", "SELL", "BEARISH":
		return Short, nil
	}
	return "", fmt.Errorf("unknown direction %q", s)
}
