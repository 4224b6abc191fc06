// Package journal persists open positions and closed trades.
package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/marketwatch/market"
)

// Status labels a position or a closed trade.
type Status string

const (
	Running     Status = "RUNNING"
	StopHit     Status = "STOP_HIT"
	TargetHit   Status = "TARGET_HIT"
	ManualEntry Status = "MANUAL_ENTRY"
)

func ParseStatus(s string) (Status, error) {
	switch st := Status(strings.ToUpper(strings.TrimSpace(s))); st {
	case Running, StopHit, TargetHit, ManualEntry:
		return st, nil
	case "MANUAL":
		return ManualEntry, nil
	}
	return "", fmt.Errorf("unknown status %q", s)
}

// Position is an open trade waiting for its stop or target.
type Position struct {
	ID        string           `json:"id"`
	Date      time.Time        `json:"date"`
	Symbol    market.Symbol    `json:"symbol"`
	Direction market.Direction `json:"direction"`
	Entry     float64          `json:"entry"`
	Stop      float64          `json:"stop"`
	Target    float64          `json:"target"`
	Status    Status           `json:"status"`
}

// ClosedTrade is one row of the trade history.
type ClosedTrade struct {
	ID        string           `json:"id"`
	Date      time.Time        `json:"date"`
	Symbol    market.Symbol    `json:"symbol"`
	Direction market.Direction `json:"direction"`
	Entry     float64          `json:"entry"`
	Exit      float64          `json:"exit"`
	Status    Status           `json:"status"`
	PnLPct    float64          `json:"pnlPct"`
}

// Store keeps both collections. Saves replace the whole collection.
type Store interface {
	LoadPositions() ([]Position, error)
	SavePositions([]Position) error
	LoadHistory() ([]ClosedTrade, error)
	SaveHistory([]ClosedTrade) error

	// Clear empties both collections.
	Clear() error
}
