package market

import (
	"fmt"
	"time"
)

// Interval is a candle sampling interval in exchange notation.
type Interval string

const (
	M1  Interval = "1m"
	M5  Interval = "5m"
	M15 Interval = "15m"
	H1  Interval = "1h"
	H4  Interval = "4h"
	D1  Interval = "1d"
)

var intervalDurations = map[Interval]time.Duration{
	M1:  time.Minute,
	M5:  5 * time.Minute,
	M15: 15 * time.Minute,
	H1:  time.Hour,
	H4:  4 * time.Hour,
	D1:  24 * time.Hour,
}

// Duration returns the length of one candle, or zero for unknown intervals.
func (i Interval) Duration() time.Duration {
	return intervalDurations[i]
}

// Validate reports unsupported intervals.
func (i Interval) Validate() error {
	if _, ok := intervalDurations[i]; !ok {
		return fmt.Errorf("unsupported interval %q", string(i))
	}
	return nil
}
