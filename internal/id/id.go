// Package id issues time-sortable identifiers for positions and trades.
package id

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// New returns a ULID string stamped with the current time. IDs issued in
// the same millisecond still sort in issue order.
func New() string {
	return At(time.Now())
}

// At returns a ULID stamped with t. Rows loaded without an id get one
// stamped with their own date so the file order is kept.
func At(t time.Time) string {
	u, err := ulid.New(ulid.Timestamp(t.UTC()), ulid.DefaultEntropy())
	if err != nil {
		// t before the epoch or past the ULID range.
		return ulid.Make().String()
	}
	return u.String()
}

// Valid reports whether s parses as a ULID.
func Valid(s string) bool {
	_, err := ulid.ParseStrict(s)
	return err == nil
}

// Time extracts the timestamp of a ULID.
func Time(s string) (time.Time, bool) {
	u, err := ulid.ParseStrict(s)
	if err != nil {
		return time.Time{}, false
	}
	return ulid.Time(u.Time()).UTC(), true
}
