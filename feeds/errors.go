package feeds

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/rustyeddy/marketwatch/market"
)

// Reason classifies a fetch failure.
type Reason string

const (
	ReasonTimeout       Reason = "timeout"
	ReasonStatus        Reason = "status"
	ReasonMalformed     Reason = "malformed"
	ReasonUnknownSymbol Reason = "unknown_symbol"
	ReasonNetwork       Reason = "network"
	ReasonConfig        Reason = "config"
)

type FetchError struct {
	Source string
	Symbol market.Symbol
	Op     string
	Reason Reason
	Status int
	Err    error
}

func (e *FetchError) Error() string {
	msg := fmt.Sprintf("%s %s %s: %s", e.Source, e.Op, e.Symbol, e.Reason)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *FetchError) Unwrap() error { return e.Err }

// Fail builds a FetchError.
func Fail(source string, sym market.Symbol, op string, reason Reason, err error) *FetchError {
	return &FetchError{Source: source, Symbol: sym, Op: op, Reason: reason, Err: err}
}

// Wrap turns any error into a *FetchError. An existing FetchError keeps its
// reason and has empty fields filled in.
func Wrap(source string, sym market.Symbol, op string, err error) error {
	if err == nil {
		return nil
	}

	var fe *FetchError
	if errors.As(err, &fe) {
		if fe.Source == "" {
			fe.Source = source
		}
		if fe.Symbol == "" {
			fe.Symbol = sym
		}
		if fe.Op == "" {
			fe.Op = op
		}
		return fe
	}
	return Fail(source, sym, op, classify(err), err)
}

// ReasonOf reports the failure reason of err, or "" when err is nil.
func ReasonOf(err error) Reason {
	if err == nil {
		return ""
	}
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Reason
	}
	return classify(err)
}

func classify(err error) Reason {
	var (
		syntax *json.SyntaxError
		typ    *json.UnmarshalTypeError
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return ReasonTimeout
	case errors.Is(err, ErrUnsupported):
		return ReasonConfig
	case errors.As(err, &syntax), errors.As(err, &typ):
		return ReasonMalformed
	}
	return ReasonNetwork
}
