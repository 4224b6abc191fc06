package watch

import (
	"context"

	"github.com/rustyeddy/marketwatch/journal"
	"github.com/rustyeddy/marketwatch/market"
	"github.com/rustyeddy/marketwatch/tracker"
)

// Manual journal actions wait for any running cycle and republish the
// snapshot with the new journal state.

func (e *Engine) RecordManual(entry tracker.ManualEntry) (journal.ClosedTrade, error) {
	e.cycle.Lock()
	defer e.cycle.Unlock()

	ct, err := e.tracker.RecordManual(entry)
	if ct.ID == "" {
		return ct, err
	}
	e.notePersist(err, true)
	e.republish()
	return ct, err
}

// ClosePosition closes sym at exit, or at the live price when exit is zero.
func (e *Engine) ClosePosition(ctx context.Context, sym market.Symbol, exit float64) (journal.ClosedTrade, error) {
	e.cycle.Lock()
	defer e.cycle.Unlock()

	ct, err := e.tracker.ClosePosition(ctx, sym, exit)
	if ct.ID == "" {
		return ct, err
	}
	e.notePersist(err, true)
	e.republish()
	if nerr := e.notifier.TradeClosed(ctx, ct); nerr != nil {
		e.log.Warn("notify trade closed failed", "symbol", ct.Symbol, "error", nerr)
	}
	return ct, err
}

// ClearHistory empties open positions and history.
func (e *Engine) ClearHistory() error {
	e.cycle.Lock()
	defer e.cycle.Unlock()

	if err := e.tracker.Clear(); err != nil {
		e.log.Error("clear journal failed", "error", err)
		return err
	}
	e.notePersist(nil, true)
	e.republish()
	e.log.Info("journal cleared")
	return nil
}
