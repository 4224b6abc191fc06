// Package notify announces position opens and closes.
package notify

import (
	"context"
	"errors"
	"log/slog"

	"github.com/rustyeddy/marketwatch/journal"
)

type Notifier interface {
	PositionOpened(ctx context.Context, p journal.Position) error
	TradeClosed(ctx context.Context, t journal.ClosedTrade) error
}

// Log writes events to a slog logger.
type Log struct {
	Logger *slog.Logger
}

func (l Log) logger() *slog.Logger {
	if l.Logger == nil {
		return slog.Default()
	}
	return l.Logger
}

func (l Log) PositionOpened(_ context.Context, p journal.Position) error {
	l.logger().Info("notify: position opened", "symbol", p.Symbol, "direction", p.Direction, "entry", p.Entry, "stop", p.Stop, "target", p.Target)
	return nil
}

func (l Log) TradeClosed(_ context.Context, t journal.ClosedTrade) error {
	l.logger().Info("notify: trade closed", "symbol", t.Symbol, "status", t.Status, "exit", t.Exit, "pnl_pct", t.PnLPct)
	return nil
}

// Multi fans events out to every notifier and joins their errors.
type Multi []Notifier

func (m Multi) PositionOpened(ctx context.Context, p journal.Position) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.PositionOpened(ctx, p))
	}
	return errors.Join(errs...)
}

func (m Multi) TradeClosed(ctx context.Context, t journal.ClosedTrade) error {
	var errs []error
	for _, n := range m {
		errs = append(errs, n.TradeClosed(ctx, t))
	}
	return errors.Join(errs...)
}
