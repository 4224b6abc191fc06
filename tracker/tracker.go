// Package tracker turns signals into open positions and closes them when
// live prices reach their stop or target.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/marketwatch/internal/id"
	"github.com/rustyeddy/marketwatch/journal"
	"github.com/rustyeddy/marketwatch/market"
	"github.com/rustyeddy/marketwatch/strategies"
)

type (
	Position    = journal.Position
	ClosedTrade = journal.ClosedTrade
)

var (
	ErrNoPosition   = errors.New("tracker: no open position for symbol")
	ErrInvalidEntry = errors.New("tracker: invalid journal entry")
)

// PriceSource supplies live prices. A zero or failed quote means no data.
type PriceSource interface {
	Quote(ctx context.Context, sym market.Symbol) (market.Quote, error)
}

// ManualEntry is a trade typed in by the user.
type ManualEntry struct {
	Symbol    string
	Direction string
	Entry     float64
	Exit      float64
	Date      time.Time
}

type Tracker struct {
	mu        sync.Mutex
	store     journal.Store
	prices    PriceSource
	positions []Position
	history   []ClosedTrade

	// opened holds symbols opened since the last Tick.
	opened map[market.Symbol]struct{}

	now func() time.Time
	log *slog.Logger
}

type Option func(*Tracker)

func WithLogger(l *slog.Logger) Option {
	return func(t *Tracker) {
		if l != nil {
			t.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(t *Tracker) {
		if now != nil {
			t.now = now
		}
	}
}

func New(store journal.Store, prices PriceSource, opts ...Option) *Tracker {
	t := &Tracker{
		store:  store,
		prices: prices,
		opened: make(map[market.Symbol]struct{}),
		now:    time.Now,
		log:    slog.Default(),
	}
	for _, o := range opts {
		o(t)
	}
	return t
}

// Load replaces in-memory state with the store's contents. Duplicate open
// positions for one symbol keep the first row.
func (t *Tracker) Load() error {
	positions, err := t.store.LoadPositions()
	if err != nil {
		return err
	}
	history, err := t.store.LoadHistory()
	if err != nil {
		return err
	}

	seen := make(map[market.Symbol]bool, len(positions))
	uniq := positions[:0]
	for _, p := range positions {
		if seen[p.Symbol] {
			t.log.Warn("dropping duplicate open position", "symbol", p.Symbol, "id", p.ID)
			continue
		}
		seen[p.Symbol] = true
		uniq = append(uniq, p)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions = uniq
	t.history = history
	clear(t.opened)
	return nil
}

// Ingest opens a position for every signal whose symbol is not already
// open and whose live price has crossed the entry in the signal's
// direction. New positions are persisted before Ingest returns.
func (t *Tracker) Ingest(ctx context.Context, signals []strategies.Signal) ([]Position, error) {
	var opened []Position

	for _, sig := range signals {
		if t.isOpen(sig.Symbol) {
			continue
		}

		q, err := t.prices.Quote(ctx, sig.Symbol)
		if err != nil || !q.Valid() {
			t.log.Debug("no live price for signal", "symbol", sig.Symbol, "error", err)
			continue
		}
		if !triggered(sig.Direction, sig.Entry, q.Last) {
			continue
		}

		p := Position{
			ID:        id.New(),
			Date:      t.now(),
			Symbol:    sig.Symbol,
			Direction: sig.Direction,
			Entry:     sig.Entry,
			Stop:      sig.Stop,
			Target:    sig.Target,
			Status:    journal.Running,
		}

		t.mu.Lock()
		if t.indexOf(sig.Symbol) >= 0 {
			t.mu.Unlock()
			continue
		}
		t.positions = append(t.positions, p)
		t.opened[p.Symbol] = struct{}{}
		t.mu.Unlock()

		t.log.Info("position opened", "symbol", p.Symbol, "direction", p.Direction, "entry", p.Entry, "stop", p.Stop, "target", p.Target, "live", q.Last)
		opened = append(opened, p)
	}

	if len(opened) == 0 {
		return nil, nil
	}
	return opened, t.savePositions()
}

// Tick checks every position opened before this cycle against its live
// price. The stop is checked before the target. Positions without a live
// price are left alone.
func (t *Tracker) Tick(ctx context.Context) ([]ClosedTrade, error) {
	t.mu.Lock()
	var candidates []Position
	for _, p := range t.positions {
		if _, fresh := t.opened[p.Symbol]; !fresh {
			candidates = append(candidates, p)
		}
	}
	clear(t.opened)
	t.mu.Unlock()

	var closed []ClosedTrade
	for _, p := range candidates {
		q, err := t.prices.Quote(ctx, p.Symbol)
		if err != nil || !q.Valid() {
			t.log.Debug("no live price for position", "symbol", p.Symbol, "error", err)
			continue
		}

		var (
			exit   float64
			status journal.Status
		)
		switch {
		case hitStop(p, q.Last):
			exit, status = p.Stop, journal.StopHit
		case hitTarget(p, q.Last):
			exit, status = p.Target, journal.TargetHit
		default:
			continue
		}

		ct, ok := t.close(p.Symbol, exit, status)
		if !ok {
			continue
		}
		t.log.Info("position closed", "symbol", ct.Symbol, "status", ct.Status, "exit", ct.Exit, "live", q.Last, "pnl_pct", ct.PnLPct)
		closed = append(closed, ct)
	}

	if len(closed) == 0 {
		return nil, nil
	}
	return closed, t.saveAll()
}

// RecordManual appends a user-entered trade to the history.
func (t *Tracker) RecordManual(e ManualEntry) (ClosedTrade, error) {
	sym := market.Normalize(e.Symbol)
	if sym == "" {
		return ClosedTrade{}, fmt.Errorf("%w: symbol is required", ErrInvalidEntry)
	}
	dir, err := market.ParseDirection(e.Direction)
	if err != nil {
		return ClosedTrade{}, fmt.Errorf("%w: %v", ErrInvalidEntry, err)
	}
	if e.Entry <= 0 || e.Exit <= 0 {
		return ClosedTrade{}, fmt.Errorf("%w: entry and exit must be positive", ErrInvalidEntry)
	}

	date := e.Date
	if date.IsZero() {
		date = t.now()
	}
	ct := ClosedTrade{
		ID:        id.New(),
		Date:      date,
		Symbol:    sym,
		Direction: dir,
		Entry:     e.Entry,
		Exit:      e.Exit,
		Status:    journal.ManualEntry,
		PnLPct:    PnLPct(dir, e.Entry, e.Exit),
	}

	t.mu.Lock()
	t.history = append(t.history, ct)
	t.mu.Unlock()

	return ct, t.saveHistory()
}

// ClosePosition closes an open position at exit on the user's request.
// A zero exit uses the live price.
func (t *Tracker) ClosePosition(ctx context.Context, sym market.Symbol, exit float64) (ClosedTrade, error) {
	sym = market.Normalize(string(sym))
	if !t.isOpen(sym) {
		return ClosedTrade{}, fmt.Errorf("%w: %s", ErrNoPosition, sym)
	}

	if exit <= 0 {
		q, err := t.prices.Quote(ctx, sym)
		if err != nil || !q.Valid() {
			return ClosedTrade{}, fmt.Errorf("tracker: no live price to close %s: %w", sym, errors.Join(err, ErrInvalidEntry))
		}
		exit = q.Last
	}

	ct, ok := t.close(sym, exit, journal.ManualEntry)
	if !ok {
		return ClosedTrade{}, fmt.Errorf("%w: %s", ErrNoPosition, sym)
	}
	return ct, t.saveAll()
}

// Clear empties both collections in memory and in the store.
func (t *Tracker) Clear() error {
	if err := t.store.Clear(); err != nil {
		return err
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.positions = nil
	t.history = nil
	clear(t.opened)
	return nil
}

func (t *Tracker) Positions() []Position {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]Position(nil), t.positions...)
}

func (t *Tracker) History() []ClosedTrade {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]ClosedTrade(nil), t.history...)
}

func (t *Tracker) Stats() journal.Stats {
	t.mu.Lock()
	defer t.mu.Unlock()
	return journal.ComputeStats(t.history)
}

// Save writes both collections. Used to retry after a failed save.
func (t *Tracker) Save() error {
	return t.saveAll()
}

// close moves a position into history.
func (t *Tracker) close(sym market.Symbol, exit float64, status journal.Status) (ClosedTrade, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.indexOf(sym)
	if i < 0 {
		return ClosedTrade{}, false
	}
	p := t.positions[i]
	t.positions = append(t.positions[:i], t.positions[i+1:]...)
	delete(t.opened, sym)

	ct := ClosedTrade{
		ID:        p.ID,
		Date:      t.now(),
		Symbol:    p.Symbol,
		Direction: p.Direction,
		Entry:     p.Entry,
		Exit:      exit,
		Status:    status,
		PnLPct:    PnLPct(p.Direction, p.Entry, exit),
	}
	t.history = append(t.history, ct)
	return ct, true
}

func (t *Tracker) isOpen(sym market.Symbol) bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.indexOf(sym) >= 0
}

// indexOf requires t.mu.
func (t *Tracker) indexOf(sym market.Symbol) int {
	for i, p := range t.positions {
		if strings.EqualFold(string(p.Symbol), string(sym)) {
			return i
		}
	}
	return -1
}

func (t *Tracker) savePositions() error {
	if err := t.store.SavePositions(t.Positions()); err != nil {
		t.log.Error("persist positions failed", "error", err)
		return err
	}
	return nil
}

func (t *Tracker) saveHistory() error {
	if err := t.store.SaveHistory(t.History()); err != nil {
		t.log.Error("persist history failed", "error", err)
		return err
	}
	return nil
}

func (t *Tracker) saveAll() error {
	return errors.Join(t.savePositions(), t.saveHistory())
}
