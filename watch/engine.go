// Package watch drives the refresh cycle: it fetches quotes, scans for
// signals, advances the tracker, summarizes breadth and publishes a
// Snapshot for the dashboard.
package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/rustyeddy/marketwatch/breadth"
	"github.com/rustyeddy/marketwatch/config"
	"github.com/rustyeddy/marketwatch/feeds"
	"github.com/rustyeddy/marketwatch/market"
	"github.com/rustyeddy/marketwatch/notify"
	"github.com/rustyeddy/marketwatch/scanner"
	"github.com/rustyeddy/marketwatch/strategies"
	"github.com/rustyeddy/marketwatch/tracker"
)

// ErrCycleInFlight is returned by RunCycle while another cycle runs.
var ErrCycleInFlight = errors.New("watch: refresh cycle already in progress")

const journalWarning = "journal not saved: "

// Engine owns the application state. Only one cycle or manual journal
// action runs at a time.
type Engine struct {
	cfg      *config.Config
	feed     feeds.Feed
	tracker  *tracker.Tracker
	notifier notify.Notifier
	detector func(market.Mode) (strategies.Detector, error)
	log      *slog.Logger
	now      func() time.Time

	// cycle serializes cycles and tracker mutations.
	cycle sync.Mutex

	mu         sync.RWMutex
	settings   Settings
	watchlists map[market.Mode]string
	snap       Snapshot
	cycles     int
	saveErr    error
	listeners  []func(Snapshot)

	refresh chan struct{}
}

type Option func(*Engine)

func WithNotifier(n notify.Notifier) Option {
	return func(e *Engine) {
		if n != nil {
			e.notifier = n
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithDetector uses d for both markets instead of the configured strategy.
func WithDetector(d strategies.Detector) Option {
	return func(e *Engine) {
		e.detector = func(market.Mode) (strategies.Detector, error) { return d, nil }
	}
}

// New builds an engine. The tracker should already be loaded.
func New(cfg *config.Config, feed feeds.Feed, tr *tracker.Tracker, opts ...Option) (*Engine, error) {
	sentiment, err := strategies.ParseSentiment(cfg.Sentiment)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		cfg:      cfg,
		feed:     feed,
		tracker:  tr,
		notifier: notify.Log{},
		log:      slog.Default(),
		now:      time.Now,
		settings: Settings{
			Mode:      cfg.Mode,
			Watchlist: cfg.Market(cfg.Mode).DefaultWatchlist,
			Sentiment: sentiment,
		},
		watchlists: map[market.Mode]string{
			market.Crypto: cfg.Markets.Crypto.DefaultWatchlist,
			market.Equity: cfg.Markets.Equity.DefaultWatchlist,
		},
		refresh: make(chan struct{}, 1),
	}
	e.detector = e.configuredDetector
	for _, o := range opts {
		o(e)
	}

	if _, err := e.detector(e.settings.Mode); err != nil {
		return nil, err
	}
	e.snap = e.emptySnapshot(e.settings)
	return e, nil
}

func (e *Engine) configuredDetector(mode market.Mode) (strategies.Detector, error) {
	s := e.cfg.Strategy
	return strategies.ByName(s.Name, strategies.Params{
		Window:       s.Window,
		Width:        s.Width,
		RiskMultiple: s.RiskMultiple,
		Buffer:       e.cfg.BufferFor(mode),
	})
}

// OnSnapshot registers fn to be called with every published snapshot.
// fn must not block.
func (e *Engine) OnSnapshot(fn func(Snapshot)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.listeners = append(e.listeners, fn)
}

// Snapshot returns the latest published state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.snap
}

func (e *Engine) Settings() Settings {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.settings
}

// SetSettings applies a partial update: zero fields keep their value.
// Switching mode restores the watchlist last used in that mode. A
// refresh is requested when anything changed.
func (e *Engine) SetSettings(s Settings) (Settings, error) {
	e.mu.Lock()
	next := e.settings
	if s.Mode != "" && s.Mode != next.Mode {
		next.Mode = s.Mode
		next.Watchlist = e.watchlists[s.Mode]
	}
	if s.Watchlist != "" {
		next.Watchlist = s.Watchlist
	}
	if s.Sentiment != "" {
		next.Sentiment = s.Sentiment
	}
	e.mu.Unlock()

	sentiment, err := strategies.ParseSentiment(string(next.Sentiment))
	if err != nil {
		return e.Settings(), fmt.Errorf("watch: %w", err)
	}
	next.Sentiment = sentiment

	if next.Mode != market.Crypto && next.Mode != market.Equity {
		return e.Settings(), fmt.Errorf("watch: unknown mode %q", next.Mode)
	}
	if _, err := e.cfg.Watchlist(next.Mode, next.Watchlist); err != nil {
		return e.Settings(), fmt.Errorf("watch: %w", err)
	}

	e.mu.Lock()
	changed := next != e.settings
	e.settings = next
	e.watchlists[next.Mode] = next.Watchlist
	e.mu.Unlock()

	if changed {
		e.log.Info("settings changed", "mode", next.Mode, "watchlist", next.Watchlist, "sentiment", next.Sentiment)
		e.Refresh()
	}
	return next, nil
}

// Refresh asks Run to start a cycle soon. Requests made while one is
// pending are coalesced.
func (e *Engine) Refresh() {
	select {
	case e.refresh <- struct{}{}:
	default:
	}
}

// Run executes a cycle immediately and then on every tick of the refresh
// interval or Refresh request until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	interval := e.cfg.RefreshInterval.D()
	e.log.Info("watch engine started", "interval", interval, "mode", e.Settings().Mode)

	e.tryCycle(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			e.log.Info("watch engine stopped")
			return nil
		case <-ticker.C:
			e.tryCycle(ctx)
		case <-e.refresh:
			e.tryCycle(ctx)
		}
	}
}

func (e *Engine) tryCycle(ctx context.Context) {
	if _, err := e.RunCycle(ctx); err != nil {
		e.log.Debug("cycle skipped", "error", err)
	}
}

// RunCycle runs one refresh cycle unless another is in progress.
func (e *Engine) RunCycle(ctx context.Context) (Snapshot, error) {
	if !e.cycle.TryLock() {
		return Snapshot{}, ErrCycleInFlight
	}
	defer e.cycle.Unlock()
	return e.runCycle(ctx), nil
}

// ForceRefresh drops every cached quote and candle and runs a cycle,
// waiting for an in-flight one to finish first.
func (e *Engine) ForceRefresh(ctx context.Context) Snapshot {
	if err := e.feed.Invalidate(ctx); err != nil {
		e.log.Warn("cache invalidate failed", "error", err)
	}
	e.cycle.Lock()
	defer e.cycle.Unlock()
	return e.runCycle(ctx)
}

// runCycle requires e.cycle.
func (e *Engine) runCycle(ctx context.Context) Snapshot {
	start := e.now()
	settings := e.Settings()
	mcfg := e.cfg.Market(settings.Mode)
	workers := e.cfg.Scanner.Workers

	snap := e.emptySnapshot(settings)
	snap.Time = start

	symbols, err := e.cfg.Watchlist(settings.Mode, settings.Watchlist)
	if err != nil {
		snap.Warnings = append(snap.Warnings, err.Error())
	}
	snap.Symbols = symbols

	e.retrySave()

	snap.Index = e.quotes(ctx, market.Symbols(mcfg.IndexSymbols), workers)
	snap.Quotes = e.quotes(ctx, symbols, workers)

	var live []market.Symbol
	for _, q := range snap.Quotes {
		if q.Valid() {
			live = append(live, q.Symbol)
		} else {
			snap.Unavailable = append(snap.Unavailable, q.Symbol)
		}
	}

	var signals []strategies.Signal
	if det, err := e.detector(settings.Mode); err != nil {
		snap.Warnings = append(snap.Warnings, err.Error())
	} else {
		sc := &scanner.Scanner{
			Feed:     e.feed,
			Detector: det,
			Interval: mcfg.Interval,
			Lookback: mcfg.Lookback,
			Workers:  workers,
			Log:      e.log,
		}
		signals = strategies.FilterSentiment(sc.Scan(ctx, live), settings.Sentiment)
	}
	snap.Signals = signals

	opened, ingestErr := e.tracker.Ingest(ctx, signals)
	closed, tickErr := e.tracker.Tick(ctx)
	e.notePersist(errors.Join(ingestErr, tickErr), len(opened)+len(closed) > 0)

	daily := e.daily(ctx, live, workers)
	snap.Report = breadth.Summarize(snap.Quotes, daily, breadth.Thresholds{
		TopN:            e.cfg.Breadth.TopN,
		GapPct:          e.cfg.Breadth.GapThresholdPct,
		OpeningRangePct: e.cfg.Breadth.OpeningRangeThresholdPct,
	})

	snap.Took = e.now().Sub(start)
	e.publish(snap, true)

	for _, p := range opened {
		if err := e.notifier.PositionOpened(ctx, p); err != nil {
			e.log.Warn("notify position opened failed", "symbol", p.Symbol, "error", err)
		}
	}
	for _, t := range closed {
		if err := e.notifier.TradeClosed(ctx, t); err != nil {
			e.log.Warn("notify trade closed failed", "symbol", t.Symbol, "error", err)
		}
	}

	e.log.Info("cycle complete",
		"mode", settings.Mode,
		"watchlist", settings.Watchlist,
		"symbols", len(symbols),
		"unavailable", len(snap.Unavailable),
		"signals", len(signals),
		"opened", len(opened),
		"closed", len(closed),
		"took", snap.Took,
	)
	return e.Snapshot()
}

// quotes fetches every symbol, keeping failures as no-data quotes.
func (e *Engine) quotes(ctx context.Context, symbols []market.Symbol, workers int) []market.Quote {
	return scanner.Map(ctx, e.log, symbols, workers, func(ctx context.Context, sym market.Symbol) (market.Quote, bool) {
		q, err := e.feed.Quote(ctx, sym)
		if err != nil {
			e.log.Debug("quote unavailable", "symbol", sym, "reason", feeds.ReasonOf(err), "error", err)
			return market.NoQuote(sym), true
		}
		return q, true
	})
}

type dailySeries struct {
	sym     market.Symbol
	candles []market.Candle
}

func (e *Engine) daily(ctx context.Context, symbols []market.Symbol, workers int) map[market.Symbol][]market.Candle {
	got := scanner.Map(ctx, e.log, symbols, workers, func(ctx context.Context, sym market.Symbol) (dailySeries, bool) {
		candles, err := e.feed.Candles(ctx, sym, market.D1, breadth.TrendDays+2)
		if err != nil || len(candles) == 0 {
			e.log.Debug("daily candles unavailable", "symbol", sym, "error", err)
			return dailySeries{}, false
		}
		return dailySeries{sym: sym, candles: candles}, true
	})

	out := make(map[market.Symbol][]market.Candle, len(got))
	for _, d := range got {
		out[d.sym] = d.candles
	}
	return out
}

// retrySave re-writes both files after an earlier failed save.
func (e *Engine) retrySave() {
	e.mu.RLock()
	failed := e.saveErr != nil
	e.mu.RUnlock()
	if !failed {
		return
	}
	err := e.tracker.Save()
	if err == nil {
		e.log.Info("journal save recovered")
	}
	e.mu.Lock()
	e.saveErr = err
	e.mu.Unlock()
}

// notePersist records the outcome of a tracker mutation. A successful
// save clears an earlier failure since every save writes whole files.
func (e *Engine) notePersist(err error, saved bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	switch {
	case err != nil:
		e.saveErr = err
	case saved:
		e.saveErr = nil
	}
}

func (e *Engine) emptySnapshot(s Settings) Snapshot {
	return Snapshot{
		Settings:        s,
		Watchlists:      e.cfg.WatchlistNames(s.Mode),
		RefreshInterval: e.cfg.RefreshInterval.D(),
	}
}

// publish fills the journal fields of snap, stores it and notifies
// listeners. cycle marks a completed refresh cycle.
func (e *Engine) publish(snap Snapshot, cycle bool) {
	snap.Positions = e.tracker.Positions()
	snap.History = e.tracker.History()
	snap.Stats = e.tracker.Stats()

	e.mu.Lock()
	if cycle {
		e.cycles++
	}
	snap.Cycle = e.cycles
	if e.saveErr != nil {
		snap.Warnings = append(snap.Warnings, journalWarning+e.saveErr.Error())
	}
	e.snap = snap
	listeners := append(([]func(Snapshot))(nil), e.listeners...)
	e.mu.Unlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

// republish refreshes the journal part of the current snapshot after a
// manual action.
func (e *Engine) republish() Snapshot {
	snap := e.Snapshot()
	snap.Warnings = withoutJournalWarning(snap.Warnings)
	e.publish(snap, false)
	return e.Snapshot()
}

func withoutJournalWarning(ws []string) []string {
	var out []string
	for _, w := range ws {
		if strings.HasPrefix(w, journalWarning) {
			continue
		}
		out = append(out, w)
	}
	return out
}
