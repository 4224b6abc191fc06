// Package dashboard serves the market-watch page, its JSON API and a
// websocket that pushes every new snapshot.
package dashboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/marketwatch/journal"
	"github.com/rustyeddy/marketwatch/market"
	"github.com/rustyeddy/marketwatch/strategies"
	"github.com/rustyeddy/marketwatch/tracker"
	"github.com/rustyeddy/marketwatch/watch"
)

// Engine is the part of watch.Engine the dashboard drives.
type Engine interface {
	Snapshot() watch.Snapshot
	SetSettings(watch.Settings) (watch.Settings, error)
	RecordManual(tracker.ManualEntry) (journal.ClosedTrade, error)
	ClosePosition(ctx context.Context, sym market.Symbol, exit float64) (journal.ClosedTrade, error)
	ClearHistory() error
	ForceRefresh(ctx context.Context) watch.Snapshot
	OnSnapshot(func(watch.Snapshot))
}

type Server struct {
	engine Engine
	hub    *hub
	loc    *time.Location
	log    *slog.Logger
	now    func() time.Time
}

type Option func(*Server)

// WithLocation sets the time zone of the page clock.
func WithLocation(loc *time.Location) Option {
	return func(s *Server) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *Server) {
		if l != nil {
			s.log = l
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		if now != nil {
			s.now = now
		}
	}
}

func New(engine Engine, opts ...Option) *Server {
	s := &Server{
		engine: engine,
		loc:    time.UTC,
		log:    slog.Default(),
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	s.hub = newHub(s.log)
	engine.OnSnapshot(s.hub.broadcast)
	return s
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", s.handleIndex)
	mux.HandleFunc("GET /chart", s.handleChart)
	mux.HandleFunc("GET /api/snapshot", s.handleSnapshot)
	mux.HandleFunc("POST /api/settings", s.handleSettings)
	mux.HandleFunc("POST /api/journal", s.handleJournal)
	mux.HandleFunc("POST /api/positions/close", s.handleClose)
	mux.HandleFunc("POST /api/history/clear", s.handleClear)
	mux.HandleFunc("POST /api/refresh", s.handleRefresh)
	mux.HandleFunc("GET /ws", s.hub.serve(s.engine.Snapshot))
	return mux
}

// ListenAndServe serves until ctx is done and then shuts down.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		s.log.Info("dashboard listening", "addr", addr)
		errc <- srv.ListenAndServe()
	}()

	select {
	case err := <-errc:
		return fmt.Errorf("dashboard: %w", err)
	case <-ctx.Done():
	}

	s.hub.closeAll()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("dashboard shutdown: %w", err)
	}
	if err := <-errc; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("dashboard: %w", err)
	}
	return nil
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.engine.Snapshot())
}

type settingsRequest struct {
	Mode      string `json:"mode"`
	Watchlist string `json:"watchlist"`
	Sentiment string `json:"sentiment"`
}

func (s *Server) handleSettings(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := decode(r, &req, func(f url.Values) error {
		req = settingsRequest{Mode: f.Get("mode"), Watchlist: f.Get("watchlist"), Sentiment: f.Get("sentiment")}
		return nil
	}); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	var next watch.Settings
	if req.Mode != "" {
		mode, err := market.ParseMode(req.Mode)
		if err != nil {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}
		next.Mode = mode
	}
	if req.Sentiment != "" {
		sentiment, err := strategies.ParseSentiment(req.Sentiment)
		if err != nil {
			s.fail(w, r, http.StatusBadRequest, err)
			return
		}
		next.Sentiment = sentiment
	}
	next.Watchlist = strings.TrimSpace(req.Watchlist)

	applied, err := s.engine.SetSettings(next)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}
	s.done(w, r, applied)
}

type journalRequest struct {
	Symbol    string  `json:"symbol"`
	Direction string  `json:"direction"`
	Entry     float64 `json:"entry"`
	Exit      float64 `json:"exit"`
	Date      string  `json:"date,omitempty"`
}

func (s *Server) handleJournal(w http.ResponseWriter, r *http.Request) {
	var req journalRequest
	if err := decode(r, &req, func(f url.Values) (err error) {
		req.Symbol, req.Direction, req.Date = f.Get("symbol"), f.Get("direction"), f.Get("date")
		if req.Entry, err = formFloat(f, "entry"); err != nil {
			return err
		}
		req.Exit, err = formFloat(f, "exit")
		return err
	}); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	date, err := parseDate(req.Date, s.loc)
	if err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	ct, err := s.engine.RecordManual(tracker.ManualEntry{
		Symbol:    req.Symbol,
		Direction: req.Direction,
		Entry:     req.Entry,
		Exit:      req.Exit,
		Date:      date,
	})
	if err != nil && ct.ID == "" {
		s.fail(w, r, statusFor(err), err)
		return
	}
	if err != nil {
		// Recorded in memory; the snapshot carries the persistence warning.
		s.log.Warn("manual entry not persisted", "symbol", ct.Symbol, "error", err)
	}
	s.done(w, r, ct)
}

type closeRequest struct {
	Symbol string  `json:"symbol"`
	Exit   float64 `json:"exit,omitempty"`
}

func (s *Server) handleClose(w http.ResponseWriter, r *http.Request) {
	var req closeRequest
	if err := decode(r, &req, func(f url.Values) (err error) {
		req.Symbol = f.Get("symbol")
		req.Exit, err = formFloat(f, "exit")
		return err
	}); err != nil {
		s.fail(w, r, http.StatusBadRequest, err)
		return
	}

	ct, err := s.engine.ClosePosition(r.Context(), market.Normalize(req.Symbol), req.Exit)
	if err != nil && ct.ID == "" {
		s.fail(w, r, statusFor(err), err)
		return
	}
	s.done(w, r, ct)
}

func (s *Server) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.ClearHistory(); err != nil {
		s.fail(w, r, http.StatusInternalServerError, err)
		return
	}
	s.done(w, r, map[string]bool{"ok": true})
}

func (s *Server) handleRefresh(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.ForceRefresh(r.Context())
	s.done(w, r, snap)
}

// done answers a successful action: JSON callers get v, form posts go
// back to the page.
func (s *Server) done(w http.ResponseWriter, r *http.Request, v any) {
	if isJSON(r) {
		writeJSON(w, http.StatusOK, v)
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, status int, err error) {
	s.log.Debug("request failed", "path", r.URL.Path, "status", status, "error", err)
	if isJSON(r) {
		writeJSON(w, status, map[string]string{"error": err.Error()})
		return
	}
	http.Redirect(w, r, "/?error="+url.QueryEscape(err.Error()), http.StatusSeeOther)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, tracker.ErrNoPosition):
		return http.StatusNotFound
	case errors.Is(err, tracker.ErrInvalidEntry):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func isJSON(r *http.Request) bool {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return ct == "application/json" || strings.Contains(r.Header.Get("Accept"), "application/json")
}

// decode reads a JSON body into dest, or hands the parsed form to fromForm.
func decode(r *http.Request, dest any, fromForm func(url.Values) error) error {
	ct, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if ct == "application/json" {
		if err := json.NewDecoder(r.Body).Decode(dest); err != nil {
			return fmt.Errorf("invalid JSON body: %w", err)
		}
		return nil
	}
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("invalid form: %w", err)
	}
	return fromForm(r.PostForm)
}

func formFloat(f url.Values, key string) (float64, error) {
	v := strings.TrimSpace(f.Get(key))
	if v == "" {
		return 0, nil
	}
	x, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return x, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02T15:04", "2006-01-02 15:04", "2006-01-02"}

// parseDate reads an optional date typed in loc. Empty means now.
func parseDate(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("date: cannot parse %q", s)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
