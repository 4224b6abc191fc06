package dashboard

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"math"
	"net/http"
	"strconv"

	"github.com/rustyeddy/marketwatch/breadth"
	"github.com/rustyeddy/marketwatch/market"
	"github.com/rustyeddy/marketwatch/strategies"
	"github.com/rustyeddy/marketwatch/watch"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = template.Must(template.New("").Funcs(template.FuncMap{
	"price":  formatPrice,
	"pct":    formatPct,
	"tone":   tone,
	"signed": func(f float64) string { return strconv.FormatFloat(f, 'f', 2, 64) },
	"trend": func(trends map[market.Symbol]breadth.TrendTag, sym market.Symbol) string {
		return string(trends[sym])
	},
	"last": func(snap watch.Snapshot, sym market.Symbol) float64 {
		q, _ := snap.Quote(sym)
		return q.Last
	},
	"barPct": func(n, total int) string {
		if total == 0 {
			return "0"
		}
		return strconv.FormatFloat(float64(n)/float64(total)*100, 'f', 1, 64)
	},
}).ParseFS(templateFS, "templates/*.html"))

type pageView struct {
	Title      string
	Clock      string
	Zone       string
	Updated    string
	Error      string
	Snap       watch.Snapshot
	Modes      []market.Mode
	Sentiments []strategies.Sentiment
	Refresh    int
}

type chartView struct {
	Title   string
	Symbol  market.Symbol
	TVSym   string
	Symbols []market.Symbol
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	now := s.now().In(s.loc)

	v := pageView{
		Title:      title(snap.Settings.Mode),
		Clock:      now.Format("Mon 02 Jan 2006 15:04:05"),
		Zone:       now.Format("MST"),
		Error:      r.URL.Query().Get("error"),
		Snap:       snap,
		Modes:      []market.Mode{market.Crypto, market.Equity},
		Sentiments: []strategies.Sentiment{strategies.Both, strategies.Bullish, strategies.Bearish},
		Refresh:    int(math.Max(snap.RefreshInterval.Seconds(), 5)),
	}
	if snap.Ready() {
		v.Updated = snap.Time.In(s.loc).Format("15:04:05")
	}
	s.render(w, "index.html", v)
}

func (s *Server) handleChart(w http.ResponseWriter, r *http.Request) {
	snap := s.engine.Snapshot()
	sym := market.Normalize(r.URL.Query().Get("symbol"))
	if sym == "" && len(snap.Symbols) > 0 {
		sym = snap.Symbols[0]
	}
	if sym == "" {
		sym = "BTCUSDT"
	}
	s.render(w, "chart.html", chartView{
		Title:   string(sym) + " chart",
		Symbol:  sym,
		TVSym:   tradingViewSymbol(sym),
		Symbols: snap.Symbols,
	})
}

func (s *Server) render(w http.ResponseWriter, name string, v any) {
	var buf bytes.Buffer
	if err := pages.ExecuteTemplate(&buf, name, v); err != nil {
		s.log.Error("render failed", "template", name, "error", err)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

func title(mode market.Mode) string {
	if mode == market.Equity {
		return "Equity Market Watch"
	}
	return "Crypto Market Watch"
}

// tradingViewSymbol prefixes crypto pairs with the exchange whose candles
// the dashboard scans.
func tradingViewSymbol(sym market.Symbol) string {
	if market.Classify(sym) == market.Crypto {
		return "BINANCE:" + string(sym)
	}
	return string(sym)
}

// formatPrice shows "n/a" for the zero no-data price.
func formatPrice(f float64) string {
	switch {
	case f == 0 || math.IsNaN(f):
		return "n/a"
	case math.Abs(f) >= 1:
		return strconv.FormatFloat(f, 'f', 2, 64)
	default:
		return strconv.FormatFloat(f, 'g', 4, 64)
	}
}

func formatPct(f float64) string {
	if math.IsNaN(f) {
		return "n/a"
	}
	return fmt.Sprintf("%+.2f%%", f)
}

func tone(f float64) string {
	switch {
	case f > 0:
		return "up"
	case f < 0:
		return "down"
	}
	return "flat"
}
