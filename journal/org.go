package journal

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// WriteOrg writes trades as an Org-mode outline: a summary line, then one
// entry per trade with its facts in a PROPERTIES drawer and empty Setup and
// Review headings for notes.
func WriteOrg(w io.Writer, trades []ClosedTrade) error {
	st := ComputeStats(trades)
	if _, err := fmt.Fprintf(w, "* Trade journal\nTrades: %d  Wins: %d  Losses: %d  Win rate: %.1f%%  Total P&L: %.2f%%\n",
		st.Trades, st.Wins, st.Losses, st.WinRate, st.TotalPnLPct); err != nil {
		return err
	}
	for _, t := range trades {
		if _, err := io.WriteString(w, "\n"+OrgEntry(t)); err != nil {
			return err
		}
	}
	return nil
}

// FormatTradesOrg is WriteOrg into a string.
func FormatTradesOrg(trades []ClosedTrade) string {
	var b strings.Builder
	_ = WriteOrg(&b, trades)
	return b.String()
}

// OrgEntry renders one closed trade.
func OrgEntry(t ClosedTrade) string {
	props := [][2]string{
		{"ID", t.ID},
		{"SYMBOL", string(t.Symbol)},
		{"DIRECTION", string(t.Direction)},
		{"DATE", t.Date.UTC().Format(time.RFC3339)},
		{"ENTRY", f(t.Entry)},
		{"EXIT", f(t.Exit)},
		{"STATUS", string(t.Status)},
		{"PNL_PCT", fmt.Sprintf("%.2f", t.PnLPct)},
	}

	var b strings.Builder
	fmt.Fprintf(&b, "** %s %s %s (%s)\n:PROPERTIES:\n", outcome(t.PnLPct), t.Symbol, t.Direction, tail(t.ID, 8))
	for _, p := range props {
		fmt.Fprintf(&b, ":%s: %s\n", p[0], p[1])
	}
	b.WriteString(":END:\n\n*** Setup\n- \n\n*** Review\n- \n")
	return b.String()
}

func outcome(pnl float64) string {
	switch {
	case pnl > 0:
		return "WIN"
	case pnl < 0:
		return "LOSS"
	}
	return "FLAT"
}

func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[len(s)-n:]
}
