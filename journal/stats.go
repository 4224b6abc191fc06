package journal

// Stats summarizes a trade history.
type Stats struct {
	Trades      int     `json:"trades"`
	Wins        int     `json:"wins"`
	Losses      int     `json:"losses"`
	WinRate     float64 `json:"winRate"`
	TotalPnLPct float64 `json:"totalPnlPct"`
	AvgPnLPct   float64 `json:"avgPnlPct"`
	BestPnLPct  float64 `json:"bestPnlPct"`
	WorstPnLPct float64 `json:"worstPnlPct"`
}

// ComputeStats counts a trade with positive P&L as a win and negative as
// a loss. Flat trades count toward Trades only.
func ComputeStats(trades []ClosedTrade) Stats {
	var st Stats
	for i, t := range trades {
		st.Trades++
		st.TotalPnLPct += t.PnLPct
		switch {
		case t.PnLPct > 0:
			st.Wins++
		case t.PnLPct < 0:
			st.Losses++
		}
		if i == 0 || t.PnLPct > st.BestPnLPct {
			st.BestPnLPct = t.PnLPct
		}
		if i == 0 || t.PnLPct < st.WorstPnLPct {
			st.WorstPnLPct = t.PnLPct
		}
	}
	if st.Trades > 0 {
		st.WinRate = float64(st.Wins) / float64(st.Trades) * 100
		st.AvgPnLPct = st.TotalPnLPct / float64(st.Trades)
	}
	return st
}
