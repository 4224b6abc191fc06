package cmd

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marketwatch/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the position and trade history files",
	Long: `Read the CSV journal the dashboard writes.

Subcommands:
  list   - Open positions and closed trades
  stats  - Win rate and P&L summary
  org    - Trade history as Org-mode entries
  clear  - Empty both files

Examples:
  marketwatch journal list
  marketwatch journal org > trades.org`,
}

var journalListCmd = &cobra.Command{
	Use:   "list",
	Short: "List open positions and closed trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalList,
}

var journalStatsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the trade history",
	Args:  cobra.NoArgs,
	RunE:  runJournalStats,
}

var journalOrgCmd = &cobra.Command{
	Use:   "org",
	Short: "Print the trade history as Org-mode",
	Args:  cobra.NoArgs,
	RunE:  runJournalOrg,
}

var journalClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove all positions and trades",
	Args:  cobra.NoArgs,
	RunE:  runJournalClear,
}

var journalClearYes bool

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalListCmd)
	journalCmd.AddCommand(journalStatsCmd)
	journalCmd.AddCommand(journalOrgCmd)
	journalCmd.AddCommand(journalClearCmd)

	journalClearCmd.Flags().BoolVarP(&journalClearYes, "yes", "y", false, "confirm clearing the journal")
}

func openJournal() (*journal.CSVStore, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return journal.NewCSVStore(cfg.Journal.PositionsFile, cfg.Journal.HistoryFile), nil
}

func runJournalList(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	positions, err := store.LoadPositions()
	if err != nil {
		return fmt.Errorf("load positions: %w", err)
	}
	trades, err := store.LoadHistory()
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Open positions (%d)\n", len(positions))
	for _, p := range positions {
		fmt.Fprintf(out, "  %s  %-12s %-5s entry %.4f  stop %.4f  target %.4f\n",
			p.Date.Format("2006-01-02 15:04"), p.Symbol, p.Direction, p.Entry, p.Stop, p.Target)
	}
	fmt.Fprintf(out, "\nClosed trades (%d)\n", len(trades))
	writeTrades(out, trades)
	return nil
}

func writeTrades(out io.Writer, trades []journal.ClosedTrade) {
	for _, t := range trades {
		fmt.Fprintf(out, "  %s  %-12s %-5s %.4f -> %.4f  %-12s %+7.2f%%\n",
			t.Date.Format("2006-01-02 15:04"), t.Symbol, t.Direction, t.Entry, t.Exit, t.Status, t.PnLPct)
	}
}

func runJournalStats(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	trades, err := store.LoadHistory()
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}

	st := journal.ComputeStats(trades)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Trades:   %d (%d wins, %d losses)\n", st.Trades, st.Wins, st.Losses)
	fmt.Fprintf(out, "Win rate: %.1f%%\n", st.WinRate)
	fmt.Fprintf(out, "Total:    %+.2f%%\n", st.TotalPnLPct)
	fmt.Fprintf(out, "Average:  %+.2f%%\n", st.AvgPnLPct)
	fmt.Fprintf(out, "Best:     %+.2f%%\n", st.BestPnLPct)
	fmt.Fprintf(out, "Worst:    %+.2f%%\n", st.WorstPnLPct)
	return nil
}

func runJournalOrg(cmd *cobra.Command, args []string) error {
	store, err := openJournal()
	if err != nil {
		return err
	}
	trades, err := store.LoadHistory()
	if err != nil {
		return fmt.Errorf("load history: %w", err)
	}
	return journal.WriteOrg(cmd.OutOrStdout(), trades)
}

func runJournalClear(cmd *cobra.Command, args []string) error {
	if !journalClearYes {
		return fmt.Errorf("refusing to clear the journal without --yes")
	}
	store, err := openJournal()
	if err != nil {
		return err
	}
	if err := store.Clear(); err != nil {
		return fmt.Errorf("clear journal: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "✓ Cleared %s and %s\n", store.PositionsPath, store.HistoryPath)
	return nil
}
