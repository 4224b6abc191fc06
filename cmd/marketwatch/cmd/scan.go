package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marketwatch/config"
	"github.com/rustyeddy/marketwatch/market"
	"github.com/rustyeddy/marketwatch/scanner"
	"github.com/rustyeddy/marketwatch/strategies"
	"github.com/rustyeddy/marketwatch/watch"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Scan a watchlist once and print the signals",
	Long: `Fetch candles for every symbol of a watchlist, run the configured
detector and print the signals found. Nothing is written to the journal.

Examples:
  marketwatch scan
  marketwatch scan --mode equity --watchlist megacaps --sentiment bullish`,
	Args: cobra.NoArgs,
	RunE: runScan,
}

var (
	scanMode      string
	scanWatchlist string
	scanSentiment string
)

func init() {
	rootCmd.AddCommand(scanCmd)
	scanCmd.Flags().StringVar(&scanMode, "mode", "", "crypto or equity (default from config)")
	scanCmd.Flags().StringVar(&scanWatchlist, "watchlist", "", "watchlist name (default from config)")
	scanCmd.Flags().StringVar(&scanSentiment, "sentiment", "", "BOTH, BULLISH or BEARISH (default from config)")
}

func runScan(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	mode := cfg.Mode
	if scanMode != "" {
		if mode, err = market.ParseMode(scanMode); err != nil {
			return err
		}
	}
	sentimentName := cfg.Sentiment
	if scanSentiment != "" {
		sentimentName = scanSentiment
	}
	sentiment, err := strategies.ParseSentiment(sentimentName)
	if err != nil {
		return err
	}
	symbols, err := cfg.Watchlist(mode, scanWatchlist)
	if err != nil {
		return err
	}

	secrets := config.LoadSecrets()
	log := slog.Default()
	ctx := context.Background()

	c, err := watch.NewCache(ctx, cfg, secrets, log)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer c.Close()

	det, err := strategies.ByName(cfg.Strategy.Name, strategies.Params{
		Window:       cfg.Strategy.Window,
		Width:        cfg.Strategy.Width,
		RiskMultiple: cfg.Strategy.RiskMultiple,
		Buffer:       cfg.BufferFor(mode),
	})
	if err != nil {
		return err
	}

	mc := cfg.Market(mode)
	sc := &scanner.Scanner{
		Feed:     watch.NewFeed(cfg, secrets, c, log),
		Detector: det,
		Interval: mc.Interval,
		Lookback: mc.Lookback,
		Workers:  cfg.Scanner.Workers,
		Log:      log,
	}

	start := time.Now()
	signals := strategies.FilterSentiment(sc.Scan(ctx, symbols), sentiment)

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Scanned %d %s symbols on %s candles in %s\n\n", len(symbols), mode, mc.Interval, time.Since(start).Round(time.Millisecond))
	if len(signals) == 0 {
		fmt.Fprintln(out, "No signals.")
		return nil
	}
	fmt.Fprintf(out, "%-12s %-6s %12s %12s %12s %12s %6s\n", "SYMBOL", "DIR", "ENTRY", "STOP", "TARGET", "TARGET2", "R:R")
	for _, s := range signals {
		fmt.Fprintf(out, "%-12s %-6s %12.4f %12.4f %12.4f %12.4f %6.2f\n",
			s.Symbol, s.Direction, s.Entry, s.Stop, s.Target, s.SecondaryTarget, s.RR())
	}
	return nil
}
