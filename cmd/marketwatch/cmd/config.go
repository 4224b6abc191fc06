package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marketwatch/config"
	"github.com/rustyeddy/marketwatch/market"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write or check the dashboard configuration",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the built-in defaults to a file",
	Long: `Write the built-in configuration to a file so it can be edited.
A .yaml or .yml extension selects YAML; anything else is written as JSON.`,
	Example: "  marketwatch config init -o marketwatch.yaml",
	Args:    cobra.NoArgs,
	RunE:    runConfigInit,
}

var configValidateCmd = &cobra.Command{
	Use:     "validate",
	Short:   "Load a configuration file and report what it sets",
	Example: "  marketwatch config validate -f marketwatch.yaml",
	Args:    cobra.NoArgs,
	RunE:    runConfigValidate,
}

var (
	configInitOutput string
	configInitForce  bool
)

func init() {
	configCmd.AddCommand(configInitCmd, configValidateCmd)
	rootCmd.AddCommand(configCmd)

	configInitCmd.Flags().StringVarP(&configInitOutput, "output", "o", "marketwatch.yaml", "output config file path")
	configInitCmd.Flags().BoolVar(&configInitForce, "force", false, "overwrite an existing file")
}

func runConfigInit(cmd *cobra.Command, args []string) error {
	if exists(configInitOutput) && !configInitForce {
		return fmt.Errorf("%s already exists (use --force to overwrite)", configInitOutput)
	}
	if err := config.Default().SaveToFile(configInitOutput); err != nil {
		return fmt.Errorf("write %s: %w", configInitOutput, err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Created default configuration: %s\nStart the dashboard with: marketwatch serve -f %s\n",
		configInitOutput, configInitOutput)
	return nil
}

func runConfigValidate(cmd *cobra.Command, args []string) error {
	if configPath == "" {
		return fmt.Errorf("--config is required")
	}
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Configuration valid: %s\n", configPath)
	fmt.Fprintf(out, "  Mode: %s, refresh every %s\n", cfg.Mode, cfg.RefreshInterval)
	fmt.Fprintf(out, "  Strategy: %s (window %d, width %.1f)\n", cfg.Strategy.Name, cfg.Strategy.Window, cfg.Strategy.Width)
	for _, mode := range []market.Mode{market.Crypto, market.Equity} {
		m := cfg.Market(mode)
		fmt.Fprintf(out, "  %s: %s candles, watchlists %v (default %s)\n", mode, m.Interval, cfg.WatchlistNames(mode), m.DefaultWatchlist)
	}
	fmt.Fprintf(out, "  Journal: %s, %s\n", cfg.Journal.PositionsFile, cfg.Journal.HistoryFile)
	return nil
}
