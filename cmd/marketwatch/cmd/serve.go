package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/marketwatch/config"
	"github.com/rustyeddy/marketwatch/dashboard"
	"github.com/rustyeddy/marketwatch/journal"
	"github.com/rustyeddy/marketwatch/notify"
	"github.com/rustyeddy/marketwatch/tracker"
	"github.com/rustyeddy/marketwatch/watch"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the refresh loop and the dashboard",
	Long: `Load the journal, start the periodic refresh cycle and serve the
dashboard until interrupted.

Secrets are read from the environment (or the --env file):
  POLYGON_API_KEY            equity quotes and candles
  FIREBASE_CREDENTIALS_PATH  push notifications
  REDIS_PASSWORD             shared cache

Example:
  marketwatch serve -f marketwatch.yaml --addr :9090`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}
	secrets := config.LoadSecrets()
	log := slog.Default()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := watch.NewCache(ctx, cfg, secrets, log)
	if err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	defer c.Close()
	feed := watch.NewFeed(cfg, secrets, c, log)

	store := journal.NewCSVStore(cfg.Journal.PositionsFile, cfg.Journal.HistoryFile)
	store.Log = log
	tr := tracker.New(store, feed, tracker.WithLogger(log))
	if err := tr.Load(); err != nil {
		return fmt.Errorf("load journal: %w", err)
	}
	log.Info("journal loaded", "positions", len(tr.Positions()), "history", len(tr.History()))

	engine, err := watch.New(cfg, feed, tr,
		watch.WithNotifier(newNotifier(ctx, cfg, secrets, log)),
		watch.WithLogger(log),
	)
	if err != nil {
		return err
	}

	srv := dashboard.New(engine, dashboard.WithLocation(cfg.Location()), dashboard.WithLogger(log))

	done := make(chan error, 1)
	go func() { done <- engine.Run(ctx) }()

	err = srv.ListenAndServe(ctx, cfg.Server.Addr)
	stop()
	if rerr := <-done; err == nil {
		err = rerr
	}
	return err
}

// newNotifier always logs events and adds FCM pushes when configured.
// A broken FCM setup is reported and skipped.
func newNotifier(ctx context.Context, cfg *config.Config, secrets config.Secrets, log *slog.Logger) notify.Notifier {
	n := notify.Multi{notify.Log{Logger: log}}

	fcm, err := notify.NewFCM(ctx, secrets.FirebaseCredentials, cfg.Notify.FCMTokens, log)
	if err != nil {
		log.Error("FCM unavailable", "error", err)
		return n
	}
	if fcm.Enabled() {
		n = append(n, fcm)
	}
	return n
}
