package cmd

import (
	"bytes"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/marketwatch/config"
	"github.com/rustyeddy/marketwatch/journal"
	"github.com/rustyeddy/marketwatch/market"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	// Flags not given keep the value of the previous Execute.
	configPath = ""
	configInitForce = false
	journalClearYes = false

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(io.Discard)
	rootCmd.SetArgs(append(args, "--env", ""))
	err := rootCmd.Execute()
	return out.String(), err
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	l, err := newLogger(&buf, "warn", "json")
	require.NoError(t, err)
	l.Info("hidden")
	l.Warn("shown", "k", 1)
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = newLogger(&buf, "loud", "text")
	assert.Error(t, err)
	_, err = newLogger(&buf, "info", "xml")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "marketwatch version "+version)
}

func TestConfigInitAndValidate(t *testing.T) {
	path := filepath.Join(t.TempDir(), "marketwatch.yaml")

	out, err := execute(t, "config", "init", "-o", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Created default configuration")

	_, err = execute(t, "config", "init", "-o", path)
	assert.ErrorContains(t, err, "already exists")

	out, err = execute(t, "config", "validate", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Configuration valid")
	assert.Contains(t, out, "majors")

	_, err = execute(t, "config", "validate")
	assert.Error(t, err)
}

func TestJournalCommands(t *testing.T) {
	dir := t.TempDir()
	cfg := config.Default()
	cfg.Journal.PositionsFile = filepath.Join(dir, "positions.csv")
	cfg.Journal.HistoryFile = filepath.Join(dir, "history.csv")
	path := filepath.Join(dir, "marketwatch.yaml")
	require.NoError(t, cfg.SaveToFile(path))

	store := journal.NewCSVStore(cfg.Journal.PositionsFile, cfg.Journal.HistoryFile)
	require.NoError(t, store.SaveHistory([]journal.ClosedTrade{{
		ID:        "01HV0000000000000000000000",
		Date:      time.Date(2024, 4, 1, 10, 0, 0, 0, time.UTC),
		Symbol:    "BTCUSDT",
		Direction: market.Long,
		Entry:     100,
		Exit:      95,
		Status:    journal.StopHit,
		PnLPct:    -5,
	}}))

	out, err := execute(t, "journal", "stats", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Trades:   1 (0 wins, 1 losses)")

	out, err = execute(t, "journal", "list", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Open positions (0)")
	assert.Contains(t, out, "BTCUSDT")

	out, err = execute(t, "journal", "org", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "LOSS BTCUSDT")

	_, err = execute(t, "journal", "clear", "-f", path)
	assert.Error(t, err)

	_, err = execute(t, "journal", "clear", "-f", path, "--yes")
	require.NoError(t, err)
	trades, err := store.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, trades)
}
