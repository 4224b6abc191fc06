package journal

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/marketwatch/internal/id"
	"github.com/rustyeddy/marketwatch/market"
)

func newStore(t *testing.T) *CSVStore {
	t.Helper()
	dir := t.TempDir()
	return NewCSVStore(filepath.Join(dir, "positions.csv"), filepath.Join(dir, "history.csv"))
}

func readHeader(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	h, err := csv.NewReader(strings.NewReader(string(data))).Read()
	require.NoError(t, err)
	return h
}

func TestCSVStore_MissingFilesAreEmpty(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	p, err := s.LoadPositions()
	require.NoError(t, err)
	assert.Empty(t, p)

	h, err := s.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, h)
}

func TestCSVStore_RoundTrip(t *testing.T) {
	t.Parallel()
	s := newStore(t)
	date := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)

	positions := []Position{
		{ID: id.New(), Date: date, Symbol: "BTCUSDT", Direction: market.Long, Entry: 64000.5, Stop: 63000, Target: 66000.25, Status: Running},
		{ID: id.New(), Date: date, Symbol: "INFY", Direction: market.Short, Entry: 10.4, Stop: 11.6, Target: 9, Status: Running},
	}
	require.NoError(t, s.SavePositions(positions))

	history := []ClosedTrade{
		{ID: id.New(), Date: date, Symbol: "TCS", Direction: market.Long, Entry: 100, Exit: 95, Status: StopHit, PnLPct: -5},
		{ID: id.New(), Date: date, Symbol: "ETHUSDT", Direction: market.Short, Entry: 3000, Exit: 2900, Status: TargetHit, PnLPct: 3.3333},
	}
	require.NoError(t, s.SaveHistory(history))

	assert.Equal(t, PositionsHeader, readHeader(t, s.PositionsPath))
	assert.Equal(t, HistoryHeader, readHeader(t, s.HistoryPath))

	gotP, err := s.LoadPositions()
	require.NoError(t, err)
	require.Len(t, gotP, 2)
	for i := range positions {
		assert.True(t, positions[i].Date.Equal(gotP[i].Date))
		gotP[i].Date = positions[i].Date
	}
	assert.Equal(t, positions, gotP)

	gotH, err := s.LoadHistory()
	require.NoError(t, err)
	require.Len(t, gotH, 2)
	for i := range history {
		gotH[i].Date = history[i].Date
	}
	assert.Equal(t, history, gotH)
}

func TestCSVStore_LoadsByHeaderName(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	content := "status,pnl_pct,symbol,exit,entry,direction,date,notes\n" +
		"TARGET_HIT,2.5,sbin,102.5,100,LONG,2024-01-02 09:30:00,good one\n" +
		"STOP_HIT,oops,TCS,95,100,LONG,2024-01-02,\n" +
		"MANUAL_ENTRY,-1,RELIANCE,99,100,BUY,2024-01-03,\n"
	require.NoError(t, os.WriteFile(s.HistoryPath, []byte(content), 0o644))

	h, err := s.LoadHistory()
	require.NoError(t, err)
	require.Len(t, h, 2)

	assert.Equal(t, market.Symbol("SBIN"), h[0].Symbol)
	assert.Equal(t, TargetHit, h[0].Status)
	assert.Equal(t, 102.5, h[0].Exit)
	assert.Equal(t, 2.5, h[0].PnLPct)
	assert.True(t, id.Valid(h[0].ID))

	assert.Equal(t, market.Long, h[1].Direction)
	assert.Equal(t, ManualEntry, h[1].Status)
	assert.NotEqual(t, h[0].ID, h[1].ID)
}

func TestCSVStore_Clear(t *testing.T) {
	t.Parallel()
	s := newStore(t)

	require.NoError(t, s.SavePositions([]Position{{ID: "p1", Symbol: "A", Direction: market.Long, Entry: 1, Stop: 0.5, Target: 2, Status: Running}}))
	require.NoError(t, s.SaveHistory([]ClosedTrade{{ID: "t1", Symbol: "B", Direction: market.Short, Entry: 2, Exit: 1, Status: TargetHit, PnLPct: 50}}))

	require.NoError(t, s.Clear())

	p, err := s.LoadPositions()
	require.NoError(t, err)
	assert.Empty(t, p)
	h, err := s.LoadHistory()
	require.NoError(t, err)
	assert.Empty(t, h)

	assert.Equal(t, PositionsHeader, readHeader(t, s.PositionsPath))
	assert.Equal(t, HistoryHeader, readHeader(t, s.HistoryPath))

	entries, err := os.ReadDir(filepath.Dir(s.PositionsPath))
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files left behind")
}

func TestCSVStore_ClearKeepsPositionsWhenHistoryFails(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	// A non-empty directory where the history file belongs makes its
	// rename fail after the positions rename succeeded.
	histDir := filepath.Join(dir, "history.csv")
	require.NoError(t, os.MkdirAll(filepath.Join(histDir, "keep"), 0o755))

	s := NewCSVStore(filepath.Join(dir, "positions.csv"), histDir)
	require.NoError(t, s.SavePositions([]Position{{ID: "p1", Symbol: "A", Direction: market.Long, Entry: 1, Stop: 0.5, Target: 2, Status: Running}}))

	err := s.Clear()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal: clear history")

	p, err := s.LoadPositions()
	require.NoError(t, err)
	require.Len(t, p, 1)
	assert.Equal(t, "p1", p[0].ID)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 2, "temp files left behind")
}

func TestCSVStore_SaveFailureIsWrapped(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, nil, 0o644))

	s := NewCSVStore(filepath.Join(blocker, "positions.csv"), filepath.Join(blocker, "history.csv"))
	err := s.SaveHistory([]ClosedTrade{{ID: "x"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "journal: save history")
}

func TestMemoryStore(t *testing.T) {
	m := NewMemoryStore()
	require.NoError(t, m.SavePositions([]Position{{ID: "a"}}))
	p, _ := m.LoadPositions()
	require.Len(t, p, 1)

	p[0].ID = "changed"
	again, _ := m.LoadPositions()
	assert.Equal(t, "a", again[0].ID)

	require.NoError(t, m.Clear())
	p, _ = m.LoadPositions()
	assert.Empty(t, p)
}
