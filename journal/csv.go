package journal

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rustyeddy/marketwatch/internal/id"
	"github.com/rustyeddy/marketwatch/market"
)

var (
	PositionsHeader = []string{"id", "date", "symbol", "direction", "entry", "stop", "target", "status"}
	HistoryHeader   = []string{"id", "date", "symbol", "direction", "entry", "exit", "status", "pnl_pct"}
)

// CSVStore keeps positions and history in two CSV files. Every save
// rewrites the whole file through a temp file and a rename.
type CSVStore struct {
	PositionsPath string
	HistoryPath   string
	Log           *slog.Logger
}

func NewCSVStore(positionsPath, historyPath string) *CSVStore {
	return &CSVStore{
		PositionsPath: positionsPath,
		HistoryPath:   historyPath,
		Log:           slog.Default(),
	}
}

func (s *CSVStore) LoadPositions() ([]Position, error) {
	rows, err := readTable(s.PositionsPath)
	if err != nil {
		return nil, fmt.Errorf("journal: load positions: %w", err)
	}

	out := make([]Position, 0, len(rows))
	for i, r := range rows {
		p, err := parsePosition(r)
		if err != nil {
			s.logger().Warn("skipping malformed position row", "file", s.PositionsPath, "row", i+2, "error", err)
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *CSVStore) SavePositions(positions []Position) error {
	rows := make([][]string, len(positions))
	for i, p := range positions {
		rows[i] = []string{
			p.ID,
			p.Date.Format(time.RFC3339),
			string(p.Symbol),
			string(p.Direction),
			f(p.Entry),
			f(p.Stop),
			f(p.Target),
			string(p.Status),
		}
	}
	if err := writeTable(s.PositionsPath, PositionsHeader, rows); err != nil {
		return fmt.Errorf("journal: save positions: %w", err)
	}
	return nil
}

func (s *CSVStore) LoadHistory() ([]ClosedTrade, error) {
	rows, err := readTable(s.HistoryPath)
	if err != nil {
		return nil, fmt.Errorf("journal: load history: %w", err)
	}

	out := make([]ClosedTrade, 0, len(rows))
	for i, r := range rows {
		t, err := parseTrade(r)
		if err != nil {
			s.logger().Warn("skipping malformed history row", "file", s.HistoryPath, "row", i+2, "error", err)
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (s *CSVStore) SaveHistory(trades []ClosedTrade) error {
	rows := make([][]string, len(trades))
	for i, t := range trades {
		rows[i] = []string{
			t.ID,
			t.Date.Format(time.RFC3339),
			string(t.Symbol),
			string(t.Direction),
			f(t.Entry),
			f(t.Exit),
			string(t.Status),
			f(t.PnLPct),
		}
	}
	if err := writeTable(s.HistoryPath, HistoryHeader, rows); err != nil {
		return fmt.Errorf("journal: save history: %w", err)
	}
	return nil
}

// Clear truncates both files to their headers. Both temp files are written
// before either rename, and the old positions file is put back if the
// history rename fails, so the files are emptied together or not at all.
func (s *CSVStore) Clear() error {
	posTmp, err := writeTemp(s.PositionsPath, PositionsHeader, nil)
	if err != nil {
		return fmt.Errorf("journal: clear positions: %w", err)
	}
	histTmp, err := writeTemp(s.HistoryPath, HistoryHeader, nil)
	if err != nil {
		os.Remove(posTmp)
		return fmt.Errorf("journal: clear history: %w", err)
	}

	prev, prevErr := os.ReadFile(s.PositionsPath)
	if prevErr != nil && !errors.Is(prevErr, fs.ErrNotExist) {
		os.Remove(posTmp)
		os.Remove(histTmp)
		return fmt.Errorf("journal: clear positions: %w", prevErr)
	}

	if err := os.Rename(posTmp, s.PositionsPath); err != nil {
		os.Remove(posTmp)
		os.Remove(histTmp)
		return fmt.Errorf("journal: clear positions: %w", err)
	}
	if err := os.Rename(histTmp, s.HistoryPath); err != nil {
		os.Remove(histTmp)
		err = fmt.Errorf("journal: clear history: %w", err)
		if rerr := restore(s.PositionsPath, prev, prevErr == nil); rerr != nil {
			return errors.Join(err, fmt.Errorf("journal: restore positions: %w", rerr))
		}
		return err
	}
	return nil
}

// restore puts data back at path, or removes path when existed is false.
func restore(path string, data []byte, existed bool) error {
	if !existed {
		return os.Remove(path)
	}
	fh, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return err
	}
	name := fh.Name()
	if _, err := fh.Write(data); err != nil {
		fh.Close()
		os.Remove(name)
		return err
	}
	if err := fh.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

func (s *CSVStore) logger() *slog.Logger {
	if s.Log == nil {
		return slog.Default()
	}
	return s.Log
}

// row is a record addressed by column name.
type row map[string]string

func (r row) get(col string) string { return strings.TrimSpace(r[col]) }

// readTable reads a CSV file keyed by its header. A missing or empty file
// is an empty table.
func readTable(path string) ([]row, error) {
	fh, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer fh.Close()

	r := csv.NewReader(fh)
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	for i := range header {
		header[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(header[i], "\ufeff")))
	}

	var rows []row
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, err
		}
		m := make(row, len(header))
		for i, col := range header {
			if i < len(rec) {
				m[col] = rec[i]
			}
		}
		rows = append(rows, m)
	}
	return rows, nil
}

func writeTable(path string, header []string, rows [][]string) error {
	tmp, err := writeTemp(path, header, rows)
	if err != nil {
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}

// writeTemp writes a complete table next to path and returns the temp name.
func writeTemp(path string, header []string, rows [][]string) (string, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	fh, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp-*")
	if err != nil {
		return "", err
	}
	name := fh.Name()

	w := csv.NewWriter(fh)
	if err := w.Write(header); err != nil {
		fh.Close()
		os.Remove(name)
		return "", err
	}
	if err := w.WriteAll(rows); err != nil {
		fh.Close()
		os.Remove(name)
		return "", err
	}
	if err := fh.Sync(); err != nil {
		fh.Close()
		os.Remove(name)
		return "", err
	}
	if err := fh.Close(); err != nil {
		os.Remove(name)
		return "", err
	}
	return name, nil
}

func parsePosition(r row) (Position, error) {
	sym, dir, date, err := parseCommon(r)
	if err != nil {
		return Position{}, err
	}

	var p Position
	p.Symbol, p.Direction, p.Date = sym, dir, date
	if p.Entry, err = parseNum(r, "entry"); err != nil {
		return Position{}, err
	}
	if p.Stop, err = parseNum(r, "stop"); err != nil {
		return Position{}, err
	}
	if p.Target, err = parseNum(r, "target"); err != nil {
		return Position{}, err
	}

	p.Status = Running
	if s := r.get("status"); s != "" {
		if p.Status, err = ParseStatus(s); err != nil {
			return Position{}, err
		}
	}
	p.ID = rowID(r, date)
	return p, nil
}

func parseTrade(r row) (ClosedTrade, error) {
	sym, dir, date, err := parseCommon(r)
	if err != nil {
		return ClosedTrade{}, err
	}

	var t ClosedTrade
	t.Symbol, t.Direction, t.Date = sym, dir, date
	if t.Entry, err = parseNum(r, "entry"); err != nil {
		return ClosedTrade{}, err
	}
	if t.Exit, err = parseNum(r, "exit"); err != nil {
		return ClosedTrade{}, err
	}
	if t.PnLPct, err = parseNum(r, "pnl_pct"); err != nil {
		return ClosedTrade{}, err
	}
	if t.Status, err = ParseStatus(r.get("status")); err != nil {
		return ClosedTrade{}, err
	}
	t.ID = rowID(r, date)
	return t, nil
}

func parseCommon(r row) (market.Symbol, market.Direction, time.Time, error) {
	sym := market.Normalize(r.get("symbol"))
	if sym == "" {
		return "", "", time.Time{}, errors.New("missing symbol")
	}
	dir, err := market.ParseDirection(r.get("direction"))
	if err != nil {
		return "", "", time.Time{}, err
	}
	date, err := parseDate(r.get("date"))
	if err != nil {
		return "", "", time.Time{}, err
	}
	return sym, dir, date, nil
}

var dateLayouts = []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02 15:04", "2006-01-02"}

func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("bad date %q", s)
}

func parseNum(r row, col string) (float64, error) {
	v, err := strconv.ParseFloat(r.get(col), 64)
	if err != nil {
		return 0, fmt.Errorf("bad %s %q", col, r.get(col))
	}
	return v, nil
}

func rowID(r row, date time.Time) string {
	if s := r.get("id"); s != "" {
		return s
	}
	if date.IsZero() {
		return id.New()
	}
	return id.At(date)
}

func f(x float64) string {
	return strconv.FormatFloat(x, 'f', -1, 64)
}
