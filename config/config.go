package config

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/marketwatch/cache"
	"github.com/rustyeddy/marketwatch/market"
	"github.com/rustyeddy/marketwatch/strategies"
)

const (
	MinRefresh = 5 * time.Second
	MaxRefresh = 300 * time.Second
)

// Config is the complete dashboard configuration.
type Config struct {
	Server          ServerConfig   `json:"server" yaml:"server"`
	RefreshInterval Duration       `json:"refresh_interval" yaml:"refresh_interval"`
	Mode            market.Mode    `json:"mode" yaml:"mode"`
	Sentiment       string         `json:"sentiment" yaml:"sentiment"`
	Scanner         ScannerConfig  `json:"scanner" yaml:"scanner"`
	Strategy        StrategyConfig `json:"strategy" yaml:"strategy"`
	Markets         MarketsConfig  `json:"markets" yaml:"markets"`
	Breadth         BreadthConfig  `json:"breadth" yaml:"breadth"`
	Feeds           FeedsConfig    `json:"feeds" yaml:"feeds"`
	Cache           CacheConfig    `json:"cache" yaml:"cache"`
	Journal         JournalConfig  `json:"journal" yaml:"journal"`
	Notify          NotifyConfig   `json:"notify" yaml:"notify"`
}

type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"`

	// Timezone of the dashboard clock.
	Timezone string `json:"timezone" yaml:"timezone"`
}

type ScannerConfig struct {
	Workers int `json:"workers" yaml:"workers"`
}

// StrategyConfig holds the detector parameters shared by both markets.
type StrategyConfig struct {
	Name            string  `json:"name" yaml:"name"`
	Window          int     `json:"window" yaml:"window"`
	Width           float64 `json:"width" yaml:"width"`
	RiskMultiple    float64 `json:"risk_multiple" yaml:"risk_multiple"`
	EquityBuffer    float64 `json:"equity_buffer" yaml:"equity_buffer"`
	CryptoBufferPct float64 `json:"crypto_buffer_pct" yaml:"crypto_buffer_pct"`
}

type MarketsConfig struct {
	Crypto MarketConfig `json:"crypto" yaml:"crypto"`
	Equity MarketConfig `json:"equity" yaml:"equity"`
}

// MarketConfig describes one universe.
type MarketConfig struct {
	Interval         market.Interval     `json:"interval" yaml:"interval"`
	Lookback         int                 `json:"lookback" yaml:"lookback"`
	IndexSymbols     []string            `json:"index_symbols" yaml:"index_symbols"`
	DefaultWatchlist string              `json:"default_watchlist" yaml:"default_watchlist"`
	Watchlists       map[string][]string `json:"watchlists" yaml:"watchlists"`
}

type BreadthConfig struct {
	TopN                     int     `json:"top_n" yaml:"top_n"`
	GapThresholdPct          float64 `json:"gap_threshold_pct" yaml:"gap_threshold_pct"`
	OpeningRangeThresholdPct float64 `json:"opening_range_threshold_pct" yaml:"opening_range_threshold_pct"`
}

type FeedsConfig struct {
	Timeout    Duration `json:"timeout" yaml:"timeout"`
	QuoteTTL   Duration `json:"quote_ttl" yaml:"quote_ttl"`
	CandleTTL  Duration `json:"candle_ttl" yaml:"candle_ttl"`
	CoinDCXURL string   `json:"coindcx_url" yaml:"coindcx_url"`
	BinanceURL string   `json:"binance_url" yaml:"binance_url"`
}

type CacheConfig struct {
	Backend   string `json:"backend" yaml:"backend"` // "memory" or "redis"
	RedisAddr string `json:"redis_addr,omitempty" yaml:"redis_addr,omitempty"`
	RedisDB   int    `json:"redis_db,omitempty" yaml:"redis_db,omitempty"`
	Prefix    string `json:"prefix,omitempty" yaml:"prefix,omitempty"`
}

type JournalConfig struct {
	PositionsFile string `json:"positions_file" yaml:"positions_file"`
	HistoryFile   string `json:"history_file" yaml:"history_file"`
}

type NotifyConfig struct {
	FCMTokens []string `json:"fcm_tokens,omitempty" yaml:"fcm_tokens,omitempty"`
}

// Secrets are read from the environment only.
type Secrets struct {
	PolygonAPIKey       string
	FirebaseCredentials string
	RedisPassword       string
}

func LoadSecrets() Secrets {
	return Secrets{
		PolygonAPIKey:       strings.TrimSpace(os.Getenv("POLYGON_API_KEY")),
		FirebaseCredentials: strings.TrimSpace(os.Getenv("FIREBASE_CREDENTIALS_PATH")),
		RedisPassword:       os.Getenv("REDIS_PASSWORD"),
	}
}

// LoadFromFile loads configuration from a file. Fields left out of the file
// take their default values.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := &Config{}

	// Try YAML first, fall back to JSON
	err = yaml.Unmarshal(data, cfg)
	if err != nil {
		cfg = &Config{}
		err = json.Unmarshal(data, cfg)
		if err != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}
	cfg.fillDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// SaveToFile writes YAML for .yaml/.yml paths and indented JSON otherwise.
func (c *Config) SaveToFile(path string) error {
	var data []byte
	var err error

	if strings.HasSuffix(path, ".yaml") || strings.HasSuffix(path, ".yml") {
		data, err = yaml.Marshal(c)
	} else {
		data, err = json.MarshalIndent(c, "", "  ")
	}

	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}

	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server.addr is required")
	}
	if _, err := time.LoadLocation(c.Server.Timezone); err != nil {
		return fmt.Errorf("server.timezone: %w", err)
	}
	if d := c.RefreshInterval.D(); d < MinRefresh || d > MaxRefresh {
		return fmt.Errorf("refresh_interval must be between %s and %s", MinRefresh, MaxRefresh)
	}
	if _, err := market.ParseMode(string(c.Mode)); err != nil {
		return fmt.Errorf("mode: %w", err)
	}
	if _, err := strategies.ParseSentiment(c.Sentiment); err != nil {
		return fmt.Errorf("sentiment: %w", err)
	}
	if c.Scanner.Workers < 1 || c.Scanner.Workers > 256 {
		return fmt.Errorf("scanner.workers must be between 1 and 256")
	}
	if c.Strategy.Window < 2 {
		return fmt.Errorf("strategy.window must be at least 2")
	}
	if c.Strategy.Width <= 0 {
		return fmt.Errorf("strategy.width must be positive")
	}
	if c.Strategy.RiskMultiple <= 0 {
		return fmt.Errorf("strategy.risk_multiple must be positive")
	}
	if c.Strategy.EquityBuffer < 0 {
		return fmt.Errorf("strategy.equity_buffer must not be negative")
	}
	if c.Strategy.CryptoBufferPct < 0 || c.Strategy.CryptoBufferPct >= 1 {
		return fmt.Errorf("strategy.crypto_buffer_pct must be between 0 and 1")
	}
	if _, err := strategies.ByName(c.Strategy.Name, strategies.Params{}); err != nil {
		return fmt.Errorf("strategy.name: %w", err)
	}
	for _, mode := range []market.Mode{market.Crypto, market.Equity} {
		if err := c.Market(mode).validate(c.Strategy.Window, "markets."+string(mode)); err != nil {
			return err
		}
	}
	if c.Breadth.TopN < 1 {
		return fmt.Errorf("breadth.top_n must be positive")
	}
	if c.Breadth.GapThresholdPct < 0 || c.Breadth.OpeningRangeThresholdPct < 0 {
		return fmt.Errorf("breadth thresholds must not be negative")
	}
	if c.Feeds.Timeout.D() <= 0 {
		return fmt.Errorf("feeds.timeout must be positive")
	}
	if c.Feeds.QuoteTTL.D() < 0 || c.Feeds.CandleTTL.D() < 0 {
		return fmt.Errorf("feeds ttl values must not be negative")
	}
	switch c.Cache.Backend {
	case "memory":
	case "redis":
		if c.Cache.RedisAddr == "" {
			return fmt.Errorf("cache.redis_addr required for redis backend")
		}
	default:
		return fmt.Errorf("cache.backend must be 'memory' or 'redis'")
	}
	if c.Journal.PositionsFile == "" || c.Journal.HistoryFile == "" {
		return fmt.Errorf("journal positions_file and history_file are required")
	}
	if c.Journal.PositionsFile == c.Journal.HistoryFile {
		return fmt.Errorf("journal positions_file and history_file must differ")
	}
	return nil
}

func (m MarketConfig) validate(window int, prefix string) error {
	if err := m.Interval.Validate(); err != nil {
		return fmt.Errorf("%s.interval: %w", prefix, err)
	}
	if m.Lookback < window+3 {
		return fmt.Errorf("%s.lookback must be at least strategy.window+3 (%d)", prefix, window+3)
	}
	if len(m.Watchlists) == 0 {
		return fmt.Errorf("%s.watchlists must not be empty", prefix)
	}
	for name, syms := range m.Watchlists {
		if len(market.Symbols(syms)) == 0 {
			return fmt.Errorf("%s.watchlists.%s has no symbols", prefix, name)
		}
	}
	if _, ok := m.Watchlists[m.DefaultWatchlist]; !ok {
		return fmt.Errorf("%s.default_watchlist %q is not a watchlist", prefix, m.DefaultWatchlist)
	}
	return nil
}

// Market returns the universe settings of a mode.
func (c *Config) Market(mode market.Mode) MarketConfig {
	if mode == market.Equity {
		return c.Markets.Equity
	}
	return c.Markets.Crypto
}

// Watchlist returns the symbols of a named watchlist. An empty name selects
// the mode's default.
func (c *Config) Watchlist(mode market.Mode, name string) ([]market.Symbol, error) {
	m := c.Market(mode)
	if name == "" {
		name = m.DefaultWatchlist
	}
	syms, ok := m.Watchlists[name]
	if !ok {
		return nil, fmt.Errorf("unknown %s watchlist %q", mode, name)
	}
	return market.Symbols(syms), nil
}

// WatchlistNames lists a mode's watchlists alphabetically.
func (c *Config) WatchlistNames(mode market.Mode) []string {
	m := c.Market(mode)
	names := make([]string, 0, len(m.Watchlists))
	for n := range m.Watchlists {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Location returns the dashboard clock's time zone, UTC if it cannot be
// loaded.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Server.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// CacheOptions converts the cache section for cache.New.
func (c *Config) CacheOptions(s Secrets) cache.Options {
	return cache.Options{
		Backend:   c.Cache.Backend,
		RedisAddr: c.Cache.RedisAddr,
		RedisDB:   c.Cache.RedisDB,
		Password:  s.RedisPassword,
		Prefix:    c.Cache.Prefix,
	}
}

// BufferFor returns the entry buffer policy of a mode.
func (c *Config) BufferFor(mode market.Mode) strategies.BufferPolicy {
	if mode == market.Crypto {
		return strategies.PercentBuffer(c.Strategy.CryptoBufferPct)
	}
	return strategies.FixedBuffer(c.Strategy.EquityBuffer)
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Server:          ServerConfig{Addr: ":8080", Timezone: "Asia/Kolkata"},
		RefreshInterval: Duration(60 * time.Second),
		Mode:            market.Crypto,
		Sentiment:       string(strategies.Both),
		Scanner:         ScannerConfig{Workers: 16},
		Strategy: StrategyConfig{
			Name:            "band-reversal",
			Window:          20,
			Width:           2.0,
			RiskMultiple:    3.0,
			EquityBuffer:    0.10,
			CryptoBufferPct: 0.001,
		},
		Markets: MarketsConfig{
			Crypto: MarketConfig{
				Interval:         market.M5,
				Lookback:         100,
				IndexSymbols:     []string{"BTCUSDT", "ETHUSDT", "SOLUSDT"},
				DefaultWatchlist: "majors",
				Watchlists: map[string][]string{
					"majors": {"BTCUSDT", "ETHUSDT", "SOLUSDT", "BNBUSDT", "XRPUSDT", "DOGEUSDT", "ADAUSDT", "AVAXUSDT", "LINKUSDT", "DOTUSDT"},
					"memes":  {"DOGEUSDT", "PEPEUSDT", "SHIBUSDT", "FLOKIUSDT", "BONKUSDT", "WIFUSDT"},
				},
			},
			Equity: MarketConfig{
				Interval:         market.M15,
				Lookback:         100,
				IndexSymbols:     []string{"SPY", "QQQ", "DIA"},
				DefaultWatchlist: "megacaps",
				Watchlists: map[string][]string{
					"megacaps": {"AAPL", "MSFT", "NVDA", "AMZN", "GOOGL", "META", "TSLA", "AVGO", "BRK.B", "JPM"},
					"etfs":     {"SPY", "QQQ", "DIA", "IWM", "XLF", "XLE", "XLK", "SMH"},
				},
			},
		},
		Breadth: BreadthConfig{
			TopN:                     5,
			GapThresholdPct:          1.0,
			OpeningRangeThresholdPct: 1.5,
		},
		Feeds: FeedsConfig{
			Timeout:    Duration(5 * time.Second),
			QuoteTTL:   Duration(5 * time.Second),
			CandleTTL:  Duration(30 * time.Second),
			CoinDCXURL: "https://public.coindcx.com",
			BinanceURL: "https://api.binance.com",
		},
		Cache: CacheConfig{
			Backend:   "memory",
			RedisAddr: "localhost:6379",
			Prefix:    cache.DefaultPrefix,
		},
		Journal: JournalConfig{
			PositionsFile: "./data/positions.csv",
			HistoryFile:   "./data/history.csv",
		},
	}
}

// fillDefaults sets every zero field to its default.
func (c *Config) fillDefaults() {
	d := Default()

	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.Timezone == "" {
		c.Server.Timezone = d.Server.Timezone
	}
	if c.RefreshInterval == 0 {
		c.RefreshInterval = d.RefreshInterval
	}
	if c.Mode == "" {
		c.Mode = d.Mode
	}
	if mode, err := market.ParseMode(string(c.Mode)); err == nil {
		c.Mode = mode
	}
	if c.Sentiment == "" {
		c.Sentiment = d.Sentiment
	}
	if c.Scanner.Workers == 0 {
		c.Scanner.Workers = d.Scanner.Workers
	}

	s, ds := &c.Strategy, d.Strategy
	if s.Name == "" {
		s.Name = ds.Name
	}
	if s.Window == 0 {
		s.Window = ds.Window
	}
	if s.Width == 0 {
		s.Width = ds.Width
	}
	if s.RiskMultiple == 0 {
		s.RiskMultiple = ds.RiskMultiple
	}
	if s.EquityBuffer == 0 {
		s.EquityBuffer = ds.EquityBuffer
	}
	if s.CryptoBufferPct == 0 {
		s.CryptoBufferPct = ds.CryptoBufferPct
	}

	fillMarket(&c.Markets.Crypto, d.Markets.Crypto)
	fillMarket(&c.Markets.Equity, d.Markets.Equity)

	if c.Breadth.TopN == 0 {
		c.Breadth.TopN = d.Breadth.TopN
	}
	if c.Breadth.GapThresholdPct == 0 {
		c.Breadth.GapThresholdPct = d.Breadth.GapThresholdPct
	}
	if c.Breadth.OpeningRangeThresholdPct == 0 {
		c.Breadth.OpeningRangeThresholdPct = d.Breadth.OpeningRangeThresholdPct
	}

	f, df := &c.Feeds, d.Feeds
	if f.Timeout == 0 {
		f.Timeout = df.Timeout
	}
	if f.QuoteTTL == 0 {
		f.QuoteTTL = df.QuoteTTL
	}
	if f.CandleTTL == 0 {
		f.CandleTTL = df.CandleTTL
	}
	if f.CoinDCXURL == "" {
		f.CoinDCXURL = df.CoinDCXURL
	}
	if f.BinanceURL == "" {
		f.BinanceURL = df.BinanceURL
	}

	if c.Cache.Backend == "" {
		c.Cache.Backend = d.Cache.Backend
	}
	c.Cache.Backend = strings.ToLower(c.Cache.Backend)
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = d.Cache.Prefix
	}
	if c.Journal.PositionsFile == "" {
		c.Journal.PositionsFile = d.Journal.PositionsFile
	}
	if c.Journal.HistoryFile == "" {
		c.Journal.HistoryFile = d.Journal.HistoryFile
	}
}

func fillMarket(m *MarketConfig, d MarketConfig) {
	if m.Interval == "" {
		m.Interval = d.Interval
	}
	if m.Lookback == 0 {
		m.Lookback = d.Lookback
	}
	if len(m.IndexSymbols) == 0 {
		m.IndexSymbols = d.IndexSymbols
	}
	if len(m.Watchlists) == 0 {
		m.Watchlists = d.Watchlists
		if m.DefaultWatchlist == "" {
			m.DefaultWatchlist = d.DefaultWatchlist
		}
	}
	if m.DefaultWatchlist == "" {
		names := make([]string, 0, len(m.Watchlists))
		for n := range m.Watchlists {
			names = append(names, n)
		}
		sort.Strings(names)
		m.DefaultWatchlist = names[0]
	}
}
