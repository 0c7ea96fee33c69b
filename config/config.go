package config

import (
	"flag"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Defaults applied when a parameter is omitted.
const (
	DefaultPriceInterval     = 1.0
	DefaultCompositeInterval = 5.0
	DefaultValueAreaPercent  = 0.70
	DefaultHVNRatio          = 0.25
	DefaultRollingWindowMin  = 60
	DefaultMomentumPeriod    = 14
	DefaultSmoothPeriod      = 7
	DefaultSmoothing         = 1
	DefaultLookbackDays      = 10
	DefaultYearlyBars        = 252
	DefaultADRLookback       = 20
	DefaultWarmupSeconds     = 15
	DefaultQtyShift          = 0
	DefaultBarInterval       = time.Minute
	DefaultRecalcInterval    = 30 * time.Second
	DefaultListenAddr        = ":8080"
)

// Config parameters for one analyzed instrument.
type Config struct {
	Platform string
	Symbol   string
	// Category Bybit product category, linear when empty.
	Category string
	// QtyShift decimal shift applied to fractional trade sizes to obtain
	// integer lots, e.g. 3 turns 0.015 into 15.
	QtyShift int

	PriceInterval     float64
	CompositeInterval float64
	ValueAreaPercent  float64
	HVNRatio          float64
	RollingWindowMin  int
	MomentumPeriod    int
	SmoothPeriod      int
	Smoothing         int
	LookbackDays      int
	YearlyBars        int
	ADRLookback       int
	WarmupSeconds     int

	BarInterval    time.Duration
	RecalcInterval time.Duration

	ListenAddr  string
	SnapshotDir string
	HistoryDir  string

	// Simulated feed parameters, used when Platform is "simulate".
	SimBasePrice    float64
	SimStep         float64
	SimTickInterval time.Duration
}

// ConfigTmp is the yaml representation of Config.
type ConfigTmp struct {
	Platform string `yaml:"platform"`
	Symbol   string `yaml:"symbol"`
	Category string `yaml:"category,omitempty"`
	QtyShift int    `yaml:"qty_shift,omitempty"`

	PriceInterval     float64 `yaml:"price_interval,omitempty"`
	CompositeInterval float64 `yaml:"composite_interval,omitempty"`
	ValueAreaPercent  float64 `yaml:"value_area_percent,omitempty"`
	HVNRatio          float64 `yaml:"hvn_ratio,omitempty"`
	RollingWindowMin  int     `yaml:"rolling_window_minutes,omitempty"`
	MomentumPeriod    int     `yaml:"momentum_period,omitempty"`
	SmoothPeriod      int     `yaml:"smooth_period,omitempty"`
	Smoothing         int     `yaml:"smoothing,omitempty"`
	LookbackDays      int     `yaml:"lookback_days,omitempty"`
	YearlyBars        int     `yaml:"yearly_bars,omitempty"`
	ADRLookback       int     `yaml:"adr_lookback,omitempty"`
	WarmupSeconds     int     `yaml:"warmup_seconds,omitempty"`

	BarInterval    time.Duration `yaml:"bar_interval,omitempty"`
	RecalcInterval time.Duration `yaml:"recalc_interval,omitempty"`

	ListenAddr  string `yaml:"listen_addr,omitempty"`
	SnapshotDir string `yaml:"snapshot_dir,omitempty"`
	HistoryDir  string `yaml:"history_dir,omitempty"`

	SimBasePrice    float64       `yaml:"sim_base_price,omitempty"`
	SimStep         float64       `yaml:"sim_step,omitempty"`
	SimTickInterval time.Duration `yaml:"sim_tick_interval,omitempty"`
}

// Get loads configuration from the yaml file given by --config, or from
// CLI flags when no file is provided.
func Get() ([]Config, error) {
	configPath := flag.String("config", "", "path to yaml config")
	platform := flag.String("platform", "simulate", "data platform: binance, bybit or simulate")
	symbol := flag.String("symbol", "BTCUSDT", "instrument symbol, example: BTCUSDT")
	listenAddr := flag.String("listen", DefaultListenAddr, "web dashboard listen address")
	qtyShift := flag.Int("qtyshift", DefaultQtyShift, "decimal shift turning fractional trade sizes into lots")
	flag.Parse()

	if *configPath != "" {
		return getYaml(*configPath)
	}

	cfg, err := normalize(ConfigTmp{
		Platform:   *platform,
		Symbol:     *symbol,
		ListenAddr: *listenAddr,
		QtyShift:   *qtyShift,
	})
	if err != nil {
		return nil, err
	}
	return []Config{cfg}, nil
}

func getYaml(path string) ([]Config, error) {
	f, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var configsTmp []ConfigTmp
	if err := yaml.Unmarshal(f, &configsTmp); err != nil {
		return nil, err
	}
	if len(configsTmp) == 0 {
		return nil, fmt.Errorf("yaml config %s holds no instruments", path)
	}

	configs := make([]Config, 0, len(configsTmp))
	for _, c := range configsTmp {
		cfg, err := normalize(c)
		if err != nil {
			return nil, err
		}
		configs = append(configs, cfg)
	}
	return configs, nil
}

// normalize fills defaults and validates one instrument's parameters.
func normalize(c ConfigTmp) (Config, error) {
	if c.Symbol == "" {
		return Config{}, fmt.Errorf("'symbol' param is required")
	}
	switch c.Platform {
	case "binance", "bybit", "simulate":
	case "":
		c.Platform = "simulate"
	default:
		return Config{}, fmt.Errorf("unsupported 'platform' param: %s", c.Platform)
	}

	cfg := Config{
		Platform:          c.Platform,
		Symbol:            c.Symbol,
		Category:          c.Category,
		QtyShift:          c.QtyShift,
		PriceInterval:     c.PriceInterval,
		CompositeInterval: c.CompositeInterval,
		ValueAreaPercent:  c.ValueAreaPercent,
		HVNRatio:          c.HVNRatio,
		RollingWindowMin:  c.RollingWindowMin,
		MomentumPeriod:    c.MomentumPeriod,
		SmoothPeriod:      c.SmoothPeriod,
		Smoothing:         c.Smoothing,
		LookbackDays:      c.LookbackDays,
		YearlyBars:        c.YearlyBars,
		ADRLookback:       c.ADRLookback,
		WarmupSeconds:     c.WarmupSeconds,
		BarInterval:       c.BarInterval,
		RecalcInterval:    c.RecalcInterval,
		ListenAddr:        c.ListenAddr,
		SnapshotDir:       c.SnapshotDir,
		HistoryDir:        c.HistoryDir,
		SimBasePrice:      c.SimBasePrice,
		SimStep:           c.SimStep,
		SimTickInterval:   c.SimTickInterval,
	}

	if cfg.PriceInterval <= 0 {
		cfg.PriceInterval = DefaultPriceInterval
	}
	if cfg.CompositeInterval <= 0 {
		cfg.CompositeInterval = DefaultCompositeInterval
	}
	if cfg.ValueAreaPercent <= 0 || cfg.ValueAreaPercent > 1 {
		cfg.ValueAreaPercent = DefaultValueAreaPercent
	}
	if cfg.HVNRatio <= 0 || cfg.HVNRatio > 1 {
		cfg.HVNRatio = DefaultHVNRatio
	}
	if cfg.RollingWindowMin <= 0 {
		cfg.RollingWindowMin = DefaultRollingWindowMin
	}
	if cfg.MomentumPeriod <= 0 {
		cfg.MomentumPeriod = DefaultMomentumPeriod
	}
	if cfg.SmoothPeriod <= 0 {
		cfg.SmoothPeriod = DefaultSmoothPeriod
	}
	if cfg.Smoothing < 0 {
		cfg.Smoothing = DefaultSmoothing
	}
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = DefaultLookbackDays
	}
	if cfg.YearlyBars <= 0 {
		cfg.YearlyBars = DefaultYearlyBars
	}
	if cfg.ADRLookback <= 0 {
		cfg.ADRLookback = DefaultADRLookback
	}
	if cfg.WarmupSeconds <= 0 {
		cfg.WarmupSeconds = DefaultWarmupSeconds
	}
	if cfg.BarInterval <= 0 {
		cfg.BarInterval = DefaultBarInterval
	}
	if cfg.RecalcInterval <= 0 {
		cfg.RecalcInterval = DefaultRecalcInterval
	}
	if cfg.ListenAddr == "" {
		cfg.ListenAddr = DefaultListenAddr
	}
	if cfg.SimBasePrice <= 0 {
		cfg.SimBasePrice = 25000
	}
	if cfg.SimStep <= 0 {
		cfg.SimStep = cfg.PriceInterval
	}
	if cfg.SimTickInterval <= 0 {
		cfg.SimTickInterval = 200 * time.Millisecond
	}

	return cfg, nil
}
