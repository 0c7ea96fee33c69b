package internal

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/quantarb/marketprofile/config"
	"github.com/quantarb/marketprofile/internal/domain"
	"github.com/quantarb/marketprofile/internal/services/composite"
	"github.com/quantarb/marketprofile/internal/services/feed"
	"github.com/quantarb/marketprofile/internal/services/indicators"
	"github.com/quantarb/marketprofile/internal/services/momentum"
	"github.com/quantarb/marketprofile/internal/services/profile"
	"github.com/quantarb/marketprofile/internal/services/relative"
)

// SnapshotStore persists published analysis snapshots.
type SnapshotStore interface {
	Save(snapshot domain.AnalysisSnapshot) error
}

// HistoryStore persists the composite engine's daily history.
type HistoryStore interface {
	Load() (*composite.State, error)
	Save(state composite.State) error
}

// Analyzer owns every engine for a single instrument: it consumes the
// tick feed, closes one-minute delta bars, recalculates profiles and
// publishes snapshots to the store the web layer reads.
type Analyzer struct {
	cfg     config.Config
	logger  *zap.Logger
	feed    feed.Feed
	store   SnapshotStore
	history HistoryStore

	// mu serializes the tick handler against the bar and publish timers.
	// The composite engine carries its own lock.
	mu         sync.Mutex
	sessionVP  *profile.Engine
	rollingVP  *profile.RollingEngine
	sessionCD  *momentum.CDEngine
	rollingCD  *momentum.RollingCDEngine
	comp       *composite.Engine
	sessionRel *relative.Engine
	rollingRel *relative.Engine

	sessionDelta domain.DeltaState
	rollingDelta domain.DeltaState

	curDay    time.Time
	lastPrice float64
	dayHigh   float64
	dayLow    float64
}

// NewAnalyzer creates an analyzer for one instrument.
func NewAnalyzer(cfg config.Config, f feed.Feed, store SnapshotStore, hist HistoryStore, logger *zap.Logger) *Analyzer {
	return &Analyzer{
		cfg:     cfg,
		logger:  logger.With(zap.String("symbol", cfg.Symbol)),
		feed:    f,
		store:   store,
		history: hist,

		sessionVP: profile.NewEngine(cfg.PriceInterval),
		rollingVP: profile.NewRollingEngine(cfg.RollingWindowMin, profile.FixedBucketWidth(cfg.PriceInterval)),
		sessionCD: momentum.NewCDEngine(cfg.MomentumPeriod, cfg.SmoothPeriod),
		rollingCD: momentum.NewRollingCDEngine(cfg.RollingWindowMin, cfg.MomentumPeriod, cfg.SmoothPeriod),
		comp: composite.NewEngine(composite.Config{
			SessionInterval:   cfg.PriceInterval,
			CompositeInterval: cfg.CompositeInterval,
			ValueAreaPercent:  cfg.ValueAreaPercent,
			HVNRatio:          cfg.HVNRatio,
			Smoothing:         cfg.Smoothing,
			LookbackDays:      cfg.LookbackDays,
			YearlyBars:        cfg.YearlyBars,
			ADRLookback:       cfg.ADRLookback,
		}),
		sessionRel: relative.NewEngine(cfg.WarmupSeconds),
		rollingRel: relative.NewEngine(cfg.WarmupSeconds),
	}
}

func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// Run consumes the feed and drives the bar and publish timers until ctx
// is cancelled.
func (a *Analyzer) Run(ctx context.Context) error {
	a.restoreHistory()

	feedErr := make(chan error, 1)
	go func() {
		feedErr <- a.feed.Stream(ctx, a.onTick)
	}()

	barTicker := time.NewTicker(a.cfg.BarInterval)
	defer barTicker.Stop()
	publishTicker := time.NewTicker(a.cfg.RecalcInterval)
	defer publishTicker.Stop()

	a.logger.Info("analyzer started",
		zap.String("platform", a.cfg.Platform),
		zap.Duration("bar_interval", a.cfg.BarInterval),
		zap.Duration("recalc_interval", a.cfg.RecalcInterval))

	for {
		select {
		case <-ctx.Done():
			a.saveHistory()
			a.logger.Info("analyzer stopped")
			return ctx.Err()
		case err := <-feedErr:
			a.saveHistory()
			if err != nil && !errors.Is(err, context.Canceled) {
				return errors.Wrap(err, "tick feed terminated")
			}
			return err
		case now := <-barTicker.C:
			a.closeBar(now)
		case now := <-publishTicker.C:
			a.publish(now)
		}
	}
}

// onTick feeds one trade into every engine. Runs on the feed goroutine.
func (a *Analyzer) onTick(t domain.Tick) {
	if !t.Valid() {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	day := dayOf(t.Time)
	if !day.Equal(a.curDay) {
		if !a.curDay.IsZero() {
			a.logger.Info("session rollover", zap.Time("day", day))
		}
		a.curDay = day
		a.sessionVP.Reset(a.cfg.PriceInterval)
		a.sessionCD.Reset()
		a.sessionDelta = domain.DeltaState{}
		a.dayHigh = 0
		a.dayLow = 0
	}

	a.sessionVP.AddTick(t.Price, t.Volume, t.IsBuy)
	a.sessionVP.SetClosePrice(t.Price)
	a.rollingVP.AddTick(t.Price, t.Volume, t.IsBuy, t.Time)
	a.rollingVP.SetClosePrice(t.Price)
	a.sessionCD.AddTickSplit(t.Price, t.Volume, t.IsBuy)
	a.rollingCD.AddTickSplit(t.Price, t.Volume, t.IsBuy)
	a.comp.AddTick(t)

	a.lastPrice = t.Price
	if a.dayHigh == 0 || t.Price > a.dayHigh {
		a.dayHigh = t.Price
	}
	if a.dayLow == 0 || t.Price < a.dayLow {
		a.dayLow = t.Price
	}
}

// closeBar finalizes the running delta bar on both variants and retires
// rolling data past the trailing window.
func (a *Analyzer) closeBar(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.rollingVP.ExpireOldData(now)
	a.rollingCD.ExpireOldData(now)

	sBar, sMom := a.sessionCD.CloseBar(now)
	rBar, rMom := a.rollingCD.CloseBar(now)
	a.sessionCD.StartNewBar()
	a.rollingCD.StartNewBar()

	a.sessionDelta = domain.DeltaState{Bar: sBar, Momentum: sMom}
	a.rollingDelta = domain.DeltaState{Bar: rBar, Momentum: rMom}

	a.logger.Debug("bar closed",
		zap.Int64("bar_delta", sBar.BarDelta),
		zap.Int64("session_cd", sBar.CumulativeDeltaClose),
		zap.Int64("rolling_cd", rBar.CumulativeDeltaClose))
}

// publish recalculates profiles and writes one snapshot to the store.
func (a *Analyzer) publish(now time.Time) {
	a.mu.Lock()
	sessionRes := a.sessionVP.Calculate(a.cfg.ValueAreaPercent, a.cfg.HVNRatio)
	rollingRes := a.rollingVP.Calculate(a.cfg.ValueAreaPercent, a.cfg.HVNRatio)

	sRel := a.sessionRel.Update(now,
		float64(sessionRes.HVNBuyCount), float64(sessionRes.HVNSellCount), sessionRes.ValueWidth())
	rRel := a.rollingRel.Update(now,
		float64(rollingRes.HVNBuyCount), float64(rollingRes.HVNSellCount), rollingRes.ValueWidth())

	lastPrice, dayHigh, dayLow := a.lastPrice, a.dayHigh, a.dayLow
	sessionDelta, rollingDelta := a.sessionDelta, a.rollingDelta
	a.mu.Unlock()

	metrics := a.comp.Recalculate(lastPrice, dayHigh, dayLow)

	trend, err := indicators.Compute(a.comp.DailyBars())
	if err != nil {
		trend = domain.TrendContext{}
	}

	snapshot := domain.AnalysisSnapshot{
		Symbol:          a.cfg.Symbol,
		SessionProfile:  sessionRes,
		RollingProfile:  rollingRes,
		SessionDelta:    sessionDelta,
		RollingDelta:    rollingDelta,
		Composite:       metrics,
		Trend:           trend,
		SessionRelative: relativeMetrics(sRel),
		RollingRelative: relativeMetrics(rRel),
		Time:            now,
	}

	if a.store != nil {
		if err := a.store.Save(snapshot); err != nil {
			a.logger.Error("save snapshot", zap.Error(err))
		}
	}
	a.saveHistory()
}

func relativeMetrics(r relative.Result) domain.RelativeMetrics {
	return domain.RelativeMetrics{
		RelHVNBuy:     r.RelHVNBuy,
		RelHVNSell:    r.RelHVNSell,
		RelValueWidth: r.RelValueWidth,
		CumHVNBuy:     r.CumHVNBuy,
		CumHVNSell:    r.CumHVNSell,
		CumValueWidth: r.CumValueWidth,
	}
}

func (a *Analyzer) restoreHistory() {
	if a.history == nil {
		return
	}
	state, err := a.history.Load()
	if err != nil {
		a.logger.Warn("load history", zap.Error(err))
		return
	}
	if state == nil {
		return
	}
	a.comp.ImportState(*state)
	a.logger.Info("history restored",
		zap.Int("daily_bars", len(state.DailyBars)),
		zap.Int("profiles", len(state.Profiles)))
}

func (a *Analyzer) saveHistory() {
	if a.history == nil {
		return
	}
	if err := a.history.Save(a.comp.ExportState()); err != nil {
		a.logger.Warn("save history", zap.Error(err))
	}
}
