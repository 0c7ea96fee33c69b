// Package composite aggregates finalized daily session profiles and daily
// OHLC bars into multi-day composite profiles and derived range metrics
// (ADR, rolling ranges, prior-EOD ranges, yearly extremes).
package composite

import (
	"sync"
	"time"

	"github.com/quantarb/marketprofile/internal/domain"
	"github.com/quantarb/marketprofile/internal/services/profile"
)

const (
	// maxDailyBars bounds the date-sorted daily bar list.
	maxDailyBars = 262
	// fallbackProfileCap bounds the ring of finalized session profiles
	// when no lookback is configured.
	fallbackProfileCap = 15
)

// Config parameters of the composite engine.
type Config struct {
	// SessionInterval bucket width of the per-session profile.
	SessionInterval float64
	// CompositeInterval coarser bucket width used for composite merging.
	CompositeInterval float64
	// ValueAreaPercent target share of volume inside the value area.
	ValueAreaPercent float64
	// HVNRatio volume ratio against the POC that qualifies an HVN.
	HVNRatio float64
	// Smoothing triangular kernel radius applied before composite POC.
	Smoothing int
	// LookbackDays widest composite window; finalized profile retention
	// is derived from it.
	LookbackDays int
	// YearlyBars trailing daily bars scanned for yearly extremes.
	YearlyBars int
	// ADRLookback number of historical ranges averaged into the ADR.
	ADRLookback int
}

// DefaultConfig returns the production parameter set.
func DefaultConfig() Config {
	return Config{
		SessionInterval:   1.0,
		CompositeInterval: 5.0,
		ValueAreaPercent:  0.70,
		HVNRatio:          0.25,
		Smoothing:         1,
		LookbackDays:      10,
		YearlyBars:        252,
		ADRLookback:       20,
	}
}

// sessionState mutable state of the in-progress trading session.
type sessionState struct {
	date   time.Time
	vp     *profile.Engine
	ladder *domain.PriceLadder // composite-interval buckets
	open   float64
	high   float64
	low    float64
	close  float64
	volume int64
	active bool
}

// Engine top-level composite profile aggregator. All public operations
// are serialized behind a mutex: the tick producer and the periodic
// metrics reader may run on different goroutines.
type Engine struct {
	mu        sync.Mutex
	cfg       Config
	dailyBars []domain.DailyBar             // ascending by date, deduplicated
	profiles  []domain.DailySessionProfile // oldest first
	session   sessionState
}

// NewEngine creates a composite engine with the given configuration.
func NewEngine(cfg Config) *Engine {
	return &Engine{
		cfg: cfg,
		session: sessionState{
			vp:     profile.NewEngine(cfg.SessionInterval),
			ladder: domain.NewPriceLadder(),
		},
	}
}

// profileCap returns how many finalized profiles the engine retains:
// the widest merge window plus one slot for a same-day profile the live
// session supersedes.
func (e *Engine) profileCap() int {
	if e.cfg.LookbackDays <= 0 {
		return fallbackProfileCap
	}
	return e.cfg.LookbackDays + 1
}

// dayOf truncates a timestamp to its calendar day.
func dayOf(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// AddDailyBar upserts one calendar day's OHLCV bar into the date-sorted
// list used for range and ADR windows.
func (e *Engine) AddDailyBar(bar domain.DailyBar) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.upsertDailyBarLocked(bar)
}

func (e *Engine) upsertDailyBarLocked(bar domain.DailyBar) {
	bar.Date = dayOf(bar.Date)

	idx := len(e.dailyBars)
	for i, b := range e.dailyBars {
		if b.Date.Equal(bar.Date) {
			e.dailyBars[i] = bar
			return
		}
		if bar.Date.Before(b.Date) {
			idx = i
			break
		}
	}

	e.dailyBars = append(e.dailyBars, domain.DailyBar{})
	copy(e.dailyBars[idx+1:], e.dailyBars[idx:])
	e.dailyBars[idx] = bar

	if len(e.dailyBars) > maxDailyBars {
		e.dailyBars = append(e.dailyBars[:0], e.dailyBars[len(e.dailyBars)-maxDailyBars:]...)
	}
}

// StartSession finalizes the in-progress session, if any, and begins a
// new one for the given date.
func (e *Engine) StartSession(date time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.startSessionLocked(dayOf(date))
}

func (e *Engine) startSessionLocked(date time.Time) {
	if e.session.active {
		e.finalizeLocked()
	}
	e.session.date = date
	e.session.vp.Reset(e.cfg.SessionInterval)
	e.session.ladder.Reset()
	e.session.open = 0
	e.session.high = 0
	e.session.low = 0
	e.session.close = 0
	e.session.volume = 0
	e.session.active = true
}

// FinalizeCurrentSession stores the in-progress session as a finalized
// daily profile. A no-op when no session is active.
func (e *Engine) FinalizeCurrentSession() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session.active {
		e.finalizeLocked()
		e.session.active = false
	}
}

// finalizeLocked computes the session profile and stores it. When the
// profile engine reports an invalid result a manual OHLC-derived fallback
// is stored instead, so a session is never silently dropped.
func (e *Engine) finalizeLocked() {
	s := &e.session
	res := s.vp.Calculate(e.cfg.ValueAreaPercent, e.cfg.HVNRatio)

	p := domain.DailySessionProfile{
		Date:        s.date,
		Open:        s.open,
		High:        s.high,
		Low:         s.low,
		Close:       s.close,
		TotalVolume: s.volume,
		Ladder:      s.ladder.Clone(),
	}

	if res.IsValid {
		p.POC = res.POC
		p.VAH = res.VAH
		p.VAL = res.VAL
		p.VWAP = res.VWAP
		p.HVNs = append([]float64(nil), res.HVNs...)
		p.HVNBuyCount = res.HVNBuyCount
		p.HVNSellCount = res.HVNSellCount
	} else {
		// Manual fallback from the session OHLC.
		p.POC = s.close
		p.VWAP = (s.high + s.low + s.close) / 3
		p.VAH = s.high
		p.VAL = s.low
	}

	e.profiles = append(e.profiles, p)
	if limit := e.profileCap(); len(e.profiles) > limit {
		e.profiles = append(e.profiles[:0], e.profiles[len(e.profiles)-limit:]...)
	}

	e.upsertDailyBarLocked(domain.DailyBar{
		Date:   s.date,
		Open:   s.open,
		High:   s.high,
		Low:    s.low,
		Close:  s.close,
		Volume: s.volume,
	})
}

// AddTick feeds one trade into the in-progress session, starting a new
// session automatically when the calendar day changes.
func (e *Engine) AddTick(t domain.Tick) {
	if !t.Valid() {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	day := dayOf(t.Time)
	if !e.session.active || !day.Equal(e.session.date) {
		e.startSessionLocked(day)
	}

	s := &e.session
	s.vp.AddTick(t.Price, t.Volume, t.IsBuy)
	s.vp.SetClosePrice(t.Price)

	bucket := domain.BucketPrice(t.Price, e.cfg.CompositeInterval)
	if t.IsBuy {
		s.ladder.Add(bucket, t.Volume, 0)
	} else {
		s.ladder.Add(bucket, 0, t.Volume)
	}

	if s.open == 0 {
		s.open = t.Price
	}
	if s.high == 0 || t.Price > s.high {
		s.high = t.Price
	}
	if s.low == 0 || t.Price < s.low {
		s.low = t.Price
	}
	s.close = t.Price
	s.volume += t.Volume
}

// SessionActive reports whether a session is in progress.
func (e *Engine) SessionActive() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.session.active
}

// DailyBars returns a copy of the daily bar series, oldest first.
func (e *Engine) DailyBars() []domain.DailyBar {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]domain.DailyBar(nil), e.dailyBars...)
}

// Profiles returns a deep copy of the finalized session profiles.
func (e *Engine) Profiles() []domain.DailySessionProfile {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.DailySessionProfile, len(e.profiles))
	for i, p := range e.profiles {
		out[i] = p.Clone()
	}
	return out
}

// Reset clears all engine state.
func (e *Engine) Reset() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.dailyBars = nil
	e.profiles = nil
	e.session.vp.Reset(e.cfg.SessionInterval)
	e.session.ladder.Reset()
	e.session = sessionState{vp: e.session.vp, ladder: e.session.ladder}
}

// Clone returns a deep value-copy of the engine taken atomically.
func (e *Engine) Clone() *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()

	cp := &Engine{cfg: e.cfg}
	cp.dailyBars = append([]domain.DailyBar(nil), e.dailyBars...)
	cp.profiles = make([]domain.DailySessionProfile, len(e.profiles))
	for i, p := range e.profiles {
		cp.profiles[i] = p.Clone()
	}
	cp.session = sessionState{
		date:   e.session.date,
		vp:     e.session.vp.Clone(),
		ladder: e.session.ladder.Clone(),
		open:   e.session.open,
		high:   e.session.high,
		low:    e.session.low,
		close:  e.session.close,
		volume: e.session.volume,
		active: e.session.active,
	}
	return cp
}

// Restore atomically replaces the engine state with a deep copy of src.
func (e *Engine) Restore(src *Engine) {
	snapshot := src.Clone()

	e.mu.Lock()
	defer e.mu.Unlock()
	e.cfg = snapshot.cfg
	e.dailyBars = snapshot.dailyBars
	e.profiles = snapshot.profiles
	e.session = snapshot.session
}
