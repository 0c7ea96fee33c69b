package composite

import (
	"github.com/quantarb/marketprofile/internal/domain"
)

// State serializable snapshot of the engine's persistent history. The
// live session is intentionally excluded; after a restart it is rebuilt
// from the tick feed.
type State struct {
	DailyBars []domain.DailyBar            `json:"daily_bars"`
	Profiles  []domain.DailySessionProfile `json:"profiles"`
}

// ExportState returns a deep copy of the persistent history.
func (e *Engine) ExportState() State {
	e.mu.Lock()
	defer e.mu.Unlock()

	st := State{
		DailyBars: append([]domain.DailyBar(nil), e.dailyBars...),
		Profiles:  make([]domain.DailySessionProfile, len(e.profiles)),
	}
	for i, p := range e.profiles {
		st.Profiles[i] = p.Clone()
	}
	return st
}

// ImportState replaces the persistent history with the stored one,
// leaving any live session untouched.
func (e *Engine) ImportState(st State) {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.dailyBars = e.dailyBars[:0]
	for _, bar := range st.DailyBars {
		e.upsertDailyBarLocked(bar)
	}

	e.profiles = make([]domain.DailySessionProfile, 0, len(st.Profiles))
	for _, p := range st.Profiles {
		cp := p.Clone()
		if cp.Ladder == nil {
			cp.Ladder = domain.NewPriceLadder()
		}
		e.profiles = append(e.profiles, cp)
	}
	if limit := e.profileCap(); len(e.profiles) > limit {
		e.profiles = append(e.profiles[:0], e.profiles[len(e.profiles)-limit:]...)
	}
}
