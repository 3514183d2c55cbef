package view

import (
	"github.com/olegn/skycast/internal/units"
	"github.com/olegn/skycast/internal/weather"
)

// Phase is the presentation pipeline's lifecycle state.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseLoading   Phase = "loading"
	PhaseDisplayed Phase = "displayed"
	PhaseError     Phase = "error"
)

// State is the whole application state of the widget. Transitions are pure
// (state in, state out); the HTTP layer owns the single instance. Every
// search carries a generation id so a completion racing a newer search is
// discarded instead of rendered.
type State struct {
	Phase        Phase
	Generation   uint64
	Unit         units.Unit
	Descriptor   weather.Descriptor
	Snapshot     weather.Snapshot
	Forecast     []weather.ForecastEntry
	ActiveDay    int // index into Forecast, -1 for none
	ErrorMessage string
	Favorite     bool
}

// NewState returns the Idle starting state.
func NewState() State {
	return State{
		Phase:     PhaseIdle,
		Unit:      units.Default,
		ActiveDay: -1,
	}
}

// BeginSearch enters Loading: the previous error is cleared and a new
// generation is started. The returned generation must accompany the matching
// CompleteSearch or FailSearch.
func BeginSearch(s State) (State, uint64) {
	s.Phase = PhaseLoading
	s.Generation++
	s.ErrorMessage = ""
	return s, s.Generation
}

// CompleteSearch enters Displayed with a successful result. A completion
// whose generation is stale (a newer search started meanwhile) is discarded.
// The display unit resets to the default on every new search, and no
// forecast day starts active.
func CompleteSearch(s State, gen uint64, res weather.SearchResult, favorite bool) State {
	if gen != s.Generation {
		return s
	}
	s.Phase = PhaseDisplayed
	s.Descriptor = res.Descriptor
	s.Snapshot = res.Snapshot
	s.Forecast = res.Forecast
	s.Unit = units.Default
	s.ActiveDay = -1
	s.ErrorMessage = ""
	s.Favorite = favorite
	return s
}

// FailSearch enters ErrorShown. Stale failures are discarded like stale
// completions. The cached temperatures are dropped and the favourite button
// affordance resets.
func FailSearch(s State, gen uint64, message string) State {
	if gen != s.Generation {
		return s
	}
	s.Phase = PhaseError
	s.ErrorMessage = message
	s.Snapshot = weather.Snapshot{}
	s.Forecast = nil
	s.Descriptor = weather.Descriptor{}
	s.ActiveDay = -1
	s.Favorite = false
	return s
}

// SetUnit switches the display unit. While Displayed this only reformats the
// already-fetched absolute values; nothing is refetched.
func SetUnit(s State, u units.Unit) State {
	s.Unit = u
	return s
}

// SelectDay marks a forecast card active, or clears the selection with -1.
// At most one card is active at a time; out-of-range indexes are ignored.
func SelectDay(s State, idx int) State {
	if s.Phase != PhaseDisplayed {
		return s
	}
	if idx < -1 || idx >= len(s.Forecast) {
		return s
	}
	s.ActiveDay = idx
	return s
}

// SetFavorite updates the favourite-button state after a toggle.
func SetFavorite(s State, active bool) State {
	s.Favorite = active
	return s
}

// Reset returns to the Idle home state from anywhere.
func Reset(s State) State {
	next := NewState()
	next.Generation = s.Generation
	return next
}
