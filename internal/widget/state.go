// Package widget holds the lookup flow of the weather widget: search, pick a
// candidate, fetch its forecast. Every transition publishes a complete State
// to subscribers, and a slow response from a superseded request is dropped
// instead of overwriting newer state.
package widget

import (
	"weathernow/internal/types"
)

// Phase is the position of the lookup flow.
type Phase int

const (
	PhaseIdle Phase = iota
	PhaseSearching
	PhaseCandidatesShown
	PhaseAutoResolved
	PhaseFetching
	PhaseResolved
	PhaseFailed
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseSearching:
		return "searching"
	case PhaseCandidatesShown:
		return "candidates_shown"
	case PhaseAutoResolved:
		return "auto_resolved"
	case PhaseFetching:
		return "fetching"
	case PhaseResolved:
		return "resolved"
	case PhaseFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Mode is what the display shows. Exactly one mode is active at a time.
type Mode string

const (
	ModeIdle    Mode = "idle"
	ModeLoading Mode = "loading"
	ModeError   Mode = "error"
	ModeWeather Mode = "weather"
)

// State is one immutable view of the widget. Values are replaced wholesale;
// slices and pointers inside a published State are never mutated afterwards.
type State struct {
	Phase Phase
	Query string

	// Candidates is the geocoder's ranked list, replaced on each search and
	// cleared once a selection commits it.
	Candidates []types.Location
	// Selected is the provisional (candidates[0]) or committed location.
	Selected *types.Location

	Snapshot *types.WeatherSnapshot
	Window   []types.ForecastPoint

	Loading bool
	Err     *types.AppError

	// Generation identifies the request chain that produced this state.
	Generation uint64
}

// Mode reports the active display mode. Loading wins over everything, then an
// error, then a weather snapshot; otherwise the widget is idle.
func (s State) Mode() Mode {
	switch {
	case s.Loading:
		return ModeLoading
	case s.Err != nil:
		return ModeError
	case s.Snapshot != nil:
		return ModeWeather
	default:
		return ModeIdle
	}
}

// ErrorMessage returns the user-facing error text, or "" when there is none.
func (s State) ErrorMessage() string {
	if s.Err == nil {
		return ""
	}
	return s.Err.Message
}
