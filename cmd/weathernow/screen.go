package main

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"text/tabwriter"
	"time"

	"weathernow/internal/types"
	"weathernow/internal/widget"
)

const clockLayout = "15:04"

// screen serializes writes from the render subscriber and from command
// goroutines.
type screen struct {
	mu sync.Mutex
	w  io.Writer
}

func newScreen(w io.Writer) *screen {
	return &screen{w: w}
}

// render draws s in the single display mode it is in.
func (sc *screen) render(s widget.State) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	fmt.Fprintln(sc.w)
	switch s.Mode() {
	case widget.ModeLoading:
		if s.Selected != nil && s.Phase != widget.PhaseSearching {
			fmt.Fprintf(sc.w, "Loading weather for %s...\n", s.Selected.Name)
		} else {
			fmt.Fprintf(sc.w, "Searching for %q...\n", s.Query)
		}
	case widget.ModeError:
		fmt.Fprintf(sc.w, "Error: %s\n", s.ErrorMessage())
		fmt.Fprintln(sc.w, "Type a city name to search again.")
	case widget.ModeWeather:
		writeWeather(sc.w, *s.Snapshot, s.Window)
		fmt.Fprintln(sc.w, "Type a city name to search again.")
	default:
		if s.Phase == widget.PhaseCandidatesShown {
			writeCandidates(sc.w, s.Candidates, s.Selected)
			fmt.Fprintf(sc.w, "Enter a number (1-%d), or press Enter for 1.\n", len(s.Candidates))
		} else {
			fmt.Fprintln(sc.w, "Type a city name and press Enter. :q quits.")
		}
	}
	fmt.Fprint(sc.w, "> ")
}

// notice prints command errors that leave the state unchanged, such as an
// out-of-range selection. Failures already rendered from state are skipped.
func (sc *screen) notice(err error) {
	code := types.CodeOf(err)
	if code == types.ErrCodeConflictSuperseded {
		return
	}
	if code.HTTPStatus() != http.StatusBadRequest && code != types.ErrCodeConflictNoCandidates {
		return
	}

	msg := err.Error()
	var appErr *types.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()
	fmt.Fprintf(sc.w, "\n%s\n> ", msg)
}

func writeCandidates(w io.Writer, cands []types.Location, selected *types.Location) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for i, c := range cands {
		mark := " "
		if selected != nil && *selected == c {
			mark = "*"
		}
		region := c.Country
		if c.Admin1 != "" {
			region = c.Admin1 + ", " + c.Country
		}
		fmt.Fprintf(tw, "%s%d)\t%s\t%s\t(%.2f, %.2f)\n", mark, i+1, c.Name, region, c.Latitude, c.Longitude)
	}
	tw.Flush()
}

func writeWeather(w io.Writer, snap types.WeatherSnapshot, window []types.ForecastPoint) {
	fmt.Fprintf(w, "%s\n", snap.LocationName)
	fmt.Fprintf(w, "  Temperature  %.1f °C\n", snap.TemperatureC)
	fmt.Fprintf(w, "  Wind         %.1f km/h\n", snap.WindSpeedKmh)
	fmt.Fprintf(w, "  Weather code %d\n", snap.WeatherCode)
	fmt.Fprintf(w, "  Sunrise      %s\n", clock(snap.Sunrise))
	fmt.Fprintf(w, "  Sunset       %s\n", clock(snap.Sunset))
	fmt.Fprintln(w)

	if len(window) == 0 {
		fmt.Fprintln(w, "No upcoming hourly forecast.")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Time\tTemp °C\tHumidity %\tPressure hPa\t")
	for _, p := range window {
		fmt.Fprintf(tw, "%s\t%.1f\t%.0f\t%.1f\t\n", p.Time.Format(clockLayout), p.TemperatureC, p.HumidityPct, p.PressureHPa)
	}
	tw.Flush()
}

func clock(t time.Time) string {
	if t.IsZero() {
		return "n/a"
	}
	return t.Format(clockLayout)
}
