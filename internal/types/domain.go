package types

import (
	"fmt"
	"time"
)

// Location is one geocoder match for a typed city name. Values are immutable
// once produced; a new search replaces the whole candidate list.
type Location struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	Admin1    string  `json:"admin1,omitempty"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
	Timezone  string  `json:"timezone,omitempty"`
}

// Label renders the location the way candidate lists display it, e.g.
// "Paris, FR (48.85, 2.35)".
func (l Location) Label() string {
	return fmt.Sprintf("%s, %s (%.2f, %.2f)", l.Name, l.Country, l.Latitude, l.Longitude)
}

// WeatherSnapshot holds the current conditions for one resolved location.
type WeatherSnapshot struct {
	LocationName string    `json:"location_name"`
	TemperatureC float64   `json:"temperature_c"`
	WindSpeedKmh float64   `json:"wind_speed_kmh"`
	WeatherCode  int       `json:"weather_code"`
	Sunrise      time.Time `json:"sunrise,omitzero"`
	Sunset       time.Time `json:"sunset,omitzero"`
	ObservedAt   time.Time `json:"observed_at,omitzero"`
	Timezone     string    `json:"timezone,omitempty"`
}

// ForecastPoint is one hour of the forecast window.
type ForecastPoint struct {
	Time         time.Time `json:"time"`
	TemperatureC float64   `json:"temperature_c"`
	HumidityPct  float64   `json:"humidity_percent"`
	PressureHPa  float64   `json:"pressure_hpa"`
}

// HourlySeries is the raw hourly forecast as parallel, time-indexed arrays.
// Times is ascending. A well-formed series has equal-length arrays.
type HourlySeries struct {
	Times        []time.Time
	TemperatureC []float64
	HumidityPct  []float64
	PressureHPa  []float64
}

// Len returns the number of timestamps in the series.
func (s HourlySeries) Len() int {
	return len(s.Times)
}

// Consistent reports whether every value array matches the length of Times.
func (s HourlySeries) Consistent() bool {
	n := len(s.Times)
	return len(s.TemperatureC) == n && len(s.HumidityPct) == n && len(s.PressureHPa) == n
}
