package weather

import (
	"strings"
	"time"
)

// Units selects the measurement system used by a provider.
type Units string

const (
	UnitsMetric   Units = "metric"
	UnitsImperial Units = "imperial"
	UnitsKelvin   Units = "kelvin"
)

// Valid reports whether u is one of the supported unit systems.
// The empty value is not valid; callers resolve it to a default first.
func (u Units) Valid() bool {
	switch u {
	case UnitsMetric, UnitsImperial, UnitsKelvin:
		return true
	default:
		return false
	}
}

// ParseUnits normalizes s into a Units value. An empty string yields an empty Units.
func ParseUnits(s string) (Units, error) {
	u := Units(strings.ToLower(strings.TrimSpace(s)))
	if u == "" || u.Valid() {
		return u, nil
	}
	return "", InvalidArgument("units", "unsupported unit system %q (want metric, imperial or kelvin)", s)
}

// Resolve returns u, or def when u is empty.
func (u Units) Resolve(def Units) Units {
	if u == "" {
		return def
	}
	return u
}

// Coordinates is a latitude/longitude pair in decimal degrees.
type Coordinates struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// WeatherSnapshot is the normalized current-conditions view at a point in time.
type WeatherSnapshot struct {
	Location      string      `json:"location"`
	Country       string      `json:"country"`
	Coordinates   Coordinates `json:"coordinates"`
	Temperature   float64     `json:"temperature"`
	FeelsLike     float64     `json:"feelsLike"`
	TempMin       float64     `json:"tempMin"`
	TempMax       float64     `json:"tempMax"`
	Humidity      float64     `json:"humidity"`
	Pressure      float64     `json:"pressure"`
	WindSpeed     float64     `json:"windSpeed"`
	WindDirection float64     `json:"windDirection"`
	Visibility    float64     `json:"visibility"`
	UVIndex       *float64    `json:"uvIndex,omitempty"`
	Description   string      `json:"description"`
	Icon          string      `json:"icon"`
	Units         Units       `json:"units"`
	Timestamp     time.Time   `json:"timestamp"` // always UTC
}

// ForecastDay summarizes all forecast samples that fall on one local calendar date.
type ForecastDay struct {
	Date          string    `json:"date"` // YYYY-MM-DD in the location's offset
	High          float64   `json:"high"`
	Low           float64   `json:"low"`
	Humidity      float64   `json:"humidity"`
	WindSpeed     float64   `json:"windSpeed"` // strongest reading of the day
	Precipitation float64   `json:"precipitation"`
	Description   string    `json:"description"`
	Icon          string    `json:"icon"`
	Timestamp     time.Time `json:"timestamp"`
}

// ForecastSnapshot is a normalized multi-day forecast, ordered by date ascending.
type ForecastSnapshot struct {
	Location    string        `json:"location"`
	Country     string        `json:"country"`
	Coordinates Coordinates   `json:"coordinates"`
	Units       Units         `json:"units"`
	Days        []ForecastDay `json:"days"`
	Timestamp   time.Time     `json:"timestamp"`
}

// Place is a geocoding match for a free-text place name.
type Place struct {
	Name      string  `json:"name"`
	Country   string  `json:"country"`
	State     string  `json:"state,omitempty"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lon"`
}
