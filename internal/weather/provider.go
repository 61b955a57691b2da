package weather

import (
	"context"
	"time"
)

// DefaultForecastDays is used when a forecast request does not name a day count.
const (
	DefaultForecastDays = 5
	MaxForecastDays     = 5
)

// Provider abstracts a weather data source (e.g. OpenWeatherMap, Open-Meteo).
// An empty Units argument selects the provider's own default.
type Provider interface {
	CurrentWeather(ctx context.Context, location string, units Units) (WeatherSnapshot, error)
	Forecast(ctx context.Context, location string, days int, units Units) (ForecastSnapshot, error)
	WeatherByCoordinates(ctx context.Context, coords Coordinates, units Units) (WeatherSnapshot, error)

	// ValidateConnection runs a cheap known-good query. It never returns an error;
	// any failure reports false.
	ValidateConnection(ctx context.Context) bool
}

// PlaceSearcher is implemented by providers that expose a geocoding endpoint.
type PlaceSearcher interface {
	SearchPlaces(ctx context.Context, query string, limit int) ([]Place, error)
}

// Store keeps snapshot history per location. Location keys are compared
// case-insensitively after trimming.
type Store interface {
	SaveSnapshot(location string, snapshot WeatherSnapshot)
	GetLatest(location string) (WeatherSnapshot, error)
	GetRange(location string, from, to time.Time) ([]WeatherSnapshot, error)
}
