// Package agent is the façade an agent framework talks to. Every weather query is
// delegated to a single weather.Provider, timed, and reported as exactly one event
// on the agent's bus once the provider call settles. Provider errors are returned
// unchanged; subscribers see only their message.
package agent

import (
	"context"
	"errors"
	"time"

	"github.com/i474232898/weather-agent/internal/events"
	"github.com/i474232898/weather-agent/internal/weather"
)

// DefaultSourceID identifies events when no source ID is configured.
const DefaultSourceID = "weather-agent"

// ErrUnsupported is returned when the provider lacks an optional capability.
var ErrUnsupported = errors.New("operation not supported by provider")

// Agent delegates weather queries to a provider and publishes their outcome.
type Agent struct {
	id       string
	provider weather.Provider
	units    weather.Units
	bus      *events.Bus
}

// Option configures an Agent.
type Option func(*Agent)

// WithSourceID sets the sourceId stamped on every event.
func WithSourceID(id string) Option {
	return func(a *Agent) {
		if id != "" {
			a.id = id
		}
	}
}

// WithDefaultUnits sets the unit system used when a call does not override it.
func WithDefaultUnits(u weather.Units) Option {
	return func(a *Agent) {
		if u.Valid() {
			a.units = u
		}
	}
}

// WithBus shares an existing bus instead of creating a private one.
func WithBus(b *events.Bus) Option {
	return func(a *Agent) {
		if b != nil {
			a.bus = b
		}
	}
}

// New creates an Agent owning provider for its lifetime.
func New(provider weather.Provider, opts ...Option) *Agent {
	a := &Agent{
		id:       DefaultSourceID,
		provider: provider,
		units:    weather.UnitsMetric,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.bus == nil {
		a.bus = events.NewBus()
	}
	return a
}

// ID returns the source ID stamped on published events.
func (a *Agent) ID() string { return a.id }

// DefaultUnits returns the unit system used when a call does not override it.
func (a *Agent) DefaultUnits() weather.Units { return a.units }

// Bus exposes the agent's event bus.
func (a *Agent) Bus() *events.Bus { return a.bus }

// On subscribes handler to events matching pattern; see events.Bus.On.
func (a *Agent) On(pattern string, handler events.Handler) func() {
	return a.bus.On(pattern, handler)
}

// Once subscribes handler for the first matching event only.
func (a *Agent) Once(pattern string, handler events.Handler) func() {
	return a.bus.Once(pattern, handler)
}

// Off removes subscriptions registered with exactly eventType as their pattern.
func (a *Agent) Off(eventType string) int {
	return a.bus.Off(eventType)
}

// CurrentWeather returns current conditions for a place name.
// Invalid parameters fail before the provider is called and publish no event.
func (a *Agent) CurrentWeather(ctx context.Context, p CurrentParams) (weather.WeatherSnapshot, error) {
	if err := checkParams(p); err != nil {
		return weather.WeatherSnapshot{}, err
	}
	if err := weather.ValidateLocation(p.Location); err != nil {
		return weather.WeatherSnapshot{}, err
	}

	units := p.Units.Resolve(a.units)
	query := map[string]any{"location": p.Location, "units": string(units)}

	return observe(ctx, a, OpCurrentWeather, query,
		func(ctx context.Context) (weather.WeatherSnapshot, error) {
			return a.provider.CurrentWeather(ctx, p.Location, units)
		},
		snapshotFields,
	)
}

// Forecast returns a daily forecast for a place name.
func (a *Agent) Forecast(ctx context.Context, p ForecastParams) (weather.ForecastSnapshot, error) {
	if err := checkParams(p); err != nil {
		return weather.ForecastSnapshot{}, err
	}
	if err := weather.ValidateLocation(p.Location); err != nil {
		return weather.ForecastSnapshot{}, err
	}
	days, err := weather.NormalizeDays(p.Days)
	if err != nil {
		return weather.ForecastSnapshot{}, err
	}

	units := p.Units.Resolve(a.units)
	// days is recorded as the caller passed it; zero means the default was applied.
	query := map[string]any{"location": p.Location, "days": p.Days, "units": string(units)}

	return observe(ctx, a, OpForecast, query,
		func(ctx context.Context) (weather.ForecastSnapshot, error) {
			return a.provider.Forecast(ctx, p.Location, days, units)
		},
		func(f weather.ForecastSnapshot) map[string]any {
			return map[string]any{
				"resolvedLocation": f.Location,
				"country":          f.Country,
				"entries":          len(f.Days),
			}
		},
	)
}

// WeatherByCoordinates returns current conditions for a latitude/longitude pair.
func (a *Agent) WeatherByCoordinates(ctx context.Context, p CoordsParams) (weather.WeatherSnapshot, error) {
	if err := checkParams(p); err != nil {
		return weather.WeatherSnapshot{}, err
	}
	coords := weather.Coordinates{Latitude: p.Latitude, Longitude: p.Longitude}
	if err := weather.ValidateCoordinates(coords); err != nil {
		return weather.WeatherSnapshot{}, err
	}

	units := p.Units.Resolve(a.units)
	query := map[string]any{"latitude": p.Latitude, "longitude": p.Longitude, "units": string(units)}

	return observe(ctx, a, OpWeatherByCoords, query,
		func(ctx context.Context) (weather.WeatherSnapshot, error) {
			return a.provider.WeatherByCoordinates(ctx, coords, units)
		},
		snapshotFields,
	)
}

// SearchPlaces geocodes a free-text query when the provider supports it.
func (a *Agent) SearchPlaces(ctx context.Context, p SearchParams) ([]weather.Place, error) {
	searcher, ok := a.provider.(weather.PlaceSearcher)
	if !ok {
		return nil, ErrUnsupported
	}
	if err := checkParams(p); err != nil {
		return nil, err
	}
	if err := weather.ValidateLocation(p.Query); err != nil {
		return nil, err
	}

	query := map[string]any{"query": p.Query, "limit": p.Limit}

	return observe(ctx, a, OpSearchPlaces, query,
		func(ctx context.Context) ([]weather.Place, error) {
			return searcher.SearchPlaces(ctx, p.Query, p.Limit)
		},
		func(places []weather.Place) map[string]any {
			return map[string]any{"results": len(places)}
		},
	)
}

// ValidateConnection reports whether the provider answers a known-good query.
func (a *Agent) ValidateConnection(ctx context.Context) bool {
	return a.provider.ValidateConnection(ctx)
}

// observe runs call, measures it, and publishes one success or error event.
// The error returned is the provider's own value.
func observe[T any](
	ctx context.Context,
	a *Agent,
	op Operation,
	query map[string]any,
	call func(context.Context) (T, error),
	fields func(T) map[string]any,
) (T, error) {
	start := time.Now()
	result, err := call(ctx)
	elapsed := time.Since(start)

	data := make(map[string]any, len(query)+12)
	for k, v := range query {
		data[k] = v
	}
	data["duration"] = float64(elapsed.Microseconds()) / 1000

	ev := events.New(op.EventType(), a.id, op.String(), data)
	if err != nil {
		a.bus.Publish(ev.WithError(err))
		var zero T
		return zero, err
	}

	for k, v := range fields(result) {
		data[k] = v
	}
	a.bus.Publish(ev)
	return result, nil
}

func snapshotFields(s weather.WeatherSnapshot) map[string]any {
	return map[string]any{
		"resolvedLocation": s.Location,
		"country":          s.Country,
		"temperature":      s.Temperature,
		"feelsLike":        s.FeelsLike,
		"humidity":         s.Humidity,
		"pressure":         s.Pressure,
		"description":      s.Description,
		"icon":             s.Icon,
		"windSpeed":        s.WindSpeed,
		"windDirection":    s.WindDirection,
		"visibility":       s.Visibility,
	}
}
