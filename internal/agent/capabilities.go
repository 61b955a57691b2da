package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/i474232898/weather-agent/internal/weather"
)

// Operation enumerates the capabilities the agent exposes.
type Operation int

const (
	OpCurrentWeather Operation = iota + 1
	OpForecast
	OpWeatherByCoords
	OpSearchPlaces
)

// Parameter describes one field of a capability's input.
type Parameter struct {
	Name        string   `json:"name"`
	Type        string   `json:"type"`
	Description string   `json:"description"`
	Required    bool     `json:"required"`
	Enum        []string `json:"enum,omitempty"`
	Minimum     *float64 `json:"minimum,omitempty"`
	Maximum     *float64 `json:"maximum,omitempty"`
}

// Schema describes a capability for registries and agent frameworks.
type Schema struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	EventType   string      `json:"eventType"`
	Parameters  []Parameter `json:"parameters"`
}

// JSONSchema renders the parameters as a JSON Schema object, the shape most
// tool-calling frameworks expect as an input schema.
func (s Schema) JSONSchema() map[string]any {
	props := make(map[string]any, len(s.Parameters))
	required := make([]string, 0, len(s.Parameters))
	for _, p := range s.Parameters {
		prop := map[string]any{"type": p.Type, "description": p.Description}
		if len(p.Enum) > 0 {
			prop["enum"] = p.Enum
		}
		if p.Minimum != nil {
			prop["minimum"] = *p.Minimum
		}
		if p.Maximum != nil {
			prop["maximum"] = *p.Maximum
		}
		props[p.Name] = prop
		if p.Required {
			required = append(required, p.Name)
		}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

var unitsParam = Parameter{
	Name:        "units",
	Type:        "string",
	Description: "Unit system; defaults to the agent's configured units.",
	Enum:        []string{string(weather.UnitsMetric), string(weather.UnitsImperial), string(weather.UnitsKelvin)},
}

func bound(f float64) *float64 { return &f }

type operationSpec struct {
	name        string
	eventType   string
	description string
	params      []Parameter
}

var operationSpecs = map[Operation]operationSpec{
	OpCurrentWeather: {
		name:        "get_current_weather",
		eventType:   "weather.current",
		description: "Get current weather conditions for a place name.",
		params: []Parameter{
			{Name: "location", Type: "string", Description: "Place name, e.g. \"Tokyo\" or \"Paris,FR\".", Required: true},
			unitsParam,
		},
	},
	OpForecast: {
		name:        "get_forecast",
		eventType:   "weather.forecast",
		description: "Get a daily weather forecast for a place name.",
		params: []Parameter{
			{Name: "location", Type: "string", Description: "Place name.", Required: true},
			{Name: "days", Type: "integer", Description: "Number of days to return.", Minimum: bound(1), Maximum: bound(weather.MaxForecastDays)},
			unitsParam,
		},
	},
	OpWeatherByCoords: {
		name:        "get_weather_by_coordinates",
		eventType:   "weather.coords",
		description: "Get current weather conditions for a latitude/longitude pair.",
		params: []Parameter{
			{Name: "latitude", Type: "number", Description: "Latitude in decimal degrees.", Required: true, Minimum: bound(-90), Maximum: bound(90)},
			{Name: "longitude", Type: "number", Description: "Longitude in decimal degrees.", Required: true, Minimum: bound(-180), Maximum: bound(180)},
			unitsParam,
		},
	},
	OpSearchPlaces: {
		name:        "search_places",
		eventType:   "geo.search",
		description: "Find places matching a free-text name.",
		params: []Parameter{
			{Name: "query", Type: "string", Description: "Place name to search for.", Required: true},
			{Name: "limit", Type: "integer", Description: "Maximum number of matches.", Minimum: bound(1), Maximum: bound(10)},
		},
	},
}

// Operations lists every operation in dispatch order.
func Operations() []Operation {
	return []Operation{OpCurrentWeather, OpForecast, OpWeatherByCoords, OpSearchPlaces}
}

// ParseOperation resolves a capability name.
func ParseOperation(name string) (Operation, error) {
	for _, op := range Operations() {
		if operationSpecs[op].name == name {
			return op, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownCapability, name)
}

func (o Operation) String() string {
	if s, ok := operationSpecs[o]; ok {
		return s.name
	}
	return fmt.Sprintf("Operation(%d)", int(o))
}

// EventType is the fixed event type published for o.
func (o Operation) EventType() string {
	return operationSpecs[o].eventType
}

// Schema describes o's parameters.
func (o Operation) Schema() Schema {
	s := operationSpecs[o]
	params := make([]Parameter, len(s.params))
	copy(params, s.params)
	return Schema{
		Name:        s.name,
		Description: s.description,
		EventType:   s.eventType,
		Parameters:  params,
	}
}

// Supports reports whether the agent's provider can serve op.
func (a *Agent) Supports(op Operation) bool {
	switch op {
	case OpCurrentWeather, OpForecast, OpWeatherByCoords:
		return true
	case OpSearchPlaces:
		_, ok := a.provider.(weather.PlaceSearcher)
		return ok
	default:
		return false
	}
}

// Invoke decodes raw into op's parameter struct and runs the operation.
func (a *Agent) Invoke(ctx context.Context, op Operation, raw json.RawMessage) (any, error) {
	switch op {
	case OpCurrentWeather:
		var p CurrentParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return a.CurrentWeather(ctx, p)
	case OpForecast:
		var p ForecastParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return a.Forecast(ctx, p)
	case OpWeatherByCoords:
		var c coordsPayload
		if err := decodeParams(raw, &c); err != nil {
			return nil, err
		}
		p, err := c.params()
		if err != nil {
			return nil, err
		}
		return a.WeatherByCoordinates(ctx, p)
	case OpSearchPlaces:
		var p SearchParams
		if err := decodeParams(raw, &p); err != nil {
			return nil, err
		}
		return a.SearchPlaces(ctx, p)
	default:
		return nil, fmt.Errorf("%w: %v", ErrUnknownCapability, op)
	}
}

// RegisterCapabilities exposes every supported operation through r. It is meant to
// be called once at startup.
func (a *Agent) RegisterCapabilities(r Registrar) error {
	for _, op := range Operations() {
		if !a.Supports(op) {
			continue
		}
		op := op
		fn := func(ctx context.Context, raw json.RawMessage) (any, error) {
			return a.Invoke(ctx, op, raw)
		}
		if err := r.Register(op.String(), fn, op.Schema()); err != nil {
			return fmt.Errorf("register %s: %w", op, err)
		}
	}
	return nil
}
