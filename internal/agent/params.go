package agent

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/i474232898/weather-agent/internal/weather"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	// Report fields by their JSON names so messages match what callers sent.
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// CurrentParams are the inputs of the current-conditions operation.
type CurrentParams struct {
	Location string        `json:"location" validate:"required"`
	Units    weather.Units `json:"units,omitempty" validate:"omitempty,oneof=metric imperial kelvin"`
}

// ForecastParams are the inputs of the forecast operation. Days of zero selects
// weather.DefaultForecastDays.
type ForecastParams struct {
	Location string        `json:"location" validate:"required"`
	Days     int           `json:"days,omitempty" validate:"gte=0,lte=5"`
	Units    weather.Units `json:"units,omitempty" validate:"omitempty,oneof=metric imperial kelvin"`
}

// CoordsParams are the inputs of the by-coordinates operation.
// Range checks live in weather.ValidateCoordinates so NaN and Inf are caught too.
type CoordsParams struct {
	Latitude  float64       `json:"latitude"`
	Longitude float64       `json:"longitude"`
	Units     weather.Units `json:"units,omitempty" validate:"omitempty,oneof=metric imperial kelvin"`
}

// SearchParams are the inputs of the place search operation.
type SearchParams struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit,omitempty" validate:"gte=0,lte=10"`
}

// checkParams runs the struct tags and maps failures onto weather error kinds.
func checkParams(p any) error {
	err := validate.Struct(p)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return weather.InvalidArgument("params", "invalid parameters: %v", err)
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return weather.InvalidArgument(field, "%s is required", field)
	case "gte", "lte", "min", "max":
		return weather.OutOfRange(field, "%s %v out of range (%s=%s)", field, fe.Value(), fe.Tag(), fe.Param())
	case "oneof":
		return weather.InvalidArgument(field, "%s must be one of: %s", field, fe.Param())
	default:
		return weather.InvalidArgument(field, "%s is invalid", field)
	}
}

// decodeParams strictly decodes a capability payload. An empty payload decodes as {}.
func decodeParams(raw json.RawMessage, dst any) error {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		raw = []byte("{}")
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &typeErr) {
			return weather.InvalidArgument(typeErr.Field, "%s must be a %s", typeErr.Field, typeErr.Type.Kind())
		}
		return weather.InvalidArgument("params", "malformed parameters: %v", err)
	}
	return nil
}

// coordsPayload distinguishes a missing coordinate from an explicit zero.
type coordsPayload struct {
	Latitude  *float64      `json:"latitude"`
	Longitude *float64      `json:"longitude"`
	Units     weather.Units `json:"units,omitempty"`
}

func (c coordsPayload) params() (CoordsParams, error) {
	if c.Latitude == nil || c.Longitude == nil {
		return CoordsParams{}, weather.InvalidArgument("coordinates", "latitude and longitude are required")
	}
	return CoordsParams{Latitude: *c.Latitude, Longitude: *c.Longitude, Units: c.Units}, nil
}
