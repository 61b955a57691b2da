package httpapi

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"

	"github.com/i474232898/weather-agent/internal/agent"
	"github.com/i474232898/weather-agent/internal/store"
	"github.com/i474232898/weather-agent/internal/weather"
)

var validate = validator.New()

// RegisterRoutes wires the HTTP handlers into the Fiber app.
func RegisterRoutes(app *fiber.App, a *agent.Agent, reg *agent.Registry, history weather.Store) {
	v1 := app.Group("/api/v1")

	v1.Get("/status", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"agentId":      a.ID(),
			"defaultUnits": a.DefaultUnits(),
			"connected":    a.ValidateConnection(c.UserContext()),
			"capabilities": len(reg.Schemas()),
			"subscribers":  a.Bus().Len(),
		})
	})

	v1.Get("/capabilities", func(c *fiber.Ctx) error {
		schemas := reg.Schemas()
		out := make([]fiber.Map, 0, len(schemas))
		for _, s := range schemas {
			out = append(out, fiber.Map{
				"name":        s.Name,
				"description": s.Description,
				"eventType":   s.EventType,
				"inputSchema": s.JSONSchema(),
			})
		}
		return c.JSON(fiber.Map{"capabilities": out})
	})

	v1.Post("/capabilities/:name", func(c *fiber.Ctx) error {
		// Fiber reuses the request buffer once the handler returns.
		body := append(json.RawMessage(nil), c.Body()...)
		result, err := reg.Invoke(c.UserContext(), c.Params("name"), body)
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(fiber.Map{"result": result})
	})

	v1.Get("/weather/current", func(c *fiber.Ctx) error {
		snap, err := a.CurrentWeather(c.UserContext(), agent.CurrentParams{
			Location: c.Query("location"),
			Units:    weather.Units(c.Query("units")),
		})
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(snap)
	})

	v1.Get("/weather/forecast", func(c *fiber.Ctx) error {
		days, err := queryInt(c, "days")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		forecast, err := a.Forecast(c.UserContext(), agent.ForecastParams{
			Location: c.Query("location"),
			Days:     days,
			Units:    weather.Units(c.Query("units")),
		})
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(forecast)
	})

	v1.Get("/weather/coords", func(c *fiber.Ctx) error {
		lat, err := queryFloat(c, "lat")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		lon, err := queryFloat(c, "lon")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		snap, err := a.WeatherByCoordinates(c.UserContext(), agent.CoordsParams{
			Latitude:  lat,
			Longitude: lon,
			Units:     weather.Units(c.Query("units")),
		})
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(snap)
	})

	v1.Get("/weather/history", func(c *fiber.Ctx) error {
		var req historyQuery
		if err := req.bind(c); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		if err := validate.Struct(req); err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}

		snapshots, err := history.GetRange(req.Location, req.From, req.To)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return fiber.NewError(fiber.StatusNotFound, "no weather history for requested range")
			}
			return fiber.NewError(fiber.StatusInternalServerError, "failed to fetch weather history")
		}

		return c.JSON(fiber.Map{
			"location":  req.Location,
			"from":      req.From,
			"to":        req.To,
			"snapshots": snapshots,
		})
	})

	v1.Get("/geo/search", func(c *fiber.Ctx) error {
		limit, err := queryInt(c, "limit")
		if err != nil {
			return fiber.NewError(fiber.StatusBadRequest, err.Error())
		}
		places, err := a.SearchPlaces(c.UserContext(), agent.SearchParams{
			Query: c.Query("q"),
			Limit: limit,
		})
		if err != nil {
			return toHTTPError(err)
		}
		return c.JSON(fiber.Map{"results": places})
	})
}

// toHTTPError maps domain errors onto response codes.
func toHTTPError(err error) error {
	code := fiber.StatusBadGateway
	switch {
	case errors.Is(err, agent.ErrUnknownCapability), errors.Is(err, store.ErrNotFound):
		code = fiber.StatusNotFound
	case errors.Is(err, agent.ErrUnsupported):
		code = fiber.StatusNotImplemented
	default:
		switch weather.KindOf(err) {
		case weather.KindInvalidArgument, weather.KindOutOfRange:
			code = fiber.StatusBadRequest
		case weather.KindNotFound:
			code = fiber.StatusNotFound
		case weather.KindTimeout:
			code = fiber.StatusGatewayTimeout
		}
	}
	return fiber.NewError(code, err.Error())
}

func queryInt(c *fiber.Ctx, key string) (int, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}

func queryFloat(c *fiber.Ctx, key string) (float64, error) {
	v := strings.TrimSpace(c.Query(key))
	if v == "" {
		return 0, errors.New(key + " query parameter is required")
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, errors.New(key + " must be a number")
	}
	return f, nil
}

// historyQuery holds query parameters for the history endpoint.
type historyQuery struct {
	Location string    `validate:"required"`
	From     time.Time `validate:"required"`
	To       time.Time `validate:"required,gtefield=From"`
}

func (h *historyQuery) bind(c *fiber.Ctx) error {
	h.Location = strings.TrimSpace(c.Query("location"))

	fromStr := c.Query("from")
	toStr := c.Query("to")
	if fromStr == "" || toStr == "" {
		return errors.New("from and to query parameters are required")
	}

	from, err := parseTime(fromStr)
	if err != nil {
		return err
	}
	to, err := parseTime(toStr)
	if err != nil {
		return err
	}

	h.From = from
	h.To = to
	return nil
}

// parseTime tries to parse either RFC3339 or Unix seconds.
func parseTime(s string) (time.Time, error) {
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		return ts, nil
	}
	if unix, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.Unix(unix, 0).UTC(), nil
	}
	return time.Time{}, errors.New("invalid time format; use RFC3339 or unix seconds")
}
