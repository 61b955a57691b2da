package httpapi

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-agent/internal/agent"
	"github.com/i474232898/weather-agent/internal/store"
	"github.com/i474232898/weather-agent/internal/weather"
)

type fakeProvider struct {
	err error
}

func (f *fakeProvider) CurrentWeather(ctx context.Context, location string, units weather.Units) (weather.WeatherSnapshot, error) {
	if f.err != nil {
		return weather.WeatherSnapshot{}, f.err
	}
	return weather.WeatherSnapshot{Location: location, Country: "JP", Temperature: 22, Units: units.Resolve(weather.UnitsMetric)}, nil
}

func (f *fakeProvider) Forecast(ctx context.Context, location string, days int, units weather.Units) (weather.ForecastSnapshot, error) {
	if f.err != nil {
		return weather.ForecastSnapshot{}, f.err
	}
	return weather.ForecastSnapshot{Location: location, Days: make([]weather.ForecastDay, days)}, nil
}

func (f *fakeProvider) WeatherByCoordinates(ctx context.Context, c weather.Coordinates, units weather.Units) (weather.WeatherSnapshot, error) {
	if f.err != nil {
		return weather.WeatherSnapshot{}, f.err
	}
	return weather.WeatherSnapshot{Location: "Shibuya", Coordinates: c}, nil
}

func (f *fakeProvider) ValidateConnection(ctx context.Context) bool { return f.err == nil }

func (f *fakeProvider) SearchPlaces(ctx context.Context, query string, limit int) ([]weather.Place, error) {
	return []weather.Place{{Name: query, Country: "JP", Latitude: 35.68, Longitude: 139.69}}, nil
}

func newTestApp(t *testing.T, p weather.Provider) (*fiber.App, *store.MemoryStore) {
	t.Helper()

	a := agent.New(p, agent.WithSourceID("test-agent"))
	reg := agent.NewRegistry()
	require.NoError(t, a.RegisterCapabilities(reg))

	mem := store.NewMemoryStore(10, 0)
	app := fiber.New()
	RegisterRoutes(app, a, reg, mem)
	return app, mem
}

func do(t *testing.T, app *fiber.App, req *http.Request) (int, map[string]any) {
	t.Helper()
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var out map[string]any
	_ = json.Unmarshal(body, &out)
	return resp.StatusCode, out
}

func TestCurrentWeather(t *testing.T) {
	app, _ := newTestApp(t, &fakeProvider{})

	code, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?location=Tokyo", nil))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Tokyo", body["location"])
	require.Equal(t, 22.0, body["temperature"])

	code, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/weather/current", nil))
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?location=Tokyo&units=rankine", nil))
	require.Equal(t, http.StatusBadRequest, code)
}

// TestForecastDaysValidation verifies that the forecast endpoint enforces the
// 0-5 range for the `days` query parameter.
func TestForecastDaysValidation(t *testing.T) {
	app, _ := newTestApp(t, &fakeProvider{})

	code, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/weather/forecast?location=Paris", nil))
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["days"], weather.DefaultForecastDays)

	code, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/weather/forecast?location=Paris&days=8", nil))
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/weather/forecast?location=Paris&days=two", nil))
	require.Equal(t, http.StatusBadRequest, code)
}

func TestCoordinates(t *testing.T) {
	app, _ := newTestApp(t, &fakeProvider{})

	code, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/weather/coords?lat=35.66&lon=139.7", nil))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "Shibuya", body["location"])

	code, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/weather/coords?lat=95&lon=0", nil))
	require.Equal(t, http.StatusBadRequest, code)

	code, _ = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/weather/coords?lat=10", nil))
	require.Equal(t, http.StatusBadRequest, code)
}

func TestUpstreamErrorStatusMapping(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{weather.NotFound("current weather", "city not found"), http.StatusNotFound},
		{weather.Timeout("current weather", 5*time.Second, context.DeadlineExceeded), http.StatusGatewayTimeout},
		{weather.Upstream("current weather", 500, "boom"), http.StatusBadGateway},
		{weather.Unauthorized("current weather", "invalid key"), http.StatusBadGateway},
	}
	for _, tc := range cases {
		app, _ := newTestApp(t, &fakeProvider{err: tc.err})
		code, _ := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/weather/current?location=Tokyo", nil))
		require.Equal(t, tc.want, code, tc.err.Error())
	}
}

func TestCapabilities(t *testing.T) {
	app, _ := newTestApp(t, &fakeProvider{})

	code, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/capabilities", nil))
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["capabilities"], len(agent.Operations()))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/capabilities/get_current_weather",
		strings.NewReader(`{"location":"Tokyo"}`))
	req.Header.Set("Content-Type", "application/json")
	code, body = do(t, app, req)
	require.Equal(t, http.StatusOK, code)
	result, ok := body["result"].(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Tokyo", result["location"])

	req = httptest.NewRequest(http.MethodPost, "/api/v1/capabilities/get_alerts", strings.NewReader(`{}`))
	code, _ = do(t, app, req)
	require.Equal(t, http.StatusNotFound, code)

	req = httptest.NewRequest(http.MethodPost, "/api/v1/capabilities/get_forecast", strings.NewReader(`{"location":"Tokyo","days":9}`))
	code, _ = do(t, app, req)
	require.Equal(t, http.StatusBadRequest, code)
}

func TestHistory(t *testing.T) {
	app, mem := newTestApp(t, &fakeProvider{})
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	mem.SaveSnapshot("Tokyo", weather.WeatherSnapshot{Location: "Tokyo", Timestamp: base})

	url := "/api/v1/weather/history?location=tokyo&from=2026-03-01T00:00:00Z&to=2026-03-02T00:00:00Z"
	code, body := do(t, app, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["snapshots"], 1)

	url = "/api/v1/weather/history?location=tokyo&from=2026-03-02T00:00:00Z&to=2026-03-01T00:00:00Z"
	code, _ = do(t, app, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusBadRequest, code)

	url = "/api/v1/weather/history?location=osaka&from=0&to=1900000000"
	code, _ = do(t, app, httptest.NewRequest(http.MethodGet, url, nil))
	require.Equal(t, http.StatusNotFound, code)
}

func TestSearchAndStatus(t *testing.T) {
	app, _ := newTestApp(t, &fakeProvider{})

	code, body := do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/geo/search?q=Tokyo&limit=3", nil))
	require.Equal(t, http.StatusOK, code)
	require.Len(t, body["results"], 1)

	code, body = do(t, app, httptest.NewRequest(http.MethodGet, "/api/v1/status", nil))
	require.Equal(t, http.StatusOK, code)
	require.Equal(t, "test-agent", body["agentId"])
	require.Equal(t, true, body["connected"])
}
