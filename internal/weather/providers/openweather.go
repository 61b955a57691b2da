package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-agent/internal/weather"
)

const (
	openWeatherBaseURL = "https://api.openweathermap.org/data/2.5"
	openWeatherGeoURL  = "https://api.openweathermap.org/geo/1.0"

	// samplesPerDay is the number of 3-hour slots in a day of /forecast output.
	samplesPerDay = 8
)

// OpenWeatherProvider implements weather.Provider and weather.PlaceSearcher for OpenWeatherMap.
type OpenWeatherProvider struct {
	name    string
	opts    Options
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenWeatherProvider(client *http.Client, opts Options) *OpenWeatherProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = openWeatherBaseURL
	}
	if opts.GeoURL == "" {
		opts.GeoURL = openWeatherGeoURL
	}
	if opts.Language == "" {
		opts.Language = "en"
	}

	return &OpenWeatherProvider{
		name:    "openweathermap",
		opts:    opts,
		httpCfg: opts.httpConfig(client),
		circuit: newBreaker("openweather"),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

// CurrentWeather fetches current conditions for a free-text place name.
func (p *OpenWeatherProvider) CurrentWeather(ctx context.Context, location string, units weather.Units) (weather.WeatherSnapshot, error) {
	if err := weather.ValidateLocation(location); err != nil {
		return weather.WeatherSnapshot{}, err
	}
	u, err := p.resolveUnits(units)
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}

	values := p.query(u)
	values.Set("q", location)
	return p.fetchCurrent(ctx, "current weather", values, u)
}

// WeatherByCoordinates fetches current conditions for a latitude/longitude pair.
func (p *OpenWeatherProvider) WeatherByCoordinates(ctx context.Context, coords weather.Coordinates, units weather.Units) (weather.WeatherSnapshot, error) {
	if err := weather.ValidateCoordinates(coords); err != nil {
		return weather.WeatherSnapshot{}, err
	}
	u, err := p.resolveUnits(units)
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}

	values := p.query(u)
	values.Set("lat", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	return p.fetchCurrent(ctx, "weather by coordinates", values, u)
}

// Forecast fetches the 3-hourly forecast and folds it into daily summaries.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, location string, days int, units weather.Units) (weather.ForecastSnapshot, error) {
	if err := weather.ValidateLocation(location); err != nil {
		return weather.ForecastSnapshot{}, err
	}
	days, err := weather.NormalizeDays(days)
	if err != nil {
		return weather.ForecastSnapshot{}, err
	}
	u, err := p.resolveUnits(units)
	if err != nil {
		return weather.ForecastSnapshot{}, err
	}

	values := p.query(u)
	values.Set("q", location)
	values.Set("cnt", strconv.Itoa(days*samplesPerDay))

	body, err := getJSON(ctx, "forecast", p.httpCfg, p.circuit, p.opts.BaseURL+"/forecast?"+values.Encode())
	if err != nil {
		return weather.ForecastSnapshot{}, err
	}

	var payload struct {
		List []struct {
			Dt   int64 `json:"dt"`
			Main struct {
				Temp     float64 `json:"temp"`
				TempMin  float64 `json:"temp_min"`
				TempMax  float64 `json:"temp_max"`
				Humidity float64 `json:"humidity"`
			} `json:"main"`
			Weather []openWeatherCondition `json:"weather"`
			Wind    struct {
				Speed float64 `json:"speed"`
			} `json:"wind"`
			Rain struct {
				ThreeH float64 `json:"3h"`
			} `json:"rain"`
			Snow struct {
				ThreeH float64 `json:"3h"`
			} `json:"snow"`
		} `json:"list"`
		City struct {
			Name     string `json:"name"`
			Country  string `json:"country"`
			Timezone int    `json:"timezone"`
			Coord    struct {
				Lat float64 `json:"lat"`
				Lon float64 `json:"lon"`
			} `json:"coord"`
		} `json:"city"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.ForecastSnapshot{}, weather.Transport("forecast", fmt.Errorf("decode response: %w", err))
	}

	samples := make([]weather.ForecastSample, 0, len(payload.List))
	for _, item := range payload.List {
		desc, icon := firstCondition(item.Weather)
		samples = append(samples, weather.ForecastSample{
			Timestamp:     time.Unix(item.Dt, 0).UTC(),
			Temperature:   item.Main.Temp,
			TempMin:       item.Main.TempMin,
			TempMax:       item.Main.TempMax,
			Humidity:      item.Main.Humidity,
			WindSpeed:     item.Wind.Speed,
			Precipitation: item.Rain.ThreeH + item.Snow.ThreeH,
			Description:   desc,
			Icon:          icon,
		})
	}

	zone := time.FixedZone(payload.City.Name, payload.City.Timezone)
	return weather.ForecastSnapshot{
		Location: payload.City.Name,
		Country:  payload.City.Country,
		Coordinates: weather.Coordinates{
			Latitude:  payload.City.Coord.Lat,
			Longitude: payload.City.Coord.Lon,
		},
		Units:     u,
		Days:      weather.GroupForecast(samples, zone, days),
		Timestamp: time.Now().UTC(),
	}, nil
}

// SearchPlaces resolves a free-text query through the direct geocoding endpoint.
func (p *OpenWeatherProvider) SearchPlaces(ctx context.Context, query string, limit int) ([]weather.Place, error) {
	if err := weather.ValidateLocation(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}

	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", strconv.Itoa(limit))
	values.Set("appid", p.opts.APIKey)

	body, err := getJSON(ctx, "place search", p.httpCfg, p.circuit, p.opts.GeoURL+"/direct?"+values.Encode())
	if err != nil {
		return nil, err
	}

	var places []weather.Place
	if err := json.Unmarshal(body, &places); err != nil {
		return nil, weather.Transport("place search", fmt.Errorf("decode response: %w", err))
	}
	return places, nil
}

// ValidateConnection checks the key and endpoint with a query that always resolves.
func (p *OpenWeatherProvider) ValidateConnection(ctx context.Context) bool {
	_, err := p.CurrentWeather(ctx, "London", "")
	return err == nil
}

type openWeatherCondition struct {
	Main        string `json:"main"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

func firstCondition(items []openWeatherCondition) (string, string) {
	if len(items) == 0 {
		return "", ""
	}
	return items[0].Description, items[0].Icon
}

func (p *OpenWeatherProvider) resolveUnits(u weather.Units) (weather.Units, error) {
	if err := weather.ValidateUnits(u); err != nil {
		return "", err
	}
	return p.opts.units(u), nil
}

func (p *OpenWeatherProvider) query(u weather.Units) url.Values {
	values := url.Values{}
	values.Set("appid", p.opts.APIKey)
	values.Set("lang", p.opts.Language)
	switch u {
	case weather.UnitsKelvin:
		values.Set("units", "standard")
	default:
		values.Set("units", string(u))
	}
	return values
}

func (p *OpenWeatherProvider) fetchCurrent(ctx context.Context, op string, values url.Values, u weather.Units) (weather.WeatherSnapshot, error) {
	body, err := getJSON(ctx, op, p.httpCfg, p.circuit, p.opts.BaseURL+"/weather?"+values.Encode())
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}

	var payload struct {
		Dt    int64  `json:"dt"`
		Name  string `json:"name"`
		Coord struct {
			Lat float64 `json:"lat"`
			Lon float64 `json:"lon"`
		} `json:"coord"`
		Main struct {
			Temp      float64 `json:"temp"`
			FeelsLike float64 `json:"feels_like"`
			TempMin   float64 `json:"temp_min"`
			TempMax   float64 `json:"temp_max"`
			Humidity  float64 `json:"humidity"`
			Pressure  float64 `json:"pressure"`
		} `json:"main"`
		Visibility float64 `json:"visibility"`
		Wind       struct {
			Speed float64 `json:"speed"`
			Deg   float64 `json:"deg"`
		} `json:"wind"`
		Weather []openWeatherCondition `json:"weather"`
		Sys     struct {
			Country string `json:"country"`
		} `json:"sys"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return weather.WeatherSnapshot{}, weather.Transport(op, fmt.Errorf("decode response: %w", err))
	}

	ts := time.Unix(payload.Dt, 0).UTC()
	if payload.Dt == 0 {
		ts = time.Now().UTC()
	}

	desc, icon := firstCondition(payload.Weather)
	return weather.WeatherSnapshot{
		Location: payload.Name,
		Country:  payload.Sys.Country,
		Coordinates: weather.Coordinates{
			Latitude:  payload.Coord.Lat,
			Longitude: payload.Coord.Lon,
		},
		Temperature:   round(payload.Main.Temp),
		FeelsLike:     round(payload.Main.FeelsLike),
		TempMin:       round(payload.Main.TempMin),
		TempMax:       round(payload.Main.TempMax),
		Humidity:      payload.Main.Humidity,
		Pressure:      payload.Main.Pressure,
		WindSpeed:     payload.Wind.Speed,
		WindDirection: payload.Wind.Deg,
		Visibility:    payload.Visibility,
		Description:   desc,
		Icon:          icon,
		Units:         u,
		Timestamp:     ts,
	}, nil
}
