package providers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kelvins/geocoder"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/i474232898/weather-agent/internal/weather"
)

const (
	openMeteoBaseURL = "https://api.open-meteo.com/v1"
	openMeteoGeoURL  = "https://geocoding-api.open-meteo.com/v1"

	kelvinOffset = 273.15

	// geocoderZeroResults is the geocoder package's message for Google's ZERO_RESULTS.
	geocoderZeroResults = "No results found."
)

// placeResolver turns a free-text place name into coordinates.
type placeResolver func(ctx context.Context, name string) (weather.Place, error)

// OpenMeteoProvider implements weather.Provider and weather.PlaceSearcher for Open-Meteo.
// Open-Meteo needs no API key. Place names are geocoded through Google when
// Options.APIKey is set, otherwise through the Open-Meteo geocoding API.
type OpenMeteoProvider struct {
	name    string
	opts    Options
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
	resolve placeResolver
}

func NewOpenMeteoProvider(client *http.Client, opts Options) *OpenMeteoProvider {
	if opts.BaseURL == "" {
		opts.BaseURL = openMeteoBaseURL
	}
	if opts.GeoURL == "" {
		opts.GeoURL = openMeteoGeoURL
	}
	if opts.Language == "" {
		opts.Language = "en"
	}

	p := &OpenMeteoProvider{
		name:    "openmeteo",
		opts:    opts,
		httpCfg: opts.httpConfig(client),
		circuit: newBreaker("openmeteo"),
	}
	p.resolve = p.resolveOpenMeteo
	if opts.APIKey != "" {
		p.resolve = googleResolver(opts.APIKey)
	}
	return p
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

func (p *OpenMeteoProvider) CurrentWeather(ctx context.Context, location string, units weather.Units) (weather.WeatherSnapshot, error) {
	if err := weather.ValidateLocation(location); err != nil {
		return weather.WeatherSnapshot{}, err
	}
	u, err := p.resolveUnits(units)
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}

	place, err := p.lookup(ctx, location)
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}

	snap, err := p.fetchCurrent(ctx, "current weather", weather.Coordinates{Latitude: place.Latitude, Longitude: place.Longitude}, u)
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}
	snap.Location = place.Name
	snap.Country = place.Country
	return snap, nil
}

func (p *OpenMeteoProvider) WeatherByCoordinates(ctx context.Context, coords weather.Coordinates, units weather.Units) (weather.WeatherSnapshot, error) {
	if err := weather.ValidateCoordinates(coords); err != nil {
		return weather.WeatherSnapshot{}, err
	}
	u, err := p.resolveUnits(units)
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}
	return p.fetchCurrent(ctx, "weather by coordinates", coords, u)
}

func (p *OpenMeteoProvider) Forecast(ctx context.Context, location string, days int, units weather.Units) (weather.ForecastSnapshot, error) {
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

	place, err := p.lookup(ctx, location)
	if err != nil {
		return weather.ForecastSnapshot{}, err
	}
	coords := weather.Coordinates{Latitude: place.Latitude, Longitude: place.Longitude}

	values := p.query(coords, u)
	values.Set("hourly", "temperature_2m,relative_humidity_2m,wind_speed_10m,weather_code,precipitation,is_day")
	values.Set("forecast_days", strconv.Itoa(days))

	body, err := getJSON(ctx, "forecast", p.httpCfg, p.circuit, p.opts.BaseURL+"/forecast?"+values.Encode())
	if err != nil {
		return weather.ForecastSnapshot{}, err
	}
	if !gjson.ValidBytes(body) {
		return weather.ForecastSnapshot{}, weather.Transport("forecast", fmt.Errorf("decode response: invalid json"))
	}

	doc := gjson.ParseBytes(body)
	hourly := doc.Get("hourly")
	times := hourly.Get("time").Array()
	temps := hourly.Get("temperature_2m").Array()
	humidity := hourly.Get("relative_humidity_2m").Array()
	wind := hourly.Get("wind_speed_10m").Array()
	codes := hourly.Get("weather_code").Array()
	precip := hourly.Get("precipitation").Array()
	isDay := hourly.Get("is_day").Array()

	samples := make([]weather.ForecastSample, 0, len(times))
	for i, ts := range times {
		temp := convertTemp(at(temps, i).Float(), u)
		desc, icon := describeWMO(int(at(codes, i).Int()), at(isDay, i).Int() != 0)
		samples = append(samples, weather.ForecastSample{
			Timestamp:     time.Unix(ts.Int(), 0).UTC(),
			Temperature:   temp,
			TempMin:       temp,
			TempMax:       temp,
			Humidity:      at(humidity, i).Float(),
			WindSpeed:     at(wind, i).Float(),
			Precipitation: at(precip, i).Float(),
			Description:   desc,
			Icon:          icon,
		})
	}

	zone := time.FixedZone(place.Name, int(doc.Get("utc_offset_seconds").Int()))
	return weather.ForecastSnapshot{
		Location:    place.Name,
		Country:     place.Country,
		Coordinates: coords,
		Units:       u,
		Days:        weather.GroupForecast(samples, zone, days),
		Timestamp:   time.Now().UTC(),
	}, nil
}

// SearchPlaces always uses the Open-Meteo geocoding API; Google geocoding returns a single match.
func (p *OpenMeteoProvider) SearchPlaces(ctx context.Context, query string, limit int) ([]weather.Place, error) {
	if err := weather.ValidateLocation(query); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 5
	}
	return p.searchOpenMeteo(ctx, query, limit)
}

func (p *OpenMeteoProvider) ValidateConnection(ctx context.Context) bool {
	_, err := p.WeatherByCoordinates(ctx, weather.Coordinates{Latitude: 51.5072, Longitude: -0.1276}, "")
	return err == nil
}

func (p *OpenMeteoProvider) fetchCurrent(ctx context.Context, op string, coords weather.Coordinates, u weather.Units) (weather.WeatherSnapshot, error) {
	values := p.query(coords, u)
	values.Set("current", "temperature_2m,apparent_temperature,relative_humidity_2m,surface_pressure,"+
		"wind_speed_10m,wind_direction_10m,weather_code,visibility,uv_index,is_day")

	body, err := getJSON(ctx, op, p.httpCfg, p.circuit, p.opts.BaseURL+"/forecast?"+values.Encode())
	if err != nil {
		return weather.WeatherSnapshot{}, err
	}
	if !gjson.ValidBytes(body) {
		return weather.WeatherSnapshot{}, weather.Transport(op, fmt.Errorf("decode response: invalid json"))
	}

	doc := gjson.ParseBytes(body)
	cur := doc.Get("current")

	ts := time.Unix(cur.Get("time").Int(), 0).UTC()
	if !cur.Get("time").Exists() {
		ts = time.Now().UTC()
	}

	var uv *float64
	if v := cur.Get("uv_index"); v.Exists() && v.Type == gjson.Number {
		f := v.Float()
		uv = &f
	}

	temp := round(convertTemp(cur.Get("temperature_2m").Float(), u))
	desc, icon := describeWMO(int(cur.Get("weather_code").Int()), cur.Get("is_day").Int() != 0)

	return weather.WeatherSnapshot{
		Coordinates: weather.Coordinates{
			Latitude:  doc.Get("latitude").Float(),
			Longitude: doc.Get("longitude").Float(),
		},
		Temperature:   temp,
		FeelsLike:     round(convertTemp(cur.Get("apparent_temperature").Float(), u)),
		TempMin:       temp,
		TempMax:       temp,
		Humidity:      cur.Get("relative_humidity_2m").Float(),
		Pressure:      cur.Get("surface_pressure").Float(),
		WindSpeed:     cur.Get("wind_speed_10m").Float(),
		WindDirection: cur.Get("wind_direction_10m").Float(),
		Visibility:    cur.Get("visibility").Float(),
		UVIndex:       uv,
		Description:   desc,
		Icon:          icon,
		Units:         u,
		Timestamp:     ts,
	}, nil
}

func (p *OpenMeteoProvider) query(coords weather.Coordinates, u weather.Units) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(coords.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(coords.Longitude, 'f', -1, 64))
	values.Set("timeformat", "unixtime")
	values.Set("timezone", "auto")
	if u == weather.UnitsImperial {
		values.Set("temperature_unit", "fahrenheit")
		values.Set("wind_speed_unit", "mph")
	} else {
		values.Set("wind_speed_unit", "ms")
	}
	return values
}

func (p *OpenMeteoProvider) resolveUnits(u weather.Units) (weather.Units, error) {
	if err := weather.ValidateUnits(u); err != nil {
		return "", err
	}
	return p.opts.units(u), nil
}

func (p *OpenMeteoProvider) resolveOpenMeteo(ctx context.Context, name string) (weather.Place, error) {
	places, err := p.searchOpenMeteo(ctx, name, 1)
	if err != nil {
		return weather.Place{}, err
	}
	if len(places) == 0 {
		return weather.Place{}, weather.NotFound("geocoding", fmt.Sprintf("city not found: %s", name))
	}
	return places[0], nil
}

func (p *OpenMeteoProvider) searchOpenMeteo(ctx context.Context, name string, limit int) ([]weather.Place, error) {
	values := url.Values{}
	values.Set("name", name)
	values.Set("count", strconv.Itoa(limit))
	values.Set("language", p.opts.Language)
	values.Set("format", "json")

	body, err := getJSON(ctx, "geocoding", p.httpCfg, p.circuit, p.opts.GeoURL+"/search?"+values.Encode())
	if err != nil {
		return nil, err
	}

	results := gjson.GetBytes(body, "results").Array()
	places := make([]weather.Place, 0, len(results))
	for _, r := range results {
		places = append(places, weather.Place{
			Name:      r.Get("name").String(),
			Country:   r.Get("country_code").String(),
			State:     r.Get("admin1").String(),
			Latitude:  r.Get("latitude").Float(),
			Longitude: r.Get("longitude").Float(),
		})
	}
	return places, nil
}

// lookup resolves a place name within the request timeout. The Google geocoder takes
// no context, so a slow lookup is abandoned rather than cancelled.
func (p *OpenMeteoProvider) lookup(ctx context.Context, name string) (weather.Place, error) {
	ctx, cancel := context.WithTimeout(ctx, p.httpCfg.Timeout)
	defer cancel()

	type result struct {
		place weather.Place
		err   error
	}
	done := make(chan result, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- result{err: weather.Transport("geocoding", fmt.Errorf("geocoder panic: %v", r))}
			}
		}()
		place, err := p.resolve(ctx, name)
		done <- result{place: place, err: err}
	}()

	select {
	case r := <-done:
		return r.place, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return weather.Place{}, weather.Timeout("geocoding", p.httpCfg.Timeout, ctx.Err())
		}
		return weather.Place{}, weather.Transport("geocoding", ctx.Err())
	}
}

// googleResolver geocodes with the Google Maps API. The geocoder package keeps its
// key in a package variable, so the last configured provider wins.
func googleResolver(apiKey string) placeResolver {
	geocoder.ApiKey = apiKey
	return func(ctx context.Context, name string) (weather.Place, error) {
		if err := ctx.Err(); err != nil {
			return weather.Place{}, weather.Transport("geocoding", err)
		}
		loc, err := geocoder.Geocoding(geocoder.Address{City: name})
		if err != nil {
			return weather.Place{}, classifyGeocoding(name, err)
		}
		return weather.Place{Name: name, Latitude: loc.Latitude, Longitude: loc.Longitude}, nil
	}
}

// classifyGeocoding maps the geocoder's status messages onto error kinds.
// The package reports Google statuses only as message strings.
func classifyGeocoding(name string, err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return weather.Transport("geocoding", err)
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case msg == geocoderZeroResults:
		return weather.NotFound("geocoding", "city not found: "+name)
	case strings.Contains(lower, "quota"):
		return weather.Upstream("geocoding", http.StatusTooManyRequests, msg)
	case strings.Contains(lower, "api key"), strings.Contains(lower, "denied"), strings.Contains(lower, "not authorized"):
		return weather.Unauthorized("geocoding", msg)
	default:
		return weather.Transport("geocoding", err)
	}
}

func at(values []gjson.Result, i int) gjson.Result {
	if i < len(values) {
		return values[i]
	}
	return gjson.Result{}
}

func convertTemp(celsiusOrF float64, u weather.Units) float64 {
	if u == weather.UnitsKelvin {
		return celsiusOrF + kelvinOffset
	}
	return celsiusOrF
}

// describeWMO maps a WMO weather interpretation code onto a description and an
// OpenWeatherMap-style icon code, so both vendors render the same icon set.
func describeWMO(code int, day bool) (string, string) {
	suffix := "n"
	if day {
		suffix = "d"
	}
	switch {
	case code == 0:
		return "clear sky", "01" + suffix
	case code == 1:
		return "mainly clear", "02" + suffix
	case code == 2:
		return "partly cloudy", "03" + suffix
	case code == 3:
		return "overcast clouds", "04" + suffix
	case code == 45 || code == 48:
		return "fog", "50" + suffix
	case code >= 51 && code <= 57:
		return "drizzle", "09" + suffix
	case (code >= 61 && code <= 67) || (code >= 80 && code <= 82):
		return "rain", "10" + suffix
	case (code >= 71 && code <= 77) || code == 85 || code == 86:
		return "snow", "13" + suffix
	case code >= 95:
		return "thunderstorm", "11" + suffix
	default:
		return "unknown", ""
	}
}
