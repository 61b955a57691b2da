package providers

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	"github.com/i474232898/weather-agent/internal/weather"
)

// DefaultTimeout bounds every outbound request unless overridden.
const DefaultTimeout = 5 * time.Second

// maxBodyBytes caps how much of an upstream response is read.
const maxBodyBytes = 4 << 20

// BackoffConfig controls exponential backoff behaviour.
// MaxRetries of zero means each call issues exactly one request.
type BackoffConfig struct {
	MaxRetries      int
	InitialInterval time.Duration
	MaxInterval     time.Duration
}

// HTTPClientConfig bundles HTTP client and resilience settings.
type HTTPClientConfig struct {
	Client  *http.Client
	Timeout time.Duration
	Backoff BackoffConfig
}

// Options configures a vendor provider.
type Options struct {
	APIKey       string
	BaseURL      string
	GeoURL       string
	DefaultUnits weather.Units
	Language     string
	Timeout      time.Duration
	MaxRetries   int
}

func (o Options) httpConfig(client *http.Client) HTTPClientConfig {
	timeout := o.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return HTTPClientConfig{
		Client:  client,
		Timeout: timeout,
		Backoff: BackoffConfig{
			MaxRetries:      o.MaxRetries,
			InitialInterval: 500 * time.Millisecond,
			MaxInterval:     5 * time.Second,
		},
	}
}

func (o Options) units(u weather.Units) weather.Units {
	def := o.DefaultUnits
	if def == "" {
		def = weather.UnitsMetric
	}
	return u.Resolve(def)
}

var (
	errRetryable     = errors.New("retryable upstream status")
	errNoHTTPClient  = errors.New("http client not configured")
	errInvalidConfig = errors.New("invalid backoff configuration")
)

// rawResponse is what the circuit breaker hands back for any completed round trip.
type rawResponse struct {
	status int
	body   []byte
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// getJSON issues a GET bounded by cfg.Timeout through the circuit breaker and returns the
// body of a 2xx response. Every failure comes back as a *weather.Error.
func getJSON(
	ctx context.Context,
	op string,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	url string,
) ([]byte, error) {
	if cfg.Client == nil {
		return nil, weather.Transport(op, errNoHTTPClient)
	}
	if cfg.Backoff.MaxRetries < 0 || (cfg.Backoff.MaxRetries > 0 && cfg.Backoff.InitialInterval <= 0) {
		return nil, weather.Transport(op, errInvalidConfig)
	}

	ctx, cancel := context.WithTimeout(ctx, cfg.Timeout)
	defer cancel()

	resp, err := doRequestWithResilience(ctx, cfg, cb, url)
	if err != nil {
		switch {
		case errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded):
			return nil, weather.Timeout(op, cfg.Timeout, err)
		case errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests):
			return nil, weather.Transport(op, fmt.Errorf("circuit breaker open: %w", err))
		default:
			return nil, weather.Transport(op, err)
		}
	}

	return classify(op, resp)
}

// doRequestWithResilience executes the request with optional retries and exponential
// backoff. Retries cover transport failures, 429 and 5xx only.
func doRequestWithResilience(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	url string,
) (*rawResponse, error) {
	var attempt int

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept", "application/json")

		result, err := cb.Execute(func() (interface{}, error) {
			resp, execErr := cfg.Client.Do(req)
			if execErr != nil {
				return nil, execErr
			}
			defer resp.Body.Close()

			body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			if readErr != nil {
				return nil, readErr
			}

			raw := &rawResponse{status: resp.StatusCode, body: body}
			// Only server-side trouble counts against the breaker.
			if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
				return raw, errRetryable
			}
			return raw, nil
		})

		raw, _ := result.(*rawResponse)
		if err == nil {
			return raw, nil
		}

		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, err
		}

		if attempt >= cfg.Backoff.MaxRetries {
			if raw != nil {
				// Final attempt got a response; let the caller classify its status.
				return raw, nil
			}
			return nil, err
		}

		delay := cfg.Backoff.InitialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > cfg.Backoff.MaxInterval && cfg.Backoff.MaxInterval > 0 {
			delay = cfg.Backoff.MaxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}

		attempt++
	}
}

// classify maps the upstream status onto the weather error kinds.
func classify(op string, resp *rawResponse) ([]byte, error) {
	if resp.status >= 200 && resp.status < 300 {
		return resp.body, nil
	}

	msg := upstreamMessage(resp.body)
	switch resp.status {
	case http.StatusNotFound:
		return nil, weather.NotFound(op, msg)
	case http.StatusUnauthorized:
		return nil, weather.Unauthorized(op, msg)
	default:
		return nil, weather.Upstream(op, resp.status, msg)
	}
}

// upstreamMessage pulls the human-readable error out of a vendor error body.
// OpenWeatherMap uses "message", Open-Meteo uses "reason".
func upstreamMessage(body []byte) string {
	if !gjson.ValidBytes(body) {
		return ""
	}
	r := gjson.GetManyBytes(body, "message", "reason")
	for _, v := range r {
		if v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

func round(f float64) float64 {
	return math.Round(f)
}
