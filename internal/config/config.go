package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type AppConfig struct {
	// Provider selects the weather backend: openweather or openmeteo.
	Provider          string `validate:"oneof=openweather openmeteo"`
	OpenWeatherAPIKey string `validate:"required_if=Provider openweather"`
	// GeocoderAPIKey switches Open-Meteo name resolution to Google geocoding.
	GeocoderAPIKey string

	Units    string `validate:"omitempty,oneof=metric imperial kelvin"`
	Language string

	RequestTimeout time.Duration `validate:"gt=0"`
	MaxRetries     int           `validate:"gte=0,lte=10"`

	AgentID string `validate:"required"`

	// FetchInterval controls how often we fetch data for each watched location.
	FetchInterval time.Duration `validate:"gt=0"`

	// Locations to track.
	Locations []string `validate:"dive,required"`

	// In-memory store retention.
	StoreMaxHistory int           `validate:"gte=0"` // max number of snapshots per location (0 = unlimited)
	StoreMaxAge     time.Duration `validate:"gte=0"` // max age of snapshots (0 = unlimited)

	Port string `validate:"required,numeric"`
}

// fileConfig is the optional YAML overlay named by CONFIG_FILE.
// Environment variables take precedence over it.
type fileConfig struct {
	Provider       string   `yaml:"provider"`
	Units          string   `yaml:"units"`
	Language       string   `yaml:"language"`
	RequestTimeout string   `yaml:"request_timeout"`
	MaxRetries     *int     `yaml:"max_retries"`
	AgentID        string   `yaml:"agent_id"`
	FetchInterval  string   `yaml:"fetch_interval"`
	Locations      []string `yaml:"locations"`
	Store          struct {
		MaxHistory *int   `yaml:"max_history"`
		MaxAge     string `yaml:"max_age"`
	} `yaml:"store"`
	Port string `yaml:"port"`
}

var validate = validator.New()

func defaults() *AppConfig {
	return &AppConfig{
		Provider:        "openweather",
		Units:           "metric",
		Language:        "en",
		RequestTimeout:  5 * time.Second,
		MaxRetries:      0,
		AgentID:         "weather-agent",
		FetchInterval:   15 * time.Minute,
		StoreMaxHistory: 96, // roughly 24h at 15-minute intervals
		StoreMaxAge:     24 * time.Hour,
		Port:            "8080",
	}
}

// Load reads configuration from the optional YAML file and the environment with sensible defaults.
func Load() (*AppConfig, error) {
	if err := godotenv.Load(); err != nil {
		log.Printf("INFO: No .env file found or error loading it: %v", err)
	}
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.applyFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

func (cfg *AppConfig) applyFile(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}

	setString(&cfg.Provider, fc.Provider)
	setString(&cfg.Units, fc.Units)
	setString(&cfg.Language, fc.Language)
	setString(&cfg.AgentID, fc.AgentID)
	setString(&cfg.Port, fc.Port)
	if fc.MaxRetries != nil {
		cfg.MaxRetries = *fc.MaxRetries
	}
	if fc.Store.MaxHistory != nil {
		cfg.StoreMaxHistory = *fc.Store.MaxHistory
	}
	if len(fc.Locations) > 0 {
		cfg.Locations = fc.Locations
	}

	for _, d := range []struct {
		name string
		raw  string
		dst  *time.Duration
	}{
		{"request_timeout", fc.RequestTimeout, &cfg.RequestTimeout},
		{"fetch_interval", fc.FetchInterval, &cfg.FetchInterval},
		{"store.max_age", fc.Store.MaxAge, &cfg.StoreMaxAge},
	} {
		if d.raw == "" {
			continue
		}
		v, err := time.ParseDuration(d.raw)
		if err != nil {
			return fmt.Errorf("invalid %s in %s: %w", d.name, path, err)
		}
		*d.dst = v
	}
	return nil
}

func (cfg *AppConfig) applyEnv() error {
	cfg.Provider = strings.ToLower(getenvDefault("WEATHER_PROVIDER", cfg.Provider))
	cfg.OpenWeatherAPIKey = os.Getenv("OPENWEATHER_API_KEY")
	cfg.GeocoderAPIKey = os.Getenv("GEOCODER_API_KEY")
	cfg.Units = strings.ToLower(getenvDefault("WEATHER_UNITS", cfg.Units))
	cfg.Language = getenvDefault("WEATHER_LANG", cfg.Language)
	cfg.MaxRetries = getenvInt("MAX_RETRIES", cfg.MaxRetries)
	cfg.AgentID = getenvDefault("AGENT_ID", cfg.AgentID)
	cfg.StoreMaxHistory = getenvInt("STORE_MAX_HISTORY", cfg.StoreMaxHistory)
	cfg.Port = getenvDefault("PORT", cfg.Port)

	var err error
	if cfg.RequestTimeout, err = getenvDuration("REQUEST_TIMEOUT", cfg.RequestTimeout); err != nil {
		return err
	}
	if cfg.FetchInterval, err = getenvDuration("FETCH_INTERVAL", cfg.FetchInterval); err != nil {
		return err
	}
	if cfg.StoreMaxAge, err = getenvDuration("STORE_MAX_AGE", cfg.StoreMaxAge); err != nil {
		return err
	}

	if v := os.Getenv("WATCH_LOCATIONS"); v != "" {
		cfg.Locations = splitList(v)
	}
	return nil
}

// splitList parses a comma separated list, dropping blanks.
func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func getenvDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		n, err := strconv.Atoi(v)
		if err == nil {
			return n
		}
	}
	return def
}

func getenvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}
