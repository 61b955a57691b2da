package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

var envKeys = []string{
	"CONFIG_FILE", "WEATHER_PROVIDER", "OPENWEATHER_API_KEY", "GEOCODER_API_KEY",
	"WEATHER_UNITS", "WEATHER_LANG", "REQUEST_TIMEOUT", "MAX_RETRIES", "FETCH_INTERVAL",
	"WATCH_LOCATIONS", "STORE_MAX_HISTORY", "STORE_MAX_AGE", "AGENT_ID", "PORT",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range envKeys {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENWEATHER_API_KEY", "key")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "openweather", cfg.Provider)
	require.Equal(t, "metric", cfg.Units)
	require.Equal(t, 5*time.Second, cfg.RequestTimeout)
	require.Equal(t, 0, cfg.MaxRetries)
	require.Equal(t, 15*time.Minute, cfg.FetchInterval)
	require.Equal(t, 96, cfg.StoreMaxHistory)
	require.Equal(t, 24*time.Hour, cfg.StoreMaxAge)
	require.Equal(t, "weather-agent", cfg.AgentID)
	require.Equal(t, "8080", cfg.Port)
	require.Empty(t, cfg.Locations)
}

func TestLoadEnvOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_PROVIDER", "OpenMeteo")
	t.Setenv("WEATHER_UNITS", "imperial")
	t.Setenv("REQUEST_TIMEOUT", "2s")
	t.Setenv("MAX_RETRIES", "2")
	t.Setenv("WATCH_LOCATIONS", "Tokyo, Paris,, London ")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "openmeteo", cfg.Provider)
	require.Equal(t, "imperial", cfg.Units)
	require.Equal(t, 2*time.Second, cfg.RequestTimeout)
	require.Equal(t, 2, cfg.MaxRetries)
	require.Equal(t, []string{"Tokyo", "Paris", "London"}, cfg.Locations)
}

func TestLoadFileOverlay(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "agent.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
provider: openmeteo
units: kelvin
fetch_interval: 5m
locations: [Oslo, Bergen]
store:
  max_history: 10
  max_age: 2h
`), 0o600))
	t.Setenv("CONFIG_FILE", path)
	t.Setenv("WEATHER_UNITS", "metric")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, "openmeteo", cfg.Provider)
	require.Equal(t, "metric", cfg.Units, "environment wins over the file")
	require.Equal(t, 5*time.Minute, cfg.FetchInterval)
	require.Equal(t, []string{"Oslo", "Bergen"}, cfg.Locations)
	require.Equal(t, 10, cfg.StoreMaxHistory)
	require.Equal(t, 2*time.Hour, cfg.StoreMaxAge)
}

func TestLoadRejectsInvalid(t *testing.T) {
	clearEnv(t)
	t.Setenv("WEATHER_PROVIDER", "openweather")
	_, err := Load()
	require.Error(t, err, "openweather needs an API key")

	clearEnv(t)
	t.Setenv("WEATHER_PROVIDER", "darksky")
	_, err = Load()
	require.Error(t, err)

	clearEnv(t)
	t.Setenv("WEATHER_PROVIDER", "openmeteo")
	t.Setenv("FETCH_INTERVAL", "soon")
	_, err = Load()
	require.Error(t, err)
}
