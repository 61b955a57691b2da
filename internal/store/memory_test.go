package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/i474232898/weather-agent/internal/weather"
)

func snapAt(ts time.Time, temp float64) weather.WeatherSnapshot {
	return weather.WeatherSnapshot{Location: "Tokyo", Temperature: temp, Timestamp: ts}
}

func TestMemoryStoreLatestAndRange(t *testing.T) {
	s := NewMemoryStore(0, 0)
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	s.SaveSnapshot("Tokyo", snapAt(base.Add(time.Hour), 2))
	s.SaveSnapshot(" tokyo ", snapAt(base, 1))
	s.SaveSnapshot("TOKYO", snapAt(base.Add(2*time.Hour), 3))

	latest, err := s.GetLatest("tokyo")
	require.NoError(t, err)
	require.Equal(t, 3.0, latest.Temperature)

	got, err := s.GetRange("Tokyo", base, base.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, 1.0, got[0].Temperature)

	_, err = s.GetRange("Tokyo", base.Add(5*time.Hour), base.Add(6*time.Hour))
	require.ErrorIs(t, err, ErrNotFound)

	_, err = s.GetLatest("Osaka")
	require.ErrorIs(t, err, ErrNotFound)

	require.Equal(t, []string{"tokyo"}, s.Locations())
}

func TestMemoryStoreRetention(t *testing.T) {
	now := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)

	byCount := NewMemoryStore(2, 0)
	for i := 0; i < 4; i++ {
		byCount.SaveSnapshot("Tokyo", snapAt(now.Add(time.Duration(i)*time.Minute), float64(i)))
	}
	all, err := byCount.GetRange("Tokyo", now.Add(-time.Hour), now.Add(time.Hour))
	require.NoError(t, err)
	require.Len(t, all, 2)
	require.Equal(t, 2.0, all[0].Temperature)

	byAge := NewMemoryStore(0, time.Hour)
	byAge.now = func() time.Time { return now }
	byAge.SaveSnapshot("Tokyo", snapAt(now.Add(-3*time.Hour), 1))
	byAge.SaveSnapshot("Tokyo", snapAt(now.Add(-30*time.Minute), 2))
	all, err = byAge.GetRange("Tokyo", now.Add(-24*time.Hour), now)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, 2.0, all[0].Temperature)

	// A lone stale snapshot is still kept as the latest known value.
	stale := NewMemoryStore(0, time.Hour)
	stale.now = func() time.Time { return now }
	stale.SaveSnapshot("Tokyo", snapAt(now.Add(-5*time.Hour), 9))
	latest, err := stale.GetLatest("Tokyo")
	require.NoError(t, err)
	require.Equal(t, 9.0, latest.Temperature)
}
