package weather

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestValidateCoordinates(t *testing.T) {
	cases := []struct {
		name string
		in   Coordinates
		kind Kind
	}{
		{"ok", Coordinates{Latitude: 35.68, Longitude: 139.69}, ""},
		{"edges", Coordinates{Latitude: -90, Longitude: 180}, ""},
		{"lat below", Coordinates{Latitude: -91}, KindOutOfRange},
		{"lat above", Coordinates{Latitude: 91}, KindOutOfRange},
		{"lon below", Coordinates{Longitude: -181}, KindOutOfRange},
		{"lon above", Coordinates{Longitude: 181}, KindOutOfRange},
		{"nan", Coordinates{Latitude: math.NaN()}, KindInvalidArgument},
		{"inf", Coordinates{Longitude: math.Inf(1)}, KindInvalidArgument},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidateCoordinates(tc.in)
			if tc.kind == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			require.Equal(t, tc.kind, KindOf(err))
		})
	}
}

func TestValidateLocation(t *testing.T) {
	require.NoError(t, ValidateLocation("Tokyo"))

	err := ValidateLocation("   ")
	require.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNormalizeDays(t *testing.T) {
	d, err := NormalizeDays(0)
	require.NoError(t, err)
	require.Equal(t, DefaultForecastDays, d)

	d, err = NormalizeDays(3)
	require.NoError(t, err)
	require.Equal(t, 3, d)

	_, err = NormalizeDays(6)
	require.ErrorIs(t, err, ErrOutOfRange)
	_, err = NormalizeDays(-1)
	require.ErrorIs(t, err, ErrOutOfRange)
}

func TestParseUnits(t *testing.T) {
	u, err := ParseUnits(" Imperial ")
	require.NoError(t, err)
	require.Equal(t, UnitsImperial, u)

	u, err = ParseUnits("")
	require.NoError(t, err)
	require.Equal(t, UnitsMetric, u.Resolve(UnitsMetric))

	_, err = ParseUnits("rankine")
	require.Equal(t, KindInvalidArgument, KindOf(err))
}

func TestErrorUnwrapsToSentinelAndCause(t *testing.T) {
	cause := errors.New("dial tcp: connection refused")
	err := error(Transport("current", cause))

	require.ErrorIs(t, err, ErrTransport)
	require.ErrorIs(t, err, cause)
	require.NotErrorIs(t, err, ErrTimeout)

	te := Timeout("forecast", 5*time.Second, nil)
	require.Contains(t, te.Error(), "timed out after 5s")

	up := Upstream("coords", 503, "service unavailable")
	require.Equal(t, 503, up.StatusCode)
	require.Equal(t, KindUpstream, KindOf(up))
	require.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
