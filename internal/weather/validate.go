package weather

import (
	"math"
	"strings"
)

// ValidateLocation rejects empty or blank place names.
func ValidateLocation(location string) error {
	if strings.TrimSpace(location) == "" {
		return InvalidArgument("location", "location must be a non-empty place name")
	}
	return nil
}

// ValidateCoordinates checks that both values are finite and within bounds.
func ValidateCoordinates(c Coordinates) error {
	if !finite(c.Latitude) || !finite(c.Longitude) {
		return InvalidArgument("coordinates", "latitude and longitude must be finite numbers")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return OutOfRange("latitude", "latitude %v out of range [-90, 90]", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return OutOfRange("longitude", "longitude %v out of range [-180, 180]", c.Longitude)
	}
	return nil
}

// NormalizeDays maps 0 to DefaultForecastDays and rejects anything outside 1..MaxForecastDays.
func NormalizeDays(days int) (int, error) {
	if days == 0 {
		return DefaultForecastDays, nil
	}
	if days < 1 || days > MaxForecastDays {
		return 0, OutOfRange("days", "days %d out of range [1, %d]", days, MaxForecastDays)
	}
	return days, nil
}

// ValidateUnits accepts the empty value (provider default) and the supported systems.
func ValidateUnits(u Units) error {
	if u == "" || u.Valid() {
		return nil
	}
	return InvalidArgument("units", "unsupported unit system %q (want metric, imperial or kelvin)", string(u))
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
