package weather

import (
	"math"
	"sort"
	"time"
)

// representativeHour is the local hour whose sample describes the day.
const representativeHour = 12

// ForecastSample is one point of a vendor time series, already in the requested units.
// Providers that only report a single temperature set TempMin and TempMax to it.
type ForecastSample struct {
	Timestamp     time.Time
	Temperature   float64
	TempMin       float64
	TempMax       float64
	Humidity      float64
	WindSpeed     float64
	Precipitation float64 // rain + snow for the sample window
	Description   string
	Icon          string
}

// GroupForecast buckets samples by calendar date in zone and summarizes each day.
// High/low are the max/min across the day, humidity is averaged, wind is the day's
// strongest reading, precipitation is summed, and the sample at local noon (or the first of the day) supplies the
// description and icon. At most days entries are returned.
func GroupForecast(samples []ForecastSample, zone *time.Location, days int) []ForecastDay {
	if len(samples) == 0 || days <= 0 {
		return []ForecastDay{}
	}
	if zone == nil {
		zone = time.UTC
	}

	sorted := make([]ForecastSample, len(samples))
	copy(sorted, samples)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	var (
		keys    []string
		buckets = make(map[string][]ForecastSample)
	)
	for _, s := range sorted {
		k := s.Timestamp.In(zone).Format(time.DateOnly)
		if _, ok := buckets[k]; !ok {
			keys = append(keys, k)
		}
		buckets[k] = append(buckets[k], s)
	}

	out := make([]ForecastDay, 0, days)
	for _, k := range keys {
		if len(out) >= days {
			break
		}
		out = append(out, summarizeDay(k, buckets[k], zone))
	}
	return out
}

func summarizeDay(date string, samples []ForecastSample, zone *time.Location) ForecastDay {
	rep := samples[0]
	for _, s := range samples {
		if s.Timestamp.In(zone).Hour() == representativeHour {
			rep = s
			break
		}
	}

	high := math.Inf(-1)
	low := math.Inf(1)
	var sumHumidity, maxWind, precip float64
	for _, s := range samples {
		high = math.Max(high, s.TempMax)
		low = math.Min(low, s.TempMin)
		sumHumidity += s.Humidity
		maxWind = math.Max(maxWind, s.WindSpeed)
		precip += s.Precipitation
	}
	n := float64(len(samples))

	return ForecastDay{
		Date:          date,
		High:          math.Round(high),
		Low:           math.Round(low),
		Humidity:      math.Round(sumHumidity / n),
		WindSpeed:     maxWind,
		Precipitation: precip,
		Description:   rep.Description,
		Icon:          rep.Icon,
		Timestamp:     rep.Timestamp.UTC(),
	}
}
