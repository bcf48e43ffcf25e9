package weather

import (
	"context"
	"fmt"
	"strings"

	"github.com/bassista/go_weather/internal/repository"
	"github.com/containerd/errdefs"
)

// Location is a coordinate plus the timezone used for hourly time labels.
// An empty Timezone means the client default.
type Location struct {
	Latitude  float64
	Longitude float64
	Timezone  string
}

// Conditions is the current weather at a location.
type Conditions struct {
	Current repository.CurrentWeather
	// Pressure is the first hourly sea-level pressure value.
	Pressure *float64
}

// HourlySeries holds hourly values keyed by parameter name, aligned with Time.
type HourlySeries struct {
	Time   []string
	Values map[string][]*float64
}

// Client fetches weather from one upstream forecast service.
type Client interface {
	Current(ctx context.Context, loc Location) (Conditions, error)
	Hourly(ctx context.Context, loc Location, params []string) (HourlySeries, error)
	AtTime(ctx context.Context, loc Location, params []string, timestamp string) (map[string]*float64, error)
}

// ErrTimeNotFound is returned when an hourly series has no entry for the requested label.
var ErrTimeNotFound = fmt.Errorf("time not found in hourly series: %w", errdefs.ErrNotFound)

// ParseParameters splits a comma separated parameter list, dropping blanks and duplicates.
func ParseParameters(raw string) []string {
	var out []string
	seen := map[string]bool{}
	for _, p := range strings.Split(raw, ",") {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	return out
}

// ValueAt picks the requested parameters at the exact time label.
// Parameters missing from the series are left out of the result.
func ValueAt(series HourlySeries, params []string, timestamp string) (map[string]*float64, error) {
	idx := -1
	for i, label := range series.Time {
		if label == timestamp {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%q: %w", timestamp, ErrTimeNotFound)
	}

	result := make(map[string]*float64, len(params))
	for _, p := range params {
		values, ok := series.Values[p]
		if !ok {
			continue
		}
		if idx >= len(values) {
			result[p] = nil
			continue
		}
		result[p] = values[idx]
	}
	return result, nil
}
