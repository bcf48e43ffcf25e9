package weather

import (
	"context"
	"math"
	"sync"
	"time"

	"github.com/bassista/go_weather/internal/logger"
	"github.com/bassista/go_weather/internal/repository"
)

const memoryHourlyLabel = "2006-01-02T15:04"

// MemoryClient is an offline Client producing deterministic readings from the coordinates.
// It is useful for development without network access and for tests.
type MemoryClient struct {
	mu       sync.RWMutex
	loc      *time.Location
	now      func() time.Time
	failWith error
	calls    int
}

func NewMemoryClient(timezone string) *MemoryClient {
	loc := time.UTC
	if timezone != "" && timezone != "auto" {
		if l, err := time.LoadLocation(timezone); err == nil {
			loc = l
		}
	}
	return &MemoryClient{loc: loc, now: time.Now}
}

// SetNow fixes the clock used for readings and hourly labels.
func (m *MemoryClient) SetNow(now func() time.Time) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.now = now
}

// SetError makes every call fail with err until cleared with nil.
func (m *MemoryClient) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failWith = err
}

// Calls returns how many upstream calls were made.
func (m *MemoryClient) Calls() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.calls
}

func (m *MemoryClient) begin(ctx context.Context) (time.Time, error) {
	if err := ctx.Err(); err != nil {
		return time.Time{}, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.failWith != nil {
		return time.Time{}, m.failWith
	}
	return m.now().In(m.loc), nil
}

func (m *MemoryClient) Current(ctx context.Context, loc Location) (Conditions, error) {
	now, err := m.begin(ctx)
	if err != nil {
		return Conditions{}, err
	}
	hour := now.Truncate(time.Hour)
	logger.WithComponent("memory-weather").Debugf("current weather for %.4f,%.4f at %s", loc.Latitude, loc.Longitude, hour.Format(memoryHourlyLabel))

	temp := memoryValue("temperature_2m", loc, hour)
	wind := memoryValue("windspeed_10m", loc, hour)
	dir := memoryValue("winddirection_10m", loc, hour)
	code := 0
	isDay := 0
	if hour.Hour() >= 7 && hour.Hour() < 19 {
		isDay = 1
	}
	interval := 900
	return Conditions{
		Current: repository.CurrentWeather{
			Time:          hour.Format(memoryHourlyLabel),
			Interval:      &interval,
			Temperature:   temp,
			WindSpeed:     wind,
			WindDirection: dir,
			WeatherCode:   &code,
			IsDay:         &isDay,
		},
		Pressure: memoryValue("pressure_msl", loc, hour.Truncate(24*time.Hour)),
	}, nil
}

// Hourly returns 48 hourly values starting at local midnight of the current day.
// Unknown parameters are omitted.
func (m *MemoryClient) Hourly(ctx context.Context, loc Location, params []string) (HourlySeries, error) {
	now, err := m.begin(ctx)
	if err != nil {
		return HourlySeries{}, err
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	series := HourlySeries{Values: map[string][]*float64{}}
	for h := 0; h < 48; h++ {
		series.Time = append(series.Time, start.Add(time.Duration(h)*time.Hour).Format(memoryHourlyLabel))
	}
	for _, p := range params {
		if memoryValue(p, loc, start) == nil {
			continue
		}
		vals := make([]*float64, 0, len(series.Time))
		for h := 0; h < 48; h++ {
			vals = append(vals, memoryValue(p, loc, start.Add(time.Duration(h)*time.Hour)))
		}
		series.Values[p] = vals
	}
	return series, nil
}

func (m *MemoryClient) AtTime(ctx context.Context, loc Location, params []string, timestamp string) (map[string]*float64, error) {
	series, err := m.Hourly(ctx, loc, params)
	if err != nil {
		return nil, err
	}
	return ValueAt(series, params, timestamp)
}

// memoryValue computes a plausible reading for param, or nil when the param is unknown.
func memoryValue(param string, loc Location, at time.Time) *float64 {
	phase := 2 * math.Pi * float64(at.Hour()) / 24
	var v float64
	switch param {
	case "temperature_2m", "apparent_temperature":
		v = 15 - math.Abs(loc.Latitude)*0.3 + 5*math.Sin(phase-math.Pi/2)
	case "windspeed_10m", "wind_speed_10m":
		v = 5 + math.Mod(math.Abs(loc.Longitude), 10) + 2*math.Cos(phase)
	case "winddirection_10m", "wind_direction_10m":
		v = math.Mod(math.Abs(loc.Latitude*7+loc.Longitude*3), 360)
	case "relative_humidity_2m", "relativehumidity_2m":
		v = 65 + 20*math.Cos(phase)
	case "precipitation", "rain":
		v = 0
	case "pressure_msl", "surface_pressure":
		v = 1013 - math.Abs(loc.Latitude)*0.1
	default:
		return nil
	}
	v = math.Round(v*10) / 10
	return &v
}
