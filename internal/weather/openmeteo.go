package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bassista/go_weather/internal/logger"
	"github.com/bassista/go_weather/internal/repository"
	"github.com/containerd/errdefs"
)

const DefaultOpenMeteoURL = "https://api.open-meteo.com/v1/forecast"

// OpenMeteoClient implements Client against the Open-Meteo forecast API.
// Failures are returned as is: no retries, no backoff.
type OpenMeteoClient struct {
	baseURL  string
	timezone string
	timeout  time.Duration
	http     *http.Client
}

type Option func(*OpenMeteoClient)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(c *http.Client) Option {
	return func(o *OpenMeteoClient) {
		if c != nil {
			o.http = c
		}
	}
}

// WithTimeout bounds every upstream call. Zero keeps the transport default.
func WithTimeout(d time.Duration) Option {
	return func(o *OpenMeteoClient) {
		o.timeout = d
	}
}

func NewOpenMeteoClient(baseURL, timezone string, opts ...Option) *OpenMeteoClient {
	if baseURL == "" {
		baseURL = DefaultOpenMeteoURL
	}
	c := &OpenMeteoClient{
		baseURL:  baseURL,
		timezone: timezone,
		http:     &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Current requests current_weather plus hourly pressure_msl and keeps the first pressure value.
func (c *OpenMeteoClient) Current(ctx context.Context, loc Location) (Conditions, error) {
	values := c.baseQuery(loc)
	values.Set("current_weather", "true")
	values.Set("hourly", "pressure_msl")

	var payload struct {
		CurrentWeather *repository.CurrentWeather `json:"current_weather"`
		Hourly         struct {
			PressureMSL []*float64 `json:"pressure_msl"`
		} `json:"hourly"`
	}
	if err := c.get(ctx, values, &payload); err != nil {
		return Conditions{}, err
	}

	var out Conditions
	if payload.CurrentWeather != nil {
		out.Current = *payload.CurrentWeather
	}
	if len(payload.Hourly.PressureMSL) > 0 {
		out.Pressure = payload.Hourly.PressureMSL[0]
	}
	return out, nil
}

// Hourly requests the named hourly series.
func (c *OpenMeteoClient) Hourly(ctx context.Context, loc Location, params []string) (HourlySeries, error) {
	if len(params) == 0 {
		return HourlySeries{}, fmt.Errorf("no hourly parameters: %w", errdefs.ErrInvalidArgument)
	}
	values := c.baseQuery(loc)
	values.Set("hourly", strings.Join(params, ","))

	var payload struct {
		Hourly map[string]json.RawMessage `json:"hourly"`
	}
	if err := c.get(ctx, values, &payload); err != nil {
		return HourlySeries{}, err
	}

	series := HourlySeries{Values: map[string][]*float64{}}
	for key, raw := range payload.Hourly {
		if key == "time" {
			if err := json.Unmarshal(raw, &series.Time); err != nil {
				return HourlySeries{}, fmt.Errorf("decode hourly time: %w: %w", errdefs.ErrUnavailable, err)
			}
			continue
		}
		var vals []*float64
		if err := json.Unmarshal(raw, &vals); err != nil {
			logger.WithComponent("open-meteo").Debugf("skipping non-numeric hourly series %s: %v", key, err)
			continue
		}
		series.Values[key] = vals
	}
	return series, nil
}

// AtTime returns the requested parameters at the exact hourly label.
func (c *OpenMeteoClient) AtTime(ctx context.Context, loc Location, params []string, timestamp string) (map[string]*float64, error) {
	series, err := c.Hourly(ctx, loc, params)
	if err != nil {
		return nil, err
	}
	return ValueAt(series, params, timestamp)
}

func (c *OpenMeteoClient) baseQuery(loc Location) url.Values {
	values := url.Values{}
	values.Set("latitude", strconv.FormatFloat(loc.Latitude, 'f', -1, 64))
	values.Set("longitude", strconv.FormatFloat(loc.Longitude, 'f', -1, 64))
	tz := loc.Timezone
	if tz == "" {
		tz = c.timezone
	}
	if tz != "" {
		values.Set("timezone", tz)
	}
	return values
}

func (c *OpenMeteoClient) get(ctx context.Context, values url.Values, out any) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	u := c.baseURL + "?" + values.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return fmt.Errorf("build open-meteo request: %w", err)
	}

	log := logger.WithComponent("open-meteo")
	log.Debugf("GET %s", u)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("open-meteo request failed: %w: %w", errdefs.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		reason := upstreamReason(resp.Body)
		log.Warnf("open-meteo returned %d: %s", resp.StatusCode, reason)
		return fmt.Errorf("open-meteo returned status %d (%s): %w", resp.StatusCode, reason, errdefs.ErrUnavailable)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode open-meteo response: %w: %w", errdefs.ErrUnavailable, err)
	}
	return nil
}

// upstreamReason extracts Open-Meteo's {"error":true,"reason":"..."} message if present.
func upstreamReason(body io.Reader) string {
	raw, err := io.ReadAll(io.LimitReader(body, 4096))
	if err != nil || len(raw) == 0 {
		return "no body"
	}
	var e struct {
		Reason string `json:"reason"`
	}
	if json.Unmarshal(raw, &e) == nil && e.Reason != "" {
		return e.Reason
	}
	return strings.TrimSpace(string(raw))
}
