package weather

import (
	"context"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/containerd/errdefs"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const currentBody = `{
  "latitude": 55.75,
  "longitude": 37.625,
  "current_weather": {"time": "2026-10-17T12:00", "interval": 900, "temperature": 6.3, "windspeed": 12.1, "winddirection": 250, "is_day": 1, "weathercode": 3},
  "hourly_units": {"time": "iso8601", "pressure_msl": "hPa"},
  "hourly": {"time": ["2026-10-17T00:00", "2026-10-17T01:00"], "pressure_msl": [1012.4, 1012.9]}
}`

const hourlyBody = `{
  "hourly": {
    "time": ["2026-10-17T00:00", "2026-10-17T01:00", "2026-10-17T02:00"],
    "temperature_2m": [3.1, 2.8, null],
    "precipitation": [0.0, 0.2, 0.1]
  }
}`

func newTestServer(t *testing.T, status int, body string, seen *url.Values) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if seen != nil {
			*seen = r.URL.Query()
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestOpenMeteoClient_Current(t *testing.T) {
	var q url.Values
	srv := newTestServer(t, http.StatusOK, currentBody, &q)
	c := NewOpenMeteoClient(srv.URL, "Europe/Moscow")

	cond, err := c.Current(context.Background(), Location{Latitude: 55.75, Longitude: 37.62})
	require.NoError(t, err)

	require.NotNil(t, cond.Current.Temperature)
	assert.Equal(t, 6.3, *cond.Current.Temperature)
	require.NotNil(t, cond.Current.WindSpeed)
	assert.Equal(t, 12.1, *cond.Current.WindSpeed)
	assert.Equal(t, "2026-10-17T12:00", cond.Current.Time)
	require.NotNil(t, cond.Pressure)
	assert.Equal(t, 1012.4, *cond.Pressure)

	assert.Equal(t, "55.75", q.Get("latitude"))
	assert.Equal(t, "37.62", q.Get("longitude"))
	assert.Equal(t, "true", q.Get("current_weather"))
	assert.Equal(t, "pressure_msl", q.Get("hourly"))
	assert.Equal(t, "Europe/Moscow", q.Get("timezone"))
}

func TestOpenMeteoClient_Current_MissingFieldsAreNil(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"current_weather": {"temperature": 1.0}}`, nil)
	c := NewOpenMeteoClient(srv.URL, "")

	cond, err := c.Current(context.Background(), Location{})
	require.NoError(t, err)
	require.NotNil(t, cond.Current.Temperature)
	assert.Nil(t, cond.Current.WindSpeed)
	assert.Nil(t, cond.Pressure)

	srv = newTestServer(t, http.StatusOK, `{}`, nil)
	cond, err = NewOpenMeteoClient(srv.URL, "").Current(context.Background(), Location{})
	require.NoError(t, err)
	assert.Nil(t, cond.Current.Temperature)
}

func TestOpenMeteoClient_LocationTimezoneOverridesDefault(t *testing.T) {
	var q url.Values
	srv := newTestServer(t, http.StatusOK, currentBody, &q)
	c := NewOpenMeteoClient(srv.URL, "Europe/Moscow")

	_, err := c.Current(context.Background(), Location{Timezone: "UTC"})
	require.NoError(t, err)
	assert.Equal(t, "UTC", q.Get("timezone"))
}

func TestOpenMeteoClient_NonSuccessStatus(t *testing.T) {
	srv := newTestServer(t, http.StatusBadRequest, `{"error": true, "reason": "Cannot initialize WeatherVariable from invalid String value foo"}`, nil)
	c := NewOpenMeteoClient(srv.URL, "")

	_, err := c.Current(context.Background(), Location{})
	require.Error(t, err)
	assert.True(t, errdefs.IsUnavailable(err))
	assert.Contains(t, err.Error(), "400")
	assert.Contains(t, err.Error(), "invalid String value foo")
}

func TestOpenMeteoClient_TransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	base := srv.URL
	srv.Close()

	_, err := NewOpenMeteoClient(base, "").Current(context.Background(), Location{})
	require.Error(t, err)
	assert.True(t, errdefs.IsUnavailable(err))
}

func TestOpenMeteoClient_MalformedBody(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"current_weather": `, nil)

	_, err := NewOpenMeteoClient(srv.URL, "").Current(context.Background(), Location{})
	require.Error(t, err)
	assert.True(t, errdefs.IsUnavailable(err))
}

func TestOpenMeteoClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-time.After(time.Second):
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()

	c := NewOpenMeteoClient(srv.URL, "", WithTimeout(20*time.Millisecond))
	_, err := c.Current(context.Background(), Location{})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestOpenMeteoClient_Hourly(t *testing.T) {
	var q url.Values
	srv := newTestServer(t, http.StatusOK, hourlyBody, &q)
	c := NewOpenMeteoClient(srv.URL, "Europe/Moscow")

	series, err := c.Hourly(context.Background(), Location{Latitude: 1, Longitude: 2}, []string{"temperature_2m", "precipitation"})
	require.NoError(t, err)

	assert.Equal(t, "temperature_2m,precipitation", q.Get("hourly"))
	assert.Empty(t, q.Get("current_weather"))
	assert.Len(t, series.Time, 3)
	require.Len(t, series.Values["temperature_2m"], 3)
	assert.Equal(t, 2.8, *series.Values["temperature_2m"][1])
	assert.Nil(t, series.Values["temperature_2m"][2])
}

func TestOpenMeteoClient_Hourly_NoParameters(t *testing.T) {
	c := NewOpenMeteoClient("http://127.0.0.1:1", "")
	_, err := c.Hourly(context.Background(), Location{}, nil)
	assert.True(t, errdefs.IsInvalidArgument(err))
}

func TestOpenMeteoClient_AtTime(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, hourlyBody, nil)
	c := NewOpenMeteoClient(srv.URL, "")

	got, err := c.AtTime(context.Background(), Location{}, []string{"temperature_2m", "precipitation", "windspeed_10m"}, "2026-10-17T01:00")
	require.NoError(t, err)

	assert.Len(t, got, 2, "parameters absent upstream are left out")
	assert.Equal(t, 2.8, *got["temperature_2m"])
	assert.Equal(t, 0.2, *got["precipitation"])
}

func TestOpenMeteoClient_AtTime_UnknownTime(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, hourlyBody, nil)
	c := NewOpenMeteoClient(srv.URL, "")

	got, err := c.AtTime(context.Background(), Location{}, []string{"temperature_2m"}, "2026-10-17T01:30")
	require.Error(t, err)
	assert.Nil(t, got)
	assert.ErrorIs(t, err, ErrTimeNotFound)
	assert.True(t, errdefs.IsNotFound(err))
}
