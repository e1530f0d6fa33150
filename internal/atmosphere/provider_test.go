package atmosphere

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skywatchapp/skywatch/internal/astro"
)

func openMeteoResponse(start time.Time) string {
	const layout = "2006-01-02T15:04"
	return fmt.Sprintf(`{
		"current": {
			"cloud_cover": 10,
			"visibility": 24140,
			"relative_humidity_2m": 30,
			"apparent_temperature": 12.5,
			"precipitation": 0,
			"weather_code": 0
		},
		"hourly": {
			"time": [%q, %q, %q],
			"cloud_cover": [5, 90, 20],
			"visibility": [20000, 20000, 20000],
			"relative_humidity_2m": [30, 30, 30],
			"apparent_temperature": [11, 10, 9],
			"precipitation_probability": [0, 10, 0],
			"weather_code": [0, 3, 1]
		}
	}`,
		start.Format(layout),
		start.Add(time.Hour).Format(layout),
		start.Add(2*time.Hour).Format(layout))
}

func TestOpenMeteoFetch(t *testing.T) {
	start := time.Now().Add(time.Hour).Truncate(time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.NotEmpty(t, q.Get("latitude"))
		assert.Contains(t, q.Get("current"), "cloud_cover")
		assert.Contains(t, q.Get("hourly"), "visibility")
		assert.Equal(t, "auto", q.Get("timezone"))

		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, openMeteoResponse(start))
	}))
	defer srv.Close()

	provider := NewOpenMeteoProvider(srv.Client())
	provider.baseURL = srv.URL

	snap, err := provider.Fetch(context.Background(), astro.Location{Lat: 35.37, Lng: -119.02})
	require.NoError(t, err)

	require.NotNil(t, snap.Current)
	assert.Equal(t, 10.0, snap.Current.CloudCover)
	require.NotNil(t, snap.Current.Visibility)
	assert.Equal(t, 24140.0, *snap.Current.Visibility)
	assert.Equal(t, "Clear sky", snap.Current.WeatherDesc)
	assert.Equal(t, 96, snap.Current.ObservationScore)

	require.Len(t, snap.HourlyForecast, 3)
	first := snap.HourlyForecast[0]
	assert.True(t, first.Time.Equal(start))
	assert.Equal(t, 5.0, first.CloudCover)
	assert.Equal(t, 98, first.Score)
	assert.Equal(t, 64, snap.HourlyForecast[1].Score)
	assert.Equal(t, 92, snap.HourlyForecast[2].Score)

	require.NotNil(t, snap.BestWindow)
	assert.Equal(t, 98, snap.BestWindow.Score)
	assert.True(t, snap.BestWindow.Start.Equal(start))
}

func TestOpenMeteoFetchSkipsPastHours(t *testing.T) {
	start := time.Now().Add(-3 * time.Hour).Truncate(time.Hour)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, openMeteoResponse(start))
	}))
	defer srv.Close()

	provider := NewOpenMeteoProvider(srv.Client())
	provider.baseURL = srv.URL

	snap, err := provider.Fetch(context.Background(), astro.Location{})
	require.NoError(t, err)
	assert.Empty(t, snap.HourlyForecast)
	assert.Nil(t, snap.BestWindow)
}

func TestOpenMeteoFetchDecodeError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, "{not json")
	}))
	defer srv.Close()

	provider := NewOpenMeteoProvider(srv.Client())
	provider.baseURL = srv.URL

	_, err := provider.Fetch(context.Background(), astro.Location{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrFetch))
}
