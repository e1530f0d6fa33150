package atmosphere

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/skywatchapp/skywatch/internal/astro"
)

// Provider abstracts the atmospheric data source.
type Provider interface {
	Name() string
	Fetch(ctx context.Context, loc astro.Location) (Snapshot, error)
}

// OpenMeteoProvider fetches current and hourly conditions from Open-Meteo,
// which requires no API key.
type OpenMeteoProvider struct {
	name    string
	baseURL string
	httpCfg HTTPClientConfig
	circuit *gobreaker.CircuitBreaker
}

func NewOpenMeteoProvider(client *http.Client) *OpenMeteoProvider {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "openmeteo",
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &OpenMeteoProvider{
		name:    "openmeteo",
		baseURL: "https://api.open-meteo.com/v1/forecast",
		httpCfg: HTTPClientConfig{
			Client: client,
			Backoff: BackoffConfig{
				MaxRetries:      3,
				InitialInterval: 500 * time.Millisecond,
				MaxInterval:     5 * time.Second,
			},
		},
		circuit: cb,
	}
}

func (p *OpenMeteoProvider) Name() string {
	return p.name
}

// Fetch retrieves current conditions plus two days of hourly forecast and
// processes them into a Snapshot with derived observation scores. Any
// transport or decode failure wraps ErrFetch.
func (p *OpenMeteoProvider) Fetch(ctx context.Context, loc astro.Location) (Snapshot, error) {
	buildRequest := func() (*http.Request, error) {
		values := url.Values{}
		values.Set("latitude", fmt.Sprintf("%f", loc.Lat))
		values.Set("longitude", fmt.Sprintf("%f", loc.Lng))
		values.Set("current", strings.Join([]string{
			"cloud_cover",
			"visibility",
			"relative_humidity_2m",
			"apparent_temperature",
			"precipitation",
			"weather_code",
		}, ","))
		values.Set("hourly", strings.Join([]string{
			"cloud_cover",
			"visibility",
			"relative_humidity_2m",
			"apparent_temperature",
			"precipitation_probability",
			"weather_code",
		}, ","))
		values.Set("timezone", "auto")
		values.Set("forecast_days", "2")

		u := fmt.Sprintf("%s?%s", p.baseURL, values.Encode())
		return http.NewRequest(http.MethodGet, u, nil)
	}

	resp, err := doRequestWithResilience(ctx, p.httpCfg, p.circuit, buildRequest)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	var payload struct {
		Current struct {
			CloudCover  float64  `json:"cloud_cover"`
			Visibility  *float64 `json:"visibility"`
			Humidity    float64  `json:"relative_humidity_2m"`
			Temperature float64  `json:"apparent_temperature"`
			Precip      float64  `json:"precipitation"`
			WeatherCode int      `json:"weather_code"`
		} `json:"current"`
		Hourly struct {
			Time        []string  `json:"time"`
			CloudCover  []float64 `json:"cloud_cover"`
			Visibility  []float64 `json:"visibility"`
			Humidity    []float64 `json:"relative_humidity_2m"`
			Temperature []float64 `json:"apparent_temperature"`
			PrecipProb  []float64 `json:"precipitation_probability"`
			WeatherCode []int     `json:"weather_code"`
		} `json:"hourly"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return Snapshot{}, fmt.Errorf("%w: decode: %v", ErrFetch, err)
	}

	now := time.Now()

	visibility := 0.0
	if payload.Current.Visibility != nil {
		visibility = *payload.Current.Visibility
	}
	current := &CurrentConditions{
		CloudCover:    payload.Current.CloudCover,
		Visibility:    payload.Current.Visibility,
		Humidity:      payload.Current.Humidity,
		Temperature:   payload.Current.Temperature,
		Precipitation: payload.Current.Precip,
		WeatherCode:   payload.Current.WeatherCode,
		WeatherDesc:   WeatherDescription(payload.Current.WeatherCode),
		ObservationScore: ObservationScore(
			payload.Current.CloudCover, visibility, payload.Current.Humidity),
	}

	var hourly []HourlyEntry
	for i, raw := range payload.Hourly.Time {
		if i >= len(payload.Hourly.CloudCover) || len(hourly) >= 24 {
			break
		}
		// Open-Meteo returns local wall-clock times when timezone=auto.
		ts, err := time.ParseInLocation("2006-01-02T15:04", raw, time.Local)
		if err != nil {
			continue
		}
		if ts.Before(now.Truncate(time.Hour)) {
			continue
		}
		entry := HourlyEntry{
			Time:        ts,
			CloudCover:  payload.Hourly.CloudCover[i],
			Visibility:  hourlyAt(payload.Hourly.Visibility, i),
			Humidity:    hourlyAt(payload.Hourly.Humidity, i),
			Temperature: hourlyAt(payload.Hourly.Temperature, i),
			PrecipProb:  hourlyAt(payload.Hourly.PrecipProb, i),
		}
		if i < len(payload.Hourly.WeatherCode) {
			entry.WeatherCode = payload.Hourly.WeatherCode[i]
		}
		entry.Score = ObservationScore(entry.CloudCover, entry.Visibility, entry.Humidity)
		hourly = append(hourly, entry)
	}

	return Snapshot{
		Timestamp:      now,
		Current:        current,
		HourlyForecast: hourly,
		BestWindow:     BestViewingWindow(hourly, now),
	}, nil
}

func hourlyAt(series []float64, i int) float64 {
	if i < len(series) {
		return series[i]
	}
	return 0
}
