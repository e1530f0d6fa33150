// Package atmosphere fetches and retains atmospheric observation
// conditions: current cloud cover, visibility and humidity from Open-Meteo,
// the derived observation score, and a bounded 30-day history log used for
// cross-referencing against the astronomical record.
package atmosphere

import "time"

// CurrentConditions holds the processed current-conditions block of a
// snapshot. Visibility is nil when the provider omits it.
type CurrentConditions struct {
	CloudCover       float64  `json:"cloudCover"` // percent
	Visibility       *float64 `json:"visibility"` // meters
	Humidity         float64  `json:"humidity"`   // percent
	Temperature      float64  `json:"temperature"`
	Precipitation    float64  `json:"precipitation"`
	WeatherCode      int      `json:"weatherCode"`
	WeatherDesc      string   `json:"weatherDescription"`
	ObservationScore int      `json:"observationScore"` // 0..100
}

// HourlyEntry is one hour of near-term forecast, kept for context only.
type HourlyEntry struct {
	Time        time.Time `json:"time"`
	CloudCover  float64   `json:"cloudCover"`
	Visibility  float64   `json:"visibility"`
	Humidity    float64   `json:"humidity"`
	Temperature float64   `json:"temperature"`
	PrecipProb  float64   `json:"precipProbability"`
	WeatherCode int       `json:"weatherCode"`
	Score       int       `json:"score"`
}

// ViewingWindow is a continuous stretch of good observation conditions.
type ViewingWindow struct {
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
	Score int       `json:"score"`
}

// Snapshot is one captured atmospheric observation.
type Snapshot struct {
	Timestamp      time.Time          `json:"timestamp"`
	Current        *CurrentConditions `json:"current"`
	HourlyForecast []HourlyEntry      `json:"hourlyForecast,omitempty"`
	BestWindow     *ViewingWindow     `json:"bestWindow,omitempty"`
}
