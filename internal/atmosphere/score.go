package atmosphere

import (
	"math"
	"time"
)

// ObservationScore derives the 0-100 fitness-for-observation composite from
// cloud cover (percent), visibility (meters) and relative humidity
// (percent). Cloud cover contributes up to 40 points, visibility up to 35
// and humidity up to 25.
func ObservationScore(cloudCover, visibilityMeters, humidity float64) int {
	cloudScore := math.Max(0, 40-cloudCover*0.4)

	visibilityKm := visibilityMeters / 1000
	visibilityScore := math.Min(35, visibilityKm*1.75)

	humidityScore := 25.0
	if humidity > 40 {
		humidityScore = math.Max(0, 25-(humidity-40)*0.5)
	}

	return int(math.Round(cloudScore + visibilityScore + humidityScore))
}

// ScoreRating maps an observation score to its display label.
func ScoreRating(score int) string {
	switch {
	case score >= 85:
		return "Excellent"
	case score >= 70:
		return "Good"
	case score >= 50:
		return "Fair"
	case score >= 30:
		return "Poor"
	default:
		return "Bad"
	}
}

// BestViewingWindow scans up to 24 hourly entries at or after now for the
// best continuous stretch scoring 70 or higher. Returns nil when no hour
// qualifies.
func BestViewingWindow(hourly []HourlyEntry, now time.Time) *ViewingWindow {
	var (
		bestScore          = -1
		windowStart        time.Time
		windowEnd          time.Time
		currentWindowStart time.Time
	)

	for i, h := range hourly {
		if i >= 24 {
			break
		}
		if h.Time.Before(now) {
			continue
		}

		if h.Score >= 70 {
			if currentWindowStart.IsZero() {
				currentWindowStart = h.Time
			}
			windowEnd = h.Time

			if h.Score > bestScore {
				bestScore = h.Score
				windowStart = currentWindowStart
			}
		} else {
			currentWindowStart = time.Time{}
		}
	}

	if bestScore < 70 || windowStart.IsZero() {
		return nil
	}
	return &ViewingWindow{Start: windowStart, End: windowEnd, Score: bestScore}
}

var weatherDescriptions = map[int]string{
	0:  "Clear sky",
	1:  "Mainly clear",
	2:  "Partly cloudy",
	3:  "Overcast",
	45: "Foggy",
	48: "Depositing rime fog",
	51: "Light drizzle",
	53: "Moderate drizzle",
	55: "Dense drizzle",
	61: "Slight rain",
	63: "Moderate rain",
	65: "Heavy rain",
	71: "Slight snow",
	73: "Moderate snow",
	75: "Heavy snow",
	77: "Snow grains",
	80: "Slight rain showers",
	81: "Moderate rain showers",
	82: "Violent rain showers",
	85: "Slight snow showers",
	86: "Heavy snow showers",
	95: "Thunderstorm",
	96: "Thunderstorm with hail",
	99: "Thunderstorm with heavy hail",
}

// WeatherDescription maps a WMO weather code to its description.
func WeatherDescription(code int) string {
	if desc, ok := weatherDescriptions[code]; ok {
		return desc
	}
	return "Unknown"
}
