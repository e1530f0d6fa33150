package patterns

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/skywatchapp/skywatch/internal/astro"
	"github.com/skywatchapp/skywatch/internal/atmosphere"
)

// Detection thresholds. Confidence cutoffs and minimum slopes are part of
// the engine's contract; changing them changes which patterns surface.
const (
	minTrendRecords       = 7
	minCycleRecords       = 14
	minDaylightConfidence = 0.5
	minDaylightSlope      = 0.5 // minutes per day
	minShiftConfidence    = 0.6
	minShiftSlope         = 0.3 // minutes per day
	minCorrelation        = 0.3
	goodObservationScore  = 70
	goodVisibilityMeters  = 15000.0
	poorVisibilityMeters  = 8000.0
)

// DetectDaylightTrend fits a regression over daylight minutes and reports a
// trend when at least 7 records carry daylight data, the fit confidence is
// at least 0.5, and the drift is at least half a minute per day.
func DetectDaylightTrend(records []astro.DailyRecord) *Pattern {
	if len(records) < minTrendRecords {
		return nil
	}

	var series []float64
	for _, r := range records {
		if r.Solar.DaylightMinutes != nil {
			series = append(series, float64(*r.Solar.DaylightMinutes))
		}
	}
	if len(series) < minTrendRecords {
		return nil
	}

	reg, ok := linearRegression(series)
	if !ok || reg.Confidence < minDaylightConfidence {
		return nil
	}

	dailyChange := reg.Slope
	if math.Abs(dailyChange) < minDaylightSlope {
		return nil
	}
	weeklyChange := dailyChange * 7

	title := "Daylight Decreasing"
	verb := "decreasing"
	if dailyChange > 0 {
		title = "Daylight Increasing"
		verb = "increasing"
	}

	return &Pattern{
		ID:    "daylight-trend",
		Type:  TypeTrend,
		Title: title,
		Description: fmt.Sprintf(
			"Daylight is %s by approximately %.0f minutes per day (%.0f min/week).",
			verb, math.Abs(dailyChange), math.Abs(weeklyChange)),
		Confidence: reg.Confidence,
		Data: map[string]any{
			"dailyChange":  dailyChange,
			"weeklyChange": weeklyChange,
			"rSquared":     reg.RSquared,
		},
		DetectedAt: time.Now(),
	}
}

// DetectMoonCyclePatterns summarizes the observed lunar cycle once at least
// 14 records exist and at least two full moons have been recorded.
func DetectMoonCyclePatterns(records []astro.DailyRecord) []Pattern {
	if len(records) < minCycleRecords {
		return nil
	}

	var fullMoonDates []time.Time
	newMoonCount := 0
	for _, r := range records {
		switch r.Lunar.PhaseName {
		case astro.PhaseFullMoon:
			if d, err := time.Parse(astro.DateKeyLayout, r.Date); err == nil {
				fullMoonDates = append(fullMoonDates, d)
			}
		case astro.PhaseNewMoon:
			newMoonCount++
		}
	}

	if len(fullMoonDates) < 2 {
		return nil
	}

	var cycles []float64
	for i := 1; i < len(fullMoonDates); i++ {
		cycles = append(cycles, fullMoonDates[i].Sub(fullMoonDates[i-1]).Hours()/24)
	}

	var sum float64
	for _, c := range cycles {
		sum += c
	}
	avgCycle := sum / float64(len(cycles))

	fullMoonCount := len(fullMoonDates)
	return []Pattern{{
		ID:    "moon-cycle",
		Type:  TypeCycle,
		Title: "Lunar Cycle Tracked",
		Description: fmt.Sprintf(
			"Average lunar cycle: %.1f days. Full moons recorded: %d. New moons: %d.",
			avgCycle, fullMoonCount, newMoonCount),
		Confidence: math.Min(0.95, 0.5+0.1*float64(fullMoonCount)),
		Data: map[string]any{
			"avgCycle":      avgCycle,
			"fullMoonCount": fullMoonCount,
			"newMoonCount":  newMoonCount,
		},
		DetectedAt: time.Now(),
	}}
}

// DetectSunTimeShifts runs independent regressions on sunrise and sunset
// times (minutes since local midnight) and emits a trend per event whose
// fit confidence exceeds 0.6 and slope exceeds 0.3 minutes per day.
func DetectSunTimeShifts(records []astro.DailyRecord) []Pattern {
	if len(records) < minTrendRecords {
		return nil
	}

	var out []Pattern
	if p := detectEventShift(records, "sunrise-shift", "Sunrise",
		func(r astro.DailyRecord) *time.Time { return r.Solar.Sunrise }); p != nil {
		out = append(out, *p)
	}
	if p := detectEventShift(records, "sunset-shift", "Sunset",
		func(r astro.DailyRecord) *time.Time { return r.Solar.Sunset }); p != nil {
		out = append(out, *p)
	}
	return out
}

func detectEventShift(records []astro.DailyRecord, id, event string, pick func(astro.DailyRecord) *time.Time) *Pattern {
	var series []float64
	for _, r := range records {
		t := pick(r)
		if t == nil {
			continue
		}
		series = append(series, float64(t.Hour()*60+t.Minute()))
	}
	if len(series) < minTrendRecords {
		return nil
	}

	reg, ok := linearRegression(series)
	if !ok || reg.Confidence <= minShiftConfidence || math.Abs(reg.Slope) <= minShiftSlope {
		return nil
	}

	direction := "earlier"
	if reg.Slope > 0 {
		direction = "later"
	}
	minutesPerWeek := math.Abs(reg.Slope * 7)

	return &Pattern{
		ID:    id,
		Type:  TypeTrend,
		Title: fmt.Sprintf("%s Getting %s", event, capitalize(direction)),
		Description: fmt.Sprintf(
			"%s is shifting %s by approximately %.0f minutes per week.",
			event, direction, minutesPerWeek),
		Confidence: reg.Confidence,
		Data: map[string]any{
			"direction":      direction,
			"minutesPerWeek": minutesPerWeek,
			"slope":          reg.Slope,
		},
		DetectedAt: time.Now(),
	}
}

// DetectOptimalConditions buckets high-scoring atmosphere entries by local
// hour of day and names the three most frequent hours, earliest first on
// equal counts.
func DetectOptimalConditions(history []atmosphere.Snapshot) *Pattern {
	if len(history) < 3 {
		return nil
	}

	var counts [24]int
	good := 0
	for _, e := range history {
		if e.Current != nil && e.Current.ObservationScore >= goodObservationScore {
			counts[e.Timestamp.Hour()]++
			good++
		}
	}
	if good < 2 {
		return nil
	}

	type hourCount struct {
		hour  int
		count int
	}
	var ranked []hourCount
	for h, c := range counts {
		if c > 0 {
			ranked = append(ranked, hourCount{hour: h, count: c})
		}
	}
	// Built ascending by hour; the stable sort keeps earlier hours first
	// among equal counts.
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].count > ranked[j].count })
	if len(ranked) > 3 {
		ranked = ranked[:3]
	}

	bestHours := make([]int, 0, len(ranked))
	labels := make([]string, 0, len(ranked))
	for _, hc := range ranked {
		bestHours = append(bestHours, hc.hour)
		labels = append(labels, formatHour(hc.hour))
	}

	return &Pattern{
		ID:    "optimal-viewing",
		Type:  TypeOptimal,
		Title: "Best Viewing Times Identified",
		Description: fmt.Sprintf(
			"Optimal observation conditions most frequently occur around %s.",
			strings.Join(labels, ", ")),
		Confidence: math.Min(0.9, 0.5+0.05*float64(good)),
		Data: map[string]any{
			"bestHours":          bestHours,
			"goodConditionCount": good,
		},
		DetectedAt: time.Now(),
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func formatHour(h int) string {
	period := "AM"
	if h >= 12 {
		period = "PM"
	}
	hour := h % 12
	if hour == 0 {
		hour = 12
	}
	return fmt.Sprintf("%d %s", hour, period)
}

// DetectMoonCloudCorrelation pairs daily records with atmosphere entries by
// calendar date (first entry matching the record's date wins, regardless of
// time of day) and reports the Pearson correlation between moon
// illumination and cloud cover when its magnitude reaches 0.3.
func DetectMoonCloudCorrelation(records []astro.DailyRecord, history []atmosphere.Snapshot) *Pattern {
	if len(records) < minCycleRecords || len(history) < 7 {
		return nil
	}

	var illumination, cloudCover []float64
	for _, r := range records {
		for _, e := range history {
			if e.Current == nil || astro.DateKey(e.Timestamp) != r.Date {
				continue
			}
			illumination = append(illumination, float64(r.Lunar.Illumination))
			cloudCover = append(cloudCover, e.Current.CloudCover)
			break
		}
	}
	if len(illumination) < 7 {
		return nil
	}

	corr, ok := pearson(illumination, cloudCover)
	if !ok || math.Abs(corr) < minCorrelation {
		return nil
	}

	direction, phase := "lower", "darker"
	if corr > 0 {
		direction, phase = "higher", "fuller"
	}

	return &Pattern{
		ID:    "moon-cloud-correlation",
		Type:  TypeCorrelation,
		Title: "Moon-Cloud Correlation Detected",
		Description: fmt.Sprintf(
			"Cloud cover tends to be %s during %s moon phases (correlation: %.0f%%).",
			direction, phase, corr*100),
		Confidence: math.Abs(corr),
		Data: map[string]any{
			"correlation": corr,
			"sampleSize":  len(illumination),
		},
		DetectedAt: time.Now(),
	}
}

// DetectVisibilityPatterns reports consistently good visibility (>15km more
// than 70% of the time) or frequent low visibility (<8km more than 50% of
// the time), in that priority order. The outcomes are mutually exclusive.
func DetectVisibilityPatterns(history []atmosphere.Snapshot) *Pattern {
	if len(history) < 5 {
		return nil
	}

	var visibilities []float64
	for _, e := range history {
		if e.Current != nil && e.Current.Visibility != nil {
			visibilities = append(visibilities, *e.Current.Visibility)
		}
	}
	if len(visibilities) < 5 {
		return nil
	}

	var sum float64
	good, poor := 0, 0
	for _, v := range visibilities {
		sum += v
		if v > goodVisibilityMeters {
			good++
		}
		if v < poorVisibilityMeters {
			poor++
		}
	}
	total := float64(len(visibilities))
	avgKm := sum / total / 1000
	goodFrac := float64(good) / total
	poorFrac := float64(poor) / total

	if goodFrac > 0.7 {
		return &Pattern{
			ID:    "good-visibility",
			Type:  TypeOptimal,
			Title: "Consistently Good Visibility",
			Description: fmt.Sprintf(
				"This location has excellent visibility (>15km) %.0f%% of the time. Average: %.1fkm.",
				goodFrac*100, avgKm),
			Confidence: goodFrac,
			Data: map[string]any{
				"avgVisibility":  avgKm,
				"goodPercentage": goodFrac,
			},
			DetectedAt: time.Now(),
		}
	}

	if poorFrac > 0.5 {
		return &Pattern{
			ID:    "poor-visibility",
			Type:  TypeAnomaly,
			Title: "Frequent Low Visibility",
			Description: fmt.Sprintf(
				"This location experiences reduced visibility (<8km) %.0f%% of the time. Consider timing observations carefully.",
				poorFrac*100),
			Confidence: poorFrac,
			Data: map[string]any{
				"avgVisibility":  avgKm,
				"poorPercentage": poorFrac,
			},
			DetectedAt: time.Now(),
		}
	}

	return nil
}

// DetectAll runs every detector and returns the combined results sorted
// descending by confidence. The sort is stable, so detectors' emission
// order is preserved among equal confidences. Deduplication across runs is
// the repository's job, not the engine's.
func DetectAll(records []astro.DailyRecord, history []atmosphere.Snapshot) []Pattern {
	var detected []Pattern

	if p := DetectDaylightTrend(records); p != nil {
		detected = append(detected, *p)
	}
	detected = append(detected, DetectMoonCyclePatterns(records)...)
	detected = append(detected, DetectSunTimeShifts(records)...)
	if p := DetectOptimalConditions(history); p != nil {
		detected = append(detected, *p)
	}
	if p := DetectMoonCloudCorrelation(records, history); p != nil {
		detected = append(detected, *p)
	}
	if p := DetectVisibilityPatterns(history); p != nil {
		detected = append(detected, *p)
	}

	sort.SliceStable(detected, func(i, j int) bool {
		return detected[i].Confidence > detected[j].Confidence
	})
	return detected
}
