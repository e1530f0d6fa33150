// Package patterns implements the pattern detection and cross-referencing
// engine: pure statistical detectors over the daily astronomical records
// and the atmosphere history, plus the repository that keeps the detected
// set deduplicated and ranked by confidence.
package patterns

import "time"

// Type classifies a detected pattern.
type Type string

const (
	TypeTrend       Type = "trend"       // increasing/decreasing over time
	TypeCorrelation Type = "correlation" // two variables move together
	TypeCycle       Type = "cycle"       // repeating pattern
	TypeAnomaly     Type = "anomaly"     // unusual deviation
	TypeOptimal     Type = "optimal"     // best conditions identified
	TypeSeasonal    Type = "seasonal"    // season-based pattern
)

// Pattern is one detected statistical assertion. ID identifies the kind and
// subject of the pattern, not the detection run: repeated scans emit the
// same ID so the repository can deduplicate.
type Pattern struct {
	ID          string         `json:"id"`
	Type        Type           `json:"type"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Confidence  float64        `json:"confidence"` // 0..1
	Data        map[string]any `json:"data,omitempty"`
	DetectedAt  time.Time      `json:"detectedAt"`
}

// Confidence level cut points.
const (
	confidenceMedium = 0.7
	confidenceHigh   = 0.85
)

// ConfidenceLevel maps a numeric confidence to its display level.
func ConfidenceLevel(confidence float64) string {
	switch {
	case confidence >= confidenceHigh:
		return "high"
	case confidence >= confidenceMedium:
		return "medium"
	default:
		return "low"
	}
}
