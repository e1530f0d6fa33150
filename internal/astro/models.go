package astro

import (
	"fmt"
	"time"
)

// DateKeyLayout is the canonical key format for daily records.
const DateKeyLayout = "2006-01-02"

// Location is the place for which astronomical events are tracked.
type Location struct {
	Name string  `json:"name"`
	Lat  float64 `json:"lat"`
	Lng  float64 `json:"lng"`
}

// SolarTimes holds the solar events of one day. Any instant may be nil for
// polar day/night conditions where the event does not occur.
type SolarTimes struct {
	Sunrise          *time.Time `json:"sunrise"`
	Sunset           *time.Time `json:"sunset"`
	SolarNoon        *time.Time `json:"solarNoon"`
	CivilDawn        *time.Time `json:"civilDawn"`
	CivilDusk        *time.Time `json:"civilDusk"`
	NauticalDawn     *time.Time `json:"nauticalDawn,omitempty"`
	NauticalDusk     *time.Time `json:"nauticalDusk,omitempty"`
	AstronomicalDawn *time.Time `json:"astronomicalDawn,omitempty"`
	AstronomicalDusk *time.Time `json:"astronomicalDusk,omitempty"`
	GoldenHourEnd    *time.Time `json:"goldenHourEnd,omitempty"`
	GoldenHourStart  *time.Time `json:"goldenHourStart,omitempty"`
}

// MoonTimes holds moon rise/set for one day. Rise and Set are nil when the
// moon is above or below the horizon for the whole day.
type MoonTimes struct {
	Moonrise   *time.Time `json:"moonrise"`
	Moonset    *time.Time `json:"moonset"`
	AlwaysUp   bool       `json:"alwaysUp"`
	AlwaysDown bool       `json:"alwaysDown"`
}

// MoonIllumination describes the moon's appearance at an instant.
type MoonIllumination struct {
	Fraction float64 `json:"fraction"` // illuminated fraction, 0..1
	Phase    float64 `json:"phase"`    // phase fraction, 0 = new, 0.5 = full
	Angle    float64 `json:"angle"`    // midpoint angle, radians
}

// SolarRecord is the solar portion of a DailyRecord.
type SolarRecord struct {
	Sunrise         *time.Time `json:"sunrise"`
	Sunset          *time.Time `json:"sunset"`
	SolarNoon       *time.Time `json:"solarNoon"`
	CivilDawn       *time.Time `json:"civilDawn"`
	CivilDusk       *time.Time `json:"civilDusk"`
	DaylightMinutes *int       `json:"daylightMinutes"`
}

// LunarRecord is the lunar portion of a DailyRecord.
type LunarRecord struct {
	Phase        float64    `json:"phase"`
	PhaseName    string     `json:"phaseName"`
	Illumination int        `json:"illumination"` // percent, 0..100
	Moonrise     *time.Time `json:"moonrise"`
	Moonset      *time.Time `json:"moonset"`
}

// DailyRecord is the canonical astronomical snapshot for one calendar date.
type DailyRecord struct {
	Date       string      `json:"date"` // YYYY-MM-DD, local
	RecordedAt time.Time   `json:"recordedAt"`
	Location   Location    `json:"location"`
	Solar      SolarRecord `json:"solar"`
	Lunar      LunarRecord `json:"lunar"`
}

// DaylightDuration is a human-oriented breakdown of daylight length.
type DaylightDuration struct {
	Hours        int    `json:"hours"`
	Minutes      int    `json:"minutes"`
	TotalMinutes int    `json:"totalMinutes"`
	Formatted    string `json:"formatted"`
}

// DateKey formats t as the canonical record key for its local calendar date.
func DateKey(t time.Time) string {
	return t.Format(DateKeyLayout)
}

// Daylight computes the daylight duration between sunrise and sunset.
// Returns nil when either event is missing.
func Daylight(sunrise, sunset *time.Time) *DaylightDuration {
	if sunrise == nil || sunset == nil {
		return nil
	}
	total := int(sunset.Sub(*sunrise) / time.Minute)
	d := &DaylightDuration{
		Hours:        total / 60,
		Minutes:      total % 60,
		TotalMinutes: total,
	}
	d.Formatted = fmt.Sprintf("%dh %dm", d.Hours, d.Minutes)
	return d
}
