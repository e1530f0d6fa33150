package astro

import (
	"time"

	"github.com/sixdouglas/suncalc"
)

// Oracle computes astronomical positions and event times for an instant and
// coordinate. Implementations must be pure: identical inputs yield identical
// outputs.
type Oracle interface {
	SunTimes(t time.Time, lat, lng float64) SolarTimes
	MoonTimes(t time.Time, lat, lng float64) MoonTimes
	MoonIllumination(t time.Time) MoonIllumination
}

// SunCalcOracle implements Oracle on top of the suncalc library.
type SunCalcOracle struct{}

// NewSunCalcOracle returns the default oracle implementation.
func NewSunCalcOracle() SunCalcOracle {
	return SunCalcOracle{}
}

func (SunCalcOracle) SunTimes(t time.Time, lat, lng float64) SolarTimes {
	times := suncalc.GetTimes(t, lat, lng)
	return SolarTimes{
		Sunrise:          eventTime(times, suncalc.Sunrise),
		Sunset:           eventTime(times, suncalc.Sunset),
		SolarNoon:        eventTime(times, suncalc.SolarNoon),
		CivilDawn:        eventTime(times, suncalc.Dawn),
		CivilDusk:        eventTime(times, suncalc.Dusk),
		NauticalDawn:     eventTime(times, suncalc.NauticalDawn),
		NauticalDusk:     eventTime(times, suncalc.NauticalDusk),
		AstronomicalDawn: eventTime(times, suncalc.NightEnd),
		AstronomicalDusk: eventTime(times, suncalc.Night),
		GoldenHourEnd:    eventTime(times, suncalc.GoldenHourEnd),
		GoldenHourStart:  eventTime(times, suncalc.GoldenHour),
	}
}

func (SunCalcOracle) MoonTimes(t time.Time, lat, lng float64) MoonTimes {
	times := suncalc.GetMoonTimes(t, lat, lng, false)
	return MoonTimes{
		Moonrise:   validInstant(times.Rise),
		Moonset:    validInstant(times.Set),
		AlwaysUp:   times.AlwaysUp,
		AlwaysDown: times.AlwaysDown,
	}
}

func (SunCalcOracle) MoonIllumination(t time.Time) MoonIllumination {
	ill := suncalc.GetMoonIllumination(t)
	return MoonIllumination{
		Fraction: ill.Fraction,
		Phase:    ill.Phase,
		Angle:    ill.Angle,
	}
}

// eventTime extracts one event from a suncalc result, dropping events the
// library could not compute (polar day/night).
func eventTime(times map[suncalc.DayTimeName]suncalc.DayTime, name suncalc.DayTimeName) *time.Time {
	dt, ok := times[name]
	if !ok {
		return nil
	}
	return validInstant(dt.Value)
}

// validInstant rejects the zero value and the out-of-range instants the
// underlying library produces when an event does not occur on a given day.
func validInstant(t time.Time) *time.Time {
	if t.IsZero() || t.Year() < 1 || t.Year() > 9999 {
		return nil
	}
	tt := t
	return &tt
}

// BuildDailyRecord assembles the canonical record for the local calendar
// date of t at the given location.
func BuildDailyRecord(oracle Oracle, t time.Time, loc Location) DailyRecord {
	sun := oracle.SunTimes(t, loc.Lat, loc.Lng)
	moon := oracle.MoonTimes(t, loc.Lat, loc.Lng)
	ill := oracle.MoonIllumination(t)

	var daylight *int
	if d := Daylight(sun.Sunrise, sun.Sunset); d != nil {
		minutes := d.TotalMinutes
		daylight = &minutes
	}

	return DailyRecord{
		Date:       DateKey(t),
		RecordedAt: t,
		Location:   loc,
		Solar: SolarRecord{
			Sunrise:         sun.Sunrise,
			Sunset:          sun.Sunset,
			SolarNoon:       sun.SolarNoon,
			CivilDawn:       sun.CivilDawn,
			CivilDusk:       sun.CivilDusk,
			DaylightMinutes: daylight,
		},
		Lunar: LunarRecord{
			Phase:        ill.Phase,
			PhaseName:    PhaseName(ill.Phase),
			Illumination: int(ill.Fraction*100 + 0.5),
			Moonrise:     moon.Moonrise,
			Moonset:      moon.Moonset,
		},
	}
}
