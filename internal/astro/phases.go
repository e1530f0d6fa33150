package astro

// The eight named moon phases in cycle order.
const (
	PhaseNewMoon        = "New Moon"
	PhaseWaxingCrescent = "Waxing Crescent"
	PhaseFirstQuarter   = "First Quarter"
	PhaseWaxingGibbous  = "Waxing Gibbous"
	PhaseFullMoon       = "Full Moon"
	PhaseWaningGibbous  = "Waning Gibbous"
	PhaseLastQuarter    = "Last Quarter"
	PhaseWaningCrescent = "Waning Crescent"
)

// PhaseNames lists all phase names in cycle order, for histogram buckets.
var PhaseNames = []string{
	PhaseNewMoon,
	PhaseWaxingCrescent,
	PhaseFirstQuarter,
	PhaseWaxingGibbous,
	PhaseFullMoon,
	PhaseWaningGibbous,
	PhaseLastQuarter,
	PhaseWaningCrescent,
}

type phaseBucket struct {
	name string
	lo   float64
	hi   float64
}

// Boundaries adjusted so the quarters are centered at 0.25/0.75, where the
// illuminated fraction is actually ~50%.
var phaseBuckets = []phaseBucket{
	{PhaseNewMoon, 0, 0.03},
	{PhaseWaxingCrescent, 0.03, 0.22},
	{PhaseFirstQuarter, 0.22, 0.28},
	{PhaseWaxingGibbous, 0.28, 0.47},
	{PhaseFullMoon, 0.47, 0.53},
	{PhaseWaningGibbous, 0.53, 0.72},
	{PhaseLastQuarter, 0.72, 0.78},
	{PhaseWaningCrescent, 0.78, 0.97},
}

// PhaseName maps a phase fraction in [0,1) to one of the eight named phases.
// Fractions at or beyond 0.97 wrap around to New Moon.
func PhaseName(phase float64) string {
	if phase >= 0.97 {
		return PhaseNewMoon
	}
	for _, b := range phaseBuckets {
		if phase >= b.lo && phase < b.hi {
			return b.name
		}
	}
	return PhaseNewMoon
}
