package history

import (
	"sort"

	"github.com/skywatchapp/skywatch/internal/astro"
)

// Statistics is the aggregate view over all records. A nil *Statistics
// means no records exist; callers must branch on that rather than assume a
// populated structure.
type Statistics struct {
	TotalDaysTracked int           `json:"totalDaysTracked"`
	FirstRecordDate  string        `json:"firstRecordDate,omitempty"`
	LastRecordDate   string        `json:"lastRecordDate,omitempty"`
	Daylight         DaylightStats `json:"daylight"`
	Lunar            LunarStats    `json:"lunar"`
}

// DaylightStats aggregates daylight minutes across records with a non-nil
// value. All fields are nil when no record carries daylight data.
type DaylightStats struct {
	Longest      *int   `json:"longest"`
	LongestDate  string `json:"longestDate,omitempty"`
	Shortest     *int   `json:"shortest"`
	ShortestDate string `json:"shortestDate,omitempty"`
	Average      *int   `json:"average"`
	Current      *int   `json:"current"`
}

// LunarStats aggregates moon phase occurrences across records.
type LunarStats struct {
	PhaseDistribution map[string]int `json:"phaseDistribution"`
	FullMoonCount     int            `json:"fullMoonCount"`
	NewMoonCount      int            `json:"newMoonCount"`
	LastFullMoon      string         `json:"lastFullMoon,omitempty"`
	LastNewMoon       string         `json:"lastNewMoon,omitempty"`
}

// Statistics computes the aggregate view. Returns nil when the store is
// empty. Records with nil daylight are excluded from the daylight figures;
// min/max ties resolve to the first date in chronological order.
func (s *Store) Statistics() *Statistics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.records) == 0 {
		return nil
	}

	records := make([]astro.DailyRecord, 0, len(s.records))
	for _, rec := range s.records {
		records = append(records, rec)
	}
	sort.Slice(records, func(i, j int) bool { return records[i].Date < records[j].Date })

	stats := &Statistics{
		TotalDaysTracked: len(records),
		FirstRecordDate:  s.firstRecordDate,
		LastRecordDate:   records[len(records)-1].Date,
		Lunar: LunarStats{
			PhaseDistribution: make(map[string]int, len(astro.PhaseNames)),
		},
	}
	for _, name := range astro.PhaseNames {
		stats.Lunar.PhaseDistribution[name] = 0
	}

	var (
		sum   int
		count int
	)
	for _, rec := range records {
		d := rec.Solar.DaylightMinutes
		if d == nil {
			continue
		}
		sum += *d
		count++

		if stats.Daylight.Longest == nil || *d > *stats.Daylight.Longest {
			v := *d
			stats.Daylight.Longest = &v
			stats.Daylight.LongestDate = rec.Date
		}
		if stats.Daylight.Shortest == nil || *d < *stats.Daylight.Shortest {
			v := *d
			stats.Daylight.Shortest = &v
			stats.Daylight.ShortestDate = rec.Date
		}
	}
	if count > 0 {
		avg := int(float64(sum)/float64(count) + 0.5)
		stats.Daylight.Average = &avg
	}
	stats.Daylight.Current = records[len(records)-1].Solar.DaylightMinutes

	for _, rec := range records {
		name := rec.Lunar.PhaseName
		if name == "" {
			continue
		}
		stats.Lunar.PhaseDistribution[name]++
		switch name {
		case astro.PhaseFullMoon:
			stats.Lunar.FullMoonCount++
			stats.Lunar.LastFullMoon = rec.Date
		case astro.PhaseNewMoon:
			stats.Lunar.NewMoonCount++
			stats.Lunar.LastNewMoon = rec.Date
		}
	}

	return stats
}
