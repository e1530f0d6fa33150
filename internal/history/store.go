// Package history owns the canonical per-date astronomical dataset: one
// DailyRecord per local calendar date, filled either by live recording or
// by synthetic backfill through the astronomy oracle.
package history

import (
	"sync"
	"time"

	"github.com/skywatchapp/skywatch/internal/astro"
	"github.com/skywatchapp/skywatch/pkg/logger"
)

const (
	snapshotKey     = "dailyRecords"
	snapshotVersion = 1
)

// Snapshots is the persistence hook the store writes through on every
// mutation. A nil Snapshots disables persistence.
type Snapshots interface {
	Save(key string, version int, value any) error
	Load(key string, version int, out any) error
	Delete(key string) error
}

type snapshotBlob struct {
	Records         map[string]astro.DailyRecord `json:"records"`
	FirstRecordDate string                       `json:"firstRecordDate,omitempty"`
}

// Store is a concurrency-safe daily record store keyed by ISO date.
type Store struct {
	mu sync.RWMutex

	records         map[string]astro.DailyRecord
	firstRecordDate string

	oracle astro.Oracle
	snaps  Snapshots
	log    *logger.Logger
}

// NewStore creates a Store, restoring any usable snapshot. Snapshots that
// are missing, unreadable, or written with a different schema version leave
// the store empty.
func NewStore(oracle astro.Oracle, snaps Snapshots, log *logger.Logger) *Store {
	if log == nil {
		log = logger.NewNop()
	}
	s := &Store{
		records: make(map[string]astro.DailyRecord),
		oracle:  oracle,
		snaps:   snaps,
		log:     log,
	}
	if snaps != nil {
		var blob snapshotBlob
		if err := snaps.Load(snapshotKey, snapshotVersion, &blob); err != nil {
			log.Warn("no usable daily record snapshot, starting fresh", logger.Error(err))
		} else if blob.Records != nil {
			s.records = blob.Records
			s.firstRecordDate = blob.FirstRecordDate
		}
	}
	return s
}

// RecordToday computes a fresh record for the current local date and upserts
// it. The last write for today wins; existing records for other dates are
// untouched.
func (s *Store) RecordToday(loc astro.Location) astro.DailyRecord {
	now := time.Now()
	rec := astro.BuildDailyRecord(s.oracle, now, loc)

	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[rec.Date] = rec
	if s.firstRecordDate == "" || rec.Date < s.firstRecordDate {
		s.firstRecordDate = rec.Date
	}
	s.persistLocked()
	return rec
}

// Backfill synthesizes records for each date from maxDays ago through today
// that is not already present, evaluating the oracle at local noon of each
// date to keep date keys stable across DST boundaries. Idempotent: existing
// dates are never overwritten. Returns the total number of records held.
func (s *Store) Backfill(maxDays int, loc astro.Location) int {
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for i := maxDays; i >= 0; i-- {
		day := now.AddDate(0, 0, -i)
		noon := time.Date(day.Year(), day.Month(), day.Day(), 12, 0, 0, 0, day.Location())
		key := astro.DateKey(noon)

		if _, ok := s.records[key]; ok {
			continue
		}

		s.records[key] = astro.BuildDailyRecord(s.oracle, noon, loc)
		added++
		if s.firstRecordDate == "" || key < s.firstRecordDate {
			s.firstRecordDate = key
		}
	}

	if added > 0 {
		s.persistLocked()
	}
	return len(s.records)
}

// RecentRecords returns records for the last n calendar days counting back
// from today, ordered oldest to newest. Days with no record are skipped.
func (s *Store) RecentRecords(n int) []astro.DailyRecord {
	today := time.Now()

	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []astro.DailyRecord
	for i := n - 1; i >= 0; i-- {
		key := astro.DateKey(today.AddDate(0, 0, -i))
		if rec, ok := s.records[key]; ok {
			out = append(out, rec)
		}
	}
	return out
}

// RecordsInRange returns records for each date between start and end
// inclusive, ordered oldest to newest, skipping missing days.
func (s *Store) RecordsInRange(start, end time.Time) []astro.DailyRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []astro.DailyRecord
	day := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, start.Location())
	last := astro.DateKey(end)
	for {
		key := astro.DateKey(day)
		if key > last {
			break
		}
		if rec, ok := s.records[key]; ok {
			out = append(out, rec)
		}
		day = day.AddDate(0, 0, 1)
	}
	return out
}

// Count returns the number of records held.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// FirstRecordDate returns the earliest recorded date key, or "" when empty.
func (s *Store) FirstRecordDate() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.firstRecordDate
}

// Clear drops all records and the first-recorded-date marker.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records = make(map[string]astro.DailyRecord)
	s.firstRecordDate = ""
	if s.snaps != nil {
		if err := s.snaps.Delete(snapshotKey); err != nil {
			s.log.Warn("failed to delete daily record snapshot", logger.Error(err))
		}
	}
}

func (s *Store) persistLocked() {
	if s.snaps == nil {
		return
	}
	blob := snapshotBlob{Records: s.records, FirstRecordDate: s.firstRecordDate}
	if err := s.snaps.Save(snapshotKey, snapshotVersion, blob); err != nil {
		s.log.Warn("failed to persist daily records", logger.Error(err))
	}
}
