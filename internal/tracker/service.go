// Package tracker orchestrates the stores, the astronomy oracle, and the
// atmosphere provider: live daily recording, backfill, atmosphere refresh
// with freshness gating, and detection runs feeding the pattern repository.
package tracker

import (
	"context"
	"sync"
	"time"

	"github.com/skywatchapp/skywatch/internal/astro"
	"github.com/skywatchapp/skywatch/internal/atmosphere"
	"github.com/skywatchapp/skywatch/internal/history"
	"github.com/skywatchapp/skywatch/internal/patterns"
	"github.com/skywatchapp/skywatch/pkg/logger"
)

// DefaultRecentWindow is how many days of records a detection run consumes.
const DefaultRecentWindow = 30

// AtmosphereState is the last-known atmosphere view plus freshness/error
// flags. After a failed refresh, Snapshot and LastFetch keep the last-good
// values and Err carries the failure.
type AtmosphereState struct {
	Snapshot  *atmosphere.Snapshot
	LastFetch time.Time
	Err       error
}

// Service is the single orchestration point for all mutations.
type Service struct {
	history  *history.Store
	atmoLog  *atmosphere.HistoryLog
	repo     *patterns.Repository
	provider atmosphere.Provider

	location     astro.Location
	recentWindow int
	staleAfter   time.Duration
	log          *logger.Logger

	mu        sync.Mutex
	current   *atmosphere.Snapshot
	lastFetch time.Time
	lastErr   error

	// fetchSeq orders refreshes by start time so a stale in-flight fetch
	// cannot clobber the result of one started after it.
	fetchSeq   uint64
	appliedSeq uint64
}

// Config bundles the Service dependencies.
type Config struct {
	History       *history.Store
	AtmosphereLog *atmosphere.HistoryLog
	Repository    *patterns.Repository
	Provider      atmosphere.Provider
	Location      astro.Location
	RecentWindow  int           // days of records per detection run; 0 = DefaultRecentWindow
	StaleAfter    time.Duration // atmosphere staleness horizon; 0 = 15m
	Logger        *logger.Logger
}

// New creates a Service.
func New(cfg Config) *Service {
	if cfg.RecentWindow <= 0 {
		cfg.RecentWindow = DefaultRecentWindow
	}
	if cfg.StaleAfter <= 0 {
		cfg.StaleAfter = 15 * time.Minute
	}
	if cfg.Logger == nil {
		cfg.Logger = logger.NewNop()
	}
	return &Service{
		history:      cfg.History,
		atmoLog:      cfg.AtmosphereLog,
		repo:         cfg.Repository,
		provider:     cfg.Provider,
		location:     cfg.Location,
		recentWindow: cfg.RecentWindow,
		staleAfter:   cfg.StaleAfter,
		log:          cfg.Logger,
	}
}

// RecordToday records the current date's astronomical snapshot.
func (s *Service) RecordToday() astro.DailyRecord {
	rec := s.history.RecordToday(s.location)
	s.log.Debug("recorded daily snapshot", logger.String("date", rec.Date))
	return rec
}

// Backfill synthesizes records back to the given horizon and returns the
// total number of records held.
func (s *Service) Backfill(maxDays int) int {
	total := s.history.Backfill(maxDays, s.location)
	s.log.Info("backfill complete",
		logger.Int("horizonDays", maxDays),
		logger.Int("totalRecords", total))
	return total
}

// RefreshAtmosphere fetches current conditions and appends them to the
// history log. Only the most recently started successful fetch updates the
// current view: a slower, older fetch may complete but its result is
// discarded. On failure the last-good view is kept and the error recorded.
func (s *Service) RefreshAtmosphere(ctx context.Context) error {
	s.mu.Lock()
	s.fetchSeq++
	seq := s.fetchSeq
	s.mu.Unlock()

	snap, err := s.provider.Fetch(ctx, s.location)

	s.mu.Lock()
	defer s.mu.Unlock()

	if err != nil {
		s.lastErr = err
		s.log.Warn("atmosphere refresh failed", logger.Error(err))
		return err
	}
	if seq < s.appliedSeq {
		// A fetch started after this one already landed.
		s.log.Debug("discarding stale atmosphere fetch")
		return nil
	}
	s.appliedSeq = seq
	s.current = &snap
	s.lastFetch = snap.Timestamp
	s.lastErr = nil

	s.atmoLog.Append(snap)
	return nil
}

// Atmosphere returns the last-known atmosphere state.
func (s *Service) Atmosphere() AtmosphereState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return AtmosphereState{
		Snapshot:  s.current,
		LastFetch: s.lastFetch,
		Err:       s.lastErr,
	}
}

// AtmosphereHistory returns the retained atmosphere log entries.
func (s *Service) AtmosphereHistory() []atmosphere.Snapshot {
	return s.atmoLog.Entries()
}

// NeedsRefresh reports whether the atmosphere view is missing or stale.
func (s *Service) NeedsRefresh() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.lastFetch.IsZero() {
		return true
	}
	return time.Since(s.lastFetch) > s.staleAfter
}

// RunDetection runs the full detection pass over the recent record window
// and the atmosphere history, merges the results into the repository, and
// returns the freshly detected set.
func (s *Service) RunDetection() []patterns.Pattern {
	records := s.history.RecentRecords(s.recentWindow)
	detected := patterns.DetectAll(records, s.atmoLog.Entries())
	s.repo.MergeDetected(detected)

	s.log.Info("detection run complete",
		logger.Int("records", len(records)),
		logger.Int("atmosphereEntries", s.atmoLog.Len()),
		logger.Int("detected", len(detected)))
	return detected
}
