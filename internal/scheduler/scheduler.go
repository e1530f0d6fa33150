package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"

	"github.com/skywatchapp/skywatch/internal/tracker"
	"github.com/skywatchapp/skywatch/pkg/logger"
)

// Scheduler periodically refreshes atmosphere data and re-runs daily
// recording plus pattern detection.
type Scheduler struct {
	scheduler *gocron.Scheduler
	service   *tracker.Service

	fetchInterval     time.Duration
	detectionInterval time.Duration
	log               *logger.Logger
}

// New creates a Scheduler.
func New(service *tracker.Service, fetchInterval, detectionInterval time.Duration, log *logger.Logger) *Scheduler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Scheduler{
		scheduler:         gocron.NewScheduler(time.Local),
		service:           service,
		fetchInterval:     fetchInterval,
		detectionInterval: detectionInterval,
		log:               log,
	}
}

// Start schedules the periodic jobs and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	fetchMinutes := int(s.fetchInterval.Minutes())
	if fetchMinutes <= 0 {
		fetchMinutes = 15
	}

	_, err := s.scheduler.Every(fetchMinutes).Minutes().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := s.service.RefreshAtmosphere(ctx); err != nil {
			s.log.Warn("scheduled atmosphere refresh failed", logger.Error(err))
		}
	})
	if err != nil {
		return err
	}

	detectMinutes := int(s.detectionInterval.Minutes())
	if detectMinutes <= 0 {
		detectMinutes = 60
	}

	_, err = s.scheduler.Every(detectMinutes).Minutes().Do(func() {
		// Re-record today before detecting so day rollovers are captured.
		s.service.RecordToday()
		detected := s.service.RunDetection()
		s.log.Debug("scheduled detection run", logger.Int("detected", len(detected)))
	})
	if err != nil {
		return err
	}

	s.scheduler.StartAsync()
	return nil
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
