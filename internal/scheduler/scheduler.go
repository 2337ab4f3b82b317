package scheduler

import (
	"context"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/s4584690/Pixel-Weather/internal/geo"
	"github.com/s4584690/Pixel-Weather/internal/observability"
)

// Scheduler periodically re-syncs the suburb reference list from its
// provider into the geofence index. A failed sync leaves the previous
// snapshot in place; in-flight lookups are never affected either way because
// the index swaps snapshots atomically.
type Scheduler struct {
	scheduler *gocron.Scheduler
	provider  geo.Provider
	index     *geo.Index
	interval  time.Duration
	timeout   time.Duration
	logger    *zap.Logger
	metrics   *observability.Metrics
}

// New creates a Scheduler. interval controls the re-sync cadence; timeout
// bounds each provider call.
func New(provider geo.Provider, index *geo.Index, interval, timeout time.Duration, logger *zap.Logger, metrics *observability.Metrics) *Scheduler {
	s := gocron.NewScheduler(time.UTC)
	return &Scheduler{
		scheduler: s,
		provider:  provider,
		index:     index,
		interval:  interval,
		timeout:   timeout,
		logger:    logger,
		metrics:   metrics,
	}
}

// Start schedules the periodic re-sync job and starts the underlying scheduler.
func (s *Scheduler) Start() error {
	_, err := s.scheduler.Every(s.interval).Do(s.sync)
	if err != nil {
		return err
	}
	s.scheduler.StartAsync()
	return nil
}

// Sync runs one re-sync immediately. Used at startup to load the initial
// snapshot before the server accepts traffic.
func (s *Scheduler) Sync(ctx context.Context) error {
	suburbs, err := s.provider.ListSuburbs(ctx)
	if err != nil {
		return err
	}
	s.index.Replace(suburbs)
	s.metrics.SuburbsLoaded.Set(float64(len(suburbs)))
	s.logger.Info("suburb reference synced", zap.Int("count", len(suburbs)))
	return nil
}

func (s *Scheduler) sync() {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	if err := s.Sync(ctx); err != nil {
		s.metrics.SuburbSyncErrors.Inc()
		s.logger.Error("suburb reference sync failed, keeping previous snapshot", zap.Error(err))
	}
}

// Stop stops the scheduler and cancels any future jobs.
func (s *Scheduler) Stop() {
	if s.scheduler != nil {
		s.scheduler.Stop()
	}
}
