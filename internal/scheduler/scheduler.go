// Package scheduler triggers refresh-all runs on a cron schedule.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/hazz-dev/statuswatch/internal/endpoint"
	"github.com/hazz-dev/statuswatch/internal/refresh"
)

// Refresher refreshes every known endpoint.
type Refresher interface {
	RefreshAll(ctx context.Context) ([]endpoint.Endpoint, error)
}

// Scheduler runs a refresh of all endpoints on each tick of a cron schedule.
// Overlapping ticks are skipped while a run is still in progress.
type Scheduler struct {
	schedule  string
	refresher Refresher
	cron      *cron.Cron
	logger    *slog.Logger

	// background tracks runs started by RunInBackground.
	background sync.WaitGroup
}

// New creates a Scheduler for a standard cron expression or descriptor
// such as "@every 5m". An empty schedule disables periodic runs; RunOnce
// still works. Pass nil logger to use slog.Default().
func New(schedule string, refresher Refresher, logger *slog.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if schedule != "" {
		if _, err := cron.ParseStandard(schedule); err != nil {
			return nil, fmt.Errorf("parsing schedule %q: %w", schedule, err)
		}
	}
	cl := cronLogger{logger: logger}
	return &Scheduler{
		schedule:  schedule,
		refresher: refresher,
		cron:      cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		logger:    logger,
	}, nil
}

// Start registers the refresh job and starts the cron loop. It is non-blocking.
// Jobs run with ctx, so cancelling it aborts in-flight probes.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.schedule == "" {
		s.logger.Info("scheduler disabled")
		return nil
	}
	_, err := s.cron.AddFunc(s.schedule, func() {
		if ctx.Err() != nil {
			return
		}
		s.RunOnce(ctx)
	})
	if err != nil {
		return fmt.Errorf("adding refresh job: %w", err)
	}
	s.cron.Start()
	s.logger.Info("scheduler started", "schedule", s.schedule)
	return nil
}

// RunInBackground starts a single refresh in its own goroutine. Stop waits
// for it to return.
func (s *Scheduler) RunInBackground(ctx context.Context) {
	s.background.Add(1)
	go func() {
		defer s.background.Done()
		s.RunOnce(ctx)
	}()
}

// Stop halts the schedule and blocks until every running refresh, scheduled
// or started by RunInBackground, has returned.
func (s *Scheduler) Stop() {
	if s.schedule != "" {
		<-s.cron.Stop().Done()
	}
	s.background.Wait()
	s.logger.Info("scheduler stopped")
}

// RunOnce refreshes every endpoint and returns the summary. Records that
// failed to persist are excluded from the counts; their errors are returned.
func (s *Scheduler) RunOnce(ctx context.Context) (refresh.Summary, error) {
	start := time.Now()
	refreshed, err := s.refresher.RefreshAll(ctx)
	summary := refresh.Summarize(refreshed)
	if err != nil {
		s.logger.Error("scheduled refresh had failures", "error", err)
	}
	s.logger.Info("completed scheduled endpoint refresh",
		"refreshed", summary.RefreshedCount,
		"unhealthy", summary.UnhealthyCount,
		"duration", time.Since(start),
	)
	return summary, err
}

// cronLogger adapts slog to cron.Logger.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append(keysAndValues, "error", err)...)
}
