// Package scheduler re-runs the indicators query on a cron schedule so the
// cache is warm when a session asks for it.
package scheduler

import (
	"context"
	"fmt"
	"popmetrics/internal/cache"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Refresher is the part of the cache the scheduler drives.
type Refresher interface {
	Refresh(ctx context.Context, query string) (*cache.Snapshot, error)
}

// Scheduler refreshes one query on a cron schedule.
type Scheduler struct {
	target Refresher
	query  string
	logger *zap.Logger
	cron   *cron.Cron

	mu      sync.Mutex
	lastRun time.Time
	lastErr error
	started bool
}

// New validates spec ("@every 10m", "0 */10 * * * *" with seconds, ...) and
// prepares the job without starting it.
func New(target Refresher, query, spec string, logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Scheduler{
		target: target,
		query:  query,
		logger: logger,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithSeconds(),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
	}
	if _, err := s.cron.AddFunc(spec, func() { _ = s.RunOnce(context.Background()) }); err != nil {
		return nil, fmt.Errorf("invalid refresh schedule %q: %w", spec, err)
	}
	return s, nil
}

// RunOnce refreshes the query now. Failures are logged and returned; the
// next tick tries again.
func (s *Scheduler) RunOnce(ctx context.Context) error {
	start := time.Now()
	snap, err := s.target.Refresh(ctx, s.query)

	s.mu.Lock()
	s.lastRun = start
	s.lastErr = err
	s.mu.Unlock()

	if err != nil {
		s.logger.Warn("scheduled refresh failed", zap.Error(err))
		return err
	}
	s.logger.Info("scheduled refresh complete",
		zap.Int("rows", snap.Table.Len()),
		zap.Duration("took", time.Since(start)),
	)
	return nil
}

func (s *Scheduler) Start() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return
	}
	s.started = true
	s.cron.Start()
	s.logger.Info("refresh scheduler started")
}

// Stop halts the schedule and waits for a running refresh to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	s.mu.Unlock()

	<-s.cron.Stop().Done()
	s.logger.Info("refresh scheduler stopped")
}

// LastRun reports when the last refresh started and how it ended.
func (s *Scheduler) LastRun() (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRun, s.lastErr
}
