package cron

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"

	"github.com/kaokai/furniture-backend/pkg/logger"
	"github.com/kaokai/furniture-backend/pkg/metrics"
)

const defaultTick = time.Minute

var ErrUnknownJob = errors.New("unknown cron job")

type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Lock     Lock
	Metrics  *metrics.CronJobMetrics
	// Tick is how often the registry is checked for due jobs.
	Tick time.Duration
}

// Service wakes up every tick and, while holding the cluster lock, runs
// whichever jobs are due. Instances that lose the lock skip the tick.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	lock     Lock
	metrics  *metrics.CronJobMetrics
	tick     time.Duration
	now      func() time.Time
}

func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Logger == nil:
		return nil, errors.New("logger required")
	case params.Lock == nil:
		return nil, errors.New("lock required")
	case params.Registry == nil:
		return nil, errors.New("registry required")
	}
	tick := params.Tick
	if tick <= 0 {
		tick = defaultTick
	}
	return &Service{
		logg:     params.Logger,
		registry: params.Registry,
		lock:     params.Lock,
		metrics:  params.Metrics,
		tick:     tick,
		now:      time.Now,
	}, nil
}

// Run ticks immediately and then every tick until ctx is cancelled.
func (s *Service) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.tick)
	defer ticker.Stop()
	for {
		if err := s.RunDue(ctx); err != nil {
			s.logg.Error(ctx, "cron.tick_failed", err)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// RunDue runs every due job once. Job failures do not stop later jobs and
// come back combined.
func (s *Service) RunDue(ctx context.Context) error {
	return s.locked(ctx, func() error {
		var errs error
		for _, job := range s.registry.Due(s.now()) {
			errs = multierr.Append(errs, s.run(ctx, job))
		}
		return errs
	})
}

// RunJob runs one job by name under the lock, ignoring its cadence.
func (s *Service) RunJob(ctx context.Context, name string) error {
	job, ok := s.registry.Lookup(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownJob, name)
	}
	return s.locked(ctx, func() error { return s.run(ctx, job) })
}

func (s *Service) locked(ctx context.Context, fn func() error) error {
	acquired, err := s.lock.Acquire(ctx)
	if err != nil {
		return fmt.Errorf("acquire cron lock: %w", err)
	}
	if !acquired {
		s.logg.Debug(ctx, "cron.lock_busy")
		s.metrics.IncSkippedCycle()
		return nil
	}
	defer func() {
		if err := s.lock.Release(ctx); err != nil {
			s.logg.Error(ctx, "cron.lock_release_failed", err)
		}
	}()
	return fn()
}

func (s *Service) run(ctx context.Context, job Job) error {
	started := s.now()
	s.registry.MarkRun(job.Name(), started)

	jobCtx := s.logg.WithField(ctx, "job", job.Name())
	err := job.Run(jobCtx)
	elapsed := time.Since(started)
	s.metrics.ObserveRun(job.Name(), elapsed, err)

	jobCtx = s.logg.WithField(jobCtx, "duration_ms", elapsed.Milliseconds())
	if err != nil {
		s.logg.Error(jobCtx, "cron.job_failed", err)
		return fmt.Errorf("%s: %w", job.Name(), err)
	}
	s.logg.Info(jobCtx, "cron.job_done")
	return nil
}
