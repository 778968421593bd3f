package workers

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/brandcart/brandcart-backend/pkg/logger"
	"github.com/brandcart/brandcart-backend/pkg/metrics"
)

// LockFactory builds the lock that serializes one job across instances.
type LockFactory func(jobName string) (Lock, error)

// ServiceParams configure the worker service.
type ServiceParams struct {
	Logger   *logger.Logger
	Registry *Registry
	Locks    LockFactory
	Metrics  *metrics.JobMetrics
}

// Service runs every registered job on its own supervised ticker loop.
type Service struct {
	logg     *logger.Logger
	registry *Registry
	locks    LockFactory
	metrics  *metrics.JobMetrics
}

// NewService builds a worker service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	registry := params.Registry
	if registry == nil {
		registry = NewRegistry()
	}
	locks := params.Locks
	if locks == nil {
		locks = func(string) (Lock, error) { return noopLock{}, nil }
	}
	return &Service{
		logg:     params.Logger,
		registry: registry,
		locks:    locks,
		metrics:  params.Metrics,
	}, nil
}

// Run starts one goroutine per job and blocks until the context is canceled.
func (s *Service) Run(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var wg sync.WaitGroup
	for _, job := range s.registry.Jobs() {
		lock, err := s.locks(job.Name())
		if err != nil {
			return fmt.Errorf("building lock for %s: %w", job.Name(), err)
		}
		wg.Add(1)
		go func(job Job, lock Lock) {
			defer wg.Done()
			s.supervise(ctx, job, lock)
		}(job, lock)
	}
	wg.Wait()
	return ctx.Err()
}

// supervise keeps a job's ticker loop alive, restarting it after a panic.
func (s *Service) supervise(ctx context.Context, job Job, lock Lock) {
	for {
		exited := s.loop(ctx, job, lock)
		if exited {
			return
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(time.Second):
		}
	}
}

// loop runs the job on its interval. It returns true when the context ended
// and false when a panic unwound the loop.
func (s *Service) loop(ctx context.Context, job Job, lock Lock) (done bool) {
	defer func() {
		if r := recover(); r != nil {
			jobCtx := s.logg.WithField(ctx, "job", job.Name())
			s.logg.Error(jobCtx, "job loop panicked; restarting", fmt.Errorf("panic: %v", r))
			done = false
		}
	}()

	ticker := time.NewTicker(job.Interval())
	defer ticker.Stop()

	s.runLocked(ctx, job, lock)
	for {
		select {
		case <-ctx.Done():
			s.logg.Info(s.logg.WithField(ctx, "job", job.Name()), "job loop stopped")
			return true
		case <-ticker.C:
			s.runLocked(ctx, job, lock)
		}
	}
}

func (s *Service) runLocked(ctx context.Context, job Job, lock Lock) {
	jobCtx := s.logg.WithField(ctx, "job", job.Name())

	locked, err := lock.Acquire(ctx)
	if err != nil {
		s.logg.Error(jobCtx, "lock acquire failed", err)
		return
	}
	if !locked {
		s.logg.Info(jobCtx, "another instance holds the lock; skipping this run")
		return
	}
	defer func() {
		if relErr := lock.Release(ctx); relErr != nil {
			s.logg.Error(jobCtx, "lock release failed", relErr)
		}
	}()

	s.runJob(jobCtx, job)
}

func (s *Service) runJob(ctx context.Context, job Job) {
	start := time.Now()
	err := job.Run(ctx)
	duration := time.Since(start)
	s.metrics.ObserveDuration(job.Name(), duration)

	ctx = s.logg.WithField(ctx, "duration_ms", duration.Milliseconds())
	if err != nil {
		s.logg.Error(ctx, "job run failed", err)
		s.metrics.IncFailure(job.Name())
		return
	}
	s.logg.Info(ctx, "job run complete")
	s.metrics.IncSuccess(job.Name())
}
