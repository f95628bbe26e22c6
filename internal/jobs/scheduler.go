// Package jobs runs periodic maintenance on a cron schedule.
package jobs

import (
	"context"
	"fmt"
	"time"

	"isintu/internal/middleware"

	"github.com/robfig/cron/v3"
)

// Job is one unit of scheduled work.
type Job interface {
	Name() string
	Schedule() string
	Run(ctx context.Context) error
}

// Scheduler owns the cron runner and the registered jobs.
type Scheduler struct {
	cron    *cron.Cron
	jobs    map[string]Job
	timeout time.Duration
}

func NewScheduler() *Scheduler {
	return &Scheduler{
		cron:    cron.New(),
		jobs:    make(map[string]Job),
		timeout: 10 * time.Minute,
	}
}

// Register schedules job. A job with an empty schedule can still be run by name.
func (s *Scheduler) Register(job Job) error {
	if _, dup := s.jobs[job.Name()]; dup {
		return fmt.Errorf("job %q already registered", job.Name())
	}
	if spec := job.Schedule(); spec != "" {
		if _, err := s.cron.AddFunc(spec, func() { s.execute(context.Background(), job) }); err != nil {
			return fmt.Errorf("schedule %q for job %q: %w", spec, job.Name(), err)
		}
		middleware.Logger.Info("job scheduled", "job", job.Name(), "cron", spec)
	}
	s.jobs[job.Name()] = job
	return nil
}

func (s *Scheduler) execute(ctx context.Context, job Job) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()
	err := job.Run(ctx)
	if err != nil {
		middleware.Logger.Error("job failed", "job", job.Name(), "duration", time.Since(start), "error", err)
		return err
	}
	middleware.Logger.Info("job completed", "job", job.Name(), "duration", time.Since(start))
	return nil
}

// RunByName executes a registered job immediately.
func (s *Scheduler) RunByName(ctx context.Context, name string) error {
	job, ok := s.jobs[name]
	if !ok {
		return fmt.Errorf("job %q not registered", name)
	}
	return s.execute(ctx, job)
}

func (s *Scheduler) Start() {
	s.cron.Start()
	middleware.Logger.Info("job scheduler started", "jobs", len(s.jobs))
}

// Stop prevents new runs and waits for running ones until ctx is done.
func (s *Scheduler) Stop(ctx context.Context) {
	done := s.cron.Stop().Done()
	select {
	case <-done:
	case <-ctx.Done():
		middleware.Logger.Warn("job scheduler stop timed out")
	}
}
