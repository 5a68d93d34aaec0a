// Package schedule runs recurring jobs on cron expressions.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// Job is a named unit of scheduled work.
type Job struct {
	Name     string
	Schedule string // standard five-field cron expression, or a descriptor such as "@hourly"
	Run      func(ctx context.Context) error
	Timeout  time.Duration // zero means no timeout
}

// Scheduler manages cron-based job execution.
type Scheduler struct {
	cron    *cron.Cron
	logger  *slog.Logger
	mu      sync.Mutex
	entries map[string]cron.EntryID // job name → cron entry
	ctx     context.Context
	cancel  context.CancelFunc
}

// NewScheduler creates a Scheduler. Jobs are added with Reload.
func NewScheduler(logger *slog.Logger) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron:    cron.New(),
		logger:  logger,
		entries: make(map[string]cron.EntryID),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// ValidateSchedule reports whether expr is a cron expression the scheduler accepts.
func ValidateSchedule(expr string) error {
	if _, err := cron.ParseStandard(expr); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", expr, err)
	}
	return nil
}

// Start starts the cron loop. Jobs run until Stop is called.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.logger.Info("scheduler started", "jobs", s.Len())
}

// Stop stops the cron loop, cancels running jobs and waits for them to return.
func (s *Scheduler) Stop() {
	s.cancel()
	<-s.cron.Stop().Done()
	s.logger.Info("scheduler stopped")
}

// Reload replaces every registered job with jobs. A job with an invalid
// schedule is logged and skipped; the rest are still registered.
func (s *Scheduler) Reload(jobs ...Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, id := range s.entries {
		s.cron.Remove(id)
	}
	s.entries = make(map[string]cron.EntryID)

	var firstErr error
	for _, job := range jobs {
		id, err := s.cron.AddFunc(job.Schedule, s.wrap(job))
		if err != nil {
			s.logger.Warn("invalid cron schedule", "job", job.Name, "schedule", job.Schedule, "error", err)
			if firstErr == nil {
				firstErr = fmt.Errorf("schedule job %s: %w", job.Name, err)
			}
			continue
		}
		s.entries[job.Name] = id
		s.logger.Info("scheduled job", "job", job.Name, "schedule", job.Schedule)
	}
	return firstErr
}

// Len returns the number of registered jobs.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Next returns the next activation time of the named job.
func (s *Scheduler) Next(name string) (time.Time, bool) {
	s.mu.Lock()
	id, ok := s.entries[name]
	s.mu.Unlock()
	if !ok {
		return time.Time{}, false
	}
	return s.cron.Entry(id).Next, true
}

// wrap turns job into a cron func that never panics the scheduler goroutine.
func (s *Scheduler) wrap(job Job) func() {
	return func() {
		ctx := s.ctx
		if job.Timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, job.Timeout)
			defer cancel()
		}
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error("scheduled job panicked", "job", job.Name, "panic", r)
			}
		}()

		start := time.Now()
		if err := job.Run(ctx); err != nil {
			s.logger.Warn("scheduled job failed", "job", job.Name, "error", err, "duration", time.Since(start))
			return
		}
		s.logger.Info("scheduled job finished", "job", job.Name, "duration", time.Since(start))
	}
}
