// Package scheduler periodically rebuilds pattern sets in long-running mode.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"

	"github.com/yourusername/clever-edge/internal/service"
)

const defaultJobTimeout = 30 * time.Minute

// Rediscoverer rebuilds the pattern sets of the named corpora
type Rediscoverer interface {
	RediscoverFromProvider(ctx context.Context, corpora []string) ([]service.DiscoveryReport, error)
}

// Scheduler manages scheduled re-discovery jobs
type Scheduler struct {
	cron            *cron.Cron
	target          Rediscoverer
	logger          *logrus.Entry
	mu              sync.RWMutex
	isRunning       bool
	jobIDs          []cron.EntryID
	gracefulTimeout time.Duration
	// running and cycling guard against overlapping runs of the same job
	running sync.Mutex
	cycling sync.Mutex
}

// CycleFunc runs one analysis cycle
type CycleFunc func(ctx context.Context) error

// NewScheduler creates a new scheduler
func NewScheduler(target Rediscoverer, logger *logrus.Logger) *Scheduler {
	if logger == nil {
		logger = logrus.New()
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(time.UTC)),
		target:          target,
		logger:          logger.WithField("component", "scheduler"),
		jobIDs:          make([]cron.EntryID, 0),
		gracefulTimeout: 30 * time.Second,
	}
}

// ScheduleRediscovery rebuilds the given corpora on the cron expression
func (s *Scheduler) ScheduleRediscovery(cronExpression string, corpora []string, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if len(corpora) == 0 {
		return fmt.Errorf("no corpora to rediscover")
	}
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}

	entryID, err := s.cron.AddFunc(cronExpression, s.rediscoveryJob(append([]string(nil), corpora...), timeout))
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithFields(logrus.Fields{"cron": cronExpression, "corpora": corpora}).Info("Scheduled pattern re-discovery")
	return nil
}

// rediscoveryJob skips a tick when the previous run is still in progress
func (s *Scheduler) rediscoveryJob(corpora []string, timeout time.Duration) func() {
	return func() {
		if !s.running.TryLock() {
			s.logger.Warn("Previous re-discovery still running, skipping tick")
			return
		}
		defer s.running.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		start := time.Now()
		reports, err := s.target.RediscoverFromProvider(ctx, corpora)
		if err != nil {
			s.logger.WithError(err).Error("Scheduled re-discovery failed")
			return
		}
		replaced := 0
		for _, r := range reports {
			if r.Replaced {
				replaced++
			}
		}
		s.logger.WithFields(logrus.Fields{
			"corpora":  len(reports),
			"replaced": replaced,
			"duration": time.Since(start).String(),
		}).Info("Scheduled re-discovery completed")
	}
}

// ScheduleCycle runs an analysis cycle on the cron expression
func (s *Scheduler) ScheduleCycle(cronExpression string, run CycleFunc, timeout time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("cannot schedule job while scheduler is running")
	}
	if run == nil {
		return fmt.Errorf("no cycle function")
	}
	if timeout <= 0 {
		timeout = defaultJobTimeout
	}

	entryID, err := s.cron.AddFunc(cronExpression, s.cycleJob(run, timeout))
	if err != nil {
		return fmt.Errorf("failed to add job: %w", err)
	}

	s.jobIDs = append(s.jobIDs, entryID)
	s.logger.WithField("cron", cronExpression).Info("Scheduled analysis cycle")
	return nil
}

func (s *Scheduler) cycleJob(run CycleFunc, timeout time.Duration) func() {
	return func() {
		if !s.cycling.TryLock() {
			s.logger.Warn("Previous cycle still running, skipping tick")
			return
		}
		defer s.cycling.Unlock()

		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		if err := run(ctx); err != nil {
			s.logger.WithError(err).Error("Scheduled cycle failed")
		}
	}
}

// Start starts the scheduler
func (s *Scheduler) Start() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return fmt.Errorf("scheduler is already running")
	}
	if len(s.jobIDs) == 0 {
		return fmt.Errorf("no jobs scheduled")
	}

	s.cron.Start()
	s.isRunning = true
	s.logger.WithField("jobs", len(s.jobIDs)).Info("Scheduler started")
	return nil
}

// Stop waits for running jobs up to the graceful timeout
func (s *Scheduler) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.isRunning {
		return nil
	}

	s.isRunning = false
	select {
	case <-s.cron.Stop().Done():
		s.logger.Info("Scheduler stopped")
		return nil
	case <-time.After(s.gracefulTimeout):
		return fmt.Errorf("scheduler stop timed out after %s", s.gracefulTimeout)
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// GetNextRun returns the time of the next scheduled job run
func (s *Scheduler) GetNextRun() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return time.Time{}
	}

	nextRun := time.Time{}
	for _, jobID := range s.jobIDs {
		entry := s.cron.Entry(jobID)
		if entry.Valid() && (nextRun.IsZero() || entry.Next.Before(nextRun)) {
			nextRun = entry.Next
		}
	}
	return nextRun
}

// Entries returns information about scheduled entries
func (s *Scheduler) Entries() []cron.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries := make([]cron.Entry, 0, len(s.jobIDs))
	for _, jobID := range s.jobIDs {
		if entry := s.cron.Entry(jobID); entry.Valid() {
			entries = append(entries, entry)
		}
	}
	return entries
}
