package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"orgledger/internal/log"
)

// SchedulerConfig holds configuration for the reconciliation scheduler
type SchedulerConfig struct {
	// Schedule is a standard five-field cron expression (default: every 15 minutes)
	Schedule string

	// RunOnStart triggers one pass as soon as the scheduler starts (default: true)
	RunOnStart bool

	// Timeout bounds a single pass (default: 5m)
	Timeout time.Duration

	// Location evaluates the schedule (default: UTC)
	Location *time.Location
}

// DefaultSchedulerConfig returns sensible defaults
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Schedule:   "*/15 * * * *",
		RunOnStart: true,
		Timeout:    5 * time.Minute,
		Location:   time.UTC,
	}
}

// Job is one scheduled pass.
type Job func(ctx context.Context) error

// Scheduler runs a Job on a cron schedule. A pass still running when the
// next one is due is skipped rather than stacked.
type Scheduler struct {
	job    Job
	config SchedulerConfig
	logger *log.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	cron    *cron.Cron
	ctx     context.Context
	cancel  context.CancelFunc
	passes  sync.WaitGroup
}

// NewScheduler validates the schedule and creates a scheduler
func NewScheduler(job Job, config SchedulerConfig, logger *log.Logger) (*Scheduler, error) {
	defaults := DefaultSchedulerConfig()
	if config.Schedule == "" {
		config.Schedule = defaults.Schedule
	}
	if config.Timeout <= 0 {
		config.Timeout = defaults.Timeout
	}
	if config.Location == nil {
		config.Location = defaults.Location
	}
	if _, err := cron.ParseStandard(config.Schedule); err != nil {
		return nil, fmt.Errorf("invalid schedule %q: %w", config.Schedule, err)
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &Scheduler{
		job:    job,
		config: config,
		logger: logger.WithComponent(log.ComponentWorker),
	}, nil
}

// Start begins the schedule. Returns an error if already running.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		return fmt.Errorf("scheduler is already running")
	}

	c := cron.New(
		cron.WithLocation(s.config.Location),
		cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
	)
	if _, err := c.AddFunc(s.config.Schedule, func() { s.runPass("schedule") }); err != nil {
		return fmt.Errorf("schedule reconciliation: %w", err)
	}

	s.ctx, s.cancel = context.WithCancel(ctx)
	s.cron = c
	s.running = true
	c.Start()

	if s.config.RunOnStart {
		s.passes.Add(1)
		go func() {
			defer s.passes.Done()
			s.runPass("startup")
		}()
	}

	s.logger.InfoContext(ctx, "Reconciliation scheduler started",
		"schedule", s.config.Schedule,
		"location", s.config.Location.String())
	return nil
}

// Stop gracefully stops the scheduler and waits for a running pass.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	c, cancel := s.cron, s.cancel
	s.running = false
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		<-c.Stop().Done()
		s.passes.Wait()
		close(done)
	}()

	select {
	case <-done:
		cancel()
		s.logger.InfoContext(ctx, "Reconciliation scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		cancel()
		s.logger.WarnContext(ctx, "Reconciliation scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the scheduler is currently running
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) runPass(trigger string) {
	s.mu.Lock()
	parent := s.ctx
	s.mu.Unlock()
	if parent == nil || parent.Err() != nil {
		return
	}

	ctx, cancel := context.WithTimeout(parent, s.config.Timeout)
	defer cancel()

	start := time.Now()
	if err := s.job(ctx); err != nil {
		s.logger.ErrorContext(ctx, "Reconciliation pass failed",
			"trigger", trigger,
			log.FieldError, err)
		return
	}
	s.logger.DebugContext(ctx, "Reconciliation pass finished",
		"trigger", trigger,
		log.FieldDuration, time.Since(start).Milliseconds())
}
