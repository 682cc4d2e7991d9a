package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-co-op/gocron/v2"

	"git.home.luguber.info/inful/gallerybuilder/internal/foundation/errors"
)

// Scheduler wraps gocron scheduler for managing periodic tasks.
type Scheduler struct {
	scheduler gocron.Scheduler
}

// NewScheduler creates a new scheduler instance.
func NewScheduler() (*Scheduler, error) {
	s, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("failed to create gocron scheduler: %w", err)
	}
	return &Scheduler{scheduler: s}, nil
}

// Start begins the scheduler.
func (s *Scheduler) Start(ctx context.Context) {
	slog.Info("Starting scheduler")
	s.scheduler.Start()
}

// Stop gracefully shuts down the scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	slog.Info("Stopping scheduler")
	return s.scheduler.Shutdown()
}

// ScheduleEvery runs task every interval. A run still in progress when the
// next one is due makes the scheduler skip to the following slot.
func (s *Scheduler) ScheduleEvery(name string, interval time.Duration, task func()) (string, error) {
	if interval <= 0 {
		return "", errors.ValidationError("schedule interval must be positive").
			WithContext("interval", interval.String()).
			Build()
	}
	job, err := s.scheduler.NewJob(
		gocron.DurationJob(interval),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create periodic job: %w", err)
	}
	return job.ID().String(), nil
}

// ScheduleCron runs task on a five-field crontab expression.
func (s *Scheduler) ScheduleCron(name, expr string, task func()) (string, error) {
	job, err := s.scheduler.NewJob(
		gocron.CronJob(expr, false),
		gocron.NewTask(task),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return "", errors.ValidationError("invalid cron expression").
			WithCause(err).
			WithContext("expr", expr).
			Build()
	}
	return job.ID().String(), nil
}

// Schedule builds once, then every interval (or on cron when set) until
// ctx is cancelled.
func Schedule(ctx context.Context, runner *Runner, interval time.Duration, cron string) error {
	s, err := NewScheduler()
	if err != nil {
		return errors.DaemonError("failed to start scheduler").WithCause(err).Build()
	}

	task := func() { _, _ = runner.Rebuild(ctx) }
	if cron != "" {
		_, err = s.ScheduleCron("gallery-build", cron, task)
	} else {
		_, err = s.ScheduleEvery("gallery-build", interval, task)
	}
	if err != nil {
		_ = s.Stop(ctx)
		return err
	}

	_, _ = runner.Rebuild(ctx)
	s.Start(ctx)
	<-ctx.Done()
	return s.Stop(context.Background())
}
