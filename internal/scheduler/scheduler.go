// Package scheduler runs the bot's periodic maintenance jobs on gocron.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"
)

const jobTimeout = 30 * time.Second

type Job struct {
	Name  string
	Every time.Duration
	Run   func(ctx context.Context) error
}

type Scheduler struct {
	sched  gocron.Scheduler
	logger *zap.Logger
}

func New(logger *zap.Logger) (*Scheduler, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	sched, err := gocron.NewScheduler()
	if err != nil {
		return nil, err
	}
	return &Scheduler{sched: sched, logger: logger}, nil
}

// Add registers job. A run that is still going when the next tick fires is
// not started twice.
func (s *Scheduler) Add(job Job) error {
	if job.Every <= 0 {
		return errors.New("scheduler: job interval must be positive")
	}
	_, err := s.sched.NewJob(
		gocron.DurationJob(job.Every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(context.Background(), jobTimeout)
			defer cancel()
			if err := job.Run(ctx); err != nil {
				s.logger.Warn("scheduled job failed", zap.String("job", job.Name), zap.Error(err))
			}
		}),
		gocron.WithName(job.Name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	return err
}

func (s *Scheduler) Start() {
	s.sched.Start()
}

func (s *Scheduler) Shutdown() error {
	return s.sched.Shutdown()
}

type sweeper interface {
	Sweep(now time.Time) int
}

type retention interface {
	CleanupAuditLogs(ctx context.Context, retentionDays int) (int64, error)
}

type flusher interface {
	Flush() error
}

// CooldownSweep drops expired cooldown entries.
func CooldownSweep(tracker sweeper, every time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:  "cooldown_sweep",
		Every: every,
		Run: func(context.Context) error {
			if removed := tracker.Sweep(time.Now()); removed > 0 && logger != nil {
				logger.Debug("cooldown sweep", zap.Int("removed", removed))
			}
			return nil
		},
	}
}

// AuditRetention deletes audit rows older than days.
func AuditRetention(store retention, days int, every time.Duration, logger *zap.Logger) Job {
	return Job{
		Name:  "audit_retention",
		Every: every,
		Run: func(ctx context.Context) error {
			removed, err := store.CleanupAuditLogs(ctx, days)
			if err != nil {
				return err
			}
			if removed > 0 && logger != nil {
				logger.Info("audit retention", zap.Int64("removed", removed), zap.Int("days", days))
			}
			return nil
		},
	}
}

func BackendFlush(backend flusher, every time.Duration) Job {
	return Job{
		Name:  "backend_flush",
		Every: every,
		Run: func(context.Context) error {
			return backend.Flush()
		},
	}
}
