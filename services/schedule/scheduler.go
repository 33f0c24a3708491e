package schedule

import (
	"context"
	"time"

	"hireloop-billing/pkg/config"
	"hireloop-billing/pkg/task"
	"hireloop-billing/pkg/taskname"

	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Scheduler enqueues the daily sweeps. The actual work runs on the asynq
// worker so a crashed sweep is retried there, not here.
type Scheduler struct {
	enqueuer task.Enqueuer
	cfg      *config.Config
}

func NewScheduler(enqueuer task.Enqueuer, cfg *config.Config) *Scheduler {
	return &Scheduler{enqueuer: enqueuer, cfg: cfg}
}

// StartScheduler wires the daily loop to the fx lifecycle. The loop gets its
// own context; the OnStart one is cancelled as soon as startup finishes.
func StartScheduler(lc fx.Lifecycle, s *Scheduler) {
	runCtx, cancel := context.WithCancel(context.Background())
	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go s.run(runCtx)
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}

func (s *Scheduler) run(ctx context.Context) {
	zap.L().Info("[Scheduler] started payout sweep scheduler")

	for {
		now := time.Now()
		next := nextRunTime(now, s.cfg.Scheduler.SweepHour, s.cfg.Scheduler.SweepMinute)

		sleepDuration := next.Sub(now)
		zap.L().Info("[Scheduler] next run scheduled",
			zap.Time("next_run", next),
			zap.Duration("sleep_for", sleepDuration),
		)
		select {
		case <-time.After(sleepDuration):
			s.runDaily(ctx)
		case <-ctx.Done():
			zap.L().Warn("[Scheduler] stopped")
			return
		}
	}
}

func (s *Scheduler) runDaily(ctx context.Context) {
	zap.L().Info("[Scheduler] enqueueing daily sweeps")

	if _, err := s.enqueuer.Enqueue(ctx, asynq.NewTask(taskname.PayoutScheduleSweep, nil)); err != nil {
		zap.L().Error("[Scheduler] failed to enqueue payout sweep", zap.Error(err))
	}
	if _, err := s.enqueuer.Enqueue(ctx, asynq.NewTask(taskname.EscrowReleaseDue, nil)); err != nil {
		zap.L().Error("[Scheduler] failed to enqueue escrow release sweep", zap.Error(err))
	}
}

// nextRunTime computes the next occurrence of the given wall-clock time.
func nextRunTime(now time.Time, hour, minute int) time.Time {
	next := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if now.After(next) {
		next = next.Add(24 * time.Hour)
	}
	return next
}
