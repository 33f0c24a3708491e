package schedule

import (
	"context"
	"time"

	"hireloop-billing/pkg/db/option"
	"hireloop-billing/pkg/errutil"
	"hireloop-billing/pkg/repository"
	"hireloop-billing/services/payout"

	"github.com/bwmarrin/snowflake"
	"github.com/hibiken/asynq"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// PayoutProcessor is the slice of the payout engine the sweep needs.
type PayoutProcessor interface {
	ListByPlacement(ctx context.Context, placementID string) ([]*payout.Payout, error)
	Process(ctx context.Context, payoutID string) (*payout.Payout, error)
}

type Service struct {
	node      *snowflake.Node
	schedules repository.Repository[PayoutSchedule]
	payouts   PayoutProcessor
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Payouts *payout.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:      p.Node,
		schedules: repository.ProvideStore[PayoutSchedule](p.DB),
		payouts:   p.Payouts,
	}
}

type ScheduleInput struct {
	PlacementID   string
	ScheduledDate time.Time
	TriggerEvent  string
}

// Schedule persists a deferred processing trigger. Pure bookkeeping; no
// validation beyond required fields.
func (s *Service) Schedule(ctx context.Context, in ScheduleInput) (*PayoutSchedule, error) {
	if in.PlacementID == "" {
		return nil, errutil.BadRequest("placement_id is required", nil)
	}
	if in.ScheduledDate.IsZero() {
		return nil, errutil.BadRequest("scheduled_date is required", nil)
	}
	if in.TriggerEvent == "" {
		return nil, errutil.BadRequest("trigger_event is required", nil)
	}

	sch := &PayoutSchedule{
		ID:            s.node.Generate().String(),
		PlacementID:   in.PlacementID,
		ScheduledDate: in.ScheduledDate,
		TriggerEvent:  in.TriggerEvent,
		Status:        StatusScheduled,
	}

	if err := s.schedules.Create(ctx, sch); err != nil {
		return nil, err
	}

	return sch, nil
}

// ProcessScheduledPayouts sweeps due schedules and hands their pending
// payouts to the engine. Each schedule is claimed before any payout work, and
// every failure is contained to its own schedule: one bad payout never aborts
// the batch. Returns how many payouts were processed without error.
func (s *Service) ProcessScheduledPayouts(ctx context.Context) (int, error) {
	due, err := s.schedules.Find(ctx,
		&PayoutSchedule{Status: StatusScheduled},
		option.ApplyOperator(option.Condition{
			Field:    "scheduled_date",
			Operator: option.LTE,
			Value:    time.Now(),
		}),
	)
	if err != nil {
		return 0, err
	}

	processed := 0
	for _, sch := range due {
		log := zap.L().With(
			zap.String("schedule_id", sch.ID),
			zap.String("placement_id", sch.PlacementID),
			zap.String("trigger_event", sch.TriggerEvent),
		)

		now := time.Now()
		claimed, err := s.schedules.UpdateMatching(ctx,
			&PayoutSchedule{ID: sch.ID, Status: StatusScheduled},
			map[string]any{"status": StatusTriggered, "triggered_at": now},
		)
		if err != nil {
			log.Error("failed to claim schedule", zap.Error(err))
			continue
		}
		if claimed == 0 {
			// A concurrent sweep got here first.
			continue
		}

		payouts, err := s.payouts.ListByPlacement(ctx, sch.PlacementID)
		if err != nil {
			log.Error("failed to list placement payouts", zap.Error(err))
			continue
		}
		if len(payouts) == 0 {
			log.Info("schedule has no payouts for placement, skipping")
			continue
		}

		for _, p := range payouts {
			if p.Status != payout.StatusPending {
				continue
			}
			if _, err := s.payouts.Process(ctx, p.ID); err != nil {
				log.Error("scheduled payout processing failed",
					zap.String("payout_id", p.ID), zap.Error(err))
				continue
			}
			processed++
		}
	}

	return processed, nil
}

// HandleSweepTask is the asynq entrypoint for the daily sweep.
func (s *Service) HandleSweepTask(ctx context.Context, _ *asynq.Task) error {
	start := time.Now()
	count, err := s.ProcessScheduledPayouts(ctx)
	if err != nil {
		return err
	}

	zap.L().Info("scheduled payout sweep finished",
		zap.Int("processed", count),
		zap.Duration("duration", time.Since(start)),
	)
	return nil
}
