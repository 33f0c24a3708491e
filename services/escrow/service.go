package escrow

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

// PayoutStamper stamps a payout after its linked escrow hold is released.
type PayoutStamper interface {
	MarkHoldbackReleased(ctx context.Context, payoutID, holdID, actor string) error
}

type Service struct {
	node    *snowflake.Node
	holds   repository.Repository[EscrowHold]
	payouts PayoutStamper
}

type ServiceParams struct {
	fx.In
	DB      *gorm.DB
	Node    *snowflake.Node
	Payouts *payout.Service
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:    p.Node,
		holds:   repository.ProvideStore[EscrowHold](p.DB),
		payouts: p.Payouts,
	}
}

type CreateHoldInput struct {
	PlacementID string
	PayoutID    string
	Amount      float64
	Reason      string
	ReleaseDate *time.Time
}

func (s *Service) CreateHold(ctx context.Context, in CreateHoldInput) (*EscrowHold, error) {
	if in.Amount <= 0 {
		return nil, errutil.ValidationFailed("hold amount must be greater than zero", nil)
	}
	if in.PlacementID == "" {
		return nil, errutil.BadRequest("placement_id is required", nil)
	}

	hold := &EscrowHold{
		ID:          s.node.Generate().String(),
		PlacementID: in.PlacementID,
		PayoutID:    in.PayoutID,
		Amount:      in.Amount,
		Reason:      in.Reason,
		Status:      StatusActive,
		HeldAt:      time.Now(),
		ReleaseDate: in.ReleaseDate,
	}

	if err := s.holds.Create(ctx, hold); err != nil {
		return nil, err
	}

	return hold, nil
}

// ReleaseHold releases an active hold. The hold update and the linked payout
// stamp are two separate writes, not one transaction: if the payout stamp
// fails the hold stays released and the mismatch is logged loudly so it can
// be monitored, never hidden.
func (s *Service) ReleaseHold(ctx context.Context, holdID, releasedBy string) (*EscrowHold, error) {
	hold, err := s.holds.FindOne(ctx, &EscrowHold{ID: holdID})
	if err != nil {
		return nil, err
	}
	if hold == nil {
		return nil, errutil.NotFound("escrow hold not found", nil)
	}
	if hold.Status == StatusReleased {
		return nil, errutil.Conflict("escrow hold already released", nil)
	}

	now := time.Now()
	released, err := s.holds.UpdateMatching(ctx,
		&EscrowHold{ID: holdID, Status: StatusActive},
		map[string]any{
			"status":      StatusReleased,
			"released_at": now,
			"released_by": releasedBy,
		},
	)
	if err != nil {
		return nil, err
	}
	if released == 0 {
		return nil, errutil.Conflict("escrow hold state changed while releasing", nil)
	}

	if hold.PayoutID != "" {
		if err := s.payouts.MarkHoldbackReleased(ctx, hold.PayoutID, hold.ID, releasedBy); err != nil {
			zap.L().Error("escrow hold released but payout stamp failed",
				zap.String("hold_id", hold.ID),
				zap.String("payout_id", hold.PayoutID),
				zap.Error(err),
			)
		}
	}

	return s.holds.FindOne(ctx, &EscrowHold{ID: holdID})
}

// ReleaseDueHolds releases every active hold whose scheduled release date has
// passed. Failures are isolated per hold; the count reflects releases that
// went through.
func (s *Service) ReleaseDueHolds(ctx context.Context) (int, error) {
	due, err := s.holds.Find(ctx,
		&EscrowHold{Status: StatusActive},
		option.ApplyOperator(option.Condition{
			Field:    "release_date",
			Operator: option.LTE,
			Value:    time.Now(),
		}),
	)
	if err != nil {
		return 0, err
	}

	released := 0
	for _, hold := range due {
		if _, err := s.ReleaseHold(ctx, hold.ID, "scheduler"); err != nil {
			zap.L().Error("failed to release due escrow hold",
				zap.String("hold_id", hold.ID), zap.Error(err))
			continue
		}
		released++
	}

	if released > 0 {
		zap.L().Info("released due escrow holds", zap.Int("count", released))
	}
	return released, nil
}

// HandleReleaseDueTask is the asynq entrypoint for the daily release sweep.
func (s *Service) HandleReleaseDueTask(ctx context.Context, _ *asynq.Task) error {
	_, err := s.ReleaseDueHolds(ctx)
	return err
}

func (s *Service) Get(ctx context.Context, holdID string) (*EscrowHold, error) {
	hold, err := s.holds.FindOne(ctx, &EscrowHold{ID: holdID})
	if err != nil {
		return nil, err
	}
	if hold == nil {
		return nil, errutil.NotFound("escrow hold not found", nil)
	}
	return hold, nil
}
