package payout

import (
	"context"
	"fmt"
	"math"
	"time"

	"hireloop-billing/pkg/config"
	"hireloop-billing/pkg/db/option"
	"hireloop-billing/pkg/db/pagination"
	"hireloop-billing/pkg/errutil"
	"hireloop-billing/pkg/payment"
	"hireloop-billing/pkg/repository"
	"hireloop-billing/pkg/sequence"

	"github.com/bwmarrin/snowflake"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AccountResolver reports the payment-network account reference for a
// recruiter. An empty reference means onboarding was never completed.
type AccountResolver interface {
	ConnectAccountID(ctx context.Context, recruiterID string) (string, error)
}

type Service struct {
	node            *snowflake.Node
	seq             sequence.Generator
	gateway         payment.Gateway
	accounts        AccountResolver
	transferTimeout time.Duration

	payouts repository.Repository[Payout]
	splits  repository.Repository[PayoutSplit]
	audit   repository.Repository[AuditEntry]
}

type ServiceParams struct {
	fx.In
	DB       *gorm.DB
	Node     *snowflake.Node
	Sequence sequence.Generator
	Config   *config.Config
	Gateway  payment.Gateway
	Accounts AccountResolver
}

func NewService(p ServiceParams) *Service {
	return &Service{
		node:            p.Node,
		seq:             p.Sequence,
		gateway:         p.Gateway,
		accounts:        p.Accounts,
		transferTimeout: p.Config.Stripe.TransferTimeout,

		payouts: repository.ProvideStore[Payout](p.DB),
		splits:  repository.ProvideStore[PayoutSplit](p.DB),
		audit:   repository.ProvideStore[AuditEntry](p.DB),
	}
}

type CreatePayoutInput struct {
	PlacementID       string
	RecruiterID       string
	PlacementFee      float64
	RecruiterSharePct float64
	Amount            float64
	HoldbackAmount    float64
	CreatedBy         string
}

// Create validates and persists a pending payout. The gateway is never
// contacted here; a failed validation writes nothing.
func (s *Service) Create(ctx context.Context, in CreatePayoutInput) (*Payout, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()
	opts := traceFields(span)

	if in.Amount <= 0 {
		return nil, errutil.ValidationFailed("payout amount must be greater than zero", nil)
	}
	if in.RecruiterSharePct < 0 || in.RecruiterSharePct > 100 {
		return nil, errutil.ValidationFailed("recruiter share percentage must be between 0 and 100", nil)
	}

	code, err := s.seq.NextPayoutCode(ctx)
	if err != nil {
		// Reference codes are cosmetic; a sequence outage must not block payouts.
		zap.L().With(opts...).Warn("failed to mint payout reference code", zap.Error(err))
		code = ""
	}

	p := &Payout{
		ID:                s.node.Generate().String(),
		ReferenceCode:     code,
		PlacementID:       in.PlacementID,
		RecruiterID:       in.RecruiterID,
		PlacementFee:      in.PlacementFee,
		RecruiterSharePct: in.RecruiterSharePct,
		Amount:            in.Amount,
		HoldbackAmount:    in.HoldbackAmount,
		Status:            StatusPending,
		CreatedBy:         in.CreatedBy,
	}

	if err := s.payouts.Create(ctx, p); err != nil {
		zap.L().With(opts...).Error("failed to persist payout", zap.Error(err))
		return nil, err
	}

	if err := s.appendAudit(ctx, p.ID, EventCreated, "", StatusPending, "", map[string]any{
		"placement_id": p.PlacementID,
		"recruiter_id": p.RecruiterID,
		"amount":       p.Amount,
	}, in.CreatedBy); err != nil {
		return nil, err
	}

	return p, nil
}

// Process drives a payout through processing to a terminal state. The
// pending|failed to processing transition is a conditional update: only one
// concurrent caller can win the claim, and the loser aborts before any
// gateway call. Each step is persisted before the next begins so the current
// status always tells a restart how far processing got.
func (s *Service) Process(ctx context.Context, payoutID string) (*Payout, error) {
	span := trace.SpanFromContext(ctx)
	defer span.End()
	opts := append(traceFields(span), zap.String("payout_id", payoutID))

	p, err := s.payouts.FindOne(ctx, &Payout{ID: payoutID})
	if err != nil {
		zap.L().With(opts...).Error("failed to load payout", zap.Error(err))
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("payout not found", nil)
	}
	if !processable(p.Status) {
		return nil, errutil.Conflict(fmt.Sprintf("payout is %s and cannot be processed", p.Status), nil)
	}

	claimed, err := s.payouts.UpdateMatching(ctx,
		&Payout{ID: p.ID, Status: p.Status},
		map[string]any{"status": StatusProcessing},
	)
	if err != nil {
		return nil, err
	}
	if claimed == 0 {
		// Another caller moved the payout first; abort without touching the gateway.
		return nil, errutil.Conflict("payout state changed while claiming", nil)
	}

	if err := s.appendAudit(ctx, p.ID, EventStatusChanged, p.Status, StatusProcessing, "", nil, ""); err != nil {
		zap.L().With(opts...).Error("failed to append processing audit entry", zap.Error(err))
	}

	account, err := s.accounts.ConnectAccountID(ctx, p.RecruiterID)
	if err != nil {
		// A resolver outage must land the payout in failed, not strand it in
		// processing where the precondition would reject every retry.
		zap.L().With(opts...).Error("failed to resolve payout account", zap.Error(err))
		s.markFailed(ctx, p, fmt.Sprintf("account resolution failed: %v", err))
		return nil, err
	}
	if account == "" {
		reason := "recruiter has not completed payout onboarding"
		s.markFailed(ctx, p, reason)
		return nil, errutil.UnprocessableEntity(reason, nil)
	}

	callCtx, cancel := context.WithTimeout(ctx, s.transferTimeout)
	defer cancel()

	result, err := s.gateway.CreateTransfer(callCtx, payment.TransferRequest{
		AmountMinor:    int64(math.Round(p.Amount * 100)),
		Destination:    account,
		IdempotencyKey: fmt.Sprintf("payout-%s", p.ID),
		Metadata: map[string]string{
			"payout_id":    p.ID,
			"placement_id": p.PlacementID,
			"recruiter_id": p.RecruiterID,
		},
	})
	if err != nil {
		s.markFailed(ctx, p, err.Error())
		return nil, err
	}

	now := time.Now()
	if err := s.payouts.Update(ctx, p.ID, map[string]any{
		"status":         StatusCompleted,
		"transfer_ref":   result.TransferID,
		"completed_at":   now,
		"failure_reason": "",
		"failed_at":      nil,
	}); err != nil {
		// The transfer went through; the idempotency key protects a replay.
		zap.L().With(opts...).Error("transfer succeeded but persisting result failed",
			zap.String("transfer_ref", result.TransferID), zap.Error(err))
		return nil, err
	}

	if err := s.appendAudit(ctx, p.ID, EventTransferCreated, StatusProcessing, StatusCompleted, "", map[string]any{
		"transfer_ref": result.TransferID,
	}, ""); err != nil {
		zap.L().With(opts...).Error("failed to append transfer audit entry", zap.Error(err))
	}

	s.settleSplits(ctx, p.ID)

	return s.payouts.FindOne(ctx, &Payout{ID: p.ID})
}

func (s *Service) markFailed(ctx context.Context, p *Payout, reason string) {
	now := time.Now()
	if err := s.payouts.Update(ctx, p.ID, map[string]any{
		"status":         StatusFailed,
		"failed_at":      now,
		"failure_reason": reason,
	}); err != nil {
		zap.L().Error("failed to mark payout failed",
			zap.String("payout_id", p.ID), zap.String("reason", reason), zap.Error(err))
		return
	}

	if err := s.appendAudit(ctx, p.ID, EventFailed, StatusProcessing, StatusFailed, reason, map[string]any{
		"error": reason,
	}, ""); err != nil {
		zap.L().Error("failed to append failure audit entry",
			zap.String("payout_id", p.ID), zap.Error(err))
	}
}

func (s *Service) settleSplits(ctx context.Context, payoutID string) {
	affected, err := s.splits.UpdateMatching(ctx,
		&PayoutSplit{PayoutID: payoutID, Status: SplitStatusPending},
		map[string]any{"status": SplitStatusSettled},
	)
	if err != nil {
		zap.L().Error("failed to settle payout splits", zap.String("payout_id", payoutID), zap.Error(err))
		return
	}
	if affected > 0 {
		zap.L().Info("settled payout splits", zap.String("payout_id", payoutID), zap.Int64("count", affected))
	}
}

type SplitInput struct {
	RecruiterID string
	Percentage  float64
	Amount      float64
}

// AddSplits attaches collaborator shares to a payout. Only the incoming batch
// is validated against the 100% ceiling; splits persisted by earlier batches
// are not counted (known gap carried over from the product behaviour).
func (s *Service) AddSplits(ctx context.Context, payoutID string, inputs []SplitInput) ([]*PayoutSplit, error) {
	var total float64
	for _, in := range inputs {
		total += in.Percentage
	}
	if total > 100 {
		return nil, errutil.ValidationFailed(fmt.Sprintf("split percentages sum to %.2f, exceeding 100", total), nil)
	}

	p, err := s.payouts.FindOne(ctx, &Payout{ID: payoutID})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("payout not found", nil)
	}

	splits := make([]*PayoutSplit, 0, len(inputs))
	for _, in := range inputs {
		splits = append(splits, &PayoutSplit{
			ID:          s.node.Generate().String(),
			PayoutID:    payoutID,
			RecruiterID: in.RecruiterID,
			Percentage:  in.Percentage,
			Amount:      in.Amount,
			Status:      SplitStatusPending,
		})
	}

	if err := s.splits.BatchCreate(ctx, splits); err != nil {
		return nil, err
	}

	if err := s.appendAudit(ctx, payoutID, EventSplitsAdded, p.Status, p.Status, "", map[string]any{
		"split_count": len(splits),
	}, ""); err != nil {
		zap.L().Error("failed to append splits audit entry", zap.String("payout_id", payoutID), zap.Error(err))
	}

	return splits, nil
}

// MarkHoldbackReleased stamps the payout after its linked escrow hold was
// released. Called by the escrow service; not exposed over HTTP.
func (s *Service) MarkHoldbackReleased(ctx context.Context, payoutID, holdID, actor string) error {
	p, err := s.payouts.FindOne(ctx, &Payout{ID: payoutID})
	if err != nil {
		return err
	}
	if p == nil {
		return errutil.NotFound("payout not found", nil)
	}

	now := time.Now()
	if err := s.payouts.Update(ctx, p.ID, map[string]any{"holdback_released_at": now}); err != nil {
		return err
	}

	return s.appendAudit(ctx, p.ID, EventHoldbackReleased, p.Status, p.Status, "", map[string]any{
		"hold_id": holdID,
	}, actor)
}

func (s *Service) Get(ctx context.Context, payoutID string) (*Payout, error) {
	p, err := s.payouts.FindOne(ctx, &Payout{ID: payoutID})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("payout not found", nil)
	}
	return p, nil
}

// List pages payouts matching the query, newest first. The page is
// overfetched by one row to detect whether more remain.
func (s *Service) List(ctx context.Context, query *Payout, page pagination.Pagination) ([]*Payout, *pagination.PageInfo, error) {
	limit := page.Limit
	if limit <= 0 {
		limit = 10
	}
	if limit > 250 {
		limit = 250
	}

	opts := []option.QueryOption{listOrder(), option.WithLimit(limit + 1)}
	if page.Cursor != "" {
		cursor, err := pagination.DecodeCursor(page.Cursor)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		before, err := time.Parse(time.RFC3339Nano, cursor.CreatedAt)
		if err != nil {
			return nil, nil, errutil.BadRequest("invalid cursor", err)
		}
		boundaryID := cursor.ID
		// The id tiebreaker keeps rows sharing the boundary timestamp from
		// being skipped between pages.
		opts = append(opts, func(db *gorm.DB) *gorm.DB {
			return db.Where("created_at < ? OR (created_at = ? AND id < ?)", before, before, boundaryID)
		})
	}

	rows, err := s.payouts.Find(ctx, query, opts...)
	if err != nil {
		return nil, nil, err
	}

	return pagination.Trim(rows, limit, func(p *Payout) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt.Format(time.RFC3339Nano), ID: p.ID}
	})
}

// ListByPlacement returns every payout for a placement; the scheduled sweep
// walks the full set.
func (s *Service) ListByPlacement(ctx context.Context, placementID string) ([]*Payout, error) {
	return s.payouts.Find(ctx, &Payout{PlacementID: placementID}, createdAtDesc())
}

// AuditTrail returns the payout's audit log, oldest first.
func (s *Service) AuditTrail(ctx context.Context, payoutID string) ([]*AuditEntry, error) {
	p, err := s.payouts.FindOne(ctx, &Payout{ID: payoutID})
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, errutil.NotFound("payout not found", nil)
	}

	return s.audit.Find(ctx, &AuditEntry{PayoutID: payoutID}, option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "asc",
		Allow:   map[string]bool{"created_at": true},
	}))
}

func (s *Service) appendAudit(ctx context.Context, payoutID, event, oldStatus, newStatus, reason string, meta map[string]any, actor string) error {
	return s.audit.Create(ctx, &AuditEntry{
		ID:        s.node.Generate().String(),
		PayoutID:  payoutID,
		EventType: event,
		OldStatus: oldStatus,
		NewStatus: newStatus,
		Reason:    reason,
		Metadata:  auditMetadata(meta),
		Actor:     actor,
	})
}

// listOrder matches the cursor: newest first, snowflake id breaking timestamp
// ties.
func listOrder() option.QueryOption {
	return func(db *gorm.DB) *gorm.DB {
		return db.Order("created_at DESC, id DESC")
	}
}

func createdAtDesc() option.QueryOption {
	return option.WithSortBy(option.QuerySortBy{
		SortBy:  "created_at",
		OrderBy: "desc",
		Allow:   map[string]bool{"created_at": true},
	})
}

func traceFields(span trace.Span) []zap.Field {
	return []zap.Field{
		zap.String("trace_id", span.SpanContext().TraceID().String()),
		zap.String("span_id", span.SpanContext().SpanID().String()),
	}
}
