package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"hireloop-billing/pkg/errutil"
	"hireloop-billing/pkg/repository"
	"hireloop-billing/services/payout"
	"hireloop-billing/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type processorStub struct {
	payouts   map[string][]*payout.Payout
	processed []string
	failOn    map[string]error
}

func (p *processorStub) ListByPlacement(ctx context.Context, placementID string) ([]*payout.Payout, error) {
	return p.payouts[placementID], nil
}

func (p *processorStub) Process(ctx context.Context, payoutID string) (*payout.Payout, error) {
	if err := p.failOn[payoutID]; err != nil {
		return nil, err
	}
	p.processed = append(p.processed, payoutID)
	return &payout.Payout{ID: payoutID, Status: payout.StatusCompleted}, nil
}

func newTestService(t *testing.T, processor PayoutProcessor) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &PayoutSchedule{})
	node, err := snowflake.NewNode(3)
	require.NoError(t, err)

	return &Service{
		node:      node,
		schedules: repository.ProvideStore[PayoutSchedule](db),
		payouts:   processor,
	}
}

func mustSchedule(t *testing.T, svc *Service, placementID string, when time.Time) *PayoutSchedule {
	t.Helper()
	sch, err := svc.Schedule(context.Background(), ScheduleInput{
		PlacementID:   placementID,
		ScheduledDate: when,
		TriggerEvent:  "guarantee_period_end",
	})
	require.NoError(t, err)
	return sch
}

func TestScheduleRequiredFields(t *testing.T) {
	svc := newTestService(t, &processorStub{})

	cases := []struct {
		name string
		in   ScheduleInput
	}{
		{"missing placement", ScheduleInput{ScheduledDate: time.Now(), TriggerEvent: "hire"}},
		{"missing date", ScheduleInput{PlacementID: "placement-1", TriggerEvent: "hire"}},
		{"missing trigger", ScheduleInput{PlacementID: "placement-1", ScheduledDate: time.Now()}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Schedule(context.Background(), tc.in)
			var be errutil.BaseError
			require.True(t, errors.As(err, &be))
			require.Equal(t, errutil.StatusBadRequest, be.Status())
		})
	}
}

func TestSchedulePersistsScheduled(t *testing.T) {
	svc := newTestService(t, &processorStub{})

	sch := mustSchedule(t, svc, "placement-1", time.Now().Add(24*time.Hour))
	require.Equal(t, StatusScheduled, sch.Status)
	require.Nil(t, sch.TriggeredAt)
}

func TestProcessScheduledPayoutsClaimsAndProcesses(t *testing.T) {
	processor := &processorStub{
		payouts: map[string][]*payout.Payout{
			"placement-1": {
				{ID: "pay-1", Status: payout.StatusPending},
				{ID: "pay-2", Status: payout.StatusCompleted},
			},
		},
	}
	svc := newTestService(t, processor)

	due := mustSchedule(t, svc, "placement-1", time.Now().Add(-time.Hour))
	future := mustSchedule(t, svc, "placement-1", time.Now().Add(24*time.Hour))

	count, err := svc.ProcessScheduledPayouts(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)
	require.Equal(t, []string{"pay-1"}, processor.processed, "only pending payouts are handed to the engine")

	got, err := svc.schedules.FindOne(context.Background(), &PayoutSchedule{ID: due.ID})
	require.NoError(t, err)
	require.Equal(t, StatusTriggered, got.Status)
	require.NotNil(t, got.TriggeredAt)

	got, err = svc.schedules.FindOne(context.Background(), &PayoutSchedule{ID: future.ID})
	require.NoError(t, err)
	require.Equal(t, StatusScheduled, got.Status)
}

func TestProcessScheduledPayoutsIsolatesFailures(t *testing.T) {
	processor := &processorStub{
		payouts: map[string][]*payout.Payout{
			"placement-1": {{ID: "pay-1", Status: payout.StatusPending}},
			"placement-2": {{ID: "pay-2", Status: payout.StatusPending}},
			"placement-3": {{ID: "pay-3", Status: payout.StatusPending}},
		},
		failOn: map[string]error{
			"pay-2": errors.New("gateway down"),
		},
	}
	svc := newTestService(t, processor)

	past := time.Now().Add(-time.Hour)
	ids := []string{}
	for _, placement := range []string{"placement-1", "placement-2", "placement-3"} {
		ids = append(ids, mustSchedule(t, svc, placement, past).ID)
	}

	count, err := svc.ProcessScheduledPayouts(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, count, "one failing payout does not abort the batch")
	require.ElementsMatch(t, []string{"pay-1", "pay-3"}, processor.processed)

	for _, id := range ids {
		got, err := svc.schedules.FindOne(context.Background(), &PayoutSchedule{ID: id})
		require.NoError(t, err)
		require.Equal(t, StatusTriggered, got.Status, "every due schedule is marked even when its payout fails")
	}
}

func TestProcessScheduledPayoutsSkipsPlacementWithoutPayouts(t *testing.T) {
	processor := &processorStub{payouts: map[string][]*payout.Payout{}}
	svc := newTestService(t, processor)

	sch := mustSchedule(t, svc, "placement-empty", time.Now().Add(-time.Hour))

	count, err := svc.ProcessScheduledPayouts(context.Background())
	require.NoError(t, err)
	require.Zero(t, count)
	require.Empty(t, processor.processed)

	got, err := svc.schedules.FindOne(context.Background(), &PayoutSchedule{ID: sch.ID})
	require.NoError(t, err)
	require.Equal(t, StatusTriggered, got.Status, "a schedule with no payouts is still consumed")
}

func TestProcessScheduledPayoutsSecondSweepFindsNothing(t *testing.T) {
	processor := &processorStub{
		payouts: map[string][]*payout.Payout{
			"placement-1": {{ID: "pay-1", Status: payout.StatusPending}},
		},
	}
	svc := newTestService(t, processor)

	mustSchedule(t, svc, "placement-1", time.Now().Add(-time.Hour))

	count, err := svc.ProcessScheduledPayouts(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, count)

	count, err = svc.ProcessScheduledPayouts(context.Background())
	require.NoError(t, err)
	require.Zero(t, count, "triggered schedules never fire twice")
	require.Len(t, processor.processed, 1)
}
