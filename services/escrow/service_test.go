package escrow

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
	"hireloop-billing/services/testutil"
)

func init() {
	zap.ReplaceGlobals(zap.NewNop())
}

type stamperStub struct {
	calls []stampCall
	err   error
}

type stampCall struct {
	payoutID string
	holdID   string
	actor    string
}

func (s *stamperStub) MarkHoldbackReleased(ctx context.Context, payoutID, holdID, actor string) error {
	s.calls = append(s.calls, stampCall{payoutID: payoutID, holdID: holdID, actor: actor})
	return s.err
}

func newTestService(t *testing.T, stamper PayoutStamper) *Service {
	t.Helper()

	db := testutil.NewTestDB(t, &EscrowHold{})
	node, err := snowflake.NewNode(2)
	require.NoError(t, err)

	return &Service{
		node:    node,
		holds:   repository.ProvideStore[EscrowHold](db),
		payouts: stamper,
	}
}

func mustHold(t *testing.T, svc *Service, in CreateHoldInput) *EscrowHold {
	t.Helper()
	hold, err := svc.CreateHold(context.Background(), in)
	require.NoError(t, err)
	return hold
}

func TestCreateHoldRejectsNonPositiveAmount(t *testing.T) {
	svc := newTestService(t, &stamperStub{})

	_, err := svc.CreateHold(context.Background(), CreateHoldInput{
		PlacementID: "placement-1",
		Amount:      -10,
	})
	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusValidationFailed, be.Status())
}

func TestCreateHoldRequiresPlacement(t *testing.T) {
	svc := newTestService(t, &stamperStub{})

	_, err := svc.CreateHold(context.Background(), CreateHoldInput{Amount: 500})
	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusBadRequest, be.Status())
}

func TestCreateHoldStartsActive(t *testing.T) {
	svc := newTestService(t, &stamperStub{})

	hold := mustHold(t, svc, CreateHoldInput{
		PlacementID: "placement-1",
		PayoutID:    "payout-1",
		Amount:      500,
		Reason:      "guarantee period",
	})
	require.Equal(t, StatusActive, hold.Status)
	require.False(t, hold.HeldAt.IsZero())
	require.Nil(t, hold.ReleasedAt)
}

func TestReleaseHoldStampsLinkedPayout(t *testing.T) {
	stamper := &stamperStub{}
	svc := newTestService(t, stamper)

	hold := mustHold(t, svc, CreateHoldInput{
		PlacementID: "placement-1",
		PayoutID:    "payout-1",
		Amount:      500,
	})

	released, err := svc.ReleaseHold(context.Background(), hold.ID, "admin@hireloop")
	require.NoError(t, err)
	require.Equal(t, StatusReleased, released.Status)
	require.NotNil(t, released.ReleasedAt)
	require.Equal(t, "admin@hireloop", released.ReleasedBy)

	require.Len(t, stamper.calls, 1)
	require.Equal(t, "payout-1", stamper.calls[0].payoutID)
	require.Equal(t, hold.ID, stamper.calls[0].holdID)
	require.Equal(t, "admin@hireloop", stamper.calls[0].actor)
}

func TestReleaseHoldWithoutPayoutSkipsStamp(t *testing.T) {
	stamper := &stamperStub{}
	svc := newTestService(t, stamper)

	hold := mustHold(t, svc, CreateHoldInput{PlacementID: "placement-1", Amount: 500})

	released, err := svc.ReleaseHold(context.Background(), hold.ID, "admin@hireloop")
	require.NoError(t, err)
	require.Equal(t, StatusReleased, released.Status)
	require.Empty(t, stamper.calls)
}

func TestReleaseHoldSurvivesStampFailure(t *testing.T) {
	stamper := &stamperStub{err: errors.New("payout gone")}
	svc := newTestService(t, stamper)

	hold := mustHold(t, svc, CreateHoldInput{
		PlacementID: "placement-1",
		PayoutID:    "payout-1",
		Amount:      500,
	})

	released, err := svc.ReleaseHold(context.Background(), hold.ID, "admin@hireloop")
	require.NoError(t, err, "stamp failure must not roll the release back")
	require.Equal(t, StatusReleased, released.Status)
	require.Len(t, stamper.calls, 1)
}

func TestReleaseHoldAlreadyReleased(t *testing.T) {
	stamper := &stamperStub{}
	svc := newTestService(t, stamper)

	hold := mustHold(t, svc, CreateHoldInput{
		PlacementID: "placement-1",
		PayoutID:    "payout-1",
		Amount:      500,
	})

	_, err := svc.ReleaseHold(context.Background(), hold.ID, "admin@hireloop")
	require.NoError(t, err)

	_, err = svc.ReleaseHold(context.Background(), hold.ID, "admin@hireloop")
	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusConflict, be.Status())
	require.Len(t, stamper.calls, 1, "a released hold must not stamp the payout again")
}

func TestReleaseHoldNotFound(t *testing.T) {
	svc := newTestService(t, &stamperStub{})

	_, err := svc.ReleaseHold(context.Background(), "missing", "admin@hireloop")
	var be errutil.BaseError
	require.True(t, errors.As(err, &be))
	require.Equal(t, errutil.StatusNotFound, be.Status())
}

func TestReleaseDueHoldsReleasesOnlyDue(t *testing.T) {
	stamper := &stamperStub{}
	svc := newTestService(t, stamper)

	past := time.Now().Add(-24 * time.Hour)
	future := time.Now().Add(24 * time.Hour)

	due := mustHold(t, svc, CreateHoldInput{
		PlacementID: "placement-1",
		PayoutID:    "payout-1",
		Amount:      500,
		ReleaseDate: &past,
	})
	notDue := mustHold(t, svc, CreateHoldInput{
		PlacementID: "placement-2",
		Amount:      200,
		ReleaseDate: &future,
	})
	noDate := mustHold(t, svc, CreateHoldInput{
		PlacementID: "placement-3",
		Amount:      300,
	})

	released, err := svc.ReleaseDueHolds(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, released)

	got, err := svc.Get(context.Background(), due.ID)
	require.NoError(t, err)
	require.Equal(t, StatusReleased, got.Status)
	require.Equal(t, "scheduler", got.ReleasedBy)

	for _, id := range []string{notDue.ID, noDate.ID} {
		got, err := svc.Get(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, StatusActive, got.Status)
	}
}

func TestReleaseDueHoldsIsolatesFailures(t *testing.T) {
	stamper := &stamperStub{err: errors.New("payout gone")}
	svc := newTestService(t, stamper)

	past := time.Now().Add(-time.Hour)
	first := mustHold(t, svc, CreateHoldInput{
		PlacementID: "placement-1",
		PayoutID:    "payout-1",
		Amount:      500,
		ReleaseDate: &past,
	})
	second := mustHold(t, svc, CreateHoldInput{
		PlacementID: "placement-2",
		Amount:      200,
		ReleaseDate: &past,
	})

	released, err := svc.ReleaseDueHolds(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, released, "stamp failures do not fail the release itself")

	for _, id := range []string{first.ID, second.ID} {
		got, err := svc.Get(context.Background(), id)
		require.NoError(t, err)
		require.Equal(t, StatusReleased, got.Status)
	}
}
