package arbitrator_test

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	"github.com/stretchr/testify/require"

	"github.com/tcrlabs/curate/arbitrator"
	"github.com/tcrlabs/curate/arbitrator/mocks"
	"github.com/tcrlabs/curate/ledger"
)

var t0 = time.Unix(1_700_000_000, 0)

func TestCentralizedLifecycle(t *testing.T) {
	t.Parallel()
	r := require.New(t)
	ctx := context.Background()

	sink := mocks.NewMockRulingSink(gomock.NewController(t))
	arb := arbitrator.NewCentralized("court", big.NewInt(1000), 180*time.Second, arbitrator.WithSink(sink))

	_, err := arb.CreateDispute(ctx, 2, nil, big.NewInt(999))
	r.ErrorIs(err, arbitrator.ErrInsufficientFee)

	id, err := arb.CreateDispute(ctx, 2, nil, big.NewInt(1000))
	r.NoError(err)
	r.Equal(uint64(0), id)
	r.Equal(arbitrator.Waiting, arb.DisputeStatus(id))

	start, end := arb.AppealPeriod(id)
	r.True(start.IsZero())
	r.True(end.IsZero())

	r.ErrorIs(arb.GiveRuling(ctx, id, 3, t0), arbitrator.ErrInvalidRuling)
	r.NoError(arb.GiveRuling(ctx, id, 1, t0))
	r.Equal(arbitrator.Appealable, arb.DisputeStatus(id))
	r.Equal(arbitrator.Ruling(1), arb.CurrentRuling(id))
	start, end = arb.AppealPeriod(id)
	r.Equal(t0, start)
	r.Equal(t0.Add(180*time.Second), end)

	r.ErrorIs(arb.GiveRuling(ctx, id, 1, t0.Add(179*time.Second)), arbitrator.ErrAppealPeriodNotOver)

	sink.EXPECT().Rule(gomock.Any(), ledger.Account("court"), id, arbitrator.Ruling(1)).Return(nil)
	// the recorded ruling is final, not the argument
	r.NoError(arb.GiveRuling(ctx, id, 2, t0.Add(180*time.Second)))
	r.Equal(arbitrator.Solved, arb.DisputeStatus(id))
	r.ErrorIs(arb.GiveRuling(ctx, id, 1, t0.Add(time.Hour)), arbitrator.ErrAlreadySolved)
	r.Zero(arb.Collected().Cmp(big.NewInt(1000)))
}

func TestCentralizedAppeal(t *testing.T) {
	t.Parallel()
	r := require.New(t)
	ctx := context.Background()
	arb := arbitrator.NewCentralized("court", big.NewInt(1000), time.Minute)

	id, err := arb.CreateDispute(ctx, 2, nil, big.NewInt(1000))
	r.NoError(err)
	r.ErrorIs(arb.Appeal(ctx, id, nil, big.NewInt(1000)), arbitrator.ErrNotAppealable)

	r.NoError(arb.GiveRuling(ctx, id, 2, t0))
	r.ErrorIs(arb.Appeal(ctx, id, nil, big.NewInt(10)), arbitrator.ErrInsufficientFee)
	r.NoError(arb.Appeal(ctx, id, nil, big.NewInt(1000)))
	r.Equal(arbitrator.Waiting, arb.DisputeStatus(id))
	r.Equal(arbitrator.RefusedToRule, arb.CurrentRuling(id))
	r.Zero(arb.Collected().Cmp(big.NewInt(2000)))

	r.ErrorIs(arb.Appeal(ctx, 7, nil, big.NewInt(1000)), arbitrator.ErrUnknownDispute)
}

func TestCentralizedSinkFailureKeepsDisputeOpen(t *testing.T) {
	t.Parallel()
	r := require.New(t)
	ctx := context.Background()

	sink := mocks.NewMockRulingSink(gomock.NewController(t))
	arb := arbitrator.NewCentralized("court", big.NewInt(1), time.Minute)
	id, err := arb.CreateDispute(ctx, 2, nil, big.NewInt(1))
	r.NoError(err)
	r.NoError(arb.GiveRuling(ctx, id, 0, t0))
	r.ErrorIs(arb.GiveRuling(ctx, id, 0, t0.Add(time.Minute)), arbitrator.ErrNoSink)

	arb.SetSink(sink)
	boom := errors.New("boom")
	sink.EXPECT().Rule(gomock.Any(), ledger.Account("court"), id, arbitrator.RefusedToRule).Return(boom)
	r.ErrorIs(arb.GiveRuling(ctx, id, 0, t0.Add(time.Minute)), boom)
	r.Equal(arbitrator.Appealable, arb.DisputeStatus(id))

	sink.EXPECT().Rule(gomock.Any(), ledger.Account("court"), id, arbitrator.RefusedToRule).Return(nil)
	r.NoError(arb.GiveRuling(ctx, id, 0, t0.Add(time.Minute)))
	r.Equal(arbitrator.Solved, arb.DisputeStatus(id))
}

func TestCentralizedSnapshotRestore(t *testing.T) {
	t.Parallel()
	r := require.New(t)
	ctx := context.Background()
	arb := arbitrator.NewCentralized("court", big.NewInt(1000), 180*time.Second)

	_, err := arb.CreateDispute(ctx, 2, nil, big.NewInt(1000))
	r.NoError(err)
	_, err = arb.CreateDispute(ctx, 2, nil, big.NewInt(1000))
	r.NoError(err)
	r.NoError(arb.GiveRuling(ctx, 1, 2, t0))

	disputes, collected := arb.Snapshot()
	r.Len(disputes, 2)

	restored := arbitrator.NewCentralized("court", big.NewInt(1000), 180*time.Second)
	r.NoError(restored.Restore(disputes, collected))
	r.Equal("2000", restored.Collected().String())
	r.Equal(arbitrator.Waiting, restored.DisputeStatus(0))
	r.Equal(arbitrator.Appealable, restored.DisputeStatus(1))
	r.Equal(arbitrator.Ruling(2), restored.CurrentRuling(1))
	start, end := restored.AppealPeriod(1)
	r.True(start.Equal(t0))
	r.True(end.Equal(t0.Add(180 * time.Second)))

	id, err := restored.CreateDispute(ctx, 2, nil, big.NewInt(1000))
	r.NoError(err)
	r.EqualValues(2, id)

	disputes[0].Status = 9
	r.Error(restored.Restore(disputes, collected))
}
