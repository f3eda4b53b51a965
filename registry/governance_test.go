package registry_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tcrlabs/curate/arbitrator"
	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/registry"
)

func TestGovernance(t *testing.T) {
	t.Parallel()
	newCourt := arbitrator.NewCentralized("new-court", big.NewInt(500), appealTimeout)

	tests := []struct {
		name   string
		change func(ctx context.Context, reg *registry.Registry, c registry.Call) error
		check  func(t *testing.T, p registry.Params)
	}{
		{
			name: "challenge period",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeTimeToChallenge(ctx, c, time.Hour)
			},
			check: func(t *testing.T, p registry.Params) { require.Equal(t, time.Hour, p.ChallengePeriod) },
		},
		{
			name: "submission base deposit",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeSubmissionBaseDeposit(ctx, c, big.NewInt(1))
			},
			check: func(t *testing.T, p registry.Params) { requireAmount(t, 1, p.SubmissionBaseDeposit) },
		},
		{
			name: "removal base deposit",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeRemovalBaseDeposit(ctx, c, big.NewInt(2))
			},
			check: func(t *testing.T, p registry.Params) { requireAmount(t, 2, p.RemovalBaseDeposit) },
		},
		{
			name: "submission challenge base deposit",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeSubmissionChallengeBaseDeposit(ctx, c, big.NewInt(3))
			},
			check: func(t *testing.T, p registry.Params) { requireAmount(t, 3, p.SubmissionChallengeBaseDeposit) },
		},
		{
			name: "removal challenge base deposit",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeRemovalChallengeBaseDeposit(ctx, c, big.NewInt(4))
			},
			check: func(t *testing.T, p registry.Params) { requireAmount(t, 4, p.RemovalChallengeBaseDeposit) },
		},
		{
			name: "shared stake multiplier",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeSharedStakeMultiplier(ctx, c, 1)
			},
			check: func(t *testing.T, p registry.Params) { require.EqualValues(t, 1, p.SharedStakeMultiplier) },
		},
		{
			name: "winner stake multiplier",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeWinnerStakeMultiplier(ctx, c, 2)
			},
			check: func(t *testing.T, p registry.Params) { require.EqualValues(t, 2, p.WinnerStakeMultiplier) },
		},
		{
			name: "loser stake multiplier",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeLoserStakeMultiplier(ctx, c, 3)
			},
			check: func(t *testing.T, p registry.Params) { require.EqualValues(t, 3, p.LoserStakeMultiplier) },
		},
		{
			name: "relayer",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeRelayer(ctx, c, "new-relayer")
			},
			check: func(t *testing.T, p registry.Params) { require.Equal(t, ledger.Account("new-relayer"), p.Relayer) },
		},
		{
			name: "connected registry",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeConnectedTCR(ctx, c, "badges")
			},
			check: func(t *testing.T, p registry.Params) { require.Equal(t, ledger.Account("badges"), p.ConnectedTCR) },
		},
		{
			name: "arbitration parameters",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeArbitrationParams(ctx, c, newCourt, []byte{1}, "ipfs://r2", "ipfs://c2")
			},
			check: func(t *testing.T, p registry.Params) {
				require.Equal(t, newCourt.Account(), p.Arbitrator)
				require.Equal(t, []byte{1}, p.ArbitratorExtraData)
				require.EqualValues(t, 1, p.MetaEvidenceUpdates)
			},
		},
		{
			name: "governor",
			change: func(ctx context.Context, reg *registry.Registry, c registry.Call) error {
				return reg.ChangeGovernor(ctx, c, "new-governor")
			},
			check: func(t *testing.T, p registry.Params) { require.Equal(t, ledger.Account("new-governor"), p.Governor) },
		},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			env := newTestEnv(t)
			before := env.reg.Params()

			err := tc.change(env.ctx, env.reg, call(requester, 0, t0))
			require.ErrorIs(t, err, registry.ErrNotGovernor)
			require.Equal(t, before, env.reg.Params())

			require.NoError(t, tc.change(env.ctx, env.reg, call(governor, 0, t0)))
			tc.check(t, env.reg.Params())

			env.reopen(t, registry.WithArbitrators(newCourt))
			tc.check(t, env.reg.Params())
		})
	}
}

func TestInvalidParameters(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	gov := call(governor, 0, t0)

	require.ErrorIs(t, env.reg.ChangeTimeToChallenge(env.ctx, gov, -time.Second), registry.ErrInvalidParameter)
	require.ErrorIs(t, env.reg.ChangeSubmissionBaseDeposit(env.ctx, gov, big.NewInt(-1)), registry.ErrInvalidParameter)
	require.ErrorIs(t, env.reg.ChangeRemovalBaseDeposit(env.ctx, gov, nil), registry.ErrInvalidParameter)
	require.ErrorIs(t, env.reg.ChangeArbitrationParams(env.ctx, gov, nil, nil, "", ""), registry.ErrInvalidParameter)
}

func TestNoGovernorLocksParameters(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	require.NoError(t, env.reg.ChangeGovernor(env.ctx, call(governor, 0, t0), ""))
	err := env.reg.ChangeTimeToChallenge(env.ctx, call("", 0, t0), time.Hour)
	require.ErrorIs(t, err, registry.ErrNotGovernor)
}

func TestMetaEvidence(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	require.Equal(t, []registry.Event{
		registry.MetaEvidence{ID: 0, Evidence: "ipfs://registration"},
		registry.MetaEvidence{ID: 1, Evidence: "ipfs://clearing"},
	}, env.events.Named("MetaEvidence"))

	// reopening an existing registry publishes nothing
	env.reopen(t)
	require.Len(t, env.events.Named("MetaEvidence"), 2)
}

func TestArbitrationParamsAreSnapshotted(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	r := require.New(t)
	newCourt := arbitrator.NewCentralized("new-court", big.NewInt(500), appealTimeout)
	newCourt.SetSink(env.reg)

	old := env.submit(t, "old")
	r.NoError(env.reg.ChangeArbitrationParams(env.ctx, call(governor, 0, t0), newCourt, nil, "ipfs://r2", "ipfs://c2"))
	r.Equal([]registry.Event{
		registry.MetaEvidence{ID: 2, Evidence: "ipfs://r2"},
		registry.MetaEvidence{ID: 3, Evidence: "ipfs://c2"},
	}, env.events.Named("MetaEvidence")[2:])

	// the pending request keeps the old arbitrator and its cost
	info, err := env.reg.RequestInfo(old, 0)
	r.NoError(err)
	r.Equal(court, info.Arbitrator)
	r.EqualValues(0, info.MetaEvidenceID)
	err = env.reg.ChallengeRequest(env.ctx, call(challenger, 500+5000, t0.Add(time.Second)), old, "")
	r.ErrorIs(err, registry.ErrInsufficientDeposit)
	r.NoError(env.reg.ChallengeRequest(env.ctx, call(challenger, submissionChallengeDeposit, t0.Add(time.Second)), old, ""))
	requireAmount(t, arbitrationCost, env.arb.Collected())
	requireAmount(t, 0, newCourt.Collected())

	// new requests use the new arbitrator
	fresh, err := env.reg.SubmitItem(env.ctx, call(requester, 500+2000, t0), []byte("fresh"))
	r.NoError(err)
	info, err = env.reg.RequestInfo(fresh, 0)
	r.NoError(err)
	r.Equal(newCourt.Account(), info.Arbitrator)
	r.EqualValues(2, info.MetaEvidenceID)
	r.NoError(env.reg.ChallengeRequest(env.ctx, call(challenger, 500+5000, t0.Add(time.Second)), fresh, ""))
	requireAmount(t, 500, newCourt.Collected())

	// both disputes have ID 0; rulings are told apart by their arbitrator
	r.NoError(newCourt.GiveRuling(env.ctx, 0, arbitrator.Ruling(registry.Challenger), t0.Add(time.Hour)))
	r.NoError(newCourt.GiveRuling(env.ctx, 0, arbitrator.Ruling(registry.Challenger), t0.Add(time.Hour+appealTimeout)))
	r.Equal(registry.Absent, env.status(t, fresh))
	r.Equal(registry.RegistrationRequested, env.status(t, old))

	err = env.reg.Rule(env.ctx, "elsewhere", 0, arbitrator.Ruling(registry.Requester))
	r.ErrorIs(err, registry.ErrUnknownDispute)

	env.finalize(t, 0, registry.Requester, t0.Add(time.Hour))
	r.Equal(registry.Registered, env.status(t, old))
}

func TestRequestsNeedKnownArbitratorAfterRestart(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	newCourt := arbitrator.NewCentralized("new-court", big.NewInt(500), appealTimeout)
	require.NoError(t, env.reg.ChangeArbitrationParams(env.ctx, call(governor, 0, t0), newCourt, nil, "", ""))

	env.reopen(t)
	_, err := env.reg.SubmitItem(env.ctx, call(requester, 500+2000, t0), []byte("fresh"))
	require.ErrorIs(t, err, registry.ErrUnknownArbitrator)

	env.reopen(t, registry.WithArbitrators(newCourt))
	_, err = env.reg.SubmitItem(env.ctx, call(requester, 500+2000, t0), []byte("fresh"))
	require.NoError(t, err)
}
