package registry_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tcrlabs/curate/hash"
	"github.com/tcrlabs/curate/registry"
)

func TestSubmitItem(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	r := require.New(t)

	id, err := env.reg.SubmitItem(env.ctx, call(requester, submissionDeposit, t0), []byte("token-A"))
	r.NoError(err)
	r.Equal(registry.ItemID(hash.ItemID([]byte("token-A"))), id)

	data, status, requests, err := env.reg.ItemInfo(id)
	r.NoError(err)
	r.Equal([]byte("token-A"), data)
	r.Equal(registry.RegistrationRequested, status)
	r.Equal(1, requests)
	r.Equal(uint64(1), env.reg.ItemCount())
	first, err := env.reg.ItemAt(0)
	r.NoError(err)
	r.Equal(id, first)

	info, err := env.reg.RequestInfo(id, 0)
	r.NoError(err)
	r.Equal(registry.Registration, info.Type)
	r.Equal(court, info.Arbitrator)
	r.Equal(uint64(0), info.MetaEvidenceID)
	r.Equal(requester, info.Parties[registry.Requester])
	r.True(info.SubmissionTime.Equal(t0))
	r.Equal(1, info.NumberOfRounds)

	round, err := env.reg.RoundInfo(id, 0, 0)
	r.NoError(err)
	requireAmount(t, submissionDeposit, round.AmountPaid[registry.Requester])
	requireAmount(t, submissionDeposit, round.FeeRewards)
	r.True(round.HasPaid[registry.Requester])
	r.False(round.Appealed)

	names := make([]string, 0)
	for _, ev := range env.events.Events() {
		names = append(names, ev.Name())
	}
	r.Equal([]string{"MetaEvidence", "MetaEvidence", "ItemSubmitted", "RequestSubmitted", "ItemStatusChange"}, names)
	submitted := env.events.Named("ItemSubmitted")[0].(registry.ItemSubmitted)
	r.Equal(hash.EvidenceGroupID(id, 0), submitted.EvidenceGroupID)

	_, err = env.reg.SubmitItem(env.ctx, call(challenger, submissionDeposit, t0), []byte("token-A"))
	r.ErrorIs(err, registry.ErrItemNotAbsent)
}

func TestSubmitItemInsufficientDeposit(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	r := require.New(t)

	env.events.Reset()
	id, err := env.reg.SubmitItem(env.ctx, call(requester, submissionDeposit-1, t0), []byte("token"))
	r.ErrorIs(err, registry.ErrInsufficientDeposit)

	_, status, requests, err := env.reg.ItemInfo(id)
	r.NoError(err)
	r.Equal(registry.Absent, status)
	r.Zero(requests)
	r.Zero(env.reg.ItemCount())
	r.Empty(env.events.Events())

	_, err = env.reg.SubmitItem(env.ctx, registry.Call{From: requester, Now: t0}, []byte("token"))
	r.ErrorIs(err, registry.ErrInsufficientDeposit)
}

func TestSubmissionExcessIsKept(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	r := require.New(t)

	id, err := env.reg.SubmitItem(env.ctx, call(requester, submissionDeposit+500, t0), []byte("token"))
	r.NoError(err)
	round, err := env.reg.RoundInfo(id, 0, 0)
	r.NoError(err)
	requireAmount(t, submissionDeposit+500, round.FeeRewards)

	r.NoError(env.reg.ExecuteRequest(env.ctx, call(challenger, 0, t0.Add(challengePeriod+time.Second)), id))
	requireAmount(t, submissionDeposit+500, env.bank.Balance(requester))
}

func TestExecuteRequest(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	r := require.New(t)
	id := env.submit(t, "token")

	err := env.reg.ExecuteRequest(env.ctx, call(challenger, 0, t0.Add(challengePeriod)), id)
	r.ErrorIs(err, registry.ErrChallengePeriodNotOver)

	r.NoError(env.reg.ExecuteRequest(env.ctx, call(challenger, 0, t0.Add(challengePeriod+time.Nanosecond)), id))
	r.Equal(registry.Registered, env.status(t, id))
	requireAmount(t, submissionDeposit, env.bank.Balance(requester))

	info, err := env.reg.RequestInfo(id, 0)
	r.NoError(err)
	r.True(info.Resolved)
	r.Equal(registry.Requester, info.Ruling)

	// the deposit was already returned
	requireAmount(t, 0, env.withdraw(t, requester, id, 0, 0))
	requireAmount(t, submissionDeposit, env.bank.Balance(requester))

	err = env.reg.ExecuteRequest(env.ctx, call(challenger, 0, t0.Add(time.Hour)), id)
	r.ErrorIs(err, registry.ErrNoPendingRequest)

	// removal
	removalAt := t0.Add(time.Hour)
	err = env.reg.RemoveItem(env.ctx, call(challenger, removalDeposit-1, removalAt), id, "")
	r.ErrorIs(err, registry.ErrInsufficientDeposit)
	r.NoError(env.reg.RemoveItem(env.ctx, call(challenger, removalDeposit, removalAt), id, "ipfs://why"))
	r.Equal(registry.ClearingRequested, env.status(t, id))

	info, err = env.reg.RequestInfo(id, 1)
	r.NoError(err)
	r.Equal(registry.Clearing, info.Type)
	r.Equal(uint64(1), info.MetaEvidenceID)
	r.Len(env.events.Named("Evidence"), 1)

	r.NoError(env.reg.ExecuteRequest(env.ctx, call(requester, 0, removalAt.Add(challengePeriod+time.Second)), id))
	r.Equal(registry.Absent, env.status(t, id))
	requireAmount(t, removalDeposit, env.bank.Balance(challenger))

	// an absent item can be submitted again and keeps its place in the list
	_, err = env.reg.SubmitItem(env.ctx, call(requester, submissionDeposit, t0.Add(2*time.Hour)), []byte("token"))
	r.NoError(err)
	r.Equal(uint64(1), env.reg.ItemCount())
	_, _, requests, err := env.reg.ItemInfo(id)
	r.NoError(err)
	r.Equal(3, requests)
}

func TestRemoveItemRequiresRegistered(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)

	err := env.reg.RemoveItem(env.ctx, call(requester, removalDeposit, t0), registry.ItemID{1}, "")
	require.ErrorIs(t, err, registry.ErrItemNotRegistered)

	id := env.submit(t, "pending")
	err = env.reg.RemoveItem(env.ctx, call(requester, removalDeposit, t0), id, "")
	require.ErrorIs(t, err, registry.ErrItemNotRegistered)
}

func TestSubmitEvidence(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	r := require.New(t)

	err := env.reg.SubmitEvidence(env.ctx, call(challenger, 0, t0), registry.ItemID{7}, "ipfs://x")
	r.ErrorIs(err, registry.ErrRequestNotFound)

	id := env.submit(t, "token")
	r.NoError(env.reg.SubmitEvidence(env.ctx, call(challenger, 0, t0), id, "ipfs://proof"))
	evidence := env.events.Named("Evidence")
	r.Len(evidence, 1)
	r.Equal(registry.Evidence{
		Arbitrator:      court,
		EvidenceGroupID: hash.EvidenceGroupID(id, 0),
		Party:           challenger,
		Evidence:        "ipfs://proof",
	}, evidence[0])

	r.NoError(env.reg.ExecuteRequest(env.ctx, call(challenger, 0, t0.Add(time.Hour)), id))
	err = env.reg.SubmitEvidence(env.ctx, call(challenger, 0, t0.Add(time.Hour)), id, "ipfs://late")
	r.ErrorIs(err, registry.ErrRequestResolved)
}

func TestItemAtOutOfRange(t *testing.T) {
	t.Parallel()
	env := newTestEnv(t)
	_, err := env.reg.ItemAt(0)
	require.ErrorIs(t, err, registry.ErrItemIndexOutOfRange)

	_, err = env.reg.RoundInfo(registry.ItemID{}, 0, 0)
	require.ErrorIs(t, err, registry.ErrNotFound)
}
