package registry_test

import (
	"context"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"github.com/tcrlabs/curate/arbitrator"
	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
	"github.com/tcrlabs/curate/registry"
)

const (
	governor   = ledger.Account("governor")
	relayer    = ledger.Account("relayer")
	requester  = ledger.Account("requester")
	challenger = ledger.Account("challenger")
	court      = ledger.Account("court")

	arbitrationCost = 1000
	appealTimeout   = 180 * time.Second
	challengePeriod = 600 * time.Second

	submissionDeposit          = arbitrationCost + 2000
	removalDeposit             = arbitrationCost + 1300
	submissionChallengeDeposit = arbitrationCost + 5000
	removalChallengeDeposit    = arbitrationCost + 1200

	sharedAppealFee = arbitrationCost + arbitrationCost*5000/registry.MultiplierDivisor
	winnerAppealFee = arbitrationCost + arbitrationCost*2000/registry.MultiplierDivisor
	loserAppealFee  = arbitrationCost + arbitrationCost*8000/registry.MultiplierDivisor
)

var t0 = time.Unix(1_700_000_000, 0)

func testConfig() registry.Config {
	cfg := registry.DefaultConfig()
	cfg.ChallengePeriod = challengePeriod
	cfg.Governor = string(governor)
	cfg.Relayer = string(relayer)
	cfg.RegistrationMetaEvidence = "ipfs://registration"
	cfg.ClearingMetaEvidence = "ipfs://clearing"
	return cfg
}

type testEnv struct {
	ctx    context.Context
	dir    string
	reg    *registry.Registry
	arb    *arbitrator.Centralized
	bank   *ledger.Bank
	events *registry.EventLog
}

func newTestEnv(t *testing.T, opts ...func(*testEnv)) *testEnv {
	t.Helper()
	env := &testEnv{
		ctx:    logging.NewContext(context.Background(), zaptest.NewLogger(t)),
		dir:    t.TempDir(),
		arb:    arbitrator.NewCentralized(court, big.NewInt(arbitrationCost), appealTimeout),
		bank:   ledger.NewBank(),
		events: &registry.EventLog{},
	}
	for _, opt := range opts {
		opt(env)
	}
	env.open(t)
	return env
}

func (e *testEnv) open(t *testing.T, opts ...registry.OptionFunc) {
	t.Helper()
	opts = append([]registry.OptionFunc{
		registry.WithConfig(testConfig()),
		registry.WithEventSink(e.events),
	}, opts...)
	reg, err := registry.New(e.ctx, e.dir, e.arb, e.bank, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { reg.Close() })
	e.arb.SetSink(reg)
	e.reg = reg
}

func (e *testEnv) reopen(t *testing.T, opts ...registry.OptionFunc) {
	t.Helper()
	require.NoError(t, e.reg.Close())
	e.open(t, opts...)
}

func call(from ledger.Account, value int64, now time.Time) registry.Call {
	return registry.Call{From: from, Value: big.NewInt(value), Now: now}
}

func (e *testEnv) submit(t *testing.T, data string) registry.ItemID {
	t.Helper()
	id, err := e.reg.SubmitItem(e.ctx, call(requester, submissionDeposit, t0), []byte(data))
	require.NoError(t, err)
	return id
}

// submitAndChallenge returns a disputed item together with its dispute ID.
func (e *testEnv) submitAndChallenge(t *testing.T, data string) (registry.ItemID, uint64) {
	t.Helper()
	id := e.submit(t, data)
	require.NoError(t, e.reg.ChallengeRequest(e.ctx, call(challenger, submissionChallengeDeposit, t0.Add(time.Second)), id, ""))
	info, err := e.reg.RequestInfo(id, 0)
	require.NoError(t, err)
	require.True(t, info.Disputed)
	return id, info.DisputeID
}

// finalize gives a ruling at `at` and makes it final once the appeal period lapsed.
func (e *testEnv) finalize(t *testing.T, disputeID uint64, ruling registry.Party, at time.Time) {
	t.Helper()
	require.NoError(t, e.arb.GiveRuling(e.ctx, disputeID, arbitrator.Ruling(ruling), at))
	require.NoError(t, e.arb.GiveRuling(e.ctx, disputeID, arbitrator.Ruling(ruling), at.Add(appealTimeout)))
}

func (e *testEnv) withdraw(t *testing.T, who ledger.Account, id registry.ItemID, request, round uint64) *big.Int {
	t.Helper()
	reward, err := e.reg.WithdrawFeesAndRewards(e.ctx, who, id, request, round)
	require.NoError(t, err)
	return reward
}

func (e *testEnv) status(t *testing.T, id registry.ItemID) registry.Status {
	t.Helper()
	_, status, _, err := e.reg.ItemInfo(id)
	require.NoError(t, err)
	return status
}

func requireAmount(t *testing.T, want int64, got *big.Int, msgAndArgs ...interface{}) {
	t.Helper()
	require.NotNil(t, got, msgAndArgs...)
	require.Equal(t, big.NewInt(want).String(), got.String(), msgAndArgs...)
}
