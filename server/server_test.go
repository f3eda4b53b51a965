package server_test

// End to end tests running a curate server and interacting with its
// registry, arbitrator and metrics endpoint.

import (
	"context"
	"fmt"
	"io"
	"math/big"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"golang.org/x/sync/errgroup"

	"github.com/tcrlabs/curate/config"
	"github.com/tcrlabs/curate/logging"
	"github.com/tcrlabs/curate/registry"
	"github.com/tcrlabs/curate/server"
)

func testConfig(t *testing.T, dir string) config.Config {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.CurateDir = dir
	cfg.Registry.ChallengePeriod = time.Hour
	cfg.Arbitrator.Cost = registry.NewAmount(10)
	cfg.Arbitrator.AppealTimeout = time.Minute
	port := uint16(0)
	cfg.MetricsPort = &port
	_, err := config.SetupConfig(cfg)
	require.NoError(t, err)
	return *cfg
}

func spawnServer(t *testing.T, cfg config.Config) *server.Server {
	t.Helper()
	ctx := logging.NewContext(context.Background(), zaptest.NewLogger(t))
	srv, err := server.New(ctx, cfg)
	require.NoError(t, err)
	return srv
}

func TestServerAppliesRulings(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx, cancel := context.WithCancel(logging.NewContext(context.Background(), zaptest.NewLogger(t)))
	defer cancel()

	srv := spawnServer(t, testConfig(t, t.TempDir()))
	t.Cleanup(func() { req.NoError(srv.Close()) })

	var eg errgroup.Group
	eg.Go(func() error {
		return srv.Start(ctx)
	})

	reg := srv.Registry()
	now := time.Now()
	id, err := reg.SubmitItem(ctx, registry.Call{From: "alice", Value: big.NewInt(2010), Now: now}, []byte("token"))
	req.NoError(err)
	req.NoError(reg.ChallengeRequest(ctx, registry.Call{From: "bob", Value: big.NewInt(5010), Now: now}, id, ""))

	req.NoError(srv.Arbitrator().GiveRuling(ctx, 0, 1, now))
	req.NoError(srv.Arbitrator().GiveRuling(ctx, 0, 1, now.Add(time.Minute)))
	req.Eventually(func() bool {
		_, status, _, err := reg.ItemInfo(id)
		return err == nil && status == registry.Registered
	}, time.Second, 10*time.Millisecond)

	reward, err := reg.WithdrawFeesAndRewards(ctx, "alice", id, 0, 0)
	req.NoError(err)
	req.Equal("7010", reward.String())
	req.Equal("7010", srv.Bank().Balance("alice").String())

	resp, err := http.Get(fmt.Sprintf("http://%s/metrics", srv.MetricsAddr()))
	req.NoError(err)
	body, err := io.ReadAll(resp.Body)
	req.NoError(err)
	req.NoError(resp.Body.Close())
	req.Contains(string(body), "curate_registry_challenges_total")

	cancel()
	req.NoError(eg.Wait())
}

func TestServerRestoresState(t *testing.T) {
	t.Parallel()
	req := require.New(t)
	ctx := logging.NewContext(context.Background(), zaptest.NewLogger(t))
	cfg := testConfig(t, t.TempDir())
	cfg.MetricsPort = nil

	srv := spawnServer(t, cfg)
	now := time.Now()
	id, err := srv.Registry().SubmitItem(ctx, registry.Call{From: "alice", Value: big.NewInt(2010), Now: now}, []byte("token"))
	req.NoError(err)
	req.NoError(srv.Registry().ChallengeRequest(ctx, registry.Call{From: "bob", Value: big.NewInt(5010), Now: now}, id, ""))
	req.NoError(srv.Arbitrator().GiveRuling(ctx, 0, 2, now))
	req.NoError(srv.Close())

	srv = spawnServer(t, cfg)
	t.Cleanup(func() { req.NoError(srv.Close()) })
	req.Equal("10", srv.Arbitrator().Collected().String())
	start, _ := srv.Arbitrator().AppealPeriod(0)
	req.True(start.Equal(now))

	// an appeal of the restored dispute is accepted by the arbitrator
	req.NoError(srv.Registry().FundAppeal(ctx, registry.Call{From: "bob", Value: big.NewInt(12), Now: now}, id, registry.Challenger))
	req.NoError(srv.Registry().FundAppeal(ctx, registry.Call{From: "alice", Value: big.NewInt(18), Now: now}, id, registry.Requester))
	req.Equal("20", srv.Arbitrator().Collected().String())
}
