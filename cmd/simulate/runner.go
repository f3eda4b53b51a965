package main

import (
	"context"
	"fmt"
	"math/big"
	"os"
	"strings"
	"time"

	"github.com/hashicorp/go-multierror"
	"go.uber.org/zap"

	"github.com/tcrlabs/curate/arbitrator"
	"github.com/tcrlabs/curate/hash"
	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
	"github.com/tcrlabs/curate/registry"
)

// epoch is the clock origin of every scenario.
var epoch = time.Unix(1_700_000_000, 0)

// ScenarioResult is the outcome of one scenario.
type ScenarioResult struct {
	Name   string   `json:"name"`
	Pass   bool     `json:"pass"`
	Errors []string `json:"errors,omitempty"`
}

type simulation struct {
	reg    *registry.Registry
	arb    *arbitrator.Centralized
	bank   *ledger.Bank
	events *registry.EventLog
	// funded accounts pay the value of their calls out of their balance.
	funded map[ledger.Account]bool
}

func (s *Scenario) registryConfig() registry.Config {
	cfg := registry.DefaultConfig()
	r := s.Registry
	cfg.Governor = r.Governor
	cfg.Relayer = r.Relayer
	if r.ChallengePeriod > 0 {
		cfg.ChallengePeriod = r.ChallengePeriod
	}
	setAmount := func(dst *registry.Amount, v int64) {
		if v > 0 {
			*dst = registry.NewAmount(v)
		}
	}
	setAmount(&cfg.SubmissionBaseDeposit, r.SubmissionBaseDeposit)
	setAmount(&cfg.RemovalBaseDeposit, r.RemovalBaseDeposit)
	setAmount(&cfg.SubmissionChallengeBaseDeposit, r.SubmissionChallengeBaseDeposit)
	setAmount(&cfg.RemovalChallengeBaseDeposit, r.RemovalChallengeBaseDeposit)
	if r.SharedStakeMultiplier > 0 {
		cfg.SharedStakeMultiplier = r.SharedStakeMultiplier
	}
	if r.WinnerStakeMultiplier > 0 {
		cfg.WinnerStakeMultiplier = r.WinnerStakeMultiplier
	}
	if r.LoserStakeMultiplier > 0 {
		cfg.LoserStakeMultiplier = r.LoserStakeMultiplier
	}
	return cfg
}

// Run replays the scenario against a registry stored in a temporary
// directory. A failing step stops the scenario.
func (s *Scenario) Run(ctx context.Context) (res ScenarioResult) {
	res = ScenarioResult{Name: s.Name}
	logger := logging.FromContext(ctx).Named(s.Name)
	ctx = logging.NewContext(ctx, logger)

	dir, err := os.MkdirTemp("", "curate-simulate-")
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	defer os.RemoveAll(dir)

	sim, err := s.setup(ctx, dir)
	if err != nil {
		res.Errors = append(res.Errors, err.Error())
		return res
	}
	defer sim.reg.Close()

	for i, step := range s.Steps {
		err := sim.apply(ctx, step)
		if err := checkStep(step, err); err != nil {
			res.Errors = append(res.Errors, fmt.Sprintf("step %d (%s): %v", i, step.Action, err))
			return res
		}
		logger.Debug("step done", zap.Int("step", i), zap.String("action", step.Action))
	}
	if err := sim.check(s.Final); err != nil {
		if merr, ok := err.(*multierror.Error); ok {
			for _, e := range merr.Errors {
				res.Errors = append(res.Errors, e.Error())
			}
		} else {
			res.Errors = append(res.Errors, err.Error())
		}
		return res
	}
	res.Pass = true
	return res
}

func (s *Scenario) setup(ctx context.Context, dir string) (*simulation, error) {
	account := s.Arbitrator.Account
	if account == "" {
		account = "arbitrator"
	}
	timeout := s.Arbitrator.AppealTimeout
	if timeout <= 0 {
		timeout = time.Hour
	}
	sim := &simulation{
		arb:    arbitrator.NewCentralized(ledger.Account(account), big.NewInt(s.Arbitrator.Cost), timeout),
		bank:   ledger.NewBank(),
		events: &registry.EventLog{},
		funded: make(map[ledger.Account]bool),
	}
	for acc, amount := range s.Funds {
		sim.funded[ledger.Account(acc)] = true
		if err := sim.bank.Deposit(ledger.Account(acc), big.NewInt(amount)); err != nil {
			return nil, fmt.Errorf("funding %s: %w", acc, err)
		}
	}
	reg, err := registry.New(ctx, dir, sim.arb, sim.bank,
		registry.WithConfig(s.registryConfig()),
		registry.WithEventSink(sim.events),
	)
	if err != nil {
		return nil, err
	}
	sim.reg = reg
	sim.arb.SetSink(reg)
	return sim, nil
}

func checkStep(step Step, err error) error {
	switch {
	case step.Error == "" && err != nil:
		return err
	case step.Error != "" && err == nil:
		return fmt.Errorf("expected error containing %q", step.Error)
	case step.Error != "" && !strings.Contains(err.Error(), step.Error):
		return fmt.Errorf("expected error containing %q, got %q", step.Error, err)
	}
	return nil
}

func parseParty(s string) (registry.Party, error) {
	switch s {
	case "", "none":
		return registry.PartyNone, nil
	case "requester":
		return registry.Requester, nil
	case "challenger":
		return registry.Challenger, nil
	default:
		return 0, fmt.Errorf("unknown party %q", s)
	}
}

func (sim *simulation) apply(ctx context.Context, step Step) error {
	call := registry.Call{From: ledger.Account(step.From), Value: big.NewInt(step.Value), Now: epoch.Add(step.At)}
	debit := sim.funded[call.From] && step.Value > 0
	if debit {
		if err := sim.bank.Debit(call.From, call.Value); err != nil {
			return err
		}
	}
	err := sim.dispatch(ctx, step, call)
	if err != nil && debit {
		// A failed call keeps nothing.
		if derr := sim.bank.Deposit(call.From, call.Value); derr != nil {
			return multierror.Append(err, derr)
		}
	}
	return err
}

func (sim *simulation) dispatch(ctx context.Context, step Step, call registry.Call) error {
	id := registry.ItemID(hash.ItemID([]byte(step.Item)))

	switch step.Action {
	case actionSubmit:
		_, err := sim.reg.SubmitItem(ctx, call, []byte(step.Item))
		return err
	case actionRemove:
		return sim.reg.RemoveItem(ctx, call, id, step.Evidence)
	case actionChallenge:
		return sim.reg.ChallengeRequest(ctx, call, id, step.Evidence)
	case actionEvidence:
		return sim.reg.SubmitEvidence(ctx, call, id, step.Evidence)
	case actionFundAppeal:
		side, err := parseParty(step.Side)
		if err != nil {
			return err
		}
		return sim.reg.FundAppeal(ctx, call, id, side)
	case actionExecute:
		return sim.reg.ExecuteRequest(ctx, call, id)
	case actionGiveRuling:
		ruling, err := parseParty(step.Ruling)
		if err != nil {
			return err
		}
		return sim.arb.GiveRuling(ctx, step.Dispute, arbitrator.Ruling(ruling), call.Now)
	case actionWithdraw:
		_, err := sim.reg.WithdrawFeesAndRewards(ctx, call.From, id, step.Request, step.Round)
		return err
	case actionRejectFunds:
		sim.bank.Reject(call.From, step.Reject)
		return nil
	case actionAddItem:
		_, err := sim.reg.AddItemDirectly(ctx, call, []byte(step.Item))
		return err
	case actionRemoveItem:
		return sim.reg.RemoveItemDirectly(ctx, call, id)
	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}
}

func (sim *simulation) check(final FinalState) error {
	var result *multierror.Error
	for data, want := range final.Items {
		_, status, _, err := sim.reg.ItemInfo(registry.ItemID(hash.ItemID([]byte(data))))
		if err != nil {
			result = multierror.Append(result, fmt.Errorf("item %q: %w", data, err))
			continue
		}
		if status.String() != want {
			result = multierror.Append(result, fmt.Errorf("item %q: status %s, want %s", data, status, want))
		}
	}
	for acc, want := range final.Balances {
		if got := sim.bank.Balance(ledger.Account(acc)); got.Cmp(big.NewInt(want)) != 0 {
			result = multierror.Append(result, fmt.Errorf("balance of %s: %s, want %d", acc, got, want))
		}
	}
	for name, want := range final.Events {
		if got := len(sim.events.Named(name)); got != want {
			result = multierror.Append(result, fmt.Errorf("%s events: %d, want %d", name, got, want))
		}
	}
	if final.Arbitrator != nil {
		if got := sim.arb.Collected(); got.Cmp(big.NewInt(*final.Arbitrator)) != 0 {
			result = multierror.Append(result, fmt.Errorf("arbitrator collected %s, want %d", got, *final.Arbitrator))
		}
	}
	return result.ErrorOrNil()
}
