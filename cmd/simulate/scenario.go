package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Scenario is a scripted sequence of registry calls replayed against a fresh
// registry, followed by checks on the final state.
type Scenario struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description"`
	Arbitrator  ArbitratorSetup `yaml:"arbitrator"`
	Registry    RegistrySetup   `yaml:"registry"`
	// Funds are deposited into accounts before the first step.
	Funds map[string]int64 `yaml:"funds,omitempty"`
	Steps []Step           `yaml:"steps"`
	Final FinalState       `yaml:"final"`
}

type ArbitratorSetup struct {
	Account       string        `yaml:"account"`
	Cost          int64         `yaml:"cost"`
	AppealTimeout time.Duration `yaml:"appeal_timeout"`
}

// RegistrySetup overrides the default registry parameters. Zero values keep
// the defaults.
type RegistrySetup struct {
	Governor                       string        `yaml:"governor,omitempty"`
	Relayer                        string        `yaml:"relayer,omitempty"`
	ChallengePeriod                time.Duration `yaml:"challenge_period,omitempty"`
	SubmissionBaseDeposit          int64         `yaml:"submission_base_deposit,omitempty"`
	RemovalBaseDeposit             int64         `yaml:"removal_base_deposit,omitempty"`
	SubmissionChallengeBaseDeposit int64         `yaml:"submission_challenge_base_deposit,omitempty"`
	RemovalChallengeBaseDeposit    int64         `yaml:"removal_challenge_base_deposit,omitempty"`
	SharedStakeMultiplier          uint64        `yaml:"shared_stake_multiplier,omitempty"`
	WinnerStakeMultiplier          uint64        `yaml:"winner_stake_multiplier,omitempty"`
	LoserStakeMultiplier           uint64        `yaml:"loser_stake_multiplier,omitempty"`
}

// Step is one call. At is the offset from the scenario start at which the
// call happens. Item names the item by its data.
type Step struct {
	At       time.Duration `yaml:"at"`
	Action   string        `yaml:"action"`
	From     string        `yaml:"from,omitempty"`
	Value    int64         `yaml:"value,omitempty"`
	Item     string        `yaml:"item,omitempty"`
	Evidence string        `yaml:"evidence,omitempty"`
	Side     string        `yaml:"side,omitempty"`
	Dispute  uint64        `yaml:"dispute,omitempty"`
	Ruling   string        `yaml:"ruling,omitempty"`
	Request  uint64        `yaml:"request,omitempty"`
	Round    uint64        `yaml:"round,omitempty"`
	Reject   bool          `yaml:"reject,omitempty"`
	// Error is a substring the step's error must contain. Empty means the
	// step must succeed.
	Error string `yaml:"error,omitempty"`
}

type FinalState struct {
	Items    map[string]string `yaml:"items,omitempty"`
	Balances map[string]int64  `yaml:"balances,omitempty"`
	// Events counts emitted events by name.
	Events map[string]int `yaml:"events,omitempty"`
	// Arbitrator is the amount collected by the arbitrator.
	Arbitrator *int64 `yaml:"arbitrator,omitempty"`
}

const (
	actionSubmit      = "submit"
	actionRemove      = "remove"
	actionChallenge   = "challenge"
	actionEvidence    = "evidence"
	actionFundAppeal  = "fund-appeal"
	actionExecute     = "execute"
	actionGiveRuling  = "give-ruling"
	actionWithdraw    = "withdraw"
	actionRejectFunds = "reject-funds"
	actionAddItem     = "add-item"
	actionRemoveItem  = "remove-item"
)

var actions = map[string]bool{
	actionSubmit:      true,
	actionRemove:      true,
	actionChallenge:   true,
	actionEvidence:    true,
	actionFundAppeal:  true,
	actionExecute:     true,
	actionGiveRuling:  true,
	actionWithdraw:    true,
	actionRejectFunds: true,
	actionAddItem:     true,
	actionRemoveItem:  true,
}

var errInvalidScenario = errors.New("invalid scenario")

// LoadScenario reads a scenario file. Unknown fields are rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading scenario: %w", err)
	}
	return parseScenario(data)
}

func parseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("parsing scenario: %w", err)
	}
	if err := s.validate(); err != nil {
		return nil, err
	}
	return &s, nil
}

func (s *Scenario) validate() error {
	if s.Name == "" {
		return fmt.Errorf("%w: name is required", errInvalidScenario)
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("%w: %s has no steps", errInvalidScenario, s.Name)
	}
	if s.Arbitrator.Cost < 0 {
		return fmt.Errorf("%w: negative arbitration cost", errInvalidScenario)
	}
	var last time.Duration
	for i, step := range s.Steps {
		if !actions[step.Action] {
			return fmt.Errorf("%w: step %d: unknown action %q", errInvalidScenario, i, step.Action)
		}
		if step.Value < 0 {
			return fmt.Errorf("%w: step %d: negative value", errInvalidScenario, i)
		}
		if step.At < last {
			return fmt.Errorf("%w: step %d: goes back in time", errInvalidScenario, i)
		}
		last = step.At
	}
	return nil
}
