package main

import (
	"bytes"
	"context"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseScenario(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "unknown field", yaml: "name: x\nstep: []\n"},
		{name: "no name", yaml: "steps:\n  - action: submit\n"},
		{name: "no steps", yaml: "name: x\n"},
		{name: "unknown action", yaml: "name: x\nsteps:\n  - action: bribe\n"},
		{name: "negative value", yaml: "name: x\nsteps:\n  - action: submit\n    value: -1\n"},
		{name: "time travel", yaml: "name: x\nsteps:\n  - action: submit\n    at: 1m\n  - action: execute\n    at: 1s\n"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			_, err := parseScenario([]byte(tc.yaml))
			require.Error(t, err)
		})
	}

	s, err := parseScenario([]byte("name: x\nsteps:\n  - action: submit\n    at: 90s\n    item: token\n"))
	require.NoError(t, err)
	require.Equal(t, "token", s.Steps[0].Item)
	require.EqualValues(t, 90e9, s.Steps[0].At)
}

func TestScenarios(t *testing.T) {
	paths, err := filepath.Glob(filepath.Join("testdata", "*.yaml"))
	require.NoError(t, err)
	require.NotEmpty(t, paths)
	for _, path := range paths {
		path := path
		t.Run(filepath.Base(path), func(t *testing.T) {
			t.Parallel()
			s, err := LoadScenario(path)
			require.NoError(t, err)
			res := s.Run(context.Background())
			require.True(t, res.Pass, "errors: %v", res.Errors)
		})
	}
}

func TestFailingScenario(t *testing.T) {
	s, err := parseScenario([]byte(`
name: wrong-expectations
arbitrator:
  cost: 10
steps:
  - action: submit
    from: alice
    value: 2010
    item: token
final:
  items:
    token: registered
  balances:
    alice: 5
`))
	require.NoError(t, err)
	res := s.Run(context.Background())
	require.False(t, res.Pass)
	require.Len(t, res.Errors, 2)
}

func TestFailingStepStopsScenario(t *testing.T) {
	s, err := parseScenario([]byte(`
name: unexpected-error
steps:
  - action: execute
    item: token
  - action: submit
    value: 1
    item: token
    error: insufficient deposit
`))
	require.NoError(t, err)
	res := s.Run(context.Background())
	require.False(t, res.Pass)
	require.Len(t, res.Errors, 1)
	require.Contains(t, res.Errors[0], "step 0 (execute)")
}

func TestFailedCallKeepsFunds(t *testing.T) {
	s, err := parseScenario([]byte(`
name: refund-on-error
arbitrator:
  cost: 10
funds:
  alice: 100
steps:
  - action: submit
    from: alice
    value: 100
    item: token
    error: insufficient deposit
final:
  balances:
    alice: 100
`))
	require.NoError(t, err)
	res := s.Run(context.Background())
	require.True(t, res.Pass, "errors: %v", res.Errors)
}

func TestCommand(t *testing.T) {
	t.Run("text", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCommand()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{filepath.Join("testdata", "unchallenged.yaml")})
		require.NoError(t, cmd.Execute())
		require.Contains(t, out.String(), "PASS unchallenged-requests")
		require.Contains(t, out.String(), "1/1 scenarios passed")
	})
	t.Run("json", func(t *testing.T) {
		var out bytes.Buffer
		cmd := newRootCommand()
		cmd.SetOut(&out)
		cmd.SetArgs([]string{"--format", "json", filepath.Join("testdata", "challenger_wins.yaml")})
		require.NoError(t, cmd.Execute())
		var results []ScenarioResult
		require.NoError(t, json.Unmarshal(out.Bytes(), &results))
		require.Equal(t, []ScenarioResult{{Name: "challenger-wins", Pass: true}}, results)
	})
	t.Run("invalid format", func(t *testing.T) {
		cmd := newRootCommand()
		cmd.SetArgs([]string{"--format", "xml", filepath.Join("testdata", "unchallenged.yaml")})
		require.Error(t, cmd.Execute())
	})
	t.Run("missing file", func(t *testing.T) {
		cmd := newRootCommand()
		cmd.SetArgs([]string{filepath.Join("testdata", "missing.yaml")})
		require.Error(t, cmd.Execute())
	})
}
