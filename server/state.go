package server

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"math/big"
	"os"
	"path/filepath"

	"github.com/natefinch/atomic"
	xdr "github.com/nullstyle/go-xdr/xdr3"

	"github.com/tcrlabs/curate/arbitrator"
	"github.com/tcrlabs/curate/ledger"
)

const stateFilename = "state.bin"

type balanceRecord struct {
	Account string
	Amount  []byte
}

// state is what the daemon keeps outside of the registry database: the
// disputes of the built-in arbitrator and the balances of the bank.
type state struct {
	Disputes  []arbitrator.DisputeState
	Collected []byte
	Balances  []balanceRecord
}

func captureState(arb *arbitrator.Centralized, bank *ledger.Bank) *state {
	disputes, collected := arb.Snapshot()
	s := &state{
		Disputes:  disputes,
		Collected: collected.Bytes(),
	}
	for _, b := range bank.Balances() {
		s.Balances = append(s.Balances, balanceRecord{Account: string(b.Account), Amount: b.Amount.Bytes()})
	}
	return s
}

func (s *state) restore(arb *arbitrator.Centralized, bank *ledger.Bank) error {
	if err := arb.Restore(s.Disputes, new(big.Int).SetBytes(s.Collected)); err != nil {
		return fmt.Errorf("restoring arbitrator: %w", err)
	}
	for _, b := range s.Balances {
		if err := bank.Deposit(ledger.Account(b.Account), new(big.Int).SetBytes(b.Amount)); err != nil {
			return fmt.Errorf("restoring balance of %s: %w", b.Account, err)
		}
	}
	return nil
}

func saveState(datadir string, s *state) error {
	var w bytes.Buffer
	if _, err := xdr.Marshal(&w, s); err != nil {
		return fmt.Errorf("serializing: %w", err)
	}
	if err := atomic.WriteFile(filepath.Join(datadir, stateFilename), &w); err != nil {
		return fmt.Errorf("writing to disk: %w", err)
	}
	return nil
}

// loadState reads the persisted state. A missing file is an empty state.
func loadState(datadir string) (*state, error) {
	data, err := os.ReadFile(filepath.Join(datadir, stateFilename))
	switch {
	case errors.Is(err, fs.ErrNotExist):
		return &state{}, nil
	case err != nil:
		return nil, fmt.Errorf("loading file: %w", err)
	}
	s := &state{}
	if _, err := xdr.Unmarshal(bytes.NewReader(data), s); err != nil {
		return nil, fmt.Errorf("deserializing: %w", err)
	}
	return s, nil
}
