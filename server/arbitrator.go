package server

import (
	"context"
	"fmt"
	"math/big"

	"github.com/tcrlabs/curate/arbitrator"
)

// durableArbitrator saves the daemon state every time the built-in arbitrator
// takes a fee, so a crash never makes it hand out a dispute ID twice.
type durableArbitrator struct {
	*arbitrator.Centralized
	save func() error
}

func (a *durableArbitrator) CreateDispute(ctx context.Context, choices uint64, extraData []byte, fee *big.Int) (uint64, error) {
	id, err := a.Centralized.CreateDispute(ctx, choices, extraData, fee)
	if err != nil {
		return 0, err
	}
	if err := a.save(); err != nil {
		return 0, fmt.Errorf("persisting dispute %d: %w", id, err)
	}
	return id, nil
}

func (a *durableArbitrator) Appeal(ctx context.Context, disputeID uint64, extraData []byte, fee *big.Int) error {
	if err := a.Centralized.Appeal(ctx, disputeID, extraData, fee); err != nil {
		return err
	}
	if err := a.save(); err != nil {
		return fmt.Errorf("persisting appeal of dispute %d: %w", disputeID, err)
	}
	return nil
}
