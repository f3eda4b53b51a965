// Package arbitrator defines the contract the registry expects from an
// external dispute resolution service.
package arbitrator

import (
	"context"
	"math/big"
	"time"

	"github.com/tcrlabs/curate/ledger"
)

//go:generate mockgen -package mocks -destination mocks/arbitrator.go . Arbitrator,RulingSink

// Ruling is a decision on a dispute. Zero means the arbitrator refused to rule.
type Ruling uint64

const RefusedToRule Ruling = 0

// Arbitrator settles disputes. CreateDispute must be paid exactly ArbitrationCost
// and Appeal exactly AppealCost.
// A dispute that cannot be appealed reports a zero appeal period.
type Arbitrator interface {
	Account() ledger.Account
	ArbitrationCost(extraData []byte) *big.Int
	AppealCost(disputeID uint64, extraData []byte) *big.Int
	CreateDispute(ctx context.Context, choices uint64, extraData []byte, fee *big.Int) (uint64, error)
	Appeal(ctx context.Context, disputeID uint64, extraData []byte, fee *big.Int) error
	AppealPeriod(disputeID uint64) (start, end time.Time)
	CurrentRuling(disputeID uint64) Ruling
}

// RulingSink receives final rulings, exactly once per dispute.
type RulingSink interface {
	Rule(ctx context.Context, from ledger.Account, disputeID uint64, ruling Ruling) error
}

// Decision is a final ruling travelling from an arbitrator to a registry.
type Decision struct {
	From      ledger.Account
	DisputeID uint64
	Ruling    Ruling
}
