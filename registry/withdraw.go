package registry

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
)

// WithdrawFeesAndRewards pays a beneficiary what it is owed for its
// contributions to a round of a resolved request. Anyone can trigger it.
// It returns the amount scheduled for payment; a second call pays nothing.
func (r *Registry) WithdrawFeesAndRewards(
	ctx context.Context,
	beneficiary ledger.Account,
	id ItemID,
	requestIndex, roundIndex uint64,
) (*big.Int, error) {
	reward := ledger.Zero()
	err := r.execute(ctx, func(op *operation) error {
		item, round, err := op.round(id, requestIndex, roundIndex)
		if err != nil {
			return err
		}
		req := item.Requests[requestIndex]
		if !req.Resolved {
			return fmt.Errorf("withdrawing from item %s request %d: %w", id, requestIndex, ErrRequestNotResolved)
		}
		if _, ok := round.Contributions[beneficiary]; !ok {
			return nil
		}
		contributions := round.contributionsOf(beneficiary)
		reward = roundReward(round, req.Ruling, contributions)
		delete(round.Contributions, beneficiary)
		op.putItem(item)

		op.pay(payout{
			to:     beneficiary,
			amount: reward,
			reason: "fees and rewards",
			onSuccess: RewardWithdrawn{
				Beneficiary:  beneficiary,
				ItemID:       id,
				RequestIndex: requestIndex,
				RoundIndex:   roundIndex,
				Reward:       reward,
			},
			onFailure: func(op *operation) error {
				return op.restoreContributions(id, requestIndex, roundIndex, beneficiary, contributions)
			},
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	if reward.Sign() > 0 {
		withdrawalsMetric.Inc()
		logging.FromContext(ctx).Debug("rewards withdrawn",
			zap.Stringer("beneficiary", beneficiary),
			zap.Stringer("item", id),
			zap.Uint64("request", requestIndex),
			zap.Uint64("round", roundIndex),
			zap.Stringer("reward", reward),
		)
	}
	return reward, nil
}

// roundReward computes what contributions to a round are worth given the
// final ruling of its request.
//   - A round not fully funded by both sides reimburses contributions, sharing
//     any retained refund proportionally.
//   - With no ruling each side gets half of the pot, split among its
//     contributors in proportion to what they paid.
//   - Otherwise the winning side's contributors share the whole pot.
func roundReward(round *Round, ruling Party, c [3]*big.Int) *big.Int {
	fee := round.FeeRewards
	paid := round.AmountPaid
	switch {
	case !round.fullyFunded():
		return ledger.MulDiv(
			ledger.Add(c[Requester], c[Challenger]),
			fee,
			ledger.Add(paid[Requester], paid[Challenger]),
		)
	case ruling == PartyNone:
		shareRequester := new(big.Int).Quo(fee, big.NewInt(2))
		shareChallenger := ledger.Sub(fee, shareRequester)
		return ledger.Add(
			ledger.MulDiv(c[Requester], shareRequester, paid[Requester]),
			ledger.MulDiv(c[Challenger], shareChallenger, paid[Challenger]),
		)
	default:
		return ledger.MulDiv(c[ruling], fee, paid[ruling])
	}
}

func (op *operation) round(id ItemID, requestIndex, roundIndex uint64) (*Item, *Round, error) {
	item, err := op.item(id)
	if err != nil {
		return nil, nil, err
	}
	if item == nil || requestIndex >= uint64(len(item.Requests)) {
		return nil, nil, fmt.Errorf("item %s request %d: %w", id, requestIndex, ErrRequestNotFound)
	}
	req := item.Requests[requestIndex]
	if roundIndex >= uint64(len(req.Rounds)) {
		return nil, nil, fmt.Errorf("item %s request %d round %d: %w", id, requestIndex, roundIndex, ErrRoundNotFound)
	}
	return item, req.Rounds[roundIndex], nil
}

// restoreContributions gives back a beneficiary's claim after its payout was
// refused, so it can withdraw again later.
func (op *operation) restoreContributions(
	id ItemID,
	requestIndex, roundIndex uint64,
	beneficiary ledger.Account,
	contributions [3]*big.Int,
) error {
	item, round, err := op.round(id, requestIndex, roundIndex)
	if err != nil {
		return err
	}
	current := round.contributionsOf(beneficiary)
	for side := range current {
		current[side] = ledger.Add(current[side], contributions[side])
	}
	round.Contributions[beneficiary] = current
	op.putItem(item)
	return nil
}
