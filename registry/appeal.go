package registry

import (
	"context"
	"fmt"
	"math/big"

	"go.uber.org/zap"

	"github.com/tcrlabs/curate/arbitrator"
	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
)

// partyFromRuling maps an arbitrator ruling to a side. Out of range rulings
// count as no ruling.
func partyFromRuling(ruling arbitrator.Ruling) Party {
	if ruling > rulingOptions {
		return PartyNone
	}
	return Party(ruling)
}

// FundAppeal contributes to the appeal fees of a side of a disputed request.
// Contributions beyond what the side still needs are refunded. Once both sides
// are fully funded the dispute is appealed and a new round opens.
func (r *Registry) FundAppeal(ctx context.Context, call Call, id ItemID, side Party) error {
	if side != Requester && side != Challenger {
		return fmt.Errorf("funding appeal for item %s: %w: %s", id, ErrInvalidSide, side)
	}
	var appealed bool
	err := r.execute(ctx, func(op *operation) error {
		item, err := op.item(id)
		if err != nil {
			return err
		}
		if item == nil || item.pending() == nil {
			return fmt.Errorf("funding appeal for item %s: %w", id, ErrNoPendingRequest)
		}
		req := item.pending()
		if !req.Disputed {
			return fmt.Errorf("funding appeal for item %s: %w", id, ErrNotDisputed)
		}
		arb, err := op.r.arbitrator(req.Arbitrator)
		if err != nil {
			return err
		}

		start, end := arb.AppealPeriod(req.DisputeID)
		if call.Now.Before(start) || !call.Now.Before(end) {
			return fmt.Errorf("funding appeal for item %s: %w", id, ErrAppealPeriodOver)
		}

		params := op.params()
		var multiplier uint64
		switch winner := partyFromRuling(arb.CurrentRuling(req.DisputeID)); {
		case winner == PartyNone:
			multiplier = params.SharedStakeMultiplier
		case winner == side:
			multiplier = params.WinnerStakeMultiplier
		default:
			multiplier = params.LoserStakeMultiplier
			if call.Now.Sub(start) >= end.Sub(start)/2 {
				return fmt.Errorf("funding appeal for item %s: %w", id, ErrLoserFundingWindowOver)
			}
		}

		appealCost := arb.AppealCost(req.DisputeID, req.ArbitratorExtraData)
		required := ledger.Add(appealCost, ledger.MulDiv(appealCost, new(big.Int).SetUint64(multiplier), big.NewInt(MultiplierDivisor)))

		roundIndex := uint64(len(req.Rounds) - 1)
		round := req.lastRound()
		if round.HasPaid[side] {
			return fmt.Errorf("funding appeal for item %s: %w: %s", id, ErrSideFullyFunded, side)
		}

		remaining := ledger.Zero()
		if round.AmountPaid[side].Cmp(required) < 0 {
			remaining = ledger.Sub(required, round.AmountPaid[side])
		}
		value, err := call.value()
		if err != nil {
			return err
		}
		contribution := ledger.Min(value, remaining)
		excess := ledger.Sub(value, contribution)

		requestIndex := uint64(len(item.Requests) - 1)
		round.contribute(call.From, side, contribution)
		op.emit(Contribution{
			ItemID:       id,
			Contributor:  call.From,
			RequestIndex: requestIndex,
			RoundIndex:   roundIndex,
			Amount:       contribution,
			Side:         side,
		})
		if round.AmountPaid[side].Cmp(required) >= 0 {
			round.HasPaid[side] = true
			op.emit(HasPaidAppealFee{ItemID: id, RequestIndex: requestIndex, RoundIndex: roundIndex, Side: side})
		}

		if round.fullyFunded() {
			if err := arb.Appeal(ctx, req.DisputeID, req.ArbitratorExtraData, appealCost); err != nil {
				return fmt.Errorf("appealing dispute %d of item %s: %w", req.DisputeID, id, err)
			}
			op.charged(req.Arbitrator, req.DisputeID, "appeal", appealCost)
			round.FeeRewards = ledger.Sub(round.FeeRewards, appealCost)
			req.Rounds = append(req.Rounds, newRound())
			op.emit(AppealFunded{ItemID: id, RequestIndex: requestIndex, RoundIndex: roundIndex})
			appealed = true
		}
		op.putItem(item)

		op.pay(payout{
			to:     call.From,
			amount: excess,
			reason: "appeal overpayment refund",
			onFailure: func(op *operation) error {
				return op.retainExcess(id, requestIndex, roundIndex, excess)
			},
		})
		return nil
	})
	if err != nil {
		return err
	}
	if appealed {
		appealsMetric.Inc()
		logging.FromContext(ctx).Info("appeal funded", zap.Stringer("item", id))
	}
	return nil
}

// retainExcess keeps a refused refund in the round's reward pot.
func (op *operation) retainExcess(id ItemID, requestIndex, roundIndex uint64, excess *big.Int) error {
	item, round, err := op.round(id, requestIndex, roundIndex)
	if err != nil {
		return err
	}
	round.FeeRewards = ledger.Add(round.FeeRewards, excess)
	op.putItem(item)
	return nil
}
