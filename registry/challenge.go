package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tcrlabs/curate/hash"
	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
)

// ChallengeRequest disputes the pending request of an item. The challenger's
// deposit must cover the arbitration cost and the challenge base deposit.
// The challenge period end is inclusive.
func (r *Registry) ChallengeRequest(ctx context.Context, call Call, id ItemID, evidence string) error {
	var disputeID uint64
	err := r.execute(ctx, func(op *operation) error {
		item, err := op.item(id)
		if err != nil {
			return err
		}
		if item == nil || item.pending() == nil {
			return fmt.Errorf("challenging item %s: %w", id, ErrNoPendingRequest)
		}
		req := item.pending()
		if req.Disputed {
			return fmt.Errorf("challenging item %s: %w", id, ErrAlreadyDisputed)
		}
		params := op.params()
		if deadline := req.SubmissionTime.Add(params.ChallengePeriod); call.Now.After(deadline) {
			return fmt.Errorf("challenging item %s after %s: %w", id, deadline, ErrChallengePeriodOver)
		}

		arb, err := op.r.arbitrator(req.Arbitrator)
		if err != nil {
			return err
		}
		cost := arb.ArbitrationCost(req.ArbitratorExtraData)
		required := ledger.Add(cost, params.challengeBaseDeposit(req.Type))
		value, err := call.value()
		if err != nil {
			return err
		}
		if value.Cmp(required) < 0 {
			return fmt.Errorf("%w: challenge requires %s, got %s", ErrInsufficientDeposit, required, value)
		}

		disputeID, err = arb.CreateDispute(ctx, rulingOptions, req.ArbitratorExtraData, cost)
		if err != nil {
			return fmt.Errorf("creating dispute for item %s: %w", id, err)
		}
		op.charged(req.Arbitrator, disputeID, "dispute", cost)
		if err := op.checkNewDispute(req.Arbitrator, disputeID); err != nil {
			return err
		}

		round := req.Rounds[0]
		round.contribute(call.From, Challenger, value)
		round.HasPaid[Challenger] = true
		round.FeeRewards = ledger.Sub(round.FeeRewards, cost)

		req.Disputed = true
		req.DisputeID = disputeID
		req.Parties[Challenger] = call.From
		req.Rounds = append(req.Rounds, newRound())
		op.putItem(item)

		requestIndex := uint64(len(item.Requests) - 1)
		if err := op.putDispute(req.Arbitrator, disputeID, disputeRef{ItemID: id, RequestIndex: requestIndex}); err != nil {
			return err
		}

		groupID := hash.EvidenceGroupID(id, requestIndex)
		op.emit(Dispute{
			Arbitrator:      req.Arbitrator,
			DisputeID:       disputeID,
			MetaEvidenceID:  req.MetaEvidenceID,
			EvidenceGroupID: groupID,
		})
		if evidence != "" {
			op.emit(Evidence{
				Arbitrator:      req.Arbitrator,
				EvidenceGroupID: groupID,
				Party:           call.From,
				Evidence:        evidence,
			})
		}
		op.emit(ItemStatusChange{ItemID: id, RequestIndex: requestIndex, RoundIndex: 1, Disputed: true})
		return nil
	})
	if err != nil {
		return err
	}
	challengesMetric.Inc()
	logging.FromContext(ctx).Info("request challenged",
		zap.Stringer("item", id),
		zap.Stringer("challenger", call.From),
		zap.Uint64("dispute", disputeID),
	)
	return nil
}

// ExecuteRequest resolves an unchallenged request once its challenge period
// has passed and reimburses the requester's deposit.
func (r *Registry) ExecuteRequest(ctx context.Context, call Call, id ItemID) error {
	return r.execute(ctx, func(op *operation) error {
		item, err := op.item(id)
		if err != nil {
			return err
		}
		if item == nil || item.pending() == nil {
			return fmt.Errorf("executing item %s: %w", id, ErrNoPendingRequest)
		}
		req := item.pending()
		if req.Disputed {
			return fmt.Errorf("executing item %s: %w", id, ErrAlreadyDisputed)
		}
		if deadline := req.SubmissionTime.Add(op.params().ChallengePeriod); !call.Now.After(deadline) {
			return fmt.Errorf("executing item %s before %s: %w", id, deadline, ErrChallengePeriodNotOver)
		}

		if req.Type == Registration {
			item.Status = Registered
		} else {
			item.Status = Absent
		}
		req.Resolved = true
		req.Ruling = Requester

		requester := req.Parties[Requester]
		round := req.Rounds[0]
		contributions := round.contributionsOf(requester)
		delete(round.Contributions, requester)
		op.putItem(item)

		requestIndex := uint64(len(item.Requests) - 1)
		op.emit(ItemStatusChange{ItemID: id, RequestIndex: requestIndex, Resolved: true})
		op.pay(payout{
			to:     requester,
			amount: contributions[Requester],
			reason: "deposit reimbursement",
			onFailure: func(op *operation) error {
				return op.restoreContributions(id, requestIndex, 0, requester, contributions)
			},
		})
		logging.FromContext(ctx).Info("request executed",
			zap.Stringer("item", id),
			zap.Stringer("status", item.Status),
		)
		return nil
	})
}
