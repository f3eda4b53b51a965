package registry

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/tcrlabs/curate/arbitrator"
	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
)

// Rule applies the final ruling of a dispute. Only the arbitrator that
// created the dispute can deliver it. If only one side fully funded the last
// appeal round, that side wins regardless of the ruling.
// Rule implements arbitrator.RulingSink.
func (r *Registry) Rule(ctx context.Context, from ledger.Account, disputeID uint64, ruling arbitrator.Ruling) error {
	if ruling > rulingOptions {
		return fmt.Errorf("ruling %d on dispute %d: %w", ruling, disputeID, ErrInvalidRuling)
	}
	var (
		item  *Item
		final Party
	)
	err := r.execute(ctx, func(op *operation) error {
		ref, err := op.r.db.DisputeRef(from, disputeID)
		switch {
		case errors.Is(err, ErrNotFound):
			return fmt.Errorf("dispute %d of %s: %w", disputeID, from, ErrUnknownDispute)
		case err != nil:
			return fmt.Errorf("loading dispute %d of %s: %w", disputeID, from, err)
		}
		item, err = op.item(ref.ItemID)
		if err != nil {
			return err
		}
		if item == nil || ref.RequestIndex >= uint64(len(item.Requests)) {
			return fmt.Errorf("dispute %d of %s points to a missing request: %w", disputeID, from, ErrRequestNotFound)
		}
		req := item.Requests[ref.RequestIndex]
		if req.Resolved {
			return fmt.Errorf("dispute %d of %s: %w", disputeID, from, ErrAlreadyResolved)
		}

		final = Party(ruling)
		last := req.lastRound()
		switch {
		case last.HasPaid[Requester] && !last.HasPaid[Challenger]:
			final = Requester
		case last.HasPaid[Challenger] && !last.HasPaid[Requester]:
			final = Challenger
		}

		switch {
		case final == Requester && req.Type == Registration:
			item.Status = Registered
		case final == Requester && req.Type == Clearing:
			item.Status = Absent
		case req.Type == Registration:
			item.Status = Absent
		default:
			item.Status = Registered
		}
		req.Resolved = true
		req.Ruling = final
		op.putItem(item)

		op.emit(Ruling{Arbitrator: from, DisputeID: disputeID, Ruling: final})
		op.emit(ItemStatusChange{
			ItemID:       item.ID,
			RequestIndex: ref.RequestIndex,
			RoundIndex:   uint64(len(req.Rounds) - 1),
			Disputed:     true,
			Resolved:     true,
		})
		return nil
	})
	if err != nil {
		return err
	}
	rulingsMetric.WithLabelValues(final.String()).Inc()
	logging.FromContext(ctx).Info("ruling applied",
		zap.Stringer("item", item.ID),
		zap.Uint64("dispute", disputeID),
		zap.Uint64("arbitrator_ruling", uint64(ruling)),
		zap.Stringer("ruling", final),
		zap.Stringer("status", item.Status),
	)
	return nil
}
