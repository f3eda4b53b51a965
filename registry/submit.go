package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tcrlabs/curate/hash"
	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
)

// SubmitItem requests the registration of an absent item. The attached value
// must cover the arbitration cost and the submission base deposit; all of it
// is held as the requester's deposit.
func (r *Registry) SubmitItem(ctx context.Context, call Call, data []byte) (ItemID, error) {
	id := ItemID(hash.ItemID(data))
	err := r.execute(ctx, func(op *operation) error {
		item, err := op.item(id)
		if err != nil {
			return err
		}
		created := item == nil
		if created {
			item = &Item{ID: id, Data: append([]byte(nil), data...), Status: Absent}
		}
		if item.Status != Absent {
			return fmt.Errorf("submitting item %s (%s): %w", id, item.Status, ErrItemNotAbsent)
		}
		if created {
			op.list(id)
			op.emit(ItemSubmitted{
				ItemID:          id,
				Submitter:       call.From,
				EvidenceGroupID: hash.EvidenceGroupID(id, 0),
				Data:            item.Data,
			})
		}
		return op.requestStatusChange(item, call, Registration)
	})
	if err != nil {
		return id, err
	}
	logging.FromContext(ctx).Info("item submitted", zap.Stringer("item", id), zap.Stringer("requester", call.From))
	return id, nil
}

// RemoveItem requests the removal of a registered item.
func (r *Registry) RemoveItem(ctx context.Context, call Call, id ItemID, evidence string) error {
	err := r.execute(ctx, func(op *operation) error {
		item, err := op.item(id)
		if err != nil {
			return err
		}
		if item == nil || item.Status != Registered {
			return fmt.Errorf("removing item %s: %w", id, ErrItemNotRegistered)
		}
		if err := op.requestStatusChange(item, call, Clearing); err != nil {
			return err
		}
		if evidence != "" {
			req := item.latest()
			op.emit(Evidence{
				Arbitrator:      req.Arbitrator,
				EvidenceGroupID: hash.EvidenceGroupID(id, uint64(len(item.Requests)-1)),
				Party:           call.From,
				Evidence:        evidence,
			})
		}
		return nil
	})
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("item removal requested", zap.Stringer("item", id), zap.Stringer("requester", call.From))
	return nil
}

// requestStatusChange opens a new request on item, snapshotting the current
// arbitration settings.
func (op *operation) requestStatusChange(item *Item, call Call, t RequestType) error {
	params := op.params()
	arb, err := op.r.arbitrator(params.Arbitrator)
	if err != nil {
		return err
	}
	cost := arb.ArbitrationCost(params.ArbitratorExtraData)
	required := ledger.Add(cost, params.baseDeposit(t))
	value, err := call.value()
	if err != nil {
		return err
	}
	if value.Cmp(required) < 0 {
		return fmt.Errorf("%w: %s requires %s, got %s", ErrInsufficientDeposit, t, required, value)
	}

	round := newRound()
	round.contribute(call.From, Requester, value)
	round.HasPaid[Requester] = true

	req := &Request{
		Type:                t,
		SubmissionTime:      call.Now,
		Rounds:              []*Round{round},
		Arbitrator:          params.Arbitrator,
		ArbitratorExtraData: params.ArbitratorExtraData,
		MetaEvidenceID:      params.metaEvidenceID(t),
	}
	req.Parties[Requester] = call.From
	item.Requests = append(item.Requests, req)
	if t == Registration {
		item.Status = RegistrationRequested
	} else {
		item.Status = ClearingRequested
	}
	op.putItem(item)

	requestIndex := uint64(len(item.Requests) - 1)
	op.emit(RequestSubmitted{ItemID: item.ID, RequestIndex: requestIndex, RequestType: t})
	op.emit(ItemStatusChange{ItemID: item.ID, RequestIndex: requestIndex})
	requestsMetric.WithLabelValues(t.String()).Inc()
	return nil
}

// SubmitEvidence attaches evidence to the latest request of an item.
func (r *Registry) SubmitEvidence(ctx context.Context, call Call, id ItemID, evidence string) error {
	return r.execute(ctx, func(op *operation) error {
		item, err := op.item(id)
		if err != nil {
			return err
		}
		if item == nil || len(item.Requests) == 0 {
			return fmt.Errorf("evidence for item %s: %w", id, ErrRequestNotFound)
		}
		req := item.latest()
		if req.Resolved {
			return fmt.Errorf("evidence for item %s: %w", id, ErrRequestResolved)
		}
		op.emit(Evidence{
			Arbitrator:      req.Arbitrator,
			EvidenceGroupID: hash.EvidenceGroupID(id, uint64(len(item.Requests)-1)),
			Party:           call.From,
			Evidence:        evidence,
		})
		return nil
	})
}
