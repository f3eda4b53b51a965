package registry

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/tcrlabs/curate/hash"
	"github.com/tcrlabs/curate/logging"
)

// AddItemDirectly registers an item without a request. Only the relayer can
// call it; no deposit is taken.
func (r *Registry) AddItemDirectly(ctx context.Context, call Call, data []byte) (ItemID, error) {
	id := ItemID(hash.ItemID(data))
	err := r.execute(ctx, func(op *operation) error {
		if err := op.checkRelayer(call); err != nil {
			return err
		}
		item, err := op.item(id)
		if err != nil {
			return err
		}
		if item == nil {
			item = &Item{ID: id, Data: append([]byte(nil), data...), Status: Absent}
			op.list(id)
		}
		if item.Status != Absent {
			return fmt.Errorf("adding item %s (%s): %w", id, item.Status, ErrItemNotAbsent)
		}
		item.Status = Registered
		op.putItem(item)
		op.emit(ItemStatusChange{ItemID: id, RequestIndex: uint64(len(item.Requests))})
		return nil
	})
	if err != nil {
		return id, err
	}
	logging.FromContext(ctx).Info("item added by relayer", zap.Stringer("item", id))
	return id, nil
}

// RemoveItemDirectly clears a registered item without a request.
func (r *Registry) RemoveItemDirectly(ctx context.Context, call Call, id ItemID) error {
	err := r.execute(ctx, func(op *operation) error {
		if err := op.checkRelayer(call); err != nil {
			return err
		}
		item, err := op.item(id)
		if err != nil {
			return err
		}
		if item == nil || item.Status != Registered {
			return fmt.Errorf("removing item %s: %w", id, ErrItemNotRegistered)
		}
		item.Status = Absent
		op.putItem(item)
		op.emit(ItemStatusChange{ItemID: id, RequestIndex: uint64(len(item.Requests))})
		return nil
	})
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("item removed by relayer", zap.Stringer("item", id))
	return nil
}

func (op *operation) checkRelayer(call Call) error {
	relayer := op.params().Relayer
	if relayer == "" || call.From != relayer {
		return fmt.Errorf("%w: %s", ErrNotRelayer, call.From)
	}
	return nil
}
