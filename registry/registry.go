// Package registry implements a curated list whose entries change only through
// deposit-backed requests that anyone can challenge. Challenges are settled by
// an external arbitrator, appeals are crowdfunded, and every deposited unit is
// accounted for until withdrawn.
package registry

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tcrlabs/curate/arbitrator"
	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
)

//go:generate mockgen -package mocks -destination mocks/registry.go . RulingSource

// RulingSource delivers final rulings to the registry.
type RulingSource interface {
	RegisterForRulings(ctx context.Context) <-chan arbitrator.Decision
}

// Registry is the request/challenge/appeal engine. Operations are fully
// serialized. Value transfers resulting from an operation are performed after
// its state has been persisted and the registry lock released.
type Registry struct {
	mu          sync.Mutex
	db          *database
	params      Params
	count       uint64
	arbitrators map[ledger.Account]arbitrator.Arbitrator

	payer  ledger.Payer
	events EventSink
}

type OptionFunc func(*newRegistryOptions)

type newRegistryOptions struct {
	cfg         Config
	events      EventSink
	arbitrators []arbitrator.Arbitrator
}

func WithConfig(cfg Config) OptionFunc {
	return func(opts *newRegistryOptions) {
		opts.cfg = cfg
	}
}

func WithEventSink(sink EventSink) OptionFunc {
	return func(opts *newRegistryOptions) {
		opts.events = sink
	}
}

// WithArbitrators makes arbitrators known by their account. Requests created
// under a previous arbitrator need it to be known after a restart.
func WithArbitrators(arbs ...arbitrator.Arbitrator) OptionFunc {
	return func(opts *newRegistryOptions) {
		opts.arbitrators = append(opts.arbitrators, arbs...)
	}
}

// New opens (or creates) a registry stored in dbdir. arb is the arbitrator of
// a new registry; an existing one keeps the arbitrator set by governance.
func New(
	ctx context.Context,
	dbdir string,
	arb arbitrator.Arbitrator,
	payer ledger.Payer,
	opts ...OptionFunc,
) (*Registry, error) {
	options := newRegistryOptions{
		cfg:    DefaultConfig(),
		events: logSink{},
	}
	for _, opt := range opts {
		opt(&options)
	}

	db, err := openDatabase(filepath.Join(dbdir, "registry"), options.cfg.ItemCacheSize)
	if err != nil {
		return nil, fmt.Errorf("opening registry database: %w", err)
	}
	count, err := db.ItemCount()
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("reading item count: %w", err)
	}

	r := &Registry{
		db:          db,
		count:       count,
		arbitrators: make(map[ledger.Account]arbitrator.Arbitrator),
		payer:       payer,
		events:      options.events,
	}
	r.arbitrators[arb.Account()] = arb
	for _, a := range options.arbitrators {
		r.arbitrators[a.Account()] = a
	}

	logger := logging.FromContext(ctx)
	params, err := db.Params()
	switch {
	case errors.Is(err, ErrNotFound):
		logger.Info("initializing registry", zap.Inline(options.cfg))
		err = r.execute(ctx, func(op *operation) error {
			p := options.cfg.params(arb.Account())
			op.setParams(p)
			op.emit(MetaEvidence{ID: p.registrationMetaEvidenceID(), Evidence: p.RegistrationMetaEvidence})
			op.emit(MetaEvidence{ID: p.clearingMetaEvidenceID(), Evidence: p.ClearingMetaEvidence})
			if p.ConnectedTCR != "" {
				op.emit(ConnectedTCRSet{TCR: p.ConnectedTCR})
			}
			return nil
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("persisting initial parameters: %w", err)
		}
	case err != nil:
		db.Close()
		return nil, fmt.Errorf("loading registry parameters: %w", err)
	default:
		r.params = params
		logger.Info("loaded registry",
			zap.Uint64("items", count),
			zap.Stringer("arbitrator", params.Arbitrator),
			zap.Uint64("meta_evidence_updates", params.MetaEvidenceUpdates),
		)
	}
	return r, nil
}

func (r *Registry) Close() error {
	return r.db.Close()
}

// rulingRetryInterval is how long Run waits before applying again a ruling
// that failed for a reason other than the ruling itself.
var rulingRetryInterval = 5 * time.Second

// Run applies rulings delivered by source until ctx is canceled. A ruling
// that fails on a store error is kept and applied again later, since its
// arbitrator will not deliver it twice.
func (r *Registry) Run(ctx context.Context, source RulingSource) error {
	logger := logging.FromContext(ctx).Named("registry")
	ctx = logging.NewContext(ctx, logger)

	apply := func(ctx context.Context, d arbitrator.Decision) error {
		return r.Rule(ctx, d.From, d.DisputeID, d.Ruling)
	}
	retry := time.NewTicker(rulingRetryInterval)
	defer retry.Stop()

	var pending []arbitrator.Decision
	rulings := source.RegisterForRulings(ctx)
	for {
		select {
		case d, ok := <-rulings:
			if !ok {
				if len(pending) > 0 {
					logger.Error("ruling source closed with rulings not applied", zap.Int("pending", len(pending)))
				}
				logger.Info("ruling source closed")
				return nil
			}
			pending = append(pending, applyRulings(ctx, []arbitrator.Decision{d}, apply)...)
		case <-retry.C:
			if len(pending) > 0 {
				pending = applyRulings(ctx, pending, apply)
			}
		case <-ctx.Done():
			if len(pending) > 0 {
				logger.Error("shutting down with rulings not applied", zap.Int("pending", len(pending)))
			}
			logger.Info("registry shutting down")
			return nil
		}
	}
}

// applyRulings applies decisions in order and returns those worth another
// attempt. Rulings rejected for what they are are dropped.
func applyRulings(
	ctx context.Context,
	decisions []arbitrator.Decision,
	apply func(context.Context, arbitrator.Decision) error,
) []arbitrator.Decision {
	logger := logging.FromContext(ctx)
	var retry []arbitrator.Decision
	for _, d := range decisions {
		err := apply(ctx, d)
		switch {
		case err == nil:
		case errors.Is(err, ErrInvalidRuling),
			errors.Is(err, ErrUnknownDispute),
			errors.Is(err, ErrAlreadyResolved),
			errors.Is(err, ErrRequestNotFound):
			logger.Error("dropping ruling",
				zap.Stringer("arbitrator", d.From),
				zap.Uint64("dispute", d.DisputeID),
				zap.Error(err),
			)
		default:
			logger.Warn("failed to apply ruling, will retry",
				zap.Stringer("arbitrator", d.From),
				zap.Uint64("dispute", d.DisputeID),
				zap.Error(err),
			)
			retry = append(retry, d)
		}
	}
	return retry
}

func (r *Registry) arbitrator(acc ledger.Account) (arbitrator.Arbitrator, error) {
	arb, ok := r.arbitrators[acc]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownArbitrator, acc)
	}
	return arb, nil
}

// payout is a transfer scheduled by an operation.
type payout struct {
	to     ledger.Account
	amount *big.Int
	reason string
	// onSuccess is emitted once the transfer went through.
	onSuccess Event
	// onFailure reconciles the state when the destination refused the funds.
	onFailure func(op *operation) error
}

// charge is a fee an arbitrator took during an operation.
type charge struct {
	arbitrator ledger.Account
	disputeID  uint64
	what       string
	fee        *big.Int
}

// operation collects the effects of a single registry call. Nothing is
// visible to other calls until it is committed.
//
// Arbitrator calls are not part of the commit: a fee taken by CreateDispute
// or Appeal stays with the arbitrator when the operation fails afterwards.
// Such charges are logged and counted so they can be settled by hand.
type operation struct {
	r       *Registry
	changes changes
	events  []Event
	payouts []payout
	added   []arbitrator.Arbitrator
	charges []charge
}

func (op *operation) item(id ItemID) (*Item, error) {
	if item, ok := op.changes.items[id]; ok {
		return item, nil
	}
	item, err := op.r.db.Item(id)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("loading item %s: %w", id, err)
	}
	return item, nil
}

func (op *operation) putItem(item *Item) {
	if op.changes.items == nil {
		op.changes.items = make(map[ItemID]*Item)
	}
	if _, ok := op.changes.items[item.ID]; !ok {
		op.changes.order = append(op.changes.order, item.ID)
	}
	op.changes.items[item.ID] = item
}

func (op *operation) list(id ItemID) {
	op.changes.listed = append(op.changes.listed, id)
}

func (op *operation) putDispute(arb ledger.Account, disputeID uint64, ref disputeRef) error {
	data, err := ref.marshal()
	if err != nil {
		return err
	}
	if op.changes.disputes == nil {
		op.changes.disputes = make(map[string][]byte)
	}
	op.changes.disputes[string(disputeKey(arb, disputeID))] = data
	return nil
}

// checkNewDispute rejects a dispute ID the arbitrator already handed out for
// another request.
func (op *operation) checkNewDispute(arb ledger.Account, disputeID uint64) error {
	if _, ok := op.changes.disputes[string(disputeKey(arb, disputeID))]; ok {
		return fmt.Errorf("dispute %d of %s: %w", disputeID, arb, ErrDisputeIDReused)
	}
	_, err := op.r.db.DisputeRef(arb, disputeID)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil
	case err != nil:
		return fmt.Errorf("checking dispute %d of %s: %w", disputeID, arb, err)
	}
	return fmt.Errorf("dispute %d of %s: %w", disputeID, arb, ErrDisputeIDReused)
}

func (op *operation) charged(arb ledger.Account, disputeID uint64, what string, fee *big.Int) {
	op.charges = append(op.charges, charge{arbitrator: arb, disputeID: disputeID, what: what, fee: ledger.Copy(fee)})
}

func (op *operation) params() Params {
	if op.changes.params != nil {
		return op.changes.params.clone()
	}
	return op.r.params.clone()
}

func (op *operation) setParams(p Params) {
	op.changes.params = &p
}

func (op *operation) emit(ev Event) {
	op.events = append(op.events, ev)
}

func (op *operation) pay(p payout) {
	if ledger.IsZero(p.amount) {
		return
	}
	op.payouts = append(op.payouts, p)
}

// execute runs fn under the registry lock, persists its changes and then
// publishes its events and performs its transfers.
func (r *Registry) execute(ctx context.Context, fn func(op *operation) error) error {
	r.mu.Lock()
	op := &operation{r: r}
	err := fn(op)
	if err == nil {
		err = r.commit(op)
	}
	r.mu.Unlock()
	if err != nil {
		r.reportOrphanedCharges(ctx, op.charges, err)
		return err
	}

	for _, ev := range op.events {
		r.events.Emit(ctx, ev)
	}
	r.flush(ctx, op.payouts)
	return nil
}

func (r *Registry) commit(op *operation) error {
	if !op.changes.empty() {
		start := time.Now()
		if err := r.db.Write(&op.changes, r.count); err != nil {
			return fmt.Errorf("persisting changes: %w", err)
		}
		commitLatencyMetric.Observe(time.Since(start).Seconds())
	}
	r.count += uint64(len(op.changes.listed))
	if op.changes.params != nil {
		r.params = *op.changes.params
	}
	for _, arb := range op.added {
		r.arbitrators[arb.Account()] = arb
	}
	return nil
}

func (r *Registry) reportOrphanedCharges(ctx context.Context, charges []charge, cause error) {
	logger := logging.FromContext(ctx)
	for _, c := range charges {
		orphanedChargesMetric.Inc()
		logger.Error("arbitrator kept a fee for an operation that failed",
			zap.Stringer("arbitrator", c.arbitrator),
			zap.Uint64("dispute", c.disputeID),
			zap.String("charge", c.what),
			zap.Stringer("fee", c.fee),
			zap.NamedError("cause", cause),
		)
	}
}

func (r *Registry) flush(ctx context.Context, payouts []payout) {
	logger := logging.FromContext(ctx)
	for _, p := range payouts {
		err := r.payer.Pay(ctx, p.to, p.amount)
		if err == nil {
			if p.onSuccess != nil {
				r.events.Emit(ctx, p.onSuccess)
			}
			continue
		}
		failedPayoutsMetric.Inc()
		logger.Warn("payout failed, funds stay in the registry",
			zap.Stringer("to", p.to),
			zap.Stringer("amount", p.amount),
			zap.String("reason", p.reason),
			zap.Error(err),
		)
		if p.onFailure == nil {
			continue
		}
		if err := r.execute(ctx, p.onFailure); err != nil {
			logger.Error("failed to reconcile refused payout",
				zap.Stringer("to", p.to),
				zap.Stringer("amount", p.amount),
				zap.Error(err),
			)
		}
	}
}
