package arbitrator

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
)

var (
	ErrInsufficientFee     = errors.New("fee is lower than the required cost")
	ErrUnknownDispute      = errors.New("unknown dispute")
	ErrNotAppealable       = errors.New("dispute is not appealable")
	ErrAlreadySolved       = errors.New("dispute is already solved")
	ErrAppealPeriodNotOver = errors.New("appeal period is not over yet")
	ErrInvalidRuling       = errors.New("ruling out of bounds")
	ErrNoSink              = errors.New("no ruling sink configured")
)

type Status uint8

const (
	Waiting Status = iota
	Appealable
	Solved
)

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Appealable:
		return "appealable"
	case Solved:
		return "solved"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

type dispute struct {
	choices     uint64
	ruling      Ruling
	status      Status
	appealStart time.Time
	appealEnd   time.Time
}

// Centralized is an appealable arbitrator whose owner decides every dispute.
// A first GiveRuling opens an appeal period; a GiveRuling once the period has
// lapsed makes the ruling final and delivers it to the sink.
// Arbitration and appeal cost the same fixed amount.
type Centralized struct {
	account       ledger.Account
	cost          *big.Int
	appealTimeout time.Duration

	mu        sync.Mutex
	disputes  []*dispute
	collected *big.Int
	sink      RulingSink
}

type centralizedOptionFunc func(*Centralized)

func WithSink(sink RulingSink) centralizedOptionFunc {
	return func(c *Centralized) {
		c.sink = sink
	}
}

func NewCentralized(account ledger.Account, cost *big.Int, appealTimeout time.Duration, opts ...centralizedOptionFunc) *Centralized {
	c := &Centralized{
		account:       account,
		cost:          ledger.Copy(cost),
		appealTimeout: appealTimeout,
		collected:     new(big.Int),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// SetSink replaces the receiver of final rulings.
func (c *Centralized) SetSink(sink RulingSink) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

func (c *Centralized) Account() ledger.Account {
	return c.account
}

func (c *Centralized) ArbitrationCost([]byte) *big.Int {
	return ledger.Copy(c.cost)
}

func (c *Centralized) AppealCost(uint64, []byte) *big.Int {
	return ledger.Copy(c.cost)
}

func (c *Centralized) CreateDispute(ctx context.Context, choices uint64, _ []byte, fee *big.Int) (uint64, error) {
	if fee.Cmp(c.cost) < 0 {
		return 0, fmt.Errorf("creating dispute with fee %s: %w", fee, ErrInsufficientFee)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	id := uint64(len(c.disputes))
	c.disputes = append(c.disputes, &dispute{choices: choices})
	c.collected.Add(c.collected, fee)
	logging.FromContext(ctx).Debug("dispute created", zap.Uint64("id", id), zap.Stringer("fee", fee))
	return id, nil
}

func (c *Centralized) Appeal(ctx context.Context, disputeID uint64, _ []byte, fee *big.Int) error {
	if fee.Cmp(c.cost) < 0 {
		return fmt.Errorf("appealing dispute %d with fee %s: %w", disputeID, fee, ErrInsufficientFee)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.get(disputeID)
	if err != nil {
		return err
	}
	if d.status != Appealable {
		return fmt.Errorf("appealing dispute %d: %w", disputeID, ErrNotAppealable)
	}
	d.status = Waiting
	d.ruling = RefusedToRule
	d.appealStart, d.appealEnd = time.Time{}, time.Time{}
	c.collected.Add(c.collected, fee)
	logging.FromContext(ctx).Debug("dispute appealed", zap.Uint64("id", disputeID))
	return nil
}

func (c *Centralized) AppealPeriod(disputeID uint64) (time.Time, time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.get(disputeID)
	if err != nil || d.status != Appealable {
		return time.Time{}, time.Time{}
	}
	return d.appealStart, d.appealEnd
}

func (c *Centralized) CurrentRuling(disputeID uint64) Ruling {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.get(disputeID)
	if err != nil {
		return RefusedToRule
	}
	return d.ruling
}

func (c *Centralized) DisputeStatus(disputeID uint64) Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	d, err := c.get(disputeID)
	if err != nil {
		return Waiting
	}
	return d.status
}

// Collected is the sum of all fees paid to the arbitrator.
func (c *Centralized) Collected() *big.Int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return ledger.Copy(c.collected)
}

// GiveRuling records the owner's decision. On a waiting dispute it opens the
// appeal period [now, now+appealTimeout). On an appealable dispute whose period
// has ended it finalizes the recorded ruling and delivers it.
func (c *Centralized) GiveRuling(ctx context.Context, disputeID uint64, ruling Ruling, now time.Time) error {
	c.mu.Lock()
	d, err := c.get(disputeID)
	if err != nil {
		c.mu.Unlock()
		return err
	}
	switch d.status {
	case Solved:
		c.mu.Unlock()
		return fmt.Errorf("ruling on dispute %d: %w", disputeID, ErrAlreadySolved)
	case Waiting:
		defer c.mu.Unlock()
		if uint64(ruling) > d.choices {
			return fmt.Errorf("ruling %d on dispute %d: %w", ruling, disputeID, ErrInvalidRuling)
		}
		d.ruling = ruling
		d.status = Appealable
		d.appealStart = now
		d.appealEnd = now.Add(c.appealTimeout)
		logging.FromContext(ctx).Info("appeal possible",
			zap.Uint64("dispute", disputeID),
			zap.Uint64("ruling", uint64(ruling)),
			zap.Time("until", d.appealEnd),
		)
		return nil
	}
	if now.Before(d.appealEnd) {
		c.mu.Unlock()
		return fmt.Errorf("ruling on dispute %d: %w", disputeID, ErrAppealPeriodNotOver)
	}
	if c.sink == nil {
		c.mu.Unlock()
		return ErrNoSink
	}
	d.status = Solved
	final, sink := d.ruling, c.sink
	c.mu.Unlock()

	// The sink may call back into the arbitrator.
	if err := sink.Rule(ctx, c.account, disputeID, final); err != nil {
		c.mu.Lock()
		d.status = Appealable
		c.mu.Unlock()
		return fmt.Errorf("delivering ruling on dispute %d: %w", disputeID, err)
	}
	logging.FromContext(ctx).Info("ruling delivered", zap.Uint64("dispute", disputeID), zap.Uint64("ruling", uint64(final)))
	return nil
}

func (c *Centralized) get(disputeID uint64) (*dispute, error) {
	if disputeID >= uint64(len(c.disputes)) {
		return nil, fmt.Errorf("dispute %d: %w", disputeID, ErrUnknownDispute)
	}
	return c.disputes[disputeID], nil
}

// DisputeState is the persisted form of a dispute of a Centralized arbitrator.
type DisputeState struct {
	Choices     uint64
	Ruling      uint64
	Status      uint32
	AppealStart int64
	AppealEnd   int64
}

func unixNano(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func fromUnixNano(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

// Snapshot returns the state of all disputes, indexed by dispute ID, and the
// fees collected so far.
func (c *Centralized) Snapshot() ([]DisputeState, *big.Int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DisputeState, 0, len(c.disputes))
	for _, d := range c.disputes {
		out = append(out, DisputeState{
			Choices:     d.choices,
			Ruling:      uint64(d.ruling),
			Status:      uint32(d.status),
			AppealStart: unixNano(d.appealStart),
			AppealEnd:   unixNano(d.appealEnd),
		})
	}
	return out, ledger.Copy(c.collected)
}

// Restore replaces the arbitrator's disputes with a snapshot.
func (c *Centralized) Restore(disputes []DisputeState, collected *big.Int) error {
	restored := make([]*dispute, 0, len(disputes))
	for i, s := range disputes {
		if Status(s.Status) > Solved {
			return fmt.Errorf("dispute %d: invalid status %d", i, s.Status)
		}
		restored = append(restored, &dispute{
			choices:     s.Choices,
			ruling:      Ruling(s.Ruling),
			status:      Status(s.Status),
			appealStart: fromUnixNano(s.AppealStart),
			appealEnd:   fromUnixNano(s.AppealEnd),
		})
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disputes = restored
	c.collected = ledger.Copy(collected)
	return nil
}
