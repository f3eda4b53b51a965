package registry

import (
	"context"
	"math/big"
	"sync"

	"go.uber.org/zap"

	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
)

// Event is a notification about a committed state change.
type Event interface {
	Name() string
}

// EventSink receives the events of every successful operation, in order,
// after its state has been persisted.
type EventSink interface {
	Emit(ctx context.Context, ev Event)
}

type ItemSubmitted struct {
	ItemID          ItemID
	Submitter       ledger.Account
	EvidenceGroupID [32]byte
	Data            []byte
}

type RequestSubmitted struct {
	ItemID       ItemID
	RequestIndex uint64
	RequestType  RequestType
}

type ItemStatusChange struct {
	ItemID       ItemID
	RequestIndex uint64
	RoundIndex   uint64
	Disputed     bool
	Resolved     bool
}

type Dispute struct {
	Arbitrator      ledger.Account
	DisputeID       uint64
	MetaEvidenceID  uint64
	EvidenceGroupID [32]byte
}

type Evidence struct {
	Arbitrator      ledger.Account
	EvidenceGroupID [32]byte
	Party           ledger.Account
	Evidence        string
}

type Contribution struct {
	ItemID       ItemID
	Contributor  ledger.Account
	RequestIndex uint64
	RoundIndex   uint64
	Amount       *big.Int
	Side         Party
}

type HasPaidAppealFee struct {
	ItemID       ItemID
	RequestIndex uint64
	RoundIndex   uint64
	Side         Party
}

type AppealFunded struct {
	ItemID       ItemID
	RequestIndex uint64
	RoundIndex   uint64
}

type Ruling struct {
	Arbitrator ledger.Account
	DisputeID  uint64
	Ruling     Party
}

type RewardWithdrawn struct {
	Beneficiary  ledger.Account
	ItemID       ItemID
	RequestIndex uint64
	RoundIndex   uint64
	Reward       *big.Int
}

type MetaEvidence struct {
	ID       uint64
	Evidence string
}

type ConnectedTCRSet struct {
	TCR ledger.Account
}

func (ItemSubmitted) Name() string    { return "ItemSubmitted" }
func (RequestSubmitted) Name() string { return "RequestSubmitted" }
func (ItemStatusChange) Name() string { return "ItemStatusChange" }
func (Dispute) Name() string          { return "Dispute" }
func (Evidence) Name() string         { return "Evidence" }
func (Contribution) Name() string     { return "Contribution" }
func (HasPaidAppealFee) Name() string { return "HasPaidAppealFee" }
func (AppealFunded) Name() string     { return "AppealFunded" }
func (Ruling) Name() string           { return "Ruling" }
func (RewardWithdrawn) Name() string  { return "RewardWithdrawn" }
func (MetaEvidence) Name() string     { return "MetaEvidence" }
func (ConnectedTCRSet) Name() string  { return "ConnectedTCRSet" }

type logSink struct{}

func (logSink) Emit(ctx context.Context, ev Event) {
	logging.FromContext(ctx).Debug("event", zap.String("name", ev.Name()), zap.Any("event", ev))
}

// EventLog is an EventSink keeping every event in memory.
type EventLog struct {
	mu     sync.Mutex
	events []Event
}

func (l *EventLog) Emit(_ context.Context, ev Event) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = append(l.events, ev)
}

func (l *EventLog) Events() []Event {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]Event, len(l.events))
	copy(out, l.events)
	return out
}

// Named returns the events with the given name.
func (l *EventLog) Named(name string) []Event {
	var out []Event
	for _, ev := range l.Events() {
		if ev.Name() == name {
			out = append(out, ev)
		}
	}
	return out
}

func (l *EventLog) Reset() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.events = nil
}
