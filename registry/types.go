package registry

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/tcrlabs/curate/ledger"
)

// ItemID is the content hash of an item payload.
type ItemID [32]byte

func (id ItemID) String() string {
	return hex.EncodeToString(id[:])
}

func ParseItemID(s string) (ItemID, error) {
	var id ItemID
	b, err := hex.DecodeString(s)
	if err != nil {
		return id, fmt.Errorf("decoding item id %q: %w", s, err)
	}
	if len(b) != len(id) {
		return id, fmt.Errorf("item id %q: expected %d bytes, got %d", s, len(id), len(b))
	}
	copy(id[:], b)
	return id, nil
}

type Status uint8

const (
	Absent Status = iota
	Registered
	RegistrationRequested
	ClearingRequested
)

func (s Status) String() string {
	switch s {
	case Absent:
		return "absent"
	case Registered:
		return "registered"
	case RegistrationRequested:
		return "registration-requested"
	case ClearingRequested:
		return "clearing-requested"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

// Party is a side of a request. It doubles as the ruling of a dispute.
type Party uint8

const (
	PartyNone Party = iota
	Requester
	Challenger
)

// rulingOptions is the number of choices the arbitrator can pick from.
const rulingOptions = 2

func (p Party) String() string {
	switch p {
	case PartyNone:
		return "none"
	case Requester:
		return "requester"
	case Challenger:
		return "challenger"
	default:
		return fmt.Sprintf("party(%d)", uint8(p))
	}
}

func (p Party) opponent() Party {
	if p == Requester {
		return Challenger
	}
	return Requester
}

type RequestType uint8

const (
	Registration RequestType = iota
	Clearing
)

func (t RequestType) String() string {
	if t == Clearing {
		return "clearing"
	}
	return "registration"
}

// Round tracks the crowdfunding of one round of a request.
// Round 0 holds the deposits of the requester and the challenger.
type Round struct {
	AmountPaid    [3]*big.Int
	HasPaid       [3]bool
	FeeRewards    *big.Int
	Contributions map[ledger.Account][3]*big.Int
}

func newRound() *Round {
	return &Round{
		AmountPaid:    [3]*big.Int{ledger.Zero(), ledger.Zero(), ledger.Zero()},
		FeeRewards:    ledger.Zero(),
		Contributions: make(map[ledger.Account][3]*big.Int),
	}
}

func (r *Round) contribute(from ledger.Account, side Party, amount *big.Int) {
	c := r.contributionsOf(from)
	c[side] = ledger.Add(c[side], amount)
	r.Contributions[from] = c
	r.AmountPaid[side] = ledger.Add(r.AmountPaid[side], amount)
	r.FeeRewards = ledger.Add(r.FeeRewards, amount)
}

func (r *Round) contributionsOf(acc ledger.Account) [3]*big.Int {
	c, ok := r.Contributions[acc]
	if !ok {
		return [3]*big.Int{ledger.Zero(), ledger.Zero(), ledger.Zero()}
	}
	return [3]*big.Int{ledger.Copy(c[0]), ledger.Copy(c[1]), ledger.Copy(c[2])}
}

func (r *Round) fullyFunded() bool {
	return r.HasPaid[Requester] && r.HasPaid[Challenger]
}

func (r *Round) clone() *Round {
	c := &Round{
		HasPaid:       r.HasPaid,
		FeeRewards:    ledger.Copy(r.FeeRewards),
		Contributions: make(map[ledger.Account][3]*big.Int, len(r.Contributions)),
	}
	for i := range r.AmountPaid {
		c.AmountPaid[i] = ledger.Copy(r.AmountPaid[i])
	}
	for acc := range r.Contributions {
		c.Contributions[acc] = r.contributionsOf(acc)
	}
	return c
}

// Request is an attempt to change the status of an item.
// Arbitrator, ArbitratorExtraData and MetaEvidenceID are fixed at creation.
type Request struct {
	Type                RequestType
	Disputed            bool
	DisputeID           uint64
	SubmissionTime      time.Time
	Resolved            bool
	Parties             [3]ledger.Account
	Rounds              []*Round
	Ruling              Party
	Arbitrator          ledger.Account
	ArbitratorExtraData []byte
	MetaEvidenceID      uint64
}

func (r *Request) lastRound() *Round {
	return r.Rounds[len(r.Rounds)-1]
}

func (r *Request) clone() *Request {
	c := *r
	c.ArbitratorExtraData = append([]byte(nil), r.ArbitratorExtraData...)
	c.Rounds = make([]*Round, len(r.Rounds))
	for i, round := range r.Rounds {
		c.Rounds[i] = round.clone()
	}
	return &c
}

type Item struct {
	ID       ItemID
	Data     []byte
	Status   Status
	Requests []*Request
}

func (i *Item) latest() *Request {
	if len(i.Requests) == 0 {
		return nil
	}
	return i.Requests[len(i.Requests)-1]
}

// pending returns the unresolved request of the item, if any.
func (i *Item) pending() *Request {
	if req := i.latest(); req != nil && !req.Resolved {
		return req
	}
	return nil
}

func (i *Item) clone() *Item {
	c := &Item{
		ID:       i.ID,
		Data:     append([]byte(nil), i.Data...),
		Status:   i.Status,
		Requests: make([]*Request, len(i.Requests)),
	}
	for n, req := range i.Requests {
		c.Requests[n] = req.clone()
	}
	return c
}

// implement zap.ObjectMarshaler interface.
func (i *Item) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddString("id", i.ID.String())
	enc.AddString("status", i.Status.String())
	enc.AddInt("requests", len(i.Requests))
	return nil
}

// Call describes who invokes an operation, with how much value attached and
// at what time.
type Call struct {
	From  ledger.Account
	Value *big.Int
	Now   time.Time
}

// value is the attached value. Calls never take funds away, so a negative
// value is rejected.
func (c Call) value() (*big.Int, error) {
	if c.Value != nil && c.Value.Sign() < 0 {
		return nil, fmt.Errorf("%w: %s from %s", ErrNegativeValue, c.Value, c.From)
	}
	return ledger.Copy(c.Value), nil
}
