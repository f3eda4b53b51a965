package registry

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/spacemeshos/merkle-tree"

	"github.com/tcrlabs/curate/hash"
	"github.com/tcrlabs/curate/ledger"
)

type RequestInfo struct {
	Type                RequestType
	Disputed            bool
	DisputeID           uint64
	SubmissionTime      time.Time
	Resolved            bool
	Parties             [3]ledger.Account
	NumberOfRounds      int
	Ruling              Party
	Arbitrator          ledger.Account
	ArbitratorExtraData []byte
	MetaEvidenceID      uint64
}

type RoundInfo struct {
	Appealed   bool
	AmountPaid [3]*big.Int
	HasPaid    [3]bool
	FeeRewards *big.Int
}

// Item returns a copy of an item. Unknown items are reported as ErrNotFound.
func (r *Registry) Item(id ItemID) (*Item, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.db.Item(id)
}

// ItemInfo returns the payload, status and number of requests of an item.
// Unknown items are absent.
func (r *Registry) ItemInfo(id ItemID) ([]byte, Status, int, error) {
	item, err := r.Item(id)
	switch {
	case errors.Is(err, ErrNotFound):
		return nil, Absent, 0, nil
	case err != nil:
		return nil, Absent, 0, err
	}
	return item.Data, item.Status, len(item.Requests), nil
}

func (r *Registry) RequestInfo(id ItemID, requestIndex uint64) (RequestInfo, error) {
	item, err := r.Item(id)
	if err != nil {
		return RequestInfo{}, fmt.Errorf("item %s: %w", id, err)
	}
	if requestIndex >= uint64(len(item.Requests)) {
		return RequestInfo{}, fmt.Errorf("item %s request %d: %w", id, requestIndex, ErrRequestNotFound)
	}
	req := item.Requests[requestIndex]
	return RequestInfo{
		Type:                req.Type,
		Disputed:            req.Disputed,
		DisputeID:           req.DisputeID,
		SubmissionTime:      req.SubmissionTime,
		Resolved:            req.Resolved,
		Parties:             req.Parties,
		NumberOfRounds:      len(req.Rounds),
		Ruling:              req.Ruling,
		Arbitrator:          req.Arbitrator,
		ArbitratorExtraData: req.ArbitratorExtraData,
		MetaEvidenceID:      req.MetaEvidenceID,
	}, nil
}

func (r *Registry) RoundInfo(id ItemID, requestIndex, roundIndex uint64) (RoundInfo, error) {
	req, round, err := r.lookupRound(id, requestIndex, roundIndex)
	if err != nil {
		return RoundInfo{}, err
	}
	return RoundInfo{
		Appealed:   roundIndex+1 < uint64(len(req.Rounds)),
		AmountPaid: round.AmountPaid,
		HasPaid:    round.HasPaid,
		FeeRewards: round.FeeRewards,
	}, nil
}

// Contributions returns what a contributor still has claim to in a round,
// per side.
func (r *Registry) Contributions(id ItemID, requestIndex, roundIndex uint64, contributor ledger.Account) ([3]*big.Int, error) {
	_, round, err := r.lookupRound(id, requestIndex, roundIndex)
	if err != nil {
		return [3]*big.Int{}, err
	}
	return round.contributionsOf(contributor), nil
}

func (r *Registry) lookupRound(id ItemID, requestIndex, roundIndex uint64) (*Request, *Round, error) {
	item, err := r.Item(id)
	if err != nil {
		return nil, nil, fmt.Errorf("item %s: %w", id, err)
	}
	if requestIndex >= uint64(len(item.Requests)) {
		return nil, nil, fmt.Errorf("item %s request %d: %w", id, requestIndex, ErrRequestNotFound)
	}
	req := item.Requests[requestIndex]
	if roundIndex >= uint64(len(req.Rounds)) {
		return nil, nil, fmt.Errorf("item %s request %d round %d: %w", id, requestIndex, roundIndex, ErrRoundNotFound)
	}
	return req, req.Rounds[roundIndex], nil
}

// Params returns a snapshot of the registry parameters.
func (r *Registry) Params() Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params.clone()
}

func (r *Registry) Governor() ledger.Account {
	return r.Params().Governor
}

func (r *Registry) Relayer() ledger.Account {
	return r.Params().Relayer
}

func (r *Registry) ConnectedTCR() ledger.Account {
	return r.Params().ConnectedTCR
}

// ItemCount is the number of items ever submitted or added.
func (r *Registry) ItemCount() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.count
}

// ItemAt returns the ID of the index-th item, in submission order.
func (r *Registry) ItemAt(index uint64) (ItemID, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if index >= r.count {
		return ItemID{}, fmt.Errorf("%w: %d of %d", ErrItemIndexOutOfRange, index, r.count)
	}
	return r.db.ItemAt(index)
}

// MembershipRoot is the root of a merkle tree over the IDs of all registered
// items, in ascending order. An empty registry has an empty root.
func (r *Registry) MembershipRoot() ([]byte, error) {
	mtree, err := merkle.NewTreeBuilder().
		WithHashFunc(hash.GenMerkleHashFunc(hash.MembershipDomain)).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize merkle tree: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	leaves := 0
	err = r.db.Items(func(item *Item) error {
		if item.Status != Registered {
			return nil
		}
		leaves++
		return mtree.AddLeaf(item.ID[:])
	})
	if err != nil {
		return nil, fmt.Errorf("building membership tree: %w", err)
	}
	if leaves == 0 {
		return nil, nil
	}
	return mtree.Root(), nil
}
