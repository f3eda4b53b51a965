package registry

import (
	"bytes"
	"fmt"
	"math/big"
	"time"

	xdr "github.com/nullstyle/go-xdr/xdr3"
	"golang.org/x/exp/maps"
	"golang.org/x/exp/slices"

	"github.com/tcrlabs/curate/ledger"
)

// On-disk forms of the registry state. XDR has no maps, fixed arrays of
// big integers or times, so these flatten the in-memory types.

type itemRecord struct {
	Data     []byte
	Status   uint32
	Requests []requestRecord
}

type requestRecord struct {
	Type                uint32
	Disputed            bool
	DisputeID           uint64
	SubmissionTime      int64
	Resolved            bool
	Parties             []string
	Rounds              []roundRecord
	Ruling              uint32
	Arbitrator          string
	ArbitratorExtraData []byte
	MetaEvidenceID      uint64
}

type roundRecord struct {
	AmountPaid    [][]byte
	HasPaid       []bool
	FeeRewards    []byte
	Contributions []contributionRecord
}

type contributionRecord struct {
	Contributor string
	Amounts     [][]byte
}

type paramsRecord struct {
	Arbitrator                     string
	ArbitratorExtraData            []byte
	MetaEvidenceUpdates            uint64
	RegistrationMetaEvidence       string
	ClearingMetaEvidence           string
	ChallengePeriod                int64
	SubmissionBaseDeposit          []byte
	RemovalBaseDeposit             []byte
	SubmissionChallengeBaseDeposit []byte
	RemovalChallengeBaseDeposit    []byte
	SharedStakeMultiplier          uint64
	WinnerStakeMultiplier          uint64
	LoserStakeMultiplier           uint64
	Governor                       string
	Relayer                        string
	ConnectedTCR                   string
}

func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixNano()
}

func decodeTime(n int64) time.Time {
	if n == 0 {
		return time.Time{}
	}
	return time.Unix(0, n)
}

func encodeAmounts(amounts [3]*big.Int) [][]byte {
	out := make([][]byte, len(amounts))
	for i, a := range amounts {
		out[i] = ledger.Copy(a).Bytes()
	}
	return out
}

func decodeAmounts(raw [][]byte) ([3]*big.Int, error) {
	var out [3]*big.Int
	if len(raw) != len(out) {
		return out, fmt.Errorf("expected %d amounts, got %d", len(out), len(raw))
	}
	for i, b := range raw {
		out[i] = new(big.Int).SetBytes(b)
	}
	return out, nil
}

func toItemRecord(item *Item) itemRecord {
	rec := itemRecord{
		Data:     item.Data,
		Status:   uint32(item.Status),
		Requests: make([]requestRecord, 0, len(item.Requests)),
	}
	for _, req := range item.Requests {
		r := requestRecord{
			Type:                uint32(req.Type),
			Disputed:            req.Disputed,
			DisputeID:           req.DisputeID,
			SubmissionTime:      encodeTime(req.SubmissionTime),
			Resolved:            req.Resolved,
			Parties:             []string{string(req.Parties[0]), string(req.Parties[1]), string(req.Parties[2])},
			Rounds:              make([]roundRecord, 0, len(req.Rounds)),
			Ruling:              uint32(req.Ruling),
			Arbitrator:          string(req.Arbitrator),
			ArbitratorExtraData: req.ArbitratorExtraData,
			MetaEvidenceID:      req.MetaEvidenceID,
		}
		for _, round := range req.Rounds {
			contributors := maps.Keys(round.Contributions)
			slices.Sort(contributors)
			rr := roundRecord{
				AmountPaid:    encodeAmounts(round.AmountPaid),
				HasPaid:       round.HasPaid[:],
				FeeRewards:    ledger.Copy(round.FeeRewards).Bytes(),
				Contributions: make([]contributionRecord, 0, len(contributors)),
			}
			for _, c := range contributors {
				rr.Contributions = append(rr.Contributions, contributionRecord{
					Contributor: string(c),
					Amounts:     encodeAmounts(round.Contributions[c]),
				})
			}
			r.Rounds = append(r.Rounds, rr)
		}
		rec.Requests = append(rec.Requests, r)
	}
	return rec
}

func fromItemRecord(id ItemID, rec itemRecord) (*Item, error) {
	item := &Item{
		ID:       id,
		Data:     rec.Data,
		Status:   Status(rec.Status),
		Requests: make([]*Request, 0, len(rec.Requests)),
	}
	for n, r := range rec.Requests {
		if len(r.Parties) != 3 {
			return nil, fmt.Errorf("request %d: expected 3 parties, got %d", n, len(r.Parties))
		}
		req := &Request{
			Type:                RequestType(r.Type),
			Disputed:            r.Disputed,
			DisputeID:           r.DisputeID,
			SubmissionTime:      decodeTime(r.SubmissionTime),
			Resolved:            r.Resolved,
			Parties:             [3]ledger.Account{ledger.Account(r.Parties[0]), ledger.Account(r.Parties[1]), ledger.Account(r.Parties[2])},
			Rounds:              make([]*Round, 0, len(r.Rounds)),
			Ruling:              Party(r.Ruling),
			Arbitrator:          ledger.Account(r.Arbitrator),
			ArbitratorExtraData: r.ArbitratorExtraData,
			MetaEvidenceID:      r.MetaEvidenceID,
		}
		for k, rr := range r.Rounds {
			paid, err := decodeAmounts(rr.AmountPaid)
			if err != nil {
				return nil, fmt.Errorf("request %d round %d: %w", n, k, err)
			}
			if len(rr.HasPaid) != 3 {
				return nil, fmt.Errorf("request %d round %d: expected 3 flags, got %d", n, k, len(rr.HasPaid))
			}
			round := &Round{
				AmountPaid:    paid,
				FeeRewards:    new(big.Int).SetBytes(rr.FeeRewards),
				Contributions: make(map[ledger.Account][3]*big.Int, len(rr.Contributions)),
			}
			copy(round.HasPaid[:], rr.HasPaid)
			for _, c := range rr.Contributions {
				amounts, err := decodeAmounts(c.Amounts)
				if err != nil {
					return nil, fmt.Errorf("request %d round %d contributor %s: %w", n, k, c.Contributor, err)
				}
				round.Contributions[ledger.Account(c.Contributor)] = amounts
			}
			req.Rounds = append(req.Rounds, round)
		}
		item.Requests = append(item.Requests, req)
	}
	return item, nil
}

func encodeItem(item *Item) ([]byte, error) {
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, toItemRecord(item)); err != nil {
		return nil, fmt.Errorf("serializing item %s: %w", item.ID, err)
	}
	return buf.Bytes(), nil
}

func decodeItem(id ItemID, data []byte) (*Item, error) {
	var rec itemRecord
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &rec); err != nil {
		return nil, fmt.Errorf("deserializing item %s: %w", id, err)
	}
	return fromItemRecord(id, rec)
}

func encodeParams(p Params) ([]byte, error) {
	rec := paramsRecord{
		Arbitrator:                     string(p.Arbitrator),
		ArbitratorExtraData:            p.ArbitratorExtraData,
		MetaEvidenceUpdates:            p.MetaEvidenceUpdates,
		RegistrationMetaEvidence:       p.RegistrationMetaEvidence,
		ClearingMetaEvidence:           p.ClearingMetaEvidence,
		ChallengePeriod:                int64(p.ChallengePeriod),
		SubmissionBaseDeposit:          ledger.Copy(p.SubmissionBaseDeposit).Bytes(),
		RemovalBaseDeposit:             ledger.Copy(p.RemovalBaseDeposit).Bytes(),
		SubmissionChallengeBaseDeposit: ledger.Copy(p.SubmissionChallengeBaseDeposit).Bytes(),
		RemovalChallengeBaseDeposit:    ledger.Copy(p.RemovalChallengeBaseDeposit).Bytes(),
		SharedStakeMultiplier:          p.SharedStakeMultiplier,
		WinnerStakeMultiplier:          p.WinnerStakeMultiplier,
		LoserStakeMultiplier:           p.LoserStakeMultiplier,
		Governor:                       string(p.Governor),
		Relayer:                        string(p.Relayer),
		ConnectedTCR:                   string(p.ConnectedTCR),
	}
	var buf bytes.Buffer
	if _, err := xdr.Marshal(&buf, &rec); err != nil {
		return nil, fmt.Errorf("serializing params: %w", err)
	}
	return buf.Bytes(), nil
}

func decodeParams(data []byte) (Params, error) {
	var rec paramsRecord
	if _, err := xdr.Unmarshal(bytes.NewReader(data), &rec); err != nil {
		return Params{}, fmt.Errorf("deserializing params: %w", err)
	}
	return Params{
		Arbitrator:                     ledger.Account(rec.Arbitrator),
		ArbitratorExtraData:            rec.ArbitratorExtraData,
		MetaEvidenceUpdates:            rec.MetaEvidenceUpdates,
		RegistrationMetaEvidence:       rec.RegistrationMetaEvidence,
		ClearingMetaEvidence:           rec.ClearingMetaEvidence,
		ChallengePeriod:                time.Duration(rec.ChallengePeriod),
		SubmissionBaseDeposit:          new(big.Int).SetBytes(rec.SubmissionBaseDeposit),
		RemovalBaseDeposit:             new(big.Int).SetBytes(rec.RemovalBaseDeposit),
		SubmissionChallengeBaseDeposit: new(big.Int).SetBytes(rec.SubmissionChallengeBaseDeposit),
		RemovalChallengeBaseDeposit:    new(big.Int).SetBytes(rec.RemovalChallengeBaseDeposit),
		SharedStakeMultiplier:          rec.SharedStakeMultiplier,
		WinnerStakeMultiplier:          rec.WinnerStakeMultiplier,
		LoserStakeMultiplier:           rec.LoserStakeMultiplier,
		Governor:                       ledger.Account(rec.Governor),
		Relayer:                        ledger.Account(rec.Relayer),
		ConnectedTCR:                   ledger.Account(rec.ConnectedTCR),
	}, nil
}
