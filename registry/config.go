package registry

import (
	"encoding/hex"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap/zapcore"

	"github.com/tcrlabs/curate/ledger"
)

// MultiplierDivisor is the denominator of the stake multipliers.
const MultiplierDivisor = 10000

func DefaultConfig() Config {
	return Config{
		ChallengePeriod:                3 * 24 * time.Hour,
		SubmissionBaseDeposit:          NewAmount(2000),
		RemovalBaseDeposit:             NewAmount(1300),
		SubmissionChallengeBaseDeposit: NewAmount(5000),
		RemovalChallengeBaseDeposit:    NewAmount(1200),
		SharedStakeMultiplier:          5000,
		WinnerStakeMultiplier:          2000,
		LoserStakeMultiplier:           8000,
		ItemCacheSize:                  1024,
	}
}

// Config holds the initial parameters of a registry. Once a registry has been
// persisted, governance owns the parameters and the stored values win.
//
//nolint:lll
type Config struct {
	ChallengePeriod                time.Duration `long:"challenge-period"                  description:"Time during which a request can be challenged"`
	SubmissionBaseDeposit          Amount        `long:"submission-base-deposit"           description:"Base deposit to submit an item"`
	RemovalBaseDeposit             Amount        `long:"removal-base-deposit"              description:"Base deposit to remove an item"`
	SubmissionChallengeBaseDeposit Amount        `long:"submission-challenge-base-deposit" description:"Base deposit to challenge a submission"`
	RemovalChallengeBaseDeposit    Amount        `long:"removal-challenge-base-deposit"    description:"Base deposit to challenge a removal"`
	SharedStakeMultiplier          uint64        `long:"shared-stake-multiplier"           description:"Appeal stake multiplier when there is no winner (in basis points)"`
	WinnerStakeMultiplier          uint64        `long:"winner-stake-multiplier"           description:"Appeal stake multiplier of the winning side (in basis points)"`
	LoserStakeMultiplier           uint64        `long:"loser-stake-multiplier"            description:"Appeal stake multiplier of the losing side (in basis points)"`
	Governor                       string        `long:"governor"                          description:"Account allowed to change the registry parameters"`
	Relayer                        string        `long:"relayer"                           description:"Account allowed to add and remove items directly"`
	ConnectedTCR                   string        `long:"connected-tcr"                     description:"Account of the registry holding badges of this one"`
	ArbitratorExtraData            HexEnc        `long:"arbitrator-extra-data"             description:"Extra data passed to the arbitrator (hex encoded)"`
	RegistrationMetaEvidence       string        `long:"registration-meta-evidence"        description:"URI of the meta-evidence for registration requests"`
	ClearingMetaEvidence           string        `long:"clearing-meta-evidence"            description:"URI of the meta-evidence for clearing requests"`
	ItemCacheSize                  int           `long:"item-cache-size"                   description:"Number of decoded items kept in memory"`
}

// implement zap.ObjectMarshaler interface.
func (c Config) MarshalLogObject(enc zapcore.ObjectEncoder) error {
	enc.AddDuration("challenge-period", c.ChallengePeriod)
	enc.AddString("submission-base-deposit", c.SubmissionBaseDeposit.String())
	enc.AddString("removal-base-deposit", c.RemovalBaseDeposit.String())
	enc.AddString("submission-challenge-base-deposit", c.SubmissionChallengeBaseDeposit.String())
	enc.AddString("removal-challenge-base-deposit", c.RemovalChallengeBaseDeposit.String())
	enc.AddUint64("shared-stake-multiplier", c.SharedStakeMultiplier)
	enc.AddUint64("winner-stake-multiplier", c.WinnerStakeMultiplier)
	enc.AddUint64("loser-stake-multiplier", c.LoserStakeMultiplier)
	enc.AddString("governor", c.Governor)
	enc.AddString("relayer", c.Relayer)
	enc.AddInt("item-cache-size", c.ItemCacheSize)
	return nil
}

func (c Config) params(arb ledger.Account) Params {
	return Params{
		Arbitrator:                     arb,
		ArbitratorExtraData:            append([]byte(nil), c.ArbitratorExtraData...),
		RegistrationMetaEvidence:       c.RegistrationMetaEvidence,
		ClearingMetaEvidence:           c.ClearingMetaEvidence,
		ChallengePeriod:                c.ChallengePeriod,
		SubmissionBaseDeposit:          c.SubmissionBaseDeposit.Int(),
		RemovalBaseDeposit:             c.RemovalBaseDeposit.Int(),
		SubmissionChallengeBaseDeposit: c.SubmissionChallengeBaseDeposit.Int(),
		RemovalChallengeBaseDeposit:    c.RemovalChallengeBaseDeposit.Int(),
		SharedStakeMultiplier:          c.SharedStakeMultiplier,
		WinnerStakeMultiplier:          c.WinnerStakeMultiplier,
		LoserStakeMultiplier:           c.LoserStakeMultiplier,
		Governor:                       ledger.Account(c.Governor),
		Relayer:                        ledger.Account(c.Relayer),
		ConnectedTCR:                   ledger.Account(c.ConnectedTCR),
	}
}

// Amount is a non-negative integer settable from the command line.
type Amount struct {
	v *big.Int
}

func NewAmount(v int64) Amount {
	return Amount{big.NewInt(v)}
}

// UnmarshalFlag implements flags.Unmarshaler.
func (a *Amount) UnmarshalFlag(value string) error {
	v, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return fmt.Errorf("invalid amount %q", value)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("negative amount %q", value)
	}
	a.v = v
	return nil
}

// MarshalFlag implements flags.Marshaler.
func (a Amount) MarshalFlag() (string, error) {
	return a.String(), nil
}

func (a Amount) Int() *big.Int {
	return ledger.Copy(a.v)
}

func (a Amount) String() string {
	return a.Int().String()
}

type HexEnc []byte

// UnmarshalFlag implements flags.Unmarshaler.
func (h *HexEnc) UnmarshalFlag(value string) error {
	b, err := hex.DecodeString(value)
	if err != nil {
		return err
	}
	*h = b
	return nil
}

// Params is the live economic and governance state of a registry.
type Params struct {
	Arbitrator               ledger.Account
	ArbitratorExtraData      []byte
	MetaEvidenceUpdates      uint64
	RegistrationMetaEvidence string
	ClearingMetaEvidence     string

	ChallengePeriod                time.Duration
	SubmissionBaseDeposit          *big.Int
	RemovalBaseDeposit             *big.Int
	SubmissionChallengeBaseDeposit *big.Int
	RemovalChallengeBaseDeposit    *big.Int

	SharedStakeMultiplier uint64
	WinnerStakeMultiplier uint64
	LoserStakeMultiplier  uint64

	Governor     ledger.Account
	Relayer      ledger.Account
	ConnectedTCR ledger.Account
}

func (p Params) clone() Params {
	c := p
	c.ArbitratorExtraData = append([]byte(nil), p.ArbitratorExtraData...)
	c.SubmissionBaseDeposit = ledger.Copy(p.SubmissionBaseDeposit)
	c.RemovalBaseDeposit = ledger.Copy(p.RemovalBaseDeposit)
	c.SubmissionChallengeBaseDeposit = ledger.Copy(p.SubmissionChallengeBaseDeposit)
	c.RemovalChallengeBaseDeposit = ledger.Copy(p.RemovalChallengeBaseDeposit)
	return c
}

func (p Params) registrationMetaEvidenceID() uint64 {
	return 2 * p.MetaEvidenceUpdates
}

func (p Params) clearingMetaEvidenceID() uint64 {
	return 2*p.MetaEvidenceUpdates + 1
}

func (p Params) baseDeposit(t RequestType) *big.Int {
	if t == Clearing {
		return ledger.Copy(p.RemovalBaseDeposit)
	}
	return ledger.Copy(p.SubmissionBaseDeposit)
}

func (p Params) challengeBaseDeposit(t RequestType) *big.Int {
	if t == Clearing {
		return ledger.Copy(p.RemovalChallengeBaseDeposit)
	}
	return ledger.Copy(p.SubmissionChallengeBaseDeposit)
}

func (p Params) metaEvidenceID(t RequestType) uint64 {
	if t == Clearing {
		return p.clearingMetaEvidenceID()
	}
	return p.registrationMetaEvidenceID()
}
