package registry

import (
	"context"
	"fmt"
	"math/big"
	"time"

	"go.uber.org/zap"

	"github.com/tcrlabs/curate/arbitrator"
	"github.com/tcrlabs/curate/ledger"
	"github.com/tcrlabs/curate/logging"
)

// govern applies a parameter change made by the governor. Changes are never
// retroactive: pending requests keep their snapshotted arbitration settings.
func (r *Registry) govern(ctx context.Context, call Call, what string, fn func(op *operation, p *Params) error) error {
	err := r.execute(ctx, func(op *operation) error {
		p := op.params()
		if p.Governor == "" || call.From != p.Governor {
			return fmt.Errorf("changing %s: %w: %s", what, ErrNotGovernor, call.From)
		}
		if err := fn(op, &p); err != nil {
			return fmt.Errorf("changing %s: %w", what, err)
		}
		op.setParams(p)
		return nil
	})
	if err != nil {
		return err
	}
	logging.FromContext(ctx).Info("registry parameter changed", zap.String("parameter", what))
	return nil
}

func validAmount(v *big.Int) (*big.Int, error) {
	if v == nil || v.Sign() < 0 {
		return nil, fmt.Errorf("%w: amount %v", ErrInvalidParameter, v)
	}
	return ledger.Copy(v), nil
}

func (r *Registry) ChangeTimeToChallenge(ctx context.Context, call Call, period time.Duration) error {
	return r.govern(ctx, call, "challenge period", func(_ *operation, p *Params) error {
		if period < 0 {
			return fmt.Errorf("%w: negative challenge period %s", ErrInvalidParameter, period)
		}
		p.ChallengePeriod = period
		return nil
	})
}

func (r *Registry) ChangeSubmissionBaseDeposit(ctx context.Context, call Call, deposit *big.Int) error {
	return r.govern(ctx, call, "submission base deposit", func(_ *operation, p *Params) (err error) {
		p.SubmissionBaseDeposit, err = validAmount(deposit)
		return err
	})
}

func (r *Registry) ChangeRemovalBaseDeposit(ctx context.Context, call Call, deposit *big.Int) error {
	return r.govern(ctx, call, "removal base deposit", func(_ *operation, p *Params) (err error) {
		p.RemovalBaseDeposit, err = validAmount(deposit)
		return err
	})
}

func (r *Registry) ChangeSubmissionChallengeBaseDeposit(ctx context.Context, call Call, deposit *big.Int) error {
	return r.govern(ctx, call, "submission challenge base deposit", func(_ *operation, p *Params) (err error) {
		p.SubmissionChallengeBaseDeposit, err = validAmount(deposit)
		return err
	})
}

func (r *Registry) ChangeRemovalChallengeBaseDeposit(ctx context.Context, call Call, deposit *big.Int) error {
	return r.govern(ctx, call, "removal challenge base deposit", func(_ *operation, p *Params) (err error) {
		p.RemovalChallengeBaseDeposit, err = validAmount(deposit)
		return err
	})
}

func (r *Registry) ChangeGovernor(ctx context.Context, call Call, governor ledger.Account) error {
	return r.govern(ctx, call, "governor", func(_ *operation, p *Params) error {
		p.Governor = governor
		return nil
	})
}

func (r *Registry) ChangeSharedStakeMultiplier(ctx context.Context, call Call, multiplier uint64) error {
	return r.govern(ctx, call, "shared stake multiplier", func(_ *operation, p *Params) error {
		p.SharedStakeMultiplier = multiplier
		return nil
	})
}

func (r *Registry) ChangeWinnerStakeMultiplier(ctx context.Context, call Call, multiplier uint64) error {
	return r.govern(ctx, call, "winner stake multiplier", func(_ *operation, p *Params) error {
		p.WinnerStakeMultiplier = multiplier
		return nil
	})
}

func (r *Registry) ChangeLoserStakeMultiplier(ctx context.Context, call Call, multiplier uint64) error {
	return r.govern(ctx, call, "loser stake multiplier", func(_ *operation, p *Params) error {
		p.LoserStakeMultiplier = multiplier
		return nil
	})
}

// ChangeArbitrationParams switches the arbitrator and meta-evidence used by
// future requests and publishes the new meta-evidence.
func (r *Registry) ChangeArbitrationParams(
	ctx context.Context,
	call Call,
	arb arbitrator.Arbitrator,
	extraData []byte,
	registrationMetaEvidence, clearingMetaEvidence string,
) error {
	return r.govern(ctx, call, "arbitration parameters", func(op *operation, p *Params) error {
		if arb == nil {
			return fmt.Errorf("%w: no arbitrator", ErrInvalidParameter)
		}
		p.Arbitrator = arb.Account()
		p.ArbitratorExtraData = append([]byte(nil), extraData...)
		p.MetaEvidenceUpdates++
		p.RegistrationMetaEvidence = registrationMetaEvidence
		p.ClearingMetaEvidence = clearingMetaEvidence
		op.added = append(op.added, arb)
		op.emit(MetaEvidence{ID: p.registrationMetaEvidenceID(), Evidence: registrationMetaEvidence})
		op.emit(MetaEvidence{ID: p.clearingMetaEvidenceID(), Evidence: clearingMetaEvidence})
		return nil
	})
}

func (r *Registry) ChangeConnectedTCR(ctx context.Context, call Call, tcr ledger.Account) error {
	return r.govern(ctx, call, "connected registry", func(op *operation, p *Params) error {
		p.ConnectedTCR = tcr
		op.emit(ConnectedTCRSet{TCR: tcr})
		return nil
	})
}

func (r *Registry) ChangeRelayer(ctx context.Context, call Call, relayer ledger.Account) error {
	return r.govern(ctx, call, "relayer", func(_ *operation, p *Params) error {
		p.Relayer = relayer
		return nil
	})
}
