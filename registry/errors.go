package registry

import "errors"

var (
	ErrItemNotAbsent          = errors.New("item must be absent to be added")
	ErrItemNotRegistered      = errors.New("item must be registered to be removed")
	ErrInsufficientDeposit    = errors.New("insufficient deposit")
	ErrNegativeValue          = errors.New("negative value")
	ErrNoPendingRequest       = errors.New("item has no pending request")
	ErrAlreadyDisputed        = errors.New("request is already disputed")
	ErrNotDisputed            = errors.New("request is not disputed")
	ErrChallengePeriodOver    = errors.New("challenge period is over")
	ErrChallengePeriodNotOver = errors.New("challenge period is not over yet")
	ErrInvalidSide            = errors.New("invalid side")
	ErrAppealPeriodOver       = errors.New("appeal period is over")
	ErrLoserFundingWindowOver = errors.New("loser must contribute during the first half of the appeal period")
	ErrSideFullyFunded        = errors.New("side already fully funded")
	ErrInvalidRuling          = errors.New("invalid ruling option")
	ErrUnknownDispute         = errors.New("unknown dispute")
	ErrDisputeIDReused        = errors.New("arbitrator returned a dispute ID that is already in use")
	ErrAlreadyResolved        = errors.New("request is already resolved")
	ErrRequestNotResolved     = errors.New("request must be resolved")
	ErrRequestNotFound        = errors.New("request not found")
	ErrRoundNotFound          = errors.New("round not found")
	ErrRequestResolved        = errors.New("request must not be resolved")
	ErrNotGovernor            = errors.New("caller is not the governor")
	ErrNotRelayer             = errors.New("caller is not the relayer")
	ErrUnknownArbitrator      = errors.New("unknown arbitrator")
	ErrInvalidParameter       = errors.New("invalid parameter")
	ErrItemIndexOutOfRange    = errors.New("item index out of range")
)
