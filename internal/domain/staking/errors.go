package staking

import "errors"

var (
	ErrStakingDisabled   = errors.New("staking is disabled")
	ErrInsufficientBond  = errors.New("insufficient bond")
	ErrNotReadyToBurn    = errors.New("stake is not ready to burn")
	ErrDurationTooShort  = errors.New("reservation period is shorter than the minimum duration")
	ErrInvalidParameters = errors.New("invalid stake parameters")
	ErrStakeExists       = errors.New("stake already exists")
	ErrInsufficientFunds = errors.New("insufficient funds")
)
