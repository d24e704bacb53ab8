package domain

import "errors"

var (
	ErrNotFound          = errors.New("not found")
	ErrMarketNotFound    = errors.New("market not found")
	ErrDuplicateMarket   = errors.New("market already exists")
	ErrInvalidConfig     = errors.New("invalid market configuration")
	ErrInvalidOption     = errors.New("option out of range")
	ErrMarketLocked      = errors.New("market locked")
	ErrDuplicateStake    = errors.New("stake already placed")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrAlreadyResolved   = errors.New("market already resolved")
	ErrNotResolved       = errors.New("market not resolved")
	ErrNoStake           = errors.New("no stake on market")
	ErrNoJokersRemaining = errors.New("no jokers remaining")
	ErrJokerAlreadyUsed  = errors.New("joker already used")
	ErrAlreadyClaimed    = errors.New("payout already claimed")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrLockHeld          = errors.New("lock already held")
)
