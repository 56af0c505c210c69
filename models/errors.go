package models

import "errors"

// Domain errors. Callers match them with errors.Is; every failure that returns
// one of these leaves balances and game state untouched.
var (
	ErrInvalidWager             = errors.New("invalid wager")
	ErrInsufficientFunds        = errors.New("insufficient funds")
	ErrNoActiveGame             = errors.New("no active game")
	ErrInvalidAction            = errors.New("invalid action")
	ErrInvalidBet               = errors.New("invalid bet")
	ErrAccountNotFound          = errors.New("account not found")
	ErrLedgerInvariantViolation = errors.New("ledger invariant violation")
)
