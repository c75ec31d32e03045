package game

import "errors"

var (
	// ErrInvalidBet is returned for a bet that is not positive or exceeds the seat's chips.
	ErrInvalidBet = errors.New("invalid bet")

	// ErrIllegalAction is returned for an action the active seat may not take.
	ErrIllegalAction = errors.New("illegal action")

	// ErrWrongPhase is returned when an operation is called outside its phase.
	ErrWrongPhase = errors.New("operation not allowed in current phase")

	// ErrSplitUnavailable is returned by Split; split hands are not supported.
	ErrSplitUnavailable = errors.New("split is not available")

	// ErrTableBroke is returned when no seat has chips left to bet.
	ErrTableBroke = errors.New("every seat is out of chips")
)
