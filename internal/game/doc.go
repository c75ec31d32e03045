// Package game runs a blackjack table: up to three seats against a dealer,
// sharing one shoe.
//
// Engine is an explicit state machine. Every exported operation performs a
// single transition synchronously and reports misuse with the sentinel
// errors in errors.go, leaving state untouched. Computer seats never act on
// their own: Autopilot (or any caller holding a policy.Decider) decides for
// the active computer seat and feeds the result back through Apply.
//
// Phases run
//
//	ModeSelect -> StyleSelect -> Betting -> Playing -> DealerTurn -> Settlement
//
// with StyleSelect skipped for a table without computer seats. Settlement
// returns to Betting via AdvanceToNextRound, or to ModeSelect via EndSession.
//
// The Engine is not safe for concurrent use.
package game
