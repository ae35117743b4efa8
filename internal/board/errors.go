package board

import "errors"

var (
	// ErrInvalidSquare is returned for square references outside a1..h8.
	ErrInvalidSquare = errors.New("invalid square")

	// ErrInvalidMove is returned for malformed coordinate moves.
	ErrInvalidMove = errors.New("invalid coordinate move")

	// ErrInvalidPosition indicates a malformed position string.
	ErrInvalidPosition = errors.New("invalid position")

	// ErrKingMissing is an invariant violation: a color has no king on the board.
	ErrKingMissing = errors.New("king missing")
)
