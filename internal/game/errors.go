package game

import (
	"errors"
	"fmt"

	"github.com/hailam/clickchess/internal/board"
)

// Protocol errors. None of them leave the session modified.
var (
	ErrNoPromotionPending = errors.New("no promotion pending")
	ErrInvalidPromotion   = errors.New("invalid promotion piece")
	ErrPromotionPending   = errors.New("promotion pending")
	ErrEmptySelection     = errors.New("no piece selected")
	ErrIllegalMove        = errors.New("illegal move")
	ErrGameOver           = errors.New("game is over")
)

// MoveError records which session operation failed and on what square.
type MoveError struct {
	Op     string       // "click", "hover", "promote" or "apply"
	Square board.Square // NoSquare when the input never parsed
	Input  string       // raw caller input
	Err    error
}

// Error returns e.g. `click "z9": invalid square: "z9"`.
func (e *MoveError) Error() string {
	if e.Square.IsValid() {
		return fmt.Sprintf("%s %s: %v", e.Op, e.Square, e.Err)
	}
	return fmt.Sprintf("%s %q: %v", e.Op, e.Input, e.Err)
}

// Unwrap returns the underlying error for errors.Is and errors.As.
func (e *MoveError) Unwrap() error {
	return e.Err
}

func moveError(op, input string, sq board.Square, err error) error {
	return &MoveError{Op: op, Square: sq, Input: input, Err: err}
}
