package server

import (
	"errors"

	"github.com/valyala/fasthttp"

	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/game"
)

// ErrEngineUnavailable is returned by /engine/move when no engine is wired.
var ErrEngineUnavailable = errors.New("engine unavailable")

// ErrorResponse is the body of every non-2xx reply.
type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorMapping struct {
	err    error
	code   string
	status int
}

var errorTable = []errorMapping{
	{board.ErrInvalidSquare, "invalid_square", fasthttp.StatusBadRequest},
	{board.ErrInvalidMove, "invalid_move", fasthttp.StatusBadRequest},
	{board.ErrInvalidPosition, "invalid_position", fasthttp.StatusBadRequest},
	{game.ErrInvalidPromotion, "invalid_promotion", fasthttp.StatusUnprocessableEntity},
	{game.ErrIllegalMove, "illegal_move", fasthttp.StatusUnprocessableEntity},
	{game.ErrEmptySelection, "empty_selection", fasthttp.StatusUnprocessableEntity},
	{game.ErrNoPromotionPending, "no_promotion_pending", fasthttp.StatusConflict},
	{game.ErrPromotionPending, "promotion_pending", fasthttp.StatusConflict},
	{game.ErrGameOver, "game_over", fasthttp.StatusConflict},
	{ErrEngineUnavailable, "engine_unavailable", fasthttp.StatusServiceUnavailable},
}

// classify returns the wire code and HTTP status for err.
func classify(err error) (string, int) {
	for _, m := range errorTable {
		if errors.Is(err, m.err) {
			return m.code, m.status
		}
	}
	return "internal", fasthttp.StatusInternalServerError
}

// ErrorForCode returns the sentinel behind a wire code, or nil.
func ErrorForCode(code string) error {
	for _, m := range errorTable {
		if m.code == code {
			return m.err
		}
	}
	return nil
}
