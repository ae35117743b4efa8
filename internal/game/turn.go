package game

import (
	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/obslog"
)

// executeLocked plays a legal move of the piece on src. A pawn reaching
// its last rank stops here with the promotion recorded as pending; every
// other move runs the end-of-turn cleanup.
func (s *Session) executeLocked(src board.Square, mv board.Move) []Event {
	capture := mv.Kind == board.Capture || mv.Kind == board.EnPassant
	ply := src.String() + mv.To.String()

	s.meta.EnPassant = board.NoSquare
	placed := s.board.Apply(src, mv)
	if mv.Kind == board.DoublePush {
		s.meta.EnPassant = mv.To
	}
	if placed.Type == board.King {
		s.meta.SetKing(&s.board, placed, mv.To)
	}

	obslog.L().Debug("move",
		zap.String("game_id", s.id),
		zap.String("piece", placed.String()),
		zap.String("move", ply),
		zap.Stringer("kind", mv.Kind),
	)

	if placed.IsPromotable(mv.To) {
		s.meta.PromotablePawn = mv.To
		s.pendingPly = ply
		obslog.L().Debug("promotion pending", zap.String("game_id", s.id), zap.Stringer("square", mv.To))
		return []Event{{Kind: EventPromotion, Square: mv.To, Move: ply}}
	}

	resetClock := placed.Type == board.Pawn || capture
	return s.endTurnLocked(ply, mv.To, resetClock)
}

// promoteLocked swaps the pending pawn for pt and finishes the turn the
// pawn move started. The promoting side is still the side to move.
func (s *Session) promoteLocked(pt board.PieceType) []Event {
	sq := s.meta.PromotablePawn
	c := s.meta.ActiveColor()
	s.board.Set(sq, board.NewPiece(pt, c).MarkedMoved())
	s.meta.PromotablePawn = board.NoSquare

	ply := s.pendingPly + string(pt.Char())
	s.pendingPly = ""
	obslog.L().Debug("promoted",
		zap.String("game_id", s.id),
		zap.Stringer("square", sq),
		zap.Stringer("piece", pt),
	)
	return s.endTurnLocked(ply, sq, true)
}

// endTurnLocked refreshes both kings, advances the turn and half-move
// clock, recomputes the score and appends it to the history.
func (s *Session) endTurnLocked(ply string, to board.Square, resetClock bool) []Event {
	mover := s.meta.ActiveColor()
	s.meta.RefreshKingStatus(mover, &s.board)

	if resetClock {
		s.meta.HalfMoveClock = 0
	} else {
		s.meta.HalfMoveClock++
	}
	s.meta.Turn++

	next := s.meta.ActiveColor()
	inCheck, mate := s.meta.RefreshKingStatus(next, &s.board)
	s.meta.Score = s.board.Material()
	s.history = append(s.history, s.meta.Score)
	s.plies = append(s.plies, ply)

	events := []Event{{Kind: EventBoard, Square: to, Move: ply}}
	if inCheck {
		obslog.L().Debug("check", zap.String("game_id", s.id), zap.Stringer("color", next))
	}
	if mate {
		s.meta.GameOver = true
		sum := s.summaryLocked(Winner(mover))
		obslog.L().Info("checkmate",
			zap.String("game_id", s.id),
			zap.Stringer("winner", mover),
			zap.Int("plies", len(s.plies)),
		)
		events = append(events, Event{Kind: EventGameOver, Square: s.meta.KingSquare(next), Summary: &sum})
	}
	return events
}
