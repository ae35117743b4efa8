// Package boardview turns session snapshots into what the board screen
// shows: square geometry, highlight marks, the status line, the move list
// and the score chart. It has no drawing dependencies.
package boardview

import (
	"fmt"
	"image"

	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/game"
)

// Geometry maps squares to pixels on a square board of Size pixels.
type Geometry struct {
	Size    int
	Flipped bool
}

// SquareSize returns the side of one square.
func (g Geometry) SquareSize() int {
	return g.Size / 8
}

// Origin returns the top-left pixel of sq.
func (g Geometry) Origin(sq board.Square) (x, y int) {
	file, rank := sq.File(), sq.Rank()
	if g.Flipped {
		file, rank = 7-file, 7-rank
	}
	return file * g.SquareSize(), (7 - rank) * g.SquareSize()
}

// SquareAt returns the square under pixel x, y.
func (g Geometry) SquareAt(x, y int) (board.Square, bool) {
	if x < 0 || y < 0 || x >= g.SquareSize()*8 || y >= g.SquareSize()*8 {
		return board.NoSquare, false
	}
	file, rank := x/g.SquareSize(), 7-y/g.SquareSize()
	if g.Flipped {
		file, rank = 7-file, 7-rank
	}
	return board.NewSquare(file, rank), true
}

// IsLight reports whether sq is a light square.
func IsLight(sq board.Square) bool {
	return (sq.File()+sq.Rank())%2 == 1
}

// Mark is a square highlight.
type Mark uint8

const (
	MarkNone Mark = iota
	MarkLastMove
	MarkSelected
	MarkCheck
	MarkMate
)

// Target is a highlighted destination.
type Target struct {
	Square  board.Square
	Capture bool
}

// Model is everything the board screen draws for one snapshot.
type Model struct {
	Board    board.Board
	Marks    map[board.Square]Mark
	Targets  []Target
	Status   string
	Rows     []MoveRow
	Scores   []int
	Prompt   *Prompt
	GameOver bool
}

// Build derives the model from a snapshot. preview lists hover targets
// shown when nothing is selected.
func Build(s game.Snapshot, preview board.MoveList) Model {
	m := Model{
		Board:    s.Board,
		Marks:    make(map[board.Square]Mark),
		Status:   Status(s),
		Rows:     Rows(s.Plies),
		Scores:   s.History,
		GameOver: s.Phase == game.Over,
	}

	if n := len(s.Plies); n > 0 {
		if cm, err := board.ParseCoordinateMove(s.Plies[n-1]); err == nil {
			m.Marks[cm.From] = MarkLastMove
			m.Marks[cm.To] = MarkLastMove
		}
	}
	for _, c := range [2]board.Color{board.White, board.Black} {
		km := s.Meta.Kings[c]
		switch {
		case km.Piece.Checkmated:
			m.Marks[km.Square] = MarkMate
		case km.Piece.InCheck:
			m.Marks[km.Square] = MarkCheck
		}
	}

	targets := preview
	if s.Phase == game.Selected {
		m.Marks[s.Selected] = MarkSelected
		targets = s.Highlights
	}
	if s.Phase == game.Over || s.Phase == game.PromotionPending {
		targets = nil
	}
	for _, mv := range targets {
		m.Targets = append(m.Targets, Target{
			Square:  mv.To,
			Capture: mv.Kind == board.Capture || mv.Kind == board.EnPassant,
		})
	}

	if s.Phase == game.PromotionPending {
		sq := s.Meta.PromotablePawn
		m.Prompt = &Prompt{Square: sq, Color: s.Board.Get(sq).Color}
	}
	return m
}

// Status returns the one-line game state shown under the move list.
func Status(s game.Snapshot) string {
	mover := s.Meta.ActiveColor()
	switch s.Phase {
	case game.Over:
		for _, c := range [2]board.Color{board.White, board.Black} {
			if s.Meta.Kings[c].Piece.Checkmated {
				return fmt.Sprintf("Checkmate, %s wins", title(c.Other()))
			}
		}
		return "Game over"
	case game.PromotionPending:
		return fmt.Sprintf("%s to promote", title(s.Board.Get(s.Meta.PromotablePawn).Color))
	}
	if s.Meta.Kings[mover].Piece.InCheck {
		return fmt.Sprintf("%s to move, in check", title(mover))
	}
	return fmt.Sprintf("%s to move", title(mover))
}

func title(c board.Color) string {
	if c == board.White {
		return "White"
	}
	return "Black"
}

// MoveRow is one numbered line of the move list.
type MoveRow struct {
	Number int
	White  string
	Black  string
}

// Rows pairs plies into numbered rows.
func Rows(plies []string) []MoveRow {
	rows := make([]MoveRow, 0, (len(plies)+1)/2)
	for i := 0; i < len(plies); i += 2 {
		row := MoveRow{Number: i/2 + 1, White: plies[i]}
		if i+1 < len(plies) {
			row.Black = plies[i+1]
		}
		rows = append(rows, row)
	}
	return rows
}

// Prompt is the promotion picker.
type Prompt struct {
	Square board.Square
	Color  board.Color
}

// PromotionChoices are offered in this order, nearest the pawn first.
var PromotionChoices = [4]board.PieceType{board.Queen, board.Rook, board.Bishop, board.Knight}

// Squares returns the four squares the picker covers: the promotion square
// and the three behind it on the same file.
func (p *Prompt) Squares() [4]board.Square {
	var out [4]board.Square
	step := -1
	if p.Color == board.Black {
		step = 1
	}
	for i := range out {
		out[i] = board.NewSquare(p.Square.File(), p.Square.Rank()+i*step)
	}
	return out
}

// Choice returns the piece offered on sq.
func (p *Prompt) Choice(sq board.Square) (board.PieceType, bool) {
	for i, s := range p.Squares() {
		if s == sq {
			return PromotionChoices[i], true
		}
	}
	return board.NoPieceType, false
}

// Chart maps a score history to points inside bounds. Zero sits on the
// vertical middle and the largest magnitude touches an edge.
func Chart(scores []int, bounds image.Rectangle) []image.Point {
	if len(scores) == 0 || bounds.Empty() {
		return nil
	}
	peak := 1
	for _, s := range scores {
		if s < 0 {
			s = -s
		}
		if s > peak {
			peak = s
		}
	}
	mid := bounds.Min.Y + bounds.Dy()/2
	half := bounds.Dy() / 2
	pts := make([]image.Point, len(scores))
	for i, s := range scores {
		x := bounds.Min.X
		if len(scores) > 1 {
			x += i * (bounds.Dx() - 1) / (len(scores) - 1)
		}
		pts[i] = image.Pt(x, mid-s*half/peak)
	}
	return pts
}
