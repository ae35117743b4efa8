package board

import "strings"

// Board is the 8x8 grid of cells indexed [file][rank]. It is a plain value:
// assigning a Board copies it, which is what hypothetical boards rely on.
type Board [8][8]Piece

// backRank lists the home rank piece types from the a-file to the h-file.
var backRank = [8]PieceType{Rook, Knight, Bishop, Queen, King, Bishop, Knight, Rook}

// StartingBoard returns the standard initial layout with every piece unmoved.
func StartingBoard() Board {
	var b Board
	for file := 0; file < 8; file++ {
		b[file][0] = NewPiece(backRank[file], White)
		b[file][1] = NewPiece(Pawn, White)
		b[file][6] = NewPiece(Pawn, Black)
		b[file][7] = NewPiece(backRank[file], Black)
	}
	return b
}

// Get returns the piece on sq.
func (b *Board) Get(sq Square) Piece {
	return b[sq.File()][sq.Rank()]
}

// Set places p on sq, replacing whatever was there.
func (b *Board) Set(sq Square, p Piece) {
	b[sq.File()][sq.Rank()] = p
}

// Clear empties sq.
func (b *Board) Clear(sq Square) {
	b.Set(sq, NoPiece)
}

// FindKing scans the board for the king of color c.
func (b *Board) FindKing(c Color) (Square, bool) {
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			if b[file][rank].IsKing(c) {
				return NewSquare(file, rank), true
			}
		}
	}
	return NoSquare, false
}

// Material returns White's material minus Black's.
func (b *Board) Material() int {
	score := 0
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			p := b[file][rank]
			if p.IsEmpty() {
				continue
			}
			if p.Color == White {
				score += p.Value()
			} else {
				score -= p.Value()
			}
		}
	}
	return score
}

// castleRookFiles returns the rook's start and end file for a castle whose
// king lands on kingFile.
func castleRookFiles(kingFile int) (from, to int) {
	if kingFile > 4 {
		return 7, 5
	}
	return 0, 3
}

// Apply performs m for the piece on src, including the rook relocation of a
// castle and the pawn removal of an en passant capture. It returns the piece
// as placed on the destination. No game bookkeeping happens here.
func (b *Board) Apply(src Square, m Move) Piece {
	mover := b.Get(src).MarkedMoved()
	b.Clear(src)
	b.Set(m.To, mover)

	switch m.Kind {
	case Castle:
		fromFile, toFile := castleRookFiles(m.To.File())
		rookFrom := NewSquare(fromFile, m.To.Rank())
		rook := b.Get(rookFrom).MarkedMoved()
		b.Clear(rookFrom)
		b.Set(NewSquare(toFile, m.To.Rank()), rook)
	case EnPassant:
		b.Clear(NewSquare(m.To.File(), src.Rank()))
	}
	return mover
}

// String returns an ASCII diagram with rank 8 at the top.
func (b Board) String() string {
	var sb strings.Builder
	sb.WriteString("  +-----------------+\n")
	for rank := 7; rank >= 0; rank-- {
		sb.WriteByte(byte('1' + rank))
		sb.WriteString(" | ")
		for file := 0; file < 8; file++ {
			p := b[file][rank]
			if p.IsEmpty() {
				sb.WriteByte('.')
			} else {
				sb.WriteByte(p.Char())
			}
			sb.WriteByte(' ')
		}
		sb.WriteString("|\n")
	}
	sb.WriteString("  +-----------------+\n")
	sb.WriteString("    a b c d e f g h\n")
	return sb.String()
}
