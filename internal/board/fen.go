package board

import (
	"fmt"
	"strconv"
	"strings"
)

// StartPosition is the full position string of a new game.
const StartPosition = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// PlacementString returns the board portion of the position string: ranks
// 8 down to 1 separated by '/', empty runs written as a digit.
func (b *Board) PlacementString() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			p := b[file][rank]
			if p.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteString(strconv.Itoa(empty))
				empty = 0
			}
			sb.WriteByte(p.Char())
		}
		if empty > 0 {
			sb.WriteString(strconv.Itoa(empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}
	return sb.String()
}

// ParsePlacement rebuilds a board from its placement string. Pawns off
// their starting rank and kings or rooks off their home squares come back
// marked as moved.
func ParsePlacement(placement string) (Board, error) {
	var b Board
	ranks := strings.Split(placement, "/")
	if len(ranks) != 8 {
		return b, fmt.Errorf("%w: need 8 ranks, got %d", ErrInvalidPosition, len(ranks))
	}

	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(rankStr); j++ {
			c := rankStr[j]
			if file > 7 {
				return b, fmt.Errorf("%w: too many squares in rank %d", ErrInvalidPosition, rank+1)
			}
			if c >= '1' && c <= '8' {
				file += int(c - '0')
				continue
			}
			p, ok := PieceFromChar(c)
			if !ok {
				return b, fmt.Errorf("%w: invalid piece character %q", ErrInvalidPosition, c)
			}
			sq := NewSquare(file, rank)
			if !onHomeSquare(p, sq) {
				p = p.MarkedMoved()
			}
			b.Set(sq, p)
			file++
		}
		if file != 8 {
			return b, fmt.Errorf("%w: rank %d has %d squares", ErrInvalidPosition, rank+1, file)
		}
	}
	return b, nil
}

// onHomeSquare reports whether p could still be standing where it started.
func onHomeSquare(p Piece, sq Square) bool {
	switch p.Type {
	case Pawn:
		return sq.RelativeRank(p.Color) == 1
	case King:
		return sq.RelativeRank(p.Color) == 0 && sq.File() == 4
	case Rook:
		return sq.RelativeRank(p.Color) == 0 && (sq.File() == 0 || sq.File() == 7)
	}
	return true
}

// castlingRight pairs a position string letter with the pieces it needs.
type castlingRight struct {
	letter byte
	color  Color
	king   Square
	rook   Square
}

var castlingRights = [4]castlingRight{
	{'K', White, E1, H1},
	{'Q', White, E1, A1},
	{'k', Black, E8, H8},
	{'q', Black, E8, A8},
}

// castlingMask packs the remaining castling rights into four bits in KQkq
// order. A right remains while its king and rook stand unmoved on their
// home squares.
func (b *Board) castlingMask() int {
	mask := 0
	for i, cr := range castlingRights {
		king := b.Get(cr.king)
		rook := b.Get(cr.rook)
		if king.IsKing(cr.color) && !king.Moved &&
			rook.Type == Rook && rook.Color == cr.color && !rook.Moved {
			mask |= 1 << i
		}
	}
	return mask
}

// CastlingRights derives the KQkq field from the has-moved flags of the
// kings and rooks on their home squares. Returns "-" when nothing remains.
func (b *Board) CastlingRights() string {
	mask := b.castlingMask()
	if mask == 0 {
		return "-"
	}
	var sb strings.Builder
	for i, cr := range castlingRights {
		if mask&(1<<i) != 0 {
			sb.WriteByte(cr.letter)
		}
	}
	return sb.String()
}

// PositionString returns the full position string: placement, side to move,
// castling rights, en passant square, half-move clock and full-move number.
//
// The en passant field names the square the double-pushed pawn passed over,
// which is what external engines expect.
func PositionString(b *Board, m *GameMeta) string {
	var sb strings.Builder
	sb.WriteString(b.PlacementString())

	sb.WriteByte(' ')
	if m.ActiveColor() == White {
		sb.WriteByte('w')
	} else {
		sb.WriteByte('b')
	}

	sb.WriteByte(' ')
	sb.WriteString(b.CastlingRights())

	sb.WriteByte(' ')
	sb.WriteString(passedOverSquare(b, m.EnPassant).String())

	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(m.HalfMoveClock))
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(m.FullMoveNumber()))
	return sb.String()
}

// passedOverSquare maps the en passant target pawn to the square behind it.
func passedOverSquare(b *Board, target Square) Square {
	if !target.IsValid() {
		return NoSquare
	}
	p := b.Get(target)
	if p.Type != Pawn {
		return NoSquare
	}
	sq, ok := target.Offset(0, -pawnForward(p.Color))
	if !ok {
		return NoSquare
	}
	return sq
}

// ParsePosition parses a full position string into a board and its
// metadata. Castling letters that are absent mark the matching rook as
// moved; king check flags are recomputed.
func ParsePosition(pos string) (Board, GameMeta, error) {
	parts := strings.Fields(pos)
	if len(parts) < 4 {
		return Board{}, GameMeta{}, fmt.Errorf("%w: need at least 4 fields, got %d", ErrInvalidPosition, len(parts))
	}

	b, err := ParsePlacement(parts[0])
	if err != nil {
		return Board{}, GameMeta{}, err
	}

	black := false
	switch parts[1] {
	case "w":
	case "b":
		black = true
	default:
		return Board{}, GameMeta{}, fmt.Errorf("%w: side to move %q", ErrInvalidPosition, parts[1])
	}

	if err := validatePlacement(&b); err != nil {
		return Board{}, GameMeta{}, err
	}

	if err := applyCastlingField(&b, parts[2]); err != nil {
		return Board{}, GameMeta{}, err
	}

	m, err := NewGameMeta(&b)
	if err != nil {
		return Board{}, GameMeta{}, err
	}

	if parts[3] != "-" {
		passed, err := ParseSquare(parts[3])
		if err != nil {
			return Board{}, GameMeta{}, fmt.Errorf("%w: en passant %q", ErrInvalidPosition, parts[3])
		}
		switch passed.Rank() {
		case 2:
			m.EnPassant = NewSquare(passed.File(), 3)
		case 5:
			m.EnPassant = NewSquare(passed.File(), 4)
		default:
			return Board{}, GameMeta{}, fmt.Errorf("%w: en passant %q", ErrInvalidPosition, parts[3])
		}
	}

	if len(parts) > 4 {
		hmc, err := strconv.Atoi(parts[4])
		if err != nil || hmc < 0 {
			return Board{}, GameMeta{}, fmt.Errorf("%w: half-move clock %q", ErrInvalidPosition, parts[4])
		}
		m.HalfMoveClock = hmc
	}

	fullMove := 1
	if len(parts) > 5 {
		fullMove, err = strconv.Atoi(parts[5])
		if err != nil || fullMove < 1 {
			return Board{}, GameMeta{}, fmt.Errorf("%w: full-move number %q", ErrInvalidPosition, parts[5])
		}
	}
	m.Turn = (fullMove - 1) * 2
	if black {
		m.Turn++
	}

	// the side that just moved cannot have left its king attacked
	if waiting := m.ActiveColor().Other(); IsThreatened(m.KingSquare(waiting), waiting, &b) {
		return Board{}, GameMeta{}, fmt.Errorf("%w: %s is in check but not to move", ErrInvalidPosition, waiting)
	}

	m.RefreshKingStatus(m.ActiveColor().Other(), &b)
	_, mate := m.RefreshKingStatus(m.ActiveColor(), &b)
	m.GameOver = mate
	return b, m, nil
}

// validatePlacement requires exactly one king per color and no pawn on
// the first or last rank.
func validatePlacement(b *Board) error {
	var kings [2]int
	for sq := A1; sq <= H8; sq++ {
		p := b.Get(sq)
		switch p.Type {
		case King:
			kings[p.Color]++
		case Pawn:
			if r := sq.Rank(); r == 0 || r == 7 {
				return fmt.Errorf("%w: pawn on %s", ErrInvalidPosition, sq)
			}
		}
	}
	for _, c := range [2]Color{White, Black} {
		switch kings[c] {
		case 1:
		case 0:
			return fmt.Errorf("%w: %w: %s", ErrInvalidPosition, ErrKingMissing, c)
		default:
			return fmt.Errorf("%w: %d %s kings", ErrInvalidPosition, kings[c], c)
		}
	}
	return nil
}

func applyCastlingField(b *Board, field string) error {
	if field != "-" {
		for i := 0; i < len(field); i++ {
			if !strings.ContainsRune("KQkq", rune(field[i])) {
				return fmt.Errorf("%w: castling character %q", ErrInvalidPosition, field[i])
			}
		}
	}
	for _, cr := range castlingRights {
		if strings.IndexByte(field, cr.letter) >= 0 {
			continue
		}
		rook := b.Get(cr.rook)
		if rook.Type == Rook && rook.Color == cr.color {
			b.Set(cr.rook, rook.MarkedMoved())
		}
	}
	return nil
}
