package board

import "fmt"

// KingMeta is the authoritative record of a king: its current value
// (including check flags) and where it stands. The board cell at Square is
// kept equal to Piece.
type KingMeta struct {
	Piece  Piece  `json:"piece"`
	Square Square `json:"square"`
}

// GameMeta is the per-game turn state that lives beside the board.
type GameMeta struct {
	// Turn counts completed plies; its parity gives the side to move.
	Turn  int `json:"turn"`
	Score int `json:"score"`
	// EnPassant holds the square of the pawn that just double-pushed, for
	// the single ply that follows. NoSquare otherwise.
	EnPassant Square `json:"en_passant"`
	// PromotablePawn holds a pawn waiting for its promotion choice.
	PromotablePawn Square      `json:"promotable_pawn"`
	Kings          [2]KingMeta `json:"kings"`
	GameOver       bool        `json:"game_over"`
	HalfMoveClock  int         `json:"half_move_clock"`
}

// ColorForTurn maps a turn counter to the side to move: even is White.
func ColorForTurn(turn int) Color {
	if turn%2 == 0 {
		return White
	}
	return Black
}

// NewGameMeta returns turn-zero metadata for b, locating both kings.
func NewGameMeta(b *Board) (GameMeta, error) {
	m := GameMeta{
		EnPassant:      NoSquare,
		PromotablePawn: NoSquare,
	}
	for _, c := range [2]Color{White, Black} {
		sq, ok := b.FindKing(c)
		if !ok {
			return GameMeta{}, fmt.Errorf("%w: %s", ErrKingMissing, c)
		}
		m.Kings[c] = KingMeta{Piece: b.Get(sq), Square: sq}
	}
	m.Score = b.Material()
	return m, nil
}

// ActiveColor returns the side to move.
func (m *GameMeta) ActiveColor() Color {
	return ColorForTurn(m.Turn)
}

// KingSquare returns the tracked square of c's king.
func (m *GameMeta) KingSquare(c Color) Square {
	return m.Kings[c].Square
}

// SetKing records king p on sq and mirrors it into the board cell.
func (m *GameMeta) SetKing(b *Board, p Piece, sq Square) {
	m.Kings[p.Color] = KingMeta{Piece: p, Square: sq}
	b.Set(sq, p)
}

// FullMoveNumber returns the move number shown in position strings.
func (m *GameMeta) FullMoveNumber() int {
	return m.Turn/2 + 1
}

// PromotionPending reports whether a pawn awaits its promotion choice.
func (m *GameMeta) PromotionPending() bool {
	return m.PromotablePawn.IsValid()
}

// CheckSynced verifies that both tracked kings match their board cells.
func (m *GameMeta) CheckSynced(b *Board) error {
	for _, c := range [2]Color{White, Black} {
		km := m.Kings[c]
		if !km.Square.IsValid() || b.Get(km.Square) != km.Piece || !km.Piece.IsKing(c) {
			return fmt.Errorf("%w: %s king not at %s", ErrKingMissing, c, km.Square)
		}
	}
	return nil
}

// RefreshKingStatus recomputes the check and checkmate flags of c's king
// and mirrors the updated king into its board cell. It panics with
// ErrKingMissing when the tracked square does not hold c's king.
func (m *GameMeta) RefreshKingStatus(c Color, b *Board) (inCheck, checkmated bool) {
	sq := m.KingSquare(c)
	if !sq.IsValid() || !b.Get(sq).IsKing(c) {
		panic(fmt.Errorf("%w: %s king not at %s", ErrKingMissing, c, sq))
	}
	inCheck = IsThreatened(sq, c, b)
	checkmated = inCheck && IsCheckmated(c, m, b)
	king := b.Get(sq).WithThreatStatus(inCheck, checkmated)
	m.Kings[c] = KingMeta{Piece: king, Square: sq}
	b.Set(sq, king)
	return inCheck, checkmated
}
