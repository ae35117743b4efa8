package board

import "fmt"

// Color represents the color of a piece or player.
type Color uint8

const (
	White Color = iota
	Black
)

// Other returns the opposite color.
func (c Color) Other() Color {
	return c ^ 1
}

// String returns the color name.
func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// MarshalText encodes the color by name.
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText decodes "white" or "black".
func (c *Color) UnmarshalText(text []byte) error {
	switch string(text) {
	case "white":
		*c = White
	case "black":
		*c = Black
	default:
		return fmt.Errorf("unknown color %q", text)
	}
	return nil
}

// PieceType represents the kind of a chess piece. The zero value is the
// empty square.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Rook
	Knight
	Bishop
	Queen
	King
)

var pieceTypeNames = [...]string{"empty", "pawn", "rook", "knight", "bishop", "queen", "king"}

// String returns the piece type name.
func (pt PieceType) String() string {
	if int(pt) >= len(pieceTypeNames) {
		return "unknown"
	}
	return pieceTypeNames[pt]
}

// MarshalText encodes the piece type by name.
func (pt PieceType) MarshalText() ([]byte, error) {
	return []byte(pt.String()), nil
}

// UnmarshalText decodes a piece type name.
func (pt *PieceType) UnmarshalText(text []byte) error {
	for i, name := range pieceTypeNames {
		if name == string(text) {
			*pt = PieceType(i)
			return nil
		}
	}
	return fmt.Errorf("unknown piece type %q", text)
}

// Char returns the position string letter for the piece type (lowercase).
func (pt PieceType) Char() byte {
	switch pt {
	case Pawn:
		return 'p'
	case Rook:
		return 'r'
	case Knight:
		return 'n'
	case Bishop:
		return 'b'
	case Queen:
		return 'q'
	case King:
		return 'k'
	default:
		return ' '
	}
}

// materialValue is indexed by PieceType.
var materialValue = [...]int{
	NoPieceType: 0,
	Pawn:        100,
	Rook:        479,
	Knight:      280,
	Bishop:      320,
	Queen:       929,
	King:        0,
}

// Piece is an immutable board cell value. Moving a piece means writing a
// new Piece into another cell, never mutating one in place.
//
// InCheck and Checkmated only carry meaning for kings; constructors and
// WithThreatStatus keep them false on every other kind.
type Piece struct {
	Type       PieceType `json:"type"`
	Color      Color     `json:"color"`
	Moved      bool      `json:"moved,omitempty"`
	InCheck    bool      `json:"in_check,omitempty"`
	Checkmated bool      `json:"checkmated,omitempty"`
}

// NoPiece is the empty cell.
var NoPiece = Piece{}

// NewPiece returns an unmoved piece of the given type and color.
func NewPiece(pt PieceType, c Color) Piece {
	if pt == NoPieceType || pt > King {
		return NoPiece
	}
	return Piece{Type: pt, Color: c}
}

// IsEmpty reports whether the cell holds no piece.
func (p Piece) IsEmpty() bool {
	return p.Type == NoPieceType
}

// ColorOf returns the owning color; ok is false for an empty cell.
func (p Piece) ColorOf() (c Color, ok bool) {
	if p.IsEmpty() {
		return White, false
	}
	return p.Color, true
}

// IsEnemyOf reports whether p is a piece owned by the opponent of c.
func (p Piece) IsEnemyOf(c Color) bool {
	return !p.IsEmpty() && p.Color != c
}

// IsKing reports whether p is the king of color c.
func (p Piece) IsKing(c Color) bool {
	return p.Type == King && p.Color == c
}

// IsPromotable reports whether p is a pawn standing on its far rank at sq.
func (p Piece) IsPromotable(sq Square) bool {
	return p.Type == Pawn && sq.IsValid() && sq.RelativeRank(p.Color) == 7
}

// Value returns the material weight of the piece. Kings and empty cells are 0.
func (p Piece) Value() int {
	if int(p.Type) >= len(materialValue) {
		return 0
	}
	return materialValue[p.Type]
}

// MarkedMoved returns a copy with the has-moved flag set. King check flags
// are preserved.
func (p Piece) MarkedMoved() Piece {
	if p.IsEmpty() {
		return p
	}
	p.Moved = true
	return p
}

// WithThreatStatus returns a king carrying the given check flags.
// Any other piece is returned unchanged.
func (p Piece) WithThreatStatus(inCheck, checkmated bool) Piece {
	if p.Type != King {
		return p
	}
	p.InCheck = inCheck
	p.Checkmated = checkmated
	return p
}

// Char returns the position string letter for the piece.
// Uppercase for white, lowercase for black, space for empty.
func (p Piece) Char() byte {
	c := p.Type.Char()
	if p.IsEmpty() {
		return c
	}
	if p.Color == White {
		return c - 'a' + 'A'
	}
	return c
}

// String returns the position string letter for the piece.
func (p Piece) String() string {
	return string(p.Char())
}

// PieceFromChar converts a position string letter to an unmoved Piece.
func PieceFromChar(c byte) (Piece, bool) {
	color := Black
	if c >= 'A' && c <= 'Z' {
		color = White
		c = c - 'A' + 'a'
	}
	var pt PieceType
	switch c {
	case 'p':
		pt = Pawn
	case 'r':
		pt = Rook
	case 'n':
		pt = Knight
	case 'b':
		pt = Bishop
	case 'q':
		pt = Queen
	case 'k':
		pt = King
	default:
		return NoPiece, false
	}
	return NewPiece(pt, color), true
}
