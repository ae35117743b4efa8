package board

import (
	"fmt"
	"strings"
)

// MoveKind tags a generated destination with the side effects applying it needs.
type MoveKind uint8

const (
	// Normal is a quiet move onto an empty square.
	Normal MoveKind = iota
	Capture
	Castle
	EnPassant
	// DoublePush is a pawn's two-square first move; it opens an en passant target.
	DoublePush
)

var moveKindNames = [...]string{"move", "capture", "castle", "en_passant", "double_push"}

// String returns the move kind name.
func (k MoveKind) String() string {
	if int(k) >= len(moveKindNames) {
		return "unknown"
	}
	return moveKindNames[k]
}

// MarshalText encodes the move kind by name.
func (k MoveKind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a move kind name.
func (k *MoveKind) UnmarshalText(text []byte) error {
	for i, name := range moveKindNames {
		if name == string(text) {
			*k = MoveKind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown move kind %q", text)
}

// Move is a generated destination for the piece on some source square.
type Move struct {
	To   Square   `json:"to"`
	Kind MoveKind `json:"kind"`
}

// String returns e.g. "e4(double_push)".
func (m Move) String() string {
	return fmt.Sprintf("%s(%s)", m.To, m.Kind)
}

// MoveList holds moves in generation order.
type MoveList []Move

// Len returns the number of moves in the list.
func (ml MoveList) Len() int {
	return len(ml)
}

// Find returns the move landing on to, if any.
func (ml MoveList) Find(to Square) (Move, bool) {
	for _, m := range ml {
		if m.To == to {
			return m, true
		}
	}
	return Move{}, false
}

// Contains reports whether some move lands on to.
func (ml MoveList) Contains(to Square) bool {
	_, ok := ml.Find(to)
	return ok
}

// String returns a space separated list of destinations.
func (ml MoveList) String() string {
	parts := make([]string, len(ml))
	for i, m := range ml {
		parts[i] = m.String()
	}
	return strings.Join(parts, " ")
}

// CoordinateMove is a source/destination pair in coordinate notation,
// e.g. "e2e4" or "e7e8q".
type CoordinateMove struct {
	From      Square
	To        Square
	Promotion PieceType
}

// ParseCoordinateMove parses a 4 or 5 character coordinate move.
func ParseCoordinateMove(s string) (CoordinateMove, error) {
	s = strings.TrimSpace(s)
	if len(s) != 4 && len(s) != 5 {
		return CoordinateMove{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return CoordinateMove{}, err
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return CoordinateMove{}, err
	}
	cm := CoordinateMove{From: from, To: to}
	if len(s) == 5 {
		switch s[4] {
		case 'q', 'Q':
			cm.Promotion = Queen
		case 'r', 'R':
			cm.Promotion = Rook
		case 'b', 'B':
			cm.Promotion = Bishop
		case 'n', 'N':
			cm.Promotion = Knight
		default:
			return CoordinateMove{}, fmt.Errorf("%w: promotion in %q", ErrInvalidMove, s)
		}
	}
	return cm, nil
}

// String returns the coordinate notation.
func (cm CoordinateMove) String() string {
	s := cm.From.String() + cm.To.String()
	if cm.Promotion != NoPieceType {
		s += string(cm.Promotion.Char())
	}
	return s
}
