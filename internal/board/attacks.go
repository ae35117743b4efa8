package board

// IsThreatened reports whether any piece of the opponent of defender could
// land on sq. It scans every cell and only reads the board, so it works on
// hypothetical boards as well as the live one.
//
// Pawns threaten their two forward diagonals whether or not those squares
// are occupied, and never the squares they push to. Castling and en passant
// are not considered.
func IsThreatened(sq Square, defender Color, b *Board) bool {
	attacker := defender.Other()
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			p := b[file][rank]
			if p.IsEmpty() || p.Color != attacker {
				continue
			}
			from := NewSquare(file, rank)
			if p.Type == Pawn {
				if pawnAttacks(p.Color, from, sq) {
					return true
				}
				continue
			}
			if MovesFor(p, from, b).Contains(sq) {
				return true
			}
		}
	}
	return false
}

// pawnAttacks reports whether a pawn of color c on from attacks sq.
func pawnAttacks(c Color, from, sq Square) bool {
	if sq.Rank()-from.Rank() != pawnForward(c) {
		return false
	}
	df := sq.File() - from.File()
	return df == 1 || df == -1
}

// Attackers returns the squares of the opponent pieces threatening sq.
func Attackers(sq Square, defender Color, b *Board) []Square {
	var out []Square
	attacker := defender.Other()
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			p := b[file][rank]
			if p.IsEmpty() || p.Color != attacker {
				continue
			}
			from := NewSquare(file, rank)
			if p.Type == Pawn {
				if pawnAttacks(p.Color, from, sq) {
					out = append(out, from)
				}
				continue
			}
			if MovesFor(p, from, b).Contains(sq) {
				out = append(out, from)
			}
		}
	}
	return out
}
