package board

// direction is a (file, rank) step.
type direction struct{ df, dr int }

var (
	rookDirections   = []direction{{1, 0}, {-1, 0}, {0, 1}, {0, -1}}
	bishopDirections = []direction{{1, 1}, {-1, -1}, {-1, 1}, {1, -1}}
	queenDirections  = append(append([]direction{}, rookDirections...), bishopDirections...)

	knightOffsets = []direction{
		{2, 1}, {2, -1}, {1, 2}, {1, -2},
		{-2, 1}, {-2, -1}, {-1, 2}, {-1, -2},
	}
	kingOffsets = []direction{
		{1, 1}, {1, -1}, {-1, 1}, {-1, -1},
		{0, 1}, {1, 0}, {-1, 0}, {0, -1},
	}
)

// pawnForward returns the rank step of a pawn of color c.
func pawnForward(c Color) int {
	if c == White {
		return 1
	}
	return -1
}

// MovesFor returns the pseudo-legal moves of p standing on sq. Castling and
// en passant are not included; see CastlingMoves and EnPassantMoves.
// The board is only read.
func MovesFor(p Piece, sq Square, b *Board) MoveList {
	switch p.Type {
	case Pawn:
		return pawnMoves(p, sq, b)
	case Rook:
		return slidingMoves(p, sq, b, rookDirections)
	case Bishop:
		return slidingMoves(p, sq, b, bishopDirections)
	case Queen:
		return slidingMoves(p, sq, b, queenDirections)
	case Knight:
		return steppingMoves(p, sq, b, knightOffsets)
	case King:
		return steppingMoves(p, sq, b, kingOffsets)
	case NoPieceType:
		return nil
	}
	return nil
}

func pawnMoves(p Piece, sq Square, b *Board) MoveList {
	var moves MoveList
	fwd := pawnForward(p.Color)

	if one, ok := sq.Offset(0, fwd); ok && b.Get(one).IsEmpty() {
		moves = append(moves, Move{To: one, Kind: Normal})
		if two, ok := sq.Offset(0, 2*fwd); ok && !p.Moved && b.Get(two).IsEmpty() {
			moves = append(moves, Move{To: two, Kind: DoublePush})
		}
	}

	for _, df := range [2]int{1, -1} {
		to, ok := sq.Offset(df, fwd)
		if ok && b.Get(to).IsEnemyOf(p.Color) {
			moves = append(moves, Move{To: to, Kind: Capture})
		}
	}
	return moves
}

// slidingMoves walks each ray until it leaves the board or hits a piece.
func slidingMoves(p Piece, sq Square, b *Board, dirs []direction) MoveList {
	var moves MoveList
	for _, d := range dirs {
		to := sq
		for {
			var ok bool
			to, ok = to.Offset(d.df, d.dr)
			if !ok {
				break
			}
			target := b.Get(to)
			if target.IsEmpty() {
				moves = append(moves, Move{To: to, Kind: Normal})
				continue
			}
			if target.IsEnemyOf(p.Color) {
				moves = append(moves, Move{To: to, Kind: Capture})
			}
			break
		}
	}
	return moves
}

func steppingMoves(p Piece, sq Square, b *Board, offsets []direction) MoveList {
	var moves MoveList
	for _, d := range offsets {
		to, ok := sq.Offset(d.df, d.dr)
		if !ok {
			continue
		}
		target := b.Get(to)
		switch {
		case target.IsEmpty():
			moves = append(moves, Move{To: to, Kind: Normal})
		case target.IsEnemyOf(p.Color):
			moves = append(moves, Move{To: to, Kind: Capture})
		}
	}
	return moves
}

// EnPassantMoves returns the en passant capture available to p on sq when
// target holds the pawn that just made a double push.
func EnPassantMoves(p Piece, sq Square, target Square) MoveList {
	if p.Type != Pawn || !sq.IsValid() || !target.IsValid() {
		return nil
	}
	if sq.RelativeRank(p.Color) != 4 || target.Rank() != sq.Rank() {
		return nil
	}
	if df := target.File() - sq.File(); df != 1 && df != -1 {
		return nil
	}
	to, ok := target.Offset(0, pawnForward(p.Color))
	if !ok {
		return nil
	}
	return MoveList{{To: to, Kind: EnPassant}}
}

// CastlingMoves returns the castles available to the king of color c on sq.
// Each side needs its rook unmoved on the corner, the squares between empty,
// and the king's start, transit and landing squares unthreatened. The two
// sides are evaluated independently.
func CastlingMoves(sq Square, c Color, b *Board) MoveList {
	king := b.Get(sq)
	if !king.IsKing(c) || king.Moved {
		return nil
	}

	var moves MoveList
	for _, side := range [2]struct{ rookFile, step int }{{7, 1}, {0, -1}} {
		rook := b.Get(NewSquare(side.rookFile, sq.Rank()))
		if rook.Type != Rook || rook.Color != c || rook.Moved {
			continue
		}
		if !pathClear(b, sq, side.rookFile, side.step) {
			continue
		}
		dest, ok := sq.Offset(2*side.step, 0)
		if !ok {
			continue
		}
		if kingPathThreatened(b, sq, side.step, c) {
			continue
		}
		moves = append(moves, Move{To: dest, Kind: Castle})
	}
	return moves
}

// pathClear reports whether every square strictly between sq and the rook
// file is empty.
func pathClear(b *Board, sq Square, rookFile, step int) bool {
	for file := sq.File() + step; file != rookFile; file += step {
		if !b.Get(NewSquare(file, sq.Rank())).IsEmpty() {
			return false
		}
	}
	return true
}

// kingPathThreatened checks the king's start square and the two squares it
// crosses toward the rook.
func kingPathThreatened(b *Board, sq Square, step int, c Color) bool {
	for i := 0; i <= 2; i++ {
		to, ok := sq.Offset(i*step, 0)
		if !ok || IsThreatened(to, c, b) {
			return true
		}
	}
	return false
}
