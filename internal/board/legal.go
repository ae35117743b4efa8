package board

import "fmt"

// FilterLegal drops the candidates that would leave the mover's own king
// threatened. Moves for a piece whose side is not to move are all dropped.
//
// When lifting the piece off src does not expose its king, every candidate
// except en passant is kept as is. Otherwise each candidate is played on a
// copy of the board and the king square is tested afterwards.
func FilterLegal(moves MoveList, src Square, meta *GameMeta, b *Board) MoveList {
	p := b.Get(src)
	c, ok := p.ColorOf()
	if !ok || c != meta.ActiveColor() {
		return nil
	}

	kingSq := meta.KingSquare(c)
	pinned := true
	if p.Type != King {
		lifted := *b
		lifted.Clear(src)
		pinned = IsThreatened(kingSq, c, &lifted)
	}

	legal := make(MoveList, 0, len(moves))
	for _, m := range moves {
		if !pinned && m.Kind != EnPassant {
			legal = append(legal, m)
			continue
		}
		sim := *b
		sim.Apply(src, m)
		target := kingSq
		if p.Type == King {
			target = m.To
		}
		if !IsThreatened(target, c, &sim) {
			legal = append(legal, m)
		}
	}
	return legal
}

// PseudoLegalMoves returns everything the piece on src may try: its own
// movement plus castling for a king and en passant for a pawn.
func PseudoLegalMoves(src Square, meta *GameMeta, b *Board) MoveList {
	p := b.Get(src)
	moves := MovesFor(p, src, b)
	switch p.Type {
	case King:
		moves = append(moves, CastlingMoves(src, p.Color, b)...)
	case Pawn:
		if meta.EnPassant.IsValid() {
			moves = append(moves, EnPassantMoves(p, src, meta.EnPassant)...)
		}
	}
	return moves
}

// LegalMovesFrom returns the legal moves of the piece on src.
func LegalMovesFrom(src Square, meta *GameMeta, b *Board) MoveList {
	return FilterLegal(PseudoLegalMoves(src, meta, b), src, meta, b)
}

// HasLegalMoves reports whether color c has at least one legal move,
// regardless of whose turn meta says it is.
func HasLegalMoves(c Color, meta *GameMeta, b *Board) bool {
	m := *meta
	if m.ActiveColor() != c {
		m.Turn++
	}
	for file := 0; file < 8; file++ {
		for rank := 0; rank < 8; rank++ {
			p := b[file][rank]
			if p.IsEmpty() || p.Color != c {
				continue
			}
			if len(LegalMovesFrom(NewSquare(file, rank), &m, b)) > 0 {
				return true
			}
		}
	}
	return false
}

// IsCheckmated reports whether c's king is threatened and c has no legal
// move. It panics if meta does not track a king for c, since that means
// the game was set up wrong.
func IsCheckmated(c Color, meta *GameMeta, b *Board) bool {
	kingSq := meta.KingSquare(c)
	if !kingSq.IsValid() || !b.Get(kingSq).IsKing(c) {
		panic(fmt.Errorf("%w: %s", ErrKingMissing, c))
	}
	return IsThreatened(kingSq, c, b) && !HasLegalMoves(c, meta, b)
}
