package board

import (
	"sort"
	"testing"

	chesslib "github.com/corentings/chess/v2"
	"github.com/google/go-cmp/cmp"
)

// legalPairs lists every legal move of the side to move as "e2e4" pairs.
// Promotions collapse into one pair since the piece choice comes later.
func legalPairs(b *Board, m *GameMeta) []string {
	seen := make(map[string]bool)
	c := m.ActiveColor()
	for sq := A1; sq <= H8; sq++ {
		p := b.Get(sq)
		if p.IsEmpty() || p.Color != c {
			continue
		}
		for _, mv := range LegalMovesFrom(sq, m, b) {
			seen[sq.String()+mv.To.String()] = true
		}
	}
	return sortedKeys(seen)
}

func referencePairs(t *testing.T, pos string) []string {
	t.Helper()
	opt, err := chesslib.FEN(pos)
	if err != nil {
		t.Fatalf("reference parse %q: %v", pos, err)
	}
	game := chesslib.NewGame(opt)
	seen := make(map[string]bool)
	for _, mv := range game.ValidMoves() {
		seen[mv.S1().String()+mv.S2().String()] = true
	}
	return sortedKeys(seen)
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// The move sets agree with an independent rules implementation on
// positions full of pins, checks, castling and en passant.
func TestLegalMovesMatchReference(t *testing.T) {
	positions := append([]string{
		"rnbqkbnr/ppp1pppp/8/3pP3/8/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 3",
		"8/8/3p4/KPp4r/1R3p1k/8/4P1P1/8 w - c6 0 2",
		"R6k/6pp/8/8/8/8/8/K7 b - - 0 1",
		"6Rk/8/8/8/8/8/8/K7 b - - 0 1",
		"r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1",
		"r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1",
		"r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5Q2/PPPP1PPP/RNB1K1NR w KQkq - 2 3",
	}, legalFixtures...)

	for _, pos := range positions {
		b, m := mustPosition(t, pos)
		got := legalPairs(&b, &m)
		want := referencePairs(t, pos)
		if diff := cmp.Diff(want, got); diff != "" {
			t.Errorf("%s: legal moves differ (-reference +ours):\n%s", pos, diff)
		}
	}
}
