package game

import (
	"errors"
	"math/rand/v2"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/hailam/clickchess/internal/board"
)

var fixedStart = time.Date(2024, 3, 9, 12, 0, 0, 0, time.UTC)

func newTestSession(t *testing.T, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithClock(func() time.Time { return fixedStart })}, opts...)
	return NewSession(opts...)
}

// play clicks each source/destination pair in turn and fails if any pair
// does not complete a move.
func play(t *testing.T, s *Session, moves ...string) {
	t.Helper()
	for _, mv := range moves {
		if _, err := s.Click(mv[:2]); err != nil {
			t.Fatalf("click %s: %v", mv[:2], err)
		}
		res, err := s.Click(mv[2:4])
		if err != nil {
			t.Fatalf("click %s: %v", mv[2:4], err)
		}
		if !res.Moved {
			t.Fatalf("%s did not move; phase %v\n%v", mv, res.Snapshot.Phase, res.Snapshot.Board)
		}
	}
}

func mustLoad(t *testing.T, s *Session, pos string) {
	t.Helper()
	if _, err := s.LoadPosition(pos); err != nil {
		t.Fatalf("LoadPosition(%q): %v", pos, err)
	}
}

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) OnEvent(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) kinds() []EventKind {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]EventKind, len(r.events))
	for i, e := range r.events {
		out[i] = e.Kind
	}
	return out
}

func (r *recorder) last() Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.events[len(r.events)-1]
}

func TestNewSessionStartPosition(t *testing.T) {
	s := newTestSession(t)
	snap := s.Snapshot()

	if snap.Position != board.StartPosition {
		t.Errorf("Position = %q", snap.Position)
	}
	if snap.Phase != Idle || snap.Selected != board.NoSquare {
		t.Errorf("phase %v, selected %v; want idle with no selection", snap.Phase, snap.Selected)
	}
	if len(snap.History) != 0 || len(snap.Plies) != 0 {
		t.Errorf("history %v plies %v, want empty", snap.History, snap.Plies)
	}
	if !snap.Started.Equal(fixedStart) {
		t.Errorf("Started = %v", snap.Started)
	}
	if snap.ID == "" {
		t.Error("empty game id")
	}
}

func TestScholarsMate(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, WithObserver(rec))

	play(t, s, "e2e4", "e7e5", "f1c4", "b8c6", "d1h5", "g8f6", "h5f7")

	snap := s.Snapshot()
	if !snap.Meta.GameOver || snap.Phase != Over {
		t.Fatalf("game not over: phase %v", snap.Phase)
	}
	king := snap.Board.Get(board.E8)
	if !king.InCheck || !king.Checkmated {
		t.Errorf("black king flags %+v, want in check and checkmated", king)
	}
	if snap.Meta.Kings[board.Black].Piece != king {
		t.Error("king metadata out of sync with the board")
	}
	b, m := snap.Board, snap.Meta
	if board.HasLegalMoves(board.Black, &m, &b) {
		t.Error("mated side still has legal moves")
	}

	wantPos := "r1bqkb1r/pppp1Qpp/2n2n2/4p3/2B1P3/8/PPPP1PPP/RNB1K1NR b KQkq - 0 4"
	if snap.Position != wantPos {
		t.Errorf("Position\n got %q\nwant %q", snap.Position, wantPos)
	}
	if diff := cmp.Diff([]int{0, 0, 0, 0, 0, 0, 100}, snap.History); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}

	last := rec.last()
	if last.Kind != EventGameOver || last.Summary == nil {
		t.Fatalf("last event = %+v, want game_over with summary", last.Kind)
	}
	if last.Summary.Result != ResultWhiteWins || len(last.Summary.Plies) != 7 {
		t.Errorf("summary = %+v", last.Summary)
	}
	if last.Square != board.E8 {
		t.Errorf("game_over square = %v, want e8", last.Square)
	}

	// Clicks after game over change nothing.
	res, err := s.Click("e8")
	if err != nil {
		t.Fatal(err)
	}
	if len(res.Moves) != 0 || res.Moved {
		t.Errorf("click after mate = %+v", res)
	}
	if diff := cmp.Diff(snap, s.Snapshot()); diff != "" {
		t.Errorf("state changed after game over (-want +got):\n%s", diff)
	}
}

func TestClickSameSquareTwiceIsIdempotent(t *testing.T) {
	s := newTestSession(t)
	before := s.Snapshot()

	for round := 0; round < 2; round++ {
		first, err := s.Click("e2")
		if err != nil {
			t.Fatal(err)
		}
		want := board.MoveList{{To: board.E3, Kind: board.Normal}, {To: board.E4, Kind: board.DoublePush}}
		if diff := cmp.Diff(want, first.Moves); diff != "" {
			t.Errorf("round %d selection (-want +got):\n%s", round, diff)
		}
		if first.Snapshot.Phase != Selected || first.Snapshot.Selected != board.E2 {
			t.Errorf("round %d: phase %v selected %v", round, first.Snapshot.Phase, first.Snapshot.Selected)
		}

		second, err := s.Click("e2")
		if err != nil {
			t.Fatal(err)
		}
		if len(second.Moves) != 0 || second.Moves == nil {
			t.Errorf("round %d deselect moves = %#v, want empty", round, second.Moves)
		}
		if second.Snapshot.Phase != Idle {
			t.Errorf("round %d: phase %v after deselect", round, second.Snapshot.Phase)
		}
	}

	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Errorf("selection drifted (-want +got):\n%s", diff)
	}
}

func TestClickSelectionRules(t *testing.T) {
	s := newTestSession(t)

	t.Run("EnemyPieceNotSelected", func(t *testing.T) {
		res, _ := s.Click("e7")
		if len(res.Moves) != 0 || res.Snapshot.Phase != Idle {
			t.Errorf("black pawn selected on white's turn: %+v", res.Moves)
		}
	})

	t.Run("NoLegalMovesNotSelected", func(t *testing.T) {
		res, _ := s.Click("a1")
		if len(res.Moves) != 0 || res.Snapshot.Phase != Idle {
			t.Errorf("blocked rook selected: %+v", res.Moves)
		}
	})

	t.Run("EmptySquare", func(t *testing.T) {
		res, _ := s.Click("e4")
		if len(res.Moves) != 0 || res.Snapshot.Phase != Idle {
			t.Errorf("empty square selected")
		}
	})

	t.Run("ReselectOwnPiece", func(t *testing.T) {
		s.Click("g1")
		res, _ := s.Click("b1")
		if res.Moved || res.Snapshot.Selected != board.B1 {
			t.Fatalf("reselect failed: selected %v", res.Snapshot.Selected)
		}
		if !res.Moves.Contains(board.A3) || !res.Moves.Contains(board.C3) {
			t.Errorf("b1 knight moves = %v", res.Moves)
		}
	})

	t.Run("IllegalDestinationDeselects", func(t *testing.T) {
		res, _ := s.Click("e5")
		if res.Moved || res.Snapshot.Phase != Idle {
			t.Errorf("click on unreachable empty square: moved %v phase %v", res.Moved, res.Snapshot.Phase)
		}
		if s.Position() != board.StartPosition {
			t.Error("board changed")
		}
	})
}

func TestClickInvalidSquare(t *testing.T) {
	s := newTestSession(t)
	for _, in := range []string{"z9", "e", "e10", "E2", ""} {
		_, err := s.Click(in)
		if !errors.Is(err, board.ErrInvalidSquare) {
			t.Errorf("Click(%q) error = %v, want ErrInvalidSquare", in, err)
		}
		var me *MoveError
		if !errors.As(err, &me) || me.Op != "click" || me.Input != in {
			t.Errorf("Click(%q) error %v is not a click MoveError", in, err)
		}
	}
	if s.Position() != board.StartPosition {
		t.Error("format error mutated the board")
	}
}

func TestEnPassantTargetLifetime(t *testing.T) {
	s := newTestSession(t)

	play(t, s, "e2e4")
	if got := s.Snapshot().Meta.EnPassant; got != board.E4 {
		t.Fatalf("EnPassant after e2e4 = %v, want e4", got)
	}
	if pos := s.Position(); pos != "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1" {
		t.Errorf("Position = %q", pos)
	}

	play(t, s, "a7a6")
	if got := s.Snapshot().Meta.EnPassant; got != board.NoSquare {
		t.Fatalf("EnPassant not cleared by the next move: %v", got)
	}

	play(t, s, "e4e5", "d7d5")
	res, _ := s.Click("e5")
	mv, ok := res.Moves.Find(board.D6)
	if !ok || mv.Kind != board.EnPassant {
		t.Fatalf("e5 moves %v lack en passant", res.Moves)
	}
	if res, _ = s.Click("d6"); !res.Moved {
		t.Fatal("en passant not played")
	}

	snap := s.Snapshot()
	if !snap.Board.Get(board.D5).IsEmpty() {
		t.Error("captured pawn still on d5")
	}
	if snap.Meta.HalfMoveClock != 0 || snap.History[len(snap.History)-1] != 100 {
		t.Errorf("clock %d score %v after en passant", snap.Meta.HalfMoveClock, snap.History)
	}
}

func TestCastlingThroughClicks(t *testing.T) {
	s := newTestSession(t)
	mustLoad(t, s, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1")

	res, _ := s.Click("e1")
	if mv, ok := res.Moves.Find(board.G1); !ok || mv.Kind != board.Castle {
		t.Fatalf("e1 moves %v lack kingside castle", res.Moves)
	}
	res, _ = s.Click("g1")
	if !res.Moved {
		t.Fatal("castle not played")
	}

	if got, want := s.Position(), "r3k2r/8/8/8/8/8/8/R4RK1 b kq - 1 1"; got != want {
		t.Errorf("Position = %q, want %q", got, want)
	}
	snap := s.Snapshot()
	if snap.Meta.KingSquare(board.White) != board.G1 {
		t.Errorf("tracked king on %v, want g1", snap.Meta.KingSquare(board.White))
	}
	b, m := snap.Board, snap.Meta
	if err := m.CheckSynced(&b); err != nil {
		t.Error(err)
	}

	play(t, s, "e8c8")
	if got, want := s.Position(), "2kr3r/8/8/8/8/8/8/R4RK1 w - - 2 2"; got != want {
		t.Errorf("Position = %q, want %q", got, want)
	}
}

func TestPromotion(t *testing.T) {
	const pos = "4k3/P7/8/8/8/8/8/4K3 w - - 0 1"
	rec := &recorder{}
	s := newTestSession(t, WithObserver(rec))
	mustLoad(t, s, pos)

	if _, err := s.Promote('Q'); !errors.Is(err, ErrNoPromotionPending) {
		t.Errorf("Promote without pending = %v, want ErrNoPromotionPending", err)
	}

	play(t, s, "a7a8")
	pending := s.Snapshot()
	if pending.Phase != PromotionPending || pending.Meta.PromotablePawn != board.A8 {
		t.Fatalf("phase %v pawn %v, want promotion pending on a8", pending.Phase, pending.Meta.PromotablePawn)
	}
	if p := pending.Board.Get(board.A8); p.Type != board.Pawn {
		t.Errorf("a8 holds %v before the choice, want pawn", p)
	}
	if pending.Meta.Turn != 0 || len(pending.History) != 0 {
		t.Errorf("turn advanced before promotion: turn %d history %v", pending.Meta.Turn, pending.History)
	}
	if k := rec.last().Kind; k != EventPromotion {
		t.Errorf("last event %v, want promotion", k)
	}

	// Clicks, moves and bad letters are all refused without a change.
	if res, _ := s.Click("e1"); len(res.Moves) != 0 {
		t.Error("click accepted while promotion pending")
	}
	if _, err := s.ApplyMove("e1d2"); !errors.Is(err, ErrPromotionPending) {
		t.Errorf("ApplyMove while pending = %v", err)
	}
	for _, bad := range []byte{'K', 'P', 'q', 'x'} {
		if _, err := s.Promote(bad); !errors.Is(err, ErrInvalidPromotion) {
			t.Errorf("Promote(%q) = %v, want ErrInvalidPromotion", bad, err)
		}
	}
	if diff := cmp.Diff(pending, s.Snapshot()); diff != "" {
		t.Errorf("refused input changed state (-want +got):\n%s", diff)
	}

	snap, err := s.Promote('N')
	if err != nil {
		t.Fatalf("Promote: %v", err)
	}
	got := snap.Board.Get(board.A8)
	if got.Type != board.Knight || got.Color != board.White || !got.Moved {
		t.Errorf("a8 = %+v, want moved white knight", got)
	}
	if snap.Phase != Idle || snap.Meta.ActiveColor() != board.Black {
		t.Errorf("phase %v, side %v after promotion", snap.Phase, snap.Meta.ActiveColor())
	}
	if diff := cmp.Diff([]string{"a7a8n"}, snap.Plies); diff != "" {
		t.Errorf("plies (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]int{280}, snap.History); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
	if _, err := s.Promote('Q'); !errors.Is(err, ErrNoPromotionPending) {
		t.Errorf("second Promote = %v", err)
	}
}

func TestPromotionGivesCheck(t *testing.T) {
	s := newTestSession(t)
	mustLoad(t, s, "4k3/P7/8/8/8/8/8/4K3 w - - 0 1")
	play(t, s, "a7a8")
	snap, err := s.Promote('Q')
	if err != nil {
		t.Fatal(err)
	}
	if !snap.Board.Get(board.E8).InCheck {
		t.Error("queen on a8 should check the e8 king")
	}
	if snap.Meta.GameOver {
		t.Error("escapable check ended the game")
	}
}

func TestApplyMove(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, WithObserver(rec))

	tests := []struct {
		in   string
		want error
	}{
		{"e2e5", ErrIllegalMove},
		{"e3e4", ErrEmptySelection},
		{"e7e5", ErrIllegalMove},
		{"e2e4q", ErrIllegalMove},
		{"e2", nil},
	}
	for _, tc := range tests {
		_, err := s.ApplyMove(tc.in)
		if err == nil {
			t.Errorf("ApplyMove(%q) accepted", tc.in)
			continue
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Errorf("ApplyMove(%q) = %v, want %v", tc.in, err, tc.want)
		}
	}
	if s.Position() != board.StartPosition {
		t.Fatal("rejected moves changed the board")
	}

	if _, err := s.ApplyMove("e2e4"); err != nil {
		t.Fatalf("ApplyMove(e2e4): %v", err)
	}
	snap, err := s.ApplyEngineMove("c7c5")
	if err != nil {
		t.Fatalf("ApplyEngineMove(c7c5): %v", err)
	}
	if snap.Position != "rnbqkbnr/pp1ppppp/8/2p5/4P3/8/PPPP1PPP/RNBQKBNR w KQkq c6 0 2" {
		t.Errorf("Position = %q", snap.Position)
	}
	last := rec.last()
	if last.Kind != EventEngineMove || last.Move != "c7c5" {
		t.Errorf("last event %v %q, want engine_move c7c5", last.Kind, last.Move)
	}
	if diff := cmp.Diff([]EventKind{EventBoard, EventEngineMove}, rec.kinds()); diff != "" {
		t.Errorf("events (-want +got):\n%s", diff)
	}
}

func TestApplyMoveWithPromotion(t *testing.T) {
	s := newTestSession(t)
	mustLoad(t, s, "4k3/8/8/8/8/8/p7/4K3 b - - 0 1")

	snap, err := s.ApplyMove("a2a1r")
	if err != nil {
		t.Fatalf("ApplyMove: %v", err)
	}
	if p := snap.Board.Get(board.A1); p.Type != board.Rook || p.Color != board.Black {
		t.Errorf("a1 = %+v, want black rook", p)
	}
	if !snap.Board.Get(board.E1).InCheck {
		t.Error("rook on a1 should check the e1 king")
	}
	if diff := cmp.Diff([]string{"a2a1r"}, snap.Plies); diff != "" {
		t.Errorf("plies (-want +got):\n%s", diff)
	}

	// Without a letter the promotion waits for Promote.
	mustLoad(t, s, "4k3/8/8/8/8/8/p7/4K3 b - - 0 1")
	snap, err = s.ApplyMove("a2a1")
	if err != nil {
		t.Fatal(err)
	}
	if snap.Phase != PromotionPending {
		t.Errorf("phase %v, want promotion pending", snap.Phase)
	}
}

func TestHover(t *testing.T) {
	s := newTestSession(t)

	moves, err := s.Hover("g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(moves) != 2 {
		t.Errorf("g1 hover = %v", moves)
	}

	s.Click("e2")
	moves, _ = s.Hover("g1")
	if !moves.Contains(board.E4) || moves.Contains(board.F3) {
		t.Errorf("hover with e2 selected = %v, want e2's moves", moves)
	}
	if s.Snapshot().Selected != board.E2 {
		t.Error("hover changed the selection")
	}

	if _, err := s.Hover("j1"); !errors.Is(err, board.ErrInvalidSquare) {
		t.Errorf("Hover(j1) = %v", err)
	}
}

func TestNewGameReportsUnfinished(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, WithObserver(rec))
	play(t, s, "d2d4", "d7d5")
	oldID := s.Snapshot().ID

	snap := s.NewGame()
	if snap.ID == oldID {
		t.Error("new game kept the old id")
	}
	if snap.Position != board.StartPosition || len(snap.History) != 0 {
		t.Errorf("new game not reset: %q %v", snap.Position, snap.History)
	}

	last := rec.last()
	if last.Kind != EventNewGame || last.Summary == nil {
		t.Fatalf("last event %v, want new_game with summary", last.Kind)
	}
	if last.Summary.ID != oldID || last.Summary.Result != ResultUnfinished {
		t.Errorf("summary = %+v", last.Summary)
	}

	s.NewGame()
	if rec.last().Summary != nil {
		t.Error("empty game reported as unfinished")
	}
}

func TestRestore(t *testing.T) {
	a := newTestSession(t)
	play(t, a, "e2e4", "e7e5", "g1f3")
	snap := a.Snapshot()

	b := newTestSession(t)
	if err := b.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if diff := cmp.Diff(snap, b.Snapshot()); diff != "" {
		t.Errorf("restored state (-want +got):\n%s", diff)
	}
	play(t, b, "b8c6")

	broken := snap
	broken.Board.Clear(board.E1)
	if err := b.Restore(broken); !errors.Is(err, board.ErrKingMissing) {
		t.Errorf("Restore(broken) = %v, want ErrKingMissing", err)
	}
}

func TestConcurrentAccess(t *testing.T) {
	s := newTestSession(t)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				s.Snapshot()
				s.Hover("e2")
				s.Position()
			}
		}()
	}
	play(t, s, "e2e4", "e7e5", "g1f3", "b8c6")
	wg.Wait()

	if got := len(s.History()); got != 4 {
		t.Errorf("history length %d, want 4", got)
	}
}

// lastGame remembers the game id of the latest event it saw.
type lastGame struct {
	mu     sync.Mutex
	id     string
	events int
}

func (l *lastGame) OnEvent(e Event) {
	// widen the window between unlock and delivery
	time.Sleep(time.Duration(rand.IntN(200)) * time.Microsecond)
	l.mu.Lock()
	defer l.mu.Unlock()
	l.id = e.Snapshot.ID
	l.events++
}

func TestConcurrentEventsArriveInOrder(t *testing.T) {
	for round := 0; round < 20; round++ {
		seen := &lastGame{}
		s := newTestSession(t, WithObserver(seen))

		var wg sync.WaitGroup
		for i := 0; i < 4; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.NewGame()
			}()
		}
		wg.Wait()

		seen.mu.Lock()
		id, n := seen.id, seen.events
		seen.mu.Unlock()
		if n != 4 {
			t.Fatalf("round %d: observed %d events, want 4", round, n)
		}
		if want := s.Snapshot().ID; id != want {
			t.Fatalf("round %d: last observed game %s, current game %s", round, id, want)
		}
	}
}

func TestObserverMayCallBack(t *testing.T) {
	var s *Session
	var kinds []EventKind
	var moves []string
	s = newTestSession(t, WithObserver(ObserverFunc(func(e Event) {
		kinds = append(kinds, e.Kind)
		moves = append(moves, e.Move)
		if e.Kind == EventBoard && e.Move == "e2e4" {
			if _, err := s.ApplyEngineMove("e7e5"); err != nil {
				t.Errorf("reply from observer: %v", err)
			}
		}
	})))

	if _, err := s.ApplyMove("e2e4"); err != nil {
		t.Fatal(err)
	}
	want := []EventKind{EventBoard, EventEngineMove}
	if diff := cmp.Diff(want, kinds); diff != "" {
		t.Errorf("event kinds (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"e2e4", "e7e5"}, moves); diff != "" {
		t.Errorf("event moves (-want +got):\n%s", diff)
	}
}

func TestLoadPositionRejectsIllegalPlacement(t *testing.T) {
	s := newTestSession(t)
	before := s.Snapshot()

	for _, pos := range []string{
		"4k3/8/8/8/8/8/8/K3K3 w - - 0 1",
		"4k3/8/8/8/8/8/8/K3R3 w - - 0 1",
		"4k2P/8/8/8/8/8/8/4K3 b - - 0 1",
	} {
		if _, err := s.LoadPosition(pos); !errors.Is(err, board.ErrInvalidPosition) {
			t.Errorf("LoadPosition(%q) = %v, want ErrInvalidPosition", pos, err)
		}
	}
	if diff := cmp.Diff(before, s.Snapshot()); diff != "" {
		t.Errorf("rejected position changed the session (-want +got):\n%s", diff)
	}

	// with Black to move the check is legal and the rook cannot replace a king
	mustLoad(t, s, "4k3/8/8/8/8/8/8/K3R3 b - - 0 1")
	snap, err := s.ApplyMove("e8d7")
	if err != nil {
		t.Fatal(err)
	}
	if got := snap.Meta.Kings[board.White]; got.Square != board.A1 || !got.Piece.IsKing(board.White) {
		t.Errorf("white king meta = %+v, want king on a1", got)
	}
	if err := snap.Meta.CheckSynced(&snap.Board); err != nil {
		t.Error(err)
	}
}

func TestSummaryFirstTurn(t *testing.T) {
	rec := &recorder{}
	s := newTestSession(t, WithObserver(rec))
	mustLoad(t, s, "4k3/8/8/8/8/8/8/K3R3 b - - 0 7")
	play(t, s, "e8d7", "e1e2")
	s.NewGame()

	sum := rec.last().Summary
	if sum == nil {
		t.Fatal("no summary for the replaced game")
	}
	// Black's move of full move 7 is turn index 13
	if got := sum.FirstTurn(); got != 13 {
		t.Errorf("FirstTurn() = %d, want 13 (final %q)", got, sum.FinalPosition)
	}
	if got := (Summary{}).FirstTurn(); got != 0 {
		t.Errorf("empty summary FirstTurn() = %d, want 0", got)
	}
}
