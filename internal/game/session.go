// Package game drives a chess game through square clicks: selection,
// move execution, promotion and the end-of-turn bookkeeping. A Session is
// safe for concurrent use; every operation holds one mutex for its whole
// duration.
package game

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/obslog"
)

// Phase is the state of the click protocol.
type Phase uint8

const (
	Idle Phase = iota
	Selected
	PromotionPending
	Over
)

var phaseNames = [...]string{"idle", "selected", "promotion_pending", "over"}

// String returns the phase name.
func (p Phase) String() string {
	if int(p) >= len(phaseNames) {
		return "unknown"
	}
	return phaseNames[p]
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// UnmarshalText decodes a phase name.
func (p *Phase) UnmarshalText(text []byte) error {
	for i, name := range phaseNames {
		if name == string(text) {
			*p = Phase(i)
			return nil
		}
	}
	return fmt.Errorf("unknown phase %q", text)
}

// Snapshot is a copy of the session state. It shares no memory with the
// session.
type Snapshot struct {
	ID       string         `json:"id"`
	Started  time.Time      `json:"started"`
	Board    board.Board    `json:"board"`
	Meta     board.GameMeta `json:"meta"`
	Phase    Phase          `json:"phase"`
	Selected board.Square   `json:"selected"`
	// Highlights are the legal moves of the selected piece.
	Highlights board.MoveList `json:"highlights,omitempty"`
	Position   string         `json:"position"`
	History    []int          `json:"history"`
	Plies      []string       `json:"plies"`
	// PendingMove is the coordinate move awaiting its promotion letter.
	PendingMove string `json:"pending_move,omitempty"`
}

// ClickResult is returned by Click.
type ClickResult struct {
	// Moves lists the legal destinations of a newly selected piece. It is
	// empty after a deselect, a completed move or an ignored click.
	Moves    board.MoveList `json:"moves"`
	Moved    bool           `json:"moved"`
	Snapshot Snapshot       `json:"snapshot"`
}

// Option configures a Session.
type Option func(*Session)

// WithClock sets the time source used for game timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithObserver registers o before the first game starts.
func WithObserver(o Observer) Option {
	return func(s *Session) { s.observers = append(s.observers, o) }
}

// Session owns one board, its metadata, the score history and the current
// selection.
type Session struct {
	mu sync.Mutex

	id       string
	started  time.Time
	board    board.Board
	meta     board.GameMeta
	history  []int
	plies    []string
	selected board.Square
	// pendingPly is the coordinate move waiting for its promotion letter.
	pendingPly string

	observers []Observer
	outbox    outbox
	now       func() time.Time
}

// NewSession returns a session with a new game already set up.
func NewSession(opts ...Option) *Session {
	s := &Session{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	s.reset()
	return s
}

// Subscribe registers an observer for all later events.
func (s *Session) Subscribe(o Observer) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, o)
}

// NewGame replaces the board, metadata, history and selection wholesale.
// An unfinished game that had moves is reported in the event summary.
func (s *Session) NewGame() Snapshot {
	s.mu.Lock()
	var prev *Summary
	if len(s.plies) > 0 && !s.meta.GameOver {
		sum := s.summaryLocked(ResultUnfinished)
		prev = &sum
	}
	s.reset()
	snap := s.snapshotLocked()
	s.emitLocked(Event{Kind: EventNewGame, Square: board.NoSquare, Snapshot: snap, Summary: prev})
	s.mu.Unlock()

	obslog.L().Info("new game", zap.String("game_id", snap.ID))
	s.outbox.flush()
	return snap
}

func (s *Session) reset() {
	s.board = board.StartingBoard()
	meta, err := board.NewGameMeta(&s.board)
	if err != nil {
		panic(err)
	}
	s.meta = meta
	s.id = uuid.NewString()
	s.started = s.now()
	s.history = nil
	s.plies = nil
	s.selected = board.NoSquare
	s.pendingPly = ""
}

// LoadPosition starts a new game from a full position string. The score
// history and ply log begin empty.
func (s *Session) LoadPosition(pos string) (Snapshot, error) {
	b, m, err := board.ParsePosition(pos)
	if err != nil {
		return Snapshot{}, err
	}

	s.mu.Lock()
	s.reset()
	s.board = b
	s.meta = m
	snap := s.snapshotLocked()
	s.emitLocked(Event{Kind: EventNewGame, Square: board.NoSquare, Snapshot: snap})
	s.mu.Unlock()

	s.outbox.flush()
	return snap, nil
}

// Restore replaces the session with a previously taken snapshot.
func (s *Session) Restore(snap Snapshot) error {
	b := snap.Board
	m := snap.Meta
	if err := m.CheckSynced(&b); err != nil {
		return fmt.Errorf("restore %s: %w", snap.ID, err)
	}
	if _, err := uuid.Parse(snap.ID); err != nil {
		return fmt.Errorf("restore: game id: %w", err)
	}

	s.mu.Lock()
	s.id = snap.ID
	s.started = snap.Started
	s.board = b
	s.meta = m
	s.history = append([]int(nil), snap.History...)
	s.plies = append([]string(nil), snap.Plies...)
	s.selected = board.NoSquare
	s.pendingPly = snap.PendingMove
	out := s.snapshotLocked()
	s.emitLocked(Event{Kind: EventBoard, Square: board.NoSquare, Snapshot: out})
	s.mu.Unlock()

	s.outbox.flush()
	return nil
}

// Click runs one step of the selection protocol for the square reference
// sq ("a1".."h8"). Illegal destinations are not errors: they reselect or
// deselect. Clicks while a promotion is pending or after game over change
// nothing.
func (s *Session) Click(sq string) (ClickResult, error) {
	target, err := board.ParseSquare(sq)
	if err != nil {
		return ClickResult{}, moveError("click", sq, board.NoSquare, err)
	}

	s.mu.Lock()
	res, events := s.clickLocked(target)
	if res.Moves == nil {
		res.Moves = board.MoveList{}
	}
	res.Snapshot = s.snapshotLocked()
	for i := range events {
		events[i].Snapshot = res.Snapshot
	}
	s.emitLocked(events...)
	s.mu.Unlock()

	s.outbox.flush()
	return res, nil
}

func (s *Session) clickLocked(target board.Square) (ClickResult, []Event) {
	if s.meta.GameOver || s.meta.PromotionPending() {
		return ClickResult{}, nil
	}

	switch {
	case s.selected == board.NoSquare:
		return ClickResult{Moves: s.selectLocked(target)}, nil

	case s.selected == target:
		s.selected = board.NoSquare
		return ClickResult{}, nil
	}

	legal := board.LegalMovesFrom(s.selected, &s.meta, &s.board)
	if mv, ok := legal.Find(target); ok {
		src := s.selected
		s.selected = board.NoSquare
		return ClickResult{Moved: true}, s.executeLocked(src, mv)
	}
	return ClickResult{Moves: s.selectLocked(target)}, nil
}

// selectLocked selects sq when its piece has legal moves and clears the
// selection otherwise.
func (s *Session) selectLocked(sq board.Square) board.MoveList {
	moves := board.LegalMovesFrom(sq, &s.meta, &s.board)
	if len(moves) == 0 {
		s.selected = board.NoSquare
		return board.MoveList{}
	}
	s.selected = sq
	return moves
}

// Hover previews legal moves without changing anything: those of the
// selected piece if there is one, else those of the piece on sq.
func (s *Session) Hover(sq string) (board.MoveList, error) {
	target, err := board.ParseSquare(sq)
	if err != nil {
		return nil, moveError("hover", sq, board.NoSquare, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.meta.GameOver || s.meta.PromotionPending() {
		return board.MoveList{}, nil
	}
	if s.selected.IsValid() {
		target = s.selected
	}
	moves := board.LegalMovesFrom(target, &s.meta, &s.board)
	if moves == nil {
		moves = board.MoveList{}
	}
	return moves, nil
}

// promotionPiece maps the promotion input letter to a piece type.
func promotionPiece(choice byte) (board.PieceType, bool) {
	switch choice {
	case 'Q':
		return board.Queen, true
	case 'R':
		return board.Rook, true
	case 'B':
		return board.Bishop, true
	case 'N':
		return board.Knight, true
	}
	return board.NoPieceType, false
}

// Promote replaces the pending pawn with the chosen piece (one of 'Q', 'R',
// 'B', 'N') and finishes the turn.
func (s *Session) Promote(choice byte) (Snapshot, error) {
	s.mu.Lock()
	if !s.meta.PromotionPending() {
		s.mu.Unlock()
		return Snapshot{}, moveError("promote", string(choice), board.NoSquare, ErrNoPromotionPending)
	}
	pt, ok := promotionPiece(choice)
	if !ok {
		sq := s.meta.PromotablePawn
		s.mu.Unlock()
		return Snapshot{}, moveError("promote", string(choice), sq, fmt.Errorf("%w: %q", ErrInvalidPromotion, choice))
	}

	events := s.promoteLocked(pt)
	snap := s.snapshotLocked()
	for i := range events {
		events[i].Snapshot = snap
	}
	s.emitLocked(events...)
	s.mu.Unlock()

	s.outbox.flush()
	return snap, nil
}

// ApplyMove plays a coordinate move such as "e2e4" or "e7e8q" through the
// same legality checks as a click pair. A promotion letter completes the
// promotion in the same call; without one the session waits for Promote.
func (s *Session) ApplyMove(coord string) (Snapshot, error) {
	return s.applyMove("apply", coord, EventBoard)
}

// ApplyEngineMove is ApplyMove for suggestions from the search engine;
// observers see an engine_move event.
func (s *Session) ApplyEngineMove(coord string) (Snapshot, error) {
	return s.applyMove("engine", coord, EventEngineMove)
}

func (s *Session) applyMove(op, coord string, kind EventKind) (Snapshot, error) {
	cm, err := board.ParseCoordinateMove(coord)
	if err != nil {
		return Snapshot{}, moveError(op, coord, board.NoSquare, err)
	}

	s.mu.Lock()
	events, err := s.applyMoveLocked(cm)
	if err != nil {
		s.mu.Unlock()
		return Snapshot{}, moveError(op, coord, cm.From, err)
	}
	snap := s.snapshotLocked()
	for i := range events {
		events[i].Snapshot = snap
		if events[i].Kind == EventBoard {
			events[i].Kind = kind
			events[i].Move = cm.String()
		}
	}
	s.emitLocked(events...)
	s.mu.Unlock()

	s.outbox.flush()
	return snap, nil
}

func (s *Session) applyMoveLocked(cm board.CoordinateMove) ([]Event, error) {
	switch {
	case s.meta.GameOver:
		return nil, ErrGameOver
	case s.meta.PromotionPending():
		return nil, ErrPromotionPending
	}

	p := s.board.Get(cm.From)
	if p.IsEmpty() {
		return nil, ErrEmptySelection
	}
	mv, ok := board.LegalMovesFrom(cm.From, &s.meta, &s.board).Find(cm.To)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrIllegalMove, cm)
	}
	if cm.Promotion != board.NoPieceType && !p.IsPromotable(cm.To) {
		return nil, fmt.Errorf("%w: %s does not promote", ErrIllegalMove, cm)
	}

	s.selected = board.NoSquare
	events := s.executeLocked(cm.From, mv)
	if cm.Promotion != board.NoPieceType && s.meta.PromotionPending() {
		events = append(events, s.promoteLocked(cm.Promotion)...)
	}
	return events, nil
}

// Snapshot returns a copy of the current state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Position returns the full position string of the current game.
func (s *Session) Position() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return board.PositionString(&s.board, &s.meta)
}

// History returns a copy of the per-turn score history.
func (s *Session) History() []int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]int{}, s.history...)
}

func (s *Session) phaseLocked() Phase {
	switch {
	case s.meta.GameOver:
		return Over
	case s.meta.PromotionPending():
		return PromotionPending
	case s.selected.IsValid():
		return Selected
	}
	return Idle
}

func (s *Session) snapshotLocked() Snapshot {
	snap := Snapshot{
		ID:       s.id,
		Started:  s.started,
		Board:    s.board,
		Meta:     s.meta,
		Phase:    s.phaseLocked(),
		Selected: s.selected,
		Position: board.PositionString(&s.board, &s.meta),
		History:  append([]int{}, s.history...),
		Plies:    append([]string{}, s.plies...),

		PendingMove: s.pendingPly,
	}
	if s.selected.IsValid() {
		snap.Highlights = board.LegalMovesFrom(s.selected, &s.meta, &s.board)
	}
	return snap
}

func (s *Session) summaryLocked(result Result) Summary {
	return Summary{
		ID:            s.id,
		Started:       s.started,
		Finished:      s.now(),
		Result:        result,
		FinalPosition: board.PositionString(&s.board, &s.meta),
		ScoreHistory:  append([]int{}, s.history...),
		Plies:         append([]string{}, s.plies...),
	}
}

// emitLocked queues events for the current observers. Queuing under the
// lock fixes their delivery order to the order of the changes.
func (s *Session) emitLocked(events ...Event) {
	s.outbox.push(s.observers, events...)
}
