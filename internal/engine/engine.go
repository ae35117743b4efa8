// Package engine runs the search collaborator behind a request channel.
// The Actor owns the searcher; callers only ever see coordinate moves,
// which they feed back into the game session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/game"
	"github.com/hailam/clickchess/internal/obslog"
)

// ErrClosed is returned by requests sent after Close.
var ErrClosed = errors.New("engine actor closed")

// Searcher picks a move for a full position string within budget.
type Searcher interface {
	BestMove(ctx context.Context, position string, budget time.Duration) (string, error)
}

// newGamer is implemented by searchers that keep state between moves.
type newGamer interface {
	NewGame(ctx context.Context) error
}

// Request is a message for the actor.
type Request interface {
	isRequest()
}

// RequestMove asks for a move in Position. When Reply is nil the answer
// goes to the Suggestions channel.
type RequestMove struct {
	Position string
	Reply    chan<- Suggestion
}

// SetMoveTime changes the budget of later searches.
type SetMoveTime struct {
	MoveTime time.Duration
}

// NewGame drops cached answers and resets the searcher.
type NewGame struct{}

func (RequestMove) isRequest() {}
func (SetMoveTime) isRequest() {}
func (NewGame) isRequest()     {}

// Suggestion is the actor's answer to a RequestMove.
type Suggestion struct {
	Position string
	Move     string
	Err      error
	Elapsed  time.Duration
	Cached   bool
}

// Actor serialises access to a Searcher on its own goroutine.
type Actor struct {
	searcher    Searcher
	requests    chan Request
	suggestions chan Suggestion
	moveTime    time.Duration
	tt          *TranspositionTable

	// autoplay is the side the actor moves for when observing a session.
	autoplay    board.Color
	autoplaySet bool

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Option configures an Actor.
type Option func(*Actor)

// WithCacheSize sets the number of cached answers. Zero disables the cache.
func WithCacheSize(n int) Option {
	return func(a *Actor) {
		if n <= 0 {
			a.tt = nil
			return
		}
		a.tt = NewTranspositionTable(n)
	}
}

// WithAutoplay makes OnEvent request a move whenever c is to move.
func WithAutoplay(c board.Color) Option {
	return func(a *Actor) {
		a.autoplay = c
		a.autoplaySet = true
	}
}

// NewActor starts an actor around s.
func NewActor(s Searcher, moveTime time.Duration, opts ...Option) *Actor {
	if moveTime <= 0 {
		moveTime = time.Second
	}
	ctx, cancel := context.WithCancel(context.Background())
	a := &Actor{
		searcher:    s,
		requests:    make(chan Request, 8),
		suggestions: make(chan Suggestion, 8),
		moveTime:    moveTime,
		tt:          NewTranspositionTable(4096),
		ctx:         ctx,
		cancel:      cancel,
		done:        make(chan struct{}),
	}
	for _, opt := range opts {
		opt(a)
	}
	go a.run()
	return a
}

// Suggestions delivers answers to requests sent without a Reply channel.
// It is closed when the actor stops.
func (a *Actor) Suggestions() <-chan Suggestion {
	return a.suggestions
}

// Send queues req.
func (a *Actor) Send(ctx context.Context, req Request) error {
	select {
	case <-a.done:
		return ErrClosed
	default:
	}
	select {
	case a.requests <- req:
		return nil
	case <-a.done:
		return ErrClosed
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RequestMove queues a search whose answer arrives on Suggestions.
func (a *Actor) RequestMove(ctx context.Context, position string) error {
	return a.Send(ctx, RequestMove{Position: position})
}

// BestMove asks for a move and waits for it.
func (a *Actor) BestMove(ctx context.Context, position string) (Suggestion, error) {
	reply := make(chan Suggestion, 1)
	if err := a.Send(ctx, RequestMove{Position: position, Reply: reply}); err != nil {
		return Suggestion{}, err
	}
	select {
	case s := <-reply:
		return s, s.Err
	case <-a.done:
		return Suggestion{}, ErrClosed
	case <-ctx.Done():
		return Suggestion{}, ctx.Err()
	}
}

// SetMoveTime changes the search budget.
func (a *Actor) SetMoveTime(ctx context.Context, d time.Duration) error {
	return a.Send(ctx, SetMoveTime{MoveTime: d})
}

// Close stops the actor, abandoning any search in progress.
func (a *Actor) Close() {
	a.once.Do(func() {
		a.cancel()
		<-a.done
	})
}

func (a *Actor) run() {
	defer close(a.suggestions)
	defer close(a.done)

	for {
		select {
		case <-a.ctx.Done():
			return
		case req := <-a.requests:
			a.handle(req)
		}
	}
}

func (a *Actor) handle(req Request) {
	switch r := req.(type) {
	case SetMoveTime:
		if r.MoveTime > 0 {
			a.moveTime = r.MoveTime
			obslog.L().Debug("engine move time", zap.Duration("move_time", r.MoveTime))
		}
	case NewGame:
		if a.tt != nil {
			a.tt.NewGame()
		}
		if ng, ok := a.searcher.(newGamer); ok {
			if err := ng.NewGame(a.ctx); err != nil {
				obslog.L().Warn("engine new game", zap.Error(err))
			}
		}
	case RequestMove:
		s := a.search(r.Position)
		if r.Reply != nil {
			r.Reply <- s
			return
		}
		select {
		case a.suggestions <- s:
		case <-a.ctx.Done():
		}
	}
}

func (a *Actor) search(position string) Suggestion {
	s := Suggestion{Position: position}
	b, m, err := board.ParsePosition(position)
	if err != nil {
		s.Err = fmt.Errorf("engine request: %w", err)
		return s
	}
	if m.GameOver {
		s.Err = fmt.Errorf("engine request: %w", game.ErrGameOver)
		return s
	}

	hash := board.Hash(&b, &m)
	if a.tt != nil {
		if mv, ok := a.tt.Probe(hash, a.moveTime); ok {
			s.Move, s.Cached = mv, true
			return s
		}
	}

	start := time.Now()
	obslog.L().Debug("engine search", zap.String("position", position), zap.Duration("budget", a.moveTime))
	mv, err := a.searcher.BestMove(a.ctx, position, a.moveTime)
	s.Elapsed = time.Since(start)
	if err != nil {
		obslog.L().Warn("engine search failed", zap.String("position", position), zap.Error(err))
		s.Err = err
		return s
	}
	if a.tt != nil {
		a.tt.Store(hash, mv, a.moveTime)
	}
	obslog.L().Info("engine move", zap.String("move", mv), zap.Duration("elapsed", s.Elapsed))
	s.Move = mv
	return s
}

// OnEvent requests a move whenever the autoplay side is to move, and
// resets the searcher on a new game.
func (a *Actor) OnEvent(e game.Event) {
	if e.Kind == game.EventNewGame {
		if err := a.Send(a.ctx, NewGame{}); err != nil {
			return
		}
	}
	if !a.autoplaySet {
		return
	}
	switch e.Kind {
	case game.EventNewGame, game.EventBoard, game.EventEngineMove:
	default:
		return
	}
	snap := e.Snapshot
	if snap.Phase == game.Over || snap.Phase == game.PromotionPending {
		return
	}
	if snap.Meta.ActiveColor() != a.autoplay {
		return
	}
	if err := a.RequestMove(a.ctx, snap.Position); err != nil {
		obslog.L().Debug("engine autoplay request dropped", zap.Error(err))
	}
}

// Pump applies every suggestion to s until the actor closes or ctx ends.
// Failed suggestions are logged and skipped.
func Pump(ctx context.Context, a *Actor, s *game.Session) {
	for {
		select {
		case <-ctx.Done():
			return
		case sug, ok := <-a.Suggestions():
			if !ok {
				return
			}
			if sug.Err != nil {
				continue
			}
			if s.Position() != sug.Position {
				obslog.L().Debug("engine suggestion is stale", zap.String("move", sug.Move))
				continue
			}
			if _, err := s.ApplyEngineMove(sug.Move); err != nil {
				obslog.L().Warn("engine move rejected", zap.String("move", sug.Move), zap.Error(err))
			}
		}
	}
}
