package game

import (
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/hailam/clickchess/internal/board"
)

// EventKind names a session notification.
type EventKind string

const (
	EventNewGame    EventKind = "new_game"
	EventBoard      EventKind = "board"
	EventPromotion  EventKind = "promotion"
	EventGameOver   EventKind = "game_over"
	EventEngineMove EventKind = "engine_move"
)

// Event is delivered to observers after the session lock is released, in
// the order the session changes were made.
type Event struct {
	Kind     EventKind    `json:"event"`
	Square   board.Square `json:"square"`
	Move     string       `json:"move,omitempty"`
	Snapshot Snapshot     `json:"snapshot"`
	// Summary is set on game_over, and on new_game when an unfinished game
	// was replaced.
	Summary *Summary `json:"summary,omitempty"`
}

// Observer receives session events. OnEvent runs on a goroutine that
// changed the session and should return quickly. An observer may call back
// into the session; the resulting events are delivered after the current
// one returns.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f(e).
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// Result is the outcome of a game in PGN result notation.
type Result string

const (
	ResultWhiteWins  Result = "1-0"
	ResultBlackWins  Result = "0-1"
	ResultUnfinished Result = "*"
)

// Winner returns the result for a mate delivered by c.
func Winner(c board.Color) Result {
	if c == board.White {
		return ResultWhiteWins
	}
	return ResultBlackWins
}

// Summary is the record of a game kept after it ends or is replaced.
type Summary struct {
	ID            string    `json:"id"`
	Started       time.Time `json:"started"`
	Finished      time.Time `json:"finished"`
	Result        Result    `json:"result"`
	FinalPosition string    `json:"final_position"`
	ScoreHistory  []int     `json:"score_history"`
	Plies         []string  `json:"plies"`
}

// FirstTurn is the turn index (0 for White's first move) of the first
// ply, counted back from the final position. Games loaded mid-way start
// past zero, and on an odd index when Black moved first. It is zero when
// the final position cannot be read.
func (s Summary) FirstTurn() int {
	fields := strings.Fields(s.FinalPosition)
	if len(fields) != 6 {
		return 0
	}
	fullMove, err := strconv.Atoi(fields[5])
	if err != nil || fullMove < 1 {
		return 0
	}
	turn := (fullMove - 1) * 2
	if fields[1] == "b" {
		turn++
	}
	if turn -= len(s.Plies); turn < 0 {
		return 0
	}
	return turn
}

type delivery struct {
	observers []Observer
	event     Event
}

// outbox delivers events one at a time in the order they were queued.
// Events are queued under the session lock and flushed after it is
// released by whichever caller is not already flushing.
type outbox struct {
	mu       sync.Mutex
	queue    []delivery
	flushing bool
}

func (o *outbox) push(observers []Observer, events ...Event) {
	if len(observers) == 0 || len(events) == 0 {
		return
	}
	o.mu.Lock()
	for _, e := range events {
		o.queue = append(o.queue, delivery{observers: observers, event: e})
	}
	o.mu.Unlock()
}

// flush delivers queued events until the queue is empty. A call made while
// another goroutine is flushing returns at once; that goroutine picks up
// the new events before it stops.
func (o *outbox) flush() {
	o.mu.Lock()
	if o.flushing {
		o.mu.Unlock()
		return
	}
	o.flushing = true
	for len(o.queue) > 0 {
		d := o.queue[0]
		o.queue[0] = delivery{}
		o.queue = o.queue[1:]
		o.mu.Unlock()
		for _, obs := range d.observers {
			obs.OnEvent(d.event)
		}
		o.mu.Lock()
	}
	o.queue = nil
	o.flushing = false
	o.mu.Unlock()
}
