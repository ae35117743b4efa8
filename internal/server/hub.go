package server

import (
	"context"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hailam/clickchess/internal/game"
	"github.com/hailam/clickchess/internal/obslog"
)

// EventSnapshot greets a new subscriber with the current state.
const EventSnapshot game.EventKind = "snapshot"

const (
	clientBuffer = 32
	writeTimeout = 5 * time.Second
)

type subscriber struct {
	events chan game.Event
	// gone is closed when the hub drops the subscriber.
	gone chan struct{}
	once sync.Once
}

func (s *subscriber) drop() {
	s.once.Do(func() { close(s.gone) })
}

// Hub fans session events out to websocket subscribers. It is a
// game.Observer; register it on the session it should broadcast.
type Hub struct {
	state func() game.Snapshot

	mu   sync.Mutex
	subs map[*subscriber]struct{}
}

// NewHub returns a hub that greets subscribers with state().
func NewHub(state func() game.Snapshot) *Hub {
	return &Hub{state: state, subs: make(map[*subscriber]struct{})}
}

// OnEvent queues e for every subscriber. Subscribers that fall behind are
// disconnected.
func (h *Hub) OnEvent(e game.Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		select {
		case s.events <- e:
		default:
			obslog.L().Warn("events: dropping slow subscriber")
			delete(h.subs, s)
			s.drop()
		}
	}
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) add() *subscriber {
	s := &subscriber{events: make(chan game.Event, clientBuffer), gone: make(chan struct{})}
	h.mu.Lock()
	h.subs[s] = struct{}{}
	h.mu.Unlock()
	return s
}

func (h *Hub) remove(s *subscriber) {
	h.mu.Lock()
	delete(h.subs, s)
	h.mu.Unlock()
	s.drop()
}

// Close disconnects every subscriber.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for s := range h.subs {
		delete(h.subs, s)
		s.drop()
	}
}

// ServeHTTP upgrades the request and streams events as JSON messages.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	if err != nil {
		obslog.L().Warn("events: accept failed", zap.Error(err))
		return
	}
	defer conn.CloseNow()

	// Subscribers only listen; reading is left to the library so pings
	// and close frames are handled.
	ctx := conn.CloseRead(r.Context())

	sub := h.add()
	defer h.remove(sub)
	obslog.L().Debug("events: subscriber connected", zap.String("remote", r.RemoteAddr))

	if h.state != nil {
		if err := write(ctx, conn, game.Event{Kind: EventSnapshot, Snapshot: h.state()}); err != nil {
			return
		}
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.gone:
			conn.Close(websocket.StatusPolicyViolation, "subscriber dropped")
			return
		case e := <-sub.events:
			if err := write(ctx, conn, e); err != nil {
				obslog.L().Debug("events: write failed", zap.Error(err))
				return
			}
		}
	}
}

func write(ctx context.Context, conn *websocket.Conn, e game.Event) error {
	ctx, cancel := context.WithTimeout(ctx, writeTimeout)
	defer cancel()
	return wsjson.Write(ctx, conn, e)
}

// ListenAndServe serves the hub at /events on addr until ctx is cancelled.
func (h *Hub) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return h.Serve(ctx, ln)
}

// Serve serves the hub at /events on ln until ctx is cancelled.
func (h *Hub) Serve(ctx context.Context, ln net.Listener) error {
	mux := http.NewServeMux()
	mux.Handle("/events", h)
	srv := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()
	obslog.L().Info("events listening", zap.String("addr", ln.Addr().String()))

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		h.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errCh; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}
