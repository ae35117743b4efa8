// Package server exposes a game session over HTTP: a fasthttp command API
// and a websocket feed of session events.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/engine"
	"github.com/hailam/clickchess/internal/game"
	"github.com/hailam/clickchess/internal/obslog"
)

// MoveSuggester is the part of the engine actor the API uses.
type MoveSuggester interface {
	BestMove(ctx context.Context, position string) (engine.Suggestion, error)
}

// HoverResponse answers GET /hover.
type HoverResponse struct {
	Square string         `json:"square"`
	Moves  board.MoveList `json:"moves"`
}

// PositionResponse answers GET /position.
type PositionResponse struct {
	Position string `json:"position"`
}

// HistoryResponse answers GET /history.
type HistoryResponse struct {
	History []int    `json:"history"`
	Plies   []string `json:"plies"`
}

// EngineMoveResponse answers POST /engine/move.
type EngineMoveResponse struct {
	Move     string        `json:"move"`
	Cached   bool          `json:"cached"`
	Snapshot game.Snapshot `json:"snapshot"`
}

// API dispatches commands to one session.
type API struct {
	session       *game.Session
	engine        MoveSuggester
	engineTimeout time.Duration
}

// NewAPI serves s. eng may be nil, in which case /engine/move answers 503.
func NewAPI(s *game.Session, eng MoveSuggester) *API {
	return &API{session: s, engine: eng, engineTimeout: 30 * time.Second}
}

// Handler returns the fasthttp request handler.
func (a *API) Handler() fasthttp.RequestHandler {
	return a.handle
}

func (a *API) handle(ctx *fasthttp.RequestCtx) {
	start := time.Now()
	path := string(ctx.Path())
	method := string(ctx.Method())

	switch path {
	case "/game/new":
		a.post(ctx, a.newGame)
	case "/click":
		a.post(ctx, a.click)
	case "/move":
		a.post(ctx, a.move)
	case "/promote":
		a.post(ctx, a.promote)
	case "/engine/move":
		a.post(ctx, a.engineMove)
	case "/hover":
		a.get(ctx, a.hover)
	case "/state":
		a.get(ctx, func(ctx *fasthttp.RequestCtx) (any, error) {
			return a.session.Snapshot(), nil
		})
	case "/position":
		a.get(ctx, func(ctx *fasthttp.RequestCtx) (any, error) {
			return PositionResponse{Position: a.session.Position()}, nil
		})
	case "/history":
		a.get(ctx, func(ctx *fasthttp.RequestCtx) (any, error) {
			snap := a.session.Snapshot()
			return HistoryResponse{History: snap.History, Plies: snap.Plies}, nil
		})
	default:
		writeJSON(ctx, fasthttp.StatusNotFound, ErrorResponse{Code: "not_found", Message: "no route for " + path})
	}

	obslog.L().Debug("api request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", ctx.Response.StatusCode()),
		zap.Duration("elapsed", time.Since(start)),
	)
}

type handlerFunc func(ctx *fasthttp.RequestCtx) (any, error)

func (a *API) post(ctx *fasthttp.RequestCtx, h handlerFunc) {
	if !ctx.IsPost() {
		writeJSON(ctx, fasthttp.StatusMethodNotAllowed, ErrorResponse{Code: "method_not_allowed", Message: "use POST"})
		return
	}
	respond(ctx, h)
}

func (a *API) get(ctx *fasthttp.RequestCtx, h handlerFunc) {
	if !ctx.IsGet() {
		writeJSON(ctx, fasthttp.StatusMethodNotAllowed, ErrorResponse{Code: "method_not_allowed", Message: "use GET"})
		return
	}
	respond(ctx, h)
}

func respond(ctx *fasthttp.RequestCtx, h handlerFunc) {
	out, err := h(ctx)
	if err != nil {
		code, status := classify(err)
		if status == fasthttp.StatusInternalServerError {
			obslog.L().Error("api handler failed", zap.ByteString("path", ctx.Path()), zap.Error(err))
		}
		writeJSON(ctx, status, ErrorResponse{Code: code, Message: err.Error()})
		return
	}
	writeJSON(ctx, fasthttp.StatusOK, out)
}

func writeJSON(ctx *fasthttp.RequestCtx, status int, v any) {
	body, err := json.Marshal(v)
	if err != nil {
		status = fasthttp.StatusInternalServerError
		body = []byte(`{"code":"internal","message":"encode response"}`)
	}
	ctx.SetStatusCode(status)
	ctx.SetContentType("application/json")
	ctx.SetBody(body)
}

func queryArg(ctx *fasthttp.RequestCtx, name string) string {
	return strings.TrimSpace(string(ctx.QueryArgs().Peek(name)))
}

func (a *API) newGame(ctx *fasthttp.RequestCtx) (any, error) {
	if pos := queryArg(ctx, "position"); pos != "" {
		return a.session.LoadPosition(pos)
	}
	return a.session.NewGame(), nil
}

func (a *API) click(ctx *fasthttp.RequestCtx) (any, error) {
	return a.session.Click(queryArg(ctx, "square"))
}

func (a *API) move(ctx *fasthttp.RequestCtx) (any, error) {
	return a.session.ApplyMove(queryArg(ctx, "move"))
}

func (a *API) promote(ctx *fasthttp.RequestCtx) (any, error) {
	piece := queryArg(ctx, "piece")
	if len(piece) != 1 {
		return nil, fmt.Errorf("%w: %q", game.ErrInvalidPromotion, piece)
	}
	return a.session.Promote(piece[0])
}

func (a *API) hover(ctx *fasthttp.RequestCtx) (any, error) {
	sq := queryArg(ctx, "square")
	moves, err := a.session.Hover(sq)
	if err != nil {
		return nil, err
	}
	if moves == nil {
		moves = board.MoveList{}
	}
	return HoverResponse{Square: sq, Moves: moves}, nil
}

func (a *API) engineMove(ctx *fasthttp.RequestCtx) (any, error) {
	if a.engine == nil {
		return nil, ErrEngineUnavailable
	}
	searchCtx, cancel := context.WithTimeout(context.Background(), a.engineTimeout)
	defer cancel()

	sug, err := a.engine.BestMove(searchCtx, a.session.Position())
	if err != nil {
		if errors.Is(err, engine.ErrClosed) {
			return nil, fmt.Errorf("%w: %v", ErrEngineUnavailable, err)
		}
		return nil, err
	}
	snap, err := a.session.ApplyEngineMove(sug.Move)
	if err != nil {
		return nil, err
	}
	return EngineMoveResponse{Move: sug.Move, Cached: sug.Cached, Snapshot: snap}, nil
}

// Serve runs the API on ln until ctx is cancelled.
func (a *API) Serve(ctx context.Context, ln net.Listener) error {
	srv := &fasthttp.Server{
		Handler:      a.Handler(),
		Name:         "clickchess",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		if err := srv.Shutdown(); err != nil {
			return err
		}
		return <-errCh
	}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (a *API) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	obslog.L().Info("api listening", zap.String("addr", ln.Addr().String()))
	return a.Serve(ctx, ln)
}
