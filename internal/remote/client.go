// Package remote talks to a running clickchess daemon.
package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/valyala/fasthttp"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"github.com/hailam/clickchess/internal/board"
	"github.com/hailam/clickchess/internal/game"
	"github.com/hailam/clickchess/internal/server"
)

// APIError is a non-2xx reply from the daemon. It unwraps to the game or
// board sentinel named by Code when there is one.
type APIError struct {
	Status  int
	Code    string
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: status=%d code=%s: %s", e.Status, e.Code, e.Message)
}

func (e *APIError) Unwrap() error {
	return server.ErrorForCode(e.Code)
}

// Client issues commands to the daemon API.
type Client struct {
	baseURL string
	http    *fasthttp.Client

	defaultTimeout time.Duration
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds each request.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.defaultTimeout = d }
}

// WithHTTPClient replaces the underlying fasthttp client.
func WithHTTPClient(hc *fasthttp.Client) Option {
	return func(c *Client) { c.http = hc }
}

// NewClient returns a client for the API at baseURL, e.g.
// "http://127.0.0.1:8700".
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:        strings.TrimRight(baseURL, "/"),
		http:           &fasthttp.Client{ReadTimeout: 60 * time.Second, WriteTimeout: 10 * time.Second},
		defaultTimeout: 60 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// NewGame starts a new game, from position when it is not empty.
func (c *Client) NewGame(ctx context.Context, position string) (game.Snapshot, error) {
	var snap game.Snapshot
	q := url.Values{}
	if position != "" {
		q.Set("position", position)
	}
	err := c.doJSON(ctx, fasthttp.MethodPost, "/game/new", q, &snap)
	return snap, err
}

// Click clicks square.
func (c *Client) Click(ctx context.Context, square string) (game.ClickResult, error) {
	var res game.ClickResult
	err := c.doJSON(ctx, fasthttp.MethodPost, "/click", url.Values{"square": {square}}, &res)
	return res, err
}

// Move plays a coordinate move such as "e2e4" or "e7e8q".
func (c *Client) Move(ctx context.Context, move string) (game.Snapshot, error) {
	var snap game.Snapshot
	err := c.doJSON(ctx, fasthttp.MethodPost, "/move", url.Values{"move": {move}}, &snap)
	return snap, err
}

// Promote completes a pending promotion with piece (Q, R, B or N).
func (c *Client) Promote(ctx context.Context, piece string) (game.Snapshot, error) {
	var snap game.Snapshot
	err := c.doJSON(ctx, fasthttp.MethodPost, "/promote", url.Values{"piece": {piece}}, &snap)
	return snap, err
}

// Hover previews the legal moves for square.
func (c *Client) Hover(ctx context.Context, square string) (board.MoveList, error) {
	var resp server.HoverResponse
	err := c.doJSON(ctx, fasthttp.MethodGet, "/hover", url.Values{"square": {square}}, &resp)
	return resp.Moves, err
}

// State returns the current snapshot.
func (c *Client) State(ctx context.Context) (game.Snapshot, error) {
	var snap game.Snapshot
	err := c.doJSON(ctx, fasthttp.MethodGet, "/state", nil, &snap)
	return snap, err
}

// Position returns the full position string.
func (c *Client) Position(ctx context.Context) (string, error) {
	var resp server.PositionResponse
	err := c.doJSON(ctx, fasthttp.MethodGet, "/position", nil, &resp)
	return resp.Position, err
}

// History returns the score history and the plies played.
func (c *Client) History(ctx context.Context) (server.HistoryResponse, error) {
	var resp server.HistoryResponse
	err := c.doJSON(ctx, fasthttp.MethodGet, "/history", nil, &resp)
	return resp, err
}

// EngineMove asks the daemon's engine to move for the side to play.
func (c *Client) EngineMove(ctx context.Context) (server.EngineMoveResponse, error) {
	var resp server.EngineMoveResponse
	err := c.doJSON(ctx, fasthttp.MethodPost, "/engine/move", nil, &resp)
	return resp, err
}

func (c *Client) doJSON(ctx context.Context, method, path string, query url.Values, out any) error {
	req := fasthttp.AcquireRequest()
	resp := fasthttp.AcquireResponse()
	defer func() {
		fasthttp.ReleaseRequest(req)
		fasthttp.ReleaseResponse(resp)
	}()

	uri := c.baseURL + path
	if len(query) > 0 {
		uri += "?" + query.Encode()
	}
	req.Header.SetMethod(method)
	req.SetRequestURI(uri)

	if err := c.http.DoDeadline(req, resp, c.computeDeadline(ctx)); err != nil {
		return fmt.Errorf("request failed: %w", err)
	}

	status := resp.StatusCode()
	if status < 200 || status >= 300 {
		var body server.ErrorResponse
		if err := json.Unmarshal(resp.Body(), &body); err != nil || body.Code == "" {
			return &APIError{Status: status, Code: "unknown", Message: truncate(string(resp.Body()), 512)}
		}
		return &APIError{Status: status, Code: body.Code, Message: body.Message}
	}
	if out != nil {
		if err := json.Unmarshal(resp.Body(), out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

func (c *Client) computeDeadline(ctx context.Context) time.Time {
	clientDL := time.Now().Add(c.defaultTimeout)
	if dl, ok := ctx.Deadline(); ok && dl.Before(clientDL) {
		return dl
	}
	return clientDL
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}

// Watch streams events from the daemon's websocket feed at wsURL, e.g.
// "ws://127.0.0.1:8701/events", calling fn for each until ctx is done or
// the connection drops.
func Watch(ctx context.Context, wsURL string, fn func(game.Event)) error {
	dialCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	conn, _, err := websocket.Dial(dialCtx, wsURL, &websocket.DialOptions{
		CompressionMode: websocket.CompressionNoContextTakeover,
	})
	cancel()
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	defer conn.CloseNow()

	for {
		var e game.Event
		if err := wsjson.Read(ctx, conn, &e); err != nil {
			if ctx.Err() != nil {
				conn.Close(websocket.StatusNormalClosure, "done")
				return nil
			}
			if websocket.CloseStatus(err) == websocket.StatusNormalClosure {
				return nil
			}
			return err
		}
		fn(e)
	}
}

// IsGameError reports whether err is a rule or protocol rejection rather
// than a transport failure.
func IsGameError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status < 500
}
