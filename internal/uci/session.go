// Package uci drives an external engine over the Universal Chess Interface.
package uci

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/obslog"
)

const (
	defaultReadyTimeout = 4 * time.Second
	// searchSlack is added to the move time before a search is abandoned.
	searchSlack = 2 * time.Second
)

// ErrNoMove is returned when the engine answers "bestmove 0000" or
// "bestmove (none)", which it does for a side without legal moves.
var ErrNoMove = errors.New("engine has no move")

// ErrClosed is returned after the engine output ended.
var ErrClosed = errors.New("engine closed")

// Options configure the engine after the handshake. Zero fields are left
// at the engine's defaults.
type Options struct {
	Threads int
	HashMB  int
}

// Session is one running engine. Searches are serialised.
type Session struct {
	cmd   *exec.Cmd
	stdin io.WriteCloser
	lines chan string

	mu     sync.Mutex // guards writes
	search sync.Mutex
	closed sync.Once
}

// NewSession starts the engine binary at path with args and completes the
// handshake. Cancelling ctx kills the process.
func NewSession(ctx context.Context, path string, args []string, opt Options) (*Session, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("engine path required")
	}
	cmd := exec.CommandContext(ctx, path, args...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, fmt.Errorf("create stdin pipe: %w", err)
	}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		stdin.Close()
		return nil, fmt.Errorf("create stdout pipe: %w", err)
	}
	cmd.Stderr = os.Stderr

	if err := cmd.Start(); err != nil {
		stdin.Close()
		return nil, fmt.Errorf("start engine: %w", err)
	}

	s := newSession(stdout, stdin)
	s.cmd = cmd
	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	obslog.L().Info("uci engine started", zap.String("path", path), zap.Int("pid", cmd.Process.Pid))
	return s, nil
}

// Attach runs the handshake over an already connected engine, for example
// one reached through a socket.
func Attach(ctx context.Context, r io.Reader, w io.WriteCloser, opt Options) (*Session, error) {
	s := newSession(r, w)
	if err := s.initialize(ctx, opt); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func newSession(r io.Reader, w io.WriteCloser) *Session {
	s := &Session{
		stdin: w,
		lines: make(chan string, 64),
	}
	go s.readLoop(r)
	return s
}

func (s *Session) readLoop(r io.Reader) {
	defer close(s.lines)
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		s.lines <- strings.TrimSpace(sc.Text())
	}
}

func (s *Session) initialize(ctx context.Context, opt Options) error {
	initCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()

	if err := s.send("uci"); err != nil {
		return fmt.Errorf("send uci: %w", err)
	}
	if err := s.awaitToken(initCtx, "uciok"); err != nil {
		return fmt.Errorf("wait uciok: %w", err)
	}
	if opt.Threads > 0 {
		if err := s.send("setoption name Threads value " + strconv.Itoa(opt.Threads)); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	if opt.HashMB > 0 {
		if err := s.send("setoption name Hash value " + strconv.Itoa(opt.HashMB)); err != nil {
			return fmt.Errorf("apply options: %w", err)
		}
	}
	return s.ensureReady(initCtx)
}

// EnsureReady pings the engine with isready.
func (s *Session) EnsureReady(ctx context.Context) error {
	readyCtx, cancel := context.WithTimeout(ctx, defaultReadyTimeout)
	defer cancel()
	return s.ensureReady(readyCtx)
}

func (s *Session) ensureReady(ctx context.Context) error {
	if err := s.send("isready"); err != nil {
		return fmt.Errorf("send isready: %w", err)
	}
	if err := s.awaitToken(ctx, "readyok"); err != nil {
		return fmt.Errorf("wait readyok: %w", err)
	}
	return nil
}

// NewGame tells the engine the next position is unrelated to the last.
func (s *Session) NewGame(ctx context.Context) error {
	s.search.Lock()
	defer s.search.Unlock()
	if err := s.send("ucinewgame"); err != nil {
		return fmt.Errorf("send ucinewgame: %w", err)
	}
	return s.EnsureReady(ctx)
}

// BestMove searches position for budget and returns the engine's move in
// coordinate form.
func (s *Session) BestMove(ctx context.Context, position string, budget time.Duration) (string, error) {
	if budget <= 0 {
		budget = time.Second
	}
	s.search.Lock()
	defer s.search.Unlock()

	if err := s.send(positionCommand(position)); err != nil {
		return "", fmt.Errorf("send position: %w", err)
	}
	if err := s.send("go movetime " + strconv.FormatInt(budget.Milliseconds(), 10)); err != nil {
		return "", fmt.Errorf("send go: %w", err)
	}

	searchCtx, cancel := context.WithTimeout(ctx, budget+searchSlack)
	defer cancel()

	for {
		line, err := s.readLine(searchCtx)
		if err != nil {
			if searchCtx.Err() != nil {
				// Leave the engine idle for the next search.
				_ = s.send("stop")
				s.drainBestMove()
			}
			return "", fmt.Errorf("read bestmove: %w", err)
		}
		if mv, ok := parseBestMove(line); ok {
			if mv == "" {
				return "", ErrNoMove
			}
			return mv, nil
		}
	}
}

// drainBestMove waits briefly for the bestmove a stop produces.
func (s *Session) drainBestMove() {
	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return
		}
		if _, ok := parseBestMove(line); ok {
			return
		}
	}
}

// Close asks the engine to quit and releases the process.
func (s *Session) Close() error {
	var err error
	s.closed.Do(func() {
		_ = s.send("quit")
		s.mu.Lock()
		s.stdin.Close()
		s.mu.Unlock()

		if s.cmd == nil {
			return
		}
		done := make(chan error, 1)
		go func() { done <- s.cmd.Wait() }()
		select {
		case err = <-done:
		case <-time.After(time.Second):
			_ = s.cmd.Process.Kill()
			err = <-done
		}
	})
	return err
}

func (s *Session) send(msg string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := io.WriteString(s.stdin, msg+"\n")
	return err
}

func (s *Session) awaitToken(ctx context.Context, token string) error {
	for {
		line, err := s.readLine(ctx)
		if err != nil {
			return err
		}
		if line == token {
			return nil
		}
	}
}

func (s *Session) readLine(ctx context.Context) (string, error) {
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case line, ok := <-s.lines:
		if !ok {
			return "", ErrClosed
		}
		return line, nil
	}
}

func positionCommand(position string) string {
	position = strings.TrimSpace(position)
	if position == "" || position == "startpos" {
		return "position startpos"
	}
	return "position fen " + position
}

// parseBestMove reports whether line is a bestmove reply and returns its
// move, empty for a null move.
func parseBestMove(line string) (string, bool) {
	parts := strings.Fields(line)
	if len(parts) == 0 || parts[0] != "bestmove" {
		return "", false
	}
	if len(parts) < 2 || parts[1] == "0000" || parts[1] == "(none)" {
		return "", true
	}
	return parts[1], true
}
