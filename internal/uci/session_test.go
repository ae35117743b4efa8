package uci

import (
	"context"
	"errors"
	"io"
	"os"
	"testing"
	"time"
)

// attachFake connects a Session to an in-process fake engine.
func attachFake(t *testing.T) *Session {
	t.Helper()
	toEngine, engineIn := io.Pipe()
	engineOut, fromEngine := io.Pipe()
	go func() {
		runFakeEngine(toEngine, fromEngine)
		fromEngine.Close()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s, err := Attach(ctx, engineOut, engineIn, Options{HashMB: 16})
	if err != nil {
		t.Fatalf("Attach: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestBestMove(t *testing.T) {
	s := attachFake(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		position string
		want     string
	}{
		{"StartPos", "startpos", "b1c3"},
		{"Promotion", "1K5k/P7/8/8/8/8/8/8 w - - 0 1", "a7a8q"},
		{"BlackToMove", "4k3/8/8/8/8/8/8/4K3 b - - 0 1", "e8f7"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.BestMove(ctx, tt.position, 50*time.Millisecond)
			if err != nil {
				t.Fatalf("BestMove: %v", err)
			}
			if got != tt.want {
				t.Errorf("BestMove() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBestMoveNoMove(t *testing.T) {
	s := attachFake(t)
	_, err := s.BestMove(context.Background(), "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", 50*time.Millisecond)
	if !errors.Is(err, ErrNoMove) {
		t.Errorf("BestMove on stalemate = %v, want ErrNoMove", err)
	}
}

func TestBestMoveCancelled(t *testing.T) {
	s := attachFake(t)
	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	_, err := s.BestMove(ctx, "hang", time.Minute)
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("BestMove = %v, want deadline exceeded", err)
	}

	// The stopped search must not leak into the next one.
	mv, err := s.BestMove(context.Background(), "startpos", 10*time.Millisecond)
	if err != nil || mv != "b1c3" {
		t.Errorf("next BestMove = %q, %v", mv, err)
	}
}

func TestNewGame(t *testing.T) {
	s := attachFake(t)
	if err := s.NewGame(context.Background()); err != nil {
		t.Errorf("NewGame: %v", err)
	}
}

func TestNewSessionProcess(t *testing.T) {
	t.Setenv(fakeEngineEnv, "1")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	s, err := NewSession(ctx, os.Args[0], nil, Options{Threads: 1})
	if err != nil {
		t.Fatalf("NewSession: %v", err)
	}
	mv, err := s.BestMove(ctx, "startpos", 10*time.Millisecond)
	if err != nil || mv != "b1c3" {
		t.Errorf("BestMove() = %q, %v", mv, err)
	}
	if err := s.Close(); err != nil {
		t.Errorf("Close: %v", err)
	}
}

func TestNewSessionMissingBinary(t *testing.T) {
	if _, err := NewSession(context.Background(), "", nil, Options{}); err == nil {
		t.Error("NewSession accepted an empty path")
	}
	if _, err := NewSession(context.Background(), "/nonexistent/engine", nil, Options{}); err == nil {
		t.Error("NewSession started a missing binary")
	}
}

func TestParseBestMove(t *testing.T) {
	tests := []struct {
		line   string
		want   string
		wantOK bool
	}{
		{"bestmove e2e4 ponder e7e5", "e2e4", true},
		{"bestmove e7e8q", "e7e8q", true},
		{"bestmove 0000", "", true},
		{"bestmove (none)", "", true},
		{"info depth 3 pv e2e4", "", false},
		{"", "", false},
	}
	for _, tt := range tests {
		got, ok := parseBestMove(tt.line)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("parseBestMove(%q) = %q, %v; want %q, %v", tt.line, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestPositionCommand(t *testing.T) {
	if got := positionCommand(""); got != "position startpos" {
		t.Errorf("positionCommand(\"\") = %q", got)
	}
	fen := "4k3/8/8/8/8/8/8/4K3 w - - 0 1"
	if got := positionCommand(fen); got != "position fen "+fen {
		t.Errorf("positionCommand(fen) = %q", got)
	}
}
