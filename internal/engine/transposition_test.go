package engine

import (
	"testing"
	"time"
)

func TestTranspositionTable(t *testing.T) {
	tt := NewTranspositionTable(1000)
	if tt.Size() != 512 {
		t.Fatalf("Size() = %d, want 512", tt.Size())
	}

	const key = 0xDEADBEEF
	if _, ok := tt.Probe(key, time.Second); ok {
		t.Error("hit in an empty table")
	}

	tt.Store(key, "e2e4", time.Second)
	if mv, ok := tt.Probe(key, time.Second); !ok || mv != "e2e4" {
		t.Errorf("Probe() = %q, %v", mv, ok)
	}
	if _, ok := tt.Probe(key, 2*time.Second); ok {
		t.Error("short search served a longer budget")
	}
	if _, ok := tt.Probe(key+tt.Size(), time.Second); ok {
		t.Error("colliding key treated as a hit")
	}

	// A shorter search does not displace a longer one in the same game.
	tt.Store(key, "d2d4", time.Millisecond)
	if mv, _ := tt.Probe(key, 0); mv != "e2e4" {
		t.Errorf("entry replaced by a shorter search: %q", mv)
	}
	tt.NewGame()
	tt.Store(key, "d2d4", time.Millisecond)
	if mv, _ := tt.Probe(key, 0); mv != "d2d4" {
		t.Errorf("old game entry kept: %q", mv)
	}

	if rate := tt.HitRate(); rate <= 0 || rate >= 100 {
		t.Errorf("HitRate() = %v", rate)
	}
	tt.Clear()
	if _, ok := tt.Probe(key, 0); ok {
		t.Error("entry survived Clear")
	}
}

func TestRoundDownToPowerOf2(t *testing.T) {
	for in, want := range map[uint64]uint64{1: 1, 2: 2, 3: 2, 1000: 512, 4096: 4096} {
		if got := roundDownToPowerOf2(in); got != want {
			t.Errorf("roundDownToPowerOf2(%d) = %d, want %d", in, got, want)
		}
	}
}
