package livestore

import (
	"context"
	"errors"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/google/go-cmp/cmp"
	"github.com/redis/go-redis/v9"

	"github.com/hailam/clickchess/internal/game"
)

func newTestStore(t *testing.T, ttl time.Duration) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	t.Cleanup(mr.Close)

	s := New(redis.NewClient(&redis.Options{Addr: mr.Addr()}), ttl)
	t.Cleanup(func() { s.Close() })
	return s, mr
}

func TestSaveLoad(t *testing.T) {
	s, mr := newTestStore(t, time.Hour)
	ctx := context.Background()

	sess := game.NewSession(game.WithClock(func() time.Time {
		return time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	}))
	if _, err := sess.ApplyMove("e2e4"); err != nil {
		t.Fatal(err)
	}
	if _, err := sess.Click("e7"); err != nil {
		t.Fatal(err)
	}
	snap := sess.Snapshot()

	if err := s.Save(ctx, snap); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Load(ctx, snap.ID)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if diff := cmp.Diff(snap, got); diff != "" {
		t.Errorf("snapshot round trip (-want +got):\n%s", diff)
	}

	cur, err := s.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	if cur.ID != snap.ID {
		t.Errorf("Current().ID = %s, want %s", cur.ID, snap.ID)
	}

	if ttl := mr.TTL(keySnapshot(snap.ID)); ttl != time.Hour {
		t.Errorf("snapshot TTL = %v, want 1h", ttl)
	}
	mr.FastForward(2 * time.Hour)
	if _, err := s.Load(ctx, snap.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("Load after expiry = %v, want ErrNotFound", err)
	}
}

func TestCurrentEmpty(t *testing.T) {
	s, _ := newTestStore(t, 0)
	if _, err := s.Current(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("Current() = %v, want ErrNotFound", err)
	}
}

func TestRestoreFromStore(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx := context.Background()

	a := game.NewSession(game.WithObserver(s))
	for _, mv := range []string{"d2d4", "g8f6", "c2c4"} {
		if _, err := a.ApplyMove(mv); err != nil {
			t.Fatal(err)
		}
	}

	snap, err := s.Current(ctx)
	if err != nil {
		t.Fatalf("Current: %v", err)
	}
	b := game.NewSession()
	if err := b.Restore(snap); err != nil {
		t.Fatalf("Restore: %v", err)
	}
	if b.Position() != a.Position() {
		t.Errorf("restored position %q, want %q", b.Position(), a.Position())
	}
	if diff := cmp.Diff(a.History(), b.History()); diff != "" {
		t.Errorf("history (-want +got):\n%s", diff)
	}
}

func TestPublishSubscribe(t *testing.T) {
	s, _ := newTestStore(t, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events, err := s.Subscribe(ctx)
	if err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	sess := game.NewSession(game.WithObserver(s))
	if _, err := sess.ApplyMove("g1f3"); err != nil {
		t.Fatal(err)
	}

	select {
	case e := <-events:
		if e.Kind != game.EventBoard || e.Move != "g1f3" {
			t.Errorf("event = %s %q, want board g1f3", e.Kind, e.Move)
		}
		if e.Snapshot.ID != sess.Snapshot().ID {
			t.Error("event carries the wrong game")
		}
	case <-ctx.Done():
		t.Fatal("no event received")
	}
}

func TestOpenRejectsBadURL(t *testing.T) {
	ctx := context.Background()
	if _, err := Open(ctx, "", 0); err == nil {
		t.Error("Open accepted an empty url")
	}
	if _, err := Open(ctx, "http://nope", 0); err == nil {
		t.Error("Open accepted a non-redis url")
	}

	mr := miniredis.RunT(t)
	s, err := Open(ctx, "redis://"+mr.Addr()+"/0", time.Minute)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	s.Close()
}
