package archive

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/hailam/clickchess/internal/game"
)

func TestMoveText(t *testing.T) {
	tests := []struct {
		name string
		sum  game.Summary
		want string
	}{
		{"Empty", game.Summary{}, "*"},
		{"OnePly", game.Summary{Plies: []string{"e2e4"}, Result: game.ResultUnfinished}, "1. e2e4 *"},
		{
			"FoolsMate",
			game.Summary{Plies: []string{"f2f3", "e7e5", "g2g4", "d8h4"}, Result: game.ResultBlackWins},
			"1. f2f3 e7e5 2. g2g4 d8h4 0-1",
		},
		{
			"Promotion",
			game.Summary{Plies: []string{"a7a8q"}, Result: game.ResultWhiteWins},
			"1. a7a8q 1-0",
		},
		{
			"BlackMovesFirst",
			game.Summary{
				Plies:         []string{"e8d7", "e1e2", "d7d6"},
				FinalPosition: "8/8/3k4/8/8/8/4R3/K7 w - - 0 3",
				Result:        game.ResultUnfinished,
			},
			"1... e8d7 2. e1e2 d7d6 *",
		},
		{
			"LoadedMidGame",
			game.Summary{
				Plies:         []string{"g1f3", "b8c6"},
				FinalPosition: "r1bqkbnr/pppppppp/2n5/8/8/5N2/PPPPPPPP/RNBQKB1R w KQkq - 2 13",
				Result:        game.ResultUnfinished,
			},
			"12. g1f3 b8c6 *",
		},
		{
			"LoadedMidGameBlackFirst",
			game.Summary{
				Plies:         []string{"b8c6", "g1f3"},
				FinalPosition: "r1bqkbnr/pppppppp/2n5/8/8/5N2/PPPPPPPP/RNBQKB1R b KQkq - 2 13",
				Result:        game.ResultUnfinished,
			},
			"12... b8c6 13. g1f3 *",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MoveText(tt.sum); got != tt.want {
				t.Errorf("MoveText() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestOpenRequiresURL(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Error("Open accepted a blank url")
	}
}

func TestNilRepositoryIsNoop(t *testing.T) {
	var r *Repository
	if err := r.SaveGame(context.Background(), game.Summary{ID: "x"}); err != nil {
		t.Errorf("SaveGame on nil repository: %v", err)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close on nil repository: %v", err)
	}
}

// TestRepositoryPostgres runs against a live server named by
// CLICKCHESS_TEST_DATABASE_URL.
func TestRepositoryPostgres(t *testing.T) {
	url := os.Getenv("CLICKCHESS_TEST_DATABASE_URL")
	if url == "" {
		t.Skip("CLICKCHESS_TEST_DATABASE_URL not set")
	}
	ctx := context.Background()
	r, err := Open(ctx, url)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if err := r.EnsureSchema(ctx); err != nil {
		t.Fatalf("EnsureSchema: %v", err)
	}

	now := time.Now().UTC().Truncate(time.Millisecond)
	sum := game.Summary{
		ID:            uuid.NewString(),
		Started:       now.Add(-time.Minute),
		Finished:      now,
		Result:        game.ResultBlackWins,
		FinalPosition: "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
		Plies:         []string{"f2f3", "e7e5", "g2g4", "d8h4"},
		ScoreHistory:  []int{0, 0, 0, 0},
	}
	if err := r.SaveGame(ctx, sum); err != nil {
		t.Fatalf("SaveGame: %v", err)
	}
	// Upsert.
	if err := r.SaveGame(ctx, sum); err != nil {
		t.Fatalf("SaveGame again: %v", err)
	}

	recent, err := r.Recent(ctx, 50)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	for _, got := range recent {
		if got.ID == sum.ID {
			if got.Result != sum.Result || len(got.Plies) != 4 {
				t.Errorf("stored %+v", got)
			}
			return
		}
	}
	t.Errorf("game %s missing from Recent", sum.ID)
}
