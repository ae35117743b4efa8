// Package archive keeps finished games in PostgreSQL.
package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/game"
	"github.com/hailam/clickchess/internal/obslog"
)

const schema = `CREATE TABLE IF NOT EXISTS clickchess_games (
    game_id        TEXT PRIMARY KEY,
    result         TEXT NOT NULL,
    plies          JSONB NOT NULL,
    score_history  JSONB NOT NULL,
    move_text      TEXT NOT NULL,
    final_position TEXT NOT NULL,
    started_at     TIMESTAMPTZ NOT NULL,
    ended_at       TIMESTAMPTZ NOT NULL,
    duration_ms    BIGINT NOT NULL
)`

// Repository stores game summaries.
type Repository struct {
	db *sql.DB
}

// Open connects to databaseURL and checks the connection.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	if strings.TrimSpace(databaseURL) == "" {
		return nil, errors.New("database url is required")
	}
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(8)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	return &Repository{db: db}, nil
}

// Close closes the pool.
func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

// EnsureSchema creates the games table when missing.
func (r *Repository) EnsureSchema(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, schema)
	return err
}

// SaveGame upserts sum.
func (r *Repository) SaveGame(ctx context.Context, sum game.Summary) error {
	if r == nil || r.db == nil {
		return nil
	}
	plies, err := json.Marshal(nonNil(sum.Plies))
	if err != nil {
		return err
	}
	scores, err := json.Marshal(nonNilInts(sum.ScoreHistory))
	if err != nil {
		return err
	}
	duration := sum.Finished.Sub(sum.Started).Milliseconds()
	if duration < 0 {
		duration = 0
	}

	q := `INSERT INTO clickchess_games (
        game_id, result, plies, score_history, move_text,
        final_position, started_at, ended_at, duration_ms
      ) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
      ON CONFLICT (game_id) DO UPDATE SET
        result=EXCLUDED.result,
        plies=EXCLUDED.plies,
        score_history=EXCLUDED.score_history,
        move_text=EXCLUDED.move_text,
        final_position=EXCLUDED.final_position,
        ended_at=EXCLUDED.ended_at,
        duration_ms=EXCLUDED.duration_ms`

	_, err = r.db.ExecContext(ctx, q,
		sum.ID, string(sum.Result), string(plies), string(scores), MoveText(sum),
		sum.FinalPosition, sum.Started, sum.Finished, duration,
	)
	return err
}

// Recent returns up to limit summaries, newest first.
func (r *Repository) Recent(ctx context.Context, limit int) ([]game.Summary, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `SELECT game_id, result, plies, score_history,
        final_position, started_at, ended_at
      FROM clickchess_games ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []game.Summary
	for rows.Next() {
		var (
			sum           game.Summary
			result        string
			plies, scores []byte
		)
		if err := rows.Scan(&sum.ID, &result, &plies, &scores,
			&sum.FinalPosition, &sum.Started, &sum.Finished); err != nil {
			return nil, err
		}
		sum.Result = game.Result(result)
		if err := json.Unmarshal(plies, &sum.Plies); err != nil {
			return nil, fmt.Errorf("decode plies of %s: %w", sum.ID, err)
		}
		if err := json.Unmarshal(scores, &sum.ScoreHistory); err != nil {
			return nil, fmt.Errorf("decode scores of %s: %w", sum.ID, err)
		}
		out = append(out, sum)
	}
	return out, rows.Err()
}

// OnEvent archives every summary a session emits.
func (r *Repository) OnEvent(e game.Event) {
	if e.Summary == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := r.SaveGame(ctx, *e.Summary); err != nil {
		obslog.L().Error("archive: save game", zap.String("game_id", e.Summary.ID), zap.Error(err))
	}
}

// MoveText renders the plies with move numbers followed by the result,
// e.g. "1. e2e4 e7e5 2. g1f3 *". Numbering follows the position the game
// started from; a game where Black moved first opens with "N... ".
func MoveText(sum game.Summary) string {
	var b strings.Builder
	first := sum.FirstTurn()
	for i, ply := range sum.Plies {
		turn := first + i
		if i > 0 {
			b.WriteByte(' ')
		}
		switch {
		case turn%2 == 0:
			fmt.Fprintf(&b, "%d. ", turn/2+1)
		case i == 0:
			fmt.Fprintf(&b, "%d... ", turn/2+1)
		}
		b.WriteString(ply)
	}
	result := sum.Result
	if result == "" {
		result = game.ResultUnfinished
	}
	if b.Len() > 0 {
		b.WriteByte(' ')
	}
	b.WriteString(string(result))
	return b.String()
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilInts(s []int) []int {
	if s == nil {
		return []int{}
	}
	return s
}
