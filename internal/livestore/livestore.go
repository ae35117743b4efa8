// Package livestore mirrors the live session into Redis: the latest
// snapshot of each game with a TTL, a pointer to the current game, and a
// pub/sub channel carrying every session event.
package livestore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/game"
	"github.com/hailam/clickchess/internal/obslog"
)

const (
	keyPrefix     = "clickchess:"
	keyCurrent    = keyPrefix + "current"
	eventsChannel = keyPrefix + "events"

	writeTimeout = 2 * time.Second
)

// ErrNotFound is returned when no snapshot is stored.
var ErrNotFound = errors.New("snapshot not found")

// Store reads and writes session snapshots.
type Store struct {
	rdb *redis.Client
	ttl time.Duration
}

// New wraps an existing client. A ttl of zero keeps snapshots forever.
func New(rdb *redis.Client, ttl time.Duration) *Store {
	return &Store{rdb: rdb, ttl: ttl}
}

// Open connects to redisURL and checks the connection.
func Open(ctx context.Context, redisURL string, ttl time.Duration) (*Store, error) {
	if strings.TrimSpace(redisURL) == "" {
		return nil, errors.New("redis url required")
	}
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return New(rdb, ttl), nil
}

// Close closes the client.
func (s *Store) Close() error {
	if s == nil || s.rdb == nil {
		return nil
	}
	return s.rdb.Close()
}

func keySnapshot(id string) string { return keyPrefix + "snapshot:" + id }

// Save stores snap and marks its game as current.
func (s *Store) Save(ctx context.Context, snap game.Snapshot) error {
	raw, err := json.Marshal(snap)
	if err != nil {
		return err
	}
	_, err = s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.Set(ctx, keySnapshot(snap.ID), raw, s.ttl)
		p.Set(ctx, keyCurrent, snap.ID, s.ttl)
		return nil
	})
	return err
}

// Load returns the snapshot stored for game id.
func (s *Store) Load(ctx context.Context, id string) (game.Snapshot, error) {
	raw, err := s.rdb.Get(ctx, keySnapshot(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return game.Snapshot{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return game.Snapshot{}, err
	}
	var snap game.Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return game.Snapshot{}, fmt.Errorf("decode snapshot %s: %w", id, err)
	}
	return snap, nil
}

// Current returns the snapshot of the game saved most recently.
func (s *Store) Current(ctx context.Context) (game.Snapshot, error) {
	id, err := s.rdb.Get(ctx, keyCurrent).Result()
	if errors.Is(err, redis.Nil) {
		return game.Snapshot{}, ErrNotFound
	}
	if err != nil {
		return game.Snapshot{}, err
	}
	return s.Load(ctx, id)
}

// Delete removes the snapshot of game id.
func (s *Store) Delete(ctx context.Context, id string) error {
	return s.rdb.Del(ctx, keySnapshot(id)).Err()
}

// Publish sends e to every subscriber of the events channel.
func (s *Store) Publish(ctx context.Context, e game.Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	return s.rdb.Publish(ctx, eventsChannel, raw).Err()
}

// Subscribe streams published events until ctx is done. The returned
// channel is closed afterwards.
func (s *Store) Subscribe(ctx context.Context) (<-chan game.Event, error) {
	ps := s.rdb.Subscribe(ctx, eventsChannel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe: %w", err)
	}

	out := make(chan game.Event, 16)
	go func() {
		defer close(out)
		defer ps.Close()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgs:
				if !ok {
					return
				}
				var e game.Event
				if err := json.Unmarshal([]byte(msg.Payload), &e); err != nil {
					obslog.L().Warn("livestore: bad event payload", zap.Error(err))
					continue
				}
				select {
				case out <- e:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, nil
}

// OnEvent saves the event's snapshot and publishes the event.
func (s *Store) OnEvent(e game.Event) {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()

	if err := s.Save(ctx, e.Snapshot); err != nil {
		obslog.L().Error("livestore: save snapshot", zap.String("game_id", e.Snapshot.ID), zap.Error(err))
		return
	}
	if err := s.Publish(ctx, e); err != nil {
		obslog.L().Warn("livestore: publish", zap.String("event", string(e.Kind)), zap.Error(err))
	}
}
