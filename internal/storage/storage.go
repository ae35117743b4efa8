package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dgraph-io/badger/v4"
	"go.uber.org/zap"

	"github.com/hailam/clickchess/internal/game"
	"github.com/hailam/clickchess/internal/obslog"
)

// Storage keys
const (
	keyPreferences = "preferences"
	keyStats       = "stats"
	keyFirstLaunch = "first_launch"
	gamePrefix     = "game/"
)

// ErrGameNotFound is returned by LoadGame for an unknown id.
var ErrGameNotFound = errors.New("game not found")

// Preferences stores user settings
type Preferences struct {
	PlayerName     string        `json:"player_name"`
	EngineMoveTime time.Duration `json:"engine_move_time"`
	EngineEnabled  bool          `json:"engine_enabled"`
	Flipped        bool          `json:"flipped"`
	SoundEnabled   bool          `json:"sound_enabled"`
	LastPlayed     time.Time     `json:"last_played"`
}

// DefaultPreferences returns default user preferences
func DefaultPreferences() *Preferences {
	return &Preferences{
		PlayerName:     "Player",
		EngineMoveTime: 3 * time.Second,
		SoundEnabled:   true,
	}
}

// GameStats stores totals over every recorded game
type GameStats struct {
	GamesPlayed   int           `json:"games_played"`
	WhiteWins     int           `json:"white_wins"`
	BlackWins     int           `json:"black_wins"`
	Unfinished    int           `json:"unfinished"`
	TotalPlies    int           `json:"total_plies"`
	LongestGame   int           `json:"longest_game"`
	TotalPlayTime time.Duration `json:"total_play_time"`
}

// NewGameStats returns empty game statistics
func NewGameStats() *GameStats {
	return &GameStats{}
}

// add folds one finished game into the totals.
func (st *GameStats) add(sum game.Summary) {
	st.GamesPlayed++
	switch sum.Result {
	case game.ResultWhiteWins:
		st.WhiteWins++
	case game.ResultBlackWins:
		st.BlackWins++
	default:
		st.Unfinished++
	}
	plies := len(sum.Plies)
	st.TotalPlies += plies
	if plies > st.LongestGame {
		st.LongestGame = plies
	}
	if d := sum.Finished.Sub(sum.Started); d > 0 {
		st.TotalPlayTime += d
	}
}

// AveragePlies returns the mean game length in plies.
func (st *GameStats) AveragePlies() float64 {
	if st.GamesPlayed == 0 {
		return 0
	}
	return float64(st.TotalPlies) / float64(st.GamesPlayed)
}

// Storage wraps BadgerDB for persistent storage
type Storage struct {
	db *badger.DB
}

// Open opens the database under dataDir, or under the platform data
// directory when dataDir is empty.
func Open(dataDir string) (*Storage, error) {
	dbDir, err := GetDatabaseDir(dataDir)
	if err != nil {
		return nil, err
	}

	opts := badger.DefaultOptions(dbDir)
	opts.Logger = nil // Disable logging

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger at %s: %w", dbDir, err)
	}
	obslog.L().Debug("storage opened", zap.String("dir", dbDir))
	return &Storage{db: db}, nil
}

// OpenInMemory opens a database that lives only as long as the process.
func OpenInMemory() (*Storage, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Storage{db: db}, nil
}

// Close closes the database
func (s *Storage) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// IsFirstLaunch returns true if this is the first launch
func (s *Storage) IsFirstLaunch() (bool, error) {
	firstLaunch := true

	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get([]byte(keyFirstLaunch))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		firstLaunch = false
		return nil
	})

	return firstLaunch, err
}

// MarkFirstLaunchComplete marks that first launch setup is complete
func (s *Storage) MarkFirstLaunchComplete() error {
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(keyFirstLaunch), []byte("done"))
	})
}

// SavePreferences saves user preferences
func (s *Storage) SavePreferences(prefs *Preferences) error {
	prefs.LastPlayed = time.Now()
	return s.put(keyPreferences, prefs)
}

// LoadPreferences loads user preferences, returns defaults if not found
func (s *Storage) LoadPreferences() (*Preferences, error) {
	prefs := DefaultPreferences()
	_, err := s.get(keyPreferences, prefs)
	return prefs, err
}

// SaveStats saves game statistics
func (s *Storage) SaveStats(stats *GameStats) error {
	return s.put(keyStats, stats)
}

// LoadStats loads game statistics, returns empty stats if not found
func (s *Storage) LoadStats() (*GameStats, error) {
	stats := NewGameStats()
	_, err := s.get(keyStats, stats)
	return stats, err
}

// RecordGame stores a finished game under game/<id> and folds it into the
// statistics in the same transaction. Recording the same id twice only
// overwrites the record.
func (s *Storage) RecordGame(sum game.Summary) error {
	if sum.ID == "" {
		return errors.New("record game: empty id")
	}
	data, err := json.Marshal(sum)
	if err != nil {
		return err
	}
	key := []byte(gamePrefix + sum.ID)

	return s.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(key)
		seen := err == nil
		if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
			return err
		}

		if err := txn.Set(key, data); err != nil {
			return err
		}
		if seen {
			return nil
		}

		stats := NewGameStats()
		item, err := txn.Get([]byte(keyStats))
		switch {
		case err == nil:
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, stats) }); err != nil {
				return err
			}
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		stats.add(sum)
		raw, err := json.Marshal(stats)
		if err != nil {
			return err
		}
		return txn.Set([]byte(keyStats), raw)
	})
}

// LoadGame returns the record stored for id.
func (s *Storage) LoadGame(id string) (game.Summary, error) {
	var sum game.Summary
	found, err := s.get(gamePrefix+id, &sum)
	if err != nil {
		return game.Summary{}, err
	}
	if !found {
		return game.Summary{}, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return sum, nil
}

// ListGames returns up to limit records, most recently finished first.
// A limit of zero or less returns every record.
func (s *Storage) ListGames(limit int) ([]game.Summary, error) {
	var out []game.Summary
	err := s.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		prefix := []byte(gamePrefix)
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var sum game.Summary
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sum)
			}); err != nil {
				return err
			}
			out = append(out, sum)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].Finished.After(out[j].Finished)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// OnEvent records games that end in mate or are replaced unfinished.
func (s *Storage) OnEvent(e game.Event) {
	if e.Summary == nil {
		return
	}
	if err := s.RecordGame(*e.Summary); err != nil {
		obslog.L().Error("record game", zap.String("game_id", e.Summary.ID), zap.Error(err))
	}
}

func (s *Storage) put(key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// get decodes the value under key into v. found is false when the key is
// absent, in which case v is left untouched.
func (s *Storage) get(key string, v any) (found bool, err error) {
	err = s.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get([]byte(key))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, v)
		})
	})
	return found, err
}
