package engine

import (
	"sync"
	"sync/atomic"
	"time"
)

// Number of shards for TT locking (power of 2 for fast modulo)
const ttShardCount = 64
const ttShardMask = ttShardCount - 1

// TTEntry remembers the move the searcher chose for a position.
type TTEntry struct {
	Key    uint64        // Full 64-bit Zobrist hash for verification
	Move   string        // Coordinate move
	Budget time.Duration // Search time the move was found with
	Age    uint8         // Generation for replacement
}

// TranspositionTable caches searcher answers by position hash so a
// position reached again, by any move order, is answered at once.
type TranspositionTable struct {
	entries []TTEntry
	shards  [ttShardCount]sync.RWMutex
	size    uint64
	mask    uint64
	age     atomic.Uint32

	hits   atomic.Uint64
	probes atomic.Uint64
}

// NewTranspositionTable creates a table with room for about n entries.
func NewTranspositionTable(n int) *TranspositionTable {
	if n < 1 {
		n = 1
	}
	size := roundDownToPowerOf2(uint64(n))
	return &TranspositionTable{
		entries: make([]TTEntry, size),
		size:    size,
		mask:    size - 1,
	}
}

// roundDownToPowerOf2 rounds n down to the nearest power of 2.
func roundDownToPowerOf2(n uint64) uint64 {
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return (n + 1) >> 1
}

func (tt *TranspositionTable) shardIndex(idx uint64) int {
	return int(idx & ttShardMask)
}

// Probe returns the cached move for hash. Entries found with a shorter
// budget than asked for are ignored.
func (tt *TranspositionTable) Probe(hash uint64, budget time.Duration) (string, bool) {
	tt.probes.Add(1)

	idx := hash & tt.mask
	shard := tt.shardIndex(idx)

	tt.shards[shard].RLock()
	entry := tt.entries[idx]
	tt.shards[shard].RUnlock()

	if entry.Key == hash && entry.Move != "" && entry.Budget >= budget {
		tt.hits.Add(1)
		return entry.Move, true
	}
	return "", false
}

// Store saves move for hash. An entry from the current game is only
// replaced by one searched at least as long.
func (tt *TranspositionTable) Store(hash uint64, move string, budget time.Duration) {
	idx := hash & tt.mask
	shard := tt.shardIndex(idx)

	tt.shards[shard].Lock()
	defer tt.shards[shard].Unlock()

	entry := &tt.entries[idx]
	currentAge := uint8(tt.age.Load())
	if entry.Age != currentAge || entry.Key != hash || budget >= entry.Budget {
		*entry = TTEntry{Key: hash, Move: move, Budget: budget, Age: currentAge}
	}
}

// NewGame ages every entry so the next game's answers take precedence.
func (tt *TranspositionTable) NewGame() {
	tt.age.Add(1)
}

// Clear empties the table.
func (tt *TranspositionTable) Clear() {
	for i := range tt.shards {
		tt.shards[i].Lock()
	}
	for i := range tt.entries {
		tt.entries[i] = TTEntry{}
	}
	for i := range tt.shards {
		tt.shards[i].Unlock()
	}
	tt.age.Store(0)
	tt.hits.Store(0)
	tt.probes.Store(0)
}

// HitRate returns the cache hit rate as a percentage.
func (tt *TranspositionTable) HitRate() float64 {
	probes := tt.probes.Load()
	if probes == 0 {
		return 0
	}
	return float64(tt.hits.Load()) / float64(probes) * 100
}

// Size returns the number of entries in the table.
func (tt *TranspositionTable) Size() uint64 {
	return tt.size
}
