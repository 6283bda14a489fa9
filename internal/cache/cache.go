// Package cache keeps recently read blocks in memory.
package cache

import (
	"encoding/json"
	"time"

	"github.com/dgraph-io/ristretto"

	"github.com/mrz1836/connector/internal/chain"
	"github.com/mrz1836/connector/internal/metrics"
	"github.com/mrz1836/connector/internal/normalize"
)

// DefaultMaxCost is the approximate memory budget in bytes.
const DefaultMaxCost = 64 << 20

// DefaultTTL bounds how long a block stays cached. Blocks addressed by hash
// are immutable; the TTL only limits memory held by cold entries.
const DefaultTTL = time.Hour

// BlockCache stores normalized blocks keyed by chain and block hash.
// Cached blocks are shared between callers and must not be modified.
type BlockCache struct {
	c       *ristretto.Cache[string, normalize.Block]
	ttl     time.Duration
	metrics *metrics.Metrics
}

// NewBlockCache creates a cache holding about maxCost bytes of blocks.
func NewBlockCache(maxCost int64, m *metrics.Metrics) (*BlockCache, error) {
	if maxCost <= 0 {
		maxCost = DefaultMaxCost
	}
	c, err := ristretto.NewCache(&ristretto.Config[string, normalize.Block]{
		NumCounters: max(maxCost/100, 1000), // ~10x the expected number of blocks
		MaxCost:     maxCost,
		BufferItems: 64,
	})
	if err != nil {
		return nil, err
	}
	return &BlockCache{c: c, ttl: DefaultTTL, metrics: m}, nil
}

// Key generates the cache key of a block.
func Key(id chain.ID, hash string) string {
	return string(id) + ":" + hash
}

// Get returns a cached block. A nil cache always misses.
func (b *BlockCache) Get(id chain.ID, hash string) (normalize.Block, bool) {
	if b == nil || hash == "" {
		return nil, false
	}
	block, ok := b.c.Get(Key(id, hash))
	if ok {
		b.metrics.RecordCacheHit()
	} else {
		b.metrics.RecordCacheMiss()
	}
	return block, ok
}

// Set caches a block under its hash. Admission is best effort.
func (b *BlockCache) Set(id chain.ID, hash string, block normalize.Block) {
	if b == nil || hash == "" || block == nil {
		return
	}
	b.c.SetWithTTL(Key(id, hash), block, cost(block), b.ttl)
}

// Wait blocks until buffered writes are applied.
func (b *BlockCache) Wait() {
	if b != nil {
		b.c.Wait()
	}
}

// Close releases the cache.
func (b *BlockCache) Close() {
	if b != nil {
		b.c.Close()
	}
}

// cost approximates the memory held by a block by its JSON size.
func cost(block normalize.Block) int64 {
	data, err := json.Marshal(block)
	if err != nil {
		return 1
	}
	return int64(len(data))
}
