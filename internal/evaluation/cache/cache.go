// Package cache holds document vectors for the duration of one evaluation
// run.
package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/layer-eval/internal/termvec"
	"github.com/Adithya-Monish-Kumar-K/layer-eval/pkg/metrics"
)

// Loader fetches a document vector on a cache miss.
type Loader func(ctx context.Context, docID string) (termvec.Vector, error)

// DocCache is a bounded read-through cache keyed by document ID.
// Concurrent misses for the same ID share one load; a racing load that
// slips past the coalescing only costs a duplicate fetch.
type DocCache struct {
	entries *lru.Cache[string, termvec.Vector]
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

// New creates a cache holding at most size vectors. m may be nil.
func New(size int, m *metrics.Metrics) (*DocCache, error) {
	entries, err := lru.New[string, termvec.Vector](size)
	if err != nil {
		return nil, fmt.Errorf("creating document cache: %w", err)
	}
	return &DocCache{
		entries: entries,
		metrics: m,
		logger:  slog.Default().With("component", "doc-cache"),
	}, nil
}

func (c *DocCache) Get(docID string) (termvec.Vector, bool) {
	vec, ok := c.entries.Get(docID)
	if ok {
		c.hits.Add(1)
		if c.metrics != nil {
			c.metrics.CacheHitsTotal.Inc()
		}
		return vec, true
	}
	c.misses.Add(1)
	if c.metrics != nil {
		c.metrics.CacheMissesTotal.Inc()
	}
	return termvec.Vector{}, false
}

// GetOrLoad returns the cached vector of docID or loads and stores it.
// Failed loads are not cached.
func (c *DocCache) GetOrLoad(ctx context.Context, docID string, load Loader) (termvec.Vector, error) {
	if vec, ok := c.Get(docID); ok {
		return vec, nil
	}
	val, err, shared := c.group.Do(docID, func() (any, error) {
		if vec, ok := c.entries.Get(docID); ok {
			return vec, nil
		}
		vec, err := load(ctx, docID)
		if err != nil {
			return nil, err
		}
		c.entries.Add(docID, vec)
		return vec, nil
	})
	if err != nil {
		return termvec.Vector{}, fmt.Errorf("loading document %s: %w", docID, err)
	}
	if shared {
		c.logger.Debug("coalesced document load", "doc_id", docID)
	}
	return val.(termvec.Vector), nil
}

func (c *DocCache) Len() int { return c.entries.Len() }

func (c *DocCache) Purge() { c.entries.Purge() }

func (c *DocCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
