package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"repolens/internal/domain"
	"repolens/internal/metrics"
	"repolens/internal/port"
)

// QueryCache remembers search results per repository. Every repository has
// a generation; bumping it makes all earlier results unreachable.
type QueryCache struct {
	lru *expirable.LRU[string, []domain.SearchResult]

	mu   sync.Mutex
	gens map[string]uint64
}

func NewQueryCache(maxSize int, ttl time.Duration) *QueryCache {
	if maxSize <= 0 {
		maxSize = 100
	}
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &QueryCache{
		lru:  expirable.NewLRU[string, []domain.SearchResult](maxSize, nil, ttl),
		gens: make(map[string]uint64),
	}
}

func (c *QueryCache) generation(repoID string) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[repoID]
}

func (c *QueryCache) key(repoID, query string, topK int) string {
	data := strconv.AppendInt(nil, int64(topK), 10)
	data = append(data, ':')
	data = append(data, query...)
	hash := sha256.Sum256(data)
	return repoID + ":" + strconv.FormatUint(c.generation(repoID), 10) + ":" + hex.EncodeToString(hash[:16])
}

func (c *QueryCache) Get(repoID, query string, topK int) ([]domain.SearchResult, bool) {
	return c.lru.Get(c.key(repoID, query, topK))
}

func (c *QueryCache) Put(repoID, query string, topK int, results []domain.SearchResult) {
	c.lru.Add(c.key(repoID, query, topK), results)
}

// Invalidate drops the cached results of one repository.
func (c *QueryCache) Invalidate(repoID string) {
	c.mu.Lock()
	c.gens[repoID]++
	c.mu.Unlock()
}

func (c *QueryCache) Size() int {
	return c.lru.Len()
}

// CachedSearcher answers repeated queries from a QueryCache. Empty results
// are never cached, since they may come from a transient failure.
type CachedSearcher struct {
	searcher port.Searcher
	cache    *QueryCache
	metrics  *metrics.Metrics
}

// NewCachedSearcher wraps searcher. A nil cache passes every query through.
func NewCachedSearcher(searcher port.Searcher, cache *QueryCache, m *metrics.Metrics) *CachedSearcher {
	return &CachedSearcher{
		searcher: searcher,
		cache:    cache,
		metrics:  m,
	}
}

func (s *CachedSearcher) Search(ctx context.Context, repoID, query string, topK int) []domain.SearchResult {
	if s.cache != nil {
		if results, hit := s.cache.Get(repoID, query, topK); hit {
			s.metrics.Search(true)
			return results
		}
	}

	results := s.searcher.Search(ctx, repoID, query, topK)
	s.metrics.Search(false)

	if s.cache != nil && len(results) > 0 {
		s.cache.Put(repoID, query, topK, results)
	}
	return results
}

// Invalidate forwards to the cache, if any.
func (s *CachedSearcher) Invalidate(repoID string) {
	if s.cache != nil {
		s.cache.Invalidate(repoID)
	}
}

var _ port.Searcher = (*CachedSearcher)(nil)
