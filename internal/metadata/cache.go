package metadata

import (
	"context"
	"log"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"YieldStream/internal/model"
)

// Cache stores resolved metadata by URI.
type Cache interface {
	Get(ctx context.Context, uri string) (*model.Metadata, bool, error)
	Set(ctx context.Context, uri string, md *model.Metadata, ttl time.Duration) error
}

type memoryEntry struct {
	md        model.Metadata
	expiresAt time.Time
}

// MemoryCache is an in-process Cache with per-entry expiry.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]memoryEntry), now: time.Now}
}

func (c *MemoryCache) Get(_ context.Context, uri string) (*model.Metadata, bool, error) {
	c.mu.RLock()
	e, ok := c.entries[uri]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && c.now().After(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, uri)
		c.mu.Unlock()
		return nil, false, nil
	}
	md := e.md
	return &md, true, nil
}

func (c *MemoryCache) Set(_ context.Context, uri string, md *model.Metadata, ttl time.Duration) error {
	e := memoryEntry{md: *md}
	if ttl > 0 {
		e.expiresAt = c.now().Add(ttl)
	}
	c.mu.Lock()
	c.entries[uri] = e
	c.mu.Unlock()
	return nil
}

// CachedFetcher wraps a Fetcher with a Cache. Concurrent misses for the same
// URI share a single upstream fetch.
type CachedFetcher struct {
	next  Fetcher
	cache Cache
	ttl   time.Duration
	group singleflight.Group
}

func NewCachedFetcher(next Fetcher, cache Cache, ttl time.Duration) *CachedFetcher {
	return &CachedFetcher{next: next, cache: cache, ttl: ttl}
}

func (f *CachedFetcher) Fetch(ctx context.Context, uri string) (*model.Metadata, error) {
	if md, ok, err := f.cache.Get(ctx, uri); err != nil {
		log.Printf("[WARN] metadata cache get %s: %v", uri, err)
	} else if ok {
		return md, nil
	}

	// The shared fetch outlives any single caller; the upstream client's own
	// timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := f.group.DoChan(uri, func() (interface{}, error) {
		md, err := f.next.Fetch(shared, uri)
		if err != nil {
			return nil, err
		}
		if err := f.cache.Set(shared, uri, md, f.ttl); err != nil {
			log.Printf("[WARN] metadata cache set %s: %v", uri, err)
		}
		return md, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		md := *res.Val.(*model.Metadata)
		return &md, nil
	}
}
