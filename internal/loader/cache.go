package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/vinodismyname/salesdash/config"
	"github.com/vinodismyname/salesdash/internal/dataset"
)

// Entry is a loaded dataset paired with metadata for idle-TTL eviction.
// The Dataset is shared by all readers and must not be modified.
type Entry struct {
	ID       string
	Source   Source
	Format   Format
	Dataset  *dataset.Dataset
	LoadedAt time.Time

	mu        sync.RWMutex
	expiresAt time.Time
}

// ExpiresAt returns the current idle deadline.
func (e *Entry) ExpiresAt() time.Time {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.expiresAt
}

// Expired reports whether the entry has reached its TTL.
func (e *Entry) Expired(now time.Time) bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return now.After(e.expiresAt)
}

func (e *Entry) touch(deadline time.Time) {
	e.mu.Lock()
	e.expiresAt = deadline
	e.mu.Unlock()
}

// ErrEntryNotFound indicates an unknown or expired dataset ID.
var ErrEntryNotFound = errors.New("loader: dataset not found")

// Cache memoizes loaded datasets by source key with idle-TTL eviction.
// Concurrent loads of the same key share one call; failures are not stored.
type Cache struct {
	mu           sync.RWMutex
	byKey        map[string]*Entry
	byID         map[string]*Entry
	ttl          time.Duration
	cleanupEvery time.Duration
	clock        func() time.Time
	group        singleflight.Group
	stopCh       chan struct{}
	stopOnce     sync.Once
	cleanupWG    sync.WaitGroup
}

// NewCache constructs a cache. Pass ttl or cleanupEvery <= 0 to use defaults
// from config; clock defaults to time.Now when nil.
func NewCache(ttl, cleanupEvery time.Duration, clock func() time.Time) *Cache {
	if ttl <= 0 {
		ttl = config.DefaultCacheIdleTTL
	}
	if cleanupEvery <= 0 {
		cleanupEvery = config.DefaultCacheCleanupPeriod
	}
	if clock == nil {
		clock = time.Now
	}
	return &Cache{
		byKey:        make(map[string]*Entry),
		byID:         make(map[string]*Entry),
		ttl:          ttl,
		cleanupEvery: cleanupEvery,
		clock:        clock,
		stopCh:       make(chan struct{}),
	}
}

// Start launches periodic eviction of expired entries.
func (c *Cache) Start() {
	c.cleanupWG.Add(1)
	ticker := time.NewTicker(c.cleanupEvery)
	go func() {
		defer c.cleanupWG.Done()
		defer ticker.Stop()
		for {
			select {
			case <-c.stopCh:
				return
			case <-ticker.C:
				c.EvictExpired()
			}
		}
	}()
}

// Close stops background cleanup and drops all entries.
func (c *Cache) Close(ctx context.Context) error {
	c.stopOnce.Do(func() { close(c.stopCh) })
	done := make(chan struct{})
	go func() { c.cleanupWG.Wait(); close(done) }()
	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.byKey = make(map[string]*Entry)
	c.byID = make(map[string]*Entry)
	return nil
}

// Get returns the entry for a dataset ID and refreshes its TTL.
func (c *Cache) Get(id string) (*Entry, bool) {
	c.mu.RLock()
	e, ok := c.byID[id]
	c.mu.RUnlock()
	return c.hit(e, ok)
}

// Lookup returns the entry for a source key and refreshes its TTL.
func (c *Cache) Lookup(key string) (*Entry, bool) {
	c.mu.RLock()
	e, ok := c.byKey[key]
	c.mu.RUnlock()
	return c.hit(e, ok)
}

func (c *Cache) hit(e *Entry, ok bool) (*Entry, bool) {
	if !ok {
		return nil, false
	}
	now := c.clock()
	if e.Expired(now) {
		return nil, false
	}
	// Refresh TTL on access (idle timeout semantics)
	e.touch(now.Add(c.ttl))
	return e, true
}

// GetOrLoad returns the cached entry for key or runs load once for all
// concurrent callers. The load runs detached from any single caller's
// cancellation; a caller whose ctx ends stops waiting and gets ctx.Err().
func (c *Cache) GetOrLoad(ctx context.Context, key string, load func(context.Context) (*Entry, error)) (*Entry, bool, error) {
	if e, ok := c.Lookup(key); ok {
		return e, true, nil
	}
	detached := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if e, ok := c.Lookup(key); ok {
			return e, nil
		}
		e, err := load(detached)
		if err != nil {
			return nil, err
		}
		c.put(key, e)
		return e, nil
	})
	select {
	case <-ctx.Done():
		return nil, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, false, res.Err
		}
		return res.Val.(*Entry), false, nil
	}
}

func (c *Cache) put(key string, e *Entry) {
	now := c.clock()
	if e.LoadedAt.IsZero() {
		e.LoadedAt = now
	}
	e.touch(now.Add(c.ttl))

	c.mu.Lock()
	defer c.mu.Unlock()
	if old, ok := c.byKey[key]; ok {
		delete(c.byID, old.ID)
	}
	c.byKey[key] = e
	c.byID[e.ID] = e
}

// Invalidate drops the entry for key, forcing the next load to fetch again.
func (c *Cache) Invalidate(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	e, ok := c.byKey[key]
	if !ok {
		return false
	}
	delete(c.byKey, key)
	delete(c.byID, e.ID)
	return true
}

// EvictExpired removes expired entries and returns how many were dropped.
func (c *Cache) EvictExpired() int {
	now := c.clock()
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for key, e := range c.byKey {
		if e.Expired(now) {
			delete(c.byKey, key)
			delete(c.byID, e.ID)
			n++
		}
	}
	return n
}

// Count returns the current number of cached entries.
func (c *Cache) Count() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.byKey)
}
