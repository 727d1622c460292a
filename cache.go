package spacetraveling

import (
	"context"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/eringen/spacetraveling/content"
	"github.com/eringen/spacetraveling/detail"
	"github.com/eringen/spacetraveling/listing"
)

// CacheConfig sizes and ages the ContentCache.
type CacheConfig struct {
	PageSize   int
	ListingTTL time.Duration
	PostTTL    time.Duration
}

type cacheEntry struct {
	value   any
	fetched time.Time
	ttl     time.Duration
}

func (e cacheEntry) valid(now time.Time) bool {
	return now.Sub(e.fetched) < e.ttl
}

// ContentCache keeps rendered-page inputs for a fixed time, the way a static
// site regenerates pages after a revalidation window. Concurrent misses for
// the same key share one upstream load. Preview reads never go through it.
type ContentCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	group   singleflight.Group
	now     func() time.Time

	repo    content.Repository
	details *detail.Assembler
	cfg     CacheConfig
}

// NewContentCache creates a ContentCache over repo.
func NewContentCache(repo content.Repository, details *detail.Assembler, cfg CacheConfig) *ContentCache {
	return &ContentCache{
		entries: make(map[string]cacheEntry),
		now:     time.Now,
		repo:    repo,
		details: details,
		cfg:     cfg,
	}
}

// Invalidate clears the cache so the next read triggers a fresh load.
func (c *ContentCache) Invalidate() {
	c.mu.Lock()
	c.entries = make(map[string]cacheEntry)
	c.mu.Unlock()
}

// FirstPage returns the first listing page.
func (c *ContentCache) FirstPage(ctx context.Context) (content.Response, error) {
	v, err := c.get(ctx, "listing", c.cfg.ListingTTL, func(ctx context.Context) (any, error) {
		return listing.FirstPage(ctx, c.repo, c.cfg.PageSize, "")
	})
	if err != nil {
		return content.Response{}, err
	}
	return v.(content.Response), nil
}

// Recent returns the n most recent posts, as the feed lists them.
func (c *ContentCache) Recent(ctx context.Context, n int) ([]content.Post, error) {
	v, err := c.get(ctx, "recent:"+strconv.Itoa(n), c.cfg.ListingTTL, func(ctx context.Context) (any, error) {
		return listing.Recent(ctx, c.repo, n)
	})
	if err != nil {
		return nil, err
	}
	return v.([]content.Post), nil
}

// UIDs returns every known post uid.
func (c *ContentCache) UIDs(ctx context.Context) ([]string, error) {
	v, err := c.get(ctx, "uids", c.cfg.ListingTTL, func(ctx context.Context) (any, error) {
		return listing.AllUIDs(ctx, c.repo)
	})
	if err != nil {
		return nil, err
	}
	return v.([]string), nil
}

// Post returns the assembled post page for uid. Not-found results are not
// cached, so a newly published post shows up on the next request.
func (c *ContentCache) Post(ctx context.Context, uid string) (detail.Detail, error) {
	v, err := c.get(ctx, "post:"+uid, c.cfg.PostTTL, func(ctx context.Context) (any, error) {
		return c.details.Load(ctx, uid, "")
	})
	if err != nil {
		return detail.Detail{}, err
	}
	return v.(detail.Detail), nil
}

// get returns the cached value for key, loading it on a miss. The load runs
// detached from the caller's cancellation because other callers may be
// waiting on the same result.
func (c *ContentCache) get(ctx context.Context, key string, ttl time.Duration, load func(context.Context) (any, error)) (any, error) {
	c.mu.RLock()
	e, ok := c.entries[key]
	c.mu.RUnlock()
	if ok && e.valid(c.now()) {
		return e.value, nil
	}

	v, err, _ := c.group.Do(key, func() (any, error) {
		value, err := load(context.WithoutCancel(ctx))
		if err != nil {
			return nil, err
		}
		c.mu.Lock()
		c.entries[key] = cacheEntry{value: value, fetched: c.now(), ttl: ttl}
		c.mu.Unlock()
		return value, nil
	})
	return v, err
}
