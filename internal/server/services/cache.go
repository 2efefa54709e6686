package services

import (
	"container/list"
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// ArchiveCache keeps recently fetched archives in memory for a short time.
// Entries expire after ttl; when the total size would exceed maxBytes the
// least recently used entries are evicted. Concurrent misses for the same key
// share one load.
type ArchiveCache struct {
	ttl      time.Duration
	maxBytes int64
	now      func() time.Time

	group singleflight.Group

	mu    sync.Mutex
	size  int64
	lru   *list.List
	items map[string]*list.Element
}

type cacheEntry struct {
	key     string
	data    []byte
	expires time.Time
}

func NewArchiveCache(ttl time.Duration, maxBytes int64) *ArchiveCache {
	return &ArchiveCache{
		ttl:      ttl,
		maxBytes: maxBytes,
		now:      time.Now,
		lru:      list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get returns the cached bytes for key or calls load to fetch them. A shared
// load runs detached from any single caller's cancellation; each caller stops
// waiting when its own ctx is done.
func (c *ArchiveCache) Get(ctx context.Context, key string, load func(context.Context) ([]byte, error)) ([]byte, error) {
	if data, ok := c.lookup(key); ok {
		return data, nil
	}

	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (any, error) {
		if data, ok := c.lookup(key); ok {
			return data, nil
		}
		data, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.add(key, data)
		return data, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.([]byte), nil
	}
}

// Invalidate drops key from the cache.
func (c *ArchiveCache) Invalidate(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
}

// Len is the number of cached archives.
func (c *ArchiveCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items)
}

func (c *ArchiveCache) lookup(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		return nil, false
	}
	e := el.Value.(*cacheEntry)
	if !c.now().Before(e.expires) {
		c.removeElement(el)
		return nil, false
	}
	c.lru.MoveToFront(el)
	return e.data, true
}

func (c *ArchiveCache) add(key string, data []byte) {
	n := int64(len(data))
	if c.maxBytes > 0 && n > c.maxBytes {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.removeElement(el)
	}
	for c.maxBytes > 0 && c.size+n > c.maxBytes {
		oldest := c.lru.Back()
		if oldest == nil {
			break
		}
		c.removeElement(oldest)
	}

	c.items[key] = c.lru.PushFront(&cacheEntry{key: key, data: data, expires: c.now().Add(c.ttl)})
	c.size += n
}

func (c *ArchiveCache) removeElement(el *list.Element) {
	e := c.lru.Remove(el).(*cacheEntry)
	delete(c.items, e.key)
	c.size -= int64(len(e.data))
}
