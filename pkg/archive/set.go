package archive

import (
	"container/list"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
)

// Archive names.
const (
	Data      = "data"
	Expansion = "expansion"
	Patch     = "patch"
)

// Names lists the archive names in lookup priority order for fallback reads.
var Names = []string{Patch, Expansion, Data}

// DefaultCacheBytes bounds the read cache of a Set.
const DefaultCacheBytes = 64 << 20

// Set handles reads from the named archives of one game installation.
type Set struct {
	archives map[string]*Archive
	cache    *Cache
	mu       sync.RWMutex
}

// NewSet creates an empty archive set with a DefaultCacheBytes read cache.
func NewSet() *Set {
	return &Set{
		archives: make(map[string]*Archive),
		cache:    NewCache(DefaultCacheBytes),
	}
}

// OpenGameDir opens every archive found under gameDir. Each archive is an
// extracted tree in a subdirectory named after it. The data archive is
// required; the others are optional.
func OpenGameDir(gameDir string) (*Set, error) {
	s := NewSet()
	for _, name := range Names {
		dir := filepath.Join(gameDir, name)
		if _, err := os.Stat(dir); errors.Is(err, os.ErrNotExist) && name != Data {
			continue
		}
		a, err := Open(name, dir)
		if err != nil {
			return nil, err
		}
		s.Add(a)
	}
	return s, nil
}

// Clone returns a set over the same archives with its own empty read cache.
func (s *Set) Clone() *Set {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c := &Set{
		archives: make(map[string]*Archive, len(s.archives)),
		cache:    NewCache(s.cache.maxBytes),
	}
	for name, a := range s.archives {
		c.archives[name] = a
	}
	return c
}

// Add registers an archive under its name, replacing any previous one.
func (s *Set) Add(a *Archive) {
	s.mu.Lock()
	s.archives[a.Name()] = a
	s.mu.Unlock()
}

// Has reports whether the named archive is open.
func (s *Set) Has(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	_, ok := s.archives[name]
	return ok
}

// Read reads a logical path from the named archive.
func (s *Set) Read(name, path string) ([]byte, error) {
	key := name + ":" + path
	if data, ok := s.cache.Get(key); ok {
		return data, nil
	}

	s.mu.RLock()
	a, ok := s.archives[name]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrArchiveNotFound, name)
	}

	data, err := a.Read(path)
	if err != nil {
		return nil, err
	}
	s.cache.Set(key, data)
	return data, nil
}

// ReadFirst reads path from the first of names that contains it. Without
// names the archives are tried in Names order.
func (s *Set) ReadFirst(path string, names ...string) ([]byte, error) {
	if len(names) == 0 {
		names = Names
	}
	for _, name := range names {
		data, err := s.Read(name, path)
		if err == nil {
			return data, nil
		}
		if !errors.Is(err, ErrFileNotFound) && !errors.Is(err, ErrArchiveNotFound) {
			return nil, err
		}
	}
	return nil, fmt.Errorf("%w: %s in %v", ErrFileNotFound, path, names)
}

// CacheStats reports the read cache usage.
func (s *Set) CacheStats() CacheStats {
	return s.cache.Stats()
}

// ReleaseCache drops cached file contents, keeping the archives open.
func (s *Set) ReleaseCache() {
	s.cache.Clear()
}

// Close drops all archives and cached data.
func (s *Set) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.archives = make(map[string]*Archive)
	s.cache.Clear()
}

// CacheStats summarises a Cache.
type CacheStats struct {
	Hits    int
	Misses  int
	Entries int
	Bytes   int
}

type cacheEntry struct {
	key  string
	data []byte
}

// Cache keeps recently read files up to a byte budget, evicting the least
// recently used first. Files larger than the budget are not kept.
type Cache struct {
	mu       sync.Mutex
	maxBytes int
	size     int
	order    *list.List
	items    map[string]*list.Element

	hits   int
	misses int
}

// NewCache creates a cache holding at most maxBytes of file data.
func NewCache(maxBytes int) *Cache {
	return &Cache{
		maxBytes: maxBytes,
		order:    list.New(),
		items:    make(map[string]*list.Element),
	}
}

// Get retrieves an item from cache.
func (c *Cache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.items[key]
	if !ok {
		c.misses++
		return nil, false
	}
	c.hits++
	c.order.MoveToFront(el)
	return el.Value.(*cacheEntry).data, true
}

// Set stores an item, evicting old ones to stay within the budget.
func (c *Cache) Set(key string, data []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.items[key]; ok {
		c.size -= len(el.Value.(*cacheEntry).data)
		c.order.Remove(el)
		delete(c.items, key)
	}
	if len(data) > c.maxBytes {
		return
	}

	c.items[key] = c.order.PushFront(&cacheEntry{key: key, data: data})
	c.size += len(data)
	for c.size > c.maxBytes {
		oldest := c.order.Back()
		e := oldest.Value.(*cacheEntry)
		c.order.Remove(oldest)
		delete(c.items, e.key)
		c.size -= len(e.data)
	}
}

// Clear drops every entry. Hit and miss counts are kept.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.order.Init()
	c.items = make(map[string]*list.Element)
	c.size = 0
}

// Stats returns cache statistics.
func (c *Cache) Stats() CacheStats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return CacheStats{Hits: c.hits, Misses: c.misses, Entries: len(c.items), Bytes: c.size}
}
