package flow

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of parsed documents kept in memory.
// Projects rarely carry more flows than this, so in practice the cache
// only evicts after large renames.
const DefaultCacheSize = 256

type cacheEntry struct {
	doc     *Document
	modTime time.Time
	size    int64
}

// Cache keeps parsed flow documents keyed by absolute file path and
// reparses a file only when its size or modification time changes. It is
// safe for concurrent use.
type Cache struct {
	docs *lru.Cache[string, cacheEntry]
}

// NewCache returns a cache holding at most size parsed documents.
func NewCache(size int) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	docs, err := lru.New[string, cacheEntry](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create flow cache: %w", err)
	}
	return &Cache{docs: docs}, nil
}

// Load returns the parsed document for the flow file at path, reusing the
// cached parse when the file is unchanged on disk.
func (c *Cache) Load(path string) (*Document, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, &ParseError{Path: path, Kind: KindNotFound, Err: err}
	}
	info, err := os.Stat(abs)
	if err != nil {
		c.docs.Remove(abs)
		return nil, &ParseError{Path: abs, Kind: KindNotFound, Err: err}
	}
	if entry, ok := c.docs.Get(abs); ok {
		if entry.modTime.Equal(info.ModTime()) && entry.size == info.Size() {
			return entry.doc, nil
		}
	}
	doc, err := Parse(abs)
	if err != nil {
		c.docs.Remove(abs)
		return nil, err
	}
	c.docs.Add(abs, cacheEntry{doc: doc, modTime: info.ModTime(), size: info.Size()})
	return doc, nil
}

// Invalidate drops the cached parse for path, if any.
func (c *Cache) Invalidate(path string) {
	if abs, err := filepath.Abs(path); err == nil {
		c.docs.Remove(abs)
	}
}

// Purge drops every cached document.
func (c *Cache) Purge() {
	c.docs.Purge()
}

// Len reports how many documents are currently cached.
func (c *Cache) Len() int {
	return c.docs.Len()
}
