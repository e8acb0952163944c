package cache

import (
	"context"
	"sort"
	"sync"

	"github.com/whatbot/flowedit/pkg/flowedit"
)

// MemoryCache is an in-process Cache for tests and single-binary
// deployments.
type MemoryCache struct {
	mu     sync.RWMutex
	graphs map[string]flowedit.Graph
	names  map[string]string
	index  map[string]struct{}
	closed bool
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{
		graphs: make(map[string]flowedit.Graph),
		names:  make(map[string]string),
		index:  make(map[string]struct{}),
	}
}

// PutGraph implements Cache.
func (c *MemoryCache) PutGraph(_ context.Context, botID string, g flowedit.Graph) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	c.graphs[botID] = g
	c.index[botID] = struct{}{}
	return nil
}

// GetGraph implements Cache.
func (c *MemoryCache) GetGraph(_ context.Context, botID string) (flowedit.Graph, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return flowedit.Graph{}, false, ErrCacheClosed
	}
	g, ok := c.graphs[botID]
	return g, ok, nil
}

// PutName implements Cache.
func (c *MemoryCache) PutName(_ context.Context, botID, name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	c.names[botID] = name
	return nil
}

// GetName implements Cache.
func (c *MemoryCache) GetName(_ context.Context, botID string) (string, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return "", false, ErrCacheClosed
	}
	name, ok := c.names[botID]
	return name, ok, nil
}

// Rekey implements Cache.
func (c *MemoryCache) Rekey(_ context.Context, oldID, newID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	if g, ok := c.graphs[oldID]; ok {
		c.graphs[newID] = g
		delete(c.graphs, oldID)
		c.index[newID] = struct{}{}
	}
	if name, ok := c.names[oldID]; ok {
		c.names[newID] = name
		delete(c.names, oldID)
	}
	delete(c.index, oldID)
	return nil
}

// Delete implements Cache.
func (c *MemoryCache) Delete(_ context.Context, botID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return ErrCacheClosed
	}
	delete(c.graphs, botID)
	delete(c.names, botID)
	delete(c.index, botID)
	return nil
}

// BotIDs implements Cache. IDs are returned sorted for deterministic
// output.
func (c *MemoryCache) BotIDs(_ context.Context) ([]string, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.closed {
		return nil, ErrCacheClosed
	}
	ids := make([]string, 0, len(c.index))
	for id := range c.index {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

// Close implements Cache.
func (c *MemoryCache) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}
