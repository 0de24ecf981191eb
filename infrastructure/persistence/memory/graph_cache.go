package memory

import (
	"context"
	"sync"

	"lorekeeper-backend/domain/core/aggregates"
)

// GraphCache is an in-memory, per-user narrative graph cache. Staleness is
// judged by the caller against the graph's build time, so entries carry no
// TTL of their own.
type GraphCache struct {
	mu     sync.RWMutex
	graphs map[string]*aggregates.NarrativeGraph
}

// NewGraphCache creates an empty graph cache
func NewGraphCache() *GraphCache {
	return &GraphCache{
		graphs: make(map[string]*aggregates.NarrativeGraph),
	}
}

// Get retrieves a user's cached graph
func (c *GraphCache) Get(ctx context.Context, userID string) (*aggregates.NarrativeGraph, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	graph, ok := c.graphs[userID]
	return graph, ok
}

// Put stores a freshly built graph
func (c *GraphCache) Put(ctx context.Context, graph *aggregates.NarrativeGraph) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.graphs[graph.UserID()] = graph
}

// Invalidate drops a user's cached graph
func (c *GraphCache) Invalidate(ctx context.Context, userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.graphs, userID)
}
