// internal/storage/memory/memory.go
package memory

import (
	"sync"

	"github.com/truckmatch/routecompare/pkg/core"
)

// Backend keeps route shapes in a map for the lifetime of the process.
type Backend struct {
	routes map[string]core.PathShape
	mu     sync.RWMutex
}

// New creates a new memory backend
func New() *Backend {
	return &Backend{
		routes: make(map[string]core.PathShape),
	}
}

// Init is a no-op for the memory backend.
func (b *Backend) Init() error {
	return nil
}

// Close drops all stored routes.
func (b *Backend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes = make(map[string]core.PathShape)
	return nil
}

// SaveRoute stores a copy of shape under key.
func (b *Backend) SaveRoute(key string, shape core.PathShape) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.routes[key] = shape.Clone()
	return nil
}

// LoadRoute returns a copy of the shape stored under key.
func (b *Backend) LoadRoute(key string) (core.PathShape, bool, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	shape, ok := b.routes[key]
	if !ok {
		return nil, false, nil
	}
	return shape.Clone(), true, nil
}

// Len returns the number of stored routes.
func (b *Backend) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.routes)
}
