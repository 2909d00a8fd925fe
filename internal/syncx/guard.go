// Package syncx provides extended synchronization primitives
package syncx

import "sync"

// RWGuard wraps RWMutex with scoped helpers around a single value. Used for
// state that one goroutine writes and others read, like the latest accepted
// slide preview shared with the status server.
type RWGuard[T any] struct {
	mu    sync.RWMutex
	value T
}

// NewGuard creates a guarded value.
func NewGuard[T any](initial T) *RWGuard[T] {
	return &RWGuard[T]{value: initial}
}

// Get returns a copy of the value (T should be value type or immutable).
func (g *RWGuard[T]) Get() T {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.value
}

// Set atomically replaces the value.
func (g *RWGuard[T]) Set(v T) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.value = v
}
