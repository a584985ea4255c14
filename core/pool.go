package core

import (
	"sync"
	"sync/atomic"
)

// GenericPool is a generic wrapper around sync.Pool whose constructor may fail.
type GenericPool[T any] struct {
	pool    sync.Pool
	newItem func() (T, error)

	// Metrics
	hits    atomic.Uint64 // Number of Get calls served from the pool.
	created atomic.Uint64 // Total number of new items created.
}

// NewGenericPool creates a new GenericPool with a function to create new items.
func NewGenericPool[T any](newItem func() (T, error)) *GenericPool[T] {
	return &GenericPool[T]{newItem: newItem}
}

// Get retrieves an item from the pool, creating one if the pool is empty.
func (p *GenericPool[T]) Get() (T, error) {
	if v := p.pool.Get(); v != nil {
		p.hits.Add(1)
		return v.(T), nil
	}
	item, err := p.newItem()
	if err != nil {
		var zero T
		return zero, err
	}
	p.created.Add(1)
	return item, nil
}

// Put returns an item to the pool.
func (p *GenericPool[T]) Put(item T) {
	p.pool.Put(item)
}

// GetMetrics returns the current metrics for the pool.
func (p *GenericPool[T]) GetMetrics() (hits, created uint64) {
	return p.hits.Load(), p.created.Load()
}
