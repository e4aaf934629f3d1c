package server

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// DefaultPoolSize bounds concurrent tool executions when no explicit
// limit is configured.
const DefaultPoolSize = 8

// Pool bounds the number of tool calls executing at once, so a burst of
// MCP requests cannot fan out into unbounded Gmail API pressure.
type Pool struct {
	sem  *semaphore.Weighted
	size int64
}

// NewPool creates a worker pool with the given capacity; values <= 0 fall
// back to the default.
func NewPool(size int64) *Pool {
	if size <= 0 {
		size = DefaultPoolSize
	}
	return &Pool{
		sem:  semaphore.NewWeighted(size),
		size: size,
	}
}

// Size returns the pool capacity.
func (p *Pool) Size() int64 {
	return p.size
}

// Acquire blocks until a slot is free or the context is done.
func (p *Pool) Acquire(ctx context.Context) error {
	return p.sem.Acquire(ctx, 1)
}

// TryAcquire grabs a slot without blocking.
func (p *Pool) TryAcquire() bool {
	return p.sem.TryAcquire(1)
}

// Release returns a slot to the pool.
func (p *Pool) Release() {
	p.sem.Release(1)
}
