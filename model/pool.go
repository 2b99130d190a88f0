package model

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"
)

// Pool bounds how many completions run concurrently against a shared
// provider client. A caller whose workflow needs a completion borrows a slot
// for the duration of the call and blocks (up to context cancellation) when
// all slots are taken; the slot is released automatically when the call
// returns. Pool itself is safe for concurrent use by independent workflow
// invocations.
type Pool struct {
	client Client
	sem    *semaphore.Weighted
}

// NewPool wraps client so at most maxConcurrent completions are in flight
// at once. maxConcurrent must be at least 1.
func NewPool(client Client, maxConcurrent int64) (*Pool, error) {
	if maxConcurrent < 1 {
		return nil, fmt.Errorf("pool size must be at least 1, got %d", maxConcurrent)
	}
	return &Pool{
		client: client,
		sem:    semaphore.NewWeighted(maxConcurrent),
	}, nil
}

// Complete implements Client, borrowing a pool slot for the duration of the
// underlying call.
func (p *Pool) Complete(ctx context.Context, req Request) (*Response, error) {
	if err := p.sem.Acquire(ctx, 1); err != nil {
		return nil, fmt.Errorf("acquiring model client: %w", err)
	}
	defer p.sem.Release(1)

	return p.client.Complete(ctx, req)
}

// Info implements Client.
func (p *Pool) Info() Info { return p.client.Info() }

// Limited enforces a maximum number of completions over its lifetime. Wrap a
// fresh Limited around the shared client per workflow invocation to cap the
// model spend of a single run.
type Limited struct {
	client Client
	max    int
	mu     sync.Mutex
	count  int
}

// NewLimited creates a call-capped view of client. If max == 0, unlimited
// calls are allowed.
func NewLimited(client Client, max int) *Limited {
	return &Limited{client: client, max: max}
}

// Complete implements Client, counting the call against the cap.
func (l *Limited) Complete(ctx context.Context, req Request) (*Response, error) {
	l.mu.Lock()
	l.count++
	if l.max > 0 && l.count > l.max {
		l.mu.Unlock()
		return nil, fmt.Errorf("exceeded max model calls: %d", l.max)
	}
	l.mu.Unlock()

	return l.client.Complete(ctx, req)
}

// Info implements Client.
func (l *Limited) Info() Info { return l.client.Info() }

// Count returns the number of completions attempted so far.
func (l *Limited) Count() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count
}

// Remaining returns how many calls are left before hitting the limit, or -1
// when unlimited.
func (l *Limited) Remaining() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.max == 0 {
		return -1
	}
	return l.max - l.count
}
