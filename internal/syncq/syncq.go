// Package syncq provides a lock-protected rendezvous between goroutines that
// publish negotiation state (engine callbacks) and a goroutine that blocks
// until some predicate over that state holds (the negotiation driver).
//
// The Queue owns no values itself. Callers keep their state in ordinary
// fields and touch it only inside Update, Do or a WaitUntil predicate, all of
// which run under the same mutex.
package syncq

import (
	"context"
	"sync"
)

// Queue is a mutex plus a broadcast signal. The zero value is not usable;
// call New.
type Queue struct {
	mu      sync.Mutex
	changed chan struct{} // closed and replaced on every Update
	err     error         // first fatal error, sticky
}

// New returns an empty Queue.
func New() *Queue {
	return &Queue{changed: make(chan struct{})}
}

// Update runs fn under the lock and wakes every waiter.
func (q *Queue) Update(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	fn()
	q.broadcastLocked()
}

// Do runs fn under the lock without waking waiters. Use it for reads, or
// for mutations no predicate depends on.
func (q *Queue) Do(fn func()) {
	q.mu.Lock()
	defer q.mu.Unlock()
	fn()
}

// Fail records err as the queue's fatal error and wakes every waiter. Only
// the first error is kept.
func (q *Queue) Fail(err error) {
	if err == nil {
		return
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.err == nil {
		q.err = err
	}
	q.broadcastLocked()
}

// Err returns the recorded fatal error, if any.
func (q *Queue) Err() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.err
}

// WaitUntil blocks until pred returns true, a fatal error is recorded, or ctx
// is done. pred is evaluated under the lock: once up front and again after
// every Update. The lock is not held while suspended.
//
// A recorded fatal error takes precedence over pred.
func (q *Queue) WaitUntil(ctx context.Context, pred func() bool) error {
	q.mu.Lock()
	for {
		if q.err != nil {
			err := q.err
			q.mu.Unlock()
			return err
		}
		if pred() {
			q.mu.Unlock()
			return nil
		}
		changed := q.changed
		q.mu.Unlock()

		select {
		case <-changed:
		case <-ctx.Done():
			return ctx.Err()
		}
		q.mu.Lock()
	}
}

func (q *Queue) broadcastLocked() {
	close(q.changed)
	q.changed = make(chan struct{})
}
