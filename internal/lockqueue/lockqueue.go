// Package lockqueue implements C2: named distributed mutexes and named
// FIFO queues. The interface is the contract (spec.md §4.2) — callers
// depend only on LockService/QueueService, never on the in-memory or
// Redis concrete type, so a single-instance deployment can run in-memory
// while a multi-instance one swaps in Redis without touching any caller.
package lockqueue

import (
	"context"
	"time"

	"github.com/sheegaon/quipengine/internal/coordinator"
)

// LockClass orders lock names by level so deadlock avoidance can be
// checked at acquire time (spec.md §5: player locks before content locks,
// content locks before phase locks, phase locks before party locks).
type LockClass int

const (
	LockClassPlayer LockClass = iota
	LockClassContent
	LockClassPhase
	LockClassParty
)

// LockService is a named distributed mutex with blocking acquire and a
// timeout. Held across arbitrary user code; release on scope exit is
// guaranteed by the Handle returned from Lock.
type LockService interface {
	// Lock blocks until the named lock is acquired, ctx is cancelled, or
	// timeout elapses — whichever comes first. On timeout it returns a
	// *coordinator.Error with Kind == coordinator.KindLockTimeout.
	Lock(ctx context.Context, class LockClass, name string, timeout time.Duration) (Handle, error)
}

// Handle releases a held lock exactly once.
type Handle interface {
	Release()
}

// QueueItem is a small opaque structure pushed/popped from a named FIFO
// queue (e.g. {"roundId": "..."} or {"setId": "..."}).
type QueueItem map[string]string

// QueueService is a named multi-producer/multi-consumer FIFO queue.
type QueueService interface {
	Push(ctx context.Context, name string, item QueueItem) error
	Peek(ctx context.Context, name string) (QueueItem, bool, error)
	Pop(ctx context.Context, name string) (QueueItem, bool, error)
	// Remove deletes the first occurrence of item from the queue ("take
	// if present" semantics) and reports whether it was found.
	Remove(ctx context.Context, name string, item QueueItem) (bool, error)
	Length(ctx context.Context, name string) (int, error)
}

// WithLock is a convenience wrapper that acquires name, runs fn, and
// always releases — the pattern every C5/C7/C8 call site uses instead of
// manually pairing Lock/Release.
func WithLock(ctx context.Context, ls LockService, class LockClass, name string, timeout time.Duration, fn func() error) error {
	h, err := ls.Lock(ctx, class, name, timeout)
	if err != nil {
		return err
	}
	defer h.Release()
	return fn()
}

// timeoutErr builds the distinguished LockTimeout error.
func timeoutErr(name string) error {
	return coordinator.Newf(coordinator.KindLockTimeout, "timed out acquiring lock %q", name)
}
