// Package mcs implements the Mellor-Crummey & Scott (MCS) lock, a
// scalable FIFO queue-based spin lock for freestanding-style code that
// cannot rely on an OS scheduler to park waiters.
//
// An MCS lock provides several advantages over a plain spin lock:
//   - FIFO ordering ensures fair lock acquisition.
//   - Each waiter spins on a field of its own node, so contention does
//     not bounce a single cache line between cores.
//   - Memory usage scales with the number of waiters, not with some
//     fixed array, and the caller controls exactly where that memory
//     lives by supplying the node.
//
// Example usage:
//
//	lock := mcs.NewLock(0)
//	var node mcs.MCSNode[int]
//
//	guard := lock.Lock(&node)
//	*guard.Value()++
//	guard.Unlock()
//
// Each goroutine must supply its own MCSNode and must not let that node
// be reused or go out of scope before Unlock returns. A node must not be
// shared by two concurrent acquisitions.
package mcs

import (
	"sync/atomic"

	"github.com/ahrav/synclock/internal/spinhint"
)

// MCSNode is a waiter's slot in the lock's queue. The caller owns the
// node's storage; it must live from before the first call to Lock until
// after the matching guard's Unlock returns.
//
// locked == true means "this waiter is still queued and must keep
// spinning"; locked == false means the waiter may proceed. This
// polarity is the one fixed convention for the whole package — it must
// not be read as "the lock is held."
type MCSNode[T any] struct {
	next   atomic.Pointer[MCSNode[T]]
	locked atomic.Bool
}

// MCSLock is a mutual-exclusion lock guarding a value of type T. The
// zero value is not usable; construct one with NewLock.
type MCSLock[T any] struct {
	tail atomic.Pointer[MCSNode[T]]
	data T
}

// NewLock constructs an MCS lock wrapping v.
func NewLock[T any](v T) *MCSLock[T] {
	return &MCSLock[T]{data: v}
}

// TryLock attempts to acquire the lock without blocking. It only
// succeeds in the uncontended case (no other waiter currently queued);
// it does not attempt to jump the FIFO queue. Returns the guard and true
// on success.
func (l *MCSLock[T]) TryLock(node *MCSNode[T]) (*MCSGuard[T], bool) {
	node.next.Store(nil)
	node.locked.Store(false)
	if l.tail.CompareAndSwap(nil, node) {
		return &MCSGuard[T]{node: node, lock: l}, true
	}
	return nil, false
}

// Lock acquires the lock, spin-waiting until it is held, and returns a
// guard bound to node and to the lock. node must not be used for any
// other concurrent acquisition until the returned guard's Unlock
// returns.
func (l *MCSLock[T]) Lock(node *MCSNode[T]) *MCSGuard[T] {
	node.next.Store(nil)
	node.locked.Store(true)

	guard := &MCSGuard[T]{node: node, lock: l}

	prev := l.tail.Swap(node)
	if prev == nil {
		// No predecessor: we are the sole contender and already hold
		// the lock. The Swap above is acquire-release, which is
		// enough to observe the previous holder's writes.
		return guard
	}

	// Enqueue behind prev; it will clear our locked flag once it
	// releases.
	prev.next.Store(node)

	for node.locked.Load() {
		spinhint.Pause()
	}

	return guard
}

// MCSGuard grants scoped access to the lock's payload. Call Unlock
// exactly once, typically via defer, to release the lock.
type MCSGuard[T any] struct {
	node *MCSNode[T]
	lock *MCSLock[T]
}

// Value returns a pointer to the protected payload, valid for the
// lifetime of the guard.
func (g *MCSGuard[T]) Value() *T {
	return &g.lock.data
}

// Unlock releases the lock, handing off to a queued successor if one
// exists.
func (g *MCSGuard[T]) Unlock() {
	node := g.node
	lock := g.lock

	if node.next.Load() == nil {
		if lock.tail.CompareAndSwap(node, nil) {
			// No one arrived while we were checking: we were the
			// last node in the queue and the lock is now free.
			return
		}

		// A new waiter is in the middle of publishing itself into
		// prev.next; spin until it shows up.
		for node.next.Load() == nil {
			spinhint.Pause()
		}
	}

	succ := node.next.Load()
	succ.locked.Store(false)
}
