// Package rwlock implements a writer-preferring spin-based reader/writer
// lock for freestanding-style code with no OS-provided condition
// variable to park waiters on.
//
// Many readers may hold the lock concurrently, or a single writer may
// hold it exclusively. Once a writer starts waiting, no new reader may
// enter: existing readers are allowed to drain, but the writer is
// guaranteed to make progress without being starved by a continuous
// stream of incoming readers.
//
// Example usage:
//
//	lock := rwlock.NewRwLock(0)
//
//	rg := lock.Read()
//	v := *rg.Value()
//	rg.Unlock()
//
//	wg := lock.Write()
//	*wg.Value()++
//	wg.Unlock()
package rwlock

import (
	"math"
	"sync/atomic"

	"github.com/ahrav/synclock/internal/spinhint"
)

// writerHeld is the sentinel state value meaning a writer holds the
// lock exclusively. No other state value is ever reachable from it
// except 0.
const writerHeld = math.MaxUint64

// RwLock guards a value of type T with writer-preferring reader/writer
// semantics. The zero value is not usable; construct one with
// NewRwLock.
//
// state encodes:
//   - even value 2r (r >= 0): r active readers, no waiting writer.
//   - odd value 2r+1: r active readers and at least one waiting writer.
//   - writerHeld: one writer holds the lock exclusively.
//
// writerWake is a generation counter bumped whenever the lock reaches a
// state where a waiting writer might be able to proceed (the last
// reader leaving, or a writer releasing). Writers sample it before
// spinning so a wake that happens between the sample and the spin is
// never missed.
type RwLock[T any] struct {
	state      atomic.Uint64
	writerWake atomic.Uint64
	data       T
}

// NewRwLock constructs a reader/writer lock wrapping v.
func NewRwLock[T any](v T) *RwLock[T] {
	return &RwLock[T]{data: v}
}

// Read blocks until no writer holds or is waiting ahead of already
// in-flight readers, then returns a guard granting read access. Many
// read guards may coexist.
func (l *RwLock[T]) Read() *RwReadGuard[T] {
	s := l.state.Load()
	for {
		if s&1 == 0 {
			if l.state.CompareAndSwap(s, s+2) {
				return &RwReadGuard[T]{lock: l}
			}
			s = l.state.Load()
			continue
		}

		// A writer is waiting: do not jump ahead of it. Spin until
		// the state changes, then re-evaluate from scratch.
		for l.state.Load() == s {
			spinhint.Pause()
		}
		s = l.state.Load()
	}
}

// Write blocks until no readers and no writer hold the lock, then
// returns a guard granting exclusive read/write access.
func (l *RwLock[T]) Write() *RwWriteGuard[T] {
	s := l.state.Load()
	for {
		if s <= 1 {
			if l.state.CompareAndSwap(s, writerHeld) {
				return &RwWriteGuard[T]{lock: l}
			}
			s = l.state.Load()
			continue
		}

		if s&1 == 0 {
			if !l.state.CompareAndSwap(s, s+1) {
				s = l.state.Load()
				continue
			}
			s++
		}

		// Readers are still present. Sample the wake counter before
		// re-reading state, so a reader that leaves between these two
		// reads still bumps a counter value we have not yet observed.
		w := l.writerWake.Load()
		s = l.state.Load()

		if s >= 2 {
			for l.writerWake.Load() == w {
				spinhint.Pause()
			}
			s = l.state.Load()
		}
	}
}

// RwReadGuard grants scoped read access to the lock's payload. Call
// Unlock exactly once, typically via defer.
type RwReadGuard[T any] struct {
	lock *RwLock[T]
}

// Value returns a pointer to the protected payload. Callers must treat
// it as read-only for the lifetime of the guard; Go has no way to
// enforce that at the type level, so this is the caller's discipline to
// keep, per the library's no-poisoning, trust-the-caller design.
func (g *RwReadGuard[T]) Value() *T {
	return &g.lock.data
}

// subTwo, added via atomic.Uint64.Add, is the two's-complement encoding
// of -2: sync/atomic has no dedicated subtract.
const subTwo = ^uint64(1)

// Unlock releases the read lock.
func (g *RwReadGuard[T]) Unlock() {
	newState := g.lock.state.Add(subTwo)
	if newState == 1 {
		// state was exactly 3 before this release: this was the last
		// reader, and a writer is waiting. Wake it.
		g.lock.writerWake.Add(1)
	}
}

// RwWriteGuard grants scoped exclusive read/write access to the lock's
// payload. Call Unlock exactly once, typically via defer.
type RwWriteGuard[T any] struct {
	lock *RwLock[T]
}

// Value returns a pointer to the protected payload.
func (g *RwWriteGuard[T]) Value() *T {
	return &g.lock.data
}

// Unlock releases the write lock.
func (g *RwWriteGuard[T]) Unlock() {
	g.lock.state.Store(0)
	g.lock.writerWake.Add(1)
}
