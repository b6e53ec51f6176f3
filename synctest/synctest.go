// Package synctest is the interleaving-exploration and property-test
// harness used by lfstack's test suite and by cmd/lockbench. Go has no
// bundled model checker equivalent to Loom; spec.md §1 explicitly scopes
// "the test harness' choice of interleaving explorer" out of the core,
// so this package implements the idiomatic Go substitute: bounded
// repeated-trial fuzzing under the race detector, goroutine fan-out/join,
// drop/reclamation bookkeeping, and a generic counter sum. It has no
// helper for checking FIFO ordering.
package synctest

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/exp/constraints"
	"golang.org/x/sync/errgroup"
)

// Logger is the structured logger used to report harness diagnostics
// (failed trials, timing). Tests may replace it; it defaults to a
// no-op-level logger so that passing runs stay silent.
var Logger = zerolog.Nop()

// Trial runs fn N times, logging and returning the first error
// encountered. It is the repeated-trial stand-in for an exhaustive
// interleaving explorer: spec.md's testable properties 5 and 6 ask "all
// interleavings end with X"; this approximates that by running enough
// independent trials under -race that a violation is overwhelmingly
// likely to surface.
func Trial(n int, fn func(trial int) error) error {
	for i := 0; i < n; i++ {
		if err := fn(i); err != nil {
			Logger.Error().Int("trial", i).Err(err).Msg("synctest: trial failed")
			return fmt.Errorf("trial %d: %w", i, err)
		}
	}
	return nil
}

// Workers spawns n goroutines running fn, each given its own index, and
// waits for all of them, returning the first error any of them
// returned. It replaces the raw sync.WaitGroup pattern used for fan-out
// in code that also needs to surface an assertion failure as an error
// rather than calling t.Fatal from inside a goroutine, which is unsafe.
func Workers(ctx context.Context, n int, fn func(ctx context.Context, id int) error) error {
	eg, ctx := errgroup.WithContext(ctx)
	for i := 0; i < n; i++ {
		id := i
		eg.Go(func() error {
			return fn(ctx, id)
		})
	}
	return eg.Wait()
}

// AllocTracker is a minimal allocation-tracking helper standing in for
// the "allocator-tracking harness" spec.md's drop-correctness property
// (LFStack) calls for. Go has no custom allocator hook to intercept, so
// this tracks logical alloc/free calls the test itself makes around
// push/pop, and reports whether every allocation was eventually freed.
type AllocTracker struct {
	allocated int64
	freed     int64
}

// Alloc records one logical allocation (call once per Push).
func (a *AllocTracker) Alloc() { a.allocated++ }

// Free records one logical deallocation (call once per successful Pop).
func (a *AllocTracker) Free() { a.freed++ }

// Balanced reports whether every recorded allocation has a matching
// free.
func (a *AllocTracker) Balanced() bool { return a.allocated == a.freed }

// Outstanding returns the number of allocations with no matching free.
func (a *AllocTracker) Outstanding() int64 { return a.allocated - a.freed }

// Sum adds up per-worker operation counts once the workers have joined. It is
// generic over any integer type so callers can combine counts without a
// conversion, whether a benchmark counts in int, int32, or int64.
func Sum[T constraints.Integer](vals []T) T {
	var total T
	for _, v := range vals {
		total += v
	}
	return total
}
