// Command lockbench drives one of the three synclock primitives under a
// configurable number of worker goroutines and reports throughput. It is
// a benchmarking harness, not part of the library's public API: the
// primitives themselves remain library-only, per spec.md §6.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ahrav/synclock/internal/spinhint"
	"github.com/ahrav/synclock/lfstack"
	"github.com/ahrav/synclock/mcs"
	"github.com/ahrav/synclock/rwlock"
	"github.com/ahrav/synclock/synctest"
	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type config struct {
	primitive   string
	goroutines  int
	iterations  int
	cooperative bool
}

func parseFlags(args []string) (config, error) {
	fs := pflag.NewFlagSet("lockbench", pflag.ContinueOnError)
	primitive := fs.String("primitive", "mcs", "which primitive to drive: mcs, rwlock, or lfstack")
	goroutines := fs.Int("goroutines", 4, "number of worker goroutines")
	iterations := fs.Int("iterations", 1_000_000, "iterations per worker goroutine")
	cooperative := fs.Bool("cooperative", false, "yield the scheduler on every spin iteration")

	if err := fs.Parse(args); err != nil {
		return config{}, err
	}

	cfg := config{
		primitive:   *primitive,
		goroutines:  *goroutines,
		iterations:  *iterations,
		cooperative: *cooperative,
	}

	switch cfg.primitive {
	case "mcs", "rwlock", "lfstack":
	default:
		return config{}, fmt.Errorf("unknown primitive %q: want mcs, rwlock, or lfstack", cfg.primitive)
	}
	if cfg.goroutines <= 0 {
		return config{}, fmt.Errorf("goroutines must be positive, got %d", cfg.goroutines)
	}
	if cfg.iterations <= 0 {
		return config{}, fmt.Errorf("iterations must be positive, got %d", cfg.iterations)
	}
	return cfg, nil
}

func run(args []string, out *os.File) error {
	cfg, err := parseFlags(args)
	if err != nil {
		return err
	}

	log := zerolog.New(out).With().Timestamp().Logger()
	spinhint.SetCooperative(cfg.cooperative)

	start := time.Now()
	total, err := drive(cfg)
	if err != nil {
		return err
	}
	elapsed := time.Since(start)

	log.Info().
		Str("primitive", cfg.primitive).
		Int("goroutines", cfg.goroutines).
		Int("iterations_per_goroutine", cfg.iterations).
		Int64("total_ops", total).
		Dur("elapsed", elapsed).
		Float64("ops_per_sec", float64(total)/elapsed.Seconds()).
		Msg("lockbench run complete")

	return nil
}

func drive(cfg config) (int64, error) {
	switch cfg.primitive {
	case "mcs":
		return driveMCS(cfg)
	case "rwlock":
		return driveRwLock(cfg)
	case "lfstack":
		return driveLFStack(cfg)
	default:
		return 0, fmt.Errorf("unknown primitive %q", cfg.primitive)
	}
}

func driveMCS(cfg config) (int64, error) {
	lock := mcs.NewLock(int64(0))

	var eg errgroup.Group
	for i := 0; i < cfg.goroutines; i++ {
		eg.Go(func() error {
			var node mcs.MCSNode[int64]
			for j := 0; j < cfg.iterations; j++ {
				guard := lock.Lock(&node)
				*guard.Value()++
				guard.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	node := new(mcs.MCSNode[int64])
	guard := lock.Lock(node)
	defer guard.Unlock()
	return *guard.Value(), nil
}

func driveRwLock(cfg config) (int64, error) {
	lock := rwlock.NewRwLock(int64(0))

	var eg errgroup.Group
	for i := 0; i < cfg.goroutines; i++ {
		eg.Go(func() error {
			for j := 0; j < cfg.iterations; j++ {
				g := lock.Write()
				*g.Value()++
				g.Unlock()
			}
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}

	g := lock.Write()
	defer g.Unlock()
	return *g.Value(), nil
}

func driveLFStack(cfg config) (int64, error) {
	stack := lfstack.NewLFStack[int64]()

	// Each worker reports its own completed push/pop count; Sum combines
	// them once every worker has joined, rather than relying on a
	// single shared counter the way driveMCS/driveRwLock do.
	counts := make([]int64, cfg.goroutines)

	ctx := context.Background()
	eg, _ := errgroup.WithContext(ctx)
	for i := 0; i < cfg.goroutines; i++ {
		idx := i
		eg.Go(func() error {
			var completed int64
			for j := 0; j < cfg.iterations; j++ {
				if err := stack.Push(int64(j)); err != nil {
					return err
				}
				stack.Pop()
				completed++
			}
			counts[idx] = completed
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return 0, err
	}
	return synctest.Sum(counts), nil
}
