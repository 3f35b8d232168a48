package kernels

import (
	"runtime"
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

var (
	workers  atomic.Int64
	minLanes atomic.Int64
)

func init() {
	workers.Store(int64(runtime.GOMAXPROCS(0)))
	minLanes.Store(2)
}

// Configure sets the fork-join worker limit and the lane count below which
// Lanes runs sequentially. Non-positive values leave the setting unchanged.
func Configure(maxWorkers, parallelMinLanes int) {
	if maxWorkers > 0 {
		workers.Store(int64(maxWorkers))
	}
	if parallelMinLanes > 0 {
		minLanes.Store(int64(parallelMinLanes))
	}
}

// Workers returns the current worker limit.
func Workers() int { return int(workers.Load()) }

// Lanes runs fn once for every lane in [0, n). Lanes must write to disjoint
// outputs; no state is shared between them. The first error is returned
// after all started lanes finish.
func Lanes(n int, fn func(lane int) error) error {
	if n < int(minLanes.Load()) || Workers() <= 1 {
		for i := 0; i < n; i++ {
			if err := fn(i); err != nil {
				return err
			}
		}
		return nil
	}
	var g errgroup.Group
	g.SetLimit(Workers())
	for i := 0; i < n; i++ {
		g.Go(func() error { return fn(i) })
	}
	return g.Wait()
}
