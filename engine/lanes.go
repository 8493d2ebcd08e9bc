package engine

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// runGroups splits [0, n) into groups of GroupSize lanes and runs them on
// the worker goroutines. It returns once every group has finished, which is
// the barrier between two phases of a level.
func (e *Engine) runGroups(n int, fn func(lo, hi int)) {
	size := e.opts.GroupSize
	if n <= size || e.opts.Workers == 1 {
		for lo := 0; lo < n; lo += size {
			fn(lo, min(lo+size, n))
		}
		return
	}
	var g errgroup.Group
	g.SetLimit(e.opts.Workers)
	for lo := 0; lo < n; lo += size {
		hi := min(lo+size, n)
		g.Go(func() error {
			fn(lo, hi)
			return nil
		})
	}
	_ = g.Wait()
}

// exclusiveScan replaces v with its exclusive prefix sums and returns the
// total. Groups sum their own range first, then offsets are written in a
// second parallel pass. When the total does not fit in 32 bits v is left
// untouched.
func (e *Engine) exclusiveScan(v []uint32) uint64 {
	size := e.opts.GroupSize
	sums := make([]uint64, (len(v)+size-1)/size)
	e.runGroups(len(v), func(lo, hi int) {
		var s uint64
		for _, c := range v[lo:hi] {
			s += uint64(c)
		}
		sums[lo/size] = s
	})

	var total uint64
	for i, s := range sums {
		sums[i] = total
		total += s
	}
	if total > maxLevelEntries {
		return total
	}

	e.runGroups(len(v), func(lo, hi int) {
		run := uint32(sums[lo/size])
		for i := lo; i < hi; i++ {
			c := v[i]
			v[i] = run
			run += c
		}
	})
	return total
}

// accumulator folds runs of lanes that target the same counter into a
// single atomic add. Children of one parent are contiguous, so a group
// usually issues one add per parent it touches.
type accumulator struct {
	counters []uint64
	idx      int32
	sum      uint64
}

func newAccumulator(counters []uint64) accumulator {
	return accumulator{counters: counters, idx: -1}
}

func (a *accumulator) add(idx int32, v uint64) {
	if idx != a.idx {
		a.flush()
		a.idx = idx
	}
	a.sum += v
}

func (a *accumulator) flush() {
	if a.sum != 0 {
		atomic.AddUint64(&a.counters[a.idx], a.sum)
		a.sum = 0
	}
}
