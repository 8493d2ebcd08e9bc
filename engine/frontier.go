package engine

import (
	"math"
	"sync/atomic"
	"unsafe"

	"github.com/samber/lo"

	"chess-perft/bitmg"
)

// OutOfMemory is returned by PerftBFS when the next level would not fit in
// the arena. Nothing partial is returned with it.
const OutOfMemory = ^uint64(0)

// Parent links are int32, so a level holds at most this many entries.
const maxLevelEntries = math.MaxInt32

// level is one breadth-first frontier. Entry i of a child level was reached
// by moves[i] from entry parent[i] of the level above.
type level struct {
	depth  int // plies still to count below each entry
	pos    []bitmg.Position
	hash   []bitmg.Hash128
	counts []uint64 // leaf counts, complete after fold-back
	nmoves []uint32 // legal move counts, then offsets of the children
	parent []int32
	moves  []bitmg.Move
	dup    []int32 // index+1 of the entry this one repeats, 0 if none
}

// live reports whether entry i still expands: not a cache hit, not a copy.
func (lv *level) live(i int) bool {
	return lv.pos[i].IsValid() && (lv.dup == nil || lv.dup[i] == 0)
}

var (
	sizePosition = unsafe.Sizeof(bitmg.Position{})
	sizeHash     = unsafe.Sizeof(bitmg.Hash128{})
	sizeMove     = unsafe.Sizeof(bitmg.Move(0))
)

func dupTableSize(n int) int {
	size := 1
	for size < 2*n {
		size <<= 1
	}
	return size
}

// levelBytes is the exact arena footprint of a level of n entries.
func levelBytes(n int, child, dedup bool) int64 {
	b := sliceBytes(n, sizePosition) + sliceBytes(n, sizeHash) + sliceBytes(n, 8) + sliceBytes(n, 4)
	if child {
		b += sliceBytes(n, 4) + sliceBytes(n, sizeMove)
	}
	if dedup {
		b += sliceBytes(n, 4) + sliceBytes(dupTableSize(n), 4)
	}
	return b
}

// leafBytes is the footprint of the final pass, which keeps only moves and
// parent links of the leaves' parents.
func leafBytes(n int) int64 {
	return sliceBytes(n, 4) + sliceBytes(n, sizeMove)
}

func (e *Engine) newLevel(n, depth int, child bool) (*level, bool) {
	dedup := child && e.opts.FindDuplicates
	if levelBytes(n, child, dedup) > e.arena.Remaining() {
		return nil, false
	}
	lv := &level{depth: depth}
	lv.pos, _ = allocate[bitmg.Position](e.arena, n)
	lv.hash, _ = allocate[bitmg.Hash128](e.arena, n)
	lv.counts, _ = allocate[uint64](e.arena, n)
	lv.nmoves, _ = allocate[uint32](e.arena, n)
	if child {
		lv.parent, _ = allocate[int32](e.arena, n)
		lv.moves, _ = allocate[bitmg.Move](e.arena, n)
	}
	if dedup {
		lv.dup, _ = allocate[int32](e.arena, n)
	}
	if e.stats != nil {
		e.stats.Entries[statDepth(depth)].Add(uint64(n))
	}
	return lv, true
}

// PerftBFS counts the leaves depth plies below every root and returns
// their sum, or OutOfMemory when a level does not fit in the arena. The
// arena is reset at the start of every call.
func (e *Engine) PerftBFS(roots []bitmg.Position, depth int) uint64 {
	counts, ok := e.expand(roots, depth)
	if !ok {
		return OutOfMemory
	}
	return lo.Sum(counts)
}

// expand runs the level-synchronous expansion and returns one count per
// root, copied out of the arena.
func (e *Engine) expand(roots []bitmg.Position, depth int) ([]uint64, bool) {
	e.arena.Reset()
	out := make([]uint64, len(roots))
	if depth <= 1 {
		for i := range roots {
			out[i] = bitmg.Perft(&roots[i], depth)
		}
		return out, true
	}

	root, ok := e.newLevel(len(roots), depth, false)
	if !ok {
		return e.abort(depth, uint64(len(roots)))
	}
	copy(root.pos, roots)
	e.runGroups(len(roots), func(start, end int) {
		for i := start; i < end; i++ {
			root.hash[i] = bitmg.ComputeHash128(&root.pos[i])
			root.nmoves[i] = uint32(bitmg.CountMoves(&root.pos[i]))
		}
	})

	levels := []*level{root}
	for cur := root; cur.depth > 1; {
		total := e.exclusiveScan(cur.nmoves)
		if total == 0 {
			break
		}
		if total > maxLevelEntries {
			return e.abort(cur.depth-1, total)
		}
		if cur.depth == 2 {
			if !e.countLeaves(cur, int(total)) {
				return e.abort(1, total)
			}
			break
		}
		next, ok := e.newLevel(int(total), cur.depth-1, true)
		if !ok {
			return e.abort(cur.depth-1, total)
		}
		e.log.Debug().Int("depth", next.depth).Uint64("entries", total).Int64("arena_used", e.arena.Used()).Msg("frontier level")

		e.generateChildren(cur, next.moves, next.parent)
		e.makeChildren(cur, next)
		if next.dup != nil {
			e.markDuplicates(next)
		}
		levels = append(levels, next)
		cur = next
	}

	e.foldBack(levels)
	copy(out, root.counts)
	return out, true
}

func (e *Engine) abort(depth int, entries uint64) ([]uint64, bool) {
	if e.stats != nil {
		e.stats.Aborts.Add(1)
	}
	e.log.Warn().
		Int("depth", depth).
		Uint64("entries", entries).
		Int64("arena_bytes", e.arena.Cap()).
		Int64("arena_used", e.arena.Used()).
		Msg("frontier level does not fit in arena")
	return nil, false
}

// generateChildren writes the moves of every live entry of cur into its
// scanned slot range and links each slot back to its parent.
func (e *Engine) generateChildren(cur *level, moves []bitmg.Move, parent []int32) {
	e.runGroups(len(cur.pos), func(start, end int) {
		for i := start; i < end; i++ {
			if !cur.live(i) {
				continue
			}
			off := cur.nmoves[i]
			ms := bitmg.GenerateMoves(&cur.pos[i], moves[off:off])
			for j := range ms {
				parent[int(off)+j] = int32(i)
			}
		}
	})
}

// makeChildren plays every move of next against its parent. A cache hit
// folds the cached count into the parent at once and leaves the child
// zeroed, which is the invalid marker; otherwise the child's moves are
// counted for the next scan.
func (e *Engine) makeChildren(cur, next *level) {
	depth := next.depth
	cached := e.cache.Enabled(depth)
	e.runGroups(len(next.pos), func(start, end int) {
		acc := newAccumulator(cur.counts)
		for i := start; i < end; i++ {
			par := next.parent[i]
			child, h := bitmg.MakeMoveHash128(&cur.pos[par], next.moves[i], cur.hash[par])
			if cached {
				if v, ok := e.probe(depth, h); ok {
					acc.add(par, v)
					continue
				}
			}
			next.pos[i] = child
			next.hash[i] = h
			next.nmoves[i] = uint32(bitmg.CountMoves(&child))
		}
		acc.flush()
	})
}

// countLeaves finishes a level whose entries are two plies from the
// leaves: every child's legal moves are added straight into the parent.
func (e *Engine) countLeaves(cur *level, total int) bool {
	if leafBytes(total) > e.arena.Remaining() {
		return false
	}
	parent, _ := allocate[int32](e.arena, total)
	moves, _ := allocate[bitmg.Move](e.arena, total)
	if e.stats != nil {
		e.stats.Entries[1].Add(uint64(total))
	}

	e.generateChildren(cur, moves, parent)
	e.runGroups(total, func(start, end int) {
		acc := newAccumulator(cur.counts)
		for i := start; i < end; i++ {
			par := parent[i]
			child := bitmg.MakeMove(&cur.pos[par], moves[i])
			acc.add(par, uint64(bitmg.CountMoves(&child)))
		}
		acc.flush()
	})
	return true
}

// markDuplicates links entries with equal keys to one representative. Every
// live entry writes its index into a transient table; after the barrier an
// entry that reads back a different index with the same key is a copy.
// Slots overwritten by other keys only cost missed duplicates.
func (e *Engine) markDuplicates(lv *level) {
	n := len(lv.pos)
	size := dupTableSize(n)
	table, _ := allocate[uint32](e.arena, size)
	mask := uint64(size - 1)

	e.runGroups(n, func(start, end int) {
		for i := start; i < end; i++ {
			if lv.pos[i].IsValid() {
				atomic.StoreUint32(&table[lv.hash[i].Lo&mask], uint32(i+1))
			}
		}
	})

	var found atomic.Uint64
	e.runGroups(n, func(start, end int) {
		var local uint64
		for i := start; i < end; i++ {
			if !lv.pos[i].IsValid() {
				continue
			}
			w := atomic.LoadUint32(&table[lv.hash[i].Lo&mask])
			if w == 0 || int(w-1) == i || lv.hash[w-1] != lv.hash[i] {
				continue
			}
			lv.dup[i] = int32(w)
			lv.nmoves[i] = 0
			local++
		}
		found.Add(local)
	})
	if e.stats != nil {
		e.stats.Duplicates.Add(found.Load())
	}
}

// foldBack walks the levels deepest first, adding every entry's count into
// its parent and storing it in the cache tier of its depth.
func (e *Engine) foldBack(levels []*level) {
	for l := len(levels) - 1; l >= 0; l-- {
		lv := levels[l]
		var up *level
		if l > 0 {
			up = levels[l-1]
		}
		cached := e.cache.Enabled(lv.depth)
		if up == nil && !cached {
			continue
		}
		e.runGroups(len(lv.pos), func(start, end int) {
			var acc accumulator
			if up != nil {
				acc = newAccumulator(up.counts)
			}
			for i := start; i < end; i++ {
				// Cache hits were folded when they were probed.
				if !lv.pos[i].IsValid() {
					continue
				}
				v := lv.counts[i]
				if lv.dup != nil && lv.dup[i] != 0 {
					v = lv.counts[lv.dup[i]-1]
				} else if cached {
					e.store(lv.depth, lv.hash[i], v)
				}
				if up != nil {
					acc.add(lv.parent[i], v)
				}
			}
			if up != nil {
				acc.flush()
			}
		})
	}
}
