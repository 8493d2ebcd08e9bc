package engine

import (
	"github.com/rs/zerolog"
	"github.com/samber/lo"

	"chess-perft/bitmg"
)

// Engine counts perft trees with a breadth-first expansion over a fixed
// arena. An Engine runs one count at a time; its Cache may be shared.
type Engine struct {
	opts  Options
	arena *Arena
	cache *Cache
	stats *Statistics
	log   zerolog.Logger
}

// New validates opts and allocates the arena and, unless opts.Cache is set,
// the cache tiers.
func New(opts Options) (*Engine, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	e := &Engine{
		opts:  opts,
		arena: NewArena(opts.ArenaBytes),
		cache: opts.Cache,
		log:   opts.Logger.With().Str("component", "engine").Logger(),
	}
	if e.cache == nil && len(opts.Tables) > 0 {
		e.cache = NewCache(opts.Tables)
	}
	if opts.Stats {
		e.stats = &Statistics{}
	}
	e.log.Debug().
		Int("workers", opts.Workers).
		Int64("arena_bytes", e.arena.Cap()).
		Int64("cache_bytes", e.cache.Bytes()).
		Int("serial_depth", opts.SerialDepth).
		Int("launch_depth", opts.LaunchDepth).
		Bool("dedup", opts.FindDuplicates).
		Msg("engine ready")
	return e, nil
}

// Stats returns the counters, or nil unless Options.Stats was set.
func (e *Engine) Stats() *Statistics { return e.stats }

// Cache returns the engine's cache, possibly nil.
func (e *Engine) Cache() *Cache { return e.cache }

// Arena returns the frontier arena.
func (e *Engine) Arena() *Arena { return e.arena }

// probe and store go through the shared cache and count into this engine's
// Statistics only.
func (e *Engine) probe(depth int, h bitmg.Hash128) (uint64, bool) {
	if !e.cache.Enabled(depth) {
		return 0, false
	}
	v, ok := e.cache.Probe(depth, h)
	if e.stats != nil {
		d := statDepth(depth)
		e.stats.Probes[d].Add(1)
		if ok {
			e.stats.Hits[d].Add(1)
		}
	}
	return v, ok
}

func (e *Engine) store(depth int, h bitmg.Hash128, count uint64) {
	if !e.cache.Enabled(depth) {
		return
	}
	ok := e.cache.Store(depth, h, count)
	if e.stats != nil {
		if ok {
			e.stats.Stores[statDepth(depth)].Add(1)
		} else {
			e.stats.Overflows[statDepth(depth)].Add(1)
		}
	}
}

// Perft returns the number of leaves depth plies below p. Unlike PerftBFS it
// never fails for lack of arena: oversized batches are split until they fit.
func (e *Engine) Perft(p *bitmg.Position, depth int) uint64 {
	return e.launch(p, bitmg.ComputeHash128(p), depth)
}

// launch recurses serially while the remaining depth is above LaunchDepth,
// probing and filling the cache at each node, then hands the children
// that miss to the breadth-first expansion in batches.
func (e *Engine) launch(p *bitmg.Position, h bitmg.Hash128, depth int) uint64 {
	if depth <= e.opts.SerialDepth {
		return bitmg.Perft(p, depth)
	}
	if v, ok := e.probe(depth, h); ok {
		return v
	}

	var nodes uint64
	var buf [bitmg.MaxMoves]bitmg.Move
	moves := bitmg.GenerateMoves(p, buf[:0])
	switch {
	case depth > e.opts.LaunchDepth+1:
		for _, m := range moves {
			child, ch := bitmg.MakeMoveHash128(p, m, h)
			nodes += e.launch(&child, ch, depth-1)
		}
	case depth == e.opts.LaunchDepth+1:
		pending := make([]bitmg.Position, 0, len(moves))
		for _, m := range moves {
			child, ch := bitmg.MakeMoveHash128(p, m, h)
			if v, ok := e.probe(depth-1, ch); ok {
				nodes += v
				continue
			}
			pending = append(pending, child)
		}
		for _, batch := range lo.Chunk(pending, e.opts.BatchSize) {
			nodes += lo.Sum(e.runBatch(batch, depth-1))
		}
	default:
		nodes = lo.Sum(e.runBatch([]bitmg.Position{*p}, depth))
	}
	e.store(depth, h, nodes)
	return nodes
}

// runBatch returns one count per root. A batch that does not fit in the
// arena is halved; a single root that does not fit is replaced by its
// children one ply shallower, down to the serial depth.
func (e *Engine) runBatch(roots []bitmg.Position, depth int) []uint64 {
	if depth <= e.opts.SerialDepth {
		out := make([]uint64, len(roots))
		for i := range roots {
			out[i] = bitmg.Perft(&roots[i], depth)
		}
		return out
	}
	if counts, ok := e.expand(roots, depth); ok {
		return counts
	}
	if len(roots) > 1 {
		mid := len(roots) / 2
		e.log.Debug().Int("roots", len(roots)).Int("depth", depth).Msg("splitting batch")
		return append(e.runBatch(roots[:mid], depth), e.runBatch(roots[mid:], depth)...)
	}
	e.log.Debug().Int("depth", depth).Msg("splitting root")
	children := bitmg.GenerateBoards(&roots[0], nil)
	return []uint64{lo.Sum(e.runBatch(children, depth-1))}
}

// PerftBatch returns the leaf count of every root, in order.
func (e *Engine) PerftBatch(roots []bitmg.Position, depth int) []uint64 {
	if depth > e.opts.LaunchDepth {
		return lo.Map(roots, func(p bitmg.Position, _ int) uint64 {
			return e.Perft(&p, depth)
		})
	}
	out := make([]uint64, 0, len(roots))
	for _, batch := range lo.Chunk(roots, e.opts.BatchSize) {
		out = append(out, e.runBatch(batch, depth)...)
	}
	return out
}

// Divide returns the leaf count below every legal move of p.
func (e *Engine) Divide(p *bitmg.Position, depth int) []bitmg.DivideEntry {
	var out []bitmg.DivideEntry
	e.DivideFunc(p, depth, func(d bitmg.DivideEntry) { out = append(out, d) })
	return out
}

// DivideFunc counts the subtree below each legal move of p in generation
// order and passes every entry to fn as soon as it is known.
func (e *Engine) DivideFunc(p *bitmg.Position, depth int, fn func(bitmg.DivideEntry)) {
	if depth <= 0 {
		return
	}
	h := bitmg.ComputeHash128(p)
	var buf [bitmg.MaxMoves]bitmg.Move
	for _, m := range bitmg.GenerateMoves(p, buf[:0]) {
		child, ch := bitmg.MakeMoveHash128(p, m, h)
		fn(bitmg.DivideEntry{Move: m, Nodes: e.launch(&child, ch, depth-1)})
	}
}

// DivideTotal sums the counts of a divide.
func DivideTotal(entries []bitmg.DivideEntry) uint64 {
	return lo.SumBy(entries, func(d bitmg.DivideEntry) uint64 { return d.Nodes })
}
