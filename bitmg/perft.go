package bitmg

import (
	"sync/atomic"

	"golang.org/x/sync/errgroup"
)

// Perft counts leaf nodes (move sequences) from the position for a given depth.
// Depth 1 is answered by CountMoves; per-ply move buffers are reused.
func Perft(p *Position, depth int) uint64 {
	if depth <= 0 {
		return 1
	}
	pc := perftCtx{bufs: make([][MaxMoves]Move, depth)}
	return pc.perft(p, depth)
}

type perftCtx struct {
	bufs [][MaxMoves]Move
}

func (pc *perftCtx) perft(p *Position, depth int) uint64 {
	if depth == 1 {
		return uint64(CountMoves(p))
	}
	var nodes uint64
	for _, m := range GenerateMoves(p, pc.bufs[depth-1][:0]) {
		child := MakeMove(p, m)
		nodes += pc.perft(&child, depth-1)
	}
	return nodes
}

// DivideEntry is the leaf count below one root move.
type DivideEntry struct {
	Move  Move
	Nodes uint64
}

// PerftDivide returns the leaf count below each legal root move, in
// generation order. Useful for debugging against another generator.
func PerftDivide(p *Position, depth int) []DivideEntry {
	if depth <= 0 {
		return nil
	}
	var buf [MaxMoves]Move
	moves := GenerateMoves(p, buf[:0])
	out := make([]DivideEntry, len(moves))
	for i, m := range moves {
		child := MakeMove(p, m)
		out[i] = DivideEntry{Move: m, Nodes: Perft(&child, depth-1)}
	}
	return out
}

// PerftParallel splits the root moves over at most workers goroutines and
// runs the serial Perft below each of them.
func PerftParallel(p *Position, depth, workers int) uint64 {
	if depth <= 1 || workers <= 1 {
		return Perft(p, depth)
	}
	var buf [MaxMoves]Move
	var total atomic.Uint64
	var g errgroup.Group
	g.SetLimit(workers)
	for _, m := range GenerateMoves(p, buf[:0]) {
		child := MakeMove(p, m)
		g.Go(func() error {
			total.Add(Perft(&child, depth-1))
			return nil
		})
	}
	_ = g.Wait()
	return total.Load()
}
