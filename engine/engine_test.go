package engine

import (
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chess-perft/bitmg"
)

const (
	fenKiwipete = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	fenPos3     = "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1"
	fenPos4     = "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1"
	fenPos5     = "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8"
	fenMated    = "7k/6Q1/6K1/8/8/8/8/8 b - - 0 1"
)

func testOptions() Options {
	opts := DefaultOptions()
	opts.Workers = 4
	opts.GroupSize = 16
	opts.ArenaBytes = 64 << 20
	opts.SerialDepth = 1
	opts.LaunchDepth = 3
	opts.BatchSize = 4
	opts.Stats = true
	opts.Logger = zerolog.Nop()
	return opts
}

func newTestEngine(t testing.TB, mutate func(*Options)) *Engine {
	t.Helper()
	opts := testOptions()
	if mutate != nil {
		mutate(&opts)
	}
	e, err := New(opts)
	require.NoError(t, err)
	return e
}

var referenceCounts = []struct {
	name  string
	fen   string
	depth int
	want  uint64
}{
	{"initial", bitmg.FENStartPos, 5, 4865609},
	{"kiwipete", fenKiwipete, 4, 4085603},
	{"pos3", fenPos3, 5, 674624},
	{"pos4", fenPos4, 4, 422333},
	{"pos5", fenPos5, 4, 2103487},
}

func TestPerftReferenceCounts(t *testing.T) {
	e := newTestEngine(t, nil)
	for _, tc := range referenceCounts {
		t.Run(tc.name, func(t *testing.T) {
			p := bitmg.MustParseFEN(tc.fen)
			assert.Equal(t, tc.want, e.Perft(&p, tc.depth))
		})
	}
}

func TestPerftBFSReferenceCounts(t *testing.T) {
	e := newTestEngine(t, nil)
	for _, tc := range referenceCounts {
		t.Run(tc.name, func(t *testing.T) {
			p := bitmg.MustParseFEN(tc.fen)
			assert.Equal(t, tc.want, e.PerftBFS([]bitmg.Position{p}, tc.depth))
		})
	}
}

func TestPerftInitialDepth6(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping depth 6 in short mode")
	}
	e := newTestEngine(t, func(o *Options) {
		o.LaunchDepth = 4
		o.Tables = DefaultTables(32, 6)
	})
	p := bitmg.StartPosition()
	assert.Equal(t, uint64(119060324), e.Perft(&p, 6))
}

func TestPerftShallowDepths(t *testing.T) {
	e := newTestEngine(t, nil)
	p := bitmg.StartPosition()
	assert.Equal(t, uint64(1), e.Perft(&p, 0))
	assert.Equal(t, uint64(20), e.Perft(&p, 1))
	assert.Equal(t, uint64(400), e.PerftBFS([]bitmg.Position{p}, 2))
}

func TestPerftCheckmatedRoot(t *testing.T) {
	e := newTestEngine(t, nil)
	p := bitmg.MustParseFEN(fenMated)
	assert.Equal(t, uint64(0), e.Perft(&p, 4))
	assert.Equal(t, uint64(0), e.PerftBFS([]bitmg.Position{p}, 4))
}

func TestPerftBFSOutOfMemory(t *testing.T) {
	e := newTestEngine(t, func(o *Options) { o.ArenaBytes = 1 << 10 })
	p := bitmg.StartPosition()
	assert.Equal(t, OutOfMemory, e.PerftBFS([]bitmg.Position{p}, 4))
	assert.Equal(t, uint64(1), e.Stats().Aborts.Load())

	// The arena is reset by the next call.
	assert.Equal(t, uint64(20), e.PerftBFS([]bitmg.Position{p}, 1))
}

func TestPerftSplitsWhenArenaIsSmall(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		o.ArenaBytes = 4 << 10
		o.LaunchDepth = 4
	})
	p := bitmg.StartPosition()
	assert.Equal(t, uint64(197281), e.Perft(&p, 4))
	assert.NotZero(t, e.Stats().Aborts.Load())
	assert.LessOrEqual(t, e.Arena().Peak(), e.Arena().Cap())
}

func TestCacheKeepsCountsExact(t *testing.T) {
	e := newTestEngine(t, func(o *Options) { o.Tables = DefaultTables(8, 5) })
	p := bitmg.MustParseFEN(fenKiwipete)

	first := e.Perft(&p, 4)
	second := e.Perft(&p, 4)
	assert.Equal(t, uint64(4085603), first)
	assert.Equal(t, first, second)

	assert.NotZero(t, sumCounters(&e.Stats().Hits))
}

func sumCounters(counters *[maxStatDepth]atomic.Uint64) uint64 {
	var n uint64
	for d := range counters {
		n += counters[d].Load()
	}
	return n
}

func TestSharedCacheAcrossEngines(t *testing.T) {
	cache := NewCache(DefaultTables(8, 5))
	p := bitmg.MustParseFEN(fenPos3)

	a := newTestEngine(t, func(o *Options) { o.Cache = cache })
	b := newTestEngine(t, func(o *Options) { o.Cache = cache })
	assert.Same(t, cache, a.Cache())
	assert.Equal(t, uint64(674624), a.Perft(&p, 5))
	probes, stores := sumCounters(&a.Stats().Probes), sumCounters(&a.Stats().Stores)
	require.NotZero(t, stores)

	// b reads what a stored; each engine keeps its own counters.
	assert.Equal(t, uint64(674624), b.Perft(&p, 5))
	assert.NotZero(t, sumCounters(&b.Stats().Hits))
	assert.Equal(t, probes, sumCounters(&a.Stats().Probes))
	assert.Equal(t, stores, sumCounters(&a.Stats().Stores))
}

func TestFindDuplicates(t *testing.T) {
	e := newTestEngine(t, func(o *Options) {
		o.FindDuplicates = true
		o.LaunchDepth = 5
	})
	p := bitmg.StartPosition()
	assert.Equal(t, uint64(4865609), e.Perft(&p, 5))
	assert.NotZero(t, e.Stats().Duplicates.Load())

	k := bitmg.MustParseFEN(fenKiwipete)
	assert.Equal(t, uint64(4085603), e.PerftBFS([]bitmg.Position{k}, 4))
}

func TestDivideMatchesSerialDivide(t *testing.T) {
	e := newTestEngine(t, func(o *Options) { o.Tables = DefaultTables(4, 4) })
	p := bitmg.MustParseFEN(fenKiwipete)

	got := e.Divide(&p, 3)
	want := bitmg.PerftDivide(&p, 3)
	require.Len(t, got, 48)
	assert.Equal(t, want, got)
	assert.Equal(t, uint64(97862), DivideTotal(got))
	assert.Nil(t, e.Divide(&p, 0))
}

func TestDivideFuncStreamsInMoveOrder(t *testing.T) {
	e := newTestEngine(t, nil)
	p := bitmg.MustParseFEN(fenPos4)

	var got []bitmg.DivideEntry
	e.DivideFunc(&p, 3, func(d bitmg.DivideEntry) { got = append(got, d) })
	assert.Equal(t, bitmg.PerftDivide(&p, 3), got)
	assert.Equal(t, uint64(9467), DivideTotal(got))

	called := false
	mated := bitmg.MustParseFEN(fenMated)
	e.DivideFunc(&mated, 2, func(bitmg.DivideEntry) { called = true })
	assert.False(t, called)
}

func TestPerftBatch(t *testing.T) {
	e := newTestEngine(t, nil)
	start := bitmg.StartPosition()
	roots := bitmg.GenerateBoards(&start, nil)

	for _, depth := range []int{2, 3, 5} {
		got := e.PerftBatch(roots, depth-1)
		require.Len(t, got, len(roots))
		for i := range roots {
			assert.Equal(t, bitmg.Perft(&roots[i], depth-1), got[i], "root %d depth %d", i, depth-1)
		}
	}
}

func TestNewRejectsInvalidOptions(t *testing.T) {
	cases := map[string]func(*Options){
		"workers":      func(o *Options) { o.Workers = 0 },
		"group size":   func(o *Options) { o.GroupSize = 0 },
		"arena":        func(o *Options) { o.ArenaBytes = 100 },
		"serial depth": func(o *Options) { o.SerialDepth = 0 },
		"launch depth": func(o *Options) { o.LaunchDepth = 0 },
		"batch size":   func(o *Options) { o.BatchSize = 0 },
		"table size": func(o *Options) {
			o.Tables = []TableConfig{2: {Entries: 1000}}
		},
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			opts := testOptions()
			mutate(&opts)
			_, err := New(opts)
			assert.ErrorIs(t, err, ErrInvalidOptions)
		})
	}
}

func BenchmarkPerftBFSInitialD5(b *testing.B) {
	e := newTestEngine(b, func(o *Options) {
		o.Stats = false
		o.Workers = DefaultOptions().Workers
	})
	roots := []bitmg.Position{bitmg.StartPosition()}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = e.PerftBFS(roots, 5)
	}
}

func BenchmarkPerftCachedKiwipeteD4(b *testing.B) {
	e := newTestEngine(b, func(o *Options) {
		o.Stats = false
		o.Tables = DefaultTables(16, 4)
	})
	p := bitmg.MustParseFEN(fenKiwipete)
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		e.Cache().Clear()
		_ = e.Perft(&p, 4)
	}
}
