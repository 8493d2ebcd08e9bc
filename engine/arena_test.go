package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chess-perft/bitmg"
)

func TestArenaAllocate(t *testing.T) {
	a := NewArena(1 << 10)
	assert.Equal(t, int64(1024), a.Cap())

	moves, ok := allocate[bitmg.Move](a, 3)
	require.True(t, ok)
	assert.Len(t, moves, 3)
	assert.Equal(t, int64(8), a.Used(), "rounded up to a word")

	pos, ok := allocate[bitmg.Position](a, 4)
	require.True(t, ok)
	assert.Equal(t, int64(8+4*48), a.Used())
	pos[3] = bitmg.StartPosition()
	assert.True(t, pos[3].IsValid())

	empty, ok := allocate[uint64](a, 0)
	assert.True(t, ok)
	assert.Nil(t, empty)
}

func TestArenaExhaustion(t *testing.T) {
	a := NewArena(64)
	_, ok := allocate[uint64](a, 8)
	require.True(t, ok)
	assert.Zero(t, a.Remaining())

	_, ok = allocate[uint32](a, 1)
	assert.False(t, ok)
	assert.Equal(t, int64(64), a.Used(), "failed allocation does not move the offset")
}

func TestArenaResetZeroes(t *testing.T) {
	a := NewArena(256)
	counts, _ := allocate[uint64](a, 16)
	for i := range counts {
		counts[i] = uint64(i + 1)
	}
	a.Reset()
	assert.Zero(t, a.Used())
	assert.Equal(t, int64(128), a.Peak())

	again, ok := allocate[uint64](a, 16)
	require.True(t, ok)
	for _, v := range again {
		assert.Zero(t, v)
	}

	pos, _ := allocate[bitmg.Position](a, 2)
	assert.False(t, pos[0].IsValid(), "zeroed entry reads as invalid")
}

func TestLevelBytesMatchesAllocations(t *testing.T) {
	for _, dedup := range []bool{false, true} {
		e := newTestEngine(t, func(o *Options) { o.FindDuplicates = dedup })
		e.arena.Reset()
		lv, ok := e.newLevel(37, 3, true)
		require.True(t, ok)
		assert.Len(t, lv.moves, 37)
		if dedup {
			_, ok := allocate[uint32](e.arena, dupTableSize(37))
			require.True(t, ok)
		}
		assert.Equal(t, levelBytes(37, true, dedup), e.arena.Used())
	}
}
