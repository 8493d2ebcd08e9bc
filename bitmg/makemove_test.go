package bitmg_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"chess-perft/bitmg"
)

func TestIncrementalHashMatchesRecompute(t *testing.T) {
	for _, fen := range oraclePositions {
		p := mustParse(t, fen)
		walk(&p, 2, func(n *bitmg.Position) {
			h64 := bitmg.ComputeHash(n)
			h128 := bitmg.ComputeHash128(n)
			var buf [bitmg.MaxMoves]bitmg.Move
			for _, m := range bitmg.GenerateMoves(n, buf[:0]) {
				c64, got64 := bitmg.MakeMoveHash(n, m, h64)
				c128, got128 := bitmg.MakeMoveHash128(n, m, h128)
				plain := bitmg.MakeMove(n, m)

				require.Equal(t, plain, c64, "%s %s", n.FEN(), m)
				require.Equal(t, plain, c128, "%s %s", n.FEN(), m)
				require.Equal(t, bitmg.ComputeHash(&plain), got64, "%s %s", n.FEN(), m)
				require.Equal(t, bitmg.ComputeHash128(&plain), got128, "%s %s", n.FEN(), m)
			}
		})
	}
}

func TestHashHalvesAreIndependent(t *testing.T) {
	p := bitmg.StartPosition()
	h := bitmg.ComputeHash128(&p)
	assert.Equal(t, bitmg.ComputeHash(&p), h.Lo)
	assert.NotEqual(t, h.Lo, h.Hi)
}

func TestTranspositionsShareHash(t *testing.T) {
	a := playMoves(t, bitmg.StartPosition(), "g1f3", "g8f6", "b1c3", "b8c6")
	b := playMoves(t, bitmg.StartPosition(), "b1c3", "b8c6", "g1f3", "g8f6")
	assert.Equal(t, bitmg.ComputeHash128(&a), bitmg.ComputeHash128(&b))
}

func playMoves(t *testing.T, p bitmg.Position, moves ...string) bitmg.Position {
	t.Helper()
	for _, s := range moves {
		m, err := bitmg.ParseMove(&p, s)
		require.NoError(t, err)
		p = bitmg.MakeMove(&p, m)
	}
	return p
}

func TestMakeMoveCastlingRights(t *testing.T) {
	cases := []struct {
		name  string
		fen   string
		moves []string
		want  bitmg.CastlingRights
	}{
		{"king move", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", []string{"e1e2"},
			bitmg.CastlingBlackK | bitmg.CastlingBlackQ},
		{"rook move", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", []string{"h1g1"},
			bitmg.CastlingWhiteQ | bitmg.CastlingBlackK | bitmg.CastlingBlackQ},
		{"rook captured", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", []string{"a1a8"},
			bitmg.CastlingWhiteK | bitmg.CastlingBlackK},
		{"castle", "r3k2r/8/8/8/8/8/8/R3K2R b KQkq - 0 1", []string{"e8c8"},
			bitmg.CastlingWhiteK | bitmg.CastlingWhiteQ},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			p := playMoves(t, mustParse(t, tc.fen), tc.moves...)
			assert.Equal(t, tc.want, p.CastlingRights())
		})
	}
}

func TestMakeMoveCastlingRelocatesRook(t *testing.T) {
	p := playMoves(t, mustParse(t, "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1"), "e1g1")
	assert.Equal(t, "r3k2r/8/8/8/8/8/8/R4RK1 b kq - 1 1", p.FEN())

	p = playMoves(t, p, "e8c8")
	assert.Equal(t, "2kr3r/8/8/8/8/8/8/R4RK1 w - - 2 1", p.FEN())
}

func TestMakeMoveEnPassant(t *testing.T) {
	p := playMoves(t, bitmg.StartPosition(), "e2e4")
	assert.Equal(t, bitmg.Square(20), p.EnPassantSquare())
	assert.Equal(t, "rnbqkbnr/pppppppp/8/8/4P3/8/PPPP1PPP/RNBQKBNR b KQkq e3 0 1", p.FEN())

	p = mustParse(t, fenEnPassant)
	p = playMoves(t, p, "e5d6")
	assert.Equal(t, "k7/8/3P4/8/8/8/8/7K b - - 0 1", p.FEN())
}

func TestMakeMovePromotion(t *testing.T) {
	p := mustParse(t, fenPromotion)
	q := playMoves(t, p, "a7b8q")
	assert.Equal(t, "1Q5k/8/8/8/8/8/8/7K b - - 0 1", q.FEN())

	n := playMoves(t, p, "a7a8n")
	assert.Equal(t, "Nn5k/8/8/8/8/8/8/7K b - - 0 1", n.FEN())
}

func TestHalfMoveClock(t *testing.T) {
	p := playMoves(t, bitmg.StartPosition(), "g1f3", "g8f6", "f3g1")
	assert.Equal(t, 3, p.HalfMoveClock())
	p = playMoves(t, p, "e7e5")
	assert.Equal(t, 0, p.HalfMoveClock())
}
