package bitmg_test

import (
	"testing"

	"chess-perft/bitmg"
)

func benchPerft(b *testing.B, fen string, depth int) {
	p, err := bitmg.ParseFEN(fen)
	if err != nil {
		b.Fatalf("ParseFEN: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bitmg.Perft(&p, depth)
	}
}

func BenchmarkPerft_Initial_D4(b *testing.B) {
	benchPerft(b, bitmg.FENStartPos, 4)
}

func BenchmarkPerft_Kiwipete_D3(b *testing.B) {
	benchPerft(b, fenKiwipete, 3)
}

func benchGenerateMoves(b *testing.B, fen string) {
	p, err := bitmg.ParseFEN(fen)
	if err != nil {
		b.Fatalf("ParseFEN: %v", err)
	}
	buf := make([]bitmg.Move, 0, bitmg.MaxMoves)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		buf = bitmg.GenerateMoves(&p, buf[:0])
	}
}

func BenchmarkGenerateMoves_Initial(b *testing.B) {
	benchGenerateMoves(b, bitmg.FENStartPos)
}

func BenchmarkGenerateMoves_Kiwipete(b *testing.B) {
	benchGenerateMoves(b, fenKiwipete)
}

func BenchmarkCountMoves_Kiwipete(b *testing.B) {
	p, err := bitmg.ParseFEN(fenKiwipete)
	if err != nil {
		b.Fatalf("ParseFEN: %v", err)
	}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = bitmg.CountMoves(&p)
	}
}

func BenchmarkMakeMoveHash128_Kiwipete(b *testing.B) {
	p, err := bitmg.ParseFEN(fenKiwipete)
	if err != nil {
		b.Fatalf("ParseFEN: %v", err)
	}
	moves := bitmg.GenerateMoves(&p, nil)
	h := bitmg.ComputeHash128(&p)
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = bitmg.MakeMoveHash128(&p, moves[i%len(moves)], h)
	}
}
