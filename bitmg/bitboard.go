package bitmg

import "math/bits"

// Square represents a board position (0-63), a1 = 0, h8 = 63.
type Square int

const NoSquare Square = -1

// Square names used by castling and tests.
const (
	A1 Square = 0
	B1 Square = 1
	C1 Square = 2
	D1 Square = 3
	E1 Square = 4
	F1 Square = 5
	G1 Square = 6
	H1 Square = 7
	A8 Square = 56
	B8 Square = 57
	C8 Square = 58
	D8 Square = 59
	E8 Square = 60
	F8 Square = 61
	G8 Square = 62
	H8 Square = 63
)

// File returns the file index (0 = a) of the square.
func (s Square) File() int { return int(s) & 7 }

// Rank returns the rank index (0 = first rank) of the square.
func (s Square) Rank() int { return int(s) >> 3 }

// String returns the algebraic name of the square ("e4").
func (s Square) String() string {
	if s < 0 || s > 63 {
		return "-"
	}
	return string([]byte{'a' + byte(s.File()), '1' + byte(s.Rank())})
}

// Board edge and rank masks.
const (
	FileA uint64 = 0x0101010101010101
	FileB uint64 = FileA << 1
	FileG uint64 = FileA << 6
	FileH uint64 = FileA << 7

	Rank1 uint64 = 0x00000000000000FF
	Rank2 uint64 = Rank1 << 8
	Rank3 uint64 = Rank1 << 16
	Rank4 uint64 = Rank1 << 24
	Rank5 uint64 = Rank1 << 32
	Rank6 uint64 = Rank1 << 40
	Rank7 uint64 = Rank1 << 48
	Rank8 uint64 = Rank1 << 56

	// Ranks2To7 masks the pawn set down to real pawns; ranks 1 and 8 carry state.
	Ranks2To7 uint64 = 0x00FFFFFFFFFFFF00

	// CentralSquares is the board without its outer ring.
	CentralSquares uint64 = 0x007E7E7E7E7E7E00

	notFileA = ^FileA
	notFileH = ^FileH
)

// Castling path masks.
const (
	f1g1 uint64 = 0x0000000000000060
	c1d1 uint64 = 0x000000000000000C
	b1d1 uint64 = 0x000000000000000E
	f8g8 uint64 = f1g1 << 56
	c8d8 uint64 = c1d1 << 56
	b8d8 uint64 = b1d1 << 56
)

// SquareBB returns the singleton set for a square.
func SquareBB(s Square) uint64 { return uint64(1) << uint(s) }

// BitScan returns the index of the least significant set bit.
func BitScan(x uint64) Square { return Square(bits.TrailingZeros64(x)) }

// PopCount returns the number of set bits.
func PopCount(x uint64) int { return bits.OnesCount64(x) }

// IsSingular reports whether exactly one bit is set.
func IsSingular(x uint64) bool { return x != 0 && x&(x-1) == 0 }

// ==========================
// One-step shifts
// ==========================

func NorthOne(x uint64) uint64     { return x << 8 }
func SouthOne(x uint64) uint64     { return x >> 8 }
func EastOne(x uint64) uint64      { return (x << 1) & notFileA }
func WestOne(x uint64) uint64      { return (x >> 1) & notFileH }
func NorthEastOne(x uint64) uint64 { return (x << 9) & notFileA }
func NorthWestOne(x uint64) uint64 { return (x << 7) & notFileH }
func SouthEastOne(x uint64) uint64 { return (x >> 7) & notFileA }
func SouthWestOne(x uint64) uint64 { return (x >> 9) & notFileH }

// ==========================
// Kogge-Stone occluded fills
// ==========================
//
// A fill propagates gen through pro in doubling steps and returns every
// square reached, including gen itself but not the first blocker.

func northFill(gen, pro uint64) uint64 {
	gen |= pro & (gen << 8)
	pro &= pro << 8
	gen |= pro & (gen << 16)
	pro &= pro << 16
	gen |= pro & (gen << 32)
	return gen
}

func southFill(gen, pro uint64) uint64 {
	gen |= pro & (gen >> 8)
	pro &= pro >> 8
	gen |= pro & (gen >> 16)
	pro &= pro >> 16
	gen |= pro & (gen >> 32)
	return gen
}

func eastFill(gen, pro uint64) uint64 {
	pro &= notFileA
	gen |= pro & (gen << 1)
	pro &= pro << 1
	gen |= pro & (gen << 2)
	pro &= pro << 2
	gen |= pro & (gen << 4)
	return gen
}

func westFill(gen, pro uint64) uint64 {
	pro &= notFileH
	gen |= pro & (gen >> 1)
	pro &= pro >> 1
	gen |= pro & (gen >> 2)
	pro &= pro >> 2
	gen |= pro & (gen >> 4)
	return gen
}

func northEastFill(gen, pro uint64) uint64 {
	pro &= notFileA
	gen |= pro & (gen << 9)
	pro &= pro << 9
	gen |= pro & (gen << 18)
	pro &= pro << 18
	gen |= pro & (gen << 36)
	return gen
}

func northWestFill(gen, pro uint64) uint64 {
	pro &= notFileH
	gen |= pro & (gen << 7)
	pro &= pro << 7
	gen |= pro & (gen << 14)
	pro &= pro << 14
	gen |= pro & (gen << 28)
	return gen
}

func southEastFill(gen, pro uint64) uint64 {
	pro &= notFileA
	gen |= pro & (gen >> 7)
	pro &= pro >> 7
	gen |= pro & (gen >> 14)
	pro &= pro >> 14
	gen |= pro & (gen >> 28)
	return gen
}

func southWestFill(gen, pro uint64) uint64 {
	pro &= notFileH
	gen |= pro & (gen >> 9)
	pro &= pro >> 9
	gen |= pro & (gen >> 18)
	pro &= pro >> 18
	gen |= pro & (gen >> 36)
	return gen
}

// Attack variants: one more shift past the fill so the first blocker is included.

func northAttacks(gen, pro uint64) uint64     { return NorthOne(northFill(gen, pro)) }
func southAttacks(gen, pro uint64) uint64     { return SouthOne(southFill(gen, pro)) }
func eastAttacks(gen, pro uint64) uint64      { return EastOne(eastFill(gen, pro)) }
func westAttacks(gen, pro uint64) uint64      { return WestOne(westFill(gen, pro)) }
func northEastAttacks(gen, pro uint64) uint64 { return NorthEastOne(northEastFill(gen, pro)) }
func northWestAttacks(gen, pro uint64) uint64 { return NorthWestOne(northWestFill(gen, pro)) }
func southEastAttacks(gen, pro uint64) uint64 { return SouthEastOne(southEastFill(gen, pro)) }
func southWestAttacks(gen, pro uint64) uint64 { return SouthWestOne(southWestFill(gen, pro)) }

// RookAttacksKS returns the union of orthogonal attacks of every slider in
// rooks, with empty as the propagator. No tables are needed.
func RookAttacksKS(rooks, empty uint64) uint64 {
	return northAttacks(rooks, empty) | southAttacks(rooks, empty) |
		eastAttacks(rooks, empty) | westAttacks(rooks, empty)
}

// BishopAttacksKS returns the union of diagonal attacks of every slider in bishops.
func BishopAttacksKS(bishops, empty uint64) uint64 {
	return northEastAttacks(bishops, empty) | northWestAttacks(bishops, empty) |
		southEastAttacks(bishops, empty) | southWestAttacks(bishops, empty)
}

// ==========================
// Leapers
// ==========================

func knightAttacksSet(x uint64) uint64 {
	l1 := (x >> 1) & 0x7f7f7f7f7f7f7f7f
	l2 := (x >> 2) & 0x3f3f3f3f3f3f3f3f
	r1 := (x << 1) & 0xfefefefefefefefe
	r2 := (x << 2) & 0xfcfcfcfcfcfcfcfc
	h1 := l1 | r1
	h2 := l2 | r2
	return (h1 << 16) | (h1 >> 16) | (h2 << 8) | (h2 >> 8)
}

func kingAttacksSet(x uint64) uint64 {
	att := EastOne(x) | WestOne(x)
	x |= att
	att |= NorthOne(x) | SouthOne(x)
	return att
}

// pawnAttacksSet returns squares attacked by every pawn in the set for color c.
func pawnAttacksSet(pawns uint64, c Color) uint64 {
	if c == White {
		return NorthEastOne(pawns) | NorthWestOne(pawns)
	}
	return SouthEastOne(pawns) | SouthWestOne(pawns)
}
