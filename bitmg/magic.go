package bitmg

import (
	"fmt"
	"math/bits"
)

// Magic is the perfect-hash entry of one square: the relevant occupancy
// mask, the multiplier, the shift and the offset of its slice in the shared
// attack table.
type Magic struct {
	Mask   uint64
	Magic  uint64
	Shift  uint8
	Offset uint32
}

func (m *Magic) index(occ uint64) uint32 {
	return m.Offset + uint32(((occ&m.Mask)*m.Magic)>>m.Shift)
}

var rookMagics [64]Magic
var bishopMagics [64]Magic
var rookTable []uint64
var bishopTable []uint64

// RookAttacks returns rook attacks from sq for the given occupancy.
func RookAttacks(sq Square, occ uint64) uint64 {
	m := &rookMagics[sq]
	return rookTable[m.index(occ)]
}

// BishopAttacks returns bishop attacks from sq for the given occupancy.
func BishopAttacks(sq Square, occ uint64) uint64 {
	m := &bishopMagics[sq]
	return bishopTable[m.index(occ)]
}

// QueenAttacks returns the union of rook and bishop attacks.
func QueenAttacks(sq Square, occ uint64) uint64 {
	return RookAttacks(sq, occ) | BishopAttacks(sq, occ)
}

// RookMagic and BishopMagic expose the table entries, mostly for tests.
func RookMagic(sq Square) Magic   { return rookMagics[sq] }
func BishopMagic(sq Square) Magic { return bishopMagics[sq] }

// rookMask is the rook's empty-board ray set without the board edges that
// do not contain the square itself.
func rookMask(sq Square) uint64 {
	edges := ((Rank1 | Rank8) &^ (Rank1 << (8 * uint(sq.Rank())))) |
		((FileA | FileH) &^ (FileA << uint(sq.File())))
	return rookRays[sq] &^ edges
}

func bishopMask(sq Square) uint64 {
	return bishopRays[sq] & CentralSquares
}

func rookAttacksRef(sq Square, occ uint64) uint64 {
	return RookAttacksKS(SquareBB(sq), ^occ)
}

func bishopAttacksRef(sq Square, occ uint64) uint64 {
	return BishopAttacksKS(SquareBB(sq), ^occ)
}

func initMagics() {
	ks := newKeyStream("bitmg magics")
	rookTable = findMagics(&rookMagics, ks, rookMask, rookAttacksRef)
	bishopTable = findMagics(&bishopMagics, ks, bishopMask, bishopAttacksRef)
}

// findMagics searches a collision-free multiplier for every square by random
// trial and fills the shared attack table. A candidate that maps two subsets
// with different attacks to one slot is discarded and the next one is drawn.
func findMagics(magics *[64]Magic, ks *keyStream, maskOf func(Square) uint64, ref func(Square, uint64) uint64) []uint64 {
	var table []uint64
	var occs, refs [4096]uint64
	var epoch [4096]int
	attempt := 0

	for sq := Square(0); sq < 64; sq++ {
		mask := maskOf(sq)
		n := bits.OnesCount64(mask)
		size := 1 << n
		for i := 0; i < size; i++ {
			occs[i] = pdep(uint64(i), mask)
			refs[i] = ref(sq, occs[i])
		}

		m := Magic{Mask: mask, Shift: uint8(64 - n), Offset: uint32(len(table))}
		table = append(table, make([]uint64, size)...)
		slot := table[m.Offset:]

		for {
			m.Magic = ks.sparse()
			if bits.OnesCount64((mask*m.Magic)>>56) < 6 {
				continue
			}
			attempt++
			ok := true
			for i := 0; i < size; i++ {
				idx := (occs[i] * m.Magic) >> m.Shift
				if epoch[idx] < attempt {
					epoch[idx] = attempt
					slot[idx] = refs[i]
				} else if slot[idx] != refs[i] {
					ok = false
					break
				}
			}
			if ok {
				break
			}
		}
		magics[sq] = m
	}
	return table
}

// VerifyMagics checks every square and every relevant occupancy subset of
// the magic tables against the Kogge-Stone attacks.
func VerifyMagics() error {
	for sq := Square(0); sq < 64; sq++ {
		if err := verifySquare(sq, rookMagics[sq].Mask, RookAttacks, rookAttacksRef); err != nil {
			return fmt.Errorf("rook: %w", err)
		}
		if err := verifySquare(sq, bishopMagics[sq].Mask, BishopAttacks, bishopAttacksRef); err != nil {
			return fmt.Errorf("bishop: %w", err)
		}
	}
	return nil
}

func verifySquare(sq Square, mask uint64, lookup, ref func(Square, uint64) uint64) error {
	n := bits.OnesCount64(mask)
	for i := 0; i < 1<<n; i++ {
		occ := pdep(uint64(i), mask)
		if got, want := lookup(sq, occ), ref(sq, occ); got != want {
			return fmt.Errorf("square %s occupancy %#x: got %#x want %#x", sq, occ, got, want)
		}
	}
	return nil
}

// software pdep: deposit low bits of x into positions of mask
func pdep(x, mask uint64) uint64 {
	var res uint64
	for idx := uint(0); mask != 0; idx++ {
		bit := mask & -mask
		if (x>>idx)&1 != 0 {
			res |= bit
		}
		mask &= mask - 1
	}
	return res
}
