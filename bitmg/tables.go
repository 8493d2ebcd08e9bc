package bitmg

// Precomputed attack masks for knights and kings from each square.
var KnightAttacks [64]uint64
var KingAttacks [64]uint64

// PawnAttacks[color][sq] gives the squares a pawn of color attacks from sq.
var PawnAttacks [2][64]uint64

// Between[a][b] holds the squares strictly between a and b when they share a
// rank, file or diagonal, and 0 otherwise.
var Between [64][64]uint64

// Line[a][b] holds the full line through a and b (edge to edge, both
// included) when they are aligned, and 0 otherwise.
var Line [64][64]uint64

// Empty-board slider attacks, used for pin detection.
var rookRays [64]uint64
var bishopRays [64]uint64

func init() {
	initAttackTables()
	initRays()
	initMagics()
	initZobrist()
}

// initAttackTables precomputes move attack bitboards for knights, kings, and pawn captures.
func initAttackTables() {
	for sq := Square(0); sq < 64; sq++ {
		b := SquareBB(sq)
		KnightAttacks[sq] = knightAttacksSet(b)
		KingAttacks[sq] = kingAttacksSet(b)
		PawnAttacks[White][sq] = pawnAttacksSet(b, White)
		PawnAttacks[Black][sq] = pawnAttacksSet(b, Black)
	}
}

// initRays builds empty-board slider rays and the between/line tables.
func initRays() {
	const all = ^uint64(0)
	for sq := Square(0); sq < 64; sq++ {
		b := SquareBB(sq)
		rookRays[sq] = RookAttacksKS(b, all)
		bishopRays[sq] = BishopAttacksKS(b, all)
	}

	for a := Square(0); a < 64; a++ {
		ab := SquareBB(a)
		for b := Square(0); b < 64; b++ {
			if a == b {
				continue
			}
			bb := SquareBB(b)
			var attack func(uint64, uint64) uint64
			switch {
			case rookRays[a]&bb != 0:
				attack = RookAttacksKS
			case bishopRays[a]&bb != 0:
				attack = BishopAttacksKS
			default:
				continue
			}
			// Squares seen from both ends with the other end as the only blocker.
			Between[a][b] = attack(ab, ^bb) & attack(bb, ^ab)
			Line[a][b] = (attack(ab, all) & attack(bb, all)) | ab | bb
		}
	}
}
