package bitmg

// zobristKeys is one independent set of Zobrist hashing keys.
type zobristKeys struct {
	pieces    [2][7][64]uint64 // [color][piece type][square], type 0 unused
	side      uint64           // XORed when black is to move
	castling  [4]uint64        // one key per castling right bit
	enPassant [8]uint64        // per en-passant file
}

// zobrist[0] backs the 64-bit hash and the low half of Hash128; zobrist[1]
// is drawn independently for the high half.
var zobrist [2]zobristKeys

// Hash128 is the wide position key.
type Hash128 struct {
	Lo uint64
	Hi uint64
}

func initZobrist() {
	ks := newKeyStream("bitmg zobrist")
	for i := range zobrist {
		z := &zobrist[i]
		for c := 0; c < 2; c++ {
			for pt := Pawn; pt <= King; pt++ {
				for sq := 0; sq < 64; sq++ {
					z.pieces[c][pt][sq] = ks.Uint64()
				}
			}
		}
		z.side = ks.Uint64()
		for j := range z.castling {
			z.castling[j] = ks.Uint64()
		}
		for f := range z.enPassant {
			z.enPassant[f] = ks.Uint64()
		}
	}
}

// castlingKey returns the XOR of the keys of every right held in cr.
func (z *zobristKeys) castlingKey(cr CastlingRights) uint64 {
	var key uint64
	for j := 0; j < 4; j++ {
		if cr&(1<<j) != 0 {
			key ^= z.castling[j]
		}
	}
	return key
}

// stateKey covers side to move, castling rights and en passant.
func (z *zobristKeys) stateKey(p *Position) uint64 {
	var key uint64
	if p.SideToMove() == Black {
		key ^= z.side
	}
	key ^= z.castlingKey(p.CastlingRights())
	if f, ok := p.EnPassantFile(); ok {
		key ^= z.enPassant[f]
	}
	return key
}

func (z *zobristKeys) compute(p *Position) uint64 {
	var key uint64
	occ := p.Occupied()
	for occ != 0 {
		b := occ & -occ
		occ &= occ - 1
		sq := BitScan(b)
		c := Black
		if p.white&b != 0 {
			c = White
		}
		key ^= z.pieces[c][p.typeAt(b)][sq]
	}
	return key ^ z.stateKey(p)
}

// ComputeHash calculates the 64-bit Zobrist hash from scratch.
func ComputeHash(p *Position) uint64 { return zobrist[0].compute(p) }

// ComputeHash128 calculates the 128-bit hash from scratch.
func ComputeHash128(p *Position) Hash128 {
	return Hash128{Lo: zobrist[0].compute(p), Hi: zobrist[1].compute(p)}
}
