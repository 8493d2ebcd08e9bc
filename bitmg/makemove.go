package bitmg

// castlingLostAt gives the rights that disappear when a piece leaves or
// arrives on a square: king and rook home squares.
var castlingLostAt = func() (t [64]CastlingRights) {
	t[A1] = CastlingWhiteQ
	t[H1] = CastlingWhiteK
	t[E1] = CastlingWhiteK | CastlingWhiteQ
	t[A8] = CastlingBlackQ
	t[H8] = CastlingBlackK
	t[E8] = CastlingBlackK | CastlingBlackQ
	return t
}()

var castlingOf = [2]CastlingRights{
	White: CastlingWhiteK | CastlingWhiteQ,
	Black: CastlingBlackK | CastlingBlackQ,
}

// moveDelta records what a move changed, for the incremental hash.
type moveDelta struct {
	us       Color
	from, to Square
	mover    PieceType
	placed   PieceType // mover or promoted type
	captured PieceType
	capSq    Square
	rookFrom Square
	rookTo   Square
}

// MakeMove returns the position after the legal move m.
func MakeMove(p *Position, m Move) Position {
	n, _ := makeMove(p, m)
	return n
}

// MakeMoveHash returns the successor position and the 64-bit hash updated
// from h, which must be the hash of p.
func MakeMoveHash(p *Position, m Move, h uint64) (Position, uint64) {
	n, d := makeMove(p, m)
	return n, h ^ zobrist[0].delta(p, &n, &d)
}

// MakeMoveHash128 is MakeMoveHash for the 128-bit key.
func MakeMoveHash128(p *Position, m Move, h Hash128) (Position, Hash128) {
	n, d := makeMove(p, m)
	h.Lo ^= zobrist[0].delta(p, &n, &d)
	h.Hi ^= zobrist[1].delta(p, &n, &d)
	return n, h
}

func makeMove(p *Position, m Move) (Position, moveDelta) {
	n := *p
	us := p.SideToMove()
	from, to := m.From(), m.To()
	src, dst := SquareBB(from), SquareBB(to)
	flag := m.Flag()

	d := moveDelta{us: us, from: from, to: to, capSq: to, rookFrom: NoSquare, rookTo: NoSquare}
	d.mover = p.typeAt(src)
	d.placed = d.mover
	if m.IsPromotion() {
		d.placed = m.PromotionType()
	}
	switch {
	case flag == FlagEnPassant:
		d.captured = Pawn
		if us == White {
			d.capSq = to - 8
		} else {
			d.capSq = to + 8
		}
	case flag&flagCaptureBit != 0:
		d.captured = p.typeAt(dst)
	}

	// Clear both squares from every set. The pawn set keeps its state bits.
	touched := src | dst
	n.pawns &^= touched & Ranks2To7
	n.knights &^= touched
	n.bishopQueens &^= touched
	n.rookQueens &^= touched
	n.kings &^= touched

	switch d.placed {
	case Pawn:
		n.pawns |= dst
	case Knight:
		n.knights |= dst
	case Bishop:
		n.bishopQueens |= dst
	case Rook:
		n.rookQueens |= dst
	case Queen:
		n.bishopQueens |= dst
		n.rookQueens |= dst
	case King:
		n.kings |= dst
	}

	if us == White {
		n.white = n.white&^src | dst
	} else {
		n.white &^= dst
	}

	switch flag {
	case FlagEnPassant:
		gone := SquareBB(d.capSq)
		n.pawns &^= gone
		n.white &^= gone
	case FlagKingCastle:
		d.rookFrom, d.rookTo = from+3, from+1
	case FlagQueenCastle:
		d.rookFrom, d.rookTo = from-4, from-1
	}
	if d.rookFrom != NoSquare {
		rf, rt := SquareBB(d.rookFrom), SquareBB(d.rookTo)
		n.rookQueens = n.rookQueens&^rf | rt
		if us == White {
			n.white = n.white&^rf | rt
		}
	}

	cr := p.CastlingRights() &^ castlingLostAt[from] &^ castlingLostAt[to]
	if d.mover == King {
		cr &^= castlingOf[us]
	}
	n.setCastlingRights(cr)

	if flag == FlagDoublePush {
		n.setEnPassantFile(uint64(from.File() + 1))
	} else {
		n.setEnPassantFile(0)
	}

	if d.mover == Pawn || d.captured != NoPieceType {
		n.setHalfMoveClock(0)
	} else {
		n.setHalfMoveClock(p.HalfMoveClock() + 1)
	}
	n.setSideToMove(us.Other())
	return n, d
}

// delta returns the XOR difference between the hashes of p and n. State
// terms are XORed out for p and in for n, so unchanged ones cancel.
func (z *zobristKeys) delta(p, n *Position, d *moveDelta) uint64 {
	us := d.us
	h := z.pieces[us][d.mover][d.from] ^ z.pieces[us][d.placed][d.to]
	if d.captured != NoPieceType {
		h ^= z.pieces[us.Other()][d.captured][d.capSq]
	}
	if d.rookFrom != NoSquare {
		h ^= z.pieces[us][Rook][d.rookFrom] ^ z.pieces[us][Rook][d.rookTo]
	}
	return h ^ z.stateKey(p) ^ z.stateKey(n)
}
