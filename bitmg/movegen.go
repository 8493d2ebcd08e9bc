package bitmg

// MaxMoves bounds the number of legal moves in any position.
const MaxMoves = 256

// GenerateMoves appends every legal move of the side to move to dst.
func GenerateMoves(p *Position, dst []Move) []Move {
	s := moveSink{moves: dst}
	generate(p, &s)
	return s.moves
}

// CountMoves returns the number of legal moves without materializing them.
// It always equals len(GenerateMoves(p, nil)).
func CountMoves(p *Position) int {
	s := moveSink{counting: true}
	generate(p, &s)
	return s.count
}

// GenerateBoards appends the successor position of every legal move to dst.
func GenerateBoards(p *Position, dst []Position) []Position {
	var buf [MaxMoves]Move
	for _, m := range GenerateMoves(p, buf[:0]) {
		dst = append(dst, MakeMove(p, m))
	}
	return dst
}

// moveSink either collects moves or only counts them. Set-wise pawn and
// slider targets are counted with popcount.
type moveSink struct {
	moves    []Move
	count    int
	counting bool
}

func (s *moveSink) add(from, to Square, flag MoveFlag) {
	if s.counting {
		s.count++
		return
	}
	s.moves = append(s.moves, NewMove(from, to, flag))
}

// addTargets emits a move from one square to every square of targets.
func (s *moveSink) addTargets(from Square, targets, theirs uint64) {
	if s.counting {
		s.count += PopCount(targets)
		return
	}
	for targets != 0 {
		b := targets & -targets
		targets &= targets - 1
		flag := FlagQuiet
		if theirs&b != 0 {
			flag = FlagCapture
		}
		s.moves = append(s.moves, NewMove(from, BitScan(b), flag))
	}
}

// addPawnSet emits pawn moves for a destination set reached by shifting the
// source pawns by delta. Destinations on promo expand to four promotions.
func (s *moveSink) addPawnSet(targets uint64, delta int, flag MoveFlag, promo uint64) {
	promos := targets & promo
	targets &^= promo
	if s.counting {
		s.count += PopCount(targets) + 4*PopCount(promos)
		return
	}
	for targets != 0 {
		to := BitScan(targets)
		targets &= targets - 1
		s.moves = append(s.moves, NewMove(to-Square(delta), to, flag))
	}
	base := flagPromoBit | flag&flagCaptureBit
	for promos != 0 {
		to := BitScan(promos)
		promos &= promos - 1
		from := to - Square(delta)
		// queen first
		for k := 3; k >= 0; k-- {
			s.moves = append(s.moves, NewMove(from, to, base+MoveFlag(k)))
		}
	}
}

// ==========================
// Attack helpers
// ==========================

// pinnedPieces returns the pieces of mine that are the only blocker between
// the king and an enemy slider aligned with it.
func pinnedPieces(kingSq Square, all, mine, enemyBQ, enemyRQ uint64) uint64 {
	var pinned uint64
	snipers := bishopRays[kingSq]&enemyBQ | rookRays[kingSq]&enemyRQ
	for snipers != 0 {
		sq := BitScan(snipers)
		snipers &= snipers - 1
		blockers := Between[kingSq][sq] & all
		if IsSingular(blockers) {
			pinned |= blockers & mine
		}
	}
	return pinned
}

// threatenedSquares returns every square attacked by side them. Sliders see
// through the defending king so it cannot step back along a checking ray.
func threatenedSquares(p *Position, them Color, myKing uint64) uint64 {
	theirs := p.Occupancy(them)
	pro := ^p.Occupied() | myKing
	t := pawnAttacksSet(p.Pawns()&theirs, them)
	t |= knightAttacksSet(p.knights & theirs)
	t |= BishopAttacksKS(p.bishopQueens&theirs, pro)
	t |= RookAttacksKS(p.rookQueens&theirs, pro)
	t |= kingAttacksSet(p.kings & theirs)
	return t
}

// attackersOf returns the pieces of side by attacking sq under occupancy occ.
func attackersOf(p *Position, sq Square, by Color, occ uint64) uint64 {
	theirs := p.Occupancy(by)
	return (PawnAttacks[by.Other()][sq]&p.Pawns() |
		KnightAttacks[sq]&p.knights |
		KingAttacks[sq]&p.kings |
		BishopAttacks(sq, occ)&p.bishopQueens |
		RookAttacks(sq, occ)&p.rookQueens) & theirs
}

// Checkers returns the enemy pieces giving check to the side to move.
func Checkers(p *Position) uint64 {
	us := p.SideToMove()
	return attackersOf(p, p.KingSquare(us), us.Other(), p.Occupied())
}

// InCheck reports whether the side to move is in check.
func InCheck(p *Position) bool { return Checkers(p) != 0 }

// Attacked reports whether side by attacks sq in the current position.
func Attacked(p *Position, sq Square, by Color) bool {
	return attackersOf(p, sq, by, p.Occupied()) != 0
}

// ==========================
// Generator
// ==========================

type pawnDirs struct {
	push      func(uint64) uint64
	west      func(uint64) uint64
	east      func(uint64) uint64
	pushDelta int
	westDelta int
	eastDelta int
	thirdRank uint64
	lastRank  uint64
}

var pawnDirections = [2]pawnDirs{
	White: {NorthOne, NorthWestOne, NorthEastOne, 8, 7, 9, Rank3, Rank8},
	Black: {SouthOne, SouthWestOne, SouthEastOne, -8, -9, -7, Rank6, Rank1},
}

func generate(p *Position, s *moveSink) {
	us := p.SideToMove()
	them := us.Other()
	all := p.Occupied()
	mine := p.Occupancy(us)
	theirs := all &^ mine
	empty := ^all

	myKing := p.kings & mine
	kingSq := BitScan(myKing)
	enemyBQ := p.bishopQueens & theirs
	enemyRQ := p.rookQueens & theirs

	threatened := threatenedSquares(p, them, myKing)
	s.addTargets(kingSq, KingAttacks[kingSq]&^mine&^threatened, theirs)

	// Only the king may move out of a double check.
	var checkers uint64
	if threatened&myKing != 0 {
		checkers = attackersOf(p, kingSq, them, all)
		if !IsSingular(checkers) {
			return
		}
	}
	inCheck := checkers != 0

	// Non-king moves must land inside target: anywhere normally, on the
	// checker or the squares between it and the king when in check.
	target := ^mine
	if inCheck {
		target = checkers | Between[kingSq][BitScan(checkers)]
	}

	pinned := pinnedPieces(kingSq, all, mine, enemyBQ, enemyRQ)
	movable := mine
	if inCheck {
		movable &^= pinned
	}

	// Knights: a pinned knight can never stay on its pin line.
	knights := p.knights & movable &^ pinned
	for knights != 0 {
		sq := BitScan(knights)
		knights &= knights - 1
		s.addTargets(sq, KnightAttacks[sq]&target, theirs)
	}

	// Diagonal sliders (bishops and queens)
	diag := p.bishopQueens & movable
	for diag != 0 {
		sq := BitScan(diag)
		diag &= diag - 1
		t := BishopAttacks(sq, all) & target
		if pinned&SquareBB(sq) != 0 {
			t &= Line[kingSq][sq]
		}
		s.addTargets(sq, t, theirs)
	}

	// Orthogonal sliders (rooks and queens)
	orth := p.rookQueens & movable
	for orth != 0 {
		sq := BitScan(orth)
		orth &= orth - 1
		t := RookAttacks(sq, all) & target
		if pinned&SquareBB(sq) != 0 {
			t &= Line[kingSq][sq]
		}
		s.addTargets(sq, t, theirs)
	}

	generatePawnMoves(p, s, us, kingSq, p.Pawns()&movable, pinned, empty, theirs, target)
	generateEnPassant(p, s, us, kingSq, p.Pawns()&movable, pinned, all, checkers, target, enemyBQ, enemyRQ)

	if !inCheck {
		generateCastling(p, s, us, all, threatened)
	}
}

func generatePawnMoves(p *Position, s *moveSink, us Color, kingSq Square, pawns, pinned, empty, theirs, target uint64) {
	d := &pawnDirections[us]

	emit := func(from uint64, restrict uint64) {
		single := d.push(from) & empty
		double := d.push(single&d.thirdRank) & empty & target & restrict
		single &= target & restrict
		s.addPawnSet(single, d.pushDelta, FlagQuiet, d.lastRank)
		s.addPawnSet(double, 2*d.pushDelta, FlagDoublePush, 0)
		s.addPawnSet(d.west(from)&theirs&target&restrict, d.westDelta, FlagCapture, d.lastRank)
		s.addPawnSet(d.east(from)&theirs&target&restrict, d.eastDelta, FlagCapture, d.lastRank)
	}

	emit(pawns&^pinned, ^uint64(0))

	// Pinned pawns one at a time, confined to their pin line.
	pp := pawns & pinned
	for pp != 0 {
		b := pp & -pp
		pp &= pp - 1
		emit(b, Line[kingSq][BitScan(b)])
	}
}

func generateEnPassant(p *Position, s *moveSink, us Color, kingSq Square, pawns, pinned, all, checkers, target, enemyBQ, enemyRQ uint64) {
	epSq := p.EnPassantSquare()
	if epSq == NoSquare {
		return
	}
	epBB := SquareBB(epSq)
	capturedSq := epSq - 8
	if us == Black {
		capturedSq = epSq + 8
	}
	captured := SquareBB(capturedSq)
	if p.Pawns()&p.Occupancy(us.Other())&captured == 0 {
		return
	}

	// In check the capture must remove the checker or block on the ep square.
	if checkers != 0 && checkers&captured == 0 && target&epBB == 0 {
		return
	}

	candidates := PawnAttacks[us.Other()][epSq] & pawns
	for candidates != 0 {
		from := BitScan(candidates)
		fromBB := SquareBB(from)
		candidates &= candidates - 1

		if pinned&fromBB != 0 && Line[kingSq][from]&epBB == 0 {
			continue
		}
		// Both pawns leave the rank at once; a rook or queen behind them
		// would then see the king.
		occ := all&^fromBB&^captured | epBB
		if RookAttacks(kingSq, occ)&enemyRQ != 0 || BishopAttacks(kingSq, occ)&enemyBQ != 0 {
			continue
		}
		s.add(from, epSq, FlagEnPassant)
	}
}

func generateCastling(p *Position, s *moveSink, us Color, all, threatened uint64) {
	cr := p.CastlingRights()
	if us == White {
		if cr&CastlingWhiteK != 0 && all&f1g1 == 0 && threatened&f1g1 == 0 {
			s.add(E1, G1, FlagKingCastle)
		}
		if cr&CastlingWhiteQ != 0 && all&b1d1 == 0 && threatened&c1d1 == 0 {
			s.add(E1, C1, FlagQueenCastle)
		}
		return
	}
	if cr&CastlingBlackK != 0 && all&f8g8 == 0 && threatened&f8g8 == 0 {
		s.add(E8, G8, FlagKingCastle)
	}
	if cr&CastlingBlackQ != 0 && all&b8d8 == 0 && threatened&c8d8 == 0 {
		s.add(E8, C8, FlagQueenCastle)
	}
}
