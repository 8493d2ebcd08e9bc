package bitmg

import (
	"math/bits"
	"strings"
)

type Color uint8

const (
	White Color = 0
	Black Color = 1
)

// Other returns the opposing side.
func (c Color) Other() Color { return c ^ 1 }

func (c Color) String() string {
	if c == White {
		return "white"
	}
	return "black"
}

// PieceType is a colorless piece kind.
type PieceType uint8

const (
	NoPieceType PieceType = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

// Castling rights bit flags, as stored in the state byte of the pawn set.
type CastlingRights uint8

const (
	// White king-side (short) castling
	CastlingWhiteK CastlingRights = 1 << iota
	// White queen-side (long) castling
	CastlingWhiteQ
	// Black king-side castling
	CastlingBlackK
	// Black queen-side castling
	CastlingBlackQ

	CastlingNone CastlingRights = 0
	CastlingAll                 = CastlingWhiteK | CastlingWhiteQ | CastlingBlackK | CastlingBlackQ
)

// State bit layout inside the pawn set (ranks 1 and 8 never hold pawns).
const (
	epShift       = 0 // 4 bits: en-passant file + 1, 0 = none
	castleShift   = 4 // 4 bits: CastlingRights
	sideShift     = 56
	halfMoveShift = 57 // 7 bits, saturating

	epMask       uint64 = 0xF << epShift
	castleMask   uint64 = 0xF << castleShift
	sideMask     uint64 = 1 << sideShift
	halfMoveMask uint64 = 0x7F << halfMoveShift

	maxHalfMove = 0x7F
)

// Position is the bit-packed board: six piece sets plus state hidden in
// the unused pawn ranks. It is a plain value; make-move returns a new one.
//
// Queens are members of both bishopQueens and rookQueens. A zero white set
// marks an invalid frontier entry.
type Position struct {
	white        uint64
	pawns        uint64
	knights      uint64
	bishopQueens uint64
	rookQueens   uint64
	kings        uint64
}

// IsValid reports whether the entry is live (not marked invalid).
func (p *Position) IsValid() bool { return p.white != 0 }

// Invalidate marks the position as an empty frontier slot.
func (p *Position) Invalidate() { p.white = 0 }

// SideToMove returns the side to move.
func (p *Position) SideToMove() Color { return Color((p.pawns & sideMask) >> sideShift) }

// EnPassantFile returns the en-passant file (0-7) and whether one is set.
func (p *Position) EnPassantFile() (int, bool) {
	f := int((p.pawns & epMask) >> epShift)
	return f - 1, f != 0
}

// EnPassantSquare returns the square a pawn capturing en passant would land on.
func (p *Position) EnPassantSquare() Square {
	f, ok := p.EnPassantFile()
	if !ok {
		return NoSquare
	}
	if p.SideToMove() == White {
		return Square(40 + f)
	}
	return Square(16 + f)
}

// CastlingRights returns the castling flags.
func (p *Position) CastlingRights() CastlingRights {
	return CastlingRights((p.pawns & castleMask) >> castleShift)
}

// HalfMoveClock returns the half-move counter (saturating at 127).
func (p *Position) HalfMoveClock() int { return int((p.pawns & halfMoveMask) >> halfMoveShift) }

func (p *Position) setSideToMove(c Color) {
	p.pawns = p.pawns&^sideMask | uint64(c)<<sideShift
}

func (p *Position) setEnPassantFile(fileplus1 uint64) {
	p.pawns = p.pawns&^epMask | fileplus1<<epShift
}

func (p *Position) setCastlingRights(cr CastlingRights) {
	p.pawns = p.pawns&^castleMask | uint64(cr)<<castleShift
}

func (p *Position) setHalfMoveClock(n int) {
	if n > maxHalfMove {
		n = maxHalfMove
	}
	p.pawns = p.pawns&^halfMoveMask | uint64(n)<<halfMoveShift
}

// ==========================
// Piece set accessors
// ==========================

// Occupied returns every occupied square.
func (p *Position) Occupied() uint64 {
	return p.pawns&Ranks2To7 | p.knights | p.bishopQueens | p.rookQueens | p.kings
}

// Occupancy returns the squares occupied by side c.
func (p *Position) Occupancy(c Color) uint64 {
	if c == White {
		return p.white
	}
	return p.Occupied() &^ p.white
}

// Pawns returns the real pawns of both colors.
func (p *Position) Pawns() uint64 { return p.pawns & Ranks2To7 }

// Knights returns all knights.
func (p *Position) Knights() uint64 { return p.knights }

// Bishops returns pure bishops (queens excluded).
func (p *Position) Bishops() uint64 { return p.bishopQueens &^ p.rookQueens }

// Rooks returns pure rooks (queens excluded).
func (p *Position) Rooks() uint64 { return p.rookQueens &^ p.bishopQueens }

// Queens returns all queens.
func (p *Position) Queens() uint64 { return p.bishopQueens & p.rookQueens }

// BishopQueens returns every diagonal slider.
func (p *Position) BishopQueens() uint64 { return p.bishopQueens }

// RookQueens returns every orthogonal slider.
func (p *Position) RookQueens() uint64 { return p.rookQueens }

// Kings returns both kings.
func (p *Position) Kings() uint64 { return p.kings }

// Pieces returns the set of pieces of a given type and color.
func (p *Position) Pieces(c Color, pt PieceType) uint64 {
	var set uint64
	switch pt {
	case Pawn:
		set = p.Pawns()
	case Knight:
		set = p.knights
	case Bishop:
		set = p.Bishops()
	case Rook:
		set = p.Rooks()
	case Queen:
		set = p.Queens()
	case King:
		set = p.kings
	}
	return set & p.Occupancy(c)
}

// PieceAt returns the piece type and color on a square.
func (p *Position) PieceAt(sq Square) (PieceType, Color, bool) {
	b := SquareBB(sq)
	if p.Occupied()&b == 0 {
		return NoPieceType, White, false
	}
	c := Black
	if p.white&b != 0 {
		c = White
	}
	return p.typeAt(b), c, true
}

// typeAt returns the type of the piece on the singleton set b (assumed occupied).
func (p *Position) typeAt(b uint64) PieceType {
	switch {
	case p.kings&b != 0:
		return King
	case p.knights&b != 0:
		return Knight
	case p.pawns&Ranks2To7&b != 0:
		return Pawn
	case p.bishopQueens&b != 0 && p.rookQueens&b != 0:
		return Queen
	case p.bishopQueens&b != 0:
		return Bishop
	case p.rookQueens&b != 0:
		return Rook
	}
	return NoPieceType
}

// KingSquare returns the king square of side c.
func (p *Position) KingSquare(c Color) Square {
	return Square(bits.TrailingZeros64(p.kings & p.Occupancy(c)))
}

// Put places a piece on an empty square. Used by loaders and tests.
func (p *Position) Put(sq Square, c Color, pt PieceType) {
	b := SquareBB(sq)
	switch pt {
	case Pawn:
		p.pawns |= b
	case Knight:
		p.knights |= b
	case Bishop:
		p.bishopQueens |= b
	case Rook:
		p.rookQueens |= b
	case Queen:
		p.bishopQueens |= b
		p.rookQueens |= b
	case King:
		p.kings |= b
	}
	if c == White {
		p.white |= b
	}
}

// ==========================
// Printing
// ==========================

var pieceChars = [7]byte{'.', 'p', 'n', 'b', 'r', 'q', 'k'}

// String renders the board as an 8x8 diagram, rank 8 first.
func (p *Position) String() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		for file := 0; file < 8; file++ {
			pt, c, ok := p.PieceAt(Square(rank*8 + file))
			ch := pieceChars[pt]
			if ok && c == White {
				ch -= 'a' - 'A'
			}
			sb.WriteByte(ch)
			if file < 7 {
				sb.WriteByte(' ')
			}
		}
		sb.WriteByte('\n')
	}
	sb.WriteString(p.FEN())
	return sb.String()
}
