package bitmg

import "fmt"

// Move encodes a chess move in 16 bits.
type Move uint16

// Bitfield layout within Move (from LSB to MSB)
const (
	moveFromShift = 0  // 6 bits
	moveToShift   = 6  // 6 bits
	moveFlagShift = 12 // 4 bits
)

// MoveFlag is the 4-bit move kind. Bit 2 marks captures, bit 3 promotions.
type MoveFlag uint8

const (
	FlagQuiet       MoveFlag = 0
	FlagDoublePush  MoveFlag = 1
	FlagKingCastle  MoveFlag = 2
	FlagQueenCastle MoveFlag = 3
	FlagCapture     MoveFlag = 4
	FlagEnPassant   MoveFlag = 5

	FlagPromoKnight MoveFlag = 8
	FlagPromoBishop MoveFlag = 9
	FlagPromoRook   MoveFlag = 10
	FlagPromoQueen  MoveFlag = 11

	FlagPromoCaptureKnight MoveFlag = 12
	FlagPromoCaptureBishop MoveFlag = 13
	FlagPromoCaptureRook   MoveFlag = 14
	FlagPromoCaptureQueen  MoveFlag = 15

	flagCaptureBit MoveFlag = 4
	flagPromoBit   MoveFlag = 8
)

// NewMove constructs a Move value from components.
func NewMove(from, to Square, flag MoveFlag) Move {
	return Move(uint16(from&0x3F)<<moveFromShift |
		uint16(to&0x3F)<<moveToShift |
		uint16(flag&0xF)<<moveFlagShift)
}

// From returns the source square of the move.
func (m Move) From() Square { return Square((uint16(m) >> moveFromShift) & 0x3F) }

// To returns the destination square of the move.
func (m Move) To() Square { return Square((uint16(m) >> moveToShift) & 0x3F) }

// Flag returns the move kind nibble.
func (m Move) Flag() MoveFlag { return MoveFlag(uint16(m) >> moveFlagShift) }

// IsCapture reports whether the move removes an enemy piece (en passant included).
func (m Move) IsCapture() bool { return m.Flag()&flagCaptureBit != 0 }

// IsPromotion reports whether the move promotes a pawn.
func (m Move) IsPromotion() bool { return m.Flag()&flagPromoBit != 0 }

// IsCastle reports whether the move is a castling move.
func (m Move) IsCastle() bool {
	f := m.Flag()
	return f == FlagKingCastle || f == FlagQueenCastle
}

// PromotionType returns the promoted piece type, or NoPieceType.
func (m Move) PromotionType() PieceType {
	if !m.IsPromotion() {
		return NoPieceType
	}
	return Knight + PieceType(m.Flag()&3)
}

var promoChars = [4]byte{'n', 'b', 'r', 'q'}

// String produces the coordinate notation of the move (e.g. "e2e4", "e7e8q").
// Castling is printed as the king's two-square move.
func (m Move) String() string {
	s := m.From().String() + m.To().String()
	if m.IsPromotion() {
		s += string(promoChars[m.Flag()&3])
	}
	return s
}

// ParseMove finds the legal move in p matching coordinate notation.
func ParseMove(p *Position, s string) (Move, error) {
	var buf [MaxMoves]Move
	for _, m := range GenerateMoves(p, buf[:0]) {
		if m.String() == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("no legal move %q in %s", s, p.FEN())
}
