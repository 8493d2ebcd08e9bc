package bitmg

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// FENStartPos is the FEN string for the standard initial chess position.
const FENStartPos = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"

// ErrInvalidFEN is wrapped by every ParseFEN failure.
var ErrInvalidFEN = errors.New("invalid FEN")

func pieceFromChar(ch rune) (PieceType, Color, bool) {
	c := White
	if ch >= 'a' && ch <= 'z' {
		c = Black
		ch -= 'a' - 'A'
	}
	switch ch {
	case 'P':
		return Pawn, c, true
	case 'N':
		return Knight, c, true
	case 'B':
		return Bishop, c, true
	case 'R':
		return Rook, c, true
	case 'Q':
		return Queen, c, true
	case 'K':
		return King, c, true
	}
	return NoPieceType, c, false
}

// ParseFEN parses a FEN string into a Position. The fullmove number is
// accepted but not stored. Castling rights without the matching king and
// rook on their home squares are dropped.
func ParseFEN(fen string) (Position, error) {
	var p Position
	fields := strings.Fields(fen)
	if len(fields) < 4 {
		return p, fmt.Errorf("%w: not enough fields", ErrInvalidFEN)
	}

	// 1. Piece placement
	ranks := strings.Split(fields[0], "/")
	if len(ranks) != 8 {
		return p, fmt.Errorf("%w: incorrect number of ranks", ErrInvalidFEN)
	}
	for i, rankStr := range ranks {
		rank := 7 - i
		file := 0
		for _, ch := range rankStr {
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			pt, c, ok := pieceFromChar(ch)
			if !ok {
				return p, fmt.Errorf("%w: unrecognized piece character %q", ErrInvalidFEN, ch)
			}
			if file >= 8 {
				return p, fmt.Errorf("%w: too many squares in rank %d", ErrInvalidFEN, rank+1)
			}
			if pt == Pawn && (rank == 0 || rank == 7) {
				return p, fmt.Errorf("%w: pawn on back rank", ErrInvalidFEN)
			}
			p.Put(Square(rank*8+file), c, pt)
			file++
		}
		if file != 8 {
			return p, fmt.Errorf("%w: rank %d does not have 8 columns", ErrInvalidFEN, rank+1)
		}
	}
	if PopCount(p.Pieces(White, King)) != 1 || PopCount(p.Pieces(Black, King)) != 1 {
		return p, fmt.Errorf("%w: each side needs exactly one king", ErrInvalidFEN)
	}

	// 2. Side to move
	switch fields[1] {
	case "w":
		p.setSideToMove(White)
	case "b":
		p.setSideToMove(Black)
	default:
		return p, fmt.Errorf("%w: side to move must be 'w' or 'b'", ErrInvalidFEN)
	}

	// 3. Castling rights
	var cr CastlingRights
	if fields[2] != "-" {
		for _, ch := range fields[2] {
			switch ch {
			case 'K':
				cr |= CastlingWhiteK
			case 'Q':
				cr |= CastlingWhiteQ
			case 'k':
				cr |= CastlingBlackK
			case 'q':
				cr |= CastlingBlackQ
			default:
				return p, fmt.Errorf("%w: invalid castling rights character %q", ErrInvalidFEN, ch)
			}
		}
	}
	p.setCastlingRights(cr & p.possibleCastling())

	// 4. En passant target square
	if fields[3] != "-" {
		s := fields[3]
		if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || (s[1] != '3' && s[1] != '6') {
			return p, fmt.Errorf("%w: invalid en passant square %q", ErrInvalidFEN, s)
		}
		p.setEnPassantFile(uint64(s[0]-'a') + 1)
	}

	// 5. Halfmove clock
	if len(fields) > 4 {
		halfmove, err := strconv.Atoi(fields[4])
		if err != nil || halfmove < 0 {
			return p, fmt.Errorf("%w: halfmove clock %q", ErrInvalidFEN, fields[4])
		}
		p.setHalfMoveClock(halfmove)
	}

	// 6. Fullmove number
	if len(fields) > 5 {
		if _, err := strconv.Atoi(fields[5]); err != nil {
			return p, fmt.Errorf("%w: fullmove number %q", ErrInvalidFEN, fields[5])
		}
	}
	return p, nil
}

// MustParseFEN is ParseFEN for known-good constants; it panics on error.
func MustParseFEN(fen string) Position {
	p, err := ParseFEN(fen)
	if err != nil {
		panic(err)
	}
	return p
}

// StartPosition returns the standard initial position.
func StartPosition() Position { return MustParseFEN(FENStartPos) }

// possibleCastling returns the rights that the piece placement supports.
func (p *Position) possibleCastling() CastlingRights {
	var cr CastlingRights
	wk, bk := p.Pieces(White, King), p.Pieces(Black, King)
	wr, br := p.Pieces(White, Rook), p.Pieces(Black, Rook)
	if wk&SquareBB(E1) != 0 {
		if wr&SquareBB(H1) != 0 {
			cr |= CastlingWhiteK
		}
		if wr&SquareBB(A1) != 0 {
			cr |= CastlingWhiteQ
		}
	}
	if bk&SquareBB(E8) != 0 {
		if br&SquareBB(H8) != 0 {
			cr |= CastlingBlackK
		}
		if br&SquareBB(A8) != 0 {
			cr |= CastlingBlackQ
		}
	}
	return cr
}

// FEN produces the FEN string of the position. The fullmove number is
// not tracked and is always written as 1.
func (p *Position) FEN() string {
	var sb strings.Builder

	// 1. Piece placement
	for rank := 7; rank >= 0; rank-- {
		emptyCount := 0
		for file := 0; file < 8; file++ {
			pt, c, ok := p.PieceAt(Square(rank*8 + file))
			if !ok {
				emptyCount++
				continue
			}
			if emptyCount > 0 {
				sb.WriteByte('0' + byte(emptyCount))
				emptyCount = 0
			}
			ch := pieceChars[pt]
			if c == White {
				ch -= 'a' - 'A'
			}
			sb.WriteByte(ch)
		}
		if emptyCount > 0 {
			sb.WriteByte('0' + byte(emptyCount))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	// 2. Side to move
	if p.SideToMove() == White {
		sb.WriteString(" w ")
	} else {
		sb.WriteString(" b ")
	}

	// 3. Castling rights
	cr := p.CastlingRights()
	if cr == 0 {
		sb.WriteByte('-')
	}
	for i, ch := range "KQkq" {
		if cr&(1<<i) != 0 {
			sb.WriteRune(ch)
		}
	}
	sb.WriteByte(' ')

	// 4. En passant square
	sb.WriteString(p.EnPassantSquare().String())

	// 5. Halfmove clock, 6. fullmove number
	sb.WriteByte(' ')
	sb.WriteString(strconv.Itoa(p.HalfMoveClock()))
	sb.WriteString(" 1")
	return sb.String()
}
