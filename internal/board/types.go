package board

import (
	"errors"
	"fmt"

	"chesscore/internal/core"
)

var (
	ErrIllegalMove      = errors.New("illegal move")
	ErrHistoryUnderflow = errors.New("history underflow")
	ErrInvalidFEN       = errors.New("invalid FEN")
	ErrInvalidSquare    = errors.New("invalid square")
	ErrInvalidMove      = errors.New("invalid move notation")
)

type PieceKind uint8

const (
	NoKind PieceKind = iota
	Pawn
	Knight
	Bishop
	Rook
	Queen
	King
)

var kindLetters = [...]byte{' ', 'p', 'n', 'b', 'r', 'q', 'k'}

// Letter returns the lowercase FEN letter, or ' ' for NoKind.
func (k PieceKind) Letter() byte {
	if int(k) < len(kindLetters) {
		return kindLetters[k]
	}
	return '?'
}

func (k PieceKind) String() string {
	switch k {
	case Pawn:
		return "Pawn"
	case Knight:
		return "Knight"
	case Bishop:
		return "Bishop"
	case Rook:
		return "Rook"
	case Queen:
		return "Queen"
	case King:
		return "King"
	default:
		return "None"
	}
}

func kindFromLetter(c byte) PieceKind {
	if c >= 'A' && c <= 'Z' {
		c += 'a' - 'A'
	}
	for k, l := range kindLetters {
		if k > 0 && l == c {
			return PieceKind(k)
		}
	}
	return NoKind
}

// ParsePromotion maps a UCI promotion suffix to a piece kind.
func ParsePromotion(c byte) (PieceKind, bool) {
	switch c {
	case 'q', 'Q':
		return Queen, true
	case 'r', 'R':
		return Rook, true
	case 'b', 'B':
		return Bishop, true
	case 'n', 'N':
		return Knight, true
	}
	return NoKind, false
}

// Piece is a kind plus its side. The zero value is an empty square.
type Piece struct {
	Kind  PieceKind
	Color core.Color
}

func (p Piece) IsEmpty() bool {
	return p.Kind == NoKind
}

// Char returns the FEN character: uppercase for white, 0 for empty.
func (p Piece) Char() byte {
	if p.Kind == NoKind {
		return 0
	}
	c := p.Kind.Letter()
	if p.Color == core.ColorWhite {
		c -= 'a' - 'A'
	}
	return c
}

func pieceFromChar(c byte) (Piece, bool) {
	kind := kindFromLetter(c)
	if kind == NoKind {
		return Piece{}, false
	}
	color := core.ColorBlack
	if c >= 'A' && c <= 'Z' {
		color = core.ColorWhite
	}
	return Piece{Kind: kind, Color: color}, true
}

// Square indexes the board from a1 (0) to h8 (63).
type Square int8

const NoSquare Square = -1

func NewSquare(file, rank int) Square {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoSquare
	}
	return Square(rank*8 + file)
}

func (s Square) File() int { return int(s) % 8 }
func (s Square) Rank() int { return int(s) / 8 }

func (s Square) Valid() bool {
	return s >= 0 && s < 64
}

func (s Square) String() string {
	if !s.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + s.File()), byte('1' + s.Rank())})
}

// ParseSquare parses algebraic coordinates such as "e4".
func ParseSquare(s string) (Square, error) {
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoSquare, fmt.Errorf("%w: %q", ErrInvalidSquare, s)
	}
	return NewSquare(int(s[0]-'a'), int(s[1]-'1')), nil
}

// CastlingRights holds the four castling permissions.
type CastlingRights struct {
	WhiteKing  bool
	WhiteQueen bool
	BlackKing  bool
	BlackQueen bool
}

func (c CastlingRights) String() string {
	var b []byte
	if c.WhiteKing {
		b = append(b, 'K')
	}
	if c.WhiteQueen {
		b = append(b, 'Q')
	}
	if c.BlackKing {
		b = append(b, 'k')
	}
	if c.BlackQueen {
		b = append(b, 'q')
	}
	if len(b) == 0 {
		return "-"
	}
	return string(b)
}

type MoveFlag uint8

const (
	FlagCapture MoveFlag = 1 << iota
	FlagCastle
	FlagEnPassant
	FlagPromotion
)

// Move is immutable once generated. Flags are only populated for moves
// produced by the generator; parsed moves carry none.
type Move struct {
	From      Square
	To        Square
	Promotion PieceKind
	Flags     MoveFlag
}

// Equal compares origin, destination and promotion, ignoring flags.
func (m Move) Equal(o Move) bool {
	return m.From == o.From && m.To == o.To && m.Promotion == o.Promotion
}

func (m Move) Has(f MoveFlag) bool {
	return m.Flags&f != 0
}

// String returns UCI long algebraic notation (e2e4, e7e8q).
func (m Move) String() string {
	s := m.From.String() + m.To.String()
	if m.Promotion != NoKind {
		s += string(m.Promotion.Letter())
	}
	return s
}

// ParseMove parses a UCI move token. Only syntax is checked.
func ParseMove(s string) (Move, error) {
	if len(s) < 4 || len(s) > 5 {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	from, err := ParseSquare(s[0:2])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	to, err := ParseSquare(s[2:4])
	if err != nil {
		return Move{}, fmt.Errorf("%w: %q", ErrInvalidMove, s)
	}
	m := Move{From: from, To: to}
	if len(s) == 5 {
		promo, ok := ParsePromotion(s[4])
		if !ok {
			return Move{}, fmt.Errorf("%w: bad promotion in %q", ErrInvalidMove, s)
		}
		m.Promotion = promo
	}
	return m, nil
}

// MoveRecord is a move plus what is needed to reverse it.
type MoveRecord struct {
	Move          Move
	Moved         Piece
	Captured      Piece
	CapturedOn    Square
	PrevCastling  CastlingRights
	PrevEnPassant Square
	PrevHalfMove  int
}

// Position is the full board state. It is a comparable value: two positions
// are structurally equal iff == holds.
type Position struct {
	Squares   [64]Piece
	Turn      core.Color
	Castling  CastlingRights
	EnPassant Square
	HalfMove  int
	FullMove  int
}

func (p *Position) At(sq Square) Piece {
	if !sq.Valid() {
		return Piece{}
	}
	return p.Squares[sq]
}
