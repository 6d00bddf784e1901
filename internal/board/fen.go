package board

import (
	"fmt"
	"strconv"
	"strings"

	"chesscore/internal/core"
)

const (
	StartingFEN = "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"
)

// ParseFEN builds a board from a six-field FEN string.
func ParseFEN(fen string) (*Board, error) {
	pos, err := ParsePosition(fen)
	if err != nil {
		return nil, err
	}
	return FromPosition(pos), nil
}

// ParsePosition decodes a FEN string into a Position value.
func ParsePosition(fen string) (Position, error) {
	var p Position

	parts := strings.Fields(fen)
	if len(parts) != 6 {
		return p, fmt.Errorf("%w: expected 6 parts, got %d", ErrInvalidFEN, len(parts))
	}

	// Parse board, FEN lists rank 8 first
	ranks := strings.Split(parts[0], "/")
	if len(ranks) != 8 {
		return p, fmt.Errorf("%w: expected 8 ranks", ErrInvalidFEN)
	}

	kings := map[core.Color]int{}
	for i, row := range ranks {
		rank := 7 - i
		file := 0
		for j := 0; j < len(row); j++ {
			ch := row[j]
			if ch >= '1' && ch <= '8' {
				file += int(ch - '0')
				continue
			}
			if file >= 8 {
				return p, fmt.Errorf("%w: too many pieces in rank %d", ErrInvalidFEN, rank+1)
			}
			piece, ok := pieceFromChar(ch)
			if !ok {
				return p, fmt.Errorf("%w: unknown piece %q", ErrInvalidFEN, ch)
			}
			if piece.Kind == King {
				kings[piece.Color]++
			}
			if piece.Kind == Pawn && (rank == 0 || rank == 7) {
				return p, fmt.Errorf("%w: pawn on rank %d", ErrInvalidFEN, rank+1)
			}
			p.Squares[NewSquare(file, rank)] = piece
			file++
		}
		if file != 8 {
			return p, fmt.Errorf("%w: rank %d has %d files", ErrInvalidFEN, rank+1, file)
		}
	}
	if kings[core.ColorWhite] != 1 || kings[core.ColorBlack] != 1 {
		return p, fmt.Errorf("%w: each side needs exactly one king", ErrInvalidFEN)
	}

	switch parts[1] {
	case "w":
		p.Turn = core.ColorWhite
	case "b":
		p.Turn = core.ColorBlack
	default:
		return p, fmt.Errorf("%w: turn must be 'w' or 'b'", ErrInvalidFEN)
	}

	if parts[2] != "-" {
		for i := 0; i < len(parts[2]); i++ {
			var right *bool
			switch parts[2][i] {
			case 'K':
				right = &p.Castling.WhiteKing
			case 'Q':
				right = &p.Castling.WhiteQueen
			case 'k':
				right = &p.Castling.BlackKing
			case 'q':
				right = &p.Castling.BlackQueen
			default:
				return p, fmt.Errorf("%w: bad castling field %q", ErrInvalidFEN, parts[2])
			}
			if *right {
				return p, fmt.Errorf("%w: repeated castling right in %q", ErrInvalidFEN, parts[2])
			}
			*right = true
		}
	}

	p.EnPassant = NoSquare
	if parts[3] != "-" {
		sq, err := ParseSquare(parts[3])
		if err != nil {
			return p, fmt.Errorf("%w: en passant target %q", ErrInvalidFEN, parts[3])
		}
		wantRank := 5
		if p.Turn == core.ColorBlack {
			wantRank = 2
		}
		if sq.Rank() != wantRank {
			return p, fmt.Errorf("%w: en passant target %s on wrong rank", ErrInvalidFEN, sq)
		}
		// The pawn that just moved two squares sits in front of the target,
		// the target and the square it left are empty
		dir := pawnDir(p.Turn)
		pushed := p.Squares[NewSquare(sq.File(), sq.Rank()-dir)]
		if !p.Squares[sq].IsEmpty() || !p.Squares[NewSquare(sq.File(), sq.Rank()+dir)].IsEmpty() ||
			pushed.Kind != Pawn || pushed.Color == p.Turn {
			return p, fmt.Errorf("%w: no double pawn push behind en passant target %s", ErrInvalidFEN, sq)
		}
		p.EnPassant = sq
	}

	half, err := strconv.Atoi(parts[4])
	if err != nil || half < 0 {
		return p, fmt.Errorf("%w: halfmove counter", ErrInvalidFEN)
	}
	full, err := strconv.Atoi(parts[5])
	if err != nil || full < 1 {
		return p, fmt.Errorf("%w: fullmove counter", ErrInvalidFEN)
	}
	p.HalfMove = half
	p.FullMove = full

	if p.inCheck(core.OppositeColor(p.Turn)) {
		return p, fmt.Errorf("%w: side not to move is in check", ErrInvalidFEN)
	}

	return p, nil
}

// FEN serializes the position. Output is canonical: parsing it back yields
// an identical Position.
func (p Position) FEN() string {
	var sb strings.Builder
	for rank := 7; rank >= 0; rank-- {
		empty := 0
		for file := 0; file < 8; file++ {
			piece := p.Squares[NewSquare(file, rank)]
			if piece.IsEmpty() {
				empty++
				continue
			}
			if empty > 0 {
				sb.WriteByte(byte('0' + empty))
				empty = 0
			}
			sb.WriteByte(piece.Char())
		}
		if empty > 0 {
			sb.WriteByte(byte('0' + empty))
		}
		if rank > 0 {
			sb.WriteByte('/')
		}
	}

	fmt.Fprintf(&sb, " %s %s %s %d %d",
		p.Turn, p.Castling, p.EnPassant, p.HalfMove, p.FullMove)
	return sb.String()
}
