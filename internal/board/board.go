package board

import (
	"fmt"
	"strings"

	"chesscore/internal/core"
)

// Board owns a Position and the stack of moves applied through it, which
// Undo uses to reject records that do not match the last move.
type Board struct {
	pos     Position
	applied []Move
}

// New returns a board in the standard starting position.
func New() *Board {
	b, err := ParseFEN(StartingFEN)
	if err != nil {
		panic(err)
	}
	return b
}

// FromPosition copies pos into a fresh board with no applied moves.
func FromPosition(pos Position) *Board {
	return &Board{pos: pos}
}

// Position returns a copy of the current position.
func (b *Board) Position() Position {
	return b.pos
}

func (b *Board) FEN() string {
	return b.pos.FEN()
}

func (b *Board) Turn() core.Color {
	return b.pos.Turn
}

func (b *Board) PieceAt(sq Square) Piece {
	return b.pos.At(sq)
}

// GetPieceAt returns the FEN character on an algebraic square, 0 if empty
// or the square is invalid.
func (b *Board) GetPieceAt(square string) byte {
	sq, err := ParseSquare(square)
	if err != nil {
		return 0
	}
	return b.pos.At(sq).Char()
}

// LegalMoves lists every legal move from a square in generation order.
func (b *Board) LegalMoves(from Square) []Move {
	if !from.Valid() {
		return nil
	}
	return b.pos.legalMoves(from)
}

// AllLegalMoves lists the legal moves of the side to move.
func (b *Board) AllLegalMoves() []Move {
	var moves []Move
	for sq := Square(0); sq < 64; sq++ {
		moves = append(moves, b.pos.legalMoves(sq)...)
	}
	return moves
}

func (b *Board) HasLegalMoves() bool {
	return b.pos.hasLegalMoves()
}

func (b *Board) InCheck() bool {
	return b.pos.inCheck(b.pos.Turn)
}

// Resolve finds the legal move matching m and returns it with flags set.
func (b *Board) Resolve(m Move) (Move, bool) {
	for _, legal := range b.LegalMoves(m.From) {
		if legal.Equal(m) {
			return legal, true
		}
	}
	return Move{}, false
}

func (b *Board) IsLegal(m Move) bool {
	_, ok := b.Resolve(m)
	return ok
}

// Apply plays a legal move. Callers are expected to check IsLegal first;
// an illegal move returns ErrIllegalMove and leaves the board unchanged.
func (b *Board) Apply(m Move) (MoveRecord, error) {
	legal, ok := b.Resolve(m)
	if !ok {
		return MoveRecord{}, fmt.Errorf("%w: %s in %s", ErrIllegalMove, m, b.FEN())
	}
	rec := b.pos.play(legal)
	b.applied = append(b.applied, legal)
	return rec, nil
}

// Undo reverses the last applied move. The record must belong to that move.
func (b *Board) Undo(rec MoveRecord) error {
	if len(b.applied) == 0 {
		return fmt.Errorf("%w: no move to undo", ErrHistoryUnderflow)
	}
	last := b.applied[len(b.applied)-1]
	if last != rec.Move || b.pos.At(rec.Move.To).Color != rec.Moved.Color {
		return fmt.Errorf("%w: record %s does not match last move %s", ErrHistoryUnderflow, rec.Move, last)
	}
	b.pos.unplay(rec)
	b.applied = b.applied[:len(b.applied)-1]
	return nil
}

// Outcome reports a position-derived game end, if any.
func (b *Board) Outcome() (core.GameOver, bool) {
	if !b.pos.hasLegalMoves() {
		if b.InCheck() {
			return core.GameOver{Reason: core.ReasonCheckmate, Winner: core.OppositeColor(b.pos.Turn)}, true
		}
		return core.GameOver{Reason: core.ReasonStalemate}, true
	}
	if b.pos.HalfMove >= 100 {
		return core.GameOver{Reason: core.ReasonFiftyMoves}, true
	}
	if b.pos.insufficientMaterial() {
		return core.GameOver{Reason: core.ReasonInsufficientMaterial}, true
	}
	return core.GameOver{}, false
}

// ToASCII creates an ASCII representation of the board
func (b *Board) ToASCII() string {
	var sb strings.Builder
	sb.WriteString("  a b c d e f g h\n")

	for r := 7; r >= 0; r-- {
		sb.WriteString(fmt.Sprintf("%d ", r+1))
		for f := 0; f < 8; f++ {
			piece := b.pos.Squares[NewSquare(f, r)]
			if piece.IsEmpty() {
				sb.WriteString(". ")
			} else {
				sb.WriteString(fmt.Sprintf("%c ", piece.Char()))
			}
		}
		sb.WriteString(fmt.Sprintf(" %d\n", r+1))
	}
	sb.WriteString("  a b c d e f g h")

	return sb.String()
}
