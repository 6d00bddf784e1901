package board

import "chesscore/internal/core"

// revokeCorner drops the right guarded by a rook home square.
func (c *CastlingRights) revokeCorner(sq Square) {
	switch sq {
	case NewSquare(0, 0):
		c.WhiteQueen = false
	case NewSquare(7, 0):
		c.WhiteKing = false
	case NewSquare(0, 7):
		c.BlackQueen = false
	case NewSquare(7, 7):
		c.BlackKing = false
	}
}

func (c *CastlingRights) revokeSide(side core.Color) {
	if side == core.ColorWhite {
		c.WhiteKing, c.WhiteQueen = false, false
	} else {
		c.BlackKing, c.BlackQueen = false, false
	}
}

// castleRookSquares returns the rook's origin and destination for a castling
// king move.
func castleRookSquares(m Move) (Square, Square) {
	rank := m.From.Rank()
	if m.To.File() == 6 {
		return NewSquare(7, rank), NewSquare(5, rank)
	}
	return NewSquare(0, rank), NewSquare(3, rank)
}

// play mutates the position. The move must carry generator flags.
func (p *Position) play(m Move) MoveRecord {
	mover := p.Squares[m.From]
	rec := MoveRecord{
		Move:          m,
		Moved:         mover,
		CapturedOn:    NoSquare,
		PrevCastling:  p.Castling,
		PrevEnPassant: p.EnPassant,
		PrevHalfMove:  p.HalfMove,
	}

	if m.Has(FlagEnPassant) {
		victim := NewSquare(m.To.File(), m.From.Rank())
		rec.Captured = p.Squares[victim]
		rec.CapturedOn = victim
		p.Squares[victim] = Piece{}
	} else if target := p.Squares[m.To]; !target.IsEmpty() {
		rec.Captured = target
		rec.CapturedOn = m.To
	}

	p.Squares[m.From] = Piece{}
	p.Squares[m.To] = mover
	if m.Promotion != NoKind {
		p.Squares[m.To] = Piece{Kind: m.Promotion, Color: mover.Color}
	}

	if m.Has(FlagCastle) {
		rookFrom, rookTo := castleRookSquares(m)
		p.Squares[rookTo] = p.Squares[rookFrom]
		p.Squares[rookFrom] = Piece{}
	}

	if mover.Kind == King {
		p.Castling.revokeSide(mover.Color)
	}
	p.Castling.revokeCorner(m.From)
	p.Castling.revokeCorner(m.To)

	p.EnPassant = NoSquare
	if mover.Kind == Pawn && (m.To-m.From == 16 || m.From-m.To == 16) {
		p.EnPassant = (m.From + m.To) / 2
	}

	if mover.Kind == Pawn || rec.CapturedOn != NoSquare {
		p.HalfMove = 0
	} else {
		p.HalfMove++
	}
	if mover.Color == core.ColorBlack {
		p.FullMove++
	}
	p.Turn = core.OppositeColor(mover.Color)

	return rec
}

// unplay reverses play using the record.
func (p *Position) unplay(rec MoveRecord) {
	m := rec.Move

	p.Squares[m.To] = Piece{}
	p.Squares[m.From] = rec.Moved
	if rec.CapturedOn != NoSquare {
		p.Squares[rec.CapturedOn] = rec.Captured
	}

	if m.Has(FlagCastle) {
		rookFrom, rookTo := castleRookSquares(m)
		p.Squares[rookFrom] = p.Squares[rookTo]
		p.Squares[rookTo] = Piece{}
	}

	p.Castling = rec.PrevCastling
	p.EnPassant = rec.PrevEnPassant
	p.HalfMove = rec.PrevHalfMove
	if rec.Moved.Color == core.ColorBlack {
		p.FullMove--
	}
	p.Turn = rec.Moved.Color
}
