package board

import "chesscore/internal/core"

type offset struct{ df, dr int }

var (
	knightOffsets = [8]offset{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}
	kingOffsets   = [8]offset{{0, 1}, {1, 1}, {1, 0}, {1, -1}, {0, -1}, {-1, -1}, {-1, 0}, {-1, 1}}
	bishopDirs    = [4]offset{{1, 1}, {1, -1}, {-1, -1}, {-1, 1}}
	rookDirs      = [4]offset{{0, 1}, {1, 0}, {0, -1}, {-1, 0}}
	promoKinds    = [4]PieceKind{Queen, Rook, Bishop, Knight}
)

func (s Square) shift(o offset) Square {
	return NewSquare(s.File()+o.df, s.Rank()+o.dr)
}

func pawnDir(c core.Color) int {
	if c == core.ColorWhite {
		return 1
	}
	return -1
}

func (p *Position) kingSquare(c core.Color) Square {
	for sq := Square(0); sq < 64; sq++ {
		if pc := p.Squares[sq]; pc.Kind == King && pc.Color == c {
			return sq
		}
	}
	return NoSquare
}

// attacked reports whether any piece of side by attacks sq.
func (p *Position) attacked(sq Square, by core.Color) bool {
	// A pawn of side by attacks sq from one rank behind it
	for _, df := range [2]int{-1, 1} {
		from := NewSquare(sq.File()+df, sq.Rank()-pawnDir(by))
		if pc := p.At(from); pc.Kind == Pawn && pc.Color == by {
			return true
		}
	}

	for _, o := range knightOffsets {
		if pc := p.At(sq.shift(o)); pc.Kind == Knight && pc.Color == by {
			return true
		}
	}

	for _, o := range kingOffsets {
		if pc := p.At(sq.shift(o)); pc.Kind == King && pc.Color == by {
			return true
		}
	}

	if p.slidingAttack(sq, by, bishopDirs[:], Bishop) {
		return true
	}
	return p.slidingAttack(sq, by, rookDirs[:], Rook)
}

func (p *Position) slidingAttack(sq Square, by core.Color, dirs []offset, kind PieceKind) bool {
	for _, d := range dirs {
		for to := sq.shift(d); to != NoSquare; to = to.shift(d) {
			pc := p.Squares[to]
			if pc.IsEmpty() {
				continue
			}
			if pc.Color == by && (pc.Kind == kind || pc.Kind == Queen) {
				return true
			}
			break
		}
	}
	return false
}

func (p *Position) inCheck(c core.Color) bool {
	k := p.kingSquare(c)
	if k == NoSquare {
		return false
	}
	return p.attacked(k, core.OppositeColor(c))
}

// pseudoMoves generates moves for the piece on from, ignoring whether the
// mover's king is left in check. Castling is fully checked here since its
// conditions depend on attacked squares rather than the resulting position.
func (p *Position) pseudoMoves(from Square, moves []Move) []Move {
	piece := p.At(from)
	if piece.IsEmpty() || piece.Color != p.Turn {
		return moves
	}

	switch piece.Kind {
	case Pawn:
		return p.pawnMoves(from, piece.Color, moves)
	case Knight:
		return p.stepMoves(from, piece.Color, knightOffsets[:], moves)
	case Bishop:
		return p.slideMoves(from, piece.Color, bishopDirs[:], moves)
	case Rook:
		return p.slideMoves(from, piece.Color, rookDirs[:], moves)
	case Queen:
		moves = p.slideMoves(from, piece.Color, bishopDirs[:], moves)
		return p.slideMoves(from, piece.Color, rookDirs[:], moves)
	case King:
		moves = p.stepMoves(from, piece.Color, kingOffsets[:], moves)
		return p.castleMoves(from, piece.Color, moves)
	}
	return moves
}

func (p *Position) pawnMoves(from Square, c core.Color, moves []Move) []Move {
	dir := pawnDir(c)
	startRank, lastRank := 1, 7
	if c == core.ColorBlack {
		startRank, lastRank = 6, 0
	}

	add := func(to Square, flags MoveFlag) {
		if to.Rank() == lastRank {
			for _, k := range promoKinds {
				moves = append(moves, Move{From: from, To: to, Promotion: k, Flags: flags | FlagPromotion})
			}
			return
		}
		moves = append(moves, Move{From: from, To: to, Flags: flags})
	}

	one := NewSquare(from.File(), from.Rank()+dir)
	if one != NoSquare && p.Squares[one].IsEmpty() {
		add(one, 0)
		if from.Rank() == startRank {
			two := NewSquare(from.File(), from.Rank()+2*dir)
			if p.Squares[two].IsEmpty() {
				add(two, 0)
			}
		}
	}

	for _, df := range [2]int{-1, 1} {
		to := NewSquare(from.File()+df, from.Rank()+dir)
		if to == NoSquare {
			continue
		}
		target := p.Squares[to]
		switch {
		case !target.IsEmpty() && target.Color != c:
			add(to, FlagCapture)
		case target.IsEmpty() && to == p.EnPassant:
			moves = append(moves, Move{From: from, To: to, Flags: FlagCapture | FlagEnPassant})
		}
	}
	return moves
}

func (p *Position) stepMoves(from Square, c core.Color, offsets []offset, moves []Move) []Move {
	for _, o := range offsets {
		to := from.shift(o)
		if to == NoSquare {
			continue
		}
		target := p.Squares[to]
		if target.IsEmpty() {
			moves = append(moves, Move{From: from, To: to})
		} else if target.Color != c {
			moves = append(moves, Move{From: from, To: to, Flags: FlagCapture})
		}
	}
	return moves
}

func (p *Position) slideMoves(from Square, c core.Color, dirs []offset, moves []Move) []Move {
	for _, d := range dirs {
		for to := from.shift(d); to != NoSquare; to = to.shift(d) {
			target := p.Squares[to]
			if target.IsEmpty() {
				moves = append(moves, Move{From: from, To: to})
				continue
			}
			if target.Color != c {
				moves = append(moves, Move{From: from, To: to, Flags: FlagCapture})
			}
			break
		}
	}
	return moves
}

func (p *Position) castleMoves(from Square, c core.Color, moves []Move) []Move {
	rank := 0
	kingSide, queenSide := p.Castling.WhiteKing, p.Castling.WhiteQueen
	if c == core.ColorBlack {
		rank = 7
		kingSide, queenSide = p.Castling.BlackKing, p.Castling.BlackQueen
	}
	if from != NewSquare(4, rank) || (!kingSide && !queenSide) {
		return moves
	}
	enemy := core.OppositeColor(c)
	if p.attacked(from, enemy) {
		return moves
	}

	rook := Piece{Kind: Rook, Color: c}
	empty := func(files ...int) bool {
		for _, f := range files {
			if !p.Squares[NewSquare(f, rank)].IsEmpty() {
				return false
			}
		}
		return true
	}
	safe := func(files ...int) bool {
		for _, f := range files {
			if p.attacked(NewSquare(f, rank), enemy) {
				return false
			}
		}
		return true
	}

	if kingSide && p.Squares[NewSquare(7, rank)] == rook && empty(5, 6) && safe(5, 6) {
		moves = append(moves, Move{From: from, To: NewSquare(6, rank), Flags: FlagCastle})
	}
	if queenSide && p.Squares[NewSquare(0, rank)] == rook && empty(1, 2, 3) && safe(2, 3) {
		moves = append(moves, Move{From: from, To: NewSquare(2, rank), Flags: FlagCastle})
	}
	return moves
}

// legalMoves filters pseudo moves by playing each on a copy of the position.
func (p *Position) legalMoves(from Square) []Move {
	pseudo := p.pseudoMoves(from, nil)
	legal := pseudo[:0]
	for _, m := range pseudo {
		next := *p
		next.play(m)
		if !next.inCheck(p.Turn) {
			legal = append(legal, m)
		}
	}
	return legal
}

func (p *Position) hasLegalMoves() bool {
	for sq := Square(0); sq < 64; sq++ {
		if pc := p.Squares[sq]; !pc.IsEmpty() && pc.Color == p.Turn && len(p.legalMoves(sq)) > 0 {
			return true
		}
	}
	return false
}
