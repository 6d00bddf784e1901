package board

import "chesscore/internal/core"

var pieceValues = map[PieceKind]int{
	Pawn:   1,
	Knight: 3,
	Bishop: 3,
	Rook:   5,
	Queen:  9,
}

// startingCounts is the non-king complement of each side at the start.
var startingCounts = []struct {
	kind  PieceKind
	count int
}{
	{Pawn, 8}, {Knight, 2}, {Bishop, 2}, {Rook, 2}, {Queen, 1},
}

// Material sums the piece values a side still has on the board.
func (b *Board) Material(side core.Color) int {
	total := 0
	for _, pc := range b.pos.Squares {
		if pc.Color == side {
			total += pieceValues[pc.Kind]
		}
	}
	return total
}

// Captured lists the pieces of side missing from the starting complement,
// pawns first. Promotions can leave a kind above its starting count; such
// kinds contribute nothing.
func (b *Board) Captured(side core.Color) []PieceKind {
	onBoard := map[PieceKind]int{}
	for _, pc := range b.pos.Squares {
		if pc.Color == side {
			onBoard[pc.Kind]++
		}
	}

	var lost []PieceKind
	for _, sc := range startingCounts {
		for i := onBoard[sc.kind]; i < sc.count; i++ {
			lost = append(lost, sc.kind)
		}
	}
	return lost
}

func (p *Position) insufficientMaterial() bool {
	var minors []Square
	for sq := Square(0); sq < 64; sq++ {
		switch p.Squares[sq].Kind {
		case NoKind, King:
		case Knight, Bishop:
			minors = append(minors, sq)
		default:
			return false
		}
	}
	if len(minors) <= 1 {
		return true
	}
	// Only bishops, all on the same square color
	shade := (minors[0].File() + minors[0].Rank()) % 2
	for _, sq := range minors {
		if p.Squares[sq].Kind != Bishop || (sq.File()+sq.Rank())%2 != shade {
			return false
		}
	}
	return true
}
