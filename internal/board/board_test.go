package board

import (
	"errors"
	"math/rand"
	"sort"
	"strings"
	"testing"

	"chesscore/internal/core"

	"github.com/google/go-cmp/cmp"
	"github.com/notnil/chess"
)

const (
	kiwipeteFEN = "r3k2r/p1ppqpb1/bn2pnp1/3PN3/1p2P3/2N2Q1p/PPPBBPPP/R3K2R w KQkq - 0 1"
	endgameFEN  = "8/2p5/3p4/KP5r/1R3p1k/8/4P1P1/8 w - - 0 1"
	mirrorFEN   = "r3k2r/Pppp1ppp/1b3nbN/nP6/BBP1P3/q4N2/Pp1P2PP/R2Q1RK1 w kq - 0 1"
	talkFEN     = "rnbq1k1r/pp1Pbppp/2p5/8/2B5/8/PPP1NnPP/RNBQK2R w KQ - 1 8"
)

func mustParse(t *testing.T, fen string) *Board {
	t.Helper()
	b, err := ParseFEN(fen)
	if err != nil {
		t.Fatalf("ParseFEN(%q): %v", fen, err)
	}
	return b
}

func mustMove(t *testing.T, s string) Move {
	t.Helper()
	m, err := ParseMove(s)
	if err != nil {
		t.Fatalf("ParseMove(%q): %v", s, err)
	}
	return m
}

func uciList(moves []Move) []string {
	out := make([]string, 0, len(moves))
	for _, m := range moves {
		out = append(out, m.String())
	}
	sort.Strings(out)
	return out
}

func TestFENRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		fen  string
	}{
		{"initial position", StartingFEN},
		{"mid-game", "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4"},
		{"post-castle", "r1bqkb1r/pppp1ppp/2n2n2/4p3/2B1P3/5N2/PPPP1PPP/RNBQ1RK1 b kq - 5 4"},
		{"post-en-passant", "rnbqkbnr/ppp1p1pp/3P4/8/8/8/PPPP1PPP/RNBQKBNR b KQkq - 0 3"},
		{"en passant target", "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3"},
		{"post-promotion", "rnbqkbQr/pppp3p/8/8/8/8/PPPP1PPP/RNB1KBNR b KQkq - 0 5"},
		{"kiwipete", kiwipeteFEN},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustParse(t, tt.fen)
			if got := b.FEN(); got != tt.fen {
				t.Errorf("FEN() = %q, want %q", got, tt.fen)
			}
			again := mustParse(t, b.FEN())
			if diff := cmp.Diff(b.Position(), again.Position()); diff != "" {
				t.Errorf("position round trip mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestParseFENErrors(t *testing.T) {
	tests := []struct {
		name string
		fen  string
	}{
		{"empty string", ""},
		{"missing fields", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq -"},
		{"seven ranks", "rnbqkbnr/pppppppp/8/8/8/8/RNBQKBNR w KQkq - 0 1"},
		{"short rank", "rnbqkbnr/ppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"},
		{"bad piece", "rnbqkbnr/ppppxppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 1"},
		{"bad turn", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR x KQkq - 0 1"},
		{"bad castling", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KX - 0 1"},
		{"repeated castling", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KK - 0 1"},
		{"en passant wrong rank", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq e3 0 1"},
		{"no black king", "rnbq1bnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQ - 0 1"},
		{"negative halfmove", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - -1 1"},
		{"zero fullmove", "rnbqkbnr/pppppppp/8/8/8/8/PPPPPPPP/RNBQKBNR w KQkq - 0 0"},
		{"side not to move in check", "4k3/8/8/8/8/8/8/4RK2 w - - 0 1"},
		{"en passant without pushed pawn", "4k3/8/8/3PP3/8/8/8/4K3 w - d6 0 1"},
		{"en passant target occupied", "4k3/8/3n4/3pP3/8/8/8/4K3 w - d6 0 1"},
		{"en passant origin occupied", "4k3/3n4/8/3pP3/8/8/8/4K3 w - d6 0 1"},
		{"pawn on last rank", "3Pk3/8/8/8/8/8/8/4K3 b - - 0 1"},
		{"pawn on first rank", "4k3/8/8/8/8/8/8/p3K3 w - - 0 1"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseFEN(tt.fen)
			if !errors.Is(err, ErrInvalidFEN) {
				t.Errorf("ParseFEN() error = %v, want ErrInvalidFEN", err)
			}
		})
	}
}

func TestApplyUndoRestoresPosition(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		move  string
		flags MoveFlag
		check func(*Board) bool
	}{
		{
			name: "quiet pawn double push sets en passant",
			fen:  StartingFEN,
			move: "e2e4",
			check: func(b *Board) bool {
				return b.Position().EnPassant.String() == "e3" && b.Turn() == core.ColorBlack
			},
		},
		{
			name:  "capture",
			fen:   "rnbqkbnr/ppp1pppp/8/3p4/4P3/8/PPPP1PPP/RNBQKBNR w KQkq d6 0 2",
			move:  "e4d5",
			flags: FlagCapture,
			check: func(b *Board) bool {
				return b.GetPieceAt("d5") == 'P' && b.Position().HalfMove == 0
			},
		},
		{
			name:  "white kingside castle",
			fen:   "r1bqkbnr/pppp1ppp/2n5/4p3/2B1P3/5N2/PPPP1PPP/RNBQK2R w KQkq - 4 4",
			move:  "e1g1",
			flags: FlagCastle,
			check: func(b *Board) bool {
				c := b.Position().Castling
				return b.GetPieceAt("g1") == 'K' && b.GetPieceAt("f1") == 'R' &&
					b.GetPieceAt("h1") == 0 && !c.WhiteKing && !c.WhiteQueen && c.BlackKing
			},
		},
		{
			name:  "black queenside castle",
			fen:   "r3kbnr/pppqpppp/2n5/3p1b2/3P1B2/2N5/PPPQPPPP/R3KBNR b KQkq - 6 5",
			move:  "e8c8",
			flags: FlagCastle,
			check: func(b *Board) bool {
				return b.GetPieceAt("c8") == 'k' && b.GetPieceAt("d8") == 'r' &&
					b.GetPieceAt("a8") == 0 && b.Position().FullMove == 6
			},
		},
		{
			name:  "en passant",
			fen:   "rnbqkbnr/ppp1p1pp/8/3pPp2/8/8/PPPP1PPP/RNBQKBNR w KQkq f6 0 3",
			move:  "e5f6",
			flags: FlagCapture | FlagEnPassant,
			check: func(b *Board) bool {
				return b.GetPieceAt("f6") == 'P' && b.GetPieceAt("f5") == 0 && b.GetPieceAt("e5") == 0
			},
		},
		{
			name:  "promotion with capture",
			fen:   "rnbqkbnr/pppp2Pp/8/8/8/8/PPPP1PPP/RNBQKBNR w KQkq - 0 5",
			move:  "g7h8n",
			flags: FlagCapture | FlagPromotion,
			check: func(b *Board) bool {
				return b.GetPieceAt("h8") == 'N' && !b.Position().Castling.BlackKing
			},
		},
		{
			name:  "underpromotion",
			fen:   "8/4P3/8/8/8/8/k7/4K3 w - - 0 1",
			move:  "e7e8r",
			flags: FlagPromotion,
			check: func(b *Board) bool {
				return b.GetPieceAt("e8") == 'R'
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustParse(t, tt.fen)
			before := b.Position()

			rec, err := b.Apply(mustMove(t, tt.move))
			if err != nil {
				t.Fatalf("Apply(%s): %v", tt.move, err)
			}
			if rec.Move.Flags != tt.flags {
				t.Errorf("flags = %b, want %b", rec.Move.Flags, tt.flags)
			}
			if !tt.check(b) {
				t.Errorf("position after %s not as expected: %s", tt.move, b.FEN())
			}

			if err := b.Undo(rec); err != nil {
				t.Fatalf("Undo: %v", err)
			}
			if diff := cmp.Diff(before, b.Position()); diff != "" {
				t.Errorf("undo mismatch (-want +got):\n%s", diff)
			}
			if b.FEN() != tt.fen {
				t.Errorf("FEN after undo = %q, want %q", b.FEN(), tt.fen)
			}
		})
	}
}

func TestApplyIllegalLeavesBoardUnchanged(t *testing.T) {
	b := New()
	before := b.Position()

	for _, s := range []string{"e2e5", "e1e2", "a7a6", "e7e8q", "g1g3"} {
		if b.IsLegal(mustMove(t, s)) {
			t.Errorf("IsLegal(%s) = true", s)
		}
		if _, err := b.Apply(mustMove(t, s)); !errors.Is(err, ErrIllegalMove) {
			t.Errorf("Apply(%s) error = %v, want ErrIllegalMove", s, err)
		}
	}
	if b.Position() != before {
		t.Error("illegal Apply mutated the board")
	}
}

func TestUndoRejectsMismatchedRecord(t *testing.T) {
	b := New()
	if err := b.Undo(MoveRecord{}); !errors.Is(err, ErrHistoryUnderflow) {
		t.Fatalf("Undo on fresh board error = %v, want ErrHistoryUnderflow", err)
	}

	first, err := b.Apply(mustMove(t, "e2e4"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := b.Apply(mustMove(t, "e7e5")); err != nil {
		t.Fatal(err)
	}
	before := b.Position()
	if err := b.Undo(first); !errors.Is(err, ErrHistoryUnderflow) {
		t.Errorf("Undo(out of order) error = %v, want ErrHistoryUnderflow", err)
	}
	if b.Position() != before {
		t.Error("rejected Undo mutated the board")
	}
}

func TestCastlingRestrictions(t *testing.T) {
	tests := []struct {
		name string
		fen  string
		move string
		want bool
	}{
		{"clear path", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1g1", true},
		{"queenside clear path", "r3k2r/8/8/8/8/8/8/R3K2R w KQkq - 0 1", "e1c1", true},
		{"out of check", "r3k2r/8/8/8/4r3/8/8/R3K2R w KQkq - 0 1", "e1g1", false},
		{"through attacked square", "r3k2r/8/8/8/5r2/8/8/R3K2R w KQkq - 0 1", "e1g1", false},
		{"into attacked square", "r3k2r/8/8/8/6r1/8/8/R3K2R w KQkq - 0 1", "e1g1", false},
		{"b-file attack does not block queenside", "r3k2r/8/8/8/1r6/8/8/R3K2R w KQkq - 0 1", "e1c1", true},
		{"blocked", "r3k2r/8/8/8/8/8/8/RN2K2R w KQkq - 0 1", "e1c1", false},
		{"no right", "r3k2r/8/8/8/8/8/8/R3K2R w Qkq - 0 1", "e1g1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustParse(t, tt.fen)
			if got := b.IsLegal(mustMove(t, tt.move)); got != tt.want {
				t.Errorf("IsLegal(%s) = %v, want %v", tt.move, got, tt.want)
			}
		})
	}
}

func TestEnPassantDiscoveredCheck(t *testing.T) {
	// Capturing en passant would expose the white king on the fifth rank
	b := mustParse(t, "8/8/8/K2pP2r/8/8/8/4k3 w - d6 0 1")
	if b.IsLegal(mustMove(t, "e5d6")) {
		t.Error("en passant exposing the king was accepted")
	}
}

func perft(b *Board, depth int) int {
	if depth == 0 {
		return 1
	}
	nodes := 0
	for _, m := range b.AllLegalMoves() {
		rec, err := b.Apply(m)
		if err != nil {
			panic(err)
		}
		nodes += perft(b, depth-1)
		if err := b.Undo(rec); err != nil {
			panic(err)
		}
	}
	return nodes
}

func TestPerft(t *testing.T) {
	tests := []struct {
		name  string
		fen   string
		depth int
		want  int
	}{
		{"initial depth 1", StartingFEN, 1, 20},
		{"initial depth 3", StartingFEN, 3, 8902},
		{"kiwipete depth 1", kiwipeteFEN, 1, 48},
		{"kiwipete depth 2", kiwipeteFEN, 2, 2039},
		{"endgame depth 3", endgameFEN, 3, 2812},
		{"mirror depth 2", mirrorFEN, 2, 264},
		{"talkchess depth 2", talkFEN, 2, 1486},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := mustParse(t, tt.fen)
			before := b.Position()
			if got := perft(b, tt.depth); got != tt.want {
				t.Errorf("perft(%d) = %d, want %d", tt.depth, got, tt.want)
			}
			if b.Position() != before {
				t.Error("perft did not restore the position")
			}
		})
	}
}

func oracleMoves(t *testing.T, g *chess.Game) []string {
	t.Helper()
	var out []string
	for _, m := range g.ValidMoves() {
		out = append(out, chess.UCINotation{}.Encode(g.Position(), m))
	}
	sort.Strings(out)
	return out
}

func newOracle(t *testing.T, fen string) *chess.Game {
	t.Helper()
	opt, err := chess.FEN(fen)
	if err != nil {
		t.Fatalf("oracle FEN(%q): %v", fen, err)
	}
	return chess.NewGame(opt)
}

func TestLegalMovesMatchOracle(t *testing.T) {
	for _, fen := range []string{StartingFEN, kiwipeteFEN, endgameFEN, mirrorFEN, talkFEN} {
		t.Run(fen, func(t *testing.T) {
			b := mustParse(t, fen)
			want := oracleMoves(t, newOracle(t, fen))
			if diff := cmp.Diff(want, uciList(b.AllLegalMoves())); diff != "" {
				t.Errorf("legal moves mismatch (-oracle +board):\n%s", diff)
			}
		})
	}
}

func TestRandomPlayoutsMatchOracle(t *testing.T) {
	for _, seed := range []int64{1, 7, 42} {
		rng := rand.New(rand.NewSource(seed))
		b := New()
		oracle := newOracle(t, StartingFEN)
		var records []MoveRecord

		for ply := 0; ply < 80; ply++ {
			moves := uciList(b.AllLegalMoves())
			if diff := cmp.Diff(oracleMoves(t, oracle), moves); diff != "" {
				t.Fatalf("seed %d ply %d: legal moves mismatch (-oracle +board):\n%s", seed, ply, diff)
			}
			if len(moves) == 0 {
				break
			}

			pick := moves[rng.Intn(len(moves))]
			rec, err := b.Apply(mustMove(t, pick))
			if err != nil {
				t.Fatalf("seed %d ply %d: Apply(%s): %v", seed, ply, pick, err)
			}
			records = append(records, rec)

			for _, om := range oracle.ValidMoves() {
				if (chess.UCINotation{}).Encode(oracle.Position(), om) == pick {
					if err := oracle.Move(om); err != nil {
						t.Fatalf("oracle move %s: %v", pick, err)
					}
					break
				}
			}

			got := strings.Fields(b.FEN())[:3]
			want := strings.Fields(oracle.Position().String())[:3]
			if diff := cmp.Diff(want, got); diff != "" {
				t.Fatalf("seed %d ply %d: FEN mismatch after %s (-oracle +board):\n%s", seed, ply, pick, diff)
			}
		}

		for i := len(records) - 1; i >= 0; i-- {
			if err := b.Undo(records[i]); err != nil {
				t.Fatalf("seed %d: undo %d: %v", seed, i, err)
			}
		}
		if b.FEN() != StartingFEN {
			t.Errorf("seed %d: unwinding did not restore the start: %s", seed, b.FEN())
		}
	}
}

func TestOutcome(t *testing.T) {
	tests := []struct {
		name   string
		fen    string
		want   core.GameOver
		isOver bool
	}{
		{"ongoing", StartingFEN, core.GameOver{}, false},
		{"fool's mate", "rnb1kbnr/pppp1ppp/8/4p3/6Pq/5P2/PPPPP2P/RNBQKBNR w KQkq - 1 3",
			core.GameOver{Reason: core.ReasonCheckmate, Winner: core.ColorBlack}, true},
		{"stalemate", "7k/5Q2/6K1/8/8/8/8/8 b - - 0 1", core.GameOver{Reason: core.ReasonStalemate}, true},
		{"fifty moves", "4k3/8/8/8/8/8/4P3/4K3 w - - 100 80", core.GameOver{Reason: core.ReasonFiftyMoves}, true},
		{"bare kings", "4k3/8/8/8/8/8/8/4K3 w - - 0 1", core.GameOver{Reason: core.ReasonInsufficientMaterial}, true},
		{"same colored bishops", "4kb2/8/8/8/8/8/8/2B1K3 w - - 0 1", core.GameOver{Reason: core.ReasonInsufficientMaterial}, true},
		{"opposite colored bishops", "4k1b1/8/8/8/8/8/8/2B1K3 w - - 0 1", core.GameOver{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, over := mustParse(t, tt.fen).Outcome()
			if over != tt.isOver || got != tt.want {
				t.Errorf("Outcome() = %v, %v; want %v, %v", got, over, tt.want, tt.isOver)
			}
		})
	}
}

func TestMaterialAndCaptured(t *testing.T) {
	b := New()
	if got := b.Material(core.ColorWhite); got != 39 {
		t.Errorf("starting material = %d, want 39", got)
	}
	if got := b.Captured(core.ColorBlack); len(got) != 0 {
		t.Errorf("starting captured = %v, want none", got)
	}

	b = mustParse(t, "rnb1kbnr/pppp1ppp/8/8/8/8/PPP2PPP/RNBQKBNR w KQkq - 0 4")
	if got := b.Material(core.ColorBlack); got != 29 {
		t.Errorf("black material = %d, want 29", got)
	}
	if diff := cmp.Diff([]PieceKind{Pawn, Queen}, b.Captured(core.ColorBlack)); diff != "" {
		t.Errorf("black captured mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]PieceKind{Pawn, Pawn}, b.Captured(core.ColorWhite)); diff != "" {
		t.Errorf("white captured mismatch (-want +got):\n%s", diff)
	}
}

func TestParseMove(t *testing.T) {
	tests := []struct {
		in      string
		want    Move
		wantErr bool
	}{
		{in: "e2e4", want: Move{From: NewSquare(4, 1), To: NewSquare(4, 3)}},
		{in: "e7e8q", want: Move{From: NewSquare(4, 6), To: NewSquare(4, 7), Promotion: Queen}},
		{in: "a7a8N", want: Move{From: NewSquare(0, 6), To: NewSquare(0, 7), Promotion: Knight}},
		{in: "z9z9", wantErr: true},
		{in: "e2e", wantErr: true},
		{in: "e7e8k", wantErr: true},
		{in: "e2e4e5", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseMove(tt.in)
			if tt.wantErr {
				if !errors.Is(err, ErrInvalidMove) {
					t.Errorf("ParseMove(%q) error = %v, want ErrInvalidMove", tt.in, err)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseMove(%q): %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseMove(%q) = %+v, want %+v", tt.in, got, tt.want)
			}
		})
	}
}

func TestToASCII(t *testing.T) {
	lines := strings.Split(New().ToASCII(), "\n")
	if len(lines) != 10 {
		t.Fatalf("ToASCII has %d lines, want 10", len(lines))
	}
	if lines[1] != "8 r n b q k b n r  8" {
		t.Errorf("rank 8 = %q", lines[1])
	}
	if lines[5] != "4 . . . . . . . .  4" {
		t.Errorf("rank 4 = %q", lines[5])
	}
}
