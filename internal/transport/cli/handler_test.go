package cli

import (
	"bytes"
	"context"
	"io"
	"strings"
	"testing"

	"chesscore/internal/board"
	"chesscore/internal/cli"
	"chesscore/internal/engine"
	"chesscore/internal/game"
)

// scriptReader feeds fixed lines, then EOF.
type scriptReader struct {
	lines   []string
	prompts []string
}

func (r *scriptReader) Readline() (string, error) {
	if len(r.lines) == 0 {
		return "", io.EOF
	}
	line := r.lines[0]
	r.lines = r.lines[1:]
	return line, nil
}

func (r *scriptReader) SetPrompt(prompt string) {
	r.prompts = append(r.prompts, prompt)
}

type firstLegal struct{}

func (firstLegal) RequestMove(ctx context.Context, req engine.Request) (engine.SearchResult, error) {
	moves := board.FromPosition(req.Position).AllLegalMoves()
	if len(moves) == 0 {
		return engine.SearchResult{}, &engine.Failure{Reason: engine.ReasonNoMove}
	}
	return engine.SearchResult{BestMove: moves[0]}, nil
}

func run(t *testing.T, lines ...string) (*CLIHandler, string) {
	t.Helper()
	var out bytes.Buffer
	view := cli.New(&scriptReader{lines: lines}, &out)
	h := New(view, Options{
		NewEngine: func() game.Mover { return firstLegal{} },
	})
	h.Run(context.Background())
	return h, out.String()
}

func TestHumanGameUndoRedo(t *testing.T) {
	h, out := run(t, "new", "h", "h", "e2e4", "e7e5", "undo 2", "redo", "history", "quit")

	g := h.Game()
	if g == nil {
		t.Fatal("no game started")
	}
	snap := g.Snapshot()
	if len(snap.Moves) != 1 || snap.RedoCount != 1 {
		t.Fatalf("moves %v redo %d", snap.Moves, snap.RedoCount)
	}
	for _, want := range []string{"Game started.", "2 moves undone", "Move redone: e2e4", "1. e2e4 | ..."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestRejectedInput(t *testing.T) {
	_, out := run(t, "e2e4", "new", "h", "h", "e2e5", "e7e5", "undo", "undo x", "go")

	for _, want := range []string{
		"No active game.",
		"Illegal move!",
		"Cannot move opponent's piece!",
		"Error: no move to undo",
		"Invalid undo count.",
		"It's not the computer's turn.",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestEngineRepliesAutomatically(t *testing.T) {
	h, out := run(t, "new", "h", "c", "g1f3", "quit")

	if n := h.Game().MoveCount(); n != 2 {
		t.Fatalf("move count = %d, want 2", n)
	}
	if !strings.Contains(out, "Computer (b): ") {
		t.Errorf("engine reply not shown:\n%s", out)
	}
}

func TestEnterPlaysEngineFirst(t *testing.T) {
	h, out := run(t, "new", "c", "h", "", "quit")

	if n := h.Game().MoveCount(); n != 1 {
		t.Fatalf("move count = %d, want 1", n)
	}
	if !strings.Contains(out, "Computer (w): ") {
		t.Errorf("engine move not shown:\n%s", out)
	}
}

func TestCheckmateEndsGame(t *testing.T) {
	fen := "rnbqkbnr/pppp1ppp/8/4p3/6P1/5P2/PPPPP2P/RNBQKBNR b KQkq - 0 2"
	h, out := run(t, "resume "+fen, "h", "h", "d8h4", "a2a3", "quit")

	if _, over := h.Game().IsGameOver(); !over {
		t.Fatal("game not over after mate")
	}
	if strings.Count(out, "Game Over:") != 1 {
		t.Errorf("game over shown %d times:\n%s", strings.Count(out, "Game Over:"), out)
	}
	if !strings.Contains(out, "checkmate") {
		t.Errorf("reason missing:\n%s", out)
	}
}
