package display

import (
	"bytes"
	"strings"
	"testing"

	"chesscore/internal/board"
)

func TestRenderBoard(t *testing.T) {
	var out bytes.Buffer
	RenderBoard(&out, board.New().ToASCII())

	lines := strings.Split(strings.TrimRight(out.String(), "\n"), "\n")
	if len(lines) != 10 {
		t.Fatalf("got %d lines:\n%s", len(lines), out.String())
	}
	if !strings.Contains(lines[0], Cyan+"a"+Reset) {
		t.Errorf("file letters not colored: %q", lines[0])
	}
	if !strings.Contains(lines[1], Red+"r"+Reset) {
		t.Errorf("black rook not red: %q", lines[1])
	}
	if !strings.Contains(lines[8], Blue+"K"+Reset) {
		t.Errorf("white king not blue: %q", lines[8])
	}
}

func TestSummary(t *testing.T) {
	got := Summary("b", "ongoing", 3, true)
	for _, want := range []string{"Black", "ongoing", "Moves: 3", "check"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary %q missing %q", got, want)
		}
	}
}
