// Package display formats server responses for the terminal.
package display

import (
	"fmt"
	"io"
	"strings"
)

// ANSI foreground colors
const (
	Reset   = "\033[0m"
	Red     = "\033[31m"
	Green   = "\033[32m"
	Yellow  = "\033[33m"
	Blue    = "\033[34m"
	Magenta = "\033[35m"
	Cyan    = "\033[36m"
	White   = "\033[37m"
)

// Prompt returns a colored prompt string
func Prompt(text string) string {
	return Yellow + text + " > " + Reset
}

// ColorForTurn returns colored turn indicator
func ColorForTurn(turn string) string {
	if turn == "w" {
		return Blue + "White" + Reset
	}
	return Red + "Black" + Reset
}

// RenderBoard writes the server's ASCII board with white pieces blue,
// black pieces red and coordinates cyan.
func RenderBoard(w io.Writer, asciiBoard string) {
	lines := strings.Split(strings.TrimRight(asciiBoard, "\n"), "\n")

	for i, line := range lines {
		if strings.TrimSpace(line) == "" {
			continue
		}
		fileLine := i == 0 || i == len(lines)-1

		var sb strings.Builder
		for _, char := range line {
			switch {
			case fileLine && char >= 'a' && char <= 'h', char >= '1' && char <= '8':
				sb.WriteString(Cyan + string(char) + Reset)
			case char >= 'A' && char <= 'Z':
				sb.WriteString(Blue + string(char) + Reset)
			case char >= 'a' && char <= 'z':
				sb.WriteString(Red + string(char) + Reset)
			default:
				sb.WriteRune(char)
			}
		}
		fmt.Fprintln(w, sb.String())
	}
}

// Summary is the one-line status shown after each command
func Summary(turn, state string, moves int, inCheck bool) string {
	s := fmt.Sprintf("Turn: %s | State: %s | Moves: %d", ColorForTurn(turn), state, moves)
	if inCheck {
		s += " | " + Red + "check" + Reset
	}
	return s
}
