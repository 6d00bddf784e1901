package core

import "fmt"

// Color identifies a side. The zero value is not a valid side.
type Color byte

const (
	ColorWhite Color = 'w'
	ColorBlack Color = 'b'
)

func (c Color) String() string {
	switch c {
	case ColorWhite, ColorBlack:
		return string(c)
	default:
		return "-"
	}
}

// Name returns the long form used in messages
func (c Color) Name() string {
	switch c {
	case ColorWhite:
		return "White"
	case ColorBlack:
		return "Black"
	default:
		return "None"
	}
}

// Index maps a side to 0 (white) or 1 (black) for array-backed per-side state.
func (c Color) Index() int {
	if c == ColorBlack {
		return 1
	}
	return 0
}

func (c Color) Valid() bool {
	return c == ColorWhite || c == ColorBlack
}

func OppositeColor(c Color) Color {
	if c == ColorWhite {
		return ColorBlack
	}
	return ColorWhite
}

// ParseColor accepts "w", "b", "white" and "black".
func ParseColor(s string) (Color, error) {
	switch s {
	case "w", "white":
		return ColorWhite, nil
	case "b", "black":
		return ColorBlack, nil
	}
	return 0, fmt.Errorf("invalid color %q", s)
}

type State int

const (
	StateOngoing State = iota
	StatePending       // Engine is calculating a move
	StateStuck         // Last engine request failed, turn stays with engine
	StateWhiteWins
	StateBlackWins
	StateDraw
	StateStalemate
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateStuck:
		return "stuck"
	case StateWhiteWins:
		return "white wins"
	case StateBlackWins:
		return "black wins"
	case StateDraw:
		return "draw"
	case StateStalemate:
		return "stalemate"
	case StateOngoing:
		return "ongoing"
	default:
		return "unknown"
	}
}

// IsOver reports whether the state is terminal
func (s State) IsOver() bool {
	switch s {
	case StateWhiteWins, StateBlackWins, StateDraw, StateStalemate:
		return true
	}
	return false
}

// Reason explains why a game ended.
type Reason int

const (
	ReasonNone Reason = iota
	ReasonCheckmate
	ReasonStalemate
	ReasonFiftyMoves
	ReasonInsufficientMaterial
	ReasonTimeForfeit
	ReasonEngineForfeit
)

func (r Reason) String() string {
	switch r {
	case ReasonCheckmate:
		return "checkmate"
	case ReasonStalemate:
		return "stalemate"
	case ReasonFiftyMoves:
		return "fifty-move rule"
	case ReasonInsufficientMaterial:
		return "insufficient material"
	case ReasonTimeForfeit:
		return "time forfeit"
	case ReasonEngineForfeit:
		return "engine forfeit"
	default:
		return "none"
	}
}

// Sticky reasons survive undo, they are not derived from the position.
func (r Reason) Sticky() bool {
	return r == ReasonTimeForfeit || r == ReasonEngineForfeit
}

// GameOver describes a finished game. Winner is zero for draws.
type GameOver struct {
	Reason Reason
	Winner Color
}

func (g GameOver) State() State {
	switch {
	case g.Reason == ReasonNone:
		return StateOngoing
	case g.Reason == ReasonStalemate:
		return StateStalemate
	case g.Winner == ColorWhite:
		return StateWhiteWins
	case g.Winner == ColorBlack:
		return StateBlackWins
	default:
		return StateDraw
	}
}

func (g GameOver) String() string {
	if g.Winner.Valid() {
		return fmt.Sprintf("%s wins by %s", g.Winner.Name(), g.Reason)
	}
	return fmt.Sprintf("draw by %s", g.Reason)
}
