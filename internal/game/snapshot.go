package game

import (
	"time"

	"chesscore/internal/board"
	"chesscore/internal/core"
	"chesscore/internal/engine"
)

// Ack is the result of a state-changing call.
type Ack struct {
	// Move is the ply played, undone or redone
	Move     board.Move
	Snapshot Snapshot
	// Reply and EngineErr are set when AutoEngine answered a human move
	Reply     *Ack
	EngineErr error
}

// Snapshot is a consistent read of the whole game.
type Snapshot struct {
	FEN        string
	InitialFEN string
	Turn       core.Color
	State      core.State
	Over       core.GameOver
	InCheck    bool
	Players    core.Players

	Moves     []string
	RedoCount int
	LastMove  string

	White, Black ClockView
	Untimed      bool

	WhiteMaterial, BlackMaterial int
	// Pieces each side has lost
	WhiteCaptured, BlackCaptured []board.PieceKind

	Message    string
	Pending    bool
	LastResult *engine.SearchResult
}

type ClockView struct {
	Remaining time.Duration
	Display   string
}

func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

func (c *Controller) stateLocked() core.State {
	switch {
	case c.isOverLocked():
		return c.over.State()
	case c.pending:
		return core.StatePending
	case c.stuck:
		return core.StateStuck
	default:
		return core.StateOngoing
	}
}

func (c *Controller) snapshotLocked() Snapshot {
	moves := c.history.Moves()
	uci := make([]string, len(moves))
	for i, m := range moves {
		uci[i] = m.String()
	}
	var last string
	if len(uci) > 0 {
		last = uci[len(uci)-1]
	}

	s := Snapshot{
		FEN:        c.board.FEN(),
		InitialFEN: c.cfg.InitialFEN,
		Turn:       c.turnLocked(),
		State:      c.stateLocked(),
		Over:       c.over,
		InCheck:    c.board.InCheck(),
		Players:    c.cfg.Players,
		Moves:      uci,
		RedoCount:  c.history.RedoLen(),
		LastMove:   last,
		White: ClockView{
			Remaining: c.clock.Remaining(core.ColorWhite),
			Display:   c.clock.Display(core.ColorWhite),
		},
		Black: ClockView{
			Remaining: c.clock.Remaining(core.ColorBlack),
			Display:   c.clock.Display(core.ColorBlack),
		},
		Untimed:       c.clock.Untimed(),
		WhiteMaterial: c.board.Material(core.ColorWhite),
		BlackMaterial: c.board.Material(core.ColorBlack),
		WhiteCaptured: c.board.Captured(core.ColorWhite),
		BlackCaptured: c.board.Captured(core.ColorBlack),
		Message:       c.messageLocked(),
		Pending:       c.pending,
	}
	if c.lastResult != nil {
		r := *c.lastResult
		s.LastResult = &r
	}
	return s
}
