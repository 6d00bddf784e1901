package game

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chesscore/internal/board"
	"chesscore/internal/clock"
	"chesscore/internal/core"
	"chesscore/internal/engine"
	"chesscore/internal/history"

	"go.uber.org/zap"
)

// Mover produces engine moves. *engine.Adapter implements it.
type Mover interface {
	RequestMove(ctx context.Context, req engine.Request) (engine.SearchResult, error)
}

// Controller owns one game: board, history and clock change only through
// it, under its lock. Engine searches run outside the lock while the
// pending flag keeps other mutations out.
type Controller struct {
	mu sync.Mutex

	cfg         Config
	board       *board.Board
	history     *history.History
	clock       *clock.Clock
	engine      Mover
	logger      *zap.Logger
	initialTurn core.Color

	over       core.GameOver
	pending    bool
	stuck      bool
	lastResult *engine.SearchResult

	message   string
	messageAt time.Time
}

// New starts a game. eng may be nil when neither side is a computer.
func New(cfg Config, eng Mover, logger *zap.Logger) (*Controller, error) {
	cfg = cfg.withDefaults()
	if logger == nil {
		logger = zap.NewNop()
	}

	b, err := board.ParseFEN(cfg.InitialFEN)
	if err != nil {
		return nil, err
	}

	c := &Controller{
		cfg:         cfg,
		board:       b,
		history:     history.New(),
		clock:       clock.New(cfg.TimeControl, cfg.Increment, cfg.Now),
		engine:      eng,
		logger:      logger,
		initialTurn: b.Turn(),
	}
	if over, ok := b.Outcome(); ok {
		c.over = over
	}
	return c, nil
}

func (c *Controller) Config() Config {
	return c.cfg
}

func (c *Controller) turnLocked() core.Color {
	return c.history.Turn(c.initialTurn)
}

func (c *Controller) isOverLocked() bool {
	return c.over.Reason != core.ReasonNone
}

func (c *Controller) setMessageLocked(msg string) {
	c.message = msg
	c.messageAt = c.cfg.Now()
}

// checkClockLocked charges the side to move and turns expiry into a
// forfeit. Reports whether the game is over.
func (c *Controller) checkClockLocked() bool {
	if c.isOverLocked() {
		return true
	}
	if !c.clock.Advance(c.turnLocked()) {
		return false
	}
	loser, _ := c.clock.Expired()
	c.over = core.GameOver{Reason: core.ReasonTimeForfeit, Winner: core.OppositeColor(loser)}
	c.logger.Info("game over", zap.String("result", c.over.String()))
	return true
}

// commitLocked records an applied move and settles clock and outcome.
func (c *Controller) commitLocked(rec board.MoveRecord, mover core.Color) {
	c.history.Commit(rec)
	c.clock.AddIncrement(mover)
	c.stuck = false
	c.message = ""

	if over, ok := c.board.Outcome(); ok {
		c.over = over
		c.logger.Info("game over", zap.String("result", over.String()))
	}
	c.logger.Debug("move committed",
		zap.String("side", mover.Name()),
		zap.String("move", rec.Move.String()),
		zap.String("fen", c.board.FEN()))
}

// SubmitMove plays a human move. A pawn reaching the last rank without a
// promotion piece becomes a queen.
func (c *Controller) SubmitMove(ctx context.Context, from, to board.Square, promo board.PieceKind) (Ack, error) {
	c.mu.Lock()

	if c.pending {
		c.mu.Unlock()
		return Ack{}, ErrEnginePending
	}
	if c.checkClockLocked() {
		c.mu.Unlock()
		return Ack{}, ErrGameOver
	}
	turn := c.turnLocked()
	if c.cfg.Players.For(turn) != core.PlayerHuman {
		c.mu.Unlock()
		return Ack{}, ErrNotHumanTurn
	}

	m := board.Move{From: from, To: to, Promotion: promo}
	piece := c.board.PieceAt(from)
	switch {
	case piece.IsEmpty():
		return Ack{}, c.rejectLocked(m, msgNoPiece)
	case piece.Color != turn:
		return Ack{}, c.rejectLocked(m, msgOpponentPiece)
	}
	if promo == board.NoKind && piece.Kind == board.Pawn && to.Valid() && (to.Rank() == 0 || to.Rank() == 7) {
		m.Promotion = board.Queen
	}

	rec, err := c.board.Apply(m)
	if err != nil {
		return Ack{}, c.rejectLocked(m, msgIllegalMove)
	}
	c.commitLocked(rec, turn)

	ack := Ack{Move: rec.Move, Snapshot: c.snapshotLocked()}
	auto := c.cfg.AutoEngine && c.engine != nil && !c.isOverLocked() &&
		c.cfg.Players.For(c.turnLocked()) == core.PlayerComputer
	c.mu.Unlock()

	if auto {
		reply, err := c.PlayEngineTurn(ctx)
		if err != nil {
			ack.EngineErr = err
		} else {
			ack.Reply = &reply
		}
	}
	return ack, nil
}

// SubmitUCI parses a UCI token and submits it.
func (c *Controller) SubmitUCI(ctx context.Context, uci string) (Ack, error) {
	m, err := board.ParseMove(uci)
	if err != nil {
		return Ack{}, err
	}
	return c.SubmitMove(ctx, m.From, m.To, m.Promotion)
}

// rejectLocked releases the lock.
func (c *Controller) rejectLocked(m board.Move, msg string) error {
	c.setMessageLocked(msg)
	c.mu.Unlock()
	return &IllegalMoveError{Move: m, Message: msg}
}

// PlayEngineTurn asks the engine for the side to move and commits its
// answer. Engine timeouts and failures are handled by the failure policy
// and returned.
func (c *Controller) PlayEngineTurn(ctx context.Context) (Ack, error) {
	c.mu.Lock()
	if c.engine == nil {
		c.mu.Unlock()
		return Ack{}, ErrNoEngine
	}
	if c.pending {
		c.mu.Unlock()
		return Ack{}, ErrEnginePending
	}
	if c.checkClockLocked() {
		c.mu.Unlock()
		return Ack{}, ErrGameOver
	}
	turn := c.turnLocked()
	if c.cfg.Players.For(turn) != core.PlayerComputer {
		c.mu.Unlock()
		return Ack{}, ErrNotEngineTurn
	}

	c.pending = true
	req := engine.Request{Position: c.board.Position(), Budget: c.cfg.SearchTime}
	c.mu.Unlock()

	res, err := c.engine.RequestMove(ctx, req)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.pending = false

	// Thinking time belongs to the engine side
	if c.checkClockLocked() {
		return Ack{Snapshot: c.snapshotLocked()}, ErrGameOver
	}

	if err == nil {
		rec, applyErr := c.board.Apply(res.BestMove)
		if applyErr == nil {
			c.commitLocked(rec, turn)
			c.lastResult = &res
			return Ack{Move: rec.Move, Snapshot: c.snapshotLocked()}, nil
		}
		err = &engine.Failure{Reason: engine.ReasonIllegalMove, Err: applyErr}
	}

	c.handleEngineFailureLocked(turn, err)
	return Ack{Snapshot: c.snapshotLocked()}, err
}

func (c *Controller) handleEngineFailureLocked(side core.Color, err error) {
	if errors.Is(err, engine.ErrBusy) || errors.Is(err, context.Canceled) {
		c.setMessageLocked("Engine request interrupted")
		return
	}
	switch c.cfg.FailurePolicy {
	case PolicyForfeit:
		c.over = core.GameOver{Reason: core.ReasonEngineForfeit, Winner: core.OppositeColor(side)}
		c.setMessageLocked(fmt.Sprintf("Engine failed, %s forfeits", side.Name()))
		c.logger.Info("game over", zap.String("result", c.over.String()), zap.Error(err))
	default:
		c.stuck = true
		c.setMessageLocked("Engine failed, try again")
		c.logger.Warn("engine turn failed", zap.Error(err))
	}
}

// Undo takes back the last ply. The clock is not refunded.
func (c *Controller) Undo() (Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		return Ack{}, ErrEnginePending
	}
	rec, ok := c.history.Peek()
	if !ok {
		return Ack{}, ErrHistoryEmpty
	}
	if err := c.board.Undo(rec); err != nil {
		return Ack{}, fmt.Errorf("undo %s: %w", rec.Move, err)
	}
	c.history.Undo()
	c.clock.Rebase()

	if !c.over.Reason.Sticky() {
		c.over = core.GameOver{}
	}
	c.stuck = false
	c.lastResult = nil
	c.message = ""
	return Ack{Move: rec.Move, Snapshot: c.snapshotLocked()}, nil
}

// Redo replays the most recently undone ply.
func (c *Controller) Redo() (Ack, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.pending {
		return Ack{}, ErrEnginePending
	}
	rec, ok := c.history.PeekRedo()
	if !ok {
		return Ack{}, ErrRedoEmpty
	}
	if _, err := c.board.Apply(rec.Move); err != nil {
		return Ack{}, fmt.Errorf("redo %s: %w", rec.Move, err)
	}
	c.history.Redo()
	c.clock.Rebase()

	if !c.isOverLocked() {
		if over, ok := c.board.Outcome(); ok {
			c.over = over
		}
	}
	c.stuck = false
	c.message = ""
	return Ack{Move: rec.Move, Snapshot: c.snapshotLocked()}, nil
}

// Tick advances the clock of the side to move. It reports whether this
// call ended the game on time.
func (c *Controller) Tick() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.isOverLocked() {
		return false
	}
	return c.checkClockLocked()
}

func (c *Controller) SuspendClock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock.Advance(c.turnLocked())
	c.clock.Suspend()
}

func (c *Controller) ResumeClock() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.clock.Resume()
}

// RemainingTime is in seconds, never negative.
func (c *Controller) RemainingTime(side core.Color) float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clock.Seconds(side)
}

// CurrentTurn is derived from the number of committed plies only.
func (c *Controller) CurrentTurn() core.Color {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.turnLocked()
}

func (c *Controller) IsGameOver() (core.GameOver, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.over, c.isOverLocked()
}

// Message returns the last rejection text while it is fresh.
func (c *Controller) Message() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.messageLocked()
}

func (c *Controller) messageLocked() string {
	if c.message == "" || c.cfg.Now().Sub(c.messageAt) >= c.cfg.MessageDuration {
		return ""
	}
	return c.message
}

func (c *Controller) MoveCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.history.Len()
}

// NeedsEngine reports whether the engine should be asked to move now.
func (c *Controller) NeedsEngine() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.engine != nil && !c.pending && !c.isOverLocked() &&
		c.cfg.Players.For(c.turnLocked()) == core.PlayerComputer
}

// LegalMoves lists the legal moves from a square for the side to move.
func (c *Controller) LegalMoves(from board.Square) []board.Move {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.LegalMoves(from)
}

func (c *Controller) Board() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.board.ToASCII()
}
