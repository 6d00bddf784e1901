package cli

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"chesscore/internal/cli"
	"chesscore/internal/core"
	"chesscore/internal/game"

	"go.uber.org/zap"
)

// EngineFactory builds the move source for a new game
type EngineFactory func() game.Mover

type Options struct {
	// Defaults seed every new game; players and FEN come from the user
	Defaults  game.Config
	NewEngine EngineFactory
	Logger    *zap.Logger
}

type CLIHandler struct {
	view   *cli.CLI
	opts   Options
	logger *zap.Logger
	ctrl   *game.Controller
	// overShown stops the result from printing on every prompt
	overShown bool
}

func New(view *cli.CLI, opts Options) *CLIHandler {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CLIHandler{
		view:   view,
		opts:   opts,
		logger: logger,
	}
}

// Run is the main loop; it returns on quit, EOF or ctx cancellation.
func (h *CLIHandler) Run(ctx context.Context) {
	for ctx.Err() == nil {
		h.checkClock()

		cmd, err := h.view.GetCommand(h.getPrompt())
		if err != nil {
			h.logger.Debug("read failed", zap.Error(err))
			break
		}

		// Process command - returns false to exit
		if !h.ProcessCommand(ctx, cmd) {
			break
		}
	}
}

// Game is the active controller, nil before the first new or resume.
func (h *CLIHandler) Game() *game.Controller {
	return h.ctrl
}

func (h *CLIHandler) getPrompt() string {
	prompt := "> "
	if h.ctrl == nil {
		return prompt
	}
	if _, over := h.ctrl.IsGameOver(); over {
		return prompt
	}
	turn := h.ctrl.CurrentTurn()
	prompt = fmt.Sprintf("[%s]> ", turn)
	if h.ctrl.NeedsEngine() {
		prompt = "ENTER to execute computer move\n" + prompt
	}
	return prompt
}

// checkClock charges the side to move and reports a time forfeit once
func (h *CLIHandler) checkClock() {
	if h.ctrl == nil {
		return
	}
	h.ctrl.Tick()
	h.reportGameOver()
}

func (h *CLIHandler) reportGameOver() {
	over, ok := h.ctrl.IsGameOver()
	if !ok {
		h.overShown = false
		return
	}
	if !h.overShown {
		h.view.ShowGameOver(over)
		h.overShown = true
	}
}

// ProcessCommand handles one command and returns false to exit.
func (h *CLIHandler) ProcessCommand(ctx context.Context, cmd *cli.Command) bool {
	switch cmd.Type {
	case cli.CmdQuit:
		return false

	case cli.CmdNone:
		// Empty command triggers computer move if it's computer's turn
		if h.ctrl != nil && h.ctrl.NeedsEngine() {
			h.executeComputerMove(ctx)
		}

	case cli.CmdGo:
		if !h.requireGame() {
			return true
		}
		h.executeComputerMove(ctx)

	case cli.CmdNew:
		h.handleNewGame("")

	case cli.CmdResume:
		if len(cmd.Args) < 1 {
			h.view.ShowMessage("Usage: resume <FEN string>")
			return true
		}
		h.handleNewGame(strings.Join(cmd.Args, " "))

	case cli.CmdMove:
		if !h.requireGame() {
			return true
		}
		h.handleMove(ctx, cmd.Args[0])

	case cli.CmdUndo, cli.CmdRedo:
		if !h.requireGame() {
			return true
		}
		h.handleStep(cmd)

	case cli.CmdClock:
		if !h.requireGame() {
			return true
		}
		h.view.ShowClock(h.ctrl.Snapshot())

	case cli.CmdColor:
		if len(cmd.Args) < 1 {
			h.view.ShowMessage("Usage: color <off|brown|green|gray>")
			return true
		}
		theme := cli.ColorTheme(cmd.Args[0])
		if err := h.view.SetTheme(theme); err != nil {
			h.view.ShowError(err)
			return true
		}
		h.view.ShowMessage(fmt.Sprintf("Color theme set to: %s", theme))
		if h.ctrl != nil {
			h.view.DisplayBoard(h.ctrl.Snapshot())
		}

	case cli.CmdVerbose:
		verbose := h.view.ToggleVerbose()
		h.view.ShowMessage(fmt.Sprintf("Verbose mode: %t", verbose))

	case cli.CmdHistory:
		if !h.requireGame() {
			return true
		}
		h.view.ShowGameHistory(h.ctrl.Snapshot())

	case cli.CmdHelp:
		h.view.ShowHelp()
	}

	return true
}

func (h *CLIHandler) requireGame() bool {
	if h.ctrl == nil {
		h.view.ShowMessage("No active game. Use 'new' or 'resume <FEN>'.")
		return false
	}
	return true
}

func (h *CLIHandler) handleMove(ctx context.Context, uci string) {
	ack, err := h.ctrl.SubmitUCI(ctx, uci)
	if err != nil {
		var illegal *game.IllegalMoveError
		switch {
		case errors.As(err, &illegal):
			h.view.ShowMessage(illegal.Message)
		case errors.Is(err, game.ErrNotHumanTurn):
			h.view.ShowMessage("It's not a human player's turn. Press ENTER to execute computer move.")
		case errors.Is(err, game.ErrGameOver):
			h.reportGameOver()
		default:
			h.view.ShowError(fmt.Errorf("invalid move: %w", err))
		}
		return
	}

	h.view.ShowHumanMove(ack.Move)
	h.view.DisplayBoard(ack.Snapshot)

	switch {
	case ack.Reply != nil:
		h.view.ShowComputerMove(*ack.Reply)
		h.view.DisplayBoard(ack.Reply.Snapshot)
	case ack.EngineErr != nil:
		h.showEngineError(ack.EngineErr)
	}
	h.reportGameOver()
}

func (h *CLIHandler) handleStep(cmd *cli.Command) {
	name, past, step := "undo", "undone", h.ctrl.Undo
	if cmd.Type == cli.CmdRedo {
		name, past, step = "redo", "redone", h.ctrl.Redo
	}

	count := 1
	if len(cmd.Args) > 0 {
		n, err := strconv.Atoi(cmd.Args[0])
		if err != nil || n < 1 {
			h.view.ShowMessage(fmt.Sprintf("Invalid %s count. Usage: %s [count]", name, name))
			return
		}
		count = n
	}

	done := 0
	var ack game.Ack
	for ; done < count; done++ {
		a, err := step()
		if err != nil {
			if done == 0 {
				h.view.ShowError(err)
				return
			}
			break
		}
		ack = a
	}

	if done == 1 {
		h.view.ShowMessage(fmt.Sprintf("Move %s: %s", past, ack.Move))
	} else {
		h.view.ShowMessage(fmt.Sprintf("%d moves %s", done, past))
	}
	h.view.DisplayBoard(ack.Snapshot)
	h.reportGameOver()
}

func (h *CLIHandler) executeComputerMove(ctx context.Context) {
	ack, err := h.ctrl.PlayEngineTurn(ctx)
	if err != nil {
		h.showEngineError(err)
		h.reportGameOver()
		return
	}

	h.view.ShowComputerMove(ack)
	h.view.DisplayBoard(ack.Snapshot)
	h.reportGameOver()
}

func (h *CLIHandler) showEngineError(err error) {
	switch {
	case errors.Is(err, game.ErrNoEngine), errors.Is(err, game.ErrNotEngineTurn):
		h.view.ShowMessage("It's not the computer's turn.")
	case errors.Is(err, game.ErrGameOver):
	default:
		h.view.ShowError(fmt.Errorf("engine error: %w", err))
	}
}

// readPlayer asks for one side; anything but c/computer is a human
func (h *CLIHandler) readPlayer(side string) core.PlayerType {
	answer := h.view.ReadLine(fmt.Sprintf("Select %s player (h/c): ", side))
	if p, err := core.ParsePlayerType(strings.ToLower(answer)); err == nil {
		return p
	}
	return core.PlayerHuman
}

// handleNewGame starts a game from fen, or the default start when empty
func (h *CLIHandler) handleNewGame(fen string) {
	cfg := h.opts.Defaults
	cfg.Players = core.Players{
		White: h.readPlayer("White"),
		Black: h.readPlayer("Black"),
	}
	if fen != "" {
		cfg.InitialFEN = fen
	}
	cfg.AutoEngine = true

	var eng game.Mover
	if cfg.Players.White == core.PlayerComputer || cfg.Players.Black == core.PlayerComputer {
		if h.opts.NewEngine == nil {
			h.view.ShowError(fmt.Errorf("could not start the game: %w", game.ErrNoEngine))
			return
		}
		eng = h.opts.NewEngine()
	}

	ctrl, err := game.New(cfg, eng, h.logger)
	if err != nil {
		h.view.ShowError(fmt.Errorf("could not start the game: %w", err))
		return
	}

	h.ctrl = ctrl
	h.overShown = false
	h.logger.Debug("game started",
		zap.Stringer("white", cfg.Players.White),
		zap.Stringer("black", cfg.Players.Black),
		zap.String("fen", ctrl.Snapshot().FEN))

	h.view.ShowMessage("Game started.")
	h.view.DisplayBoard(ctrl.Snapshot())
	h.reportGameOver()
}
