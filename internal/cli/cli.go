package cli

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"chesscore/internal/board"
	"chesscore/internal/core"
	"chesscore/internal/game"

	"github.com/chzyer/readline"
)

type CommandType int

const (
	CmdNone CommandType = iota
	CmdNew
	CmdResume
	CmdMove
	CmdUndo
	CmdRedo
	CmdGo
	CmdClock
	CmdColor
	CmdVerbose
	CmdHistory
	CmdHelp
	CmdQuit
)

type Command struct {
	Type CommandType
	Args []string
	Raw  string
}

type ColorTheme string

const (
	ThemeOff   ColorTheme = "off"
	ThemeBrown ColorTheme = "brown"
	ThemeGreen ColorTheme = "green"
	ThemeGray  ColorTheme = "gray"
)

type themeColors struct {
	lightBg string
	darkBg  string
	white   string
	black   string
	reset   string
}

var themes = map[ColorTheme]themeColors{
	ThemeOff: {},
	ThemeBrown: {
		lightBg: "\033[48;5;230m", // Beige
		darkBg:  "\033[48;5;94m",  // Brown
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
	ThemeGreen: {
		lightBg: "\033[48;5;157m",
		darkBg:  "\033[48;5;22m",
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
	ThemeGray: {
		lightBg: "\033[48;5;251m",
		darkBg:  "\033[48;5;240m",
		white:   "\033[97m",
		black:   "\033[30m",
		reset:   "\033[0m",
	},
}

// LineReader is the input side of the terminal. *readline.Instance
// satisfies it.
type LineReader interface {
	Readline() (string, error)
	SetPrompt(prompt string)
}

type CLI struct {
	input   LineReader
	output  io.Writer
	theme   ColorTheme
	verbose bool
}

func New(input LineReader, output io.Writer) *CLI {
	return &CLI{
		input:  input,
		output: output,
		theme:  ThemeOff,
	}
}

// GetCommand prompts and reads one command. EOF reads as quit and ^C as an
// empty line.
func (c *CLI) GetCommand(prompt string) (*Command, error) {
	line, err := c.readLine(prompt)
	switch {
	case errors.Is(err, io.EOF):
		return &Command{Type: CmdQuit}, nil
	case errors.Is(err, readline.ErrInterrupt):
		return &Command{Type: CmdNone}, nil
	case err != nil:
		return nil, err
	}
	return ParseCommand(line), nil
}

// ReadLine prompts for a free-form answer; read errors give ""
func (c *CLI) ReadLine(prompt string) string {
	line, err := c.readLine(prompt)
	if err != nil {
		return ""
	}
	return line
}

func (c *CLI) readLine(prompt string) (string, error) {
	c.input.SetPrompt(prompt)
	line, err := c.input.Readline()
	return strings.TrimSpace(line), err
}

func ParseCommand(input string) *Command {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return &Command{Type: CmdNone}
	}

	cmd := strings.ToLower(parts[0])
	args := parts[1:]

	switch cmd {
	case "new":
		return &Command{Type: CmdNew, Args: args}
	case "resume":
		return &Command{Type: CmdResume, Args: args, Raw: input}
	case "undo":
		return &Command{Type: CmdUndo, Args: args}
	case "redo":
		return &Command{Type: CmdRedo, Args: args}
	case "go":
		return &Command{Type: CmdGo}
	case "clock":
		return &Command{Type: CmdClock}
	case "color":
		return &Command{Type: CmdColor, Args: args}
	case "verbose":
		return &Command{Type: CmdVerbose}
	case "history":
		return &Command{Type: CmdHistory}
	case "help", "?":
		return &Command{Type: CmdHelp}
	case "quit", "exit":
		return &Command{Type: CmdQuit}
	default:
		// Assume it's a move
		return &Command{Type: CmdMove, Args: []string{parts[0]}}
	}
}

func (c *CLI) SetTheme(theme ColorTheme) error {
	if _, ok := themes[theme]; !ok {
		return fmt.Errorf("invalid theme: %s (use: off, brown, green, gray)", theme)
	}
	c.theme = theme
	return nil
}

func (c *CLI) Theme() ColorTheme {
	return c.theme
}

func (c *CLI) ToggleVerbose() bool {
	c.verbose = !c.verbose
	return c.verbose
}

func (c *CLI) IsVerbose() bool {
	return c.verbose
}

func (c *CLI) ShowMessage(msg string) {
	fmt.Fprintln(c.output, msg)
}

func (c *CLI) ShowError(err error) {
	c.ShowMessage(fmt.Sprintf("Error: %v", err))
}

// DisplayBoard draws the position of snap, then clocks and material
func (c *CLI) DisplayBoard(snap game.Snapshot) {
	pos, err := board.ParsePosition(snap.FEN)
	if err != nil {
		c.ShowError(err)
		return
	}
	var sb strings.Builder

	sb.WriteString("\n  a b c d e f g h\n")
	for rank := 7; rank >= 0; rank-- {
		fmt.Fprintf(&sb, "%d ", rank+1)
		for file := 0; file < 8; file++ {
			sb.WriteString(c.cell(pos.At(board.NewSquare(file, rank)), (file+rank)%2 == 1))
		}
		fmt.Fprintf(&sb, " %d\n", rank+1)
	}
	sb.WriteString("  a b c d e f g h\n")

	if !snap.Untimed {
		fmt.Fprintf(&sb, "\nWhite %s | Black %s\n", snap.White.Display, snap.Black.Display)
	}
	if c.verbose {
		fmt.Fprintf(&sb, "Material: white %d, black %d\n", snap.WhiteMaterial, snap.BlackMaterial)
	}
	if snap.InCheck && !snap.State.IsOver() {
		fmt.Fprintf(&sb, "%s is in check\n", snap.Turn.Name())
	}
	if snap.Message != "" {
		sb.WriteString(snap.Message + "\n")
	}

	c.ShowMessage(sb.String())
}

// cell renders one square two columns wide
func (c *CLI) cell(p board.Piece, light bool) string {
	glyph := byte('.')
	if !p.IsEmpty() {
		glyph = p.Char()
	}
	if c.theme == ThemeOff {
		return string(glyph) + " "
	}

	theme := themes[c.theme]
	bg := theme.darkBg
	if light {
		bg = theme.lightBg
	}
	if p.IsEmpty() {
		return bg + "  " + theme.reset
	}
	fg := theme.black
	if p.Color == core.ColorWhite {
		fg = theme.white
	}
	return bg + fg + string(glyph) + " " + theme.reset
}

func (c *CLI) ShowHelp() {
	help := `Commands:
  new              - Start a new game with player type selection
  resume <FEN>     - Resume from a specific board position
  <move>           - Make a move (e.g., e2e4, g1f3, e7e8n)
  undo [count]     - Undo last move(s), default 1
  redo [count]     - Replay undone move(s), default 1
  go               - Ask the engine to move for the side to play
  clock            - Show remaining time
  color <theme>    - Set board color theme (off|brown|green|gray)
  verbose          - Toggle detailed move information
  history          - Show game move history and positions
  quit/exit        - Exit the program
  help/?           - Show this help message

During any game:
  Press ENTER      - Execute computer move (when it's computer's turn)`

	c.ShowMessage(help)
}

func (c *CLI) ShowWelcome() {
	c.ShowMessage("Welcome to Chess!")
	c.ShowMessage("Commands: new, resume <FEN>, <move>, undo, redo, go, clock, quit/exit, verbose, history, help/?")
	c.ShowMessage("Example: 'resume 4k3/8/8/8/8/8/8/4K2R w K - 0 1' to start from a puzzle.")
	c.ShowMessage("")
}

func (c *CLI) ShowGameHistory(snap game.Snapshot) {
	c.ShowMessage(fmt.Sprintf("Starting FEN: %s", snap.InitialFEN))

	// Black may have moved first from a resumed position
	moves := snap.Moves
	start, err := board.ParsePosition(snap.InitialFEN)
	offset := 0
	if err == nil && start.Turn == core.ColorBlack && len(moves) > 0 {
		c.ShowMessage(fmt.Sprintf("1. ... | %s", moves[0]))
		moves = moves[1:]
		offset = 1
	}
	for i := 0; i < len(moves); i += 2 {
		moveNum := i/2 + 1 + offset
		if i+1 < len(moves) {
			c.ShowMessage(fmt.Sprintf("%d. %s | %s", moveNum, moves[i], moves[i+1]))
		} else {
			c.ShowMessage(fmt.Sprintf("%d. %s | ...", moveNum, moves[i]))
		}
	}
	if snap.RedoCount > 0 {
		c.ShowMessage(fmt.Sprintf("(%d undone move(s) can be redone)", snap.RedoCount))
	}
	c.ShowMessage(fmt.Sprintf("Current FEN: %s", snap.FEN))
	c.ShowMessage(fmt.Sprintf("Game state: %s", snap.State))
}

func (c *CLI) ShowClock(snap game.Snapshot) {
	if snap.Untimed {
		c.ShowMessage("Untimed game")
		return
	}
	c.ShowMessage(fmt.Sprintf("White: %s\nBlack: %s", snap.White.Display, snap.Black.Display))
}

// ShowComputerMove prints an engine reply; ack.Snapshot is the position
// after it
func (c *CLI) ShowComputerMove(ack game.Ack) {
	player := core.OppositeColor(ack.Snapshot.Turn)
	r := ack.Snapshot.LastResult
	if c.verbose && r != nil {
		score := fmt.Sprintf("score=%d", r.Score)
		if r.IsMate {
			score = fmt.Sprintf("mate=%d", r.MateIn)
		}
		c.ShowMessage(fmt.Sprintf("Computer (%s): %s (depth=%d, %s, %s)",
			player, ack.Move, r.Depth, score, r.Elapsed.Round(time.Millisecond)))
		return
	}
	c.ShowMessage(fmt.Sprintf("Computer (%s): %s", player, ack.Move))
}

func (c *CLI) ShowHumanMove(move board.Move) {
	if c.verbose {
		c.ShowMessage(fmt.Sprintf("Your move: %s", move))
	}
}

func (c *CLI) ShowGameOver(over core.GameOver) {
	c.ShowMessage(fmt.Sprintf("\nGame Over: %s", over))
	c.ShowMessage("Start a new game with 'new' or 'resume'.")
}
