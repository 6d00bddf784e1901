// Package commands implements the debug client's command set.
package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"chesscore/internal/client/api"
	"chesscore/internal/client/display"
)

// ErrExit asks the read loop to stop
var ErrExit = errors.New("exit")

// Session is the client-side view of the current game
type Session struct {
	Client      *api.Client
	Out         io.Writer
	Verbose     bool
	CurrentGame string
	// Version is the last game version seen, the long-poll cursor
	Version int
	State   *api.GameResponse
}

func (s *Session) printf(format string, args ...any) {
	fmt.Fprintf(s.Out, format, args...)
}

// update records a fresh game response
func (s *Session) update(resp *api.GameResponse) {
	s.CurrentGame = resp.GameID
	s.Version = resp.Version
	s.State = resp
}

func (s *Session) requireGame() (string, error) {
	if s.CurrentGame == "" {
		return "", errors.New("no current game, use 'new' or 'join <gameId>'")
	}
	return s.CurrentGame, nil
}

// Command defines a client command with its handler
type Command struct {
	Name        string
	ShortName   string
	Description string
	Usage       string
	Handler     func(context.Context, *Session, []string) error
}

// Registry manages command registration and execution
type Registry struct {
	session  *Session
	commands map[string]*Command
}

func NewRegistry(session *Session) *Registry {
	r := &Registry{
		session:  session,
		commands: make(map[string]*Command),
	}

	r.registerGameCommands()

	r.Register(&Command{
		Name:        "health",
		ShortName:   ".",
		Description: "Check server health",
		Usage:       "health",
		Handler:     healthHandler,
	})
	r.Register(&Command{
		Name:        "url",
		ShortName:   "/",
		Description: "Show or set the API base URL",
		Usage:       "url [base-url]",
		Handler:     urlHandler,
	})
	r.Register(&Command{
		Name:        "help",
		ShortName:   "?",
		Description: "Show available commands",
		Usage:       "help [command]",
		Handler:     r.helpHandler,
	})
	r.Register(&Command{
		Name:        "exit",
		ShortName:   "x",
		Description: "Exit the client",
		Usage:       "exit",
		Handler: func(context.Context, *Session, []string) error {
			return ErrExit
		},
	})

	return r
}

func (r *Registry) Register(cmd *Command) {
	r.commands[cmd.Name] = cmd
	if cmd.ShortName != "" {
		r.commands[cmd.ShortName] = cmd
	}
}

// Execute runs one input line. Only ErrExit is returned; other errors are
// printed.
func (r *Registry) Execute(ctx context.Context, input string) error {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return nil
	}

	s := r.session
	cmd, exists := r.commands[parts[0]]
	if !exists {
		s.printf("%sUnknown command: %s%s\n", display.Red, parts[0], display.Reset)
		s.printf("Type 'help' for available commands\n")
		return nil
	}

	s.Client.SetVerbose(s.Verbose)
	err := cmd.Handler(ctx, s, parts[1:])
	if errors.Is(err, ErrExit) {
		return err
	}
	if err != nil {
		s.printf("%sError: %s%s\n", display.Red, err.Error(), display.Reset)
	}
	return nil
}

func (r *Registry) helpHandler(_ context.Context, s *Session, args []string) error {
	if len(args) > 0 {
		cmd, exists := r.commands[args[0]]
		if !exists {
			return fmt.Errorf("unknown command: %s", args[0])
		}
		s.printf("\n%s%s%s - %s\n", display.Cyan, cmd.Name, display.Reset, cmd.Description)
		if cmd.ShortName != "" {
			s.printf("Short form: %s%s%s\n", display.Cyan, cmd.ShortName, display.Reset)
		}
		s.printf("Usage: %s\n", cmd.Usage)
		return nil
	}

	seen := make(map[string]bool)
	var names []string
	for _, cmd := range r.commands {
		if !seen[cmd.Name] {
			seen[cmd.Name] = true
			names = append(names, cmd.Name)
		}
	}
	sort.Strings(names)

	s.printf("\n%sAvailable Commands:%s\n\n", display.Cyan, display.Reset)
	for _, name := range names {
		cmd := r.commands[name]
		shortPart := "    "
		if cmd.ShortName != "" {
			shortPart = fmt.Sprintf("[%s%s%s] ", display.Cyan, cmd.ShortName, display.Reset)
		}
		s.printf("  %s%-8s %s\n", shortPart, cmd.Name, cmd.Description)
	}
	s.printf("\nType 'help <command>' for detailed usage\n")
	s.printf("Add '-v' to any command for verbose output\n")
	return nil
}

func healthHandler(ctx context.Context, s *Session, _ []string) error {
	resp, err := s.Client.Health(ctx)
	if err != nil {
		return err
	}
	s.printf("%s%s%s, %d game(s)\n", display.Green, resp.Status, display.Reset, resp.Games)
	return nil
}

func urlHandler(_ context.Context, s *Session, args []string) error {
	if len(args) > 0 {
		s.Client.SetBaseURL(args[0])
	}
	s.printf("API: %s\n", s.Client.BaseURL)
	return nil
}
