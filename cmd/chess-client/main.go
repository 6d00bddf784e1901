// Package main implements an interactive debugging client for the chess server API.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"chesscore/internal/client/api"
	"chesscore/internal/client/commands"
	"chesscore/internal/client/display"
	"chesscore/internal/core"

	"github.com/chzyer/readline"
)

func main() {
	baseURL := flag.String("api", "http://localhost:8080", "Chess server base URL")
	flag.Parse()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          display.Prompt("chess"),
		HistoryFile:     ".chess_client_history",
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("%s%s%s\n", display.Red, err.Error(), display.Reset)
		os.Exit(1)
	}
	defer rl.Close()

	client := api.New(*baseURL)
	client.Trace = rl.Stdout()
	s := &commands.Session{Client: client, Out: rl.Stdout()}

	fmt.Fprintf(s.Out, "%sChess Debug Client%s\n", display.Cyan, display.Reset)
	fmt.Fprintf(s.Out, "%sAPI: %s%s\n", display.Cyan, client.BaseURL, display.Reset)
	fmt.Fprintf(s.Out, "Type 'help' for commands\n\n")

	registry := commands.NewRegistry(s)

	for {
		rl.SetPrompt(buildPrompt(s))

		line, err := rl.Readline()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == "quit" {
			break
		}

		// A trailing -v makes one command verbose
		s.Verbose = strings.HasSuffix(line, " -v")
		line = strings.TrimSuffix(line, " -v")

		// ^C cancels a long poll without leaving the client
		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
		err = registry.Execute(ctx, line)
		stop()
		if errors.Is(err, commands.ErrExit) {
			break
		}
	}
	fmt.Fprintf(s.Out, "%sGoodbye!%s\n", display.Cyan, display.Reset)
}

func buildPrompt(s *commands.Session) string {
	promptStr := "chess"
	if s.CurrentGame != "" {
		promptStr += display.Yellow + " [" + display.White + s.CurrentGame[:8] + display.Yellow + "]"
	}
	if st := s.State; st != nil {
		player := "h"
		if turn, err := core.ParseColor(st.Turn); err == nil && st.Players.For(turn) == core.PlayerComputer {
			player = "c"
		}
		promptStr += fmt.Sprintf(" - Turn:%s(%s)", display.ColorForTurn(st.Turn), player)
	}
	return display.Prompt(promptStr)
}
