package commands

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"chesscore/internal/client/api"
	"chesscore/internal/client/display"
	"chesscore/internal/core"
)

// maxEngineWaits bounds the polls for one engine reply
const maxEngineWaits = 10

func (r *Registry) registerGameCommands() {
	r.Register(&Command{
		Name:        "new",
		ShortName:   "n",
		Description: "Create a new game",
		Usage:       "new [white h|c] [black h|c] [FEN]",
		Handler:     newGameHandler,
	})
	r.Register(&Command{
		Name:        "join",
		ShortName:   "j",
		Description: "Join/set current game ID",
		Usage:       "join <gameId>",
		Handler:     joinGameHandler,
	})
	r.Register(&Command{
		Name:        "move",
		ShortName:   "m",
		Description: "Make a move and wait for an engine reply",
		Usage:       "move <uci-move>",
		Handler:     moveHandler,
	})
	r.Register(&Command{
		Name:        "engine",
		ShortName:   "c",
		Description: "Ask the engine to move",
		Usage:       "engine",
		Handler:     engineHandler,
	})
	r.Register(&Command{
		Name:        "undo",
		ShortName:   "u",
		Description: "Undo moves",
		Usage:       "undo [count]",
		Handler:     stepHandler(false),
	})
	r.Register(&Command{
		Name:        "redo",
		ShortName:   "r",
		Description: "Redo undone moves",
		Usage:       "redo [count]",
		Handler:     stepHandler(true),
	})
	r.Register(&Command{
		Name:        "show",
		ShortName:   "h",
		Description: "Show board and game state",
		Usage:       "show",
		Handler:     showBoardHandler,
	})
	r.Register(&Command{
		Name:        "state",
		ShortName:   "s",
		Description: "Show raw game JSON",
		Usage:       "state",
		Handler:     gameStateHandler,
	})
	r.Register(&Command{
		Name:        "delete",
		ShortName:   "d",
		Description: "Delete a game",
		Usage:       "delete [gameId]",
		Handler:     deleteGameHandler,
	})
	r.Register(&Command{
		Name:        "poll",
		ShortName:   "p",
		Description: "Long-poll for game updates",
		Usage:       "poll",
		Handler:     pollHandler,
	})
}

func newGameHandler(ctx context.Context, s *Session, args []string) error {
	req := &api.CreateGameRequest{}
	for i, dst := range []*core.PlayerType{&req.White, &req.Black} {
		if len(args) <= i {
			break
		}
		p, err := core.ParsePlayerType(strings.ToLower(args[i]))
		if err != nil {
			return err
		}
		*dst = p
	}
	if len(args) > 2 {
		req.FEN = strings.Join(args[2:], " ")
	}

	resp, err := s.Client.CreateGame(ctx, req)
	if err != nil {
		return err
	}
	s.update(resp)

	s.printf("%sGame created: %s%s\n", display.Green, resp.GameID, display.Reset)
	s.printf("White: %s | Black: %s\n", resp.Players.White, resp.Players.Black)

	// The server starts the engine itself when it has the first move
	if engineToMove(resp) || len(resp.Moves) > 0 {
		resp, err = awaitEngine(ctx, s, resp, 1)
		if err != nil {
			return err
		}
	}
	printSummary(s, resp)
	return nil
}

func joinGameHandler(ctx context.Context, s *Session, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: join <gameId>")
	}

	resp, err := s.Client.GetGame(ctx, args[0])
	if err != nil {
		return err
	}
	s.update(resp)

	s.printf("%sJoined game: %s%s\n", display.Green, resp.GameID, display.Reset)
	printSummary(s, resp)
	return nil
}

func moveHandler(ctx context.Context, s *Session, args []string) error {
	if len(args) < 1 {
		return errors.New("usage: move <uci-move>")
	}
	gameID, err := s.requireGame()
	if err != nil {
		return err
	}

	// A computer reply may already be in the response
	want := movesSeen(s) + 2
	resp, err := s.Client.MakeMove(ctx, gameID, args[0])
	if err != nil {
		return err
	}
	s.update(resp)
	s.printf("%sMove accepted%s\n", display.Green, display.Reset)

	if engineToMove(resp) || len(resp.Moves) >= want {
		if resp, err = awaitEngine(ctx, s, resp, want); err != nil {
			return err
		}
	}
	printSummary(s, resp)
	return nil
}

func engineHandler(ctx context.Context, s *Session, _ []string) error {
	gameID, err := s.requireGame()
	if err != nil {
		return err
	}

	want := movesSeen(s) + 1
	resp, err := s.Client.EngineMove(ctx, gameID)
	if err != nil {
		return err
	}
	s.update(resp)

	if resp, err = awaitEngine(ctx, s, resp, want); err != nil {
		return err
	}
	printSummary(s, resp)
	return nil
}

func stepHandler(redo bool) func(context.Context, *Session, []string) error {
	return func(ctx context.Context, s *Session, args []string) error {
		gameID, err := s.requireGame()
		if err != nil {
			return err
		}

		count := 1
		if len(args) > 0 {
			if count, err = strconv.Atoi(args[0]); err != nil || count < 1 {
				return errors.New("count must be a positive number")
			}
		}

		step := s.Client.UndoMoves
		if redo {
			step = s.Client.RedoMoves
		}
		resp, err := step(ctx, gameID, count)
		if err != nil {
			return err
		}
		s.update(resp)
		printSummary(s, resp)
		return nil
	}
}

func showBoardHandler(ctx context.Context, s *Session, _ []string) error {
	gameID, err := s.requireGame()
	if err != nil {
		return err
	}

	board, err := s.Client.GetBoard(ctx, gameID)
	if err != nil {
		return err
	}
	resp, err := s.Client.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	s.update(resp)

	s.printf("\n")
	display.RenderBoard(s.Out, board.Board)
	s.printf("\nFEN: %s\n", board.FEN)
	if resp.Clock != nil {
		s.printf("Clock: white %.1fs | black %.1fs\n", resp.Clock.White, resp.Clock.Black)
	}
	printSummary(s, resp)
	return nil
}

func gameStateHandler(ctx context.Context, s *Session, _ []string) error {
	gameID, err := s.requireGame()
	if err != nil {
		return err
	}

	resp, err := s.Client.GetGame(ctx, gameID)
	if err != nil {
		return err
	}
	s.update(resp)

	data, err := json.MarshalIndent(resp, "", "  ")
	if err != nil {
		return err
	}
	s.printf("%s\n", data)
	return nil
}

func deleteGameHandler(ctx context.Context, s *Session, args []string) error {
	gameID := s.CurrentGame
	if len(args) > 0 {
		gameID = args[0]
	}
	if gameID == "" {
		return errors.New("usage: delete [gameId]")
	}

	if err := s.Client.DeleteGame(ctx, gameID); err != nil {
		return err
	}
	s.printf("%sGame deleted: %s%s\n", display.Green, gameID, display.Reset)

	if gameID == s.CurrentGame {
		s.CurrentGame, s.Version, s.State = "", 0, nil
	}
	return nil
}

func pollHandler(ctx context.Context, s *Session, _ []string) error {
	gameID, err := s.requireGame()
	if err != nil {
		return err
	}

	s.printf("%sWaiting for changes after version %d...%s\n", display.Magenta, s.Version, display.Reset)
	resp, err := s.Client.WaitGame(ctx, gameID, s.Version)
	if err != nil {
		return err
	}
	if resp.Version == s.Version {
		s.printf("No changes\n")
		return nil
	}
	s.update(resp)
	printSummary(s, resp)
	return nil
}

// engineToMove reports whether the side to move is a computer in a live game
func engineToMove(resp *api.GameResponse) bool {
	if resp.Result != nil || resp.State == "stuck" {
		return false
	}
	turn, err := core.ParseColor(resp.Turn)
	return err == nil && resp.Players.For(turn) == core.PlayerComputer
}

// awaitEngine long-polls until the game holds want moves or the engine
// can no longer move, then reports the reply
func awaitEngine(ctx context.Context, s *Session, resp *api.GameResponse, want int) (*api.GameResponse, error) {
	for i := 0; i < maxEngineWaits && len(resp.Moves) < want && engineToMove(resp); i++ {
		if i == 0 {
			s.printf("%sComputer is thinking...%s\n", display.Magenta, display.Reset)
		}
		next, err := s.Client.WaitGame(ctx, resp.GameID, resp.Version)
		if err != nil {
			return resp, err
		}
		resp = next
		s.update(resp)
	}

	switch {
	case len(resp.Moves) >= want && resp.LastMove != nil:
		s.printf("%sComputer played: %s%s", display.Magenta, resp.LastMove.Move, display.Reset)
		if resp.LastMove.Depth > 0 {
			s.printf(" (depth %d, score %d)", resp.LastMove.Depth, resp.LastMove.Score)
		}
		s.printf("\n")
	case resp.State == "stuck":
		s.printf("%sEngine failed, use 'engine' to retry%s\n", display.Red, display.Reset)
	}
	return resp, nil
}

// movesSeen is the move count of the last known state
func movesSeen(s *Session) int {
	if s.State == nil {
		return 0
	}
	return len(s.State.Moves)
}

func printSummary(s *Session, resp *api.GameResponse) {
	s.printf("%s\n", display.Summary(resp.Turn, resp.State, len(resp.Moves), resp.InCheck))
	if resp.Result != nil {
		winner := "draw"
		if resp.Result.Winner != "" {
			winner = display.ColorForTurn(resp.Result.Winner) + " wins"
		}
		s.printf("%sGame over: %s by %s%s\n", display.Yellow, winner, resp.Result.Reason, display.Reset)
	}
	if resp.Message != "" {
		s.printf("%s%s%s\n", display.Red, resp.Message, display.Reset)
	}
	if s.Verbose {
		s.printf("Game %s, version %d\n", resp.GameID, resp.Version)
	}
}
