package http

import (
	"errors"
	"strconv"
	"time"

	"chesscore/internal/board"
	"chesscore/internal/core"
	"chesscore/internal/engine"
	"chesscore/internal/game"
	"chesscore/internal/service"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// CreateGame creates a new game with specified player types
func (h *HTTPHandler) CreateGame(c *fiber.Ctx) error {
	req := body[CreateGameRequest](c)

	o := service.Overrides{
		Players:    core.Players{White: req.White, Black: req.Black},
		InitialFEN: req.FEN,
		SearchTime: time.Duration(req.SearchTime) * time.Millisecond,
	}
	if req.TimeControl != nil {
		d := time.Duration(*req.TimeControl) * time.Second
		o.TimeControl = &d
	}
	if req.Increment != nil {
		d := time.Duration(*req.Increment) * time.Second
		o.Increment = &d
	}
	if req.FailurePolicy != "" {
		policy, err := game.ParseFailurePolicy(req.FailurePolicy)
		if err != nil {
			return h.writeError(c, err)
		}
		o.FailurePolicy = &policy
	}

	gameID, _, err := h.svc.CreateGame(o)
	if err != nil {
		return h.writeError(c, err)
	}

	response, err := h.buildGameResponse(gameID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(response)
}

// GetGame retrieves current game state
func (h *HTTPHandler) GetGame(c *fiber.Ctx) error {
	response, err := h.buildGameResponse(c.Params("gameId"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(response)
}

// MakeMove submits a human player move; an engine reply is queued
func (h *HTTPHandler) MakeMove(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	req := body[MoveRequest](c)

	if _, err := h.svc.SubmitMove(c.UserContext(), gameID, req.Move); err != nil {
		return h.writeError(c, err)
	}

	response, err := h.buildGameResponse(gameID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(response)
}

// UndoMove takes back count plies, default one
func (h *HTTPHandler) UndoMove(c *fiber.Ctx) error {
	return h.step(c, h.svc.Undo)
}

// RedoMove replays count undone plies, default one
func (h *HTTPHandler) RedoMove(c *fiber.Ctx) error {
	return h.step(c, h.svc.Redo)
}

// step applies fn count times. A partial run still succeeds.
func (h *HTTPHandler) step(c *fiber.Ctx, fn func(string) (game.Ack, error)) error {
	gameID := c.Params("gameId")
	count := body[StepRequest](c).Count
	if count < 1 {
		count = 1
	}

	for i := 0; i < count; i++ {
		if _, err := fn(gameID); err != nil {
			if i == 0 || !isHistoryEnd(err) {
				return h.writeError(c, err)
			}
			break
		}
	}

	response, err := h.buildGameResponse(gameID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(response)
}

func isHistoryEnd(err error) bool {
	return errors.Is(err, game.ErrHistoryEmpty) || errors.Is(err, game.ErrRedoEmpty)
}

// EngineMove queues an engine turn, used after undo or a failed request
func (h *HTTPHandler) EngineMove(c *fiber.Ctx) error {
	gameID := c.Params("gameId")
	if err := h.svc.RequestEngineMove(gameID); err != nil {
		return h.writeError(c, err)
	}

	response, err := h.buildGameResponse(gameID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(response)
}

// DeleteGame ends and cleans up a game
func (h *HTTPHandler) DeleteGame(c *fiber.Ctx) error {
	if err := h.svc.DeleteGame(c.Params("gameId")); err != nil {
		return h.writeError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

// GetBoard returns ASCII representation of the board
func (h *HTTPHandler) GetBoard(c *fiber.Ctx) error {
	g, err := h.svc.GetGame(c.Params("gameId"))
	if err != nil {
		return h.writeError(c, err)
	}

	return c.JSON(BoardResponse{
		FEN:   g.Snapshot().FEN,
		Board: g.Board(),
	})
}

// WaitGame long-polls until the game version moves past ?version=N or the
// wait times out, then returns the current state
func (h *HTTPHandler) WaitGame(c *fiber.Ctx) error {
	gameID := c.Params("gameId")

	version, err := strconv.Atoi(c.Query("version", "0"))
	if err != nil || version < 0 {
		return c.Status(fiber.StatusBadRequest).JSON(ErrorResponse{
			Error:   "invalid version",
			Code:    ErrInvalidRequest,
			Details: "version must be a non-negative integer",
		})
	}

	if _, err := h.svc.WaitForChange(c.UserContext(), gameID, version); err != nil {
		return h.writeError(c, err)
	}

	response, err := h.buildGameResponse(gameID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(response)
}

// writeError maps domain errors to status codes and error codes
func (h *HTTPHandler) writeError(c *fiber.Ctx, err error) error {
	status := fiber.StatusBadRequest
	resp := ErrorResponse{Error: err.Error(), Code: ErrInvalidRequest}

	var illegal *game.IllegalMoveError
	switch {
	case errors.Is(err, service.ErrGameNotFound):
		status, resp = fiber.StatusNotFound, ErrorResponse{Error: "game not found", Code: ErrGameNotFound}
	case errors.As(err, &illegal):
		resp = ErrorResponse{Error: "invalid move", Code: ErrInvalidMove, Details: illegal.Message}
	case errors.Is(err, board.ErrInvalidMove):
		resp = ErrorResponse{Error: "invalid move", Code: ErrInvalidMove, Details: err.Error()}
	case errors.Is(err, board.ErrInvalidFEN):
		resp = ErrorResponse{Error: "invalid FEN", Code: ErrInvalidRequest, Details: err.Error()}
	case errors.Is(err, game.ErrNotHumanTurn):
		resp = ErrorResponse{Error: "not human player's turn", Code: ErrNotHumanTurn}
	case errors.Is(err, game.ErrNotEngineTurn):
		resp = ErrorResponse{Error: "not the engine's turn", Code: ErrNotEngineTurn}
	case errors.Is(err, game.ErrEnginePending):
		status, resp = fiber.StatusConflict, ErrorResponse{Error: "engine is thinking", Code: ErrEnginePending}
	case errors.Is(err, game.ErrGameOver):
		resp = ErrorResponse{Error: "game is over", Code: ErrGameOver}
	case errors.Is(err, game.ErrHistoryEmpty), errors.Is(err, game.ErrRedoEmpty):
		resp = ErrorResponse{Error: err.Error(), Code: ErrNoHistory}
	case errors.Is(err, game.ErrNoEngine):
		status, resp = fiber.StatusServiceUnavailable, ErrorResponse{Error: "no engine available", Code: ErrEngineFailed}
	case errors.Is(err, service.ErrQueueFull), errors.Is(err, service.ErrQueueShutdown):
		status, resp = fiber.StatusServiceUnavailable, ErrorResponse{Error: err.Error(), Code: ErrEngineFailed}
	default:
		status = fiber.StatusInternalServerError
		resp = ErrorResponse{Error: "internal server error", Code: ErrInternalError, Details: err.Error()}
		h.logger.Error("request failed", zap.String("path", c.Path()), zap.Error(err))
	}
	return c.Status(status).JSON(resp)
}

func (h *HTTPHandler) buildGameResponse(gameID string) (GameResponse, error) {
	g, err := h.svc.GetGame(gameID)
	if err != nil {
		return GameResponse{}, err
	}
	version, err := h.svc.Version(gameID)
	if err != nil {
		return GameResponse{}, err
	}
	snap := g.Snapshot()

	response := GameResponse{
		GameID:    gameID,
		Version:   version,
		FEN:       snap.FEN,
		Turn:      snap.Turn.String(),
		State:     stateToString(snap.State),
		InCheck:   snap.InCheck,
		Moves:     snap.Moves,
		RedoCount: snap.RedoCount,
		Players:   snap.Players,
		Material: MaterialInfo{
			White:         snap.WhiteMaterial,
			Black:         snap.BlackMaterial,
			WhiteCaptured: kindNames(snap.WhiteCaptured),
			BlackCaptured: kindNames(snap.BlackCaptured),
		},
		Message: snap.Message,
	}
	if snap.Over.Reason != core.ReasonNone {
		response.Result = &ResultInfo{Reason: snap.Over.Reason.String()}
		if snap.Over.Winner.Valid() {
			response.Result.Winner = snap.Over.Winner.String()
		}
	}
	if !snap.Untimed {
		response.Clock = &ClockInfo{
			White: snap.White.Remaining.Seconds(),
			Black: snap.Black.Remaining.Seconds(),
		}
	}
	if n := len(snap.Moves); n > 0 {
		// The last mover is the side not to move now
		response.LastMove = &MoveInfo{
			Move:   snap.LastMove,
			Player: core.OppositeColor(snap.Turn).String(),
		}
		if r := snap.LastResult; r != nil && r.BestMove.String() == snap.LastMove {
			response.LastMove.Score = r.Score
			response.LastMove.Depth = r.Depth
		}
	}
	if snap.Players.White == core.PlayerComputer || snap.Players.Black == core.PlayerComputer {
		response.Engine = &EngineStatus{Pending: snap.Pending}
		if snap.State == core.StateStuck {
			response.Engine.Error = engine.StateFailed.String()
		}
	}
	if response.Moves == nil {
		response.Moves = []string{}
	}
	return response, nil
}

func kindNames(kinds []board.PieceKind) []string {
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return names
}
