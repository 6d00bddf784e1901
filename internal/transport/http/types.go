package http

import (
	"chesscore/internal/core"
)

// Request types

type CreateGameRequest struct {
	// "human" or "computer", omitted sides use the server defaults
	White core.PlayerType `json:"white" validate:"omitempty,oneof=1 2"`
	Black core.PlayerType `json:"black" validate:"omitempty,oneof=1 2"`
	FEN   string          `json:"fen,omitempty" validate:"omitempty,max=100"`
	// Seconds per side; absent keeps the server default, 0 plays untimed
	TimeControl *int `json:"timeControl,omitempty" validate:"omitempty,min=0,max=86400"`
	Increment   *int `json:"increment,omitempty" validate:"omitempty,min=0,max=600"`
	// Engine budget in milliseconds
	SearchTime    int    `json:"searchTime,omitempty" validate:"omitempty,min=10,max=60000"`
	FailurePolicy string `json:"failurePolicy,omitempty" validate:"omitempty,oneof=keep-turn forfeit"`
}

type MoveRequest struct {
	Move string `json:"move" validate:"required,min=4,max=5"` // UCI format: "e2e4"
}

type StepRequest struct {
	Count int `json:"count,omitempty" validate:"omitempty,min=1,max=500"` // default: 1
}

// Response types

type GameResponse struct {
	GameID    string        `json:"gameId"`
	Version   int           `json:"version"`
	FEN       string        `json:"fen"`
	Turn      string        `json:"turn"`  // "w" or "b"
	State     string        `json:"state"` // "ongoing", "white_wins", etc
	Result    *ResultInfo   `json:"result,omitempty"`
	InCheck   bool          `json:"inCheck"`
	Moves     []string      `json:"moves"`
	RedoCount int           `json:"redoCount"`
	Players   core.Players  `json:"players"`
	LastMove  *MoveInfo     `json:"lastMove,omitempty"`
	Clock     *ClockInfo    `json:"clock,omitempty"`
	Material  MaterialInfo  `json:"material"`
	Message   string        `json:"message,omitempty"`
	Engine    *EngineStatus `json:"engine,omitempty"`
}

type ResultInfo struct {
	Reason string `json:"reason"`
	Winner string `json:"winner,omitempty"` // "w" or "b", empty on draws
}

type MoveInfo struct {
	Move   string `json:"move"`
	Player string `json:"player"` // "w" or "b"
	Score  int    `json:"score,omitempty"`
	Depth  int    `json:"depth,omitempty"`
}

type ClockInfo struct {
	White float64 `json:"white"` // seconds
	Black float64 `json:"black"`
}

type MaterialInfo struct {
	White         int      `json:"white"`
	Black         int      `json:"black"`
	WhiteCaptured []string `json:"whiteCaptured"` // white pieces taken by black
	BlackCaptured []string `json:"blackCaptured"`
}

type EngineStatus struct {
	Pending bool   `json:"pending"`
	Error   string `json:"error,omitempty"`
}

type BoardResponse struct {
	FEN   string `json:"fen"`
	Board string `json:"board"` // ASCII representation
}

type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details string `json:"details,omitempty"`
}

// Helper functions

func stateToString(s core.State) string {
	switch s {
	case core.StateOngoing:
		return "ongoing"
	case core.StatePending:
		return "pending"
	case core.StateStuck:
		return "stuck"
	case core.StateWhiteWins:
		return "white_wins"
	case core.StateBlackWins:
		return "black_wins"
	case core.StateDraw:
		return "draw"
	case core.StateStalemate:
		return "stalemate"
	default:
		return "unknown"
	}
}

// Error codes
const (
	ErrGameNotFound      = "GAME_NOT_FOUND"
	ErrInvalidMove       = "INVALID_MOVE"
	ErrNotHumanTurn      = "NOT_HUMAN_TURN"
	ErrNotEngineTurn     = "NOT_ENGINE_TURN"
	ErrEnginePending     = "ENGINE_PENDING"
	ErrEngineFailed      = "ENGINE_FAILED"
	ErrNoHistory         = "NO_HISTORY"
	ErrGameOver          = "GAME_OVER"
	ErrRateLimitExceeded = "RATE_LIMIT_EXCEEDED"
	ErrInvalidContent    = "INVALID_CONTENT_TYPE"
	ErrInvalidRequest    = "INVALID_REQUEST"
	ErrInternalError     = "INTERNAL_ERROR"
)
