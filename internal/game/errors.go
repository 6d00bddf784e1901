package game

import (
	"errors"
	"fmt"

	"chesscore/internal/board"
)

var (
	ErrNotHumanTurn  = errors.New("not a human player's turn")
	ErrNotEngineTurn = errors.New("not the engine's turn")
	ErrEnginePending = errors.New("engine is thinking")
	ErrGameOver      = errors.New("game is over")
	ErrHistoryEmpty  = errors.New("no move to undo")
	ErrRedoEmpty     = errors.New("no move to redo")
	ErrNoEngine      = errors.New("no engine configured")
)

// User facing texts for rejected moves
const (
	msgIllegalMove   = "Illegal move!"
	msgOpponentPiece = "Cannot move opponent's piece!"
	msgNoPiece       = "No piece at this square!"
)

// IllegalMoveError is returned for a rejected move. It matches
// board.ErrIllegalMove with errors.Is.
type IllegalMoveError struct {
	Move    board.Move
	Message string
}

func (e *IllegalMoveError) Error() string {
	return fmt.Sprintf("illegal move %s: %s", e.Move, e.Message)
}

func (e *IllegalMoveError) Unwrap() error {
	return board.ErrIllegalMove
}
