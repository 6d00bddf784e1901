package history

import (
	"chesscore/internal/board"
	"chesscore/internal/core"
)

// History keeps the committed move records and the redo stack. It does not
// touch the board; callers pair every Undo/Redo with the matching board call.
type History struct {
	committed []board.MoveRecord
	redo      []board.MoveRecord
}

func New() *History {
	return &History{}
}

// Commit records a newly played move. Any redo line is discarded.
func (h *History) Commit(rec board.MoveRecord) {
	h.committed = append(h.committed, rec)
	h.redo = h.redo[:0]
}

// Undo moves the last committed record onto the redo stack.
func (h *History) Undo() (board.MoveRecord, bool) {
	if len(h.committed) == 0 {
		return board.MoveRecord{}, false
	}
	rec := h.committed[len(h.committed)-1]
	h.committed = h.committed[:len(h.committed)-1]
	h.redo = append(h.redo, rec)
	return rec, true
}

// Redo moves the most recently undone record back onto the committed stack.
// The redo stack is otherwise left alone.
func (h *History) Redo() (board.MoveRecord, bool) {
	if len(h.redo) == 0 {
		return board.MoveRecord{}, false
	}
	rec := h.redo[len(h.redo)-1]
	h.redo = h.redo[:len(h.redo)-1]
	h.committed = append(h.committed, rec)
	return rec, true
}

// Peek returns the record Undo would pop.
func (h *History) Peek() (board.MoveRecord, bool) {
	if len(h.committed) == 0 {
		return board.MoveRecord{}, false
	}
	return h.committed[len(h.committed)-1], true
}

// PeekRedo returns the record Redo would pop.
func (h *History) PeekRedo() (board.MoveRecord, bool) {
	if len(h.redo) == 0 {
		return board.MoveRecord{}, false
	}
	return h.redo[len(h.redo)-1], true
}

func (h *History) Len() int     { return len(h.committed) }
func (h *History) RedoLen() int { return len(h.redo) }

// Moves lists the committed moves, oldest first.
func (h *History) Moves() []board.Move {
	moves := make([]board.Move, len(h.committed))
	for i, rec := range h.committed {
		moves[i] = rec.Move
	}
	return moves
}

// Turn derives the side to move from the number of committed plies.
func (h *History) Turn(initial core.Color) core.Color {
	if len(h.committed)%2 == 0 {
		return initial
	}
	return core.OppositeColor(initial)
}
