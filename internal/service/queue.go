package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chesscore/internal/game"

	"go.uber.org/zap"
)

var (
	ErrQueueFull     = errors.New("engine queue is full")
	ErrQueueShutdown = errors.New("engine queue is shutting down")
)

// EngineTask asks a worker to play the engine turn of one game
type EngineTask struct {
	GameID   string
	Game     *game.Controller
	Callback func(EngineResult)
}

// EngineResult is the outcome of an engine turn
type EngineResult struct {
	GameID string
	Ack    game.Ack
	Error  error
}

// EngineQueue runs engine turns on a fixed pool of workers. Each game's
// controller already allows only one outstanding request.
type EngineQueue struct {
	tasks   chan EngineTask
	workers int
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *zap.Logger

	mu     sync.RWMutex
	closed bool
}

// NewEngineQueue creates a queue with specified worker count
func NewEngineQueue(workerCount, size int, logger *zap.Logger) *EngineQueue {
	if workerCount < 1 {
		workerCount = 2
	}
	if size < 1 {
		size = 100
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())

	q := &EngineQueue{
		tasks:   make(chan EngineTask, size),
		workers: workerCount,
		ctx:     ctx,
		cancel:  cancel,
		logger:  logger,
	}

	for i := 0; i < q.workers; i++ {
		q.wg.Add(1)
		go q.worker(i)
	}
	return q
}

func (q *EngineQueue) worker(id int) {
	defer q.wg.Done()

	for task := range q.tasks {
		if q.ctx.Err() != nil {
			task.Callback(EngineResult{GameID: task.GameID, Error: ErrQueueShutdown})
			continue
		}

		ack, err := task.Game.PlayEngineTurn(q.ctx)
		if err != nil {
			q.logger.Debug("engine task failed",
				zap.Int("worker", id),
				zap.String("game", task.GameID),
				zap.Error(err))
		}
		task.Callback(EngineResult{GameID: task.GameID, Ack: ack, Error: err})
	}
}

// SubmitAsync queues an engine turn; callback runs on the worker
func (q *EngineQueue) SubmitAsync(gameID string, g *game.Controller, callback func(EngineResult)) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		return ErrQueueShutdown
	}

	select {
	case q.tasks <- EngineTask{GameID: gameID, Game: g, Callback: callback}:
		return nil
	default:
		return ErrQueueFull
	}
}

// Shutdown cancels running searches and waits for the workers
func (q *EngineQueue) Shutdown(timeout time.Duration) error {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return nil
	}
	q.closed = true
	q.cancel()
	close(q.tasks)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() {
		q.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("shutdown timeout exceeded")
	}
}
