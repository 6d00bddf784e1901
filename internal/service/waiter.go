package service

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// WaitTimeout is the maximum time a client can wait for notifications
const WaitTimeout = 25 * time.Second

// WaitRegistry manages long-polling clients waiting for game changes
type WaitRegistry struct {
	mu       sync.RWMutex
	waiters  map[string][]*waitRequest // gameID → waiting clients
	timeout  time.Duration
	shutdown chan struct{}
	closed   bool
	wg       sync.WaitGroup
}

// waitRequest is a single client waiting for a newer game version
type waitRequest struct {
	version int
	done    chan struct{}
	once    sync.Once
	timer   *time.Timer
}

func (r *waitRequest) fire() {
	r.once.Do(func() { close(r.done) })
}

func NewWaitRegistry(timeout time.Duration) *WaitRegistry {
	if timeout <= 0 {
		timeout = WaitTimeout
	}
	return &WaitRegistry{
		waiters:  make(map[string][]*waitRequest),
		timeout:  timeout,
		shutdown: make(chan struct{}),
	}
}

// RegisterWait returns a channel that fires once the game moves past
// version, the wait times out, the game is removed or the registry shuts
// down. A waiter already behind current fires immediately.
func (w *WaitRegistry) RegisterWait(ctx context.Context, gameID string, version, current int) <-chan struct{} {
	req := &waitRequest{
		version: version,
		done:    make(chan struct{}),
	}
	if version != current {
		req.fire()
		return req.done
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		req.fire()
		return req.done
	}

	req.timer = time.AfterFunc(w.timeout, req.fire)
	w.waiters[gameID] = append(w.waiters[gameID], req)

	// Cleanup on client disconnect, notification or shutdown
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		select {
		case <-ctx.Done():
		case <-w.shutdown:
			req.fire()
		case <-req.done:
		}
		req.timer.Stop()
		w.removeWaiter(gameID, req)
	}()

	return req.done
}

// NotifyGame wakes every waiter whose version differs from version
func (w *WaitRegistry) NotifyGame(gameID string, version int) {
	w.mu.RLock()
	waitList := append([]*waitRequest(nil), w.waiters[gameID]...)
	w.mu.RUnlock()

	for _, req := range waitList {
		if req.version != version {
			req.fire()
		}
	}
}

// RemoveGame wakes and drops all waiters for a game (called before game deletion)
func (w *WaitRegistry) RemoveGame(gameID string) {
	w.mu.Lock()
	waitList := w.waiters[gameID]
	delete(w.waiters, gameID)
	w.mu.Unlock()

	for _, req := range waitList {
		req.fire()
	}
}

// Waiting counts registered waiters for a game
func (w *WaitRegistry) Waiting(gameID string) int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.waiters[gameID])
}

// Shutdown wakes all waiters and waits for their cleanup
func (w *WaitRegistry) Shutdown(timeout time.Duration) error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	close(w.shutdown)
	w.mu.Unlock()

	done := make(chan struct{})
	go func() {
		w.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return fmt.Errorf("wait registry shutdown timed out after %s", timeout)
	}
}

func (w *WaitRegistry) removeWaiter(gameID string, req *waitRequest) {
	w.mu.Lock()
	defer w.mu.Unlock()

	waitList := w.waiters[gameID]
	for i, waiter := range waitList {
		if waiter == req {
			w.waiters[gameID] = append(waitList[:i], waitList[i+1:]...)
			break
		}
	}

	if len(w.waiters[gameID]) == 0 {
		delete(w.waiters, gameID)
	}
}
