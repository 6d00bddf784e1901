package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"chesscore/internal/board"
	"chesscore/internal/core"
	"chesscore/internal/engine"
	"chesscore/internal/game"
)

// scriptedEngine replies with the first legal move in generation order,
// or with a fixed error.
type scriptedEngine struct {
	err error
}

func (e *scriptedEngine) RequestMove(ctx context.Context, req engine.Request) (engine.SearchResult, error) {
	if e.err != nil {
		return engine.SearchResult{}, e.err
	}
	moves := board.FromPosition(req.Position).AllLegalMoves()
	if len(moves) == 0 {
		return engine.SearchResult{}, &engine.Failure{Reason: engine.ReasonNoMove}
	}
	return engine.SearchResult{BestMove: moves[0]}, nil
}

type fakeTime struct {
	mu sync.Mutex
	t  time.Time
}

func (f *fakeTime) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeTime) Advance(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	f.mu.Unlock()
}

func newService(t *testing.T, eng game.Mover, defaults game.Config) *Service {
	t.Helper()
	s := New(Options{
		Defaults:    defaults,
		NewEngine:   func() game.Mover { return eng },
		Workers:     2,
		WaitTimeout: 2 * time.Second,
	})
	t.Cleanup(func() {
		if err := s.Close(time.Second); err != nil {
			t.Errorf("Close: %v", err)
		}
	})
	return s
}

func waitForMoves(t *testing.T, s *Service, id string, want int) game.Snapshot {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	for {
		g, err := s.GetGame(id)
		if err != nil {
			t.Fatal(err)
		}
		snap := g.Snapshot()
		if len(snap.Moves) >= want {
			return snap
		}
		v, err := s.Version(id)
		if err != nil {
			t.Fatal(err)
		}
		if _, err := s.WaitForChange(ctx, id, v); err != nil {
			t.Fatalf("waiting for %d moves: %v (have %v)", want, err, snap.Moves)
		}
	}
}

func TestEngineReplyWakesWaiter(t *testing.T) {
	s := newService(t, &scriptedEngine{}, game.Config{})
	id, _, err := s.CreateGame(Overrides{Players: core.Players{White: core.PlayerHuman, Black: core.PlayerComputer}})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := s.SubmitMove(context.Background(), id, "e2e4"); err != nil {
		t.Fatalf("SubmitMove: %v", err)
	}
	snap := waitForMoves(t, s, id, 2)
	if snap.Turn != core.ColorWhite {
		t.Errorf("turn after engine reply = %s", snap.Turn)
	}
}

func TestEngineMovesFirst(t *testing.T) {
	s := newService(t, &scriptedEngine{}, game.Config{})
	id, _, err := s.CreateGame(Overrides{Players: core.Players{White: core.PlayerComputer, Black: core.PlayerHuman}})
	if err != nil {
		t.Fatal(err)
	}
	snap := waitForMoves(t, s, id, 1)
	if snap.Turn != core.ColorBlack {
		t.Errorf("turn = %s, want black", snap.Turn)
	}
}

func TestEngineVersusEngine(t *testing.T) {
	s := newService(t, &scriptedEngine{}, game.Config{})
	id, _, err := s.CreateGame(Overrides{Players: core.Players{White: core.PlayerComputer, Black: core.PlayerComputer}})
	if err != nil {
		t.Fatal(err)
	}
	waitForMoves(t, s, id, 6)
}

func TestRequestEngineMove(t *testing.T) {
	eng := &scriptedEngine{err: &engine.Failure{Reason: engine.ReasonTimeout}}
	s := newService(t, eng, game.Config{})
	id, g, err := s.CreateGame(Overrides{})
	if err != nil {
		t.Fatal(err)
	}

	if err := s.RequestEngineMove(id); !errors.Is(err, game.ErrNotEngineTurn) {
		t.Errorf("error = %v, want ErrNotEngineTurn", err)
	}

	if _, err := s.SubmitMove(context.Background(), id, "d2d4"); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(3 * time.Second)
	for g.Snapshot().State != core.StateStuck {
		if time.Now().After(deadline) {
			t.Fatalf("engine failure not reported, state %s", g.Snapshot().State)
		}
		time.Sleep(5 * time.Millisecond)
	}

	eng.err = nil
	deadline = time.Now().Add(3 * time.Second)
	for {
		err := s.RequestEngineMove(id)
		if err == nil {
			break
		}
		if !errors.Is(err, game.ErrEnginePending) || time.Now().After(deadline) {
			t.Fatalf("RequestEngineMove: %v", err)
		}
		time.Sleep(5 * time.Millisecond)
	}
	waitForMoves(t, s, id, 2)
}

func TestGameNotFound(t *testing.T) {
	s := newService(t, nil, game.Config{})
	if _, err := s.GetGame("missing"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("GetGame error = %v", err)
	}
	if err := s.DeleteGame("missing"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("DeleteGame error = %v", err)
	}
	if _, err := s.SubmitMove(context.Background(), "missing", "e2e4"); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("SubmitMove error = %v", err)
	}
}

func TestCreateWithoutEngine(t *testing.T) {
	s := New(Options{})
	defer s.Close(time.Second)

	if _, _, err := s.CreateGame(Overrides{}); !errors.Is(err, game.ErrNoEngine) {
		t.Errorf("error = %v, want ErrNoEngine", err)
	}
	id, _, err := s.CreateGame(Overrides{Players: core.Players{White: core.PlayerHuman, Black: core.PlayerHuman}})
	if err != nil {
		t.Fatal(err)
	}
	if s.GameCount() != 1 {
		t.Errorf("GameCount = %d", s.GameCount())
	}
	if _, err := s.Undo(id); !errors.Is(err, game.ErrHistoryEmpty) {
		t.Errorf("Undo error = %v, want ErrHistoryEmpty", err)
	}
}

func TestDeleteReleasesWaiters(t *testing.T) {
	s := newService(t, nil, game.Config{Players: core.Players{White: core.PlayerHuman, Black: core.PlayerHuman}})
	id, _, err := s.CreateGame(Overrides{})
	if err != nil {
		t.Fatal(err)
	}

	done := make(chan error, 1)
	go func() {
		_, err := s.WaitForChange(context.Background(), id, 0)
		done <- err
	}()

	deadline := time.Now().Add(time.Second)
	for s.waiter.Waiting(id) == 0 {
		if time.Now().After(deadline) {
			t.Fatal("waiter never registered")
		}
		time.Sleep(time.Millisecond)
	}
	if err := s.DeleteGame(id); err != nil {
		t.Fatal(err)
	}

	select {
	case err := <-done:
		if !errors.Is(err, ErrGameNotFound) {
			t.Errorf("WaitForChange error = %v, want ErrGameNotFound", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiter not released by delete")
	}
}

func TestClockLoopEndsGameOnTime(t *testing.T) {
	ft := &fakeTime{t: time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)}
	s := newService(t, nil, game.Config{
		Players:     core.Players{White: core.PlayerHuman, Black: core.PlayerHuman},
		TimeControl: 3 * time.Second,
		Now:         ft.Now,
	})
	id, g, err := s.CreateGame(Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	v, _ := s.Version(id)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.RunClockLoop(ctx, 5*time.Millisecond)

	ft.Advance(4 * time.Second)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer waitCancel()
	if _, err := s.WaitForChange(waitCtx, id, v); err != nil {
		t.Fatalf("WaitForChange: %v", err)
	}

	over, ok := g.IsGameOver()
	want := core.GameOver{Reason: core.ReasonTimeForfeit, Winner: core.ColorBlack}
	if !ok || over != want {
		t.Errorf("IsGameOver() = %v, %v; want %v", over, ok, want)
	}
}

func TestOverridesReplaceDefaults(t *testing.T) {
	s := newService(t, nil, game.Config{
		Players:       core.Players{White: core.PlayerHuman, Black: core.PlayerHuman},
		TimeControl:   5 * time.Minute,
		Increment:     2 * time.Second,
		FailurePolicy: game.PolicyForfeit,
	})

	_, g, err := s.CreateGame(Overrides{})
	if err != nil {
		t.Fatal(err)
	}
	if cfg := g.Config(); cfg.TimeControl != 5*time.Minute || cfg.Increment != 2*time.Second || cfg.FailurePolicy != game.PolicyForfeit {
		t.Errorf("defaults not applied: %+v", cfg)
	}

	untimed, noIncrement, keepTurn := time.Duration(0), time.Duration(0), game.PolicyKeepTurn
	_, g, err = s.CreateGame(Overrides{TimeControl: &untimed, Increment: &noIncrement, FailurePolicy: &keepTurn})
	if err != nil {
		t.Fatal(err)
	}
	cfg := g.Config()
	if cfg.TimeControl != 0 || cfg.Increment != 0 || cfg.FailurePolicy != game.PolicyKeepTurn {
		t.Errorf("explicit zero values replaced by defaults: %+v", cfg)
	}
	if !g.Snapshot().Untimed {
		t.Error("game with zero time control is timed")
	}
}
