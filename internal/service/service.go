package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"chesscore/internal/core"
	"chesscore/internal/game"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

var ErrGameNotFound = errors.New("game not found")

// EngineFactory builds the move source for one game
type EngineFactory func() game.Mover

type Options struct {
	// Defaults apply to every setting a game's Overrides leave unset
	Defaults    game.Config
	NewEngine   EngineFactory
	Workers     int
	QueueSize   int
	WaitTimeout time.Duration
	Logger      *zap.Logger
}

// session is a registered game plus its change counter
type session struct {
	ctrl *game.Controller

	mu      sync.Mutex
	version int
	queued  bool
}

// Service keeps the games of one process and drives their engine turns
type Service struct {
	games     map[string]*session
	mu        sync.RWMutex
	defaults  game.Config
	newEngine EngineFactory
	queue     *EngineQueue
	waiter    *WaitRegistry
	logger    *zap.Logger
}

func New(opts Options) *Service {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		games:     make(map[string]*session),
		defaults:  opts.Defaults,
		newEngine: opts.NewEngine,
		queue:     NewEngineQueue(opts.Workers, opts.QueueSize, logger.Named("queue")),
		waiter:    NewWaitRegistry(opts.WaitTimeout),
		logger:    logger,
	}
}

// Overrides are per-game settings on top of the server defaults. Zero
// Players, InitialFEN and SearchTime keep the default, as do nil pointers,
// so an explicit zero TimeControl asks for an untimed game.
type Overrides struct {
	Players       core.Players
	InitialFEN    string
	TimeControl   *time.Duration
	Increment     *time.Duration
	SearchTime    time.Duration
	FailurePolicy *game.FailurePolicy
}

func (s *Service) configure(o Overrides) game.Config {
	cfg := s.defaults
	if o.Players.White != 0 {
		cfg.Players.White = o.Players.White
	}
	if o.Players.Black != 0 {
		cfg.Players.Black = o.Players.Black
	}
	if cfg.Players.White == 0 {
		cfg.Players.White = core.PlayerHuman
	}
	if cfg.Players.Black == 0 {
		cfg.Players.Black = core.PlayerComputer
	}
	if o.InitialFEN != "" {
		cfg.InitialFEN = o.InitialFEN
	}
	if o.TimeControl != nil {
		cfg.TimeControl = *o.TimeControl
	}
	if o.Increment != nil {
		cfg.Increment = *o.Increment
	}
	if o.SearchTime != 0 {
		cfg.SearchTime = o.SearchTime
	}
	if o.FailurePolicy != nil {
		cfg.FailurePolicy = *o.FailurePolicy
	}
	// Engine turns go through the queue
	cfg.AutoEngine = false
	return cfg
}

// CreateGame registers a new game and schedules the engine if it moves first
func (s *Service) CreateGame(o Overrides) (string, *game.Controller, error) {
	cfg := s.configure(o)

	var eng game.Mover
	if cfg.Players.White == core.PlayerComputer || cfg.Players.Black == core.PlayerComputer {
		if s.newEngine == nil {
			return "", nil, game.ErrNoEngine
		}
		eng = s.newEngine()
	}

	id := s.GenerateGameID()
	ctrl, err := game.New(cfg, eng, s.logger.With(zap.String("game", id)))
	if err != nil {
		return "", nil, err
	}

	s.mu.Lock()
	s.games[id] = &session{ctrl: ctrl}
	s.mu.Unlock()

	s.logger.Info("game created",
		zap.String("game", id),
		zap.Stringer("white", cfg.Players.White),
		zap.Stringer("black", cfg.Players.Black))

	s.scheduleEngine(id)
	return id, ctrl, nil
}

// GenerateGameID creates a new unique game ID
func (s *Service) GenerateGameID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for {
		id := uuid.New().String()
		if _, exists := s.games[id]; !exists {
			return id
		}
	}
}

func (s *Service) session(id string) (*session, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.games[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	return sess, nil
}

// GetGame retrieves a game by ID
func (s *Service) GetGame(id string) (*game.Controller, error) {
	sess, err := s.session(id)
	if err != nil {
		return nil, err
	}
	return sess.ctrl, nil
}

// Version is the game's change counter used by long-poll clients
func (s *Service) Version(id string) (int, error) {
	sess, err := s.session(id)
	if err != nil {
		return 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.version, nil
}

// DeleteGame removes a game and releases its waiters
func (s *Service) DeleteGame(id string) error {
	s.mu.Lock()
	if _, ok := s.games[id]; !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrGameNotFound, id)
	}
	delete(s.games, id)
	s.mu.Unlock()

	s.waiter.RemoveGame(id)
	s.logger.Info("game deleted", zap.String("game", id))
	return nil
}

// GameCount reports how many games are registered
func (s *Service) GameCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.games)
}

// SubmitMove plays a human move and queues the engine reply if due
func (s *Service) SubmitMove(ctx context.Context, id, uci string) (game.Ack, error) {
	sess, err := s.session(id)
	if err != nil {
		return game.Ack{}, err
	}
	ack, err := sess.ctrl.SubmitUCI(ctx, uci)
	if err != nil {
		return ack, err
	}
	s.changed(id, sess)
	s.scheduleEngine(id)
	return ack, nil
}

// Undo and Redo never start the engine, so several steps can be taken in a
// row. RequestEngineMove resumes play.
func (s *Service) Undo(id string) (game.Ack, error) {
	sess, err := s.session(id)
	if err != nil {
		return game.Ack{}, err
	}
	ack, err := sess.ctrl.Undo()
	if err != nil {
		return ack, err
	}
	s.changed(id, sess)
	return ack, nil
}

func (s *Service) Redo(id string) (game.Ack, error) {
	sess, err := s.session(id)
	if err != nil {
		return game.Ack{}, err
	}
	ack, err := sess.ctrl.Redo()
	if err != nil {
		return ack, err
	}
	s.changed(id, sess)
	return ack, nil
}

// RequestEngineMove queues an engine turn, for example after an undo or a
// failed request left the turn with the engine.
func (s *Service) RequestEngineMove(id string) error {
	sess, err := s.session(id)
	if err != nil {
		return err
	}
	if !sess.ctrl.NeedsEngine() {
		snap := sess.ctrl.Snapshot()
		switch {
		case snap.Pending:
			return game.ErrEnginePending
		case snap.Over.Reason != core.ReasonNone:
			return game.ErrGameOver
		default:
			return game.ErrNotEngineTurn
		}
	}
	return s.submitEngine(id, sess)
}

// scheduleEngine queues the engine when it is its turn; errors are logged
func (s *Service) scheduleEngine(id string) {
	sess, err := s.session(id)
	if err != nil || !sess.ctrl.NeedsEngine() {
		return
	}
	if err := s.submitEngine(id, sess); err != nil {
		s.logger.Warn("engine turn not queued", zap.String("game", id), zap.Error(err))
	}
}

func (s *Service) submitEngine(id string, sess *session) error {
	sess.mu.Lock()
	if sess.queued {
		sess.mu.Unlock()
		return game.ErrEnginePending
	}
	sess.queued = true
	sess.mu.Unlock()

	err := s.queue.SubmitAsync(id, sess.ctrl, func(res EngineResult) {
		sess.mu.Lock()
		sess.queued = false
		sess.mu.Unlock()
		if res.Error != nil && !errors.Is(res.Error, game.ErrGameOver) {
			s.logger.Warn("engine turn failed", zap.String("game", id), zap.Error(res.Error))
		}
		s.changed(id, sess)
		if res.Error == nil {
			// The other side may be an engine too
			s.scheduleEngine(id)
		}
	})
	if err != nil {
		sess.mu.Lock()
		sess.queued = false
		sess.mu.Unlock()
	}
	return err
}

// changed bumps the version and wakes waiters
func (s *Service) changed(id string, sess *session) {
	sess.mu.Lock()
	sess.version++
	v := sess.version
	s.waiter.NotifyGame(id, v)
	sess.mu.Unlock()
}

// WaitForChange blocks until the game's version differs from version, the
// wait times out, or ctx ends. It returns the current version.
func (s *Service) WaitForChange(ctx context.Context, id string, version int) (int, error) {
	sess, err := s.session(id)
	if err != nil {
		return 0, err
	}

	sess.mu.Lock()
	ch := s.waiter.RegisterWait(ctx, id, version, sess.version)
	sess.mu.Unlock()

	select {
	case <-ch:
	case <-ctx.Done():
		return 0, ctx.Err()
	}

	if _, err := s.session(id); err != nil {
		return 0, err
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	return sess.version, nil
}

// RunClockLoop ticks every game's clock until ctx ends
func (s *Service) RunClockLoop(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tickAll()
		}
	}
}

func (s *Service) tickAll() {
	s.mu.RLock()
	ids := make([]string, 0, len(s.games))
	sessions := make([]*session, 0, len(s.games))
	for id, sess := range s.games {
		ids = append(ids, id)
		sessions = append(sessions, sess)
	}
	s.mu.RUnlock()

	for i, sess := range sessions {
		if sess.ctrl.Tick() {
			over, _ := sess.ctrl.IsGameOver()
			s.logger.Info("game over on time", zap.String("game", ids[i]), zap.String("result", over.String()))
			s.changed(ids[i], sess)
		}
	}
}

// Close stops the engine workers and releases all waiters
func (s *Service) Close(timeout time.Duration) error {
	qErr := s.queue.Shutdown(timeout)
	wErr := s.waiter.Shutdown(timeout)

	s.mu.Lock()
	s.games = make(map[string]*session)
	s.mu.Unlock()

	return errors.Join(qErr, wErr)
}
