package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"
	"time"

	"chesscore/internal/board"

	"go.uber.org/zap"
)

const (
	DefaultMoveTime = 300 * time.Millisecond
	DefaultGrace    = time.Second

	// How long a finished engine gets to exit after "quit" before it is killed
	quitWait = 100 * time.Millisecond
	// Upper bound on waiting for a killed engine and its pipes
	killWait = 200 * time.Millisecond
	// Centipawn equivalent reported for forced mates
	mateScore = 100000
)

// State is the adapter's request lifecycle.
type State int

const (
	StateIdle State = iota
	StateRequesting
	StateAwaitingResponse
	StateCompleted
	StateTimedOut
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRequesting:
		return "requesting"
	case StateAwaitingResponse:
		return "awaiting response"
	case StateCompleted:
		return "completed"
	case StateTimedOut:
		return "timed out"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Option is a UCI setoption pair sent before the search.
type Option struct {
	Name  string `yaml:"name" json:"name"`
	Value string `yaml:"value" json:"value"`
}

type Config struct {
	// Grace is added to the move budget to form the hard deadline
	Grace time.Duration
	// Handshake sends uci/isready and waits for the replies first
	Handshake bool
	Options   []Option
}

// Request asks for a move in a position. The position is a copy, later
// changes to the live game do not affect validation.
type Request struct {
	Position board.Position
	Budget   time.Duration
}

func (r Request) FEN() string {
	return r.Position.FEN()
}

type SearchResult struct {
	BestMove board.Move
	Score    int
	Depth    int
	IsMate   bool
	MateIn   int
	Elapsed  time.Duration
}

// Adapter runs one engine process per request and validates its answer.
// At most one request is outstanding at a time.
type Adapter struct {
	launcher Launcher
	cfg      Config
	logger   *zap.Logger

	mu    sync.Mutex
	state State
	last  State
}

func New(launcher Launcher, cfg Config, logger *zap.Logger) *Adapter {
	if cfg.Grace <= 0 {
		cfg.Grace = DefaultGrace
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Adapter{
		launcher: launcher,
		cfg:      cfg,
		logger:   logger,
		last:     StateIdle,
	}
}

func (a *Adapter) State() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// LastOutcome is the terminal state of the most recent request, or
// StateIdle if none has finished.
func (a *Adapter) LastOutcome() State {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.last
}

func (a *Adapter) setState(s State) {
	a.mu.Lock()
	a.state = s
	a.mu.Unlock()
}

func (a *Adapter) finish(outcome State) {
	a.mu.Lock()
	a.last = outcome
	a.state = StateIdle
	a.mu.Unlock()
}

// RequestMove asks the engine for a move. Errors other than ErrBusy are
// *Failure values. The engine process is gone when RequestMove returns.
func (a *Adapter) RequestMove(ctx context.Context, req Request) (SearchResult, error) {
	a.mu.Lock()
	if a.state != StateIdle {
		a.mu.Unlock()
		return SearchResult{}, ErrBusy
	}
	a.state = StateRequesting
	a.mu.Unlock()

	if req.Budget <= 0 {
		req.Budget = DefaultMoveTime
	}
	start := time.Now()
	res, err := a.request(ctx, req)
	res.Elapsed = time.Since(start)

	var f *Failure
	switch {
	case err == nil:
		a.finish(StateCompleted)
		a.logger.Debug("engine move",
			zap.String("move", res.BestMove.String()),
			zap.Int("depth", res.Depth),
			zap.Int("score", res.Score),
			zap.Duration("elapsed", res.Elapsed))
	case errors.As(err, &f) && f.Reason == ReasonTimeout:
		a.finish(StateTimedOut)
		a.logger.Warn("engine timed out", zap.Duration("budget", req.Budget), zap.Duration("grace", a.cfg.Grace))
	default:
		a.finish(StateFailed)
		a.logger.Warn("engine request failed", zap.Error(err))
	}
	return res, err
}

type conversation struct {
	res SearchResult
	err error
}

func (a *Adapter) request(ctx context.Context, req Request) (SearchResult, error) {
	ctx, cancel := context.WithTimeout(ctx, req.Budget+a.cfg.Grace)
	defer cancel()

	proc, err := a.launcher.Launch(ctx)
	if err != nil {
		return SearchResult{}, &Failure{Reason: ReasonProcessError, Err: err}
	}
	a.setState(StateAwaitingResponse)

	done := make(chan conversation, 1)
	go func() {
		res, err := a.converse(proc, req)
		done <- conversation{res: res, err: err}
	}()

	select {
	case c := <-done:
		a.terminate(proc, c.err == nil)
		if c.err != nil {
			return SearchResult{}, c.err
		}
		return a.validate(req, c.res)
	case <-ctx.Done():
		if err := proc.Kill(); err != nil {
			a.logger.Debug("engine kill", zap.Error(err))
		}
		a.reap(proc, done)
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return SearchResult{}, &Failure{Reason: ReasonTimeout, Err: fmt.Errorf("no bestmove within %s", req.Budget+a.cfg.Grace)}
		}
		return SearchResult{}, &Failure{Reason: ReasonProcessError, Err: ctx.Err()}
	}
}

// terminate stops a process whose conversation has ended.
func (a *Adapter) terminate(proc Process, graceful bool) {
	exited := make(chan error, 1)
	if graceful {
		_, _ = io.WriteString(proc.Stdin(), "quit\n")
	}
	go func() { exited <- proc.Wait() }()

	if graceful {
		select {
		case <-exited:
			return
		case <-time.After(quitWait):
		}
	}
	if err := proc.Kill(); err != nil {
		a.logger.Debug("engine kill", zap.Error(err))
	}
	select {
	case <-exited:
	case <-time.After(killWait):
		a.logger.Warn("engine did not exit after kill")
	}
}

// reap waits, for at most killWait in total, for the reader goroutine and
// the process of a killed engine. Whatever is still blocked is abandoned.
func (a *Adapter) reap(proc Process, done <-chan conversation) {
	exited := make(chan struct{})
	go func() {
		<-done
		_ = proc.Wait()
		close(exited)
	}()
	select {
	case <-exited:
	case <-time.After(killWait):
		a.logger.Warn("engine did not exit after kill")
	}
}

func (a *Adapter) converse(proc Process, req Request) (SearchResult, error) {
	out := bufio.NewScanner(proc.Stdout())
	in := proc.Stdin()

	send := func(cmd string) error {
		a.logger.Debug("engine <", zap.String("cmd", cmd))
		if _, err := fmt.Fprintln(in, cmd); err != nil {
			return &Failure{Reason: ReasonProcessError, Err: err}
		}
		return nil
	}

	if a.cfg.Handshake {
		if err := send("uci"); err != nil {
			return SearchResult{}, err
		}
		if err := waitFor(out, "uciok"); err != nil {
			return SearchResult{}, err
		}
	}
	for _, opt := range a.cfg.Options {
		if err := send(fmt.Sprintf("setoption name %s value %s", opt.Name, opt.Value)); err != nil {
			return SearchResult{}, err
		}
	}
	if a.cfg.Handshake {
		if err := send("isready"); err != nil {
			return SearchResult{}, err
		}
		if err := waitFor(out, "readyok"); err != nil {
			return SearchResult{}, err
		}
	}

	if err := send("position fen " + req.FEN()); err != nil {
		return SearchResult{}, err
	}
	if err := send(fmt.Sprintf("go movetime %d", req.Budget.Milliseconds())); err != nil {
		return SearchResult{}, err
	}

	return readSearch(out)
}

func waitFor(out *bufio.Scanner, want string) error {
	for out.Scan() {
		if strings.TrimSpace(out.Text()) == want {
			return nil
		}
	}
	return fail(ReasonProcessError, "engine closed before %s: %w", want, scanErr(out))
}

func scanErr(out *bufio.Scanner) error {
	if err := out.Err(); err != nil {
		return err
	}
	return io.EOF
}

// readSearch consumes output until the first bestmove line. The move token
// is parsed but not checked for legality.
func readSearch(out *bufio.Scanner) (SearchResult, error) {
	var res SearchResult
	for out.Scan() {
		fields := strings.Fields(out.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "info":
			parseInfo(fields[1:], &res)
		case "bestmove":
			if len(fields) < 2 {
				return res, fail(ReasonMalformedOutput, "bestmove without a move")
			}
			token := fields[1]
			if token == "(none)" {
				return res, fail(ReasonNoMove, "engine reported no move")
			}
			m, err := board.ParseMove(token)
			if err != nil {
				return res, &Failure{Reason: ReasonMalformedOutput, Err: err}
			}
			res.BestMove = m
			return res, nil
		}
	}
	return res, fail(ReasonProcessError, "engine closed before bestmove: %w", scanErr(out))
}

func parseInfo(fields []string, res *SearchResult) {
	for i := 0; i < len(fields)-1; i++ {
		n, err := strconv.Atoi(fields[i+1])
		if err != nil {
			continue
		}
		switch fields[i] {
		case "depth":
			res.Depth = n
		case "cp":
			res.Score = n
			res.IsMate = false
			res.MateIn = 0
		case "mate":
			res.MateIn = n
			res.IsMate = true
			if n > 0 {
				res.Score = mateScore - n
			} else {
				res.Score = -mateScore - n
			}
		}
	}
}

// validate checks the move against the request's own snapshot.
func (a *Adapter) validate(req Request, res SearchResult) (SearchResult, error) {
	legal, ok := board.FromPosition(req.Position).Resolve(res.BestMove)
	if !ok {
		return SearchResult{}, fail(ReasonIllegalMove, "%s is not legal in %s", res.BestMove, req.FEN())
	}
	res.BestMove = legal
	return res, nil
}
