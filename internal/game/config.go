package game

import (
	"fmt"
	"time"

	"chesscore/internal/board"
	"chesscore/internal/core"
	"chesscore/internal/engine"
)

// FailurePolicy decides what an engine timeout or failure costs.
type FailurePolicy int

const (
	// PolicyKeepTurn reports the failure and leaves the turn with the engine
	PolicyKeepTurn FailurePolicy = iota
	// PolicyForfeit ends the game, the engine side loses
	PolicyForfeit
)

func (p FailurePolicy) String() string {
	switch p {
	case PolicyForfeit:
		return "forfeit"
	default:
		return "keep-turn"
	}
}

func ParseFailurePolicy(s string) (FailurePolicy, error) {
	switch s {
	case "", "keep-turn", "keep":
		return PolicyKeepTurn, nil
	case "forfeit":
		return PolicyForfeit, nil
	}
	return 0, fmt.Errorf("invalid failure policy %q (use keep-turn or forfeit)", s)
}

func (p FailurePolicy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *FailurePolicy) UnmarshalText(text []byte) error {
	parsed, err := ParseFailurePolicy(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}

const DefaultMessageDuration = 2 * time.Second

type Config struct {
	Players    core.Players
	InitialFEN string
	// TimeControl is each side's starting time, zero plays untimed
	TimeControl time.Duration
	Increment   time.Duration
	// SearchTime is the engine's per-move budget
	SearchTime    time.Duration
	FailurePolicy FailurePolicy
	// AutoEngine makes SubmitMove play the engine reply before returning
	AutoEngine      bool
	MessageDuration time.Duration
	Now             func() time.Time
}

func (c Config) withDefaults() Config {
	if c.Players.White == 0 {
		c.Players.White = core.PlayerHuman
	}
	if c.Players.Black == 0 {
		c.Players.Black = core.PlayerComputer
	}
	if c.InitialFEN == "" {
		c.InitialFEN = board.StartingFEN
	}
	if c.SearchTime <= 0 {
		c.SearchTime = engine.DefaultMoveTime
	}
	if c.MessageDuration <= 0 {
		c.MessageDuration = DefaultMessageDuration
	}
	if c.Now == nil {
		c.Now = time.Now
	}
	return c
}
