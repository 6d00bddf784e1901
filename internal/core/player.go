package core

import "fmt"

type PlayerType int

const (
	PlayerHuman PlayerType = iota + 1
	PlayerComputer
)

func (p PlayerType) String() string {
	switch p {
	case PlayerHuman:
		return "human"
	case PlayerComputer:
		return "computer"
	default:
		return "unknown"
	}
}

// ParsePlayerType accepts the short and long forms used by the CLI and config
func ParsePlayerType(s string) (PlayerType, error) {
	switch s {
	case "h", "human":
		return PlayerHuman, nil
	case "c", "computer", "engine":
		return PlayerComputer, nil
	}
	return 0, fmt.Errorf("invalid player type %q (use human or computer)", s)
}

// Players maps each side to who controls it
type Players struct {
	White PlayerType `json:"white" yaml:"white"`
	Black PlayerType `json:"black" yaml:"black"`
}

func (p Players) For(c Color) PlayerType {
	if c == ColorBlack {
		return p.Black
	}
	return p.White
}

func (p PlayerType) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

func (p *PlayerType) UnmarshalText(text []byte) error {
	parsed, err := ParsePlayerType(string(text))
	if err != nil {
		return err
	}
	*p = parsed
	return nil
}
