package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"chesscore/internal/board"
	"chesscore/internal/core"
	"chesscore/internal/engine"
	"chesscore/internal/game"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override
const EnvPrefix = "CHESS_"

type Config struct {
	Logs   LogConfig    `yaml:"logs"`
	Engine EngineConfig `yaml:"engine"`
	Game   GameConfig   `yaml:"game"`
	Server ServerConfig `yaml:"server"`
}

type LogConfig struct {
	Style string `yaml:"style" validate:"oneof=json console"`
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	File  string `yaml:"file"`
}

type EngineConfig struct {
	Path      string          `yaml:"path" validate:"required"`
	Args      []string        `yaml:"args"`
	MoveTime  time.Duration   `yaml:"move_time" validate:"gt=0"`
	Grace     time.Duration   `yaml:"grace" validate:"gte=0"`
	Handshake bool            `yaml:"handshake"`
	Options   []engine.Option `yaml:"options" validate:"dive"`
	Workers   int             `yaml:"workers" validate:"min=1,max=64"`
}

type GameConfig struct {
	White         core.PlayerType    `yaml:"white" validate:"oneof=1 2"`
	Black         core.PlayerType    `yaml:"black" validate:"oneof=1 2"`
	InitialFEN    string             `yaml:"initial_fen" validate:"omitempty,fen"`
	TimeControl   time.Duration      `yaml:"time_control" validate:"gte=0"`
	Increment     time.Duration      `yaml:"increment" validate:"gte=0"`
	FailurePolicy game.FailurePolicy `yaml:"failure_policy"`
}

type ServerConfig struct {
	Host        string `yaml:"host"`
	Port        int    `yaml:"port" validate:"min=1,max=65535"`
	RateLimit   int    `yaml:"rate_limit" validate:"min=1"`
	CORSOrigins string `yaml:"cors_origins"`
	// Proxies whose X-Forwarded-For is believed for client addresses
	TrustedProxies []string      `yaml:"trusted_proxies" validate:"dive,ip|cidr"`
	WaitTimeout    time.Duration `yaml:"wait_timeout" validate:"gt=0"`
	ClockInterval  time.Duration `yaml:"clock_interval" validate:"gt=0"`
	PIDFile        string        `yaml:"pid_file"`
}

// Default mirrors a five minute game against stockfish at 300ms per move.
func Default() *Config {
	return &Config{
		Logs: LogConfig{Style: "json", Level: "info"},
		Engine: EngineConfig{
			Path:     "stockfish",
			MoveTime: engine.DefaultMoveTime,
			Grace:    engine.DefaultGrace,
			Workers:  2,
		},
		Game: GameConfig{
			White:       core.PlayerHuman,
			Black:       core.PlayerComputer,
			TimeControl: 5 * time.Minute,
		},
		Server: ServerConfig{
			Host:          "localhost",
			Port:          8080,
			RateLimit:     20,
			CORSOrigins:   "*",
			WaitTimeout:   25 * time.Second,
			ClockInterval: 100 * time.Millisecond,
		},
	}
}

// Load builds the configuration from defaults, an optional YAML file, an
// optional .env file and CHESS_* environment variables, in that order.
// A missing envFile is not an error.
func Load(configFile, envFile string) (*Config, error) {
	cfg := Default()

	if configFile != "" {
		data, err := os.ReadFile(configFile)
		if err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
		if err := decodeYAML(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", configFile, err)
		}
	}

	if envFile != "" {
		// Existing environment variables win over the file
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decodeYAML(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

type lookupFunc func(string) (string, bool)

func (c *Config) applyEnv(lookup lookupFunc) error {
	var errs []error
	str := func(key string, dst *string) {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = v
		}
	}
	num := func(key string, dst *int) {
		if v, ok := lookup(EnvPrefix + key); ok {
			n, err := strconv.Atoi(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = n
		}
	}
	dur := func(key string, dst *time.Duration) {
		if v, ok := lookup(EnvPrefix + key); ok {
			d, err := time.ParseDuration(v)
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
				return
			}
			*dst = d
		}
	}
	text := func(key string, dst interface{ UnmarshalText([]byte) error }) {
		if v, ok := lookup(EnvPrefix + key); ok {
			if err := dst.UnmarshalText([]byte(v)); err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, key, err))
			}
		}
	}

	str("LOG_STYLE", &c.Logs.Style)
	str("LOG_LEVEL", &c.Logs.Level)
	str("LOG_FILE", &c.Logs.File)

	str("ENGINE_PATH", &c.Engine.Path)
	if v, ok := lookup(EnvPrefix + "ENGINE_ARGS"); ok {
		c.Engine.Args = strings.Fields(v)
	}
	dur("ENGINE_MOVE_TIME", &c.Engine.MoveTime)
	dur("ENGINE_GRACE", &c.Engine.Grace)
	num("ENGINE_WORKERS", &c.Engine.Workers)
	if v, ok := lookup(EnvPrefix + "ENGINE_HANDSHAKE"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			errs = append(errs, fmt.Errorf("%sENGINE_HANDSHAKE: %w", EnvPrefix, err))
		} else {
			c.Engine.Handshake = b
		}
	}

	text("WHITE", &c.Game.White)
	text("BLACK", &c.Game.Black)
	str("INITIAL_FEN", &c.Game.InitialFEN)
	dur("TIME_CONTROL", &c.Game.TimeControl)
	dur("INCREMENT", &c.Game.Increment)
	text("FAILURE_POLICY", &c.Game.FailurePolicy)

	str("HOST", &c.Server.Host)
	num("PORT", &c.Server.Port)
	num("RATE_LIMIT", &c.Server.RateLimit)
	str("CORS_ORIGINS", &c.Server.CORSOrigins)
	if v, ok := lookup(EnvPrefix + "TRUSTED_PROXIES"); ok {
		c.Server.TrustedProxies = strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == ' ' })
	}
	dur("WAIT_TIMEOUT", &c.Server.WaitTimeout)
	dur("CLOCK_INTERVAL", &c.Server.ClockInterval)
	str("PID_FILE", &c.Server.PIDFile)

	return errors.Join(errs...)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("fen", func(fl validator.FieldLevel) bool {
		_, err := board.ParseFEN(fl.Field().String())
		return err == nil
	})
	return v
}

// Validate reports every invalid field.
func (c *Config) Validate() error {
	err := validate.Struct(c)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s: failed %q (value %v)", fe.Namespace(), fe.Tag(), fe.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(msgs, "; "))
}

// GameDefaults converts the game section for the controller.
func (c *Config) GameDefaults() game.Config {
	return game.Config{
		Players:       core.Players{White: c.Game.White, Black: c.Game.Black},
		InitialFEN:    c.Game.InitialFEN,
		TimeControl:   c.Game.TimeControl,
		Increment:     c.Game.Increment,
		SearchTime:    c.Engine.MoveTime,
		FailurePolicy: c.Game.FailurePolicy,
	}
}

func (c *Config) Launcher() engine.ExecLauncher {
	return engine.ExecLauncher{Path: c.Engine.Path, Args: c.Engine.Args}
}

func (c *Config) EngineConfig() engine.Config {
	return engine.Config{
		Grace:     c.Engine.Grace,
		Handshake: c.Engine.Handshake,
		Options:   c.Engine.Options,
	}
}

func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
