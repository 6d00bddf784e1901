package logging

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	StyleJSON    = "json"
	StyleConsole = "console"
)

// New builds a logger. json uses zap's production encoder, console the
// development one. file redirects output away from stderr when set.
func New(level, style, file string) (*zap.Logger, error) {
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var cfg zap.Config
	switch style {
	case StyleJSON, "":
		cfg = zap.NewProductionConfig()
	case StyleConsole:
		cfg = zap.NewDevelopmentConfig()
	default:
		return nil, fmt.Errorf("unknown log style %q", style)
	}
	cfg.Level = lvl
	if file != "" {
		cfg.OutputPaths = []string{file}
		cfg.ErrorOutputPaths = []string{file}
	}
	return cfg.Build()
}
