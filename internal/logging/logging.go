// Package logging configures the process-wide slog handler. It is
// installed once at startup by the CLI entrypoint and never touched
// again — the only process-wide mutable state the core permits, per the
// no-global-mutable-state design note.
package logging

import (
	"log/slog"
	"os"
)

// Environment selects the handler format: human-readable text in dev,
// structured JSON in prod (so log shippers can parse it).
type Environment string

const (
	Dev  Environment = "dev"
	Prod Environment = "prod"
)

// Setup installs a slog default logger for env at the given level and
// returns it for components that prefer explicit injection over
// slog.Default().
func Setup(env Environment, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if env == Prod {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

// ForBlock returns a logger with the block number attached, the
// convention every stage uses so logs concerning a specific block are
// greppable by it.
func ForBlock(logger *slog.Logger, blockNumber uint64) *slog.Logger {
	return logger.With(slog.Uint64("block_number", blockNumber))
}

// ForStage returns a logger tagged with the emitting stage's name.
func ForStage(logger *slog.Logger, stage string) *slog.Logger {
	return logger.With(slog.String("stage", stage))
}
