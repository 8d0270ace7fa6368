package commands

import (
	"log/slog"
	"os"
)

var logger *slog.Logger

// LUMIVAULT_DEBUG follows the same prefix convention as the config env
// overrides, so one prefix covers everything tunable from the outside.
func init() {
	level := slog.LevelInfo
	if os.Getenv("LUMIVAULT_DEBUG") != "" {
		level = slog.LevelDebug
	}

	opts := &slog.HandlerOptions{
		Level: level,
	}
	logger = slog.New(slog.NewTextHandler(os.Stderr, opts))
}
