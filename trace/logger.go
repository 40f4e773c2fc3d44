package trace

import (
	"context"
	"log/slog"
)

// Logger logs records at debug level
type Logger struct {
	logger *slog.Logger
}

// NewLogger creates a Logger
func NewLogger(logger *slog.Logger) *Logger {
	return &Logger{logger: logger}
}

func (l *Logger) Trace(r Record) {
	l.logger.LogAttrs(context.Background(), slog.LevelDebug, "tune step",
		slog.Uint64("cycle", uint64(r.Cycle)),
		slog.Int("step", r.Step),
		slog.String("state", r.State.String()),
		slog.Int("l", int(r.Config.L)),
		slog.Int("c", int(r.Config.C)),
		slog.String("topology", r.Config.Topology.String()),
		slog.String("swr", r.Score.String()),
	)
}
