package main

import (
	"io"
	"log/slog"
)

// newLogger returns a JSON logger whose level can be changed through level
// while the process runs.
func newLogger(w io.Writer, level *slog.LevelVar) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}
