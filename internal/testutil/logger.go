package testutil

import (
	"io"
	"log/slog"

	"github.com/amadis/amblue/internal/log"
)

// QuietLogger returns a logger that only reports warnings and above, keeping
// test output readable while still surfacing problems.
func QuietLogger() log.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelWarn}))
}
