package logger

import (
	"log/slog"
	"os"
)

// New returns the root structured logger. JSON output so log shippers can
// index attributes without parsing.
func New() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stdout, nil))
}
