package logger

import (
	"io"
	"log/slog"
	"os"

	charmlog "github.com/charmbracelet/log"
)

func New(env string) *slog.Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter logs JSON in prod and colored text elsewhere.
func NewWithWriter(env string, w io.Writer) *slog.Logger {
	var h slog.Handler
	if env == "prod" {
		h = slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo})
	} else {
		h = charmlog.NewWithOptions(w, charmlog.Options{
			Level:           charmlog.DebugLevel,
			ReportTimestamp: true,
			TimeFormat:      "15:04:05",
		})
	}
	return slog.New(h)
}
