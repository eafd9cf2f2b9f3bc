package observability

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/couchcryptid/occultation-etl/internal/config"
	sharedobs "github.com/couchcryptid/storm-data-shared/observability"
)

const serviceName = "occultation-etl"

// NewLogger builds the service logger from LOG_LEVEL and LOG_FORMAT. It writes
// to stdout and becomes the slog default.
func NewLogger(cfg *config.Config) *slog.Logger {
	return sharedobs.NewLogger(cfg.LogLevel, cfg.LogFormat).With("service", serviceName)
}

// NewCLILogger is NewLogger for the batch command. It writes to stderr, since
// stdout carries the failure report and summary.
func NewCLILogger(cfg *config.Config) *slog.Logger {
	logger := newCLILogger(os.Stderr, cfg.LogLevel, cfg.LogFormat)
	slog.SetDefault(logger)
	return logger
}

func newCLILogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(strings.TrimSpace(level))); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}

	var h slog.Handler
	if strings.EqualFold(format, "text") {
		h = slog.NewTextHandler(w, opts)
	} else {
		h = slog.NewJSONHandler(w, opts)
	}
	return slog.New(h).With("service", serviceName)
}
