package logging

import (
	"io"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/bigbag/wuart/internal/config"
)

// Setup builds the process logger and installs it as the zerolog default.
// Debug forces the debug level regardless of cfg.Level.
func Setup(cfg config.LogConfig, out io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.Level)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	if cfg.Debug {
		level = zerolog.DebugLevel
	}

	w := out
	if cfg.Format != "json" {
		w = zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
			NoColor:    cfg.NoColor,
		}
	}

	logger := zerolog.New(w).Level(level).With().Timestamp().Logger()
	log.Logger = logger

	if cfg.Debug {
		logger.Warn().Msg("debug mode enabled")
	}
	if err != nil && cfg.Level != "" {
		logger.Warn().Str("level", cfg.Level).Msg("unknown log level, using info")
	}
	return logger
}
