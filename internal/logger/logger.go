package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/bilal/nocturne-agent/internal/config"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func Init(lcfg config.LoggingConfig) {
	InitWithWriter(lcfg, os.Stderr)
}

// InitWithWriter configures the global zerolog logger to write to out.
func InitWithWriter(lcfg config.LoggingConfig, out io.Writer) {
	// level
	level := strings.ToLower(lcfg.Level)
	levelVal := zerolog.InfoLevel
	switch level {
	case "debug":
		levelVal = zerolog.DebugLevel
	case "info":
		levelVal = zerolog.InfoLevel
	case "warn", "warning":
		levelVal = zerolog.WarnLevel
	case "error":
		levelVal = zerolog.ErrorLevel
	}
	zerolog.SetGlobalLevel(levelVal)

	// format
	if strings.ToLower(lcfg.Format) == "console" {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	} else {
		// default json
		log.Logger = zerolog.New(out).With().Timestamp().Logger()
	}
}

// Component returns a child of the global logger tagged with component.
func Component(name string) zerolog.Logger {
	return log.With().Str("component", name).Logger()
}
