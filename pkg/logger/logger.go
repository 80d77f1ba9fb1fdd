package logger

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Setup configures the global zerolog logger. format is "console" or "json";
// an unknown level falls back to info.
func Setup(level, format string) {
	SetupTo(os.Stderr, level, format)
}

func SetupTo(w io.Writer, level, format string) {
	zerolog.TimeFieldFormat = time.RFC3339
	if strings.EqualFold(format, "json") {
		log.Logger = zerolog.New(w).With().Timestamp().Logger()
	} else {
		log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}).With().Timestamp().Logger()
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)
}

// Logger is a printf-style front for the global zerolog logger.
type Logger struct{}

func New() *Logger { return &Logger{} }

func (l *Logger) Infof(format string, args ...any) {
	log.Info().Msg(fmt.Sprintf(format, args...))
}
func (l *Logger) Warnf(format string, args ...any) {
	log.Warn().Msg(fmt.Sprintf(format, args...))
}
func (l *Logger) Errorf(format string, args ...any) {
	log.Error().Msg(fmt.Sprintf(format, args...))
}
