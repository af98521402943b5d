// Package logging configures slog for Homeboy. Logs always go to stderr so
// stdout stays reserved for the JSON envelope.
package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"
)

// LevelSilent is above every level slog emits.
const LevelSilent = slog.Level(1000)

// ParseLogLevel converts a --log-level value to a slog.Level. Unknown
// values fall back to info.
func ParseLogLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warning", "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	case "silent", "none":
		return LevelSilent
	default:
		return slog.LevelInfo
	}
}

// ValidLogLevels returns the accepted --log-level values
func ValidLogLevels() []string {
	return []string{"debug", "info", "warning", "error", "silent"}
}

// NewLogger returns a text logger writing to w at the given level.
func NewLogger(w io.Writer, logLevel string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{
		Level: ParseLogLevel(logLevel),
	}))
}

// InitLogging installs a stderr logger at logLevel as the slog default.
func InitLogging(logLevel string) {
	slog.SetDefault(NewLogger(os.Stderr, logLevel))
}

// LogLevel is the --log-level flag. Its zero state is silent.
var LogLevel = &logLevelFlag{value: "silent", set: false}

type logLevelFlag struct {
	value string
	set   bool
}

func (l *logLevelFlag) Set(value string) error {
	if !slices.Contains(ValidLogLevels(), value) {
		return fmt.Errorf("invalid value '%s'. Allowed values: %s",
			value, strings.Join(ValidLogLevels(), ", "))
	}
	l.value = value
	l.set = true
	return nil
}

func (l *logLevelFlag) String() string {
	return l.value
}

func (l *logLevelFlag) Type() string {
	return fmt.Sprintf("one of [%s]", strings.Join(ValidLogLevels(), "|"))
}

// IsSet returns true if the flag was explicitly set via command line
func (l *logLevelFlag) IsSet() bool {
	return l.set
}

// Reset clears a previous Set. Commands built repeatedly in one process
// (tests) use it to start from the default.
func (l *logLevelFlag) Reset() {
	l.value = "silent"
	l.set = false
}
