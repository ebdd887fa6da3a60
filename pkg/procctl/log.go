package procctl

import (
	"log/slog"
	"os"
	"strings"
	"sync/atomic"
)

// LogLevelEnv sets the level of the package logger (debug, info, warn, error).
// The default level is warn.
const LogLevelEnv = "PROCCTL_LOG_LEVEL"

var internalLogger atomic.Pointer[slog.Logger]

func init() {
	level := slog.LevelWarn
	if v := os.Getenv(LogLevelEnv); v != "" {
		var l slog.Level
		if err := l.UnmarshalText([]byte(strings.TrimSpace(v))); err == nil {
			level = l
		}
	}
	internalLogger.Store(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})).
		With("component", "procctl"))
}

// SetLogger replaces the package logger. A nil logger discards everything.
func SetLogger(l *slog.Logger) {
	if l == nil {
		l = slog.New(slog.DiscardHandler)
	}
	internalLogger.Store(l)
}

func logger() *slog.Logger {
	return internalLogger.Load()
}
