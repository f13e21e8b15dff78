// Package log is a small key/value logger for the long-running parts of
// daygrid (web server, feed refresh). CLI commands write plain lines instead.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
)

type Level string

const (
	LevelDebug Level = "DEBUG"
	LevelInfo  Level = "INFO"
	LevelError Level = "ERROR"
)

var (
	mu       sync.RWMutex
	logger   *slog.Logger
	levelVar = new(slog.LevelVar)
	initOnce sync.Once
)

func initLogger() {
	initOnce.Do(func() {
		if l, ok := ParseLevel(os.Getenv("DAYGRID_LOG_LEVEL")); ok {
			levelVar.Set(l.toSlog())
		}
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: levelVar}))
	})
}

func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO":
		return LevelInfo, true
	case "ERROR":
		return LevelError, true
	default:
		return "", false
	}
}

func (l Level) toSlog() slog.Level {
	switch l {
	case LevelDebug:
		return slog.LevelDebug
	case LevelError:
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func SetLevel(l Level) {
	initLogger()
	levelVar.Set(l.toSlog())
}

// SetOutput redirects log lines, mainly for tests.
func SetOutput(w io.Writer) {
	initLogger()
	mu.Lock()
	defer mu.Unlock()
	logger = slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar}))
}

func current() *slog.Logger {
	initLogger()
	mu.RLock()
	defer mu.RUnlock()
	return logger
}

func Debug(msg string, kv ...any) {
	current().Log(context.Background(), slog.LevelDebug, msg, kv...)
}

func Info(msg string, kv ...any) {
	current().Log(context.Background(), slog.LevelInfo, msg, kv...)
}

func Error(msg string, err error, kv ...any) {
	current().Log(context.Background(), slog.LevelError, msg, append([]any{"err", err}, kv...)...)
}
