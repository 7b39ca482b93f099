// Package logging provides structured logging for git-ai using slog.
//
// Usage:
//
//	defer logging.Init(sessionID)()
//	ctx = logging.WithComponent(ctx, "hooks")
//	logging.Info(ctx, "checkpoint appended", slog.String("file", path))
package logging

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevelEnvVar controls log level when set, overriding config.
const LogLevelEnvVar = "GITAI_LOG_LEVEL"

// LogsDir is the directory where log files are stored, relative to the
// repo-local AI directory.
const LogsDir = "logs"

var (
	logger       *slog.Logger
	logFile      *os.File
	logBufWriter *bufio.Writer
	currentID    string

	mu sync.RWMutex

	logLevelGetter func() string
)

// SetLogLevelGetter installs a callback used to read the configured log
// level when GITAI_LOG_LEVEL is unset. Avoids a config->logging import
// cycle.
func SetLogLevelGetter(getter func() string) {
	mu.Lock()
	defer mu.Unlock()
	logLevelGetter = getter
}

// Init initializes the logger for a session, writing JSON logs to
// <aiDir>/logs/<sessionID>.log. Falls back to stderr on any I/O error.
// Returns a cleanup function that should be deferred.
func Init(aiDir, sessionID string) func() {
	mu.Lock()
	defer mu.Unlock()

	flushLocked()

	levelStr := os.Getenv(LogLevelEnvVar)
	if levelStr == "" && logLevelGetter != nil {
		levelStr = logLevelGetter()
	}
	level := parseLogLevel(levelStr)

	if sessionID == "" {
		logger = createLogger(os.Stderr, level)
		return func() {}
	}

	logsPath := filepath.Join(aiDir, LogsDir)
	if err := os.MkdirAll(logsPath, 0o750); err != nil {
		logger = createLogger(os.Stderr, level)
		return func() {}
	}

	logFilePath := filepath.Join(logsPath, sessionID+".log")
	f, err := os.OpenFile(logFilePath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return func() {}
	}

	logFile = f
	logBufWriter = bufio.NewWriterSize(f, 8192)
	logger = createLogger(logBufWriter, level)
	currentID = sessionID

	return Close
}

// Close flushes and closes the log file if one is open. Safe to call
// multiple times.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	flushLocked()
}

func flushLocked() {
	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
	currentID = ""
}

func getLogger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	if logger == nil {
		return slog.Default()
	}
	return logger
}

func createLogger(w io.Writer, level slog.Level) *slog.Logger {
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

func parseLogLevel(s string) slog.Level {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

type ctxKey int

const (
	componentKey ctxKey = iota
	sessionIDKey
)

// WithComponent tags the context with a component name (e.g. "hooks",
// "commitpipeline") that is attached to every log line.
func WithComponent(ctx context.Context, component string) context.Context {
	return context.WithValue(ctx, componentKey, component)
}

// WithSession tags the context with a session id.
func WithSession(ctx context.Context, sessionID string) context.Context {
	return context.WithValue(ctx, sessionIDKey, sessionID)
}

func Debug(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelDebug, msg, attrs...) }
func Info(ctx context.Context, msg string, attrs ...any)  { log(ctx, slog.LevelInfo, msg, attrs...) }
func Warn(ctx context.Context, msg string, attrs ...any)  { log(ctx, slog.LevelWarn, msg, attrs...) }
func Error(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelError, msg, attrs...) }

// LogDuration logs msg with a duration_ms attribute computed from start.
func LogDuration(ctx context.Context, level slog.Level, msg string, start time.Time, attrs ...any) {
	all := make([]any, 0, len(attrs)+1)
	all = append(all, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	all = append(all, attrs...)
	log(ctx, level, msg, all...)
}

func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	l := getLogger()
	var all []any
	if ctx != nil {
		if v, ok := ctx.Value(componentKey).(string); ok && v != "" {
			all = append(all, slog.String("component", v))
		}
		if v, ok := ctx.Value(sessionIDKey).(string); ok && v != "" {
			all = append(all, slog.String("session_id", v))
		}
	}
	all = append(all, attrs...)
	l.Log(context.Background(), level, msg, all...)
}

// Warnf is a convenience for the hooks-mode stderr warning prefix
// required by spec §7 ("warnings are prefixed so they cannot be
// mistaken for git's own output").
func Warnf(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "[git-ai] Warning: "+format+"\n", args...)
}
