// Package logging provides structured logging for git-ai using slog.
//
// Hooks run as short-lived processes, so the logger writes JSON lines to a
// single per-repo file (.git/ai/logs/git-ai.log) and falls back to stderr when
// the repo directory is not writable. Log level comes from the
// GIT_AI_LOG_LEVEL environment variable, then settings.
package logging

import (
	"bufio"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

// LogLevelEnvVar is the environment variable that controls log level.
const LogLevelEnvVar = "GIT_AI_LOG_LEVEL"

// LogFileName is the log file inside the repo's private ai directory.
const LogFileName = "git-ai.log"

var (
	logger       *slog.Logger
	logFile      *os.File
	logBufWriter *bufio.Writer
	mu           sync.RWMutex

	// logLevelGetter is an optional callback to get log level from settings,
	// set before Init to avoid a settings import cycle.
	logLevelGetter func() string
)

// SetLogLevelGetter sets a callback used when GIT_AI_LOG_LEVEL is not set.
func SetLogLevelGetter(getter func() string) {
	mu.Lock()
	defer mu.Unlock()
	logLevelGetter = getter
}

// Init initializes the logger, writing JSON lines to <aiDir>/logs/git-ai.log.
// Falls back to stderr if the file cannot be created.
func Init(aiDir string) error {
	mu.Lock()
	defer mu.Unlock()

	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}

	levelStr := os.Getenv(LogLevelEnvVar)
	if levelStr == "" && logLevelGetter != nil {
		levelStr = logLevelGetter()
	}
	level := parseLogLevel(levelStr)

	logsPath := filepath.Join(aiDir, "logs")
	if err := os.MkdirAll(logsPath, 0o750); err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	f, err := os.OpenFile(filepath.Join(logsPath, LogFileName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		logger = createLogger(os.Stderr, level)
		return nil
	}

	logFile = f
	logBufWriter = bufio.NewWriterSize(f, 8192)
	logger = createLogger(logBufWriter, level)
	return nil
}

// Close flushes and closes the log file. Safe to call multiple times.
func Close() {
	mu.Lock()
	defer mu.Unlock()

	if logBufWriter != nil {
		_ = logBufWriter.Flush()
		logBufWriter = nil
	}
	if logFile != nil {
		_ = logFile.Close()
		logFile = nil
	}
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
	case "INFO", "":
		return slog.LevelInfo
	case "WARN", "WARNING":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// Debug logs at DEBUG level.
func Debug(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelDebug, msg, attrs...) }

// Info logs at INFO level.
func Info(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelInfo, msg, attrs...) }

// Warn logs at WARN level.
func Warn(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelWarn, msg, attrs...) }

// Error logs at ERROR level.
func Error(ctx context.Context, msg string, attrs ...any) { log(ctx, slog.LevelError, msg, attrs...) }

// LogDuration logs a message with duration_ms calculated from the start time.
// Designed for use with defer:
//
//	defer logging.LogDuration(ctx, slog.LevelDebug, "hook executed", time.Now())
func LogDuration(ctx context.Context, level slog.Level, msg string, start time.Time, attrs ...any) {
	allAttrs := make([]any, 0, len(attrs)+1)
	allAttrs = append(allAttrs, slog.Int64("duration_ms", time.Since(start).Milliseconds()))
	allAttrs = append(allAttrs, attrs...)
	log(ctx, level, msg, allAttrs...)
}

func log(ctx context.Context, level slog.Level, msg string, attrs ...any) {
	l := getLogger()

	var allAttrs []any
	if v, ok := ctx.Value(hookKey).(string); ok && v != "" {
		allAttrs = append(allAttrs, slog.String("hook", v))
	}
	if v, ok := ctx.Value(componentKey).(string); ok && v != "" {
		allAttrs = append(allAttrs, slog.String("component", v))
	}
	allAttrs = append(allAttrs, attrs...)

	// Context values were already extracted as attributes.
	l.Log(context.Background(), level, msg, allAttrs...)
}
