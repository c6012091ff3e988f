// Package nlog provides structured logging for the engine using slog,
// with JSON file output rotated via lumberjack and human-readable console output.
package nlog

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	structuredLogger *slog.Logger
	consoleLogger    *slog.Logger
	loggerMu         sync.RWMutex
	currentLevel     = new(slog.LevelVar)
	initOnce         sync.Once
)

const (
	LevelTrace = slog.Level(-8)
	LevelFatal = slog.Level(12)
)

var levelNames = map[slog.Leveler]string{
	LevelTrace: "TRACE",
	LevelFatal: "FATAL",
}

func replaceAttr(groups []string, a slog.Attr) slog.Attr {
	if a.Key == slog.TimeKey && a.Value.Kind() == slog.KindTime {
		a.Value = slog.StringValue(a.Value.Time().Format("2006-01-02T15:04:05Z07:00"))
	}
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			label, exists := levelNames[level]
			if !exists {
				label = level.String()
			}
			a.Value = slog.StringValue(label)
		}
	}
	if a.Value.Kind() == slog.KindFloat64 {
		truncated := math.Trunc(a.Value.Float64()*100) / 100.0
		a.Value = slog.Float64Value(truncated)
	}
	return a
}

// Init sets up the global structured (JSON, file) and console (text, stderr)
// loggers. logDir defaults to "logs" when empty.
func Init(logDir string) {
	initOnce.Do(func() {
		currentLevel.Set(slog.LevelInfo)
		if logDir == "" {
			logDir = "logs"
		}
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			fmt.Fprintf(os.Stderr, "nlog: failed to create log directory: %v\n", err)
		}

		fileWriter := &lumberjack.Logger{
			Filename:   filepath.Join(logDir, "nueva.log"),
			MaxSize:    50,
			MaxBackups: 5,
			MaxAge:     28,
			Compress:   true,
		}

		jsonHandler := slog.NewJSONHandler(fileWriter, &slog.HandlerOptions{
			Level:       currentLevel,
			ReplaceAttr: replaceAttr,
		})
		textHandler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level:       currentLevel,
			ReplaceAttr: replaceAttr,
		})

		loggerMu.Lock()
		structuredLogger = slog.New(jsonHandler)
		consoleLogger = slog.New(textHandler)
		loggerMu.Unlock()

		slog.SetDefault(structuredLogger)
	})
}

// SetLevel adjusts the minimum level for both loggers.
func SetLevel(level slog.Level) { currentLevel.Set(level) }

// SetOutput redirects both loggers, useful in tests. Callers own the writers.
func SetOutput(structured, console io.Writer) {
	jsonHandler := slog.NewJSONHandler(structured, &slog.HandlerOptions{
		Level:       currentLevel,
		ReplaceAttr: replaceAttr,
	})
	textHandler := slog.NewTextHandler(console, &slog.HandlerOptions{
		Level:       currentLevel,
		ReplaceAttr: replaceAttr,
	})
	loggerMu.Lock()
	structuredLogger = slog.New(jsonHandler)
	consoleLogger = slog.New(textHandler)
	loggerMu.Unlock()
	slog.SetDefault(structuredLogger)
}

// ForComponent returns a logger tagged with the given component name.
// Returns a discard logger if Init has not run yet, so packages can hold
// a *slog.Logger field at construction time before Init is called.
func ForComponent(name string) *slog.Logger {
	loggerMu.RLock()
	logger := structuredLogger
	loggerMu.RUnlock()
	if logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return logger.With("component", name)
}

func Debug(msg string, args ...any) { slog.Debug(msg, args...) }
func Info(msg string, args ...any)  { slog.Info(msg, args...) }
func Warn(msg string, args ...any)  { slog.Warn(msg, args...) }
func Error(msg string, args ...any) { slog.Error(msg, args...) }

func Trace(msg string, args ...any) {
	slog.Log(context.Background(), LevelTrace, msg, args...)
}

func Fatal(msg string, args ...any) {
	slog.Log(context.Background(), LevelFatal, msg, args...)
	os.Exit(1)
}
