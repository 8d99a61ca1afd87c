package infrastructure

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"marketlens/internal/config"
)

// logState is the process-wide logger and the file it may write to.
var logState struct {
	once   sync.Once
	logger *slog.Logger

	mu   sync.Mutex
	file *os.File
}

// InitializeLogger builds the JSON logger described by cfg and installs it
// as the slog default. Later calls return the first logger unchanged.
func InitializeLogger(cfg config.LoggingConfig) (*slog.Logger, error) {
	var err error
	logState.once.Do(func() {
		var w io.Writer
		if w, err = logOutput(cfg); err != nil {
			return
		}
		logState.logger = NewLogger(w, cfg.Level)
		slog.SetDefault(logState.logger)
	})
	return logState.logger, err
}

// GetLogger returns the initialized logger, or slog.Default before
// InitializeLogger has run.
func GetLogger() *slog.Logger {
	if logState.logger == nil {
		return slog.Default()
	}
	return logState.logger
}

// logOutput resolves the configured destination. "file" and "both" open
// cfg.FilePath for appending.
func logOutput(cfg config.LoggingConfig) (io.Writer, error) {
	mode := strings.ToLower(cfg.Output)
	switch mode {
	case "stderr":
		return os.Stderr, nil
	case "file", "both":
		f, err := appendFile(cfg.FilePath)
		if err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
		logState.mu.Lock()
		logState.file = f
		logState.mu.Unlock()
		if mode == "both" {
			return io.MultiWriter(os.Stdout, f), nil
		}
		return f, nil
	default:
		return os.Stdout, nil
	}
}

func appendFile(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
}

// NewLogger returns a JSON logger on w at the named level. Records logged
// with a context carrying a trace ID get a trace_id attribute.
func NewLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(traceHandler{slog.NewJSONHandler(w, &slog.HandlerOptions{
		AddSource: true,
		Level:     parseLogLevel(level),
	})})
}

type traceHandler struct {
	slog.Handler
}

func (h traceHandler) Handle(ctx context.Context, r slog.Record) error {
	if id := GetTraceID(ctx); id != "" {
		r.AddAttrs(slog.String("trace_id", id))
	}
	return h.Handler.Handle(ctx, r)
}

func (h traceHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return traceHandler{h.Handler.WithAttrs(attrs)}
}

func (h traceHandler) WithGroup(name string) slog.Handler {
	return traceHandler{h.Handler.WithGroup(name)}
}

// parseLogLevel accepts debug, info, warn/warning and error in any case.
// Anything else is info.
func parseLogLevel(level string) slog.Level {
	l := strings.ToLower(strings.TrimSpace(level))
	if l == "warning" {
		l = "warn"
	}
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(l)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}

// CloseLogFile closes the log file opened by InitializeLogger, if any.
func CloseLogFile() error {
	logState.mu.Lock()
	defer logState.mu.Unlock()
	if logState.file == nil {
		return nil
	}
	err := logState.file.Close()
	logState.file = nil
	return err
}

// ResetLoggerForTesting lets a test initialize the logger again.
func ResetLoggerForTesting() {
	_ = CloseLogFile()
	logState.logger = nil
	logState.once = sync.Once{}
}
