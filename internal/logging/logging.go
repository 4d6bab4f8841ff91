// Package logging provides component-tagged structured logging backed by
// zerolog, with optional file output and size-based rotation.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
)

// ParseLevel converts a string to a zerolog level. Unknown strings map to info.
func ParseLevel(s string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// Field represents a key-value pair for structured logging
type Field struct {
	Key   string
	Value interface{}
}

// F creates a new Field (shorthand for structured logging)
func F(key string, value interface{}) Field {
	return Field{Key: key, Value: value}
}

// Config holds logger configuration
type Config struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	Format     string `mapstructure:"format"`      // console, json, auto (default)
	File       string `mapstructure:"file"`        // log file path (empty = stderr only)
	MaxSizeMB  int    `mapstructure:"max_size_mb"` // max size before rotation (default: 10)
	MaxBackups int    `mapstructure:"max_backups"` // number of backups to keep (default: 5)

	// Output replaces stderr, mainly for tests.
	Output io.Writer `mapstructure:"-"`
}

// DefaultConfig returns default logging configuration
func DefaultConfig() Config {
	return Config{
		Level:      "info",
		Format:     "auto",
		MaxSizeMB:  10,
		MaxBackups: 5,
	}
}

// Logger provides structured logging with optional file output
type Logger struct {
	zl   zerolog.Logger
	file *rotatingFile
}

// New creates a new Logger with the given configuration
func New(cfg Config) (*Logger, error) {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	console := consoleWriter(out, cfg.Format)
	writers := []io.Writer{console}

	l := &Logger{}
	if cfg.File != "" {
		path, err := expandHome(cfg.File)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("unable to create log directory: %w", err)
		}
		rf, err := openRotatingFile(path, cfg.MaxSizeMB, cfg.MaxBackups)
		if err != nil {
			return nil, err
		}
		l.file = rf
		writers = append(writers, rf)
	}

	l.zl = zerolog.New(zerolog.MultiLevelWriter(writers...)).
		Level(ParseLevel(cfg.Level)).
		With().Timestamp().Logger()
	return l, nil
}

func consoleWriter(out io.Writer, format string) io.Writer {
	switch strings.ToLower(format) {
	case "json":
		return out
	case "console":
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	if f, ok := out.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		return zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return out
}

func expandHome(path string) (string, error) {
	if !strings.HasPrefix(path, "~") {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("unable to get home dir: %w", err)
	}
	return filepath.Join(home, path[1:]), nil
}

func (l *Logger) log(level zerolog.Level, component, msg string, err error, fields ...Field) {
	if l == nil {
		return
	}
	ev := l.zl.WithLevel(level)
	if ev == nil {
		return
	}
	ev = ev.Str("component", component)
	if err != nil {
		ev = ev.Err(err)
	}
	for _, f := range fields {
		ev = ev.Interface(f.Key, f.Value)
	}
	ev.Msg(msg)
}

// Debug logs a debug message
func (l *Logger) Debug(component, msg string, fields ...Field) {
	l.log(zerolog.DebugLevel, component, msg, nil, fields...)
}

// Info logs an info message
func (l *Logger) Info(component, msg string, fields ...Field) {
	l.log(zerolog.InfoLevel, component, msg, nil, fields...)
}

// Warn logs a warning message
func (l *Logger) Warn(component, msg string, fields ...Field) {
	l.log(zerolog.WarnLevel, component, msg, nil, fields...)
}

// Error logs an error message with an error
func (l *Logger) Error(component, msg string, err error, fields ...Field) {
	l.log(zerolog.ErrorLevel, component, msg, err, fields...)
}

// With returns a child logger that adds fields to every entry.
func (l *Logger) With(fields ...Field) *Logger {
	if l == nil {
		return nil
	}
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = ctx.Interface(f.Key, f.Value)
	}
	return &Logger{zl: ctx.Logger(), file: l.file}
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() zerolog.Level {
	return l.zl.GetLevel()
}

// SetLevel sets the log level
func (l *Logger) SetLevel(level zerolog.Level) {
	l.zl = l.zl.Level(level)
}

// FilePath returns the log file path, empty when logging to stderr only.
func (l *Logger) FilePath() string {
	if l.file == nil {
		return ""
	}
	return l.file.path
}

// Close closes the log file
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}

// Nop returns a no-operation logger that discards all output
func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}
