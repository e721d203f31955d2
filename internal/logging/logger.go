package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/kingrea/contract-composer/internal/config"
)

// Logger appends structured entries to .composer/logs/composer.log so runs
// can be inspected after the command exits.
type Logger struct {
	*logrus.Logger
	file *os.File
}

// New opens (or creates) the project log file and configures level and
// format from cfg. When verbose is set, entries are mirrored to stderr.
func New(cfg *config.Config, verbose bool) (*Logger, error) {
	if err := os.MkdirAll(cfg.LogsDir(), 0o755); err != nil {
		return nil, fmt.Errorf("logging: ensure log dir: %w", err)
	}
	f, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("logging: open log file: %w", err)
	}
	var out io.Writer = f
	if verbose {
		out = io.MultiWriter(f, os.Stderr)
	}
	l, err := newLogger(out, cfg.Project.Log)
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	l.file = f
	return l, nil
}

// NewWriter builds a logger over an arbitrary writer. Tests use it with a
// buffer.
func NewWriter(w io.Writer, lc config.LogConfig) (*Logger, error) {
	return newLogger(w, lc)
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return &Logger{Logger: l}
}

func newLogger(w io.Writer, lc config.LogConfig) (*Logger, error) {
	l := logrus.New()
	l.SetOutput(w)
	level := logrus.InfoLevel
	if lc.Level != "" {
		parsed, err := logrus.ParseLevel(lc.Level)
		if err != nil {
			return nil, fmt.Errorf("logging: %w", err)
		}
		level = parsed
	}
	l.SetLevel(level)
	switch lc.Format {
	case "json":
		l.SetFormatter(&logrus.JSONFormatter{})
	default:
		l.SetFormatter(&logrus.TextFormatter{DisableColors: true, FullTimestamp: true})
	}
	return &Logger{Logger: l}, nil
}

// Path returns the backing file, or "" for writer-based loggers.
func (l *Logger) Path() string {
	if l == nil || l.file == nil {
		return ""
	}
	return filepath.Clean(l.file.Name())
}

// Close releases the file handle.
func (l *Logger) Close() error {
	if l == nil || l.file == nil {
		return nil
	}
	return l.file.Close()
}
