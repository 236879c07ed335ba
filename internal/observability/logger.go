package observability

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

// Tag prefixes every status line so log aggregation can filter on it.
type Tag string

const (
	TagInfo    Tag = "INFO"
	TagError   Tag = "ERROR"
	TagWarn    Tag = "WARN"
	TagSuccess Tag = "SUCCESS"
	TagFailed  Tag = "FAILED"
)

type Options struct {
	Level  string
	Format string // text, logfmt or json
	File   string // optional copy of every line
}

type Logger struct {
	base *log.Logger
}

// New builds a logger writing to w. When opts.File is set, lines are also
// appended to that file; the returned closer releases it.
func New(w io.Writer, opts Options) (*Logger, io.Closer, error) {
	level := log.InfoLevel
	if raw := strings.TrimSpace(opts.Level); raw != "" {
		parsed, err := log.ParseLevel(strings.ToLower(raw))
		if err != nil {
			return nil, nil, fmt.Errorf("parse log level %q: %w", raw, err)
		}
		level = parsed
	}

	formatter, err := parseFormat(opts.Format)
	if err != nil {
		return nil, nil, err
	}

	var closer io.Closer = nopCloser{}
	if path := strings.TrimSpace(opts.File); path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, nil, fmt.Errorf("create log dir: %w", err)
		}
		f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(w, f)
		closer = f
	}

	base := log.NewWithOptions(w, log.Options{
		Level:           level,
		Formatter:       formatter,
		ReportTimestamp: true,
		TimeFormat:      time.RFC3339Nano,
	})
	return &Logger{base: base}, closer, nil
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return &Logger{base: log.NewWithOptions(io.Discard, log.Options{})}
}

func parseFormat(raw string) (log.Formatter, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "", "text":
		return log.TextFormatter, nil
	case "logfmt":
		return log.LogfmtFormatter, nil
	case "json":
		return log.JSONFormatter, nil
	default:
		return log.TextFormatter, fmt.Errorf("unknown log format %q", raw)
	}
}

func (l *Logger) With(keyvals ...any) *Logger {
	return &Logger{base: l.base.With(keyvals...)}
}

func tagged(tag Tag, msg string) string {
	return string(tag) + ": " + msg
}

func (l *Logger) Debug(msg string, keyvals ...any) {
	l.base.Debug(msg, keyvals...)
}

func (l *Logger) Info(msg string, keyvals ...any) {
	l.base.Info(tagged(TagInfo, msg), keyvals...)
}

func (l *Logger) Success(msg string, keyvals ...any) {
	l.base.Info(tagged(TagSuccess, msg), keyvals...)
}

func (l *Logger) Warn(msg string, keyvals ...any) {
	l.base.Warn(tagged(TagWarn, msg), keyvals...)
}

func (l *Logger) Error(msg string, keyvals ...any) {
	l.base.Error(tagged(TagError, msg), keyvals...)
}

func (l *Logger) Failed(msg string, keyvals ...any) {
	l.base.Error(tagged(TagFailed, msg), keyvals...)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
