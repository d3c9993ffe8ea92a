// Package logging provides leveled logging in text or JSON lines, with
// structured fields and a run ID carried through context.
//
// *Logger satisfies resolver.Logger, so the resolver can report its
// decisions through it directly.
package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents a log level.
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelDebug:
		return "DEBUG"
	case LevelInfo:
		return "INFO"
	case LevelWarn:
		return "WARN"
	case LevelError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ParseLevel parses a level name, case-insensitively. It reports false for
// unknown names and then returns LevelInfo.
func ParseLevel(s string) (Level, bool) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "DEBUG":
		return LevelDebug, true
	case "INFO", "":
		return LevelInfo, true
	case "WARN", "WARNING":
		return LevelWarn, true
	case "ERROR":
		return LevelError, true
	default:
		return LevelInfo, false
	}
}

// Fields are structured key/value pairs attached to entries.
type Fields map[string]any

type runIDKey struct{}

// WithRunID returns a context whose entries are tagged with the run ID.
func WithRunID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, runIDKey{}, id)
}

// RunID returns the run ID stored in ctx, if any.
func RunID(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	id, _ := ctx.Value(runIDKey{}).(string)
	return id
}

// Entry is one JSON log line.
type Entry struct {
	Timestamp string `json:"ts"`
	Level     string `json:"level"`
	Message   string `json:"msg"`
	RunID     string `json:"run_id,omitempty"`
	Fields    Fields `json:"fields,omitempty"`
}

// sink is shared between a logger and the loggers derived from it, so
// that SetOutput and SetLevel apply to all of them.
type sink struct {
	mu    sync.Mutex
	out   io.Writer
	level Level
	json  bool
}

// Logger is a leveled logger. It is safe for concurrent use.
type Logger struct {
	sink   *sink
	fields Fields
}

// Option configures a Logger.
type Option func(*sink)

// WithLevel sets the minimum level.
func WithLevel(level Level) Option {
	return func(s *sink) { s.level = level }
}

// WithJSON switches to JSON lines.
func WithJSON(enabled bool) Option {
	return func(s *sink) { s.json = enabled }
}

// WithOutput sets the destination.
func WithOutput(w io.Writer) Option {
	return func(s *sink) { s.out = w }
}

// New creates a logger writing text lines at INFO to stderr unless
// configured otherwise.
func New(opts ...Option) *Logger {
	s := &sink{out: os.Stderr, level: LevelInfo}
	for _, opt := range opts {
		opt(s)
	}
	return &Logger{sink: s}
}

// SetOutput changes the destination of l and every logger derived from it.
func (l *Logger) SetOutput(w io.Writer) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.out = w
}

// SetLevel changes the minimum level of l and every logger derived from it.
func (l *Logger) SetLevel(level Level) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = level
}

// Enabled reports whether entries at level are written.
func (l *Logger) Enabled(level Level) bool {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	return level >= l.sink.level
}

// With returns a logger that adds key=value to every entry.
func (l *Logger) With(key string, value any) *Logger {
	return l.WithFields(Fields{key: value})
}

// WithFields returns a logger that adds fields to every entry.
func (l *Logger) WithFields(fields Fields) *Logger {
	merged := make(Fields, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	return &Logger{sink: l.sink, fields: merged}
}

func (l *Logger) log(ctx context.Context, level Level, format string, args []any) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()

	if level < l.sink.level {
		return
	}

	msg := format
	if len(args) > 0 {
		msg = fmt.Sprintf(format, args...)
	}
	runID := RunID(ctx)

	if l.sink.json {
		entry := Entry{
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			Level:     level.String(),
			Message:   msg,
			RunID:     runID,
		}
		if len(l.fields) > 0 {
			entry.Fields = l.fields
		}
		data, err := json.Marshal(entry)
		if err != nil {
			fmt.Fprintf(l.sink.out, "ERROR: failed to marshal log entry: %v\n", err)
			return
		}
		fmt.Fprintln(l.sink.out, string(data))
		return
	}

	var b strings.Builder
	b.WriteString(time.Now().Format("2006/01/02 15:04:05"))
	if runID != "" {
		fmt.Fprintf(&b, " [%s]", shortRunID(runID))
	}
	fmt.Fprintf(&b, " [%s] %s", level, msg)
	if len(l.fields) > 0 {
		keys := make([]string, 0, len(l.fields))
		for k := range l.fields {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%v", k, l.fields[k])
		}
		fmt.Fprintf(&b, " {%s}", strings.Join(parts, ", "))
	}
	fmt.Fprintln(l.sink.out, b.String())
}

func shortRunID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Debug logs a debug message.
func (l *Logger) Debug(format string, args ...any) {
	l.log(context.Background(), LevelDebug, format, args)
}

// Info logs an info message.
func (l *Logger) Info(format string, args ...any) {
	l.log(context.Background(), LevelInfo, format, args)
}

// Warn logs a warning.
func (l *Logger) Warn(format string, args ...any) {
	l.log(context.Background(), LevelWarn, format, args)
}

// Error logs an error.
func (l *Logger) Error(format string, args ...any) {
	l.log(context.Background(), LevelError, format, args)
}

// DebugContext logs a debug message tagged with the run ID in ctx.
func (l *Logger) DebugContext(ctx context.Context, format string, args ...any) {
	l.log(ctx, LevelDebug, format, args)
}

// InfoContext logs an info message tagged with the run ID in ctx.
func (l *Logger) InfoContext(ctx context.Context, format string, args ...any) {
	l.log(ctx, LevelInfo, format, args)
}

// WarnContext logs a warning tagged with the run ID in ctx.
func (l *Logger) WarnContext(ctx context.Context, format string, args ...any) {
	l.log(ctx, LevelWarn, format, args)
}

// ErrorContext logs an error tagged with the run ID in ctx.
func (l *Logger) ErrorContext(ctx context.Context, format string, args ...any) {
	l.log(ctx, LevelError, format, args)
}

// --- Package-level functions using the default logger ---

var (
	defaultMu     sync.RWMutex
	defaultLogger = New()
)

// Default returns the default logger.
func Default() *Logger {
	defaultMu.RLock()
	defer defaultMu.RUnlock()
	return defaultLogger
}

// SetDefault replaces the default logger.
func SetDefault(l *Logger) {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	defaultLogger = l
}

// Debug logs a debug message using the default logger.
func Debug(format string, args ...any) {
	Default().log(context.Background(), LevelDebug, format, args)
}

// Info logs an info message using the default logger.
func Info(format string, args ...any) {
	Default().log(context.Background(), LevelInfo, format, args)
}

// Warn logs a warning using the default logger.
func Warn(format string, args ...any) {
	Default().log(context.Background(), LevelWarn, format, args)
}

// Error logs an error using the default logger.
func Error(format string, args ...any) {
	Default().log(context.Background(), LevelError, format, args)
}
