package logging

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"time"

	"github.com/dreschagin/observability-core/pkg/config"
)

// Level is the total order used for filtering: debug < info < warn < error.
type Level int

const (
	DEBUG Level = iota
	INFO
	WARN
	ERROR
)

func ParseLevel(level string) Level {
	switch level {
	case "debug":
		return DEBUG
	case "info":
		return INFO
	case "warn":
		return WARN
	case "error":
		return ERROR
	default:
		return INFO
	}
}

func (l Level) String() string {
	switch l {
	case DEBUG:
		return "debug"
	case WARN:
		return "warn"
	case ERROR:
		return "error"
	default:
		return "info"
	}
}

// Context identifies where a log entry came from. Component is required;
// the rest scope an entry to a request, user or test run when known.
type Context struct {
	Component string `json:"component"`
	Operation string `json:"operation,omitempty"`
	RequestID string `json:"requestId,omitempty"`
	UserID    string `json:"userId,omitempty"`
	TestID    string `json:"testId,omitempty"`
	EngineID  string `json:"engineId,omitempty"`
}

// ErrorInfo is a serializable view of an error attached to an entry.
type ErrorInfo struct {
	Name    string `json:"name"`
	Message string `json:"message"`
	Stack   string `json:"stack,omitempty"`
}

// Entry is one structured log record. Entries are immutable once written.
type Entry struct {
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Timestamp time.Time              `json:"timestamp"`
	Context   Context                `json:"context"`
	Data      map[string]interface{} `json:"data,omitempty"`
	Error     *ErrorInfo             `json:"error,omitempty"`
}

// RemoteSink receives entries that passed level filtering. Publishing is
// best-effort: a failing sink never blocks or fails the log call.
type RemoteSink interface {
	Publish(ctx context.Context, entry Entry) error
}

// sink owns everything shared between a logger and its children: the level
// gate, formatting mode and the serialized file writer.
type sink struct {
	mu                sync.Mutex
	level             Level
	format            string
	console           io.Writer
	filePath          string
	file              *os.File
	maxFileSize       int64
	maxFiles          int
	includeStackTrace bool
	remote            RemoteSink
	closed            bool
}

// Logger writes leveled structured entries to console, an optionally rotated
// file and an optional remote sink. Child loggers share the sink.
type Logger struct {
	sink    *sink
	context Context
}

func New(cfg config.LoggingConfig) (*Logger, error) {
	// Rotation settings only matter when a file sink is configured.
	var maxSize int64
	if cfg.File != "" {
		parsed, err := ParseSize(cfg.MaxFileSize)
		if err != nil {
			return nil, fmt.Errorf("invalid max file size: %w", err)
		}
		maxSize = parsed
	}

	s := &sink{
		level:             ParseLevel(cfg.Level),
		format:            cfg.Format,
		console:           os.Stdout,
		filePath:          cfg.File,
		maxFileSize:       maxSize,
		maxFiles:          cfg.MaxFiles,
		includeStackTrace: cfg.IncludeStackTrace,
	}

	if cfg.File != "" {
		if err := s.openFile(); err != nil {
			return nil, fmt.Errorf("failed to open log file: %w", err)
		}
	}

	return &Logger{sink: s}, nil
}

// SetLevel changes the minimum emitted level for this logger and every child.
func (l *Logger) SetLevel(level string) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.level = ParseLevel(level)
}

// SetRemoteSink attaches a best-effort remote destination for emitted entries.
func (l *Logger) SetRemoteSink(remote RemoteSink) {
	l.sink.mu.Lock()
	defer l.sink.mu.Unlock()
	l.sink.remote = remote
}

// Child returns a logger that merges extra context into every entry it writes.
// The file writer and level gate stay shared with the parent.
func (l *Logger) Child(ctx Context) *Logger {
	return &Logger{
		sink:    l.sink,
		context: mergeContext(l.context, ctx),
	}
}

func (l *Logger) Debug(message string, ctx Context, data map[string]interface{}) {
	l.write(DEBUG, message, ctx, data, nil)
}

func (l *Logger) Info(message string, ctx Context, data map[string]interface{}) {
	l.write(INFO, message, ctx, data, nil)
}

func (l *Logger) Warn(message string, ctx Context, data map[string]interface{}) {
	l.write(WARN, message, ctx, data, nil)
}

func (l *Logger) Error(message string, ctx Context, data map[string]interface{}, err error) {
	l.write(ERROR, message, ctx, data, err)
}

// Log dispatches by level name; unknown names fall back to info.
func (l *Logger) Log(level, message string, ctx Context, data map[string]interface{}, err error) {
	l.write(ParseLevel(level), message, ctx, data, err)
}

// write builds the entry, applies level filtering and fans out to the sinks.
// It never returns an error: sink failures degrade to a console message.
func (l *Logger) write(level Level, message string, ctx Context, data map[string]interface{}, err error) {
	s := l.sink

	s.mu.Lock()
	if level < s.level || s.closed {
		s.mu.Unlock()
		return
	}

	entry := Entry{
		Level:     level.String(),
		Message:   message,
		Timestamp: time.Now(),
		Context:   mergeContext(l.context, ctx),
		Data:      data,
	}
	if err != nil {
		info := &ErrorInfo{
			Name:    fmt.Sprintf("%T", err),
			Message: err.Error(),
		}
		if s.includeStackTrace {
			info.Stack = string(debug.Stack())
		}
		entry.Error = info
	}

	line := s.formatEntry(entry)

	fmt.Fprintln(s.console, line)

	if s.file != nil {
		if writeErr := s.appendToFile(line); writeErr != nil {
			fmt.Fprintf(os.Stderr, "logging: file write failed: %v\n", writeErr)
		}
	}

	remote := s.remote
	s.mu.Unlock()

	if remote != nil {
		publishCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		if publishErr := remote.Publish(publishCtx, entry); publishErr != nil {
			fmt.Fprintf(os.Stderr, "logging: remote sink publish failed: %v\n", publishErr)
		}
		cancel()
	}
}

// Close flushes and closes the file sink. Safe to call multiple times.
func (l *Logger) Close() error {
	s := l.sink
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil
	}
	s.closed = true

	if s.file != nil {
		err := s.file.Close()
		s.file = nil
		return err
	}
	return nil
}

func mergeContext(base, extra Context) Context {
	merged := base
	if extra.Component != "" {
		merged.Component = extra.Component
	}
	if extra.Operation != "" {
		merged.Operation = extra.Operation
	}
	if extra.RequestID != "" {
		merged.RequestID = extra.RequestID
	}
	if extra.UserID != "" {
		merged.UserID = extra.UserID
	}
	if extra.TestID != "" {
		merged.TestID = extra.TestID
	}
	if extra.EngineID != "" {
		merged.EngineID = extra.EngineID
	}
	return merged
}

const (
	colorReset  = "\033[0m"
	colorGray   = "\033[90m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorRed    = "\033[31m"
)

func levelColor(level string) string {
	switch level {
	case "debug":
		return colorGray
	case "warn":
		return colorYellow
	case "error":
		return colorRed
	default:
		return colorGreen
	}
}

// formatEntry renders one line in the configured format. JSON mode is the
// entry serialized verbatim; text mode is a colorized human-readable line.
func (s *sink) formatEntry(entry Entry) string {
	if s.format == "json" {
		encoded, err := json.Marshal(entry)
		if err != nil {
			return fmt.Sprintf(`{"level":"error","message":"failed to encode log entry: %s"}`, err)
		}
		return string(encoded)
	}

	line := fmt.Sprintf("[%s] %s[%s]%s [%s] %s",
		entry.Timestamp.Format("2006-01-02T15:04:05.000Z07:00"),
		levelColor(entry.Level),
		strings.ToUpper(entry.Level),
		colorReset,
		entry.Context.Component,
		entry.Message,
	)

	if entry.Context.Operation != "" {
		line += fmt.Sprintf(" (%s)", entry.Context.Operation)
	}
	if entry.Context.RequestID != "" {
		line += fmt.Sprintf(" [req:%s]", entry.Context.RequestID)
	}

	if len(entry.Data) > 0 {
		if encoded, err := json.Marshal(entry.Data); err == nil {
			line += "\n  Data: " + string(encoded)
		}
	}

	if entry.Error != nil {
		line += fmt.Sprintf("\n  Error: %s: %s", entry.Error.Name, entry.Error.Message)
		if entry.Error.Stack != "" {
			line += "\n  Stack: " + entry.Error.Stack
		}
	}

	return line
}
