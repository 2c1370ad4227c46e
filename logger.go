package mqttq

import (
	"context"
	"io"
	"log/slog"
	"maps"
	"os"
	"slices"
	"strings"
)

// LogLevel represents the logging level.
type LogLevel int

const (
	// LogLevelDebug is the debug log level.
	LogLevelDebug LogLevel = iota
	// LogLevelInfo is the info log level.
	LogLevelInfo
	// LogLevelWarn is the warn log level.
	LogLevelWarn
	// LogLevelError is the error log level.
	LogLevelError
	// LogLevelNone disables all logging.
	LogLevelNone
)

// String returns the string representation of the log level.
func (l LogLevel) String() string {
	switch l {
	case LogLevelDebug:
		return "DEBUG"
	case LogLevelInfo:
		return "INFO"
	case LogLevelWarn:
		return "WARN"
	case LogLevelError:
		return "ERROR"
	case LogLevelNone:
		return "NONE"
	default:
		return "UNKNOWN"
	}
}

// ParseLogLevel converts "debug", "info", "warn", "error" or "none" to a
// LogLevel. Unrecognised names map to LogLevelInfo.
func ParseLogLevel(level string) LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return LogLevelDebug
	case "warn", "warning":
		return LogLevelWarn
	case "error":
		return LogLevelError
	case "none", "off":
		return LogLevelNone
	default:
		return LogLevelInfo
	}
}

// LogFields represents key-value pairs for structured logging.
type LogFields map[string]any

// Logger defines the interface for logging.
type Logger interface {
	Debug(msg string, fields LogFields)
	Info(msg string, fields LogFields)
	Warn(msg string, fields LogFields)
	Error(msg string, fields LogFields)

	// WithFields returns a new logger with the given fields added.
	WithFields(fields LogFields) Logger

	Level() LogLevel
	SetLevel(level LogLevel)
}

// NoOpLogger is a logger that does nothing.
type NoOpLogger struct {
	level LogLevel
}

// NewNoOpLogger creates a new no-op logger.
func NewNoOpLogger() *NoOpLogger {
	return &NoOpLogger{level: LogLevelNone}
}

func (n *NoOpLogger) Debug(_ string, _ LogFields)   {}
func (n *NoOpLogger) Info(_ string, _ LogFields)    {}
func (n *NoOpLogger) Warn(_ string, _ LogFields)    {}
func (n *NoOpLogger) Error(_ string, _ LogFields)   {}
func (n *NoOpLogger) WithFields(_ LogFields) Logger { return n }
func (n *NoOpLogger) Level() LogLevel               { return n.level }
func (n *NoOpLogger) SetLevel(level LogLevel)       { n.level = level }

// levelNone sits above every slog level so nothing passes.
const levelNone = slog.Level(100)

func toSlogLevel(l LogLevel) slog.Level {
	switch l {
	case LogLevelDebug:
		return slog.LevelDebug
	case LogLevelWarn:
		return slog.LevelWarn
	case LogLevelError:
		return slog.LevelError
	case LogLevelNone:
		return levelNone
	default:
		return slog.LevelInfo
	}
}

// SlogLogger adapts a *slog.Logger to Logger. Loggers derived with
// WithFields share the level of their parent.
type SlogLogger struct {
	logger *slog.Logger
	level  *slog.LevelVar
}

// NewSlogLogger writes text records to w (os.Stderr when nil) at the given level.
func NewSlogLogger(w io.Writer, level LogLevel) *SlogLogger {
	if w == nil {
		w = os.Stderr
	}

	lv := new(slog.LevelVar)
	handler := slog.NewTextHandler(w, &slog.HandlerOptions{Level: lv})

	return newSlogLogger(slog.New(handler), lv, level)
}

// NewJSONLogger writes JSON records to w (os.Stderr when nil).
func NewJSONLogger(w io.Writer, level LogLevel) *SlogLogger {
	if w == nil {
		w = os.Stderr
	}

	lv := new(slog.LevelVar)
	handler := slog.NewJSONHandler(w, &slog.HandlerOptions{Level: lv})

	return newSlogLogger(slog.New(handler), lv, level)
}

// FromSlog wraps an existing logger. Level filtering happens in front of
// the handler, so the handler's own level still applies.
func FromSlog(logger *slog.Logger, level LogLevel) *SlogLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return newSlogLogger(logger, new(slog.LevelVar), level)
}

func newSlogLogger(logger *slog.Logger, lv *slog.LevelVar, level LogLevel) *SlogLogger {
	s := &SlogLogger{logger: logger, level: lv}
	s.SetLevel(level)
	return s
}

func (s *SlogLogger) log(level slog.Level, msg string, fields LogFields) {
	if level < s.level.Level() {
		return
	}
	if !s.logger.Enabled(context.Background(), level) {
		return
	}
	s.logger.LogAttrs(context.Background(), level, msg, fieldAttrs(fields)...)
}

// Debug logs a debug message.
func (s *SlogLogger) Debug(msg string, fields LogFields) { s.log(slog.LevelDebug, msg, fields) }

// Info logs an info message.
func (s *SlogLogger) Info(msg string, fields LogFields) { s.log(slog.LevelInfo, msg, fields) }

// Warn logs a warning message.
func (s *SlogLogger) Warn(msg string, fields LogFields) { s.log(slog.LevelWarn, msg, fields) }

// Error logs an error message.
func (s *SlogLogger) Error(msg string, fields LogFields) { s.log(slog.LevelError, msg, fields) }

// WithFields returns a new logger with the given fields added.
func (s *SlogLogger) WithFields(fields LogFields) Logger {
	attrs := fieldAttrs(fields)
	args := make([]any, len(attrs))
	for i, a := range attrs {
		args[i] = a
	}

	return &SlogLogger{
		logger: s.logger.With(args...),
		level:  s.level,
	}
}

// Level returns the current log level.
func (s *SlogLogger) Level() LogLevel {
	switch l := s.level.Level(); {
	case l >= levelNone:
		return LogLevelNone
	case l >= slog.LevelError:
		return LogLevelError
	case l >= slog.LevelWarn:
		return LogLevelWarn
	case l >= slog.LevelInfo:
		return LogLevelInfo
	default:
		return LogLevelDebug
	}
}

// SetLevel sets the log level.
func (s *SlogLogger) SetLevel(level LogLevel) {
	s.level.Set(toSlogLevel(level))
}

// fieldAttrs converts fields to attributes in key order so output is stable.
func fieldAttrs(fields LogFields) []slog.Attr {
	if len(fields) == 0 {
		return nil
	}

	attrs := make([]slog.Attr, 0, len(fields))
	for _, k := range slices.Sorted(maps.Keys(fields)) {
		v := fields[k]
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		attrs = append(attrs, slog.Any(k, v))
	}
	return attrs
}

// Standard field names for client logging.
const (
	LogFieldClientID   = "client_id"
	LogFieldTopic      = "topic"
	LogFieldPacketID   = "packet_id"
	LogFieldPacketType = "packet_type"
	LogFieldQoS        = "qos"
	LogFieldError      = "error"
	LogFieldRemoteAddr = "remote_addr"
	LogFieldDuration   = "duration"
	LogFieldBytes      = "bytes"
)
