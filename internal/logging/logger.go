package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

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
		return "debug"
	case LevelWarn:
		return "warn"
	case LevelError:
		return "error"
	default:
		return "info"
	}
}

func ParseLevel(levelStr string) Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "warn":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger writes one JSON object per line. Loggers derived with
// WithComponent or With share the writer and its lock.
type Logger struct {
	level  Level
	out    *output
	fields map[string]any
}

type output struct {
	mu sync.Mutex
	w  io.Writer
}

func NewLogger(levelStr string) *Logger {
	return NewLoggerWithWriter(levelStr, os.Stdout)
}

func NewLoggerWithWriter(levelStr string, w io.Writer) *Logger {
	return &Logger{
		level: ParseLevel(levelStr),
		out:   &output{w: w},
	}
}

// Nop discards everything.
func Nop() *Logger {
	return NewLoggerWithWriter("error", io.Discard).withLevel(LevelError + 1)
}

func (l *Logger) withLevel(level Level) *Logger {
	c := *l
	c.level = level
	return &c
}

func (l *Logger) WithComponent(name string) *Logger {
	return l.With(map[string]any{"component": name})
}

// With returns a logger that adds fields to every record.
func (l *Logger) With(fields map[string]any) *Logger {
	merged := make(map[string]any, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}
	c := *l
	c.fields = merged
	return &c
}

func (l *Logger) Enabled(level Level) bool {
	return l != nil && level >= l.level
}

func (l *Logger) write(level Level, msg string, fields map[string]any) {
	if !l.Enabled(level) {
		return
	}
	rec := make(map[string]any, len(l.fields)+len(fields)+3)
	for k, v := range l.fields {
		rec[k] = v
	}
	for k, v := range fields {
		if err, ok := v.(error); ok {
			v = err.Error()
		}
		rec[k] = v
	}
	rec["ts"] = time.Now().UTC().Format(time.RFC3339Nano)
	rec["level"] = level.String()
	rec["msg"] = msg

	line, err := json.Marshal(rec)
	if err != nil {
		line, _ = json.Marshal(map[string]any{"level": "error", "msg": "log.marshal_failed", "error": err.Error()})
	}
	l.out.mu.Lock()
	defer l.out.mu.Unlock()
	l.out.w.Write(append(line, '\n'))
}

func (l *Logger) Debug(format string, args ...interface{}) {
	l.write(LevelDebug, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.write(LevelInfo, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Warn(format string, args ...interface{}) {
	l.write(LevelWarn, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.write(LevelError, fmt.Sprintf(format, args...), nil)
}

func (l *Logger) Debugw(msg string, fields map[string]any) {
	l.write(LevelDebug, msg, fields)
}

func (l *Logger) Infow(msg string, fields map[string]any) {
	l.write(LevelInfo, msg, fields)
}

func (l *Logger) Warnw(msg string, fields map[string]any) {
	l.write(LevelWarn, msg, fields)
}

func (l *Logger) Errorw(msg string, fields map[string]any) {
	l.write(LevelError, msg, fields)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.write(LevelError, fmt.Sprintf(format, args...), map[string]any{"fatal": true})
	os.Exit(1)
}
