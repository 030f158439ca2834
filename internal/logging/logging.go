package logging

import (
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

type Field struct {
	Key   string
	Value any
}

type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Enabled(level Level) bool
}

type logrusLogger struct {
	entry *logrus.Entry
	level Level
}

// New returns a logfmt logger writing to out. A nil writer means stdout.
func New(out io.Writer, level Level) Logger {
	if out == nil {
		out = os.Stdout
	}
	base := logrus.New()
	base.SetOutput(out)
	base.SetLevel(toLogrusLevel(level))
	base.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		DisableSorting:   false,
		QuoteEmptyFields: true,
	})
	return &logrusLogger{entry: logrus.NewEntry(base), level: level}
}

func Nop() Logger {
	return New(io.Discard, Error)
}

func (l *logrusLogger) Enabled(level Level) bool {
	if l == nil {
		return false
	}
	return level >= l.level
}

func (l *logrusLogger) With(fields ...Field) Logger {
	if l == nil {
		return Nop()
	}
	return &logrusLogger{entry: l.entry.WithFields(toLogrusFields(fields)), level: l.level}
}

func (l *logrusLogger) Debug(msg string, fields ...Field) { l.log(Debug, msg, fields...) }
func (l *logrusLogger) Info(msg string, fields ...Field)  { l.log(Info, msg, fields...) }
func (l *logrusLogger) Warn(msg string, fields ...Field)  { l.log(Warn, msg, fields...) }
func (l *logrusLogger) Error(msg string, fields ...Field) { l.log(Error, msg, fields...) }

func (l *logrusLogger) log(level Level, msg string, fields ...Field) {
	if l == nil || !l.Enabled(level) {
		return
	}
	entry := l.entry
	if len(fields) > 0 {
		entry = entry.WithFields(toLogrusFields(fields))
	}
	entry.Log(toLogrusLevel(level), msg)
}

func toLogrusFields(fields []Field) logrus.Fields {
	out := make(logrus.Fields, len(fields))
	for _, field := range fields {
		if strings.TrimSpace(field.Key) == "" {
			continue
		}
		out[field.Key] = field.Value
	}
	return out
}

func toLogrusLevel(level Level) logrus.Level {
	switch level {
	case Debug:
		return logrus.DebugLevel
	case Warn:
		return logrus.WarnLevel
	case Error:
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

func ParseLevel(raw string) Level {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "debug":
		return Debug
	case "warn", "warning":
		return Warn
	case "error":
		return Error
	default:
		return Info
	}
}

func NewRequestID() string {
	return uuid.NewString()
}

func F(key string, value any) Field {
	return Field{Key: key, Value: value}
}
