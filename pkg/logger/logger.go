package logger

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/creasty/defaults"
	"github.com/rs/zerolog"
)

// Config is the logging section of the application YAML.
type Config struct {
	Level      string `yaml:"level" default:"info"`
	Format     string `yaml:"format" default:"json"`
	Output     string `yaml:"output" default:"stdout"` // stdout, stderr or a file path
	TimeFormat string `yaml:"time_format"`
	Service    string `yaml:"service" default:"otcfeed"`
}

// Logger is a thin zerolog wrapper; callers build events from Field values
// so no zerolog types leak into the domain packages.
type Logger struct {
	zl zerolog.Logger
}

func New(cfg *Config) (*Logger, error) {
	c := *cfg
	if err := defaults.Set(&c); err != nil {
		return nil, err
	}
	level, err := zerolog.ParseLevel(c.Level)
	if err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.Level, err)
	}
	out, err := openOutput(c.Output)
	if err != nil {
		return nil, err
	}
	if c.TimeFormat != "" {
		zerolog.TimeFieldFormat = c.TimeFormat
	}
	if c.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.StampMilli}
	}

	zl := zerolog.New(out).Level(level).With().
		Timestamp().
		Str("service", c.Service).
		CallerWithSkipFrameCount(3).
		Logger()
	return &Logger{zl: zl}, nil
}

func openOutput(target string) (io.Writer, error) {
	switch target {
	case "", "stdout":
		return os.Stdout, nil
	case "stderr":
		return os.Stderr, nil
	}
	f, err := os.OpenFile(target, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}
	return f, nil
}

// NewWriter logs JSON lines to w. Used by tests and the analyzer.
func NewWriter(w io.Writer, level zerolog.Level) *Logger {
	return &Logger{zl: zerolog.New(w).Level(level).With().Timestamp().Logger()}
}

func Nop() *Logger {
	return &Logger{zl: zerolog.Nop()}
}

// With returns a child logger carrying fields on every event.
func (l *Logger) With(fields ...Field) *Logger {
	ctx := l.zl.With()
	for _, f := range fields {
		ctx = f.ctx(ctx)
	}
	return &Logger{zl: ctx.Logger()}
}

func (l *Logger) Debug(msg string, fields ...Field) { write(l.zl.Debug(), msg, fields) }
func (l *Logger) Info(msg string, fields ...Field)  { write(l.zl.Info(), msg, fields) }
func (l *Logger) Warn(msg string, fields ...Field)  { write(l.zl.Warn(), msg, fields) }
func (l *Logger) Error(msg string, fields ...Field) { write(l.zl.Error(), msg, fields) }

func write(e *zerolog.Event, msg string, fields []Field) {
	if e == nil {
		return
	}
	for _, f := range fields {
		f.event(e)
	}
	e.Msg(msg)
}

// Field is one typed key/value. It knows how to attach itself to an event
// and to a child logger context.
type Field struct {
	event func(*zerolog.Event)
	ctx   func(zerolog.Context) zerolog.Context
}

func String(key, v string) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Str(key, v) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Str(key, v) },
	}
}

func Strings(key string, v []string) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Strs(key, v) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Strs(key, v) },
	}
}

func Int(key string, v int) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Int(key, v) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Int(key, v) },
	}
}

func Int64(key string, v int64) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Int64(key, v) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Int64(key, v) },
	}
}

func Float64(key string, v float64) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Float64(key, v) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Float64(key, v) },
	}
}

func Bool(key string, v bool) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Bool(key, v) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Bool(key, v) },
	}
}

// Duration logs whole milliseconds.
func Duration(key string, d time.Duration) Field {
	return Int64(key, d.Milliseconds())
}

func Error(err error) Field {
	return Field{
		event: func(e *zerolog.Event) { e.Err(err) },
		ctx:   func(c zerolog.Context) zerolog.Context { return c.Err(err) },
	}
}
