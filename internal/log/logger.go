package log

import (
	"io"
	"log/slog"
	"os"
	"strings"
)

// Logger is a slog.Logger tagged with the component that owns it. The
// component attribute is attached once, so switching components replaces it
// instead of repeating it.
type Logger struct {
	*slog.Logger
	base      *slog.Logger
	component string
}

// Config holds logger configuration. Handler wins over Format and Writer.
type Config struct {
	Level     slog.Level
	Component string
	Format    string // "text" (default) or "json"
	Writer    io.Writer
	Handler   slog.Handler
}

// DefaultConfig logs text at info level to stdout.
func DefaultConfig() Config {
	return Config{
		Level:     slog.LevelInfo,
		Component: ComponentApp,
		Format:    "text",
		Writer:    os.Stdout,
	}
}

// New creates a logger from config.
func New(config Config) *Logger {
	handler := config.Handler
	if handler == nil {
		w := config.Writer
		if w == nil {
			w = os.Stdout
		}
		opts := &slog.HandlerOptions{Level: config.Level}
		if strings.EqualFold(config.Format, "json") {
			handler = slog.NewJSONHandler(w, opts)
		} else {
			handler = slog.NewTextHandler(w, opts)
		}
	}
	return newLogger(slog.New(handler), config.Component)
}

// Nop returns a logger that drops everything.
func Nop() *Logger {
	return New(Config{Component: "nop", Writer: io.Discard})
}

func newLogger(base *slog.Logger, component string) *Logger {
	l := &Logger{base: base, component: component}
	if component != "" {
		l.Logger = base.With(FieldComponent, component)
	} else {
		l.Logger = base
	}
	return l
}

// With returns a logger carrying the extra attributes.
func (l *Logger) With(args ...any) *Logger {
	return &Logger{
		Logger:    l.Logger.With(args...),
		base:      l.base.With(args...),
		component: l.component,
	}
}

// WithComponent returns a logger owned by component.
func (l *Logger) WithComponent(component string) *Logger {
	return newLogger(l.base, component)
}

// Component returns the logger's component name.
func (l *Logger) Component() string {
	return l.component
}

// SetDefault installs logger as the slog default.
func SetDefault(logger *Logger) {
	slog.SetDefault(logger.Logger)
}
