package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/phsym/zeroslog"
	"github.com/rs/zerolog"
)

const (
	envLevel  = "ECHOFLOW_LOG_LEVEL"
	envFormat = "ECHOFLOW_LOG_FORMAT"
)

var (
	defaultLogger *slog.Logger
	mu            sync.RWMutex
)

// Options describes how a logger is built.
type Options struct {
	// Format is "json" (default), "text" or "console".
	Format string
	Level  slog.Level
	Output io.Writer
}

// Logger returns the process-wide logger, lazily initialised using environment
// variables for format and level:
//   - ECHOFLOW_LOG_FORMAT: "json" (default), "text" or "console"
//   - ECHOFLOW_LOG_LEVEL: debug|info|warn|error
func Logger() *slog.Logger {
	mu.RLock()
	if defaultLogger != nil {
		defer mu.RUnlock()
		return defaultLogger
	}
	mu.RUnlock()

	mu.Lock()
	defer mu.Unlock()
	if defaultLogger == nil {
		defaultLogger = New(OptionsFromEnv())
	}
	return defaultLogger
}

// SetLogger overrides the global logger; mainly useful for tests.
func SetLogger(l *slog.Logger) {
	if l == nil {
		return
	}
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = l
}

// Reset drops the global logger so the next Logger call rebuilds it from the environment.
func Reset() {
	mu.Lock()
	defer mu.Unlock()
	defaultLogger = nil
}

// WithComponent attaches a component field to the shared logger.
func WithComponent(component string) *slog.Logger {
	return Logger().With("component", component)
}

// Discard returns a logger that drops every record.
func Discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, &slog.HandlerOptions{Level: slog.LevelError + 1}))
}

// OptionsFromEnv reads ECHOFLOW_LOG_FORMAT and ECHOFLOW_LOG_LEVEL. Records go to stderr.
func OptionsFromEnv() Options {
	return Options{
		Format: strings.ToLower(os.Getenv(envFormat)),
		Level:  ParseLevel(os.Getenv(envLevel)),
		Output: os.Stderr,
	}
}

// ParseLevel maps a level name to a slog level. Unknown names map to info.
func ParseLevel(name string) slog.Level {
	switch strings.ToLower(name) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// New builds a logger tagged with the service name.
func New(opts Options) *slog.Logger {
	out := opts.Output
	if out == nil {
		out = os.Stderr
	}
	hopts := &slog.HandlerOptions{Level: opts.Level}

	var handler slog.Handler
	switch opts.Format {
	case "text":
		handler = slog.NewTextHandler(out, hopts)
	case "console":
		output := zerolog.ConsoleWriter{Out: out, TimeFormat: time.Stamp, NoColor: !isTerminal(out)}
		zl := zerolog.New(output).With().Timestamp().Logger()
		handler = zeroslog.NewHandler(zl, &zeroslog.HandlerOptions{Level: opts.Level})
	default:
		handler = slog.NewJSONHandler(out, hopts)
	}
	return slog.New(handler).With("service", "echoflow")
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return info.Mode()&os.ModeCharDevice != 0
}
