package logger

import (
	"errors"
	"log/slog"
	"time"

	"github.com/sweetpotato0/echoflow/middleware"
	"github.com/sweetpotato0/echoflow/pkg/logging"
)

// Logger logs every run with its duration and outcome
type Logger struct {
	logger *slog.Logger
}

// New creates a logging middleware. A nil logger uses the shared one.
func New(logger *slog.Logger) *Logger {
	if logger == nil {
		logger = logging.WithComponent("middleware")
	}
	return &Logger{logger: logger}
}

// Name returns the middleware name
func (m *Logger) Name() string {
	return "Logger"
}

// Execute logs the request and its response
func (m *Logger) Execute(ctx *middleware.Context, next middleware.Handler) error {
	start := time.Now()
	m.logger.Debug("run started", "input_chars", len(ctx.Input))

	err := next(ctx)
	elapsed := time.Since(start)
	if errors.Is(err, middleware.ErrStopped) {
		m.logger.Info("run stopped by consumer", "duration", elapsed)
		return err
	}
	if err != nil {
		m.logger.Warn("run failed", "duration", elapsed, "error", err)
		return err
	}
	attrs := []any{"duration", elapsed}
	if ctx.Response != nil {
		attrs = append(attrs, "output_chars", len(ctx.Response.Text()))
	}
	m.logger.Info("run finished", attrs...)
	return nil
}
