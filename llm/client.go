package llm

import (
	"context"
	"fmt"
	"iter"
	"log/slog"

	"github.com/google/uuid"
	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/pkg/logging"
	"github.com/sweetpotato0/echoflow/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Option configures a Client.
type Option func(*options)

type options struct {
	provider  string
	cache     CacheStrategy
	logger    *slog.Logger
	normalize []NormalizeOption
}

// WithProvider names the provider in logs and spans.
func WithProvider(name string) Option {
	return func(o *options) {
		o.provider = name
	}
}

// WithCache sets the cache strategy applied to every request.
func WithCache(cache CacheStrategy) Option {
	return func(o *options) {
		o.cache = cache
	}
}

// WithLogger replaces the shared component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithNormalizeOptions forwards options to the stream normalizer.
func WithNormalizeOptions(opts ...NormalizeOption) Option {
	return func(o *options) {
		o.normalize = append(o.normalize, opts...)
	}
}

// Client renders a Context, sends it through a Transport and normalizes the reply.
type Client[W any] struct {
	transport Transport[W]
	opts      options
}

// NewClient creates a client over transport.
func NewClient[W any](transport Transport[W], opts ...Option) (*Client[W], error) {
	if transport == nil {
		return nil, fmt.Errorf("%w: transport is required", errorskg.ErrInvalidInput)
	}
	o := options{provider: "unknown"}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = logging.WithComponent("llm")
	}
	return &Client[W]{transport: transport, opts: o}, nil
}

// Cache returns the client's cache strategy.
func (c *Client[W]) Cache() CacheStrategy {
	return c.opts.cache
}

// StreamGenerate renders lc and streams normalized events. Rendering and
// transport errors are yielded as a single error event that ends the sequence.
func (c *Client[W]) StreamGenerate(ctx context.Context, lc *Context[W]) iter.Seq2[StreamEvent, error] {
	return func(yield func(StreamEvent, error) bool) {
		req, err := lc.Render(c.opts.cache)
		if err != nil {
			yield(StreamEvent{Type: EventError, Err: err}, err)
			return
		}
		req.ID = uuid.NewString()

		logger := c.opts.logger.With("request_id", req.ID, "provider", c.opts.provider)
		ctx, span := telemetry.Start(ctx, "llm.stream_generate",
			attribute.String("llm.provider", c.opts.provider),
			attribute.String("llm.model", req.Params.ModelID),
			attribute.String("llm.request_id", req.ID),
			attribute.Int("llm.history", len(req.History)),
			attribute.Int("llm.tools", len(req.Tools)),
		)
		var streamErr error
		defer func() { telemetry.End(span, streamErr) }()

		logger.Info("stream generate",
			"model", req.Params.ModelID,
			"system", len(req.System),
			"history", len(req.History),
			"rag", len(req.RAG),
			"tools", len(req.Tools),
		)

		opts := append([]NormalizeOption{WithEventLogger(logger)}, c.opts.normalize...)
		for ev, err := range Normalize(c.transport.Stream(ctx, req), opts...) {
			if err != nil {
				streamErr = err
				logger.Error("stream failed", "error", err)
				yield(ev, err)
				return
			}
			switch ev.Type {
			case EventTool:
				logger.Debug("tool call", "tool", ev.Tool.Name, "id", ev.Tool.ID)
			case EventMetadata:
				span.SetAttributes(
					attribute.Int64("llm.usage.input_tokens", ev.Metadata.InputTokens()),
					attribute.Int64("llm.usage.output_tokens", ev.Metadata.OutputTokens()),
				)
				logger.Info("stream finished",
					"input_tokens", ev.Metadata.InputTokens(),
					"output_tokens", ev.Metadata.OutputTokens(),
				)
			}
			if !yield(ev, nil) {
				return
			}
		}
	}
}

// Generate folds StreamGenerate into a single result.
func (c *Client[W]) Generate(ctx context.Context, lc *Context[W]) (*Result, error) {
	return Fold(c.StreamGenerate(ctx, lc))
}
