package llm

import (
	"context"
	"fmt"
	"iter"

	"github.com/sweetpotato0/echoflow/message"
	"github.com/sweetpotato0/echoflow/tool"
)

// Context is everything one generation call reads: parameters, the three
// message buffers and the tools offered to the model. Nil buffers render as empty.
type Context[W any] struct {
	Params  Params
	System  message.Buffer[W]
	History message.Buffer[W]
	// RAG holds retrieved reference material sent alongside the system prompt.
	RAG   message.Buffer[W]
	Tools []*tool.Tool
}

// Request is a fully rendered generation call handed to a Transport.
type Request[W any] struct {
	ID      string
	System  []W
	History []W
	RAG     []W
	Tools   []*tool.Tool
	Params  Params
	Cache   CacheStrategy
}

// Render validates the parameters, reads every buffer and builds the transport request.
func (c *Context[W]) Render(cache CacheStrategy) (*Request[W], error) {
	if err := c.Params.Validate(); err != nil {
		return nil, err
	}
	system, err := renderBuffer(c.System)
	if err != nil {
		return nil, fmt.Errorf("render system: %w", err)
	}
	history, err := renderBuffer(c.History)
	if err != nil {
		return nil, fmt.Errorf("render history: %w", err)
	}
	rag, err := renderBuffer(c.RAG)
	if err != nil {
		return nil, fmt.Errorf("render rag: %w", err)
	}
	return &Request[W]{
		System:  system,
		History: history,
		RAG:     rag,
		Tools:   c.Tools,
		Params:  c.Params,
		Cache:   cache,
	}, nil
}

func renderBuffer[W any](b message.Buffer[W]) ([]W, error) {
	if b == nil {
		return nil, nil
	}
	return b.Value()
}

// Transport opens a raw event stream for a rendered request. Implementations
// own the network connection; stopping the iteration must release it.
type Transport[W any] interface {
	Stream(ctx context.Context, req *Request[W]) iter.Seq2[RawEvent, error]
}

// TransportFunc adapts a function to the Transport interface.
type TransportFunc[W any] func(ctx context.Context, req *Request[W]) iter.Seq2[RawEvent, error]

func (f TransportFunc[W]) Stream(ctx context.Context, req *Request[W]) iter.Seq2[RawEvent, error] {
	return f(ctx, req)
}
