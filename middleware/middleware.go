package middleware

import (
	"context"
	"fmt"
	"time"

	"github.com/sweetpotato0/echoflow/message"
)

// Context carries one agent run through the middleware chain
type Context struct {
	// Input is the user text sent to the model
	Input string

	// Response is the final assistant message, set once the run succeeds
	Response *message.Message

	// Metadata passes data between middlewares
	Metadata map[string]any

	context context.Context
}

// NewContext creates a new middleware context
func NewContext(ctx context.Context, input string) *Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Context{
		Input:    input,
		Metadata: make(map[string]any),
		context:  ctx,
	}
}

// Context returns the underlying context.Context
func (c *Context) Context() context.Context {
	if c.context == nil {
		return context.Background()
	}
	return c.context
}

// WithContext replaces the context seen by the rest of the chain
func (c *Context) WithContext(ctx context.Context) {
	c.context = ctx
}

// Middleware intercepts an agent run.
// Returning an error without calling next stops the chain.
type Middleware interface {
	Name() string
	Execute(ctx *Context, next Handler) error
}

// Handler is the function called to pass control to the next middleware
type Handler func(*Context) error

// Func adapts a function to the Middleware interface.
type Func struct {
	name string
	fn   func(*Context, Handler) error
}

// NewFunc creates a named middleware from fn
func NewFunc(name string, fn func(*Context, Handler) error) *Func {
	return &Func{name: name, fn: fn}
}

// Name returns the middleware name
func (m *Func) Name() string {
	return m.name
}

// Execute calls the wrapped function
func (m *Func) Execute(ctx *Context, next Handler) error {
	return m.fn(ctx, next)
}

// Chain is a sequence of middleware run around a final handler.
// The first middleware added is the outermost.
type Chain struct {
	middlewares []Middleware
}

// NewChain creates a new middleware chain
func NewChain(middlewares ...Middleware) *Chain {
	return &Chain{middlewares: middlewares}
}

// Add appends a middleware to the chain
func (c *Chain) Add(m Middleware) *Chain {
	c.middlewares = append(c.middlewares, m)
	return c
}

// List returns the middleware names in execution order
func (c *Chain) List() []string {
	names := make([]string, len(c.middlewares))
	for i, m := range c.middlewares {
		names[i] = m.Name()
	}
	return names
}

// Len returns the number of middlewares
func (c *Chain) Len() int {
	return len(c.middlewares)
}

// Execute runs all middlewares and then final
func (c *Chain) Execute(ctx *Context, final Handler) error {
	if ctx == nil {
		return ErrInvalidContext
	}
	return c.execute(ctx, 0, final)
}

func (c *Chain) execute(ctx *Context, index int, final Handler) error {
	if index >= len(c.middlewares) {
		return final(ctx)
	}
	return c.middlewares[index].Execute(ctx, func(ctx *Context) error {
		return c.execute(ctx, index+1, final)
	})
}

// InputValidator rejects input before the model is called
type InputValidator struct {
	validate func(string) error
}

// NewInputValidator creates an input validation middleware
func NewInputValidator(validate func(string) error) *InputValidator {
	return &InputValidator{validate: validate}
}

// Name returns the middleware name
func (m *InputValidator) Name() string {
	return "InputValidator"
}

// Execute validates the input
func (m *InputValidator) Execute(ctx *Context, next Handler) error {
	if m.validate != nil {
		if err := m.validate(ctx.Input); err != nil {
			return err
		}
	}
	return next(ctx)
}

// MaxInputLength rejects input longer than max runes
func MaxInputLength(max int) *InputValidator {
	return NewInputValidator(func(input string) error {
		if n := len([]rune(input)); n > max {
			return fmt.Errorf("input is %d characters, limit is %d", n, max)
		}
		return nil
	})
}

// ResponseFilter inspects or rewrites the final response
type ResponseFilter struct {
	filter func(*message.Message) error
}

// NewResponseFilter creates a response filtering middleware
func NewResponseFilter(filter func(*message.Message) error) *ResponseFilter {
	return &ResponseFilter{filter: filter}
}

// Name returns the middleware name
func (m *ResponseFilter) Name() string {
	return "ResponseFilter"
}

// Execute filters the response
func (m *ResponseFilter) Execute(ctx *Context, next Handler) error {
	if err := next(ctx); err != nil {
		return err
	}
	if ctx.Response != nil && m.filter != nil {
		return m.filter(ctx.Response)
	}
	return nil
}

// ErrorHandler maps errors returned by the rest of the chain
type ErrorHandler struct {
	handler func(error) error
}

// NewErrorHandler creates an error handling middleware
func NewErrorHandler(handler func(error) error) *ErrorHandler {
	return &ErrorHandler{handler: handler}
}

// Name returns the middleware name
func (m *ErrorHandler) Name() string {
	return "ErrorHandler"
}

// Execute handles errors from downstream middlewares
func (m *ErrorHandler) Execute(ctx *Context, next Handler) error {
	err := next(ctx)
	if err != nil && m.handler != nil {
		return m.handler(err)
	}
	return err
}

// Timeout bounds the whole run, tool calls included
type Timeout struct {
	d time.Duration
}

// NewTimeout creates a timeout middleware
func NewTimeout(d time.Duration) *Timeout {
	return &Timeout{d: d}
}

// Name returns the middleware name
func (m *Timeout) Name() string {
	return "Timeout"
}

// Execute runs next under a deadline
func (m *Timeout) Execute(ctx *Context, next Handler) error {
	if m.d <= 0 {
		return next(ctx)
	}
	parent := ctx.Context()
	c, cancel := context.WithTimeout(parent, m.d)
	defer cancel()
	ctx.WithContext(c)
	defer ctx.WithContext(parent)
	return next(ctx)
}
