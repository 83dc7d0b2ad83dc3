package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/llm"
	"github.com/sweetpotato0/echoflow/message"
	"github.com/sweetpotato0/echoflow/middleware"
	"github.com/sweetpotato0/echoflow/pkg/logging"
	"github.com/sweetpotato0/echoflow/prompt"
	"github.com/sweetpotato0/echoflow/tool"
)

// DefaultSystemPrompt is used when no system prompt option is given.
const DefaultSystemPrompt = "You are a helpful AI assistant."

// ErrMaxIterations is returned when the model keeps calling tools past the
// iteration limit.
var ErrMaxIterations = errors.New("max iterations reached")

// Agent drives a conversation through an llm.Client, executing every tool the
// model calls and feeding the result back until the model answers in text.
//
// Run and RunStream are serialized. Messages and ClearMessages must not be
// called from inside a RunStream loop.
type Agent[W any] struct {
	name          string
	maxIterations int
	params        llm.Params
	logger        *slog.Logger

	client  *llm.Client[W]
	adapter message.Adapter[W]
	system  *message.Static[W]
	rag     *message.Static[W]
	history *message.Static[W]
	tools   *tool.Registry
	prompts *prompt.Manager
	chain   *middleware.Chain

	mu    sync.Mutex
	usage llm.Usage
}

// Option configures an Agent.
type Option func(*options)

type options struct {
	name          string
	systemPrompt  string
	system        []*message.Message
	documents     []string
	maxIterations int
	params        llm.Params
	tools         []*tool.Tool
	middlewares   []middleware.Middleware
	logger        *slog.Logger
}

// WithName sets the agent name used in logs.
func WithName(name string) Option {
	return func(o *options) {
		o.name = name
	}
}

// WithSystemPrompt sets the system prompt. An empty prompt sends none.
func WithSystemPrompt(prompt string) Option {
	return func(o *options) {
		o.systemPrompt = prompt
	}
}

// WithSystemMessage appends a system message after the system prompt.
func WithSystemMessage(msg *message.Message) Option {
	return func(o *options) {
		o.system = append(o.system, msg)
	}
}

// WithDocuments sends reference texts alongside the system prompt.
func WithDocuments(docs ...string) Option {
	return func(o *options) {
		o.documents = append(o.documents, docs...)
	}
}

// WithMaxIterations bounds the number of model calls per run.
func WithMaxIterations(max int) Option {
	return func(o *options) {
		o.maxIterations = max
	}
}

// WithParams sets the sampling parameters.
func WithParams(params llm.Params) Option {
	return func(o *options) {
		o.params = params
	}
}

// WithTools registers tools.
func WithTools(tools ...*tool.Tool) Option {
	return func(o *options) {
		o.tools = append(o.tools, tools...)
	}
}

// WithMiddleware wraps every run in the given middlewares, outermost first.
func WithMiddleware(mws ...middleware.Middleware) Option {
	return func(o *options) {
		o.middlewares = append(o.middlewares, mws...)
	}
}

// WithLogger replaces the shared component logger.
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates an agent. The adapter must be the one the client's transport expects.
func New[W any](client *llm.Client[W], adapter message.Adapter[W], opts ...Option) (*Agent[W], error) {
	if client == nil {
		return nil, fmt.Errorf("%w: client is required", errorskg.ErrInvalidInput)
	}
	o := options{
		name:          "Agent",
		systemPrompt:  DefaultSystemPrompt,
		maxIterations: 10,
		params:        llm.DefaultParams(),
	}
	for _, opt := range opts {
		opt(&o)
	}
	if o.maxIterations <= 0 {
		return nil, fmt.Errorf("%w: max iterations must be positive, got %d", errorskg.ErrInvalidInput, o.maxIterations)
	}
	if err := o.params.Validate(); err != nil {
		return nil, err
	}
	if o.logger == nil {
		o.logger = logging.WithComponent("agent")
	}

	tools, err := tool.NewRegistry(o.tools...)
	if err != nil {
		return nil, err
	}

	a := &Agent[W]{
		name:          o.name,
		maxIterations: o.maxIterations,
		params:        o.params,
		logger:        o.logger.With("agent", o.name),
		client:        client,
		adapter:       adapter,
		system:        message.NewStatic(adapter),
		rag:           message.NewStatic(adapter),
		history:       message.NewStatic(adapter),
		tools:         tools,
		prompts:       prompt.NewManager(),
		chain:         middleware.NewChain(o.middlewares...),
	}

	if o.systemPrompt != "" {
		if err := a.system.Add(message.NewText(message.RoleSystem, o.systemPrompt)); err != nil {
			return nil, err
		}
	}
	for _, msg := range o.system {
		if err := a.system.Add(msg); err != nil {
			return nil, fmt.Errorf("system message: %w", err)
		}
	}
	if len(o.documents) > 0 {
		if err := a.rag.Add(message.NewText(message.RoleSystem, o.documents...)); err != nil {
			return nil, err
		}
	}
	return a, nil
}

// Name returns the agent name.
func (a *Agent[W]) Name() string {
	return a.name
}

// RegisterTool registers a tool with the agent.
func (a *Agent[W]) RegisterTool(t *tool.Tool) error {
	return a.tools.Register(t)
}

// Tools returns the registered tools in registration order.
func (a *Agent[W]) Tools() []*tool.Tool {
	return a.tools.List()
}

// RegisterPrompt registers a prompt template.
func (a *Agent[W]) RegisterPrompt(name, content string) error {
	return a.prompts.RegisterString(name, content)
}

// UsePrompt replaces the system prompt with a rendered template.
func (a *Agent[W]) UsePrompt(name string, vars map[string]any) error {
	msg, err := a.prompts.Message(name, vars)
	if err != nil {
		return err
	}
	system := message.NewStatic(a.adapter)
	if err := system.Add(msg); err != nil {
		return err
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.system = system
	return nil
}

// AddMessage appends msg to the history, merging it with the last turn when
// the roles match.
func (a *Agent[W]) AddMessage(msg *message.Message) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Add(msg)
}

// Messages returns copies of the merged history turns.
func (a *Agent[W]) Messages() []*message.Message {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.history.Turns()
}

// ClearMessages drops the history. The system prompt and documents are kept.
func (a *Agent[W]) ClearMessages() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.history = message.NewStatic(a.adapter)
}

// Usage returns the tokens consumed by every run so far.
func (a *Agent[W]) Usage() llm.Usage {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.usage
}

// Run sends input and returns the model's final text answer.
func (a *Agent[W]) Run(ctx context.Context, input string) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	mc, err := a.runChain(ctx, input, func(llm.StreamEvent) bool { return true })
	if err != nil {
		return "", err
	}
	if mc.Response == nil {
		return "", nil
	}
	return mc.Response.Text(), nil
}

// runChain executes run through the middleware chain. It holds a.mu.
func (a *Agent[W]) runChain(ctx context.Context, input string, emit func(llm.StreamEvent) bool) (*middleware.Context, error) {
	mc := middleware.NewContext(ctx, input)
	err := a.chain.Execute(mc, func(mc *middleware.Context) error {
		res, err := a.run(mc.Context(), mc.Input, emit)
		if err != nil {
			return err
		}
		mc.Response = res.Message()
		return nil
	})
	return mc, err
}

// restoreHistory replaces the history with turns, which came from Turns and
// therefore merge back unchanged.
func (a *Agent[W]) restoreHistory(turns []*message.Message) {
	history := message.NewStatic(a.adapter)
	for _, turn := range turns {
		if err := history.Add(turn); err != nil {
			a.logger.Error("history restore failed", "error", err)
			return
		}
	}
	a.history = history
}

func (a *Agent[W]) llmContext() *llm.Context[W] {
	return &llm.Context[W]{
		Params:  a.params,
		System:  a.system,
		History: a.history,
		RAG:     a.rag,
		Tools:   a.tools.List(),
	}
}

func (a *Agent[W]) execute(ctx context.Context, call message.ToolCall) string {
	result, err := a.tools.Execute(ctx, call)
	if err != nil {
		a.logger.Warn("tool failed", "tool", call.Name, "id", call.ID, "error", err)
		return fmt.Sprintf("Error executing tool %s: %v", call.Name, err)
	}
	a.logger.Debug("tool executed", "tool", call.Name, "id", call.ID)
	return result.Content
}

func (a *Agent[W]) addUsage(meta *llm.Metadata) {
	if meta == nil {
		return
	}
	a.usage.InputTokens += meta.InputTokens()
	a.usage.OutputTokens += meta.OutputTokens()
	a.usage.CacheReadInputTokens += meta.CacheReadTokens()
}
