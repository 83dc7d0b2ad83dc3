package agent

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/llm"
	"github.com/sweetpotato0/echoflow/message"
	"github.com/sweetpotato0/echoflow/middleware"
	"github.com/sweetpotato0/echoflow/middleware/limiter"
	"github.com/sweetpotato0/echoflow/pkg/logging"
	"github.com/sweetpotato0/echoflow/tool"
)

type scriptedTransport struct {
	replies  [][]llm.RawEvent
	requests []*llm.Request[*message.Message]
}

func (s *scriptedTransport) Stream(_ context.Context, req *llm.Request[*message.Message]) iter.Seq2[llm.RawEvent, error] {
	s.requests = append(s.requests, req)
	n := len(s.requests) - 1
	return func(yield func(llm.RawEvent, error) bool) {
		if n >= len(s.replies) || s.replies[n] == nil {
			yield(llm.RawEvent{}, errors.New("connection reset"))
			return
		}
		for _, ev := range s.replies[n] {
			if !yield(ev, nil) {
				return
			}
		}
	}
}

func textReply(text string) []llm.RawEvent {
	return []llm.RawEvent{
		{Kind: llm.RawMessageStart, Usage: &llm.Usage{InputTokens: 10}},
		{Kind: llm.RawBlockStart, Block: llm.Block{Type: llm.BlockText}},
		{Kind: llm.RawBlockDelta, Delta: llm.Delta{Type: llm.DeltaText, Text: text}},
		{Kind: llm.RawBlockStop},
		{Kind: llm.RawMessageDelta, StopReason: "end_turn", Usage: &llm.Usage{OutputTokens: 3}},
		{Kind: llm.RawMessageStop},
	}
}

func toolReply(id, name, args string) []llm.RawEvent {
	return []llm.RawEvent{
		{Kind: llm.RawMessageStart, Usage: &llm.Usage{InputTokens: 10}},
		{Kind: llm.RawBlockStart, Block: llm.Block{Type: llm.BlockToolUse, ID: id, Name: name}},
		{Kind: llm.RawBlockDelta, Delta: llm.Delta{Type: llm.DeltaInputJSON, PartialJSON: args}},
		{Kind: llm.RawBlockStop},
		{Kind: llm.RawMessageDelta, StopReason: "tool_use", Usage: &llm.Usage{OutputTokens: 5}},
		{Kind: llm.RawMessageStop},
	}
}

type addArgs struct {
	A int `json:"a"`
	B int `json:"b"`
}

func addTool() *tool.Tool {
	return tool.New("add", "Adds two integers", func(_ context.Context, args addArgs) (string, error) {
		return fmt.Sprint(args.A + args.B), nil
	})
}

func newAgent(t *testing.T, transport *scriptedTransport, opts ...Option) *Agent[*message.Message] {
	t.Helper()
	client, err := llm.NewClient[*message.Message](transport, llm.WithLogger(logging.Discard()))
	require.NoError(t, err)
	opts = append([]Option{
		WithLogger(logging.Discard()),
		WithParams(llm.DefaultParams().WithModel("test-model")),
	}, opts...)
	a, err := New[*message.Message](client, message.Passthrough{}, opts...)
	require.NoError(t, err)
	return a
}

func TestRunWithoutTools(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{textReply("hi there")}}
	a := newAgent(t, transport)

	out, err := a.Run(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)

	msgs := a.Messages()
	require.Len(t, msgs, 2)
	assert.True(t, message.NewText(message.RoleUser, "hello?").Equal(msgs[0]))
	assert.True(t, message.NewText(message.RoleAssistant, "hi there").Equal(msgs[1]))

	require.Len(t, transport.requests, 1)
	req := transport.requests[0]
	assert.Equal(t, "test-model", req.Params.ModelID)
	require.Len(t, req.System, 1)
	assert.Equal(t, DefaultSystemPrompt, req.System[0].Text())
}

func TestRunExecutesTool(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{
		toolReply("call_1", "add", `{"a":1,"b":2}`),
		textReply("It is 3."),
	}}
	a := newAgent(t, transport, WithTools(addTool()))

	out, err := a.Run(context.Background(), "what is 1+2?")
	require.NoError(t, err)
	assert.Equal(t, "It is 3.", out)

	require.Len(t, transport.requests, 2)
	assert.Len(t, transport.requests[0].Tools, 1)

	history := transport.requests[1].History
	require.Len(t, history, 3)
	calls := history[1].ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "add", calls[0].Name)
	assert.Equal(t, message.RoleTool, history[2].Role)
	assert.Equal(t, message.ToolResult{ID: "call_1", Content: "3"}, history[2].Content[0])

	assert.Len(t, a.Messages(), 4)
}

func TestRunToolErrorBecomesResult(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{
		toolReply("call_1", "missing", `{}`),
		textReply("sorry"),
	}}
	a := newAgent(t, transport)

	_, err := a.Run(context.Background(), "use a tool")
	require.NoError(t, err)

	result, ok := transport.requests[1].History[2].Content[0].(message.ToolResult)
	require.True(t, ok)
	assert.Equal(t, "call_1", result.ID)
	assert.Contains(t, result.Content, "Error executing tool missing")
}

func TestRunMaxIterations(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{
		toolReply("call_1", "add", `{"a":1,"b":1}`),
		toolReply("call_2", "add", `{"a":2,"b":2}`),
	}}
	a := newAgent(t, transport, WithTools(addTool()), WithMaxIterations(2))

	_, err := a.Run(context.Background(), "loop")
	require.ErrorIs(t, err, ErrMaxIterations)
	assert.Len(t, transport.requests, 2)
}

func TestRunTransportError(t *testing.T) {
	a := newAgent(t, &scriptedTransport{})

	_, err := a.Run(context.Background(), "hello?")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "connection reset")
}

func TestRunEmptyInput(t *testing.T) {
	a := newAgent(t, &scriptedTransport{})

	_, err := a.Run(context.Background(), "  ")
	require.ErrorIs(t, err, errorskg.ErrInvalidInput)
	assert.Empty(t, a.Messages())
}

func TestRunCanceledContext(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{textReply("never")}}
	a := newAgent(t, transport)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := a.Run(ctx, "hello?")
	require.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, transport.requests)
}

func TestRunStreamEvents(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{
		toolReply("call_1", "add", `{"a":1,"b":2}`),
		textReply("3"),
	}}
	a := newAgent(t, transport, WithTools(addTool()))

	var types []llm.StreamEventType
	for ev, err := range a.RunStream(context.Background(), "what is 1+2?") {
		require.NoError(t, err)
		types = append(types, ev.Type)
	}

	assert.Equal(t, []llm.StreamEventType{
		llm.EventStart, llm.EventTool, llm.EventStop, llm.EventMetadata,
		llm.EventStart, llm.EventTextDelta, llm.EventStop, llm.EventMetadata,
	}, types)
}

func TestRunStreamError(t *testing.T) {
	a := newAgent(t, &scriptedTransport{})

	var last llm.StreamEvent
	var lastErr error
	for ev, err := range a.RunStream(context.Background(), "hello?") {
		last, lastErr = ev, err
	}
	require.Error(t, lastErr)
	assert.Equal(t, llm.EventError, last.Type)
}

func TestRunStreamEarlyBreak(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{textReply("hi")}}
	a := newAgent(t, transport)

	for ev, err := range a.RunStream(context.Background(), "hello?") {
		require.NoError(t, err)
		assert.Equal(t, llm.EventStart, ev.Type)
		break
	}

	assert.Empty(t, a.Messages())
}

func TestRunStreamBreakWithErrorHandler(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{textReply("hi")}}
	a := newAgent(t, transport, WithMiddleware(middleware.NewErrorHandler(func(err error) error {
		return errors.New("mapped: " + err.Error())
	})))

	seen := 0
	assert.NotPanics(t, func() {
		for range a.RunStream(context.Background(), "hello?") {
			seen++
			break
		}
	})
	assert.Equal(t, 1, seen)
	assert.Empty(t, a.Messages())
}

func TestFailedRunRestoresHistory(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{nil, textReply("hi")}}
	a := newAgent(t, transport)

	_, err := a.Run(context.Background(), "first")
	require.ErrorContains(t, err, "connection reset")
	assert.Empty(t, a.Messages())

	out, err := a.Run(context.Background(), "second")
	require.NoError(t, err)
	assert.Equal(t, "hi", out)

	history := transport.requests[1].History
	require.Len(t, history, 1)
	assert.Equal(t, "second", history[0].Text())
}

func TestFailedRunKeepsEarlierTurns(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{
		toolReply("call_1", "add", `{"a":1,"b":1}`),
		toolReply("call_2", "add", `{"a":2,"b":2}`),
	}}
	a := newAgent(t, transport, WithTools(addTool()), WithMaxIterations(2))
	require.NoError(t, a.AddMessage(message.NewText(message.RoleUser, "earlier")))
	require.NoError(t, a.AddMessage(message.NewText(message.RoleAssistant, "noted")))

	_, err := a.Run(context.Background(), "loop")
	require.ErrorIs(t, err, ErrMaxIterations)

	msgs := a.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "earlier", msgs[0].Text())
	assert.Equal(t, "noted", msgs[1].Text())
}

func TestUsageAccumulates(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{
		toolReply("call_1", "add", `{"a":1,"b":2}`),
		textReply("3"),
	}}
	a := newAgent(t, transport, WithTools(addTool()))

	_, err := a.Run(context.Background(), "what is 1+2?")
	require.NoError(t, err)

	usage := a.Usage()
	assert.Equal(t, int64(20), usage.InputTokens)
	assert.Equal(t, int64(8), usage.OutputTokens)
}

func TestSystemPromptAndDocuments(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{textReply("ok"), textReply("ok")}}
	a := newAgent(t, transport,
		WithSystemPrompt("Be terse."),
		WithSystemMessage(message.NewText(message.RoleSystem, "Use metric units.")),
		WithDocuments("doc one", "doc two"),
	)

	_, err := a.Run(context.Background(), "hello?")
	require.NoError(t, err)

	req := transport.requests[0]
	require.Len(t, req.System, 1)
	assert.Equal(t, "Be terse.Use metric units.", req.System[0].Text())
	require.Len(t, req.RAG, 1)
	assert.Len(t, req.RAG[0].Content, 2)

	require.NoError(t, a.RegisterPrompt("persona", "You are {{.who}}."))
	require.NoError(t, a.UsePrompt("persona", map[string]any{"who": "a pirate"}))
	_, err = a.Run(context.Background(), "again")
	require.NoError(t, err)
	assert.Equal(t, "You are a pirate.", transport.requests[1].System[0].Text())

	require.ErrorIs(t, a.UsePrompt("missing", nil), errorskg.ErrNotFound)
}

func TestClearMessages(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{textReply("hi")}}
	a := newAgent(t, transport)

	require.NoError(t, a.AddMessage(message.NewText(message.RoleUser, "earlier")))
	assert.Len(t, a.Messages(), 1)

	a.ClearMessages()
	assert.Empty(t, a.Messages())
}

func TestNewValidation(t *testing.T) {
	_, err := New[*message.Message](nil, message.Passthrough{})
	require.ErrorIs(t, err, errorskg.ErrInvalidInput)

	client, err := llm.NewClient[*message.Message](&scriptedTransport{})
	require.NoError(t, err)

	_, err = New[*message.Message](client, message.Passthrough{}, WithMaxIterations(0))
	require.ErrorIs(t, err, errorskg.ErrInvalidInput)

	_, err = New[*message.Message](client, message.Passthrough{}, WithParams(llm.Params{}))
	require.ErrorIs(t, err, errorskg.ErrInvalidInput)

	_, err = New[*message.Message](client, message.Passthrough{}, WithTools(addTool(), addTool()))
	require.ErrorIs(t, err, errorskg.ErrAlreadyExists)

	a, err := New[*message.Message](client, message.Passthrough{}, WithName("helper"))
	require.NoError(t, err)
	assert.Equal(t, "helper", a.Name())
	require.NoError(t, a.RegisterTool(addTool()))
	require.ErrorIs(t, a.RegisterTool(addTool()), errorskg.ErrAlreadyExists)
	assert.Len(t, a.Tools(), 1)
}

func TestRunThroughMiddleware(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{textReply("hi there")}}
	var seen []string
	a := newAgent(t, transport, WithMiddleware(
		middleware.NewFunc("rewrite", func(ctx *middleware.Context, next middleware.Handler) error {
			ctx.Input = "[checked] " + ctx.Input
			return next(ctx)
		}),
		middleware.NewResponseFilter(func(msg *message.Message) error {
			seen = append(seen, msg.Text())
			return nil
		}),
	))

	out, err := a.Run(context.Background(), "hello?")
	require.NoError(t, err)
	assert.Equal(t, "hi there", out)
	assert.Equal(t, []string{"hi there"}, seen)
	assert.Equal(t, "[checked] hello?", a.Messages()[0].Text())
}

func TestMiddlewareRejectsRun(t *testing.T) {
	transport := &scriptedTransport{replies: [][]llm.RawEvent{textReply("hi")}}
	a := newAgent(t, transport, WithMiddleware(limiter.NewRateLimiter(0.001, 1)))

	_, err := a.Run(context.Background(), "first")
	require.NoError(t, err)

	var events []llm.StreamEvent
	for ev, err := range a.RunStream(context.Background(), "second") {
		events = append(events, ev)
		assert.ErrorIs(t, err, limiter.ErrRateLimitExceeded)
	}
	require.Len(t, events, 1)
	assert.Equal(t, llm.EventError, events[0].Type)
	assert.Len(t, transport.requests, 1)
	assert.Len(t, a.Messages(), 2)
}
