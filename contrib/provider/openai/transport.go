package openai

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	json "github.com/goccy/go-json"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/packages/param"
	"github.com/sweetpotato0/echoflow/llm"
	"github.com/sweetpotato0/echoflow/pkg/logging"
	"github.com/sweetpotato0/echoflow/tool"
)

const (
	finishStop          = "stop"
	finishToolCalls     = "tool_calls"
	finishFunctionCall  = "function_call"
	finishLength        = "length"
	finishContentFilter = "content_filter"
)

// Transport streams requests through the chat completions API.
type Transport struct {
	client openai.Client
	logger *slog.Logger
}

var _ llm.Transport[openai.ChatCompletionMessageParamUnion] = (*Transport)(nil)

// NewTransport wraps an SDK client. A nil logger uses the shared component logger.
func NewTransport(client openai.Client, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = logging.WithComponent("openai")
	}
	return &Transport{client: client, logger: logger}
}

// Stream opens a streaming chat completion and translates its chunks.
func (t *Transport) Stream(ctx context.Context, req *llm.Request[openai.ChatCompletionMessageParamUnion]) iter.Seq2[llm.RawEvent, error] {
	return func(yield func(llm.RawEvent, error) bool) {
		params, err := NewChatParams(req)
		if err != nil {
			yield(llm.RawEvent{}, err)
			return
		}
		t.logger.Debug("opening stream",
			"request_id", req.ID,
			"model", params.Model,
			"messages", len(params.Messages),
			"tools", len(params.Tools),
		)

		stream := t.client.Chat.Completions.NewStreaming(ctx, params)
		defer stream.Close()

		var conv Converter
		for stream.Next() {
			for _, raw := range conv.Convert(stream.Current()) {
				if !yield(raw, nil) {
					return
				}
			}
		}
		if err := stream.Err(); err != nil {
			yield(llm.RawEvent{}, fmt.Errorf("openai stream: %w", err))
			return
		}
		for _, raw := range conv.Finish() {
			if !yield(raw, nil) {
				return
			}
		}
	}
}

// NewChatParams builds the SDK request. System and RAG messages precede the
// history. Top-k has no chat completions equivalent and is not sent; prompt
// caching is automatic on this API so the cache strategy is ignored.
func NewChatParams(req *llm.Request[openai.ChatCompletionMessageParamUnion]) (openai.ChatCompletionNewParams, error) {
	tools, err := MarshalTools(req.Tools)
	if err != nil {
		return openai.ChatCompletionNewParams{}, err
	}
	return openai.ChatCompletionNewParams{
		Model:               openai.ChatModel(req.Params.ModelID),
		Messages:            slices.Concat(req.System, req.RAG, req.History),
		MaxCompletionTokens: param.NewOpt(req.Params.MaxTokens),
		Temperature:         param.NewOpt(req.Params.Temperature),
		TopP:                param.NewOpt(req.Params.TopP),
		Tools:               tools,
		StreamOptions: openai.ChatCompletionStreamOptionsParam{
			IncludeUsage: param.NewOpt(true),
		},
	}, nil
}

// MarshalTools renders tool specs as functions.
func MarshalTools(tools []*tool.Tool) ([]openai.ChatCompletionToolParam, error) {
	if len(tools) == 0 {
		return nil, nil
	}
	out := make([]openai.ChatCompletionToolParam, 0, len(tools))
	for _, t := range tools {
		data, err := json.Marshal(t.InputSchema())
		if err != nil {
			return nil, fmt.Errorf("tool %s schema: %w", t.Name, err)
		}
		var parameters openai.FunctionParameters
		if err := json.Unmarshal(data, &parameters); err != nil {
			return nil, fmt.Errorf("tool %s schema: %w", t.Name, err)
		}
		fn := openai.FunctionDefinitionParam{
			Name:       t.Name,
			Parameters: parameters,
		}
		if t.Description != "" {
			fn.Description = param.NewOpt(t.Description)
		}
		out = append(out, openai.ChatCompletionToolParam{Function: fn})
	}
	return out, nil
}

// Converter translates chat completion chunks into raw events. Text and each
// tool call id become their own content block, a block is closed before the
// next opens, and the stop reason is reported by Finish together with the
// usage of the final chunk.
type Converter struct {
	started    bool
	open       string
	blocks     int64
	index      int64
	toolID     string
	stopReason string
	usage      *llm.Usage
}

// Convert handles one chunk. Only the first choice is followed.
func (c *Converter) Convert(chunk openai.ChatCompletionChunk) []llm.RawEvent {
	var out []llm.RawEvent
	if !c.started {
		c.started = true
		out = append(out, llm.RawEvent{Kind: llm.RawMessageStart})
	}
	if chunk.Usage.PromptTokens > 0 || chunk.Usage.CompletionTokens > 0 {
		c.usage = &llm.Usage{
			InputTokens:          chunk.Usage.PromptTokens,
			OutputTokens:         chunk.Usage.CompletionTokens,
			CacheReadInputTokens: chunk.Usage.PromptTokensDetails.CachedTokens,
		}
	}

	idx := slices.IndexFunc(chunk.Choices, func(ch openai.ChatCompletionChunkChoice) bool { return ch.Index == 0 })
	if idx < 0 {
		return out
	}
	choice := chunk.Choices[idx]

	if text := choice.Delta.Content; text != "" {
		if c.open != llm.BlockText {
			out = append(out, c.closeBlock()...)
			out = append(out, c.openBlock(llm.Block{Type: llm.BlockText}))
		}
		out = append(out, llm.RawEvent{
			Kind:  llm.RawBlockDelta,
			Index: c.index,
			Delta: llm.Delta{Type: llm.DeltaText, Text: text},
		})
	}

	for _, tc := range choice.Delta.ToolCalls {
		if tc.ID != "" && tc.ID != c.toolID {
			out = append(out, c.closeBlock()...)
			c.toolID = tc.ID
			out = append(out, c.openBlock(llm.Block{Type: llm.BlockToolUse, ID: tc.ID, Name: tc.Function.Name}))
		}
		if c.open == llm.BlockToolUse && tc.Function.Arguments != "" {
			out = append(out, llm.RawEvent{
				Kind:  llm.RawBlockDelta,
				Index: c.index,
				Delta: llm.Delta{Type: llm.DeltaInputJSON, PartialJSON: tc.Function.Arguments},
			})
		}
	}

	if choice.FinishReason != "" {
		out = append(out, c.closeBlock()...)
		c.stopReason = stopReason(string(choice.FinishReason))
	}
	return out
}

// Finish closes any open block and reports the stop reason and usage.
func (c *Converter) Finish() []llm.RawEvent {
	if !c.started {
		return nil
	}
	out := c.closeBlock()
	return append(out,
		llm.RawEvent{Kind: llm.RawMessageDelta, StopReason: c.stopReason, Usage: c.usage},
		llm.RawEvent{Kind: llm.RawMessageStop},
	)
}

func (c *Converter) openBlock(b llm.Block) llm.RawEvent {
	c.index = c.blocks
	c.blocks++
	c.open = b.Type
	return llm.RawEvent{Kind: llm.RawBlockStart, Index: c.index, Block: b}
}

func (c *Converter) closeBlock() []llm.RawEvent {
	if c.open == "" {
		return nil
	}
	if c.open == llm.BlockToolUse {
		c.toolID = ""
	}
	c.open = ""
	return []llm.RawEvent{{Kind: llm.RawBlockStop, Index: c.index}}
}

// stopReason maps finish reasons onto the stop reasons used by Anthropic so
// callers can branch on one vocabulary.
func stopReason(finish string) string {
	switch finish {
	case finishStop:
		return "end_turn"
	case finishToolCalls, finishFunctionCall:
		return "tool_use"
	case finishLength:
		return "max_tokens"
	case finishContentFilter:
		return "refusal"
	default:
		return finish
	}
}
