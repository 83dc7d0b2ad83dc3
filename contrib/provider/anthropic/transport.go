package anthropic

import (
	"context"
	"fmt"
	"iter"
	"log/slog"
	"slices"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sweetpotato0/echoflow/llm"
	"github.com/sweetpotato0/echoflow/pkg/logging"
)

// Transport streams requests through the Anthropic messages API.
type Transport struct {
	client anthropic.Client
	logger *slog.Logger
}

var _ llm.Transport[anthropic.MessageParam] = (*Transport)(nil)

// NewTransport wraps an SDK client. A nil logger uses the shared component logger.
func NewTransport(client anthropic.Client, logger *slog.Logger) *Transport {
	if logger == nil {
		logger = logging.WithComponent("anthropic")
	}
	return &Transport{client: client, logger: logger}
}

// Stream opens a streaming messages call. Closing happens when the iteration ends.
func (t *Transport) Stream(ctx context.Context, req *llm.Request[anthropic.MessageParam]) iter.Seq2[llm.RawEvent, error] {
	return func(yield func(llm.RawEvent, error) bool) {
		params := NewMessageParams(req)
		t.logger.Debug("opening stream",
			"request_id", req.ID,
			"model", params.Model,
			"messages", len(params.Messages),
			"system_blocks", len(params.System),
			"tools", len(params.Tools),
		)
		stream := t.client.Messages.NewStreaming(ctx, params)
		defer stream.Close()

		for stream.Next() {
			if !yield(RawEvent(stream.Current()), nil) {
				return
			}
		}
		if err := stream.Err(); err != nil {
			yield(llm.RawEvent{}, fmt.Errorf("anthropic stream: %w", err))
		}
	}
}

// NewMessageParams builds the SDK request. System and RAG text become system
// blocks; the cache strategy marks the last system block, the last history
// content block and the last tool on copies of the rendered values.
func NewMessageParams(req *llm.Request[anthropic.MessageParam]) anthropic.MessageNewParams {
	params := anthropic.MessageNewParams{
		Model:       anthropic.Model(req.Params.ModelID),
		MaxTokens:   req.Params.MaxTokens,
		Messages:    historyParams(req.History, req.Cache.CacheHistory),
		System:      systemBlocks(req.System, req.RAG, req.Cache.CacheSystem),
		Tools:       MarshalTools(req.Tools, req.Cache.CacheTool),
		Temperature: anthropic.Float(req.Params.Temperature),
		TopP:        anthropic.Float(req.Params.TopP),
	}
	if req.Params.TopK > 0 {
		params.TopK = anthropic.Int(req.Params.TopK)
	}
	return params
}

func systemBlocks(system, rag []anthropic.MessageParam, cache bool) []anthropic.TextBlockParam {
	var blocks []anthropic.TextBlockParam
	for _, p := range slices.Concat(system, rag) {
		for _, block := range p.Content {
			if block.OfText != nil {
				blocks = append(blocks, anthropic.TextBlockParam{Text: block.OfText.Text})
			}
		}
	}
	if cache && len(blocks) > 0 {
		blocks[len(blocks)-1].CacheControl = anthropic.NewCacheControlEphemeralParam()
	}
	return blocks
}

func historyParams(history []anthropic.MessageParam, cache bool) []anthropic.MessageParam {
	if !cache || len(history) == 0 {
		return history
	}
	out := slices.Clone(history)
	last := &out[len(out)-1]
	if len(last.Content) == 0 {
		return out
	}
	last.Content = slices.Clone(last.Content)
	last.Content[len(last.Content)-1] = withCacheControl(last.Content[len(last.Content)-1])
	return out
}

func withCacheControl(block anthropic.ContentBlockParamUnion) anthropic.ContentBlockParamUnion {
	switch {
	case block.OfText != nil:
		b := *block.OfText
		b.CacheControl = anthropic.NewCacheControlEphemeralParam()
		block.OfText = &b
	case block.OfToolUse != nil:
		b := *block.OfToolUse
		b.CacheControl = anthropic.NewCacheControlEphemeralParam()
		block.OfToolUse = &b
	case block.OfToolResult != nil:
		b := *block.OfToolResult
		b.CacheControl = anthropic.NewCacheControlEphemeralParam()
		block.OfToolResult = &b
	}
	return block
}

