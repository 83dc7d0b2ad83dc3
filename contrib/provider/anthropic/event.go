package anthropic

import (
	"github.com/anthropics/anthropic-sdk-go"
	"github.com/sweetpotato0/echoflow/llm"
)

// RawEvent projects an SDK stream event onto the normalizer's vocabulary.
// Unknown event types keep their type tag and no payload.
func RawEvent(event anthropic.MessageStreamEventUnion) llm.RawEvent {
	raw := llm.RawEvent{Kind: llm.RawEventKind(event.Type)}

	switch event.Type {
	case "message_start":
		usage := event.AsMessageStart().Message.Usage
		raw.Usage = &llm.Usage{
			InputTokens:              usage.InputTokens,
			OutputTokens:             usage.OutputTokens,
			CacheCreationInputTokens: usage.CacheCreationInputTokens,
			CacheReadInputTokens:     usage.CacheReadInputTokens,
		}
	case "content_block_start":
		start := event.AsContentBlockStart()
		raw.Index = start.Index
		raw.Block = llm.Block{
			Type: start.ContentBlock.Type,
			ID:   start.ContentBlock.ID,
			Name: start.ContentBlock.Name,
		}
	case "content_block_delta":
		delta := event.AsContentBlockDelta()
		raw.Index = delta.Index
		raw.Delta = llm.Delta{
			Type:        delta.Delta.Type,
			Text:        delta.Delta.Text,
			PartialJSON: delta.Delta.PartialJSON,
			Thinking:    delta.Delta.Thinking,
		}
	case "content_block_stop":
		raw.Index = event.AsContentBlockStop().Index
	case "message_delta":
		delta := event.AsMessageDelta()
		raw.StopReason = string(delta.Delta.StopReason)
		raw.Usage = &llm.Usage{
			InputTokens:              delta.Usage.InputTokens,
			OutputTokens:             delta.Usage.OutputTokens,
			CacheCreationInputTokens: delta.Usage.CacheCreationInputTokens,
			CacheReadInputTokens:     delta.Usage.CacheReadInputTokens,
		}
	}
	return raw
}
