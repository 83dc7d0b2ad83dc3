package llm

// RawEventKind tags a raw provider event.
type RawEventKind string

const (
	RawMessageStart RawEventKind = "message_start"
	RawBlockStart   RawEventKind = "content_block_start"
	RawBlockDelta   RawEventKind = "content_block_delta"
	RawBlockStop    RawEventKind = "content_block_stop"
	RawMessageDelta RawEventKind = "message_delta"
	RawMessageStop  RawEventKind = "message_stop"
	RawPing         RawEventKind = "ping"
)

// Content block types.
const (
	BlockText     = "text"
	BlockToolUse  = "tool_use"
	BlockThinking = "thinking"
)

// Delta types.
const (
	DeltaText      = "text_delta"
	DeltaInputJSON = "input_json_delta"
	DeltaThinking  = "thinking_delta"
)

// Block describes the content block opened by a content_block_start event.
type Block struct {
	Type string
	ID   string
	Name string
}

// Delta is the payload of a content_block_delta event.
type Delta struct {
	Type        string
	Text        string
	PartialJSON string
	Thinking    string
}

// RawEvent is a provider-agnostic projection of one low-level streaming event.
// Transports translate their SDK events into this shape; kinds they do not
// recognise pass through unchanged and are ignored by Normalize.
type RawEvent struct {
	Kind       RawEventKind
	Index      int64
	Block      Block
	Delta      Delta
	StopReason string
	Usage      *Usage
}
