package llm

import "github.com/sweetpotato0/echoflow/message"

// StreamEventType identifies a normalized stream event.
type StreamEventType string

const (
	EventStart         StreamEventType = "start"
	EventTextDelta     StreamEventType = "text_delta"
	EventThinkingDelta StreamEventType = "thinking_delta"
	EventTool          StreamEventType = "tool"
	EventError         StreamEventType = "error"
	EventMetadata      StreamEventType = "metadata"
	EventStop          StreamEventType = "stop"
)

// StreamEvent is one unit of the provider-agnostic output vocabulary.
// Which payload field is set depends on Type.
type StreamEvent struct {
	Type StreamEventType
	// Text carries text_delta and thinking_delta fragments.
	Text       string
	Tool       *message.ToolCall
	StopReason string
	Metadata   *Metadata
	Err        error
}

// Usage is token accounting reported by a provider.
type Usage struct {
	InputTokens              int64 `json:"input_tokens"`
	OutputTokens             int64 `json:"output_tokens"`
	CacheCreationInputTokens int64 `json:"cache_creation_input_tokens,omitempty"`
	CacheReadInputTokens     int64 `json:"cache_read_input_tokens,omitempty"`
}

// Total returns input plus output tokens.
func (u *Usage) Total() int64 {
	if u == nil {
		return 0
	}
	return u.InputTokens + u.OutputTokens
}

func (u *Usage) clone() *Usage {
	if u == nil {
		return nil
	}
	c := *u
	return &c
}

// Metadata accumulates usage over one streamed call.
type Metadata struct {
	InputUsage  *Usage `json:"input_usage,omitempty"`
	OutputUsage *Usage `json:"output_usage,omitempty"`
}

// InputTokens returns the prompt tokens reported at message start, or those
// reported with the stop reason when the provider only sends usage at the end.
func (m *Metadata) InputTokens() int64 {
	if m == nil {
		return 0
	}
	if m.InputUsage != nil && m.InputUsage.InputTokens > 0 {
		return m.InputUsage.InputTokens
	}
	if m.OutputUsage != nil {
		return m.OutputUsage.InputTokens
	}
	return 0
}

// OutputTokens returns the completion tokens reported with the stop reason.
func (m *Metadata) OutputTokens() int64 {
	if m == nil || m.OutputUsage == nil {
		return 0
	}
	return m.OutputUsage.OutputTokens
}

// CacheReadTokens returns the prompt tokens served from the provider cache.
func (m *Metadata) CacheReadTokens() int64 {
	if m == nil {
		return 0
	}
	return max(m.InputUsage.cacheRead(), m.OutputUsage.cacheRead())
}

func (u *Usage) cacheRead() int64 {
	if u == nil {
		return 0
	}
	return u.CacheReadInputTokens
}

func (m *Metadata) clone() *Metadata {
	return &Metadata{
		InputUsage:  m.InputUsage.clone(),
		OutputUsage: m.OutputUsage.clone(),
	}
}
