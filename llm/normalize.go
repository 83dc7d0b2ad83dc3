package llm

import (
	"iter"
	"log/slog"
	"strings"

	"github.com/kaptinlin/jsonrepair"
	"github.com/sweetpotato0/echoflow/message"
)

// NormalizeOption configures Normalize.
type NormalizeOption func(*normalizer)

// WithArgumentRepair makes the normalizer try to repair malformed tool
// arguments before falling back to an empty object.
func WithArgumentRepair() NormalizeOption {
	return func(n *normalizer) {
		n.repair = true
	}
}

// WithEventLogger logs every raw event at debug level.
func WithEventLogger(logger *slog.Logger) NormalizeOption {
	return func(n *normalizer) {
		n.logger = logger
	}
}

// Normalize turns a raw provider event sequence into normalized stream events.
//
// Text fragments are emitted as they arrive. Tool arguments are buffered and
// emitted as a single tool event when their block stops; arguments that do not
// parse as a JSON object become an empty input instead of failing the stream.
// A stop event is always immediately followed by a metadata event.
//
// State is local to each iteration of the returned sequence. A transport error
// is yielded once, paired with an error event, and ends the sequence.
func Normalize(raw iter.Seq2[RawEvent, error], opts ...NormalizeOption) iter.Seq2[StreamEvent, error] {
	return func(yield func(StreamEvent, error) bool) {
		n := &normalizer{}
		for _, opt := range opts {
			opt(n)
		}
		for ev, err := range raw {
			if err != nil {
				yield(StreamEvent{Type: EventError, Err: err}, err)
				return
			}
			if !n.step(ev, yield) {
				return
			}
		}
	}
}

type normalizer struct {
	repair bool
	logger *slog.Logger

	meta     Metadata
	toolID   string
	toolName string
	args     strings.Builder
}

func (n *normalizer) step(ev RawEvent, yield func(StreamEvent, error) bool) bool {
	if n.logger != nil {
		n.logger.Debug("raw event", "kind", ev.Kind, "index", ev.Index, "block", ev.Block.Type, "delta", ev.Delta.Type)
	}

	switch ev.Kind {
	case RawMessageStart:
		n.meta.InputUsage = ev.Usage.clone()
		return yield(StreamEvent{Type: EventStart}, nil)

	case RawBlockStart:
		if ev.Block.Type == BlockToolUse {
			n.toolID = ev.Block.ID
			n.toolName = ev.Block.Name
			n.args.Reset()
		}

	case RawBlockDelta:
		switch ev.Delta.Type {
		case DeltaText:
			if ev.Delta.Text != "" {
				return yield(StreamEvent{Type: EventTextDelta, Text: ev.Delta.Text}, nil)
			}
		case DeltaThinking:
			if ev.Delta.Thinking != "" {
				return yield(StreamEvent{Type: EventThinkingDelta, Text: ev.Delta.Thinking}, nil)
			}
		case DeltaInputJSON:
			n.args.WriteString(ev.Delta.PartialJSON)
		}

	case RawBlockStop:
		if n.toolID == "" {
			return true
		}
		call := &message.ToolCall{
			ID:    n.toolID,
			Name:  n.toolName,
			Input: n.parseArgs(),
		}
		n.toolID, n.toolName = "", ""
		n.args.Reset()
		return yield(StreamEvent{Type: EventTool, Tool: call}, nil)

	case RawMessageDelta:
		if !yield(StreamEvent{Type: EventStop, StopReason: ev.StopReason}, nil) {
			return false
		}
		n.meta.OutputUsage = ev.Usage.clone()
		return yield(StreamEvent{Type: EventMetadata, Metadata: n.meta.clone()}, nil)
	}
	return true
}

func (n *normalizer) parseArgs() *message.Input {
	raw := n.args.String()
	if strings.TrimSpace(raw) == "" {
		return message.NewInput()
	}
	if in, err := message.ParseInput([]byte(raw)); err == nil {
		return in
	}
	if n.repair {
		if fixed, err := jsonrepair.JSONRepair(raw); err == nil {
			if in, err := message.ParseInput([]byte(fixed)); err == nil {
				return in
			}
		}
	}
	if n.logger != nil {
		n.logger.Warn("tool arguments are not a JSON object, using empty input", "tool", n.toolName, "id", n.toolID)
	}
	return message.NewInput()
}
