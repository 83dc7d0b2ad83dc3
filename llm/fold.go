package llm

import (
	"iter"
	"strings"

	"github.com/sweetpotato0/echoflow/message"
)

// Result is the aggregate of a normalized stream.
type Result struct {
	Text       string
	Thinking   string
	ToolCall   *message.ToolCall
	Metadata   *Metadata
	StopReason string
}

// Fold consumes the whole sequence. Text is concatenated in order, ToolCall
// and Metadata hold the last values seen. On error the partial result is
// returned alongside it.
func Fold(events iter.Seq2[StreamEvent, error]) (*Result, error) {
	var (
		res      Result
		text     strings.Builder
		thinking strings.Builder
	)
	for ev, err := range events {
		if err != nil {
			res.Text, res.Thinking = text.String(), thinking.String()
			return &res, err
		}
		switch ev.Type {
		case EventTextDelta:
			text.WriteString(ev.Text)
		case EventThinkingDelta:
			thinking.WriteString(ev.Text)
		case EventTool:
			res.ToolCall = ev.Tool
		case EventMetadata:
			res.Metadata = ev.Metadata
		case EventStop:
			res.StopReason = ev.StopReason
		}
	}
	res.Text, res.Thinking = text.String(), thinking.String()
	return &res, nil
}

// Message renders the result as an assistant message: the text first, then
// the tool call. Empty results produce a message with no content.
func (r *Result) Message() *message.Message {
	msg := message.New(message.RoleAssistant)
	if r.Text != "" {
		msg.Content = append(msg.Content, message.Text(r.Text))
	}
	if r.ToolCall != nil {
		msg.Content = append(msg.Content, *r.ToolCall)
	}
	return msg
}
