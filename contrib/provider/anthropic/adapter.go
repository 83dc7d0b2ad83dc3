package anthropic

import (
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	json "github.com/goccy/go-json"
	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/message"
)

// Adapter renders turns as Anthropic message params.
//
// Anthropic has no tool or system role: tool results travel in user turns and
// system turns are sent as user turns whose text the transport lifts into the
// request's system field.
type Adapter struct{}

var _ message.Adapter[anthropic.MessageParam] = Adapter{}

// Adapt converts one merged turn.
func (Adapter) Adapt(msg *message.Message) anthropic.MessageParam {
	role := anthropic.MessageParamRoleUser
	if msg.Role == message.RoleAssistant {
		role = anthropic.MessageParamRoleAssistant
	}

	blocks := make([]anthropic.ContentBlockParamUnion, 0, len(msg.Content))
	for _, c := range msg.Content {
		switch c := c.(type) {
		case message.Text:
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfText: &anthropic.TextBlockParam{Text: string(c)},
			})
		case message.ToolCall:
			input, err := c.InputJSON()
			if err != nil {
				input = []byte(`{}`)
			}
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolUse: &anthropic.ToolUseBlockParam{
					ID:    c.ID,
					Name:  c.Name,
					Input: json.RawMessage(input),
				},
			})
		case message.ToolResult:
			blocks = append(blocks, anthropic.ContentBlockParamUnion{
				OfToolResult: &anthropic.ToolResultBlockParam{
					ToolUseID: c.ID,
					Content: []anthropic.ToolResultBlockParamContentUnion{
						{OfText: &anthropic.TextBlockParam{Text: c.Content}},
					},
				},
			})
		}
	}
	return anthropic.MessageParam{Role: role, Content: blocks}
}

// ToMessage converts a message param back. A param carrying a tool_result
// block becomes a tool message.
func (Adapter) ToMessage(p anthropic.MessageParam) (*message.Message, error) {
	msg := &message.Message{Role: message.RoleUser}
	switch p.Role {
	case anthropic.MessageParamRoleAssistant:
		msg.Role = message.RoleAssistant
	case anthropic.MessageParamRoleUser:
	default:
		return nil, fmt.Errorf("%w: %q", errorskg.ErrUnsupportedRole, p.Role)
	}

	for i, block := range p.Content {
		switch {
		case block.OfText != nil:
			msg.Content = append(msg.Content, message.Text(block.OfText.Text))
		case block.OfToolUse != nil:
			input, err := toolInput(block.OfToolUse.Input)
			if err != nil {
				return nil, fmt.Errorf("tool_use block %d: %w", i, err)
			}
			msg.Content = append(msg.Content, message.ToolCall{
				ID:    block.OfToolUse.ID,
				Name:  block.OfToolUse.Name,
				Input: input,
			})
		case block.OfToolResult != nil:
			msg.Role = message.RoleTool
			msg.Content = append(msg.Content, message.ToolResult{
				ID:      block.OfToolResult.ToolUseID,
				Content: toolResultText(block.OfToolResult.Content),
			})
		default:
			return nil, fmt.Errorf("%w: block %d", errorskg.ErrUnsupportedContent, i)
		}
	}
	return msg, nil
}

func toolInput(v any) (*message.Input, error) {
	var raw []byte
	switch v := v.(type) {
	case nil:
		return message.NewInput(), nil
	case json.RawMessage:
		raw = v
	case []byte:
		raw = v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		raw = b
	}
	return message.ParseInput(raw)
}

func toolResultText(parts []anthropic.ToolResultBlockParamContentUnion) string {
	var b strings.Builder
	for _, part := range parts {
		if part.OfText != nil {
			b.WriteString(part.OfText.Text)
		}
	}
	return b.String()
}

// NewStatic returns an eager buffer rendering Anthropic params.
func NewStatic() *message.Static[anthropic.MessageParam] {
	return message.NewStatic[anthropic.MessageParam](Adapter{})
}

// NewDynamic returns a lazy buffer rendering Anthropic params.
func NewDynamic() *message.Dynamic[anthropic.MessageParam] {
	return message.NewDynamic[anthropic.MessageParam](Adapter{})
}
