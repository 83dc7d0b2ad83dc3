package message

import (
	"fmt"

	json "github.com/goccy/go-json"
	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

var (
	textJSON       = []byte(`{"type":"text"}`)
	toolCallJSON   = []byte(`{"type":"tool_call"}`)
	toolResultJSON = []byte(`{"type":"tool_result"}`)
	messageJSON    = []byte(`{}`)
)

// MarshalJSON serializes the text with a "type":"text" field.
func (t Text) MarshalJSON() ([]byte, error) {
	return sjson.SetBytes(textJSON, "text", string(t))
}

// MarshalJSON serializes the call with a "type":"tool_call" field.
func (tc ToolCall) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(toolCallJSON, "id", tc.ID)
	if err != nil {
		return nil, err
	}
	result, err = sjson.SetBytes(result, "name", tc.Name)
	if err != nil {
		return nil, err
	}
	input, err := tc.InputJSON()
	if err != nil {
		return nil, fmt.Errorf("failed to marshal tool input: %w", err)
	}
	return sjson.SetRawBytes(result, "input", input)
}

// MarshalJSON serializes the result with a "type":"tool_result" field.
func (tr ToolResult) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(toolResultJSON, "id", tr.ID)
	if err != nil {
		return nil, err
	}
	return sjson.SetBytes(result, "content", tr.Content)
}

// MarshalJSON serializes the role and every content unit in order.
func (m Message) MarshalJSON() ([]byte, error) {
	result, err := sjson.SetBytes(messageJSON, "role", string(m.Role))
	if err != nil {
		return nil, err
	}
	parts := make([]json.RawMessage, 0, len(m.Content))
	for i, c := range m.Content {
		raw, err := json.Marshal(c)
		if err != nil {
			return nil, fmt.Errorf("content at %d: %w", i, err)
		}
		parts = append(parts, raw)
	}
	content, err := json.Marshal(parts)
	if err != nil {
		return nil, err
	}
	return sjson.SetRawBytes(result, "content", content)
}

// UnmarshalJSON decodes a message, dispatching content units on their "type" field.
func (m *Message) UnmarshalJSON(input []byte) error {
	if !gjson.ValidBytes(input) {
		return fmt.Errorf("invalid json: %s", input)
	}
	jv := gjson.ParseBytes(input)

	role := jv.Get("role")
	if !role.Exists() {
		return fmt.Errorf("missing required field 'role'")
	}
	m.Role = Role(role.String())

	content := jv.Get("content")
	if !content.Exists() {
		m.Content = nil
		return nil
	}
	if content.Type == gjson.String {
		m.Content = []Content{Text(content.String())}
		return nil
	}
	if !content.IsArray() {
		return fmt.Errorf("'content' must be a string or an array")
	}

	items := content.Array()
	m.Content = make([]Content, 0, len(items))
	for idx, item := range items {
		c, err := decodeContent(item)
		if err != nil {
			return fmt.Errorf("content at %d: %w", idx, err)
		}
		m.Content = append(m.Content, c)
	}
	return nil
}

func decodeContent(item gjson.Result) (Content, error) {
	tpe := item.Get("type").String()
	switch tpe {
	case "text":
		text := item.Get("text")
		if !text.Exists() {
			return nil, fmt.Errorf("missing required field 'text'")
		}
		return Text(text.String()), nil
	case "tool_call":
		tc := ToolCall{
			ID:   item.Get("id").String(),
			Name: item.Get("name").String(),
		}
		if input := item.Get("input"); input.Exists() && input.IsObject() {
			in, err := ParseInput([]byte(input.Raw))
			if err != nil {
				return nil, fmt.Errorf("invalid tool input: %w", err)
			}
			tc.Input = in
		} else {
			tc.Input = NewInput()
		}
		return tc, nil
	case "tool_result":
		return ToolResult{
			ID:      item.Get("id").String(),
			Content: item.Get("content").String(),
		}, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", errorskg.ErrUnsupportedContent, tpe)
	}
}

// DecodeTranscript decodes a JSON array of messages.
func DecodeTranscript(data []byte) ([]*Message, error) {
	var msgs []*Message
	if err := json.Unmarshal(data, &msgs); err != nil {
		return nil, fmt.Errorf("failed to decode transcript: %w", err)
	}
	return msgs, nil
}
