package message

import "strings"

// Role represents the role of the message sender
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
	RoleTool      Role = "tool"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleSystem, RoleTool:
		return true
	}
	return false
}

// Message is one submitted conversation turn.
type Message struct {
	Role    Role
	Content []Content
}

// New creates a message with the given role and content units.
func New(role Role, content ...Content) *Message {
	return &Message{Role: role, Content: content}
}

// NewText creates a message holding one Text unit per string.
func NewText(role Role, texts ...string) *Message {
	content := make([]Content, 0, len(texts))
	for _, t := range texts {
		content = append(content, Text(t))
	}
	return &Message{Role: role, Content: content}
}

// NewToolResult creates a tool-role message carrying a single result.
func NewToolResult(id, content string) *Message {
	return &Message{Role: RoleTool, Content: []Content{ToolResult{ID: id, Content: content}}}
}

// NewToolCall creates an assistant message requesting a single tool invocation.
func NewToolCall(id, name string, input *Input) *Message {
	return &Message{Role: RoleAssistant, Content: []Content{ToolCall{ID: id, Name: name, Input: input}}}
}

// Text returns the concatenation of all text units.
func (m *Message) Text() string {
	var b strings.Builder
	for _, c := range m.Content {
		if t, ok := c.(Text); ok {
			b.WriteString(string(t))
		}
	}
	return b.String()
}

// ToolCalls returns the tool call units in order.
func (m *Message) ToolCalls() []ToolCall {
	var calls []ToolCall
	for _, c := range m.Content {
		if tc, ok := c.(ToolCall); ok {
			calls = append(calls, tc)
		}
	}
	return calls
}

// Clone creates a deep copy of the message.
func (m *Message) Clone() *Message {
	if m == nil {
		return nil
	}
	cloned := &Message{Role: m.Role}
	if m.Content != nil {
		cloned.Content = make([]Content, len(m.Content))
		for i, c := range m.Content {
			cloned.Content[i] = cloneContent(c)
		}
	}
	return cloned
}

// Equal reports whether both messages have the same role and content.
// Tool call inputs are compared by their JSON encoding, so key order matters.
func (m *Message) Equal(other *Message) bool {
	if m == nil || other == nil {
		return m == other
	}
	if m.Role != other.Role || len(m.Content) != len(other.Content) {
		return false
	}
	for i := range m.Content {
		if !equalContent(m.Content[i], other.Content[i]) {
			return false
		}
	}
	return true
}
