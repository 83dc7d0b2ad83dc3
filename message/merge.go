package message

import (
	"fmt"

	errorskg "github.com/sweetpotato0/echoflow/errors"
)

// Validate checks that msg can be accepted by a buffer: a known role and
// content units that are valid for it.
func Validate(msg *Message) error {
	if msg == nil {
		return fmt.Errorf("%w: nil message", errorskg.ErrInvalidInput)
	}
	switch msg.Role {
	case RoleUser, RoleAssistant, RoleSystem:
		for i, c := range msg.Content {
			switch c.(type) {
			case Text:
			case ToolCall:
				if msg.Role == RoleSystem {
					return fmt.Errorf("%w: tool call at %d for role %q", errorskg.ErrUnsupportedContent, i, msg.Role)
				}
			default:
				return fmt.Errorf("%w: %T at %d for role %q", errorskg.ErrUnsupportedContent, c, i, msg.Role)
			}
		}
	case RoleTool:
		if len(msg.Content) != 1 {
			return fmt.Errorf("%w: tool message must hold exactly one tool result, got %d units",
				errorskg.ErrUnsupportedContent, len(msg.Content))
		}
		if _, ok := msg.Content[0].(ToolResult); !ok {
			return fmt.Errorf("%w: expected tool result, got %T", errorskg.ErrUnsupportedContent, msg.Content[0])
		}
	default:
		return fmt.Errorf("%w: %q", errorskg.ErrUnsupportedRole, msg.Role)
	}
	return nil
}

// merged is an ordered sequence of turns in which no two neighbouring
// non-tool turns share a role. Every tool turn holds exactly one ToolResult.
type merged struct {
	turns []*Message
}

// add merges msg into the turn sequence and returns the index of the turn
// that changed, or -1 when msg contributed nothing.
func (b *merged) add(msg *Message) (int, error) {
	if err := Validate(msg); err != nil {
		return -1, err
	}

	if msg.Role == RoleTool {
		b.turns = append(b.turns, &Message{Role: RoleTool, Content: []Content{msg.Content[0]}})
		return len(b.turns) - 1, nil
	}

	changed := -1
	for _, c := range msg.Content {
		if t, ok := c.(Text); ok && t == "" {
			continue
		}
		b.open(msg.Role)
		last := b.turns[len(b.turns)-1]
		last.Content = append(last.Content, c)
		changed = len(b.turns) - 1
	}
	return changed, nil
}

// open starts a new turn unless the last turn already belongs to role.
func (b *merged) open(role Role) {
	if n := len(b.turns); n > 0 && b.turns[n-1].Role == role {
		return
	}
	b.turns = append(b.turns, &Message{Role: role})
}
