package message

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoleValid(t *testing.T) {
	for _, r := range []Role{RoleUser, RoleAssistant, RoleSystem, RoleTool} {
		assert.True(t, r.Valid(), r)
	}
	assert.False(t, Role("narrator").Valid())
	assert.False(t, Role("").Valid())
}

func TestMessageText(t *testing.T) {
	msg := New(RoleAssistant, Text("Hello, "), ToolCall{ID: "1", Name: "x"}, Text("world"))
	assert.Equal(t, "Hello, world", msg.Text())

	calls := msg.ToolCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "x", calls[0].Name)
}

func TestMessageClone(t *testing.T) {
	original := New(RoleAssistant,
		Text("call"),
		ToolCall{ID: "1", Name: "x", Input: NewInput(Arg("a", 1))},
	)
	cloned := original.Clone()
	require.True(t, original.Equal(cloned))

	cloned.Content[0] = Text("changed")
	cloned.Content[1].(ToolCall).Input.Set("a", 2)

	assert.Equal(t, Text("call"), original.Content[0])
	v, _ := original.Content[1].(ToolCall).Input.Get("a")
	assert.Equal(t, 1, v)

	var nilMsg *Message
	assert.Nil(t, nilMsg.Clone())
}

func TestMessageEqual(t *testing.T) {
	a := New(RoleUser, Text("x"))
	assert.True(t, a.Equal(New(RoleUser, Text("x"))))
	assert.False(t, a.Equal(New(RoleAssistant, Text("x"))))
	assert.False(t, a.Equal(New(RoleUser, Text("x"), Text("y"))))
	assert.False(t, a.Equal(nil))

	call := func(in *Input) *Message {
		return New(RoleAssistant, ToolCall{ID: "1", Name: "f", Input: in})
	}
	assert.True(t, call(nil).Equal(call(NewInput())))
	assert.False(t, call(NewInput(Arg("a", 1), Arg("b", 2))).Equal(call(NewInput(Arg("b", 2), Arg("a", 1)))))
}

func TestToolCallArgs(t *testing.T) {
	tc := ToolCall{Input: NewInput(Arg("city", "Paris"), Arg("days", 3))}
	assert.Equal(t, map[string]any{"city": "Paris", "days": 3}, tc.Args())
	assert.Empty(t, ToolCall{}.Args())
}

func TestParseInput(t *testing.T) {
	in, err := ParseInput([]byte(`{"b": 1, "a": {"nested": true}}`))
	require.NoError(t, err)

	var keys []string
	for pair := in.Oldest(); pair != nil; pair = pair.Next() {
		keys = append(keys, pair.Key)
	}
	assert.Equal(t, []string{"b", "a"}, keys)

	_, err = ParseInput([]byte(`{"b":`))
	assert.Error(t, err)
}

func TestPassthroughRoundTrip(t *testing.T) {
	msg := NewToolResult("1", "ok")
	w := Passthrough{}.Adapt(msg)
	assert.NotSame(t, msg, w)

	back, err := Passthrough{}.ToMessage(w)
	require.NoError(t, err)
	assert.True(t, msg.Equal(back))
}
