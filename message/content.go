package message

import (
	json "github.com/goccy/go-json"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Content is a single unit of conversation content.
// The set of implementations is closed: Text, ToolCall and ToolResult.
type Content interface {
	content()
}

// Text is a plain text content unit.
type Text string

func (Text) content() {}

// Input holds tool call arguments in the order they were produced.
type Input = orderedmap.OrderedMap[string, any]

// Arg builds a single Input entry.
func Arg(key string, value any) orderedmap.Pair[string, any] {
	return orderedmap.Pair[string, any]{Key: key, Value: value}
}

// NewInput creates an Input from the given entries, keeping their order.
func NewInput(args ...orderedmap.Pair[string, any]) *Input {
	in := orderedmap.New[string, any](len(args))
	for _, a := range args {
		in.Set(a.Key, a.Value)
	}
	return in
}

// ParseInput decodes a JSON object into an Input, keeping key order.
func ParseInput(raw []byte) (*Input, error) {
	in := orderedmap.New[string, any]()
	if err := in.UnmarshalJSON(raw); err != nil {
		return nil, err
	}
	return in, nil
}

// ToolCall is a model request to invoke a tool.
type ToolCall struct {
	ID    string
	Name  string
	Input *Input
}

func (ToolCall) content() {}

// InputJSON returns the arguments encoded as a JSON object. A nil Input encodes as {}.
func (tc ToolCall) InputJSON() ([]byte, error) {
	if tc.Input == nil {
		return []byte(`{}`), nil
	}
	return json.Marshal(tc.Input)
}

// Args returns the arguments as a plain map.
func (tc ToolCall) Args() map[string]any {
	args := make(map[string]any)
	if tc.Input == nil {
		return args
	}
	for pair := tc.Input.Oldest(); pair != nil; pair = pair.Next() {
		args[pair.Key] = pair.Value
	}
	return args
}

// ToolResult is the output of a tool call, matched to it by ID.
type ToolResult struct {
	ID      string
	Content string
}

func (ToolResult) content() {}

func cloneContent(c Content) Content {
	tc, ok := c.(ToolCall)
	if !ok || tc.Input == nil {
		return c
	}
	in := orderedmap.New[string, any](tc.Input.Len())
	for pair := tc.Input.Oldest(); pair != nil; pair = pair.Next() {
		in.Set(pair.Key, pair.Value)
	}
	tc.Input = in
	return tc
}

func equalContent(a, b Content) bool {
	switch x := a.(type) {
	case Text:
		y, ok := b.(Text)
		return ok && x == y
	case ToolResult:
		y, ok := b.(ToolResult)
		return ok && x == y
	case ToolCall:
		y, ok := b.(ToolCall)
		if !ok || x.ID != y.ID || x.Name != y.Name {
			return false
		}
		xj, err := x.InputJSON()
		if err != nil {
			return false
		}
		yj, err := y.InputJSON()
		if err != nil {
			return false
		}
		return string(xj) == string(yj)
	default:
		return false
	}
}
