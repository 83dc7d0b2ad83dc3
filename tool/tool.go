package tool

import (
	"context"
	"fmt"

	json "github.com/goccy/go-json"
	"github.com/invopop/jsonschema"
	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/message"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// HandlerFunc executes a tool with decoded arguments and returns its textual output.
type HandlerFunc func(ctx context.Context, args map[string]any) (string, error)

// Tool represents a callable tool/function
type Tool struct {
	Name        string
	Description string
	// Input is a value whose type describes the arguments. It is reflected
	// into a JSON schema when Schema is nil.
	Input   any
	Schema  *jsonschema.Schema
	Handler HandlerFunc
}

var inputReflector = jsonschema.Reflector{
	Anonymous:      true,
	DoNotReference: true,
}

// New creates a tool whose arguments are decoded into T before fn runs.
func New[T any](name, description string, fn func(context.Context, T) (string, error)) *Tool {
	var zero T
	return &Tool{
		Name:        name,
		Description: description,
		Input:       zero,
		Handler: func(ctx context.Context, args map[string]any) (string, error) {
			raw, err := json.Marshal(args)
			if err != nil {
				return "", err
			}
			var in T
			if err := json.Unmarshal(raw, &in); err != nil {
				return "", fmt.Errorf("%w: %v", errorskg.ErrInvalidInput, err)
			}
			return fn(ctx, in)
		},
	}
}

// InputSchema returns the JSON schema of the tool arguments. The result is
// always an object schema with a non-nil Properties map.
func (t *Tool) InputSchema() *jsonschema.Schema {
	if t.Schema != nil {
		return t.Schema
	}
	if t.Input == nil {
		return &jsonschema.Schema{
			Type:       "object",
			Properties: orderedmap.New[string, *jsonschema.Schema](),
		}
	}
	schema := inputReflector.Reflect(t.Input)
	schema.Version = ""
	schema.ID = ""
	schema.Definitions = nil
	if schema.Properties == nil {
		schema.Properties = orderedmap.New[string, *jsonschema.Schema]()
	}
	return schema
}

// Call runs the tool for a model-issued call and pairs the output with the call ID.
func (t *Tool) Call(ctx context.Context, call message.ToolCall) (message.ToolResult, error) {
	if t.Handler == nil {
		return message.ToolResult{}, fmt.Errorf("tool %s has no handler", t.Name)
	}
	args := call.Args()
	if err := t.ValidateArgs(args); err != nil {
		return message.ToolResult{}, fmt.Errorf("invalid arguments: %w", err)
	}
	out, err := t.Handler(ctx, args)
	if err != nil {
		return message.ToolResult{}, err
	}
	return message.ToolResult{ID: call.ID, Content: out}, nil
}

// ValidateArgs checks that every required property is present.
func (t *Tool) ValidateArgs(args map[string]any) error {
	for _, name := range t.InputSchema().Required {
		if _, ok := args[name]; !ok {
			return fmt.Errorf("%w: missing required parameter: %s", errorskg.ErrInvalidInput, name)
		}
	}
	return nil
}

// Clone returns a shallow copy. The schema is shared.
func (t *Tool) Clone() *Tool {
	if t == nil {
		return nil
	}
	cloned := *t
	return &cloned
}

// MarshalJSON renders the tool as {name, description, input_schema}.
func (t *Tool) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Name        string             `json:"name"`
		Description string             `json:"description,omitempty"`
		InputSchema *jsonschema.Schema `json:"input_schema"`
	}{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: t.InputSchema(),
	})
}
