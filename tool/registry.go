package tool

import (
	"context"
	"fmt"
	"sync"

	json "github.com/goccy/go-json"
	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/message"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Registry manages a collection of tools in registration order.
// All operations are thread-safe using RWMutex protection
type Registry struct {
	mu    sync.RWMutex
	tools *orderedmap.OrderedMap[string, *Tool]
}

// NewRegistry creates a new tool registry
func NewRegistry(tools ...*Tool) (*Registry, error) {
	r := &Registry{tools: orderedmap.New[string, *Tool]()}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a tool to the registry
func (r *Registry) Register(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("%w: tool name cannot be empty", errorskg.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.init()

	if _, exists := r.tools.Get(tool.Name); exists {
		return fmt.Errorf("%w: tool %s", errorskg.ErrAlreadyExists, tool.Name)
	}
	r.tools.Set(tool.Name, tool)
	return nil
}

// Upsert adds or replaces a tool definition. A replaced tool keeps its position.
func (r *Registry) Upsert(tool *Tool) error {
	if tool == nil || tool.Name == "" {
		return fmt.Errorf("%w: tool name cannot be empty", errorskg.ErrInvalidInput)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.init()
	r.tools.Set(tool.Name, tool)
	return nil
}

// Get retrieves a tool by name
func (r *Registry) Get(name string) (*Tool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.tools != nil {
		if tool, ok := r.tools.Get(name); ok {
			return tool, nil
		}
	}
	return nil, fmt.Errorf("%w: tool %s", errorskg.ErrNotFound, name)
}

// List returns all registered tools in registration order.
func (r *Registry) List() []*Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.tools == nil {
		return nil
	}
	tools := make([]*Tool, 0, r.tools.Len())
	for pair := r.tools.Oldest(); pair != nil; pair = pair.Next() {
		tools = append(tools, pair.Value)
	}
	return tools
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.tools == nil {
		return 0
	}
	return r.tools.Len()
}

// Execute runs the tool named by call.
func (r *Registry) Execute(ctx context.Context, call message.ToolCall) (message.ToolResult, error) {
	tool, err := r.Get(call.Name)
	if err != nil {
		return message.ToolResult{}, err
	}
	return tool.Call(ctx, call)
}

// MarshalJSON customizes JSON marshaling for Registry
func (r *Registry) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.List())
}

func (r *Registry) init() {
	if r.tools == nil {
		r.tools = orderedmap.New[string, *Tool]()
	}
}
