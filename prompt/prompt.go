package prompt

import (
	"fmt"
	"strings"
	"sync"
	"text/template"

	errorskg "github.com/sweetpotato0/echoflow/errors"
	"github.com/sweetpotato0/echoflow/message"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

// Template is a named text/template whose output becomes a system turn.
// Referencing a variable that was not supplied is an error.
type Template struct {
	Name     string
	Content  string
	template *template.Template
}

// NewTemplate parses content.
func NewTemplate(name, content string) (*Template, error) {
	tmpl, err := template.New(name).Option("missingkey=error").Parse(content)
	if err != nil {
		return nil, fmt.Errorf("%w: parse template %s: %v", errorskg.ErrInvalidInput, name, err)
	}
	return &Template{
		Name:     name,
		Content:  content,
		template: tmpl,
	}, nil
}

// Render executes the template with vars.
func (t *Template) Render(vars map[string]any) (string, error) {
	var buf strings.Builder
	if err := t.template.Execute(&buf, vars); err != nil {
		return "", fmt.Errorf("render template %s: %w", t.Name, err)
	}
	return buf.String(), nil
}

// Message renders the template into a system message.
func (t *Template) Message(vars map[string]any) (*message.Message, error) {
	text, err := t.Render(vars)
	if err != nil {
		return nil, err
	}
	return message.NewText(message.RoleSystem, text), nil
}

// Manager keeps templates in registration order.
// All operations are thread-safe.
type Manager struct {
	mu        sync.RWMutex
	templates *orderedmap.OrderedMap[string, *Template]
}

// NewManager creates an empty manager.
func NewManager() *Manager {
	return &Manager{
		templates: orderedmap.New[string, *Template](),
	}
}

// Register adds a template. Names are unique.
func (m *Manager) Register(tmpl *Template) error {
	if tmpl == nil || tmpl.Name == "" {
		return fmt.Errorf("%w: template name cannot be empty", errorskg.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.templates.Get(tmpl.Name); exists {
		return fmt.Errorf("%w: template %s", errorskg.ErrAlreadyExists, tmpl.Name)
	}
	m.templates.Set(tmpl.Name, tmpl)
	return nil
}

// RegisterString parses and registers content under name.
func (m *Manager) RegisterString(name, content string) error {
	tmpl, err := NewTemplate(name, content)
	if err != nil {
		return err
	}
	return m.Register(tmpl)
}

// Get retrieves a template by name.
func (m *Manager) Get(name string) (*Template, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	tmpl, ok := m.templates.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: template %s", errorskg.ErrNotFound, name)
	}
	return tmpl, nil
}

// Render renders a template by name.
func (m *Manager) Render(name string, vars map[string]any) (string, error) {
	tmpl, err := m.Get(name)
	if err != nil {
		return "", err
	}
	return tmpl.Render(vars)
}

// Message renders a template by name into a system message.
func (m *Manager) Message(name string, vars map[string]any) (*message.Message, error) {
	tmpl, err := m.Get(name)
	if err != nil {
		return nil, err
	}
	return tmpl.Message(vars)
}

// List returns the template names in registration order.
func (m *Manager) List() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	names := make([]string, 0, m.templates.Len())
	for pair := m.templates.Oldest(); pair != nil; pair = pair.Next() {
		names = append(names, pair.Key)
	}
	return names
}

// Builder assembles a system prompt from parts. Each part becomes its own
// text unit so adapters that keep blocks separate can cache them individually.
type Builder struct {
	parts []string
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Add appends a part.
func (b *Builder) Add(part string) *Builder {
	b.parts = append(b.parts, part)
	return b
}

// AddFormat appends a formatted part.
func (b *Builder) AddFormat(format string, args ...any) *Builder {
	b.parts = append(b.parts, fmt.Sprintf(format, args...))
	return b
}

// AddSection appends a titled section.
func (b *Builder) AddSection(title, content string) *Builder {
	b.parts = append(b.parts, fmt.Sprintf("## %s\n%s\n", title, content))
	return b
}

// Build joins the parts into a single string.
func (b *Builder) Build() string {
	return strings.Join(b.parts, "")
}

// Message returns the parts as a system message, one text unit per part.
func (b *Builder) Message() *message.Message {
	return message.NewText(message.RoleSystem, b.parts...)
}

// Reset clears all parts.
func (b *Builder) Reset() *Builder {
	b.parts = nil
	return b
}
