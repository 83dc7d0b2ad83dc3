package message

import (
	"fmt"
	"iter"
	"slices"
)

// Buffer accumulates submitted messages and renders them as provider wire values.
type Buffer[W any] interface {
	Add(msg *Message) error
	Value() ([]W, error)
	Len() int
}

// Static merges and renders at Add time. Use it when content is final once appended.
// It is not safe for concurrent writers.
type Static[W any] struct {
	adapter  Adapter[W]
	merged   merged
	rendered []W
}

var _ Buffer[any] = (*Static[any])(nil)

// NewStatic creates an eager buffer. A nil adapter renders the merged turns themselves
// when W can hold a *Message, and the zero W otherwise.
func NewStatic[W any](adapter Adapter[W]) *Static[W] {
	return &Static[W]{adapter: adapter}
}

// Add merges msg and re-renders only the turn it changed.
func (s *Static[W]) Add(msg *Message) error {
	idx, err := s.merged.add(msg)
	if err != nil {
		return err
	}
	if idx < 0 {
		return nil
	}
	if idx == len(s.rendered) {
		var zero W
		s.rendered = append(s.rendered, zero)
	}
	s.rendered[idx] = s.render(s.merged.turns[idx])
	return nil
}

// Value returns the rendered view, one entry per merged turn.
// The elements are shared with the buffer and must not be modified.
func (s *Static[W]) Value() ([]W, error) {
	return slices.Clip(s.rendered), nil
}

// Len returns the number of merged turns.
func (s *Static[W]) Len() int {
	return len(s.merged.turns)
}

// Turns returns copies of the merged turns.
func (s *Static[W]) Turns() []*Message {
	turns := make([]*Message, len(s.merged.turns))
	for i, t := range s.merged.turns {
		turns[i] = t.Clone()
	}
	return turns
}

// All iterates over copies of the merged turns.
func (s *Static[W]) All() iter.Seq[*Message] {
	return func(yield func(*Message) bool) {
		for _, t := range s.merged.turns {
			if !yield(t.Clone()) {
				return
			}
		}
	}
}

func (s *Static[W]) render(turn *Message) W {
	if s.adapter != nil {
		return s.adapter.Adapt(turn)
	}
	w, _ := any(turn.Clone()).(W)
	return w
}

// Dynamic stores the messages it is given and merges them on every read.
//
// The buffer keeps the caller's pointers, so editing a message after Add but
// before Value changes the rendered output.
type Dynamic[W any] struct {
	adapter  Adapter[W]
	messages []*Message
}

var _ Buffer[any] = (*Dynamic[any])(nil)

// NewDynamic creates a lazy buffer.
func NewDynamic[W any](adapter Adapter[W]) *Dynamic[W] {
	return &Dynamic[W]{adapter: adapter}
}

// Add validates msg and stores it without copying.
func (d *Dynamic[W]) Add(msg *Message) error {
	if err := Validate(msg); err != nil {
		return err
	}
	d.messages = append(d.messages, msg)
	return nil
}

// Value replays every stored message through a fresh Static buffer.
// The cost is linear in the number of stored messages on every call.
func (d *Dynamic[W]) Value() ([]W, error) {
	s := NewStatic(d.adapter)
	for i, msg := range d.messages {
		if err := s.Add(msg); err != nil {
			return nil, fmt.Errorf("message %d: %w", i, err)
		}
	}
	return s.Value()
}

// Messages returns the stored messages in arrival order.
func (d *Dynamic[W]) Messages() []*Message {
	return slices.Clone(d.messages)
}

// Len returns the number of stored messages.
func (d *Dynamic[W]) Len() int {
	return len(d.messages)
}
