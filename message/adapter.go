package message

// Adapter translates messages to and from a provider's wire representation.
//
// Adapt must map every content variant deterministically and remap roles the
// provider has no native representation for. ToMessage is its inverse; for
// tool results the reconstructed role is RoleTool regardless of the wire role.
type Adapter[W any] interface {
	Adapt(msg *Message) W
	ToMessage(w W) (*Message, error)
}

// Passthrough is the identity adapter. Rendered values are copies.
type Passthrough struct{}

var _ Adapter[*Message] = Passthrough{}

func (Passthrough) Adapt(msg *Message) *Message {
	return msg.Clone()
}

func (Passthrough) ToMessage(msg *Message) (*Message, error) {
	return msg.Clone(), nil
}
