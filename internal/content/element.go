package content

import "github.com/google/uuid"

// Properties is the string-keyed property bag carried by every element.
// Values are arbitrary JSON-shaped data (bool, number, string, array,
// nested map).
type Properties map[string]any

// Clone deep-copies the property bag.
func (p Properties) Clone() Properties {
	if p == nil {
		return nil
	}
	out := make(Properties, len(p))
	for k, v := range p {
		out[k] = cloneValue(v)
	}
	return out
}

// Element is one node in a document's content tree. Elements are owned
// by their tree and mutated only through tree-level operations; plugins
// receive copies.
type Element struct {
	// ID uniquely identifies the element within its tree.
	ID string `json:"id"`

	// Type is the block type identifier this element instantiates.
	Type string `json:"type"`

	// Properties is the element's property bag.
	Properties Properties `json:"properties,omitempty"`

	// Children is the ordered child sequence; block-dependent.
	Children []Element `json:"children,omitempty"`
}

// NewElement creates an element of the given type with a fresh id and a
// copy of the supplied defaults.
func NewElement(blockType string, defaults Properties) Element {
	return Element{
		ID:         uuid.NewString(),
		Type:       blockType,
		Properties: defaults.Clone(),
	}
}

// Clone deep-copies the element and its subtree.
func (e Element) Clone() Element {
	out := Element{
		ID:         e.ID,
		Type:       e.Type,
		Properties: e.Properties.Clone(),
	}
	if e.Children != nil {
		out.Children = make([]Element, len(e.Children))
		for i, child := range e.Children {
			out.Children[i] = child.Clone()
		}
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for k, item := range val {
			out[k] = cloneValue(item)
		}
		return out
	case Properties:
		return map[string]any(val.Clone())
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = cloneValue(item)
		}
		return out
	default:
		return v
	}
}
