package block

// Capability is a flag a block definition can declare.
type Capability string

// Known capabilities.
const (
	// CapabilityChildren - the block may contain nested elements.
	CapabilityChildren Capability = "children"

	// CapabilityEditable - the block exposes inline editing controls.
	CapabilityEditable Capability = "editable"

	// CapabilityDynamic - the block's output depends on external data
	// and must be re-resolved on every render.
	CapabilityDynamic Capability = "dynamic"
)

// Definition describes a registered block type.
// Definitions are immutable once registered; the catalog stores and
// returns copies so callers can never mutate a registered definition.
type Definition struct {
	// ID uniquely identifies the block type (e.g., "core/heading").
	ID string

	// DisplayName is the human-readable name shown in pickers.
	DisplayName string

	// DefaultProperties is the property bag new elements of this type
	// start with.
	DefaultProperties map[string]any

	// Capabilities are the flags this block declares.
	Capabilities []Capability
}

// HasCapability returns true if the definition declares the capability.
func (d Definition) HasCapability(c Capability) bool {
	for _, have := range d.Capabilities {
		if have == c {
			return true
		}
	}
	return false
}

// clone returns a deep copy of the definition.
func (d Definition) clone() Definition {
	out := Definition{
		ID:          d.ID,
		DisplayName: d.DisplayName,
	}
	if d.DefaultProperties != nil {
		out.DefaultProperties = cloneBag(d.DefaultProperties)
	}
	if d.Capabilities != nil {
		out.Capabilities = make([]Capability, len(d.Capabilities))
		copy(out.Capabilities, d.Capabilities)
	}
	return out
}

// cloneBag deep-copies a property bag. Nested maps and slices are copied;
// scalar values are shared, which is safe because they are immutable.
func cloneBag(bag map[string]any) map[string]any {
	out := make(map[string]any, len(bag))
	for k, v := range bag {
		out[k] = cloneValue(v)
	}
	return out
}

func cloneValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return cloneBag(val)
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
