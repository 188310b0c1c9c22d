package content

import (
	"encoding/json"
	"fmt"
)

// Tree is one in-memory editable document state: an ordered sequence of
// root elements.
type Tree struct {
	Elements []Element `json:"elements"`
}

// Clone deep-copies the tree.
func (t Tree) Clone() Tree {
	if t.Elements == nil {
		return Tree{}
	}
	out := Tree{Elements: make([]Element, len(t.Elements))}
	for i, el := range t.Elements {
		out.Elements[i] = el.Clone()
	}
	return out
}

// Len returns the total number of elements in the tree, including
// nested children.
func (t Tree) Len() int {
	n := 0
	t.Walk(func(Element) bool {
		n++
		return true
	})
	return n
}

// Walk visits every element depth-first in document order. Returning
// false from the visitor stops the walk.
func (t Tree) Walk(visit func(Element) bool) {
	walkElements(t.Elements, visit)
}

func walkElements(els []Element, visit func(Element) bool) bool {
	for _, el := range els {
		if !visit(el) {
			return false
		}
		if !walkElements(el.Children, visit) {
			return false
		}
	}
	return true
}

// Find returns a copy of the element with the id.
func (t Tree) Find(id string) (Element, bool) {
	var found Element
	ok := false
	t.Walk(func(el Element) bool {
		if el.ID == id {
			found = el.Clone()
			ok = true
			return false
		}
		return true
	})
	return found, ok
}

// Validate checks structural integrity: every element has an id and a
// type, and ids are unique within the tree. Violations wrap ErrInvalid.
func (t Tree) Validate() error {
	seen := make(map[string]bool)
	return validateElements(t.Elements, "", seen)
}

func validateElements(els []Element, parent string, seen map[string]bool) error {
	at := func(i int) string {
		if parent == "" {
			return fmt.Sprintf("elements[%d]", i)
		}
		return fmt.Sprintf("%s/children[%d]", parent, i)
	}

	for i, el := range els {
		if el.ID == "" {
			return fmt.Errorf("%w: %s missing id", ErrInvalid, at(i))
		}
		if el.Type == "" {
			return fmt.Errorf("%w: %s (%s) missing type", ErrInvalid, at(i), el.ID)
		}
		if seen[el.ID] {
			return fmt.Errorf("%w: duplicate element id %q", ErrInvalid, el.ID)
		}
		seen[el.ID] = true

		if err := validateElements(el.Children, at(i), seen); err != nil {
			return err
		}
	}
	return nil
}

// ToMap converts the tree to its JSON-shaped map form. Used where the
// tree crosses a type-agnostic boundary (Lua hooks, wire payloads).
func (t Tree) ToMap() (map[string]any, error) {
	data, err := json.Marshal(t)
	if err != nil {
		return nil, fmt.Errorf("encode tree: %w", err)
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return out, nil
}

// TreeFromMap converts the JSON-shaped map form back into a Tree.
func TreeFromMap(m map[string]any) (Tree, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return Tree{}, fmt.Errorf("encode tree map: %w", err)
	}
	var t Tree
	if err := json.Unmarshal(data, &t); err != nil {
		return Tree{}, fmt.Errorf("decode tree map: %w", err)
	}
	return t, nil
}
