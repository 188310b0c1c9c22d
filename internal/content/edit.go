package content

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

// Edit operations. These are the only way element state changes: the
// editing surface sends structured intents and the tree applies them.

// Insert places el under the parent with the given id at index.
// An empty parentID targets the root sequence; index -1 appends.
func (t *Tree) Insert(el Element, parentID string, index int) error {
	if el.ID == "" {
		return fmt.Errorf("%w: inserted element missing id", ErrInvalid)
	}
	if t.contains(el.ID) {
		return fmt.Errorf("%w: duplicate element id %q", ErrInvalid, el.ID)
	}

	siblings, err := t.childSlice(parentID)
	if err != nil {
		return err
	}
	return insertAt(siblings, el, index)
}

// Move relocates the element with id under parentID at index. Moving an
// element into its own subtree is rejected. A failed move leaves the
// tree unchanged: the element keeps its original parent and position.
func (t *Tree) Move(id, parentID string, index int) error {
	if parentID != "" {
		if parentID == id {
			return fmt.Errorf("%w: %q into itself", ErrCycle, id)
		}
		el, ok := t.Find(id)
		if !ok {
			return fmt.Errorf("%w: %q", ErrElementNotFound, id)
		}
		if subtreeContains(el, parentID) {
			return fmt.Errorf("%w: %q into its descendant %q", ErrCycle, id, parentID)
		}
	}

	fromParent, fromIndex, ok := t.slotOf(id)
	if !ok {
		return fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}
	el, err := t.detach(id)
	if err != nil {
		return err
	}

	siblings, err := t.childSlice(parentID)
	if err != nil {
		t.restore(el, fromParent, fromIndex)
		return err
	}
	if err := insertAt(siblings, el, index); err != nil {
		t.restore(el, fromParent, fromIndex)
		return err
	}
	return nil
}

// Remove deletes the element with id and its subtree.
func (t *Tree) Remove(id string) error {
	_, err := t.detach(id)
	return err
}

// MergeProperties shallow-merges patch into the element's property bag.
// Later saves see the merged bag; nil values delete the key.
func (t *Tree) MergeProperties(id string, patch Properties) error {
	el := t.locate(id)
	if el == nil {
		return fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}

	if el.Properties == nil {
		el.Properties = make(Properties, len(patch))
	}
	for k, v := range patch {
		if v == nil {
			delete(el.Properties, k)
			continue
		}
		el.Properties[k] = cloneValue(v)
	}
	return nil
}

// SetProperty sets a single value inside the element's property bag by
// gjson-style path (e.g. "style.color" or "items.2.label").
func (t *Tree) SetProperty(id, path string, value any) error {
	el := t.locate(id)
	if el == nil {
		return fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}

	raw, err := json.Marshal(el.Properties)
	if err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}
	if el.Properties == nil {
		raw = []byte(`{}`)
	}

	patched, err := sjson.SetBytes(raw, path, value)
	if err != nil {
		return fmt.Errorf("set property %q: %w", path, err)
	}

	var bag Properties
	if err := json.Unmarshal(patched, &bag); err != nil {
		return fmt.Errorf("decode properties: %w", err)
	}
	el.Properties = bag
	return nil
}

// GetProperty reads a single value from the element's property bag by
// gjson-style path. The second return reports whether the element and
// the path both exist.
func (t Tree) GetProperty(id, path string) (any, bool) {
	el := locateIn(t.Elements, id)
	if el == nil || el.Properties == nil {
		return nil, false
	}

	raw, err := json.Marshal(el.Properties)
	if err != nil {
		return nil, false
	}
	res := gjson.GetBytes(raw, path)
	if !res.Exists() {
		return nil, false
	}
	return res.Value(), true
}

// DeleteProperty removes a value from the element's property bag by path.
func (t *Tree) DeleteProperty(id, path string) error {
	el := t.locate(id)
	if el == nil {
		return fmt.Errorf("%w: %q", ErrElementNotFound, id)
	}
	if el.Properties == nil {
		return nil
	}

	raw, err := json.Marshal(el.Properties)
	if err != nil {
		return fmt.Errorf("encode properties: %w", err)
	}
	patched, err := sjson.DeleteBytes(raw, path)
	if err != nil {
		return fmt.Errorf("delete property %q: %w", path, err)
	}

	var bag Properties
	if err := json.Unmarshal(patched, &bag); err != nil {
		return fmt.Errorf("decode properties: %w", err)
	}
	el.Properties = bag
	return nil
}

// childSlice returns the child sequence owned by parentID, or the root
// sequence for an empty id.
func (t *Tree) childSlice(parentID string) (*[]Element, error) {
	if parentID == "" {
		return &t.Elements, nil
	}
	parent := t.locate(parentID)
	if parent == nil {
		return nil, fmt.Errorf("%w: parent %q", ErrElementNotFound, parentID)
	}
	return &parent.Children, nil
}

// locate returns a pointer to the element with id, or nil.
func (t *Tree) locate(id string) *Element {
	return locateIn(t.Elements, id)
}

func locateIn(els []Element, id string) *Element {
	for i := range els {
		if els[i].ID == id {
			return &els[i]
		}
		if found := locateIn(els[i].Children, id); found != nil {
			return found
		}
	}
	return nil
}

// detach removes the element with id from wherever it sits and returns it.
func (t *Tree) detach(id string) (Element, error) {
	if el, ok := detachFrom(&t.Elements, id); ok {
		return el, nil
	}
	return Element{}, fmt.Errorf("%w: %q", ErrElementNotFound, id)
}

func detachFrom(els *[]Element, id string) (Element, bool) {
	for i := range *els {
		if (*els)[i].ID == id {
			el := (*els)[i]
			*els = append((*els)[:i], (*els)[i+1:]...)
			return el, true
		}
		if el, ok := detachFrom(&(*els)[i].Children, id); ok {
			return el, true
		}
	}
	return Element{}, false
}

// slotOf reports where id currently sits: its parent's id (empty for
// the root sequence) and its index among the siblings.
func (t *Tree) slotOf(id string) (parentID string, index int, ok bool) {
	return slotIn(t.Elements, "", id)
}

func slotIn(els []Element, parentID, id string) (string, int, bool) {
	for i := range els {
		if els[i].ID == id {
			return parentID, i, true
		}
		if p, idx, ok := slotIn(els[i].Children, els[i].ID, id); ok {
			return p, idx, ok
		}
	}
	return "", 0, false
}

// restore puts a detached element back into its original slot.
func (t *Tree) restore(el Element, parentID string, index int) {
	if siblings, err := t.childSlice(parentID); err == nil {
		if insertAt(siblings, el, index) == nil {
			return
		}
	}
	t.Elements = append(t.Elements, el)
}

func (t *Tree) contains(id string) bool {
	return t.locate(id) != nil
}

func subtreeContains(el Element, id string) bool {
	for _, child := range el.Children {
		if child.ID == id || subtreeContains(child, id) {
			return true
		}
	}
	return false
}

func insertAt(siblings *[]Element, el Element, index int) error {
	if index < 0 || index > len(*siblings) {
		if index == -1 {
			*siblings = append(*siblings, el)
			return nil
		}
		return fmt.Errorf("%w: index %d of %d", ErrBadPosition, index, len(*siblings))
	}

	*siblings = append(*siblings, Element{})
	copy((*siblings)[index+1:], (*siblings)[index:])
	(*siblings)[index] = el
	return nil
}
