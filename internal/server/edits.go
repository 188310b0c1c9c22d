package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/blockpress/blockpress/internal/compose"
	"github.com/blockpress/blockpress/internal/content"
	"github.com/blockpress/blockpress/internal/revision"
)

// editIntent is one structured edit. Op selects the operation; the
// other fields are read per op:
//
//	insert  element, parent_id, index (element id optional; one is
//	        assigned and catalog defaults applied when absent)
//	move    id, parent_id, index
//	remove  id
//	merge   id, properties (nil values delete keys)
//	set     id, path, value
//	unset   id, path
type editIntent struct {
	Op         string             `json:"op"`
	ID         string             `json:"id,omitempty"`
	ParentID   string             `json:"parent_id,omitempty"`
	Index      *int               `json:"index,omitempty"`
	Element    *content.Element   `json:"element,omitempty"`
	Properties content.Properties `json:"properties,omitempty"`
	Path       string             `json:"path,omitempty"`
	Value      any                `json:"value,omitempty"`
}

type editsRequest struct {
	Edits []editIntent `json:"edits"`
}

// handleEdits applies a batch of edits to the document's head tree and
// saves the result as one new revision. A document with no revisions
// starts from an empty tree, so a first batch of inserts creates it.
// The batch is atomic: any failing edit rejects the whole request and
// nothing is appended.
//
// Each document has one edit session; the batch walks its lifecycle
// (editing, saving, back to viewing). A batch arriving while another
// batch for the same document is mid-save is rejected as a conflict.
func (s *Server) handleEdits(w http.ResponseWriter, r *http.Request) {
	var req editsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	if len(req.Edits) == 0 {
		s.writeError(w, fmt.Errorf("%w: empty edit batch", errBadRequest))
		return
	}

	docID := r.PathValue("id")
	tree := content.Tree{}
	if head, err := s.store.Head(r.Context(), docID); err == nil {
		tree = head.Snapshot
	} else if !errors.Is(err, revision.ErrNotFound) {
		s.writeError(w, err)
		return
	}

	session := s.documentSession(docID)
	if err := session.Edit(); err != nil {
		s.writeError(w, err)
		return
	}
	if err := session.Rebase(tree); err != nil {
		s.writeError(w, err)
		return
	}

	for i, edit := range req.Edits {
		edit := edit
		err := session.Apply(func(t *content.Tree) error {
			return s.applyEdit(t, edit)
		})
		if err != nil {
			s.writeError(w, fmt.Errorf("edit %d (%s): %w", i, edit.Op, err))
			return
		}
	}

	draft, err := session.BeginSave()
	if err != nil {
		s.writeError(w, err)
		return
	}
	rev, err := s.resolver.Save(r.Context(), docID, draft)
	if err != nil {
		session.FinishSave(content.Tree{}, false)
		s.writeError(w, err)
		return
	}
	session.FinishSave(rev.Snapshot, true)

	s.writeJSON(w, http.StatusCreated, metaOf(docID, rev))
}

// documentSession returns the document's edit session, creating it on
// first use.
func (s *Server) documentSession(docID string) *compose.Session {
	s.sessionsMu.Lock()
	defer s.sessionsMu.Unlock()

	session, ok := s.sessions[docID]
	if !ok {
		session = compose.NewSession(docID, content.Tree{})
		s.sessions[docID] = session
	}
	return session
}

func (s *Server) applyEdit(tree *content.Tree, edit editIntent) error {
	index := -1
	if edit.Index != nil {
		index = *edit.Index
	}

	switch edit.Op {
	case "insert":
		if edit.Element == nil {
			return fmt.Errorf("%w: insert needs an element", errBadRequest)
		}
		el := *edit.Element
		if el.ID == "" {
			el = s.newElement(el)
		}
		return tree.Insert(el, edit.ParentID, index)
	case "move":
		return tree.Move(edit.ID, edit.ParentID, index)
	case "remove":
		return tree.Remove(edit.ID)
	case "merge":
		return tree.MergeProperties(edit.ID, edit.Properties)
	case "set":
		return tree.SetProperty(edit.ID, edit.Path, edit.Value)
	case "unset":
		return tree.DeleteProperty(edit.ID, edit.Path)
	default:
		return fmt.Errorf("%w: unknown op %q", errBadRequest, edit.Op)
	}
}

// newElement builds a fresh element of the given type, layering the
// request's properties over the catalog defaults when the type is
// registered.
func (s *Server) newElement(from content.Element) content.Element {
	var defaults map[string]any
	if def, ok := s.registry.Catalog().Get(from.Type); ok {
		defaults = def.DefaultProperties
	}

	el := content.NewElement(from.Type, defaults)
	if el.Properties == nil {
		el.Properties = make(content.Properties, len(from.Properties))
	}
	for k, v := range from.Properties {
		el.Properties[k] = v
	}
	el.Children = from.Children
	return el
}
