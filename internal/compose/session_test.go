package compose

import (
	"errors"
	"testing"

	"github.com/blockpress/blockpress/internal/content"
)

func draftTree() content.Tree {
	return content.Tree{Elements: []content.Element{
		{ID: "p", Type: "core/paragraph", Properties: content.Properties{"text": "hello"}},
	}}
}

func TestSessionLifecycle(t *testing.T) {
	s := NewSession("doc-1", draftTree())
	if s.State() != SessionViewing {
		t.Fatalf("initial state = %v, want viewing", s.State())
	}

	if err := s.Edit(); err != nil {
		t.Fatalf("Edit: %v", err)
	}
	if s.State() != SessionEditing {
		t.Fatalf("state = %v, want editing", s.State())
	}

	draft, err := s.BeginSave()
	if err != nil {
		t.Fatalf("BeginSave: %v", err)
	}
	if s.State() != SessionSaving {
		t.Fatalf("state = %v, want saving", s.State())
	}

	s.FinishSave(draft, true)
	if s.State() != SessionViewing {
		t.Errorf("state = %v, want viewing after successful save", s.State())
	}
}

func TestSessionApplyRequiresEditing(t *testing.T) {
	s := NewSession("doc-1", draftTree())

	err := s.Apply(func(*content.Tree) error { return nil })
	if !errors.Is(err, ErrSessionBusy) {
		t.Errorf("Apply while viewing = %v, want ErrSessionBusy", err)
	}

	s.Edit()
	err = s.Apply(func(tr *content.Tree) error {
		tr.Elements[0].Properties["text"] = "edited"
		return nil
	})
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if s.Draft().Elements[0].Properties["text"] != "edited" {
		t.Error("draft not updated")
	}
}

func TestSessionApplyRollsBackOnError(t *testing.T) {
	s := NewSession("doc-1", draftTree())
	s.Edit()

	err := s.Apply(func(tr *content.Tree) error {
		tr.Elements[0].Properties["text"] = "half done"
		return errors.New("edit rejected")
	})
	if err == nil {
		t.Fatal("expected error")
	}
	if s.Draft().Elements[0].Properties["text"] != "hello" {
		t.Error("failed edit must leave the draft untouched")
	}
}

func TestSessionSaveNotReentrant(t *testing.T) {
	s := NewSession("doc-1", draftTree())
	s.Edit()

	if _, err := s.BeginSave(); err != nil {
		t.Fatalf("BeginSave: %v", err)
	}
	if _, err := s.BeginSave(); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("second BeginSave = %v, want ErrSessionBusy", err)
	}
	if err := s.Edit(); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("Edit during save = %v, want ErrSessionBusy", err)
	}
}

func TestSessionFailedSaveKeepsDraft(t *testing.T) {
	s := NewSession("doc-1", draftTree())
	s.Edit()
	s.Apply(func(tr *content.Tree) error {
		tr.Elements[0].Properties["text"] = "unsaved work"
		return nil
	})

	draft, _ := s.BeginSave()
	s.FinishSave(draft, false)

	if s.State() != SessionEditing {
		t.Errorf("state = %v, want editing after failed save", s.State())
	}
	if s.Draft().Elements[0].Properties["text"] != "unsaved work" {
		t.Error("draft lost after failed save")
	}
}

func TestSessionRebase(t *testing.T) {
	s := NewSession("doc-1", draftTree())
	s.Edit()
	s.Apply(func(tr *content.Tree) error {
		tr.Elements[0].Properties["text"] = "local edit"
		return nil
	})

	fresh := content.Tree{Elements: []content.Element{
		{ID: "h", Type: "core/heading", Properties: content.Properties{"text": "fresh"}},
	}}
	if err := s.Rebase(fresh); err != nil {
		t.Fatalf("Rebase: %v", err)
	}
	if s.Draft().Elements[0].Properties["text"] != "fresh" {
		t.Error("rebase should replace the draft")
	}

	if _, err := s.BeginSave(); err != nil {
		t.Fatal(err)
	}
	if err := s.Rebase(fresh); !errors.Is(err, ErrSessionBusy) {
		t.Errorf("Rebase during save = %v, want ErrSessionBusy", err)
	}
}

func TestSessionStateString(t *testing.T) {
	for state, want := range map[SessionState]string{
		SessionViewing:  "viewing",
		SessionEditing:  "editing",
		SessionSaving:   "saving",
		SessionState(9): "SessionState(9)",
	} {
		if got := state.String(); got != want {
			t.Errorf("String(%d) = %q, want %q", int(state), got, want)
		}
	}
}
