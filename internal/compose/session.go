package compose

import (
	"errors"
	"fmt"
	"sync"

	"github.com/blockpress/blockpress/internal/content"
)

// SessionState tracks where an editing session is in its lifecycle.
type SessionState int

const (
	// SessionViewing is the initial state: the draft mirrors the last
	// loaded revision and accepts no edits.
	SessionViewing SessionState = iota
	// SessionEditing accepts draft mutations.
	SessionEditing
	// SessionSaving has handed its draft to the resolver; further edits
	// and saves wait until the save settles.
	SessionSaving
)

func (s SessionState) String() string {
	switch s {
	case SessionViewing:
		return "viewing"
	case SessionEditing:
		return "editing"
	case SessionSaving:
		return "saving"
	default:
		return fmt.Sprintf("SessionState(%d)", int(s))
	}
}

// ErrSessionBusy is returned when an operation is not legal in the
// session's current state.
var ErrSessionBusy = errors.New("session busy")

// Session is one editor's working copy of a document. Transitions are
// viewing -> editing -> saving -> viewing; a failed save falls back to
// editing so the draft is not lost.
type Session struct {
	mu    sync.Mutex
	docID string
	state SessionState
	draft content.Tree
}

// NewSession starts a viewing session over the given base tree.
func NewSession(docID string, base content.Tree) *Session {
	return &Session{
		docID: docID,
		state: SessionViewing,
		draft: base.Clone(),
	}
}

// DocumentID returns the document this session edits.
func (s *Session) DocumentID() string { return s.docID }

// State returns the current lifecycle state.
func (s *Session) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Draft returns a copy of the working tree.
func (s *Session) Draft() content.Tree {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draft.Clone()
}

// Edit moves the session into editing. Already editing is a no-op;
// a session mid-save cannot re-enter editing until the save settles.
func (s *Session) Edit() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionSaving {
		return fmt.Errorf("%w: save in flight for %s", ErrSessionBusy, s.docID)
	}
	s.state = SessionEditing
	return nil
}

// Rebase replaces the draft with a fresh base, discarding local edits.
// Not legal while a save is in flight.
func (s *Session) Rebase(base content.Tree) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == SessionSaving {
		return fmt.Errorf("%w: save in flight for %s", ErrSessionBusy, s.docID)
	}
	s.draft = base.Clone()
	return nil
}

// Apply mutates the draft. The session must be editing. If fn returns
// an error the draft keeps its previous value.
func (s *Session) Apply(fn func(t *content.Tree) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionEditing {
		return fmt.Errorf("%w: cannot edit while %s", ErrSessionBusy, s.state)
	}

	work := s.draft.Clone()
	if err := fn(&work); err != nil {
		return err
	}
	s.draft = work
	return nil
}

// BeginSave moves the session into saving and hands back the draft to
// persist. Saving is not reentrant: a second BeginSave before the first
// settles fails with ErrSessionBusy.
func (s *Session) BeginSave() (content.Tree, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionEditing {
		return content.Tree{}, fmt.Errorf("%w: cannot save while %s", ErrSessionBusy, s.state)
	}
	s.state = SessionSaving
	return s.draft.Clone(), nil
}

// FinishSave settles a save. On success the persisted tree becomes the
// new base and the session returns to viewing; on failure the session
// returns to editing with its draft intact.
func (s *Session) FinishSave(persisted content.Tree, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != SessionSaving {
		return
	}
	if ok {
		s.draft = persisted.Clone()
		s.state = SessionViewing
		return
	}
	s.state = SessionEditing
}
