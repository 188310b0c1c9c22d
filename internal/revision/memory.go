package revision

import (
	"context"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/blockpress/blockpress/internal/content"
)

// MemoryStore is an in-memory Store. It backs tests and embedded use;
// durable deployments use SQLiteStore.
type MemoryStore struct {
	mu   sync.RWMutex
	docs map[string]*memoryDoc
}

// memoryDoc holds one document's history plus its append guard.
type memoryDoc struct {
	// appendMu serializes appends for this document. TryLock gives the
	// reject-on-conflict semantics: a second concurrent save fails fast
	// instead of queueing.
	appendMu sync.Mutex

	// revsMu guards the committed slice so reads never block behind an
	// in-flight append.
	revsMu sync.RWMutex
	revs   []Revision
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{docs: make(map[string]*memoryDoc)}
}

// Head implements Store.
func (s *MemoryStore) Head(ctx context.Context, docID string) (Revision, error) {
	if err := ctx.Err(); err != nil {
		return Revision{}, err
	}

	doc := s.get(docID)
	if doc == nil {
		return Revision{}, ErrNotFound
	}

	doc.revsMu.RLock()
	defer doc.revsMu.RUnlock()
	if len(doc.revs) == 0 {
		return Revision{}, ErrNotFound
	}
	return doc.revs[len(doc.revs)-1].Clone(), nil
}

// Get implements Store.
func (s *MemoryStore) Get(ctx context.Context, docID string, seq uint64) (Revision, error) {
	if err := ctx.Err(); err != nil {
		return Revision{}, err
	}

	doc := s.get(docID)
	if doc == nil {
		return Revision{}, ErrNotFound
	}

	doc.revsMu.RLock()
	defer doc.revsMu.RUnlock()
	if seq == 0 || seq > uint64(len(doc.revs)) {
		return Revision{}, ErrNotFound
	}
	return doc.revs[seq-1].Clone(), nil
}

// List implements Store.
func (s *MemoryStore) List(ctx context.Context, docID string) ([]Revision, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	doc := s.get(docID)
	if doc == nil {
		return nil, ErrNotFound
	}

	doc.revsMu.RLock()
	defer doc.revsMu.RUnlock()
	out := make([]Revision, len(doc.revs))
	for i, rev := range doc.revs {
		out[i] = rev.Clone()
	}
	return out, nil
}

// Append implements Store.
func (s *MemoryStore) Append(ctx context.Context, docID string, snapshot content.Tree) (Revision, error) {
	if err := ctx.Err(); err != nil {
		return Revision{}, err
	}

	doc := s.getOrCreate(docID)
	if !doc.appendMu.TryLock() {
		return Revision{}, ErrSaveInProgress
	}
	defer doc.appendMu.Unlock()

	doc.revsMu.RLock()
	next := uint64(len(doc.revs)) + 1
	doc.revsMu.RUnlock()

	rev := Revision{
		ID:        ulid.Make().String(),
		Sequence:  next,
		Snapshot:  snapshot.Clone(),
		CreatedAt: time.Now().UTC(),
	}

	doc.revsMu.Lock()
	doc.revs = append(doc.revs, rev)
	doc.revsMu.Unlock()

	return rev.Clone(), nil
}

// HoldAppend acquires the document's append guard and returns a release
// function. It exists so callers exercising conflict handling can pin a
// document in the save-in-progress state.
func (s *MemoryStore) HoldAppend(docID string) func() {
	doc := s.getOrCreate(docID)
	doc.appendMu.Lock()
	return doc.appendMu.Unlock
}

func (s *MemoryStore) get(docID string) *memoryDoc {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.docs[docID]
}

func (s *MemoryStore) getOrCreate(docID string) *memoryDoc {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, ok := s.docs[docID]
	if !ok {
		doc = &memoryDoc{}
		s.docs[docID] = doc
	}
	return doc
}
