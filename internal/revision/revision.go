// Package revision provides the append-only history of content-tree
// snapshots per document.
//
// A revision is an immutable, fully materialized snapshot with a
// per-document sequence number. Sequences are strictly increasing with
// no gaps and the highest sequence is the document's current state.
// The store never edits a past revision; a correcting edit is a new
// revision.
package revision

import (
	"context"
	"errors"
	"time"

	"github.com/blockpress/blockpress/internal/content"
)

// Store errors.
var (
	// ErrNotFound is returned when a document or sequence is unknown.
	ErrNotFound = errors.New("revision not found")

	// ErrSaveInProgress is returned when an append is attempted while
	// another append for the same document is in flight. The caller
	// decides whether to retry; the store never does.
	ErrSaveInProgress = errors.New("save already in progress for document")
)

// Revision is an immutable snapshot of a document's content tree.
type Revision struct {
	// ID is an opaque, lexically sortable revision identifier.
	ID string `json:"id"`

	// Sequence is the per-document revision number, starting at 1.
	Sequence uint64 `json:"sequence"`

	// Snapshot is the full content tree at this revision, not a diff.
	Snapshot content.Tree `json:"snapshot"`

	// CreatedAt is when the revision was committed.
	CreatedAt time.Time `json:"created_at"`
}

// Clone deep-copies the revision.
func (r Revision) Clone() Revision {
	out := r
	out.Snapshot = r.Snapshot.Clone()
	return out
}

// Store is the append-only revision log keyed by document id.
//
// Implementations guarantee at most one in-flight append per document;
// a second concurrent append is rejected with ErrSaveInProgress, never
// interleaved. Reads only ever observe fully committed revisions.
type Store interface {
	// Head returns the highest-sequence revision of the document.
	Head(ctx context.Context, docID string) (Revision, error)

	// Get returns the revision with the given sequence.
	Get(ctx context.Context, docID string, seq uint64) (Revision, error)

	// List returns all revisions of the document in sequence order.
	List(ctx context.Context, docID string) ([]Revision, error)

	// Append commits snapshot as the document's next revision and
	// returns it. Once Append returns, the revision is durable.
	Append(ctx context.Context, docID string, snapshot content.Tree) (Revision, error)
}
