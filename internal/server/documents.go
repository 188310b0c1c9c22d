package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/blockpress/blockpress/internal/content"
	"github.com/blockpress/blockpress/internal/revision"
)

// revisionMeta is the wire form of a revision without its snapshot.
type revisionMeta struct {
	DocumentID string    `json:"document_id"`
	RevisionID string    `json:"revision_id"`
	Sequence   uint64    `json:"sequence"`
	CreatedAt  time.Time `json:"created_at"`
}

func metaOf(docID string, rev revision.Revision) revisionMeta {
	return revisionMeta{
		DocumentID: docID,
		RevisionID: rev.ID,
		Sequence:   rev.Sequence,
		CreatedAt:  rev.CreatedAt,
	}
}

// handleRenderDocument resolves the head revision into a page.
func (s *Server) handleRenderDocument(w http.ResponseWriter, r *http.Request) {
	page, err := s.resolver.Render(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, page)
}

// handleSaveRevision appends the posted tree as the next revision.
func (s *Server) handleSaveRevision(w http.ResponseWriter, r *http.Request) {
	var tree content.Tree
	if err := json.NewDecoder(r.Body).Decode(&tree); err != nil {
		s.writeError(w, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}

	docID := r.PathValue("id")
	rev, err := s.resolver.Save(r.Context(), docID, tree)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, metaOf(docID, rev))
}

// handleListRevisions returns revision summaries, oldest first.
func (s *Server) handleListRevisions(w http.ResponseWriter, r *http.Request) {
	docID := r.PathValue("id")
	revs, err := s.store.List(r.Context(), docID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	out := make([]revisionMeta, len(revs))
	for i, rev := range revs {
		out[i] = metaOf(docID, rev)
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"revisions": out})
}

// revisionBody is a full revision on the wire.
type revisionBody struct {
	revisionMeta
	Elements []content.Element `json:"elements"`
}

// handleGetRevision returns one revision including its snapshot.
func (s *Server) handleGetRevision(w http.ResponseWriter, r *http.Request) {
	seq, err := strconv.ParseUint(r.PathValue("seq"), 10, 64)
	if err != nil {
		s.writeError(w, fmt.Errorf("%w: sequence must be a positive integer", errBadRequest))
		return
	}

	docID := r.PathValue("id")
	rev, err := s.store.Get(r.Context(), docID, seq)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, revisionBody{
		revisionMeta: metaOf(docID, rev),
		Elements:     rev.Snapshot.Elements,
	})
}

// handleControls collects editing controls for the selected element.
func (s *Server) handleControls(w http.ResponseWriter, r *http.Request) {
	controls, err := s.resolver.Controls(r.Context(), r.PathValue("id"), r.PathValue("elementID"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	if controls == nil {
		controls = []any{}
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"controls": controls})
}
