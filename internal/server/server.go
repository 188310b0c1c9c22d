// Package server exposes documents, blocks, and plugins over HTTP.
//
// All responses are JSON. Failures use a single envelope:
//
//	{"error": {"reason": "not_found", "message": "..."}}
//
// with reason one of not_found, validation_failed, save_conflict, or
// internal.
package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/blockpress/blockpress/internal/compose"
	"github.com/blockpress/blockpress/internal/content"
	"github.com/blockpress/blockpress/internal/plugin"
	"github.com/blockpress/blockpress/internal/revision"
)

// Server routes document, block, and plugin requests.
type Server struct {
	resolver *compose.Resolver
	store    revision.Store
	registry *plugin.Registry
	log      zerolog.Logger
	mux      *http.ServeMux

	// sessions holds one edit session per document. Edit batches run
	// through the session lifecycle, so a batch arriving while another
	// batch for the same document is saving is rejected instead of
	// interleaved.
	sessionsMu sync.Mutex
	sessions   map[string]*compose.Session
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(s *Server) {
		s.log = log
	}
}

// New creates a Server over the resolver, store, and registry.
func New(resolver *compose.Resolver, store revision.Store, registry *plugin.Registry, opts ...Option) *Server {
	s := &Server{
		resolver: resolver,
		store:    store,
		registry: registry,
		log:      zerolog.Nop(),
		mux:      http.NewServeMux(),
		sessions: make(map[string]*compose.Session),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.HandleFunc("GET /v1/documents/{id}", s.handleRenderDocument)
	s.mux.HandleFunc("POST /v1/documents/{id}/revisions", s.handleSaveRevision)
	s.mux.HandleFunc("GET /v1/documents/{id}/revisions", s.handleListRevisions)
	s.mux.HandleFunc("GET /v1/documents/{id}/revisions/{seq}", s.handleGetRevision)
	s.mux.HandleFunc("POST /v1/documents/{id}/edits", s.handleEdits)
	s.mux.HandleFunc("GET /v1/documents/{id}/elements/{elementID}/controls", s.handleControls)
	s.mux.HandleFunc("GET /v1/blocks", s.handleListBlocks)
	s.mux.HandleFunc("GET /v1/plugins", s.handleListPlugins)
}

// Handler returns the root handler with request logging applied.
func (s *Server) Handler() http.Handler {
	return s.logRequests(s.mux)
}

// statusRecorder captures the response status for the request log.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request")
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		s.log.Error().Err(err).Msg("encode response")
	}
}

type errorBody struct {
	Reason  string `json:"reason"`
	Message string `json:"message"`
}

type errorEnvelope struct {
	Error errorBody `json:"error"`
}

// writeError maps domain errors onto the wire taxonomy.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	reason := "internal"

	switch {
	case errors.Is(err, revision.ErrNotFound), errors.Is(err, content.ErrElementNotFound):
		status, reason = http.StatusNotFound, "not_found"
	case errors.Is(err, revision.ErrSaveInProgress), errors.Is(err, compose.ErrSessionBusy):
		status, reason = http.StatusConflict, "save_conflict"
	case errors.Is(err, content.ErrInvalid),
		errors.Is(err, content.ErrBadPosition),
		errors.Is(err, content.ErrCycle),
		errors.Is(err, errBadRequest):
		status, reason = http.StatusBadRequest, "validation_failed"
	}

	if status == http.StatusInternalServerError {
		s.log.Error().Err(err).Msg("request failed")
	}
	s.writeJSON(w, status, errorEnvelope{Error: errorBody{Reason: reason, Message: err.Error()}})
}

// errBadRequest marks malformed request payloads.
var errBadRequest = errors.New("bad request")
