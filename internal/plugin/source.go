package plugin

import "context"

// LoadFunc produces a candidate's bundle. Loading is the isolated,
// potentially expensive step (reading and evaluating a script, parsing
// a manifest); an error here fails only this candidate.
type LoadFunc func(ctx context.Context) (Bundle, error)

// Candidate is a discovered plugin that has not been loaded yet.
type Candidate struct {
	// Name is the plugin name the candidate claims.
	Name string

	// Version is the declared version, if discovery knows it.
	Version string

	// IsActive reports whether the candidate should be loaded.
	// Inactive candidates are dropped at discovery.
	IsActive bool

	// Load produces the bundle.
	Load LoadFunc
}

// Source discovers external plugin candidates.
//
// Discovery must be deterministic: the loader registers bundles in the
// order candidates are returned, so a source returning a stable order
// gives reproducible block-id overwrite and hook ordering across runs.
type Source interface {
	// Name identifies the source in logs and failure reasons.
	Name() string

	// Discover returns the source's candidates in load order.
	Discover(ctx context.Context) ([]Candidate, error)
}

// ActivationLister supplies plugin activation state, usually from the
// persistence layer's plugin activation rows.
type ActivationLister interface {
	// ListActivations returns plugin name → active. Names without an
	// entry default to active.
	ListActivations(ctx context.Context) (map[string]bool, error)
}

// AllActive is an ActivationLister that activates every plugin.
type AllActive struct{}

// ListActivations implements ActivationLister.
func (AllActive) ListActivations(context.Context) (map[string]bool, error) {
	return nil, nil
}

// LoadActivations fetches activation rows from the lister; a nil
// lister means every plugin is active.
func LoadActivations(ctx context.Context, lister ActivationLister) (map[string]bool, error) {
	if lister == nil {
		return nil, nil
	}
	return lister.ListActivations(ctx)
}

// Active reports whether name is active under the listed rows: absent
// names are active by default.
func Active(rows map[string]bool, name string) bool {
	active, ok := rows[name]
	if !ok {
		return true
	}
	return active
}

// StaticSource is a Source over a fixed candidate list. Used by tests
// and embedded setups.
type StaticSource struct {
	// SourceName identifies the source.
	SourceName string

	// Candidates are returned as-is from Discover.
	Candidates []Candidate
}

// Name implements Source.
func (s StaticSource) Name() string {
	if s.SourceName == "" {
		return "static"
	}
	return s.SourceName
}

// Discover implements Source.
func (s StaticSource) Discover(context.Context) ([]Candidate, error) {
	out := make([]Candidate, len(s.Candidates))
	copy(out, s.Candidates)
	return out, nil
}
