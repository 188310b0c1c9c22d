package plugin

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Result is the outcome for one candidate.
type Result struct {
	Name    string
	Version string
	Source  string
	State   State
	Err     error
}

// Summary reports the outcome of a full load pass.
type Summary struct {
	// Registered is the number of distinct plugin names whose
	// contributions made it into the registry. A later candidate
	// reusing an earlier candidate's name replaces that registration
	// rather than adding a second one.
	Registered int

	// Failed is the number of candidates that failed to load or
	// register.
	Failed int

	// Results holds the per-candidate outcomes in registration order.
	Results []Result
}

// Loader orchestrates discovery of built-in and externally-configured
// plugins and drives registration with partial-failure isolation.
type Loader struct {
	registry *Registry
	builtins []Bundle
	sources  []Source

	log zerolog.Logger
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithBuiltins sets the built-in bundles, registered unconditionally
// first, in the listed order.
func WithBuiltins(bundles ...Bundle) LoaderOption {
	return func(l *Loader) {
		l.builtins = bundles
	}
}

// WithSources sets the external candidate sources, consulted in order
// after the built-ins.
func WithSources(sources ...Source) LoaderOption {
	return func(l *Loader) {
		l.sources = sources
	}
}

// WithLoaderLogger sets the loader's logger.
func WithLoaderLogger(log zerolog.Logger) LoaderOption {
	return func(l *Loader) {
		l.log = log
	}
}

// NewLoader creates a loader that registers into registry.
func NewLoader(registry *Registry, opts ...LoaderOption) *Loader {
	l := &Loader{
		registry: registry,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LoadAll discovers every candidate, loads them, and registers the
// successful ones. Loads run concurrently; registration applies in the
// fixed candidate order (built-ins first, then each source's candidates
// in discovery order) regardless of which load finished first. A load
// failure transitions only that candidate to Failed and never halts the
// rest.
func (l *Loader) LoadAll(ctx context.Context) Summary {
	candidates := l.discover(ctx)

	type outcome struct {
		bundle Bundle
		err    error
	}
	outcomes := make([]outcome, len(candidates))

	var wg sync.WaitGroup
	for i, cand := range candidates {
		if cand.Err != nil {
			outcomes[i] = outcome{err: cand.Err}
			continue
		}

		wg.Add(1)
		go func(i int, load LoadFunc) {
			defer wg.Done()
			bundle, err := safeLoad(ctx, load)
			outcomes[i] = outcome{bundle: bundle, err: err}
		}(i, cand.Load)
	}
	wg.Wait()

	// Serial registration in candidate order. Registration success is
	// counted per plugin name, not per candidate: a same-name candidate
	// replaces the earlier registration instead of adding a second one.
	summary := Summary{Results: make([]Result, 0, len(candidates))}
	registered := make(map[string]bool)
	for i, cand := range candidates {
		res := Result{
			Name:    cand.Name,
			Version: cand.Version,
			Source:  cand.Source,
			State:   StateLoading,
		}

		err := outcomes[i].err
		if err == nil {
			bundle := outcomes[i].bundle
			if bundle.Version != "" {
				res.Version = bundle.Version
			}
			if bundle.Name != "" {
				res.Name = bundle.Name
			}
			err = l.registry.Register(bundle)
		}

		if err != nil {
			res.State = StateFailed
			res.Err = err
			summary.Failed++
			l.log.Error().
				Str("plugin", res.Name).
				Str("source", res.Source).
				Err(err).
				Msg("plugin failed to load")
		} else {
			res.State = StateRegistered
			if !registered[res.Name] {
				registered[res.Name] = true
				summary.Registered++
			}
			l.log.Info().
				Str("plugin", res.Name).
				Str("version", res.Version).
				Str("source", res.Source).
				Msg("plugin registered")
		}
		summary.Results = append(summary.Results, res)
	}

	return summary
}

// loaderCandidate is a Candidate annotated with its source and any
// discovery-time error.
type loaderCandidate struct {
	Candidate
	Source string
	Err    error
}

// discover builds the fixed candidate order: built-ins first, in listed
// order, then each source's active candidates in discovery order. A
// source that fails to discover contributes a single failed pseudo
// candidate so the failure is visible in the summary without stopping
// other sources.
func (l *Loader) discover(ctx context.Context) []loaderCandidate {
	var out []loaderCandidate

	for _, bundle := range l.builtins {
		bundle := bundle
		out = append(out, loaderCandidate{
			Candidate: Candidate{
				Name:     bundle.Name,
				Version:  bundle.Version,
				IsActive: true,
				Load: func(context.Context) (Bundle, error) {
					return bundle, nil
				},
			},
			Source: "builtin",
		})
	}

	for _, src := range l.sources {
		candidates, err := src.Discover(ctx)
		if err != nil {
			out = append(out, loaderCandidate{
				Candidate: Candidate{Name: src.Name()},
				Source:    src.Name(),
				Err:       fmt.Errorf("discover: %w", err),
			})
			continue
		}
		for _, cand := range candidates {
			if !cand.IsActive {
				l.log.Debug().
					Str("plugin", cand.Name).
					Str("source", src.Name()).
					Msg("plugin inactive; skipped")
				continue
			}
			lc := loaderCandidate{Candidate: cand, Source: src.Name()}
			if cand.Load == nil {
				lc.Err = ErrNilLoad
			}
			out = append(out, lc)
		}
	}

	return out
}

// safeLoad runs a load function with panic recovery so a misbehaving
// plugin module cannot take down the whole load pass.
func safeLoad(ctx context.Context, load LoadFunc) (bundle Bundle, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("plugin load panic: %v", r)
		}
	}()
	return load(ctx)
}
