package plugin

import (
	"sort"
	"sync"

	"github.com/rs/zerolog"

	"github.com/blockpress/blockpress/internal/block"
	"github.com/blockpress/blockpress/internal/hook"
)

// Warning records a contribution that was skipped during an otherwise
// successful registration.
type Warning struct {
	Plugin string
	Reason string
}

// Registry composes the block catalog and the hook pipeline and merges
// plugin bundles into them in registration order.
//
// Registration is all-or-partial: a single malformed block definition
// is skipped with a recorded warning, but the rest of the bundle's
// contributions still register. Re-registering a name first drops that
// name's previous hook contributions, so re-registration is idempotent.
type Registry struct {
	catalog *block.Catalog
	hooks   *hook.Pipeline

	mu       sync.RWMutex
	versions map[string]string
	order    []string
	warnings []Warning

	log zerolog.Logger
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithRegistryLogger sets the logger used to report skipped
// contributions.
func WithRegistryLogger(log zerolog.Logger) RegistryOption {
	return func(r *Registry) {
		r.log = log
	}
}

// NewRegistry creates a registry over the given catalog and pipeline.
func NewRegistry(catalog *block.Catalog, hooks *hook.Pipeline, opts ...RegistryOption) *Registry {
	r := &Registry{
		catalog:  catalog,
		hooks:    hooks,
		versions: make(map[string]string),
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register merges the bundle's contributions into the catalog and the
// pipeline, tagging hook subscriptions with the bundle name.
func (r *Registry) Register(b Bundle) error {
	if err := b.Validate(); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, seen := r.versions[b.Name]; seen {
		// Idempotent re-registration: the previous hook contributions
		// from this name are replaced, blocks are overwritten by id.
		r.hooks.DropOrigin(b.Name)
	} else {
		r.order = append(r.order, b.Name)
	}
	r.versions[b.Name] = b.Version

	for _, def := range b.Blocks {
		if def.ID == "" {
			r.warn(b.Name, "block definition missing id; skipped")
			continue
		}
		r.catalog.Register(def)
	}

	// Sorted hook names keep cross-hook subscription numbering
	// reproducible; per-hook order is the contribution slice order.
	names := make([]string, 0, len(b.Hooks))
	for name := range b.Hooks {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		for _, fn := range b.Hooks[name] {
			if fn == nil {
				r.warn(b.Name, "nil hook callback for "+name+"; skipped")
				continue
			}
			r.hooks.Subscribe(name, fn, b.Name)
		}
	}

	return nil
}

// Catalog returns the underlying block catalog.
func (r *Registry) Catalog() *block.Catalog {
	return r.catalog
}

// Hooks returns the underlying hook pipeline.
func (r *Registry) Hooks() *hook.Pipeline {
	return r.hooks
}

// Registered returns the registered plugin names in first-registration
// order.
func (r *Registry) Registered() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Version returns the registered version for the plugin name.
func (r *Registry) Version(name string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	v, ok := r.versions[name]
	return v, ok
}

// Warnings returns the contributions skipped so far.
func (r *Registry) Warnings() []Warning {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Warning, len(r.warnings))
	copy(out, r.warnings)
	return out
}

// warn records a skipped contribution. Caller holds mu.
func (r *Registry) warn(plugin, reason string) {
	r.warnings = append(r.warnings, Warning{Plugin: plugin, Reason: reason})
	r.log.Warn().Str("plugin", plugin).Msg(reason)
}
