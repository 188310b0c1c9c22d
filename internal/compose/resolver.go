package compose

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/blockpress/blockpress/internal/block"
	"github.com/blockpress/blockpress/internal/content"
	"github.com/blockpress/blockpress/internal/hook"
	"github.com/blockpress/blockpress/internal/revision"
)

// ResolvedElement is one element prepared for display: catalog defaults
// merged under the element's own properties, element.render applied,
// children resolved recursively. Placeholder marks an element whose
// block type had no catalog entry; its Type keeps the unresolved id so
// the surface can show what is missing.
type ResolvedElement struct {
	ID          string            `json:"id"`
	Type        string            `json:"type"`
	DisplayName string            `json:"display_name,omitempty"`
	Properties  map[string]any    `json:"properties,omitempty"`
	Placeholder bool              `json:"placeholder,omitempty"`
	Children    []ResolvedElement `json:"children,omitempty"`
}

// Page is a fully resolved document revision.
type Page struct {
	DocumentID string            `json:"document_id"`
	RevisionID string            `json:"revision_id"`
	Sequence   uint64            `json:"sequence"`
	Elements   []ResolvedElement `json:"elements"`
}

// Resolver coordinates saves and renders across the catalog, the hook
// pipeline, and the revision store.
type Resolver struct {
	catalog *block.Catalog
	hooks   *hook.Pipeline
	store   revision.Store
	log     zerolog.Logger
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithLogger sets the resolver's logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Resolver) {
		r.log = log
	}
}

// NewResolver creates a resolver over the given catalog, pipeline, and
// store.
func NewResolver(catalog *block.Catalog, hooks *hook.Pipeline, store revision.Store, opts ...Option) *Resolver {
	r := &Resolver{
		catalog: catalog,
		hooks:   hooks,
		store:   store,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Save validates the tree, folds it through content.before_save, and
// appends the transformed tree as the document's next revision. After
// the append is acknowledged, content.after_save subscribers are
// notified with the persisted revision.
//
// Validation failures and save conflicts surface to the caller; hook
// failures do not.
func (r *Resolver) Save(ctx context.Context, docID string, tree content.Tree) (revision.Revision, error) {
	if err := tree.Validate(); err != nil {
		return revision.Revision{}, err
	}

	transformed := r.foldTree(ctx, HookBeforeSave, tree)
	if err := transformed.Validate(); err != nil {
		// A hook broke the tree; treat its transformation as identity.
		r.log.Warn().
			Str("document", docID).
			Err(err).
			Msg("before-save hooks produced an invalid tree; saving the original")
		transformed = tree
	}

	rev, err := r.store.Append(ctx, docID, transformed)
	if err != nil {
		return revision.Revision{}, fmt.Errorf("save %s: %w", docID, err)
	}

	r.hooks.Collect(ctx, HookAfterSave, docID, rev.Clone())

	r.log.Info().
		Str("document", docID).
		Uint64("sequence", rev.Sequence).
		Str("revision", rev.ID).
		Msg("revision saved")
	return rev, nil
}

// Render loads the document's head revision and resolves it into a
// page. content.before_render subscribers are notified first; their
// return values are ignored.
func (r *Resolver) Render(ctx context.Context, docID string) (Page, error) {
	rev, err := r.store.Head(ctx, docID)
	if err != nil {
		return Page{}, fmt.Errorf("render %s: %w", docID, err)
	}
	return r.RenderRevision(ctx, docID, rev), nil
}

// RenderAt resolves a specific revision of the document.
func (r *Resolver) RenderAt(ctx context.Context, docID string, seq uint64) (Page, error) {
	rev, err := r.store.Get(ctx, docID, seq)
	if err != nil {
		return Page{}, fmt.Errorf("render %s@%d: %w", docID, seq, err)
	}
	return r.RenderRevision(ctx, docID, rev), nil
}

// RenderRevision resolves an already-loaded revision.
func (r *Resolver) RenderRevision(ctx context.Context, docID string, rev revision.Revision) Page {
	r.hooks.Collect(ctx, HookBeforeRender, docID, rev.Snapshot.Clone())
	return Page{
		DocumentID: docID,
		RevisionID: rev.ID,
		Sequence:   rev.Sequence,
		Elements:   r.Resolve(ctx, rev.Snapshot),
	}
}

// Resolve performs per-element resolution on a tree without touching
// the store. Used for previews of unsaved trees.
func (r *Resolver) Resolve(ctx context.Context, tree content.Tree) []ResolvedElement {
	return r.resolveElements(ctx, tree.Elements)
}

func (r *Resolver) resolveElements(ctx context.Context, els []content.Element) []ResolvedElement {
	if len(els) == 0 {
		return nil
	}
	out := make([]ResolvedElement, 0, len(els))
	for _, el := range els {
		out = append(out, r.resolveElement(ctx, el))
	}
	return out
}

// resolveElement resolves one element. An unregistered block type
// yields a placeholder carrying the unresolved type id; its children
// still resolve normally.
func (r *Resolver) resolveElement(ctx context.Context, el content.Element) ResolvedElement {
	def, ok := r.catalog.Get(el.Type)
	if !ok {
		r.log.Debug().
			Str("element", el.ID).
			Str("type", el.Type).
			Msg("unknown block type; substituting placeholder")
		return ResolvedElement{
			ID:          el.ID,
			Type:        el.Type,
			Properties:  el.Properties.Clone(),
			Placeholder: true,
			Children:    r.resolveElements(ctx, el.Children),
		}
	}

	props := mergeDefaults(def.DefaultProperties, el.Properties)
	folded := r.hooks.Fold(ctx, HookElementRender, props, el.Clone())
	if m := asPropertyBag(folded); m != nil {
		props = m
	}

	return ResolvedElement{
		ID:          el.ID,
		Type:        el.Type,
		DisplayName: def.DisplayName,
		Properties:  props,
		Children:    r.resolveElements(ctx, el.Children),
	}
}

// Controls collects element.controls contributions for the selected
// element of the document's head revision.
func (r *Resolver) Controls(ctx context.Context, docID, elementID string) ([]any, error) {
	rev, err := r.store.Head(ctx, docID)
	if err != nil {
		return nil, fmt.Errorf("controls %s: %w", docID, err)
	}
	el, ok := rev.Snapshot.Find(elementID)
	if !ok {
		return nil, fmt.Errorf("controls %s: %w: %s", docID, content.ErrElementNotFound, elementID)
	}
	return r.hooks.Collect(ctx, HookElementControls, el), nil
}

// foldTree folds a tree-valued hook, tolerating callbacks that return
// the tree in its JSON map form. Anything else leaves the tree
// unchanged at that step's end state.
func (r *Resolver) foldTree(ctx context.Context, hookName string, tree content.Tree) content.Tree {
	out := r.hooks.Fold(ctx, hookName, tree.Clone())
	switch v := out.(type) {
	case content.Tree:
		return v
	case map[string]any:
		restored, err := content.TreeFromMap(v)
		if err != nil {
			r.log.Warn().
				Str("hook", hookName).
				Err(err).
				Msg("hook returned an undecodable tree; keeping the original")
			return tree
		}
		return restored
	default:
		return tree
	}
}

// mergeDefaults layers the element's own properties over the catalog
// defaults. The element's values win.
func mergeDefaults(defaults map[string]any, props content.Properties) map[string]any {
	merged := make(map[string]any, len(defaults)+len(props))
	for k, v := range defaults {
		merged[k] = v
	}
	for k, v := range props.Clone() {
		merged[k] = v
	}
	return merged
}

// asPropertyBag coerces a fold result back to a property map.
func asPropertyBag(v any) map[string]any {
	switch m := v.(type) {
	case map[string]any:
		return m
	case content.Properties:
		return m
	default:
		return nil
	}
}
