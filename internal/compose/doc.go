// Package compose turns content trees into revisions and renderable
// pages.
//
// The resolver sits between the plugin surface and storage. On save it
// validates the tree, folds it through content.before_save, appends the
// result as a new revision, and notifies content.after_save. On render
// it loads the head revision, notifies content.before_render, and
// resolves each element against the block catalog: catalog defaults are
// merged under the element's properties, element.render folds over the
// result, and a placeholder stands in for any element whose block type
// is not registered.
//
// Failures stay local: a misbehaving hook callback or a single unknown
// block type never aborts a whole save or render. Only validation
// failures and save conflicts surface to the caller.
package compose
