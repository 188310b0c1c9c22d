package compose

// Hook names published by the resolver. Plugins subscribe to these to
// participate in document saves and renders.
const (
	// HookBeforeSave folds the content tree before it is appended as a
	// revision. Callbacks receive the current tree and return the
	// transformed tree.
	HookBeforeSave = "content.before_save"

	// HookAfterSave collects notifications after a revision has been
	// appended. Callbacks receive (documentID, revision); return values
	// are ignored.
	HookAfterSave = "content.after_save"

	// HookBeforeRender collects notifications before a tree is resolved
	// for display. Callbacks receive (documentID, tree) and must not
	// expect mutations to take effect.
	HookBeforeRender = "content.before_render"

	// HookElementRender folds an element's merged properties during
	// resolution. Callbacks receive (properties, element) and return the
	// transformed property bag.
	HookElementRender = "element.render"

	// HookElementControls collects editing-surface control descriptors
	// for the selected element. Callbacks receive the element.
	HookElementControls = "element.controls"
)
