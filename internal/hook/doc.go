// Package hook provides the named extension-point pipeline plugins
// subscribe to.
//
// A hook is an ordered list of callbacks keyed by name. Two invocation
// modes are supported:
//
//   - Collect runs every callback with the same arguments and returns
//     each result in subscription order. Used for additive extension
//     points (toolbar entries, editing controls) where no merge
//     semantics exist.
//   - Fold threads an accumulator through the callbacks: each callback
//     receives the previous callback's output and replaces it. Used
//     for content transformation pipelines (sanitize before save,
//     transform before render).
//
// A callback that returns an error or panics is logged and isolated:
// Collect omits its contribution, Fold keeps the accumulator unchanged
// at that step. One misbehaving plugin never aborts a document save or
// render.
//
// Execution is synchronous and single-goroutine per invocation, so
// ordering and fold accumulation are deterministic.
package hook
