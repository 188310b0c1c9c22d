// Package plugin provides the extensibility system: plugin bundles,
// the registry that merges their contributions, and the loader that
// discovers and registers them.
//
// A plugin bundle is a static description: a unique name, a version,
// an ordered list of block definitions, and hook contributions keyed
// by hook name. Bundles never get access to the revision store or the
// hook pipeline internals beyond the subscribe contract.
//
// # Sources
//
// Built-in bundles are registered unconditionally. External bundles
// come from Sources, anything that can turn configuration into
// loadable candidates:
//
//   - lua.DirSource: *.lua scripts declaring blocks and hook functions
//   - ManifestSource: *.yaml manifests declaring blocks only
//
// Candidates flagged inactive (plugin activation rows) are skipped at
// discovery.
//
// # Lifecycle
//
// Per candidate: Discovered -> Loading -> Registered | Failed. Loads
// may run concurrently, but registration applies serially in the fixed
// candidate order (built-ins first, then each source in configured
// order), so block-id overwrite and hook ordering are deterministic
// across runs. One failed load never halts the remaining candidates.
// Registered plugins stay registered for the process lifetime.
package plugin
