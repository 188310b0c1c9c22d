package plugin

import (
	"fmt"
	"regexp"

	"github.com/blockpress/blockpress/internal/block"
	"github.com/blockpress/blockpress/internal/hook"
)

// namePattern validates plugin names.
var namePattern = regexp.MustCompile(`^[a-z][a-z0-9-]*[a-z0-9]$|^[a-z]$`)

// semverPattern validates version strings (simplified semver).
var semverPattern = regexp.MustCompile(`^\d+\.\d+\.\d+(-[a-zA-Z0-9.-]+)?(\+[a-zA-Z0-9.-]+)?$`)

// Bundle is a plugin's static contribution set. Identity is the name:
// registering a second bundle under the same name replaces the first
// one's contributions.
type Bundle struct {
	// Name uniquely identifies the plugin (e.g., "basic-blocks").
	Name string

	// Version is the plugin's semver version string.
	Version string

	// Blocks are the block definitions the plugin contributes, in
	// registration order.
	Blocks []block.Definition

	// Hooks maps hook names to the callbacks the plugin contributes,
	// each list in subscription order.
	Hooks map[string][]hook.Func
}

// Validate checks bundle identity. Block definitions are not validated
// here: a malformed block is skipped at registration with a warning
// rather than failing the bundle.
func (b Bundle) Validate() error {
	if b.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidBundle, ErrMissingName)
	}
	if !namePattern.MatchString(b.Name) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidBundle, ErrInvalidName, b.Name)
	}
	if b.Version != "" && !semverPattern.MatchString(b.Version) {
		return fmt.Errorf("%w: %w: %q", ErrInvalidBundle, ErrInvalidVersion, b.Version)
	}
	return nil
}

// String returns "name vVersion".
func (b Bundle) String() string {
	version := b.Version
	if version == "" {
		version = "0.0.0"
	}
	return fmt.Sprintf("%s v%s", b.Name, version)
}
