package plugin

import "errors"

// Plugin system errors.
var (
	// ErrInvalidBundle is returned when a bundle fails validation.
	ErrInvalidBundle = errors.New("invalid plugin bundle")

	// ErrMissingName is returned when a bundle has no name.
	ErrMissingName = errors.New("plugin name is required")

	// ErrInvalidName is returned when a bundle name is not
	// lowercase alphanumeric with hyphens.
	ErrInvalidName = errors.New("plugin name must be alphanumeric with hyphens")

	// ErrInvalidVersion is returned when a bundle version is not
	// valid semver.
	ErrInvalidVersion = errors.New("plugin version must be valid semver")

	// ErrNilLoad is returned when a discovered candidate has no load
	// function.
	ErrNilLoad = errors.New("candidate has no load function")
)
