package registry

import "errors"

var (
	// ErrRegistryIO is returned when the registry directory cannot be read
	// or written. Scans that hit it can simply be retried later.
	ErrRegistryIO = errors.New("registry: io error")

	// ErrInvalidDescriptor is returned by Publish for unusable descriptors.
	ErrInvalidDescriptor = errors.New("registry: invalid descriptor")
)
