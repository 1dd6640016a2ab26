package pipeline

import "errors"

var (
	// ErrInvalidPath reports a missing or unreadable input root, or an output
	// root that cannot be created. No work is started.
	ErrInvalidPath = errors.New("tilemerge: invalid path")

	// ErrInvalidFusionAlgorithm reports a fusion algorithm name unknown to the registry.
	ErrInvalidFusionAlgorithm = errors.New("tilemerge: invalid fusion algorithm")
)
