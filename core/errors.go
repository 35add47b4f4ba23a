package core

import "errors"

var (
	// ErrIncompatibleConfiguration is returned when the descriptor kind or scalar
	// type cannot be served by the requested backend.
	ErrIncompatibleConfiguration = errors.New("incompatible configuration")

	// ErrScalarMismatch is returned when a typed view is requested for a set of another scalar type.
	ErrScalarMismatch = errors.New("scalar type mismatch")

	// ErrDimensionMismatch indicates a descriptor/query dimensionality mismatch.
	ErrDimensionMismatch = errors.New("dimension mismatch")

	// ErrInvalidPair is returned for a pair whose two images are the same.
	ErrInvalidPair = errors.New("invalid pair")

	// ErrMissingDescriptors is returned for a pair naming an image without descriptors.
	ErrMissingDescriptors = errors.New("missing descriptors")

	// ErrInvalidRatio is returned when the ratio threshold is not positive.
	ErrInvalidRatio = errors.New("ratio must be positive")

	// ErrEmptyIndex is returned when building or searching an index without descriptors.
	ErrEmptyIndex = errors.New("index is empty")

	// ErrIndexBuilt is returned when Build is called twice on the same index.
	ErrIndexBuilt = errors.New("index already built")

	// ErrLoad is returned by descriptor providers when an image cannot be loaded.
	ErrLoad = errors.New("load error")
)
