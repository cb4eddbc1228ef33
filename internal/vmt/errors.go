package vmt

import "errors"

var (
	// ErrMissingInclude indicates a patch material names an include that cannot be found.
	ErrMissingInclude = errors.New("missing include")
	// ErrPatchWithoutInclude indicates a patch material with no include parameter.
	ErrPatchWithoutInclude = errors.New("patch material without include")
	// ErrIncludeCycle indicates an include chain that returns to a material already on it.
	ErrIncludeCycle = errors.New("include cycle")
	// ErrEmptyMaterial indicates input with no shader line.
	ErrEmptyMaterial = errors.New("empty material")
)
