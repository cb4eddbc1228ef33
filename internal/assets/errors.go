package assets

import "errors"

// ErrInvalidBSP indicates a BSP file whose header, lump directory or entity
// text cannot be read.
var ErrInvalidBSP = errors.New("invalid BSP")
