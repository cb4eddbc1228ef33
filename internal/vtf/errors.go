package vtf

import "errors"

var (
	// ErrMalformedSignature indicates the buffer does not start with the VTF magic.
	ErrMalformedSignature = errors.New("malformed VTF signature")
	// ErrTruncatedData indicates a header field or pixel range lies past the end of the buffer.
	ErrTruncatedData = errors.New("truncated VTF data")
	// ErrUnsupportedFormat indicates a pixel format that cannot be decoded in software.
	ErrUnsupportedFormat = errors.New("unsupported image format")
	// ErrLevelRange indicates a frame or mip index outside the texture.
	ErrLevelRange = errors.New("frame or mip level out of range")
)
