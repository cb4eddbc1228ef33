package vtf

import (
	"fmt"
	"image"

	"github.com/woozymasta/bcn"
)

// Preview decodes one level of pixel data in software, for thumbnails and
// exports. It is not used on the decode path.
func Preview(data []byte, width, height int, f ImageFormat) (image.Image, error) {
	want := ComputeBlockSize(width, height, f)
	if len(data) < want {
		return nil, fmt.Errorf("%w: %s level %dx%d needs %d bytes, have %d", ErrTruncatedData, f, width, height, want, len(data))
	}
	data = data[:want]

	format, pixels := bcnInput(data, f)
	if format == bcn.FormatUnknown {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, f)
	}

	img, err := bcn.DecodeImageWithOptions(pixels, width, height, format, nil)
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", f, err)
	}
	return img, nil
}

// bcnInput maps f onto a bcn format, swizzling byte orders bcn has no
// native form for into RGBA8 or BGRA8.
func bcnInput(data []byte, f ImageFormat) (bcn.Format, []byte) {
	switch f {
	case FormatDXT1, FormatDXT1OneBitAlpha:
		return bcn.FormatDXT1, data
	case FormatDXT3:
		return bcn.FormatDXT3, data
	case FormatDXT5:
		return bcn.FormatDXT5, data
	case FormatATI1N:
		return bcn.FormatBC4, data
	case FormatATI2N:
		return bcn.FormatBC5, data
	case FormatRGBA8888:
		return bcn.FormatRGBA8, data
	case FormatBGRA8888:
		return bcn.FormatBGRA8, data
	case FormatBGRX8888:
		return bcn.FormatBGRA8, swizzle(data, 4, -1, -1, -1, -1, true)
	case FormatABGR8888:
		return bcn.FormatRGBA8, swizzle(data, 4, 3, 2, 1, 0, false)
	case FormatARGB8888:
		return bcn.FormatRGBA8, swizzle(data, 4, 1, 2, 3, 0, false)
	case FormatRGB888:
		return bcn.FormatRGBA8, swizzle(data, 3, 0, 1, 2, -1, true)
	case FormatBGR888:
		return bcn.FormatBGRA8, swizzle(data, 3, 0, 1, 2, -1, true)
	default:
		return bcn.FormatUnknown, nil
	}
}

// swizzle expands stride-byte pixels into four-byte pixels. c0..c3 pick the
// source byte for each output channel; -1 keeps the source byte at the same
// position. opaque forces the fourth channel to 255.
func swizzle(data []byte, stride, c0, c1, c2, c3 int, opaque bool) []byte {
	n := len(data) / stride
	out := make([]byte, n*4)
	pick := [4]int{c0, c1, c2, c3}
	for i := 0; i < n; i++ {
		src := data[i*stride : i*stride+stride]
		dst := out[i*4 : i*4+4]
		for c := 0; c < 4; c++ {
			switch {
			case pick[c] >= 0:
				dst[c] = src[pick[c]]
			case c < stride:
				dst[c] = src[c]
			}
		}
		if opaque {
			dst[3] = 0xff
		}
	}
	return out
}
