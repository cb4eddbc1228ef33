package vtf

import "strconv"

// ImageFormat is a VTF pixel format code.
type ImageFormat int32

// Pixel formats in their on-disk numbering.
const (
	FormatNone ImageFormat = -1

	FormatRGBA8888 ImageFormat = iota - 1
	FormatABGR8888
	FormatRGB888
	FormatBGR888
	FormatRGB565
	FormatI8
	FormatIA88
	FormatP8
	FormatA8
	FormatRGB888Bluescreen
	FormatBGR888Bluescreen
	FormatARGB8888
	FormatBGRA8888
	FormatDXT1
	FormatDXT3
	FormatDXT5
	FormatBGRX8888
	FormatBGR565
	FormatBGRX5551
	FormatBGRA4444
	FormatDXT1OneBitAlpha
	FormatBGRA5551
	FormatUV88
	FormatUVWQ8888
	FormatRGBA16161616F
	FormatRGBA16161616
	FormatUVLX8888
	FormatR32F
	FormatRGB323232F
	FormatRGBA32323232F
	FormatNVDST16
	FormatNVDST24
	FormatNVINTZ
	FormatNVRAWZ
	FormatATIDST16
	FormatATIDST24
	FormatNVNULL
	FormatATI2N
	FormatATI1N
)

var formatNames = map[ImageFormat]string{
	FormatNone:             "NONE",
	FormatRGBA8888:         "RGBA8888",
	FormatABGR8888:         "ABGR8888",
	FormatRGB888:           "RGB888",
	FormatBGR888:           "BGR888",
	FormatRGB565:           "RGB565",
	FormatI8:               "I8",
	FormatIA88:             "IA88",
	FormatP8:               "P8",
	FormatA8:               "A8",
	FormatRGB888Bluescreen: "RGB888_BLUESCREEN",
	FormatBGR888Bluescreen: "BGR888_BLUESCREEN",
	FormatARGB8888:         "ARGB8888",
	FormatBGRA8888:         "BGRA8888",
	FormatDXT1:             "DXT1",
	FormatDXT3:             "DXT3",
	FormatDXT5:             "DXT5",
	FormatBGRX8888:         "BGRX8888",
	FormatBGR565:           "BGR565",
	FormatBGRX5551:         "BGRX5551",
	FormatBGRA4444:         "BGRA4444",
	FormatDXT1OneBitAlpha:  "DXT1_ONEBITALPHA",
	FormatBGRA5551:         "BGRA5551",
	FormatUV88:             "UV88",
	FormatUVWQ8888:         "UVWQ8888",
	FormatRGBA16161616F:    "RGBA16161616F",
	FormatRGBA16161616:     "RGBA16161616",
	FormatUVLX8888:         "UVLX8888",
	FormatR32F:             "R32F",
	FormatRGB323232F:       "RGB323232F",
	FormatRGBA32323232F:    "RGBA32323232F",
	FormatNVDST16:          "NV_DST16",
	FormatNVDST24:          "NV_DST24",
	FormatNVINTZ:           "NV_INTZ",
	FormatNVRAWZ:           "NV_RAWZ",
	FormatATIDST16:         "ATI_DST16",
	FormatATIDST24:         "ATI_DST24",
	FormatNVNULL:           "NV_NULL",
	FormatATI2N:            "ATI2N",
	FormatATI1N:            "ATI1N",
}

func (f ImageFormat) String() string {
	if name, ok := formatNames[f]; ok {
		return name
	}
	return "FORMAT(" + strconv.Itoa(int(f)) + ")"
}

// blockBytes returns the size of one 4x4 block, or 0 for formats that are
// not block compressed.
func blockBytes(f ImageFormat) int {
	switch f {
	case FormatDXT1, FormatDXT1OneBitAlpha, FormatATI1N:
		return 8
	case FormatDXT3, FormatDXT5, FormatATI2N:
		return 16
	default:
		return 0
	}
}

// IsCompressed reports whether f stores 4x4 pixel blocks.
func (f ImageFormat) IsCompressed() bool {
	return blockBytes(f) > 0
}

// bytesPerPixel returns the per-pixel size of an uncompressed format.
// Formats the table does not know are treated as one byte per pixel.
func bytesPerPixel(f ImageFormat) int {
	switch f {
	case FormatABGR8888, FormatARGB8888, FormatRGBA8888, FormatBGRA8888,
		FormatBGRX8888, FormatUVWQ8888, FormatUVLX8888, FormatR32F,
		FormatNVINTZ, FormatNVRAWZ, FormatNVNULL:
		return 4
	case FormatRGB888, FormatBGR888, FormatRGB888Bluescreen,
		FormatBGR888Bluescreen, FormatNVDST24:
		return 3
	case FormatRGB565, FormatIA88, FormatBGR565, FormatBGRX5551,
		FormatBGRA4444, FormatBGRA5551, FormatUV88, FormatNVDST16,
		FormatATIDST16:
		return 2
	default:
		return 1
	}
}

// Supported reports whether downstream importers can consume f: its byte
// layout is known and Preview can decode it.
func (f ImageFormat) Supported() bool {
	switch f {
	case FormatRGBA8888, FormatABGR8888, FormatRGB888, FormatBGR888,
		FormatARGB8888, FormatBGRA8888, FormatBGRX8888,
		FormatDXT1, FormatDXT1OneBitAlpha, FormatDXT3, FormatDXT5,
		FormatATI1N, FormatATI2N:
		return true
	default:
		return false
	}
}
