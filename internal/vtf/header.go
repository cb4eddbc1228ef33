package vtf

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/flywave/go3d/vec3"
)

// Signature is the four-byte magic at the start of every VTF file.
const Signature = "VTF\x00"

const (
	// minHeaderSize covers every field up to the low-res height (7.0/7.1).
	minHeaderSize = 63
	// depthEnd is the end of the 7.2 depth field.
	depthEnd = 65

	resourceCountOffset = 68
	resourceTableOffset = 80
	resourceEntrySize   = 8
)

// Resource tags from the 7.3 resource directory.
var (
	ResourceLowRes  = [3]byte{0x01, 0, 0}
	ResourceHighRes = [3]byte{0x30, 0, 0}
)

// Resource is one entry of a 7.3+ resource directory. For image resources
// Data is the absolute offset of the payload.
type Resource struct {
	Tag   [3]byte
	Flags byte
	Data  uint32
}

// Header is the fixed-layout VTF file header.
type Header struct {
	Signature     string
	Version       [2]uint32
	HeaderSize    uint32
	Width         uint16
	Height        uint16
	Flags         uint32
	Frames        uint16
	FirstFrame    uint16
	Reflectivity  vec3.T
	BumpScale     float32
	HighResFormat ImageFormat
	MipCount      uint8
	LowResFormat  ImageFormat
	LowResWidth   uint8
	LowResHeight  uint8
	Depth         uint16
	Resources     []Resource
}

// AtLeast reports whether the header version is major.minor or newer.
func (h *Header) AtLeast(major, minor uint32) bool {
	if h.Version[0] != major {
		return h.Version[0] > major
	}
	return h.Version[1] >= minor
}

// resource returns the data field of the first entry tagged tag.
func (h *Header) resource(tag [3]byte) (uint32, bool) {
	for _, r := range h.Resources {
		if r.Tag == tag {
			return r.Data, true
		}
	}
	return 0, false
}

// DecodeHeader reads the header fields at their fixed offsets.
func DecodeHeader(b []byte) (*Header, error) {
	if len(b) < len(Signature) || string(b[:4]) != Signature {
		n := len(b)
		if n > 4 {
			n = 4
		}
		return nil, fmt.Errorf("%w: %q", ErrMalformedSignature, b[:n])
	}
	if len(b) < minHeaderSize {
		return nil, fmt.Errorf("%w: header needs %d bytes, have %d", ErrTruncatedData, minHeaderSize, len(b))
	}

	le := binary.LittleEndian
	h := &Header{
		Signature:  string(b[0:4]),
		Version:    [2]uint32{le.Uint32(b[4:8]), le.Uint32(b[8:12])},
		HeaderSize: le.Uint32(b[12:16]),
		Width:      le.Uint16(b[16:18]),
		Height:     le.Uint16(b[18:20]),
		Flags:      le.Uint32(b[20:24]),
		Frames:     le.Uint16(b[24:26]),
		FirstFrame: le.Uint16(b[26:28]),
		// 28:32 is padding
		Reflectivity: vec3.T{
			math.Float32frombits(le.Uint32(b[32:36])),
			math.Float32frombits(le.Uint32(b[36:40])),
			math.Float32frombits(le.Uint32(b[40:44])),
		},
		// 44:48 is padding
		BumpScale:     math.Float32frombits(le.Uint32(b[48:52])),
		HighResFormat: ImageFormat(int32(le.Uint32(b[52:56]))),
		MipCount:      b[56],
		LowResFormat:  ImageFormat(int32(le.Uint32(b[57:61]))),
		LowResWidth:   b[61],
		LowResHeight:  b[62],
		Depth:         1,
	}

	if h.AtLeast(7, 2) && len(b) >= depthEnd {
		h.Depth = le.Uint16(b[63:65])
	}

	if h.AtLeast(7, 3) && len(b) >= resourceCountOffset+4 {
		count := int(le.Uint32(b[resourceCountOffset:]))
		end := resourceTableOffset + count*resourceEntrySize
		if count < 0 || end > len(b) {
			return nil, fmt.Errorf("%w: resource directory of %d entries", ErrTruncatedData, count)
		}
		h.Resources = make([]Resource, count)
		for i := range h.Resources {
			off := resourceTableOffset + i*resourceEntrySize
			r := &h.Resources[i]
			copy(r.Tag[:], b[off:off+3])
			r.Flags = b[off+3]
			r.Data = le.Uint32(b[off+4 : off+8])
		}
	}

	return h, nil
}
