package vtf

import "fmt"

// Texture is a decoded VTF container. Pixel buffers stay in their native
// encoding; nothing here produces a renderable image.
type Texture struct {
	Header    *Header
	Thumbnail []byte
	// Main holds every mip level of every frame, smallest level first.
	// It is nil when the high-res format is not supported.
	Main   []byte
	Format ImageFormat
}

// Supported reports whether Main was extracted.
func (t *Texture) Supported() bool {
	return t.Format.Supported()
}

// Decode reads the header and both pixel ranges from b.
func Decode(b []byte) (*Texture, error) {
	h, err := DecodeHeader(b)
	if err != nil {
		return nil, err
	}
	thumb, main, err := ExtractPixelData(b, h)
	if err != nil {
		return nil, err
	}
	return &Texture{
		Header:    h,
		Thumbnail: thumb,
		Main:      main,
		Format:    h.HighResFormat,
	}, nil
}

// ExtractPixelData slices the thumbnail and the main mip chain out of b.
// The thumbnail starts at the header size and the main image follows it,
// unless a 7.3+ resource directory gives explicit offsets. An unsupported
// high-res format yields a nil main buffer and no error.
func ExtractPixelData(b []byte, h *Header) (thumb, main []byte, err error) {
	thumbSize := ComputeBlockSize(int(h.LowResWidth), int(h.LowResHeight), h.LowResFormat)
	thumbOffset := int(h.HeaderSize)
	mainOffset := thumbOffset + thumbSize

	if len(h.Resources) > 0 {
		if off, ok := h.resource(ResourceLowRes); ok {
			thumbOffset = int(off)
		} else {
			thumbSize = 0
		}
		if off, ok := h.resource(ResourceHighRes); ok {
			mainOffset = int(off)
		}
	}

	thumb, err = sliceRange(b, thumbOffset, thumbSize, "thumbnail")
	if err != nil {
		return nil, nil, err
	}

	if !h.HighResFormat.Supported() {
		return thumb, nil, nil
	}

	mainSize := ComputeMipChainSize(int(h.Width), int(h.Height), int(h.MipCount), int(h.Frames), h.HighResFormat)
	main, err = sliceRange(b, mainOffset, mainSize, "image data")
	if err != nil {
		return nil, nil, err
	}
	return thumb, main, nil
}

func sliceRange(b []byte, offset, size int, what string) ([]byte, error) {
	if offset < 0 || size < 0 || offset > len(b) || size > len(b)-offset {
		return nil, fmt.Errorf("%w: %s [%d, %d) exceeds %d bytes", ErrTruncatedData, what, offset, offset+size, len(b))
	}
	return b[offset : offset+size], nil
}

// Level returns the pixel bytes and dimensions of one mip level (0 is the
// largest) of one frame.
func (t *Texture) Level(frame, mip int) ([]byte, int, int, error) {
	h := t.Header
	if t.Main == nil {
		return nil, 0, 0, fmt.Errorf("%w: %s", ErrUnsupportedFormat, t.Format)
	}
	if frame < 0 || frame >= int(h.Frames) || mip < 0 || mip >= int(h.MipCount) {
		return nil, 0, 0, fmt.Errorf("%w: frame %d of %d, mip %d of %d", ErrLevelRange, frame, h.Frames, mip, h.MipCount)
	}

	offset := 0
	for level := int(h.MipCount) - 1; level > mip; level-- {
		w := mipDimension(int(h.Width), level)
		hh := mipDimension(int(h.Height), level)
		offset += ComputeBlockSize(w, hh, t.Format) * int(h.Frames)
	}

	w := mipDimension(int(h.Width), mip)
	hh := mipDimension(int(h.Height), mip)
	size := ComputeBlockSize(w, hh, t.Format)
	offset += frame * size

	data, err := sliceRange(t.Main, offset, size, "mip level")
	if err != nil {
		return nil, 0, 0, err
	}
	return data, w, hh, nil
}
