package assets

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/charmap"

	"github.com/ernie/levelcodec/internal/mapfile"
)

const (
	ibspMagic      = "IBSP"
	ibspVersion    = 0x2E
	ibspNumLumps   = 17
	ibspHeaderSize = 8 + ibspNumLumps*8 // magic(4) + version(4) + 17 lumps * (offset(4) + length(4))

	vbspMagic      = "VBSP"
	vbspNumLumps   = 64
	vbspHeaderSize = 8 + vbspNumLumps*16 + 4 // magic, version, lumps * (offset, length, version, fourCC), revision

	lumpEntities = 0
	lumpPakfile  = 40 // VBSP only
)

type lump struct {
	offset, length int64
	compressed     bool
}

// bspHeader is the lump directory of either an IBSP or a VBSP file.
type bspHeader struct {
	magic   string
	version uint32
	lumps   []lump
}

func readBSPHeader(r io.ReaderAt, size int64) (*bspHeader, error) {
	if size < ibspHeaderSize {
		return nil, fmt.Errorf("%w: %d bytes", ErrInvalidBSP, size)
	}
	head := make([]byte, 8)
	if _, err := r.ReadAt(head, 0); err != nil {
		return nil, fmt.Errorf("read BSP header: %w", err)
	}
	h := &bspHeader{magic: string(head[0:4]), version: binary.LittleEndian.Uint32(head[4:8])}

	var entrySize, numLumps int
	switch h.magic {
	case ibspMagic:
		if h.version != ibspVersion {
			return nil, fmt.Errorf("%w: unsupported IBSP version %d", ErrInvalidBSP, h.version)
		}
		entrySize, numLumps = 8, ibspNumLumps
	case vbspMagic:
		if size < vbspHeaderSize {
			return nil, fmt.Errorf("%w: %d bytes", ErrInvalidBSP, size)
		}
		entrySize, numLumps = 16, vbspNumLumps
	default:
		return nil, fmt.Errorf("%w: magic %q", ErrInvalidBSP, h.magic)
	}

	dir := make([]byte, entrySize*numLumps)
	if _, err := r.ReadAt(dir, 8); err != nil {
		return nil, fmt.Errorf("read BSP lump directory: %w", err)
	}
	h.lumps = make([]lump, numLumps)
	for i := range h.lumps {
		e := dir[i*entrySize:]
		l := lump{
			offset: int64(binary.LittleEndian.Uint32(e[0:4])),
			length: int64(binary.LittleEndian.Uint32(e[4:8])),
		}
		if entrySize == 16 {
			l.compressed = binary.LittleEndian.Uint32(e[12:16]) != 0
		}
		if l.offset+l.length > size {
			return nil, fmt.Errorf("%w: lump %d spans %d+%d of %d bytes", ErrInvalidBSP, i, l.offset, l.length, size)
		}
		h.lumps[i] = l
	}
	return h, nil
}

func (h *bspHeader) read(r io.ReaderAt, index int) ([]byte, error) {
	l := h.lumps[index]
	if l.compressed {
		return nil, fmt.Errorf("%w: lump %d is compressed", ErrInvalidBSP, index)
	}
	data := make([]byte, l.length)
	if _, err := r.ReadAt(data, l.offset); err != nil {
		return nil, fmt.Errorf("read lump %d: %w", index, err)
	}
	return data, nil
}

// ReadEntities parses the entity lump of an IBSP or VBSP file. Entities and
// their keys keep file order; repeated keys are kept as separate pairs.
func ReadEntities(r io.ReaderAt, size int64) ([]mapfile.Entity, error) {
	h, err := readBSPHeader(r, size)
	if err != nil {
		return nil, err
	}
	data, err := h.read(r, lumpEntities)
	if err != nil {
		return nil, err
	}
	return ParseEntities(data)
}

// ReadPakfile opens the zip archive embedded in a VBSP file. IBSP files and
// maps with an empty pakfile return nil.
func ReadPakfile(r io.ReaderAt, size int64) (*zip.Reader, error) {
	h, err := readBSPHeader(r, size)
	if err != nil {
		return nil, err
	}
	if h.magic != vbspMagic || h.lumps[lumpPakfile].length == 0 {
		return nil, nil
	}
	l := h.lumps[lumpPakfile]
	zr, err := zip.NewReader(io.NewSectionReader(r, l.offset, l.length), l.length)
	if err != nil {
		return nil, fmt.Errorf("open pakfile: %w", err)
	}
	return zr, nil
}

// ParseEntities parses entity lump text. Text that is not valid UTF-8 is
// read as Windows-1252.
func ParseEntities(data []byte) ([]mapfile.Entity, error) {
	data = []byte(readNullTerminated(data))
	if !utf8.Valid(data) {
		decoded, err := charmap.Windows1252.NewDecoder().Bytes(data)
		if err != nil {
			return nil, fmt.Errorf("decode entity lump: %w", err)
		}
		data = decoded
	}

	var entities []mapfile.Entity
	var cur *mapfile.Entity
	for n, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		switch {
		case line == "":
		case line == "{":
			if cur != nil {
				return nil, fmt.Errorf("%w: line %d: nested entity", ErrInvalidBSP, n+1)
			}
			cur = &mapfile.Entity{}
		case line == "}":
			if cur == nil {
				return nil, fmt.Errorf("%w: line %d: unbalanced brace", ErrInvalidBSP, n+1)
			}
			entities = append(entities, *cur)
			cur = nil
		default:
			if cur == nil {
				return nil, fmt.Errorf("%w: line %d: key outside entity", ErrInvalidBSP, n+1)
			}
			key, value, ok := parseEntityKV(line)
			if !ok {
				continue
			}
			cur.Pairs = append(cur.Pairs, mapfile.KeyValue{Key: key, Value: value})
		}
	}
	if cur != nil {
		return nil, fmt.Errorf("%w: unterminated entity", ErrInvalidBSP)
	}
	return entities, nil
}

// parseEntityKV parses a "key" "value" line from entity data.
func parseEntityKV(line string) (string, string, bool) {
	i := strings.IndexByte(line, '"')
	if i < 0 {
		return "", "", false
	}
	j := strings.IndexByte(line[i+1:], '"')
	if j < 0 {
		return "", "", false
	}
	key := line[i+1 : i+1+j]

	rest := line[i+1+j+1:]
	i = strings.IndexByte(rest, '"')
	if i < 0 {
		return key, "", key != ""
	}
	j = strings.IndexByte(rest[i+1:], '"')
	if j < 0 {
		return key, "", key != ""
	}
	return key, rest[i+1 : i+1+j], key != ""
}

// readNullTerminated reads a null-terminated string from a byte slice.
func readNullTerminated(b []byte) string {
	idx := bytes.IndexByte(b, 0)
	if idx < 0 {
		return string(b)
	}
	return string(b[:idx])
}
