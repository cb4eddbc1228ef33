package assets

import (
	"archive/zip"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
)

// archiveExtensions are the zip containers picked up from a game directory.
var archiveExtensions = []string{".pk3", ".zip"}

// CollectArchives returns the archives under dir in load order: pak0-9 at
// the top level first (numerically), then everything else alphabetically.
func CollectArchives(dir string) []string {
	var pakFiles []string
	var otherFiles []string

	filepath.WalkDir(dir, func(p string, d os.DirEntry, err error) error {
		if err != nil || d.IsDir() || !isArchiveName(d.Name()) {
			return nil
		}

		lowerName := strings.ToLower(d.Name())
		isRootLevel := filepath.Dir(p) == dir
		if isRootLevel && strings.HasPrefix(lowerName, "pak") && len(lowerName) > 4 {
			if numChar := lowerName[3]; numChar >= '0' && numChar <= '9' && lowerName[4] == '.' {
				pakFiles = append(pakFiles, p)
				return nil
			}
		}
		otherFiles = append(otherFiles, p)
		return nil
	})

	sort.Strings(pakFiles)
	sort.Strings(otherFiles)
	return append(pakFiles, otherFiles...)
}

func isArchiveName(name string) bool {
	lower := strings.ToLower(name)
	for _, ext := range archiveExtensions {
		if strings.HasSuffix(lower, ext) {
			return true
		}
	}
	return false
}

type indexEntry struct {
	file   *zip.File
	source string
}

// Archives is a case-insensitive union of zip archives. Entries of archives
// added later shadow entries of the same name added earlier. Archives
// implements fs.FS for regular files; directories cannot be opened.
type Archives struct {
	index   map[string]indexEntry
	closers []io.Closer
}

// NewArchives returns an empty union.
func NewArchives() *Archives {
	return &Archives{index: make(map[string]indexEntry)}
}

// OpenArchives opens each path in order and merges them into one union.
func OpenArchives(paths ...string) (*Archives, error) {
	a := NewArchives()
	for _, p := range paths {
		r, err := zip.OpenReader(p)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("open archive %s: %w", p, err)
		}
		a.closers = append(a.closers, r)
		a.AddReader(p, &r.Reader)
	}
	return a, nil
}

// AddReader merges r on top of the current entries. source names the
// archive in Source results.
func (a *Archives) AddReader(source string, r *zip.Reader) {
	for _, f := range r.File {
		if f.FileInfo().IsDir() {
			continue
		}
		name := normalizeName(f.Name)
		if name == "" {
			continue
		}
		a.index[name] = indexEntry{file: f, source: source}
	}
}

// Close closes every archive opened by OpenArchives.
func (a *Archives) Close() error {
	var first error
	for _, c := range a.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	a.closers = nil
	return first
}

// normalizeName lowercases name, converts backslashes and strips leading
// slashes so archive entries and lookups share one key space.
func normalizeName(name string) string {
	name = strings.ToLower(strings.ReplaceAll(name, "\\", "/"))
	name = strings.TrimLeft(path.Clean("/"+name), "/")
	if name == "." {
		return ""
	}
	return name
}

// Open implements fs.FS.
func (a *Archives) Open(name string) (fs.File, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := a.index[normalizeName(name)]
	if !ok {
		return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
	}
	rc, err := e.file.Open()
	if err != nil {
		return nil, &fs.PathError{Op: "open", Path: name, Err: err}
	}
	return &archiveFile{ReadCloser: rc, info: e.file.FileInfo()}, nil
}

// ReadFile implements fs.ReadFileFS.
func (a *Archives) ReadFile(name string) ([]byte, error) {
	f, err := a.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read %s in %s: %w", name, a.index[normalizeName(name)].source, err)
	}
	return data, nil
}

// Stat implements fs.StatFS without opening the entry.
func (a *Archives) Stat(name string) (fs.FileInfo, error) {
	if !fs.ValidPath(name) {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrInvalid}
	}
	e, ok := a.index[normalizeName(name)]
	if !ok {
		return nil, &fs.PathError{Op: "stat", Path: name, Err: fs.ErrNotExist}
	}
	return e.file.FileInfo(), nil
}

// Source returns the archive that provides name.
func (a *Archives) Source(name string) (string, bool) {
	e, ok := a.index[normalizeName(name)]
	return e.source, ok
}

// Names returns every indexed entry, lowercased and sorted.
func (a *Archives) Names() []string {
	names := make([]string, 0, len(a.index))
	for n := range a.index {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type archiveFile struct {
	io.ReadCloser
	info fs.FileInfo
}

func (f *archiveFile) Stat() (fs.FileInfo, error) { return f.info, nil }

// WriteArchive writes files to w as a zip using Deflate compression, in
// name order.
func WriteArchive(w io.Writer, files map[string][]byte) error {
	zw := zip.NewWriter(w)

	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		fw, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return fmt.Errorf("create entry %s: %w", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			return fmt.Errorf("write entry %s: %w", name, err)
		}
	}

	return zw.Close()
}
