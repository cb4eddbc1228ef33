package vmt

import (
	"fmt"
	"io"
	"io/fs"
	"path"
	"strings"
)

// Parse reads a single material definition. A patch material cannot be
// resolved without a filesystem, so it always fails; use Load for those.
func Parse(r io.Reader, opts Options) (*Material, error) {
	shader, params, err := parse(r, opts)
	if err != nil {
		return nil, err
	}
	if shader == shaderPatch {
		inc, ok := params["include"]
		if !ok {
			return nil, ErrPatchWithoutInclude
		}
		return nil, fmt.Errorf("%w: %q: no filesystem to resolve against", ErrMissingInclude, inc)
	}
	return newMaterial(shader, params), nil
}

// Load reads the material at name from fsys, following patch includes
// until a concrete material is reached.
func Load(fsys fs.FS, name string, opts Options) (*Material, error) {
	return load(fsys, path.Clean(toSlash(name)), opts, make(map[string]bool))
}

// load parses name; chain holds the lowercased paths already visited on
// this include chain.
func load(fsys fs.FS, name string, opts Options, chain map[string]bool) (*Material, error) {
	key := strings.ToLower(name)
	if chain[key] {
		return nil, fmt.Errorf("%w: %s", ErrIncludeCycle, name)
	}
	chain[key] = true

	f, err := fsys.Open(name)
	if err != nil {
		return nil, fmt.Errorf("open material %s: %w", name, err)
	}
	shader, params, err := parse(f, opts)
	f.Close()
	if err != nil {
		return nil, fmt.Errorf("parse material %s: %w", name, err)
	}

	if shader != shaderPatch {
		m := newMaterial(shader, params)
		m.Path = name
		m.Chain = []string{name}
		return m, nil
	}

	inc, ok := params["include"]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPatchWithoutInclude, name)
	}
	target, ok := findInclude(fsys, name, inc)
	if !ok {
		return nil, fmt.Errorf("%w: %q from %s", ErrMissingInclude, inc, name)
	}
	m, err := load(fsys, target, opts, chain)
	if err != nil {
		return nil, err
	}
	m.Chain = append([]string{name}, m.Chain...)
	return m, nil
}

// findInclude resolves inc relative to the directory of from. Includes
// rooted at "materials/" are also tried from the filesystem root.
func findInclude(fsys fs.FS, from, inc string) (string, bool) {
	inc = toSlash(strings.TrimSpace(inc))
	candidates := []string{path.Join(path.Dir(from), inc)}
	if strings.HasPrefix(strings.ToLower(inc), "materials/") {
		candidates = append(candidates, path.Clean(inc))
	}

	for _, c := range candidates {
		for _, p := range []string{c, strings.ToLower(c)} {
			if !fs.ValidPath(p) {
				continue
			}
			if _, err := fs.Stat(fsys, p); err == nil {
				return p, true
			}
		}
	}
	return "", false
}

func toSlash(p string) string {
	return strings.ReplaceAll(p, "\\", "/")
}
