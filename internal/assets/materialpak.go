package assets

import (
	"fmt"
	"io/fs"
	"sort"

	"github.com/ernie/levelcodec/internal/vmt"
)

// MaterialFiles gathers everything the given material references need:
// each definition along its include chain plus the textures it names.
// Texture references that fsys does not hold are returned sorted and
// deduplicated as missing; engine keywords such as env_cubemap land there.
func MaterialFiles(fsys fs.FS, refs []string, opts vmt.Options) (map[string][]byte, []string, error) {
	needed := make(map[string]bool)
	unresolved := make(map[string]bool)

	for _, ref := range refs {
		name, ok := ResolveMaterial(fsys, ref)
		if !ok {
			return nil, nil, fmt.Errorf("material %s: %w", ref, fs.ErrNotExist)
		}
		m, err := vmt.Load(fsys, name, opts)
		if err != nil {
			return nil, nil, fmt.Errorf("material %s: %w", ref, err)
		}
		for _, p := range m.Chain {
			needed[p] = true
		}

		for _, tex := range []string{m.BaseTexture, m.BaseTexture2, m.BumpMap, m.Detail, m.DuDvMap, m.EnvMap} {
			if tex == "" {
				continue
			}
			if resolved, ok := ResolveTexture(fsys, tex); ok {
				needed[resolved] = true
			} else {
				unresolved[tex] = true
			}
		}
	}

	files := make(map[string][]byte, len(needed))
	for p := range needed {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return nil, nil, err
		}
		files[p] = data
	}

	missing := make([]string, 0, len(unresolved))
	for tex := range unresolved {
		missing = append(missing, tex)
	}
	sort.Strings(missing)
	return files, missing, nil
}
