package assets

import (
	"io/fs"
	"path"
	"strings"
)

const materialsDir = "materials/"

// ResolveTexture finds the texture file for a material reference such as
// "brick/brickwall001" or "Materials\\Brick\\BrickWall001.vtf". Returns the
// resolved path and true if fsys holds it.
func ResolveTexture(fsys fs.FS, ref string) (string, bool) {
	return resolveAsset(fsys, ref, ".vtf")
}

// ResolveMaterial finds the material definition for a reference, as used
// by texture names in map sides.
func ResolveMaterial(fsys fs.FS, ref string) (string, bool) {
	return resolveAsset(fsys, ref, ".vmt")
}

// resolveAsset tries the lowercased reference first, which is the key
// Archives and the catalog use, then the reference as written so that
// case-sensitive directory trees still resolve exact-case names.
func resolveAsset(fsys fs.FS, ref, ext string) (string, bool) {
	raw := strings.TrimLeft(path.Clean("/"+strings.ReplaceAll(ref, "\\", "/")), "/")
	for _, base := range []string{strings.ToLower(raw), raw} {
		if len(base) >= len(materialsDir) && strings.EqualFold(base[:len(materialsDir)], materialsDir) {
			base = base[len(materialsDir):]
		}
		if i := strings.LastIndexByte(base, '.'); i > strings.LastIndexByte(base, '/') {
			switch strings.ToLower(base[i:]) {
			case ".vtf", ".vmt":
				base = base[:i]
			}
		}
		if base == "" || base == "." {
			return "", false
		}

		candidate := materialsDir + base + ext
		if !fs.ValidPath(candidate) {
			continue
		}
		if _, err := fs.Stat(fsys, candidate); err == nil {
			return candidate, true
		}
	}
	return "", false
}
