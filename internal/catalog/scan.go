package catalog

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"runtime"
	"sort"
	"strings"
	"sync/atomic"

	"golang.org/x/crypto/blake2b"
	"golang.org/x/sync/errgroup"

	"github.com/ernie/levelcodec/internal/vmt"
	"github.com/ernie/levelcodec/internal/vtf"
)

// ScanOptions controls a scan.
type ScanOptions struct {
	// Source labels every record written, e.g. the archive or directory.
	Source   string
	Workers  int
	Material vmt.Options
}

// Stats counts the outcome of a scan.
type Stats struct {
	Textures  int
	Materials int
	Skipped   int
	Failed    int
}

// lister is implemented by filesystems that can enumerate their files
// without directory entries, such as assets.Archives.
type lister interface {
	Names() []string
}

// ListAssets returns the .vtf and .vmt files in fsys, sorted.
func ListAssets(fsys fs.FS) ([]string, error) {
	var names []string
	if l, ok := fsys.(lister); ok {
		for _, n := range l.Names() {
			if isAsset(n) {
				names = append(names, n)
			}
		}
		return names, nil
	}

	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && isAsset(p) {
			names = append(names, p)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	sort.Strings(names)
	return names, nil
}

func isAsset(name string) bool {
	switch strings.ToLower(path.Ext(name)) {
	case ".vtf", ".vmt":
		return true
	}
	return false
}

// Scan decodes every name in fsys into the catalog. Files whose content
// hash matches the stored row are skipped; a material's hash covers its
// whole include chain. Decode failures are logged and
// counted; only database and context errors abort the scan.
func (c *Catalog) Scan(ctx context.Context, fsys fs.FS, names []string, opts ScanOptions) (Stats, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var textures, materials, skipped, failed atomic.Int64
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for _, name := range names {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			var n *atomic.Int64
			var stored bool
			var err error
			switch strings.ToLower(path.Ext(name)) {
			case ".vtf":
				n = &textures
				stored, err = c.scanTexture(gctx, fsys, name, opts)
			case ".vmt":
				n = &materials
				stored, err = c.scanMaterial(gctx, fsys, name, opts)
			default:
				return nil
			}

			var fail *decodeError
			switch {
			case err == nil && stored:
				n.Add(1)
			case err == nil:
				skipped.Add(1)
			case errors.As(err, &fail):
				failed.Add(1)
				c.log.Warn().Err(fail.err).Str("path", name).Msg("skipping asset")
			default:
				return err
			}
			return nil
		})
	}

	err := g.Wait()
	if err == nil {
		err = ctx.Err()
	}
	stats := Stats{
		Textures:  int(textures.Load()),
		Materials: int(materials.Load()),
		Skipped:   int(skipped.Load()),
		Failed:    int(failed.Load()),
	}
	c.log.Info().
		Str("source", opts.Source).
		Int("textures", stats.Textures).
		Int("materials", stats.Materials).
		Int("skipped", stats.Skipped).
		Int("failed", stats.Failed).
		Msg("scan complete")
	return stats, err
}

// decodeError marks a per-file failure that does not stop the scan.
type decodeError struct {
	err error
}

func (e *decodeError) Error() string { return e.err.Error() }
func (e *decodeError) Unwrap() error { return e.err }

// unchanged reads name and reports whether its hash matches the row stored
// in table.
func (c *Catalog) unchanged(ctx context.Context, fsys fs.FS, table, name string) ([]byte, []byte, bool, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, nil, false, &decodeError{err: err}
	}
	sum := blake2b.Sum256(data)
	stored, err := c.storedHash(ctx, table, name)
	if err != nil {
		return nil, nil, false, err
	}
	if bytes.Equal(stored, sum[:]) {
		c.log.Debug().Str("path", name).Msg("unchanged")
		return data, sum[:], true, nil
	}
	return data, sum[:], false, nil
}

func (c *Catalog) scanTexture(ctx context.Context, fsys fs.FS, name string, opts ScanOptions) (bool, error) {
	data, sum, same, err := c.unchanged(ctx, fsys, "textures", name)
	if err != nil || same {
		return false, err
	}

	tex, err := vtf.Decode(data)
	if err != nil {
		return false, &decodeError{err: err}
	}
	h := tex.Header
	rec := &TextureRecord{
		Path:        name,
		Source:      opts.Source,
		Hash:        sum,
		Version:     fmt.Sprintf("%d.%d", h.Version[0], h.Version[1]),
		Width:       int(h.Width),
		Height:      int(h.Height),
		Depth:       int(h.Depth),
		Frames:      int(h.Frames),
		MipCount:    int(h.MipCount),
		Flags:       h.Flags,
		Format:      h.HighResFormat.String(),
		Supported:   tex.Supported(),
		ThumbFormat: h.LowResFormat.String(),
		ThumbWidth:  int(h.LowResWidth),
		ThumbHeight: int(h.LowResHeight),
		Thumbnail:   tex.Thumbnail,
	}
	if err := c.putTexture(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

// scanMaterial resolves name first so the stored hash covers every file on
// its include chain; a changed include refreshes the patch that uses it.
func (c *Catalog) scanMaterial(ctx context.Context, fsys fs.FS, name string, opts ScanOptions) (bool, error) {
	m, err := vmt.Load(fsys, name, opts.Material)
	if err != nil {
		return false, &decodeError{err: err}
	}

	h, err := blake2b.New256(nil)
	if err != nil {
		return false, fmt.Errorf("blake2b: %w", err)
	}
	for _, p := range m.Chain {
		data, err := fs.ReadFile(fsys, p)
		if err != nil {
			return false, &decodeError{err: err}
		}
		fmt.Fprintf(h, "%s\x00%d\x00", p, len(data))
		h.Write(data)
	}
	sum := h.Sum(nil)

	stored, err := c.storedHash(ctx, "materials", name)
	if err != nil {
		return false, err
	}
	if bytes.Equal(stored, sum) {
		c.log.Debug().Str("path", name).Msg("unchanged")
		return false, nil
	}

	rec := &MaterialRecord{
		Path:        name,
		Source:      opts.Source,
		Hash:        sum,
		Resolved:    m.Path,
		Shader:      m.Shader,
		BaseTexture: m.BaseTexture,
		BumpMap:     m.BumpMap,
		SurfaceProp: m.SurfaceProp,
		Translucent: m.Translucent,
		AlphaTest:   m.AlphaTest,
	}
	if err := c.putMaterial(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}
