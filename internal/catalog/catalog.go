// Package catalog caches decoded texture headers and resolved materials in
// SQLite so repeated scans only touch files whose content changed.
package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/klauspost/compress/zstd"
	"github.com/rs/zerolog"
	_ "modernc.org/sqlite"
)

// ErrNotFound is returned by lookups for paths the catalog has no row for.
var ErrNotFound = errors.New("not in catalog")

const schema = `
CREATE TABLE IF NOT EXISTS textures (
	path          TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	hash          BLOB NOT NULL,
	version       TEXT NOT NULL,
	width         INTEGER NOT NULL,
	height        INTEGER NOT NULL,
	depth         INTEGER NOT NULL,
	frames        INTEGER NOT NULL,
	mip_count     INTEGER NOT NULL,
	flags         INTEGER NOT NULL,
	format        TEXT NOT NULL,
	supported     INTEGER NOT NULL,
	thumb_format  TEXT NOT NULL,
	thumb_width   INTEGER NOT NULL,
	thumb_height  INTEGER NOT NULL,
	thumbnail     BLOB
);
CREATE TABLE IF NOT EXISTS materials (
	path          TEXT PRIMARY KEY,
	source        TEXT NOT NULL,
	hash          BLOB NOT NULL,
	resolved      TEXT NOT NULL,
	shader        TEXT NOT NULL,
	base_texture  TEXT NOT NULL,
	bump_map      TEXT NOT NULL,
	surface_prop  TEXT NOT NULL,
	translucent   INTEGER NOT NULL,
	alpha_test    INTEGER NOT NULL
);
`

// Catalog is a handle on one catalog database.
type Catalog struct {
	db  *sql.DB
	log zerolog.Logger
	enc *zstd.Encoder
	dec *zstd.Decoder
}

// Open opens or creates the catalog at path. Use ":memory:" for a
// throwaway catalog.
func Open(path string, log zerolog.Logger) (*Catalog, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open catalog: %w", err)
	}
	// SQLite serialises writers; one connection also keeps ":memory:" shared.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create catalog schema: %w", err)
	}

	enc, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("zstd encoder: %w", err)
	}
	dec, err := zstd.NewReader(nil)
	if err != nil {
		enc.Close()
		db.Close()
		return nil, fmt.Errorf("zstd decoder: %w", err)
	}

	return &Catalog{db: db, log: log, enc: enc, dec: dec}, nil
}

// Close releases the database and codecs.
func (c *Catalog) Close() error {
	c.dec.Close()
	if err := c.enc.Close(); err != nil {
		c.db.Close()
		return fmt.Errorf("close zstd encoder: %w", err)
	}
	return c.db.Close()
}

// TextureRecord is the cached summary of one texture file.
type TextureRecord struct {
	Path      string
	Source    string
	Hash      []byte
	Version   string
	Width     int
	Height    int
	Depth     int
	Frames    int
	MipCount  int
	Flags     uint32
	Format    string
	Supported bool

	ThumbFormat string
	ThumbWidth  int
	ThumbHeight int
	// Thumbnail holds the low-res image in its native encoding.
	Thumbnail []byte
}

// MaterialRecord is the cached summary of one material definition.
type MaterialRecord struct {
	Path   string
	Source string
	Hash   []byte
	// Resolved is the file the final definition came from after includes.
	Resolved    string
	Shader      string
	BaseTexture string
	BumpMap     string
	SurfaceProp string
	Translucent bool
	AlphaTest   bool
}

func (c *Catalog) putTexture(ctx context.Context, r *TextureRecord) error {
	var thumb []byte
	if len(r.Thumbnail) > 0 {
		thumb = c.enc.EncodeAll(r.Thumbnail, nil)
	}
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO textures
		(path, source, hash, version, width, height, depth, frames, mip_count, flags, format, supported, thumb_format, thumb_width, thumb_height, thumbnail)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Path, r.Source, r.Hash, r.Version, r.Width, r.Height, r.Depth, r.Frames, r.MipCount, int64(r.Flags),
		r.Format, r.Supported, r.ThumbFormat, r.ThumbWidth, r.ThumbHeight, thumb)
	if err != nil {
		return fmt.Errorf("store texture %s: %w", r.Path, err)
	}
	return nil
}

// Texture returns the cached record for path.
func (c *Catalog) Texture(ctx context.Context, path string) (*TextureRecord, error) {
	r := &TextureRecord{}
	var flags int64
	var thumb []byte
	err := c.db.QueryRowContext(ctx, `SELECT path, source, hash, version, width, height, depth, frames, mip_count, flags,
		format, supported, thumb_format, thumb_width, thumb_height, thumbnail FROM textures WHERE path = ?`, path).
		Scan(&r.Path, &r.Source, &r.Hash, &r.Version, &r.Width, &r.Height, &r.Depth, &r.Frames, &r.MipCount, &flags,
			&r.Format, &r.Supported, &r.ThumbFormat, &r.ThumbWidth, &r.ThumbHeight, &thumb)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("query texture %s: %w", path, err)
	}
	r.Flags = uint32(flags)
	if len(thumb) > 0 {
		if r.Thumbnail, err = c.dec.DecodeAll(thumb, nil); err != nil {
			return nil, fmt.Errorf("decompress thumbnail %s: %w", path, err)
		}
	}
	return r, nil
}

func (c *Catalog) putMaterial(ctx context.Context, r *MaterialRecord) error {
	_, err := c.db.ExecContext(ctx, `INSERT OR REPLACE INTO materials
		(path, source, hash, resolved, shader, base_texture, bump_map, surface_prop, translucent, alpha_test)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.Path, r.Source, r.Hash, r.Resolved, r.Shader, r.BaseTexture, r.BumpMap, r.SurfaceProp, r.Translucent, r.AlphaTest)
	if err != nil {
		return fmt.Errorf("store material %s: %w", r.Path, err)
	}
	return nil
}

// Material returns the cached record for path.
func (c *Catalog) Material(ctx context.Context, path string) (*MaterialRecord, error) {
	r := &MaterialRecord{}
	err := c.db.QueryRowContext(ctx, `SELECT path, source, hash, resolved, shader, base_texture, bump_map, surface_prop,
		translucent, alpha_test FROM materials WHERE path = ?`, path).
		Scan(&r.Path, &r.Source, &r.Hash, &r.Resolved, &r.Shader, &r.BaseTexture, &r.BumpMap, &r.SurfaceProp,
			&r.Translucent, &r.AlphaTest)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
	}
	if err != nil {
		return nil, fmt.Errorf("query material %s: %w", path, err)
	}
	return r, nil
}

// storedHash returns the content hash recorded for path in table, or nil.
func (c *Catalog) storedHash(ctx context.Context, table, path string) ([]byte, error) {
	var hash []byte
	err := c.db.QueryRowContext(ctx, "SELECT hash FROM "+table+" WHERE path = ?", path).Scan(&hash)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query %s hash %s: %w", table, path, err)
	}
	return hash, nil
}
