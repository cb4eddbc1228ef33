package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"io/fs"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"github.com/ftrvxmtrx/tga"
	"github.com/rs/zerolog/log"
	flag "github.com/spf13/pflag"
	"gopkg.in/yaml.v3"

	"github.com/ernie/levelcodec/internal/assets"
	"github.com/ernie/levelcodec/internal/catalog"
	"github.com/ernie/levelcodec/internal/config"
	"github.com/ernie/levelcodec/internal/mapfile"
	"github.com/ernie/levelcodec/internal/vmt"
	"github.com/ernie/levelcodec/internal/vtf"
)

func newFlags(name string, nargs int, args []string) (*flag.FlagSet, func() ([]string, error)) {
	set := flag.NewFlagSet(name, flag.ContinueOnError)
	return set, func() ([]string, error) {
		if err := set.Parse(args); err != nil {
			return nil, err
		}
		if nargs >= 0 && set.NArg() != nargs {
			return nil, fmt.Errorf("%s: expected %d arguments, got %d", name, nargs, set.NArg())
		}
		return set.Args(), nil
	}
}

// headerView is the printed form of a texture header.
type headerView struct {
	Version      string    `yaml:"version"`
	HeaderSize   uint32    `yaml:"header_size"`
	Width        uint16    `yaml:"width"`
	Height       uint16    `yaml:"height"`
	Depth        uint16    `yaml:"depth"`
	Flags        string    `yaml:"flags"`
	Frames       uint16    `yaml:"frames"`
	FirstFrame   uint16    `yaml:"first_frame"`
	Reflectivity []float32 `yaml:"reflectivity,flow"`
	BumpScale    float32   `yaml:"bump_scale"`
	Format       string    `yaml:"format"`
	Supported    bool      `yaml:"supported"`
	MipCount     uint8     `yaml:"mip_count"`
	Thumbnail    string    `yaml:"thumbnail"`
	Resources    []string  `yaml:"resources,omitempty"`
}

func runVTF(_ *config.Config, args []string) error {
	_, parse := newFlags("vtf", 1, args)
	args, err := parse()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	tex, err := vtf.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	h := tex.Header
	view := headerView{
		Version:      fmt.Sprintf("%d.%d", h.Version[0], h.Version[1]),
		HeaderSize:   h.HeaderSize,
		Width:        h.Width,
		Height:       h.Height,
		Depth:        h.Depth,
		Flags:        fmt.Sprintf("%#08x", h.Flags),
		Frames:       h.Frames,
		FirstFrame:   h.FirstFrame,
		Reflectivity: h.Reflectivity[:],
		BumpScale:    h.BumpScale,
		Format:       h.HighResFormat.String(),
		Supported:    tex.Supported(),
		MipCount:     h.MipCount,
		Thumbnail:    fmt.Sprintf("%s %dx%d", h.LowResFormat, h.LowResWidth, h.LowResHeight),
	}
	for _, r := range h.Resources {
		view.Resources = append(view.Resources, fmt.Sprintf("%q flags=%#x data=%d", r.Tag[:], r.Flags, r.Data))
	}
	return printYAML(view)
}

func runVTFExport(_ *config.Config, args []string) error {
	flags, parse := newFlags("vtf-export", 2, args)
	frame := flags.Int("frame", 0, "frame index")
	mip := flags.Int("mip", 0, "mip level, 0 is the largest")
	args, err := parse()
	if err != nil {
		return err
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	tex, err := vtf.Decode(data)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	level, w, h, err := tex.Level(*frame, *mip)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}
	img, err := vtf.Preview(level, w, h, tex.Format)
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	out, err := os.Create(args[1])
	if err != nil {
		return err
	}
	if err := tga.Encode(out, img); err != nil {
		out.Close()
		return fmt.Errorf("encode %s: %w", args[1], err)
	}
	log.Info().Str("file", args[1]).Int("width", w).Int("height", h).Msg("exported")
	return out.Close()
}

// materialView is the printed form of a resolved material.
type materialView struct {
	Path        string            `yaml:"path"`
	Shader      string            `yaml:"shader"`
	BaseTexture string            `yaml:"base_texture,omitempty"`
	Texture     string            `yaml:"texture_file,omitempty"`
	BumpMap     string            `yaml:"bump_map,omitempty"`
	SurfaceProp string            `yaml:"surface_prop,omitempty"`
	Translucent bool              `yaml:"translucent"`
	AlphaTest   bool              `yaml:"alpha_test"`
	SelfIllum   bool              `yaml:"self_illum"`
	Additive    bool              `yaml:"additive"`
	EnvMap      string            `yaml:"env_map,omitempty"`
	Params      map[string]string `yaml:"params"`
}

func runVMT(cfg *config.Config, args []string) error {
	_, parse := newFlags("vmt", 1, args)
	args, err := parse()
	if err != nil {
		return err
	}

	fsys, name, closer, err := materialSource(cfg, args[0])
	if err != nil {
		return err
	}
	defer closer()

	m, err := vmt.Load(fsys, name, cfg.MaterialOptions())
	if err != nil {
		return err
	}
	view := materialView{
		Path:        m.Path,
		Shader:      m.Shader,
		BaseTexture: m.BaseTexture,
		BumpMap:     m.BumpMap,
		SurfaceProp: m.SurfaceProp,
		Translucent: m.Translucent,
		AlphaTest:   m.AlphaTest,
		SelfIllum:   m.SelfIllum,
		Additive:    m.Additive,
		EnvMap:      m.EnvMap,
		Params:      m.Params,
	}
	if m.BaseTexture != "" {
		view.Texture, _ = assets.ResolveTexture(fsys, m.BaseTexture)
	}
	return printYAML(view)
}

// materialSource picks the filesystem a material is loaded from. A file on
// disk is rooted at its enclosing "materials" directory so rooted includes
// resolve; anything else is looked up in the configured archives.
func materialSource(cfg *config.Config, arg string) (fs.FS, string, func(), error) {
	if _, err := os.Stat(arg); err == nil {
		abs, err := filepath.Abs(arg)
		if err != nil {
			return nil, "", nil, err
		}
		slashed := filepath.ToSlash(abs)
		if i := strings.LastIndex(strings.ToLower(slashed), "/materials/"); i >= 0 {
			return os.DirFS(filepath.FromSlash(slashed[:i+1])), slashed[i+1:], func() {}, nil
		}
		return os.DirFS(filepath.Dir(abs)), filepath.Base(abs), func() {}, nil
	}

	a, err := openConfiguredArchives(cfg)
	if err != nil {
		return nil, "", nil, err
	}
	name, ok := assets.ResolveMaterial(a, arg)
	if !ok {
		a.Close()
		return nil, "", nil, fmt.Errorf("%s: %w", arg, fs.ErrNotExist)
	}
	return a, name, func() { a.Close() }, nil
}

func openConfiguredArchives(cfg *config.Config) (*assets.Archives, error) {
	var paths []string
	for _, p := range cfg.Archives {
		if info, err := os.Stat(p); err == nil && info.IsDir() {
			paths = append(paths, assets.CollectArchives(p)...)
			continue
		}
		paths = append(paths, p)
	}
	return assets.OpenArchives(paths...)
}

func runPack(cfg *config.Config, args []string) error {
	_, parse := newFlags("pack", -1, args)
	args, err := parse()
	if err != nil {
		return err
	}
	if len(args) < 2 {
		return fmt.Errorf("pack: expected an output archive and at least one material")
	}

	a, err := openConfiguredArchives(cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	files, missing, err := assets.MaterialFiles(a, args[1:], cfg.MaterialOptions())
	if err != nil {
		return err
	}
	for _, tex := range missing {
		log.Warn().Str("texture", tex).Msg("not found in archives")
	}

	out, err := os.Create(args[0])
	if err != nil {
		return err
	}
	if err := assets.WriteArchive(out, files); err != nil {
		out.Close()
		return fmt.Errorf("write %s: %w", args[0], err)
	}
	log.Info().Str("file", args[0]).Int("files", len(files)).Msg("packed")
	return out.Close()
}

func runBSP2Map(cfg *config.Config, args []string) error {
	_, parse := newFlags("bsp2map", 2, args)
	args, err := parse()
	if err != nil {
		return err
	}

	in, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer in.Close()
	info, err := in.Stat()
	if err != nil {
		return err
	}
	entities, err := assets.ReadEntities(in, info.Size())
	if err != nil {
		return fmt.Errorf("%s: %w", args[0], err)
	}

	var out io.Writer = os.Stdout
	var file *os.File
	if args[1] != "-" {
		if file, err = os.Create(args[1]); err != nil {
			return err
		}
		out = file
	}

	mc := cfg.MapConfig()
	mc.Diagnostics = mapfile.ZerologDiagnostics(log.Logger)
	if err := mapfile.NewEncoder(out, mc).Encode(entities); err != nil {
		if file != nil {
			file.Close()
		}
		return err
	}
	log.Info().Str("file", args[0]).Int("entities", len(entities)).Msg("converted")
	if file != nil {
		return file.Close()
	}
	return nil
}

func runScan(cfg *config.Config, args []string) error {
	flags, parse := newFlags("scan", -1, args)
	dbPath := flags.String("catalog", cfg.Catalog, "catalog database")
	workers := flags.Int("workers", cfg.Scan.Workers, "parallel decoders")
	args, err := parse()
	if err != nil {
		return err
	}
	if len(args) == 0 {
		args = cfg.Archives
	}
	if len(args) == 0 {
		return fmt.Errorf("scan: nothing to scan")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	cat, err := catalog.Open(*dbPath, log.Logger)
	if err != nil {
		return err
	}
	defer cat.Close()

	for _, target := range args {
		fsys, closer, err := scanSource(target)
		if err != nil {
			return err
		}
		names, err := catalog.ListAssets(fsys)
		if err != nil {
			closer()
			return err
		}
		_, err = cat.Scan(ctx, fsys, names, catalog.ScanOptions{
			Source:   target,
			Workers:  *workers,
			Material: cfg.MaterialOptions(),
		})
		closer()
		if err != nil {
			return err
		}
	}
	return nil
}

// scanSource opens a directory, a zip archive, or the pakfile of a BSP.
func scanSource(target string) (fs.FS, func(), error) {
	info, err := os.Stat(target)
	if err != nil {
		return nil, nil, err
	}
	if info.IsDir() {
		if paks := assets.CollectArchives(target); len(paks) > 0 {
			a, err := assets.OpenArchives(paks...)
			if err != nil {
				return nil, nil, err
			}
			return a, func() { a.Close() }, nil
		}
		return os.DirFS(target), func() {}, nil
	}

	if strings.EqualFold(filepath.Ext(target), ".bsp") {
		f, err := os.Open(target)
		if err != nil {
			return nil, nil, err
		}
		zr, err := assets.ReadPakfile(f, info.Size())
		if err != nil {
			f.Close()
			return nil, nil, fmt.Errorf("%s: %w", target, err)
		}
		a := assets.NewArchives()
		if zr != nil {
			a.AddReader(target, zr)
		}
		return a, func() { f.Close() }, nil
	}

	a, err := assets.OpenArchives(target)
	if err != nil {
		return nil, nil, err
	}
	return a, func() { a.Close() }, nil
}

func printYAML(v any) error {
	w := bufio.NewWriter(os.Stdout)
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	return w.Flush()
}
