package assets

import (
	"archive/zip"
	"bytes"
	"encoding/binary"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"testing/fstest"

	"github.com/ernie/levelcodec/internal/mapfile"
	"github.com/ernie/levelcodec/internal/vmt"
)

func writeArchiveFile(t *testing.T, dir, name string, files map[string][]byte) string {
	t.Helper()

	p := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	f, err := os.Create(p)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	defer f.Close()
	if err := WriteArchive(f, files); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	return p
}

func TestCollectArchivesOrder(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	for _, name := range []string{"zz.pk3", "pak1.pk3", "pak0.pk3", "alpha.zip", "sub/pak2.pk3", "readme.txt"} {
		writeArchiveFile(t, dir, name, map[string][]byte{"x": nil})
	}

	got := CollectArchives(dir)
	want := []string{
		filepath.Join(dir, "pak0.pk3"),
		filepath.Join(dir, "pak1.pk3"),
		filepath.Join(dir, "alpha.zip"),
		filepath.Join(dir, "sub/pak2.pk3"),
		filepath.Join(dir, "zz.pk3"),
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("CollectArchives = %v, want %v", got, want)
	}
}

func TestArchivesOverrideAndCase(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	first := writeArchiveFile(t, dir, "pak0.pk3", map[string][]byte{
		"Materials/Brick/Wall.vmt": []byte("first"),
		"materials/only.vmt":       []byte("only"),
	})
	second := writeArchiveFile(t, dir, "pak1.pk3", map[string][]byte{
		"materials\\brick\\wall.vmt": []byte("second"),
	})

	a, err := OpenArchives(first, second)
	if err != nil {
		t.Fatalf("OpenArchives: %v", err)
	}
	defer a.Close()

	data, err := a.ReadFile("materials/BRICK/wall.vmt")
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if string(data) != "second" {
		t.Fatalf("override = %q, want second", data)
	}
	if src, ok := a.Source("materials/brick/wall.vmt"); !ok || src != second {
		t.Fatalf("Source = %q, %v", src, ok)
	}
	if data, err := fs.ReadFile(a, "materials/only.vmt"); err != nil || string(data) != "only" {
		t.Fatalf("fs.ReadFile = %q, %v", data, err)
	}
	if _, err := a.Open("materials/missing.vmt"); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
	if _, err := a.Open("../escape"); !errors.Is(err, fs.ErrInvalid) {
		t.Fatalf("expected fs.ErrInvalid, got %v", err)
	}
	if got := a.Names(); !reflect.DeepEqual(got, []string{"materials/brick/wall.vmt", "materials/only.vmt"}) {
		t.Fatalf("Names = %v", got)
	}
}

func TestArchivesServeMaterialIncludes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeArchiveFile(t, dir, "pak0.pk3", map[string][]byte{
		"materials/tile/base.vmt":  []byte("LightmappedGeneric\n{\n$basetexture tile/base\n}\n"),
		"materials/tile/patch.vmt": []byte("patch\n{\ninclude base.vmt\n}\n"),
		"materials/tile/base.vtf":  []byte("VTF\x00"),
	})
	a, err := OpenArchives(p)
	if err != nil {
		t.Fatalf("OpenArchives: %v", err)
	}
	defer a.Close()

	m, err := vmt.Load(a, "materials/tile/patch.vmt", vmt.DefaultOptions())
	if err != nil {
		t.Fatalf("vmt.Load: %v", err)
	}
	tex, ok := ResolveTexture(a, m.BaseTexture)
	if !ok || tex != "materials/tile/base.vtf" {
		t.Fatalf("ResolveTexture(%q) = %q, %v", m.BaseTexture, tex, ok)
	}
}

func TestResolveTexture(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeArchiveFile(t, dir, "pak0.pk3", map[string][]byte{
		"materials/brick/wall.vtf": nil,
		"materials/brick/wall.vmt": nil,
	})
	a, err := OpenArchives(p)
	if err != nil {
		t.Fatalf("OpenArchives: %v", err)
	}
	defer a.Close()

	tests := []struct {
		ref  string
		want string
		ok   bool
	}{
		{ref: "brick/wall", want: "materials/brick/wall.vtf", ok: true},
		{ref: "Brick\\Wall.VTF", want: "materials/brick/wall.vtf", ok: true},
		{ref: "materials/brick/wall.vmt", want: "materials/brick/wall.vtf", ok: true},
		{ref: "brick/floor", ok: false},
		{ref: "", ok: false},
	}
	for _, tc := range tests {
		got, ok := ResolveTexture(a, tc.ref)
		if ok != tc.ok || got != tc.want {
			t.Fatalf("ResolveTexture(%q) = %q, %v; want %q, %v", tc.ref, got, ok, tc.want, tc.ok)
		}
	}
	if got, ok := ResolveMaterial(a, "brick/wall"); !ok || got != "materials/brick/wall.vmt" {
		t.Fatalf("ResolveMaterial = %q, %v", got, ok)
	}
}

func TestResolveTextureSameKeyAcrossBackends(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeArchiveFile(t, dir, "pak0.pk3", map[string][]byte{"materials/brick/wall.vtf": nil})
	a, err := OpenArchives(p)
	if err != nil {
		t.Fatalf("OpenArchives: %v", err)
	}
	defer a.Close()

	loose := fstest.MapFS{
		"materials/brick/wall.vtf":  {},
		"materials/Decals/Tag1.vtf": {},
	}

	for _, ref := range []string{"Brick/Wall", "brick/wall", "MATERIALS\\BRICK\\WALL.vtf"} {
		fromArchive, ok := ResolveTexture(a, ref)
		if !ok {
			t.Fatalf("ResolveTexture(archives, %q) not found", ref)
		}
		fromDir, ok := ResolveTexture(loose, ref)
		if !ok {
			t.Fatalf("ResolveTexture(dir, %q) not found", ref)
		}
		if fromArchive != fromDir || fromArchive != "materials/brick/wall.vtf" {
			t.Fatalf("ResolveTexture(%q): archives %q, dir %q", ref, fromArchive, fromDir)
		}
	}

	// Exact-case names still resolve on case-sensitive trees.
	if got, ok := ResolveTexture(loose, "Decals/Tag1"); !ok || got != "materials/Decals/Tag1.vtf" {
		t.Fatalf("exact-case lookup = %q, %v", got, ok)
	}
}

func TestMaterialFiles(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	p := writeArchiveFile(t, dir, "pak0.pk3", map[string][]byte{
		"materials/brick/wall.vmt":        []byte("LightmappedGeneric\n{\n$basetexture brick/wall\n$bumpmap brick/wall_normal\n$envmap env_cubemap\n}\n"),
		"materials/brick/patch.vmt":       []byte("patch\n{\ninclude wall.vmt\n}\n"),
		"materials/brick/wall.vtf":        []byte("vtf"),
		"materials/brick/wall_normal.vtf": []byte("normal"),
		"materials/unused.vtf":            []byte("x"),
	})
	a, err := OpenArchives(p)
	if err != nil {
		t.Fatalf("OpenArchives: %v", err)
	}
	defer a.Close()

	files, missing, err := MaterialFiles(a, []string{"Brick/Patch"}, vmt.DefaultOptions())
	if err != nil {
		t.Fatalf("MaterialFiles: %v", err)
	}
	want := map[string][]byte{
		"materials/brick/patch.vmt":       []byte("patch\n{\ninclude wall.vmt\n}\n"),
		"materials/brick/wall.vmt":        []byte("LightmappedGeneric\n{\n$basetexture brick/wall\n$bumpmap brick/wall_normal\n$envmap env_cubemap\n}\n"),
		"materials/brick/wall.vtf":        []byte("vtf"),
		"materials/brick/wall_normal.vtf": []byte("normal"),
	}
	if !reflect.DeepEqual(files, want) {
		t.Fatalf("files = %v", files)
	}
	if !reflect.DeepEqual(missing, []string{"env_cubemap"}) {
		t.Fatalf("missing = %v", missing)
	}

	var buf bytes.Buffer
	if err := WriteArchive(&buf, files); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	packed := NewArchives()
	zr, err := zip.NewReader(bytes.NewReader(buf.Bytes()), int64(buf.Len()))
	if err != nil {
		t.Fatalf("zip.NewReader: %v", err)
	}
	packed.AddReader("packed.zip", zr)
	m, err := vmt.Load(packed, "materials/brick/patch.vmt", vmt.DefaultOptions())
	if err != nil {
		t.Fatalf("Load from packed archive: %v", err)
	}
	if m.BaseTexture != "brick/wall" {
		t.Fatalf("BaseTexture = %q", m.BaseTexture)
	}

	if _, _, err := MaterialFiles(a, []string{"nowhere"}, vmt.DefaultOptions()); !errors.Is(err, fs.ErrNotExist) {
		t.Fatalf("expected fs.ErrNotExist, got %v", err)
	}
}

const entityText = "{\n\"classname\" \"worldspawn\"\n\"message\" \"caf\xe9\"\n}\n{\n\"classname\" \"logic_relay\"\n\"OnTrigger\" \"a,Open\"\n\"OnTrigger\" \"b,Close\"\n}\n\x00"

func buildIBSP(entities string) []byte {
	buf := make([]byte, ibspHeaderSize)
	copy(buf, ibspMagic)
	binary.LittleEndian.PutUint32(buf[4:], ibspVersion)
	binary.LittleEndian.PutUint32(buf[8:], ibspHeaderSize)
	binary.LittleEndian.PutUint32(buf[12:], uint32(len(entities)))
	return append(buf, entities...)
}

func buildVBSP(entities string, pak []byte) []byte {
	buf := make([]byte, vbspHeaderSize)
	copy(buf, vbspMagic)
	binary.LittleEndian.PutUint32(buf[4:], 20)
	entry := func(i, offset, length int) {
		binary.LittleEndian.PutUint32(buf[8+i*16:], uint32(offset))
		binary.LittleEndian.PutUint32(buf[8+i*16+4:], uint32(length))
	}
	entry(lumpEntities, vbspHeaderSize, len(entities))
	entry(lumpPakfile, vbspHeaderSize+len(entities), len(pak))
	buf = append(buf, entities...)
	return append(buf, pak...)
}

func TestReadEntities(t *testing.T) {
	t.Parallel()

	want := []mapfile.Entity{
		{Pairs: []mapfile.KeyValue{{Key: "classname", Value: "worldspawn"}, {Key: "message", Value: "café"}}},
		{Pairs: []mapfile.KeyValue{{Key: "classname", Value: "logic_relay"}, {Key: "OnTrigger", Value: "a,Open"}, {Key: "OnTrigger", Value: "b,Close"}}},
	}

	for name, data := range map[string][]byte{
		"ibsp": buildIBSP(entityText),
		"vbsp": buildVBSP(entityText, nil),
	} {
		got, err := ReadEntities(bytes.NewReader(data), int64(len(data)))
		if err != nil {
			t.Fatalf("%s: ReadEntities: %v", name, err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Fatalf("%s: entities = %+v, want %+v", name, got, want)
		}
	}
}

func TestReadEntitiesErrors(t *testing.T) {
	t.Parallel()

	badVersion := buildIBSP("")
	binary.LittleEndian.PutUint32(badVersion[4:], 0x2F)
	badLump := buildIBSP("")
	binary.LittleEndian.PutUint32(badLump[12:], 1<<20)

	tests := []struct {
		name string
		data []byte
	}{
		{name: "short", data: []byte("IBSP")},
		{name: "magic", data: append([]byte("XBSP"), make([]byte, ibspHeaderSize)...)},
		{name: "version", data: badVersion},
		{name: "lump-range", data: badLump},
		{name: "unbalanced", data: buildIBSP("}\n")},
		{name: "unterminated", data: buildIBSP("{\n\"a\" \"b\"\n")},
		{name: "outside", data: buildIBSP("\"a\" \"b\"\n")},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			_, err := ReadEntities(bytes.NewReader(tc.data), int64(len(tc.data)))
			if !errors.Is(err, ErrInvalidBSP) {
				t.Fatalf("expected ErrInvalidBSP, got %v", err)
			}
		})
	}
}

func TestReadPakfile(t *testing.T) {
	t.Parallel()

	var pak bytes.Buffer
	if err := WriteArchive(&pak, map[string][]byte{"materials/maps/test/cubemap.vmt": []byte("x")}); err != nil {
		t.Fatalf("WriteArchive: %v", err)
	}
	data := buildVBSP(entityText, pak.Bytes())

	zr, err := ReadPakfile(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadPakfile: %v", err)
	}
	a := NewArchives()
	a.AddReader("test.bsp", zr)
	if got, err := a.ReadFile("materials/maps/test/cubemap.vmt"); err != nil || string(got) != "x" {
		t.Fatalf("ReadFile = %q, %v", got, err)
	}

	ibsp := buildIBSP(entityText)
	if zr, err := ReadPakfile(bytes.NewReader(ibsp), int64(len(ibsp))); err != nil || zr != nil {
		t.Fatalf("IBSP pakfile = %v, %v", zr, err)
	}
}

func TestEntitiesSerialize(t *testing.T) {
	t.Parallel()

	data := buildIBSP("{\n\"classname\" \"worldspawn\"\n}\n")
	ents, err := ReadEntities(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("ReadEntities: %v", err)
	}
	got := mapfile.Serialize(ents, mapfile.DefaultConfig())
	want := "// entity 0\r\n{\r\n\"classname\" \"worldspawn\"\r\n}\r\n"
	if got != want {
		t.Fatalf("Serialize = %q, want %q", got, want)
	}
}
